package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/dev"
	"github.com/seahorsehq/seahorse/cmd/fetch"
	"github.com/seahorsehq/seahorse/cmd/key"
	"github.com/seahorsehq/seahorse/cmd/keys"
	"github.com/seahorsehq/seahorse/cmd/migrate"
	"github.com/seahorsehq/seahorse/cmd/search"
	"github.com/seahorsehq/seahorse/cmd/serve"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/cmd/version"
	"github.com/seahorsehq/seahorse/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewCmd() *cobra.Command {
	var (
		rt     = config.NewRuntime()
		vip    = viper.New()
		output string
	)

	cmd := &cobra.Command{
		Use:           "seahorse",
		Short:         "Manage gpg keys and keyservers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if file, _ := cmd.Flags().GetString("config"); file != "" {
				vip.SetConfigFile(file)
			} else {
				vip.SetConfigName("seahorse")
				vip.AddConfigPath(".")
				vip.AddConfigPath("$HOME")
			}

			vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			vip.AutomaticEnv()

			if err := vip.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return err
				}
			}

			if err := rt.Config.Parse(vip); err != nil {
				return err
			}

			// logger
			logger, err := log.NewLogger(cmd.ErrOrStderr(), rt.Config.Log.Level, rt.Config.Log.Format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			format, err := util.ParseFormat(output)
			if err != nil {
				return err
			}
			rt.Format = format

			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default seahorse.yaml)")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format, can be one of: text, json, yaml")
	cobra.CheckErr(rt.Config.Bind(cmd.PersistentFlags(), vip))

	// Add subcommands
	cmd.AddCommand(serve.NewCmd(rt))
	cmd.AddCommand(dev.NewCmd(rt))
	cmd.AddCommand(search.NewCmd(rt))
	cmd.AddCommand(fetch.NewCmd(rt))
	cmd.AddCommand(keys.NewCmd(rt))
	cmd.AddCommand(key.NewCmd(rt))
	cmd.AddCommand(migrate.NewCmd(rt))
	cmd.AddCommand(version.NewCmd(rt))

	// Set default output
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	return cmd
}

func Execute() {
	cmd := NewCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
