package dev

import (
	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/serve"
	"github.com/spf13/cobra"
)

func NewCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "dev",
		Short: "Start the seahorse daemon in development mode",
		Long:  "Start the seahorse daemon with development friendly defaults (in-memory sqlite listing cache, no keyring refresh).\n\nThis command is an alias for: seahorse serve --store-kind sqlite --store-sqlite-path :memory: --refresh-cron \"\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			Override(rt.Config)
			return serve.Serve(rt)
		},
	}
}

// Override applies the development settings to cfg.
func Override(cfg *config.Config) {
	cfg.Store.Kind = config.Sqlite
	cfg.Store.Sqlite.Path = ":memory:"
	cfg.Store.Sqlite.Reset = false
	cfg.Refresh.Cron = ""
}
