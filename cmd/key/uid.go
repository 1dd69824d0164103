package key

import (
	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/spf13/cobra"
)

var addUIDExample = `
# Add a user id
seahorse key add-uid 0123456789ABCDEF --name "Alice Example" --email alice@example.com`

func AddUIDCmd(rt *config.Runtime) *cobra.Command {
	var (
		name    string
		email   string
		comment string
	)

	cmd := &cobra.Command{
		Use:     "add-uid <keyid>",
		Short:   "Add a user id",
		Example: addUIDExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := rt.Services().Keys.AddUID(util.Context(cmd), args[0], name, email, comment)
			return run(cmd, rt, args[0], op)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "real name, at least five characters")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&comment, "comment", "", "comment")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func DeleteUIDCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "del-uid <keyid> <uid>",
		Short: "Delete a user id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := index("uid", args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.DeleteUID(util.Context(cmd), args[0], uid)
			return run(cmd, rt, args[0], op)
		},
	}
}

func PrimaryUIDCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "primary <keyid> <uid>",
		Short: "Make a user id the primary one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := index("uid", args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.PrimaryUID(util.Context(cmd), args[0], uid)
			return run(cmd, rt, args[0], op)
		},
	}
}
