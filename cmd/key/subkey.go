package key

import (
	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/spf13/cobra"
)

var expireExample = `
# Expire the primary key at the end of 2030
seahorse key expire 0123456789ABCDEF --date 2030-12-31

# Make the second subkey never expire
seahorse key expire 0123456789ABCDEF --subkey 2 --date never`

func ExpireCmd(rt *config.Runtime) *cobra.Command {
	var (
		subkey int
		date   string
	)

	cmd := &cobra.Command{
		Use:     "expire <keyid>",
		Short:   "Change the expiry of a key or subkey",
		Example: expireExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expires, err := expiry(date)
			if err != nil {
				return err
			}

			op := rt.Services().Keys.SetExpires(util.Context(cmd), args[0], subkey, expires)
			return run(cmd, rt, args[0], op)
		},
	}

	cmd.Flags().IntVar(&subkey, "subkey", 0, "subkey index, 0 is the primary key")
	cmd.Flags().StringVar(&date, "date", "", "expiry date (YYYY-MM-DD) or never")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func AddRevokerCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "add-revoker <keyid> <revoker>",
		Short: "Allow another key to revoke this one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := rt.Services().Keys.AddRevoker(util.Context(cmd), args[0], args[1])
			return run(cmd, rt, args[0], op)
		},
	}
}

var addSubkeyExample = `
# Add an rsa encryption subkey
seahorse key add-subkey 0123456789ABCDEF --type rsa-encrypt --length 3072 --expires 2030-12-31`

func AddSubkeyCmd(rt *config.Runtime) *cobra.Command {
	var (
		typ     string
		length  int
		expires string
	)

	cmd := &cobra.Command{
		Use:     "add-subkey <keyid>",
		Short:   "Add a subkey",
		Example: addSubkeyExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := edit.ParseSubkeyType(typ)
			if err != nil {
				return err
			}

			e, err := expiry(expires)
			if err != nil {
				return err
			}

			op := rt.Services().Keys.AddSubkey(util.Context(cmd), args[0], t, length, e)
			return run(cmd, rt, args[0], op)
		},
	}

	cmd.Flags().StringVar(&typ, "type", "rsa-encrypt", "subkey type, can be one of: dsa, elgamal, rsa-sign, rsa-encrypt")
	cmd.Flags().IntVar(&length, "length", 2048, "key length in bits")
	cmd.Flags().StringVar(&expires, "expires", "never", "expiry date (YYYY-MM-DD) or never")

	return cmd
}

func DeleteSubkeyCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "del-subkey <keyid> <subkey>",
		Short: "Delete a subkey",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subkey, err := index("subkey", args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.DeleteSubkey(util.Context(cmd), args[0], subkey)
			return run(cmd, rt, args[0], op)
		},
	}
}

func RevokeSubkeyCmd(rt *config.Runtime) *cobra.Command {
	var (
		reason      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "revoke-subkey <keyid> <subkey>",
		Short: "Revoke a subkey",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subkey, err := index("subkey", args[1])
			if err != nil {
				return err
			}

			r, err := edit.ParseRevokeReason(reason)
			if err != nil {
				return err
			}

			op := rt.Services().Keys.RevokeSubkey(util.Context(cmd), args[0], subkey, r, description)
			return run(cmd, rt, args[0], op)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "none", "can be one of: none, compromised, superseded, not-used")
	cmd.Flags().StringVar(&description, "description", "", "free text revocation description")

	return cmd
}
