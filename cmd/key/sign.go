package key

import (
	"fmt"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/spf13/cobra"
)

var signExample = `
# Sign the first user id, having checked it casually
seahorse key sign 0123456789ABCDEF --check casual

# Make a local, non revocable signature with a specific key
seahorse key sign 0123456789ABCDEF --local --non-revocable --signer 89ABCDEF`

func SignCmd(rt *config.Runtime) *cobra.Command {
	var (
		uid          int
		check        string
		local        bool
		nonRevocable bool
		expires      bool
		signer       string
	)

	cmd := &cobra.Command{
		Use:     "sign <keyid>",
		Short:   "Certify a key",
		Example: signExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := edit.ParseCheck(check)
			if err != nil {
				return err
			}

			var options edit.SignOption
			if local {
				options |= edit.SignLocal
			}
			if nonRevocable {
				options |= edit.SignNoRevoke
			}
			if expires {
				options |= edit.SignExpires
			}

			op := rt.Services().Keys.Sign(util.Context(cmd), args[0], uid, c, options, signer)
			return run(cmd, rt, args[0], op)
		},
	}

	cmd.Flags().IntVar(&uid, "uid", 0, "user id to sign, 0 signs all of them")
	cmd.Flags().StringVar(&check, "check", "", "how carefully the owner was verified, can be one of: none, casual, careful")
	cmd.Flags().BoolVar(&local, "local", false, "make a signature that is not exported")
	cmd.Flags().BoolVar(&nonRevocable, "non-revocable", false, "make a signature that cannot be revoked")
	cmd.Flags().BoolVar(&expires, "expires", false, "let the signature expire with the key")
	cmd.Flags().StringVar(&signer, "signer", "", "secret key to sign with (default the gpg default key)")

	return cmd
}

var trustExample = `
# Fully trust a key to certify others
seahorse key trust 0123456789ABCDEF full`

func TrustCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "trust <keyid> <level>",
		Short:   "Set the owner trust, can be one of: unknown, never, marginal, full, ultimate",
		Example: trustExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trust, err := key.ParseOwnerTrust(args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.SetTrust(util.Context(cmd), args[0], trust)
			return run(cmd, rt, args[0], op)
		},
	}
}

func DisableCmds(rt *config.Runtime) []*cobra.Command {
	cmds := make([]*cobra.Command, 2)

	for i, disabled := range []bool{true, false} {
		use := "enable"
		if disabled {
			use = "disable"
		}

		cmds[i] = &cobra.Command{
			Use:   fmt.Sprintf("%s <keyid>", use),
			Short: fmt.Sprintf("%s a key", use),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op := rt.Services().Keys.SetDisabled(util.Context(cmd), args[0], disabled)
				return run(cmd, rt, args[0], op)
			},
		}
	}

	return cmds
}

func PasswdCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <keyid>",
		Short: "Change the passphrase of a secret key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := rt.Services().Keys.ChangePassphrase(util.Context(cmd), args[0])
			return run(cmd, rt, args[0], op)
		},
	}
}
