package keys

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/keyops"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/spf13/cobra"
)

func NewCmd(rt *config.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List and import keyring keys",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Add subcommands
	cmd.AddCommand(ListKeysCmd(rt))
	cmd.AddCommand(ImportKeysCmd(rt))

	return cmd
}

func ListKeysCmd(rt *config.Runtime) *cobra.Command {
	var secret bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys in the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := rt.Services().Keys.ListKeys(util.Context(cmd), secret)
			if err != nil {
				return err
			}

			return util.Print(cmd, rt.Format, keys, func(w io.Writer) {
				util.Row(w, "FINGERPRINT", "TRUST", "VALIDITY", "NAME", "FLAGS")
				for i := range keys {
					k := &keys[i]
					util.Row(w, k.Fingerprint, trust(k), k.Validity, k.Name(), Flags(k))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&secret, "secret", false, "list secret keys")

	return cmd
}

var importExample = `
# Import armored keys from files
seahorse keys import alice.asc bob.asc

# Import from stdin
curl -s https://example.com/key.asc | seahorse keys import -`

func ImportKeysCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "import <file>...",
		Short:   "Import armored keys into the keyring",
		Example: importExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			armored := make([]string, 0, len(args))
			for _, file := range args {
				var (
					data []byte
					err  error
				)
				if file == "-" {
					data, err = io.ReadAll(cmd.InOrStdin())
				} else {
					data, err = os.ReadFile(file)
				}
				if err != nil {
					return err
				}
				armored = append(armored, string(data))
			}

			op := rt.Services().Keys.Import(util.Context(cmd), armored...)
			if err := util.Wait(cmd, op); err != nil {
				return err
			}

			result, _ := op.Result().(*keyops.ImportResult)
			if result == nil {
				result = &keyops.ImportResult{}
			}

			return util.Print(cmd, rt.Format, result, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Imported %d of %d keys (%d unchanged)\n", result.Imported, result.Considered, result.Unchanged)
				for _, fpr := range result.Fingerprints {
					util.Row(w, "", fpr)
				}
			})
		},
	}
}

// Flags renders the key flags, e.g. "secret,expired".
func Flags(k *key.Key) string {
	var flags []string
	if k.Secret {
		flags = append(flags, "secret")
	}
	if k.Revoked {
		flags = append(flags, "revoked")
	}
	if k.Disabled {
		flags = append(flags, "disabled")
	}
	if k.Expired {
		flags = append(flags, "expired")
	}
	return strings.Join(flags, ",")
}

func trust(k *key.Key) string {
	if !k.Trust.Valid() {
		return "-"
	}
	return k.Trust.String()
}
