package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/keyops"
	"github.com/seahorsehq/seahorse/internal/keyserver"
	iutil "github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/spf13/cobra"
)

var fetchExample = `
# Print the armored key
seahorse fetch 0x0123456789ABCDEF

# Fetch two keys and import them into the keyring
seahorse fetch 0123456789ABCDEF 89ABCDEF01234567 --import`

func NewCmd(rt *config.Runtime) *cobra.Command {
	var (
		uri     string
		imports bool
	)

	cmd := &cobra.Command{
		Use:     "fetch <fingerprint>...",
		Short:   "Retrieve keys from a keyserver",
		Example: fetchExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fingerprints := make([]string, len(args))
			for i, arg := range args {
				fpr := iutil.NormalizeFingerprint(arg)
				if !iutil.IsFingerprint(fpr) {
					return fmt.Errorf("invalid key id or fingerprint: %s", arg)
				}
				fingerprints[i] = fpr
			}

			services := rt.Services()
			ctx := util.Context(cmd)

			op := services.Keyserver.Get(ctx, uri, fingerprints...)
			if imports {
				op = operation.Chain("keyserver.fetch", op, func(get operation.Operation) operation.Operation {
					return services.Keys.Import(ctx, keyserver.Armor(get)...)
				})
			}

			if err := util.Wait(cmd, op); err != nil {
				return err
			}

			if imports {
				result, _ := op.Result().(*keyops.ImportResult)
				if result == nil {
					result = &keyops.ImportResult{}
				}

				return util.Print(cmd, rt.Format, result, func(w io.Writer) {
					util.Row(w, "Considered:", result.Considered)
					util.Row(w, "Imported:", result.Imported)
					util.Row(w, "Unchanged:", result.Unchanged)
					for _, fpr := range result.Fingerprints {
						util.Row(w, "Fingerprint:", fpr)
					}
				})
			}

			armor := keyserver.Armor(op)
			return util.Print(cmd, rt.Format, map[string][]string{"armor": armor}, func(w io.Writer) {
				for _, a := range armor {
					_, _ = fmt.Fprintln(w, strings.TrimRight(a, "\n"))
				}
			})
		},
	}

	cmd.Flags().StringVar(&uri, "keyserver", "", "keyserver uri (default the configured keyserver)")
	cmd.Flags().BoolVar(&imports, "import", false, "import the retrieved keys into the keyring")

	return cmd
}
