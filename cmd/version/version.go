package version

import (
	"fmt"
	"io"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/version"
	"github.com/spf13/cobra"
)

func NewCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the seahorse version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := map[string]string{
				"version": version.Short(),
				"commit":  version.Commit(),
			}

			return util.Print(cmd, rt.Format, v, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "seahorse", version.Full())
			})
		},
	}
}
