package key

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/spf13/cobra"
)

func NewCmd(rt *config.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Edit a key in the keyring",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Add subcommands
	cmd.AddCommand(SignCmd(rt))
	cmd.AddCommand(TrustCmd(rt))
	cmd.AddCommand(DisableCmds(rt)...)
	cmd.AddCommand(PasswdCmd(rt))
	cmd.AddCommand(ExpireCmd(rt))
	cmd.AddCommand(AddRevokerCmd(rt))
	cmd.AddCommand(AddUIDCmd(rt))
	cmd.AddCommand(DeleteUIDCmd(rt))
	cmd.AddCommand(PrimaryUIDCmd(rt))
	cmd.AddCommand(AddSubkeyCmd(rt))
	cmd.AddCommand(DeleteSubkeyCmd(rt))
	cmd.AddCommand(RevokeSubkeyCmd(rt))
	cmd.AddCommand(PhotoCmd(rt))

	return cmd
}

type result struct {
	ID    string          `json:"id"`
	Kind  string          `json:"kind"`
	State operation.State `json:"state"`
}

// run waits for an edit and reports how it ended.
func run(cmd *cobra.Command, rt *config.Runtime, keyid string, op operation.Operation) error {
	if err := util.Wait(cmd, op); err != nil {
		return err
	}

	r := &result{ID: keyid, Kind: op.Kind(), State: op.State()}
	return util.Print(cmd, rt.Format, r, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "%s %s: ok\n", r.Kind, r.ID)
	})
}

// index parses a 1-based uid or subkey index.
func index(name string, s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, s)
	}
	return i, nil
}

// expiry parses a YYYY-MM-DD date, empty meaning never.
func expiry(s string) (time.Time, error) {
	if s == "" || s == "never" {
		return time.Time{}, nil
	}

	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry must be a date like 2030-01-31 or never, got %q", s)
	}
	return t, nil
}
