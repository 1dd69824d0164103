package migrate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/internal/store/migrations"
	"github.com/spf13/cobra"
)

func NewCmd(rt *config.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Listing cache migration commands",
		Long:  "Manage the schema of the keyserver listing cache",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Add subcommands
	cmd.AddCommand(newStatusCmd(rt))
	cmd.AddCommand(newUpCmd(rt))

	return cmd
}

type Status struct {
	Store   string `json:"store"`
	Current uint   `json:"current"`
	Latest  uint   `json:"latest"`
	Dirty   bool   `json:"dirty"`
	Pending uint   `json:"pending"`
}

func newStatusCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(rt)
			if err != nil {
				return err
			}
			defer closeStore(s)

			status, err := readStatus(s)
			if err != nil {
				return err
			}

			return printStatus(cmd, rt, status)
		},
	}
}

func newUpCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(rt)
			if err != nil {
				return err
			}
			defer closeStore(s)

			// starting a store migrates it
			if err := s.Start(); err != nil {
				return err
			}

			status, err := readStatus(s)
			if err != nil {
				return err
			}

			return printStatus(cmd, rt, status)
		},
	}
}

func open(rt *config.Runtime) (store.Store, error) {
	s, err := rt.Config.NewStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("listing cache is disabled, set --store-kind")
	}
	return s, nil
}

func closeStore(s store.Store) {
	if err := s.Stop(); err != nil {
		slog.Warn("error stopping store", "error", err)
	}
}

func readStatus(s store.Store) (*Status, error) {
	m, ok := s.(store.Migrator)
	if !ok {
		return nil, fmt.Errorf("store %s has no schema", s)
	}

	current, dirty, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	latest, err := migrations.Latest(m.Dialect())
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	var pending uint
	if latest > current {
		pending = latest - current
	}

	return &Status{
		Store:   fmt.Sprint(s),
		Current: current,
		Latest:  latest,
		Dirty:   dirty,
		Pending: pending,
	}, nil
}

func printStatus(cmd *cobra.Command, rt *config.Runtime, s *Status) error {
	return util.Print(cmd, rt.Format, s, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Store:\t%s\n", s.Store)
		_, _ = fmt.Fprintf(w, "Current migration version:\t%d\n", s.Current)
		_, _ = fmt.Fprintf(w, "Latest migration version:\t%d\n", s.Latest)
		_, _ = fmt.Fprintf(w, "Pending migrations:\t%d\n", s.Pending)
		_, _ = fmt.Fprintln(w)

		switch {
		case s.Dirty:
			_, _ = fmt.Fprintln(w, "Status: DIRTY")
		case s.Pending > 0:
			_, _ = fmt.Fprintln(w, "Status: MIGRATIONS PENDING")
		default:
			_, _ = fmt.Fprintln(w, "Status: UP TO DATE")
		}
	})
}
