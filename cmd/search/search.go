package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/keyserver"
	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/spf13/cobra"
)

var searchExample = `
# Search the configured keyserver
seahorse search alice@example.com

# Search a specific keyserver
seahorse search alice --keyserver hkps://keys.openpgp.org

# Search previously cached results without touching the network
seahorse search alice --cache --limit 5`

func NewCmd(rt *config.Runtime) *cobra.Command {
	var (
		uri   string
		cache bool
		limit int
	)

	cmd := &cobra.Command{
		Use:     "search <pattern>",
		Short:   "Search a keyserver for keys",
		Example: searchExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]

			if cache {
				s, err := open(rt)
				if err != nil {
					return err
				}
				if s == nil {
					return fmt.Errorf("listing cache is disabled, set --store-kind")
				}
				defer stop(s)

				entries, err := s.Search(util.Context(cmd), pattern, limit)
				if err != nil {
					return err
				}

				return util.Print(cmd, rt.Format, entries, func(w io.Writer) {
					util.Row(w, "FINGERPRINT", "USER ID", "ALGO", "CREATED", "FLAGS", "KEYSERVER")
					for _, e := range entries {
						util.Row(w, e.Fingerprint, e.UserID, algo(&e.Record), date(&e.Record), Flags(&e.Record), e.URI)
					}
				})
			}

			client := rt.Services().Keyserver
			uri = client.Resolve(uri)

			op := client.Search(util.Context(cmd), uri, pattern)
			if err := util.Wait(cmd, op); err != nil {
				return err
			}

			records := keyserver.Records(op)
			writeThrough(util.Context(cmd), rt, uri, pattern, records)

			return util.Print(cmd, rt.Format, records, func(w io.Writer) {
				util.Row(w, "FINGERPRINT", "USER ID", "ALGO", "CREATED", "FLAGS")
				for _, r := range records {
					util.Row(w, r.Fingerprint, r.UserID, algo(r), date(r), Flags(r))
				}
			})
		},
	}

	cmd.Flags().StringVar(&uri, "keyserver", "", "keyserver uri (default the configured keyserver)")
	cmd.Flags().BoolVar(&cache, "cache", false, "search the listing cache instead of the keyserver")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of cached results")

	return cmd
}

// writeThrough records the results in the listing cache. Failures are
// logged, the search itself already succeeded.
func writeThrough(ctx context.Context, rt *config.Runtime, uri string, pattern string, records []*key.Record) {
	if len(records) == 0 {
		return
	}

	s, err := open(rt)
	if err != nil || s == nil {
		if err != nil {
			slog.Warn("failed to open listing cache", "error", err)
		}
		return
	}
	defer stop(s)

	if err := s.Put(ctx, uri, pattern, records); err != nil {
		slog.Warn("failed to cache search results", "uri", uri, "error", err)
	}
}

func open(rt *config.Runtime) (store.Store, error) {
	s, err := rt.Config.NewStore()
	if err != nil || s == nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

func stop(s store.Store) {
	if err := s.Stop(); err != nil {
		slog.Warn("error stopping store", "error", err)
	}
}

// Flags renders the record flags, e.g. "revoked,expired".
func Flags(r *key.Record) string {
	var flags []string
	if r.Revoked() {
		flags = append(flags, "revoked")
	}
	if r.Disabled() {
		flags = append(flags, "disabled")
	}
	if r.Expired() {
		flags = append(flags, "expired")
	}
	return strings.Join(flags, ",")
}

func algo(r *key.Record) string {
	if r.Length > 0 {
		return fmt.Sprintf("%s/%d", r.Algo, r.Length)
	}
	return r.Algo.String()
}

func date(r *key.Record) string {
	if r.Created.IsZero() {
		return ""
	}
	return r.Created.Format("2006-01-02")
}
