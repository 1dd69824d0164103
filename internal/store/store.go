package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/seahorsehq/seahorse/internal/store/migrations"
	"github.com/seahorsehq/seahorse/pkg/key"
)

// Store caches keyserver search results so repeated lookups do not
// reach the network.
type Store interface {
	Start() error
	Stop() error
	Put(ctx context.Context, uri string, pattern string, records []*key.Record) error
	Search(ctx context.Context, q string, limit int) ([]*Entry, error)
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)
}

// Migrator is implemented by stores backed by a versioned schema.
type Migrator interface {
	Dialect() migrations.Dialect
	Version() (uint, bool, error)
}

// Entry is a cached record and where it came from.
type Entry struct {
	key.Record
	URI       string    `json:"uri"`
	Pattern   string    `json:"pattern"`
	UpdatedOn time.Time `json:"updatedOn"`
}

func (e *Entry) String() string {
	return fmt.Sprintf("Entry(fingerprint=%s, uri=%s)", e.Fingerprint, e.URI)
}

// Candidates is how many rows a backend reads per requested result
// before ranking.
const Candidates = 10

// Rank orders entries by how closely they match q and returns at most
// limit of them. A fingerprint suffix match ranks first, then the
// levenshtein distance between q and the user id or its email.
func Rank(q string, entries []*Entry, limit int) []*Entry {
	q = strings.ToLower(strings.TrimSpace(q))

	type ranked struct {
		entry *Entry
		score int
	}

	rs := make([]ranked, len(entries))
	for i, e := range entries {
		rs[i] = ranked{entry: e, score: score(q, e)}
	}

	slices.SortStableFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(a.score, b.score); c != 0 {
			return c
		}
		return b.entry.UpdatedOn.Compare(a.entry.UpdatedOn)
	})

	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}

	out := make([]*Entry, len(rs))
	for i, r := range rs {
		out[i] = r.entry
	}
	return out
}

func score(q string, e *Entry) int {
	if q != "" && strings.HasSuffix(strings.ToLower(e.Fingerprint), q) {
		return -1
	}

	uid := strings.ToLower(e.UserID)
	best := levenshtein.ComputeDistance(q, uid)

	_, email, _ := key.ParseUserID(uid)
	if email != "" {
		best = min(best, levenshtein.ComputeDistance(q, email))
	}
	if name, _, _ := key.ParseUserID(uid); name != "" {
		best = min(best, levenshtein.ComputeDistance(q, name))
	}

	return best
}

// Like escapes q for a LIKE pattern matching it anywhere.
func Like(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
