package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteStore(t *testing.T) {
	ctx := context.Background()

	s, err := New(&Config{Path: filepath.Join(t.TempDir(), "seahorse.db"), TxTimeout: time.Second, Reset: true})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	alice := &key.Record{
		Fingerprint: "AAAABBBB",
		UserID:      "Alice <a@example.com>",
		Created:     time.Unix(1700000000, 0).UTC(),
		Algo:        key.AlgoRSA,
		Length:      2048,
	}
	alicia := &key.Record{
		Fingerprint: "CCCCDDDD",
		UserID:      "Alicia <alicia@example.com>",
		Flags:       key.FlagRevoked,
		Created:     time.Unix(1600000000, 0).UTC(),
		Expires:     time.Unix(1650000000, 0).UTC(),
		Algo:        key.AlgoDSA,
		Length:      1024,
	}

	require.NoError(t, s.Put(ctx, "hkp://keys.example.org", "ali", []*key.Record{alice, alicia}))

	entries, err := s.Search(ctx, "a@example.com", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAAABBBB", entries[0].Fingerprint)
	assert.Equal(t, *alice, entries[0].Record)
	assert.Equal(t, *alicia, entries[1].Record)
	assert.Equal(t, "hkp://keys.example.org", entries[0].URI)
	assert.Equal(t, "ali", entries[0].Pattern)

	entries, err = s.Search(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// a second put replaces the cached record
	alice.UserID = "Alice Example <a@example.com>"
	require.NoError(t, s.Put(ctx, "hkp://keys.example.org", "alice", []*key.Record{alice}))

	e, ok, err := s.Get(ctx, "AAAABBBB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice Example <a@example.com>", e.UserID)
	assert.Equal(t, "alice", e.Pattern)

	_, ok, err = s.Get(ctx, "EEEEFFFF")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Stop())
}
