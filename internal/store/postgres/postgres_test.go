package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	host := os.Getenv("TEST_STORE_POSTGRES_HOST")
	port := os.Getenv("TEST_STORE_POSTGRES_PORT")
	username := os.Getenv("TEST_STORE_POSTGRES_USERNAME")
	password := os.Getenv("TEST_STORE_POSTGRES_PASSWORD")
	database := os.Getenv("TEST_STORE_POSTGRES_DATABASE")

	if host == "" {
		t.Skip("Postgres is not configured, skipping")
	}

	s, err := New(&Config{
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		Database:  database,
		Query:     map[string]string{"sslmode": "disable"},
		TxTimeout: time.Second,
		Reset:     true,
	}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer func() { require.NoError(t, s.Stop()) }()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "hkp://keys.example.org", "alice", []*key.Record{{
		Fingerprint: "AAAABBBB",
		UserID:      "Alice <a@example.com>",
		Created:     time.Unix(1700000000, 0).UTC(),
		Algo:        key.AlgoRSA,
		Length:      2048,
	}}))

	entries, err := s.Search(ctx, "ALICE", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAAABBBB", entries[0].Fingerprint)

	e, ok, err := s.Get(ctx, "AAAABBBB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2048, e.Length)
}
