package dev

import (
	"testing"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/stretchr/testify/assert"
)

func TestOverride(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Kind = config.Postgres
	cfg.Store.Sqlite.Path = "seahorse.db"
	cfg.Refresh.Cron = "0 3 * * *"

	Override(cfg)

	assert.Equal(t, config.Sqlite, cfg.Store.Kind)
	assert.Equal(t, ":memory:", cfg.Store.Sqlite.Path)
	assert.Empty(t, cfg.Refresh.Cron)
}
