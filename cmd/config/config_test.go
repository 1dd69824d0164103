package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, args ...string) (*Config, *viper.Viper) {
	t.Helper()

	cfg := &Config{}
	vip := viper.New()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, cfg.Bind(flags, vip))
	require.NoError(t, flags.Parse(args))

	return cfg, vip
}

func TestDefaults(t *testing.T) {
	cfg, vip := setup(t)
	require.NoError(t, cfg.Parse(vip))

	assert.Equal(t, "gpg", cfg.GPG.Binary)
	assert.Equal(t, "", cfg.GPG.Homedir)
	assert.Equal(t, "/usr/lib/gnupg", cfg.Keyserver.PluginDir)
	assert.Equal(t, "hkp://keys.openpgp.org", cfg.Keyserver.URI)
	assert.Equal(t, 3*time.Minute, cfg.Keyserver.Timeout)
	assert.False(t, cfg.Keyserver.IncludeRevoked)
	assert.Equal(t, Sqlite, cfg.Store.Kind)
	assert.Equal(t, "seahorse.db", cfg.Store.Sqlite.Path)
	assert.Equal(t, map[string]string{"sslmode": "disable"}, cfg.Store.Postgres.Query)
	assert.Equal(t, ":8001", cfg.API.Http.Addr)
	assert.Equal(t, 10*time.Second, cfg.API.Http.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Registry.TTL)
	assert.True(t, cfg.Keyring.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Keyring.Debounce)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFlags(t *testing.T) {
	cfg, vip := setup(t,
		"--gpg-homedir=/tmp/gnupg",
		"--keyserver-include-revoked",
		"--keyserver-timeout=30s",
		"--api-addr=127.0.0.1:9000",
		"--api-cors-allow-origin=https://a.example.org,https://b.example.org",
		"--api-auth-basic=alice=secret",
		"--refresh-keys=AAAABBBB,CCCCDDDD",
		"--store-kind=postgres",
		"--log-level=debug",
	)
	require.NoError(t, cfg.Parse(vip))

	assert.Equal(t, "/tmp/gnupg", cfg.GPG.Homedir)
	assert.True(t, cfg.Keyserver.IncludeRevoked)
	assert.Equal(t, 30*time.Second, cfg.Keyserver.Timeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Http.Addr)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.API.Http.Cors.AllowOrigins)
	assert.Equal(t, map[string]string{"alice": "secret"}, cfg.API.Auth.Basic)
	assert.Equal(t, []string{"AAAABBBB", "CCCCDDDD"}, cfg.Refresh.Keys)
	assert.Equal(t, Postgres, cfg.Store.Kind)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnv(t *testing.T) {
	t.Setenv("GPG_HOMEDIR", "/srv/gnupg")
	t.Setenv("KEYSERVER_URI", "hkps://keys.example.org")

	cfg, vip := setup(t)
	require.NoError(t, cfg.Parse(vip))

	assert.Equal(t, "/srv/gnupg", cfg.GPG.Homedir)
	assert.Equal(t, "hkps://keys.example.org", cfg.Keyserver.URI)
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "seahorse.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
gpg:
  binary: gpg2
keyserver:
  uri: ldap://keys.example.org
  includeSubkeys: true
refresh:
  cron: "0 3 * * *"
  keys: [AAAABBBB]
store:
  kind: none
`), 0o600))

	cfg, vip := setup(t, "--gpg-binary=/usr/local/bin/gpg")
	vip.SetConfigFile(file)
	require.NoError(t, vip.ReadInConfig())
	require.NoError(t, cfg.Parse(vip))

	// flags win over the file
	assert.Equal(t, "/usr/local/bin/gpg", cfg.GPG.Binary)
	assert.Equal(t, "ldap://keys.example.org", cfg.Keyserver.URI)
	assert.True(t, cfg.Keyserver.IncludeSubkeys)
	assert.Equal(t, "0 3 * * *", cfg.Refresh.Cron)
	assert.Equal(t, []string{"AAAABBBB"}, cfg.Refresh.Keys)
	assert.Equal(t, None, cfg.Store.Kind)
}

func TestNewStore(t *testing.T) {
	for _, tc := range []struct {
		name string
		kind StoreKind
		nil  bool
		err  bool
	}{
		{name: "None", kind: None, nil: true},
		{name: "Sqlite", kind: Sqlite},
		{name: "Unknown", kind: "redis", err: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Store: Store{Kind: tc.kind}}
			cfg.Store.Sqlite.Path = filepath.Join(t.TempDir(), "seahorse.db")

			s, err := cfg.NewStore()
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.nil, s == nil)
		})
	}
}

func TestParseMap(t *testing.T) {
	m, err := parseMap("sslmode=disable,connect_timeout=5")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sslmode": "disable", "connect_timeout": "5"}, m)

	_, err = parseMap("sslmode")
	assert.Error(t, err)
}
