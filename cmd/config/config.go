package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/seahorsehq/seahorse/internal/api/auth"
	"github.com/seahorsehq/seahorse/internal/api/http"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/internal/keyops"
	"github.com/seahorsehq/seahorse/internal/keyring"
	"github.com/seahorsehq/seahorse/internal/keyserver"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/internal/refresh"
	"github.com/seahorsehq/seahorse/internal/registry"
	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/internal/store/postgres"
	"github.com/seahorsehq/seahorse/internal/store/sqlite"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	GPG         edit.Config      `flag:"gpg"`
	Keyserver   keyserver.Config `flag:"keyserver"`
	Store       Store            `flag:"store"`
	API         API              `flag:"api"`
	Registry    registry.Config  `flag:"registry"`
	Refresh     refresh.Config   `flag:"refresh"`
	Keyring     keyring.Config   `flag:"keyring"`
	MetricsAddr string           `flag:"metrics-addr" desc:"prometheus metrics server address" default:":9090"`
	Log         Log              `flag:"log"`
}

type Log struct {
	Level  string `flag:"level" desc:"can be one of: debug, info, warn, error, off" default:"info"`
	Format string `flag:"format" desc:"can be one of: text, json" default:"text"`
}

type API struct {
	Http http.Config `flag:"-"`
	Auth auth.Config `flag:"auth"`
}

type StoreKind string

const (
	None     StoreKind = "none"
	Sqlite   StoreKind = "sqlite"
	Postgres StoreKind = "postgres"
)

type Store struct {
	Kind     StoreKind       `flag:"kind" desc:"listing cache backend, can be one of: sqlite, postgres, none" default:"sqlite"`
	Conns    int             `flag:"conns" desc:"postgres connection pool size" default:"4"`
	Sqlite   sqlite.Config   `flag:"sqlite"`
	Postgres postgres.Config `flag:"postgres"`
}

// Bind registers a flag for every config field on flags and binds it
// to the matching viper key, e.g. --keyserver-plugin-dir and
// keyserver.plugindir.
func (c *Config) Bind(flags *pflag.FlagSet, vip *viper.Viper) error {
	return bind(flags, vip, c, "", "")
}

// Parse decodes the viper state into c.
func (c *Config) Parse(vip *viper.Viper) error {
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	return vip.Unmarshal(c, viper.DecodeHook(hooks))
}

// Services are the process wide dependencies shared by every command.
type Services struct {
	Metrics   *metrics.Metrics
	Launcher  proc.Launcher
	Keys      *keyops.Service
	Keyserver *keyserver.Client
}

func (c *Config) Services(reg prometheus.Registerer) *Services {
	m := metrics.New(reg)
	launcher := proc.NewExecLauncher(m)

	return &Services{
		Metrics:   m,
		Launcher:  launcher,
		Keys:      keyops.New(&c.GPG, launcher, m),
		Keyserver: keyserver.New(&c.Keyserver, launcher, m),
	}
}

// NewStore returns the configured listing cache, nil when disabled.
func (c *Config) NewStore() (store.Store, error) {
	switch c.Store.Kind {
	case None, "":
		return nil, nil
	case Sqlite:
		return sqlite.New(&c.Store.Sqlite)
	case Postgres:
		return postgres.New(&c.Store.Postgres, c.Store.Conns)
	default:
		return nil, fmt.Errorf("unsupported store '%s'", c.Store.Kind)
	}
}

// Helper functions

func bind(flags *pflag.FlagSet, vip *viper.Viper, cfg any, fPrefix string, kPrefix string) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		flag := field.Tag.Get("flag")
		desc := field.Tag.Get("desc")
		value := field.Tag.Get("default")

		// embedded structs are squashed into their parent
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bind(flags, vip, v.Field(i).Addr().Interface(), fPrefix, kPrefix); err != nil {
				return err
			}
			continue
		}

		var n string
		if fPrefix == "" {
			n = flag
		} else if flag == "-" {
			n = fPrefix
		} else {
			n = fmt.Sprintf("%s-%s", fPrefix, flag)
		}

		var k string
		if kPrefix == "" {
			k = field.Name
		} else {
			k = fmt.Sprintf("%s.%s", kPrefix, field.Name)
		}

		switch field.Type.Kind() {
		case reflect.String:
			flags.String(n, value, desc)
		case reflect.Bool:
			flags.Bool(n, value == "true", desc)
		case reflect.Int:
			v, _ := strconv.Atoi(value)
			flags.Int(n, v, desc)
		case reflect.Int64:
			if field.Type == reflect.TypeOf(time.Duration(0)) {
				v, _ := time.ParseDuration(value)
				flags.Duration(n, v, desc)
			} else {
				v, _ := strconv.ParseInt(value, 10, 64)
				flags.Int64(n, v, desc)
			}
		case reflect.Slice:
			if field.Type.Elem().Kind() != reflect.String {
				panic(fmt.Sprintf("unsupported slice type: %s", field.Type))
			}
			var v []string
			if value != "" {
				v = strings.Split(value, ",")
			}
			flags.StringSlice(n, v, desc)
		case reflect.Map:
			if field.Type != reflect.TypeOf(map[string]string{}) {
				panic(fmt.Sprintf("unsupported map type: %s", field.Type))
			}
			v, err := parseMap(value)
			if err != nil {
				return fmt.Errorf("invalid default for %s: %w", n, err)
			}
			flags.StringToString(n, v, desc)
		case reflect.Struct:
			if err := bind(flags, vip, v.Field(i).Addr().Interface(), n, k); err != nil {
				return err
			}
			continue
		default:
			panic(fmt.Sprintf("unsupported type %s", field.Type.Kind()))
		}

		_ = vip.BindPFlag(k, flags.Lookup(n))
	}

	return nil
}

// parseMap reads k=v pairs separated by commas.
func parseMap(s string) (map[string]string, error) {
	m := map[string]string{}
	if s == "" {
		return m, nil
	}

	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		m[k] = v
	}
	return m, nil
}
