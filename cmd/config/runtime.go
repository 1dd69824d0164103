package config

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seahorsehq/seahorse/cmd/util"
)

// Runtime is what every command receives: the decoded config, the
// output format and the lazily built services.
type Runtime struct {
	Config   *Config
	Format   util.Format
	Registry *prometheus.Registry

	once     sync.Once
	services *Services
}

func NewRuntime() *Runtime {
	return &Runtime{
		Config:   &Config{},
		Format:   util.Text,
		Registry: prometheus.NewRegistry(),
	}
}

func (r *Runtime) Services() *Services {
	r.once.Do(func() {
		if r.services == nil {
			r.services = r.Config.Services(r.Registry)
		}
	})
	return r.services
}

// SetServices replaces the services, used to run commands against
// fakes.
func (r *Runtime) SetServices(s *Services) {
	r.services = s
}
