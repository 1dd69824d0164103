package serve

import (
	"log/slog"
	netHttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/internal/api/auth"
	api "github.com/seahorsehq/seahorse/internal/api/http"
	"github.com/seahorsehq/seahorse/internal/keyring"
	"github.com/seahorsehq/seahorse/internal/refresh"
	"github.com/seahorsehq/seahorse/internal/registry"
	"github.com/spf13/cobra"
)

var serveExample = `
# Serve the api on the default address
seahorse serve

# Serve with basic auth and a nightly refresh of two keys
seahorse serve --api-auth-basic alice=secret --refresh-cron "0 3 * * *" --refresh-keys 0123ABCD,89ABCDEF`

func NewCmd(rt *config.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Start the seahorse daemon",
		Example: serveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(rt)
		},
	}
}

type subsystem interface {
	String() string
	Start() error
	Stop() error
}

func Serve(rt *config.Runtime) error {
	cfg := rt.Config
	services := rt.Services()

	// listing cache
	store, err := cfg.NewStore()
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Start(); err != nil {
			slog.Error("failed to start store", "store", store, "error", err)
			return err
		}
		defer func() {
			if err := store.Stop(); err != nil {
				slog.Warn("error stopping store", "error", err)
			}
		}()
	}

	authenticator, err := auth.New(&cfg.API.Auth)
	if err != nil {
		return err
	}

	reg := registry.New(&cfg.Registry)

	subsystems := []subsystem{
		reg,
		keyring.New(&cfg.Keyring, keyring.Homedir(cfg.GPG.Homedir), services.Keys),
		refresh.New(&cfg.Refresh, services.Keyserver, services.Keys, reg),
	}

	http := api.New(&cfg.API.Http, &api.Deps{
		Keys:      services.Keys,
		Keyserver: services.Keyserver,
		Registry:  reg,
		Auth:      authenticator,
		Metrics:   services.Metrics,
		Store:     store,
	})

	for _, s := range subsystems {
		if err := s.Start(); err != nil {
			slog.Error("failed to start subsystem", "subsystem", s, "error", err)
			return err
		}
	}

	errors := make(chan error, 1)
	go http.Start(errors)

	// metrics server
	mux := netHttp.NewServeMux()
	mux.Handle("/metrics", auth.Protect(authenticator, promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})))
	metricsServer := &netHttp.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		for {
			slog.Info("starting metrics server", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err == netHttp.ErrServerClosed {
				return
			}

			slog.Error("restarting metrics server...", "error", err)
			time.Sleep(5 * time.Second)
		}
	}()

	// halt until we get a shutdown signal or an error
	// occurs, whichever happens first
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var cause error
	select {
	case s := <-sig:
		slog.Info("shutdown signal received, shutting down", "signal", s)
	case cause = <-errors:
		slog.Error("api error received, shutting down", "error", cause)
	}

	if err := http.Stop(); err != nil {
		slog.Warn("error stopping api", "error", err)
	}

	// stop in reverse order, refresh cancels its in flight run
	for i := len(subsystems) - 1; i >= 0; i-- {
		if err := subsystems[i].Stop(); err != nil {
			slog.Warn("error stopping subsystem", "subsystem", subsystems[i], "error", err)
		}
	}

	if err := metricsServer.Close(); err != nil {
		slog.Warn("error stopping metrics server", "error", err)
	}

	return cause
}
