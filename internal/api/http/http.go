package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/seahorsehq/seahorse/internal/api/auth"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/registry"
	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Config struct {
	Addr    string        `flag:"addr" desc:"http server address" default:":8001"`
	Cors    Cors          `flag:"cors" desc:"http cors settings"`
	Timeout time.Duration `flag:"timeout" desc:"http server graceful shutdown timeout" default:"10s"`
}

type Cors struct {
	AllowOrigins []string `flag:"allow-origin" desc:"allowed origins, if not provided cors is not enabled"`
}

// Keys is the keyring side of the api.
type Keys interface {
	ListKeys(ctx context.Context, secret bool) ([]key.Key, error)
	Import(ctx context.Context, armored ...string) operation.Operation
	SetTrust(ctx context.Context, id string, trust key.OwnerTrust) operation.Operation
	Sign(ctx context.Context, id string, uid int, check edit.Check, options edit.SignOption, signer string) operation.Operation
	SetExpires(ctx context.Context, id string, subkey int, expires time.Time) operation.Operation
}

// Keyserver is the network side of the api.
type Keyserver interface {
	Search(ctx context.Context, uri string, pattern string) operation.Operation
	Get(ctx context.Context, uri string, fingerprints ...string) operation.Operation
	Resolve(uri string) string
}

type Deps struct {
	Keys      Keys
	Keyserver Keyserver
	Registry  *registry.Registry
	Auth      auth.Authenticator
	Metrics   *metrics.Metrics

	// Store is optional, without it the cache routes answer 503 and
	// search results are not written through.
	Store store.Store
}

type Http struct {
	config *Config
	server *http.Server
}

func New(config *Config, deps *Deps) *Http {
	gin.SetMode(gin.ReleaseMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		util.Assert(v.RegisterValidation("fingerprint", Fingerprint) == nil, "fingerprint validation must register")
		util.Assert(v.RegisterValidation("oneofci", OneOfCaseInsensitive) == nil, "oneofci validation must register")
	}

	r := gin.New()
	r.Use(gin.Recovery(), instrument(deps.Metrics))

	if len(config.Cors.AllowOrigins) > 0 {
		cfg := cors.DefaultConfig()
		if len(config.Cors.AllowOrigins) == 1 && config.Cors.AllowOrigins[0] == "*" {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = config.Cors.AllowOrigins
		}
		cfg.AddAllowHeaders("Authorization")
		r.Use(cors.New(cfg))
	}

	s := &server{deps: deps}

	r.GET("/healthz", s.healthz)

	api := r.Group("/", auth.GinMiddleware(deps.Auth))
	read := api.Group("/", auth.RequireScope(auth.ScopeRead))
	write := api.Group("/", auth.RequireScope(auth.ScopeWrite))

	// Keys API
	read.GET("/keys", s.listKeys)
	write.POST("/keys/:fpr/trust", s.setTrust)
	write.POST("/keys/:fpr/sign", s.signKey)
	write.POST("/keys/:fpr/expire", s.setExpires)

	// Keyserver API
	read.GET("/keyserver/search", s.search)
	write.POST("/keyserver/fetch", s.fetch)
	read.GET("/cache", s.searchCache)

	// Operations API
	read.GET("/operations", s.listOperations)
	read.GET("/operations/:id", s.readOperation)
	write.POST("/operations/:id/cancel", s.cancelOperation)

	return &Http{
		config: config,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: r,
		},
	}
}

func (h *Http) Handler() http.Handler {
	return h.server.Handler
}

func (h *Http) Start(errors chan<- error) {
	slog.Info("starting http server", "addr", h.config.Addr)
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errors <- err
	}
}

func (h *Http) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	return h.server.Shutdown(ctx)
}

func (h *Http) String() string {
	return "http"
}

func instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		done := m.Request(route, "http")
		c.Next()
		done(c.Writer.Status())
	}
}

type server struct {
	deps *Deps
}

func (s *server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// register tracks op and answers 202 with its view.
func (s *server) register(c *gin.Context, op operation.Operation, description string) {
	id := s.deps.Registry.Add(op, description)

	view, ok := s.deps.Registry.Get(id)
	util.Assert(ok, "registered operation must be found")

	c.JSON(http.StatusAccepted, view)
}
