package keyserver

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Config struct {
	PluginDir string        `flag:"plugin-dir" desc:"directory containing the gpgkeys_* helpers" default:"/usr/lib/gnupg"`
	URI       string        `flag:"uri" desc:"default keyserver uri" default:"hkp://keys.openpgp.org"`
	Timeout   time.Duration `flag:"timeout" desc:"helper timeout" default:"3m"`
	Options   `mapstructure:",squash"`
}

type Client struct {
	config   *Config
	launcher proc.Launcher
	metrics  *metrics.Metrics
}

func New(config *Config, launcher proc.Launcher, metrics *metrics.Metrics) *Client {
	return &Client{
		config:   config,
		launcher: launcher,
		metrics:  metrics,
	}
}

// Search queries the keyserver at uri, an empty uri uses the configured
// default. The result is a []*key.Record.
func (c *Client) Search(ctx context.Context, uri string, pattern string) operation.Operation {
	u, err := c.parse(uri)
	if err != nil {
		return c.complete("keyserver.search", err)
	}

	return c.start(ctx, &Request{URI: u, Command: Search, Pattern: pattern, Options: c.config.Options})
}

// Get retrieves the armored keys for fingerprints, one helper per key.
// A single key yields a string result, several keys are fetched as a
// multi operation whose children carry the individual results.
func (c *Client) Get(ctx context.Context, uri string, fingerprints ...string) operation.Operation {
	if len(fingerprints) == 0 {
		return c.complete("keyserver.get", operation.Errorf(operation.InvalidArgument, "no fingerprints"))
	}

	u, err := c.parse(uri)
	if err != nil {
		return c.complete("keyserver.get", err)
	}

	if len(fingerprints) == 1 {
		return c.start(ctx, &Request{URI: u, Command: Get, Pattern: fingerprints[0]})
	}

	m := operation.NewMulti("keyserver.get")
	c.metrics.Track(m)

	children := make([]operation.Operation, len(fingerprints))
	for i, fpr := range fingerprints {
		children[i] = c.start(ctx, &Request{URI: u, Command: Get, Pattern: fpr})
	}
	m.Take(children...)

	return m
}

// Records returns the records of a finished search.
func Records(op operation.Operation) []*key.Record {
	records, _ := op.Result().([]*key.Record)
	return records
}

// Armor returns the armored keys of a finished get, in fingerprint
// order for a multi get.
func Armor(op operation.Operation) []string {
	if m, ok := op.(*operation.Multi); ok {
		var armor []string
		for _, c := range m.Children() {
			armor = append(armor, Armor(c)...)
		}
		return armor
	}

	if s, ok := op.Result().(string); ok {
		return []string{s}
	}
	return nil
}

// Resolve returns uri, or the configured keyserver when uri is empty.
func (c *Client) Resolve(uri string) string {
	if uri == "" {
		return c.config.URI
	}
	return uri
}

func (c *Client) parse(uri string) (*URI, error) {
	return ParseURI(c.Resolve(uri))
}

func (c *Client) complete(kind string, err error) operation.Operation {
	op := operation.NewComplete(kind, err)
	c.metrics.Track(op)
	return op
}

func (c *Client) start(ctx context.Context, req *Request) operation.Operation {
	program := "gpgkeys_" + req.URI.Scheme
	kind := "keyserver." + strings.ToLower(string(req.Command))

	p, err := c.launcher.Launch(ctx, proc.Spec{
		Path:  filepath.Join(c.config.PluginDir, program),
		Stdin: req.Encode(),
	})
	if err != nil {
		return c.complete(kind, operation.NewError(operation.Spawn, program, err))
	}

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	s := &session{
		Base:    operation.NewBase(kind),
		request: req,
		program: program,
		process: p,
		timeout: timeout,
		metrics: c.metrics,
		preMode: true,
	}
	s.Own(s)
	s.SetCancel(func() {
		if err := p.Terminate(); err != nil {
			slog.Warn("failed to terminate keyserver helper", "pid", p.Pid(), "err", err)
		}
	})
	s.Start()
	if req.Command == Get {
		s.MarkProgress("Retrieving "+req.Pattern, 0, 0)
	}
	c.metrics.Track(s)

	slog.Debug("keyserver:start", "program", program, "request", req)
	go s.run()
	return s
}
