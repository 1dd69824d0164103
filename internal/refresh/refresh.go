package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/seahorsehq/seahorse/internal/keyserver"
	"github.com/seahorsehq/seahorse/internal/registry"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Config struct {
	Cron      string   `flag:"cron" desc:"cron expression for refreshing keys, empty disables refresh"`
	Keys      []string `flag:"keys" desc:"fingerprints of the keys to refresh"`
	Keyserver string   `flag:"keyserver" desc:"keyserver uri, defaults to the configured keyserver"`
}

type Getter interface {
	Get(ctx context.Context, uri string, fingerprints ...string) operation.Operation
}

type Importer interface {
	Import(ctx context.Context, armored ...string) operation.Operation
}

// Refresher periodically fetches the configured keys and imports them
// into the keyring.
type Refresher struct {
	config    *Config
	keyserver Getter
	keys      Importer
	registry  *registry.Registry
	now       func() time.Time

	mu      sync.Mutex
	current operation.Operation

	done chan struct{}
	wg   sync.WaitGroup
}

func New(config *Config, keyserver Getter, keys Importer, registry *registry.Registry) *Refresher {
	return &Refresher{
		config:    config,
		keyserver: keyserver,
		keys:      keys,
		registry:  registry,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

func (r *Refresher) String() string {
	return "refresh"
}

// Run refreshes every configured key once. Each key is fetched and then
// imported, all keys run in parallel under one multi operation. Run
// returns the operation in flight when the previous refresh has not
// finished yet.
func (r *Refresher) Run(ctx context.Context) operation.Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.IsDone() {
		slog.Warn("refresh already running, skipping", "id", r.current.ID())
		return r.current
	}

	m := operation.NewMulti("refresh")
	children := make([]operation.Operation, 0, len(r.config.Keys))

	for _, fpr := range r.config.Keys {
		fpr = util.NormalizeFingerprint(fpr)
		get := r.keyserver.Get(ctx, r.config.Keyserver, fpr)

		children = append(children, operation.Chain("refresh.key", get, func(op operation.Operation) operation.Operation {
			return r.keys.Import(ctx, keyserver.Armor(op)...)
		}))
	}

	start := r.now()
	m.OnDone(func(op operation.Operation) {
		if err := op.CopyError(); err != nil {
			slog.Error("refresh failed", "keys", len(children), "err", err, "duration", r.now().Sub(start))
			return
		}
		slog.Info("refresh finished", "keys", len(children), "cancelled", op.IsCancelled(), "duration", r.now().Sub(start))
	})

	if len(children) == 0 {
		m.Start()
		m.MarkDone(false, nil)
	} else {
		m.Take(children...)
	}

	if r.registry != nil {
		r.registry.Add(m, "refresh "+strings.Join(r.config.Keys, " "))
	}

	r.current = m
	return m
}

// Next returns when the next scheduled refresh runs, false when the
// schedule is disabled or invalid.
func (r *Refresher) Next() (time.Time, bool) {
	if r.config.Cron == "" {
		return time.Time{}, false
	}

	next, err := util.Next(r.now(), r.config.Cron)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

func (r *Refresher) Start() error {
	if r.config.Cron == "" {
		slog.Debug("refresh disabled")
		return nil
	}

	next, err := util.Next(r.now(), r.config.Cron)
	if err != nil {
		return fmt.Errorf("invalid refresh cron %q: %w", r.config.Cron, err)
	}
	slog.Info("refresh scheduled", "cron", r.config.Cron, "keys", len(r.config.Keys), "next", next)

	r.wg.Add(1)
	go r.loop()

	return nil
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		next, ok := r.Next()
		if !ok {
			return
		}
		slog.Debug("refresh:next", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			r.Run(ctx)
		case <-r.done:
			timer.Stop()
			return
		}
	}
}

// Stop ends the schedule and cancels a refresh in flight.
func (r *Refresher) Stop() error {
	close(r.done)
	r.wg.Wait()

	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current != nil {
		current.Cancel()
	}
	return nil
}
