package registry

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Config struct {
	TTL      time.Duration `flag:"ttl" desc:"how long finished operations stay visible" default:"10m"`
	Interval time.Duration `flag:"interval" desc:"eviction interval" default:"1m"`
}

// View is the api shape of an operation.
type View struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Description string             `json:"description,omitempty"`
	State       operation.State    `json:"state"`
	Progress    operation.Progress `json:"progress"`
	Error       string             `json:"error,omitempty"`
	Code        string             `json:"code,omitempty"`
	Result      any                `json:"result,omitempty"`
	CreatedOn   time.Time          `json:"createdOn"`
	CompletedOn time.Time          `json:"completedOn,omitzero"`
}

type entry struct {
	op          operation.Operation
	description string
	createdOn   time.Time
	completedOn time.Time
}

// Registry tracks operations started through the daemon. Finished
// operations are evicted once they are older than the ttl.
type Registry struct {
	config *Config
	now    func() time.Time

	mu  sync.Mutex
	ops map[string]*entry

	done chan struct{}
	wg   sync.WaitGroup
}

func New(config *Config) *Registry {
	return &Registry{
		config: config,
		now:    time.Now,
		ops:    map[string]*entry{},
		done:   make(chan struct{}),
	}
}

func (r *Registry) String() string {
	return "registry"
}

// Add registers op and returns its id.
func (r *Registry) Add(op operation.Operation, description string) string {
	e := &entry{op: op, description: description, createdOn: r.now()}

	r.mu.Lock()
	r.ops[op.ID()] = e
	r.mu.Unlock()

	op.OnDone(func(o operation.Operation) {
		r.mu.Lock()
		e.completedOn = r.now()
		r.mu.Unlock()

		slog.Debug("registry:done", "id", o.ID(), "kind", o.Kind(), "state", o.State())
	})

	return op.ID()
}

func (r *Registry) Operation(id string) (operation.Operation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.ops[id]
	if !ok {
		return nil, false
	}
	return e.op, true
}

func (r *Registry) Get(id string) (*View, bool) {
	r.mu.Lock()
	e, ok := r.ops[id]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	return r.view(e), true
}

// List returns every tracked operation, newest first.
func (r *Registry) List() []*View {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.ops))
	for _, e := range r.ops { // nosemgrep: range-over-map
		entries = append(entries, e)
	}
	r.mu.Unlock()

	slices.SortFunc(entries, func(a, b *entry) int {
		if c := b.createdOn.Compare(a.createdOn); c != 0 {
			return c
		}
		return cmp.Compare(a.op.ID(), b.op.ID())
	})

	views := make([]*View, len(entries))
	for i, e := range entries {
		views[i] = r.view(e)
	}
	return views
}

func (r *Registry) view(e *entry) *View {
	r.mu.Lock()
	completedOn := e.completedOn
	r.mu.Unlock()

	v := &View{
		ID:          e.op.ID(),
		Kind:        e.op.Kind(),
		Description: e.description,
		State:       e.op.State(),
		Progress:    e.op.Progress(),
		CreatedOn:   e.createdOn,
		CompletedOn: completedOn,
	}

	if err := e.op.CopyError(); err != nil {
		v.Error = err.Error()
		if code, ok := operation.CodeOf(err); ok {
			v.Code = code.String()
		}
	}

	if e.op.IsDone() {
		v.Result = e.op.Result()
	}

	return v
}

// Evict drops operations finished for longer than the ttl and returns
// how many were removed.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.config.TTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.ops { // nosemgrep: range-over-map
		if !e.completedOn.IsZero() && e.completedOn.Before(cutoff) {
			e.op.ReleaseResult()
			delete(r.ops, id)
			n++
		}
	}
	return n
}

func (r *Registry) Start() error {
	interval := r.config.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := r.Evict(); n > 0 {
					slog.Debug("registry:evict", "count", n)
				}
			case <-r.done:
				return
			}
		}
	}()

	return nil
}

func (r *Registry) Stop() error {
	close(r.done)
	r.wg.Wait()
	return nil
}
