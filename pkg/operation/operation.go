package operation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type Operation interface {
	ID() string
	Kind() string
	State() State
	IsRunning() bool
	IsDone() bool
	IsCancelled() bool
	IsSuccessful() bool
	Progress() Progress
	Err() error
	CopyError() error
	StealError() error
	Result() any
	ReleaseResult()
	OnProgress(func(Operation))
	OnDone(func(Operation))
	Done() <-chan struct{}
	Wait(context.Context) error
	Cancel()
}

type State int

const (
	Pending State = 1 << iota // 1
	Running                   // 2
	Succeeded                 // 4
	Failed                    // 8
	Cancelled                 // 16
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Cancelled:
		return "CANCELLED"
	default:
		panic(fmt.Sprintf("invalid state: %d", s))
	}
}

func (s State) In(mask State) bool {
	return s&mask != 0
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Progress struct {
	Message string `json:"message,omitempty"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// Fraction returns current/total, or -1 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Current) / float64(p.Total)
}

func (p Progress) String() string {
	return fmt.Sprintf("Progress(message=%q, current=%d, total=%d)", p.Message, p.Current, p.Total)
}

// running operations stay reachable through this set until they finish
var live = struct {
	sync.Mutex
	ops map[*Base]struct{}
}{ops: map[*Base]struct{}{}}

// Live returns the number of operations started but not yet done.
func Live() int {
	live.Lock()
	defer live.Unlock()
	return len(live.ops)
}

// Base carries the lifecycle shared by every operation. Concrete
// operations embed *Base and call Own so that callbacks receive the
// outer value.
type Base struct {
	id   string
	kind string

	mu         sync.Mutex
	started    bool
	done       bool
	cancelled  bool
	progress   Progress
	err        error
	// failure is the terminal error, kept when err is stolen
	failure    error
	result     any
	release    func(any)
	onProgress []func(Operation)
	onDone     []func(Operation)
	doneCh     chan struct{}
	cancel     func()
	owner      Operation
}

func NewBase(kind string) *Base {
	b := &Base{
		id:     uuid.NewString(),
		kind:   kind,
		doneCh: make(chan struct{}),
	}
	b.owner = b
	return b
}

// NewComplete returns an operation that has already finished with err.
func NewComplete(kind string, err error) *Base {
	b := NewBase(kind)
	b.started = true
	b.done = true
	b.err = err
	b.failure = err
	b.progress = Progress{Current: 1, Total: 1}
	close(b.doneCh)
	return b
}

// Own sets the value handed to callbacks.
func (b *Base) Own(op Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owner = op
}

// SetCancel installs the function run by Cancel before the operation is
// marked done. Process backed operations kill their child here.
func (b *Base) SetCancel(f func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = f
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Kind() string {
	return b.kind
}

func (b *Base) String() string {
	return fmt.Sprintf("Operation(id=%s, kind=%s, state=%s)", b.id, b.kind, b.State())
}

func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case !b.started:
		return Pending
	case !b.done:
		return Running
	case b.cancelled:
		return Cancelled
	case b.failure != nil:
		return Failed
	default:
		return Succeeded
	}
}

func (b *Base) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started && !b.done
}

func (b *Base) IsDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *Base) IsCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

func (b *Base) IsSuccessful() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done && !b.cancelled && b.failure == nil
}

func (b *Base) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *Base) Err() error {
	return b.CopyError()
}

// CopyError reads the terminal error without taking it.
func (b *Base) CopyError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// StealError hands the terminal error to the caller, later calls and
// CopyError return nil. State and Wait still report the failure.
func (b *Base) StealError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

func (b *Base) SetResult(v any, release func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result = v
	b.release = release
}

func (b *Base) Result() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

func (b *Base) ReleaseResult() {
	b.mu.Lock()
	v, release := b.result, b.release
	b.result, b.release = nil, nil
	b.mu.Unlock()

	if release != nil {
		release(v)
	}
}

func (b *Base) OnProgress(f func(Operation)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.done {
		b.onProgress = append(b.onProgress, f)
	}
}

// OnDone registers f to run once the operation finishes, f runs
// immediately when that already happened.
func (b *Base) OnDone(f func(Operation)) {
	b.mu.Lock()
	if !b.done {
		b.onDone = append(b.onDone, f)
		b.mu.Unlock()
		return
	}
	owner := b.owner
	b.mu.Unlock()

	f(owner)
}

func (b *Base) Done() <-chan struct{} {
	return b.doneCh
}

// Wait blocks until the operation is done or ctx expires. The
// terminal error is returned even after StealError, a cancelled
// operation returns nil.
func (b *Base) Wait(ctx context.Context) error {
	select {
	case <-b.doneCh:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.failure
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Base) Cancel() {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.MarkDone(true, nil)
}

// Start marks the operation running. Starting twice is a no-op.
func (b *Base) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.cancelled = false
	b.progress = Progress{}
	b.mu.Unlock()

	live.Lock()
	live.ops[b] = struct{}{}
	live.Unlock()
}

// MarkProgress records progress while running. current == total is
// reserved for finished operations and is reported as total-1.
func (b *Base) MarkProgress(msg string, current int, total int) {
	if total < 0 {
		total = 0
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	if current == total && total != 0 {
		current = total - 1
	}

	b.mu.Lock()
	if !b.started || b.done {
		b.mu.Unlock()
		return
	}

	next := Progress{Message: msg, Current: current, Total: total}
	if next == b.progress {
		b.mu.Unlock()
		return
	}
	b.progress = next
	callbacks := append([]func(Operation){}, b.onProgress...)
	owner := b.owner
	b.mu.Unlock()

	for _, f := range callbacks {
		f(owner)
	}
}

// MarkDone finishes the operation, it returns false when the operation
// was already done.
func (b *Base) MarkDone(cancelled bool, err error) bool {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return false
	}

	total := b.progress.Total
	if total <= 0 {
		total = 1
	}

	b.started = true
	b.done = true
	b.cancelled = cancelled
	b.err = err
	b.failure = err
	b.progress = Progress{Message: b.progress.Message, Current: total, Total: total}

	onProgress := b.onProgress
	onDone := b.onDone
	b.onProgress = nil
	b.onDone = nil
	b.cancel = nil
	owner := b.owner

	close(b.doneCh)
	b.mu.Unlock()

	live.Lock()
	delete(live.ops, b)
	live.Unlock()

	for _, f := range onProgress {
		f(owner)
	}
	for _, f := range onDone {
		f(owner)
	}

	return true
}
