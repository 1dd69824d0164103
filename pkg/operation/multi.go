package operation

import (
	"log/slog"
	"sync"
)

// Multi aggregates child operations. It finishes once every child has
// finished, with the first child error and cancelled when any child
// was cancelled.
type Multi struct {
	*Base

	mu        sync.Mutex
	children  []Operation
	pending   int
	err       error
	cancelled bool
}

func NewMulti(kind string) *Multi {
	m := &Multi{Base: NewBase(kind)}
	m.Own(m)
	return m
}

// Take adds children to the multi, starting it if needed. Children
// already done are accounted for immediately. It returns false when
// the multi has already finished.
func (m *Multi) Take(children ...Operation) bool {
	if len(children) == 0 {
		return !m.IsDone()
	}

	m.mu.Lock()
	if m.IsDone() {
		m.mu.Unlock()
		slog.Warn("multi operation already done, dropping children", "id", m.ID(), "children", len(children))
		return false
	}
	m.children = append(m.children, children...)
	m.pending += len(children)
	m.mu.Unlock()

	m.Start()

	for _, c := range children {
		c.OnProgress(m.childProgress)
	}
	m.childProgress(nil)

	for _, c := range children {
		c.OnDone(m.childDone)
	}

	return true
}

func (m *Multi) Children() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Operation{}, m.children...)
}

// Cancel forwards to every unfinished child and lets their completion
// finish the multi.
func (m *Multi) Cancel() {
	children := m.Children()
	if len(children) == 0 {
		m.Base.Cancel()
		return
	}

	for _, c := range children {
		if !c.IsDone() {
			c.Cancel()
		}
	}
}

func (m *Multi) childProgress(Operation) {
	children := m.Children()
	if len(children) == 1 {
		p := children[0].Progress()
		m.MarkProgress(p.Message, p.Current, p.Total)
		return
	}

	var (
		msg     string
		current int
		total   int
	)

	for _, c := range children {
		if c.IsCancelled() {
			continue
		}

		done := c.IsDone()
		p := c.Progress()

		if p.Total <= 0 {
			total++
			if done {
				current++
			}
		} else {
			total += p.Total
			current += p.Current
		}

		if msg == "" && !done {
			msg = p.Message
		}
	}

	m.MarkProgress(msg, current, total)
}

func (m *Multi) childDone(child Operation) {
	m.mu.Lock()
	if err := child.CopyError(); err != nil && m.err == nil {
		m.err = err
	}
	if child.IsCancelled() {
		m.cancelled = true
	}

	m.pending--
	finished := m.pending == 0
	err, cancelled := m.err, m.cancelled
	m.mu.Unlock()

	if !finished {
		m.childProgress(child)
		return
	}

	m.MarkDone(cancelled, err)
}
