package operation

import "sync"

// Chain runs first and, once it succeeded, the operation returned by
// next. The chain finishes with the last operation's outcome and
// result. A nil next operation finishes the chain with first's result.
// Cancel forwards to whichever operation is current.
func Chain(kind string, first Operation, next func(Operation) Operation) Operation {
	c := &chain{Base: NewBase(kind)}
	c.Own(c)
	c.SetCancel(func() {
		c.mu.Lock()
		current := c.current
		c.mu.Unlock()

		current.Cancel()
	})
	c.Start()

	c.follow(first, func(op Operation) {
		second := next(op)
		if second == nil {
			c.finish(op)
			return
		}
		c.follow(second, c.finish)
	})

	return c
}

type chain struct {
	*Base

	mu      sync.Mutex
	current Operation
}

func (c *chain) follow(op Operation, then func(Operation)) {
	c.mu.Lock()
	c.current = op
	c.mu.Unlock()

	op.OnProgress(func(o Operation) {
		p := o.Progress()
		if !o.IsDone() {
			c.MarkProgress(p.Message, p.Current, p.Total)
		}
	})

	op.OnDone(func(o Operation) {
		if !o.IsSuccessful() {
			c.MarkDone(o.IsCancelled(), o.CopyError())
			return
		}
		then(o)
	})
}

func (c *chain) finish(op Operation) {
	c.SetResult(op.Result(), nil)
	c.MarkDone(false, nil)
}
