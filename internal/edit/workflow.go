package edit

import (
	"errors"
	"log/slog"

	"github.com/seahorsehq/seahorse/pkg/operation"
)

// State of an edit conversation. Every workflow shares the first four,
// workflow specific states start at Custom.
type State int

const (
	Start State = iota
	Quit
	Save
	Error
	Custom
)

// prompts and answers shared by every workflow
const (
	Prompt  = "keyedit.prompt"
	SaveOK  = "keyedit.save.okay"
	Yes     = "Y"
	No      = "N"
	QuitCmd = "quit"
)

var (
	ErrProtocol      = operation.NewError(operation.Protocol, "unexpected gpg edit event", nil)
	ErrAlreadySigned = operation.NewError(operation.AlreadyDone, "user id already signed", nil)
	ErrInvalidFile   = operation.NewError(operation.InvalidArgument, "gpg rejected the photo file", nil)
)

// ErrCancelled ends the conversation as cancelled rather than failed.
var ErrCancelled = errors.New("edit cancelled by gpg")

// Rule is one edge of a workflow table. An empty Prompt matches any
// prompt and Status Any matches every event reaching the table.
type Rule[D any] struct {
	From   State
	Status Status
	Prompt string
	When   func(*D) bool
	To     State
	Err    error

	// Effect runs when the rule fires, before the reply is built.
	Effect func(*D)
}

// Reply builds the line sent after entering a state. ok false means
// nothing is sent.
type Reply[D any] func(*D) (line string, ok bool)

func Line[D any](s string) Reply[D] {
	return func(*D) (string, bool) { return s, true }
}

func Silent[D any](*D) (string, bool) {
	return "", false
}

// Workflow is the static description of one edit conversation.
type Workflow[D any] struct {
	Name    string
	Rules   []Rule[D]
	Replies map[State]Reply[D]

	// Finish may rewrite the terminal error.
	Finish func(error) error
}

func (w *Workflow[D]) transit(state State, ev Event, data *D) (State, error) {
	for _, r := range w.Rules {
		if r.From != state {
			continue
		}
		if r.Status != Any && r.Status != ev.Status {
			continue
		}
		if r.Prompt != "" && r.Prompt != ev.Args {
			continue
		}
		if r.When != nil && !r.When(data) {
			continue
		}
		if r.Effect != nil {
			r.Effect(data)
		}
		return r.To, r.Err
	}

	switch {
	case state == Error && ev.Status == GetLine && ev.Args == Prompt:
		return Quit, nil
	case state == Error:
		return Error, nil
	case state == Quit && ev.Status == GetBool && ev.Args == SaveOK:
		return Save, nil
	}

	return Error, operation.Errorf(operation.Protocol, "%s: unexpected %s %s in state %d", w.Name, ev.Status, ev.Args, state)
}

func (w *Workflow[D]) reply(state State, data *D) (string, bool) {
	if r, ok := w.Replies[state]; ok {
		return r(data)
	}

	switch state {
	case Quit:
		return QuitCmd, true
	case Save:
		return Yes, true
	case Error:
		// an empty line backs out of any sub prompt
		return "", true
	default:
		return "", false
	}
}

// Automaton is a running conversation.
type Automaton interface {
	Name() string
	State() State

	// Step consumes one event. A non nil error means the event was not
	// part of the conversation, call Recover with the same event.
	Step(Event) (line string, ok bool, err error)
	Recover(Event) (line string, ok bool)
	Err() error
}

// Machine runs a workflow over its private data.
type Machine[D any] struct {
	workflow *Workflow[D]
	data     *D
	state    State
	err      error
}

func NewMachine[D any](w *Workflow[D], data *D) *Machine[D] {
	return &Machine[D]{
		workflow: w,
		data:     data,
		state:    Start,
	}
}

func (m *Machine[D]) Name() string {
	return m.workflow.Name
}

func (m *Machine[D]) State() State {
	return m.state
}

func (m *Machine[D]) Data() *D {
	return m.data
}

func (m *Machine[D]) Step(ev Event) (string, bool, error) {
	next, err := m.workflow.transit(m.state, ev, m.data)
	slog.Debug("edit:transit", "workflow", m.workflow.Name, "from", m.state, "to", next, "event", ev)

	m.state = next
	if err != nil {
		if m.err == nil {
			m.err = err
		}
		return "", false, err
	}

	line, ok := m.workflow.reply(next, m.data)
	return line, ok, nil
}

// Recover answers the event that caused an error from the Error state.
func (m *Machine[D]) Recover(ev Event) (string, bool) {
	next, _ := m.workflow.transit(Error, ev, m.data)
	m.state = next
	return m.workflow.reply(next, m.data)
}

// Err returns the first error, rewritten by the workflow's Finish.
func (m *Machine[D]) Err() error {
	if m.workflow.Finish != nil {
		return m.workflow.Finish(m.err)
	}
	return m.err
}
