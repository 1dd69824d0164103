package proc

import (
	"io"
	"sync"
)

// Fake is an in-memory process backed by pipes. Tests write the child's
// output through Out and Err and read what the parent sent via Input.
type Fake struct {
	Out *io.PipeWriter
	Err *io.PipeWriter

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stderrR *io.PipeReader

	once       sync.Once
	exit       chan int
	terminated chan struct{}
	termOnce   sync.Once
}

func NewFake() *Fake {
	f := &Fake{
		exit:       make(chan int, 1),
		terminated: make(chan struct{}),
	}
	f.stdinR, f.stdinW = io.Pipe()
	f.stdoutR, f.Out = io.Pipe()
	f.stderrR, f.Err = io.Pipe()
	return f
}

// Input is the read side of the child's stdin.
func (f *Fake) Input() io.Reader {
	return f.stdinR
}

// Exit sets the code returned by Wait and closes both output pipes.
func (f *Fake) Exit(code int) {
	f.once.Do(func() {
		f.exit <- code
	})
	_ = f.Out.Close()
	_ = f.Err.Close()
}

// Terminated is closed once the parent asked the child to terminate.
func (f *Fake) Terminated() <-chan struct{} {
	return f.terminated
}

func (f *Fake) Pid() int {
	return 1
}

func (f *Fake) Stdin() io.WriteCloser {
	return f.stdinW
}

func (f *Fake) Stdout() io.Reader {
	return f.stdoutR
}

func (f *Fake) Stderr() io.Reader {
	return f.stderrR
}

func (f *Fake) Terminate() error {
	f.termOnce.Do(func() { close(f.terminated) })
	_ = f.stdinR.Close()
	f.Exit(-1)
	return nil
}

func (f *Fake) Wait() (int, error) {
	code := <-f.exit
	f.exit <- code
	return code, nil
}
