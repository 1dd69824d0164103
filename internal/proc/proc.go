package proc

//go:generate mockgen -destination=mock_proc.go -package=proc . Launcher,Process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/seahorsehq/seahorse/internal/metrics"
)

// Spec describes a child process. Env entries are added on top of the
// current environment, later entries win.
type Spec struct {
	Path  string
	Args  []string
	Env   []string
	Dir   string
	Stdin []byte
}

func (s Spec) String() string {
	return fmt.Sprintf("Spec(path=%s, args=%v)", s.Path, s.Args)
}

type Launcher interface {
	Launch(context.Context, Spec) (Process, error)
}

type Process interface {
	Pid() int

	// Stdin is nil when the spec supplied a fixed stdin.
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader

	Terminate() error

	// Wait reaps the child and returns its exit code. It must only be
	// called once both output pipes have been drained.
	Wait() (int, error)
}

type ExecLauncher struct {
	metrics *metrics.Metrics
}

func NewExecLauncher(metrics *metrics.Metrics) *ExecLauncher {
	return &ExecLauncher{metrics: metrics}
}

// Launch starts the child. ctx bounds the spawn only, the lifetime of
// the child belongs to the returned process.
func (l *ExecLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	p := &execProcess{cmd: cmd}

	var err error
	if spec.Stdin != nil {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	} else if p.stdin, err = cmd.StdinPipe(); err != nil {
		return nil, err
	}
	if p.stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, err
	}
	if p.stderr, err = cmd.StderrPipe(); err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	l.metrics.Spawned(filepath.Base(spec.Path))
	slog.Debug("proc:launch", "spec", spec, "pid", cmd.Process.Pid)

	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

func (p *execProcess) Stderr() io.Reader {
	return p.stderr
}

func (p *execProcess) Terminate() error {
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}

	return 0, nil
}
