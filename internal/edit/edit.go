package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/seahorsehq/seahorse/internal/linechan"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

type Config struct {
	Binary     string `flag:"binary" desc:"gpg binary" default:"gpg"`
	Homedir    string `flag:"homedir" desc:"gpg home directory, empty uses the gpg default" default:""`
	LibexecDir string `flag:"libexec-dir" desc:"directory prepended to PATH for gpg helpers" default:""`
}

// Args returns the common gpg arguments followed by extra.
func (c *Config) Args(extra ...string) []string {
	args := []string{"--batch", "--no-tty", "--with-colons"}
	if c.Homedir != "" {
		args = append(args, "--homedir", c.Homedir)
	}
	return append(args, extra...)
}

type Editor struct {
	config   *Config
	launcher proc.Launcher
	metrics  *metrics.Metrics
}

func New(config *Config, launcher proc.Launcher, metrics *metrics.Metrics) *Editor {
	return &Editor{
		config:   config,
		launcher: launcher,
		metrics:  metrics,
	}
}

type options struct {
	args    []string
	env     []string
	result  func() any
	cleanup []func()
}

type Option func(*options)

// WithArgs adds gpg arguments placed before --edit-key.
func WithArgs(args ...string) Option {
	return func(o *options) { o.args = append(o.args, args...) }
}

func WithEnv(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

// WithSigner selects the secret key used by sign.
func WithSigner(keyid string) Option {
	return WithArgs("--local-user", keyid)
}

// WithResult sets the value stored on a successful operation.
func WithResult(f func() any) Option {
	return func(o *options) { o.result = f }
}

// WithCleanup runs f once the conversation is over, on every path.
func WithCleanup(f func()) Option {
	return func(o *options) { o.cleanup = append(o.cleanup, f) }
}

// Edit starts gpg --edit-key for keyid and drives it with a. A spawn
// failure returns an operation that is already done.
func (e *Editor) Edit(ctx context.Context, keyid string, a Automaton, opts ...Option) operation.Operation {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	args := append([]string{"--command-fd", "0", "--status-fd", "1"}, o.args...)
	args = e.config.Args(append(args, "--edit-key", keyid)...)

	env := o.env
	if e.config.LibexecDir != "" {
		env = append(env, prependPath(e.config.LibexecDir))
	}

	kind := "edit." + a.Name()

	p, err := e.launcher.Launch(ctx, proc.Spec{Path: e.config.Binary, Args: args, Env: env})
	if err != nil {
		for _, f := range o.cleanup {
			f()
		}
		op := operation.NewComplete(kind, operation.NewError(operation.Spawn, e.config.Binary, err))
		e.metrics.Track(op)
		return op
	}

	s := &session{
		Base:      operation.NewBase(kind),
		automaton: a,
		process:   p,
		options:   o,
		metrics:   e.metrics,
	}
	s.Own(s)
	s.SetCancel(func() {
		if err := p.Terminate(); err != nil {
			slog.Warn("failed to terminate gpg", "pid", p.Pid(), "err", err)
		}
	})
	s.Start()
	e.metrics.Track(s)

	go s.run()
	return s
}

func prependPath(dir string) string {
	if v := os.Getenv("PATH"); v != "" {
		return fmt.Sprintf("PATH=%s%c%s", dir, os.PathListSeparator, v)
	}
	return "PATH=" + dir
}

// session is owned by its run goroutine, only the embedded base is
// shared with callers.
type session struct {
	*operation.Base

	automaton Automaton
	process   proc.Process
	options   *options
	metrics   *metrics.Metrics
	stdin     *linechan.Writer
	stderr    []string
}

const stderrLines = 20

func (s *session) run() {
	stdout := linechan.Read(s.process.Stdout(), 0)
	stderr := linechan.Read(s.process.Stderr(), 0)
	s.stdin = linechan.NewWriter(s.process.Stdin())

	out, errs := stdout.Lines(), stderr.Lines()
	for out != nil || errs != nil {
		select {
		case line, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			s.handle(line)
		case line, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Debug("edit:stderr", "workflow", s.automaton.Name(), "line", line)
			s.stderr = append(s.stderr, line)
			if len(s.stderr) > stderrLines {
				s.stderr = s.stderr[1:]
			}
		}
	}

	if err := stdout.Err(); err != nil {
		slog.Warn("failed to read gpg output", "err", err)
	}
	_ = s.stdin.Close()

	code, werr := s.process.Wait()
	for _, f := range s.options.cleanup {
		f()
	}

	s.finish(code, werr)
}

func (s *session) handle(line string) {
	ev, ok := ParseEvent(line)
	if !ok {
		return
	}

	s.metrics.EditEvent(s.automaton.Name(), ev.Code)

	switch ev.Status {
	case Ignored:
		return
	case Unknown:
		slog.Debug("edit:ignore", "workflow", s.automaton.Name(), "event", ev)
		return
	}

	reply, send, err := s.automaton.Step(ev)
	if err != nil {
		slog.Debug("edit:error", "workflow", s.automaton.Name(), "event", ev, "err", err)
		reply, send = s.automaton.Recover(ev)
	}

	if !ev.Demanding() {
		return
	}

	if !send {
		// nothing to answer, end of input lets gpg exit
		_ = s.stdin.Close()
		return
	}

	if err := s.stdin.WriteLine(reply); err != nil {
		slog.Warn("failed to write to gpg", "workflow", s.automaton.Name(), "err", err)
	}
}

func (s *session) finish(code int, werr error) {
	err := s.automaton.Err()

	switch {
	case errors.Is(err, ErrCancelled):
		s.MarkDone(true, nil)
	case err != nil:
		s.MarkDone(false, err)
	case werr != nil:
		s.MarkDone(false, operation.NewError(operation.ChildExit, "gpg", werr))
	case code != 0:
		s.MarkDone(false, operation.Errorf(operation.ChildExit, "gpg exited with status %d: %s", code, strings.Join(s.stderr, "\n")))
	default:
		if s.options.result != nil {
			s.SetResult(s.options.result(), nil)
		}
		s.MarkDone(false, nil)
	}
}
