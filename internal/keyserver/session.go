package keyserver

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/seahorsehq/seahorse/internal/linechan"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

const (
	pluginVersion = "0"

	armorBegin = "-----BEGIN"
	armorEnd   = "-----END"
)

// session talks to one helper process. Everything except the embedded
// base is owned by the run goroutine.
type session struct {
	*operation.Base

	request *Request
	program string
	process proc.Process
	timeout time.Duration
	metrics *metrics.Metrics

	preMode bool
	failed  bool
	err     error
	stderr  stderrMessage

	// search
	records []*key.Record
	total   int

	// get
	armored bool
	armor   strings.Builder
}

func (s *session) run() {
	stdout := linechan.Read(s.process.Stdout(), 0)
	stderr := linechan.Read(s.process.Stderr(), 0)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

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
			slog.Debug("keyserver:stderr", "program", s.program, "line", line)
			s.stderr.add(line)
		case <-timer.C:
			slog.Warn("keyserver helper timed out", "program", s.program, "timeout", s.timeout)
			s.fail(operation.Errorf(operation.Timeout, "%s did not finish within %s", s.program, s.timeout))
		}
	}

	if err := stdout.Err(); err != nil && !s.failed {
		slog.Warn("failed to read keyserver output", "program", s.program, "err", err)
	}

	code, werr := s.process.Wait()
	s.finish(code, werr)
}

// fail records the first error and stops the helper, later output is
// discarded.
func (s *session) fail(err error) {
	if s.failed {
		return
	}
	s.failed = true
	s.err = err

	if err := s.process.Terminate(); err != nil {
		slog.Warn("failed to terminate keyserver helper", "pid", s.process.Pid(), "err", err)
	}
}

func (s *session) handle(line string) {
	if s.failed {
		return
	}

	if s.preMode {
		s.handlePreMode(line)
		return
	}

	switch s.request.Command {
	case Search:
		s.handleListing(line)
	case Get:
		s.handleArmor(line)
	}
}

func (s *session) handlePreMode(line string) {
	if v, ok := strings.CutPrefix(line, "VERSION "); ok {
		if v = strings.TrimSpace(v); v != pluginVersion {
			s.fail(operation.Errorf(operation.Version, "%s speaks protocol version %s, expected %s", s.program, v, pluginVersion))
		}
		return
	}

	if strings.TrimSpace(line) == "" {
		s.preMode = false
	}
}

func (s *session) handleListing(line string) {
	switch {
	case line == "":
		slog.Warn("empty line in keyserver listing", "program", s.program)
		return
	case strings.HasPrefix(line, "SEARCH "):
		return
	case strings.HasPrefix(line, "COUNT "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "COUNT ")))
		if err != nil {
			slog.Warn("invalid keyserver count", "program", s.program, "line", line)
			return
		}
		s.total = n
		s.MarkProgress(s.progressMessage(), len(s.records), s.total)
		return
	}

	r, err := ParseRecord(line)
	if err != nil {
		slog.Warn("dropped invalid keyserver record", "program", s.program, "line", line, "err", err)
		s.metrics.Record("dropped")
		return
	}

	s.metrics.Record("accepted")
	s.records = append(s.records, r)
	s.MarkProgress(s.progressMessage(), len(s.records), s.total)
}

func (s *session) progressMessage() string {
	return "Searching for " + s.request.Pattern
}

func (s *session) handleArmor(line string) {
	if strings.HasPrefix(line, armorBegin) {
		s.armored = true
	}
	if !s.armored {
		return
	}

	s.armor.WriteString(line)
	s.armor.WriteByte('\n')

	if strings.HasPrefix(line, armorEnd) {
		s.armored = false
	}
}

func (s *session) finish(code int, werr error) {
	switch {
	case s.err != nil:
		s.MarkDone(false, s.err)
	case werr != nil:
		s.MarkDone(false, operation.NewError(operation.ChildExit, s.program, werr))
	case code != exitOK:
		s.MarkDone(false, ExitError(s.program, code, s.stderr.String()))
	case s.request.Command == Search:
		s.SetResult(s.records, nil)
		s.MarkDone(false, nil)
	case s.armor.Len() == 0:
		s.MarkDone(false, operation.Errorf(operation.KeyNotFound, "no key returned for %s", s.request.Pattern))
	default:
		s.SetResult(s.armor.String(), nil)
		s.MarkDone(false, nil)
	}
}
