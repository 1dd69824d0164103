package keyserver

import (
	"strings"

	"github.com/seahorsehq/seahorse/pkg/operation"
)

// helper exit statuses
const (
	exitOK = iota
	exitInternal
	exitNotSupported
	exitVersion
	exitGeneral
	exitNoMemory
	exitKeyNotFound
	exitKeyExists
	exitKeyIncomplete
	exitUnreachable
)

func exitCode(status int) operation.Code {
	switch status {
	case exitInternal:
		return operation.Internal
	case exitNotSupported:
		return operation.NotSupported
	case exitVersion:
		return operation.Version
	case exitNoMemory:
		return operation.NoMemory
	case exitKeyNotFound:
		return operation.KeyNotFound
	case exitKeyExists:
		return operation.KeyExists
	case exitKeyIncomplete:
		return operation.KeyIncomplete
	case exitUnreachable:
		return operation.Unreachable
	default:
		return operation.ChildExit
	}
}

// ExitError converts a nonzero helper exit status into an operation
// error, message is the best effort text collected from stderr.
func ExitError(program string, status int, message string) error {
	if message = strings.TrimSpace(message); message == "" {
		return operation.Errorf(exitCode(status), "%s exited with status %d", program, status)
	}
	return operation.Errorf(exitCode(status), "%s", message)
}

const maxStderr = 1 << 20

// stderrMessage accumulates helper diagnostics. A line carrying a
// "gpg...: text" segment replaces everything collected so far with
// text, other lines are appended.
//
// This relies on the helpers' english message format and is fragile
// against localized output.
type stderrMessage struct {
	b strings.Builder
}

func (m *stderrMessage) add(line string) {
	if msg, ok := gpgSegment(line); ok {
		m.b.Reset()
		m.b.WriteString(msg)
		return
	}

	if m.b.Len()+len(line)+1 > maxStderr {
		return
	}
	if m.b.Len() > 0 {
		m.b.WriteByte('\n')
	}
	m.b.WriteString(line)
}

func (m *stderrMessage) String() string {
	return m.b.String()
}

// gpgSegment finds the last "gpg<word>:" in line and returns the text
// following it.
func gpgSegment(line string) (string, bool) {
	for i := strings.LastIndex(line, "gpg"); i >= 0; i = strings.LastIndex(line[:i], "gpg") {
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != ':' {
			j++
		}
		if j < len(line) && line[j] == ':' {
			return strings.TrimLeft(line[j:], ": "), true
		}
	}
	return "", false
}
