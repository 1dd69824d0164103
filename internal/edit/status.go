package edit

import (
	"fmt"
	"strings"
)

// Status is a gpg --status-fd keyword.
type Status int

const (
	Any Status = iota
	GetLine
	GetBool
	GetHidden
	NeedPassphraseSym
	Ignored
	Unknown
)

func (s Status) String() string {
	switch s {
	case Any:
		return "ANY"
	case GetLine:
		return "GET_LINE"
	case GetBool:
		return "GET_BOOL"
	case GetHidden:
		return "GET_HIDDEN"
	case NeedPassphraseSym:
		return "NEED_PASSPHRASE_SYM"
	case Ignored:
		return "IGNORED"
	case Unknown:
		return "UNKNOWN"
	default:
		panic(fmt.Sprintf("invalid status: %d", s))
	}
}

// informational codes that never need an answer
var ignored = map[string]bool{
	"EOF":                true,
	"GOT_IT":             true,
	"NEED_PASSPHRASE":    true,
	"GOOD_PASSPHRASE":    true,
	"BAD_PASSPHRASE":     true,
	"USERID_HINT":        true,
	"SIGEXPIRED":         true,
	"KEYEXPIRED":         true,
	"PROGRESS":           true,
	"KEY_CREATED":        true,
	"ALREADY_SIGNED":     true,
	"MISSING_PASSPHRASE": true,
	"INQUIRE_MAXLEN":     true,
	"PINENTRY_LAUNCHED":  true,
	"KEY_CONSIDERED":     true,
}

const statusPrefix = "[GNUPG:] "

// Event is one status line, Args holds the prompt keyword for the
// GET_* codes.
type Event struct {
	Status Status
	Code   string
	Args   string
}

func (e Event) String() string {
	return fmt.Sprintf("Event(code=%s, args=%s)", e.Code, e.Args)
}

// Demanding reports whether gpg waits for a reply line.
func (e Event) Demanding() bool {
	return e.Status == GetLine || e.Status == GetBool || e.Status == GetHidden
}

// ParseEvent reads a status-fd line. Lines without the status prefix
// are reported as not ok.
func ParseEvent(line string) (Event, bool) {
	rest, ok := strings.CutPrefix(line, statusPrefix)
	if !ok {
		return Event{}, false
	}

	code, args, _ := strings.Cut(strings.TrimSpace(rest), " ")
	ev := Event{Code: code, Args: strings.TrimSpace(args)}

	switch {
	case code == "GET_LINE":
		ev.Status = GetLine
	case code == "GET_BOOL":
		ev.Status = GetBool
	case code == "GET_HIDDEN":
		ev.Status = GetHidden
	case code == "NEED_PASSPHRASE_SYM":
		ev.Status = NeedPassphraseSym
	case ignored[code]:
		ev.Status = Ignored
	default:
		ev.Status = Unknown
	}

	return ev, true
}
