package keyserver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/seahorsehq/seahorse/pkg/operation"
)

// URI is a parsed keyserver address, e.g. hkp://keys.example.org:11371.
type URI struct {
	Scheme string
	Host   string
	Port   string
	Opaque string
}

func (u *URI) String() string {
	if u.Opaque != "" {
		return fmt.Sprintf("%s:%s", u.Scheme, u.Opaque)
	}
	if u.Port != "" {
		return fmt.Sprintf("%s://%s:%s", u.Scheme, u.Host, u.Port)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// the scheme names the helper program, only rfc 3986 scheme characters
// are allowed
var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*$`)

// ParseURI follows gpg's keyserver uri rules. Without a scheme hkp is
// assumed, //host[:port] is a network address and anything else after
// the scheme is opaque. A path part is ignored.
func ParseURI(raw string) (*URI, error) {
	invalid := func(reason string) error {
		return operation.Errorf(operation.BadURI, "invalid keyserver uri %q: %s", raw, reason)
	}

	u := &URI{}

	scheme, rest, found := strings.Cut(raw, ":")
	network := false
	if !found {
		u.Scheme = "hkp"
		rest = raw
		network = true
	} else {
		u.Scheme = scheme
		if r, ok := strings.CutPrefix(rest, "//"); ok {
			rest = r
			network = true
		}
	}

	switch {
	case network:
		i := strings.IndexAny(rest, ":/")
		host, tail := rest, ""
		if i >= 0 {
			host, tail = rest[:i], rest[i:]
		}
		if host == "" {
			return nil, invalid("missing host")
		}
		u.Host = host

		if port, ok := strings.CutPrefix(tail, ":"); ok {
			port, _, _ = strings.Cut(port, "/")
			for _, c := range port {
				if c < '0' || c > '9' {
					return nil, invalid("port must be numeric")
				}
			}
			u.Port = port
		}
	case strings.HasPrefix(rest, "/"):
		return nil, invalid("absolute paths are not supported")
	default:
		u.Opaque = rest
	}

	if u.Scheme == "" {
		return nil, invalid("missing scheme")
	}
	if !schemeRe.MatchString(u.Scheme) {
		return nil, invalid("malformed scheme")
	}

	return u, nil
}
