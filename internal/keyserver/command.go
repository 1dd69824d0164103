package keyserver

import (
	"fmt"
	"strings"
)

type Command string

const (
	Get    Command = "GET"
	Search Command = "SEARCH"
)

type Options struct {
	IncludeRevoked bool `flag:"include-revoked" desc:"include revoked keys in search results" default:"false"`
	IncludeSubkeys bool `flag:"include-subkeys" desc:"match subkeys in search" default:"false"`
}

// Request is what the helper reads on stdin.
type Request struct {
	URI     *URI
	Command Command
	Pattern string
	Options Options
}

func (r *Request) String() string {
	return fmt.Sprintf("Request(uri=%s, command=%s, pattern=%s)", r.URI, r.Command, r.Pattern)
}

// Encode renders the helper's stdin block.
func (r *Request) Encode() []byte {
	var b strings.Builder

	if r.URI.Host != "" {
		fmt.Fprintf(&b, "HOST %s\n", r.URI.Host)
	}
	if r.URI.Port != "" {
		fmt.Fprintf(&b, "PORT %s\n", r.URI.Port)
	}
	if r.URI.Opaque != "" {
		fmt.Fprintf(&b, "OPAQUE %s\n", r.URI.Opaque)
	}

	if r.Command == Search {
		if r.Options.IncludeRevoked {
			b.WriteString("OPTION include-revoked\n")
		}
		if r.Options.IncludeSubkeys {
			b.WriteString("OPTION include-subkeys\n")
		}
	}

	fmt.Fprintf(&b, "COMMAND %s\n\n%s\n\n", r.Command, r.Pattern)
	return []byte(b.String())
}
