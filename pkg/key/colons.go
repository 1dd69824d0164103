package key

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// ParseColons reads the output of gpg --with-colons --fixed-list-mode
// --list-keys (or --list-secret-keys). Keys without a fingerprint are
// skipped.
func ParseColons(r io.Reader) ([]Key, error) {
	var p Parser

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.PushLine(strings.Split(scanner.Text(), ":"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return p.Keys(), nil
}

// Parser builds keys one colon record at a time. A key is finished when
// the next primary key record or the end of input is reached.
type Parser struct {
	partial *Key
	subkey  bool
	keys    []Key
}

func (p *Parser) PushLine(cols []string) {
	if len(cols) < 10 {
		return
	}

	switch cols[0] {
	case "pub", "sec":
		p.handlePrimary(cols)
	case "sub", "ssb":
		p.handleSubkey(cols)
	case "fpr":
		p.handleFingerprint(cols)
	case "uid", "uat":
		p.handleUID(cols)
	}
}

func (p *Parser) Keys() []Key {
	p.flush()
	return p.keys
}

func (p *Parser) flush() {
	if p.partial != nil && p.partial.Fingerprint != "" {
		p.keys = append(p.keys, *p.partial)
	}
	p.partial = nil
	p.subkey = false
}

func (p *Parser) handlePrimary(cols []string) {
	p.flush()

	validity := cols[1]
	k := &Key{
		KeyID:    cols[4],
		Algo:     algoFromID(cols[3]),
		Length:   atoi(cols[2]),
		Created:  timestamp(cols[5]),
		Expires:  timestamp(cols[6]),
		Trust:    ownerTrust(cols[8]),
		Validity: validity,
		Secret:   cols[0] == "sec",
		Revoked:  validity == "r",
		Expired:  validity == "e",
	}
	if len(cols) > 11 {
		k.Disabled = strings.Contains(cols[11], "D")
	}

	p.partial = k
}

func (p *Parser) handleSubkey(cols []string) {
	if p.partial == nil {
		return
	}

	p.partial.Subkeys = append(p.partial.Subkeys, Subkey{
		Index:   len(p.partial.Subkeys) + 1,
		KeyID:   cols[4],
		Algo:    algoFromID(cols[3]),
		Length:  atoi(cols[2]),
		Created: timestamp(cols[5]),
		Expires: timestamp(cols[6]),
		Revoked: cols[1] == "r",
		Expired: cols[1] == "e",
	})
	p.subkey = true
}

func (p *Parser) handleFingerprint(cols []string) {
	if p.partial == nil {
		return
	}

	if p.subkey {
		p.partial.Subkeys[len(p.partial.Subkeys)-1].Fingerprint = cols[9]
		return
	}
	if p.partial.Fingerprint == "" {
		p.partial.Fingerprint = cols[9]
	}
}

func (p *Parser) handleUID(cols []string) {
	if p.partial == nil {
		return
	}

	uid := UID{
		Index:    len(p.partial.UIDs) + 1,
		Revoked:  cols[1] == "r",
		Invalid:  cols[1] == "i",
		Photo:    cols[0] == "uat",
		Validity: cols[1],
	}
	if !uid.Photo {
		uid.Name, uid.Email, uid.Comment = ParseUserID(unescape(cols[9]))
	}

	p.partial.UIDs = append(p.partial.UIDs, uid)
}

func ownerTrust(s string) OwnerTrust {
	switch s {
	case "n":
		return TrustNever
	case "m":
		return TrustMarginal
	case "f":
		return TrustFull
	case "u":
		return TrustUltimate
	default:
		return TrustUnknown
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func timestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}
		}
		return time.Unix(n, 0).UTC()
	}
	if t, err := time.Parse("20060102T150405", s); err == nil {
		return t
	}
	return time.Time{}
}

// unescape decodes the \xHH escapes gpg uses in colon listings.
func unescape(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
