package keyserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seahorsehq/seahorse/pkg/key"
)

const recordFields = 8

// ParseRecord parses one listing line:
// fingerprint:userid:flags:created:expires:modified:type:length
func ParseRecord(line string) (*key.Record, error) {
	fields := strings.SplitN(line, ":", recordFields)
	if len(fields) != recordFields {
		return nil, fmt.Errorf("expected %d fields, got %d", recordFields, len(fields))
	}

	r := &key.Record{}

	if r.Fingerprint = fields[0]; r.Fingerprint == "" {
		return nil, fmt.Errorf("missing fingerprint")
	}

	if fields[1] == "" {
		return nil, fmt.Errorf("missing user id")
	}
	// helpers percent encode colons and non ascii bytes
	if uid, err := url.PathUnescape(fields[1]); err == nil {
		r.UserID = uid
	} else {
		r.UserID = fields[1]
	}

	flags, _ := strconv.Atoi(fields[2])
	r.Flags = key.Flag(flags)

	created, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || created <= 0 {
		return nil, fmt.Errorf("invalid creation time %q", fields[3])
	}
	r.Created = time.Unix(created, 0).UTC()

	expires, err := strconv.ParseInt(fields[4], 10, 64)
	if fields[4] == "" {
		expires, err = 0, nil
	}
	if err != nil || expires < 0 {
		return nil, fmt.Errorf("invalid expiry time %q", fields[4])
	}
	if expires > 0 {
		r.Expires = time.Unix(expires, 0).UTC()
	}

	if r.Algo = parseAlgo(fields[6]); r.Algo == key.AlgoUnknown {
		return nil, fmt.Errorf("invalid key type %q", fields[6])
	}

	if r.Length, err = strconv.Atoi(fields[7]); err != nil || r.Length <= 0 {
		return nil, fmt.Errorf("invalid key length %q", fields[7])
	}

	return r, nil
}

func parseAlgo(s string) key.Algo {
	switch strings.ToUpper(s) {
	case "DH/DSS", "ELG", "ELGAMAL":
		return key.AlgoElgamal
	case "RSA":
		return key.AlgoRSA
	case "DSA":
		return key.AlgoDSA
	default:
		return key.AlgoUnknown
	}
}
