package keyserver

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	for _, tc := range []struct {
		name     string
		raw      string
		expected *URI
	}{
		{name: "Network", raw: "hkp://keys.example.org", expected: &URI{Scheme: "hkp", Host: "keys.example.org"}},
		{name: "Port", raw: "hkp://keys.example.org:11371", expected: &URI{Scheme: "hkp", Host: "keys.example.org", Port: "11371"}},
		{name: "PortAndPath", raw: "hkps://keys.example.org:443/pks", expected: &URI{Scheme: "hkps", Host: "keys.example.org", Port: "443"}},
		{name: "Path", raw: "http://keys.example.org/pks", expected: &URI{Scheme: "http", Host: "keys.example.org"}},
		{name: "NoScheme", raw: "keys.example.org", expected: &URI{Scheme: "hkp", Host: "keys.example.org"}},
		{name: "Opaque", raw: "ldap:dc=example,dc=org", expected: &URI{Scheme: "ldap", Opaque: "dc=example,dc=org"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			u, err := ParseURI(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u)
		})
	}

	for _, raw := range []string{
		"hkp://",
		"hkp://:11371",
		"hkp://keys.example.org:port",
		"finger:/etc/keys",
		"://keys.example.org",
		"x/../../../../bin/sh:anything",
		"../gpg://keys.example.org",
		"1hkp://keys.example.org",
		"h kp://keys.example.org",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseURI(raw)
			assert.ErrorIs(t, err, operation.Errorf(operation.BadURI, ""))
		})
	}
}

func TestRequestEncode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		request  *Request
		expected string
	}{
		{
			name: "Search",
			request: &Request{
				URI:     &URI{Scheme: "hkp", Host: "keys.example.org", Port: "11371"},
				Command: Search,
				Pattern: "alice",
				Options: Options{IncludeRevoked: true, IncludeSubkeys: true},
			},
			expected: "HOST keys.example.org\nPORT 11371\nOPTION include-revoked\nOPTION include-subkeys\nCOMMAND SEARCH\n\nalice\n\n",
		},
		{
			name: "GetIgnoresSearchOptions",
			request: &Request{
				URI:     &URI{Scheme: "hkp", Host: "keys.example.org"},
				Command: Get,
				Pattern: "AAAABBBB",
				Options: Options{IncludeRevoked: true},
			},
			expected: "HOST keys.example.org\nCOMMAND GET\n\nAAAABBBB\n\n",
		},
		{
			name: "Opaque",
			request: &Request{
				URI:     &URI{Scheme: "ldap", Opaque: "dc=example"},
				Command: Get,
				Pattern: "AAAABBBB",
			},
			expected: "OPAQUE dc=example\nCOMMAND GET\n\nAAAABBBB\n\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(tc.request.Encode()))
		})
	}
}

func TestParseRecord(t *testing.T) {
	r, err := ParseRecord("AAAABBBB:Alice <a@example.com>:0:1700000000:0:0:RSA:2048")
	require.NoError(t, err)

	assert.Equal(t, &key.Record{
		Fingerprint: "AAAABBBB",
		UserID:      "Alice <a@example.com>",
		Created:     time.Unix(1700000000, 0).UTC(),
		Algo:        key.AlgoRSA,
		Length:      2048,
	}, r)
	assert.False(t, r.Revoked())
	assert.False(t, r.Expired())

	r, err = ParseRecord("CCCCDDDD:Bob %3Cbob%3A1%3E:1:1600000000:1650000000:0:ELG:4096")
	require.NoError(t, err)
	assert.Equal(t, "Bob <bob:1>", r.UserID)
	assert.True(t, r.Revoked())
	assert.True(t, r.Expired())
	assert.Equal(t, key.AlgoElgamal, r.Algo)

	for _, tc := range []struct {
		name string
		line string
	}{
		{name: "NoFingerprint", line: ":Alice:0:1700000000:0:0:RSA:2048"},
		{name: "NoUserID", line: "AAAA::0:1700000000:0:0:RSA:2048"},
		{name: "NoCreated", line: "AAAA:Alice:0:0:0:0:RSA:2048"},
		{name: "NegativeExpiry", line: "AAAA:Alice:0:1700000000:-1:0:RSA:2048"},
		{name: "UnknownAlgo", line: "AAAA:Alice:0:1700000000:0:0:ROT13:2048"},
		{name: "NoLength", line: "AAAA:Alice:0:1700000000:0:0:RSA:0"},
		{name: "TooFewFields", line: "AAAA:Alice:0:1700000000"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecord(tc.line)
			assert.Error(t, err)
		})
	}
}

func TestStderrMessage(t *testing.T) {
	for _, tc := range []struct {
		name     string
		lines    []string
		expected string
	}{
		{
			name:     "Segment",
			lines:    []string{"gpgkeys: HTTP fetch error 7: couldn't connect"},
			expected: "HTTP fetch error 7: couldn't connect",
		},
		{
			name:     "LastSegmentWins",
			lines:    []string{"gpgkeys: first", "noise", "gpgkeys_hkp: second"},
			expected: "second",
		},
		{
			name:     "Appended",
			lines:    []string{"something failed", "using gpg defaults"},
			expected: "something failed\nusing gpg defaults",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var m stderrMessage
			for _, l := range tc.lines {
				m.add(l)
			}
			assert.Equal(t, tc.expected, m.String())
		})
	}
}

func TestExitError(t *testing.T) {
	for _, tc := range []struct {
		status int
		code   operation.Code
	}{
		{status: 1, code: operation.Internal},
		{status: 2, code: operation.NotSupported},
		{status: 3, code: operation.Version},
		{status: 4, code: operation.ChildExit},
		{status: 5, code: operation.NoMemory},
		{status: 6, code: operation.KeyNotFound},
		{status: 7, code: operation.KeyExists},
		{status: 8, code: operation.KeyIncomplete},
		{status: 9, code: operation.Unreachable},
		{status: 42, code: operation.ChildExit},
	} {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := ExitError("gpgkeys_hkp", tc.status, "")
			code, ok := operation.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
			assert.True(t, strings.Contains(err.Error(), "gpgkeys_hkp exited with status"))
		})
	}

	var e *operation.Error
	require.True(t, errors.As(ExitError("gpgkeys_hkp", 6, " no such key \n"), &e))
	assert.Equal(t, "no such key", e.Message())
}
