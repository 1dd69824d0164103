package key

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OwnerTrust int

// values match the numbers gpg's edit_ownertrust.value prompt expects
const (
	TrustUnknown OwnerTrust = iota + 1
	TrustNever
	TrustMarginal
	TrustFull
	TrustUltimate
)

func (t OwnerTrust) String() string {
	switch t {
	case TrustUnknown:
		return "unknown"
	case TrustNever:
		return "never"
	case TrustMarginal:
		return "marginal"
	case TrustFull:
		return "full"
	case TrustUltimate:
		return "ultimate"
	default:
		panic(fmt.Sprintf("invalid owner trust: %d", t))
	}
}

func (t OwnerTrust) Valid() bool {
	return t >= TrustUnknown && t <= TrustUltimate
}

func ParseOwnerTrust(s string) (OwnerTrust, error) {
	switch strings.ToLower(s) {
	case "unknown", "1":
		return TrustUnknown, nil
	case "never", "2":
		return TrustNever, nil
	case "marginal", "3":
		return TrustMarginal, nil
	case "full", "4":
		return TrustFull, nil
	case "ultimate", "5":
		return TrustUltimate, nil
	default:
		return 0, fmt.Errorf("unrecognized owner trust: %s", s)
	}
}

func (t OwnerTrust) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return json.Marshal(nil)
	}
	return json.Marshal(t.String())
}

func (t *OwnerTrust) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseOwnerTrust(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Algo int

const (
	AlgoUnknown Algo = iota
	AlgoRSA
	AlgoDSA
	AlgoElgamal
	AlgoECDH
	AlgoECDSA
	AlgoEdDSA
)

func (a Algo) String() string {
	switch a {
	case AlgoRSA:
		return "RSA"
	case AlgoDSA:
		return "DSA"
	case AlgoElgamal:
		return "ElGamal"
	case AlgoECDH:
		return "ECDH"
	case AlgoECDSA:
		return "ECDSA"
	case AlgoEdDSA:
		return "EdDSA"
	default:
		return "unknown"
	}
}

func (a Algo) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// algoFromID maps the OpenPGP public key algorithm number.
func algoFromID(id string) Algo {
	switch id {
	case "1", "2", "3":
		return AlgoRSA
	case "16", "20":
		return AlgoElgamal
	case "17":
		return AlgoDSA
	case "18":
		return AlgoECDH
	case "19":
		return AlgoECDSA
	case "22":
		return AlgoEdDSA
	default:
		return AlgoUnknown
	}
}

type UID struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Revoked  bool   `json:"revoked"`
	Invalid  bool   `json:"invalid"`
	Photo    bool   `json:"photo"`
	Validity string `json:"validity,omitempty"`
}

func (u UID) String() string {
	if u.Photo {
		return "[photo]"
	}
	return FormatUserID(u.Name, u.Email, u.Comment)
}

type Subkey struct {
	Index       int       `json:"index"`
	KeyID       string    `json:"keyId"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Algo        Algo      `json:"algo"`
	Length      int       `json:"length"`
	Created     time.Time `json:"created"`
	Expires     time.Time `json:"expires,omitzero"`
	Revoked     bool      `json:"revoked"`
	Expired     bool      `json:"expired"`
}

type Key struct {
	Fingerprint string     `json:"fingerprint"`
	KeyID       string     `json:"keyId"`
	Algo        Algo       `json:"algo"`
	Length      int        `json:"length"`
	Created     time.Time  `json:"created"`
	Expires     time.Time  `json:"expires,omitzero"`
	Trust       OwnerTrust `json:"trust"`
	Validity    string     `json:"validity,omitempty"`
	Secret      bool       `json:"secret"`
	Disabled    bool       `json:"disabled"`
	Revoked     bool       `json:"revoked"`
	Expired     bool       `json:"expired"`
	UIDs        []UID      `json:"uids"`
	Subkeys     []Subkey   `json:"subkeys,omitempty"`
}

func (k *Key) String() string {
	return fmt.Sprintf("Key(fingerprint=%s, uids=%d, subkeys=%d)", k.Fingerprint, len(k.UIDs), len(k.Subkeys))
}

// UID returns the user id at the 1-based index used by gpg --edit-key.
func (k *Key) UID(index int) (*UID, bool) {
	if index < 1 || index > len(k.UIDs) {
		return nil, false
	}
	return &k.UIDs[index-1], true
}

// Subkey returns the subkey at the 1-based index used by gpg --edit-key.
func (k *Key) Subkey(index int) (*Subkey, bool) {
	if index < 1 || index > len(k.Subkeys) {
		return nil, false
	}
	return &k.Subkeys[index-1], true
}

// Name is the first non photo user id.
func (k *Key) Name() string {
	for _, uid := range k.UIDs {
		if !uid.Photo {
			return uid.String()
		}
	}
	return ""
}

func (k *Key) Photos() int {
	n := 0
	for _, uid := range k.UIDs {
		if uid.Photo {
			n++
		}
	}
	return n
}

// Matches reports whether id is this key's fingerprint or a suffix of
// it, the way gpg accepts short and long key ids.
func (k *Key) Matches(id string) bool {
	id = strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X"))
	return id != "" && strings.HasSuffix(strings.ToUpper(k.Fingerprint), id)
}

// ParseUserID splits "Name (Comment) <email>".
func ParseUserID(s string) (name string, email string, comment string) {
	s = strings.TrimSpace(s)

	if i := strings.LastIndex(s, "<"); i >= 0 && strings.HasSuffix(s, ">") {
		email = s[i+1 : len(s)-1]
		s = strings.TrimSpace(s[:i])
	}

	if strings.HasSuffix(s, ")") {
		if i := strings.LastIndex(s, "("); i >= 0 {
			comment = s[i+1 : len(s)-1]
			s = strings.TrimSpace(s[:i])
		}
	}

	return s, email, comment
}

func FormatUserID(name string, email string, comment string) string {
	var b strings.Builder
	b.WriteString(name)
	if comment != "" {
		fmt.Fprintf(&b, " (%s)", comment)
	}
	if email != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "<%s>", email)
	}
	return b.String()
}
