package key

import (
	"fmt"
	"time"
)

// Flag is the flags field of a keyserver listing record.
type Flag int

const (
	FlagRevoked Flag = 1 << iota
	FlagDisabled
	FlagExpired
)

// Record is one key returned by a keyserver search.
type Record struct {
	Fingerprint string    `json:"fingerprint"`
	UserID      string    `json:"userId"`
	Flags       Flag      `json:"flags"`
	Created     time.Time `json:"created"`
	Expires     time.Time `json:"expires,omitzero"`
	Algo        Algo      `json:"algo"`
	Length      int       `json:"length"`
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(fingerprint=%s, userId=%s)", r.Fingerprint, r.UserID)
}

func (r *Record) Revoked() bool {
	return r.Flags&FlagRevoked != 0
}

func (r *Record) Disabled() bool {
	return r.Flags&FlagDisabled != 0
}

// Expired reports the expired flag, or an expiry that has passed.
func (r *Record) Expired() bool {
	if r.Flags&FlagExpired != 0 {
		return true
	}
	return !r.Expires.IsZero() && r.Expires.Before(time.Now())
}
