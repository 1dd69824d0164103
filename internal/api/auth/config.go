package auth

import "time"

type Config struct {
	Provider string            `flag:"provider" desc:"auth provider to use (basic,jwt), empty disables auth"`
	Basic    map[string]string `flag:"basic" desc:"http basic auth username password pairs"`
	// ReadOnly lists basic auth users that may only read.
	ReadOnly []string  `flag:"read-only" desc:"basic auth users limited to reads"`
	JWT      JWTConfig `flag:"jwt" desc:"jwt auth settings"`
}

type JWTConfig struct {
	Algorithm string        `flag:"algorithm" desc:"jwt signing algorithm" default:"HS256"`
	Audience  []string      `flag:"audience" desc:"expected jwt audiences"`
	Issuer    string        `flag:"issuer" desc:"expected jwt issuer"`
	Key       string        `flag:"key" desc:"jwt verification key or shared secret"`
	KeyFile   string        `flag:"key-file" desc:"path to jwt verification key or shared secret"`
	ClockSkew time.Duration `flag:"clock-skew" desc:"clock skew tolerance when validating tokens" default:"30s"`
}
