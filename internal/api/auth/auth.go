package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextIdentityKey = "auth.identity"

// Scopes granted to a caller. Listing keys and reading operations needs
// read, starting keyserver fetches or key edits needs write.
const (
	ScopeRead  = "keys:read"
	ScopeWrite = "keys:write"
)

type Identity struct {
	Subject string
	Scopes  []string
	Claims  jwt.MapClaims
}

func (i *Identity) Can(scope string) bool {
	return i == nil || slices.Contains(i.Scopes, scope)
}

type Error struct {
	Status  int
	Message string
	Headers map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Write(w http.ResponseWriter) {
	for _, key := range slices.Sorted(maps.Keys(e.Headers)) {
		w.Header().Set(key, e.Headers[key])
	}
	http.Error(w, e.Error(), e.Status)
}

type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, *Error)
}

// New returns nil when authentication is disabled.
func New(cfg *Config) (Authenticator, error) {
	if cfg == nil {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" && len(cfg.Basic) > 0 {
		provider = "basic"
	}

	switch provider {
	case "":
		return nil, nil
	case "basic":
		if len(cfg.Basic) == 0 {
			return nil, errors.New("basic auth provider requires credentials")
		}
		return newBasicAuthenticator(cfg.Basic, cfg.ReadOnly), nil
	case "jwt":
		return newJWTAuthenticator(&cfg.JWT)
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.Provider)
	}
}

// GinMiddleware authenticates every request and stores the identity in
// the gin context. A nil authenticator lets everything through.
func GinMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}

		identity, err := a.Authenticate(c.Request)
		if err != nil {
			err.Write(c.Writer)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// RequireScope aborts with 403 unless the authenticated caller holds
// scope. Without authentication every scope is granted.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ContextIdentityKey)
		if !ok {
			c.Next()
			return
		}

		if identity, _ := v.(*Identity); !identity.Can(scope) {
			(&Error{Status: http.StatusForbidden, Message: fmt.Sprintf("missing scope %s", scope)}).Write(c.Writer)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Protect wraps a plain handler, used for the metrics endpoint.
func Protect(a Authenticator, next http.Handler) http.Handler {
	if a == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.Authenticate(r); err != nil {
			err.Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loadKeyMaterial(cfg *JWTConfig) ([]byte, error) {
	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt key file: %w", err)
		}
		return data, nil
	}
	if cfg.Key != "" {
		return []byte(cfg.Key), nil
	}
	return nil, errors.New("jwt key or key-file must be provided")
}

func signingKey(algorithm string, material []byte) (any, error) {
	switch algorithm {
	case jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg():
		return material, nil
	case jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg():
		return jwt.ParseRSAPublicKeyFromPEM(material)
	case jwt.SigningMethodES256.Alg(), jwt.SigningMethodES384.Alg(), jwt.SigningMethodES512.Alg():
		return jwt.ParseECPublicKeyFromPEM(material)
	case jwt.SigningMethodEdDSA.Alg():
		return jwt.ParseEdPublicKeyFromPEM(material)
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
}

func parserOptions(cfg *JWTConfig) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.Algorithm}),
	}
	if cfg.ClockSkew > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.ClockSkew))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audience...))
	}
	return opts
}

func bearerUnauthorized(message string, cause error) *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Message: message,
		Headers: map[string]string{"WWW-Authenticate": "Bearer"},
		Err:     cause,
	}
}

func basicUnauthorized(cause error) *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Message: "unauthorized",
		Headers: map[string]string{"WWW-Authenticate": `Basic realm="seahorse"`},
		Err:     cause,
	}
}

type basicAuthenticator struct {
	credentials map[string]string
	readOnly    map[string]bool
}

func newBasicAuthenticator(credentials map[string]string, readOnly []string) Authenticator {
	a := &basicAuthenticator{
		credentials: map[string]string{},
		readOnly:    map[string]bool{},
	}
	for user, pass := range credentials {
		if user = strings.TrimSpace(user); user != "" {
			a.credentials[user] = pass
		}
	}
	for _, user := range readOnly {
		a.readOnly[strings.TrimSpace(user)] = true
	}
	return a
}

func (a *basicAuthenticator) Authenticate(r *http.Request) (*Identity, *Error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, basicUnauthorized(errors.New("missing basic auth header"))
	}

	expected, exists := a.credentials[username]
	if !exists || subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 {
		return nil, basicUnauthorized(errors.New("invalid credentials"))
	}

	scopes := []string{ScopeRead, ScopeWrite}
	if a.readOnly[username] {
		scopes = []string{ScopeRead}
	}

	return &Identity{Subject: username, Scopes: scopes}, nil
}

type jwtAuthenticator struct {
	key    any
	parser *jwt.Parser
}

func newJWTAuthenticator(cfg *JWTConfig) (Authenticator, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Name
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown jwt signing algorithm %q", algorithm)
	}
	cfg.Algorithm = method.Alg()

	material, err := loadKeyMaterial(cfg)
	if err != nil {
		return nil, err
	}
	key, err := signingKey(cfg.Algorithm, material)
	if err != nil {
		return nil, err
	}

	return &jwtAuthenticator{
		key:    key,
		parser: jwt.NewParser(parserOptions(cfg)...),
	}, nil
}

func (a *jwtAuthenticator) Authenticate(r *http.Request) (*Identity, *Error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, bearerUnauthorized("missing authorization header", errors.New("missing authorization header"))
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, bearerUnauthorized("invalid authorization header", errors.New("expected bearer token"))
	}

	parsed, err := a.parser.ParseWithClaims(token, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return a.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, bearerUnauthorized("invalid token", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, bearerUnauthorized("invalid token", errors.New("token claims unexpected"))
	}

	subject, _ := claims["sub"].(string)

	// scope is a space separated list, as in oauth2
	scope, _ := claims["scope"].(string)

	return &Identity{Subject: subject, Scopes: strings.Fields(scope), Claims: claims}, nil
}
