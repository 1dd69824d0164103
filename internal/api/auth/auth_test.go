package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuthenticator(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{Basic: map[string]string{"alice": "secret", " bob ": "hunter2"}, ReadOnly: []string{"bob"}})
	require.NoError(t, err)
	require.NotNil(t, a)

	for _, tc := range []struct {
		name     string
		user     string
		pass     string
		scopes   []string
		rejected bool
	}{
		{name: "ReadWrite", user: "alice", pass: "secret", scopes: []string{ScopeRead, ScopeWrite}},
		{name: "ReadOnly", user: "bob", pass: "hunter2", scopes: []string{ScopeRead}},
		{name: "WrongPassword", user: "alice", pass: "wrong", rejected: true},
		{name: "UnknownUser", user: "mallory", pass: "secret", rejected: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth(tc.user, tc.pass)

			identity, authErr := a.Authenticate(req)
			if tc.rejected {
				require.NotNil(t, authErr)
				assert.Equal(t, http.StatusUnauthorized, authErr.Status)
				return
			}

			require.Nil(t, authErr)
			assert.Equal(t, tc.user, identity.Subject)
			assert.Equal(t, tc.scopes, identity.Scopes)
		})
	}
}

func TestNewAuthenticator(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{})
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = New(&Config{Provider: "basic"})
	assert.Error(t, err)

	_, err = New(&Config{Provider: "kerberos"})
	assert.Error(t, err)

	_, err = New(&Config{Provider: "jwt"})
	assert.Error(t, err)
}

func TestJWTAuthenticator(t *testing.T) {
	t.Parallel()

	cfg := &Config{Provider: "jwt", JWT: JWTConfig{Algorithm: "HS256", Issuer: "seahorse", Audience: []string{"seahorse"}, Key: "secret", ClockSkew: time.Second}}
	a, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, cfg.JWT, "alice", "keys:read keys:write"))
	identity, authErr := a.Authenticate(req)
	require.Nil(t, authErr)
	assert.Equal(t, "alice", identity.Subject)
	assert.True(t, identity.Can(ScopeWrite))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		_, authErr := a.Authenticate(req)
		require.NotNil(t, authErr, header)
		assert.Equal(t, http.StatusUnauthorized, authErr.Status)
		assert.Equal(t, "Bearer", authErr.Headers["WWW-Authenticate"])
	}
}

func TestGinMiddleware(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{Basic: map[string]string{"alice": "secret", "bob": "hunter2"}, ReadOnly: []string{"bob"}})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(a))
	router.GET("/keys", RequireScope(ScopeRead), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/keys", RequireScope(ScopeWrite), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tc := range []struct {
		name   string
		method string
		user   string
		status int
	}{
		{name: "Anonymous", method: http.MethodGet, status: http.StatusUnauthorized},
		{name: "Read", method: http.MethodGet, user: "bob", status: http.StatusOK},
		{name: "ReadOnlyWrite", method: http.MethodPost, user: "bob", status: http.StatusForbidden},
		{name: "Write", method: http.MethodPost, user: "alice", status: http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "/keys", nil)
			if tc.user != "" {
				req.SetBasicAuth(tc.user, map[string]string{"alice": "secret", "bob": "hunter2"}[tc.user])
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestProtect(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{Basic: map[string]string{"alice": "secret"}})
	require.NoError(t, err)

	h := Protect(a, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("alice", "secret")
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func issueTestToken(t *testing.T, cfg JWTConfig, subject string, scope string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   subject,
		"iss":   cfg.Issuer,
		"aud":   cfg.Audience,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Minute).Unix(),
		"scope": scope,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Key))
	require.NoError(t, err)

	return signed
}
