package keyops

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// Service runs key listings, imports and edits against the local
// keyring. Every edit validates its arguments first and returns a done
// operation without starting gpg when they are wrong.
type Service struct {
	config   *edit.Config
	launcher proc.Launcher
	editor   *edit.Editor
	metrics  *metrics.Metrics
	cache    *cache

	mu       sync.Mutex
	keyTypes *edit.KeyTypeTable
}

func New(config *edit.Config, launcher proc.Launcher, metrics *metrics.Metrics) *Service {
	return &Service{
		config:   config,
		launcher: launcher,
		editor:   edit.New(config, launcher, metrics),
		metrics:  metrics,
		cache:    &cache{keys: map[bool][]key.Key{}},
	}
}

type cache struct {
	mu   sync.Mutex
	keys map[bool][]key.Key
}

func (c *cache) get(secret bool) ([]key.Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.keys[secret]
	return keys, ok
}

func (c *cache) set(secret bool, keys []key.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[secret] = keys
}

// Invalidate drops cached listings, the next ListKeys asks gpg again.
func (s *Service) Invalidate() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if len(s.cache.keys) > 0 {
		slog.Debug("keyops:invalidate")
	}
	clear(s.cache.keys)
}

// ListKeys returns the public keys, or the secret keys when secret is
// set, in keyring order.
func (s *Service) ListKeys(ctx context.Context, secret bool) ([]key.Key, error) {
	if keys, ok := s.cache.get(secret); ok {
		return keys, nil
	}

	list := "--list-keys"
	if secret {
		list = "--list-secret-keys"
	}

	p, err := s.launcher.Launch(ctx, proc.Spec{
		Path: s.config.Binary,
		Args: s.config.Args("--fixed-list-mode", "--with-fingerprint", "--with-fingerprint", list),
	})
	if err != nil {
		return nil, operation.NewError(operation.Spawn, s.config.Binary, err)
	}

	stderr := drain(p.Stderr())
	keys, perr := key.ParseColons(p.Stdout())
	if perr != nil {
		_ = p.Terminate()
	}
	_, _ = io.Copy(io.Discard, p.Stdout())

	code, werr := p.Wait()
	msg := <-stderr

	switch {
	case perr != nil:
		return nil, operation.NewError(operation.Protocol, "parse key listing", perr)
	case werr != nil:
		return nil, operation.NewError(operation.ChildExit, s.config.Binary, werr)
	case code != 0 && !(code == 2 && len(keys) > 0):
		// gpg exits 2 when some keys in the ring could not be read
		return nil, operation.Errorf(operation.ChildExit, "%s exited with status %d: %s", s.config.Binary, code, msg)
	}

	s.cache.set(secret, keys)
	return keys, nil
}

func drain(r io.Reader) <-chan string {
	ch := make(chan string, 1)
	go func() {
		var b bytes.Buffer
		_, _ = io.Copy(&b, r)
		ch <- strings.TrimSpace(b.String())
	}()
	return ch
}

// Key finds the public key matching id, a fingerprint or key id, and
// marks it secret when the secret part is present.
func (s *Service) Key(ctx context.Context, id string) (*key.Key, error) {
	keys, err := s.ListKeys(ctx, false)
	if err != nil {
		return nil, err
	}

	var found *key.Key
	for i := range keys {
		if keys[i].Matches(id) {
			k := keys[i]
			found = &k
			break
		}
	}
	if found == nil {
		return nil, operation.Errorf(operation.KeyNotFound, "no key matches %s", id)
	}

	secrets, err := s.ListKeys(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, sk := range secrets {
		if sk.Fingerprint == found.Fingerprint {
			found.Secret = true
			break
		}
	}

	return found, nil
}

func (s *Service) complete(kind string, err error) operation.Operation {
	op := operation.NewComplete(kind, err)
	s.metrics.Track(op)
	return op
}

// KeyTypes asks gpg for its version once and returns the matching
// addkey menu.
func (s *Service) KeyTypes(ctx context.Context) (*edit.KeyTypeTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyTypes != nil {
		return s.keyTypes, nil
	}

	p, err := s.launcher.Launch(ctx, proc.Spec{Path: s.config.Binary, Args: []string{"--version"}})
	if err != nil {
		return nil, operation.NewError(operation.Spawn, s.config.Binary, err)
	}

	stderr := drain(p.Stderr())
	out := <-drain(p.Stdout())
	code, werr := p.Wait()
	msg := <-stderr

	switch {
	case werr != nil:
		return nil, operation.NewError(operation.ChildExit, s.config.Binary, werr)
	case code != 0:
		return nil, operation.Errorf(operation.ChildExit, "%s --version exited with status %d: %s", s.config.Binary, code, msg)
	}

	// gpg (GnuPG) 2.2.27
	first, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return nil, operation.Errorf(operation.Protocol, "empty %s --version output", s.config.Binary)
	}

	table, err := edit.KeyTypes(fields[len(fields)-1])
	if err != nil {
		return nil, operation.NewError(operation.Protocol, "parse gpg version", err)
	}

	slog.Debug("keyops:version", "binary", s.config.Binary, "version", fields[len(fields)-1])
	s.keyTypes = table
	return table, nil
}
