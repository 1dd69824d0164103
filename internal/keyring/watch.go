package keyring

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Config struct {
	Enabled  bool          `flag:"enabled" desc:"invalidate cached key listings when the keyring changes" default:"true"`
	Debounce time.Duration `flag:"debounce" desc:"quiet period before a keyring change is acted on" default:"500ms"`
}

// files whose modification means the key listing is stale
var watched = map[string]bool{
	"pubring.kbx": true,
	"pubring.gpg": true,
	"secring.gpg": true,
	"trustdb.gpg": true,
}

type Invalidator interface {
	Invalidate()
}

// Watcher invalidates the key cache whenever gpg rewrites one of the
// keyring files in the home directory.
type Watcher struct {
	config  *Config
	homedir string
	target  Invalidator

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func New(config *Config, homedir string, target Invalidator) *Watcher {
	return &Watcher{
		config:  config,
		homedir: Homedir(homedir),
		target:  target,
		done:    make(chan struct{}),
	}
}

// Homedir resolves the gpg home directory the way gpg does, falling
// back to GNUPGHOME and then ~/.gnupg.
func Homedir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv("GNUPGHOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gnupg"
	}
	return filepath.Join(home, ".gnupg")
}

func (w *Watcher) String() string {
	return "keyring"
}

func (w *Watcher) Start() error {
	if !w.config.Enabled {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(w.homedir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.homedir, err)
	}

	slog.Info("watching keyring", "homedir", w.homedir)

	w.watcher = watcher
	w.wg.Add(1)
	go w.loop()

	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}

			slog.Debug("keyring:event", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.config.Debounce)
			fire = timer.C

		case <-fire:
			timer, fire = nil, nil

			slog.Info("keyring changed, invalidating key cache", "homedir", w.homedir)
			w.target.Invalidate()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("keyring watcher error", "err", err)
		}
	}
}

func (w *Watcher) Stop() error {
	if w.watcher == nil {
		return nil
	}

	close(w.done)
	w.wg.Wait()
	return w.watcher.Close()
}
