// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay coalesces the event bursts editors produce on a single save.
const reloadDelay = 100 * time.Millisecond

// Holder owns the live configuration of a file-configured process. Readers
// call Get; reloads swap the whole *Config and notify listeners.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
	onError  []func(error)

	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a holder for it. Nothing is watched until
// WatchFile or WatchSignals is called.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		logger: logger.With().Str("config", absPath).Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// OnChange registers fn to run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReloadError registers fn to run when a reload is rejected.
func (h *Holder) OnReloadError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

// Reload reads the file again. An invalid file leaves the current
// configuration in place and is reported to OnReloadError listeners.
func (h *Holder) Reload() error {
	next, err := Load(h.path)
	if err != nil {
		h.mu.RLock()
		listeners := append(([]func(error))(nil), h.onError...)
		h.mu.RUnlock()

		for _, fn := range listeners {
			fn(err)
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.config
	h.config = next
	listeners := append(([]func(*Config))(nil), h.onChange...)
	h.mu.Unlock()

	h.logChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// reloadFrom runs Reload on behalf of a watcher and logs the outcome.
func (h *Holder) reloadFrom(source string) {
	if err := h.Reload(); err != nil {
		h.logger.Error().Err(err).Str("source", source).Msg("config reload rejected, keeping current config")
		return
	}
	h.logger.Info().Str("source", source).Msg("config reloaded")
}

// WatchFile reloads whenever the config file is written or replaced.
// The directory is watched so atomic renames by editors are seen.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = w

	go h.watchFile(w)
	h.logger.Info().Msg("watching config file")
	return nil
}

func (h *Holder) watchFile(w *fsnotify.Watcher) {
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != h.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				pending = time.After(reloadDelay)
			}
		case <-pending:
			pending = nil
			h.reloadFrom("file")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher error")
		case <-h.stopCh:
			return
		}
	}
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-sig:
				h.reloadFrom("sighup")
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) logChanges(prev, next *Config) {
	for _, key := range ReloadableFields() {
		if a, b := settingValue(prev, key), settingValue(next, key); a != b {
			h.logger.Info().Str("key", key).Str("old", a).Str("new", b).Msg("setting changed")
		}
	}
	// Values are not logged: admin.api_key_hash is among them.
	for _, key := range NonReloadableFields() {
		if settingValue(prev, key) != settingValue(next, key) {
			h.logger.Warn().Str("key", key).Msg("setting changed on disk but requires a restart")
		}
	}
}

func settingValue(cfg *Config, key string) string {
	switch key {
	case "logging.level":
		return cfg.Logging.Level
	case "fields.system_field_policy":
		return cfg.Fields.SystemFieldPolicy
	case "server.host":
		return cfg.Server.Host
	case "server.port":
		return fmt.Sprint(cfg.Server.Port)
	case "storage.driver":
		return cfg.Storage.Driver
	case "storage.dsn":
		return cfg.Storage.DSN
	case "fields.schema_file":
		return cfg.Fields.SchemaFile
	case "admin.api_key_hash":
		return cfg.Admin.APIKeyHash
	}
	return ""
}

// ReloadableFields lists the settings applied without a restart.
func ReloadableFields() []string {
	return []string{
		"logging.level",
		"fields.system_field_policy",
	}
}

// NonReloadableFields lists the settings read only at startup.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"storage.driver",
		"storage.dsn",
		"fields.schema_file",
		"admin.api_key_hash",
	}
}
