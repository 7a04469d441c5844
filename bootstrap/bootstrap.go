// Package bootstrap wires configuration, storage and services into a
// runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/maintforms/adapters/bbolt"
	"github.com/artpar/maintforms/adapters/clock"
	"github.com/artpar/maintforms/adapters/hasher"
	apihttp "github.com/artpar/maintforms/adapters/http"
	"github.com/artpar/maintforms/adapters/idgen"
	"github.com/artpar/maintforms/adapters/memory"
	"github.com/artpar/maintforms/adapters/metrics"
	"github.com/artpar/maintforms/adapters/sqlite"
	"github.com/artpar/maintforms/app"
	"github.com/artpar/maintforms/config"
	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Holder     *config.Holder // nil when configured from the environment only
	KV         ports.KVStore
	Audit      ports.AuditLog
	Metrics    *metrics.Collector
	Store      *app.SchemaStore
	Registry   *app.Registry
	Forms      *app.FormService
	HTTPServer *http.Server

	promRegistry *prometheus.Registry
	closers      []io.Closer
}

// Options controls application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration is read from MAINTFORMS_* environment variables.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// Watch enables config hot reload via fsnotify and SIGHUP.
	Watch bool

	// LogOutput overrides where logs are written (default: stderr).
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	a := &App{
		Config: cfg,
		Logger: NewLogger(cfg.Logging, out),
	}
	a.Logger.Info().Str("storage", cfg.Storage.Driver).Msg("initializing maintforms")

	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, a.Logger)
			if err != nil {
				return nil, err
			}
			a.Holder = holder
		}
	}

	a.promRegistry = prometheus.NewRegistry()
	a.Metrics = metrics.NewWithRegistry(a.promRegistry)

	if err := a.initStorage(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := a.initServices(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init services: %w", err)
	}
	a.initHTTPServer(opts.Version)

	if a.Holder != nil {
		a.Holder.OnChange(a.applyConfig)
		a.Holder.OnReloadError(func(error) { a.Metrics.ConfigReloadErrors.Inc() })
		if opts.Watch {
			if err := a.Holder.WatchFile(); err != nil {
				a.Logger.Warn().Err(err).Msg("config file watch unavailable")
			}
			a.Holder.WatchSignals()
		}
	}

	return a, nil
}

// NewLogger builds the application logger from the logging config.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func (a *App) initStorage() error {
	cfg := a.Config.Storage

	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db)
		if err := db.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.KV = sqlite.NewKVStore(db)
		a.Audit = sqlite.NewAuditStore(db)

	case "bolt":
		store, err := bbolt.Open(cfg.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		a.KV = store
		a.Audit = store.AuditLog()

	case "memory":
		a.KV = memory.NewKVStore()
		a.Audit = memory.NewAuditLog()

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	a.Logger.Info().Str("driver", cfg.Driver).Str("dsn", cfg.DSN).Msg("storage initialized")
	return nil
}

func (a *App) initServices() error {
	schema := field.DefaultSchema()
	if path := a.Config.Fields.SchemaFile; path != "" {
		loaded, err := field.ParseSchemaFile(path)
		if err != nil {
			return fmt.Errorf("load schema file: %w", err)
		}
		schema = loaded
		a.Logger.Info().Str("path", path).Msg("system schema loaded from file")
	}

	policy, err := app.ParsePolicy(a.Config.Fields.SystemFieldPolicy)
	if err != nil {
		return err
	}

	a.Store = app.NewSchemaStore(schema, a.KV, a.Logger, a.Metrics)
	a.Registry = app.NewRegistry(app.RegistryDeps{
		Store:   a.Store,
		IDs:     idgen.TimeOrdered{},
		Clock:   clock.Real{},
		Audit:   a.Audit,
		Policy:  policy,
		Logger:  a.Logger,
		Metrics: a.Metrics,
	})
	a.Forms = app.NewFormService(a.Registry, app.NewKVEquipmentOptions(a.KV), a.Logger)

	// Prime the custom field gauges.
	overlay, err := a.Store.LoadOverlay(context.Background())
	if err != nil {
		return err
	}
	for _, m := range field.AllModules() {
		a.Metrics.SetCustomFields(string(m), len(overlay[m]))
	}
	return nil
}

func (a *App) initHTTPServer(version string) {
	cfg := a.Config

	routerCfg := apihttp.RouterConfig{
		Metrics:    a.Metrics,
		AdminGuard: apihttp.NewAdminKeyMiddleware(hasher.NewBcrypt(0), cfg.Admin.APIKeyHash, a.Logger),
		Version:    version,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})
	}
	if cfg.Admin.APIKeyHash == "" {
		a.Logger.Warn().Msg("admin.api_key_hash not set, schema changes are unauthenticated")
	}

	router := apihttp.NewRouter(apihttp.NewFieldsHandler(a.Registry, a.Forms, a.Logger), a.Logger, routerCfg)
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "/metrics" {
		router.Handle(cfg.Metrics.Path, routerCfg.MetricsHandler)
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// applyConfig applies the reloadable settings of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if policy, err := app.ParsePolicy(cfg.Fields.SystemFieldPolicy); err == nil {
		a.Registry.SetPolicy(policy)
	}
	a.Metrics.ConfigReloads.Inc()
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Close()
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// Close releases storage and stops config watchers without touching the
// HTTP server. CLI commands use it instead of Shutdown.
func (a *App) Close() {
	if a.Holder != nil {
		a.Holder.Stop()
		a.Holder = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Error().Err(err).Msg("close error")
		}
	}
	a.closers = nil
}
