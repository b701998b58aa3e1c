// Package bootstrap wires up the application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/faktion/registry/adapters/catalogfile"
	"github.com/faktion/registry/adapters/clock"
	"github.com/faktion/registry/adapters/filesource"
	apihttp "github.com/faktion/registry/adapters/http"
	"github.com/faktion/registry/adapters/idgen"
	"github.com/faktion/registry/adapters/metrics"
	"github.com/faktion/registry/app"
	"github.com/faktion/registry/config"
	"github.com/faktion/registry/domain/catalog"
	"github.com/faktion/registry/domain/schema"
	"github.com/faktion/registry/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options carries build information into the application.
type Options struct {
	Version string
	Output  io.Writer // log destination, default os.Stdout
}

// App is the main application container.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	*Components

	registry *prometheus.Registry
	holder   *config.Holder
}

// Components are the services shared by the server and the CLI.
type Components struct {
	Catalog      *catalog.Catalog
	Files        ports.FileSource
	Distribution *app.DistributionService
	Recipes      *app.RecipeService

	// FilesHealth is set when the file backend can report readiness.
	FilesHealth ports.HealthChecker
}

// New creates the application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates the application with build options.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	logger := SetupLogger(cfg.Logging, opts.Output)

	components, err := Build(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Logger:     logger,
		Config:     cfg,
		Components: components,
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.registry)
	}

	a.initHTTPServer(opts.Version)
	return a, nil
}

// NewWithHotReload creates the application and watches the config file.
// Only logging.level is applied on reload; other changes are logged and
// wait for a restart.
func NewWithHotReload(path string, opts Options) (*App, error) {
	bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	holder, err := config.NewHolder(path, bootLogger)
	if err != nil {
		return nil, err
	}

	a, err := NewWithOptions(holder.Get(), opts)
	if err != nil {
		return nil, err
	}
	a.attachHolder(holder)

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) attachHolder(holder *config.Holder) {
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		applyLogLevel(cfg.Logging.Level)
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
			a.Metrics.ConfigLastReload.SetToCurrentTime()
		}
	})
	holder.OnReloadError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
}

// Build loads the catalog and creates the services for cfg.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Components, error) {
	cat, err := LoadCatalog(ctx, cfg.Catalog.Path, logger)
	if err != nil {
		return nil, err
	}

	files, health, err := NewFileSource(cfg.Files)
	if err != nil {
		return nil, err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("compile registry schema: %w", err)
	}

	if cfg.Auth.Token == "" {
		logger.Warn().Msg("auth.token is not set, every distribution request will be rejected")
	}

	distribution := app.NewDistributionService(app.DistributionDeps{
		Catalog:   cat,
		Validator: validator,
		Files:     files,
		Clock:     clock.Real{},
	}, app.DistributionConfig{
		Secret:         cfg.Auth.Token,
		MaxConcurrency: cfg.Files.MaxConcurrency,
	})

	logger.Info().
		Str("catalog", cfg.Catalog.Path).
		Int("items", cat.Len()).
		Str("backend", cfg.Files.Backend).
		Int("recipes", len(cfg.Recipes)).
		Msg("registry loaded")

	return &Components{
		Catalog:      cat,
		Files:        files,
		FilesHealth:  health,
		Distribution: distribution,
		Recipes:      app.NewRecipeService(cfg.Recipes, files),
	}, nil
}

// LoadCatalog reads and indexes the registry document at path.
func LoadCatalog(ctx context.Context, path string, logger zerolog.Logger) (*catalog.Catalog, error) {
	idx, err := catalogfile.New(path).Load(ctx)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(idx)
	if err != nil {
		return nil, fmt.Errorf("index catalog %s: %w", path, err)
	}
	if n := cat.Unnamed(); n > 0 {
		logger.Warn().Int("count", n).Str("catalog", path).Msg("skipped catalog entries without a name")
	}
	return cat, nil
}

// NewFileSource creates the configured file backend. The health checker is
// nil for backends that are always ready.
func NewFileSource(cfg config.FilesConfig) (ports.FileSource, ports.HealthChecker, error) {
	switch cfg.Backend {
	case config.BackendS3:
		obj, err := filesource.NewObject(filesource.ObjectConfig{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("object file source: %w", err)
		}
		return obj, obj, nil
	default:
		return filesource.NewLocal(cfg.Root), nil, nil
	}
}

func (a *App) initHTTPServer(version string) {
	cfg := a.Config

	registry := apihttp.NewRegistryHandlerWithMetrics(a.Distribution, a.Logger, a.Metrics)

	checkers := map[string]ports.HealthChecker{}
	if a.FilesHealth != nil {
		checkers["files"] = a.FilesHealth
	}
	health := apihttp.NewHealthHandler(a.Catalog, checkers)

	routerCfg := apihttp.RouterConfig{
		Metrics:         a.Metrics,
		MetricsPath:     cfg.Metrics.Path,
		IDGenerator:     idgen.UUID{},
		Categories:      apihttp.NewCategoriesHandler(a.Catalog),
		Version:         version,
		Timeout:         cfg.Server.RequestTimeout,
		Compress:        cfg.Server.CompressEnabled(),
		CompressMinSize: cfg.Server.CompressMinSize,
	}
	if a.registry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}
	if len(cfg.Recipes) > 0 {
		routerCfg.Recipes = apihttp.NewRecipeHandler(a.Recipes, a.Logger)
	}

	router := apihttp.NewRouterWithConfig(registry, health, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop config watchers
	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger creates the process logger from config. A nil out writes to
// os.Stdout.
func SetupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	applyLogLevel(cfg.Level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func applyLogLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
