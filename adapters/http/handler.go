// Package http provides HTTP handlers for the registry service.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/faktion/registry/adapters/metrics"
	"github.com/faktion/registry/app"
	"github.com/faktion/registry/domain/auth"
	"github.com/faktion/registry/domain/catalog"
	"github.com/faktion/registry/domain/distribution"
	"github.com/faktion/registry/domain/recipe"
	"github.com/faktion/registry/pkg/httpjson"
	"github.com/faktion/registry/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

// TokenQueryParam is the query parameter accepted in place of the
// Authorization header.
const TokenQueryParam = "token"

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// RegistryHandler serves bundled catalog items.
type RegistryHandler struct {
	service *app.DistributionService
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(service *app.DistributionService, logger zerolog.Logger) *RegistryHandler {
	return &RegistryHandler{
		service: service,
		logger:  logger,
	}
}

// NewRegistryHandlerWithMetrics creates a new registry handler with metrics.
func NewRegistryHandlerWithMetrics(service *app.DistributionService, logger zerolog.Logger, m *metrics.Collector) *RegistryHandler {
	return &RegistryHandler{
		service: service,
		logger:  logger,
		metrics: m,
	}
}

// ServeHTTP handles GET /r/{name} and its aliases.
func (h *RegistryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := distribution.Request{
		Name:       chi.URLParam(r, "name"),
		Credential: auth.ExtractCredential(r.Header.Get("Authorization"), r.URL.Query().Get(TokenQueryParam)),
		RemoteIP:   r.RemoteAddr,
		TraceID:    middleware.GetReqID(ctx),
	}

	result := h.service.Handle(ctx, req)
	h.record(result)

	if result.Error != nil {
		h.logFailure(req, result)
		httpjson.WriteError(w, result.Error.Status, result.Error.Message)
		return
	}

	var payload any = result.Item
	if result.Index != nil {
		payload = result.Index
	}

	body, err := httpjson.Encode(payload)
	if err != nil {
		// Encoding happens after the pipeline finished, so it is reported
		// as an assembling failure.
		result.Stage = distribution.StageAssembling
		result.Error = &distribution.ErrInternal
		result.Cause = fmt.Errorf("encode bundle: %w", err)
		h.logFailure(req, result)
		httpjson.WriteError(w, result.Error.Status, result.Error.Message)
		return
	}

	w.Header().Set("ETag", ETag(body))
	httpjson.WriteBody(w, http.StatusOK, body)

	h.logger.Info().
		Str("item", req.Name).
		Int("files", result.ResolvedFiles).
		Dur("resolve_duration", result.ResolveDuration).
		Str("request_id", req.TraceID).
		Msg("item served")
}

func (h *RegistryHandler) logFailure(req distribution.Request, result app.HandleResult) {
	event := h.logger.Warn()
	if result.Error.Status >= 500 {
		event = h.logger.Error()
	}

	event.
		Str("item", req.Name).
		Str("stage", string(result.Stage)).
		Int("status", result.Error.Status).
		Str("kind", string(result.Error.Kind)).
		Str("remote_ip", req.RemoteIP).
		Str("request_id", req.TraceID)

	// Credentials are never logged, only where they came from.
	switch {
	case result.AuthReason != "":
		event.Str("reason", string(result.AuthReason)).
			Str("credential_source", string(req.Credential.Source))
	case !result.Validation.Valid && result.Validation.Reason != "":
		event.Str("reason", string(result.Validation.Reason)).
			Str("detail", result.Validation.Summary())
	}
	if result.Cause != nil {
		event.Err(result.Cause)
	}

	event.Msg("distribution failed")
}

func (h *RegistryHandler) record(result app.HandleResult) {
	if h.metrics == nil {
		return
	}

	if result.AuthReason != "" {
		h.metrics.AuthFailures.WithLabelValues(string(result.AuthReason)).Inc()
	}

	if result.Stage == distribution.StageResolving || result.ResolvedFiles > 0 {
		h.metrics.FileResolveDuration.Observe(result.ResolveDuration.Seconds())
	}
	if result.ResolvedFiles > 0 {
		h.metrics.FilesResolved.WithLabelValues("ok").Add(float64(result.ResolvedFiles))
	}

	if result.Error != nil {
		if result.Stage == distribution.StageResolving {
			h.metrics.FilesResolved.WithLabelValues("error").Inc()
		}
		h.metrics.DistributionErrors.WithLabelValues(string(result.Error.Kind), string(result.Stage)).Inc()
		return
	}

	switch {
	case result.Item != nil:
		h.metrics.ItemsServed.WithLabelValues(result.Item.Entry.Name).Inc()
	case result.Index != nil:
		h.metrics.ItemsServed.WithLabelValues(distribution.IndexName).Inc()
	}
}

// ETag returns a strong entity tag for a response body.
func ETag(body []byte) string {
	sum := blake3.Sum256(body)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:16]))
}

// CategoriesHandler lists catalog entries grouped by category.
type CategoriesHandler struct {
	categories []catalog.Category
}

// NewCategoriesHandler creates a categories handler. The grouping is computed
// once because the catalog never changes while the process runs.
func NewCategoriesHandler(c *catalog.Catalog) *CategoriesHandler {
	return &CategoriesHandler{categories: catalog.Categories(c)}
}

func (h *CategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.categories)
}

// RecipeHandler serves recipe markdown, or HTML when the client asks for it.
type RecipeHandler struct {
	service *app.RecipeService
	logger  zerolog.Logger
}

// NewRecipeHandler creates a recipe handler.
func NewRecipeHandler(service *app.RecipeService, logger zerolog.Logger) *RecipeHandler {
	return &RecipeHandler{service: service, logger: logger}
}

func (h *RecipeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rec, err := h.service.Get(r.Context(), name)
	if errors.Is(err, app.ErrRecipeNotFound) {
		httpjson.WriteError(w, http.StatusNotFound, "Recipe not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("recipe", name).Msg("failed to load recipe")
		httpjson.WriteError(w, http.StatusInternalServerError, "Failed to load recipe")
		return
	}

	body, contentType := rec.Markdown, recipe.ContentTypeMarkdown
	if wantsHTML(r) {
		html, err := rec.RenderHTML()
		if err != nil {
			h.logger.Error().Err(err).Str("recipe", name).Msg("failed to render recipe")
			httpjson.WriteError(w, http.StatusInternalServerError, "Failed to load recipe")
			return
		}
		body, contentType = html, recipe.ContentTypeHTML
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", recipe.CacheControl)
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func wantsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(mediaType, "text/html") {
			return true
		}
	}
	return false
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	catalog  *catalog.Catalog
	checkers map[string]ports.HealthChecker
}

// NewHealthHandler creates a new health handler. Readiness requires a loaded
// catalog and every named checker to pass.
func NewHealthHandler(c *catalog.Catalog, checkers map[string]ports.HealthChecker) *HealthHandler {
	return &HealthHandler{catalog: c, checkers: checkers}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks if the service is ready to handle traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.catalog == nil {
		httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "catalog not loaded",
		})
		return
	}

	for name, checker := range h.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  name + ": " + err.Error(),
			})
			return
		}
	}

	httpjson.Write(w, http.StatusOK, map[string]any{
		"status": "ok",
		"items":  h.catalog.Len(),
	})
}

// VersionHandler returns a handler reporting the build version.
func VersionHandler(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	resp := VersionResponse{Version: version, Service: "registry"}
	return func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, resp)
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics         *metrics.Collector
	MetricsPath     string             // default "/metrics"
	MetricsHandler  http.Handler       // exporter for MetricsPath, default promhttp.Handler()
	IDGenerator     ports.IDGenerator  // request ids for callers that send none
	Categories      *CategoriesHandler // optional /api/categories
	Recipes         *RecipeHandler     // optional /api/recipes/{name}
	Version         string
	Timeout         time.Duration // per-request deadline, default 60s
	Compress        bool
	CompressMinSize int
}

// NewRouter creates the main HTTP router.
func NewRouter(registry *RegistryHandler, health *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(registry, health, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(registry *RegistryHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware
	if cfg.IDGenerator != nil {
		r.Use(NewRequestIDMiddleware(cfg.IDGenerator))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, metricsPath))
	r.Use(NewRecovererMiddleware(logger))
	r.Use(middleware.Timeout(timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}
	if cfg.Compress {
		r.Use(NewCompressionMiddleware(cfg.CompressMinSize))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health endpoints (no auth required)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(metricsPath, promhttp.Handler())
	}

	// Distribution (token required)
	r.Method(http.MethodGet, "/r/{name}", registry)
	r.Method(http.MethodGet, "/registry/{name}", registry)
	r.Method(http.MethodGet, "/api/registry/bearer/{name}", registry)

	if cfg.Categories != nil {
		r.Method(http.MethodGet, "/api/categories", cfg.Categories)
	}
	if cfg.Recipes != nil {
		r.Method(http.MethodGet, "/api/recipes/{name}", cfg.Recipes)
	}

	return r
}
