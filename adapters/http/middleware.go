package http

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/faktion/registry/adapters/metrics"
	"github.com/faktion/registry/domain/distribution"
	"github.com/faktion/registry/pkg/httpjson"
	"github.com/faktion/registry/ports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
)

// NewRequestIDMiddleware assigns a generated X-Request-Id to requests that
// arrive without one and echoes the id on the response.
func NewRequestIDMiddleware(gen ports.IDGenerator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(middleware.RequestIDHeader)
			if id == "" {
				id = gen.New()
				r.Header.Set(middleware.RequestIDHeader, id)
			}
			w.Header().Set(middleware.RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// NewRecovererMiddleware turns a panic into the generic 500 body.
func NewRecovererMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("handler panic")

				httpjson.WriteError(w, distribution.ErrInternal.Status, distribution.ErrInternal.Message)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NewCompressionMiddleware gzips responses larger than minSize bytes for
// clients that accept it. minSize <= 0 uses the gzhttp default. Compressed
// responses get a "-gzip" ETag suffix so they never share a tag with the
// identity body.
func NewCompressionMiddleware(minSize int) func(next http.Handler) http.Handler {
	var (
		wrap func(http.Handler) http.HandlerFunc
		err  error
	)
	if minSize > 0 {
		wrap, err = gzhttp.NewWrapper(gzhttp.MinSize(minSize), gzhttp.SuffixETag("-gzip"))
	} else {
		wrap, err = gzhttp.NewWrapper(gzhttp.SuffixETag("-gzip"))
	}
	if err != nil {
		// Only reachable with invalid options.
		panic(err)
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if isInternalPath(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := statusLabel(ww.Status())
			path := metrics.NormalizePath(r.URL.Path)

			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func isInternalPath(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || path == metricsPath
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if isInternalPath(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
