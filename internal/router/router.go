package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

// wrap reuses w when an outer middleware already wrapped it.
func wrap(w http.ResponseWriter) *loggingResponseWriter {
	if lrw, ok := w.(*loggingResponseWriter); ok {
		return lrw
	}
	return &loggingResponseWriter{ResponseWriter: w}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if lrw.status == 0 {
		lrw.status = code
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) statusCode() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter { return lrw.ResponseWriter }

// LoggingMiddleware logs every request. Server errors are logged at warn,
// everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := wrap(w)
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.statusCode()
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", r.Header.Get(RequestIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// RequestIDMiddleware keeps a caller supplied X-Request-ID or assigns a new
// KSUID, and echoes it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = utilities.NewKSUID()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only makes sense over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handlers groups the endpoint handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth     *auth.Handler
	Accounts *account.Handler
	Authors  *author.Handler
	Books    *book.Handler
}

// RegisterRoutes mounts every endpoint on an http.ServeMux and wraps it with
// the middleware chain.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, h Handlers, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Warnw("health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /auth/token", h.Auth.Token)
	mux.HandleFunc("POST /auth/refresh_token", h.Auth.RefreshToken)

	mux.HandleFunc("POST /accounts", h.Accounts.Create)
	mux.HandleFunc("GET /accounts/me", h.Accounts.Me)
	mux.HandleFunc("PUT /accounts/{id}", h.Accounts.Update)
	mux.HandleFunc("DELETE /accounts/{id}", h.Accounts.Delete)

	mux.HandleFunc("POST /authors", h.Authors.Create)
	mux.HandleFunc("GET /authors", h.Authors.List)
	mux.HandleFunc("GET /authors/{id}", h.Authors.Get)
	mux.HandleFunc("PATCH /authors/{id}", h.Authors.Update)
	mux.HandleFunc("DELETE /authors/{id}", h.Authors.Delete)

	mux.HandleFunc("POST /books", h.Books.Create)
	mux.HandleFunc("GET /books", h.Books.List)
	mux.HandleFunc("GET /books/{id}", h.Books.Get)
	mux.HandleFunc("PATCH /books/{id}", h.Books.Update)
	mux.HandleFunc("DELETE /books/{id}", h.Books.Delete)

	// metrics sits right on the mux so it sees the matched pattern
	var handler http.Handler = metrics.Middleware(mux)
	handler = RequestIDMiddleware()(handler)
	handler = SecurityHeadersMiddleware()(handler)
	return LoggingMiddleware(logger)(handler)
}
