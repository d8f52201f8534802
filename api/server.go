/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Password:   X-App-Password gate on /api/* (except health), when set

ROUTE GROUPS:
  /api/health           Liveness
  /api/uploads          Ingestion and upload log
  /api/preview          Dry-run normalization
  /api/normalize        JSON grid normalization
  /api/records          Dashboard records
  /api/summary          Dashboard aggregation
  /metrics              Prometheus
  /                     Endpoint index

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/roster/main.go: Server startup
*/
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PasswordHeader carries the shared app password.
const PasswordHeader = "X-App-Password"

// RouterOptions configures optional router features.
type RouterOptions struct {
	// Password gates /api/*. Empty disables the gate.
	Password string

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", PasswordHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if opts.Password != "" {
				r.Use(requirePassword(opts.Password))
			}

			// Ingestion routes
			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", h.ListUploads)
				r.Post("/", h.Upload)
			})
			r.Post("/preview", h.Preview)
			r.Post("/normalize", h.Normalize)

			// Dashboard routes
			r.Get("/records", h.ListRecords)
			r.Get("/summary", h.GetSummary)
		})
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Roster Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Roster Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li>POST /api/uploads - Upload roster workbooks (multipart "files")</li>
<li><a href="/api/uploads">/api/uploads</a> - Recent uploads</li>
<li>POST /api/preview - Normalize without saving (multipart "file")</li>
<li><a href="/api/records">/api/records</a> - Stored records</li>
<li><a href="/api/summary">/api/summary</a> - Hours per division</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requirePassword rejects requests whose password header does not match.
func requirePassword(password string) func(http.Handler) http.Handler {
	want := []byte(password)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(PasswordHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
