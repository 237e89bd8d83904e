package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter. Zero values are usable.
type RouterOptions struct {
	// AuthMiddleware guards every /users route except signup and login.
	// Nil leaves them unauthenticated, which only tests should do.
	AuthMiddleware func(http.Handler) http.Handler

	Logger  *zap.Logger
	Metrics *Metrics

	// ServiceName names the otelhttp server span. Empty disables tracing.
	ServiceName string
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(Recoverer(opts.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.Signup)
		r.Post("/login", s.Login)

		r.Group(func(r chi.Router) {
			if opts.AuthMiddleware != nil {
				r.Use(opts.AuthMiddleware)
			}
			r.Get("/", s.ListUsers)
			r.Get("/{id}", s.GetUser)
			r.Put("/{id}", s.UpdateUser)
			r.Patch("/{id}", s.UpdatePassword)
			r.Delete("/{id}", s.DeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	if opts.ServiceName == "" {
		return r
	}
	return otelhttp.NewHandler(r, opts.ServiceName)
}
