// Package http exposes a Service over HTTP: a JSON control API, live snapshot
// streams over WebSocket and Server-Sent Events, and health endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

//go:generate go tool oapi-codegen -package http -generate types,chi-server,spec -o api.gen.go ../../../api/openapi.yaml

// Service is the part of atsim.Service the handlers depend on.
type Service interface {
	Create(ctx context.Context, ownerID, modelID int64, name string) (*domain.Process, error)
	List(ctx context.Context, ownerID int64) ([]*domain.Process, error)
	Get(ctx context.Context, ownerID int64, processID string) (*domain.Process, error)
	Run(ctx context.Context, ownerID int64, processID string, req atsim.RunRequest) (*domain.Process, error)
	Pause(ctx context.Context, ownerID int64, processID string) (*domain.Process, error)
	Kill(ctx context.Context, ownerID int64, processID string) (*domain.Process, error)
	Delete(ctx context.Context, ownerID int64, processID string) error
	Subscribe(ctx context.Context, ownerID int64, processID string, t ports.Transport) (*stream.Channel, error)
}

var _ Service = (*atsim.Service)(nil)

var _ ServerInterface = (*Server)(nil)

// Server implements the generated ServerInterface.
type Server struct {
	svc      Service
	verifier ports.IdentityVerifier
	metrics  http.Handler
	logger   *slog.Logger

	writeWait time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWriteTimeout bounds a single WebSocket frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeWait = d
		}
	}
}

// NewHandler creates the HTTP handler for svc. Owners are identified through
// verifier.
func NewHandler(svc Service, verifier ports.IdentityVerifier, opts ...Option) http.Handler {
	s := &Server{
		svc:       svc,
		verifier:  verifier,
		logger:    logging.NewNop(),
		writeWait: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		spec, err := rawSpec()
		if err != nil {
			s.logger.Error("Failed to load OpenAPI spec", "err", err)
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	handler := HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       r,
		Middlewares:      []MiddlewareFunc{s.authenticate},
		ErrorHandlerFunc: s.paramError,
	})
	return enableCORS(handler)
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <title>atsim API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
        window.ui = SwaggerUIBundle({
            url: '/openapi.json',
            dom_id: '#swagger-ui',
        });
    };
</script>
</body>
</html>
`

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type ownerKey struct{}

// authenticate resolves the bearer token into an owner id for operations
// that declare the bearerAuth security scheme.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Value(BearerAuthScopes) == nil {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.renderError(w, r, domain.ErrInvalidToken)
			return
		}
		ownerID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, ownerID)))
	})
}

func ownerFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ownerKey{}).(int64)
	return id
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	render.JSON(w, r, InfoResponse{
		App:        "atsim-http",
		Version:    strings.TrimSpace(atsim.Version),
		ApiVersion: apiVersion,
	})
}
