// Package api savelayout REST API
//
// @title           savelayout REST API
// @version         1.0.0
// @description     Read and edit Dragon Quest III save-state records through their fixed layouts.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/dq3"
	"github.com/ssargent/savelayout/pkg/logging"
	"github.com/ssargent/savelayout/pkg/memmap"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server holds the API server state
type Server struct {
	accessor *memmap.Accessor
	history  History
	layouts  map[string]*codec.Schema
	config   ServerConfig
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithHistory enables the history and restore endpoints
func WithHistory(h History) ServerOption {
	return func(s *Server) {
		s.history = h
	}
}

// WithLayouts replaces the layouts served under /layouts
func WithLayouts(schemas ...*codec.Schema) ServerOption {
	return func(s *Server) {
		s.layouts = make(map[string]*codec.Schema, len(schemas))
		for _, sc := range schemas {
			s.layouts[sc.Name()] = sc
		}
	}
}

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new API server
func NewServer(accessor *memmap.Accessor, config ServerConfig, metrics *Metrics, opts ...ServerOption) *Server {
	s := &Server{
		accessor: accessor,
		config:   config,
		metrics:  metrics,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.Logger(),
	}
	WithLayouts(dq3.Layouts()...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr is the listen address from the server config
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
}

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	m := s.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Regions of the mapped memory
		r.Get("/regions", m.InstrumentHandler("GET", "/api/v1/regions", s.handleListRegions))
		r.Get("/regions/{name}", m.InstrumentHandler("GET", "/api/v1/regions/{name}", s.handleGetRegion))
		r.Put("/regions/{name}", m.InstrumentHandler("PUT", "/api/v1/regions/{name}", s.handlePutRegion))
		r.Patch("/regions/{name}", m.InstrumentHandler("PATCH", "/api/v1/regions/{name}", s.handlePatchRegion))
		r.Get("/regions/{name}/raw", m.InstrumentHandler("GET", "/api/v1/regions/{name}/raw", s.handleGetRaw))
		r.Get("/regions/{name}/history", m.InstrumentHandler("GET", "/api/v1/regions/{name}/history", s.handleHistory))
		r.Post("/regions/{name}/restore/{id}", m.InstrumentHandler("POST", "/api/v1/regions/{name}/restore/{id}", s.handleRestore))

		// Stateless codec
		r.Get("/layouts", m.InstrumentHandler("GET", "/api/v1/layouts", s.handleListLayouts))
		r.Post("/layouts/{layout}/decode", m.InstrumentHandler("POST", "/api/v1/layouts/{layout}/decode", s.handleDecode))
		r.Post("/layouts/{layout}/encode", m.InstrumentHandler("POST", "/api/v1/layouts/{layout}/encode", s.handleEncode))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.config.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.CORSOrigins
}

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>savelayout API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/swagger.json',
	      dom_id: '#swagger-ui',
	      presets: [
	        SwaggerUIBundle.presets.apis,
	        SwaggerUIBundle.presets.standalone
	      ]
	    });
	  };
	</script>
</body>
</html>`

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerUI))

	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.logger.Error("failed to generate swagger doc", zap.Error(err))
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))

	default:
		http.NotFound(w, r)
	}
}

// StartServer serves srv until ctx is cancelled, then shuts down gracefully
func StartServer(ctx context.Context, srv *Server) error {
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", srv.config.Port)

	httpServer := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("starting savelayout REST API server",
			zap.String("addr", httpServer.Addr),
			zap.String("metrics", fmt.Sprintf("http://%s/metrics", httpServer.Addr)))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srv.logger.Info("shutting down server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
