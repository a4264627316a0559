package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/vcapture/internal/api/models"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/led"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/service"
	"github.com/smazurov/vcapture/internal/updater"
	"github.com/smazurov/vcapture/internal/version"
	"github.com/smazurov/vcapture/ui"
)

// Server is the Huma v2 API server in front of the capture service.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	capture    *service.Service
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

const shutdownTimeout = 2 * time.Second

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Capture           *service.Service
	EventBus          *events.Bus
	LEDController     led.Controller // Optional; LED routes are skipped when nil
	PrometheusHandler http.Handler   // Optional Prometheus metrics handler
	UpdateService     updater.Service // Optional; update routes are skipped when nil
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	// Configure CORS
	corsConfig := DefaultCORSConfig()

	// Add CORS preflight handler for all OPTIONS requests
	AddCORSHandler(mux, corsConfig)

	// Create Huma API with Go standard library adapter
	config := huma.DefaultConfig("vcapture API", version.String())
	config.Info.Description = "Control API for the FPGA video capture pipeline"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	// Configure basic auth security scheme
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		capture:  opts.Capture,
		eventBus: eventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	// Apply CORS middleware first (before auth)
	api.UseMiddleware(NewCORSMiddleware(corsConfig))

	// Apply HTTP logging middleware after CORS but before auth
	api.UseMiddleware(HTTPLoggingMiddleware)

	// Apply basic auth middleware globally if credentials are provided
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Register Prometheus metrics endpoint before other routes (no auth required)
	// This needs to be done before registerRoutes to avoid conflicts with CORS
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	// Register routes
	server.registerRoutes()

	// Serve frontend assets (in production mode or if dist exists)
	if frontendHandler, err := ui.Handler(); err == nil {
		// Serve frontend at root, but only for non-API paths
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// If path starts with /api, let it fall through to API handlers
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			frontendHandler.ServeHTTP(w, r)
		})
	}

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop. Frame reads can be several megabytes,
// so only the header read is bounded.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting vcapture API server", "addr", addr, "docs", "/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop lets in-flight requests finish for up to shutdownTimeout, then
// drops the remaining connections. Event streams never finish on their own.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	// Capture endpoints
	s.registerCaptureRoutes()

	// LED endpoints
	s.registerLEDRoutes()

	// Log endpoints
	s.registerLogRoutes()

	// Self-update endpoints
	s.registerUpdateRoutes()

	// SSE endpoints
	s.registerSSERoutes()

	// Metrics SSE endpoint
	s.registerMetricsRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
