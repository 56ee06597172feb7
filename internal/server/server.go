package server

import (
	"log/slog"
	"net/http"

	"donki-dashboard/internal/handlers"
	"donki-dashboard/internal/services"
	"donki-dashboard/internal/storage"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer wires all routes. store may be nil when snapshot
// persistence is disabled.
func NewServer(analytics *services.Analytics, store *storage.Store, logger *slog.Logger, templateHandlers *TemplateHandlers, maxUploadBytes int64) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, store, logger, maxUploadBytes),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes. "{$}" matches the root only, so unregistered
	// GET paths fall through to the mux's 404/405 handling.
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/top-products", s.apiHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /api/customer-distribution", s.apiHandlers.HandleCustomerDistribution)
	s.mux.HandleFunc("GET /api/recommended-products", s.apiHandlers.HandleRecommendedProducts)
	s.mux.HandleFunc("GET /api/customers", s.apiHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /api/customer-recommendations", s.apiHandlers.HandleCustomerRecommendations)
	s.mux.HandleFunc("GET /api/customer-recommendations/{id}", s.apiHandlers.HandleCustomerRecommendationsByID)
	s.mux.HandleFunc("POST /api/upload", s.apiHandlers.HandleUpload)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/top-products", s.sseHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /sse/customer-distribution", s.sseHandlers.HandleCustomerDistribution)
	s.mux.HandleFunc("GET /sse/recommended-products", s.sseHandlers.HandleRecommendedProducts)
	s.mux.HandleFunc("GET /sse/customer-recommendations", s.sseHandlers.HandleCustomerRecommendations)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
