package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
)

type Server struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	pageHandlers   *handlers.PageHandlers
	uploadHandlers *handlers.UploadHandlers
	apiHandlers    *handlers.APIHandlers
	exportHandlers *handlers.ExportHandlers
	sseHandlers    *handlers.SSEHandlers
}

// NewServer wires every route to the dashboard service. metrics may be nil,
// in which case /metrics is not served.
func NewServer(dashboard handlers.Dashboard, cfg *config.Config, logger *slog.Logger, metrics http.Handler) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		logger:         logger,
		pageHandlers:   handlers.NewPageHandlers(dashboard, logger, cfg.Report.Currency),
		uploadHandlers: handlers.NewUploadHandlers(dashboard, logger, cfg.Upload, cfg.Session),
		apiHandlers:    handlers.NewAPIHandlers(dashboard, logger),
		exportHandlers: handlers.NewExportHandlers(dashboard, logger, cfg.Report),
		sseHandlers:    handlers.NewSSEHandlers(dashboard, logger, cfg.Report.Currency),
	}
	s.setupRoutes(metrics)
	return s
}

func (s *Server) setupRoutes(metrics http.Handler) {
	// Pages and workbook transfer
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /template", s.uploadHandlers.HandleTemplate)
	s.mux.HandleFunc("POST /upload", s.uploadHandlers.HandleUpload)
	s.mux.HandleFunc("POST /reset", s.uploadHandlers.HandleReset)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/transactions", s.apiHandlers.HandleTransactions)
	s.mux.HandleFunc("GET /api/monthly-sales", s.apiHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /api/sales-by-category", s.apiHandlers.HandleSalesByCategory)
	s.mux.HandleFunc("GET /api/top-products", s.apiHandlers.HandleTopProducts)

	// Exports
	s.mux.HandleFunc("GET /charts/{name}", s.exportHandlers.HandleChart)
	s.mux.HandleFunc("GET /report.pdf", s.exportHandlers.HandlePDF)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/dashboard", s.sseHandlers.HandleDashboard)

	// Operations
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
