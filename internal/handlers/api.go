package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
)

type APIHandlers struct {
	dashboard Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(h.dashboard, r)
	if !ok {
		writeError(w, r, h.logger, errors.NoData(noDataMessage))
		return
	}

	writeData(w, sales.Options(sess.Dataset.Products))
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	writeData(w, snap.KPIs)
}

func (h *APIHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	writeData(w, snap.Transactions)
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	writeData(w, snap.Monthly)
}

func (h *APIHandlers) HandleSalesByCategory(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	writeData(w, snap.ByCategory)
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, errors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	if limit == 0 {
		writeData(w, snap.TopProducts)
		return
	}
	writeData(w, sales.TopProducts(snap.Transactions, limit))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   observability.ServiceVersion,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}
