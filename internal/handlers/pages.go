package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	dashboard Dashboard
	logger    *slog.Logger
	currency  string
}

func NewPageHandlers(dashboard Dashboard, logger *slog.Logger, currency string) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
		currency:  currency,
	}
}

// HandleDashboard renders the full page. Without an uploaded workbook only
// the upload form is shown.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	data := templates.PageData{Currency: h.currency}
	if sess, ok := currentSession(h.dashboard, r); ok {
		snap, err := h.dashboard.Build(ctx, sess.Dataset, r.URL.Query().Get("category"))
		if err != nil {
			h.logger.ErrorContext(ctx, "build dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}
		data.Snapshot = snap
		data.FileName = sess.FileName
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cachePrivate)
	if err := templates.Dashboard(data).Render(ctx, w); err != nil {
		h.logger.ErrorContext(ctx, "render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
