package handlers

import (
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard Dashboard
	logger    *slog.Logger
	currency  string
}

func NewSSEHandlers(dashboard Dashboard, logger *slog.Logger, currency string) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
		currency:  currency,
	}
}

type dashboardSignals struct {
	Category string `json:"category"`
}

// HandleDashboard re-renders the KPI cards, charts and tables for the
// category held in the client's signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.WarnContext(r.Context(), "read signals", "error", err)
		signals.Category = ""
	}

	sess, ok := currentSession(h.dashboard, r)
	sse := datastar.NewSSE(w, r)
	if !ok {
		if err := sse.Redirect("/"); err != nil {
			h.logger.ErrorContext(r.Context(), "redirect without session", "error", err)
		}
		return
	}

	snap, err := h.dashboard.Build(r.Context(), sess.Dataset, signals.Category)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "build dashboard", "error", err)
		sse.ConsoleError(err)
		return
	}

	if err := h.patch(sse, snap); err != nil {
		h.logger.ErrorContext(r.Context(), "patch dashboard", "error", err, "category", snap.Category)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, snap *sales.Snapshot) error {
	fragments := []datastar.TemplComponent{
		templates.KPICards(snap, h.currency),
		templates.Charts(snap),
		templates.TopProducts(snap, h.currency),
		templates.Transactions(snap, h.currency),
	}
	for _, c := range fragments {
		if err := sse.PatchElementTempl(c); err != nil {
			return err
		}
	}
	return sse.MarshalAndPatchSignals(dashboardSignals{Category: snap.Category})
}
