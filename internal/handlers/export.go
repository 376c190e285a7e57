package handlers

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/report"
)

type ExportHandlers struct {
	dashboard Dashboard
	logger    *slog.Logger
	charts    report.Charts
	report    config.ReportConfig
}

func NewExportHandlers(dashboard Dashboard, logger *slog.Logger, cfg config.ReportConfig) *ExportHandlers {
	return &ExportHandlers{
		dashboard: dashboard,
		logger:    logger,
		charts:    report.NewCharts(cfg.Currency),
		report:    cfg,
	}
}

// HandleChart serves /charts/{name} as SVG, or PNG with ?format=png.
func (h *ExportHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := report.ParseKind(r.PathValue("name"))
	if !ok {
		writeError(w, r, h.logger, errors.NotFound(fmt.Sprintf("unknown chart %q", r.PathValue("name"))))
		return
	}

	format := report.FormatSVG
	if r.URL.Query().Get("format") == string(report.FormatPNG) {
		format = report.FormatPNG
	}

	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	var buf bytes.Buffer
	if err := h.charts.Render(&buf, kind, snap, format); err != nil {
		if stderrors.Is(err, report.ErrNotEnoughData) {
			writeError(w, r, h.logger, errors.NoData(err.Error()))
			return
		}
		writeError(w, r, h.logger, errors.InternalWrap(err, "failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", cachePrivate)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *ExportHandlers) HandlePDF(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(h.dashboard, h.logger, w, r)
	if snap == nil {
		return
	}

	var buf bytes.Buffer
	err := report.WritePDF(r.Context(), &buf, snap, report.PDFOptions{
		Currency:    h.report.Currency,
		Author:      h.report.Author,
		CreatedAt:   time.Now(),
		TopProducts: h.report.TopProducts,
	})
	if err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "failed to build PDF"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.PDFFileName))
	w.Header().Set("Cache-Control", cachePrivate)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
