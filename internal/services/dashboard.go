package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/workbook"
)

// Dashboard loads uploaded workbooks into sessions and builds the filtered
// views rendered by the handlers.
type Dashboard struct {
	store       *session.Store
	tracer      trace.Tracer
	logger      *slog.Logger
	topProducts int
	started     time.Time

	uploads    atomic.Int64
	builds     atomic.Int64
	loadErrors atomic.Int64
	lastUpload atomic.Int64

	uploadCounter    metric.Int64Counter
	loadErrorCounter metric.Int64Counter
	buildCounter     metric.Int64Counter
	buildDuration    metric.Float64Histogram
}

func NewDashboard(store *session.Store, tracer trace.Tracer, meter metric.Meter, logger *slog.Logger, topProducts int) (*Dashboard, error) {
	if topProducts <= 0 {
		topProducts = sales.DefaultTopProducts
	}
	d := &Dashboard{
		store:       store,
		tracer:      tracer,
		logger:      logger,
		topProducts: topProducts,
		started:     time.Now(),
	}

	var err error
	if d.uploadCounter, err = meter.Int64Counter("sales.uploads",
		metric.WithDescription("Workbooks loaded successfully")); err != nil {
		return nil, fmt.Errorf("create upload counter: %w", err)
	}
	if d.loadErrorCounter, err = meter.Int64Counter("sales.load_errors",
		metric.WithDescription("Workbooks rejected by the loader")); err != nil {
		return nil, fmt.Errorf("create load error counter: %w", err)
	}
	if d.buildCounter, err = meter.Int64Counter("sales.builds",
		metric.WithDescription("Dashboard views built")); err != nil {
		return nil, fmt.Errorf("create build counter: %w", err)
	}
	if d.buildDuration, err = meter.Float64Histogram("sales.build.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent filtering and aggregating a view")); err != nil {
		return nil, fmt.Errorf("create build histogram: %w", err)
	}

	return d, nil
}

// Load parses an uploaded workbook. Failures are *workbook.LoadError.
func (d *Dashboard) Load(ctx context.Context, data []byte, name string) (*models.Dataset, error) {
	ctx, span := d.tracer.Start(ctx, "dashboard.load", trace.WithAttributes(
		attribute.String("file.name", name),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	ds, err := workbook.Load(data)
	if err != nil {
		d.loadErrors.Add(1)
		d.loadErrorCounter.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "workbook rejected")
		d.logger.WarnContext(ctx, "workbook rejected", "file", name, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("transactions", len(ds.Transactions)),
		attribute.Int("products", len(ds.Products)),
		attribute.Int("clients", len(ds.Clients)),
	)
	return ds, nil
}

// Upload loads the workbook and stores it in a new session that replaces
// previousID.
func (d *Dashboard) Upload(ctx context.Context, previousID string, data []byte, name string) (session.Session, error) {
	ds, err := d.Load(ctx, data, name)
	if err != nil {
		return session.Session{}, err
	}

	sess := d.store.Put(previousID, ds, name)
	d.uploads.Add(1)
	d.lastUpload.Store(time.Now().Unix())
	d.uploadCounter.Add(ctx, 1)

	d.logger.InfoContext(ctx, "workbook loaded",
		"file", name,
		"session_id", sess.ID,
		"transactions", len(ds.Transactions),
		"products", len(ds.Products),
		"clients", len(ds.Clients),
	)
	return sess, nil
}

// Session returns the live session for id.
func (d *Dashboard) Session(id string) (session.Session, bool) {
	if id == "" {
		return session.Session{}, false
	}
	return d.store.Get(id)
}

// Discard drops the session for id, if any.
func (d *Dashboard) Discard(id string) {
	if id != "" {
		d.store.Delete(id)
	}
}

// Build filters ds by category and computes the KPIs and chart series.
// An unknown category yields an empty view.
func (d *Dashboard) Build(ctx context.Context, ds *models.Dataset, category string) (*sales.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if category == "" {
		category = sales.AllCategories
	}

	ctx, span := d.tracer.Start(ctx, "dashboard.build", trace.WithAttributes(
		attribute.String("category", category),
	))
	defer span.End()

	start := time.Now()
	snap := sales.NewSnapshot(ds, category, d.topProducts)
	elapsed := time.Since(start)

	d.builds.Add(1)
	attrs := metric.WithAttributes(attribute.Bool("all_categories", category == sales.AllCategories))
	d.buildCounter.Add(ctx, 1, attrs)
	d.buildDuration.Record(ctx, elapsed.Seconds(), attrs)

	span.SetAttributes(attribute.Int("transactions", len(snap.Transactions)))
	if ds != nil && !sales.ValidCategory(ds.Products, category) {
		span.AddEvent("unknown category")
		d.logger.DebugContext(ctx, "unknown category requested", "category", category)
	}

	return snap, nil
}

// IsLoadError reports whether err came from rejecting a workbook.
func IsLoadError(err error) bool {
	var loadErr *workbook.LoadError
	return errors.As(err, &loadErr)
}

func (d *Dashboard) Stats() map[string]any {
	stats := map[string]any{
		"uploads":        d.uploads.Load(),
		"builds":         d.builds.Load(),
		"load_errors":    d.loadErrors.Load(),
		"top_products":   d.topProducts,
		"uptime_seconds": int64(time.Since(d.started).Seconds()),
	}
	if ts := d.lastUpload.Load(); ts > 0 {
		stats["last_upload"] = time.Unix(ts, 0).UTC()
	}
	for k, v := range d.store.Stats() {
		stats[k] = v
	}
	return stats
}
