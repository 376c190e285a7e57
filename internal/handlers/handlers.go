package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/session"
)

const (
	// Dashboards are per-session, so responses must not be shared.
	cachePrivate = "private, no-store"

	noDataMessage = "Aucun fichier chargé : veuillez charger un fichier Excel"
)

// Dashboard is the service behind every handler.
type Dashboard interface {
	Upload(ctx context.Context, previousID string, data []byte, name string) (session.Session, error)
	Session(id string) (session.Session, bool)
	Discard(id string)
	Build(ctx context.Context, ds *models.Dataset, category string) (*sales.Snapshot, error)
	Stats() map[string]any
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteErrorContext(r.Context(), w, logger, err, observability.GetRequestID(r.Context()))
}

func writeData(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cachePrivate,
	})
}

// currentSession returns the session bound to the request cookie.
func currentSession(d Dashboard, r *http.Request) (session.Session, bool) {
	return d.Session(session.IDFromRequest(r))
}

// snapshot builds the view for the request's session and ?category=.
// It writes the error response itself and returns nil on failure.
func snapshot(d Dashboard, logger *slog.Logger, w http.ResponseWriter, r *http.Request) *sales.Snapshot {
	sess, ok := currentSession(d, r)
	if !ok {
		writeError(w, r, logger, errors.NoData(noDataMessage))
		return nil
	}

	snap, err := d.Build(r.Context(), sess.Dataset, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, logger, errors.InternalWrap(err, "failed to build dashboard"))
		return nil
	}
	return snap
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
