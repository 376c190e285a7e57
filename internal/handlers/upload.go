package handlers

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
	"sales-dashboard/internal/workbook"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	uploadField     = "file"

	// Room for the multipart envelope around the file itself.
	multipartOverhead = 64 << 10
)

type UploadHandlers struct {
	dashboard Dashboard
	logger    *slog.Logger
	maxBytes  int64
	session   config.SessionConfig
}

func NewUploadHandlers(dashboard Dashboard, logger *slog.Logger, upload config.UploadConfig, sess config.SessionConfig) *UploadHandlers {
	return &UploadHandlers{
		dashboard: dashboard,
		logger:    logger,
		maxBytes:  upload.MaxBytes,
		session:   sess,
	}
}

func (h *UploadHandlers) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := workbook.WriteTemplate(&buf); err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "failed to build template"))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", workbook.TemplateFileName))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

type uploadResult struct {
	FileName     string `json:"file_name"`
	Transactions int    `json:"transactions"`
	Products     int    `json:"products"`
	Clients      int    `json:"clients"`
}

// HandleUpload stores the posted workbook in a fresh session. Browsers are
// redirected to the dashboard; API clients get a JSON summary.
func (h *UploadHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.dashboard.Upload(r.Context(), session.IDFromRequest(r), data, name)
	if err != nil {
		if services.IsLoadError(err) {
			h.fail(w, r, errors.Load(err, "Erreur lors du chargement du fichier"))
			return
		}
		h.fail(w, r, errors.InternalWrap(err, "failed to store upload"))
		return
	}

	session.SetCookie(w, sess.ID, h.session.TTL, h.session.CookieSecure)

	if wantsJSON(r) {
		errors.WriteSuccessStatus(w, http.StatusCreated, uploadResult{
			FileName:     sess.FileName,
			Transactions: len(sess.Dataset.Transactions),
			Products:     len(sess.Dataset.Products),
			Clients:      len(sess.Dataset.Clients),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleReset forgets the uploaded workbook and returns to the empty page.
func (h *UploadHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.dashboard.Discard(session.IDFromRequest(r))
	session.ClearCookie(w)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UploadHandlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, "", h.tooLarge()
		}
		return nil, "", errors.BadRequestWrap(err, "a workbook must be sent in the \"file\" field")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return nil, "", errors.BadRequest("only .xlsx workbooks are accepted")
	}
	if header.Size > h.maxBytes {
		return nil, "", h.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return nil, "", errors.BadRequestWrap(err, "failed to read upload")
	}
	if int64(len(data)) > h.maxBytes {
		return nil, "", h.tooLarge()
	}
	return data, name, nil
}

func (h *UploadHandlers) tooLarge() *errors.AppError {
	return errors.PayloadTooLarge(fmt.Sprintf("the workbook exceeds %d bytes", h.maxBytes))
}

// fail answers API clients with the JSON error and browsers with the page
// and an error banner.
func (h *UploadHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		writeError(w, r, h.logger, err)
		return
	}

	appErr := errors.As(err)
	message := appErr.Message
	if appErr.Code == errors.CodeLoad {
		message = templates.LoadErrorMessage(stderrors.Unwrap(appErr))
	}
	h.logger.WarnContext(r.Context(), "upload rejected",
		"error_code", appErr.Code,
		"cause", appErr.Cause,
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cachePrivate)
	w.WriteHeader(appErr.StatusCode)
	if err := templates.Dashboard(templates.PageData{Error: message}).Render(r.Context(), w); err != nil {
		h.logger.ErrorContext(r.Context(), "render upload error page", "error", err)
	}
}
