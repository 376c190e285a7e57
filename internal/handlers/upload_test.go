package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/workbook"
)

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newUploadHandlers(t *testing.T, maxBytes int64) (*UploadHandlers, *services.Dashboard) {
	t.Helper()
	d := createTestDashboard(t)
	h := NewUploadHandlers(d, testLogger(),
		config.UploadConfig{MaxBytes: maxBytes},
		config.SessionConfig{TTL: time.Hour},
	)
	return h, d
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestUploadHandlers_HandleTemplate(t *testing.T) {
	h, _ := newUploadHandlers(t, 1<<20)

	w := httptest.NewRecorder()
	h.HandleTemplate(w, httptest.NewRequest(http.MethodGet, "/template", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="template_dashboard.xlsx"` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("template is not a workbook: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != workbook.SheetTransactions {
		t.Errorf("unexpected sheets %v", sheets)
	}
}

func TestUploadHandlers_HandleUpload_Redirect(t *testing.T) {
	h, d := newUploadHandlers(t, 1<<20)

	w := httptest.NewRecorder()
	h.HandleUpload(w, multipartRequest(t, "file", "ventes.xlsx", testWorkbook(t)))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d: %s", http.StatusSeeOther, w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	sess, ok := d.Session(cookie.Value)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if sess.FileName != "ventes.xlsx" || len(sess.Dataset.Transactions) != 3 {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestUploadHandlers_HandleUpload_JSON(t *testing.T) {
	h, _ := newUploadHandlers(t, 1<<20)

	req := multipartRequest(t, "file", "ventes.xlsx", testWorkbook(t))
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.HandleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var result uploadResult
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Transactions != 3 || result.Products != 2 || result.Clients != 3 {
		t.Errorf("unexpected summary %+v", result)
	}
}

func TestUploadHandlers_HandleUpload_ReplacesSession(t *testing.T) {
	h, d := newUploadHandlers(t, 1<<20)

	first := httptest.NewRecorder()
	h.HandleUpload(first, multipartRequest(t, "file", "a.xlsx", testWorkbook(t)))
	oldCookie := sessionCookie(first)

	req := multipartRequest(t, "file", "b.xlsx", testWorkbook(t))
	req.AddCookie(oldCookie)
	second := httptest.NewRecorder()
	h.HandleUpload(second, req)

	newCookie := sessionCookie(second)
	if newCookie == nil || newCookie.Value == oldCookie.Value {
		t.Fatal("expected a new session id")
	}
	if _, ok := d.Session(oldCookie.Value); ok {
		t.Error("expected previous session to be discarded")
	}
}

func TestUploadHandlers_HandleUpload_Errors(t *testing.T) {
	missingSheet := func(t *testing.T) []byte {
		f := excelize.NewFile()
		defer f.Close()
		buf, err := f.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	tests := []struct {
		name       string
		field      string
		filename   string
		content    func(t *testing.T) []byte
		maxBytes   int64
		wantStatus int
		wantCode   string
	}{
		{"wrong field", "upload", "ventes.xlsx", testWorkbook, 1 << 20, http.StatusBadRequest, "BAD_REQUEST"},
		{"wrong extension", "file", "ventes.csv", testWorkbook, 1 << 20, http.StatusBadRequest, "BAD_REQUEST"},
		{"not a workbook", "file", "ventes.xlsx", func(*testing.T) []byte { return []byte("hello") }, 1 << 20, http.StatusUnprocessableEntity, "LOAD_ERROR"},
		{"missing sheet", "file", "ventes.xlsx", missingSheet, 1 << 20, http.StatusUnprocessableEntity, "LOAD_ERROR"},
		{"too large", "file", "ventes.xlsx", testWorkbook, 100, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := newUploadHandlers(t, tt.maxBytes)

			req := multipartRequest(t, tt.field, tt.filename, tt.content(t))
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			h.HandleUpload(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			env := decodeEnvelope(t, w)
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("expected %s, got %+v", tt.wantCode, env.Error)
			}
			if sessionCookie(w) != nil {
				t.Error("expected no session cookie on failure")
			}
			if d.Stats()["sessions"] != 0 {
				t.Error("expected no stored session")
			}
		})
	}
}

func TestUploadHandlers_HandleUpload_ErrorPage(t *testing.T) {
	h, _ := newUploadHandlers(t, 1<<20)

	w := httptest.NewRecorder()
	h.HandleUpload(w, multipartRequest(t, "file", "ventes.xlsx", []byte("hello")))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML page, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Erreur lors du chargement du fichier : ") {
		t.Error("expected load error banner")
	}
}

func TestUploadHandlers_HandleReset(t *testing.T) {
	h, d := newUploadHandlers(t, 1<<20)
	cookie := uploadedSession(t, d)

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.HandleReset(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, w.Code)
	}
	if _, ok := d.Session(cookie.Value); ok {
		t.Error("expected session to be discarded")
	}
	cleared := sessionCookie(w)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("expected expired cookie, got %+v", cleared)
	}
}
