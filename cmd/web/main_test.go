package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/workbook"
)

// Test helper to build the full handler stack
func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("SALES_SECURITY_RATE_LIMIT_ENABLED", "false")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tel, err := observability.NewTelemetry(cfg.Telemetry)
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	t.Cleanup(func() { tel.Shutdown(context.Background()) })

	a, err := newApp(cfg, logger, tel)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a
}

func testWorkbook(t *testing.T) []byte {
	t.Helper()
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	ds := &models.Dataset{
		Transactions: []models.Transaction{
			{TransactionID: "T1", Date: day(1, 5), ProductCode: "P1", ProductName: "Stylo", Quantity: decimal.NewFromInt(4), TotalPrice: decimal.NewFromInt(400), ClientCode: "C1", ClientName: "Amine"},
			{TransactionID: "T2", Date: day(2, 9), ProductCode: "P2", ProductName: "Cahier", Quantity: decimal.NewFromInt(2), TotalPrice: decimal.NewFromInt(900), ClientCode: "C2", ClientName: "Sara"},
			{TransactionID: "T3", Date: day(3, 1), ProductCode: "P1", ProductName: "Stylo", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(100), ClientCode: "C2", ClientName: "Sara"},
		},
		Products: []models.Product{
			{ProductCode: "P1", ProductName: "Stylo", Category: "Bureau"},
			{ProductCode: "P2", ProductName: "Cahier", Category: "Papeterie"},
		},
		Clients: []models.Client{
			{ClientCode: "C1", ClientName: "Amine"},
			{ClientCode: "C2", ClientName: "Sara"},
		},
	}
	var buf bytes.Buffer
	if err := workbook.Write(&buf, ds); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// upload posts the workbook through the full stack and returns the cookie.
func upload(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "ventes.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(testWorkbook(t))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d, want %d: %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("upload did not set a session cookie")
	return nil
}

func get(h http.Handler, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	a := newTestApp(t)
	cookie := upload(t, a.handler)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/template", http.StatusOK, "spreadsheetml"},
		{"/api/categories", http.StatusOK, "application/json"},
		{"/api/kpis", http.StatusOK, "application/json"},
		{"/api/transactions?category=Bureau", http.StatusOK, "application/json"},
		{"/api/monthly-sales", http.StatusOK, "application/json"},
		{"/api/sales-by-category", http.StatusOK, "application/json"},
		{"/api/top-products?limit=1", http.StatusOK, "application/json"},
		{"/charts/monthly", http.StatusOK, "image/svg+xml"},
		{"/charts/category?format=png", http.StatusOK, "image/png"},
		{"/charts/top-products", http.StatusOK, "image/svg+xml"},
		{"/report.pdf", http.StatusOK, "application/pdf"},
		{"/sse/dashboard", http.StatusOK, "text/event-stream"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(a.handler, tt.path, cookie)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Full upload, filter and export flow
func TestServer_UploadFilterScenario(t *testing.T) {
	a := newTestApp(t)
	cookie := upload(t, a.handler)

	w := get(a.handler, "/api/kpis?category=Bureau", cookie)
	var response struct {
		Success bool `json:"success"`
		Data    []struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if !response.Success || len(response.Data) != 5 {
		t.Fatalf("unexpected KPI response %+v", response)
	}
	got := map[string]any{}
	for _, kpi := range response.Data {
		got[kpi.Key] = kpi.Value
	}
	if got["TotalRevenue"] != float64(500) {
		t.Errorf("TotalRevenue = %v, want 500", got["TotalRevenue"])
	}
	if got["TopClientBySpend"] != "Amine" {
		t.Errorf("TopClientBySpend = %v, want Amine", got["TopClientBySpend"])
	}

	page := get(a.handler, "/?category=Bureau", cookie).Body.String()
	if !strings.Contains(page, "500.00 DZD") {
		t.Error("dashboard should show the filtered revenue")
	}

	signals := url.QueryEscape(`{"category":"Papeterie"}`)
	sse := get(a.handler, "/sse/dashboard?datastar="+signals, cookie).Body.String()
	if !strings.Contains(sse, "900.00 DZD") {
		t.Error("SSE patch should carry the Papeterie revenue")
	}
}

// Test Server-Sent Events without an uploaded workbook
func TestServer_SSEWithoutSession(t *testing.T) {
	a := newTestApp(t)

	w := get(a.handler, "/sse/dashboard", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
	}
	if !strings.Contains(w.Body.String(), "window.location") {
		t.Error("expected redirect to the upload page")
	}
}

// Test health endpoint
func TestServer_HandleHealth(t *testing.T) {
	a := newTestApp(t)

	w := get(a.handler, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	healthData, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected health data in response")
	}
	if status, ok := healthData["status"].(string); !ok || status != "healthy" {
		t.Errorf("health status = %v, want 'healthy'", healthData["status"])
	}
}

// Test middleware headers on every response
func TestServer_Middleware(t *testing.T) {
	a := newTestApp(t)

	w := get(a.handler, "/health", nil)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	get(a.handler, "/api/kpis", nil)
	metrics := get(a.handler, "/metrics", nil).Body.String()
	for _, name := range []string{"http_server_requests_total", "http_server_request_duration_seconds"} {
		if !strings.Contains(metrics, name) {
			t.Errorf("metrics should expose %s", name)
		}
	}
	if !strings.Contains(metrics, `route="/api/kpis"`) {
		t.Error("metrics should be labelled by route")
	}
}

// Test error handling for invalid methods and paths
func TestServer_ErrorHandling(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/kpis", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"GET", "/upload", http.StatusMethodNotAllowed},
		{"GET", "/missing", http.StatusNotFound},
		{"GET", "/charts/radar", http.StatusNotFound},
		{"GET", "/api/kpis", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			a.handler.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}
