package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phbpx/lead-intake/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	cfg.ServiceName = "lead-intake-test"
	cfg.Log = newTestLogger(t)
	cfg.Metrics = metrics.New(reg)
	cfg.Gatherer = reg
	return NewRouter(cfg)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, RouterConfig{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		check    StatusCheck
		wantCode int
		wantBody string
	}{
		{"not configured", nil, http.StatusOK, `"database":"not configured"`},
		{"connected", func(context.Context) error { return nil }, http.StatusOK, `"database":"connected"`},
		{"disconnected", func(context.Context) error { return errors.New("dial tcp: connection refused") }, http.StatusInternalServerError, `"database":"disconnected"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, RouterConfig{StatusCheck: tt.check})

			rec := serve(r, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRouter_IngestLead(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(t, RouterConfig{Store: store})

	req := httptest.NewRequest(http.MethodPost, "/ingest/lead", strings.NewReader(validLead))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"accepted","lead_id":1}`, rec.Body.String())
	assert.Len(t, store.leads, 1)
}

func TestRouter_IngestLeadNoDatabase(t *testing.T) {
	r := newTestRouter(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/ingest/lead", strings.NewReader(validLead))
	rec := serve(r, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","lead_id":"no-db","message":"`+noDBMessage+`"}`, rec.Body.String())
}

func TestRouter_BodyTooLarge(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(t, RouterConfig{Store: store, MaxBodyBytes: 16})

	req := httptest.NewRequest(http.MethodPost, "/ingest/lead", strings.NewReader(validLead))
	rec := serve(r, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"request body too large"}`, rec.Body.String())
	assert.Empty(t, store.leads)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, RouterConfig{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/ingest/lead", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	r := newTestRouter(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://forms.example.com")
	rec := serve(r, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(t, RouterConfig{Store: store})

	req := httptest.NewRequest(http.MethodOptions, "/ingest/lead", nil)
	req.Header.Set("Origin", "https://forms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := serve(r, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, store.leads)
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t, RouterConfig{})

	serve(r, httptest.NewRequest(http.MethodPost, "/ingest/lead", strings.NewReader(`{}`)))
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `leadintake_ingest_leads_total{outcome="invalid"} 1`)
}
