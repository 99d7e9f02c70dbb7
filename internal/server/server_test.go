package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/thirteenf/internal/config"
	"github.com/aristath/thirteenf/internal/di"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:                t.TempDir(),
		Port:                   8013,
		DevMode:                true,
		SECUserAgent:           "thirteenf-test test@example.com",
		SECRequestTimeout:      time.Second,
		SECCacheTTL:            time.Minute,
		OpenFIGIRequestTimeout: time.Second,
		HTTPRequestTimeout:     5 * time.Second,
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	s := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
	s.SetJobs(jobs)
	return s
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "roster", method: http.MethodGet, path: "/api/managers", expectedStatus: http.StatusOK},
		{name: "unknown manager", method: http.MethodGet, path: "/api/managers/nobody", expectedStatus: http.StatusNotFound},
		{name: "invalid cik", method: http.MethodGet, path: "/api/13f/not-a-cik", expectedStatus: http.StatusBadRequest},
		{name: "system status", method: http.MethodGet, path: "/api/system/status", expectedStatus: http.StatusOK},
		{name: "unknown job", method: http.MethodPost, path: "/api/jobs/nope", expectedStatus: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestServer_ManagersPayload(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/managers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int `json:"count"`
		Managers []struct {
			Slug string `json:"slug"`
			CIK  string `json:"cik"`
		} `json:"managers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 10, body.Count)
	assert.Len(t, body.Managers, 10)
	assert.Len(t, body.Managers[0].CIK, 10)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolio", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
