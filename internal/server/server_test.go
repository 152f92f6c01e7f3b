package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhorvat/xapiport/internal/app"
	"github.com/mhorvat/xapiport/internal/clients/xapi"
	"github.com/mhorvat/xapiport/internal/common"
	"github.com/mhorvat/xapiport/internal/models"
)

// fakeExportService satisfies interfaces.ExportService for handler tests.
type fakeExportService struct {
	endpoints  []string
	visibility map[string][]string
	result     *models.ExportResult
	runErr     error

	lastRequest *models.ExportRequest
	refreshed   int
}

func (f *fakeExportService) EnsureFresh(ctx context.Context) error { return nil }

func (f *fakeExportService) Refresh(ctx context.Context) error {
	f.refreshed++
	return nil
}

func (f *fakeExportService) Endpoints() ([]string, error) { return f.endpoints, nil }

func (f *fakeExportService) FieldVisibility() (map[string][]string, error) {
	return f.visibility, nil
}

func (f *fakeExportService) Run(ctx context.Context, req *models.ExportRequest) (*models.ExportResult, error) {
	f.lastRequest = req
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.result, nil
}

func newTestServer(t *testing.T, svc *fakeExportService) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.ExportPath = t.TempDir()

	a := &app.App{
		Config:        cfg,
		Logger:        common.NewSilentLogger(),
		ExportService: svc,
		StartupTime:   time.Now(),
	}
	s := NewServer(a)
	t.Cleanup(func() { s.downloads.Stop() })
	return s
}

func collectionResult() *models.ExportResult {
	return &models.ExportResult{
		Endpoint: "CallHistoryView",
		Envelope: models.ResponseEnvelope{
			Kind:       models.EnvelopeCollection,
			TotalCount: 1,
		},
		Headers: []string{"Timestamp", "Caller"},
		Rows: []map[string]any{
			{"Timestamp": "2024-03-15T10:30:00Z", "Caller": "100"},
		},
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	svc := &fakeExportService{
		endpoints:  []string{"CallHistoryView", "SystemStatus"},
		visibility: map[string][]string{"CallHistoryView": {"from", "to"}},
	}
	s := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="CallHistoryView">`)
	assert.Contains(t, body, `<option value="SystemStatus">`)
	assert.Contains(t, body, "endpointConfig")
}

func TestExportAndDownload(t *testing.T) {
	svc := &fakeExportService{result: collectionResult()}
	s := newTestServer(t, svc)

	form := url.Values{
		"endpoint": {"CallHistoryView"},
		"from":     {"2024-03-01"},
		"to":       {"2024-03-31"},
		"top":      {"1000"},
		"skip":     {"0"},
		"format":   {"csv"},
	}
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Download Full Data")
	assert.Contains(t, body, "<td>100</td>")

	require.NotNil(t, svc.lastRequest)
	assert.Equal(t, "CallHistoryView", svc.lastRequest.Endpoint)
	assert.Equal(t, 1000, svc.lastRequest.Top)
	assert.Equal(t, "csv", svc.lastRequest.Format)

	tokenRe := regexp.MustCompile(`name="token" value="([^"]+)"`)
	m := tokenRe.FindStringSubmatch(body)
	require.Len(t, m, 2)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download?token="+m[1], nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `CallHistoryView_export.csv`)
	assert.Contains(t, rec.Body.String(), "Timestamp,Caller")

	// A token is single-use.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download?token="+m[1], nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEmptyResult(t *testing.T) {
	svc := &fakeExportService{runErr: xapi.ErrEmptyResult}
	s := newTestServer(t, svc)

	form := url.Values{"endpoint": {"CallHistoryView"}, "format": {"csv"}}
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "returned no data")
}

func TestExportForbidden(t *testing.T) {
	svc := &fakeExportService{runErr: &xapi.ForbiddenError{Endpoint: "/xapi/v1/Thing"}}
	s := newTestServer(t, svc)

	form := url.Values{"endpoint": {"Thing"}, "format": {"csv"}}
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "allow-list")
}

func TestExportBooleanResult(t *testing.T) {
	svc := &fakeExportService{
		result: &models.ExportResult{
			Endpoint: "HasSystemOwner",
			Envelope: models.ResponseEnvelope{Kind: models.EnvelopeBoolean, Bool: true, TotalCount: -1},
		},
	}
	s := newTestServer(t, svc)

	form := url.Values{"endpoint": {"HasSystemOwner"}, "format": {"csv"}}
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "boolean result: true")
	assert.NotContains(t, body, "Download Full Data")
}

func TestExportCooldown(t *testing.T) {
	svc := &fakeExportService{result: collectionResult()}
	s := newTestServer(t, svc)

	send := func() int {
		form := url.Values{"endpoint": {"CallHistoryView"}, "format": {"csv"}}
		req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestExportRejectsGet(t *testing.T) {
	s := newTestServer(t, &fakeExportService{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndRefresh(t *testing.T) {
	svc := &fakeExportService{endpoints: []string{"A"}}
	s := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/endpoints", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"A"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.refreshed)
}

func TestDownloadUnknownToken(t *testing.T) {
	s := newTestServer(t, &fakeExportService{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download?token=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
