package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picking-dash/internal/analysis"
	"picking-dash/internal/config"
	"picking-dash/internal/metrics"
)

const scenarioCSV = `Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills
01/01/2024 08:00,User A,WS1,10,10,5
01/01/2024 09:00,User A,WS1,0,0,0
02/01/2024 23:30,User B,WS2,20,0,0
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	rec := metrics.New()
	svc := analysis.New(analysis.Options{
		Now:     func() time.Time { return now },
		Metrics: rec,
	})
	httpCfg := config.Defaults(t.TempDir()).HTTP
	httpCfg.MaxUploadBytes = 4096
	return NewServer(svc, Options{
		HTTP:    httpCfg,
		Metrics: rec,
		Logger:  zerolog.Nop(),
		Version: "test",
	})
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func upload(t *testing.T, s *Server, csv string) UploadResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/datasets?name=picks.csv", strings.NewReader(csv), "text/csv")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[UploadResponse](t, rec)
}

func TestUpload_RawBody(t *testing.T) {
	s := newTestServer(t)

	resp := upload(t, s, scenarioCSV)
	assert.False(t, resp.Existing)
	assert.Equal(t, "picks.csv", resp.Dataset.Name)
	assert.Equal(t, 3, resp.Dataset.Records)
	assert.Equal(t, []string{"User A", "User B"}, resp.Dataset.Users)

	rec := do(t, s, http.MethodPost, "/api/datasets", strings.NewReader(scenarioCSV), "text/csv")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[UploadResponse](t, rec).Existing)
}

func TestUpload_Multipart(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "march.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(scenarioCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/api/datasets", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "march.csv", decode[UploadResponse](t, rec).Dataset.Name)
}

func TestUpload_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantType   string
	}{
		{"MissingColumns", "Date,Username\n01/01/2024,alice\n", http.StatusUnprocessableEntity, "/errors/schema"},
		{"Empty", "", http.StatusUnprocessableEntity, "/errors/empty-input"},
		{"TooLarge", scenarioCSV + strings.Repeat("01/01/2024 08:00,User A,WS1,1,1,1\n", 200), http.StatusRequestEntityTooLarge, "/errors/payload-too-large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/datasets", strings.NewReader(tt.body), "text/csv")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			problem := decode[map[string]any](t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}

	rec := do(t, s, http.MethodPost, "/api/datasets", strings.NewReader("Date,Username\n"), "text/csv")
	problem := decode[map[string]any](t, rec)
	assert.ElementsMatch(t, []any{"Workstations", "SourceTotes", "DestinationTotes", "TotalRefills"}, problem["missing_columns"])
}

func TestDatasets_ListGetDelete(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	rec := do(t, s, http.MethodGet, "/api/datasets", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]analysis.DatasetInfo](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	rec = do(t, s, http.MethodGet, "/api/datasets/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"WS1", "WS2"}, decode[analysis.DatasetInfo](t, rec).Workstations)

	rec = do(t, s, http.MethodDelete, "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", decode[map[string]any](t, rec)["type"])
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	rec := do(t, s, http.MethodPost, "/api/datasets/"+id+"/dashboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DashboardResponse](t, rec)
	assert.Equal(t, 3, resp.Dashboard.Summary.Records)
	assert.Equal(t, int64(30), resp.Dashboard.Summary.SourceTotes)
	assert.False(t, resp.View.Empty)
	assert.NotEmpty(t, resp.View.Charts)

	body := `{"users":["User A"],"start":"2024-01-01","end":"2024-01-01","metrics":["TotalRefills"]}`
	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/dashboard", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[DashboardResponse](t, rec)
	assert.Equal(t, 2, resp.Dashboard.Summary.Records)
	assert.Equal(t, "Total Refills", resp.View.Tiles[0].Label)

	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/dashboard", strings.NewReader(`{"users":[]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[DashboardResponse](t, rec)
	assert.True(t, resp.View.Empty)
	assert.NotEmpty(t, resp.View.EmptyReason)
}

func TestDashboard_InvalidFilter(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	tests := []struct {
		name string
		body string
	}{
		{"Slicer", `{"slicer":"Yesterday"}`},
		{"Shift", `{"shifts":["EVENING"]}`},
		{"Metric", `{"metrics":["Efficiency"]}`},
		{"Date", `{"start":"yesterday"}`},
		{"ReversedDates", `{"start":"2024-02-01","end":"2024-01-01"}`},
		{"RangeMetric", `{"ranges":{"Picks":{"min":0,"max":1}}}`},
		{"InvertedRange", `{"ranges":{"SourceTotes":{"min":5,"max":1}}}`},
		{"MalformedJSON", `{"users":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/datasets/"+id+"/dashboard", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestDashboard_ValidationDetailsUseJSONNames(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	rec := do(t, s, http.MethodPost, "/api/datasets/"+id+"/dashboard", strings.NewReader(`{"slicer":"Yesterday"}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[map[string]any](t, rec)
	details, ok := problem["details"].([]any)
	require.True(t, ok, "expected validation details, got %v", problem)
	require.Len(t, details, 1)
	assert.Equal(t, "slicer", details[0].(map[string]any)["field"])
}

func TestOutliers(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	rec := do(t, s, http.MethodPost, "/api/datasets/"+id+"/outliers/user", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[map[string]any](t, rec)
	assert.Equal(t, "user", report["dimension"])

	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/outliers/month", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/outliers/shift", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	id := upload(t, s, scenarioCSV).Dataset.ID

	rec := do(t, s, http.MethodPost, "/api/datasets/"+id+"/export?format=csv", strings.NewReader(`{"users":["User B"]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "picks_filtered.csv")
	assert.Equal(t, "1", rec.Header().Get("X-Record-Count"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills,Shift,Efficiency"))
	assert.Contains(t, lines[1], "User B")

	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/export?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = do(t, s, http.MethodPost, "/api/datasets/"+id+"/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/datasets/missing/export", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthMetricsAndPage(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, scenarioCSV)

	rec := do(t, s, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Datasets)

	rec = do(t, s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `picking_dash_uploads_total{format="csv",outcome="ok"} 1`)

	rec = do(t, s, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Picking Performance Dashboard</title>")
}

func TestRouting_Problems(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", decode[map[string]any](t, rec)["type"])

	rec = do(t, s, http.MethodPut, "/api/health", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
