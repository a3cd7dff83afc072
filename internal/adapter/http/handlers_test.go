package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/climate-exceedance-service/internal/adapter/http"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/cache"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/synthetic"
	"github.com/couchcryptid/climate-exceedance-service/internal/analysis"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

const exceedancePath = "/v1/exceedance?lat=40.7128&lon=-74.006&variable=temperature&day=200&window=5&start_year=1995&end_year=2004&threshold=25"

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestExceedance_ParsesQuery(t *testing.T) {
	m := &mockAnalyzer{report: domain.Report{ID: "rep-1", Stats: domain.StatsResult{Count: 3}}}
	srv := httpadapter.NewServer(":0", m, slog.Default())

	rec := get(t, srv, exceedancePath)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, m.queries, 1)
	q := m.queries[0]
	assert.Equal(t, domain.Point{Lat: 40.7128, Lon: -74.006}, q.Point)
	assert.Equal(t, "temperature", q.Variable)
	assert.Equal(t, domain.WindowSpec{TargetDay: 200, WindowDays: 5, Years: domain.YearRange{Start: 1995, End: 2004}}, q.Window)
	require.NotNil(t, q.Threshold)
	assert.Equal(t, 25.0, *q.Threshold)

	var body domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rep-1", body.ID)
}

func TestExceedance_Defaults(t *testing.T) {
	m := &mockAnalyzer{}
	srv := httpadapter.NewServer(":0", m, slog.Default())

	rec := get(t, srv, "/v1/exceedance?lat=1&lon=2&variable=humidity&day=10")
	require.Equal(t, http.StatusOK, rec.Code)

	q := m.queries[0]
	assert.Equal(t, 7, q.Window.WindowDays)
	assert.Equal(t, domain.YearRange{Start: 1991, End: 2020}, q.Window.Years)
	assert.Nil(t, q.Threshold)
}

func TestExceedance_BadParameters(t *testing.T) {
	tests := []struct {
		name, target, want string
	}{
		{"missing lat", "/v1/exceedance?lon=2&variable=t&day=1", "lat"},
		{"bad lon", "/v1/exceedance?lat=1&lon=east&variable=t&day=1", "lon"},
		{"missing variable", "/v1/exceedance?lat=1&lon=2&day=1", "variable"},
		{"missing day", "/v1/exceedance?lat=1&lon=2&variable=t", "day"},
		{"bad window", "/v1/exceedance?lat=1&lon=2&variable=t&day=1&window=wide", "window"},
		{"bad threshold", "/v1/exceedance?lat=1&lon=2&variable=t&day=1&threshold=hot", "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAnalyzer{}
			rec := get(t, httpadapter.NewServer(":0", m, slog.Default()), tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, m.queries)
		})
	}
}

func TestExceedance_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid query", fmt.Errorf("%w: day 0", domain.ErrInvalidQuery), http.StatusBadRequest},
		{"unknown variable", fmt.Errorf("%w: \"snow\"", domain.ErrUnknownVariable), http.StatusBadRequest},
		{"insufficient data", fmt.Errorf("%w: none", domain.ErrInsufficientData), http.StatusNotFound},
		{"source failure", fmt.Errorf("%w: timeout", analysis.ErrSourceFailed), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAnalyzer{err: tt.err, report: domain.Report{Summary: "Insufficient data: nothing"}}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			rec := get(t, httpadapter.NewServer(":0", m, logger), exceedancePath)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestExceedance_NotFoundCarriesReport(t *testing.T) {
	m := &mockAnalyzer{
		err: domain.ErrInsufficientData,
		report: domain.Report{
			Quality: domain.QualityResult{Total: 10, Missing: 10, MissingPercent: 100, Tier: domain.TierPoor},
			Summary: "Insufficient data: no valid temperature observations were found for this location and date window.",
		},
	}
	rec := get(t, httpadapter.NewServer(":0", m, slog.Default()), exceedancePath)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error  string        `json:"error"`
		Report domain.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.TierPoor, body.Report.Quality.Tier)
	assert.Contains(t, body.Report.Summary, "Insufficient data")
}

func TestVariables(t *testing.T) {
	rec := get(t, newTestServer(nil), "/v1/variables")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Variables []struct {
			Name         string `json:"name"`
			DisplayUnits string `json:"display_units"`
		} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Variables, 8)
	assert.Equal(t, "humidity", body.Variables[0].Name)
}

func TestCacheStats(t *testing.T) {
	rec := get(t, newTestServer(nil), "/v1/cache/stats")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m := &mockAnalyzer{snapshot: &cache.Snapshot{Backend: "memory", Hits: 3, Misses: 1, HitRate: 0.75}}
	rec = get(t, httpadapter.NewServer(":0", m, slog.Default()), "/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap cache.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, *m.snapshot, snap)
}

func TestExceedance_EndToEndWithSyntheticSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	mem := cache.NewMemory(8, cache.NewStats("memory", metrics.CacheLookups))
	svc := analysis.New(synthetic.New(1), domain.DefaultRegistry(), logger, metrics, analysis.Options{Cache: mem})
	srv := httpadapter.NewServer(":0", svc, logger)

	rec := get(t, srv, exceedancePath)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 110, report.Quality.Total)
	assert.Equal(t, report.Stats.Count, report.Stats.Distribution.Total())
	require.NotNil(t, report.Stats.Exceedance)
	assert.Len(t, report.Trend.YearlyMeans, 10)

	rec = get(t, srv, "/v1/exceedance?lat=40.7128&lon=-74.006&variable=temperature&day=400")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sets":1`)
}
