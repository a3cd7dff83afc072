package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/climate-exceedance-service/internal/analysis"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
)

// Defaults for optional /v1/exceedance parameters. The year range is the
// WMO 1991-2020 climate normal period.
const (
	defaultWindowDays = 7
	defaultStartYear  = 1991
	defaultEndYear    = 2020
)

type errorResponse struct {
	Error  string         `json:"error"`
	Report *domain.Report `json:"report,omitempty"`
}

type variableResponse struct {
	Name         string `json:"name"`
	Units        string `json:"units"`
	DisplayUnits string `json:"display_units"`
	Description  string `json:"description"`
}

func (s *Server) handleExceedance(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), q)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrUnknownVariable):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientData):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Report: &report})
	case errors.Is(err, analysis.ErrSourceFailed):
		s.logger.Error("data source failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) handleVariables(w http.ResponseWriter, _ *http.Request) {
	vars := s.analyzer.Variables()
	out := make([]variableResponse, 0, len(vars))
	for _, v := range vars {
		out = append(out, variableResponse{
			Name:         v.Name,
			Units:        v.Units,
			DisplayUnits: v.DisplayUnits,
			Description:  v.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"variables": out})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.analyzer.CacheStats()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "cache disabled"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// parseQuery reads lat, lon, variable and day (required) plus window,
// start_year, end_year and threshold (optional). Range checks are left to
// domain validation.
func parseQuery(v url.Values) (domain.Query, error) {
	var (
		q   domain.Query
		err error
	)
	if q.Point.Lat, err = requiredFloat(v, "lat"); err != nil {
		return q, err
	}
	if q.Point.Lon, err = requiredFloat(v, "lon"); err != nil {
		return q, err
	}
	if q.Variable = v.Get("variable"); q.Variable == "" {
		return q, errors.New("missing required parameter: variable")
	}
	if q.Window.TargetDay, err = requiredInt(v, "day"); err != nil {
		return q, err
	}
	if q.Window.WindowDays, err = optionalInt(v, "window", defaultWindowDays); err != nil {
		return q, err
	}
	if q.Window.Years.Start, err = optionalInt(v, "start_year", defaultStartYear); err != nil {
		return q, err
	}
	if q.Window.Years.End, err = optionalInt(v, "end_year", defaultEndYear); err != nil {
		return q, err
	}
	if s := v.Get("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("invalid threshold %q", s)
		}
		q.Threshold = &t
	}
	return q, nil
}

func requiredFloat(v url.Values, key string) (float64, error) {
	s := v.Get(key)
	if s == "" {
		return 0, fmt.Errorf("missing required parameter: %s", key)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

func requiredInt(v url.Values, key string) (int, error) {
	if v.Get(key) == "" {
		return 0, fmt.Errorf("missing required parameter: %s", key)
	}
	return optionalInt(v, key, 0)
}

func optionalInt(v url.Values, key string, def int) (int, error) {
	s := v.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
