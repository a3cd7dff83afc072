// Package openmeteo fetches daily reanalysis values from the Open-Meteo
// historical weather archive.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

const (
	sourceName = "openmeteo"

	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// maxConcurrentSpans bounds parallel archive requests per Fetch.
	maxConcurrentSpans = 4
)

// Client implements domain.DataSource using the Open-Meteo archive API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewClient creates an archive client. baseURL has no trailing slash, e.g.
// https://archive-api.open-meteo.com.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:        baseURL,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		logger:         logger,
		metrics:        metrics,
	}
}

// Name identifies the source in reports and metrics.
func (c *Client) Name() string { return sourceName }

// Fetch requests every date in req, one archive call per run of consecutive
// days. Readings come back in request order; days the archive reports as null
// or omits are marked absent.
func (c *Client) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Reading, error) {
	spans := contiguousSpans(req.Dates)
	results := make([]map[string]*float64, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSpans)
	for i, s := range spans {
		g.Go(func() error {
			values, err := c.fetchSpan(gctx, req.Point, req.Variable.Code, s)
			if err != nil {
				return err
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byDay := make(map[string]*float64, len(req.Dates))
	for _, m := range results {
		for k, v := range m {
			byDay[k] = v
		}
	}

	out := make([]domain.Reading, len(req.Dates))
	for i, d := range req.Dates {
		d = d.UTC()
		out[i] = domain.Reading{Date: d}
		if v := byDay[d.Format(time.DateOnly)]; v != nil {
			out[i].Value = *v
			out[i].Present = true
		}
	}
	return out, nil
}

// span is an inclusive run of consecutive UTC days.
type span struct {
	start, end time.Time
}

// contiguousSpans sorts and de-duplicates dates and groups them into runs of
// consecutive days.
func contiguousSpans(dates []time.Time) []span {
	if len(dates) == 0 {
		return nil
	}
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		y, m, dd := d.UTC().Date()
		days[i] = time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	days = slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })

	spans := []span{{start: days[0], end: days[0]}}
	for _, d := range days[1:] {
		last := &spans[len(spans)-1]
		if d.Equal(last.end.AddDate(0, 0, 1)) {
			last.end = d
			continue
		}
		spans = append(spans, span{start: d, end: d})
	}
	return spans
}

func (c *Client) fetchSpan(ctx context.Context, p domain.Point, code string, s span) (map[string]*float64, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(p.Lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(p.Lon, 'f', 4, 64)},
		"start_date": {s.start.Format(time.DateOnly)},
		"end_date":   {s.end.Format(time.DateOnly)},
		"daily":      {code},
		"timezone":   {"UTC"},
	}
	fullURL := c.baseURL + "/v1/archive?" + params.Encode()

	backoff := c.initialBackoff
	for attempt := 0; ; attempt++ {
		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			c.metrics.SourceRequests.WithLabelValues(sourceName, "success").Inc()
			return decodeDaily(body, code)
		}

		var se *statusError
		retryable := ctx.Err() == nil && (!errors.As(err, &se) || se.retryable())
		if !retryable || attempt >= c.maxRetries {
			c.metrics.SourceRequests.WithLabelValues(sourceName, "error").Inc()
			return nil, fmt.Errorf("archive %s..%s: %w", params.Get("start_date"), params.Get("end_date"), err)
		}

		c.metrics.SourceRequests.WithLabelValues(sourceName, "retry").Inc()
		c.logger.Warn("archive request failed, retrying",
			"error", err,
			"attempt", attempt+1,
			"backoff", backoff,
		)
		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SourceAPIDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}
	return body, nil
}

// statusError is a non-200 archive response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("open-meteo API error: status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Open-Meteo API response types.

type response struct {
	Daily map[string]json.RawMessage `json:"daily"`
}

func decodeDaily(body []byte, code string) (map[string]*float64, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var days []string
	if raw, ok := resp.Daily["time"]; ok {
		if err := json.Unmarshal(raw, &days); err != nil {
			return nil, fmt.Errorf("decode daily.time: %w", err)
		}
	}
	var values []*float64
	if raw, ok := resp.Daily[code]; ok {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("decode daily.%s: %w", code, err)
		}
	}
	if len(values) != len(days) {
		return nil, fmt.Errorf("daily.%s has %d values for %d days", code, len(values), len(days))
	}

	out := make(map[string]*float64, len(days))
	for i, d := range days {
		out[d] = values[i]
	}
	return out, nil
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
