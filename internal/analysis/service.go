// Package analysis orchestrates one exceedance analysis: it resolves the
// query, consults the report cache, assembles samples from the data source and
// runs the aggregations.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/cache"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

// ErrSourceFailed wraps any error returned by the data source.
var ErrSourceFailed = errors.New("data source failed")

// Outcome labels for the analyses_total metric.
const (
	outcomeOK          = "ok"
	outcomeCached      = "cached"
	outcomeNoData      = "no_data"
	outcomeInvalid     = "invalid"
	outcomeSourceError = "source_error"
)

// Cache stores serialized reports by query key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Publisher forwards freshly computed reports downstream.
type Publisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type statsReporter interface {
	Stats() *cache.Stats
}

// Options carries the optional collaborators. Nil fields disable the step.
type Options struct {
	Cache     Cache
	CacheTTL  time.Duration
	Publisher Publisher
}

// Service runs analyses against a single data source.
type Service struct {
	source    domain.DataSource
	registry  *domain.Registry
	cache     Cache
	cacheTTL  time.Duration
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	inflight singleflight.Group
}

// New creates a Service.
func New(source domain.DataSource, registry *domain.Registry, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	return &Service{
		source:    source,
		registry:  registry,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		publisher: opts.Publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Analyze answers q. A report whose sample set has no valid values is returned
// together with an error wrapping domain.ErrInsufficientData, so callers can
// still show its quality block and summary.
func (s *Service) Analyze(ctx context.Context, q domain.Query) (domain.Report, error) {
	start := time.Now()
	report, outcome, err := s.analyze(ctx, q)
	s.metrics.Analyses.WithLabelValues(outcome).Inc()
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	return report, err
}

func (s *Service) analyze(ctx context.Context, q domain.Query) (domain.Report, string, error) {
	if err := q.Validate(); err != nil {
		return domain.Report{}, outcomeInvalid, err
	}
	v, err := s.registry.Lookup(q.Variable)
	if err != nil {
		return domain.Report{}, outcomeInvalid, err
	}
	q.Variable = v.Name

	key := q.CacheKey()
	if report, ok := s.lookup(ctx, key, v); ok {
		return report, outcomeCached, nil
	}

	res, err, shared := s.inflight.Do(key, func() (any, error) {
		return s.compute(ctx, key, q, v)
	})
	if err != nil {
		return domain.Report{}, outcomeSourceError, err
	}
	report := res.(domain.Report)
	if shared {
		s.logger.Debug("analysis shared with concurrent request", "key", key)
	}

	if !report.HasData() {
		return report, outcomeNoData, fmt.Errorf("%w: no valid %s values for %s", domain.ErrInsufficientData, v.Name, key)
	}
	return report, outcomeOK, nil
}

func (s *Service) compute(ctx context.Context, key string, q domain.Query, v domain.Variable) (domain.Report, error) {
	samples, err := domain.Assemble(ctx, s.source, q, v)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}
	s.metrics.SamplesPerRun.Observe(float64(len(samples)))

	var (
		g       errgroup.Group
		stats   domain.StatsResult
		trend   domain.TrendResult
		quality domain.QualityResult
	)
	g.Go(func() error { stats = domain.ComputeStats(samples, q.Threshold); return nil })
	g.Go(func() error { trend = domain.AnalyzeTrend(samples); return nil })
	g.Go(func() error { quality = domain.AssessQuality(samples); return nil })
	_ = g.Wait()

	report := domain.NewReport(q, v, s.source.Name(), stats, trend, quality)
	s.logger.Info("analysis computed",
		"key", key,
		"samples", len(samples),
		"valid", quality.Valid,
		"tier", quality.Tier,
	)

	if report.HasData() {
		s.store(ctx, key, report)
	}
	s.publish(ctx, report)
	return report, nil
}

// lookup returns a cached report. Cache failures are logged and treated as misses.
func (s *Service) lookup(ctx context.Context, key string, v domain.Variable) (domain.Report, bool) {
	if s.cache == nil {
		return domain.Report{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", "error", err, "key", key)
		return domain.Report{}, false
	}
	if !ok {
		return domain.Report{}, false
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		s.logger.Warn("cached report undecodable, recomputing", "error", err, "key", key)
		return domain.Report{}, false
	}
	// Conversion funcs do not survive serialization.
	report.Variable = v
	return report, true
}

func (s *Service) store(ctx context.Context, key string, report domain.Report) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("report not cacheable", "error", err, "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", "error", err, "key", key)
	}
}

func (s *Service) publish(ctx context.Context, report domain.Report) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, report); err != nil {
		s.metrics.Publish.WithLabelValues("error").Inc()
		s.logger.Warn("publish report failed", "error", err, "report_id", report.ID)
		return
	}
	s.metrics.Publish.WithLabelValues("success").Inc()
}

// Variables lists the variables this service can analyze.
func (s *Service) Variables() []domain.Variable {
	return s.registry.All()
}

// CacheStats reports cache counters, or false when no cache is configured or
// it does not track statistics.
func (s *Service) CacheStats() (cache.Snapshot, bool) {
	r, ok := s.cache.(statsReporter)
	if !ok || r.Stats() == nil {
		return cache.Snapshot{}, false
	}
	return r.Stats().Snapshot(), true
}

// CheckReadiness pings the cache backend when it supports it.
func (s *Service) CheckReadiness(ctx context.Context) error {
	p, ok := s.cache.(pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("cache unavailable: %w", err)
	}
	return nil
}
