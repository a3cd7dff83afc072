// Command probe runs a single exceedance analysis against the configured data
// source, without the report cache, and prints the report as JSON.
//
// Usage:
//
//	go run ./cmd/probe \
//	  -lat 40.7128 -lon -74.006 -variable temperature_max \
//	  -day 200 -window 7 -start-year 1991 -end-year 2020 -threshold 32
//
// Set -fixed-clock to an RFC 3339 timestamp for reproducible report output.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/synthetic"
	"github.com/couchcryptid/climate-exceedance-service/internal/analysis"
	"github.com/couchcryptid/climate-exceedance-service/internal/config"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	lat := fs.Float64("lat", math.NaN(), "latitude in degrees (required)")
	lon := fs.Float64("lon", math.NaN(), "longitude in degrees (required)")
	variable := fs.String("variable", "temperature", "variable name")
	day := fs.Int("day", 0, "target day of year, 1-366 (required)")
	window := fs.Int("window", 7, "± days around the target day")
	startYear := fs.Int("start-year", 1991, "first year, inclusive")
	endYear := fs.Int("end-year", 2020, "last year, inclusive")
	threshold := fs.String("threshold", "", "exceedance threshold in display units")
	source := fs.String("source", "", "synthetic or openmeteo (default: DATA_SOURCE)")
	fixedClock := fs.String("fixed-clock", "", "RFC 3339 timestamp to stamp the report with")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if math.IsNaN(*lat) || math.IsNaN(*lon) || *day == 0 {
		fs.Usage()
		return errors.New("missing required flags: -lat, -lon, -day")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *source != "" {
		cfg.DataSource = *source
	}

	if *fixedClock != "" {
		at, err := time.Parse(time.RFC3339, *fixedClock)
		if err != nil {
			return fmt.Errorf("parse -fixed-clock: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(at))
		defer domain.SetClock(nil)
	}

	q := domain.Query{
		Point:    domain.Point{Lat: *lat, Lon: *lon},
		Variable: *variable,
		Window: domain.WindowSpec{
			TargetDay:  *day,
			WindowDays: *window,
			Years:      domain.YearRange{Start: *startYear, End: *endYear},
		},
	}
	if *threshold != "" {
		t, err := strconv.ParseFloat(*threshold, 64)
		if err != nil {
			return fmt.Errorf("parse -threshold: %w", err)
		}
		q.Threshold = &t
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	var src domain.DataSource
	switch cfg.DataSource {
	case config.SourceSynthetic:
		src = synthetic.New(cfg.SyntheticSeed)
	case config.SourceOpenMeteo:
		src = openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, cfg.OpenMeteoMaxRetries, logger, metrics)
	default:
		return fmt.Errorf("unknown source %q", cfg.DataSource)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := analysis.New(src, domain.DefaultRegistry(), logger, metrics, analysis.Options{})
	report, err := svc.Analyze(ctx, q)
	if err != nil && !errors.Is(err, domain.ErrInsufficientData) {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		return fmt.Errorf("encode report: %w", encErr)
	}
	return err
}
