// Command validate runs analyses over a grid of locations, variables and
// windows against a data source and checks the internal consistency of every
// report: window sizes, histogram totals, percentile ordering, trend grouping,
// quality arithmetic, and JSON round-tripping of the cached form.
//
// Usage:
//
//	go run ./cmd/validate -source synthetic -seed 1
//	go run ./cmd/validate -source openmeteo -start-year 2015 -end-year 2020
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/climate-exceedance-service/internal/adapter/synthetic"
	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
	"github.com/couchcryptid/climate-exceedance-service/internal/observability"
)

// gridPoints cover both hemispheres, the tropics, a pole and the antimeridian.
var gridPoints = []domain.Point{
	{Lat: 40.7128, Lon: -74.006},
	{Lat: -33.8688, Lon: 151.2093},
	{Lat: 1.3521, Lon: 103.8198},
	{Lat: 64.1466, Lon: -21.9426},
	{Lat: -90, Lon: 0},
	{Lat: 0, Lon: 180},
}

// gridDays include the year boundaries and the leap day.
var gridDays = []struct{ day, window int }{
	{1, 3}, {60, 0}, {185, 7}, {366, 5}, {365, 30},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// cell is one analysed grid point, variable and window.
type cell struct {
	label   string
	query   domain.Query
	samples []domain.Sample
	report  domain.Report
}

func main() {
	source := flag.String("source", "synthetic", "data source: synthetic or openmeteo")
	seed := flag.Uint64("seed", 1, "synthetic source seed")
	baseURL := flag.String("base-url", "https://archive-api.open-meteo.com", "open-meteo archive base URL")
	startYear := flag.Int("start-year", 1991, "first year, inclusive")
	endYear := flag.Int("end-year", 2020, "last year, inclusive")
	threshold := flag.Float64("threshold", 20, "exceedance threshold applied to every cell")
	flag.Parse()

	var src domain.DataSource
	switch *source {
	case "synthetic":
		src = synthetic.New(*seed)
	case "openmeteo":
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		src = openmeteo.NewClient(*baseURL, 30*time.Second, 3, logger, observability.NewMetricsForTesting())
	default:
		flag.Usage()
		os.Exit(1)
	}

	if code := run(src, domain.YearRange{Start: *startYear, End: *endYear}, *threshold); code != 0 {
		os.Exit(code)
	}
}

func run(src domain.DataSource, years domain.YearRange, threshold float64) int {
	// Fixed clock so reports are reproducible between runs.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Climate Report Consistency Validation ===")
	fmt.Println()

	cells, err := analyseGrid(context.Background(), src, years, threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: analyse grid: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateWindows(cells),
		validateStatistics(cells),
		validateTrends(cells),
		validateQuality(cells),
		validateRoundTrip(cells),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cells: %d (%d points x %d variables x %d windows), source %s\n",
		len(cells), len(gridPoints), len(domain.DefaultRegistry().All()), len(gridDays), src.Name())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func analyseGrid(ctx context.Context, src domain.DataSource, years domain.YearRange, threshold float64) ([]cell, error) {
	vars := domain.DefaultRegistry().All()
	cells := make([]cell, 0, len(gridPoints)*len(vars)*len(gridDays))

	for _, p := range gridPoints {
		for _, v := range vars {
			for _, gd := range gridDays {
				q := domain.Query{
					Point:     p,
					Variable:  v.Name,
					Window:    domain.WindowSpec{TargetDay: gd.day, WindowDays: gd.window, Years: years},
					Threshold: &threshold,
				}
				if err := q.Validate(); err != nil {
					return nil, err
				}
				samples, err := domain.Assemble(ctx, src, q, v)
				if err != nil {
					return nil, fmt.Errorf("%s at %+v: %w", v.Name, p, err)
				}
				report := domain.NewReport(q, v, src.Name(),
					domain.ComputeStats(samples, q.Threshold),
					domain.AnalyzeTrend(samples),
					domain.AssessQuality(samples),
				)
				cells = append(cells, cell{
					label:   fmt.Sprintf("%s@(%.2f,%.2f) day %d±%d", v.Name, p.Lat, p.Lon, gd.day, gd.window),
					query:   q,
					samples: samples,
					report:  report,
				})
			}
		}
	}
	return cells, nil
}

// ── Validation phases ──

func validateWindows(cells []cell) *phase {
	p := &phase{name: "Phase 1: Window assembly"}
	for _, c := range cells {
		w := c.query.Window
		want := w.Years.Len() * (2*w.WindowDays + 1)
		if len(c.samples) != want {
			p.errorf("%s: %d samples, want %d", c.label, len(c.samples), want)
		}
		seen := make(map[time.Time]bool, len(c.samples))
		for _, s := range c.samples {
			if seen[s.Date] {
				p.errorf("%s: duplicate date %s", c.label, s.Date.Format(time.DateOnly))
			}
			seen[s.Date] = true
		}
	}
	return p
}

func validateStatistics(cells []cell) *phase {
	p := &phase{name: "Phase 2: Descriptive statistics"}
	for _, c := range cells {
		s := c.report.Stats
		if s.Distribution.Total() != s.Count {
			p.errorf("%s: histogram total %d != count %d", c.label, s.Distribution.Total(), s.Count)
		}
		if s.Count == 0 {
			continue
		}
		pc := s.Percentiles
		ordered := []float64{s.Min, pc.P10, pc.P25, pc.P50, pc.P75, pc.P90, pc.P95, pc.P99, s.Max}
		if !slices.IsSorted(ordered) {
			p.errorf("%s: order statistics not monotone: %v", c.label, ordered)
		}
		if !floatEq(pc.P50, s.Median) {
			p.errorf("%s: p50 %v != median %v", c.label, pc.P50, s.Median)
		}
		if s.Mean < s.Min-1e-9 || s.Mean > s.Max+1e-9 {
			p.errorf("%s: mean %v outside [%v, %v]", c.label, s.Mean, s.Min, s.Max)
		}
		if e := s.Exceedance; e != nil {
			if e.Probability < 0 || e.Probability > 1 {
				p.errorf("%s: probability %v outside [0,1]", c.label, e.Probability)
			}
			if !floatEq(e.Probability, float64(e.Count)/float64(s.Count)) {
				p.errorf("%s: probability %v != %d/%d", c.label, e.Probability, e.Count, s.Count)
			}
		}
	}
	return p
}

func validateTrends(cells []cell) *phase {
	p := &phase{name: "Phase 3: Trend grouping"}
	for _, c := range cells {
		tr := c.report.Trend
		total := 0
		for i, ym := range tr.YearlyMeans {
			total += ym.Count
			if i > 0 && ym.Year <= tr.YearlyMeans[i-1].Year {
				p.errorf("%s: yearly means not strictly ascending at %d", c.label, ym.Year)
			}
		}
		if total != c.report.Stats.Count {
			p.errorf("%s: yearly counts sum to %d, stats count %d", c.label, total, c.report.Stats.Count)
		}
		if len(tr.YearlyMeans) < 2 && tr.Slope != 0 {
			p.errorf("%s: slope %v with fewer than two years", c.label, tr.Slope)
		}
		if (tr.Slope > 0) != (tr.Direction == domain.DirectionIncreasing) {
			p.errorf("%s: direction %s inconsistent with slope %v", c.label, tr.Direction, tr.Slope)
		}
	}
	return p
}

func validateQuality(cells []cell) *phase {
	p := &phase{name: "Phase 4: Quality arithmetic"}
	for _, c := range cells {
		q := c.report.Quality
		if q.Valid+q.Missing != q.Total {
			p.errorf("%s: valid %d + missing %d != total %d", c.label, q.Valid, q.Missing, q.Total)
		}
		if q.Valid != c.report.Stats.Count {
			p.errorf("%s: quality valid %d != stats count %d", c.label, q.Valid, c.report.Stats.Count)
		}
		if (q.Warning != "") != (q.MissingPercent > 30) {
			p.errorf("%s: warning presence inconsistent with %.1f%% missing", c.label, q.MissingPercent)
		}
	}
	return p
}

func validateRoundTrip(cells []cell) *phase {
	p := &phase{name: "Phase 5: Cached JSON round-trip"}
	for _, c := range cells {
		raw, err := json.Marshal(c.report)
		if err != nil {
			p.errorf("%s: marshal: %v", c.label, err)
			continue
		}
		var back domain.Report
		if err := json.Unmarshal(raw, &back); err != nil {
			p.errorf("%s: unmarshal: %v", c.label, err)
			continue
		}
		if diff := cmp.Diff(c.report.Stats, back.Stats); diff != "" {
			p.errorf("%s: stats differ after round-trip:\n%s", c.label, diff)
		}
		if diff := cmp.Diff(c.report.Trend, back.Trend); diff != "" {
			p.errorf("%s: trend differs after round-trip:\n%s", c.label, diff)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
