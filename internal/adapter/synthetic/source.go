// Package synthetic provides a deterministic, offline data source. Values are
// a function of seed, location, variable and date only, so repeated requests
// always agree.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/couchcryptid/climate-exceedance-service/internal/domain"
)

const (
	// missingRate is the share of days reported without a value.
	missingRate = 0.02

	// warmingPerYear is the linear trend applied to temperatures, in °C/year since baseYear.
	warmingPerYear = 0.02
	baseYear       = 1980
)

// Source implements domain.DataSource with generated values.
type Source struct {
	seed uint64
}

// New creates a synthetic source. Different seeds produce unrelated series.
func New(seed uint64) *Source {
	return &Source{seed: seed}
}

// Name identifies the source in reports and metrics.
func (s *Source) Name() string { return "synthetic" }

// Fetch returns one reading per requested date, in request order.
func (s *Source) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Reading, error) {
	gen, ok := generators[req.Variable.Code]
	if !ok {
		return nil, fmt.Errorf("synthetic: unsupported variable code %q", req.Variable.Code)
	}

	out := make([]domain.Reading, 0, len(req.Dates))
	for i, d := range req.Dates {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		d = d.UTC()
		n := s.noise(req.Point, req.Variable.Code, d)
		if n.uniform("missing") < missingRate {
			out = append(out, domain.Reading{Date: d, Present: false})
			continue
		}
		out = append(out, domain.Reading{Date: d, Value: gen(req.Point, d, n), Present: true})
	}
	return out, nil
}

// noiseSource derives independent pseudo-random draws for one (point, code, date).
type noiseSource struct {
	prefix string
}

func (s *Source) noise(p domain.Point, code string, d time.Time) noiseSource {
	prefix := strconv.FormatUint(s.seed, 10) + "|" +
		strconv.FormatFloat(p.Lat, 'f', 4, 64) + "|" +
		strconv.FormatFloat(p.Lon, 'f', 4, 64) + "|" +
		code + "|" + d.Format(time.DateOnly) + "|"
	return noiseSource{prefix: prefix}
}

// uniform returns a value in [0, 1).
func (n noiseSource) uniform(salt string) float64 {
	h := xxh3.HashString(n.prefix + salt)
	return float64(h>>11) / (1 << 53)
}

// normal returns a standard normal draw via Box-Muller.
func (n noiseSource) normal(salt string) float64 {
	u1 := n.uniform(salt + ":a")
	u2 := n.uniform(salt + ":b")
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

type generator func(p domain.Point, d time.Time, n noiseSource) float64

var generators = map[string]generator{
	"temperature_2m_mean": func(p domain.Point, d time.Time, n noiseSource) float64 {
		return meanTemperature(p, d) + 3*n.normal("t")
	},
	"temperature_2m_max": func(p domain.Point, d time.Time, n noiseSource) float64 {
		return meanTemperature(p, d) + 5 + 3*n.normal("t") + math.Abs(n.normal("range"))
	},
	"temperature_2m_min": func(p domain.Point, d time.Time, n noiseSource) float64 {
		return meanTemperature(p, d) - 5 + 3*n.normal("t") - math.Abs(n.normal("range"))
	},
	"precipitation_sum": func(p domain.Point, d time.Time, n noiseSource) float64 {
		chance := 0.3 + 0.1*seasonal(p, d)
		if n.uniform("wet") >= chance {
			return 0
		}
		return math.Max(0, -6*math.Log(1-n.uniform("amount")))
	},
	"wind_speed_10m_max": func(p domain.Point, d time.Time, n noiseSource) float64 {
		return math.Max(0, 18-4*seasonal(p, d)+6*n.normal("w"))
	},
	"shortwave_radiation_sum": func(p domain.Point, d time.Time, n noiseSource) float64 {
		base := 16 * math.Cos(p.Lat*math.Pi/360)
		return math.Max(0, base+9*seasonal(p, d)+3*n.normal("r"))
	},
	"relative_humidity_2m_mean": func(p domain.Point, d time.Time, n noiseSource) float64 {
		return clamp(72-8*seasonal(p, d)+9*n.normal("h"), 0, 100)
	},
	"surface_pressure_mean": func(_ domain.Point, _ time.Time, n noiseSource) float64 {
		return 1013 + 7*n.normal("p")
	},
}

// seasonal is +1 at local midsummer and -1 at midwinter.
func seasonal(p domain.Point, d time.Time) float64 {
	peak := 200.0
	if p.Lat < 0 {
		peak = 17
	}
	return math.Cos(2 * math.Pi * (float64(d.YearDay()) - peak) / 365.25)
}

func meanTemperature(p domain.Point, d time.Time) float64 {
	absLat := math.Abs(p.Lat)
	baseline := 27 - 0.45*absLat
	amplitude := 1 + 0.25*absLat
	warming := warmingPerYear * float64(d.Year()-baseYear)
	return baseline + amplitude*seasonal(p, d) + warming
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
