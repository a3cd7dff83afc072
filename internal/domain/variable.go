package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Variable describes a climate variable: the source code used to request it,
// the units the source reports and the units values are presented in.
type Variable struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Units        string `json:"units"`
	DisplayUnits string `json:"display_units"`
	Description  string `json:"description"`

	// Convert maps a source value to display units. Nil means identity.
	Convert func(float64) float64 `json:"-"`
}

// ToDisplay converts a source-unit value to display units.
func (v Variable) ToDisplay(value float64) float64 {
	if v.Convert == nil {
		return value
	}
	return v.Convert(value)
}

// Label returns the variable name in prose form, e.g. "wind speed".
func (v Variable) Label() string {
	return strings.ReplaceAll(v.Name, "_", " ")
}

// Registry is an immutable lookup table of variables keyed by name.
type Registry struct {
	vars map[string]Variable
}

// NewRegistry builds a registry. Later entries with a duplicate name win.
func NewRegistry(vars ...Variable) *Registry {
	m := make(map[string]Variable, len(vars))
	for _, v := range vars {
		m[strings.ToLower(v.Name)] = v
	}
	return &Registry{vars: m}
}

// DefaultRegistry returns the variables served by the archive sources.
// Codes follow the Open-Meteo daily aggregation names.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Variable{
			Name: "temperature", Code: "temperature_2m_mean",
			Units: "°C", DisplayUnits: "°C",
			Description: "daily mean air temperature at 2 m",
		},
		Variable{
			Name: "temperature_max", Code: "temperature_2m_max",
			Units: "°C", DisplayUnits: "°C",
			Description: "daily maximum air temperature at 2 m",
		},
		Variable{
			Name: "temperature_min", Code: "temperature_2m_min",
			Units: "°C", DisplayUnits: "°C",
			Description: "daily minimum air temperature at 2 m",
		},
		Variable{
			Name: "precipitation", Code: "precipitation_sum",
			Units: "mm", DisplayUnits: "mm",
			Description: "daily total precipitation",
		},
		Variable{
			Name: "wind_speed", Code: "wind_speed_10m_max",
			Units: "km/h", DisplayUnits: "m/s",
			Description: "daily maximum wind speed at 10 m",
			Convert:     func(kmh float64) float64 { return kmh / 3.6 },
		},
		Variable{
			Name: "solar_radiation", Code: "shortwave_radiation_sum",
			Units: "MJ/m²", DisplayUnits: "MJ/m²",
			Description: "daily shortwave radiation sum",
		},
		Variable{
			Name: "humidity", Code: "relative_humidity_2m_mean",
			Units: "%", DisplayUnits: "%",
			Description: "daily mean relative humidity at 2 m",
		},
		Variable{
			Name: "surface_pressure", Code: "surface_pressure_mean",
			Units: "hPa", DisplayUnits: "kPa",
			Description: "daily mean surface pressure",
			Convert:     func(hpa float64) float64 { return hpa / 10 },
		},
	)
}

// Lookup resolves a variable by case-insensitive name.
func (r *Registry) Lookup(name string) (Variable, error) {
	v, ok := r.vars[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variable{}, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return v, nil
}

// All returns every registered variable sorted by name.
func (r *Registry) All() []Variable {
	out := make([]Variable, 0, len(r.vars))
	for _, v := range r.vars {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Variable) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the registered variable names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.vars))
	for _, v := range r.All() {
		names = append(names, v.Name)
	}
	return names
}
