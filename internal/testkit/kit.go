// Package testkit builds deterministic synthetic tables for tests.
package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"

	"lazyprep/adapters/loader"
	"lazyprep/domain/table"
)

// DatasetConfig configures the synthetic dataset generator
type DatasetConfig struct {
	Rows         int     `json:"rows"`
	Seed         uint64  `json:"seed"`
	NullRate     float64 `json:"null_rate"`     // share of feature cells blanked
	OutlierCount int     `json:"outlier_count"` // extreme values planted in Temperature
}

// DefaultDatasetConfig returns sensible defaults
func DefaultDatasetConfig() DatasetConfig {
	return DatasetConfig{Rows: 400, Seed: 42, NullRate: 0.05, OutlierCount: 3}
}

// DatasetGenerator draws reproducible columns
type DatasetGenerator struct {
	config DatasetConfig
	src    rand.Source
	rng    *rand.Rand
}

// NewDatasetGenerator creates a generator seeded from the config
func NewDatasetGenerator(config DatasetConfig) *DatasetGenerator {
	src := rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)
	return &DatasetGenerator{config: config, src: src, rng: rand.New(src)}
}

// Normal draws n values from N(mu, sigma)
func (g *DatasetGenerator) Normal(n int, mu, sigma float64) []float64 {
	return g.draw(n, distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src})
}

// Exponential draws n values with the given rate
func (g *DatasetGenerator) Exponential(n int, rate float64) []float64 {
	return g.draw(n, distuv.Exponential{Rate: rate, Src: g.src})
}

// LogNormal draws n values from a log-normal
func (g *DatasetGenerator) LogNormal(n int, mu, sigma float64) []float64 {
	return g.draw(n, distuv.LogNormal{Mu: mu, Sigma: sigma, Src: g.src})
}

// Uniform draws n values on [lo, hi)
func (g *DatasetGenerator) Uniform(n int, lo, hi float64) []float64 {
	return g.draw(n, distuv.Uniform{Min: lo, Max: hi, Src: g.src})
}

// Choice draws n labels with the given weights
func (g *DatasetGenerator) Choice(n int, labels []string, weights []float64) []string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	out := make([]string, n)
	for i := range out {
		r := g.rng.Float64() * total
		for j, w := range weights {
			if r < w || j == len(weights)-1 {
				out[i] = labels[j]
				break
			}
			r -= w
		}
	}
	return out
}

// WithNulls blanks roughly rate of the values, in place
func (g *DatasetGenerator) WithNulls(xs []float64, rate float64) []float64 {
	for i := range xs {
		if g.rng.Float64() < rate {
			xs[i] = math.NaN()
		}
	}
	return xs
}

// WithTextNulls blanks roughly rate of the labels, in place
func (g *DatasetGenerator) WithTextNulls(ss []string, rate float64) []string {
	for i := range ss {
		if g.rng.Float64() < rate {
			ss[i] = ""
		}
	}
	return ss
}

func (g *DatasetGenerator) draw(n int, d interface{ Rand() float64 }) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// WeatherTable builds a mixed-type table modelled on a weather classification
// dataset. WeatherType is the categorical target.
func (g *DatasetGenerator) WeatherTable() *table.Table {
	n := g.config.Rows
	temp := g.Normal(n, 20, 5)
	for i := 0; i < g.config.OutlierCount && i < n; i++ {
		temp[(i*7919)%n] = 400 + float64(i)
	}
	humidity := g.Uniform(n, 20, 100)
	wind := g.Exponential(n, 0.2)
	precip := g.LogNormal(n, 2, 0.5)
	pressure := g.Normal(n, 1013, 8)
	season := g.Choice(n, []string{"Spring", "Summer", "Autumn", "Winter"}, []float64{1, 1, 1, 1})
	location := g.Choice(n, []string{"inland", "mountain", "coastal"}, []float64{3, 1, 2})
	weather := g.Choice(n, []string{"Sunny", "Rainy", "Cloudy", "Snowy"}, []float64{4, 3, 2, 1})
	empty := make([]float64, n)
	for i := range empty {
		empty[i] = math.NaN()
	}

	rate := g.config.NullRate
	return table.MustNew(
		table.NewNumeric("Temperature", g.WithNulls(temp, rate)),
		table.NewNumeric("Humidity", g.WithNulls(humidity, rate)),
		table.NewNumeric("Wind Speed", g.WithNulls(wind, rate)),
		table.NewNumeric("Precipitation", g.WithNulls(precip, rate)),
		table.NewNumeric("Atmospheric Pressure", pressure),
		table.NewText("Season", g.WithTextNulls(season, rate)),
		table.NewText("Location", location),
		table.NewNumeric("Unused", empty),
		table.NewText("WeatherType", g.WithTextNulls(weather, rate/2)),
	)
}

// WriteCSV saves a table under dir and returns the path
func WriteCSV(dir, name string, t *table.Table) (string, error) {
	path := filepath.Join(dir, name)
	if err := loader.Write(t, path); err != nil {
		return "", fmt.Errorf("write fixture %s: %w", name, err)
	}
	return path, nil
}
