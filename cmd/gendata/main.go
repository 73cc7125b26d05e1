// Command gendata writes a deterministic sample dataset for the dashboard:
// regions.json, parameters.json, and weather_data.json with one value per
// region, parameter, and month. Values follow a UK monthly climatology with
// seeded noise, so the same flags always produce the same files.
//
// Usage:
//
//	go run ./cmd/gendata -out data -from 2023 -to 2025 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/climate-dashboard/internal/dataset"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
)

var regions = []string{"UK", "England", "Wales", "Scotland", "Northern Ireland"}

// climatology is the UK-wide monthly mean per parameter, January first.
var climatology = map[domain.Parameter][12]float64{
	domain.Tmax:     {7.2, 7.8, 10.2, 13.2, 16.4, 19.2, 21.3, 20.8, 18.2, 14.3, 10.3, 7.7},
	domain.Tmin:     {1.4, 1.3, 2.6, 4.2, 6.8, 9.7, 11.8, 11.7, 9.8, 7.2, 4.0, 1.8},
	domain.Rainfall: {110, 85, 78, 68, 65, 68, 71, 83, 82, 110, 114, 115},
	domain.Sunshine: {50, 73, 108, 155, 190, 180, 185, 170, 130, 95, 60, 45},
}

// regional adjusts the UK climatology: temperatures shift by an offset in °C,
// rainfall and sunshine scale by a factor.
type regional struct {
	tmax, tmin float64
	rain, sun  float64
}

var adjustments = map[string]regional{
	"UK":               {0, 0, 1, 1},
	"England":          {0.8, 0.6, 0.8, 1.08},
	"Wales":            {0.2, 0.5, 1.35, 0.95},
	"Scotland":         {-1.6, -1.2, 1.3, 0.85},
	"Northern Ireland": {-0.5, 0.2, 1.05, 0.9},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "output directory")
	from := flag.Int("from", 2023, "first year")
	to := flag.Int("to", 2025, "last year")
	seed := flag.Uint64("seed", 42, "noise seed")
	flag.Parse()

	if *to < *from {
		flag.Usage()
		return fmt.Errorf("-to (%d) must not be before -from (%d)", *to, *from)
	}

	ds := generate(*from, *to, *seed)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *out, err)
	}
	files := map[string]any{
		dataset.RegionsFile:      ds.Regions,
		dataset.ParametersFile:   ds.Parameters,
		dataset.ObservationsFile: ds.Observations,
	}
	for name, v := range files {
		path := filepath.Join(*out, name)
		if err := writeJSON(path, v); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("wrote %s", path)
	}
	log.Printf("total: %d observations for %d-%d", len(ds.Observations), *from, *to)
	return nil
}

func generate(from, to int, seed uint64) domain.Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	params := make([]string, len(domain.Parameters))
	for i, p := range domain.Parameters {
		params[i] = string(p)
	}

	var obs []domain.Observation //nolint:prealloc // size depends on flags
	for _, region := range regions {
		adj := adjustments[region]
		for _, p := range domain.Parameters {
			for year := from; year <= to; year++ {
				for m, month := range domain.Months {
					obs = append(obs, domain.Observation{
						Region:    region,
						Parameter: p,
						Year:      year,
						Month:     month,
						Value:     sample(rng, p, adj, climatology[p][m]),
					})
				}
			}
		}
	}

	return domain.Dataset{
		Regions:      append([]string(nil), regions...),
		Parameters:   params,
		Observations: obs,
		Years:        domain.DistinctYears(obs),
	}
}

func sample(rng *rand.Rand, p domain.Parameter, adj regional, mean float64) float64 {
	var v float64
	switch p {
	case domain.Tmax:
		v = mean + adj.tmax + rng.NormFloat64()
	case domain.Tmin:
		v = mean + adj.tmin + rng.NormFloat64()
	case domain.Rainfall:
		v = math.Max(0, mean*adj.rain*(1+0.3*rng.NormFloat64()))
	case domain.Sunshine:
		v = math.Max(0, mean*adj.sun*(1+0.15*rng.NormFloat64()))
	}
	return math.Round(v*10) / 10
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
