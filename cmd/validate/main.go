// Command validate checks a static dataset before it is served: resource
// shape, referential integrity between observations and the region and
// parameter lists, duplicate series points, value plausibility, and an
// end-to-end pass through the engine and CSV export.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
//	go run ./cmd/validate -base-url https://example.org/data
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/dataset"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/export"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing the three JSON resources")
	baseURL := flag.String("base-url", "", "base URL serving the resources (overrides -data-dir)")
	timeout := flag.Duration("timeout", 10*time.Second, "load timeout")
	flag.Parse()

	if code := run(*dataDir, *baseURL, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, baseURL string, timeout time.Duration) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var source dataset.Source = dataset.NewDirSource(dataDir)
	if baseURL != "" {
		source = dataset.NewHTTPSource(baseURL, timeout, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// ── Load ──
	fmt.Println("=== Climate Dataset Validation ===")
	fmt.Println()

	ds, err := dataset.NewLoader(source, logger).Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateShape(ds),
		validateReferences(ds),
		validateUniqueness(ds),
		validateValues(ds),
		validateEngineRoundTrip(ds),
	}

	// ── Report results ──
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
	fmt.Printf("Records: %d regions, %d parameters, %d observations, years %v\n",
		len(ds.Regions), len(ds.Parameters), len(ds.Observations), ds.Years)

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

// ── Phases ──

func validateShape(ds domain.Dataset) *phase {
	p := &phase{name: "Resource shape"}
	if len(ds.Regions) == 0 {
		p.errorf("%s is empty", dataset.RegionsFile)
	}
	if len(ds.Parameters) == 0 {
		p.errorf("%s is empty", dataset.ParametersFile)
	}
	if len(ds.Observations) == 0 {
		p.errorf("%s is empty", dataset.ObservationsFile)
	}
	for _, dup := range duplicates(ds.Regions) {
		p.errorf("region %q listed more than once", dup)
	}
	for _, dup := range duplicates(ds.Parameters) {
		p.errorf("parameter %q listed more than once", dup)
	}
	return p
}

func validateReferences(ds domain.Dataset) *phase {
	p := &phase{name: "Referential integrity"}
	regions := setOf(ds.Regions)
	params := setOf(ds.Parameters)
	for i, o := range ds.Observations {
		if !regions[o.Region] {
			p.errorf("observation %d: region %q not in %s", i, o.Region, dataset.RegionsFile)
		}
		if !params[string(o.Parameter)] {
			p.errorf("observation %d: parameter %q not in %s", i, o.Parameter, dataset.ParametersFile)
		}
		if _, ok := domain.MonthIndex(o.Month); !ok {
			p.errorf("observation %d: unknown month %q", i, o.Month)
		}
		if o.Year <= 0 {
			p.errorf("observation %d: year %d", i, o.Year)
		}
	}
	return p
}

func validateUniqueness(ds domain.Dataset) *phase {
	p := &phase{name: "One value per series point"}
	seen := make(map[string]int, len(ds.Observations))
	for i, o := range ds.Observations {
		key := fmt.Sprintf("%s|%s|%d-%s", o.Region, o.Parameter, o.Year, o.Month)
		if first, ok := seen[key]; ok {
			p.errorf("observations %d and %d both cover %s", first, i, key)
			continue
		}
		seen[key] = i
	}
	return p
}

func validateValues(ds domain.Dataset) *phase {
	p := &phase{name: "Value plausibility"}
	tmax := make(map[string]float64)
	for i, o := range ds.Observations {
		switch o.Parameter {
		case domain.Rainfall, domain.Sunshine:
			if o.Value < 0 {
				p.errorf("observation %d: negative %s %g", i, o.Parameter, o.Value)
			}
		case domain.Tmax:
			tmax[pointKey(o)] = o.Value
		}
	}
	for i, o := range ds.Observations {
		if o.Parameter != domain.Tmin {
			continue
		}
		if hi, ok := tmax[pointKey(o)]; ok && o.Value > hi {
			p.errorf("observation %d: Tmin %g above Tmax %g for %s", i, o.Value, hi, pointKey(o))
		}
	}
	return p
}

// validateEngineRoundTrip fetches every region and parameter over the full
// year range and checks the CSV export carries the same rows.
func validateEngineRoundTrip(ds domain.Dataset) *phase {
	p := &phase{name: "Engine and CSV export"}
	if len(ds.Years) == 0 {
		p.errorf("no years derived from observations")
		return p
	}

	for _, region := range ds.Regions {
		for _, param := range ds.Parameters {
			f := domain.FilterState{
				Region:     region,
				Parameter:  domain.Parameter(param),
				StartYear:  ds.Years[0],
				EndYear:    ds.Years[len(ds.Years)-1],
				StartMonth: domain.Months[0],
				EndMonth:   domain.Months[len(domain.Months)-1],
			}
			r := domain.FilterAndAggregate(ds.Observations, f)
			if r.Empty() {
				continue
			}
			if r.Stats.Min > r.Stats.Average || r.Stats.Average > r.Stats.Max {
				p.errorf("%s: statistics out of order %+v", f.Key(), *r.Stats)
			}
			checkCSV(p, f, r)
		}
	}
	return p
}

func checkCSV(p *phase, f domain.FilterState, r domain.Result) {
	out, err := export.CSV(r.Matches)
	if err != nil {
		p.errorf("%s: export csv: %v", f.Key(), err)
		return
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		p.errorf("%s: parse exported csv: %v", f.Key(), err)
		return
	}
	if len(rows) != len(r.Matches)+1 {
		p.errorf("%s: csv has %d data rows, want %d", f.Key(), len(rows)-1, len(r.Matches))
		return
	}
	for i, o := range r.Matches {
		v, err := strconv.ParseFloat(rows[i+1][4], 64)
		if err != nil || v != o.Value {
			p.errorf("%s: csv row %d value %q, want %g", f.Key(), i+1, rows[i+1][4], o.Value)
		}
	}
}

// ── Helpers ──

func pointKey(o domain.Observation) string {
	return fmt.Sprintf("%s|%d-%s", o.Region, o.Year, o.Month)
}

func setOf(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

func duplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	var dups []string
	for _, s := range items {
		if seen[s] {
			dups = append(dups, s)
		}
		seen[s] = true
	}
	return dups
}
