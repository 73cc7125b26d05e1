package domain

import (
	"slices"
	"time"
)

// Statistics summarises the values of a non-empty result.
type Statistics struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// Result is the engine output: matches in chronological order and their
// statistics. Stats is nil when there are no matches.
type Result struct {
	Matches []Observation `json:"matches"`
	Stats   *Statistics   `json:"statistics"`
}

// Empty reports whether the result holds no matches.
func (r Result) Empty() bool {
	return len(r.Matches) == 0
}

// FilterAndAggregate returns the observations of f's region and parameter
// whose calendar point lies within [start, end], sorted by calendar point with
// ties kept in input order, together with their statistics. all is not modified.
func FilterAndAggregate(all []Observation, f FilterState) Result {
	start, okStart := f.Start()
	end, okEnd := f.End()
	if !okStart || !okEnd {
		return Result{Matches: []Observation{}}
	}

	type match struct {
		obs   Observation
		point CalendarPoint
	}
	var found []match
	for _, o := range all {
		if o.Region != f.Region || o.Parameter != f.Parameter {
			continue
		}
		p, ok := o.Point()
		if !ok || p.Before(start) || end.Before(p) {
			continue
		}
		found = append(found, match{obs: o, point: p})
	}

	slices.SortStableFunc(found, func(a, b match) int {
		return a.point.Compare(b.point)
	})

	matches := make([]Observation, len(found))
	for i, m := range found {
		matches[i] = m.obs
	}
	return Result{Matches: matches, Stats: Summarize(matches)}
}

// Summarize computes mean, maximum and minimum of the observation values.
// It returns nil for an empty slice.
func Summarize(obs []Observation) *Statistics {
	if len(obs) == 0 {
		return nil
	}
	stats := Statistics{Max: obs[0].Value, Min: obs[0].Value}
	var sum float64
	for _, o := range obs {
		sum += o.Value
		stats.Max = max(stats.Max, o.Value)
		stats.Min = min(stats.Min, o.Value)
	}
	stats.Average = sum / float64(len(obs))
	return &stats
}

// DistinctYears returns the distinct years present in obs, ascending.
func DistinctYears(obs []Observation) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, o := range obs {
		if _, ok := seen[o.Year]; ok {
			continue
		}
		seen[o.Year] = struct{}{}
		years = append(years, o.Year)
	}
	slices.Sort(years)
	return years
}

// FallbackYears populates the year selectors before the dataset has loaded.
var FallbackYears = []int{2023, 2024, 2025}

// Dataset is the static data the dashboard works on. It is read-only once loaded.
type Dataset struct {
	Regions      []string      `json:"regions"`
	Parameters   []string      `json:"parameters"`
	Observations []Observation `json:"observations"`
	Years        []int         `json:"years"`
}

// FetchCompleted is emitted each time a fetch produces a result.
type FetchCompleted struct {
	Filters    FilterState `json:"filters"`
	MatchCount int         `json:"match_count"`
	Stats      *Statistics `json:"statistics"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// NewFetchCompleted builds the event for a finished fetch, stamped with the package clock.
func NewFetchCompleted(f FilterState, r Result) FetchCompleted {
	return FetchCompleted{
		Filters:    f,
		MatchCount: len(r.Matches),
		Stats:      r.Stats,
		FetchedAt:  clock.Now().UTC(),
	}
}
