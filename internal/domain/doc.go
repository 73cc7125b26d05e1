// Package domain models monthly regional climate observations and the two
// pure state transitions the dashboard is built on.
//
// # Data Source
//
// Observations come from three static JSON documents shipped with the
// dashboard (regions.json, parameters.json, weather_data.json). They mimic the
// responses of a UK Met Office climate API: one record per region, parameter,
// year and month.
//
// # Conventions
//
// Months are the English three-letter abbreviations:
//
//	Jan Feb Mar Apr May Jun Jul Aug Sep Oct Nov Dec
//
// A calendar point is the (year, month index) pair, with Jan = 0. Points order
// by year first, then month. Records whose month is not one of the twelve
// abbreviations have no calendar point and never match a filter.
//
// Parameters and their display units:
//
//	Tmax      mean daily maximum temperature   °C
//	Tmin      mean daily minimum temperature   °C
//	Rainfall  total rainfall                    mm
//	Sunshine  total sunshine duration           hours
//
// # Filtering
//
// [FilterAndAggregate] selects the records of one region and parameter whose
// calendar point lies in the inclusive [start, end] range, orders them
// chronologically and computes mean, maximum and minimum. An empty selection
// has no statistics at all (nil), which is distinct from zero-valued ones.
//
// [Reconcile] applies one form edit to a [FilterState] and keeps start <= end
// by moving whichever endpoint the user did not just edit.
package domain
