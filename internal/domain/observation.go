package domain

import "fmt"

// Parameter identifies the measured quantity of an observation.
type Parameter string

const (
	Tmax     Parameter = "Tmax"
	Tmin     Parameter = "Tmin"
	Rainfall Parameter = "Rainfall"
	Sunshine Parameter = "Sunshine"
)

// Parameters lists the known parameters in display order.
var Parameters = []Parameter{Tmax, Tmin, Rainfall, Sunshine}

// Unit returns the display unit for the parameter's values.
func (p Parameter) Unit() string {
	switch p {
	case Rainfall:
		return "mm"
	case Sunshine:
		return "hours"
	default:
		return "°C"
	}
}

// Color returns the hex colour used for the parameter's trend series.
func (p Parameter) Color() string {
	switch p {
	case Rainfall:
		return "#3b82f6"
	case Tmax:
		return "#ef4444"
	case Sunshine:
		return "#f59e0b"
	default:
		return "#60a5fa"
	}
}

// Known reports whether p is one of the four measured parameters.
func (p Parameter) Known() bool {
	for _, known := range Parameters {
		if p == known {
			return true
		}
	}
	return false
}

// Months holds the twelve month abbreviations in calendar order.
var Months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthIndex = func() map[string]int {
	m := make(map[string]int, len(Months))
	for i, name := range Months {
		m[name] = i
	}
	return m
}()

// MonthIndex returns the zero-based index of a month abbreviation (Jan = 0).
func MonthIndex(month string) (int, bool) {
	i, ok := monthIndex[month]
	return i, ok
}

// Observation is one region/parameter/year/month measurement.
type Observation struct {
	Region    string    `json:"region"`
	Parameter Parameter `json:"parameter"`
	Year      int       `json:"year"`
	Month     string    `json:"month"`
	Value     float64   `json:"value"`
}

// Point returns the observation's calendar point. ok is false when the month
// is not a known abbreviation.
func (o Observation) Point() (CalendarPoint, bool) {
	return PointOf(o.Year, o.Month)
}

// CalendarPoint is a (year, month index) pair used for ordering and range checks.
type CalendarPoint struct {
	Year  int
	Month int
}

// PointOf builds a calendar point from a year and a month abbreviation.
func PointOf(year int, month string) (CalendarPoint, bool) {
	i, ok := MonthIndex(month)
	if !ok {
		return CalendarPoint{}, false
	}
	return CalendarPoint{Year: year, Month: i}, true
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to or after q.
func (p CalendarPoint) Compare(q CalendarPoint) int {
	switch {
	case p.Year < q.Year:
		return -1
	case p.Year > q.Year:
		return 1
	case p.Month < q.Month:
		return -1
	case p.Month > q.Month:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly earlier than q.
func (p CalendarPoint) Before(q CalendarPoint) bool {
	return p.Compare(q) < 0
}

func (p CalendarPoint) String() string {
	if p.Month < 0 || p.Month >= len(Months) {
		return fmt.Sprintf("%d-?", p.Year)
	}
	return fmt.Sprintf("%s %d", Months[p.Month], p.Year)
}
