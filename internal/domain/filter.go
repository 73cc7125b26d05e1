package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownField is returned for an edit to a field the filter form does not have.
	ErrUnknownField = errors.New("unknown filter field")
	// ErrInvalidYear is returned when a year edit is not a base-10 integer.
	ErrInvalidYear = errors.New("invalid year")
	// ErrInvalidMonth is returned when a month edit is not a three-letter abbreviation.
	ErrInvalidMonth = errors.New("invalid month")
)

// FilterState holds the six active filter values of the dashboard form.
// After every Reconcile the start point is never later than the end point.
type FilterState struct {
	Region     string    `json:"region"`
	Parameter  Parameter `json:"parameter"`
	StartYear  int       `json:"startYear"`
	EndYear    int       `json:"endYear"`
	StartMonth string    `json:"startMonth"`
	EndMonth   string    `json:"endMonth"`
}

// DefaultFilterState is the form's initial selection: UK maximum temperature for 2023.
func DefaultFilterState() FilterState {
	return FilterState{
		Region:     "UK",
		Parameter:  Tmax,
		StartYear:  2023,
		EndYear:    2023,
		StartMonth: "Jan",
		EndMonth:   "Dec",
	}
}

// Start returns the calendar point of the range start.
func (f FilterState) Start() (CalendarPoint, bool) {
	return PointOf(f.StartYear, f.StartMonth)
}

// End returns the calendar point of the range end.
func (f FilterState) End() (CalendarPoint, bool) {
	return PointOf(f.EndYear, f.EndMonth)
}

// Key is a readable form of the filter for logs and reports. It is not unique
// when region or parameter contain "|"; compare FilterState values instead.
func (f FilterState) Key() string {
	return fmt.Sprintf("%s|%s|%d-%s|%d-%s", f.Region, f.Parameter, f.StartYear, f.StartMonth, f.EndYear, f.EndMonth)
}

// Field names one control of the filter form.
type Field string

const (
	FieldRegion     Field = "region"
	FieldParameter  Field = "parameter"
	FieldStartYear  Field = "startYear"
	FieldEndYear    Field = "endYear"
	FieldStartMonth Field = "startMonth"
	FieldEndMonth   Field = "endMonth"
)

// ParseField validates a form field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.TrimSpace(s)); f {
	case FieldRegion, FieldParameter, FieldStartYear, FieldEndYear, FieldStartMonth, FieldEndMonth:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// IsStart reports whether the field edits the start of the range.
func (f Field) IsStart() bool {
	return f == FieldStartYear || f == FieldStartMonth
}

// IsEnd reports whether the field edits the end of the range.
func (f Field) IsEnd() bool {
	return f == FieldEndYear || f == FieldEndMonth
}

// Reconcile applies a single-field edit to prev and restores start <= end.
// If the edit leaves the end before the start, the endpoint the user did not
// edit is overwritten: a start edit pulls the end up to the new start, an end
// edit pulls the start back to the new end. Region and parameter edits never
// touch the range. On error prev is returned unchanged.
func Reconcile(prev FilterState, field Field, value string) (FilterState, error) {
	next, err := setField(prev, field, value)
	if err != nil {
		return prev, err
	}
	if !inverted(next) {
		return next, nil
	}

	if field.IsStart() {
		next.EndYear = next.StartYear
		next.EndMonth = next.StartMonth
	} else if field.IsEnd() {
		next.StartYear = next.EndYear
		next.StartMonth = next.EndMonth
	}
	return next, nil
}

// formOrder lists the fields of a whole-form submission.
var formOrder = []Field{FieldRegion, FieldParameter, FieldStartYear, FieldStartMonth, FieldEndYear, FieldEndMonth}

// ApplyForm sets every field in values on prev and only then restores
// start <= end, pulling the end up to the start when the submitted range is
// inverted. Fields missing from values, or empty, keep their previous value.
// On error prev is returned unchanged.
func ApplyForm(prev FilterState, values map[Field]string) (FilterState, error) {
	for field := range values {
		if _, err := ParseField(string(field)); err != nil {
			return prev, err
		}
	}

	next := prev
	for _, field := range formOrder {
		value, ok := values[field]
		if !ok || value == "" {
			continue
		}
		var err error
		if next, err = setField(next, field, value); err != nil {
			return prev, err
		}
	}

	if inverted(next) {
		next.EndYear = next.StartYear
		next.EndMonth = next.StartMonth
	}
	return next, nil
}

func setField(f FilterState, field Field, value string) (FilterState, error) {
	switch field {
	case FieldRegion:
		f.Region = value
	case FieldParameter:
		f.Parameter = Parameter(value)
	case FieldStartYear, FieldEndYear:
		year, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return f, fmt.Errorf("%w: %q", ErrInvalidYear, value)
		}
		if field == FieldStartYear {
			f.StartYear = year
		} else {
			f.EndYear = year
		}
	case FieldStartMonth, FieldEndMonth:
		if _, ok := MonthIndex(value); !ok {
			return f, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
		}
		if field == FieldStartMonth {
			f.StartMonth = value
		} else {
			f.EndMonth = value
		}
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return f, nil
}

// inverted reports whether both endpoints are valid and the end is before the start.
func inverted(f FilterState) bool {
	start, okStart := f.Start()
	end, okEnd := f.End()
	return okStart && okEnd && end.Before(start)
}
