package dashboard

import (
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
)

// View names the main content area the dashboard should render.
type View string

const (
	ViewLoading   View = "loading"
	ViewNotLoaded View = "not_loaded"
	ViewFetching  View = "fetching"
	ViewData      View = "data"
	ViewNoData    View = "no_data"
	ViewWelcome   View = "welcome"
)

// Snapshot is an immutable copy of the dashboard state. Slices are never
// shared with the controller.
type Snapshot struct {
	Version        uint64             `json:"version"`
	View           View               `json:"view"`
	Filters        domain.FilterState `json:"filters"`
	Regions        []string           `json:"regions"`
	Parameters     []string           `json:"parameters"`
	Years          []int              `json:"years"`
	Months         []string           `json:"months"`
	Loaded         bool               `json:"loaded"`
	InitialLoading bool               `json:"initialLoading"`
	Fetching       bool               `json:"fetching"`
	HasFetched     bool               `json:"hasFetched"`
	LoadError      string             `json:"loadError,omitempty"`
	Theme          settings.Theme     `json:"theme"`

	// Result holds the last completed fetch. ResultFilters are the filters it
	// was computed for, which may differ from Filters once the user edits them.
	Result        domain.Result      `json:"result"`
	ResultFilters domain.FilterState `json:"resultFilters"`
}

// CanFetch reports whether the fetch control should be enabled.
func (s Snapshot) CanFetch() bool {
	return s.Loaded && !s.Fetching
}

// Unit is the display unit of the fetched parameter.
func (s Snapshot) Unit() string {
	return s.ResultFilters.Parameter.Unit()
}

func viewOf(s Snapshot) View {
	switch {
	case s.InitialLoading:
		return ViewLoading
	case !s.Loaded && s.LoadError != "":
		return ViewNotLoaded
	case s.Fetching:
		return ViewFetching
	case !s.HasFetched:
		return ViewWelcome
	case s.Result.Empty():
		return ViewNoData
	default:
		return ViewData
	}
}
