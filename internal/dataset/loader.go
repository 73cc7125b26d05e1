package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
)

// Names of the three static resources.
const (
	RegionsFile      = "regions.json"
	ParametersFile   = "parameters.json"
	ObservationsFile = "weather_data.json"
)

// Loader reads the static dataset from a Source.
type Loader struct {
	source Source
	logger *slog.Logger
}

// NewLoader creates a Loader over the given source.
func NewLoader(source Source, logger *slog.Logger) *Loader {
	return &Loader{source: source, logger: logger}
}

// Load fetches the three resources concurrently and joins them. Any failure
// cancels the remaining fetches and no partial dataset is returned.
func (l *Loader) Load(ctx context.Context) (domain.Dataset, error) {
	var (
		regions      []string
		parameters   []string
		observations []domain.Observation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.decode(gctx, RegionsFile, &regions) })
	g.Go(func() error { return l.decode(gctx, ParametersFile, &parameters) })
	g.Go(func() error { return l.decode(gctx, ObservationsFile, &observations) })

	if err := g.Wait(); err != nil {
		return domain.Dataset{}, err
	}

	ds := domain.Dataset{
		Regions:      regions,
		Parameters:   parameters,
		Observations: observations,
		Years:        domain.DistinctYears(observations),
	}
	l.logger.Info("dataset loaded",
		"regions", len(ds.Regions),
		"parameters", len(ds.Parameters),
		"observations", len(ds.Observations),
		"years", len(ds.Years),
	)
	return ds, nil
}

func (l *Loader) decode(ctx context.Context, name string, v any) error {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
