package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/observability"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
	"github.com/jonboulle/clockwork"
)

// ErrFetchInProgress is returned when a fetch is requested while another one
// has not finished yet.
var ErrFetchInProgress = errors.New("fetch already in progress")

// ErrNotLoaded is returned by CheckReadiness until the dataset has loaded.
var ErrNotLoaded = errors.New("dataset not loaded")

// DefaultFetchDelay is the simulated latency applied to every fetch.
const DefaultFetchDelay = 500 * time.Millisecond

// eventTimeout bounds a single fetch event publish.
const eventTimeout = 5 * time.Second

// DatasetLoader reads the static dataset.
type DatasetLoader interface {
	Load(ctx context.Context) (domain.Dataset, error)
}

// EventPublisher receives a notification after every completed fetch.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.FetchCompleted) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the clock used for the simulated fetch latency.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithFetchDelay sets the simulated fetch latency. Zero disables it.
func WithFetchDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithCacheSize bounds the result cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(c *Controller) { c.cache = newResultCache(n) }
}

// WithPublisher sends fetch events to p; sink labels the publish metrics.
func WithPublisher(sink string, p EventPublisher) Option {
	return func(c *Controller) {
		c.sink = sink
		c.publisher = p
	}
}

// Controller owns the dashboard state and serialises every change to it.
type Controller struct {
	loader    DatasetLoader
	themes    *settings.Manager
	publisher EventPublisher
	sink      string
	cache     *resultCache
	clock     clockwork.Clock
	delay     time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	loadOnce   sync.Once
	loadResult error

	events sync.WaitGroup

	mu             sync.Mutex
	dataset        *domain.Dataset
	filters        domain.FilterState
	initialLoading bool
	fetching       bool
	hasFetched     bool
	loadErr        error
	result         domain.Result
	resultFilters  domain.FilterState
	version        uint64
	subs           map[int]chan Snapshot
	nextSub        int
}

// NewController creates a controller in the initial loading state.
func NewController(loader DatasetLoader, themes *settings.Manager, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Controller {
	c := &Controller{
		loader:         loader,
		themes:         themes,
		cache:          newResultCache(128),
		clock:          clockwork.NewRealClock(),
		delay:          DefaultFetchDelay,
		logger:         logger,
		metrics:        metrics,
		filters:        domain.DefaultFilterState(),
		initialLoading: true,
		result:         domain.Result{Matches: []domain.Observation{}},
		subs:           make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the dataset once. A failure leaves the dashboard in the not
// loaded state for the rest of the process; there is no retry.
func (c *Controller) Load(ctx context.Context) error {
	c.loadOnce.Do(func() {
		c.loadResult = c.load(ctx)
	})
	return c.loadResult
}

func (c *Controller) load(ctx context.Context) error {
	start := time.Now()
	ds, err := c.loader.Load(ctx)
	c.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialLoading = false

	if err != nil {
		c.metrics.DatasetLoads.WithLabelValues("error").Inc()
		c.logger.Error("failed to load static data", "error", err)
		c.loadErr = err
		c.publishLocked()
		return fmt.Errorf("load dataset: %w", err)
	}

	if len(ds.Years) == 0 {
		ds.Years = domain.DistinctYears(ds.Observations)
	}
	c.dataset = &ds
	c.metrics.DatasetLoads.WithLabelValues("success").Inc()
	c.metrics.ObservationsLoaded.Set(float64(len(ds.Observations)))
	c.logger.Info("static data loaded",
		"regions", len(ds.Regions),
		"parameters", len(ds.Parameters),
		"observations", len(ds.Observations),
		"duration", time.Since(start),
	)
	c.publishLocked()
	return nil
}

// CheckReadiness returns nil once the dataset is available.
func (c *Controller) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataset == nil {
		return ErrNotLoaded
	}
	return nil
}

// UpdateFilter applies a single field edit and keeps the date range ordered.
func (c *Controller) UpdateFilter(field domain.Field, value string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := domain.Reconcile(c.filters, field, value)
	if err != nil {
		return c.snapshotLocked(), err
	}
	if next != c.filters {
		c.filters = next
		c.publishLocked()
	}
	return c.snapshotLocked(), nil
}

// ApplyFilters applies a whole filter form at once. The range is checked only
// after every submitted value is in place.
func (c *Controller) ApplyFilters(values map[domain.Field]string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := domain.ApplyForm(c.filters, values)
	if err != nil {
		return c.snapshotLocked(), err
	}
	if next != c.filters {
		c.filters = next
		c.publishLocked()
	}
	return c.snapshotLocked(), nil
}

// Fetch filters and aggregates the dataset with the current filters after the
// simulated latency. Before the dataset loads it is a silent no-op.
func (c *Controller) Fetch(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.dataset == nil || len(c.dataset.Observations) == 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.FetchRequests.WithLabelValues("not_loaded").Inc()
		return snap, nil
	}
	if c.fetching {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.FetchRequests.WithLabelValues("in_progress").Inc()
		return snap, ErrFetchInProgress
	}
	hadFetched := c.hasFetched
	c.fetching = true
	c.hasFetched = true
	filters := c.filters
	observations := c.dataset.Observations
	c.publishLocked()
	c.mu.Unlock()

	start := c.clock.Now()
	if err := c.wait(ctx); err != nil {
		c.mu.Lock()
		c.fetching = false
		c.hasFetched = hadFetched
		c.publishLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.FetchRequests.WithLabelValues("cancelled").Inc()
		return snap, fmt.Errorf("fetch: %w", err)
	}

	result := c.compute(observations, filters)

	c.mu.Lock()
	c.result = result
	c.resultFilters = filters
	c.fetching = false
	c.publishLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	outcome := "ok"
	if result.Empty() {
		outcome = "no_data"
	}
	c.metrics.FetchRequests.WithLabelValues(outcome).Inc()
	c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())
	c.metrics.FetchMatches.Observe(float64(len(result.Matches)))
	c.logger.Debug("fetch completed", "filters", filters.Key(), "matches", len(result.Matches))

	c.emit(ctx, domain.NewFetchCompleted(filters, result))
	return snap, nil
}

func (c *Controller) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := c.clock.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (c *Controller) compute(observations []domain.Observation, f domain.FilterState) domain.Result {
	if result, ok := c.cache.get(f); ok {
		c.metrics.ResultCache.WithLabelValues("hit").Inc()
		return result
	}
	c.metrics.ResultCache.WithLabelValues("miss").Inc()
	result := domain.FilterAndAggregate(observations, f)
	c.cache.put(f, result)
	return result
}

// emit hands the event to the publisher in the background so a slow broker
// never delays the fetch response. Drain waits for these sends.
func (c *Controller) emit(ctx context.Context, event domain.FetchCompleted) {
	if c.publisher == nil {
		return
	}
	c.events.Add(1)
	go func() {
		defer c.events.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
		defer cancel()

		if err := c.publisher.Publish(ctx, event); err != nil {
			c.metrics.EventsPublished.WithLabelValues(c.sink, "error").Inc()
			c.logger.Warn("publish fetch event failed", "sink", c.sink, "error", err)
			return
		}
		c.metrics.EventsPublished.WithLabelValues(c.sink, "success").Inc()
	}()
}

// Drain waits until every pending fetch event has been published or ctx ends.
// Call it after the HTTP server has stopped and before closing the publisher.
func (c *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.events.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain fetch events: %w", ctx.Err())
	}
}

// Theme returns the active theme.
func (c *Controller) Theme() settings.Theme {
	return c.themes.Theme()
}

// ToggleTheme flips the theme and persists it. A persistence failure is
// logged; the theme still changes for this process.
func (c *Controller) ToggleTheme(ctx context.Context) Snapshot {
	theme, err := c.themes.Toggle(ctx)
	return c.themeChanged(theme, err)
}

// SetTheme switches to theme and persists it.
func (c *Controller) SetTheme(ctx context.Context, theme settings.Theme) (Snapshot, error) {
	if _, err := settings.ParseTheme(string(theme)); err != nil {
		return c.Snapshot(), err
	}
	err := c.themes.Set(ctx, theme)
	return c.themeChanged(theme, err), nil
}

func (c *Controller) themeChanged(theme settings.Theme, err error) Snapshot {
	if err != nil {
		c.logger.Warn("persist theme failed", "theme", theme, "error", err)
	}
	c.metrics.ThemeChanges.WithLabelValues(string(theme)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
	return c.snapshotLocked()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives the current snapshot followed by
// every later one. A slow reader skips intermediate snapshots but always ends
// up with the latest. The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) publishLocked() {
	c.version++
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot nobody has read yet.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:        c.version,
		Filters:        c.filters,
		Months:         slices.Clone(domain.Months),
		Years:          slices.Clone(domain.FallbackYears),
		Regions:        []string{},
		Parameters:     []string{},
		Loaded:         c.dataset != nil,
		InitialLoading: c.initialLoading,
		Fetching:       c.fetching,
		HasFetched:     c.hasFetched,
		Theme:          c.themes.Theme(),
		Result: domain.Result{
			Matches: slices.Clone(c.result.Matches),
			Stats:   cloneStats(c.result.Stats),
		},
		ResultFilters: c.resultFilters,
	}
	if c.dataset != nil {
		s.Regions = slices.Clone(c.dataset.Regions)
		s.Parameters = slices.Clone(c.dataset.Parameters)
		if len(c.dataset.Years) > 0 {
			s.Years = slices.Clone(c.dataset.Years)
		}
	}
	if c.loadErr != nil {
		s.LoadError = c.loadErr.Error()
	}
	s.View = viewOf(s)
	return s
}

func cloneStats(s *domain.Statistics) *domain.Statistics {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
