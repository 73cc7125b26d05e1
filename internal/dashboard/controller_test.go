package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/observability"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type stubLoader struct {
	mu    sync.Mutex
	ds    domain.Dataset
	err   error
	calls int
}

func (l *stubLoader) Load(context.Context) (domain.Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.ds, l.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.FetchCompleted
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.FetchCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []domain.FetchCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.FetchCompleted(nil), p.events...)
}

func sampleDataset() domain.Dataset {
	return domain.Dataset{
		Regions:    []string{"UK", "England"},
		Parameters: []string{"Tmax", "Rainfall"},
		Observations: []domain.Observation{
			{Region: "UK", Parameter: "Tmax", Year: 2024, Month: "Jan", Value: 7.5},
			{Region: "UK", Parameter: "Tmax", Year: 2023, Month: "Dec", Value: 8.0},
			{Region: "UK", Parameter: "Tmax", Year: 2023, Month: "Jan", Value: 6.0},
			{Region: "UK", Parameter: "Rainfall", Year: 2023, Month: "Jan", Value: 100},
			{Region: "England", Parameter: "Tmax", Year: 2025, Month: "Mar", Value: 11},
		},
	}
}

type fixture struct {
	ctrl    *Controller
	loader  *stubLoader
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	themes  *settings.MemoryStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		loader:  &stubLoader{ds: sampleDataset()},
		clock:   clockwork.NewFakeClock(),
		metrics: observability.NewMetricsForTesting(),
		themes:  settings.NewMemoryStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.ctrl = NewController(f.loader, settings.NewManager(f.themes), logger, f.metrics, opts...)
	return f
}

type fetchResult struct {
	snap Snapshot
	err  error
}

// startFetch runs Fetch in the background and waits until it is parked on the
// simulated latency.
func (f *fixture) startFetch(t *testing.T, ctx context.Context) <-chan fetchResult {
	t.Helper()
	done := make(chan fetchResult, 1)
	go func() {
		snap, err := f.ctrl.Fetch(ctx)
		done <- fetchResult{snap, err}
	}()
	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))
	return done
}

func (f *fixture) fetch(t *testing.T) Snapshot {
	t.Helper()
	done := f.startFetch(t, context.Background())
	f.clock.Advance(DefaultFetchDelay)
	r := <-done
	require.NoError(t, r.err)
	return r.snap
}

// --- load ---

func TestController_InitialState(t *testing.T) {
	f := newFixture(t)
	snap := f.ctrl.Snapshot()

	assert.Equal(t, ViewLoading, snap.View)
	assert.True(t, snap.InitialLoading)
	assert.False(t, snap.Loaded)
	assert.Equal(t, domain.DefaultFilterState(), snap.Filters)
	assert.Equal(t, []int{2023, 2024, 2025}, snap.Years)
	assert.Empty(t, snap.Regions)
	assert.Len(t, snap.Months, 12)
	assert.Equal(t, settings.Light, snap.Theme)
	assert.ErrorIs(t, f.ctrl.CheckReadiness(context.Background()), ErrNotLoaded)
}

func TestController_LoadSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, ViewWelcome, snap.View)
	assert.True(t, snap.Loaded)
	assert.False(t, snap.InitialLoading)
	assert.Equal(t, []string{"UK", "England"}, snap.Regions)
	assert.Equal(t, []int{2023, 2024, 2025}, snap.Years)
	assert.True(t, snap.CanFetch())
	assert.NoError(t, f.ctrl.CheckReadiness(context.Background()))
	assert.InDelta(t, 5, testutil.ToFloat64(f.metrics.ObservationsLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DatasetLoads.WithLabelValues("success")), 0)
}

func TestController_LoadFailure(t *testing.T) {
	f := newFixture(t)
	f.loader.err = errors.New("weather_data.json: 404")

	err := f.ctrl.Load(context.Background())
	require.Error(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, ViewNotLoaded, snap.View)
	assert.False(t, snap.InitialLoading)
	assert.False(t, snap.Loaded)
	assert.Contains(t, snap.LoadError, "404")
	assert.False(t, snap.CanFetch())

	// No retry.
	require.Error(t, f.ctrl.Load(context.Background()))
	assert.Equal(t, 1, f.loader.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DatasetLoads.WithLabelValues("error")), 0)
}

// --- fetch ---

func TestController_FetchBeforeLoadIsNoop(t *testing.T) {
	f := newFixture(t)
	before := f.ctrl.Snapshot()

	snap, err := f.ctrl.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, snap)
	assert.False(t, snap.HasFetched)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchRequests.WithLabelValues("not_loaded")), 0)
}

func TestController_FetchProducesResult(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	snap := f.fetch(t)

	assert.Equal(t, ViewData, snap.View)
	assert.False(t, snap.Fetching)
	assert.True(t, snap.HasFetched)
	require.Len(t, snap.Result.Matches, 2)
	assert.Equal(t, "Jan", snap.Result.Matches[0].Month)
	assert.Equal(t, "Dec", snap.Result.Matches[1].Month)
	require.NotNil(t, snap.Result.Stats)
	assert.InDelta(t, 7.0, snap.Result.Stats.Average, 1e-9)
	assert.InDelta(t, 8.0, snap.Result.Stats.Max, 1e-9)
	assert.InDelta(t, 6.0, snap.Result.Stats.Min, 1e-9)
	assert.Equal(t, domain.DefaultFilterState(), snap.ResultFilters)
	assert.Equal(t, "°C", snap.Unit())
}

func TestController_FetchShowsLoadingWhileWaiting(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	done := f.startFetch(t, context.Background())
	snap := f.ctrl.Snapshot()
	assert.Equal(t, ViewFetching, snap.View)
	assert.False(t, snap.CanFetch())

	_, err := f.ctrl.Fetch(context.Background())
	require.ErrorIs(t, err, ErrFetchInProgress)

	f.clock.Advance(DefaultFetchDelay)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, ViewData, r.snap.View)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchRequests.WithLabelValues("in_progress")), 0)
}

func TestController_FetchNoData(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))
	_, err := f.ctrl.UpdateFilter(domain.FieldRegion, "Wales")
	require.NoError(t, err)

	snap := f.fetch(t)
	assert.Equal(t, ViewNoData, snap.View)
	assert.Empty(t, snap.Result.Matches)
	assert.Nil(t, snap.Result.Stats)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchRequests.WithLabelValues("no_data")), 0)
}

func TestController_FetchUsesFiltersAtRequestTime(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	done := f.startFetch(t, context.Background())
	_, err := f.ctrl.UpdateFilter(domain.FieldParameter, "Rainfall")
	require.NoError(t, err)
	f.clock.Advance(DefaultFetchDelay)
	r := <-done
	require.NoError(t, r.err)

	assert.Equal(t, domain.Tmax, r.snap.ResultFilters.Parameter)
	assert.Equal(t, domain.Rainfall, r.snap.Filters.Parameter)
	assert.Len(t, r.snap.Result.Matches, 2)
}

func TestController_FetchCancelledKeepsPreviousResult(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))
	first := f.fetch(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := f.startFetch(t, ctx)
	cancel()
	r := <-done

	require.ErrorIs(t, r.err, context.Canceled)
	assert.False(t, r.snap.Fetching)
	assert.Equal(t, first.Result, r.snap.Result)
	assert.Equal(t, ViewData, r.snap.View)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.FetchRequests.WithLabelValues("cancelled")), 0)
}

func TestController_FirstFetchCancelledReturnsToWelcome(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := f.startFetch(t, ctx)
	cancel()
	r := <-done

	require.Error(t, r.err)
	assert.Equal(t, ViewWelcome, r.snap.View)
}

func TestController_ResultCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	first := f.fetch(t)
	second := f.fetch(t)

	assert.Equal(t, first.Result, second.Result)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ResultCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ResultCache.WithLabelValues("hit")), 0)
}

func TestController_ZeroDelayFetchesImmediately(t *testing.T) {
	f := newFixture(t, WithFetchDelay(0), WithCacheSize(0))
	require.NoError(t, f.ctrl.Load(context.Background()))

	snap, err := f.ctrl.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ViewData, snap.View)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.ResultCache.WithLabelValues("hit")), 0)
}

func TestController_PublishesFetchEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, WithPublisher("kafka", pub))
	require.NoError(t, f.ctrl.Load(context.Background()))

	f.fetch(t)
	require.NoError(t, f.ctrl.Drain(context.Background()))

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].MatchCount)
	assert.Equal(t, domain.DefaultFilterState(), events[0].Filters)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("kafka", "success")), 0)
}

func TestController_PublishFailureDoesNotFailFetch(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, WithPublisher("mqtt", pub))
	require.NoError(t, f.ctrl.Load(context.Background()))

	snap := f.fetch(t)
	assert.Equal(t, ViewData, snap.View)
	require.NoError(t, f.ctrl.Drain(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("mqtt", "error")), 0)
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	started chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ domain.FetchCompleted) error {
	close(p.started)
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestController_SlowPublisherDoesNotDelayFetch(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{}), started: make(chan struct{})}
	f := newFixture(t, WithFetchDelay(0), WithPublisher("kafka", pub))
	require.NoError(t, f.ctrl.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	snap, err := f.ctrl.Fetch(ctx)
	cancel()
	require.NoError(t, err)
	assert.Equal(t, ViewData, snap.View)

	select {
	case <-pub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("event was never handed to the publisher")
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer drainCancel()
	require.ErrorIs(t, f.ctrl.Drain(drainCtx), context.DeadlineExceeded, "publish still pending")

	close(pub.release)
	require.NoError(t, f.ctrl.Drain(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("kafka", "success")), 0,
		"a finished request does not cancel its event")
}

// --- filters ---

func TestController_UpdateFilterReconcilesRange(t *testing.T) {
	f := newFixture(t)

	snap, err := f.ctrl.UpdateFilter(domain.FieldStartYear, "2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, snap.Filters.StartYear)
	assert.Equal(t, 2025, snap.Filters.EndYear)

	snap, err = f.ctrl.UpdateFilter(domain.FieldEndMonth, "Mar")
	require.NoError(t, err)
	assert.Equal(t, "Jan", snap.Filters.StartMonth)
	assert.Equal(t, "Mar", snap.Filters.EndMonth)
}

func TestController_UpdateFilterRejectsInvalidValue(t *testing.T) {
	f := newFixture(t)
	before := f.ctrl.Snapshot()

	snap, err := f.ctrl.UpdateFilter(domain.FieldStartMonth, "Smarch")
	require.ErrorIs(t, err, domain.ErrInvalidMonth)
	assert.Equal(t, before.Filters, snap.Filters)
	assert.Equal(t, before.Version, snap.Version)
}

// --- theme ---

func TestController_ToggleThemePersists(t *testing.T) {
	f := newFixture(t)

	snap := f.ctrl.ToggleTheme(context.Background())
	assert.Equal(t, settings.Dark, snap.Theme)

	stored, err := f.themes.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Dark, stored)

	snap = f.ctrl.ToggleTheme(context.Background())
	assert.Equal(t, settings.Light, snap.Theme)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ThemeChanges.WithLabelValues("dark")), 0)
}

func TestController_SetThemeRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.SetTheme(context.Background(), settings.Theme("sepia"))
	require.ErrorIs(t, err, settings.ErrInvalidTheme)
	assert.Equal(t, settings.Light, f.ctrl.Theme())
}

// --- subscriptions ---

func TestController_SubscribeReceivesChanges(t *testing.T) {
	f := newFixture(t)
	ch, unsubscribe := f.ctrl.Subscribe()
	defer unsubscribe()

	initial := <-ch
	assert.Equal(t, ViewLoading, initial.View)

	require.NoError(t, f.ctrl.Load(context.Background()))
	loaded := <-ch
	assert.Equal(t, ViewWelcome, loaded.View)
	assert.Greater(t, loaded.Version, initial.Version)
}

func TestController_SlowSubscriberGetsLatest(t *testing.T) {
	f := newFixture(t)
	ch, unsubscribe := f.ctrl.Subscribe()
	defer unsubscribe()

	for _, year := range []string{"2024", "2025"} {
		_, err := f.ctrl.UpdateFilter(domain.FieldEndYear, year)
		require.NoError(t, err)
	}

	latest := <-ch
	assert.Equal(t, 2025, latest.Filters.EndYear)
	assert.Equal(t, f.ctrl.Snapshot().Version, latest.Version)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot: %+v", extra)
	default:
	}
}

func TestController_UnsubscribeClosesChannel(t *testing.T) {
	f := newFixture(t)
	ch, unsubscribe := f.ctrl.Subscribe()
	<-ch

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	// Later changes must not panic on the closed channel.
	_, err := f.ctrl.UpdateFilter(domain.FieldRegion, "England")
	require.NoError(t, err)
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Load(context.Background()))

	snap := f.ctrl.Snapshot()
	snap.Regions[0] = "Mutated"
	snap.Years[0] = 1900

	again := f.ctrl.Snapshot()
	assert.Equal(t, "UK", again.Regions[0])
	assert.Equal(t, 2023, again.Years[0])
}

func TestController_CacheDoesNotMixFiltersWithSameKey(t *testing.T) {
	f := newFixture(t, WithFetchDelay(0))
	f.loader.ds = domain.Dataset{
		Regions:    []string{"UK|Tmax", "UK"},
		Parameters: []string{"Tmax"},
		Observations: []domain.Observation{
			{Region: "UK|Tmax", Parameter: domain.Tmax, Year: 2023, Month: "Jan", Value: 5},
		},
	}
	require.NoError(t, f.ctrl.Load(context.Background()))

	_, err := f.ctrl.UpdateFilter(domain.FieldRegion, "UK|Tmax")
	require.NoError(t, err)
	snap, err := f.ctrl.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Result.Matches, 1)

	_, err = f.ctrl.UpdateFilter(domain.FieldRegion, "UK")
	require.NoError(t, err)
	_, err = f.ctrl.UpdateFilter(domain.FieldParameter, "Tmax|Tmax")
	require.NoError(t, err)
	require.Equal(t, snap.ResultFilters.Key(), f.ctrl.Snapshot().Filters.Key(), "both filters join to the same string")

	snap, err = f.ctrl.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Result.Matches)
	assert.Equal(t, ViewNoData, snap.View)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.ResultCache.WithLabelValues("hit")), 0)
}

func TestController_ApplyFiltersKeepsSubmittedRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.UpdateFilter(domain.FieldEndYear, "2025")
	require.NoError(t, err)
	_, err = f.ctrl.UpdateFilter(domain.FieldEndMonth, "Jan")
	require.NoError(t, err)

	snap, err := f.ctrl.ApplyFilters(map[domain.Field]string{
		domain.FieldStartYear:  "2024",
		domain.FieldStartMonth: "Jun",
		domain.FieldEndYear:    "2024",
		domain.FieldEndMonth:   "Dec",
	})
	require.NoError(t, err)
	assert.Equal(t, 2024, snap.Filters.StartYear)
	assert.Equal(t, "Jun", snap.Filters.StartMonth)
	assert.Equal(t, 2024, snap.Filters.EndYear)
	assert.Equal(t, "Dec", snap.Filters.EndMonth)

	before := snap.Version
	snap, err = f.ctrl.ApplyFilters(map[domain.Field]string{domain.FieldEndMonth: "Smarch"})
	require.ErrorIs(t, err, domain.ErrInvalidMonth)
	assert.Equal(t, before, snap.Version)
}
