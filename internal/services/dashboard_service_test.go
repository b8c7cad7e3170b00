package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
	"salesdash/internal/sources"
	"salesdash/internal/sources/memory"
)

var recentHeader = []string{"Sale In Cr", "Travel M", "Travel Y", "REGION", "Final Buniess", "FILE_TYPE", "FILE_SUB_TYPE", "REGION_B", "FILE_DATE", "Travel Qtr"}
var historicalHeader = []string{"Sale In Cr", "Travel M", "Travel Y", "REGION", "Final Buniess", "FILE_TYPE", "FILE_SUB_TYPE", "REGION_B", "Travel Qtr"}

// now is Jul 24 2025: yesterday is Jul 23, the current month is July.
var now = time.Date(2025, 7, 24, 10, 0, 0, 0, time.UTC)

func seed(store *memory.Store) {
	store.Set("recent", [][]string{
		recentHeader,
		{"10", "Jul", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-07-20", "Q2"},
		{"5", "Aug", "2025", "South", "LOSH", "GIT", "", "Mumbai", "2025-07-22", "Q2"},
		{"7", "Jul", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-07-24", "Q2"},
		{"8", "Jul", "2024", "North", "LOLH", "FIT", "", "Delhi", "2024-07-10", "Q2"},
		{"100", "Jun", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-06-01", "Q1"},
	})
	store.Set("historical", [][]string{
		historicalHeader,
		{"20", "Feb", "2025", "North", "LTDM", "FIT", "CRUISE", "Delhi", "Q4"},
		{"4", "Feb", "2024", "North", "LTDM", "FIT", "", "Delhi", "Q4"},
		{"50", "Aug", "2025", "North", "LTDM", "FIT", "", "Delhi", "Q2"},
	})
	store.Set("targets", [][]string{
		{"TYPE", "ZONE", "Region", "Month", "Target Amount"},
		{"BAREA", "", "LOLH", "Jul", "40"},
		{"BAREA", "", "LOSH", "Aug", "10"},
		{"BAREA", "", "LTDM", "Feb", "20"},
		{"REGION", "", "DELHI", "Jul", "60"},
		{"FILE TYPE", "LOLH", "FIT", "Jul", "20"},
	})
}

func newService(t *testing.T) (*DashboardService, *memory.Store) {
	t.Helper()
	store := memory.New()
	seed(store)
	svc := NewDashboardService(Sources{
		Recent:     store.Reader("recent"),
		Historical: store.Reader("historical"),
		Targets:    store.Reader("targets"),
	}, Options{Clock: core.FixedClock(now)})
	return svc, store
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestDatasetMergesSources(t *testing.T) {
	svc, _ := newService(t)
	ds := svc.Dataset(context.Background())

	require.Len(t, ds.Records, 5)
	assert.Equal(t, 2025, ds.Window.CurrentYear)
	assert.Equal(t, 7, ds.Window.CurrentMonth)

	var recent, historical int
	for _, r := range ds.Records {
		switch r.Source {
		case core.Recent:
			recent++
		case core.Historical:
			historical++
		}
	}
	assert.Equal(t, 3, recent)
	assert.Equal(t, 2, historical)
	assert.NoError(t, svc.Status().LastErr)
	assert.True(t, svc.Status().Loaded.Equal(now))
}

func TestDatasetIsCachedUntilRefresh(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	svc.Dataset(ctx)
	svc.Dataset(ctx)
	assert.Equal(t, 1, store.Reads("recent"))
	assert.Equal(t, 1, store.Reads("historical"))

	svc.Refresh(ctx)
	svc.Dataset(ctx)
	assert.Equal(t, 2, store.Reads("recent"))
}

// countingClock counts Window lookups, one per Dataset call.
type countingClock struct {
	calls atomic.Int32
}

func (c *countingClock) Now() time.Time {
	c.calls.Add(1)
	return now
}

// waitingReader holds the read until every caller has asked for the
// dataset, so all of them miss the cache while the load is in flight.
type waitingReader struct {
	inner   sources.TableReader
	clock   *countingClock
	callers int32
}

func (r *waitingReader) ReadTable(ctx context.Context) (core.Table, error) {
	deadline := time.Now().Add(2 * time.Second)
	for r.clock.calls.Load() < r.callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// let the last callers reach the shared load
	time.Sleep(20 * time.Millisecond)
	return r.inner.ReadTable(ctx)
}

func TestDatasetConcurrentMissesShareLoad(t *testing.T) {
	const callers = 8
	store := memory.New()
	seed(store)
	clock := &countingClock{}
	svc := NewDashboardService(Sources{
		Recent:     &waitingReader{inner: store.Reader("recent"), clock: clock, callers: callers},
		Historical: store.Reader("historical"),
		Targets:    store.Reader("targets"),
	}, Options{Clock: clock})

	var wg sync.WaitGroup
	sizes := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sizes[i] = len(svc.Dataset(context.Background()).Records)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Reads("recent"))
	assert.Equal(t, 1, store.Reads("historical"))
	for i, n := range sizes {
		assert.Equal(t, 5, n, "caller %d", i)
	}
}

// gatedReader finishes its read, then blocks until release is closed.
type gatedReader struct {
	inner   sources.TableReader
	entered chan struct{}
	release chan struct{}
}

func (r *gatedReader) ReadTable(ctx context.Context) (core.Table, error) {
	tbl, err := r.inner.ReadTable(ctx)
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	return tbl, err
}

func TestRefreshDuringLoadIsNotLost(t *testing.T) {
	store := memory.New()
	seed(store)
	gate := &gatedReader{
		inner:   store.Reader("recent"),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc := NewDashboardService(Sources{
		Recent:     gate,
		Historical: store.Reader("historical"),
		Targets:    store.Reader("targets"),
	}, Options{Clock: core.FixedClock(now)})
	ctx := context.Background()

	stale := make(chan core.Dataset, 1)
	go func() { stale <- svc.Dataset(ctx) }()

	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("load never reached the recent source")
	}

	store.Set("recent", [][]string{
		recentHeader,
		{"10", "Jul", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-07-20", "Q2"},
	})
	svc.Refresh(ctx)
	close(gate.release)

	assert.Len(t, (<-stale).Records, 5)

	fresh := svc.Dataset(ctx)
	assert.Equal(t, 2, store.Reads("recent"))
	assert.Len(t, fresh.Records, 3)
}

func TestDatasetLoadSurvivesCancelledCaller(t *testing.T) {
	svc, store := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := svc.Dataset(ctx)
	assert.Len(t, ds.Records, 5)
	assert.NoError(t, svc.Status().LastErr)
	assert.Equal(t, 1, store.Reads("recent"))

	// the completed load is cached for later callers
	svc.Dataset(context.Background())
	assert.Equal(t, 1, store.Reads("recent"))
}

func TestSchemaFailureYieldsEmptyDataset(t *testing.T) {
	svc, store := newService(t)
	store.Set("historical", [][]string{{"Travel M", "REGION"}, {"Feb", "North"}})

	ds := svc.Dataset(context.Background())
	assert.True(t, ds.Empty())
	assert.ErrorIs(t, svc.Status().LastErr, core.ErrSchema)

	view := svc.Dashboard(context.Background(), core.Filters{})
	assert.False(t, view.HasData)
}

func TestMissingSourceYieldsEmptyDataset(t *testing.T) {
	svc, store := newService(t)
	store.Delete("recent")

	assert.True(t, svc.Dataset(context.Background()).Empty())
	assert.ErrorIs(t, svc.Status().LastErr, core.ErrNotFound)
}

func TestDashboardView(t *testing.T) {
	svc, _ := newService(t)
	view := svc.Dashboard(context.Background(), core.Filters{})
	require.True(t, view.HasData)

	require.Len(t, view.KPIs, 5)
	total := view.KPIs[0]
	assert.Equal(t, core.TotalSalesLabel, total.Label)
	assert.True(t, total.Current.Equal(dec("35")))
	assert.True(t, total.Previous.Equal(dec("12")))
	assert.InDelta(t, 191.6667, total.Growth, 0.001)

	lolh := view.KPIs[1]
	assert.Equal(t, "LOLH", lolh.Label)
	assert.True(t, lolh.Present)
	assert.InDelta(t, 25.0, lolh.Growth, 1e-9)

	losh := view.KPIs[2]
	assert.True(t, losh.Current.Equal(dec("5")))
	assert.Equal(t, 0.0, losh.Growth)

	air := view.KPIs[4]
	assert.Equal(t, "AIR", air.Label)
	assert.False(t, air.Present)
	assert.True(t, air.Current.IsZero())

	require.Len(t, view.Monthly, 12)
	assert.Equal(t, "Feb", view.Monthly[1].Label)
	assert.True(t, view.Monthly[1].Current.Equal(dec("20")))
	assert.True(t, view.Monthly[1].Previous.Equal(dec("4")))
	assert.True(t, view.Monthly[6].Current.Equal(dec("10")))
	assert.True(t, view.Monthly[0].Current.IsZero())

	require.Len(t, view.Regions, 2)
	assert.Equal(t, "DELHI", view.Regions[0].Label)
	assert.True(t, view.Regions[0].Current.Equal(dec("30")))
	assert.True(t, view.Regions[0].Previous.Equal(dec("12")))
	assert.Equal(t, "MUMBAI", view.Regions[1].Label)

	areas := make(map[string]decimal.Decimal)
	for _, row := range view.BusinessAreas {
		areas[row.Label] = row.Current
	}
	assert.True(t, areas[core.ManagedBusinessArea].Equal(dec("20")))
	assert.True(t, areas["LOLH"].Equal(dec("10")))

	require.Len(t, view.BusinessContribution, 4)
	assert.InDelta(t, 20/35.0*100, view.BusinessContribution[2].Pct, 1e-6)
	require.Len(t, view.FileTypeContribution, 3)
	assert.Equal(t, "GIT", view.FileTypeContribution[0].Label)
	assert.True(t, view.FileTypeContribution[1].Value.Equal(dec("30")))
}

func TestDashboardFilters(t *testing.T) {
	svc, _ := newService(t)
	view := svc.Dashboard(context.Background(), core.Filters{Business: "LOLH", Region: "All"})
	require.True(t, view.HasData)
	assert.True(t, view.KPIs[0].Current.Equal(dec("10")))
	assert.True(t, view.KPIs[0].Previous.Equal(dec("8")))
	assert.False(t, view.KPIs[2].Present)

	// the unfiltered dataset is untouched
	assert.Len(t, svc.Dataset(context.Background()).Records, 5)
}

func TestTargetVsAchievement(t *testing.T) {
	svc, _ := newService(t)
	view := svc.TargetVsAchievement(context.Background(), core.Filters{})
	require.True(t, view.HasData)
	assert.Equal(t, 2025, view.Year)

	require.Len(t, view.KPIs, 5)
	assert.True(t, view.KPIs[0].Target.Equal(dec("70")))
	assert.InDelta(t, 50.0, view.KPIs[0].Achievement, 1e-9)
	assert.InDelta(t, 25.0, view.KPIs[1].Achievement, 1e-9)
	assert.InDelta(t, 100.0, view.KPIs[3].Achievement, 1e-9)
	assert.False(t, view.KPIs[4].Present)

	require.Len(t, view.Regions, 2)
	assert.Equal(t, "DELHI", view.Regions[0].Label)
	assert.InDelta(t, 50.0, view.Regions[0].Achievement, 1e-9)
	assert.Equal(t, 0.0, view.Regions[1].Achievement)

	require.Len(t, view.Monthly, 12)
	assert.InDelta(t, 100.0, view.Monthly[1].Achievement, 1e-9)
	assert.InDelta(t, 25.0, view.Monthly[6].Achievement, 1e-9)
	assert.InDelta(t, 50.0, view.Monthly[7].Achievement, 1e-9)

	require.Len(t, view.FileTypes, 3)
	lolh := view.FileTypes[0]
	assert.Equal(t, "LOLH", lolh.Business)
	assert.True(t, lolh.HasTargets)
	require.Len(t, lolh.Rows, 2)
	assert.Equal(t, "FIT", lolh.Rows[0].Label)
	assert.InDelta(t, 50.0, lolh.Rows[0].Achievement, 1e-9)
	assert.False(t, view.FileTypes[1].HasTargets)
}

func TestTargetVsAchievementWithoutTargets(t *testing.T) {
	svc, store := newService(t)
	store.Delete("targets")
	view := svc.TargetVsAchievement(context.Background(), core.Filters{})
	assert.False(t, view.HasData)
}

func TestDRRSummary(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	view, err := svc.DRRSummary(ctx, time.Time{}, time.Time{}, core.Filters{})
	require.NoError(t, err)
	require.True(t, view.HasData)
	assert.True(t, view.From.Equal(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, view.To.Equal(time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)))
	assert.True(t, view.Total.Equal(dec("23")))

	view, err = svc.DRRSummary(ctx, time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 23, 0, 0, 0, 0, time.UTC), core.Filters{})
	require.NoError(t, err)
	require.Len(t, view.Days, 4)
	assert.True(t, view.Total.Equal(dec("15")))
	assert.True(t, view.RunRate.Equal(dec("7.5")))

	_, err = svc.DRRSummary(ctx, time.Date(2025, 7, 23, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), core.Filters{})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFilterOptions(t *testing.T) {
	svc, _ := newService(t)
	opts := svc.FilterOptions(context.Background())
	assert.Equal(t, []string{AllOption, "North", "South"}, opts.Regions)
	assert.Equal(t, []string{AllOption, "Q2", "Q4"}, opts.Quarters)
	assert.Equal(t, []string{AllOption, "LOLH", "LOSH", "LTDM"}, opts.Businesses)
}
