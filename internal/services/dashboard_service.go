package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"salesdash/internal/cache"
	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/merge"
	"salesdash/internal/normalize"
	"salesdash/internal/sources"
	"salesdash/internal/targets"
)

// Sources are the three tables the dashboard is built from.
type Sources struct {
	Recent     sources.TableReader
	Historical sources.TableReader
	Targets    sources.TableReader
}

// Options configures a DashboardService.
type Options struct {
	Clock        core.Clock
	TargetSchema targets.Schema
	// CacheTTL bounds how long a loaded dataset is reused. Zero keeps it
	// until Refresh.
	CacheTTL time.Duration
	Logger   *log.Logger
}

// DashboardService is the pipeline entry point: read, normalize, merge
// and cache the dataset, then build the views from it. Every load
// failure degrades to an empty dataset; views report HasData=false.
type DashboardService struct {
	src        Sources
	clock      core.Clock
	normalizer *normalize.Normalizer
	targets    *targets.Loader
	datasets   *cache.LRUCache[core.Dataset]
	targetTbl  *cache.LRUCache[targets.Table]
	group      singleflight.Group
	// generation is bumped by Refresh; loads started under an older
	// generation are neither joined nor cached.
	generation atomic.Uint64
	logger     *log.Logger

	mu      sync.RWMutex
	lastErr error
	loaded  time.Time
}

func NewDashboardService(src Sources, opts Options) *DashboardService {
	if opts.Clock == nil {
		opts.Clock = core.LiveClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.TargetSchema == (targets.Schema{}) {
		opts.TargetSchema = targets.DefaultSchema()
	}
	return &DashboardService{
		src:        src,
		clock:      opts.Clock,
		normalizer: normalize.New(opts.Logger),
		targets:    targets.NewLoader(opts.TargetSchema, opts.Logger),
		datasets:   cache.NewLRUCache[core.Dataset](4, opts.CacheTTL),
		targetTbl:  cache.NewLRUCache[targets.Table](1, opts.CacheTTL),
		logger:     opts.Logger.WithComponent(log.ComponentDashboard),
	}
}

// Caches exposes the service caches so the host can register them.
func (s *DashboardService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.datasets, s.targetTbl}
}

// Window returns the reporting window for the current clock reading.
func (s *DashboardService) Window() core.Window {
	return core.NewWindow(s.clock.Now())
}

// Dataset returns the unified dataset, loading it on a cache miss.
// Concurrent misses share one load, which outlives the caller that
// started it.
func (s *DashboardService) Dataset(ctx context.Context) core.Dataset {
	w := s.Window()
	gen := s.generation.Load()
	key := fmt.Sprintf("dataset:%s:%d", w.Today.Format(time.DateOnly), gen)
	if ds, ok := s.datasets.Get(key); ok {
		return ds
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ds, err := s.loadDataset(context.WithoutCancel(ctx), w)
		s.setStatus(err)
		if err != nil {
			return core.Dataset{Window: w}, err
		}
		if s.generation.Load() == gen {
			s.datasets.Set(key, ds)
		}
		return ds, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Dataset unavailable",
			log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()...)
	}
	return v.(core.Dataset)
}

func (s *DashboardService) loadDataset(ctx context.Context, w core.Window) (core.Dataset, error) {
	var recent, historical normalize.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.readSource(gctx, s.src.Recent, core.Recent)
		return err
	})
	g.Go(func() error {
		var err error
		historical, err = s.readSource(gctx, s.src.Historical, core.Historical)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dataset{Window: w}, err
	}

	ds := merge.Merge(recent.Records, historical.Records, w)
	st := merge.Summarize(recent.Records, historical.Records, ds)
	s.logger.InfoContext(ctx, "Dataset loaded",
		log.FieldOperation, log.OpMerge,
		"as_of", w.AsOf(),
		"recent", st.Recent,
		"recent_kept", st.RecentKept,
		"historical", st.Historical,
		"historical_kept", st.HistoricalKept)
	return ds, nil
}

func (s *DashboardService) readSource(ctx context.Context, r sources.TableReader, src core.Source) (normalize.Result, error) {
	if r == nil {
		return normalize.Result{}, fmt.Errorf("%s source: %w", src, core.ErrNotFound)
	}
	tbl, err := r.ReadTable(ctx)
	if err != nil {
		return normalize.Result{}, fmt.Errorf("read %s source: %w", src, err)
	}
	res, err := s.normalizer.Normalize(ctx, tbl, src)
	if err != nil {
		return normalize.Result{}, fmt.Errorf("normalize %s source: %w", src, err)
	}
	return res, nil
}

// Targets returns the target table, empty when it cannot be loaded.
func (s *DashboardService) Targets(ctx context.Context) targets.Table {
	gen := s.generation.Load()
	key := fmt.Sprintf("targets:%d", gen)
	if t, ok := s.targetTbl.Get(key); ok {
		return t
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		if s.src.Targets == nil {
			return targets.Table{}, fmt.Errorf("target source: %w", core.ErrNotFound)
		}
		ctx := context.WithoutCancel(ctx)
		raw, err := s.src.Targets.ReadTable(ctx)
		if err != nil {
			return targets.Table{}, fmt.Errorf("read target source: %w", err)
		}
		t, err := s.targets.Load(ctx, raw)
		if err != nil {
			return targets.Table{}, err
		}
		if s.generation.Load() == gen {
			s.targetTbl.Set(key, t)
		}
		return t, nil
	})
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()
		if errors.Is(err, core.ErrNotFound) {
			s.logger.WarnContext(ctx, "Targets unavailable", fields...)
		} else {
			s.logger.ErrorContext(ctx, "Targets unavailable", fields...)
		}
	}
	return v.(targets.Table)
}

// Refresh drops every cached parse so the next request re-reads the sources.
func (s *DashboardService) Refresh(ctx context.Context) {
	s.generation.Add(1)
	s.datasets.Clear()
	s.targetTbl.Clear()
	s.logger.InfoContext(ctx, "Dashboard cache cleared", log.FieldOperation, log.OpRefresh)
}

// Status describes the outcome of the last dataset load.
type Status struct {
	Loaded  time.Time
	LastErr error
}

// Status reports the last dataset load.
func (s *DashboardService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Loaded: s.loaded, LastErr: s.lastErr}
}

func (s *DashboardService) setStatus(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err == nil {
		s.loaded = s.clock.Now()
	}
}
