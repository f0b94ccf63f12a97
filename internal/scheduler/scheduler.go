// Package scheduler keeps the record cache warm for every watchlisted symbol.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"stockwatch/models"
	"stockwatch/observability"
)

// DefaultConcurrency bounds how many symbols a refresh run fetches at once
const DefaultConcurrency = 4

// WatchlistLister supplies the symbols to keep warm
type WatchlistLister interface {
	ListWatchlists(ctx context.Context) ([]models.Watchlist, error)
}

// Refresher re-resolves a symbol, bypassing the cache read
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (*models.StockRecord, error)
}

// Pruner drops expired in-memory entries
type Pruner interface {
	Prune() int
}

// SnapshotCleaner deletes durable snapshots older than a cutoff
type SnapshotCleaner interface {
	CleanExpiredSnapshots(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config wires a Scheduler. Pruner and Snapshots are optional.
type Config struct {
	Spec        string
	Watchlists  WatchlistLister
	Refresher   Refresher
	Pruner      Pruner
	Snapshots   SnapshotCleaner
	TTL         time.Duration
	Concurrency int
	RunTimeout  time.Duration
}

// RunResult summarizes one refresh run
type RunResult struct {
	Symbols   int
	Refreshed int
	Failed    int
	Pruned    int
	Cleaned   int64
}

// Scheduler runs cache refreshes on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	running sync.Mutex
}

// New validates the cron spec and registers the refresh job. Specs use the
// standard five-field form or descriptors such as "@every 5m".
func New(cfg Config) (*Scheduler, error) {
	if cfg.Watchlists == nil || cfg.Refresher == nil {
		return nil, fmt.Errorf("scheduler requires a watchlist source and a refresher")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}

	s := &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("register refresh job %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	observability.Info("refresh scheduler started", "spec", s.cfg.Spec)
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	observability.Info("refresh scheduler stopped")
}

func (s *Scheduler) tick() {
	// Skip a tick that lands while the previous run is still going
	if !s.running.TryLock() {
		observability.Warn("refresh run still in progress, skipping tick")
		observability.GetMetrics().RecordRefreshRun("skipped")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		observability.WithError(err).Error("refresh run failed")
	}
}

// RunOnce refreshes every distinct watchlisted symbol, then prunes expired
// cache entries. Individual symbol failures are counted, not returned.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunResult, error) {
	metrics := observability.GetMetrics()
	start := time.Now()

	watchlists, err := s.cfg.Watchlists.ListWatchlists(ctx)
	if err != nil {
		metrics.RecordRefreshRun("error")
		return nil, fmt.Errorf("list watchlists: %w", err)
	}

	symbols := distinctSymbols(watchlists)
	result := &RunResult{Symbols: len(symbols)}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			_, err := s.cfg.Refresher.Refresh(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				observability.Debug("scheduled refresh failed", "symbol", symbol, "error", err)
				return nil
			}
			result.Refreshed++
			return nil
		})
	}
	_ = g.Wait()

	if s.cfg.Pruner != nil {
		result.Pruned = s.cfg.Pruner.Prune()
	}
	if s.cfg.Snapshots != nil && s.cfg.TTL > 0 {
		n, err := s.cfg.Snapshots.CleanExpiredSnapshots(ctx, time.Now().Add(-s.cfg.TTL))
		if err != nil {
			observability.Warn("failed to clean expired snapshots", "error", err)
		}
		result.Cleaned = n
	}

	status := "success"
	if result.Failed > 0 {
		status = "partial"
	}
	metrics.RecordRefreshRun(status)
	observability.Info("refresh run complete",
		"symbols", result.Symbols,
		"refreshed", result.Refreshed,
		"failed", result.Failed,
		"pruned", result.Pruned,
		"cleaned", result.Cleaned,
		"duration", time.Since(start))

	return result, nil
}

// distinctSymbols flattens watchlists into unique symbols in first-seen order
func distinctSymbols(watchlists []models.Watchlist) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, w := range watchlists {
		for _, s := range w.Symbols {
			s = models.NormalizeSymbol(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			symbols = append(symbols, s)
		}
	}
	return symbols
}
