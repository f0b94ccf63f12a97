package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockwatch/cache"
	"stockwatch/config"
	"stockwatch/internal/scheduler"
	"stockwatch/models"
	"stockwatch/normalize"
	"stockwatch/observability"
	"stockwatch/repository"
	"stockwatch/resolver"
	"stockwatch/services"

	"github.com/google/uuid"
)

var (
	// ErrStorageUnavailable is returned by watchlist operations when no store is configured
	ErrStorageUnavailable = errors.New("watchlist storage not configured")
	// ErrEmptyInput is returned when a symbol or company name is blank
	ErrEmptyInput = errors.New("symbol or company name required")
	// ErrInvalidID is returned for a malformed watchlist id
	ErrInvalidID = errors.New("invalid watchlist id")
)

// QuoteResolver defines the resolution operations needed by App
type QuoteResolver interface {
	Resolve(ctx context.Context, symbol string) (*models.StockRecord, error)
	Refresh(ctx context.Context, symbol string) (*models.StockRecord, error)
	ResolveBatch(ctx context.Context, symbols []string) *resolver.BatchResult
	History(ctx context.Context, symbol string, rng models.Range) ([]models.ClosePoint, error)
	Providers() []string
	Breakers() *services.CircuitBreakerRegistry
}

// DatabaseInterface defines the database operations needed by App
type DatabaseInterface interface {
	Close()
	Health(ctx context.Context) error
}

// Dependencies holds the collaborators an App is built from. Every field
// except Resolver may be nil; the matching operations then report that the
// feature is unavailable.
type Dependencies struct {
	Resolver  QuoteResolver
	Chart     services.ChartProvider
	Summary   services.SummaryProvider
	Scraper   services.Provider
	Searcher  services.Searcher
	Store     repository.WatchlistStore
	DB        DatabaseInterface
	Cache     *cache.RecordCache
	Scheduler *scheduler.Scheduler
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	ctx       context.Context
	cfg       *config.Config
	resolver  QuoteResolver
	chart     services.ChartProvider
	summary   services.SummaryProvider
	scraper   services.Provider
	searcher  services.Searcher
	store     repository.WatchlistStore
	db        DatabaseInterface
	memory    *cache.RecordCache
	scheduler *scheduler.Scheduler
}

// New creates a new App from already constructed dependencies
func New(cfg *config.Config, deps Dependencies) *App {
	return &App{
		ctx:       context.Background(),
		cfg:       cfg,
		resolver:  deps.Resolver,
		chart:     deps.Chart,
		summary:   deps.Summary,
		scraper:   deps.Scraper,
		searcher:  deps.Searcher,
		store:     deps.Store,
		db:        deps.DB,
		memory:    deps.Cache,
		scheduler: deps.Scheduler,
	}
}

// Build wires provider clients, cache tiers, the resolver and the watchlist
// store from configuration. A database that cannot be reached is logged and
// the app falls back to the file store.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	primaryRange, err := models.ParseRange(cfg.Resolver.ChartRange)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Resolver.ProviderTimeoutSeconds) * time.Second
	opts := services.Options{Timeout: timeout, UserAgent: cfg.Yahoo.UserAgent}

	chart := services.NewChartService(cfg.Yahoo.ChartURL, primaryRange, opts)
	summary := services.NewQuoteSummaryService(cfg.Yahoo.SummaryURL, opts)
	scraper := services.NewScrapeService(cfg.Yahoo.QuotePage, opts)
	searcher := services.NewSearchService(cfg.Yahoo.SearchURL, opts)

	var enrichers []services.Provider
	for _, name := range cfg.EnrichmentOrder() {
		switch name {
		case services.ProviderQuoteSummary:
			enrichers = append(enrichers, summary)
		case services.ProviderScrape:
			enrichers = append(enrichers, scraper)
		case services.ProviderAlphaVantage:
			if !cfg.HasAlphaVantage() {
				observability.Warn("ALPHA_VANTAGE_API_KEY not set, overview fallback disabled")
				continue
			}
			enrichers = append(enrichers, services.NewAlphaVantageService(
				cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.RequestsPerMinute, opts))
		case services.ProviderFMP:
			if !cfg.HasFMP() {
				observability.Warn("FMP_API_KEY not set, FMP fallback disabled")
				continue
			}
			enrichers = append(enrichers, services.NewFMPService(cfg.FMP.APIKey, cfg.FMP.BaseURL, opts))
		}
	}

	memory := cache.New(time.Duration(cfg.Resolver.CacheTTLSeconds)*time.Second, nil)
	var recordCache cache.Store = memory

	deps := Dependencies{
		Chart:    chart,
		Summary:  summary,
		Scraper:  scraper,
		Searcher: searcher,
		Cache:    memory,
	}

	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err == nil {
			err = repo.EnsureSchema(ctx)
			if err != nil {
				repo.Close()
			}
		}
		if err != nil {
			observability.Warn("database unavailable, falling back to file storage", "error", err)
			repo = nil
		}
	}

	switch {
	case repo != nil:
		recordCache = cache.NewTiered(memory, repo)
		deps.Store = repo
		deps.DB = repo
	case cfg.Watchlist.FilePath != "":
		deps.Store = repository.NewFileStore(cfg.Watchlist.FilePath)
	default:
		observability.Warn("no database or watchlist file configured, watchlists disabled")
	}

	retry := services.DefaultRetryConfig
	retry.MaxRetries = cfg.Resolver.PrimaryRetries
	retry.Retryable = services.IsTransient

	res := resolver.New(chart, enrichers, resolver.Options{
		Cache:            recordCache,
		Breakers:         services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig),
		Retry:            retry,
		ProviderTimeout:  timeout,
		SummaryPoints:    cfg.Resolver.SummaryPoints,
		DetailPoints:     cfg.Resolver.DetailPoints,
		BatchConcurrency: cfg.Resolver.BatchConcurrency,
	})
	deps.Resolver = res

	if cfg.HasScheduler() && deps.Store != nil {
		schedCfg := scheduler.Config{
			Spec:        cfg.Scheduler.RefreshSpec,
			Watchlists:  deps.Store,
			Refresher:   res,
			Pruner:      memory,
			TTL:         memory.TTL(),
			Concurrency: cfg.Resolver.BatchConcurrency,
		}
		if repo != nil {
			schedCfg.Snapshots = repo
		}
		sched, err := scheduler.New(schedCfg)
		if err != nil {
			if repo != nil {
				repo.Close()
			}
			return nil, err
		}
		deps.Scheduler = sched
	}

	observability.Info("application wired",
		"providers", res.Providers(),
		"database", repo != nil,
		"scheduler", deps.Scheduler != nil)

	return New(cfg, deps), nil
}

// Startup is called when the app starts
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// Shutdown is called when the app is closing
func (a *App) Shutdown(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// DB returns the database handle, nil when running without one
func (a *App) DB() DatabaseInterface {
	return a.db
}

// Resolver returns the resolution pipeline
func (a *App) Resolver() QuoteResolver {
	return a.resolver
}

// CacheEntries returns the number of records held in memory
func (a *App) CacheEntries() int {
	if a.memory == nil {
		return 0
	}
	return a.memory.Len()
}

// Quote returns the resolved record for a symbol
func (a *App) Quote(ctx context.Context, symbol string) (*models.StockRecord, error) {
	return a.resolver.Resolve(ctx, symbol)
}

// History returns the detail close series for a symbol over a range such as "1y" or "3M"
func (a *App) History(ctx context.Context, symbol, rangeParam string) ([]models.ClosePoint, models.Range, error) {
	rng := models.Range1Year
	if rangeParam != "" {
		parsed, err := models.ParseRange(rangeParam)
		if err != nil {
			return nil, "", err
		}
		rng = parsed
	}
	points, err := a.resolver.History(ctx, symbol, rng)
	return points, rng, err
}

// Search maps a company name to its best-matching ticker
func (a *App) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	if a.searcher == nil {
		return nil, fmt.Errorf("search not configured")
	}
	return a.searcher.Search(ctx, query)
}

// Chart returns the raw chart payload used by the compatibility endpoint
func (a *App) Chart(ctx context.Context, symbol string) (*normalize.ChartResult, error) {
	if a.chart == nil {
		return nil, fmt.Errorf("chart provider not configured")
	}
	return a.chart.FetchChart(ctx, models.NormalizeSymbol(symbol), models.Range3Months)
}

// QuoteSummary returns the raw quoteSummary result for the compatibility endpoint
func (a *App) QuoteSummary(ctx context.Context, symbol string) (*normalize.QuoteSummaryResult, error) {
	if a.summary == nil {
		return nil, fmt.Errorf("quote summary provider not configured")
	}
	return a.summary.FetchSummary(ctx, models.NormalizeSymbol(symbol))
}

// Scrape returns whatever fundamentals the quote page yields
func (a *App) Scrape(ctx context.Context, symbol string) (*models.Facts, error) {
	if a.scraper == nil {
		return nil, fmt.Errorf("scraper not configured")
	}
	return a.scraper.Fetch(ctx, models.NormalizeSymbol(symbol))
}

// ListWatchlists returns all watchlists
func (a *App) ListWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	if a.store == nil {
		return nil, ErrStorageUnavailable
	}
	return a.store.ListWatchlists(ctx)
}

// GetWatchlist returns a single watchlist
func (a *App) GetWatchlist(ctx context.Context, id string) (*models.Watchlist, error) {
	if a.store == nil {
		return nil, ErrStorageUnavailable
	}
	parsed, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}
	return a.store.GetWatchlist(ctx, parsed)
}

// CreateWatchlist creates an empty watchlist
func (a *App) CreateWatchlist(ctx context.Context, name string) (*models.Watchlist, error) {
	if a.store == nil {
		return nil, ErrStorageUnavailable
	}
	w, err := models.NewWatchlist(name)
	if err != nil {
		return nil, err
	}
	if err := a.store.CreateWatchlist(ctx, w); err != nil {
		return nil, err
	}
	observability.Info("watchlist created", "id", w.ID, "name", w.Name)
	return w, nil
}

// RenameWatchlist changes a watchlist's display name
func (a *App) RenameWatchlist(ctx context.Context, id, name string) (*models.Watchlist, error) {
	return a.modifyWatchlist(ctx, id, func(w *models.Watchlist) error {
		return w.Rename(name)
	})
}

// modifyWatchlist runs fn against the stored watchlist atomically
func (a *App) modifyWatchlist(ctx context.Context, id string, fn func(*models.Watchlist) error) (*models.Watchlist, error) {
	if a.store == nil {
		return nil, ErrStorageUnavailable
	}
	parsed, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}
	return a.store.ModifyWatchlist(ctx, parsed, fn)
}

// DeleteWatchlist removes a watchlist
func (a *App) DeleteWatchlist(ctx context.Context, id string) error {
	if a.store == nil {
		return ErrStorageUnavailable
	}
	parsed, err := ParseUUID(id)
	if err != nil {
		return err
	}
	return a.store.DeleteWatchlist(ctx, parsed)
}

// AddSymbol validates input by resolving it and appends the resolved symbol.
// Input that is not a known ticker is looked up as a company name.
func (a *App) AddSymbol(ctx context.Context, id, input string) (*models.Watchlist, *models.StockRecord, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, ErrEmptyInput
	}

	w, err := a.GetWatchlist(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if w.Contains(input) {
		return nil, nil, fmt.Errorf("%s: %w", models.NormalizeSymbol(input), models.ErrDuplicateSymbol)
	}

	record, err := a.resolveInput(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	// The lookup ran without the lock, so the duplicate check is repeated inside it
	w, err = a.modifyWatchlist(ctx, id, func(w *models.Watchlist) error {
		return w.Add(record.Symbol)
	})
	if err != nil {
		return nil, nil, err
	}
	return w, record, nil
}

func (a *App) resolveInput(ctx context.Context, input string) (*models.StockRecord, error) {
	symbol := models.NormalizeSymbol(input)

	var resolveErr error
	if models.ValidSymbol(symbol) {
		record, err := a.resolver.Resolve(ctx, symbol)
		if err == nil {
			return record, nil
		}
		// Only an unknown ticker is worth a name search
		var re *resolver.ResolveError
		if !errors.As(err, &re) || re.CauseKind() != models.KindNotFound {
			return nil, err
		}
		resolveErr = err
	}

	if a.searcher == nil {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, fmt.Errorf("%q: %w", input, models.ErrNotFound)
	}

	match, err := a.searcher.Search(ctx, input)
	if err != nil {
		if resolveErr != nil {
			return nil, resolveErr
		}
		return nil, err
	}
	observability.Debug("resolved company name", "query", input, "symbol", match.Symbol)
	return a.resolver.Resolve(ctx, match.Symbol)
}

// RemoveSymbol drops a symbol from a watchlist. Removing an absent symbol is not an error.
func (a *App) RemoveSymbol(ctx context.Context, id, symbol string) (*models.Watchlist, error) {
	return a.modifyWatchlist(ctx, id, func(w *models.Watchlist) error {
		w.Remove(symbol)
		return nil
	})
}

// WatchlistStocks resolves every symbol of a watchlist
func (a *App) WatchlistStocks(ctx context.Context, id string) (*resolver.BatchResult, error) {
	w, err := a.GetWatchlist(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.resolver.ResolveBatch(ctx, w.Symbols), nil
}

// ParseUUID parses a watchlist id
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return parsed, nil
}
