package repository

import (
	"context"

	"github.com/google/uuid"

	"stockwatch/cache"
	"stockwatch/models"
)

// WatchlistStore persists watchlists. Get, Update, Modify and Delete report a
// missing watchlist with models.ErrWatchlistNotFound.
type WatchlistStore interface {
	ListWatchlists(ctx context.Context) ([]models.Watchlist, error)
	GetWatchlist(ctx context.Context, id uuid.UUID) (*models.Watchlist, error)
	CreateWatchlist(ctx context.Context, w *models.Watchlist) error
	UpdateWatchlist(ctx context.Context, w *models.Watchlist) error
	ModifyWatchlist(ctx context.Context, id uuid.UUID, fn func(*models.Watchlist) error) (*models.Watchlist, error)
	DeleteWatchlist(ctx context.Context, id uuid.UUID) error
}

// Compile-time interface verification
var (
	_ WatchlistStore = (*Repository)(nil)
	_ WatchlistStore = (*FileStore)(nil)
	_ cache.Backing  = (*Repository)(nil)
)
