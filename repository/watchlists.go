package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"stockwatch/models"
	"stockwatch/observability"
)

// ListWatchlists returns all watchlists, oldest first
func (r *Repository) ListWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "watchlists")

	rows, err := r.db.Query(ctx, `
		SELECT id, name, symbols, created_at, updated_at
		FROM watchlists
		ORDER BY created_at, name
	`)
	if err != nil {
		metrics.RecordDBError("select", "watchlists")
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	watchlists := []models.Watchlist{}
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			metrics.RecordDBError("select", "watchlists")
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		watchlists = append(watchlists, *w)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBError("select", "watchlists")
		return nil, fmt.Errorf("failed to iterate watchlists: %w", err)
	}

	return watchlists, nil
}

func scanWatchlist(row pgx.Row) (*models.Watchlist, error) {
	var w models.Watchlist
	if err := row.Scan(&w.ID, &w.Name, &w.Symbols, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if w.Symbols == nil {
		w.Symbols = []string{}
	}
	return &w, nil
}

// GetWatchlist returns a single watchlist by ID
func (r *Repository) GetWatchlist(ctx context.Context, id uuid.UUID) (*models.Watchlist, error) {
	return r.getWatchlist(ctx, id, "")
}

func (r *Repository) getWatchlist(ctx context.Context, id uuid.UUID, lock string) (*models.Watchlist, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "watchlists")

	w, err := scanWatchlist(r.db.QueryRow(ctx, `
		SELECT id, name, symbols, created_at, updated_at
		FROM watchlists WHERE id = $1
	`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, models.ErrWatchlistNotFound)
	}
	if err != nil {
		metrics.RecordDBError("select", "watchlists")
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}

	return w, nil
}

// ModifyWatchlist applies fn to a watchlist while holding its row lock and saves
// the result. Concurrent modifications of the same watchlist are serialized.
func (r *Repository) ModifyWatchlist(ctx context.Context, id uuid.UUID, fn func(*models.Watchlist) error) (*models.Watchlist, error) {
	tx, txRepo, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := txRepo.getWatchlist(ctx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	if err := txRepo.UpdateWatchlist(ctx, w); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit watchlist update: %w", err)
	}

	return w, nil
}

// CreateWatchlist inserts a new watchlist
func (r *Repository) CreateWatchlist(ctx context.Context, w *models.Watchlist) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "watchlists")

	_, err := r.db.Exec(ctx, `
		INSERT INTO watchlists (id, name, symbols, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, w.ID, w.Name, w.Symbols, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		metrics.RecordDBError("insert", "watchlists")
		return fmt.Errorf("failed to create watchlist: %w", err)
	}

	return nil
}

// UpdateWatchlist replaces the name and symbol list of an existing watchlist
func (r *Repository) UpdateWatchlist(ctx context.Context, w *models.Watchlist) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "watchlists")

	tag, err := r.db.Exec(ctx, `
		UPDATE watchlists SET name = $2, symbols = $3, updated_at = $4
		WHERE id = $1
	`, w.ID, w.Name, w.Symbols, w.UpdatedAt)
	if err != nil {
		metrics.RecordDBError("update", "watchlists")
		return fmt.Errorf("failed to update watchlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", w.ID, models.ErrWatchlistNotFound)
	}

	return nil
}

// DeleteWatchlist removes a watchlist
func (r *Repository) DeleteWatchlist(ctx context.Context, id uuid.UUID) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "watchlists")

	tag, err := r.db.Exec(ctx, `DELETE FROM watchlists WHERE id = $1`, id)
	if err != nil {
		metrics.RecordDBError("delete", "watchlists")
		return fmt.Errorf("failed to delete watchlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, models.ErrWatchlistNotFound)
	}

	return nil
}
