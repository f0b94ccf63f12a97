package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockwatch/models"
	"stockwatch/observability"
)

// LoadRecord returns the snapshot for symbol if it was fetched after notBefore.
// A missing or stale snapshot is (nil, nil).
func (r *Repository) LoadRecord(ctx context.Context, symbol string, notBefore time.Time) (*models.StockRecord, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "stock_snapshots")

	var data []byte
	// Let the database enforce freshness
	err := r.db.QueryRow(ctx, `
		SELECT data FROM stock_snapshots
		WHERE symbol = $1 AND fetched_at > $2
	`, symbol, notBefore).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "stock_snapshots")
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var record models.StockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &record, nil
}

// SaveRecord upserts the snapshot for a record's symbol
func (r *Repository) SaveRecord(ctx context.Context, record *models.StockRecord) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", "stock_snapshots")

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO stock_snapshots (symbol, data, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol)
		DO UPDATE SET data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at
		WHERE stock_snapshots.fetched_at <= EXCLUDED.fetched_at
	`, record.Symbol, data, record.FetchedAt)
	if err != nil {
		metrics.RecordDBError("upsert", "stock_snapshots")
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// DeleteSnapshot removes the snapshot for a symbol
func (r *Repository) DeleteSnapshot(ctx context.Context, symbol string) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "stock_snapshots")

	_, err := r.db.Exec(ctx, `DELETE FROM stock_snapshots WHERE symbol = $1`, symbol)
	if err != nil {
		metrics.RecordDBError("delete", "stock_snapshots")
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// CleanExpiredSnapshots removes snapshots fetched before cutoff
func (r *Repository) CleanExpiredSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, err
	}
	result, err := r.db.Exec(ctx, `DELETE FROM stock_snapshots WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired snapshots: %w", err)
	}
	return result.RowsAffected(), nil
}
