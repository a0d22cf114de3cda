package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

type distanceRepository struct {
	store *Store
}

const distanceColumns = `id, origin_id, destination_id, km, created_at`

func (r *distanceRepository) List(ctx context.Context) ([]models.Distance, error) {
	return r.ListEdges(ctx, nil)
}

func (r *distanceRepository) ListEdges(ctx context.Context, ids []int64) ([]models.Distance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT ` + distanceColumns + ` FROM distances`
	var args []any
	if len(ids) > 0 {
		in := placeholders(len(ids))
		query += fmt.Sprintf(` WHERE origin_id IN (%s) OR destination_id IN (%s)`, in, in)
		args = append(int64Args(ids), int64Args(ids)...)
	}
	query += ` ORDER BY origin_id, destination_id`

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distances: %w", err)
	}
	defer rows.Close()

	distances := []models.Distance{}
	for rows.Next() {
		var d models.Distance
		if err := rows.Scan(&d.ID, &d.OriginID, &d.DestinationID, &d.Km, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan distance: %w", err)
		}
		distances = append(distances, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distances: %w", err)
	}

	return distances, nil
}

func (r *distanceRepository) Get(ctx context.Context, a, b int64) (*models.Distance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get(ctx, a, b)
}

func (r *distanceRepository) get(ctx context.Context, a, b int64) (*models.Distance, error) {
	lo, hi := models.OrderedPair(a, b)
	query := `SELECT ` + distanceColumns + ` FROM distances WHERE origin_id = ? AND destination_id = ?`

	var d models.Distance
	err := r.store.db.QueryRowContext(ctx, query, lo, hi).Scan(
		&d.ID, &d.OriginID, &d.DestinationID, &d.Km, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("distance %d-%d: %w", a, b, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distance: %w", err)
	}

	return &d, nil
}

// Upsert stores d under its unordered pair, replacing any previous value
func (r *distanceRepository) Upsert(ctx context.Context, d *models.Distance) (*models.Distance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	lo, hi := d.Pair()
	query := `INSERT INTO distances (origin_id, destination_id, km, created_at)
	          VALUES (?, ?, ?, ?)
	          ON CONFLICT (origin_id, destination_id) DO UPDATE SET km = excluded.km`

	if _, err := r.store.db.ExecContext(ctx, query, lo, hi, d.Km, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to upsert distance: %w", translateError(err))
	}
	r.store.bumpVersion()

	return r.get(ctx, lo, hi)
}

func (r *distanceRepository) Delete(ctx context.Context, a, b int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	lo, hi := models.OrderedPair(a, b)
	result, err := r.store.db.ExecContext(ctx,
		`DELETE FROM distances WHERE origin_id = ? AND destination_id = ?`, lo, hi)
	if err != nil {
		return fmt.Errorf("failed to delete distance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("distance %d-%d: %w", a, b, database.ErrNotFound)
	}
	r.store.bumpVersion()

	return nil
}

func (r *distanceRepository) Version() uint64 {
	return r.store.version.Load()
}
