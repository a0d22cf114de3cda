package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

type routeRepository struct {
	store *Store
}

const routeSelect = `SELECT r.id, r.name, r.route_date, r.origin_id, r.destination_id,
	       COALESCE(o.name, ''), COALESCE(d.name, ''),
	       r.intermediate_ids, r.sequence, r.total_km, r.reachable, r.strategy, r.run_id,
	       r.created_at, r.updated_at
	FROM routes r
	LEFT JOIN municipalities o ON o.id = r.origin_id
	LEFT JOIN municipalities d ON d.id = r.destination_id`

func scanRoute(row interface{ Scan(...any) error }) (models.Route, error) {
	var rt models.Route
	var intermediates, sequence string
	var total sql.NullFloat64

	err := row.Scan(
		&rt.ID, &rt.Name, &rt.Date, &rt.OriginID, &rt.DestinationID,
		&rt.OriginName, &rt.DestinationName,
		&intermediates, &sequence, &total, &rt.Reachable, &rt.Strategy, &rt.RunID,
		&rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return rt, err
	}

	if err := json.Unmarshal([]byte(intermediates), &rt.IntermediateIDs); err != nil {
		return rt, fmt.Errorf("failed to decode intermediate ids: %w", err)
	}
	if err := json.Unmarshal([]byte(sequence), &rt.Sequence); err != nil {
		return rt, fmt.Errorf("failed to decode sequence: %w", err)
	}
	if total.Valid {
		rt.TotalDistanceKm = &total.Float64
	}
	return rt, nil
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	return string(data), err
}

func nullableKm(km *float64) any {
	if km == nil {
		return nil
	}
	return *km
}

func (r *routeRepository) List(ctx context.Context, limit, offset int) ([]models.Route, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	query := routeSelect + `
	          ORDER BY r.route_date DESC, r.id DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.store.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	routes := []models.Route{}
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, rt)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating routes: %w", err)
	}

	return routes, total, nil
}

func (r *routeRepository) GetByID(ctx context.Context, id int64) (*models.Route, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get(ctx, id)
}

func (r *routeRepository) get(ctx context.Context, id int64) (*models.Route, error) {
	rt, err := scanRoute(r.store.db.QueryRowContext(ctx, routeSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &rt, nil
}

func (r *routeRepository) Create(ctx context.Context, rt *models.Route) (*models.Route, error) {
	intermediates, err := encodeIDs(rt.IntermediateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode intermediate ids: %w", err)
	}
	sequence, err := encodeIDs(rt.Sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	query := `INSERT INTO routes (name, route_date, origin_id, destination_id, intermediate_ids,
	                             sequence, total_km, reachable, strategy, run_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.store.db.ExecContext(ctx, query,
		rt.Name, rt.Date, rt.OriginID, rt.DestinationID, intermediates,
		sequence, nullableKm(rt.TotalDistanceKm), rt.Reachable, rt.Strategy, rt.RunID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", translateError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.get(ctx, id)
}

func (r *routeRepository) Update(ctx context.Context, rt *models.Route) (*models.Route, error) {
	intermediates, err := encodeIDs(rt.IntermediateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode intermediate ids: %w", err)
	}
	sequence, err := encodeIDs(rt.Sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `UPDATE routes
	          SET name = ?, route_date = ?, origin_id = ?, destination_id = ?, intermediate_ids = ?,
	              sequence = ?, total_km = ?, reachable = ?, strategy = ?, run_id = ?, updated_at = ?
	          WHERE id = ?`

	result, err := r.store.db.ExecContext(ctx, query,
		rt.Name, rt.Date, rt.OriginID, rt.DestinationID, intermediates,
		sequence, nullableKm(rt.TotalDistanceKm), rt.Reachable, rt.Strategy, rt.RunID, time.Now(), rt.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update route: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("route %d: %w", rt.ID, database.ErrNotFound)
	}

	return r.get(ctx, rt.ID)
}

func (r *routeRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result, err := r.store.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("route %d: %w", id, database.ErrNotFound)
	}

	return nil
}
