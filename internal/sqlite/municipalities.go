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

type municipalityRepository struct {
	store *Store
}

const municipalityColumns = `id, name, subregion, created_at, updated_at`

func scanMunicipality(row interface{ Scan(...any) error }) (models.Municipality, error) {
	var m models.Municipality
	err := row.Scan(&m.ID, &m.Name, &m.Subregion, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *municipalityRepository) List(ctx context.Context, search string) ([]models.Municipality, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows *sql.Rows
	var err error

	if search != "" {
		query := `SELECT ` + municipalityColumns + `
		          FROM municipalities
		          WHERE name LIKE ? OR subregion LIKE ?
		          ORDER BY name`
		pattern := "%" + search + "%"
		rows, err = r.store.db.QueryContext(ctx, query, pattern, pattern)
	} else {
		query := `SELECT ` + municipalityColumns + `
		          FROM municipalities
		          ORDER BY name`
		rows, err = r.store.db.QueryContext(ctx, query)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query municipalities: %w", err)
	}
	defer rows.Close()

	municipalities := []models.Municipality{}
	for rows.Next() {
		m, err := scanMunicipality(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan municipality: %w", err)
		}
		municipalities = append(municipalities, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating municipalities: %w", err)
	}

	return municipalities, nil
}

func (r *municipalityRepository) GetByID(ctx context.Context, id int64) (*models.Municipality, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT ` + municipalityColumns + ` FROM municipalities WHERE id = ?`

	m, err := scanMunicipality(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("municipality %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get municipality: %w", err)
	}

	return &m, nil
}

func (r *municipalityRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Municipality, error) {
	if len(ids) == 0 {
		return []models.Municipality{}, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := fmt.Sprintf(
		`SELECT %s FROM municipalities WHERE id IN (%s) ORDER BY id`,
		municipalityColumns, placeholders(len(ids)),
	)

	rows, err := r.store.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query municipalities by IDs: %w", err)
	}
	defer rows.Close()

	municipalities := []models.Municipality{}
	for rows.Next() {
		m, err := scanMunicipality(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan municipality: %w", err)
		}
		municipalities = append(municipalities, m)
	}

	return municipalities, rows.Err()
}

func (r *municipalityRepository) Create(ctx context.Context, m *models.Municipality) (*models.Municipality, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	var id any
	if m.ID != 0 {
		id = m.ID
	}

	query := `INSERT INTO municipalities (id, name, subregion, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	result, err := r.store.db.ExecContext(ctx, query, id, m.Name, m.Subregion, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create municipality: %w", translateError(err))
	}

	newID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	m.ID = newID
	r.store.bumpVersion()

	return m, nil
}

func (r *municipalityRepository) Update(ctx context.Context, m *models.Municipality) (*models.Municipality, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	m.UpdatedAt = time.Now()

	query := `UPDATE municipalities
	          SET name = ?, subregion = ?, updated_at = ?
	          WHERE id = ?`

	result, err := r.store.db.ExecContext(ctx, query, m.Name, m.Subregion, m.UpdatedAt, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update municipality: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("municipality %d: %w", m.ID, database.ErrNotFound)
	}
	r.store.bumpVersion()

	// created_at is not part of the update
	if err := r.store.db.QueryRowContext(ctx,
		`SELECT created_at FROM municipalities WHERE id = ?`, m.ID,
	).Scan(&m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to reload municipality: %w", err)
	}

	return m, nil
}

// Delete removes the municipality and, by cascade, its distances.
// Municipalities that are a route endpoint cannot be deleted.
func (r *municipalityRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result, err := r.store.db.ExecContext(ctx, `DELETE FROM municipalities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete municipality: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("municipality %d: %w", id, database.ErrNotFound)
	}
	r.store.bumpVersion()

	return nil
}

func (r *municipalityRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM municipalities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count municipalities: %w", err)
	}
	return n, nil
}
