package database

import (
	"context"

	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Municipalities() MunicipalityRepository
	Distances() DistanceRepository
	Routes() RouteRepository
}

// MunicipalityRepository handles municipality persistence
type MunicipalityRepository interface {
	List(ctx context.Context, search string) ([]models.Municipality, error)
	GetByID(ctx context.Context, id int64) (*models.Municipality, error)
	// GetByIDs silently skips ids that do not exist
	GetByIDs(ctx context.Context, ids []int64) ([]models.Municipality, error)
	// Create keeps a non-zero m.ID, otherwise one is assigned
	Create(ctx context.Context, m *models.Municipality) (*models.Municipality, error)
	Update(ctx context.Context, m *models.Municipality) (*models.Municipality, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// DistanceRepository handles road distance persistence.
// A pair is unordered; writing (B, A) replaces (A, B).
type DistanceRepository interface {
	List(ctx context.Context) ([]models.Distance, error)
	// ListEdges returns the distances touching any of ids, or all when ids is empty
	ListEdges(ctx context.Context, ids []int64) ([]models.Distance, error)
	Get(ctx context.Context, a, b int64) (*models.Distance, error)
	Upsert(ctx context.Context, d *models.Distance) (*models.Distance, error)
	Delete(ctx context.Context, a, b int64) error
	// Version changes whenever distances or municipalities are written
	Version() uint64
}

// RouteRepository handles stored route persistence
type RouteRepository interface {
	// List returns routes newest date first together with the total count
	List(ctx context.Context, limit, offset int) ([]models.Route, int, error)
	GetByID(ctx context.Context, id int64) (*models.Route, error)
	Create(ctx context.Context, r *models.Route) (*models.Route, error)
	Update(ctx context.Context, r *models.Route) (*models.Route, error)
	Delete(ctx context.Context, id int64) error
}
