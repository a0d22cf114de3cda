package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createMunicipality(t *testing.T, s *Store, name string) *models.Municipality {
	t.Helper()
	m, err := s.Municipalities().Create(context.Background(), &models.Municipality{Name: name, Subregion: "Valle de Aburrá"})
	require.NoError(t, err)
	return m
}

func TestStore_HealthCheck(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.HealthCheck(context.Background()))
	assert.Equal(t, MemoryPath, s.GetDBPath())
}

func TestStore_FileDatabaseReopens(t *testing.T) {
	path := t.TempDir() + "/nested/rutas.db"
	ctx := context.Background()

	s, err := New(path, nil)
	require.NoError(t, err)
	_, err = s.Municipalities().Create(ctx, &models.Municipality{Name: "Envigado"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Municipalities().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMunicipalities_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Municipalities()

	medellin := createMunicipality(t, s, "Medellín")
	bello := createMunicipality(t, s, "Bello")
	assert.NotZero(t, medellin.ID)
	assert.NotEqual(t, medellin.ID, bello.ID)

	got, err := repo.GetByID(ctx, medellin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medellín", got.Name)
	assert.Equal(t, "Valle de Aburrá", got.Subregion)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bello", all[0].Name, "sorted by name")

	found, err := repo.List(ctx, "dell")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, medellin.ID, found[0].ID)

	medellin.Name = "Medellín (capital)"
	updated, err := repo.Update(ctx, medellin)
	require.NoError(t, err)
	assert.Equal(t, "Medellín (capital)", updated.Name)

	require.NoError(t, repo.Delete(ctx, bello.ID))
	_, err = repo.GetByID(ctx, bello.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMunicipalities_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Municipalities()
	createMunicipality(t, s, "Rionegro")

	_, err := repo.Create(ctx, &models.Municipality{Name: "rionegro"})
	assert.ErrorIs(t, err, database.ErrConflict, "names are unique regardless of case")

	_, err = repo.Update(ctx, &models.Municipality{ID: 999, Name: "Nowhere"})
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 999), database.ErrNotFound)
}

func TestMunicipalities_ExplicitIDAndGetByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Municipalities()

	m, err := repo.Create(ctx, &models.Municipality{ID: 5001, Name: "Caucasia", Subregion: "Bajo Cauca"})
	require.NoError(t, err)
	assert.Equal(t, int64(5001), m.ID)
	other := createMunicipality(t, s, "Sabaneta")

	got, err := repo.GetByIDs(ctx, []int64{other.ID, 5001, 42})
	require.NoError(t, err)
	require.Len(t, got, 2)

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDistances_UnorderedPair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Distances()
	a := createMunicipality(t, s, "Itagüí")
	b := createMunicipality(t, s, "La Estrella")

	v0 := repo.Version()
	d, err := repo.Upsert(ctx, &models.Distance{OriginID: b.ID, DestinationID: a.ID, Km: 7.5})
	require.NoError(t, err)
	assert.Equal(t, a.ID, d.OriginID, "stored with the smaller id first")
	assert.Equal(t, b.ID, d.DestinationID)
	assert.Greater(t, repo.Version(), v0)

	replaced, err := repo.Upsert(ctx, &models.Distance{OriginID: a.ID, DestinationID: b.ID, Km: 6})
	require.NoError(t, err)
	assert.Equal(t, d.ID, replaced.ID)
	assert.Equal(t, 6.0, replaced.Km)

	got, err := repo.Get(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.Km)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, b.ID, a.ID))
	_, err = repo.Get(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, a.ID, b.ID), database.ErrNotFound)
}

func TestDistances_ListEdgesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Distances()
	a := createMunicipality(t, s, "A municipality")
	b := createMunicipality(t, s, "B municipality")
	c := createMunicipality(t, s, "C municipality")

	_, err := repo.Upsert(ctx, &models.Distance{OriginID: a.ID, DestinationID: b.ID, Km: 1})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &models.Distance{OriginID: b.ID, DestinationID: c.ID, Km: 2})
	require.NoError(t, err)

	touchingA, err := repo.ListEdges(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Len(t, touchingA, 1)
	assert.Equal(t, 1.0, touchingA[0].Km)

	touchingB, err := repo.ListEdges(ctx, []int64{b.ID})
	require.NoError(t, err)
	assert.Len(t, touchingB, 2)
}

func TestDistances_Constraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Distances()
	a := createMunicipality(t, s, "Girardota")

	_, err := repo.Upsert(ctx, &models.Distance{OriginID: a.ID, DestinationID: 999, Km: 3})
	assert.ErrorIs(t, err, database.ErrConflict, "unknown municipality")

	_, err = repo.Upsert(ctx, &models.Distance{OriginID: a.ID, DestinationID: a.ID, Km: 3})
	assert.ErrorIs(t, err, database.ErrConflict, "self distance")
}

func TestDistances_CascadeOnMunicipalityDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createMunicipality(t, s, "Copacabana")
	b := createMunicipality(t, s, "Barbosa")

	_, err := s.Distances().Upsert(ctx, &models.Distance{OriginID: a.ID, DestinationID: b.ID, Km: 12})
	require.NoError(t, err)

	require.NoError(t, s.Municipalities().Delete(ctx, b.ID))

	all, err := s.Distances().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func newRoute(name, date string, origin, destination int64, total *float64) *models.Route {
	return &models.Route{
		Name:            name,
		Date:            date,
		OriginID:        origin,
		DestinationID:   destination,
		IntermediateIDs: []int64{},
		Sequence:        []int64{origin, destination},
		TotalDistanceKm: total,
		Reachable:       total != nil,
		Strategy:        "trivial",
		RunID:           "run-" + name,
	}
}

func TestRoutes_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Routes()
	a := createMunicipality(t, s, "Marinilla")
	b := createMunicipality(t, s, "El Peñol")

	km := 23.0
	rt := newRoute("Ruta oriente norte", "2024-05-01", a.ID, b.ID, &km)
	rt.IntermediateIDs = []int64{b.ID}
	created, err := repo.Create(ctx, rt)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Marinilla", created.OriginName)
	assert.Equal(t, "El Peñol", created.DestinationName)
	assert.Equal(t, []int64{b.ID}, created.IntermediateIDs)
	assert.Equal(t, []int64{a.ID, b.ID}, created.Sequence)
	require.NotNil(t, created.TotalDistanceKm)
	assert.Equal(t, 23.0, *created.TotalDistanceKm)
	assert.True(t, created.Reachable)

	created.TotalDistanceKm = nil
	created.Reachable = false
	created.Name = "Ruta oriente sin salida"
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Nil(t, updated.TotalDistanceKm)
	assert.False(t, updated.Reachable)
	assert.Equal(t, "Ruta oriente sin salida", updated.Name)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), database.ErrNotFound)

	_, err = repo.Update(ctx, created)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRoutes_ListNewestFirstWithPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Routes()
	a := createMunicipality(t, s, "Santa Fe de Antioquia")
	b := createMunicipality(t, s, "Sopetrán")

	for _, date := range []string{"2024-01-10", "2024-03-02", "2023-12-31"} {
		_, err := repo.Create(ctx, newRoute("Ruta del "+date, date, a.ID, b.ID, nil))
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-03-02", page[0].Date)
	assert.Equal(t, "2024-01-10", page[1].Date)

	rest, _, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "2023-12-31", rest[0].Date)
}

func TestRoutes_EndpointMunicipalityCannotBeDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createMunicipality(t, s, "Apartadó")
	b := createMunicipality(t, s, "Turbo")

	_, err := s.Routes().Create(ctx, newRoute("Ruta de Urabá", "2024-02-02", a.ID, b.ID, nil))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Municipalities().Delete(ctx, b.ID), database.ErrConflict)
}
