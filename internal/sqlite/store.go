package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
)

const (
	// MemoryPath opens a private in-memory database
	MemoryPath    = ":memory:"
	schemaVersion = 1
)

// Store is a SQLite-based data store implementing database.DataStore
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	logger *zap.Logger

	// version is bumped on every catalog write and keys cached plans
	version atomic.Uint64

	municipalityRepo database.MunicipalityRepository
	distanceRepo     database.DistanceRepository
	routeRepo        database.RouteRepository
}

// New creates a new SQLite store at the specified path
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	memory := dbPath == MemoryPath
	if !memory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logger.Info("[DB] opening SQLite database", zap.String("path", dbPath))

	// Pragmas go in the DSN so that every pooled connection gets them
	pragmas := []string{
		"foreign_keys(1)",
		"busy_timeout(5000)",
		"synchronous(NORMAL)",
		"cache_size(-64000)", // 64MB cache
	}
	if !memory {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	dsn := dbPath + "?_pragma=" + strings.Join(pragmas, "&_pragma=")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// each connection to :memory: would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.municipalityRepo = &municipalityRepository{store: store}
	store.distanceRepo = &distanceRepository{store: store}
	store.routeRepo = &routeRepository{store: store}

	return store, nil
}

// GetDBPath returns the current database file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		return s.runMigrations(version)
	}
	return nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS municipalities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		subregion TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One row per unordered pair, stored with origin_id < destination_id
	CREATE TABLE IF NOT EXISTS distances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin_id INTEGER NOT NULL,
		destination_id INTEGER NOT NULL,
		km REAL NOT NULL CHECK (km >= 0),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK (origin_id < destination_id),
		UNIQUE (origin_id, destination_id),
		FOREIGN KEY (origin_id) REFERENCES municipalities(id) ON DELETE CASCADE,
		FOREIGN KEY (destination_id) REFERENCES municipalities(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		route_date TEXT NOT NULL,
		origin_id INTEGER NOT NULL,
		destination_id INTEGER NOT NULL,
		intermediate_ids TEXT NOT NULL DEFAULT '[]',
		sequence TEXT NOT NULL DEFAULT '[]',
		total_km REAL,
		reachable INTEGER NOT NULL DEFAULT 0,
		strategy TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (origin_id) REFERENCES municipalities(id) ON DELETE RESTRICT,
		FOREIGN KEY (destination_id) REFERENCES municipalities(id) ON DELETE RESTRICT
	);

	CREATE INDEX IF NOT EXISTS idx_municipalities_name ON municipalities(name);
	CREATE INDEX IF NOT EXISTS idx_distances_destination ON distances(destination_id);
	CREATE INDEX IF NOT EXISTS idx_routes_date ON routes(route_date DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("[DB] SQLite schema initialized", zap.Int("version", schemaVersion))
	return nil
}

func (s *Store) runMigrations(fromVersion int) error {
	s.logger.Info("[DB] migrating schema", zap.Int("from", fromVersion), zap.Int("to", schemaVersion))
	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.dbPath != MemoryPath {
		// Checkpoint WAL before closing
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("[DB] WAL checkpoint failed", zap.Error(err))
		}
	}
	return s.db.Close()
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) bumpVersion() { s.version.Add(1) }

// Repository accessors
func (s *Store) Municipalities() database.MunicipalityRepository { return s.municipalityRepo }
func (s *Store) Distances() database.DistanceRepository          { return s.distanceRepo }
func (s *Store) Routes() database.RouteRepository                { return s.routeRepo }

// translateError maps constraint violations onto database.ErrConflict
func translateError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", database.ErrConflict, err)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
