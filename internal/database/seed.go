package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/models"
)

// Seed is the on-disk format of an initial catalog
type Seed struct {
	Municipalities []SeedMunicipality `json:"municipalities"`
	Distances      []SeedDistance     `json:"distances"`
}

type SeedMunicipality struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Subregion string `json:"subregion"`
}

type SeedDistance struct {
	OriginID      int64   `json:"origin_id"`
	DestinationID int64   `json:"destination_id"`
	Km            float64 `json:"km"`
}

// ReadSeed parses a seed file
func ReadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// LoadSeed imports the seed at path when the municipality catalog is empty.
// It reports whether anything was imported.
func LoadSeed(ctx context.Context, store DataStore, path string, logger *zap.Logger) (bool, error) {
	count, err := store.Municipalities().Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		logger.Info("[SEED] catalog already populated, skipping", zap.Int("municipalities", count))
		return false, nil
	}

	seed, err := ReadSeed(path)
	if err != nil {
		return false, err
	}
	if err := ApplySeed(ctx, store, seed); err != nil {
		return false, err
	}

	logger.Info("[SEED] catalog imported",
		zap.String("path", path),
		zap.Int("municipalities", len(seed.Municipalities)),
		zap.Int("distances", len(seed.Distances)))
	return true, nil
}

// ApplySeed writes every municipality and distance of seed
func ApplySeed(ctx context.Context, store DataStore, seed *Seed) error {
	for _, sm := range seed.Municipalities {
		m := &models.Municipality{ID: sm.ID, Name: sm.Name, Subregion: sm.Subregion}
		if _, err := store.Municipalities().Create(ctx, m); err != nil {
			return fmt.Errorf("failed to seed municipality %q: %w", sm.Name, err)
		}
	}
	for _, sd := range seed.Distances {
		d := &models.Distance{OriginID: sd.OriginID, DestinationID: sd.DestinationID, Km: sd.Km}
		if _, err := store.Distances().Upsert(ctx, d); err != nil {
			return fmt.Errorf("failed to seed distance %d-%d: %w", sd.OriginID, sd.DestinationID, err)
		}
	}
	return nil
}
