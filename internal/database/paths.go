package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName       = ".proyecto-rutas"
	SQLiteDBFileName = "rutas.db"
)

// GetAppDir returns ~/.proyecto-rutas, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetDefaultDBPath returns the default SQLite database path: ~/.proyecto-rutas/rutas.db
func GetDefaultDBPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, SQLiteDBFileName), nil
}

// ResolveDBPath returns configured, or the default path when it is empty
func ResolveDBPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return GetDefaultDBPath()
}
