package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    Server    `toml:"server"`
	Database  Database  `toml:"database"`
	Optimizer Optimizer `toml:"optimizer"`
	Log       Log       `toml:"log"`
	Tracing   Tracing   `toml:"tracing"`
}

type Server struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	CORSOrigins     []string      `toml:"cors_origins"`
	RateLimit       RateLimit     `toml:"rate_limit"`
	OpenBrowser     bool          `toml:"open_browser"`
}

// RateLimit is a token bucket applied per client IP. Zero RPS disables it.
type RateLimit struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type Database struct {
	// Path of the SQLite file; empty means the per-user app directory
	Path     string `toml:"path"`
	SeedFile string `toml:"seed_file"`
}

type Optimizer struct {
	ExactThreshold int `toml:"exact_threshold"`
	Parallelism    int `toml:"parallelism"`
	CacheSize      int `toml:"cache_size"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Tracing struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
	Insecure    bool    `toml:"insecure"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.Optimizer.ExactThreshold = -1
	applyDefaults(cfg)
	return cfg
}

// Load reads a TOML file, fills unset values with defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// distinguishes an explicit exact_threshold = 0 from an absent key
	cfg.Optimizer.ExactThreshold = -1

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://*", "https://*"}
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = int(cfg.Server.RateLimit.RPS) + 1
	}

	if cfg.Optimizer.ExactThreshold < 0 {
		cfg.Optimizer.ExactThreshold = 8
	}
	if cfg.Optimizer.CacheSize == 0 {
		cfg.Optimizer.CacheSize = 256
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// ApplyEnvOverrides applies environment variable overrides and returns the
// names of the variables that were used.
// SERVER_ADDR replaces the whole listen address, PORT only its port.
func ApplyEnvOverrides(cfg *Config) []string {
	var applied []string

	if setEnvString(&cfg.Server.Addr, "SERVER_ADDR") {
		applied = append(applied, "SERVER_ADDR")
	}
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		host, _, err := net.SplitHostPort(cfg.Server.Addr)
		if err != nil {
			host = ""
		}
		cfg.Server.Addr = net.JoinHostPort(host, port)
		applied = append(applied, "PORT")
	}
	if setEnvString(&cfg.Database.Path, "DB_PATH") {
		applied = append(applied, "DB_PATH")
	}
	if setEnvString(&cfg.Log.Level, "LOG_LEVEL") {
		applied = append(applied, "LOG_LEVEL")
	}
	if setEnvInt(&cfg.Optimizer.ExactThreshold, "EXACT_THRESHOLD") {
		applied = append(applied, "EXACT_THRESHOLD")
	}

	return applied
}

func setEnvString(target *string, key string) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		*target = val
		return true
	}
	return false
}

func setEnvInt(target *int, key string) bool {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			*target = i
			return true
		}
	}
	return false
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr %q: %w", c.Server.Addr, err))
	}
	if c.Server.RateLimit.RPS < 0 || c.Server.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("server.rate_limit values must not be negative"))
	}
	if c.Optimizer.ExactThreshold < 0 || c.Optimizer.ExactThreshold > 10 {
		errs = append(errs, fmt.Errorf("optimizer.exact_threshold must be between 0 and 10, got %d", c.Optimizer.ExactThreshold))
	}
	if c.Optimizer.Parallelism < 0 {
		errs = append(errs, errors.New("optimizer.parallelism must not be negative"))
	}
	if c.Optimizer.CacheSize < 0 {
		errs = append(errs, errors.New("optimizer.cache_size must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}
