// Package config loads service configuration from a TOML file with
// environment overrides. A .env file in the working directory is
// honored for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/posterforge/posterforge/pkg/errors"
)

// envPrefix namespaces the override variables, e.g. POSTERFORGE_ADDR.
const envPrefix = "POSTERFORGE_"

// Config is the full service configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Poster   Poster   `toml:"poster"`
	Geocode  Upstream `toml:"geocode"`
	Overpass Upstream `toml:"overpass"`
	Cache    Cache    `toml:"cache"`
	Jobs     Jobs     `toml:"jobs"`
	Archive  Archive  `toml:"archive"`
}

// Server holds HTTP listener settings.
type Server struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Poster holds pipeline and rendering settings.
type Poster struct {
	OutputDir     string   `toml:"output_dir"`
	ThemesDir     string   `toml:"themes_dir"`
	FontsDir      string   `toml:"fonts_dir"`
	MaxConcurrent int      `toml:"max_concurrent"`
	JobTimeout    Duration `toml:"job_timeout"`
}

// Upstream holds settings for one external HTTP service.
type Upstream struct {
	BaseURL string   `toml:"base_url"`
	Delay   Duration `toml:"delay"`
	Timeout Duration `toml:"timeout"`
}

// Cache controls the response cache for upstream requests.
type Cache struct {
	// Backend is "memory", "file", or "none".
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Jobs controls the job store.
type Jobs struct {
	// Backend is "memory" or "redis".
	Backend      string   `toml:"backend"`
	RedisURL     string   `toml:"redis_url"`
	Retention    Duration `toml:"retention"`
	ReapInterval Duration `toml:"reap_interval"`
	PollInterval Duration `toml:"poll_interval"`
}

// Archive controls the optional MongoDB job history.
type Archive struct {
	MongoURI   string   `toml:"mongo_uri"`
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	Retention  Duration `toml:"retention"`
}

// Duration wraps time.Duration for TOML decoding of strings like "30s".
type Duration time.Duration

// UnmarshalText implements toml string decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Poster: Poster{
			OutputDir:     "posters",
			ThemesDir:     "themes",
			FontsDir:      "fonts",
			MaxConcurrent: 2,
			JobTimeout:    Duration(5 * time.Minute),
		},
		Geocode: Upstream{
			Delay:   Duration(time.Second),
			Timeout: Duration(10 * time.Second),
		},
		Overpass: Upstream{
			Delay:   Duration(500 * time.Millisecond),
			Timeout: Duration(60 * time.Second),
		},
		Cache: Cache{
			Backend: "memory",
			Dir:     "cache",
		},
		Jobs: Jobs{
			Backend:      "memory",
			Retention:    Duration(time.Hour),
			ReapInterval: Duration(5 * time.Minute),
			PollInterval: Duration(500 * time.Millisecond),
		},
		Archive: Archive{
			Database:   "posterforge",
			Collection: "jobs",
			Retention:  Duration(30 * 24 * time.Hour),
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path
// if present, then environment overrides. An empty path skips the file
// entirely.
func Load(path string) (Config, error) {
	// Local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "parsing config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrap(err, errors.ErrCodeInternal, "reading config file %s", path)
		}
	}

	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays POSTERFORGE_* variables onto cfg. Only settings an
// operator plausibly flips per environment are exposed.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = Duration(d)
			}
		}
	}

	setString("ADDR", &cfg.Server.Addr)
	setString("OUTPUT_DIR", &cfg.Poster.OutputDir)
	setString("THEMES_DIR", &cfg.Poster.ThemesDir)
	setString("FONTS_DIR", &cfg.Poster.FontsDir)
	setInt("MAX_CONCURRENT", &cfg.Poster.MaxConcurrent)
	setDuration("JOB_TIMEOUT", &cfg.Poster.JobTimeout)
	setString("NOMINATIM_URL", &cfg.Geocode.BaseURL)
	setString("OVERPASS_URL", &cfg.Overpass.BaseURL)
	setString("CACHE_BACKEND", &cfg.Cache.Backend)
	setString("CACHE_DIR", &cfg.Cache.Dir)
	setBool("CACHE_DISABLED", &cfg.Cache.Disabled)
	setString("JOBS_BACKEND", &cfg.Jobs.Backend)
	setString("REDIS_URL", &cfg.Jobs.RedisURL)
	setString("MONGO_URI", &cfg.Archive.MongoURI)
}

func validate(cfg Config) error {
	switch cfg.Jobs.Backend {
	case "memory", "redis":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown jobs backend %q (want memory or redis)", cfg.Jobs.Backend)
	}
	switch cfg.Cache.Backend {
	case "memory", "file", "none":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want memory, file, or none)", cfg.Cache.Backend)
	}
	if cfg.Jobs.Backend == "redis" && cfg.Jobs.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "jobs backend redis requires redis_url")
	}
	if cfg.Poster.MaxConcurrent <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_concurrent must be positive")
	}
	return nil
}
