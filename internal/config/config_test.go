package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Jobs.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Jobs.Backend)
	}
	if cfg.Geocode.Delay.Std() != time.Second {
		t.Errorf("Geocode.Delay = %v, want 1s", cfg.Geocode.Delay.Std())
	}
	if cfg.Overpass.Delay.Std() != 500*time.Millisecond {
		t.Errorf("Overpass.Delay = %v, want 500ms", cfg.Overpass.Delay.Std())
	}
	if cfg.Jobs.PollInterval.Std() != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.Jobs.PollInterval.Std())
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posterforge.toml")
	content := `
[server]
addr = ":9000"
shutdown_timeout = "5s"

[poster]
max_concurrent = 4
job_timeout = "2m"

[jobs]
backend = "redis"
redis_url = "redis://localhost:6379/0"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout.Std() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout.Std())
	}
	if cfg.Poster.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.Poster.MaxConcurrent)
	}
	if cfg.Jobs.Backend != "redis" || cfg.Jobs.RedisURL == "" {
		t.Errorf("Jobs = %+v, want redis backend", cfg.Jobs)
	}
	// File values merge over defaults; untouched sections survive.
	if cfg.Geocode.Delay.Std() != time.Second {
		t.Errorf("Geocode.Delay = %v, want default 1s", cfg.Geocode.Delay.Std())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POSTERFORGE_ADDR", ":7777")
	t.Setenv("POSTERFORGE_MAX_CONCURRENT", "8")
	t.Setenv("POSTERFORGE_CACHE_DISABLED", "true")
	t.Setenv("POSTERFORGE_JOB_TIMEOUT", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("Addr = %q, want :7777", cfg.Server.Addr)
	}
	if cfg.Poster.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.Poster.MaxConcurrent)
	}
	if !cfg.Cache.Disabled {
		t.Error("Cache.Disabled = false, want true")
	}
	if cfg.Poster.JobTimeout.Std() != 90*time.Second {
		t.Errorf("JobTimeout = %v, want 90s", cfg.Poster.JobTimeout.Std())
	}
}

func TestValidation(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("POSTERFORGE_JOBS_BACKEND", "etcd")
		if _, err := Load(""); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
	t.Run("unknown cache backend", func(t *testing.T) {
		t.Setenv("POSTERFORGE_CACHE_BACKEND", "memcached")
		if _, err := Load(""); err == nil {
			t.Error("expected error for unknown cache backend")
		}
	})
	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("POSTERFORGE_JOBS_BACKEND", "redis")
		t.Setenv("POSTERFORGE_REDIS_URL", "")
		if _, err := Load(""); err == nil {
			t.Error("expected error for redis backend without url")
		}
	})
	t.Run("bad toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("[server\naddr=1"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed file")
		}
	})
}
