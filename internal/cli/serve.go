package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/posterforge/posterforge/internal/config"
	"github.com/posterforge/posterforge/internal/server"
	"github.com/posterforge/posterforge/pkg/cache"
	"github.com/posterforge/posterforge/pkg/job"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the poster generation HTTP service",
		Long: `Run the HTTP API: poster submission, job progress streaming over
SSE and WebSocket, artifact download, theme listing, location search,
and job history. Configuration comes from a TOML file plus
POSTERFORGE_* environment overrides.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "posterforge.toml", "path to the config file")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	respCache := c.newResponseCache(cfg.Cache)
	s, err := c.buildStack(ctx, cfg, respCache)
	if err != nil {
		return err
	}
	defer s.close()

	srvCfg := server.Config{
		Generator: s.generator,
		Jobs:      s.jobs,
		Watcher:   job.NewWatcher(s.jobs, cfg.Jobs.PollInterval.Std(), c.Logger),
		Themes:    s.themes,
		Artifacts: s.artifacts,
		Searcher:  s.geocoder,
		Logger:    c.Logger,
	}
	// A nil *job.Archive must stay a nil interface so the history
	// endpoints report being disabled.
	if s.archive != nil {
		srvCfg.History = s.archive
	}
	srv := server.New(srvCfg)

	// Terminal jobs age out together with their artifacts.
	reaper := job.NewReaper(s.jobs, cfg.Jobs.Retention.Std(), cfg.Jobs.ReapInterval.Std(), c.Logger)
	reaper.OnReap = func(j *job.Job) {
		if err := s.artifacts.Remove(j.ID); err != nil {
			c.Logger.Warn("could not remove artifact", "job", j.ID, "error", err)
		}
	}
	go reaper.Run(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		c.Logger.Warn("http shutdown", "error", err)
	}
	if err := s.generator.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("jobs still running at shutdown", "error", err)
	}
	return nil
}

// newResponseCache picks the upstream response cache from config: a
// bounded in-memory cache by default, a file cache that survives
// restarts, or none.
func (c *CLI) newResponseCache(cfg config.Cache) cache.Cache {
	if cfg.Disabled || cfg.Backend == "none" {
		return cache.NewNullCache()
	}
	if cfg.Backend == "file" {
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			c.Logger.Warn("response cache disabled", "error", err)
			return cache.NewNullCache()
		}
		return fc
	}
	return cache.NewMemoryCache(0)
}
