package cli

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/posterforge/posterforge/internal/config"
	"github.com/posterforge/posterforge/pkg/cache"
	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geocode"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/osm"
	"github.com/posterforge/posterforge/pkg/poster"
	"github.com/posterforge/posterforge/pkg/render"
	"github.com/posterforge/posterforge/pkg/storage"
	"github.com/posterforge/posterforge/pkg/theme"
)

// stack is the assembled pipeline shared by the generate and serve
// commands.
type stack struct {
	geocoder  *geocode.Client
	themes    *theme.Store
	jobs      job.Store
	artifacts *storage.ArtifactStore
	archive   *job.Archive
	generator *poster.Generator

	closers []func() error
}

// buildStack wires the whole pipeline from configuration.
func (c *CLI) buildStack(ctx context.Context, cfg config.Config, respCache cache.Cache) (*stack, error) {
	s := &stack{}
	s.closers = append(s.closers, respCache.Close)

	s.geocoder = geocode.NewClient(geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		Timeout: cfg.Geocode.Timeout.Std(),
		Delay:   cfg.Geocode.Delay.Std(),
		Cache:   respCache,
		Logger:  c.Logger,
	})
	features := osm.NewClient(osm.Config{
		BaseURL: cfg.Overpass.BaseURL,
		Timeout: cfg.Overpass.Timeout.Std(),
		Delay:   cfg.Overpass.Delay.Std(),
		Cache:   respCache,
		Logger:  c.Logger,
	})

	fonts, err := render.LoadFonts(cfg.Poster.FontsDir)
	if err != nil {
		return nil, err
	}
	s.themes = theme.NewStore(cfg.Poster.ThemesDir, c.Logger)

	s.artifacts, err = storage.NewArtifactStore(cfg.Poster.OutputDir, c.Logger)
	if err != nil {
		return nil, err
	}

	s.jobs, err = c.newJobStore(ctx, cfg.Jobs)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.jobs.Close)

	s.archive, err = c.newArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}

	s.generator, err = poster.NewGenerator(poster.Config{
		Geocoder:      s.geocoder,
		Features:      features,
		Renderer:      render.NewRenderer(fonts, c.Logger),
		Themes:        s.themes,
		Jobs:          s.jobs,
		Artifacts:     s.artifacts,
		Archive:       s.archive,
		MaxConcurrent: cfg.Poster.MaxConcurrent,
		JobTimeout:    cfg.Poster.JobTimeout.Std(),
		Logger:        c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *CLI) newJobStore(ctx context.Context, cfg config.Jobs) (job.Store, error) {
	switch cfg.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "parsing redis_url")
		}
		return job.NewRedisStore(ctx, redis.NewClient(opts))
	default:
		return job.NewMemoryStore(), nil
	}
}

// newArchive connects the optional MongoDB job history. No URI means
// no archive.
func (c *CLI) newArchive(ctx context.Context, cfg config.Archive) (*job.Archive, error) {
	if cfg.MongoURI == "" {
		return nil, nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "connecting to MongoDB")
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return job.NewArchive(ctx, coll, cfg.Retention.Std(), c.Logger)
}

// close releases stack resources in reverse order.
func (s *stack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}
