package poster

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/observability"
	"github.com/posterforge/posterforge/pkg/osm"
	"github.com/posterforge/posterforge/pkg/render"
	"github.com/posterforge/posterforge/pkg/storage"
	"github.com/posterforge/posterforge/pkg/theme"
)

// Pipeline stages in execution order, with the overall progress
// reached when each stage begins. Progress only moves forward; the
// store enforces that independently.
const (
	StageGeocoding        = "geocoding"
	StageLoadingTheme     = "loading_theme"
	StageFetchingStreets  = "fetching_streets"
	StageFetchingWater    = "fetching_water"
	StageFetchingParks    = "fetching_parks"
	StageRendering        = "rendering"
	StageRenderingRoads   = "rendering_roads"
	StageAddingTypography = "adding_typography"
	StageSaving           = "saving"
	StageCompleted        = "completed"
)

var stageProgress = map[string]float64{
	StageGeocoding:        0.10,
	StageLoadingTheme:     0.15,
	StageFetchingStreets:  0.20,
	StageFetchingWater:    0.40,
	StageFetchingParks:    0.50,
	StageRendering:        0.60,
	StageRenderingRoads:   0.70,
	StageAddingTypography: 0.85,
	StageSaving:           0.90,
	StageCompleted:        1.0,
}

// Geocoder resolves a place to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city, country string) (geo.Coordinates, error)
}

// FeatureSource fetches the map layers.
type FeatureSource interface {
	FetchStreetNetwork(ctx context.Context, center geo.Coordinates, distance float64) (osm.RoadGraph, error)
	FetchWaterFeatures(ctx context.Context, center geo.Coordinates, distance float64) osm.Layer
	FetchParkFeatures(ctx context.Context, center geo.Coordinates, distance float64) osm.Layer
}

// Config wires the generator's collaborators.
type Config struct {
	Geocoder  Geocoder
	Features  FeatureSource
	Renderer  *render.Renderer
	Themes    *theme.Store
	Jobs      job.Store
	Artifacts *storage.ArtifactStore

	// Archive, when set, receives terminal jobs for history queries.
	Archive *job.Archive

	// MaxConcurrent bounds how many jobs render at once. Defaults to 2.
	MaxConcurrent int

	// JobTimeout bounds one generation end to end. Defaults to 5m.
	JobTimeout time.Duration

	Logger *log.Logger
}

// Generator runs the poster pipeline for enqueued jobs.
type Generator struct {
	cfg  Config
	sem  chan struct{}
	wg   sync.WaitGroup
	base context.Context
	stop context.CancelFunc
}

// NewGenerator validates cfg and returns a ready generator.
func NewGenerator(cfg Config) (*Generator, error) {
	switch {
	case cfg.Geocoder == nil, cfg.Features == nil, cfg.Renderer == nil,
		cfg.Themes == nil, cfg.Jobs == nil, cfg.Artifacts == nil:
		return nil, errors.New(errors.ErrCodeInternal, "generator config incomplete")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	base, stop := context.WithCancel(context.Background())
	return &Generator{
		cfg:  cfg,
		sem:  make(chan struct{}, cfg.MaxConcurrent),
		base: base,
		stop: stop,
	}, nil
}

// Enqueue validates the request synchronously, records a queued job,
// and starts generation in the background. Theme existence is checked
// here so an unknown theme fails the request, not the job.
func (g *Generator) Enqueue(ctx context.Context, req Request) (*job.Job, error) {
	if _, err := g.cfg.Themes.Load(req.Theme); err != nil {
		return nil, err
	}

	j := job.New(uuid.NewString(), job.Request{
		City:     req.City,
		Country:  req.Country,
		Theme:    req.Theme,
		Distance: req.Distance,
		DPI:      req.DPI,
	}, EstimateSeconds(req.Distance))

	if err := g.cfg.Jobs.Create(ctx, j); err != nil {
		return nil, err
	}
	g.cfg.Logger.Info("job enqueued",
		"job", j.ID, "city", req.City, "country", req.Country,
		"theme", req.Theme, "distance", req.Distance)

	g.wg.Add(1)
	go g.run(j.ID, req)
	return j, nil
}

// Shutdown stops accepting work and waits for running jobs to finish
// or the context to expire.
func (g *Generator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		g.stop()
		return nil
	case <-ctx.Done():
		g.stop()
		return ctx.Err()
	}
}

// run executes one job with admission control and panic isolation.
func (g *Generator) run(jobID string, req Request) {
	defer g.wg.Done()

	// The job stays queued until a slot frees up.
	select {
	case g.sem <- struct{}{}:
	case <-g.base.Done():
		return
	}
	defer func() { <-g.sem }()

	ctx, cancel := context.WithTimeout(g.base, g.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.cfg.Logger.Error("generation panicked", "job", jobID, "panic", r)
			g.fail(jobID, errors.New(errors.ErrCodeInternal, "internal error during generation"))
			observability.Generation().OnJobComplete(ctx, jobID, time.Since(start), true, 0)
		}
	}()

	warnings, err := g.generate(ctx, jobID, req)
	if err != nil {
		g.cfg.Logger.Error("generation failed", "job", jobID, "error", err)
		g.fail(jobID, err)
		observability.Generation().OnJobComplete(ctx, jobID, time.Since(start), true, warnings)
		return
	}
	g.cfg.Logger.Info("generation completed", "job", jobID, "duration", time.Since(start), "warnings", warnings)
	observability.Generation().OnJobComplete(ctx, jobID, time.Since(start), false, warnings)
}

// generate drives the pipeline stage by stage, returning the number of
// degraded-layer warnings recorded.
func (g *Generator) generate(ctx context.Context, jobID string, req Request) (int, error) {
	distance := float64(req.Distance)
	messages := stageMessages(req)

	// enter moves the job into the next stage and closes out the
	// previous one for the hooks.
	var curStage string
	var curStart time.Time
	enter := func(stage string) error {
		if curStage != "" {
			observability.Generation().OnStageComplete(ctx, jobID, curStage, time.Since(curStart), nil)
		}
		curStage, curStart = stage, time.Now()
		return g.stage(ctx, jobID, stage, messages[stage])
	}

	if err := enter(StageGeocoding); err != nil {
		return 0, err
	}
	coords, err := g.cfg.Geocoder.Resolve(ctx, req.City, req.Country)
	if err != nil {
		return 0, err
	}

	if err := enter(StageLoadingTheme); err != nil {
		return 0, err
	}
	t, err := g.cfg.Themes.Load(req.Theme)
	if err != nil {
		return 0, err
	}

	if err := enter(StageFetchingStreets); err != nil {
		return 0, err
	}
	roads, err := g.cfg.Features.FetchStreetNetwork(ctx, coords, distance)
	if err != nil {
		return 0, err
	}

	warnings := 0
	if err := enter(StageFetchingWater); err != nil {
		return warnings, err
	}
	water := g.cfg.Features.FetchWaterFeatures(ctx, coords, distance)
	if water.Degraded() {
		warnings++
		g.warn(ctx, jobID, water.Warning)
	}

	if err := enter(StageFetchingParks); err != nil {
		return warnings, err
	}
	parks := g.cfg.Features.FetchParkFeatures(ctx, coords, distance)
	if parks.Degraded() {
		warnings++
		g.warn(ctx, jobID, parks.Warning)
	}

	if err := enter(StageRendering); err != nil {
		return warnings, err
	}
	po := g.cfg.Renderer.Begin(render.Params{
		Theme:    t,
		City:     req.City,
		Country:  req.Country,
		Coords:   coords,
		Distance: distance,
		DPI:      req.DPI,
		Roads:    roads,
		Water:    water.Features,
		Parks:    parks.Features,
	})

	if err := enter(StageRenderingRoads); err != nil {
		return warnings, err
	}
	po.DrawRoads()

	if err := enter(StageAddingTypography); err != nil {
		return warnings, err
	}
	data, err := po.Finish()
	if err != nil {
		return warnings, err
	}

	if err := enter(StageSaving); err != nil {
		return warnings, err
	}
	if err := g.cfg.Artifacts.Save(jobID, data); err != nil {
		return warnings, err
	}
	observability.Generation().OnStageComplete(ctx, jobID, curStage, time.Since(curStart), nil)

	updated, err := g.cfg.Jobs.Update(ctx, jobID, func(j *job.Job) {
		j.Status = job.StatusCompleted
		j.Stage = StageCompleted
		j.Progress = stageProgress[StageCompleted]
		j.Message = messages[StageCompleted]
		j.DownloadURL = fmt.Sprintf("/api/posters/%s/download", jobID)
		j.PreviewURL = fmt.Sprintf("/api/posters/%s/preview", jobID)
	})
	if err != nil {
		return warnings, err
	}
	g.archive(updated)
	return warnings, nil
}

// stageMessages builds the human-readable text shown for each stage of
// one request.
func stageMessages(req Request) map[string]string {
	return map[string]string{
		StageGeocoding:        fmt.Sprintf("Looking up %s, %s...", req.City, req.Country),
		StageLoadingTheme:     fmt.Sprintf("Loading %s theme...", req.Theme),
		StageFetchingStreets:  "Downloading street network...",
		StageFetchingWater:    "Downloading water features...",
		StageFetchingParks:    "Downloading parks and green spaces...",
		StageRendering:        "Rendering map layers...",
		StageRenderingRoads:   "Applying road hierarchy colors...",
		StageAddingTypography: "Adding typography...",
		StageSaving:           "Saving poster...",
		StageCompleted:        "Poster generation complete!",
	}
}

// stage transitions the job into a pipeline stage, aborting promptly
// when the job context is already dead.
func (g *Generator) stage(ctx context.Context, jobID, stage, message string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "generation cancelled")
	}
	_, err := g.cfg.Jobs.Update(ctx, jobID, func(j *job.Job) {
		j.Status = job.StatusProcessing
		j.Stage = stage
		j.Progress = stageProgress[stage]
		j.Message = message
	})
	if err != nil {
		return err
	}
	observability.Generation().OnStageStart(ctx, jobID, stage)
	g.cfg.Logger.Debug("stage", "job", jobID, "stage", stage, "progress", stageProgress[stage])
	return nil
}

func (g *Generator) warn(ctx context.Context, jobID, warning string) {
	g.cfg.Logger.Warn("layer degraded", "job", jobID, "warning", warning)
	_, err := g.cfg.Jobs.Update(ctx, jobID, func(j *job.Job) {
		j.Warnings = append(j.Warnings, warning)
	})
	if err != nil {
		g.cfg.Logger.Warn("could not record warning", "job", jobID, "error", err)
	}
}

// fail marks the job failed. It uses a fresh context because the job
// context may be the reason for the failure.
func (g *Generator) fail(jobID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	updated, err := g.cfg.Jobs.Update(ctx, jobID, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Error = errors.UserMessage(cause)
		j.ErrorCode = string(errors.GetCode(cause))
	})
	if err != nil {
		g.cfg.Logger.Error("could not mark job failed", "job", jobID, "error", err)
		return
	}
	g.archive(updated)
}

func (g *Generator) archive(j *job.Job) {
	if g.cfg.Archive == nil || j == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.cfg.Archive.Put(ctx, j); err != nil {
		g.cfg.Logger.Warn("could not archive job", "job", j.ID, "error", err)
	}
}

// Describe summarizes a request for logs and CLI output.
func (r Request) Describe() string {
	return fmt.Sprintf("%s, %s (%dm, theme %s)", r.City, r.Country, r.Distance, r.Theme)
}
