package poster

import (
	"context"
	"testing"
	"time"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/osm"
	"github.com/posterforge/posterforge/pkg/render"
	"github.com/posterforge/posterforge/pkg/storage"
	"github.com/posterforge/posterforge/pkg/theme"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name     string
		city     string
		country  string
		theme    string
		distance int
		dpi      int
		want     Request
		wantCode errors.Code
	}{
		{
			name: "defaults applied",
			city: "Venice", country: "Italy",
			want: Request{City: "Venice", Country: "Italy", Theme: theme.DefaultName, Distance: DefaultDistance, DPI: DefaultDPI},
		},
		{
			name: "explicit values",
			city: " Venice ", country: "Italy", theme: "noir", distance: 8000, dpi: 150,
			want: Request{City: "Venice", Country: "Italy", Theme: "noir", Distance: 8000, DPI: 150},
		},
		{
			name: "empty city",
			city: "  ", country: "Italy",
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name: "empty country",
			city: "Venice", country: "",
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name: "distance below minimum",
			city: "Venice", country: "Italy", distance: 1999,
			wantCode: errors.ErrCodeInvalidDistance,
		},
		{
			name: "distance above maximum",
			city: "Venice", country: "Italy", distance: 50001,
			wantCode: errors.ErrCodeInvalidDistance,
		},
		{
			name: "negative dpi",
			city: "Venice", country: "Italy", dpi: -300,
			wantCode: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRequest(tt.city, tt.country, tt.theme, tt.distance, tt.dpi)
			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("NewRequest() = %+v, want error", got)
				}
				if errors.GetCode(err) != tt.wantCode {
					t.Errorf("code = %s, want %s", errors.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NewRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEstimateSeconds(t *testing.T) {
	tests := []struct {
		distance int
		want     int
	}{
		{2000, 30},
		{5000, 30},
		{5001, 45},
		{10000, 45},
		{10001, 60},
		{20000, 60},
		{20001, 90},
		{50000, 90},
	}
	for _, tt := range tests {
		if got := EstimateSeconds(tt.distance); got != tt.want {
			t.Errorf("EstimateSeconds(%d) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}

// Pipeline stubs.

type stubGeocoder struct {
	coords geo.Coordinates
	err    error
	panics bool
}

func (s stubGeocoder) Resolve(ctx context.Context, city, country string) (geo.Coordinates, error) {
	if s.panics {
		panic("geocoder exploded")
	}
	return s.coords, s.err
}

type stubFeatures struct {
	roads    osm.RoadGraph
	roadsErr error
	water    osm.Layer
	parks    osm.Layer
}

func (s stubFeatures) FetchStreetNetwork(ctx context.Context, center geo.Coordinates, distance float64) (osm.RoadGraph, error) {
	return s.roads, s.roadsErr
}

func (s stubFeatures) FetchWaterFeatures(ctx context.Context, center geo.Coordinates, distance float64) osm.Layer {
	return s.water
}

func (s stubFeatures) FetchParkFeatures(ctx context.Context, center geo.Coordinates, distance float64) osm.Layer {
	return s.parks
}

func testGenerator(t *testing.T, geocoder Geocoder, features FeatureSource) (*Generator, job.Store, *storage.ArtifactStore) {
	t.Helper()
	fonts, err := render.LoadFonts("")
	if err != nil {
		t.Skipf("no fonts available: %v", err)
	}
	artifacts, err := storage.NewArtifactStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	jobs := job.NewMemoryStore()
	g, err := NewGenerator(Config{
		Geocoder:  geocoder,
		Features:  features,
		Renderer:  render.NewRenderer(fonts, nil),
		Themes:    theme.NewStore(t.TempDir(), nil),
		Jobs:      jobs,
		Artifacts: artifacts,
	})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return g, jobs, artifacts
}

func waitTerminal(t *testing.T, jobs job.Store, id string) *job.Job {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		j, err := jobs.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if j.Status.Terminal() {
			return j
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state: %+v", id, j)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func validRequest(t *testing.T) Request {
	t.Helper()
	req, err := NewRequest("Venice", "Italy", "", 5000, 0)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func someRoads() osm.RoadGraph {
	return osm.RoadGraph{Segments: []osm.RoadSegment{{
		Highway: "primary",
		Points: []geo.Coordinates{
			{Lat: 45.43, Lon: 12.33},
			{Lat: 45.44, Lon: 12.34},
		},
	}}}
}

func TestGenerateCompletes(t *testing.T) {
	g, jobs, artifacts := testGenerator(t,
		stubGeocoder{coords: geo.Coordinates{Lat: 45.4371, Lon: 12.3345}},
		stubFeatures{roads: someRoads()},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if j.Status != job.StatusQueued {
		t.Errorf("initial status = %s, want queued", j.Status)
	}
	if j.EstimatedSeconds != 30 {
		t.Errorf("EstimatedSeconds = %d, want 30", j.EstimatedSeconds)
	}
	if j.Message != "Job queued" {
		t.Errorf("initial message = %q, want Job queued", j.Message)
	}

	done := waitTerminal(t, jobs, j.ID)
	if done.Status != job.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.Error)
	}
	if done.Progress != 1 {
		t.Errorf("progress = %v, want 1", done.Progress)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if len(done.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", done.Warnings)
	}
	if done.Message != "Poster generation complete!" {
		t.Errorf("Message = %q, want completion text", done.Message)
	}
	if want := "/api/posters/" + j.ID + "/download"; done.DownloadURL != want {
		t.Errorf("DownloadURL = %q, want %q", done.DownloadURL, want)
	}
	if want := "/api/posters/" + j.ID + "/preview"; done.PreviewURL != want {
		t.Errorf("PreviewURL = %q, want %q", done.PreviewURL, want)
	}
	if !artifacts.Exists(j.ID) {
		t.Error("artifact missing after completion")
	}
}

func TestStageMessages(t *testing.T) {
	req := validRequest(t)
	messages := stageMessages(req)

	if got := messages[StageGeocoding]; got != "Looking up Venice, Italy..." {
		t.Errorf("geocoding message = %q", got)
	}
	if got := messages[StageLoadingTheme]; got != "Loading feature_based theme..." {
		t.Errorf("loading_theme message = %q", got)
	}
	// Every stage has text to show.
	for stage := range stageProgress {
		if messages[stage] == "" {
			t.Errorf("stage %s has no message", stage)
		}
	}
}

func TestGenerateRecordsLayerWarnings(t *testing.T) {
	g, jobs, _ := testGenerator(t,
		stubGeocoder{coords: geo.Coordinates{Lat: 45.4371, Lon: 12.3345}},
		stubFeatures{
			roads: someRoads(),
			water: osm.Layer{Features: osm.FeatureCollection{}, Warning: "could not fetch water features: upstream down"},
		},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatal(err)
	}

	done := waitTerminal(t, jobs, j.ID)
	// Degraded layers do not fail the job.
	if done.Status != job.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.Error)
	}
	if len(done.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", done.Warnings)
	}
}

func TestGenerateFailsOnGeocode(t *testing.T) {
	g, jobs, artifacts := testGenerator(t,
		stubGeocoder{err: errors.New(errors.ErrCodeGeocoding, "could not geocode")},
		stubFeatures{roads: someRoads()},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatal(err)
	}

	done := waitTerminal(t, jobs, j.ID)
	if done.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorCode != string(errors.ErrCodeGeocoding) {
		t.Errorf("ErrorCode = %s, want %s", done.ErrorCode, errors.ErrCodeGeocoding)
	}
	if done.Error == "" {
		t.Error("Error message empty")
	}
	if artifacts.Exists(j.ID) {
		t.Error("artifact present for failed job")
	}
}

func TestGenerateFailsOnStreets(t *testing.T) {
	g, jobs, _ := testGenerator(t,
		stubGeocoder{coords: geo.Coordinates{Lat: 45, Lon: 12}},
		stubFeatures{roadsErr: errors.New(errors.ErrCodeDataFetch, "no street data found for this location")},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatal(err)
	}

	done := waitTerminal(t, jobs, j.ID)
	if done.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorCode != string(errors.ErrCodeDataFetch) {
		t.Errorf("ErrorCode = %s, want %s", done.ErrorCode, errors.ErrCodeDataFetch)
	}
}

func TestGenerateRecoversFromPanic(t *testing.T) {
	g, jobs, _ := testGenerator(t,
		stubGeocoder{panics: true},
		stubFeatures{roads: someRoads()},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatal(err)
	}

	done := waitTerminal(t, jobs, j.ID)
	if done.Status != job.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.ErrorCode != string(errors.ErrCodeInternal) {
		t.Errorf("ErrorCode = %s, want %s", done.ErrorCode, errors.ErrCodeInternal)
	}
}

func TestEnqueueRejectsUnknownTheme(t *testing.T) {
	g, jobs, _ := testGenerator(t,
		stubGeocoder{coords: geo.Coordinates{Lat: 45, Lon: 12}},
		stubFeatures{roads: someRoads()},
	)

	req := validRequest(t)
	req.Theme = "no_such_theme"
	if _, err := g.Enqueue(context.Background(), req); err == nil {
		t.Fatal("Enqueue() with unknown theme should fail")
	}

	// No job record was created for the rejected request.
	all, err := jobs.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("jobs = %d, want 0", len(all))
	}
}

func TestShutdownWaitsForJobs(t *testing.T) {
	g, jobs, _ := testGenerator(t,
		stubGeocoder{coords: geo.Coordinates{Lat: 45, Lon: 12}},
		stubFeatures{roads: someRoads()},
	)

	j, err := g.Enqueue(context.Background(), validRequest(t))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	done, err := jobs.Get(context.Background(), j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Status.Terminal() {
		t.Errorf("status = %s after shutdown, want terminal", done.Status)
	}
}
