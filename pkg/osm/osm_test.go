package osm

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/posterforge/posterforge/pkg/cache"
	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
)

const venice = `{
  "elements": [
    {"type": "node", "id": 1, "lat": 45.4371, "lon": 12.3345},
    {"type": "node", "id": 2, "lat": 45.4380, "lon": 12.3350},
    {"type": "node", "id": 3, "lat": 45.4390, "lon": 12.3360},
    {"type": "way", "id": 10, "nodes": [1, 2, 3], "tags": {"highway": "primary"}},
    {"type": "way", "id": 11, "nodes": [1, 2], "tags": {"highway": "residential"}},
    {"type": "way", "id": 12, "nodes": [1], "tags": {"highway": "tertiary"}},
    {"type": "way", "id": 13, "nodes": [1, 99], "tags": {"highway": "secondary"}}
  ]
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		Delay:   time.Millisecond,
	})
}

func TestFetchStreetNetwork(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		query := r.PostForm.Get("data")
		if !strings.Contains(query, `"highway"~`) {
			t.Errorf("query missing highway filter: %s", query)
		}
		if !strings.Contains(query, "around:5000") {
			t.Errorf("query missing radius: %s", query)
		}
		w.Write([]byte(venice))
	})

	graph, err := client.FetchStreetNetwork(context.Background(), geo.Coordinates{Lat: 45.4371, Lon: 12.3345}, 5000)
	if err != nil {
		t.Fatalf("FetchStreetNetwork() error = %v", err)
	}
	// Way 12 has one node, way 13 resolves to one known node; neither
	// is drawable.
	if len(graph.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(graph.Segments))
	}
	if graph.Segments[0].Highway != "primary" {
		t.Errorf("Highway = %q, want primary", graph.Segments[0].Highway)
	}
	if len(graph.Segments[0].Points) != 3 {
		t.Errorf("points = %d, want 3", len(graph.Segments[0].Points))
	}
}

func TestFetchStreetNetworkEmpty(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": []}`))
	})

	_, err := client.FetchStreetNetwork(context.Background(), geo.Coordinates{}, 5000)
	if err == nil {
		t.Fatal("expected error for empty street network")
	}
	if errors.GetCode(err) != errors.ErrCodeDataFetch {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeDataFetch)
	}
}

func TestFetchStreetNetworkServiceError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.FetchStreetNetwork(context.Background(), geo.Coordinates{}, 5000)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if errors.GetCode(err) != errors.ErrCodeDataFetch {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeDataFetch)
	}
}

func TestFetchStreetNetworkRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.Write([]byte(venice))
	})

	graph, err := client.FetchStreetNetwork(context.Background(), geo.Coordinates{}, 5000)
	if err != nil {
		t.Fatalf("FetchStreetNetwork() error = %v", err)
	}
	if graph.Empty() {
		t.Error("expected segments after retry")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestFetchWaterFeaturesDegrades(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	layer := client.FetchWaterFeatures(context.Background(), geo.Coordinates{}, 5000)
	if !layer.Degraded() {
		t.Fatal("expected degraded layer")
	}
	if layer.Features == nil || len(layer.Features) != 0 {
		t.Errorf("Features = %v, want empty collection", layer.Features)
	}
	if !strings.Contains(layer.Warning, "water") {
		t.Errorf("Warning = %q, want mention of water", layer.Warning)
	}
}

func TestFetchParkFeatures(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if query := r.PostForm.Get("data"); !strings.Contains(query, `"leisure"`) {
			t.Errorf("query missing leisure filter: %s", query)
		}
		w.Write([]byte(venice))
	})

	layer := client.FetchParkFeatures(context.Background(), geo.Coordinates{}, 5000)
	if layer.Degraded() {
		t.Fatalf("unexpected warning: %s", layer.Warning)
	}
	// Only way 10 has three resolvable points.
	if len(layer.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(layer.Features))
	}
	if layer.Features[0].Kind != "parks" {
		t.Errorf("Kind = %q, want parks", layer.Features[0].Kind)
	}
}

func TestLayerCaching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(venice))
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL: srv.URL,
		Delay:   time.Millisecond,
		Cache:   cache.NewMemoryCache(10),
	})

	center := geo.Coordinates{Lat: 45.4371, Lon: 12.3345}
	for i := 0; i < 2; i++ {
		if layer := client.FetchWaterFeatures(context.Background(), center, 5000); layer.Degraded() {
			t.Fatalf("unexpected warning: %s", layer.Warning)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
		Delay:   time.Millisecond,
	})

	_, err := client.FetchStreetNetwork(context.Background(), geo.Coordinates{}, 5000)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var te *errors.TimeoutError
	if !stderrors.As(err, &te) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if te.Service != "Overpass" {
		t.Errorf("Service = %q, want Overpass", te.Service)
	}
}
