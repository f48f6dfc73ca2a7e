package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/posterforge/posterforge/pkg/cache"
	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/httputil"
	"github.com/posterforge/posterforge/pkg/observability"
)

// DefaultBaseURL is the public Overpass API endpoint.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

const (
	userAgent = "PosterForge/1.0 (+https://github.com/posterforge/posterforge)"
	rateKey   = "overpass"
)

// highwayFilter selects the road classes the renderer knows how to
// style. Service roads, paths and tracks are excluded.
const highwayFilter = "^(motorway|trunk|primary|secondary|tertiary|residential|living_street|unclassified|motorway_link|trunk_link|primary_link|secondary_link|tertiary_link)$"

// Config holds Overpass client settings.
type Config struct {
	// BaseURL overrides the Overpass endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each HTTP request. Defaults to 60s; Overpass
	// queries over a large radius are slow.
	Timeout time.Duration

	// Delay is the minimum spacing between requests. Defaults to 500ms.
	Delay time.Duration

	// Cache stores responses keyed by layer and query area. Optional.
	Cache cache.Cache

	// Logger receives fetch diagnostics. Optional.
	Logger *log.Logger
}

// Client queries the Overpass API for map features.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *httputil.RateLimiter
	cache   cache.Cache
	timeout time.Duration
	logger  *log.Logger
}

// NewClient builds an Overpass client from cfg, applying defaults for
// unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: httputil.NewRateLimiter(cfg.Delay),
		cache:   cfg.Cache,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// FetchStreetNetwork fetches all drawable roads around center. The
// street layer is mandatory: any failure, including an empty result,
// is an error.
func (c *Client) FetchStreetNetwork(ctx context.Context, center geo.Coordinates, distance float64) (RoadGraph, error) {
	query := streetQuery(center, distance)
	resp, err := c.run(ctx, "streets", center, distance, query)
	if err != nil {
		return RoadGraph{}, errors.Wrap(err, errors.ErrCodeDataFetch, "could not fetch street network")
	}
	graph := parseRoads(resp)
	if graph.Empty() {
		return RoadGraph{}, errors.New(errors.ErrCodeDataFetch, "no street data found for this location")
	}
	c.logger.Debug("fetched street network", "segments", len(graph.Segments))
	return graph, nil
}

// FetchWaterFeatures fetches water polygons around center. Water is
// decorative: failures degrade to an empty layer with a warning.
func (c *Client) FetchWaterFeatures(ctx context.Context, center geo.Coordinates, distance float64) Layer {
	return c.fetchLayer(ctx, "water", center, distance, waterQuery(center, distance))
}

// FetchParkFeatures fetches park and green-space polygons around
// center. Parks degrade like water does.
func (c *Client) FetchParkFeatures(ctx context.Context, center geo.Coordinates, distance float64) Layer {
	return c.fetchLayer(ctx, "parks", center, distance, parkQuery(center, distance))
}

func (c *Client) fetchLayer(ctx context.Context, kind string, center geo.Coordinates, distance float64, query string) Layer {
	resp, err := c.run(ctx, kind, center, distance, query)
	if err != nil {
		c.logger.Warn("feature fetch degraded", "layer", kind, "error", err)
		return Layer{
			Features: FeatureCollection{},
			Warning:  fmt.Sprintf("could not fetch %s features: %v", kind, errors.UserMessage(err)),
		}
	}
	features := parsePolygons(resp, kind)
	c.logger.Debug("fetched feature layer", "layer", kind, "features", len(features))
	return Layer{Features: features}
}

// run executes one Overpass query with caching, rate limiting and
// retry on transient server errors.
func (c *Client) run(ctx context.Context, layer string, center geo.Coordinates, distance float64, query string) (*overpassResponse, error) {
	key := cache.LayerKey(layer, center.Lat, center.Lon, int(distance))
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "layer")
		var resp overpassResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
		// Corrupt entry: fall through to a fresh fetch.
	}
	observability.Cache().OnCacheMiss(ctx, "layer")

	var body []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx, rateKey); err != nil {
			return err
		}
		var err error
		body, err = c.post(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataFetch, "invalid Overpass response")
	}
	if err := c.cache.Set(ctx, key, body, cache.TTLLayer); err == nil {
		observability.Cache().OnCacheSet(ctx, "layer", len(body))
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "building Overpass request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	observability.HTTP().OnRequest(ctx, http.MethodPost, req.URL.Host, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodPost, req.URL.Host, req.URL.Path, err)
		if isTimeout(err) {
			return nil, errors.Timeout("Overpass", c.timeout)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDataFetch, "Overpass request failed")
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodPost, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		err := errors.New(errors.ErrCodeDataFetch, "service error: Overpass returned status %d", resp.StatusCode)
		// 429 and 5xx are worth retrying; Overpass mirrors shed load
		// with both.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &httputil.RetryableError{Err: err}
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// streetQuery selects ways matching the drawable highway classes in a
// radius around the center.
func streetQuery(center geo.Coordinates, distance float64) string {
	return fmt.Sprintf(`[out:json][timeout:60];
way(around:%.0f,%.6f,%.6f)["highway"~"%s"];
(._;>;);
out body;`, distance, center.Lat, center.Lon, highwayFilter)
}

// waterQuery selects water bodies and riverbanks.
func waterQuery(center geo.Coordinates, distance float64) string {
	around := fmt.Sprintf("around:%.0f,%.6f,%.6f", distance, center.Lat, center.Lon)
	return fmt.Sprintf(`[out:json][timeout:60];
(
  way(%[1]s)["natural"="water"];
  way(%[1]s)["waterway"="riverbank"];
);
(._;>;);
out body;`, around)
}

// parkQuery selects parks, gardens and comparable green areas.
func parkQuery(center geo.Coordinates, distance float64) string {
	around := fmt.Sprintf("around:%.0f,%.6f,%.6f", distance, center.Lat, center.Lon)
	return fmt.Sprintf(`[out:json][timeout:60];
(
  way(%[1]s)["leisure"~"^(park|garden)$"];
  way(%[1]s)["landuse"~"^(grass|recreation_ground|village_green)$"];
);
(._;>;);
out body;`, around)
}
