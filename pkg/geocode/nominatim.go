// Package geocode resolves place names to WGS84 coordinates through the
// Nominatim search API.
//
// The client is rate-limited (Nominatim's usage policy asks for at most
// one request per second), timeout-bounded, and caches responses so
// repeated jobs for the same place skip the network entirely. All three
// failure modes are fatal to a generation job: a timeout, a service
// error, and an empty result set.
package geocode

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/posterforge/posterforge/pkg/cache"
	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/httputil"
	"github.com/posterforge/posterforge/pkg/observability"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies this application per the Nominatim usage policy.
const userAgent = "PosterForge/1.0 (+https://github.com/posterforge/posterforge)"

// rateKey namespaces this client in the shared rate limiter.
const rateKey = "nominatim"

// Config holds client construction parameters.
type Config struct {
	// BaseURL overrides the Nominatim endpoint (tests, self-hosted).
	BaseURL string

	// Timeout bounds each search request. Zero selects 10 seconds.
	Timeout time.Duration

	// Delay is the courtesy wait before each request. Zero selects 1s.
	Delay time.Duration

	// Cache stores raw responses. Nil disables caching.
	Cache cache.Cache

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Client is a rate-limited Nominatim search client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *httputil.RateLimiter
	cache   cache.Cache
	timeout time.Duration
	logger  *log.Logger
}

// NewClient creates a geocoding client from cfg, applying defaults for
// unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Delay == 0 {
		cfg.Delay = time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
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

// Location is one Nominatim search result.
type Location struct {
	Coordinates geo.Coordinates `json:"coordinates"`
	DisplayName string          `json:"display_name"`
	City        string          `json:"city,omitempty"`
	Country     string          `json:"country,omitempty"`
}

// nominatimResult mirrors the wire format; lat/lon arrive as strings.
type nominatimResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Country      string `json:"country"`
}

// Resolve looks up the coordinates for a (city, country) pair. Exactly
// one external lookup is issued for the query "city, country"; the
// first result wins. Zero results, service errors, and timeouts all
// fail the lookup.
func (c *Client) Resolve(ctx context.Context, city, country string) (geo.Coordinates, error) {
	query := fmt.Sprintf("%s, %s", city, country)
	c.logger.Info("geocoding location", "query", query)

	results, err := c.Search(ctx, query, 1)
	if err != nil {
		return geo.Coordinates{}, err
	}
	if len(results) == 0 {
		c.logger.Warn("no geocoding results", "query", query)
		return geo.Coordinates{}, errors.New(errors.ErrCodeGeocoding,
			"could not geocode %q: no results found", query)
	}

	coords := results[0].Coordinates
	c.logger.Info("geocoded location", "query", query, "lat", coords.Lat, "lon", coords.Lon)
	return coords, nil
}

// Search queries Nominatim for locations matching query, returning at
// most limit results. Responses are cached.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Location, error) {
	if limit <= 0 {
		limit = 1
	}

	cacheKey := cache.GeocodeKey(fmt.Sprintf("%s|%d", query, limit))
	if data, hit, err := c.cache.Get(ctx, cacheKey); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "geocode")
		var cached []Location
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "geocode")

	// Courtesy delay before touching the external service.
	if err := c.limiter.Wait(ctx, rateKey); err != nil {
		return nil, err
	}

	raw, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	locations := make([]Location, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		loc := Location{
			Coordinates: geo.Coordinates{Lat: lat, Lon: lon},
			DisplayName: r.DisplayName,
		}
		if a := r.Address; a != nil {
			loc.City = firstNonEmpty(a.City, a.Town, a.Village, a.Municipality)
			loc.Country = a.Country
		}
		locations = append(locations, loc)
	}

	if data, err := json.Marshal(locations); err == nil {
		_ = c.cache.Set(ctx, cacheKey, data, cache.TTLGeocode)
		observability.Cache().OnCacheSet(ctx, "geocode", len(data))
	}

	return locations, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]nominatimResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=%d&addressdetails=1",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeocoding, "build request")
	}
	req.Header.Set("User-Agent", userAgent)

	u, _ := url.Parse(endpoint)
	observability.HTTP().OnRequest(ctx, http.MethodGet, u.Host, u.Path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, u.Host, u.Path, err)
		if isTimeout(err) {
			return nil, errors.Timeout("Nominatim", c.timeout)
		}
		return nil, errors.Wrap(err, errors.ErrCodeGeocoding, "service error")
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeGeocoding,
			"service error: Nominatim returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeocoding, "decode response")
	}
	return results, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
