// Package cache provides response caching for the external services the
// poster pipeline talks to.
//
// Geocoding results and Overpass layer responses are expensive and
// rate-limited, so both clients cache raw responses keyed by query
// parameters. Two backends are provided: an in-memory TTL cache with a
// bounded entry count (the server default) and a file-based cache that
// survives process restarts (the CLI default). A NullCache disables
// caching entirely.
package cache

import (
	"context"
	"time"
)

// TTLs per cached data kind. Geocoding results are effectively static;
// map layers change slowly but posters should pick up edits eventually.
const (
	TTLGeocode = 24 * time.Hour
	TTLLayer   = 6 * time.Hour
)

// Cache stores opaque byte blobs with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// GeocodeKey builds the cache key for a geocoding query.
func GeocodeKey(query string) string {
	return hashKey("geocode", query)
}

// LayerKey builds the cache key for an Overpass layer fetch.
func LayerKey(layer string, lat, lon float64, distance int) string {
	return hashKey("layer", layer, lat, lon, distance)
}
