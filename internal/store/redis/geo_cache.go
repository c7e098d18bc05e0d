package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/platform/metrics"
)

const (
	locationsKey       = "geo:locations"
	countriesKeyPrefix = "geo:countries:"
)

// GeoCache wraps an OrderAPI and caches locations and countries. Cache
// failures degrade to a direct call.
type GeoCache struct {
	core.OrderAPI
	rdb *goredis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewGeoCache(next core.OrderAPI, rdb *goredis.Client, ttl time.Duration, log *slog.Logger) *GeoCache {
	if log == nil {
		log = slog.Default()
	}
	return &GeoCache{OrderAPI: next, rdb: rdb, ttl: ttl, log: log.With("component", "geo_cache")}
}

func (c *GeoCache) GetLocations(ctx context.Context) ([]core.Location, error) {
	var locs []core.Location
	if c.get(ctx, locationsKey, &locs) {
		metrics.TrackGeoCache("locations", true)
		return locs, nil
	}
	metrics.TrackGeoCache("locations", false)
	locs, err := c.OrderAPI.GetLocations(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, locationsKey, locs)
	return locs, nil
}

func (c *GeoCache) GetCountries(ctx context.Context, lang string) ([]core.Country, error) {
	key := countriesKeyPrefix + strings.ToUpper(lang)
	var countries []core.Country
	if c.get(ctx, key, &countries) {
		metrics.TrackGeoCache("countries", true)
		return countries, nil
	}
	metrics.TrackGeoCache("countries", false)
	countries, err := c.OrderAPI.GetCountries(ctx, lang)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, countries)
	return countries, nil
}

func (c *GeoCache) get(ctx context.Context, key string, dest any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.WarnContext(ctx, "cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.WarnContext(ctx, "cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *GeoCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "cache write failed", "key", key, "err", err)
	}
}
