// Package cache puts a TTL cache in front of the coordinate projection.
// Only the map path is cached; listings always hit storage.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/internal/logger"
	"github.com/nitesh/place_explorer/internal/metrics"
	"github.com/nitesh/place_explorer/pkg/models"
)

const keyPrefix = "explore:map:"

// Store is a key/value store with per-entry expiry. Implementations need no
// transactional guarantees; concurrent Set/Get races only cost a re-fetch.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Loader runs the live coordinate query.
type Loader func(ctx context.Context) ([]models.CoordinateProjection, error)

// Gate serves coordinate projections from Store, falling through to the
// loader on a miss.
type Gate struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewGate builds a gate. A nil store disables caching.
func NewGate(store Store, ttl time.Duration, l *slog.Logger) *Gate {
	if store == nil {
		store = Nop{}
	}
	return &Gate{store: store, ttl: ttl, logger: logger.OrDefault(l)}
}

// Coordinates returns the cached projection for key, or runs load and caches
// its result. Nothing is stored when load fails or ctx is done, so a
// cancelled query never leaves a partial entry behind. The bool reports a hit.
func (g *Gate) Coordinates(ctx context.Context, key string, load Loader) ([]models.CoordinateProjection, bool, error) {
	if b, ok, err := g.store.Get(ctx, key); err != nil {
		g.logger.Warn("cache_get_error", "key", key, "err", err)
	} else if ok {
		var out []models.CoordinateProjection
		if err := json.Unmarshal(b, &out); err == nil {
			metrics.CacheHitsTotal.Inc()
			g.logger.Debug("cache_hit", "key", key, "count", len(out))
			return out, true, nil
		}
		g.logger.Warn("cache_decode_error", "key", key)
	}
	metrics.CacheMissesTotal.Inc()

	out, err := load(ctx)
	if err != nil {
		return nil, false, err
	}
	if ctx.Err() != nil {
		return out, false, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return out, false, nil
	}
	if err := g.store.Set(ctx, key, b, g.ttl); err != nil {
		g.logger.Warn("cache_set_error", "key", key, "err", err)
	}
	return out, false, nil
}

type keyShape struct {
	Mode   filter.Mode `json:"m"`
	Center *geo.Point  `json:"c,omitempty"`
	Radius float64     `json:"r,omitempty"`
	Tags   []string    `json:"t,omitempty"`
	Locale string      `json:"l"`
	Box    *geo.Box    `json:"b,omitempty"`
}

// Key derives the cache key of a map request from the filter and viewport.
// Tag order does not matter; cursor and page size are not part of the map
// result and are ignored. Radius only counts in proximity mode.
func Key(spec filter.Spec) string {
	shape := keyShape{Mode: spec.Mode, Locale: spec.Locale, Box: spec.BoundingBox}
	if spec.Mode == filter.ModeProximity {
		shape.Center = spec.Center
		shape.Radius = spec.RadiusMeters
	}
	if len(spec.Tags) > 0 {
		shape.Tags = slices.Clone(spec.Tags)
		slices.Sort(shape.Tags)
	}
	b, _ := json.Marshal(shape)
	sum := sha256.Sum256(b)
	return keyPrefix + hex.EncodeToString(sum[:])
}
