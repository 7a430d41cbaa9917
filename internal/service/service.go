// Package service runs exploration requests end to end: normalize the filter,
// plan it, then serve the map path through the cache gate or the list path
// through the cursor paginator.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nitesh/place_explorer/internal/cache"
	"github.com/nitesh/place_explorer/internal/config"
	"github.com/nitesh/place_explorer/internal/cursor"
	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/logger"
	"github.com/nitesh/place_explorer/internal/metrics"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/pkg/models"
)

// PlaceStore executes plans. Implementations must honor plan.Empty by
// returning no rows, and must apply every predicate of the plan.
type PlaceStore interface {
	cursor.Fetcher
	Coordinates(ctx context.Context, p plan.Plan, limit int) ([]models.CoordinateProjection, error)
	ActiveTags(ctx context.Context, locale string) ([]models.Tag, error)
	Ping(ctx context.Context) error
}

// MapResult is the coordinate projection of a search.
type MapResult struct {
	Items  []models.CoordinateProjection
	Cached bool
	// Limit is the server-side cap applied to Items.
	Limit int
}

type Service struct {
	repo       PlaceStore
	gate       *cache.Gate
	normalizer *filter.Normalizer
	cfg        config.Engine
	logger     *slog.Logger
}

// NewService wires a service. A nil gate disables caching.
func NewService(repo PlaceStore, gate *cache.Gate, cfg config.Engine, l *slog.Logger) *Service {
	l = logger.OrDefault(l)
	if gate == nil {
		gate = cache.NewGate(nil, cfg.CacheTTL, l)
	}
	return &Service{
		repo:       repo,
		gate:       gate,
		normalizer: filter.NewNormalizer(cfg),
		cfg:        cfg,
		logger:     l,
	}
}

// Map returns the coordinates of every place matching raw, up to the
// configured cap. Results are cached per filter and viewport.
func (s *Service) Map(ctx context.Context, raw filter.Raw) (MapResult, error) {
	spec, err := s.normalizer.Normalize(raw)
	if err != nil {
		return MapResult{}, err
	}
	res := MapResult{Items: []models.CoordinateProjection{}, Limit: s.cfg.MaxMapCoordinates}

	p := plan.Build(spec)
	if p.Empty {
		s.emptyPlan(metrics.PathMap, p)
		return res, nil
	}

	items, hit, err := s.gate.Coordinates(ctx, cache.Key(spec), func(ctx context.Context) ([]models.CoordinateProjection, error) {
		start := time.Now()
		defer observe(metrics.PathMap, start)
		return s.repo.Coordinates(ctx, p, s.cfg.MaxMapCoordinates)
	})
	if err != nil {
		s.storageError(metrics.PathMap, spec, err)
		return MapResult{}, fmt.Errorf("fetch coordinates: %w", err)
	}
	if items != nil {
		res.Items = items
	}
	res.Cached = hit
	s.logger.Debug("place_map_query", "mode", spec.Mode, "count", len(res.Items), "cached", hit)
	return res, nil
}

// List returns one page of detail projections. Listings are never cached.
func (s *Service) List(ctx context.Context, raw filter.Raw) (models.SearchResultPage, error) {
	spec, err := s.normalizer.Normalize(raw)
	if err != nil {
		return models.SearchResultPage{}, err
	}

	p := plan.Build(spec)
	if p.Empty {
		s.emptyPlan(metrics.PathList, p)
		return models.EmptyPage(), nil
	}

	page, err := cursor.Paginate(ctx, timedFetcher{repo: s.repo}, p, spec.Cursor, spec.PageSize)
	if err != nil {
		if errors.Is(err, filter.ErrValidation) {
			return models.SearchResultPage{}, err
		}
		s.storageError(metrics.PathList, spec, err)
		return models.SearchResultPage{}, fmt.Errorf("fetch details: %w", err)
	}
	s.logger.Debug("place_list_query", "mode", spec.Mode, "count", len(page.Items), "has_more", page.HasMore)
	return page, nil
}

// Tags lists the active tags that can be used as filters in locale.
func (s *Service) Tags(ctx context.Context, locale string) ([]models.Tag, error) {
	spec, err := s.normalizer.Normalize(filter.Raw{Locale: locale})
	if err != nil {
		return nil, err
	}
	start := time.Now()
	tags, err := s.repo.ActiveTags(ctx, spec.Locale)
	observe(metrics.PathTags, start)
	if err != nil {
		metrics.StorageErrorsTotal.WithLabelValues(metrics.PathTags).Inc()
		s.logger.Error("storage_error", "path", metrics.PathTags, "locale", spec.Locale, "err", err)
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	return tags, nil
}

// Ping checks that storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) emptyPlan(path string, p plan.Plan) {
	metrics.EmptyPlansTotal.WithLabelValues(p.EmptyReason).Inc()
	s.logger.Debug("empty_plan", "path", path, "reason", p.EmptyReason)
}

func (s *Service) storageError(path string, spec filter.Spec, err error) {
	metrics.StorageErrorsTotal.WithLabelValues(path).Inc()
	s.logger.Error("storage_error", append([]any{"path", path, "err", err}, specAttrs(spec)...)...)
}

func specAttrs(spec filter.Spec) []any {
	attrs := []any{
		"mode", spec.Mode,
		"radius_m", spec.RadiusMeters,
		"tags", spec.Tags,
		"locale", spec.Locale,
		"page_size", spec.PageSize,
		"has_cursor", spec.Cursor != "",
	}
	if spec.Center != nil {
		attrs = append(attrs, "lat", spec.Center.Lat, "lon", spec.Center.Lon)
	}
	if b := spec.BoundingBox; b != nil {
		attrs = append(attrs, "box", fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North))
	}
	return attrs
}

func observe(path string, start time.Time) {
	metrics.QueryDurationMs.WithLabelValues(path).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

type timedFetcher struct {
	repo cursor.Fetcher
}

func (f timedFetcher) Details(ctx context.Context, p plan.Plan, after *cursor.Key, limit int) ([]models.DetailProjection, error) {
	start := time.Now()
	defer observe(metrics.PathList, start)
	return f.repo.Details(ctx, p, after, limit)
}
