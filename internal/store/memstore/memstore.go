// Package memstore is an in-process store over fixture data. It evaluates
// plans with the same semantics as the Postgres store and backs tests and
// local runs without a database.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nitesh/place_explorer/internal/cursor"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/pkg/models"
)

// PlaceTranslation is one locale's content of a place.
type PlaceTranslation struct {
	Title       string
	Slug        string
	Description string
	Published   bool
}

// Place is a fixture place.
type Place struct {
	ID           int64
	Latitude     float64
	Longitude    float64
	Address      string
	IsFeatured   bool
	CreatedAt    time.Time
	Translations map[string]PlaceTranslation
	TagIDs       []int64
	MainPhoto    *models.Photo
}

// TagTranslation is one locale's name and slug of a tag.
type TagTranslation struct {
	Name      string
	Slug      string
	Published bool
}

// Tag is a fixture tag.
type Tag struct {
	ID           int64
	Color        string
	Active       bool
	Translations map[string]TagTranslation
}

// Store holds places and tags in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	places map[int64]Place
	tags   map[int64]Tag

	queries atomic.Int64
	err     error
}

func New() *Store {
	return &Store{places: map[int64]Place{}, tags: map[int64]Tag{}}
}

// AddTags inserts or replaces tags.
func (s *Store) AddTags(tags ...Tag) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tags {
		s.tags[t.ID] = t
	}
	return s
}

// AddPlaces inserts or replaces places. CreatedAt is truncated to
// microseconds, the precision of a Postgres timestamptz and of cursors.
func (s *Store) AddPlaces(places ...Place) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range places {
		p.CreatedAt = p.CreatedAt.Truncate(time.Microsecond)
		s.places[p.ID] = p
	}
	return s
}

// RemovePlaces deletes places by id. Unknown ids are ignored.
func (s *Store) RemovePlaces(ids ...int64) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.places, id)
	}
	return s
}

// FailWith makes every subsequent query return err. A nil err heals the store.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Queries reports how many queries reached the store.
func (s *Store) Queries() int64 { return s.queries.Load() }

// Ping reports the configured failure, if any.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

type candidate struct {
	place    Place
	tr       PlaceTranslation
	distance float64
}

// match returns the places admitted by pl, in plan order.
func (s *Store) match(ctx context.Context, pl plan.Plan) ([]candidate, error) {
	s.queries.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}

	var out []candidate
	for _, p := range s.places {
		tr, ok := p.Translations[pl.Locale]
		if !ok || !tr.Published {
			continue
		}
		dist, ok := pl.Admits(geo.Point{Lat: p.Latitude, Lon: p.Longitude})
		if !ok {
			continue
		}
		if !pl.Tags.Empty() && !slices.ContainsFunc(p.TagIDs, func(id int64) bool {
			return s.tagSelected(pl, id)
		}) {
			continue
		}
		out = append(out, candidate{place: p, tr: tr, distance: dist})
	}

	slices.SortFunc(out, func(a, b candidate) int {
		switch {
		case pl.Order == plan.OrderNearest && a.distance != b.distance:
			return cmp.Compare(a.distance, b.distance)
		case pl.Order == plan.OrderNearest:
			return cmp.Compare(a.place.ID, b.place.ID)
		case !a.place.CreatedAt.Equal(b.place.CreatedAt):
			return b.place.CreatedAt.Compare(a.place.CreatedAt)
		default:
			return cmp.Compare(b.place.ID, a.place.ID)
		}
	})
	return out, nil
}

// tagSelected reports whether tag id is active and matches the plan selector.
func (s *Store) tagSelected(pl plan.Plan, id int64) bool {
	t, ok := s.tags[id]
	if !ok || !t.Active {
		return false
	}
	return pl.Tags.Matches(id, publishedSlug(t, pl.Tags.Locale))
}

func publishedSlug(t Tag, locale string) string {
	tr, ok := t.Translations[locale]
	if !ok || !tr.Published {
		return ""
	}
	return tr.Slug
}

// Coordinates returns at most limit positions matching pl, in plan order.
func (s *Store) Coordinates(ctx context.Context, pl plan.Plan, limit int) ([]models.CoordinateProjection, error) {
	if pl.Empty || limit <= 0 {
		return []models.CoordinateProjection{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cands, err := s.match(ctx, pl)
	if err != nil {
		return nil, err
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]models.CoordinateProjection, len(cands))
	for i, c := range cands {
		out[i] = models.CoordinateProjection{
			ID:         c.place.ID,
			Latitude:   c.place.Latitude,
			Longitude:  c.place.Longitude,
			IsFeatured: c.place.IsFeatured,
		}
	}
	return out, nil
}

// Details returns up to limit projected places of pl strictly after the key.
func (s *Store) Details(ctx context.Context, pl plan.Plan, after *cursor.Key, limit int) ([]models.DetailProjection, error) {
	if pl.Empty || limit <= 0 {
		return []models.DetailProjection{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cands, err := s.match(ctx, pl)
	if err != nil {
		return nil, err
	}
	out := make([]models.DetailProjection, 0, min(limit, len(cands)))
	for _, c := range cands {
		if after != nil && !after.After(pl.Order, c.place.ID, c.distance, c.place.CreatedAt) {
			continue
		}
		out = append(out, s.project(pl, c))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) project(pl plan.Plan, c candidate) models.DetailProjection {
	d := models.DetailProjection{
		ID:         c.place.ID,
		Latitude:   c.place.Latitude,
		Longitude:  c.place.Longitude,
		Address:    c.place.Address,
		IsFeatured: c.place.IsFeatured,
		CreatedAt:  c.place.CreatedAt,
		Translation: models.Translation{
			Locale:      pl.Locale,
			Title:       c.tr.Title,
			Slug:        c.tr.Slug,
			Description: c.tr.Description,
		},
		Tags: []models.Tag{},
	}
	if pl.Proximity() {
		dist := c.distance
		d.Distance = &dist
	}
	if c.place.MainPhoto != nil {
		photo := *c.place.MainPhoto
		d.MainPhoto = &photo
	}

	ids := slices.Clone(c.place.TagIDs)
	slices.Sort(ids)
	for _, id := range ids {
		t, ok := s.tags[id]
		if !ok || !t.Active {
			continue
		}
		if !pl.Tags.Empty() && !s.tagSelected(pl, id) {
			continue
		}
		tr := t.Translations[pl.Locale]
		if !tr.Published {
			tr = TagTranslation{}
		}
		d.Tags = append(d.Tags, models.Tag{ID: t.ID, Color: t.Color, Name: tr.Name, Slug: tr.Slug})
	}
	return d
}

// ActiveTags lists active tags with a published translation in locale, by name.
func (s *Store) ActiveTags(ctx context.Context, locale string) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.queries.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}

	out := []models.Tag{}
	for _, t := range s.tags {
		tr, ok := t.Translations[locale]
		if !t.Active || !ok || !tr.Published {
			continue
		}
		out = append(out, models.Tag{ID: t.ID, Color: t.Color, Name: tr.Name, Slug: tr.Slug})
	}
	slices.SortFunc(out, func(a, b models.Tag) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}
