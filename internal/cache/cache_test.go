package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/pkg/models"
)

type countingLoader struct {
	calls int
	rows  []models.CoordinateProjection
	err   error
}

func (l *countingLoader) load(context.Context) ([]models.CoordinateProjection, error) {
	l.calls++
	return l.rows, l.err
}

func someRows() []models.CoordinateProjection {
	return []models.CoordinateProjection{
		{ID: 1, Latitude: 48.85, Longitude: 2.35, IsFeatured: true},
		{ID: 2, Latitude: 45.76, Longitude: 4.83},
	}
}

func TestGate_SecondCallWithinTTLIsAHit(t *testing.T) {
	g := NewGate(NewMemory(), 5*time.Minute, nil)
	l := &countingLoader{rows: someRows()}
	ctx := context.Background()

	first, hit1, err := g.Coordinates(ctx, "k", l.load)
	require.NoError(t, err)
	second, hit2, err := g.Coordinates(ctx, "k", l.load)
	require.NoError(t, err)

	assert.Equal(t, 1, l.calls)
	assert.False(t, hit1)
	assert.True(t, hit2)
	assert.Equal(t, first, second)
}

func TestGate_ExpiredEntryIsReloaded(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := NewMemory().WithClock(func() time.Time { return now })
	g := NewGate(store, 300*time.Second, nil)
	l := &countingLoader{rows: someRows()}
	ctx := context.Background()

	_, _, err := g.Coordinates(ctx, "k", l.load)
	require.NoError(t, err)
	now = now.Add(301 * time.Second)
	_, hit, err := g.Coordinates(ctx, "k", l.load)
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, 2, l.calls)
}

func TestGate_FailedLoadIsNotCached(t *testing.T) {
	store := NewMemory()
	g := NewGate(store, time.Minute, nil)
	boom := errors.New("db down")
	l := &countingLoader{err: boom}

	_, _, err := g.Coordinates(context.Background(), "k", l.load)

	assert.ErrorIs(t, err, boom)
	_, sets := store.Counts()
	assert.Zero(t, sets)
}

func TestGate_CancelledContextIsNotCached(t *testing.T) {
	store := NewMemory()
	g := NewGate(store, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	l := &countingLoader{rows: someRows()}
	load := func(ctx context.Context) ([]models.CoordinateProjection, error) {
		cancel()
		return l.load(ctx)
	}

	out, _, err := g.Coordinates(ctx, "k", load)

	require.NoError(t, err)
	assert.Len(t, out, 2)
	_, sets := store.Counts()
	assert.Zero(t, sets)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestGate_StoreFailuresFallThrough(t *testing.T) {
	g := NewGate(brokenStore{}, time.Minute, nil)
	l := &countingLoader{rows: someRows()}

	out, hit, err := g.Coordinates(context.Background(), "k", l.load)

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, someRows(), out)
}

func TestGate_CorruptEntryIsReloaded(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Set(context.Background(), "k", []byte("{not json"), time.Minute))
	g := NewGate(store, time.Minute, nil)
	l := &countingLoader{rows: someRows()}

	out, hit, err := g.Coordinates(context.Background(), "k", l.load)

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, l.calls)
	assert.Len(t, out, 2)
}

func TestGate_NilStoreNeverCaches(t *testing.T) {
	g := NewGate(nil, time.Minute, nil)
	l := &countingLoader{rows: someRows()}

	_, _, _ = g.Coordinates(context.Background(), "k", l.load)
	_, _, _ = g.Coordinates(context.Background(), "k", l.load)

	assert.Equal(t, 2, l.calls)
}

func TestKey_StableAcrossTagOrderAndPagination(t *testing.T) {
	center := geo.Point{Lat: 48.8566, Lon: 2.3522}
	a := filter.Spec{Mode: filter.ModeProximity, Center: &center, RadiusMeters: 200_000, Tags: []string{"nasa", "7"}, Locale: "fr", PageSize: 20}
	b := a
	b.Tags = []string{"7", "nasa"}
	b.Cursor = "abc"
	b.PageSize = 50

	assert.Equal(t, Key(a), Key(b))
	assert.Equal(t, []string{"nasa", "7"}, a.Tags, "key derivation must not reorder the filter tags")
}

func TestKey_DistinguishesFilters(t *testing.T) {
	center := geo.Point{Lat: 48.8566, Lon: 2.3522}
	base := filter.Spec{Mode: filter.ModeProximity, Center: &center, RadiusMeters: 200_000, Locale: "fr"}

	radius := base
	radius.RadiusMeters = 100_000
	locale := base
	locale.Locale = "en"
	boxed := base
	boxed.BoundingBox = &geo.Box{North: 50, South: 40, East: 10, West: -10}

	keys := map[string]bool{Key(base): true, Key(radius): true, Key(locale): true, Key(boxed): true}
	assert.Len(t, keys, 4)
}

func TestKey_WorldwideIgnoresCenterAndRadius(t *testing.T) {
	center := geo.Point{Lat: 1, Lon: 1}
	a := filter.Spec{Mode: filter.ModeWorldwide, Tags: []string{"nasa"}, Locale: "fr", RadiusMeters: 200_000}
	b := a
	b.Center = &center
	b.RadiusMeters = 5_000

	assert.Equal(t, Key(a), Key(b))
}
