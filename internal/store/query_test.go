package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/place_explorer/internal/cursor"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/internal/tags"
)

func proximityPlan() plan.Plan {
	return plan.Plan{
		Order:        plan.OrderNearest,
		Center:       &geo.Point{Lat: 48.8566, Lon: 2.3522},
		RadiusMeters: 200_000,
		Locale:       "fr",
	}
}

func worldwidePlan() plan.Plan {
	return plan.Plan{
		Order:  plan.OrderNewest,
		Tags:   tags.Resolve([]string{"7", "nasa"}, "en"),
		Locale: "en",
	}
}

func TestCoordinatesQuery_Proximity(t *testing.T) {
	query, args, err := coordinatesQuery(proximityPlan(), 5000)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "places" AS "p" INNER JOIN "place_translations" AS "tr"`)
	assert.Contains(t, query, "ST_DWithin(p.location::geography, ST_SetSRID(ST_MakePoint($")
	assert.Contains(t, query, "ORDER BY ST_DistanceSphere(p.location")
	assert.Contains(t, query, `"p"."id" ASC`)
	assert.NotContains(t, query, "EXISTS")
	assert.NotContains(t, query, "ST_MakeEnvelope")

	assert.Contains(t, args, 2.3522)
	assert.Contains(t, args, 48.8566)
	assert.Contains(t, args, 200_000.0)
	assert.Contains(t, args, "published")
	assert.Contains(t, args, "fr")
}

func TestCoordinatesQuery_WorldwideByTags(t *testing.T) {
	query, args, err := coordinatesQuery(worldwidePlan(), 10)
	require.NoError(t, err)

	assert.NotContains(t, query, "ST_DWithin")
	assert.NotContains(t, query, "ST_DistanceSphere")
	assert.Contains(t, query, `EXISTS (SELECT 1 FROM "place_tag" AS "pt"`)
	assert.Contains(t, query, "t.id = ANY($")
	assert.Contains(t, query, "tt.slug = ANY($")
	assert.Contains(t, query, `ORDER BY "p"."created_at" DESC, "p"."id" DESC`)

	assert.Contains(t, args, "{7}")
	assert.Contains(t, args, `{"nasa"}`)
}

func TestCoordinatesQuery_BoundingBox(t *testing.T) {
	p := proximityPlan()
	p = plan.Clip(p, &geo.Box{North: 49, South: 48, East: 3, West: 2})

	query, args, err := coordinatesQuery(p, 10)
	require.NoError(t, err)

	assert.Contains(t, query, "p.location && ST_MakeEnvelope($")
	assert.Contains(t, query, "ST_DWithin")
	assert.Contains(t, args, 49.0)
	assert.Contains(t, args, 48.0)
	assert.Contains(t, args, 3.0)
	assert.Contains(t, args, 2.0)
}

func TestCoordinatesQuery_OnlyIDTokens(t *testing.T) {
	p := worldwidePlan()
	p.Tags = tags.Resolve([]string{"3"}, "en")

	query, _, err := coordinatesQuery(p, 10)
	require.NoError(t, err)
	assert.Contains(t, query, "t.id = ANY($")
	assert.NotContains(t, query, "tt.slug = ANY(")
}

func TestDetailsQuery_NearestKeyset(t *testing.T) {
	after := &cursor.Key{ID: 42, Distance: 1234.5}

	query, args, err := detailsQuery(proximityPlan(), after, 21)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM (SELECT "p"."id"`)
	assert.Contains(t, query, `AS "distance"`)
	assert.Contains(t, query, `LEFT JOIN "photos" AS "ph"`)
	assert.Contains(t, query, `AS "c"`)
	assert.Contains(t, query, `("distance" > $`)
	assert.Contains(t, query, `("id" > $`)
	assert.Contains(t, query, `ORDER BY "distance" ASC, "id" ASC`)
	assert.Contains(t, args, 1234.5)
	assert.Contains(t, args, int64(42))
}

func TestDetailsQuery_NewestKeyset(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	after := &cursor.Key{ID: 9, CreatedAt: at}

	query, args, err := detailsQuery(worldwidePlan(), after, 21)
	require.NoError(t, err)

	assert.Contains(t, query, "NULL::double precision")
	assert.Contains(t, query, `("created_at" < $`)
	assert.Contains(t, query, `("id" < $`)
	assert.Contains(t, query, `ORDER BY "created_at" DESC, "id" DESC`)
	assert.Contains(t, args, at)
	assert.Contains(t, args, int64(9))
}

func TestDetailsQuery_FirstPageHasNoKeyset(t *testing.T) {
	query, _, err := detailsQuery(proximityPlan(), nil, 21)
	require.NoError(t, err)
	assert.NotContains(t, query, `"distance" >`)
}

func TestDetailsQuery_UnknownOrder(t *testing.T) {
	p := proximityPlan()
	p.Order = 0
	_, _, err := detailsQuery(p, nil, 1)
	require.ErrorIs(t, err, ErrBuildingQueryFailed)
}

func TestPlaceTagsQuery(t *testing.T) {
	query, args, err := placeTagsQuery([]int64{1, 2}, tags.Selector{Locale: "fr"})
	require.NoError(t, err)
	assert.Contains(t, query, "json_agg(json_build_object(")
	assert.Contains(t, query, `GROUP BY "pt"."place_id"`)
	assert.Contains(t, query, `("t"."is_active" IS TRUE)`)
	assert.NotContains(t, query, "tt.slug = ANY(")
	assert.Contains(t, args, "{1,2}")

	query, _, err = placeTagsQuery([]int64{1}, tags.Resolve([]string{"nasa"}, "fr"))
	require.NoError(t, err)
	assert.Contains(t, query, "tt.slug = ANY($")
}

func TestActiveTagsQuery(t *testing.T) {
	query, args, err := activeTagsQuery("en")
	require.NoError(t, err)
	assert.Contains(t, query, `INNER JOIN "tag_translations" AS "tt"`)
	assert.Contains(t, query, `ORDER BY "tt"."name" ASC, "t"."id" ASC`)
	assert.Contains(t, args, "en")
}
