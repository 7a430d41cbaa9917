package store

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/nitesh/place_explorer/internal/cursor"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/internal/tags"
)

const (
	dialectPostgres = "postgres"
	statusPublished = "published"

	tablePlaces           = "places"
	tableTranslations     = "place_translations"
	tablePlaceTag         = "place_tag"
	tableTags             = "tags"
	tableTagTranslations  = "tag_translations"
	tablePhotos           = "photos"
	aliasCandidates       = "c"
	colDistance           = "distance"
	colID                 = "id"
	colCreatedAt          = "created_at"
	sqlCenterPoint        = "ST_SetSRID(ST_MakePoint(?, ?), 4326)"
	sqlWithinRadius       = "ST_DWithin(p.location::geography, " + sqlCenterPoint + "::geography, ?, false)"
	sqlDistance           = "ST_DistanceSphere(p.location, " + sqlCenterPoint + ")"
	sqlInsideEnvelope     = "p.location && ST_MakeEnvelope(?, ?, ?, ?, 4326)"
	sqlNoDistance         = "NULL::double precision"
	sqlAggregatePlaceTags = "json_agg(json_build_object('id', t.id, 'color', t.color, 'name', COALESCE(tt.name, ''), 'slug', COALESCE(tt.slug, '')) ORDER BY t.id)"
)

// ErrBuildingQueryFailed wraps goqu rendering failures.
var ErrBuildingQueryFailed = errors.New("building query failed")

var dialect = goqu.Dialect(dialectPostgres)

func toSQL(ds *goqu.SelectDataset) (string, []any, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, errors.Join(ErrBuildingQueryFailed, err)
	}
	return query, args, nil
}

func distanceExpr(pl plan.Plan) exp.LiteralExpression {
	return goqu.L(sqlDistance, pl.Center.Lon, pl.Center.Lat)
}

// candidates selects places of pl that have a published translation in the
// plan locale, with every spatial and tag predicate applied.
func candidates(pl plan.Plan) *goqu.SelectDataset {
	ds := dialect.From(goqu.T(tablePlaces).As("p")).
		InnerJoin(goqu.T(tableTranslations).As("tr"), goqu.On(
			goqu.I("tr.place_id").Eq(goqu.I("p.id")),
			goqu.I("tr.locale").Eq(pl.Locale),
			goqu.I("tr.status").Eq(statusPublished),
		))

	where := make([]exp.Expression, 0, 4)
	if pl.Proximity() {
		c := pl.Center
		where = append(where,
			goqu.L(sqlWithinRadius, c.Lon, c.Lat, pl.RadiusMeters),
			distanceExpr(pl).Lte(pl.RadiusMeters),
		)
	}
	if pl.Box != nil {
		b := pl.Box
		where = append(where, goqu.L(sqlInsideEnvelope, b.West, b.South, b.East, b.North))
	}
	if !pl.Tags.Empty() {
		where = append(where, tagExists(pl.Tags))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds
}

// tagExists is "the place has an active tag matching sel". EXISTS keeps a
// place that matches several tokens from appearing more than once.
func tagExists(sel tags.Selector) exp.Expression {
	sub := tagJoin(dialect.From(goqu.T(tablePlaceTag).As("pt")), sel.Locale).
		Select(goqu.L("1")).
		Where(goqu.I("pt.place_id").Eq(goqu.I("p.id")), selectorMatch(sel))
	return goqu.L("EXISTS ?", sub)
}

func tagJoin(ds *goqu.SelectDataset, locale string) *goqu.SelectDataset {
	return ds.
		InnerJoin(goqu.T(tableTags).As("t"), goqu.On(
			goqu.I("t.id").Eq(goqu.I("pt.tag_id")),
			goqu.I("t.is_active").IsTrue(),
		)).
		LeftJoin(goqu.T(tableTagTranslations).As("tt"), goqu.On(
			goqu.I("tt.tag_id").Eq(goqu.I("t.id")),
			goqu.I("tt.locale").Eq(locale),
			goqu.I("tt.status").Eq(statusPublished),
		))
}

func selectorMatch(sel tags.Selector) exp.Expression {
	or := make([]exp.Expression, 0, 2)
	if len(sel.IDs) > 0 {
		or = append(or, goqu.L("t.id = ANY(?)", pq.Array(sel.IDs)))
	}
	if len(sel.Slugs) > 0 {
		or = append(or, goqu.L("tt.slug = ANY(?)", pq.Array(sel.Slugs)))
	}
	return goqu.Or(or...)
}

func coordinatesQuery(pl plan.Plan, limit int) (string, []any, error) {
	ds := candidates(pl).
		Select("p.id", "p.latitude", "p.longitude", "p.is_featured").
		Limit(uint(limit))
	if pl.Proximity() {
		ds = ds.Order(distanceExpr(pl).Asc(), goqu.I("p.id").Asc())
	} else {
		ds = ds.Order(goqu.I("p.created_at").Desc(), goqu.I("p.id").Desc())
	}
	return toSQL(ds)
}

// detailsQuery wraps the candidate select in a subquery so the computed
// distance can be used by name in the keyset predicate and ORDER BY.
func detailsQuery(pl plan.Plan, after *cursor.Key, limit int) (string, []any, error) {
	var dist any = goqu.L(sqlNoDistance).As(colDistance)
	if pl.Proximity() {
		dist = distanceExpr(pl).As(colDistance)
	}
	inner := candidates(pl).
		LeftJoin(goqu.T(tablePhotos).As("ph"), goqu.On(
			goqu.I("ph.place_id").Eq(goqu.I("p.id")),
			goqu.I("ph.is_main").IsTrue(),
		)).
		Select(
			"p.id", "p.latitude", "p.longitude", "p.address", "p.is_featured", "p.created_at",
			dist,
			"tr.title", "tr.slug", "tr.description",
			goqu.I("ph.id").As("photo_id"),
			goqu.I("ph.filename").As("photo_filename"),
		)

	ds := dialect.From(inner.As(aliasCandidates)).Limit(uint(limit))
	switch pl.Order {
	case plan.OrderNearest:
		if after != nil {
			ds = ds.Where(goqu.Or(
				goqu.C(colDistance).Gt(after.Distance),
				goqu.And(goqu.C(colDistance).Eq(after.Distance), goqu.C(colID).Gt(after.ID)),
			))
		}
		ds = ds.Order(goqu.C(colDistance).Asc(), goqu.C(colID).Asc())
	case plan.OrderNewest:
		if after != nil {
			ds = ds.Where(goqu.Or(
				goqu.C(colCreatedAt).Lt(after.CreatedAt),
				goqu.And(goqu.C(colCreatedAt).Eq(after.CreatedAt), goqu.C(colID).Lt(after.ID)),
			))
		}
		ds = ds.Order(goqu.C(colCreatedAt).Desc(), goqu.C(colID).Desc())
	default:
		return "", nil, fmt.Errorf("%w: unknown order %s", ErrBuildingQueryFailed, pl.Order)
	}
	return toSQL(ds)
}

// placeTagsQuery aggregates the tags of a page of places, one row per place.
// With a non-empty selector only the selected tags are loaded.
func placeTagsQuery(placeIDs []int64, sel tags.Selector) (string, []any, error) {
	where := []exp.Expression{goqu.L("pt.place_id = ANY(?)", pq.Array(placeIDs))}
	if !sel.Empty() {
		where = append(where, selectorMatch(sel))
	}
	ds := tagJoin(dialect.From(goqu.T(tablePlaceTag).As("pt")), sel.Locale).
		Select("pt.place_id", goqu.L(sqlAggregatePlaceTags).As("tags")).
		Where(where...).
		GroupBy("pt.place_id")
	return toSQL(ds)
}

func activeTagsQuery(locale string) (string, []any, error) {
	ds := dialect.From(goqu.T(tableTags).As("t")).
		InnerJoin(goqu.T(tableTagTranslations).As("tt"), goqu.On(
			goqu.I("tt.tag_id").Eq(goqu.I("t.id")),
			goqu.I("tt.locale").Eq(locale),
			goqu.I("tt.status").Eq(statusPublished),
		)).
		Select("t.id", "t.color", "tt.name", "tt.slug").
		Where(goqu.I("t.is_active").IsTrue()).
		Order(goqu.I("tt.name").Asc(), goqu.I("t.id").Asc())
	return toSQL(ds)
}
