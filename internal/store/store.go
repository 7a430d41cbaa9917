package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nitesh/place_explorer/internal/cursor"
	dbtypes "github.com/nitesh/place_explorer/internal/db"
	"github.com/nitesh/place_explorer/internal/logger"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/pkg/models"
)

// PgStore executes plans against Postgres with PostGIS.
type PgStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPgStore(db *sql.DB, l *slog.Logger) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres"), logger: logger.OrDefault(l)}
}

// Ping checks the connection.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Coordinates returns at most limit map positions matching pl, in plan order.
func (p *PgStore) Coordinates(ctx context.Context, pl plan.Plan, limit int) ([]models.CoordinateProjection, error) {
	if pl.Empty || limit <= 0 {
		return []models.CoordinateProjection{}, nil
	}
	query, args, err := coordinatesQuery(pl, limit)
	if err != nil {
		return nil, err
	}
	rows := []models.CoordinateProjection{}
	if err := p.selectTimed(ctx, "coordinates", &rows, query, args); err != nil {
		return nil, fmt.Errorf("query coordinates: %w", err)
	}
	return rows, nil
}

type detailRow struct {
	ID            int64           `db:"id"`
	Latitude      float64         `db:"latitude"`
	Longitude     float64         `db:"longitude"`
	Address       string          `db:"address"`
	IsFeatured    bool            `db:"is_featured"`
	CreatedAt     time.Time       `db:"created_at"`
	Distance      sql.NullFloat64 `db:"distance"`
	Title         string          `db:"title"`
	Slug          string          `db:"slug"`
	Description   string          `db:"description"`
	PhotoID       sql.NullInt64   `db:"photo_id"`
	PhotoFilename sql.NullString  `db:"photo_filename"`
}

type placeTagsRow struct {
	PlaceID int64                        `db:"place_id"`
	Tags    dbtypes.JSONList[models.Tag] `db:"tags"`
}

// Details returns up to limit fully projected places of pl strictly after
// the given cursor key. Tags are loaded in a second query for the page only;
// with a non-empty selector only the selected tags are loaded.
func (p *PgStore) Details(ctx context.Context, pl plan.Plan, after *cursor.Key, limit int) ([]models.DetailProjection, error) {
	if pl.Empty || limit <= 0 {
		return []models.DetailProjection{}, nil
	}
	query, args, err := detailsQuery(pl, after, limit)
	if err != nil {
		return nil, err
	}
	var rows []detailRow
	if err := p.selectTimed(ctx, "details", &rows, query, args); err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	if len(rows) == 0 {
		return []models.DetailProjection{}, nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	query, args, err = placeTagsQuery(ids, pl.Tags)
	if err != nil {
		return nil, err
	}
	var tagRows []placeTagsRow
	if err := p.selectTimed(ctx, "place_tags", &tagRows, query, args); err != nil {
		return nil, fmt.Errorf("query place tags: %w", err)
	}
	byPlace := make(map[int64][]models.Tag, len(tagRows))
	for _, tr := range tagRows {
		byPlace[tr.PlaceID] = tr.Tags
	}

	out := make([]models.DetailProjection, len(rows))
	for i, r := range rows {
		d := models.DetailProjection{
			ID:         r.ID,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Address:    r.Address,
			IsFeatured: r.IsFeatured,
			CreatedAt:  r.CreatedAt,
			Translation: models.Translation{
				Locale:      pl.Locale,
				Title:       r.Title,
				Slug:        r.Slug,
				Description: r.Description,
			},
			Tags: byPlace[r.ID],
		}
		if d.Tags == nil {
			d.Tags = []models.Tag{}
		}
		if r.Distance.Valid {
			dist := r.Distance.Float64
			d.Distance = &dist
		}
		if r.PhotoID.Valid {
			d.MainPhoto = &models.Photo{ID: r.PhotoID.Int64, Filename: r.PhotoFilename.String}
		}
		out[i] = d
	}
	return out, nil
}

// ActiveTags lists active tags with a published translation in locale,
// ordered by name.
func (p *PgStore) ActiveTags(ctx context.Context, locale string) ([]models.Tag, error) {
	query, args, err := activeTagsQuery(locale)
	if err != nil {
		return nil, err
	}
	rows := []models.Tag{}
	if err := p.selectTimed(ctx, "active_tags", &rows, query, args); err != nil {
		return nil, fmt.Errorf("query active tags: %w", err)
	}
	return rows, nil
}

func (p *PgStore) selectTimed(ctx context.Context, name string, dest any, query string, args []any) error {
	start := time.Now()
	err := p.db.SelectContext(ctx, dest, query, args...)
	p.logger.Debug("sql_select", "query_name", name, "sql", query, "duration_ms", time.Since(start).Milliseconds(), "err", err)
	return err
}
