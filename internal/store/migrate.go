package store

import (
	"context"
	"database/sql"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS places(
  id BIGSERIAL PRIMARY KEY,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  is_featured BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  location geometry(Point, 4326) GENERATED ALWAYS AS (ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)) STORED
);

CREATE INDEX IF NOT EXISTS idx_places_location ON places USING GIST (location);
CREATE INDEX IF NOT EXISTS idx_places_location_geog ON places USING GIST ((location::geography));
CREATE INDEX IF NOT EXISTS idx_places_created ON places(created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS place_translations(
  place_id BIGINT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
  locale TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  title TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_place_translations ON place_translations(place_id, locale);

CREATE TABLE IF NOT EXISTS tags(
  id BIGSERIAL PRIMARY KEY,
  color TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS tag_translations(
  tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  locale TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  name TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_tag_translations ON tag_translations(tag_id, locale);
CREATE INDEX IF NOT EXISTS idx_tag_translations_slug ON tag_translations(locale, slug);

CREATE TABLE IF NOT EXISTS place_tag(
  place_id BIGINT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
  tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  PRIMARY KEY (place_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_place_tag_tag ON place_tag(tag_id);

CREATE TABLE IF NOT EXISTS photos(
  id BIGSERIAL PRIMARY KEY,
  place_id BIGINT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
  filename TEXT NOT NULL,
  is_main BOOLEAN NOT NULL DEFAULT FALSE
);

-- at most one main photo per place
CREATE UNIQUE INDEX IF NOT EXISTS uq_photos_main ON photos(place_id) WHERE is_main;
`

// RunMigrations creates the read schema if it does not exist yet.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
