// Package cursor implements keyset pagination over a plan's ordering.
//
// A cursor is the opaque, URL-safe encoding of the last row returned: the
// ordering kind and filter fingerprint of its plan, its sort key (distance
// or creation time) and its id. Any process can resume from it; nothing is
// kept server side.
package cursor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/plan"
	"github.com/nitesh/place_explorer/pkg/models"
)

// Key identifies the last row of a page under the plan ordering.
type Key struct {
	ID        int64
	Distance  float64
	CreatedAt time.Time
}

// After reports whether a row sorting at (id, distance, createdAt) comes
// strictly after k under order.
func (k Key) After(order plan.Order, id int64, distance float64, createdAt time.Time) bool {
	switch order {
	case plan.OrderNearest:
		if distance != k.Distance {
			return distance > k.Distance
		}
		return id > k.ID
	default:
		if !createdAt.Equal(k.CreatedAt) {
			return createdAt.Before(k.CreatedAt)
		}
		return id < k.ID
	}
}

type wire struct {
	Order string   `json:"o"`
	Plan  string   `json:"p"`
	ID    int64    `json:"id"`
	Dist  *float64 `json:"d,omitempty"`
	At    *int64   `json:"t,omitempty"`
}

// Encode renders k as an opaque cursor bound to p.
func Encode(p plan.Plan, k Key) string {
	w := wire{Order: p.Order.String(), Plan: p.Fingerprint(), ID: k.ID}
	switch p.Order {
	case plan.OrderNearest:
		d := k.Distance
		w.Dist = &d
	default:
		at := k.CreatedAt.UnixMicro()
		w.At = &at
	}
	b, _ := json.Marshal(w)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a cursor produced by Encode for the same plan. An empty
// string yields a nil key. Anything else that does not decode, or that was
// issued under another ordering or filter, is an invalid_cursor validation
// error.
func Decode(s string, p plan.Plan) (*Key, error) {
	if s == "" {
		return nil, nil
	}
	invalid := filter.Invalid(filter.FieldCursor, filter.CodeInvalidCursor)
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil || w.Order != p.Order.String() || w.Plan != p.Fingerprint() || w.ID <= 0 {
		return nil, invalid
	}
	k := &Key{ID: w.ID}
	switch p.Order {
	case plan.OrderNearest:
		if w.Dist == nil || *w.Dist < 0 || math.IsNaN(*w.Dist) || math.IsInf(*w.Dist, 0) {
			return nil, invalid
		}
		k.Distance = *w.Dist
	default:
		if w.At == nil {
			return nil, invalid
		}
		k.CreatedAt = time.UnixMicro(*w.At).UTC()
	}
	return k, nil
}

// KeyOf extracts the cursor key of a projected row.
func KeyOf(d models.DetailProjection) Key {
	k := Key{ID: d.ID, CreatedAt: d.CreatedAt}
	if d.Distance != nil {
		k.Distance = *d.Distance
	}
	return k
}

// Fetcher loads up to limit detail rows of p strictly after the given key
// (from the start when after is nil), in plan order.
type Fetcher interface {
	Details(ctx context.Context, p plan.Plan, after *Key, limit int) ([]models.DetailProjection, error)
}

// Paginate returns one page of p resuming after raw. It asks for one row more
// than pageSize to learn whether another page exists.
func Paginate(ctx context.Context, f Fetcher, p plan.Plan, raw string, pageSize int) (models.SearchResultPage, error) {
	if p.Empty {
		return models.EmptyPage(), nil
	}
	after, err := Decode(raw, p)
	if err != nil {
		return models.SearchResultPage{}, err
	}
	rows, err := f.Details(ctx, p, after, pageSize+1)
	if err != nil {
		return models.SearchResultPage{}, err
	}

	page := models.SearchResultPage{Items: rows}
	if len(rows) > pageSize {
		page.Items = rows[:pageSize]
		page.HasMore = true
		page.NextCursor = Encode(p, KeyOf(page.Items[pageSize-1]))
	}
	if page.Items == nil {
		page.Items = []models.DetailProjection{}
	}
	return page, nil
}
