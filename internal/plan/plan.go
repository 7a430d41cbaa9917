// Package plan composes the storage-agnostic query plan for an exploration
// request: the mode predicate, the tag selector, the optional viewport clip
// and the ordering.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/internal/tags"
)

// Order is the deterministic row ordering of a plan.
type Order int

const (
	// OrderNearest sorts by distance ascending, then id ascending.
	OrderNearest Order = iota + 1
	// OrderNewest sorts by creation time descending, then id descending.
	OrderNewest
)

func (o Order) String() string {
	switch o {
	case OrderNearest:
		return "nearest"
	case OrderNewest:
		return "newest"
	default:
		return "unknown"
	}
}

// Reasons a plan short-circuits without touching storage.
const (
	ReasonMissingCenter = "missing_center"
	ReasonMissingTags   = "missing_tags"
)

// Plan is a composed query. When Empty is set no query may run and the
// caller returns a typed empty result.
type Plan struct {
	Empty       bool
	EmptyReason string

	Order        Order
	Center       *geo.Point
	RadiusMeters float64
	Tags         tags.Selector
	Box          *geo.Box
	Locale       string
}

// Build plans a normalized filter: mode predicate, tag selector and, when
// present, the viewport clip.
func Build(spec filter.Spec) Plan {
	sel := tags.Resolve(spec.Tags, spec.Locale)

	var p Plan
	switch spec.Mode {
	case filter.ModeWorldwide:
		if sel.Empty() {
			return empty(ReasonMissingTags, spec.Locale)
		}
		p = Plan{Order: OrderNewest, Tags: sel, Locale: spec.Locale}
	default:
		if spec.Center == nil {
			return empty(ReasonMissingCenter, spec.Locale)
		}
		center := *spec.Center
		p = Plan{
			Order:        OrderNearest,
			Center:       &center,
			RadiusMeters: spec.RadiusMeters,
			Tags:         sel,
			Locale:       spec.Locale,
		}
	}
	return Clip(p, spec.BoundingBox)
}

// Clip ANDs a viewport containment predicate onto p. A nil box or an empty
// plan passes through unchanged.
func Clip(p Plan, box *geo.Box) Plan {
	if box == nil || p.Empty {
		return p
	}
	b := *box
	p.Box = &b
	return p
}

func empty(reason, locale string) Plan {
	return Plan{Empty: true, EmptyReason: reason, Locale: locale}
}

// Proximity reports whether p filters and orders by distance.
func (p Plan) Proximity() bool {
	return p.Order == OrderNearest && p.Center != nil
}

// Admits evaluates the spatial part of p against a place position and returns
// the distance to the center (zero outside proximity mode). Storage engines
// translate the same predicate into their own primitives.
func (p Plan) Admits(at geo.Point) (float64, bool) {
	if p.Empty {
		return 0, false
	}
	if p.Box != nil && !p.Box.Contains(at) {
		return 0, false
	}
	if !p.Proximity() {
		return 0, true
	}
	d := geo.Distance(*p.Center, at)
	return d, d <= p.RadiusMeters
}

type fingerprintShape struct {
	Order  Order      `json:"o"`
	Center *geo.Point `json:"c,omitempty"`
	Radius float64    `json:"r,omitempty"`
	IDs    []int64    `json:"i,omitempty"`
	Slugs  []string   `json:"s,omitempty"`
	Box    *geo.Box   `json:"b,omitempty"`
	Locale string     `json:"l"`
}

// Fingerprint is a short digest of everything that decides which rows p
// returns and in what order. Tag order does not count.
func (p Plan) Fingerprint() string {
	shape := fingerprintShape{
		Order:  p.Order,
		Center: p.Center,
		IDs:    slices.Sorted(slices.Values(p.Tags.IDs)),
		Slugs:  slices.Sorted(slices.Values(p.Tags.Slugs)),
		Box:    p.Box,
		Locale: p.Locale,
	}
	if p.Proximity() {
		shape.Radius = p.RadiusMeters
	}
	b, _ := json.Marshal(shape)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
