// Package filter validates raw exploration filters and canonicalizes them into a Spec.
package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/nitesh/place_explorer/internal/config"
	"github.com/nitesh/place_explorer/internal/geo"
)

// Mode selects the search strategy.
type Mode string

const (
	ModeProximity Mode = "proximity"
	ModeWorldwide Mode = "worldwide"
)

// Raw is the canonical, still unvalidated filter shape. Translating external
// key names (lat vs latitude) into Raw is the caller's job.
type Raw struct {
	Mode         string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters *float64
	Tags         []string
	BoundingBox  *geo.Box
	Locale       string
	Cursor       string
	PageSize     *int
}

// Spec is a validated filter. Treat it as immutable: Tags is never shared
// with the Raw it came from.
type Spec struct {
	Mode         Mode
	Center       *geo.Point
	RadiusMeters float64
	Tags         []string
	BoundingBox  *geo.Box
	Locale       string
	Cursor       string
	PageSize     int
}

var tokenPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Normalizer turns Raw filters into Specs under the configured engine limits.
type Normalizer struct {
	cfg     config.Engine
	matcher language.Matcher
	locales []string
}

// NewNormalizer builds a Normalizer. Locales that do not parse as BCP 47 tags
// are ignored.
func NewNormalizer(cfg config.Engine) *Normalizer {
	var tags []language.Tag
	var locales []string
	for _, l := range cfg.Locales {
		t, err := language.Parse(l)
		if err != nil {
			continue
		}
		tags = append(tags, t)
		locales = append(locales, l)
	}
	return &Normalizer{cfg: cfg, matcher: language.NewMatcher(tags), locales: locales}
}

// Normalize validates raw. All offending fields are reported together in a
// *ValidationError. No query is ever run here.
func (n *Normalizer) Normalize(raw Raw) (Spec, error) {
	var verr ValidationError
	spec := Spec{Cursor: strings.TrimSpace(raw.Cursor)}

	switch m := Mode(strings.ToLower(strings.TrimSpace(raw.Mode))); m {
	case "":
		spec.Mode = ModeProximity
	case ModeProximity, ModeWorldwide:
		spec.Mode = m
	default:
		verr.add(FieldMode, CodeInvalidMode)
	}

	spec.RadiusMeters = n.cfg.DefaultRadius
	if raw.RadiusMeters != nil {
		r := *raw.RadiusMeters
		if math.IsNaN(r) || r < n.cfg.RadiusMin || r > n.cfg.RadiusMax {
			verr.add(FieldRadius, CodeInvalidRadius)
		} else {
			spec.RadiusMeters = r
		}
	}

	switch {
	case raw.Latitude == nil && raw.Longitude == nil:
	case raw.Latitude == nil || raw.Longitude == nil:
		verr.add(FieldCoordinates, CodeInvalidCoordinates)
	default:
		p := geo.Point{Lat: *raw.Latitude, Lon: *raw.Longitude}
		if !n.inBounds(p) {
			verr.add(FieldCoordinates, CodeInvalidCoordinates)
		} else {
			spec.Center = &p
		}
	}

	tags, ok := n.normalizeTags(raw.Tags)
	if !ok {
		verr.add(FieldTags, CodeInvalidTags)
	}
	spec.Tags = tags

	if raw.BoundingBox != nil {
		b := *raw.BoundingBox
		if !n.validBox(b) {
			verr.add(FieldBoundingBox, CodeInvalidBoundingBox)
		} else {
			spec.BoundingBox = &b
		}
	}

	locale, ok := n.matchLocale(raw.Locale)
	if !ok {
		verr.add(FieldLocale, CodeInvalidLocale)
	}
	spec.Locale = locale

	spec.PageSize = n.cfg.DefaultPageSize
	if raw.PageSize != nil {
		if *raw.PageSize < 1 || *raw.PageSize > n.cfg.MaxPageSize {
			verr.add(FieldPageSize, CodeInvalidPageSize)
		} else {
			spec.PageSize = *raw.PageSize
		}
	}

	if len(verr.Fields) > 0 {
		return Spec{}, &verr
	}
	return spec, nil
}

func (n *Normalizer) inBounds(p geo.Point) bool {
	return p.Lat >= n.cfg.LatMin && p.Lat <= n.cfg.LatMax &&
		p.Lon >= n.cfg.LonMin && p.Lon <= n.cfg.LonMax
}

func (n *Normalizer) validBox(b geo.Box) bool {
	if !n.inBounds(geo.Point{Lat: b.North, Lon: b.East}) || !n.inBounds(geo.Point{Lat: b.South, Lon: b.West}) {
		return false
	}
	return b.South <= b.North && b.West <= b.East
}

// normalizeTags trims, lowercases, drops empty tokens and removes duplicates,
// keeping first-seen order. Numeric tokens are canonicalized so "007" and "7"
// collapse.
func (n *Normalizer) normalizeTags(in []string) ([]string, bool) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !tokenPattern.MatchString(t) {
			return nil, false
		}
		if id, err := strconv.ParseInt(t, 10, 64); err == nil {
			if id <= 0 {
				return nil, false
			}
			t = strconv.FormatInt(id, 10)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > n.cfg.MaxTags {
		return nil, false
	}
	return out, true
}

// MatchAcceptLanguage returns the best supported locale for an
// Accept-Language header, or "" when nothing matches. An empty result lets
// Normalize fall back to the default locale.
func (n *Normalizer) MatchAcceptLanguage(header string) string {
	if strings.TrimSpace(header) == "" || len(n.locales) == 0 {
		return ""
	}
	accepted, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(accepted) == 0 {
		return ""
	}
	_, idx, conf := n.matcher.Match(accepted...)
	if conf == language.No {
		return ""
	}
	return n.locales[idx]
}

func (n *Normalizer) matchLocale(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return n.cfg.DefaultLocale, true
	}
	t, err := language.Parse(raw)
	if err != nil || len(n.locales) == 0 {
		return "", false
	}
	_, idx, conf := n.matcher.Match(t)
	if conf == language.No {
		return "", false
	}
	return n.locales[idx], true
}
