// Package tags resolves tag tokens (numeric ids or slugs) into a selector
// predicate over a place's tags.
package tags

import (
	"strconv"
)

// Token is a single tag reference: ByID or BySlug.
type Token interface {
	isToken()
}

// ByID references a tag by primary key.
type ByID int64

// BySlug references a tag by its translated slug in the request locale.
type BySlug string

func (ByID) isToken()   {}
func (BySlug) isToken() {}

// Parse classifies a raw token: anything that parses as an integer is an id,
// everything else is a slug.
func Parse(raw string) Token {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ByID(id)
	}
	return BySlug(raw)
}

// Selector is the predicate "place has an active tag whose id is in IDs, or
// whose slug in Locale is in Slugs". An empty selector adds no constraint.
type Selector struct {
	IDs    []int64
	Slugs  []string
	Locale string
}

// Resolve builds a Selector from normalized tokens. Unknown slugs are kept:
// they simply match nothing.
func Resolve(tokens []string, locale string) Selector {
	sel := Selector{Locale: locale}
	for _, raw := range tokens {
		switch t := Parse(raw).(type) {
		case ByID:
			sel.IDs = append(sel.IDs, int64(t))
		case BySlug:
			sel.Slugs = append(sel.Slugs, string(t))
		}
	}
	return sel
}

// Empty reports whether the selector constrains nothing.
func (s Selector) Empty() bool {
	return len(s.IDs) == 0 && len(s.Slugs) == 0
}

// Matches evaluates the selector against one tag. slug is the tag's
// published slug in the selector locale, or "" if it has none.
func (s Selector) Matches(id int64, slug string) bool {
	for _, want := range s.IDs {
		if want == id {
			return true
		}
	}
	if slug == "" {
		return false
	}
	for _, want := range s.Slugs {
		if want == slug {
			return true
		}
	}
	return false
}
