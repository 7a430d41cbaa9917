package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a machine-readable validation failure code.
type Code string

// Validation codes, one per offending field.
const (
	CodeInvalidMode        Code = "invalid_mode"
	CodeInvalidRadius      Code = "invalid_radius"
	CodeInvalidCoordinates Code = "invalid_coordinates"
	CodeInvalidTags        Code = "invalid_tags"
	CodeInvalidBoundingBox Code = "invalid_bounding_box"
	CodeInvalidLocale      Code = "invalid_locale"
	CodeInvalidPageSize    Code = "invalid_page_size"
	CodeInvalidCursor      Code = "invalid_cursor"
)

// Field names used as ValidationError keys.
const (
	FieldMode        = "mode"
	FieldRadius      = "radiusMeters"
	FieldCoordinates = "coordinates"
	FieldTags        = "tags"
	FieldBoundingBox = "boundingBox"
	FieldLocale      = "locale"
	FieldPageSize    = "pageSize"
	FieldCursor      = "cursor"
)

// ErrValidation matches any *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports every rejected field of a filter.
type ValidationError struct {
	Fields map[string]Code `json:"fields"`
}

// Invalid builds a ValidationError for a single field.
func Invalid(field string, code Code) *ValidationError {
	return &ValidationError{Fields: map[string]Code{field: code}}
}

func (e *ValidationError) add(field string, code Code) {
	if e.Fields == nil {
		e.Fields = make(map[string]Code)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = code
	}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, c := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%s", f, c))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
