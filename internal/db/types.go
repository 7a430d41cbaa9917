package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONList is a []T that implements sql.Scanner and driver.Valuer so it works
// transparently with json/jsonb columns and json_agg results.
type JSONList[T any] []T

// Scan implements sql.Scanner. NULL scans to an empty list.
func (l *JSONList[T]) Scan(src interface{}) error {
	if l == nil {
		return fmt.Errorf("dbtypes: Scan on nil *JSONList")
	}
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("dbtypes: cannot scan type %T into JSONList", src)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if out == nil {
		out = []T{}
	}
	*l = out
	return nil
}

// Value implements driver.Valuer. A nil list is stored as [].
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
