package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tag struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

func TestJSONList_ScanBytesAndString(t *testing.T) {
	var l JSONList[tag]

	require.NoError(t, l.Scan([]byte(`[{"id":1,"slug":"nasa"}]`)))
	assert.Equal(t, JSONList[tag]{{ID: 1, Slug: "nasa"}}, l)

	require.NoError(t, l.Scan(`[{"id":2,"slug":"esa"},{"id":3,"slug":"jaxa"}]`))
	assert.Len(t, l, 2)
}

func TestJSONList_ScanNullIsEmpty(t *testing.T) {
	l := JSONList[tag]{{ID: 9}}

	require.NoError(t, l.Scan(nil))

	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestJSONList_ScanRejectsOtherTypes(t *testing.T) {
	var l JSONList[tag]
	assert.Error(t, l.Scan(42))
}

func TestJSONList_ValueOfNil(t *testing.T) {
	var l JSONList[tag]

	v, err := l.Value()

	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
