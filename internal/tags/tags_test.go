package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, ByID(42), Parse("42"))
	assert.Equal(t, BySlug("nasa"), Parse("nasa"))
	assert.Equal(t, BySlug("42a"), Parse("42a"))
	assert.Equal(t, BySlug("apollo-11"), Parse("apollo-11"))
}

func TestResolve_MixedTokens(t *testing.T) {
	sel := Resolve([]string{"nasa", "7", "esa", "12"}, "en")

	assert.Equal(t, []int64{7, 12}, sel.IDs)
	assert.Equal(t, []string{"nasa", "esa"}, sel.Slugs)
	assert.Equal(t, "en", sel.Locale)
	assert.False(t, sel.Empty())
}

func TestResolve_EmptySelector(t *testing.T) {
	sel := Resolve(nil, "fr")

	assert.True(t, sel.Empty())
	assert.Equal(t, "fr", sel.Locale)
}

func TestSelector_Matches(t *testing.T) {
	sel := Resolve([]string{"nasa", "7"}, "en")

	assert.True(t, sel.Matches(7, ""), "id match needs no translation")
	assert.True(t, sel.Matches(3, "nasa"))
	assert.False(t, sel.Matches(3, "esa"))
	assert.False(t, sel.Matches(3, ""))
}

func TestSelector_UnknownSlugMatchesNothing(t *testing.T) {
	sel := Resolve([]string{"does-not-exist"}, "en")

	assert.False(t, sel.Empty())
	assert.False(t, sel.Matches(1, "nasa"))
}
