package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndLookup(t *testing.T) {
	c := New()
	c.Register(CategoryCrop, "crop-wheat", "crop-corn")
	c.Register(CategoryItem, "item-seed-wheat")

	cat, ok := c.Lookup("crop-wheat")
	assert.True(t, ok)
	assert.Equal(t, CategoryCrop, cat)

	_, ok = c.Lookup("crop-moon")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestHasChecksCategory(t *testing.T) {
	c := New()
	c.Register(CategoryCrop, "crop-wheat")

	assert.True(t, c.Has("crop-wheat", CategoryCrop))
	assert.False(t, c.Has("crop-wheat", CategoryItem))
	assert.False(t, c.Has("unknown", CategoryCrop))
}

func TestReregisterMovesCategory(t *testing.T) {
	c := New()
	c.Register(CategoryCrop, "ambiguous")
	c.Register(CategoryItem, "ambiguous")

	assert.True(t, c.Has("ambiguous", CategoryItem))
	assert.False(t, c.Has("ambiguous", CategoryCrop))
	assert.Equal(t, 1, c.Len())
}
