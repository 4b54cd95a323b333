package cache

import (
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheNonPositiveTTLDeletes(t *testing.T) {
	c := newTTLCache[string, int](time.Now)
	c.Set("a", 1, time.Minute)
	c.Set("a", 2, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestProductCache(t *testing.T) {
	c := NewProductCache()
	name := "Milk"
	c.SetProduct(catalogdomain.Product{Barcode: "4006381333931", Name: name})
	c.SetProduct(catalogdomain.Product{Barcode: "  "})

	got, ok := c.GetProduct(" 4006381333931 ")
	assert.True(t, ok)
	assert.Equal(t, "Milk", got.Name)

	c.InvalidateProduct("4006381333931")
	_, ok = c.GetProduct("4006381333931")
	assert.False(t, ok)
}
