package cache

import (
	"strings"
	"time"

	catalogdomain "github.com/smallbiznis/shelflife/internal/catalog/domain"
)

const defaultProductTTL = 5 * time.Minute

// ProductCache keeps recent barcode lookups so repeated scans of the same
// product skip the database.
type ProductCache interface {
	GetProduct(barcode string) (catalogdomain.Product, bool)
	SetProduct(product catalogdomain.Product)
	InvalidateProduct(barcode string)
}

type productCache struct {
	products Cache[string, catalogdomain.Product]
	ttl      time.Duration
}

func NewProductCache() ProductCache {
	return &productCache{
		products: NewTTLCache[string, catalogdomain.Product](),
		ttl:      defaultProductTTL,
	}
}

func (c *productCache) GetProduct(barcode string) (catalogdomain.Product, bool) {
	return c.products.Get(cacheKey(barcode))
}

func (c *productCache) SetProduct(product catalogdomain.Product) {
	key := cacheKey(product.Barcode)
	if key == "" {
		return
	}
	c.products.Set(key, product, c.ttl)
}

func (c *productCache) InvalidateProduct(barcode string) {
	c.products.Delete(cacheKey(barcode))
}

// Barcodes are opaque; only surrounding whitespace is ignored.
func cacheKey(barcode string) string {
	return strings.TrimSpace(barcode)
}
