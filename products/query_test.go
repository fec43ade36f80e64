package products

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func parse(t *testing.T, rawQuery string) Query {
	t.Helper()
	return ParseQuery(httptest.NewRequest(http.MethodGet, "/api/products?"+rawQuery, nil))
}

func TestParseQuery(t *testing.T) {
	q := parse(t, "page=2&limit=5&category=phones&brand=Acme&minPrice=100&maxPrice=900.5&sort=price_desc&attr.color=red&attr.$where=1&attr.size=")

	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "phones", q.Category)
	assert.Equal(t, "Acme", q.Brand)
	require.NotNil(t, q.MinPrice)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 100.0, *q.MinPrice)
	assert.Equal(t, 900.5, *q.MaxPrice)
	assert.Equal(t, SortPriceDesc, q.Sort)
	assert.Equal(t, map[string]string{"color": "red"}, q.Attrs, "operator keys and empty values are dropped")
}

func TestParseQueryUnknownSortFallsBack(t *testing.T) {
	assert.Equal(t, SortNewest, parse(t, "sort=random").Sort)
	assert.Equal(t, SortNewest, parse(t, "").Sort)
}

func TestFilter(t *testing.T) {
	q := parse(t, "category=phones&minPrice=100&q=a.b&attr.color=red")
	f := q.Filter()

	assert.Equal(t, true, f["active"])
	assert.Equal(t, "phones", f["categoryid"])
	assert.Equal(t, bson.M{"$gte": 100.0}, f["price"])
	assert.Equal(t, bson.M{"$regex": `a\.b`, "$options": "i"}, f["name"])
	assert.Equal(t, "red", f["characteristics.color"])
	assert.NotContains(t, f, "brand")
}

func TestSortSpec(t *testing.T) {
	assert.Equal(t, "price", parse(t, "sort=price_asc").SortSpec()[0].Key)
	assert.Equal(t, -1, parse(t, "sort=price_desc").SortSpec()[0].Value)
	assert.Equal(t, "createdAt", parse(t, "").SortSpec()[0].Key)
	for _, s := range []string{"price_asc", "price_desc", "name", "newest"} {
		spec := parse(t, "sort="+s).SortSpec()
		assert.Equal(t, "productid", spec[len(spec)-1].Key, s)
	}
}

func TestCacheKeyIsCanonical(t *testing.T) {
	a := parse(t, "attr.b=2&attr.a=1&q=Phone&category=x")
	b := parse(t, "category=x&q=phone&attr.a=1&attr.b=2")
	c := parse(t, "category=x&q=phone&attr.a=1&attr.b=3")

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestCacheKeyEscapesValues(t *testing.T) {
	split := parse(t, "attr.color=red&attr.size=m")
	smuggled := parse(t, "attr.color=red%26a.size%3Dm")

	require.NotEqual(t, split.Filter(), smuggled.Filter())
	assert.NotEqual(t, split.CacheKey(), smuggled.CacheKey())

	amp := parse(t, "brand=a%26c%3Dx")
	plain := parse(t, "brand=a&category=x")
	assert.NotEqual(t, amp.CacheKey(), plain.CacheKey())
}
