package products

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"storefront/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// Sort orders accepted by the listing endpoint.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

// attribute keys end up in a Mongo field path, so only plain words are allowed
var attrKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Query is the parsed pagination, filter and sort state of a listing request.
type Query struct {
	utils.QueryOptions
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Attrs    map[string]string
}

// ParseQuery reads ?page&limit&q&category&brand&minPrice&maxPrice&sort&attr.<key>=<value>.
func ParseQuery(r *http.Request) Query {
	v := r.URL.Query()
	q := Query{
		QueryOptions: utils.ParseQueryOptions(r),
		Category:     strings.TrimSpace(v.Get("category")),
		Brand:        strings.TrimSpace(v.Get("brand")),
		MinPrice:     utils.ParseOptionalFloat(v.Get("minPrice")),
		MaxPrice:     utils.ParseOptionalFloat(v.Get("maxPrice")),
		Sort:         v.Get("sort"),
	}

	switch q.Sort {
	case SortPriceAsc, SortPriceDesc, SortName, SortNewest:
	default:
		q.Sort = SortNewest
	}

	for key, vals := range v {
		name, ok := strings.CutPrefix(key, "attr.")
		if !ok || !attrKey.MatchString(name) || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if q.Attrs == nil {
			q.Attrs = make(map[string]string)
		}
		q.Attrs[name] = vals[0]
	}
	return q
}

// Filter builds the Mongo filter for the query. Only active products are listed.
func (q Query) Filter() bson.M {
	filter := bson.M{"active": true}
	if q.Category != "" {
		filter["categoryid"] = q.Category
	}
	if q.Brand != "" {
		filter["brand"] = q.Brand
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		filter["price"] = price
	}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}
	for k, v := range q.Attrs {
		filter["characteristics."+k] = v
	}
	return filter
}

// SortSpec returns the Mongo sort document, tie-broken by product id so
// pagination is stable.
func (q Query) SortSpec() bson.D {
	switch q.Sort {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "productid", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "productid", Value: 1}}
	case SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "productid", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "productid", Value: 1}}
	}
}

// CacheKey is a canonical string for the query; equal queries give equal keys
// and values are escaped so distinct filters never share one.
func (q Query) CacheKey() string {
	v := url.Values{}
	v.Set("p", strconv.Itoa(q.Page))
	v.Set("l", strconv.Itoa(q.Limit))
	v.Set("s", q.Sort)
	v.Set("q", strings.ToLower(q.Search))
	v.Set("c", q.Category)
	v.Set("b", q.Brand)
	if q.MinPrice != nil {
		v.Set("min", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("max", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	for k, val := range q.Attrs {
		v.Set("a."+k, val)
	}
	return v.Encode()
}
