package utils

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	MaxPageLimit = 100
	MaxPage      = 10000
)

type QueryOptions struct {
	Page   int
	Limit  int
	Search string
}

// Skip is the number of documents before the requested page.
func (q QueryOptions) Skip() int64 {
	return int64(q.Page-1) * int64(q.Limit)
}

func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return QueryOptions{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(q.Get("q")),
	}
}

// ParseOptionalFloat returns nil for an empty or malformed value.
func ParseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
