// Package pagination defines the skip/limit listing contract shared by every
// list endpoint.
package pagination

import (
	"net/url"
	"strconv"

	dErrors "intia/pkg/domain-errors"
)

const (
	// DefaultLimit applies when the caller does not specify one.
	DefaultLimit = 20
	// MaxLimit caps page size.
	MaxLimit = 100
)

// Page is a validated skip/limit pair.
type Page struct {
	Skip  int
	Limit int
}

// Meta is the pagination block attached to list responses.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// FromQuery parses skip/limit query parameters, enforcing skip >= 0 and
// limit in [1, MaxLimit].
func FromQuery(q url.Values) (Page, error) {
	page := Page{Skip: 0, Limit: DefaultLimit}

	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return Page{}, dErrors.New(dErrors.CodeBadRequest, "skip must be a non-negative integer")
		}
		page.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			return Page{}, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 100")
		}
		page.Limit = limit
	}
	return page, nil
}

// MetaFor computes the response metadata for a page over total items:
// page = skip/limit + 1 and total_pages = ceil(total/limit).
func (p Page) MetaFor(total int) Meta {
	return Meta{
		Page:       p.Skip/p.Limit + 1,
		PerPage:    p.Limit,
		Total:      total,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}
}
