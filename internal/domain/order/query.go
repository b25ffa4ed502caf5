package order

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps Offset from overflowing at any valid limit.
	MaxPage = math.MaxInt/MaxLimit + 1
)

// Sortable order fields as exposed to API clients.
const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortTotalAmount = "totalAmount"
	SortStatus      = "status"
)

// Query selects a page of orders for the admin listing.
type Query struct {
	// Search matches number, note, street and city, case-insensitively.
	Search string
	Filter Filter
	Sort   []SortField
	Page   int
	Limit  int
	// Fields limits which order fields are returned. Empty means all.
	Fields []string
}

// Filter narrows the listing to exact matches. Empty fields are ignored.
type Filter struct {
	Status        Status
	PaymentStatus PaymentStatus
	UserID        string
}

// SortField is one sort key.
type SortField struct {
	Field string
	Desc  bool
}

// ParseSort parses a comma separated list like "-createdAt,totalAmount".
func ParseSort(s string) ([]SortField, error) {
	var out []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := SortField{Field: part}
		if strings.HasPrefix(part, "-") {
			f = SortField{Field: part[1:], Desc: true}
		}
		switch f.Field {
		case SortCreatedAt, SortUpdatedAt, SortTotalAmount, SortStatus:
		default:
			return nil, errors.Errorf("unknown sort field %q", f.Field)
		}
		out = append(out, f)
	}
	return out, nil
}

// Normalize fills defaults and clamps paging.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if len(q.Sort) == 0 {
		q.Sort = []SortField{{Field: SortCreatedAt, Desc: true}}
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset is the number of rows skipped before the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of the admin listing.
type Page struct {
	Orders []Order
	Total  int
	Page   int
	Limit  int
	Fields []string
}
