package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/darila/internal/store"
)

// Paging defaults.
const (
	DefaultLimit         = 20
	DefaultCarouselLimit = 10
	MaxLimit             = 100
)

// ValidationError reports a malformed request value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Query selects one page of the single feed.
type Query struct {
	Filter          store.ItemFilter
	Offset          int
	Limit           int
	IncludeBookings bool
}

// DualQuery pages the wishlist (not owned) and owned slices independently
// under the same non-ownership filters.
type DualQuery struct {
	Filter          store.ItemFilter
	WishlistOffset  int
	OwnedOffset     int
	Limit           int
	IncludeBookings bool
}

// ParseQuery reads a feed query from URL parameters: offset, limit,
// category_id, search, priceMin, priceMax, owned and include=bookings.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{}
	var err error

	if q.Filter, err = parseFilter(v); err != nil {
		return Query{}, err
	}
	if q.Filter.Owned, err = parseBool(v, "owned"); err != nil {
		return Query{}, err
	}
	if q.Offset, err = parseOffset(v, "offset"); err != nil {
		return Query{}, err
	}
	if q.Limit, err = parseLimit(v, DefaultLimit); err != nil {
		return Query{}, err
	}
	q.IncludeBookings = includes(v, "bookings")
	return q, nil
}

// ParseDualQuery reads a dual feed query from URL parameters:
// wishlist_offset, owned_offset, limit and the shared filters. An owned
// parameter is ignored since each slice fixes ownership itself.
func ParseDualQuery(v url.Values) (DualQuery, error) {
	q := DualQuery{}
	var err error

	if q.Filter, err = parseFilter(v); err != nil {
		return DualQuery{}, err
	}
	if q.WishlistOffset, err = parseOffset(v, "wishlist_offset"); err != nil {
		return DualQuery{}, err
	}
	if q.OwnedOffset, err = parseOffset(v, "owned_offset"); err != nil {
		return DualQuery{}, err
	}
	if q.Limit, err = parseLimit(v, DefaultCarouselLimit); err != nil {
		return DualQuery{}, err
	}
	q.IncludeBookings = includes(v, "bookings")
	return q, nil
}

func parseFilter(v url.Values) (store.ItemFilter, error) {
	var f store.ItemFilter

	if s := strings.TrimSpace(v.Get("category_id")); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return f, invalid("category_id", "must be a positive integer")
		}
		f.CategoryID = &id
	}

	if s := v.Get("search"); strings.TrimSpace(s) != "" {
		f.Search = s
	}

	var err error
	if f.PriceMin, err = parsePrice(v, "priceMin"); err != nil {
		return f, err
	}
	if f.PriceMax, err = parsePrice(v, "priceMax"); err != nil {
		return f, err
	}
	return f, nil
}

func parsePrice(v url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, invalid(key, "must be a number")
	}
	return &p, nil
}

func parseBool(v url.Values, key string) (*bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, invalid(key, "must be true or false")
	}
	return &b, nil
}

func parseOffset(v url.Values, key string) (int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, invalid(key, "must be a non-negative integer")
	}
	return n, nil
}

// parseLimit accepts 1..MaxLimit; larger values are capped.
func parseLimit(v url.Values, def int) (int, error) {
	s := strings.TrimSpace(v.Get("limit"))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, invalid("limit", "must be a positive integer")
	}
	return min(n, MaxLimit), nil
}

func includes(v url.Values, what string) bool {
	for _, s := range v["include"] {
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == what {
				return true
			}
		}
	}
	return false
}
