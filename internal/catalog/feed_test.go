package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

var words = []string{"lego", "book", "Chess", "LAMP", "tea", "puzzle", "ŠAL", "čaj", "Über", "žoga"}

// seed replaces the catalog with n generated items across three categories.
func seed(rt *rapid.T, f *fixture) []model.Item {
	ctx := context.Background()
	for _, q := range []string{`DELETE FROM bookings`, `DELETE FROM items`, `DELETE FROM categories`} {
		if _, err := f.db.ExecContext(ctx, q); err != nil {
			rt.Fatalf("clearing catalog: %v", err)
		}
	}

	var cats []int64
	for _, name := range []string{"A", "B", "C"} {
		c, err := store.CreateCategory(ctx, f.db, name, nil)
		if err != nil {
			rt.Fatalf("creating category: %v", err)
		}
		cats = append(cats, c.ID)
	}

	n := rapid.IntRange(0, 25).Draw(rt, "n")
	items := make([]model.Item, 0, n)
	for i := range n {
		item := model.Item{
			CategoryID: rapid.SampledFrom(cats).Draw(rt, "category"),
			Name:       rapid.SampledFrom(words).Draw(rt, "name"),
			Owned:      rapid.Bool().Draw(rt, "owned"),
		}
		if rapid.Bool().Draw(rt, "has_description") {
			item.Description = ptr(rapid.SampledFrom(words).Draw(rt, "description") + " set")
		}
		if rapid.Bool().Draw(rt, "has_price") {
			item.Price = ptr(float64(rapid.IntRange(0, 100).Draw(rt, "price")))
		}
		if rapid.IntRange(0, 3).Draw(rt, "dated") > 0 {
			// Few distinct days so that ties are common.
			d := time.Date(2024, 1, rapid.IntRange(1, 5).Draw(rt, "day"), 0, 0, 0, 0, time.UTC)
			item.LastInterestDate = &d
		}
		created, err := store.CreateItem(ctx, f.db, &item)
		if err != nil {
			rt.Fatalf("creating item %d: %v", i, err)
		}
		items = append(items, *created)
	}
	return items
}

func drawFilter(rt *rapid.T, items []model.Item) store.ItemFilter {
	var f store.ItemFilter
	if len(items) > 0 && rapid.Bool().Draw(rt, "by_category") {
		id := rapid.SampledFrom(items).Draw(rt, "category_of").CategoryID
		f.CategoryID = &id
	}
	if rapid.Bool().Draw(rt, "by_search") {
		w := []rune(rapid.SampledFrom(words).Draw(rt, "search"))
		f.Search = strings.ToUpper(string(w[:rapid.IntRange(1, len(w)).Draw(rt, "search_len")]))
	}
	if rapid.Bool().Draw(rt, "by_min") {
		f.PriceMin = ptr(float64(rapid.IntRange(0, 100).Draw(rt, "min")))
	}
	if rapid.Bool().Draw(rt, "by_max") {
		f.PriceMax = ptr(float64(rapid.IntRange(0, 100).Draw(rt, "max")))
	}
	if rapid.Bool().Draw(rt, "by_owned") {
		f.Owned = ptr(rapid.Bool().Draw(rt, "owned_value"))
	}
	return f
}

func matches(f store.ItemFilter, item model.Item) bool {
	if f.CategoryID != nil && item.CategoryID != *f.CategoryID {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		desc := ""
		if item.Description != nil {
			desc = *item.Description
		}
		if !strings.Contains(strings.ToLower(item.Name), s) && !strings.Contains(strings.ToLower(desc), s) {
			return false
		}
	}
	if f.PriceMin != nil && (item.Price == nil || *item.Price < *f.PriceMin) {
		return false
	}
	if f.PriceMax != nil && (item.Price == nil || *item.Price > *f.PriceMax) {
		return false
	}
	if f.Owned != nil && item.Owned != *f.Owned {
		return false
	}
	return true
}

// byInterest orders newest interest first with undated items last and the
// id breaking ties.
func byInterest(a, b model.Item) int {
	switch {
	case a.LastInterestDate == nil && b.LastInterestDate != nil:
		return 1
	case a.LastInterestDate != nil && b.LastInterestDate == nil:
		return -1
	case a.LastInterestDate != nil && !a.LastInterestDate.Equal(*b.LastInterestDate):
		return b.LastInterestDate.Compare(*a.LastInterestDate)
	}
	return cmp.Compare(b.ID, a.ID)
}

func ids(items []model.Item) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestFeedReturnsOnlyMatchingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		all := seed(rt, f)
		filter := drawFilter(rt, all)

		page, err := f.svc.Feed(ctx, Query{Filter: filter, Limit: MaxLimit})
		if err != nil {
			rt.Fatalf("feed: %v", err)
		}

		for _, item := range page.Items {
			if !matches(filter, item) {
				rt.Fatalf("item %d (%q) does not satisfy %+v", item.ID, item.Name, filter)
			}
		}

		var want []model.Item
		for _, item := range all {
			if matches(filter, item) {
				want = append(want, item)
			}
		}
		slices.SortFunc(want, byInterest)
		if !slices.Equal(ids(want), ids(page.Items)) {
			rt.Fatalf("got %v, want %v", ids(page.Items), ids(want))
		}
	})
}

func TestFeedPagesAreExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		all := seed(rt, f)
		filter := drawFilter(rt, all)
		limit := rapid.IntRange(1, 7).Draw(rt, "limit")

		full, err := f.svc.Feed(ctx, Query{Filter: filter, Limit: MaxLimit})
		if err != nil {
			rt.Fatalf("feed: %v", err)
		}

		var paged []int64
		seen := map[int64]bool{}
		offset := 0
		for {
			page, err := f.svc.Feed(ctx, Query{Filter: filter, Offset: offset, Limit: limit})
			if err != nil {
				rt.Fatalf("feed page: %v", err)
			}
			if len(page.Items) > limit {
				rt.Fatalf("page of %d exceeds limit %d", len(page.Items), limit)
			}
			for _, item := range page.Items {
				if seen[item.ID] {
					rt.Fatalf("item %d returned twice", item.ID)
				}
				seen[item.ID] = true
				paged = append(paged, item.ID)
			}
			if page.NextOffset != offset+len(page.Items) {
				rt.Fatalf("next offset %d, want %d", page.NextOffset, offset+len(page.Items))
			}
			if !page.HasMore {
				if len(page.Items) == limit {
					rt.Fatalf("full page reported no more")
				}
				break
			}
			offset = page.NextOffset
		}

		if !slices.Equal(ids(full.Items), paged) {
			rt.Fatalf("paged %v, want %v", paged, ids(full.Items))
		}
	})
}

func TestDualFeedPagesSlicesIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Toys")

	for i, owned := range []bool{false, true, false, true, false} {
		_, err := store.CreateItem(ctx, f.db, &model.Item{
			CategoryID:       c.ID,
			Name:             string(rune('a' + i)),
			Owned:            owned,
			LastInterestDate: ptr(time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)
	}

	page, err := f.svc.DualFeed(ctx, DualQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c"}, names(page.Wishlist.Items))
	assert.True(t, page.Wishlist.HasMore)
	assert.Equal(t, []string{"d", "b"}, names(page.Owned.Items))
	assert.True(t, page.Owned.HasMore)

	page, err = f.svc.DualFeed(ctx, DualQuery{WishlistOffset: 2, OwnedOffset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(page.Wishlist.Items))
	assert.False(t, page.Wishlist.HasMore)
	assert.Empty(t, page.Owned.Items)
	assert.NotNil(t, page.Owned.Items)
	assert.False(t, page.Owned.HasMore)
	assert.Equal(t, 2, page.Owned.NextOffset)
}

func TestFeedIncludesBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.category(t, "Toys")

	item, err := store.CreateItem(ctx, f.db, &model.Item{CategoryID: c.ID, Name: "Kite"})
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, item.ID, "ana")
	require.NoError(t, err)

	plain, err := f.svc.Feed(ctx, Query{Limit: 10})
	require.NoError(t, err)
	assert.Nil(t, plain.Items[0].Bookings)

	with, err := f.svc.Feed(ctx, Query{Limit: 10, IncludeBookings: true})
	require.NoError(t, err)
	require.Len(t, with.Items[0].Bookings, 1)
	assert.Equal(t, "ana", with.Items[0].Bookings[0].User)
}

func names(items []model.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}
