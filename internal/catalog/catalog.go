// Package catalog implements reads and mutations of the item catalog on top
// of the store: filtered feeds, item edits with image handling, interest
// toggling and cascading deletes.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// Materializer stores a remote image locally. Failures are soft and
// reported through the result.
type Materializer interface {
	Materialize(ctx context.Context, rawURL string) imaging.Result
}

// Service is the catalog engine.
type Service struct {
	db      *sql.DB
	uploads imaging.Uploads
	images  Materializer
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Now is the clock used for interest and booking dates.
	Now func() time.Time
}

// New creates a catalog Service.
func New(db *sql.DB, uploads imaging.Uploads, images Materializer, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		uploads: uploads,
		images:  images,
		logger:  logger,
		metrics: m,
		Now:     time.Now,
	}
}

// Page is one page of a feed. HasMore is true when the page is full, so a
// caller keeps paging until a short page arrives.
type Page struct {
	Items      []model.Item `json:"items"`
	Offset     int          `json:"offset"`
	NextOffset int          `json:"next_offset"`
	HasMore    bool         `json:"has_more"`
}

// DualPage holds the two carousel slices.
type DualPage struct {
	Wishlist Page `json:"wishlist"`
	Owned    Page `json:"owned"`
}

// Feed returns one page of items matching q, most recent interest first.
func (s *Service) Feed(ctx context.Context, q Query) (*Page, error) {
	page, err := s.page(ctx, q.Filter, q.Offset, q.Limit, q.IncludeBookings)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// DualFeed returns a page of not-owned items and a page of owned items.
func (s *Service) DualFeed(ctx context.Context, q DualQuery) (*DualPage, error) {
	notOwned, owned := false, true

	wf := q.Filter
	wf.Owned = &notOwned
	wishlist, err := s.page(ctx, wf, q.WishlistOffset, q.Limit, q.IncludeBookings)
	if err != nil {
		return nil, fmt.Errorf("wishlist feed: %w", err)
	}

	of := q.Filter
	of.Owned = &owned
	ownedPage, err := s.page(ctx, of, q.OwnedOffset, q.Limit, q.IncludeBookings)
	if err != nil {
		return nil, fmt.Errorf("owned feed: %w", err)
	}

	return &DualPage{Wishlist: wishlist, Owned: ownedPage}, nil
}

func (s *Service) page(ctx context.Context, f store.ItemFilter, offset, limit int, withBookings bool) (Page, error) {
	items, err := store.ListItems(ctx, s.db, f, offset, limit)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []model.Item{}
	}
	if withBookings {
		if err := store.AttachBookings(ctx, s.db, items); err != nil {
			return Page{}, err
		}
	}
	return Page{
		Items:      items,
		Offset:     offset,
		NextOffset: offset + len(items),
		HasMore:    len(items) == limit,
	}, nil
}

// Item returns an item with its category and bookings.
func (s *Service) Item(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}

	items := []model.Item{*item}
	if err := store.AttachBookings(ctx, s.db, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// removeImage deletes a local image file. Failures are logged and ignored.
func (s *Service) removeImage(image string) {
	removed, err := s.uploads.Remove(image)
	if err != nil {
		s.logger.Warn("removing image file", zap.String("image", image), zap.Error(err))
		return
	}
	if removed {
		s.logger.Debug("image file removed", zap.String("image", image))
	}
}
