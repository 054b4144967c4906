package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// NewItem is the payload of a single item creation.
type NewItem struct {
	CategoryID       int64      `json:"category_id" validate:"required,gt=0"`
	Name             string     `json:"name" validate:"required,max=200"`
	Description      *string    `json:"description" validate:"omitempty,max=5000"`
	Price            *float64   `json:"price" validate:"omitempty,gte=0"`
	Link             *string    `json:"link" validate:"omitempty,max=2048"`
	Image            *string    `json:"image" validate:"omitempty,max=2048"`
	Owned            bool       `json:"owned"`
	LastInterestDate *time.Time `json:"last_interest_date"`
}

// Normalize trims the name and turns blank optional strings into nulls.
func (n *NewItem) Normalize() {
	n.Name = strings.TrimSpace(n.Name)
	n.Description = blankToNil(n.Description)
	n.Link = blankToNil(n.Link)
	n.Image = blankToNil(n.Image)
}

// ItemPatch is a partial item update. Only present fields are applied.
type ItemPatch struct {
	CategoryID       Field[int64]     `json:"category_id"`
	Name             Field[string]    `json:"name"`
	Description      Field[string]    `json:"description"`
	Price            Field[float64]   `json:"price"`
	Link             Field[string]    `json:"link"`
	Image            Field[string]    `json:"image"`
	Owned            Field[bool]      `json:"owned"`
	LastInterestDate Field[time.Time] `json:"last_interest_date"`
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func isRemote(image string) bool {
	return strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://")
}

// CreateItem stores a new item. A remote image URL is materialized; when
// that fails the raw URL is kept. The interest date defaults to now.
func (s *Service) CreateItem(ctx context.Context, in NewItem) (*model.Item, error) {
	in.Normalize()
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, invalid("price", "must be >= 0")
	}

	item := &model.Item{
		CategoryID:       in.CategoryID,
		Name:             in.Name,
		Description:      in.Description,
		Price:            in.Price,
		Link:             in.Link,
		Image:            in.Image,
		Owned:            in.Owned,
		LastInterestDate: in.LastInterestDate,
	}
	if item.LastInterestDate == nil {
		now := s.Now()
		item.LastInterestDate = &now
	}

	stored := s.materialize(ctx, item.Image)
	item.Image = stored.image

	created, err := store.CreateItem(ctx, s.db, item)
	if err != nil {
		s.discard(stored)
		return nil, err
	}

	s.logger.Info("item created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// UpdateItem applies a partial update. Replacing a local image deletes the
// old file once the new value is stored.
func (s *Service) UpdateItem(ctx context.Context, id int64, patch ItemPatch) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	oldImage := item.Image

	if err := applyPatch(item, patch); err != nil {
		return nil, err
	}

	var stored storedImage
	if patch.Image.Set && !sameString(oldImage, item.Image) {
		stored = s.materialize(ctx, item.Image)
		item.Image = stored.image
	}

	if err := store.UpdateItem(ctx, s.db, item); err != nil {
		s.discard(stored)
		return nil, err
	}

	if oldImage != nil && !sameString(oldImage, item.Image) {
		s.removeImage(*oldImage)
	}

	s.logger.Info("item updated", zap.Int64("id", id))
	return store.GetItem(ctx, s.db, id)
}

func applyPatch(item *model.Item, p ItemPatch) error {
	if p.CategoryID.Set {
		if p.CategoryID.Value == nil || *p.CategoryID.Value <= 0 {
			return invalid("category_id", "must be a positive integer")
		}
		item.CategoryID = *p.CategoryID.Value
	}
	if p.Name.Set {
		if p.Name.Value == nil || strings.TrimSpace(*p.Name.Value) == "" {
			return invalid("name", "is required")
		}
		item.Name = strings.TrimSpace(*p.Name.Value)
	}
	if p.Description.Set {
		item.Description = blankToNil(p.Description.Value)
	}
	if p.Price.Set {
		if p.Price.Value != nil && *p.Price.Value < 0 {
			return invalid("price", "must be >= 0")
		}
		item.Price = p.Price.Value
	}
	if p.Link.Set {
		item.Link = blankToNil(p.Link.Value)
	}
	if p.Image.Set {
		item.Image = blankToNil(p.Image.Value)
	}
	if p.Owned.Set {
		if p.Owned.Value == nil {
			return invalid("owned", "must be true or false")
		}
		item.Owned = *p.Owned.Value
	}
	if p.LastInterestDate.Set {
		item.LastInterestDate = p.LastInterestDate.Value
	}
	return nil
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type storedImage struct {
	image *string
	// local is set when the image was materialized by this call.
	local bool
}

// materialize turns a remote image URL into a local file. Other values,
// including a failed fetch, are returned unchanged.
func (s *Service) materialize(ctx context.Context, image *string) storedImage {
	if image == nil || !isRemote(*image) {
		return storedImage{image: image}
	}
	res := s.images.Materialize(ctx, *image)
	if !res.OK() {
		return storedImage{image: image}
	}
	return storedImage{image: res.PathOrNil(), local: true}
}

// discard removes a file materialized for a write that did not happen.
func (s *Service) discard(si storedImage) {
	if si.local && si.image != nil {
		s.removeImage(*si.image)
	}
}

// SetImage stores an uploaded image for an item, replacing any previous
// local file.
func (s *Service) SetImage(ctx context.Context, id int64, r io.Reader, maxBytes int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}

	processed, err := imaging.Process(r, maxBytes)
	if errors.Is(err, imaging.ErrTooLarge) {
		return nil, invalid("image", "is too large")
	}
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	path, err := s.uploads.Save(processed.Data, processed.Ext)
	if err != nil {
		return nil, fmt.Errorf("storing uploaded image: %w", err)
	}

	if err := store.SetItemImage(ctx, s.db, id, &path); err != nil {
		s.removeImage(path)
		return nil, err
	}
	if item.Image != nil {
		s.removeImage(*item.Image)
	}

	s.logger.Info("item image uploaded", zap.Int64("id", id), zap.String("image", path))
	return store.GetItem(ctx, s.db, id)
}

// Renew marks fresh interest in an item by setting its interest date to now.
func (s *Service) Renew(ctx context.Context, id int64) (*model.Item, error) {
	if err := store.RenewInterest(ctx, s.db, id, s.Now()); err != nil {
		return nil, err
	}
	return store.GetItem(ctx, s.db, id)
}

// DeleteItem removes an item with its bookings, then deletes its local
// image file. The file is removed best-effort after the rows are gone.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	image, err := store.DeleteItem(ctx, s.db, id)
	if err != nil {
		return err
	}
	if image != nil {
		s.removeImage(*image)
	}

	s.logger.Info("item deleted", zap.Int64("id", id))
	return nil
}
