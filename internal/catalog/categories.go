package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/store"
)

// DeleteCategory removes a category with all of its items and their
// bookings, then deletes the items' local image files.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (*store.DeletedCategory, error) {
	deleted, err := store.DeleteCategory(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, image := range deleted.Images {
		s.removeImage(image)
	}

	s.logger.Info("category deleted",
		zap.Int64("id", id),
		zap.Int("items", deleted.Items),
		zap.Int64("bookings", deleted.Bookings))
	return deleted, nil
}
