package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// Toggle flips whether user is interested in an item.
func (s *Service) Toggle(ctx context.Context, itemID int64, user string) (*model.ToggleResult, error) {
	user = strings.TrimSpace(user)
	if itemID <= 0 {
		return nil, invalid("item_id", "is required")
	}
	if user == "" {
		return nil, invalid("user", "is required")
	}

	res, err := store.ToggleBooking(ctx, s.db, itemID, user, s.Now())
	if err != nil {
		return nil, err
	}

	s.metrics.InterestToggles.WithLabelValues(res.Action).Inc()
	s.logger.Info("interest toggled",
		zap.Int64("item_id", itemID),
		zap.String("user", user),
		zap.String("action", res.Action))
	return res, nil
}

// ResetInterest removes every booking.
func (s *Service) ResetInterest(ctx context.Context) (int64, error) {
	n, err := store.ResetBookings(ctx, s.db)
	if err != nil {
		return 0, err
	}
	s.logger.Info("interest reset", zap.Int64("bookings", n))
	return n, nil
}
