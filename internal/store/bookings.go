package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/darila/internal/model"
)

// ToggleBooking flips the presence of the (itemID, user) booking. An existing
// booking is removed; otherwise a new one dated now is created.
//
// The delete runs first inside the transaction, which takes SQLite's write
// lock, so two toggles for the same pair serialize. If a concurrent writer
// still slips in an insert, the primary key rejects the loser with ErrConflict.
// An itemID that does not resolve fails with ErrReference.
func ToggleBooking(ctx context.Context, db *sql.DB, itemID int64, user string, now time.Time) (*model.ToggleResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM bookings WHERE item_id = ? AND user = ?`, itemID, user,
	)
	if err != nil {
		return nil, fmt.Errorf("removing booking: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing booking removal: %w", err)
		}
		return &model.ToggleResult{Action: model.ToggleRemoved}, nil
	}

	booking := &model.Booking{ItemID: itemID, User: user, Date: now.UTC()}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (item_id, user, created_at) VALUES (?, ?, ?)`,
		booking.ItemID, booking.User, booking.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("creating booking: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing booking: %w", err)
	}
	return &model.ToggleResult{Action: model.ToggleAdded, Booking: booking}, nil
}

// GetBooking returns the booking for a pair, or nil if there is none.
func GetBooking(ctx context.Context, db *sql.DB, itemID int64, user string) (*model.Booking, error) {
	b := &model.Booking{}
	err := db.QueryRowContext(ctx,
		`SELECT b.item_id, b.user, b.created_at, i.name
		 FROM bookings b JOIN items i ON i.id = b.item_id
		 WHERE b.item_id = ? AND b.user = ?`, itemID, user,
	).Scan(&b.ItemID, &b.User, &b.Date, &b.ItemName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting booking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings, optionally filtered by item or user.
func ListBookings(ctx context.Context, db *sql.DB, itemID int64, user string) ([]model.Booking, error) {
	query := `SELECT b.item_id, b.user, b.created_at, i.name
	          FROM bookings b
	          JOIN items i ON i.id = b.item_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND b.item_id = ?`
		args = append(args, itemID)
	}
	if user != "" {
		query += ` AND b.user = ?`
		args = append(args, user)
	}

	query += ` ORDER BY b.created_at DESC, b.item_id, b.user`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// AttachBookings loads the bookings of every item in items, oldest first.
func AttachBookings(ctx context.Context, db *sql.DB, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Item, len(items))
	args := make([]any, 0, len(items))
	for i := range items {
		items[i].Bookings = []model.Booking{}
		byID[items[i].ID] = &items[i]
		args = append(args, items[i].ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := db.QueryContext(ctx,
		`SELECT b.item_id, b.user, b.created_at, i.name
		 FROM bookings b JOIN items i ON i.id = b.item_id
		 WHERE b.item_id IN (`+placeholders+`)
		 ORDER BY b.created_at, b.user`, args...,
	)
	if err != nil {
		return fmt.Errorf("loading item bookings: %w", err)
	}
	defer rows.Close()

	bookings, err := scanBookings(rows)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if item := byID[b.ItemID]; item != nil {
			item.Bookings = append(item.Bookings, b)
		}
	}
	return nil
}

// DeleteBooking removes a single booking.
func DeleteBooking(ctx context.Context, db *sql.DB, itemID int64, user string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM bookings WHERE item_id = ? AND user = ?`, itemID, user,
	)
	if err != nil {
		return fmt.Errorf("deleting booking: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetBookings removes every booking and reports how many were removed.
func ResetBookings(ctx context.Context, db *sql.DB) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, fmt.Errorf("resetting bookings: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ItemID, &b.User, &b.Date, &b.ItemName); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
