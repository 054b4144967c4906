package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/darila/internal/model"
)

// ItemFilter holds the optional predicates of an item listing. Nil fields
// and an empty Search do not constrain the result.
type ItemFilter struct {
	CategoryID *int64
	// Search matches name or description as a case-insensitive substring.
	// A blank Search does not filter; otherwise it is matched verbatim.
	Search   string
	PriceMin *float64
	PriceMax *float64
	Owned    *bool
}

// where builds the WHERE clause for f. Items with no price never satisfy a
// price bound.
func (f ItemFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.CategoryID != nil {
		clause += ` AND i.category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if strings.TrimSpace(f.Search) != "" {
		clause += ` AND (instr(fold(i.name), fold(?)) > 0 OR instr(fold(COALESCE(i.description, '')), fold(?)) > 0)`
		args = append(args, f.Search, f.Search)
	}
	if f.PriceMin != nil {
		clause += ` AND i.price >= ?`
		args = append(args, *f.PriceMin)
	}
	if f.PriceMax != nil {
		clause += ` AND i.price <= ?`
		args = append(args, *f.PriceMax)
	}
	if f.Owned != nil {
		clause += ` AND i.owned = ?`
		args = append(args, *f.Owned)
	}
	return clause, args
}

// itemOrder sorts by most recent interest first. Items without an interest
// date sort last, as if dated at the epoch, and the id keeps ties stable
// across pages.
const itemOrder = ` ORDER BY i.last_interest_date IS NULL, i.last_interest_date DESC, i.id DESC`

const itemColumns = `i.id, i.category_id, i.name, i.description, i.price, i.link, i.image, i.owned,
	i.last_interest_date, i.created_at, i.updated_at, c.id, c.name, c.description`

const itemFrom = ` FROM items i JOIN categories c ON c.id = i.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{Category: &model.Category{}}
	err := row.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.Price,
		&item.Link, &item.Image, &item.Owned, &item.LastInterestDate, &item.CreatedAt, &item.UpdatedAt,
		&item.Category.ID, &item.Category.Name, &item.Category.Description)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem inserts an item and returns it joined with its category.
// A category_id that does not resolve fails with ErrReference.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (category_id, name, description, price, link, image, owned, last_interest_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.CategoryID, item.Name, item.Description, item.Price, item.Link, item.Image, item.Owned,
		utc(item.LastInterestDate),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, joined with its category.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns one page of items matching f, newest interest first.
// Offset and limit apply after filtering and ordering.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter, offset, limit int) ([]model.Item, error) {
	where, args := f.where()
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+itemFrom+where+itemOrder+` LIMIT ? OFFSET ?`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns how many items match f.
func CountItems(ctx context.Context, db *sql.DB, f ItemFilter) (int, error) {
	where, args := f.where()
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+itemFrom+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// UpdateItem writes every mutable column of item.
func UpdateItem(ctx context.Context, db *sql.DB, item *model.Item) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET category_id = ?, name = ?, description = ?, price = ?, link = ?, image = ?,
		        owned = ?, last_interest_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		item.CategoryID, item.Name, item.Description, item.Price, item.Link, item.Image,
		item.Owned, utc(item.LastInterestDate), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemImage replaces an item's image value.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image *string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RenewInterest sets an item's last interest date.
func RenewInterest(ctx context.Context, db *sql.DB, id int64, at time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET last_interest_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("renewing interest: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes an item and its bookings in one transaction. It returns
// the image value the item held so the caller can clean up a local file.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (*string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var image *string
	err = tx.QueryRowContext(ctx, `SELECT image FROM items WHERE id = ?`, id).Scan(&image)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE item_id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting item bookings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting item: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item deletion: %w", err)
	}
	return image, nil
}

// utc normalizes timestamps before they are stored so that the text
// representation SQLite compares in ORDER BY sorts chronologically.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
