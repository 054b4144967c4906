package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/darila/internal/model"
)

// CreateCategory creates a new category. A name that matches an existing
// category regardless of case fails with ErrConflict.
func CreateCategory(ctx context.Context, db *sql.DB, name string, description *string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// GetCategoryByName returns the category whose name matches regardless of case.
func GetCategoryByName(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by name: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description FROM categories ORDER BY name COLLATE NOCASE, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory replaces a category's name and description.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, name string, description *string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating category: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletedCategory describes what a category deletion removed.
type DeletedCategory struct {
	Items    int
	Bookings int64
	// Images holds the image values of the removed items, local or not.
	Images []string
}

// DeleteCategory removes a category together with its items and their
// bookings in a single transaction. Bookings go first, then items, then the
// category itself, so every foreign key stays satisfied along the way.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) (*DeletedCategory, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking category: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT image FROM items WHERE category_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("listing category items: %w", err)
	}
	deleted := &DeletedCategory{}
	for rows.Next() {
		var image sql.NullString
		if err := rows.Scan(&image); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item image: %w", err)
		}
		deleted.Items++
		if image.Valid && image.String != "" {
			deleted.Images = append(deleted.Images, image.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing category items: %w", err)
	}

	if deleted.Items > 0 {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM bookings WHERE item_id IN (SELECT id FROM items WHERE category_id = ?)`, id,
		)
		if err != nil {
			return nil, fmt.Errorf("deleting category bookings: %w", err)
		}
		deleted.Bookings, _ = result.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE category_id = ?`, id); err != nil {
			return nil, fmt.Errorf("deleting category items: %w", classify(err))
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting category: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category deletion: %w", err)
	}
	return deleted, nil
}
