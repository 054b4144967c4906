package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// CategoryResolver maps category names to categories for the duration of
// one import batch, creating missing ones. Names compare case-insensitively
// and each distinct name is created at most once per batch. It is not safe
// for concurrent use.
type CategoryResolver struct {
	db      *sql.DB
	cache   map[string]*model.Category
	created []model.Category
}

// NewCategoryResolver creates a resolver preloaded with every existing
// category.
func NewCategoryResolver(ctx context.Context, db *sql.DB) (*CategoryResolver, error) {
	categories, err := store.ListCategories(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("preloading categories: %w", err)
	}

	r := &CategoryResolver{
		db:    db,
		cache: make(map[string]*model.Category, len(categories)),
	}
	for i := range categories {
		r.cache[key(categories[i].Name)] = &categories[i]
	}
	return r, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve returns the category called name, creating it with description
// when neither the batch nor the database has one.
func (r *CategoryResolver) Resolve(ctx context.Context, name string, description *string) (*model.Category, error) {
	k := key(name)
	if k == "" {
		return nil, errors.New("empty category name")
	}
	if c, ok := r.cache[k]; ok {
		return c, nil
	}

	c, err := store.CreateCategory(ctx, r.db, strings.TrimSpace(name), description)
	if errors.Is(err, store.ErrConflict) {
		// Created since the batch started.
		c, err = store.GetCategoryByName(ctx, r.db, strings.TrimSpace(name))
		if err == nil && c == nil {
			err = fmt.Errorf("category %q conflicts but cannot be found", name)
		}
	} else if err == nil {
		r.created = append(r.created, *c)
	}
	if err != nil {
		return nil, err
	}

	r.cache[k] = c
	return c, nil
}

// Created returns the categories this resolver created.
func (r *CategoryResolver) Created() []model.Category {
	return r.created
}
