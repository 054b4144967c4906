package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/darila/internal/model"
)

func ptr[T any](v T) *T { return &v }

func mustCategory(t *testing.T, database *sql.DB, name string) *model.Category {
	t.Helper()
	c, err := CreateCategory(context.Background(), database, name, nil)
	require.NoError(t, err)
	return c
}

func mustItem(t *testing.T, database *sql.DB, item model.Item) *model.Item {
	t.Helper()
	created, err := CreateItem(context.Background(), database, &item)
	require.NoError(t, err)
	return created
}

func day(n int) *time.Time {
	d := time.Date(2024, 1, n, 12, 0, 0, 0, time.UTC)
	return &d
}
