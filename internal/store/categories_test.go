package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/darila/internal/db"
	"github.com/erazemk/darila/internal/model"
)

func TestCreateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c, err := CreateCategory(ctx, database, "Books", ptr("Paper and otherwise"))
	require.NoError(t, err)
	assert.Equal(t, "Books", c.Name)
	require.NotNil(t, c.Description)
	assert.Equal(t, "Paper and otherwise", *c.Description)

	_, err = CreateCategory(ctx, database, "bOOKS", nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetCategoryByNameIgnoresCase(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	want := mustCategory(t, database, "Gaming")

	got, err := GetCategoryByName(ctx, database, "gaming")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)

	missing, err := GetCategoryByName(ctx, database, "Music")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListCategoriesSortedByName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustCategory(t, database, "music")
	mustCategory(t, database, "Books")
	mustCategory(t, database, "Gaming")

	list, err := ListCategories(ctx, database)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Books", "Gaming", "music"},
		[]string{list[0].Name, list[1].Name, list[2].Name})
}

func TestUpdateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := mustCategory(t, database, "Books")
	mustCategory(t, database, "Music")

	require.NoError(t, UpdateCategory(ctx, database, c.ID, "Novels", nil))
	got, err := GetCategory(ctx, database, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Novels", got.Name)

	assert.ErrorIs(t, UpdateCategory(ctx, database, c.ID, "music", nil), ErrConflict)
	assert.ErrorIs(t, UpdateCategory(ctx, database, 999, "X", nil), ErrNotFound)
}

func TestDeleteCategoryCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doomed := mustCategory(t, database, "Doomed")
	kept := mustCategory(t, database, "Kept")

	a := mustItem(t, database, model.Item{CategoryID: doomed.ID, Name: "A", Image: ptr("/images/uploads/a.png")})
	b := mustItem(t, database, model.Item{CategoryID: doomed.ID, Name: "B", Image: ptr("https://example.com/b.png")})
	mustItem(t, database, model.Item{CategoryID: doomed.ID, Name: "C"})
	other := mustItem(t, database, model.Item{CategoryID: kept.ID, Name: "Other"})

	for _, id := range []int64{a.ID, b.ID, other.ID} {
		_, err := ToggleBooking(ctx, database, id, "ana", *day(1))
		require.NoError(t, err)
	}

	deleted, err := DeleteCategory(ctx, database, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted.Items)
	assert.EqualValues(t, 2, deleted.Bookings)
	assert.ElementsMatch(t, []string{"/images/uploads/a.png", "https://example.com/b.png"}, deleted.Images)

	gone, err := GetCategory(ctx, database, doomed.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := CountItems(ctx, database, ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bookings, err := ListBookings(ctx, database, 0, "")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, other.ID, bookings[0].ItemID)

	_, err = DeleteCategory(ctx, database, doomed.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEmptyCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := mustCategory(t, database, "Empty")

	deleted, err := DeleteCategory(ctx, database, c.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted.Items)
	assert.Empty(t, deleted.Images)
}
