package importer

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/db"
	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/store"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	im      *Importer
	db      *sql.DB
	uploads imaging.Uploads
	metrics *metrics.Metrics
	srv     *httptest.Server
	hits    *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, ".html") {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<p>not an image</p>"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	database := db.NewTestDB(t)
	uploads := imaging.Uploads{Dir: t.TempDir()}
	m := metrics.New()
	mat := imaging.NewMaterializer(uploads, 5*time.Second, 1<<20, zap.NewNop(), m)

	im := New(database, uploads, mat, 4, zap.NewNop(), m)
	im.Now = func() time.Time { return fixedNow }

	return &fixture{im: im, db: database, uploads: uploads, metrics: m, srv: srv, hits: hits}
}

func (f *fixture) run(t *testing.T, payload string) *Result {
	t.Helper()
	raws, err := ParsePayload([]byte(payload))
	require.NoError(t, err)
	res, err := f.im.Import(context.Background(), raws)
	require.NoError(t, err)
	return res
}

func TestImportIsolatesFailedRecords(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `[
		{"name": "First", "category_name": "Misc"},
		{"category_name": "Misc", "price": 3},
		{"name": "Third", "category_name": "Misc"}
	]`)

	assert.False(t, res.OK())
	require.Len(t, res.Created, 2)
	assert.Equal(t, "First", res.Created[0].Name)
	assert.Equal(t, "Third", res.Created[1].Name)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, RecordError{Index: 1, Error: MsgMissingName}, res.Errors[0])

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ImportRecords.WithLabelValues(metrics.ImportCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ImportRecords.WithLabelValues(metrics.ImportFailed)))
}

func TestImportCreatesCategoryOncePerBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.run(t, `[
		{"name": "Zelda", "category_name": "Gaming", "category_description": "Games"},
		{"name": "Mario", "category_name": "gaming "}
	]`)
	require.True(t, res.OK())
	require.Len(t, res.Created, 2)

	categories, err := store.ListCategories(ctx, f.db)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Gaming", categories[0].Name)
	require.NotNil(t, categories[0].Description)
	assert.Equal(t, "Games", *categories[0].Description)

	for _, item := range res.Created {
		assert.Equal(t, categories[0].ID, item.CategoryID)
	}
}

func TestImportReusesExistingCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	books, err := store.CreateCategory(ctx, f.db, "Books", nil)
	require.NoError(t, err)

	res := f.run(t, `{"name": "Dune", "category_name": "BOOKS"}`)
	require.True(t, res.OK())
	require.Len(t, res.Created, 1)
	assert.Equal(t, books.ID, res.Created[0].CategoryID)
	assert.Equal(t, "Books", res.Created[0].Category.Name)
}

func TestImportCategoryID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	books, err := store.CreateCategory(ctx, f.db, "Books", nil)
	require.NoError(t, err)

	res := f.run(t, `[
		{"name": "Numeric", "category_id": `+itoa(books.ID)+`},
		{"name": "String", "category_id": "`+itoa(books.ID)+`", "category_name": "Ignored"},
		{"name": "Unknown", "category_id": 9999},
		{"name": "Neither"}
	]`)

	require.Len(t, res.Created, 2)
	for _, item := range res.Created {
		assert.Equal(t, books.ID, item.CategoryID)
	}
	require.Len(t, res.Errors, 2)
	assert.Equal(t, RecordError{Index: 2, Name: "Unknown", Error: "category does not exist"}, res.Errors[0])
	assert.Equal(t, RecordError{Index: 3, Name: "Neither", Error: MsgMissingCategory}, res.Errors[1])

	categories, err := store.ListCategories(ctx, f.db)
	require.NoError(t, err)
	assert.Len(t, categories, 1, "category_id wins over category_name")
}

func TestImportDefaults(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `{"name": "Plain", "category_name": "Misc", "description": "", "price": "12.5"}`)
	require.Len(t, res.Created, 1)

	item := res.Created[0]
	assert.False(t, item.Owned)
	assert.Nil(t, item.Description)
	assert.Nil(t, item.Link)
	assert.Nil(t, item.Image)
	require.NotNil(t, item.Price)
	assert.Equal(t, 12.5, *item.Price)
	require.NotNil(t, item.LastInterestDate)
	assert.True(t, item.LastInterestDate.Equal(fixedNow))
}

func TestImportKeepsGivenInterestDate(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `{"name": "Dated", "category_name": "Misc", "owned": true, "last_interest_date": "2023-05-04T03:02:01Z"}`)
	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].Owned)
	assert.True(t, res.Created[0].LastInterestDate.Equal(time.Date(2023, 5, 4, 3, 2, 1, 0, time.UTC)))
}

func TestImportMaterializesImages(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `[
		{"name": "Pic", "category_name": "Misc", "image": "`+f.srv.URL+`/a.png"},
		{"name": "Page", "category_name": "Misc", "image": "`+f.srv.URL+`/page.html"}
	]`)
	require.True(t, res.OK(), "a failed image never fails the record")
	require.Len(t, res.Created, 2)

	pic := res.Created[0]
	require.NotNil(t, pic.Image)
	assert.True(t, imaging.IsLocal(*pic.Image))
	assert.FileExists(t, f.uploads.Path(*pic.Image))

	assert.Nil(t, res.Created[1].Image)
}

func TestImportSkipsImagesOfInvalidRecords(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `[
		{"category_name": "Misc", "image": "`+f.srv.URL+`/a.png"},
		{"name": "No category", "image": "`+f.srv.URL+`/b.png"}
	]`)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Errors, 2)
	assert.Zero(t, f.hits.Load())
}

func TestImportRemovesImageOfFailedRecord(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `{"name": "Orphan", "category_id": 77, "image": "`+f.srv.URL+`/a.png"}`)
	require.Len(t, res.Errors, 1)
	assert.EqualValues(t, 1, f.hits.Load())

	entries, err := os.ReadDir(f.uploads.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportReportsUndecodableRecord(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `[{"name": "Bad", "category_name": "Misc", "owned": "yes"}, 42, {"name": "Good", "category_name": "Misc"}]`)
	require.Len(t, res.Created, 1)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 0, res.Errors[0].Index)
	assert.Equal(t, "Bad", res.Errors[0].Name)
	assert.Contains(t, res.Errors[0].Error, "invalid record")
	assert.Equal(t, 1, res.Errors[1].Index)
}

func TestImportEmptyBatch(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `[]`)
	assert.True(t, res.OK())
	assert.NotNil(t, res.Created)
	assert.Empty(t, res.Created)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
