package catalog

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/db"
	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// fakeMaterializer stores the URL itself as the image body.
type fakeMaterializer struct {
	uploads imaging.Uploads
	fail    bool
	calls   []string
}

func (f *fakeMaterializer) Materialize(_ context.Context, rawURL string) imaging.Result {
	f.calls = append(f.calls, rawURL)
	if f.fail {
		return imaging.Result{Reason: imaging.ReasonNotImage}
	}
	p, err := f.uploads.Save([]byte(rawURL), "png")
	if err != nil {
		return imaging.Result{Reason: imaging.ReasonWriteError}
	}
	return imaging.Result{Path: p, Reason: imaging.ReasonOK}
}

type fixture struct {
	svc     *Service
	db      *sql.DB
	uploads imaging.Uploads
	images  *fakeMaterializer
	metrics *metrics.Metrics
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	uploads := imaging.Uploads{Dir: t.TempDir()}
	images := &fakeMaterializer{uploads: uploads}
	m := metrics.New()

	svc := New(database, uploads, images, zap.NewNop(), m)
	svc.Now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, db: database, uploads: uploads, images: images, metrics: m}
}

func (f *fixture) category(t *testing.T, name string) *model.Category {
	t.Helper()
	c, err := store.CreateCategory(context.Background(), f.db, name, nil)
	require.NoError(t, err)
	return c
}

func (f *fixture) files(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.uploads.Dir)
	require.NoError(t, err)
	return len(entries)
}

func ptr[T any](v T) *T { return &v }
