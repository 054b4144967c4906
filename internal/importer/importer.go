// Package importer implements bulk creation of items from loosely typed
// records, resolving categories by name and fetching remote images.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// Record error messages.
const (
	MsgMissingName     = "Missing name"
	MsgMissingCategory = "Missing category_id or category_name"
)

// Materializer stores a remote image locally.
type Materializer interface {
	Materialize(ctx context.Context, rawURL string) imaging.Result
}

// RecordError describes a record that was not imported.
type RecordError struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// Result is the outcome of a batch. Records are independent: a failed
// record never undoes or blocks the others.
type Result struct {
	Created []model.Item  `json:"created"`
	Errors  []RecordError `json:"errors"`
}

// OK reports whether every record was imported.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Importer runs import batches.
type Importer struct {
	db       *sql.DB
	uploads  imaging.Uploads
	images   Materializer
	fetchers int
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// Now supplies the default interest date.
	Now func() time.Time
}

// New creates an Importer that fetches at most fetchers images at once.
func New(db *sql.DB, uploads imaging.Uploads, images Materializer, fetchers int, logger *zap.Logger, m *metrics.Metrics) *Importer {
	return &Importer{
		db:       db,
		uploads:  uploads,
		images:   images,
		fetchers: max(fetchers, 1),
		logger:   logger,
		metrics:  m,
		Now:      time.Now,
	}
}

// Import creates an item for every valid record. Records are processed in
// order so that a category created for one record is reused by later ones.
// Images are fetched ahead of time in parallel. An error is returned only
// when the batch cannot start; per-record failures go to Result.Errors.
func (im *Importer) Import(ctx context.Context, raws []json.RawMessage) (*Result, error) {
	resolver, err := NewCategoryResolver(ctx, im.db)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, len(raws))
	decodeErrs := make([]error, len(raws))
	for i, raw := range raws {
		records[i], decodeErrs[i] = decodeRecord(raw)
	}

	images := im.prefetch(ctx, records)

	res := &Result{Created: []model.Item{}, Errors: []RecordError{}}
	for i, rec := range records {
		var item *model.Item
		err := decodeErrs[i]
		if err == nil {
			item, err = im.importRecord(ctx, resolver, rec, images[i])
		}
		if err != nil {
			if images[i] != nil {
				im.removeImage(*images[i])
			}
			name := recordName(raws[i])
			res.Errors = append(res.Errors, RecordError{Index: i, Name: name, Error: recordMessage(err)})
			im.metrics.ImportRecords.WithLabelValues(metrics.ImportFailed).Inc()
			im.logger.Warn("import record failed", zap.Int("index", i), zap.String("name", name), zap.Error(err))
			continue
		}
		res.Created = append(res.Created, *item)
		im.metrics.ImportRecords.WithLabelValues(metrics.ImportCreated).Inc()
	}

	im.logger.Info("import finished",
		zap.Int("records", len(raws)),
		zap.Int("created", len(res.Created)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("categories_created", len(resolver.Created())))
	return res, nil
}

// prefetch materializes the images of records that pass the cheap checks.
// The returned slice is indexed like records; nil means no local image.
func (im *Importer) prefetch(ctx context.Context, records []*Record) []*string {
	images := make([]*string, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.fetchers)
	for i, rec := range records {
		if rec == nil || rec.Name == "" || rec.Image == nil || strings.TrimSpace(*rec.Image) == "" {
			continue
		}
		if rec.CategoryID == "" && rec.CategoryName == "" {
			continue
		}
		url := strings.TrimSpace(*rec.Image)
		g.Go(func() error {
			images[i] = im.images.Materialize(gctx, url).PathOrNil()
			return nil
		})
	}
	// Materialize never fails; soft failures leave a nil entry.
	_ = g.Wait()

	return images
}

func (im *Importer) importRecord(ctx context.Context, resolver *CategoryResolver, rec *Record, image *string) (*model.Item, error) {
	if rec.Name == "" {
		return nil, errors.New(MsgMissingName)
	}

	var categoryID int64
	switch {
	case rec.CategoryID != "" && rec.CategoryID != "0":
		id, err := strconv.ParseInt(rec.CategoryID.String(), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid category_id %q", rec.CategoryID)
		}
		categoryID = id
	case rec.CategoryName != "":
		c, err := resolver.Resolve(ctx, rec.CategoryName, rec.CategoryDescription)
		if err != nil {
			return nil, fmt.Errorf("resolving category: %w", err)
		}
		categoryID = c.ID
	default:
		return nil, errors.New(MsgMissingCategory)
	}

	item := &model.Item{
		CategoryID:       categoryID,
		Name:             rec.Name,
		Description:      blankToNil(rec.Description),
		Link:             blankToNil(rec.Link),
		Image:            image,
		Owned:            rec.Owned,
		LastInterestDate: rec.LastInterestDate,
	}
	if rec.Price != "" {
		p, err := rec.Price.Float64()
		if err != nil || p < 0 {
			return nil, fmt.Errorf("invalid price %q", rec.Price)
		}
		item.Price = &p
	}
	if item.LastInterestDate == nil {
		now := im.Now()
		item.LastInterestDate = &now
	}

	return store.CreateItem(ctx, im.db, item)
}

// recordMessage turns a record failure into the message reported to the
// caller.
func recordMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrReference):
		return "category does not exist"
	case errors.Is(err, store.ErrConflict):
		return "conflicts with an existing record"
	}
	return err.Error()
}

func (im *Importer) removeImage(image string) {
	if _, err := im.uploads.Remove(image); err != nil {
		im.logger.Warn("removing image file", zap.String("image", image), zap.Error(err))
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
