package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/metrics"
)

// Materialization outcomes. Everything except ReasonOK is a soft failure.
const (
	ReasonOK          = "ok"
	ReasonInvalidURL  = "invalid_url"
	ReasonFetchError  = "fetch_error"
	ReasonBadStatus   = "bad_status"
	ReasonNotImage    = "not_image"
	ReasonTooLarge    = "too_large"
	ReasonWriteError  = "write_error"
	ReasonBreakerOpen = "breaker_open"
)

// Result is the outcome of a materialization. Path is set only on success.
type Result struct {
	Path   string
	Reason string
}

// OK reports whether the image was stored.
func (r Result) OK() bool { return r.Reason == ReasonOK }

// PathOrNil returns the stored path, or nil when nothing was stored.
func (r Result) PathOrNil() *string {
	if !r.OK() {
		return nil
	}
	p := r.Path
	return &p
}

// Materializer downloads remote images into Uploads.
type Materializer struct {
	uploads  Uploads
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewMaterializer creates a Materializer whose fetches are bounded by
// timeout and maxBytes. Repeated transport failures or 5xx responses from
// one host open that host's circuit breaker, so an unreachable host cannot
// stall a whole import while other hosts keep working.
func NewMaterializer(uploads Uploads, timeout time.Duration, maxBytes int64, logger *zap.Logger, m *metrics.Metrics) *Materializer {
	return &Materializer{
		uploads:  uploads,
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  m,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker returns the circuit breaker for host, creating it on first use.
func (m *Materializer) breaker(host string) *gobreaker.CircuitBreaker {
	host = strings.ToLower(host)

	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "image-fetch " + host,
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	m.breakers[host] = cb
	return cb
}

var errServerStatus = errors.New("server error status")

// Materialize fetches rawURL and stores it as a new file. It never returns
// an error: every failure is reported through Result.Reason. Each call
// stores an independent copy, even for a URL seen before.
func (m *Materializer) Materialize(ctx context.Context, rawURL string) Result {
	res := m.materialize(ctx, strings.TrimSpace(rawURL))
	m.metrics.ImageMaterializations.WithLabelValues(res.Reason).Inc()
	if res.OK() {
		m.logger.Debug("image stored", zap.String("url", rawURL), zap.String("path", res.Path))
	} else {
		m.logger.Warn("image not stored", zap.String("url", rawURL), zap.String("reason", res.Reason))
	}
	return res
}

func (m *Materializer) materialize(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if rawURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Result{Reason: ReasonInvalidURL}
	}

	start := time.Now()
	out, err := m.breaker(u.Host).Execute(func() (interface{}, error) {
		return m.fetch(ctx, u.String())
	})
	m.metrics.ImageFetchSeconds.Observe(time.Since(start).Seconds())
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Result{Reason: ReasonBreakerOpen}
	}
	if errors.Is(err, errServerStatus) {
		return Result{Reason: ReasonBadStatus}
	}
	if err != nil {
		return Result{Reason: ReasonFetchError}
	}

	f := out.(*fetched)
	if f.reason != "" {
		return Result{Reason: f.reason}
	}

	p, err := m.uploads.Save(f.data, extension(u.Path, f.mediaType))
	if err != nil {
		m.logger.Error("saving fetched image", zap.Error(err))
		return Result{Reason: ReasonWriteError}
	}
	return Result{Path: p, Reason: ReasonOK}
}

type fetched struct {
	data      []byte
	mediaType string
	reason    string
}

// fetch downloads one image. Only transport failures and 5xx responses are
// returned as errors, since those are what the breaker counts.
func (m *Materializer) fetch(ctx context.Context, rawURL string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &fetched{reason: ReasonInvalidURL}, nil
	}
	req.Header.Set("Accept", "image/*")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", errServerStatus, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &fetched{reason: ReasonBadStatus}, nil
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return &fetched{reason: ReasonNotImage}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	if int64(len(data)) > m.maxBytes {
		return &fetched{reason: ReasonTooLarge}, nil
	}

	return &fetched{data: data, mediaType: mediaType}, nil
}

var extPattern = regexp.MustCompile(`\.([a-zA-Z0-9]{1,8})$`)

// extension prefers the extension of the URL path and falls back to the
// subtype of the response media type.
func extension(urlPath, mediaType string) string {
	if m := extPattern.FindStringSubmatch(path.Base(urlPath)); m != nil {
		return strings.ToLower(m[1])
	}

	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return "jpg"
	}
	sub, _, _ = strings.Cut(sub, "+")
	sub = strings.ToLower(sub)
	if !extPattern.MatchString("." + sub) {
		return "jpg"
	}
	return sub
}
