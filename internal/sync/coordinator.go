// Package sync implements the batch synchronization pipeline: paginated
// fetch from the procurement API, normalization, deduplication and
// transactional bulk insertion.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bidwatch/koneps-sync/internal/entity"
	"github.com/bidwatch/koneps-sync/pkg/koneps"
	"github.com/bidwatch/koneps-sync/pkg/pagination"
)

// Prometheus metrics for sync invocations.
var (
	syncFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_fetched_total",
		Help: "Total items fetched from the upstream by dataset",
	}, []string{"dataset"})

	syncInsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_inserted_total",
		Help: "Total items inserted into storage by dataset",
	}, []string{"dataset"})

	syncDuplicatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_duplicates_total",
		Help: "Total fetched items dropped as already stored, by dataset",
	}, []string{"dataset"})

	syncDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Duration of sync invocations by dataset",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"dataset"})
)

// Upstream endpoints of the public-data open-standard service.
const (
	noticeEndpoint = "/getDataSetOpnStdBidPblancInfo"
	awardEndpoint  = "/getDataSetOpnStdScsbidInfo"
)

// DefaultBaseURL is the production procurement API base.
const DefaultBaseURL = "http://apis.data.go.kr/1230000/ao/PubDataOpnStdService"

// NoticeStorage is the notice-side storage collaborator.
type NoticeStorage interface {
	ExistingKeys(ctx context.Context) (map[entity.NoticeKey]struct{}, error)
	InsertBatch(ctx context.Context, notices []entity.Notice) (int, error)
}

// AwardStorage is the award-side storage collaborator.
type AwardStorage interface {
	InsertBatch(ctx context.Context, awards []entity.Award) (int, error)
}

// KeySource provides the active upstream credential.
type KeySource interface {
	ActiveServiceKey(ctx context.Context) (string, error)
}

// Locker serializes sync invocations. Acquire returns a release func, or
// an error when another sync holds the lease.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

// nopLocker is used when no shared lock backend is configured.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

// Config holds coordinator configuration.
type Config struct {
	// BaseURL of the upstream service (default DefaultBaseURL).
	BaseURL string

	// RowsPerPage requested from the upstream (default 100).
	RowsPerPage int

	// MaxWorkers for the parallel page fetch (default 5).
	MaxWorkers int

	// Timeout per upstream HTTP request (default 30s).
	Timeout time.Duration

	// MaxAttempts per standalone upstream call, e.g. key verification
	// (default 3). Pool pages are attempted once.
	MaxAttempts int

	// RetryDelay between attempts of standalone calls (default 2s).
	RetryDelay time.Duration
}

// Coordinator runs one sync invocation end to end and accumulates its
// statistics. All mutable per-invocation state (the API call counter in
// particular) lives in the per-call client, never in process globals.
type Coordinator struct {
	config  Config
	notices NoticeStorage
	awards  AwardStorage
	keys    KeySource
	lock    Locker
	logger  zerolog.Logger
}

// New creates a coordinator. A nil locker disables sync serialization,
// which is acceptable only when a single process triggers syncs.
func New(config Config, notices NoticeStorage, awards AwardStorage, keys KeySource, lock Locker, logger zerolog.Logger) *Coordinator {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.RowsPerPage <= 0 {
		config.RowsPerPage = 100
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = koneps.DefaultTimeout
	}
	defaults := koneps.DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.Delay
	}
	if lock == nil {
		lock = nopLocker{}
	}

	return &Coordinator{
		config:  config,
		notices: notices,
		awards:  awards,
		keys:    keys,
		lock:    lock,
		logger:  logger.With().Str("component", "sync").Logger(),
	}
}

// SyncNotices pulls every bid notice registered inside [startDate, endDate]
// (8-digit dates) and inserts the ones not yet stored. Zero fetched items
// is not an error; only a storage failure is.
func (c *Coordinator) SyncNotices(ctx context.Context, startDate, endDate string, maxPages int) (*Result, error) {
	key, err := c.keys.ActiveServiceKey(ctx)
	if err != nil {
		return nil, err
	}

	release, err := c.lock.Acquire(ctx, "notices")
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	logger := c.logger.With().
		Str("dataset", "notices").
		Str("start_date", startDate).
		Str("end_date", endDate).
		Logger()
	logger.Info().Msg("Sync started")

	params := url.Values{}
	params.Set("bidNtceBgnDt", startDate+"0000")
	params.Set("bidNtceEndDt", endDate+"2359")

	client, raw, err := c.fetch(ctx, key, noticeEndpoint, params, maxPages, logger)
	if err != nil {
		return nil, err
	}

	notices := make([]entity.Notice, 0, len(raw))
	for _, item := range raw {
		n, err := NoticeFromRaw(item)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping undecodable notice item")
			continue
		}
		notices = append(notices, n)
	}

	existing, err := c.notices.ExistingKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing notice keys: %w", err)
	}

	fresh := FilterNewNotices(notices, existing)
	inserted, err := c.notices.InsertBatch(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("bulk insert notices: %w", err)
	}

	return c.finish("notices", logger, len(raw), inserted, client.Calls(), start), nil
}

// SyncAwards pulls every successful-bid outcome opened inside
// [startDate, endDate]. Awards are append-only: no deduplication is
// applied, callers keep their date windows non-overlapping.
func (c *Coordinator) SyncAwards(ctx context.Context, startDate, endDate string, maxPages int) (*Result, error) {
	key, err := c.keys.ActiveServiceKey(ctx)
	if err != nil {
		return nil, err
	}

	release, err := c.lock.Acquire(ctx, "awards")
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	logger := c.logger.With().
		Str("dataset", "awards").
		Str("start_date", startDate).
		Str("end_date", endDate).
		Logger()
	logger.Info().Msg("Sync started")

	params := url.Values{}
	params.Set("opengBgnDt", startDate+"0000")
	params.Set("opengEndDt", endDate+"2359")

	client, raw, err := c.fetch(ctx, key, awardEndpoint, params, maxPages, logger)
	if err != nil {
		return nil, err
	}

	awards := make([]entity.Award, 0, len(raw))
	for _, item := range raw {
		a, err := AwardFromRaw(item)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping undecodable award item")
			continue
		}
		awards = append(awards, a)
	}

	inserted, err := c.awards.InsertBatch(ctx, awards)
	if err != nil {
		return nil, fmt.Errorf("bulk insert awards: %w", err)
	}

	return c.finish("awards", logger, len(raw), inserted, client.Calls(), start), nil
}

// VerifyKey probes the notice endpoint with the given service key through
// the retry policy, asking for a single row of today's window.
func (c *Coordinator) VerifyKey(ctx context.Context, key string) error {
	client, err := koneps.New(koneps.Config{
		BaseURL:    c.config.BaseURL,
		ServiceKey: key,
		Timeout:    c.config.Timeout,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	today := time.Now().Format("20060102")
	params := url.Values{}
	params.Set("bidNtceBgnDt", today+"0000")
	params.Set("bidNtceEndDt", today+"2359")
	params.Set("numOfRows", "1")

	_, err = koneps.CallWithRetry(ctx, c.logger, c.retryConfig(), func() (*koneps.PageResult, error) {
		return client.FetchPage(ctx, noticeEndpoint, params, 1)
	})
	return err
}

func (c *Coordinator) retryConfig() koneps.RetryConfig {
	return koneps.RetryConfig{
		MaxAttempts: c.config.MaxAttempts,
		Delay:       c.config.RetryDelay,
	}
}

// fetch builds the per-invocation client and runs the parallel page fetch.
// Pool pages are attempted exactly once each; the retry policy applies only
// to standalone calls such as VerifyKey.
func (c *Coordinator) fetch(ctx context.Context, key, endpoint string, params url.Values, maxPages int, logger zerolog.Logger) (*koneps.Client, []json.RawMessage, error) {
	client, err := koneps.New(koneps.Config{
		BaseURL:    c.config.BaseURL,
		ServiceKey: key,
		Timeout:    c.config.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	fetcher := pagination.NewFetcher(client, pagination.Config{
		MaxWorkers:  c.config.MaxWorkers,
		RowsPerPage: c.config.RowsPerPage,
	}, logger)

	return client, fetcher.FetchAllPages(ctx, endpoint, params, maxPages), nil
}

func (c *Coordinator) finish(dataset string, logger zerolog.Logger, fetched, inserted int, apiCalls int64, start time.Time) *Result {
	elapsed := time.Since(start)
	result := newResult(fetched, inserted, apiCalls, elapsed.Seconds())

	syncFetchedTotal.WithLabelValues(dataset).Add(float64(result.TotalFetched))
	syncInsertedTotal.WithLabelValues(dataset).Add(float64(result.Inserted))
	syncDuplicatesTotal.WithLabelValues(dataset).Add(float64(result.Duplicates))
	syncDurationSeconds.WithLabelValues(dataset).Observe(elapsed.Seconds())

	logger.Info().
		Int("total_fetched", result.TotalFetched).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Int64("api_calls", result.APICalls).
		Float64("elapsed_seconds", result.ElapsedSeconds).
		Float64("items_per_second", result.ItemsPerSecond).
		Msg("Sync complete")

	return result
}
