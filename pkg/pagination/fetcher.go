// Package pagination provides parallel fetching of all pages of a
// date-bounded procurement API query.
package pagination

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bidwatch/koneps-sync/pkg/koneps"
)

// Config holds fetcher configuration.
type Config struct {
	// MaxWorkers is the size of the worker pool for pages 2..N.
	MaxWorkers int

	// RowsPerPage is the page size requested from the upstream.
	RowsPerPage int
}

// DefaultConfig returns safe defaults for the procurement API.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:  5,
		RowsPerPage: 100,
	}
}

// PageClient is the single-page fetch operation the fetcher fans out over.
type PageClient interface {
	FetchPage(ctx context.Context, endpoint string, params url.Values, pageNo int) (*koneps.PageResult, error)
}

// Fetcher fans a paginated query out over a fixed-size worker pool.
type Fetcher struct {
	client PageClient
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher over the given page client.
func NewFetcher(client PageClient, config Config, logger zerolog.Logger) *Fetcher {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 5
	}
	if config.RowsPerPage <= 0 {
		config.RowsPerPage = 100
	}

	return &Fetcher{
		client: client,
		config: config,
		logger: logger.With().Str("component", "page-fetcher").Logger(),
	}
}

// TotalPages computes how many pages a query spans.
func TotalPages(totalCount, rowsPerPage int) int {
	if totalCount <= 0 || rowsPerPage <= 0 {
		return 0
	}
	return (totalCount + rowsPerPage - 1) / rowsPerPage
}

// pageOutcome is one worker's result; failed pages carry zero items.
type pageOutcome struct {
	pageNo int
	items  []json.RawMessage
}

// FetchAllPages fetches every page of the query and returns the accumulated
// items. Page 1 is fetched synchronously to discover the total row count;
// if it fails there is nothing to do and the result is empty. Pages 2..N are
// fetched by the worker pool; a failing page is logged and contributes zero
// items without aborting the others. Item order follows completion order,
// not page order.
func (f *Fetcher) FetchAllPages(ctx context.Context, endpoint string, params url.Values, maxPages int) []json.RawMessage {
	start := time.Now()

	query := cloneValues(params)
	query.Set("numOfRows", strconv.Itoa(f.config.RowsPerPage))

	first, err := f.client.FetchPage(ctx, endpoint, query, 1)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Msg("First page fetch failed, nothing to do")
		return nil
	}

	totalPages := TotalPages(first.TotalCount, f.config.RowsPerPage)
	if maxPages > 0 && totalPages > maxPages {
		totalPages = maxPages
	}

	f.logger.Info().
		Str("endpoint", endpoint).
		Int("total_count", first.TotalCount).
		Int("total_pages", totalPages).
		Msg("Starting paginated fetch")

	items := append([]json.RawMessage(nil), first.Items...)
	if totalPages <= 1 {
		f.logger.Info().
			Str("endpoint", endpoint).
			Int("items", len(items)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return items
	}

	remaining := totalPages - 1
	pageQueue := make(chan int, remaining)
	outcomes := make(chan pageOutcome, remaining)

	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	var wg sync.WaitGroup
	workers := f.config.MaxWorkers
	if workers > remaining {
		workers = remaining
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, endpoint, query, pageQueue, outcomes, &wg)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	fetchedPages := 1
	for outcome := range outcomes {
		if len(outcome.items) > 0 {
			items = append(items, outcome.items...)
		}
		fetchedPages++
		if fetchedPages%50 == 0 {
			f.logger.Info().
				Int("pages", fetchedPages).
				Int("total", totalPages).
				Int("items", len(items)).
				Msg("Fetch progress")
		}
	}

	f.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", fetchedPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items
}

// worker drains the page queue. Failures are folded into empty outcomes so
// the collector always receives one outcome per page.
func (f *Fetcher) worker(ctx context.Context, endpoint string, params url.Values, pageQueue <-chan int, outcomes chan<- pageOutcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for pageNo := range pageQueue {
		select {
		case <-ctx.Done():
			outcomes <- pageOutcome{pageNo: pageNo}
			continue
		default:
		}

		result, err := f.client.FetchPage(ctx, endpoint, params, pageNo)
		if err != nil {
			f.logger.Warn().
				Err(err).
				Int("page", pageNo).
				Msg("Page fetch failed, skipping")
			outcomes <- pageOutcome{pageNo: pageNo}
			continue
		}

		outcomes <- pageOutcome{pageNo: pageNo, items: result.Items}
	}
}

func cloneValues(params url.Values) url.Values {
	out := make(url.Values, len(params)+1)
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
