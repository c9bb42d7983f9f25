package pricing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
)

// FetcherOptions tunes a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	MaxAge      time.Duration
	Timeout     time.Duration
	Concurrency int64
}

// Fetcher looks up quotes one symbol at a time. Concurrent callers for the
// same symbol share a single outbound lookup, fresh cache entries short-cut
// the network entirely, and at most Concurrency lookups are outstanding.
type Fetcher struct {
	source  QuoteSource
	cache   *QuoteCache
	group   singleflight.Group
	sem     *semaphore.Weighted
	maxAge  time.Duration
	timeout time.Duration
	seq     atomic.Uint64
	nowFunc func() time.Time
	logger  *logrus.Entry
}

func NewFetcher(source QuoteSource, cache *QuoteCache, opts FetcherOptions, logger *logrus.Logger) *Fetcher {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Fetcher{
		source:  source,
		cache:   cache,
		sem:     semaphore.NewWeighted(opts.Concurrency),
		maxAge:  opts.MaxAge,
		timeout: opts.Timeout,
		nowFunc: time.Now,
		logger:  logger.WithField("component", "quote-fetcher"),
	}
}

// Fetch returns a quote for symbol. Failures are always *FetchError.
// Cancelling ctx abandons the wait but not a lookup other callers share.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	if q, ok := f.cache.fresh(symbol, f.maxAge); ok {
		return q, nil
	}
	ch := f.group.DoChan(symbol, func() (interface{}, error) {
		return f.lookup(ctx, symbol)
	})
	select {
	case res := <-ch:
		if res.Shared {
			f.logger.WithField("symbol", symbol).Debug("joined in-flight quote lookup")
		}
		if res.Err != nil {
			return models.Quote{}, newFetchError(symbol, res.Err)
		}
		return res.Val.(models.Quote), nil
	case <-ctx.Done():
		return models.Quote{}, newFetchError(symbol, ctx.Err())
	}
}

type lookupResult struct {
	quote models.Quote
	err   error
}

func (f *Fetcher) lookup(parent context.Context, symbol string) (models.Quote, error) {
	// The lookup outlives any single caller; only the timeout ends it early.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
	defer cancel()

	seq := f.seq.Add(1)
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return models.Quote{}, fmt.Errorf("waiting for lookup slot: %w", err)
	}

	// The slot is held until the source returns, even past the timeout.
	done := make(chan lookupResult, 1)
	go func() {
		defer f.sem.Release(1)
		q, err := f.source.Quote(ctx, symbol)
		done <- lookupResult{quote: q, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return models.Quote{}, fmt.Errorf("no reply within %s: %w", f.timeout, ctx.Err())
	}
	if res.err != nil {
		return models.Quote{}, res.err
	}

	q := res.quote
	q.Symbol = symbol
	q.FetchedAt = f.nowFunc()
	q.Seq = seq
	f.cache.Put(symbol, q)
	f.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  q.Price.String(),
		"seq":    seq,
	}).Debug("quote fetched")
	return q, nil
}

// Search passes query through to the source, bounded by the fetch timeout.
func (f *Fetcher) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.source.Search(ctx, query)
}
