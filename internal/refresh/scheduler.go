package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the refresh period. cron truncates intervals to whole
// seconds with a one second minimum.
const DefaultInterval = 60 * time.Second

// State is the scheduler lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (models.Quote, error)
}

type Invalidator interface {
	Invalidate(symbol string)
}

// Sink receives the outcome of every lookup.
type Sink interface {
	ApplyQuote(quote models.Quote) bool
	ReportFetchError(symbol string, err error)
}

// Report summarises one refresh cycle.
type Report struct {
	Refreshed int
	Failed    []string
}

// Scheduler re-fetches every tracked symbol once per interval while at least
// one symbol is tracked.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	fetcher  Fetcher
	cache    Invalidator
	sink     Sink
	symbols  []string
	cron     *cron.Cron
	cancel   context.CancelFunc
	cycles   atomic.Int64
	logger   *logrus.Entry
}

func NewScheduler(fetcher Fetcher, cache Invalidator, sink Sink, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		fetcher:  fetcher,
		cache:    cache,
		sink:     sink,
		logger:   logger.WithField("component", "refresh-scheduler"),
	}
}

// Sync replaces the tracked symbol set. A non-empty set arms the timer if it
// is not armed yet, an empty set disarms it. The cycle boundary is left alone
// when the timer is already armed; the new set is read at the next tick.
func (s *Scheduler) Sync(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append([]string(nil), symbols...)
	switch {
	case len(s.symbols) > 0 && s.cron == nil:
		s.startLocked()
	case len(s.symbols) == 0 && s.cron != nil:
		s.stopLocked()
	}
}

// Stop disarms the timer regardless of the tracked set. Lookups already in
// flight finish on their own; no new lookup is issued afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.stopLocked()
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return StateIdle
	}
	return StateRunning
}

// Cycles returns how many timer-driven cycles have run.
func (s *Scheduler) Cycles() int64 {
	return s.cycles.Load()
}

func (s *Scheduler) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.cycles.Add(1)
		s.RefreshNow(ctx)
	}))
	c.Start()
	s.cron = c
	s.cancel = cancel
	s.logger.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"symbols":  len(s.symbols),
	}).Info("quote refresh started")
}

func (s *Scheduler) stopLocked() {
	s.cancel()
	s.cron.Stop()
	s.cron = nil
	s.cancel = nil
	s.logger.Info("quote refresh stopped")
}

func (s *Scheduler) tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

// RefreshNow runs one cycle synchronously: every tracked symbol's cache entry
// is invalidated and all symbols are fetched concurrently. A failing symbol
// does not hold up or cancel the others.
func (s *Scheduler) RefreshNow(ctx context.Context) Report {
	symbols := s.tracked()
	for _, symbol := range symbols {
		s.cache.Invalidate(symbol)
	}

	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		symbol := symbol
		g.Go(func() error {
			q, err := s.fetcher.Fetch(ctx, symbol)
			if err != nil {
				if ctx.Err() != nil {
					// Torn down mid-cycle; nobody wants this result.
					return nil
				}
				s.sink.ReportFetchError(symbol, err)
				mu.Lock()
				report.Failed = append(report.Failed, symbol)
				mu.Unlock()
				return nil
			}
			s.sink.ApplyQuote(q)
			mu.Lock()
			report.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(logrus.Fields{
		"refreshed": report.Refreshed,
		"failed":    len(report.Failed),
	}).Debug("refresh cycle complete")
	return report
}
