package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/GooferByte/networth/internal/networth"
	"github.com/GooferByte/networth/internal/portfolio"
	"github.com/GooferByte/networth/internal/pricing"
	"github.com/GooferByte/networth/internal/refresh"
	"github.com/GooferByte/networth/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation = errors.New("validation_error")
	ErrDuplicate  = portfolio.ErrDuplicateSymbol
)

const persistTimeout = 5 * time.Second

// Options tunes a Session. Zero values select package defaults.
type Options struct {
	SessionKey      string
	QuoteMaxAge     time.Duration
	QuoteTimeout    time.Duration
	RefreshInterval time.Duration
	Concurrency     int64
}

// Session owns one quote cache, fetcher, ledger and refresh scheduler. It
// persists the portfolio after every ledger change and keeps the net-worth
// trajectory current.
type Session struct {
	key       string
	store     repository.Store
	cache     *pricing.QuoteCache
	fetcher   *pricing.Fetcher
	ledger    *portfolio.Ledger
	scheduler *refresh.Scheduler
	now       func() time.Time
	logger    *logrus.Entry

	persistMu sync.Mutex
	syncMu    sync.Mutex

	mu           sync.RWMutex
	transactions []models.TransactionRecord
	fetchErrors  map[string]string
	result       networth.Result
	warned       map[networth.Warning]struct{}
	unsubscribe  func()
}

// NewSession builds a Session. Call Start before use and Close when done.
func NewSession(store repository.Store, source pricing.QuoteSource, opts Options, logger *logrus.Logger) *Session {
	if opts.SessionKey == "" {
		opts.SessionKey = "default"
	}
	cache := pricing.NewQuoteCache()
	fetcher := pricing.NewFetcher(source, cache, pricing.FetcherOptions{
		MaxAge:      opts.QuoteMaxAge,
		Timeout:     opts.QuoteTimeout,
		Concurrency: opts.Concurrency,
	}, logger)
	ledger := portfolio.NewLedger(fetcher, logger)
	s := &Session{
		key:         opts.SessionKey,
		store:       store,
		cache:       cache,
		fetcher:     fetcher,
		ledger:      ledger,
		scheduler:   refresh.NewScheduler(fetcher, cache, ledger, opts.RefreshInterval, logger),
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.WithFields(logrus.Fields{"component": "session", "session": opts.SessionKey}),
		fetchErrors: make(map[string]string),
		warned:      make(map[networth.Warning]struct{}),
		result:      networth.Result{Points: []models.NetWorthPoint{}, Warnings: []networth.Warning{}},
	}
	s.unsubscribe = ledger.Subscribe(s.onLedgerEvent)
	return s
}

// Start restores the persisted portfolio and transaction history and arms the
// refresh scheduler if any lot is held.
func (s *Session) Start(ctx context.Context) error {
	records, err := s.store.LoadLots(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}
	lots, repaired := s.restoreLots(records)
	s.ledger.Restore(lots)

	txs, err := s.store.ListTransactions(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	s.mu.Lock()
	s.transactions = txs
	s.mu.Unlock()

	if repaired {
		s.persist()
	}
	s.recompute()
	s.syncScheduler()
	s.logger.WithFields(logrus.Fields{
		"lots":         len(lots),
		"transactions": len(txs),
	}).Info("session started")
	return nil
}

func (s *Session) restoreLots(records []models.LotRecord) ([]models.InvestmentLot, bool) {
	repaired := false
	lots := make([]models.InvestmentLot, 0, len(records))
	for _, rec := range records {
		shares := decimal.NewFromFloat(rec.Shares)
		if rec.Symbol == "" || !shares.IsPositive() {
			s.logger.WithFields(logrus.Fields{"symbol": rec.Symbol, "shares": rec.Shares}).Warn("dropping invalid stored lot")
			repaired = true
			continue
		}
		purchased, err := models.ParseDate(rec.PurchasedDate)
		if err != nil {
			purchased = s.now()
			repaired = true
			s.logger.WithFields(logrus.Fields{
				"symbol":        rec.Symbol,
				"purchasedDate": rec.PurchasedDate,
			}).Warn("invalid purchase date, defaulting to today")
		}
		lots = append(lots, models.InvestmentLot{
			Symbol:        rec.Symbol,
			Shares:        shares,
			PurchasedDate: purchased,
			LatestQuote:   rec.Quote(),
		})
	}
	return lots, repaired
}

// Close disarms the scheduler and waits for lookups started by AddLot.
func (s *Session) Close() {
	s.scheduler.Stop()
	s.ledger.Wait()
	s.unsubscribe()
	s.logger.Info("session closed")
}

func (s *Session) onLedgerEvent(evt portfolio.Event) {
	switch evt.Kind {
	case portfolio.EventQuoteFailed:
		s.mu.Lock()
		s.fetchErrors[evt.Symbol] = fmt.Sprintf("Failed to fetch %s: %v", evt.Symbol, evt.Err)
		s.mu.Unlock()
		return
	case portfolio.EventQuoteApplied, portfolio.EventLotRemoved:
		s.mu.Lock()
		delete(s.fetchErrors, evt.Symbol)
		s.mu.Unlock()
	}
	s.persist()
	s.recompute()
	if evt.SetChanged() {
		s.syncScheduler()
	}
}

// syncScheduler hands the current symbol set to the scheduler. Reading the set
// and syncing happen under one lock so concurrent changes land in order.
func (s *Session) syncScheduler() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.scheduler.Sync(s.ledger.Symbols())
}

// persist writes the full current snapshot. The snapshot is taken under
// persistMu so the last write always carries the latest state.
func (s *Session) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveLots(ctx, s.key, s.ledger.Snapshot().Records()); err != nil {
		s.logger.WithError(err).Error("failed to persist portfolio")
	}
}

func (s *Session) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := networth.Aggregate(s.transactions, s.ledger.Snapshot())
	s.result = res
	for _, w := range res.Warnings {
		if _, seen := s.warned[w]; seen {
			continue
		}
		s.warned[w] = struct{}{}
		s.logger.WithFields(logrus.Fields{
			"source": w.Source,
			"ref":    w.Ref,
			"value":  w.Value,
			"reason": w.Reason,
		}).Warn("record skipped in net worth")
	}
}

// AddLotInput is the DTO consumed by AddLot.
type AddLotInput struct {
	Symbol        string
	Shares        decimal.Decimal
	PurchasedDate string
}

// AddLot validates and adds a lot. A missing or unreadable purchase date
// defaults to today.
func (s *Session) AddLot(ctx context.Context, input AddLotInput) (models.InvestmentLot, error) {
	symbol := normalizeSymbol(input.Symbol)
	if symbol == "" {
		return models.InvestmentLot{}, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if !input.Shares.IsPositive() {
		return models.InvestmentLot{}, fmt.Errorf("%w: shares must be positive", ErrValidation)
	}
	purchased := s.now()
	if input.PurchasedDate != "" {
		if d, err := models.ParseDate(input.PurchasedDate); err == nil {
			purchased = d
		} else {
			s.logger.WithFields(logrus.Fields{
				"symbol":        symbol,
				"purchasedDate": input.PurchasedDate,
			}).Warn("invalid purchase date, defaulting to today")
		}
	}
	if err := s.ledger.AddLot(ctx, symbol, input.Shares, purchased); err != nil {
		return models.InvestmentLot{}, err
	}
	lot, _ := s.ledger.Lot(symbol)
	return lot, nil
}

// RemoveLot removes the lot for symbol; unknown symbols are ignored.
func (s *Session) RemoveLot(symbol string) {
	s.ledger.RemoveLot(normalizeSymbol(symbol))
}

// Holding is a lot as shown to the user.
type Holding struct {
	models.InvestmentLot
	Value      decimal.Decimal
	FetchError string
}

// PortfolioView collates the /portfolio response.
type PortfolioView struct {
	Holdings   []Holding
	TotalValue decimal.Decimal
	Refresh    refresh.State
}

func (s *Session) Portfolio() PortfolioView {
	snap := s.ledger.Snapshot()
	state := s.scheduler.State()
	s.mu.RLock()
	defer s.mu.RUnlock()
	holdings := make([]Holding, 0, len(snap))
	for _, lot := range snap {
		holdings = append(holdings, Holding{
			InvestmentLot: lot,
			Value:         lot.Value(),
			FetchError:    s.fetchErrors[lot.Symbol],
		})
	}
	return PortfolioView{Holdings: holdings, TotalValue: snap.TotalValue(), Refresh: state}
}

// Quote returns a cache-first quote and applies it to the matching lot.
func (s *Session) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	q, err := s.fetcher.Fetch(ctx, symbol)
	if err != nil {
		s.ledger.ReportFetchError(symbol, err)
		return models.Quote{}, err
	}
	s.ledger.ApplyQuote(q)
	return q, nil
}

func (s *Session) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	return s.fetcher.Search(ctx, query)
}

// RefreshNow runs one refresh cycle immediately.
func (s *Session) RefreshNow(ctx context.Context) refresh.Report {
	return s.scheduler.RefreshNow(ctx)
}

// AddTransactionInput is the DTO consumed by AddTransaction.
type AddTransactionInput struct {
	Type     models.TransactionType
	Category string
	Amount   decimal.Decimal
	Date     string
}

// AddTransaction appends a record to the transaction ledger. The date is
// stored as given; unreadable dates are kept but left out of aggregation.
func (s *Session) AddTransaction(ctx context.Context, input AddTransactionInput) (models.TransactionRecord, error) {
	if !input.Type.Valid() {
		return models.TransactionRecord{}, fmt.Errorf("%w: type must be income or expense", ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return models.TransactionRecord{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = s.now().Format(models.DateLayout)
	} else if _, err := models.ParseDate(date); err != nil {
		s.logger.WithField("date", date).Warn("transaction date unreadable, it will be skipped in net worth")
	}
	tx := models.TransactionRecord{
		ID:       uuid.NewString(),
		Type:     input.Type,
		Category: strings.TrimSpace(input.Category),
		Amount:   input.Amount,
		Date:     date,
	}
	if err := s.store.AppendTransaction(ctx, s.key, tx); err != nil {
		return models.TransactionRecord{}, err
	}
	s.mu.Lock()
	s.transactions = append(s.transactions, tx)
	s.mu.Unlock()
	s.recompute()
	return tx, nil
}

func (s *Session) Transactions() []models.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TransactionRecord{}, s.transactions...)
}

// NetWorth returns the trajectory as of the latest change to either ledger.
func (s *Session) NetWorth() networth.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return networth.Result{
		Points:   append([]models.NetWorthPoint{}, s.result.Points...),
		Warnings: append([]networth.Warning{}, s.result.Warnings...),
	}
}

func (s *Session) ExpenseBreakdown() []networth.CategoryTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return networth.ExpensesByCategory(s.transactions)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
