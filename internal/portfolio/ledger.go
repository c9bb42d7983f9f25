package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateSymbol is returned when adding a symbol the ledger already holds.
	ErrDuplicateSymbol = errors.New("symbol already in portfolio")
	// ErrInvalidLot is returned for lots without a symbol or with non-positive shares.
	ErrInvalidLot = errors.New("invalid lot")
)

// QuoteFetcher is the lookup the ledger triggers when a lot is added.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (models.Quote, error)
}

// Ledger is the authoritative set of investment lots, at most one per symbol.
type Ledger struct {
	mu        sync.RWMutex
	lots      map[string]*models.InvestmentLot
	order     []string
	fetcher   QuoteFetcher
	listeners map[int]Listener
	nextID    int
	pending   sync.WaitGroup
	logger    *logrus.Entry
}

func NewLedger(fetcher QuoteFetcher, logger *logrus.Logger) *Ledger {
	return &Ledger{
		lots:      make(map[string]*models.InvestmentLot),
		fetcher:   fetcher,
		listeners: make(map[int]Listener),
		logger:    logger.WithField("component", "portfolio-ledger"),
	}
}

// Subscribe registers fn for every future change and returns a function that
// removes it.
func (l *Ledger) Subscribe(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

func (l *Ledger) notify(evt Event) {
	l.mu.RLock()
	listeners := make([]Listener, 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn(evt)
	}
}

// AddLot stores a new lot without a quote and starts a quote lookup for it in
// the background. The result is applied only if the lot still exists.
func (l *Ledger) AddLot(ctx context.Context, symbol string, shares decimal.Decimal, purchased time.Time) error {
	if symbol == "" || !shares.IsPositive() {
		return fmt.Errorf("%w: symbol %q shares %s", ErrInvalidLot, symbol, shares)
	}
	l.mu.Lock()
	if _, ok := l.lots[symbol]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
	}
	l.lots[symbol] = &models.InvestmentLot{Symbol: symbol, Shares: shares, PurchasedDate: purchased}
	l.order = append(l.order, symbol)
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{"symbol": symbol, "shares": shares.String()}).Info("lot added")
	l.notify(Event{Kind: EventLotAdded, Symbol: symbol})

	if l.fetcher != nil {
		l.pending.Add(1)
		go func() {
			defer l.pending.Done()
			l.refresh(context.WithoutCancel(ctx), symbol)
		}()
	}
	return nil
}

func (l *Ledger) refresh(ctx context.Context, symbol string) {
	q, err := l.fetcher.Fetch(ctx, symbol)
	if err != nil {
		l.ReportFetchError(symbol, err)
		return
	}
	l.ApplyQuote(q)
}

// Restore loads previously persisted lots. Duplicates after the first are
// dropped. No lookups are started and no events are emitted.
func (l *Ledger) Restore(lots []models.InvestmentLot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, lot := range lots {
		if _, ok := l.lots[lot.Symbol]; ok {
			l.logger.WithField("symbol", lot.Symbol).Warn("duplicate lot in stored snapshot, keeping first")
			continue
		}
		lot := lot
		l.lots[lot.Symbol] = &lot
		l.order = append(l.order, lot.Symbol)
	}
}

// RemoveLot deletes the lot for symbol. Removing an absent symbol is a no-op.
func (l *Ledger) RemoveLot(symbol string) {
	l.mu.Lock()
	if _, ok := l.lots[symbol]; !ok {
		l.mu.Unlock()
		return
	}
	delete(l.lots, symbol)
	for i, s := range l.order {
		if s == symbol {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	l.logger.WithField("symbol", symbol).Info("lot removed")
	l.notify(Event{Kind: EventLotRemoved, Symbol: symbol})
}

// ApplyQuote replaces the latest quote of the matching lot. It does nothing
// when the lot is gone or already holds a quote from a later lookup, and
// reports whether the quote was applied.
func (l *Ledger) ApplyQuote(quote models.Quote) bool {
	l.mu.Lock()
	lot, ok := l.lots[quote.Symbol]
	if !ok {
		l.mu.Unlock()
		return false
	}
	if cur := lot.LatestQuote; cur != nil && quote.Seq != 0 && quote.Seq < cur.Seq {
		l.mu.Unlock()
		l.logger.WithFields(logrus.Fields{
			"symbol":  quote.Symbol,
			"seq":     quote.Seq,
			"heldSeq": cur.Seq,
		}).Debug("dropping out-of-order quote")
		return false
	}
	q := quote
	lot.LatestQuote = &q
	l.mu.Unlock()

	l.notify(Event{Kind: EventQuoteApplied, Symbol: quote.Symbol})
	return true
}

// ReportFetchError publishes a failed lookup for a symbol the ledger still
// holds. The lot keeps its last known quote.
func (l *Ledger) ReportFetchError(symbol string, err error) {
	if !l.Has(symbol) {
		return
	}
	l.logger.WithError(err).WithField("symbol", symbol).Warn("quote lookup failed, keeping last known quote")
	l.notify(Event{Kind: EventQuoteFailed, Symbol: symbol, Err: err})
}

// Has reports whether symbol is held.
func (l *Ledger) Has(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.lots[symbol]
	return ok
}

// Lot returns a copy of the lot for symbol.
func (l *Ledger) Lot(symbol string) (models.InvestmentLot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lot, ok := l.lots[symbol]
	if !ok {
		return models.InvestmentLot{}, false
	}
	return copyLot(lot), true
}

// Snapshot copies the current lots in insertion order.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Snapshot, 0, len(l.order))
	for _, symbol := range l.order {
		out = append(out, copyLot(l.lots[symbol]))
	}
	return out
}

func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lots)
}

func (l *Ledger) TotalValue() decimal.Decimal {
	return l.Snapshot().TotalValue()
}

func (l *Ledger) ValueAsOf(month models.YearMonth) decimal.Decimal {
	return l.Snapshot().ValueAsOf(month)
}

// Wait blocks until lookups started by AddLot have finished.
func (l *Ledger) Wait() {
	l.pending.Wait()
}

func copyLot(lot *models.InvestmentLot) models.InvestmentLot {
	c := *lot
	if lot.LatestQuote != nil {
		q := *lot.LatestQuote
		c.LatestQuote = &q
	}
	return c
}
