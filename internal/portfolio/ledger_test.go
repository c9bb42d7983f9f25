package portfolio

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, symbol string) (models.Quote, error)

func (f fetchFunc) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	return f(ctx, symbol)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quote(symbol string, price int64, seq uint64) models.Quote {
	return models.Quote{Symbol: symbol, Price: decimal.NewFromInt(price), Seq: seq, FetchedAt: time.Now()}
}

// recorder collects ledger events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestTotalValueCountsOnlyQuotedLots(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(10), day(2024, 1, 10)))
	require.NoError(t, l.AddLot(context.Background(), "BBB", decimal.RequireFromString("2.5"), day(2024, 2, 1)))
	require.NoError(t, l.AddLot(context.Background(), "CCC", decimal.NewFromInt(100), day(2024, 2, 1)))

	assert.True(t, l.TotalValue().IsZero())

	require.True(t, l.ApplyQuote(quote("AAA", 50, 1)))
	require.True(t, l.ApplyQuote(quote("BBB", 4, 2)))

	assert.Equal(t, "510", l.TotalValue().String())
}

func TestAddThenRemoveRestoresState(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))
	before := l.Snapshot()

	require.NoError(t, l.AddLot(context.Background(), "BBB", decimal.NewFromInt(3), day(2024, 3, 1)))
	l.RemoveLot("BBB")

	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, []string{"AAA"}, l.Symbols())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	rec := &recorder{}
	l.Subscribe(rec.listen)

	l.RemoveLot("NOPE")

	assert.Empty(t, rec.kinds())
	assert.Equal(t, 0, l.Len())
}

func TestAddDuplicateSymbol(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))

	err := l.AddLot(context.Background(), "AAA", decimal.NewFromInt(2), day(2024, 1, 1))
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	lot, _ := l.Lot("AAA")
	assert.Equal(t, "1", lot.Shares.String())
}

func TestAddRejectsInvalidLot(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	assert.ErrorIs(t, l.AddLot(context.Background(), "", decimal.NewFromInt(1), day(2024, 1, 1)), ErrInvalidLot)
	assert.ErrorIs(t, l.AddLot(context.Background(), "AAA", decimal.Zero, day(2024, 1, 1)), ErrInvalidLot)
	assert.ErrorIs(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(-1), day(2024, 1, 1)), ErrInvalidLot)
}

func TestApplyQuoteAfterRemoveIsNoop(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))
	l.RemoveLot("AAA")
	before := l.Snapshot()

	assert.False(t, l.ApplyQuote(quote("AAA", 10, 1)))
	assert.Equal(t, before, l.Snapshot())
}

func TestApplyQuoteRejectsOlderSequence(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))

	require.True(t, l.ApplyQuote(quote("AAA", 20, 5)))
	assert.False(t, l.ApplyQuote(quote("AAA", 10, 4)))
	assert.True(t, l.ApplyQuote(quote("AAA", 30, 5)), "same lookup may be applied again")

	lot, _ := l.Lot("AAA")
	assert.Equal(t, "30", lot.Price().String())
}

func TestApplyQuoteReplacesRestoredQuote(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	restored := quote("AAA", 99, 0)
	l.Restore([]models.InvestmentLot{{Symbol: "AAA", Shares: decimal.NewFromInt(1), PurchasedDate: day(2024, 1, 1), LatestQuote: &restored}})

	require.True(t, l.ApplyQuote(quote("AAA", 100, 1)))
	lot, _ := l.Lot("AAA")
	assert.Equal(t, "100", lot.Price().String())
}

func TestAddLotFetchesQuoteInBackground(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, symbol string) (models.Quote, error) {
		return quote(symbol, 50, 1), nil
	})
	l := NewLedger(fetcher, quietLogger())
	rec := &recorder{}
	l.Subscribe(rec.listen)

	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(10), day(2024, 1, 10)))
	l.Wait()

	lot, ok := l.Lot("AAA")
	require.True(t, ok)
	require.NotNil(t, lot.LatestQuote)
	assert.Equal(t, "500", lot.Value().String())
	assert.Equal(t, []EventKind{EventLotAdded, EventQuoteApplied}, rec.kinds())
}

func TestAddLotFetchFailureKeepsLot(t *testing.T) {
	boom := errors.New("no route to host")
	fetcher := fetchFunc(func(ctx context.Context, symbol string) (models.Quote, error) {
		return models.Quote{}, boom
	})
	l := NewLedger(fetcher, quietLogger())
	rec := &recorder{}
	l.Subscribe(rec.listen)

	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(10), day(2024, 1, 10)))
	l.Wait()

	lot, ok := l.Lot("AAA")
	require.True(t, ok)
	assert.Nil(t, lot.LatestQuote)
	require.Equal(t, []EventKind{EventLotAdded, EventQuoteFailed}, rec.kinds())
	assert.ErrorIs(t, rec.events[1].Err, boom)
}

func TestRemoveDuringInFlightFetchDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	fetcher := fetchFunc(func(ctx context.Context, symbol string) (models.Quote, error) {
		<-release
		return quote(symbol, 50, 1), nil
	})
	l := NewLedger(fetcher, quietLogger())
	rec := &recorder{}
	l.Subscribe(rec.listen)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.AddLot(ctx, "AAA", decimal.NewFromInt(10), day(2024, 1, 10)))
	cancel()
	l.RemoveLot("AAA")
	close(release)
	l.Wait()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, []EventKind{EventLotAdded, EventLotRemoved}, rec.kinds())
}

func TestUnsubscribe(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	rec := &recorder{}
	stop := l.Subscribe(rec.listen)
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))
	stop()
	l.RemoveLot("AAA")

	assert.Equal(t, []EventKind{EventLotAdded}, rec.kinds())
}

func TestRestoreKeepsFirstDuplicate(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	l.Restore([]models.InvestmentLot{
		{Symbol: "AAA", Shares: decimal.NewFromInt(1), PurchasedDate: day(2024, 1, 1)},
		{Symbol: "BBB", Shares: decimal.NewFromInt(2), PurchasedDate: day(2024, 1, 1)},
		{Symbol: "AAA", Shares: decimal.NewFromInt(9), PurchasedDate: day(2024, 1, 1)},
	})

	assert.Equal(t, []string{"AAA", "BBB"}, l.Symbols())
	lot, _ := l.Lot("AAA")
	assert.Equal(t, "1", lot.Shares.String())
}

func TestSnapshotValueAsOf(t *testing.T) {
	a := quote("AAA", 50, 1)
	b := quote("BBB", 10, 2)
	snap := Snapshot{
		{Symbol: "AAA", Shares: decimal.NewFromInt(10), PurchasedDate: day(2024, 1, 10), LatestQuote: &a},
		{Symbol: "BBB", Shares: decimal.NewFromInt(3), PurchasedDate: day(2024, 3, 2), LatestQuote: &b},
		{Symbol: "CCC", Shares: decimal.NewFromInt(3), PurchasedDate: day(2024, 3, 2)},
		{Symbol: "DDD", Shares: decimal.NewFromInt(3), LatestQuote: &b},
	}

	assert.True(t, snap.ValueAsOf("2023-12").IsZero())
	assert.Equal(t, "500", snap.ValueAsOf("2024-01").String())
	assert.Equal(t, "500", snap.ValueAsOf("2024-02").String())
	assert.Equal(t, "530", snap.ValueAsOf("2024-03").String())
	assert.Equal(t, []models.YearMonth{"2024-01", "2024-03"}, snap.PurchaseMonths())
	assert.Equal(t, "560", snap.TotalValue().String())
}

func TestSnapshotIsACopy(t *testing.T) {
	l := NewLedger(nil, quietLogger())
	require.NoError(t, l.AddLot(context.Background(), "AAA", decimal.NewFromInt(1), day(2024, 1, 1)))
	require.True(t, l.ApplyQuote(quote("AAA", 5, 1)))

	snap := l.Snapshot()
	snap[0].LatestQuote.Price = decimal.NewFromInt(1000)

	lot, _ := l.Lot("AAA")
	assert.Equal(t, "5", lot.Price().String())
}
