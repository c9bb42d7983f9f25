package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for purchase dates.
const DateLayout = "2006-01-02"

// InvestmentLot is one holding in the portfolio, keyed by symbol.
type InvestmentLot struct {
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasedDate time.Time       `json:"purchasedDate"`
	LatestQuote   *Quote          `json:"latestQuote,omitempty"`
}

// Price returns the latest known price, or zero when no quote arrived yet.
func (l InvestmentLot) Price() decimal.Decimal {
	if l.LatestQuote == nil {
		return decimal.Zero
	}
	return l.LatestQuote.Price
}

// Value is shares times the latest known price.
func (l InvestmentLot) Value() decimal.Decimal {
	return l.Shares.Mul(l.Price())
}

// PurchaseMonth reports the month the lot was bought in. ok is false when the
// purchase date is unset.
func (l InvestmentLot) PurchaseMonth() (YearMonth, bool) {
	if l.PurchasedDate.IsZero() {
		return "", false
	}
	return MonthOf(l.PurchasedDate), true
}

// LotRecord is the persisted form of a lot. Numbers are plain JSON numbers and
// the quote fields are optional.
type LotRecord struct {
	Symbol        string   `json:"symbol"`
	Shares        float64  `json:"shares"`
	PurchasedDate string   `json:"purchasedDate"`
	CurrentPrice  *float64 `json:"currentPrice,omitempty"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
}

// ToRecord converts a lot into its persisted form.
func (l InvestmentLot) ToRecord() LotRecord {
	rec := LotRecord{
		Symbol: l.Symbol,
		Shares: l.Shares.InexactFloat64(),
	}
	if !l.PurchasedDate.IsZero() {
		rec.PurchasedDate = l.PurchasedDate.Format(DateLayout)
	}
	if q := l.LatestQuote; q != nil {
		price := q.Price.InexactFloat64()
		change := q.Change.InexactFloat64()
		pct := q.ChangePercent.InexactFloat64()
		rec.CurrentPrice = &price
		rec.Change = &change
		rec.ChangePercent = &pct
	}
	return rec
}

// Quote rebuilds the last known quote from the record, if it carries one.
func (r LotRecord) Quote() *Quote {
	if r.CurrentPrice == nil || *r.CurrentPrice <= 0 {
		return nil
	}
	q := &Quote{Symbol: r.Symbol, Price: decimal.NewFromFloat(*r.CurrentPrice)}
	if r.Change != nil {
		q.Change = decimal.NewFromFloat(*r.Change)
	}
	if r.ChangePercent != nil {
		q.ChangePercent = decimal.NewFromFloat(*r.ChangePercent)
	}
	return q
}
