package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a market data snapshot for one symbol. A quote is never mutated;
// a newer quote for the same symbol replaces it.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	FetchedAt     time.Time       `json:"fetchedAt"`
	// Seq orders lookups by issue time. Zero means the quote was restored
	// from storage rather than fetched in this session.
	Seq uint64 `json:"-"`
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// SymbolMatch is a candidate returned by a symbol search.
type SymbolMatch struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}
