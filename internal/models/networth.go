package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth is a "YYYY-MM" key. Lexicographic order equals chronological order.
type YearMonth string

// MonthOf returns the month key of t in its own location.
func MonthOf(t time.Time) YearMonth {
	return YearMonth(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// dateLayouts lists the accepted spellings of a date, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseDate parses the date formats accepted from clients and storage.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// MonthBucket accumulates one calendar month of transactions.
type MonthBucket struct {
	Month      YearMonth
	IncomeSum  decimal.Decimal
	ExpenseSum decimal.Decimal
}

// Net is income minus expense for the month.
func (b MonthBucket) Net() decimal.Decimal {
	return b.IncomeSum.Sub(b.ExpenseSum)
}

// NetWorthPoint is one point of the net-worth trajectory.
type NetWorthPoint struct {
	Month    YearMonth       `json:"month"`
	NetWorth decimal.Decimal `json:"netWorth"`
}
