package portfolio

import (
	"sort"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable copy of the ledger's lots in insertion order.
type Snapshot []models.InvestmentLot

// TotalValue sums shares times latest price. Lots without a quote count as zero.
func (s Snapshot) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range s {
		total = total.Add(lot.Value())
	}
	return total
}

// ValueAsOf sums the value of lots bought in or before month. Lots without a
// purchase date are left out.
func (s Snapshot) ValueAsOf(month models.YearMonth) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range s {
		bought, ok := lot.PurchaseMonth()
		if !ok || bought > month {
			continue
		}
		total = total.Add(lot.Value())
	}
	return total
}

// PurchaseMonths returns the distinct purchase months, ascending.
func (s Snapshot) PurchaseMonths() []models.YearMonth {
	seen := make(map[models.YearMonth]struct{}, len(s))
	months := make([]models.YearMonth, 0, len(s))
	for _, lot := range s {
		m, ok := lot.PurchaseMonth()
		if !ok {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}

// Symbols lists the tracked symbols in insertion order.
func (s Snapshot) Symbols() []string {
	out := make([]string, len(s))
	for i, lot := range s {
		out[i] = lot.Symbol
	}
	return out
}

// Records converts the snapshot to its persisted form.
func (s Snapshot) Records() []models.LotRecord {
	out := make([]models.LotRecord, len(s))
	for i, lot := range s {
		out[i] = lot.ToRecord()
	}
	return out
}
