package networth

import (
	"sort"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
)

// Holdings is the portfolio view the aggregator needs. portfolio.Snapshot
// satisfies it.
type Holdings interface {
	PurchaseMonths() []models.YearMonth
	ValueAsOf(month models.YearMonth) decimal.Decimal
}

// Warning is a data-quality problem found while aggregating. The offending
// record is skipped; aggregation carries on.
type Warning struct {
	Source string `json:"source"`
	Ref    string `json:"ref"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Result is the net-worth trajectory plus the warnings raised building it.
type Result struct {
	Points   []models.NetWorthPoint `json:"points"`
	Warnings []Warning              `json:"warnings"`
}

// Buckets groups transactions by calendar month.
func Buckets(txs []models.TransactionRecord) (map[models.YearMonth]*models.MonthBucket, []Warning) {
	buckets := make(map[models.YearMonth]*models.MonthBucket)
	var warnings []Warning
	for _, tx := range txs {
		if !tx.Type.Valid() {
			warnings = append(warnings, Warning{Source: "transaction", Ref: tx.ID, Value: string(tx.Type), Reason: "unknown transaction type"})
			continue
		}
		if tx.Amount.IsNegative() {
			warnings = append(warnings, Warning{Source: "transaction", Ref: tx.ID, Value: tx.Amount.String(), Reason: "negative amount"})
			continue
		}
		date, err := models.ParseDate(tx.Date)
		if err != nil {
			warnings = append(warnings, Warning{Source: "transaction", Ref: tx.ID, Value: tx.Date, Reason: "unparsable date"})
			continue
		}
		month := models.MonthOf(date)
		b, ok := buckets[month]
		if !ok {
			b = &models.MonthBucket{Month: month, IncomeSum: decimal.Zero, ExpenseSum: decimal.Zero}
			buckets[month] = b
		}
		if tx.Type == models.TransactionIncome {
			b.IncomeSum = b.IncomeSum.Add(tx.Amount)
		} else {
			b.ExpenseSum = b.ExpenseSum.Add(tx.Amount)
		}
	}
	return buckets, warnings
}

// Aggregate merges the transaction history and the holdings into one point
// per month that has activity in either source, ascending. Net worth at a
// month is the running income-minus-expense total plus the value of lots
// bought in or before that month. Months without activity are not filled in.
func Aggregate(txs []models.TransactionRecord, holdings Holdings) Result {
	buckets, warnings := Buckets(txs)

	months := make(map[models.YearMonth]struct{}, len(buckets))
	for m := range buckets {
		months[m] = struct{}{}
	}
	if holdings != nil {
		for _, m := range holdings.PurchaseMonths() {
			months[m] = struct{}{}
		}
	}
	ordered := make([]models.YearMonth, 0, len(months))
	for m := range months {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	points := make([]models.NetWorthPoint, 0, len(ordered))
	savings := decimal.Zero
	for _, m := range ordered {
		if b, ok := buckets[m]; ok {
			savings = savings.Add(b.Net())
		}
		invested := decimal.Zero
		if holdings != nil {
			invested = holdings.ValueAsOf(m)
		}
		points = append(points, models.NetWorthPoint{Month: m, NetWorth: savings.Add(invested)})
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return Result{Points: points, Warnings: warnings}
}
