package networth

import (
	"sort"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed expense for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ExpensesByCategory sums expense amounts per category, largest first. Ties
// are broken by category name.
func ExpensesByCategory(txs []models.TransactionRecord) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != models.TransactionExpense || tx.Amount.IsNegative() {
			continue
		}
		category := tx.Category
		if category == "" {
			category = "Uncategorized"
		}
		sums[category] = sums[category].Add(tx.Amount)
	}
	out := make([]CategoryTotal, 0, len(sums))
	for c, total := range sums {
		out = append(out, CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Total.Cmp(out[j].Total); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
