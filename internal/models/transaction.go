package models

import (
	"github.com/shopspring/decimal"
)

// TransactionType is either income or expense.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// TransactionRecord is an immutable income or expense entry. Date is kept as
// supplied so malformed values can be reported instead of rejected upstream.
type TransactionRecord struct {
	ID       string          `json:"id"`
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
}
