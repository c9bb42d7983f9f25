package repository

import (
	"context"
	"fmt"

	"github.com/GooferByte/networth/internal/models"
)

var (
	// ErrDuplicateTransaction indicates a transaction with the same ID exists.
	ErrDuplicateTransaction = fmt.Errorf("duplicate transaction")
)

// LotStore persists the portfolio as one snapshot per key. Loading a key that
// was never saved yields an empty snapshot.
type LotStore interface {
	LoadLots(ctx context.Context, key string) ([]models.LotRecord, error)
	SaveLots(ctx context.Context, key string, lots []models.LotRecord) error
}

// TransactionLedger is the append-only income/expense history. Records come
// back in the order they were appended.
type TransactionLedger interface {
	AppendTransaction(ctx context.Context, key string, tx models.TransactionRecord) error
	ListTransactions(ctx context.Context, key string) ([]models.TransactionRecord, error)
}

// Store is everything a session persists.
type Store interface {
	LotStore
	TransactionLedger
}
