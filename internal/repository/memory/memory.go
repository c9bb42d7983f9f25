package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/GooferByte/networth/internal/models"
	"github.com/GooferByte/networth/internal/repository"
)

// InMemoryRepo keeps snapshots as encoded JSON so it behaves like the durable
// key-value store it stands in for.
type InMemoryRepo struct {
	mu           sync.RWMutex
	snapshots    map[string][]byte
	transactions map[string][]models.TransactionRecord
	txIndex      map[string]struct{}
}

func New() *InMemoryRepo {
	return &InMemoryRepo{
		snapshots:    make(map[string][]byte),
		transactions: make(map[string][]models.TransactionRecord),
		txIndex:      make(map[string]struct{}),
	}
}

var _ repository.Store = (*InMemoryRepo)(nil)

func (r *InMemoryRepo) LoadLots(ctx context.Context, key string) ([]models.LotRecord, error) {
	r.mu.RLock()
	raw, ok := r.snapshots[key]
	r.mu.RUnlock()
	if !ok {
		return []models.LotRecord{}, nil
	}
	var lots []models.LotRecord
	if err := json.Unmarshal(raw, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *InMemoryRepo) SaveLots(ctx context.Context, key string, lots []models.LotRecord) error {
	if lots == nil {
		lots = []models.LotRecord{}
	}
	raw, err := json.Marshal(lots)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[key] = raw
	return nil
}

func (r *InMemoryRepo) AppendTransaction(ctx context.Context, key string, tx models.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID != "" {
		idx := r.key(key, tx.ID)
		if _, ok := r.txIndex[idx]; ok {
			return repository.ErrDuplicateTransaction
		}
		r.txIndex[idx] = struct{}{}
	}
	r.transactions[key] = append(r.transactions[key], tx)
	return nil
}

func (r *InMemoryRepo) ListTransactions(ctx context.Context, key string) ([]models.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.TransactionRecord{}, r.transactions[key]...), nil
}

func (r *InMemoryRepo) key(session, id string) string {
	return session + "::" + id
}
