package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/GooferByte/networth/internal/models"
	"github.com/GooferByte/networth/internal/repository"

	"github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS transactions (
		seq         BIGSERIAL PRIMARY KEY,
		id          TEXT NOT NULL,
		session_key TEXT NOT NULL,
		type        TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT '',
		amount      NUMERIC NOT NULL,
		date        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (session_key, id)
	);
`

// Repository implements repository.Store backed by PostgreSQL. Portfolio
// snapshots live in a key-value table; transactions in an append-only table.
type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ repository.Store = (*Repository)(nil)

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) LoadLots(ctx context.Context, key string) ([]models.LotRecord, error) {
	const query = `SELECT value FROM kv_store WHERE key = $1`
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.LotRecord{}, nil
		}
		return nil, err
	}
	var lots []models.LotRecord
	if err := json.Unmarshal(raw, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *Repository) SaveLots(ctx context.Context, key string, lots []models.LotRecord) error {
	if lots == nil {
		lots = []models.LotRecord{}
	}
	raw, err := json.Marshal(lots)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, key, raw)
	return err
}

func (r *Repository) AppendTransaction(ctx context.Context, key string, tx models.TransactionRecord) error {
	const query = `
		INSERT INTO transactions (id, session_key, type, category, amount, date)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := r.db.ExecContext(ctx, query, tx.ID, key, string(tx.Type), tx.Category, tx.Amount, tx.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, key string) ([]models.TransactionRecord, error) {
	const query = `
		SELECT id, type, category, amount, date
		FROM transactions
		WHERE session_key = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TransactionRecord{}
	for rows.Next() {
		var tx models.TransactionRecord
		var typ string
		if err := rows.Scan(&tx.ID, &typ, &tx.Category, &tx.Amount, &tx.Date); err != nil {
			return nil, err
		}
		tx.Type = models.TransactionType(typ)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
