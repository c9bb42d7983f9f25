package pricing

import (
	"context"

	"github.com/GooferByte/networth/internal/models"
)

// QuoteSource is the external market data provider. Quote fills price and
// change fields only; the fetcher stamps time and sequence.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}
