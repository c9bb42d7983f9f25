package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/GooferByte/networth/internal/models"
	"github.com/shopspring/decimal"
)

const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// maxResponseBytes caps how much of a Finnhub reply is read.
const maxResponseBytes = 1 << 20

// FinnhubClient implements QuoteSource against the Finnhub REST API.
type FinnhubClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFinnhubClient(baseURL, apiKey string) *FinnhubClient {
	if baseURL == "" {
		baseURL = DefaultFinnhubURL
	}
	return &FinnhubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// Deadlines come from the caller's context.
		httpClient: &http.Client{},
	}
}

type finnhubQuote struct {
	Current       *float64 `json:"c"`
	Change        *float64 `json:"d"`
	ChangePercent *float64 `json:"dp"`
	Error         string   `json:"error"`
}

type finnhubSearch struct {
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
	} `json:"result"`
	Error string `json:"error"`
}

func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var data finnhubQuote
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &data); err != nil {
		return models.Quote{}, err
	}
	if data.Error != "" {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, data.Error)
	}
	if data.Current == nil || *data.Current == 0 {
		return models.Quote{}, fmt.Errorf("%w: no price available for %s", ErrSymbolNotFound, symbol)
	}
	q := models.Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(*data.Current),
	}
	if data.Change != nil {
		q.Change = decimal.NewFromFloat(*data.Change)
	}
	if data.ChangePercent != nil {
		q.ChangePercent = decimal.NewFromFloat(*data.ChangePercent)
	}
	return q, nil
}

func (c *FinnhubClient) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SymbolMatch{}, nil
	}
	var data finnhubSearch
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &data); err != nil {
		return nil, err
	}
	if data.Error != "" {
		return nil, fmt.Errorf("search %q: %s", query, data.Error)
	}
	out := make([]models.SymbolMatch, 0, len(data.Result))
	for _, r := range data.Result {
		out = append(out, models.SymbolMatch{Symbol: r.Symbol, Description: r.Description})
	}
	return out, nil
}

func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values, into interface{}) error {
	params.Set("token", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	resp.Body.Close()
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("%w: reply larger than %d bytes", ErrMalformedResponse, maxResponseBytes)
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
