// Package marketdata provides a client for the commodity price provider.
// Quotes, price history, and local basis observations are fetched over
// HTTP and cached persistently; when the provider is unreachable the
// client falls back to last-known cached data.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grainwise/grainwise/internal/clientdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Client is the market data provider client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a new market data client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:       log.With().Str("component", "marketdata").Logger(),
		cacheRepo: cacheRepo,
	}
}

// quotesResponse is the provider's batch quote payload.
type quotesResponse struct {
	Quotes []domain.Quote `json:"quotes"`
}

// historyResponse is the provider's close-series payload.
type historyResponse struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

// basisResponse is the provider's local basis payload.
type basisResponse struct {
	Commodity    string    `json:"commodity"`
	Current      float64   `json:"current"`
	Observations []float64 `json:"observations"` // trailing 12 months
}

// BasisData bundles the current local basis with its trailing history.
type BasisData struct {
	Current float64   `json:"current"`
	History []float64 `json:"history"`
}

// GetQuotes fetches current OHLC quotes for a batch of symbols.
// Fresh cache entries are served without a network call; on fetch failure,
// stale cached quotes are returned for the symbols that have them.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	results := make(map[string]domain.Quote)

	uncached := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if q, ok := c.quoteFromCache(sym, true); ok {
			results[sym] = q
		} else {
			uncached = append(uncached, sym)
		}
	}

	if len(uncached) == 0 {
		return results, nil
	}

	fetched, err := c.fetchQuotes(ctx, uncached)
	if err != nil {
		// Provider down - serve stale quotes where we have them
		staleCount := 0
		for _, sym := range uncached {
			if q, ok := c.quoteFromCache(sym, false); ok {
				results[sym] = q
				staleCount++
			}
		}
		if staleCount > 0 {
			c.log.Warn().
				Err(err).
				Int("stale_count", staleCount).
				Int("missing", len(uncached)-staleCount).
				Msg("Quote fetch failed, using stale cached quotes")
		}
		if len(results) > 0 {
			return results, nil
		}
		return nil, err
	}

	for sym, q := range fetched {
		results[sym] = q
		c.storeCache("quotes", sym, q, clientdata.TTLQuote)
	}

	return results, nil
}

// GetPriceHistory fetches the trailing daily close series for a symbol.
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	if data, err := c.cacheGet("price_history", symbol, true); err == nil && data != nil {
		var hist historyResponse
		if json.Unmarshal(data, &hist) == nil {
			return hist.Closes, nil
		}
	}

	u := fmt.Sprintf("%s/history?symbol=%s&days=%d", c.baseURL, url.QueryEscape(symbol), days)
	var hist historyResponse
	if err := c.doGet(ctx, u, &hist); err != nil {
		// Fall back to stale history
		if data, cacheErr := c.cacheGet("price_history", symbol, false); cacheErr == nil && data != nil {
			var stale historyResponse
			if json.Unmarshal(data, &stale) == nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed, using stale data")
				return stale.Closes, nil
			}
		}
		return nil, err
	}

	c.storeCache("price_history", symbol, hist, clientdata.TTLPriceHistory)
	return hist.Closes, nil
}

// GetBasis fetches the current local basis and trailing-12-month
// observations for a commodity.
func (c *Client) GetBasis(ctx context.Context, commodity domain.Commodity) (*BasisData, error) {
	key := string(commodity)

	if data, err := c.cacheGet("basis_history", key, true); err == nil && data != nil {
		var cached BasisData
		if json.Unmarshal(data, &cached) == nil {
			return &cached, nil
		}
	}

	u := fmt.Sprintf("%s/basis?commodity=%s", c.baseURL, url.QueryEscape(key))
	var resp basisResponse
	if err := c.doGet(ctx, u, &resp); err != nil {
		if data, cacheErr := c.cacheGet("basis_history", key, false); cacheErr == nil && data != nil {
			var stale BasisData
			if json.Unmarshal(data, &stale) == nil {
				c.log.Warn().Err(err).Str("commodity", key).Msg("Basis fetch failed, using stale data")
				return &stale, nil
			}
		}
		return nil, err
	}

	result := &BasisData{Current: resp.Current, History: resp.Observations}
	c.storeCache("basis_history", key, result, clientdata.TTLBasisHistory)
	return result, nil
}

// fetchQuotes performs the batch quote HTTP request.
func (c *Client) fetchQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	u := fmt.Sprintf("%s/quotes?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	var resp quotesResponse
	if err := c.doGet(ctx, u, &resp); err != nil {
		return nil, err
	}

	results := make(map[string]domain.Quote, len(resp.Quotes))
	for _, q := range resp.Quotes {
		results[q.Symbol] = q
	}
	return results, nil
}

// doGet performs a GET request and decodes the JSON response into out.
func (c *Client) doGet(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("market data API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// quoteFromCache retrieves a cached quote; fresh=true skips expired entries.
func (c *Client) quoteFromCache(symbol string, fresh bool) (domain.Quote, bool) {
	data, err := c.cacheGet("quotes", symbol, fresh)
	if err != nil || data == nil {
		return domain.Quote{}, false
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to unmarshal cached quote")
		return domain.Quote{}, false
	}
	return q, true
}

func (c *Client) cacheGet(table, key string, fresh bool) (json.RawMessage, error) {
	if c.cacheRepo == nil {
		return nil, nil
	}
	if fresh {
		return c.cacheRepo.GetIfFresh(table, key)
	}
	return c.cacheRepo.Get(table, key)
}

func (c *Client) storeCache(table, key string, data interface{}, ttl time.Duration) {
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.Store(table, key, data, ttl); err != nil {
		c.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to cache market data")
	}
}
