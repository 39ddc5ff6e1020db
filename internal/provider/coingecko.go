package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// MarketCoin is one row of the /coins/markets response. Nullable numeric
// fields decode to nil.
type MarketCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCapRank            int      `json:"market_cap_rank"`
	TotalVolume              float64  `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// CoinGeckoProvider fetches market listings from the CoinGecko free API.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting:
// a burst of 8 requests, refilled at one every 7.5 seconds.
func NewCoinGeckoProvider(tracer trace.Tracer, baseURL string) *CoinGeckoProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		limiter: rate.NewLimiter(rate.Every(7500*time.Millisecond), 8),
	}
}

// FetchMarkets returns the first page of coins ordered by market cap, priced
// in currency.
func (p *CoinGeckoProvider) FetchMarkets(ctx context.Context, currency string, perPage int) ([]MarketCoin, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-markets")
	defer span.End()

	if perPage <= 0 {
		perPage = 20
	}
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(currency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	span.SetAttributes(attribute.String("coingecko.currency", currency), attribute.Int("coingecko.per_page", perPage))

	body, err := p.doRequest(ctx, p.baseURL+"/coins/markets?"+q.Encode())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	var coins []MarketCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parse markets: %w", err)
	}
	span.SetAttributes(attribute.Int("coingecko.coins", len(coins)))
	return coins, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
