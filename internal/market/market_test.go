package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/provider"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func f64(v float64) *float64 { return &v }

func sampleCoins() []provider.MarketCoin {
	return []provider.MarketCoin{
		{Symbol: "btc", Name: "Bitcoin", CurrentPrice: 150000, TotalVolume: 45000000000, High24h: f64(151000), Low24h: f64(149000), PriceChangePercentage24h: f64(1.234)},
		{Symbol: "eth", Name: "Ethereum", CurrentPrice: 1999.5, TotalVolume: 15000000000, High24h: f64(2050), Low24h: f64(1950), PriceChangePercentage24h: f64(-2.345)},
		{Symbol: "sol", Name: "Solana", CurrentPrice: 250, TotalVolume: 3000000000, PriceChangePercentage24h: f64(5.5)},
		{Symbol: "usdt", Name: "Tether", CurrentPrice: 1.52, TotalVolume: 60000000000},
	}
}

func oraclePrices() []domain.PriceSnapshot {
	return []domain.PriceSnapshot{
		{Symbol: "ETH", Pair: "ETH/USD", Price: "2000.00", Source: domain.SourceOracle},
		{Symbol: "BTC", Pair: "BTC/USD", Price: domain.ZeroPrice, Source: domain.SourceUnavailable},
		{Symbol: "DIA", Pair: "DIA/USD", Price: "0.45", Source: domain.SourceOracle},
		{Symbol: "LINK", Pair: "LINK/USD", Price: "15.23", Source: domain.SourceOracle},
	}
}

func TestToEntries(t *testing.T) {
	entries := ToEntries(sampleCoins(), "aud", domain.DefaultSymbolMapping)
	require.Len(t, entries, 4)

	eth := entries[1]
	require.Equal(t, "ETH", eth.Symbol)
	require.Equal(t, "ETH/AUD", eth.Pair)
	require.Equal(t, "1999.50", eth.LastPrice)
	require.Equal(t, -2.35, eth.Change)
	require.False(t, eth.Positive())
	require.Equal(t, "1997.50", eth.Bid)
	require.Equal(t, "2001.50", eth.Ask)
	require.True(t, eth.Listed)

	sol := entries[2]
	require.Equal(t, domain.Placeholder, sol.High24h)
	require.True(t, sol.Positive())

	require.Equal(t, 0.0, entries[3].Change, "missing change decodes as zero")
}

func TestToEntriesAppliesSymbolMapping(t *testing.T) {
	coins := []provider.MarketCoin{{Symbol: "weth", Name: "Wrapped Ether", CurrentPrice: 2000, TotalVolume: 1}}
	entries := ToEntries(coins, "usd", map[string]string{"WETH": "ETH"})
	require.Equal(t, "ETH", entries[0].ContractSymbol)

	snap := Merge(entries, oraclePrices(), "usd", time.Now())
	require.Equal(t, "2000.00", snap.Entries[0].ContractPrice)
}

func TestMergeInjectsContractOnlySymbols(t *testing.T) {
	entries := ToEntries(sampleCoins(), "aud", domain.DefaultSymbolMapping)
	snap := Merge(entries, oraclePrices(), "aud", time.Now())

	require.Len(t, snap.Entries, 6, "DIA and LINK injected, failed BTC read not merged")
	require.Equal(t, domain.Placeholder, snap.Entries[0].ContractPrice, "BTC oracle read failed")
	require.Equal(t, "2000.00", snap.Entries[1].ContractPrice)

	dia := snap.Entries[4]
	require.Equal(t, "DIA", dia.Symbol)
	require.Equal(t, "0.45", dia.ContractPrice)
	require.Equal(t, domain.Placeholder, dia.LastPrice)
	require.Equal(t, domain.Placeholder, dia.Volume)
	require.False(t, dia.Listed)
	require.Equal(t, "LINK", snap.Entries[5].Symbol)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	entries := ToEntries(sampleCoins(), "aud", domain.DefaultSymbolMapping)
	Merge(entries, oraclePrices(), "aud", time.Now())
	require.Equal(t, domain.Placeholder, entries[1].ContractPrice)
}

func TestRankings(t *testing.T) {
	entries := ToEntries(sampleCoins(), "aud", domain.DefaultSymbolMapping)
	snap := Merge(entries, oraclePrices(), "aud", time.Now())
	r := snap.Rankings

	require.Len(t, r.TopVolume, 2)
	require.Equal(t, "USDT", r.TopVolume[0].Symbol)
	require.Equal(t, "BTC", r.TopVolume[1].Symbol)
	require.Equal(t, "SOL", r.BiggestIncrease.Symbol)
	require.Equal(t, "ETH", r.BiggestDecrease.Symbol)
}

func TestRankingsTiesKeepOrder(t *testing.T) {
	entries := []domain.MarketEntry{
		{Symbol: "A", Volume: "10", Change: 1, Listed: true},
		{Symbol: "B", Volume: "10", Change: 1, Listed: true},
		{Symbol: "C", Volume: "10", Change: 1, Listed: true},
	}
	r := Rank(entries)
	require.Equal(t, []string{"A", "B"}, []string{r.TopVolume[0].Symbol, r.TopVolume[1].Symbol})
	require.Equal(t, "A", r.BiggestIncrease.Symbol)
	require.Equal(t, "A", r.BiggestDecrease.Symbol)
}

func TestRankingsEmptyWithoutListedEntries(t *testing.T) {
	r := Rank([]domain.MarketEntry{{Symbol: "DIA", Volume: domain.Placeholder}})
	require.Empty(t, r.TopVolume)
	require.Nil(t, r.BiggestIncrease)
	require.Nil(t, r.BiggestDecrease)
}

type fakeProvider struct {
	coins []provider.MarketCoin
	err   error
	calls int
}

func (f *fakeProvider) FetchMarkets(context.Context, string, int) ([]provider.MarketCoin, error) {
	f.calls++
	return f.coins, f.err
}

func oracleSnap() *domain.OracleSnapshot {
	prices := map[string]domain.PriceSnapshot{}
	var pairs []domain.Pair
	for _, ps := range oraclePrices() {
		prices[ps.Symbol] = ps
		pairs = append(pairs, ps.Pair)
	}
	return &domain.OracleSnapshot{Pairs: pairs, Prices: prices}
}

func TestReaderRefreshMergesOracle(t *testing.T) {
	fp := &fakeProvider{coins: sampleCoins()}
	r := NewReader(testTracer, fp, Config{Currency: "aud"}, nil)

	snap := r.Refresh(context.Background(), oracleSnap(), nil)
	require.False(t, snap.Degraded)
	require.Len(t, snap.Entries, 6)
	require.Equal(t, "aud", snap.Currency)
}

func TestReaderRefreshFailureFallsBackToOracle(t *testing.T) {
	fp := &fakeProvider{err: errors.New("coingecko API error 429")}
	r := NewReader(testTracer, fp, Config{}, nil)

	snap := r.Refresh(context.Background(), oracleSnap(), nil)
	require.True(t, snap.Degraded)
	require.Contains(t, snap.DegradedReason, "429")
	require.Len(t, snap.Entries, 3)
	require.Empty(t, snap.Rankings.TopVolume)
	require.Nil(t, snap.Rankings.BiggestIncrease)
}

func TestReaderRefreshFailureWithoutOracleKeepsPrevious(t *testing.T) {
	fp := &fakeProvider{err: errors.New("timeout")}
	r := NewReader(testTracer, fp, Config{}, nil)
	prev := &domain.MarketSnapshot{Currency: "aud"}

	require.Same(t, prev, r.Refresh(context.Background(), nil, prev))
	require.Same(t, prev, r.Refresh(context.Background(), &domain.OracleSnapshot{}, prev))
}

func TestReaderRemergeUsesCachedEntries(t *testing.T) {
	fp := &fakeProvider{coins: sampleCoins()}
	r := NewReader(testTracer, fp, Config{}, nil)
	r.Refresh(context.Background(), nil, nil)
	require.Equal(t, 1, fp.calls)

	updated := oracleSnap()
	eth := updated.Prices["ETH"]
	eth.Price = "2100.00"
	updated.Prices["ETH"] = eth

	snap := r.Remerge(updated, nil)
	require.Equal(t, 1, fp.calls, "re-merge must not refetch")
	e, ok := snap.Entry("ETH")
	require.True(t, ok)
	require.Equal(t, "2100.00", e.ContractPrice)
}

func TestReaderRemergeAfterFailureStaysDegraded(t *testing.T) {
	fp := &fakeProvider{coins: sampleCoins()}
	r := NewReader(testTracer, fp, Config{}, nil)
	r.Refresh(context.Background(), oracleSnap(), nil)

	fp.err = errors.New("down")
	r.Refresh(context.Background(), oracleSnap(), nil)

	snap := r.Remerge(oracleSnap(), nil)
	require.True(t, snap.Degraded)
	require.Contains(t, snap.DegradedReason, "down")
}

func TestReaderRemergeBeforeFetch(t *testing.T) {
	r := NewReader(testTracer, &fakeProvider{}, Config{}, nil)
	prev := &domain.MarketSnapshot{}
	require.Same(t, prev, r.Remerge(nil, prev))

	snap := r.Remerge(oracleSnap(), prev)
	require.True(t, snap.Degraded)
	require.Len(t, snap.Entries, 3)
}
