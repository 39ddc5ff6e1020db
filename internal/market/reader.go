// Package market fetches market listings and merges oracle prices into them.
package market

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/provider"
)

// Provider fetches raw market listings.
type Provider interface {
	FetchMarkets(ctx context.Context, currency string, perPage int) ([]provider.MarketCoin, error)
}

type Config struct {
	Currency      string
	PerPage       int
	SymbolMapping map[string]string
}

// Reader keeps the last fetched entries so an oracle change can be merged
// again without another HTTP round trip.
type Reader struct {
	tracer   trace.Tracer
	provider Provider
	cfg      Config
	log      *logger.Entry
	metrics  *metrics.Metrics
	now      func() time.Time

	mu         sync.Mutex
	entries    []domain.MarketEntry
	fetchedAt  time.Time
	failReason string
}

func NewReader(tracer trace.Tracer, p Provider, cfg Config, m *metrics.Metrics) *Reader {
	if cfg.Currency == "" {
		cfg.Currency = "aud"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.SymbolMapping == nil {
		cfg.SymbolMapping = domain.DefaultSymbolMapping
	}
	return &Reader{
		tracer:   tracer,
		provider: p,
		cfg:      cfg,
		log:      logger.L().WithComponent("market"),
		metrics:  m,
		now:      time.Now,
	}
}

// Refresh fetches listings and merges oracle prices into them. When the
// fetch fails it returns an oracle-only degraded snapshot if any oracle
// prices are known, and prev unchanged otherwise.
func (r *Reader) Refresh(ctx context.Context, oracle *domain.OracleSnapshot, prev *domain.MarketSnapshot) *domain.MarketSnapshot {
	ctx, span := r.tracer.Start(ctx, "market.refresh")
	defer span.End()
	start := r.now()

	coins, err := r.provider.FetchMarkets(ctx, r.cfg.Currency, r.cfg.PerPage)
	r.metrics.MarketFetched(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reason := "market api unavailable: " + err.Error()
		r.mu.Lock()
		r.entries = nil
		r.failReason = reason
		r.mu.Unlock()

		known := oracle.Known()
		if len(known) == 0 {
			r.log.WithError(err).Error("market fetch failed and no oracle prices known, keeping previous snapshot")
			r.metrics.ObserveCycle("market", true, r.now().Sub(start))
			return prev
		}
		r.log.WithError(err).Warn("market fetch failed, falling back to oracle prices")
		r.metrics.ObserveCycle("market", true, r.now().Sub(start))
		return OracleOnly(known, r.cfg.Currency, start, reason)
	}

	entries := ToEntries(coins, r.cfg.Currency, r.cfg.SymbolMapping)
	r.mu.Lock()
	r.entries = entries
	r.fetchedAt = start
	r.failReason = ""
	r.mu.Unlock()

	span.SetAttributes(attribute.Int("market.entries", len(entries)))
	r.metrics.ObserveCycle("market", false, r.now().Sub(start))
	return Merge(entries, oracle.Known(), r.cfg.Currency, start)
}

// Remerge merges new oracle prices into the last fetched listings. Before
// the first successful fetch it behaves like a failed fetch.
func (r *Reader) Remerge(oracle *domain.OracleSnapshot, prev *domain.MarketSnapshot) *domain.MarketSnapshot {
	r.mu.Lock()
	entries, fetchedAt, reason := r.entries, r.fetchedAt, r.failReason
	r.mu.Unlock()

	if entries == nil {
		known := oracle.Known()
		if len(known) == 0 {
			return prev
		}
		if reason == "" {
			reason = "market data not fetched yet"
		}
		return OracleOnly(known, r.cfg.Currency, r.now(), reason)
	}
	return Merge(entries, oracle.Known(), r.cfg.Currency, fetchedAt)
}
