// Package oracle reads the oracle contract into immutable snapshots.
package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/units"
)

// Contract is the subset of the chain adapter the reader uses.
type Contract interface {
	Capabilities() chain.Capabilities
	PriceDecimals() uint8
	Price(ctx context.Context, pair domain.Pair) (chain.Quote, error)
	MintThreshold(ctx context.Context) (chain.Quote, error)
	ThresholdActive(ctx context.Context) (bool, error)
	Decimals(ctx context.Context, pair domain.Pair) (uint8, error)
	HighThreshold(ctx context.Context, pair domain.Pair) (*big.Int, error)
	LowThreshold(ctx context.Context, pair domain.Pair) (*big.Int, error)
	IsAboveHigh(ctx context.Context, pair domain.Pair) (bool, error)
	IsBelowLow(ctx context.Context, pair domain.Pair) (bool, error)
}

type Reader struct {
	tracer   trace.Tracer
	mu       sync.RWMutex
	contract Contract
	pairs    []domain.Pair
	log      *logger.Entry
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewReader builds a reader over pairs. A nil contract yields degraded
// snapshots until the chain becomes reachable.
func NewReader(tracer trace.Tracer, contract Contract, pairs []domain.Pair, m *metrics.Metrics) *Reader {
	return &Reader{
		tracer:   tracer,
		contract: contract,
		pairs:    append([]domain.Pair(nil), pairs...),
		log:      logger.L().WithComponent("oracle"),
		metrics:  m,
		now:      time.Now,
	}
}

// SetContract swaps in the chain adapter, for example after a delayed dial.
func (r *Reader) SetContract(c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contract = c
}

func (r *Reader) current() Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contract
}

type pairResult struct {
	price     domain.PriceSnapshot
	threshold *domain.PairThreshold
	err       error
}

// Read performs one cycle. Pair reads run concurrently and a failed pair
// never affects its siblings; it is reported as "0.00" with source
// Unavailable. The threshold falls back to "1500.00", inactive.
func (r *Reader) Read(ctx context.Context) *domain.OracleSnapshot {
	ctx, span := r.tracer.Start(ctx, "oracle.read")
	defer span.End()
	start := r.now()

	snap := &domain.OracleSnapshot{
		Pairs:     append([]domain.Pair(nil), r.pairs...),
		Prices:    make(map[string]domain.PriceSnapshot, len(r.pairs)),
		Threshold: domain.ThresholdState{Value: domain.DefaultMintThreshold},
		FetchedAt: start,
	}

	contract := r.current()
	if contract == nil {
		for _, p := range r.pairs {
			snap.Prices[p.Base()] = unavailable(p, start)
		}
		snap.Degraded = true
		snap.DegradedReason = "chain client not connected"
		span.SetStatus(codes.Error, snap.DegradedReason)
		r.log.Error("oracle read skipped: chain client not connected")
		r.metrics.ObserveCycle("oracle", true, r.now().Sub(start))
		return snap
	}

	caps := contract.Capabilities()
	results := make([]pairResult, len(r.pairs))
	var threshold domain.ThresholdState
	threshold.Value = domain.DefaultMintThreshold

	var wg sync.WaitGroup
	for i, p := range r.pairs {
		wg.Add(1)
		go func(i int, p domain.Pair) {
			defer wg.Done()
			results[i] = r.readPair(ctx, contract, p, caps, start)
		}(i, p)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		if !caps.MintThreshold {
			return
		}
		q, err := contract.MintThreshold(ctx)
		if err != nil {
			r.log.WithError(err).Warn("mint threshold read failed, using default")
			return
		}
		threshold.Value = q.Display()
	}()
	go func() {
		defer wg.Done()
		if !caps.ThresholdActive {
			return
		}
		active, err := contract.ThresholdActive(ctx)
		if err != nil {
			r.log.WithError(err).Warn("threshold active read failed, assuming inactive")
			return
		}
		threshold.Active = active
	}()
	wg.Wait()

	failed := 0
	for i, res := range results {
		p := r.pairs[i]
		snap.Prices[p.Base()] = res.price
		if res.threshold != nil {
			if snap.PairThresholds == nil {
				snap.PairThresholds = make(map[string]domain.PairThreshold)
			}
			snap.PairThresholds[p.Base()] = *res.threshold
		}
		if res.err != nil {
			failed++
		}
	}
	snap.Threshold = threshold

	if failed == len(r.pairs) && failed > 0 {
		snap.Degraded = true
		snap.DegradedReason = "every pair read failed"
		span.SetStatus(codes.Error, snap.DegradedReason)
		r.log.WithField("pairs", len(r.pairs)).Error("oracle cycle degraded: every pair read failed")
	}
	span.SetAttributes(
		attribute.Int("oracle.pairs", len(r.pairs)),
		attribute.Int("oracle.failed", failed),
	)
	r.metrics.ObserveCycle("oracle", snap.Degraded, r.now().Sub(start))
	return snap
}

func (r *Reader) readPair(ctx context.Context, c Contract, p domain.Pair, caps chain.Capabilities, at time.Time) pairResult {
	q, err := c.Price(ctx, p)
	if err != nil {
		r.log.WithField("pair", string(p)).WithError(err).Warn("price read failed")
		r.metrics.PairReadFailed(string(p))
		return pairResult{price: unavailable(p, at), err: err}
	}
	res := pairResult{price: domain.PriceSnapshot{
		Symbol:    p.Base(),
		Pair:      p,
		Price:     q.Display(),
		Source:    domain.SourceOracle,
		FetchedAt: at,
	}}
	if caps.PairThresholds {
		th := r.readPairThreshold(ctx, c, p, caps)
		res.threshold = &th
	}
	return res
}

// readPairThreshold reads the per-pair alert configuration. Each field
// defaults independently when its read fails.
func (r *Reader) readPairThreshold(ctx context.Context, c Contract, p domain.Pair, caps chain.Capabilities) domain.PairThreshold {
	log := r.log.WithField("pair", string(p))
	decimals := c.PriceDecimals()
	if caps.Decimals {
		if d, err := c.Decimals(ctx, p); err == nil {
			decimals = d
		} else {
			log.WithError(err).Debug("decimals read failed, using price decimals")
		}
	}

	th := domain.PairThreshold{High: domain.ZeroPrice, Low: domain.ZeroPrice}
	if v, err := c.HighThreshold(ctx, p); err == nil {
		th.High = units.FormatDisplay(v, decimals)
	} else {
		log.WithError(err).Debug("high threshold read failed")
	}
	if v, err := c.LowThreshold(ctx, p); err == nil {
		th.Low = units.FormatDisplay(v, decimals)
	} else {
		log.WithError(err).Debug("low threshold read failed")
	}
	if v, err := c.IsAboveHigh(ctx, p); err == nil {
		th.AboveHigh = v
	}
	if v, err := c.IsBelowLow(ctx, p); err == nil {
		th.BelowLow = v
	}
	return th
}

func unavailable(p domain.Pair, at time.Time) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Symbol:    p.Base(),
		Pair:      p,
		Price:     domain.ZeroPrice,
		Source:    domain.SourceUnavailable,
		FetchedAt: at,
	}
}
