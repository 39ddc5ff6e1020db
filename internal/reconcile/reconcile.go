// Package reconcile merges the latest oracle and market snapshots into the
// dashboard view. It performs no I/O.
package reconcile

import (
	"time"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/units"
)

// Options tune staleness and the mint symbol. Zero values disable staleness
// and select ETH.
type Options struct {
	MintSymbol       string
	OracleStaleAfter time.Duration
	MarketStaleAfter time.Duration
	Now              time.Time
}

// Reconcile builds the view. Repeated calls with the same inputs return
// equal views.
func Reconcile(oracle *domain.OracleSnapshot, market *domain.MarketSnapshot, opts Options) *domain.DashboardView {
	mintSymbol := opts.MintSymbol
	if mintSymbol == "" {
		mintSymbol = domain.MintSymbol
	}
	view := &domain.DashboardView{
		Prices:      []domain.ViewPrice{},
		Threshold:   domain.ThresholdState{Value: domain.DefaultMintThreshold},
		MintSymbol:  mintSymbol,
		Market:      []domain.MarketEntry{},
		GeneratedAt: opts.Now,
	}

	seen := make(map[string]bool)
	if oracle != nil {
		view.Threshold = oracle.Threshold
		view.OracleDegraded = oracle.Degraded
		view.OracleDegradedReason = oracle.DegradedReason
		for _, p := range oracle.Pairs {
			sym := p.Base()
			if seen[sym] {
				continue
			}
			seen[sym] = true
			view.Prices = append(view.Prices, priceFor(sym, oracle, market, opts))
		}
	}
	if market != nil {
		view.Market = append(view.Market, market.Entries...)
		view.MarketCurrency = market.Currency
		view.Rankings = market.Rankings
		view.MarketDegraded = market.Degraded
		view.MarketDegradedReason = market.DegradedReason
		for _, e := range market.Entries {
			sym := e.ContractSymbol
			if sym == "" {
				sym = e.Symbol
			}
			if seen[sym] {
				continue
			}
			seen[sym] = true
			view.Prices = append(view.Prices, priceFor(sym, oracle, market, opts))
		}
	}

	if mint, ok := view.Price(mintSymbol); ok && mint.Source == domain.SourceOracle {
		view.AboveMintThreshold = atLeast(mint.Price, view.Threshold.Value)
	}
	view.MintAllowed = view.Threshold.Active && view.AboveMintThreshold
	return view
}

// priceFor applies the precedence Oracle > MarketAPI > Unavailable.
func priceFor(sym string, oracle *domain.OracleSnapshot, market *domain.MarketSnapshot, opts Options) domain.ViewPrice {
	vp := domain.ViewPrice{Symbol: sym, Price: domain.ZeroPrice, Source: domain.SourceUnavailable}

	var oraclePS domain.PriceSnapshot
	var hasOracle bool
	if oracle != nil {
		oraclePS, hasOracle = oracle.Prices[sym]
	}
	if hasOracle {
		vp.Pair = string(oraclePS.Pair)
		vp.FetchedAt = oraclePS.FetchedAt
		if oraclePS.Source == domain.SourceOracle {
			vp.OraclePrice = oraclePS.Price
		}
	}

	entry, hasEntry := market.Entry(sym)
	if hasEntry && entry.Listed && entry.LastPrice != domain.Placeholder {
		vp.MarketPrice = entry.LastPrice
	}

	switch {
	case vp.OraclePrice != "":
		vp.Price = vp.OraclePrice
		vp.Source = domain.SourceOracle
		vp.Stale = stale(oraclePS.FetchedAt, opts.OracleStaleAfter, opts.Now)
	case vp.MarketPrice != "":
		vp.Price = vp.MarketPrice
		vp.Source = domain.SourceMarketAPI
		vp.Pair = entry.Pair
		vp.FetchedAt = market.FetchedAt
		vp.Stale = stale(market.FetchedAt, opts.MarketStaleAfter, opts.Now)
	default:
		if vp.Pair == "" && hasEntry {
			vp.Pair = entry.Pair
		}
	}

	if vp.Source == domain.SourceOracle && oracle != nil {
		if th, ok := oracle.PairThresholds[sym]; ok {
			vp.HighThreshold = th.High
			vp.LowThreshold = th.Low
			vp.HighSet = th.High != domain.ZeroPrice
			vp.LowSet = th.Low != domain.ZeroPrice
			vp.IsAboveHigh = atLeast(vp.Price, th.High)
			vp.IsBelowLow = atLeast(th.Low, vp.Price)
		}
	}
	return vp
}

// atLeast reports a >= b. Unparseable values compare false.
func atLeast(a, b string) bool {
	c, err := units.Compare(a, b)
	return err == nil && c >= 0
}

func stale(at time.Time, after time.Duration, now time.Time) bool {
	if after <= 0 || at.IsZero() || now.IsZero() {
		return false
	}
	return now.Sub(at) > after
}
