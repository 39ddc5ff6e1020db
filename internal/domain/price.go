package domain

import "time"

// PriceSnapshot is one reading of one asset from one source.
type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Pair      Pair      `json:"pair"`
	Price     string    `json:"price"`
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ThresholdState is the global mint threshold read from the oracle contract.
type ThresholdState struct {
	Value  string `json:"value"`
	Active bool   `json:"active"`
}

// PairThreshold holds the per-pair alert thresholds configured on the contract.
type PairThreshold struct {
	High      string `json:"high"`
	Low       string `json:"low"`
	AboveHigh bool   `json:"above_high"`
	BelowLow  bool   `json:"below_low"`
}

// OracleSnapshot is the result of one oracle read cycle. It is never mutated
// after construction.
type OracleSnapshot struct {
	Pairs          []Pair                   `json:"pairs"`
	Prices         map[string]PriceSnapshot `json:"prices"`
	Threshold      ThresholdState           `json:"threshold"`
	PairThresholds map[string]PairThreshold `json:"pair_thresholds,omitempty"`
	FetchedAt      time.Time                `json:"fetched_at"`
	Degraded       bool                     `json:"degraded"`
	DegradedReason string                   `json:"degraded_reason,omitempty"`
}

// Known returns the successfully read oracle prices in pair order.
func (s *OracleSnapshot) Known() []PriceSnapshot {
	if s == nil {
		return nil
	}
	known := make([]PriceSnapshot, 0, len(s.Pairs))
	for _, p := range s.Pairs {
		ps, ok := s.Prices[p.Base()]
		if ok && ps.Source == SourceOracle {
			known = append(known, ps)
		}
	}
	return known
}

// SamePrices reports whether two snapshots carry identical oracle prices.
func (s *OracleSnapshot) SamePrices(other *OracleSnapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Prices) != len(other.Prices) {
		return false
	}
	for sym, ps := range s.Prices {
		o, ok := other.Prices[sym]
		if !ok || o.Price != ps.Price || o.Source != ps.Source {
			return false
		}
	}
	return true
}
