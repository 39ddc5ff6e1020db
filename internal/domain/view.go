package domain

import "time"

// ViewPrice is the reconciled price of one symbol.
type ViewPrice struct {
	Symbol        string    `json:"symbol"`
	Pair          string    `json:"pair"`
	Price         string    `json:"price"`
	Source        Source    `json:"source"`
	OraclePrice   string    `json:"oracle_price,omitempty"`
	MarketPrice   string    `json:"market_price,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
	Stale         bool      `json:"stale"`
	HighThreshold string    `json:"high_threshold,omitempty"`
	LowThreshold  string    `json:"low_threshold,omitempty"`
	// HighSet and LowSet are false while the contract holds a zero threshold.
	HighSet     bool `json:"high_threshold_set"`
	LowSet      bool `json:"low_threshold_set"`
	IsAboveHigh bool `json:"is_above_high"`
	IsBelowLow  bool `json:"is_below_low"`
}

// AlertHigh reports a crossing of a configured high threshold.
func (p ViewPrice) AlertHigh() bool { return p.HighSet && p.IsAboveHigh }

// AlertLow reports a crossing of a configured low threshold.
func (p ViewPrice) AlertLow() bool { return p.LowSet && p.IsBelowLow }

// DashboardView is the render model consumed by every presentation surface.
type DashboardView struct {
	Prices               []ViewPrice      `json:"prices"`
	Threshold            ThresholdState   `json:"threshold"`
	MintSymbol           string           `json:"mint_symbol"`
	AboveMintThreshold   bool             `json:"above_mint_threshold"`
	MintAllowed          bool             `json:"mint_allowed"`
	Market               []MarketEntry    `json:"market"`
	MarketCurrency       string           `json:"market_currency"`
	Rankings             Rankings         `json:"rankings"`
	Events               []ThresholdEvent `json:"events"`
	OracleDegraded       bool             `json:"oracle_degraded"`
	OracleDegradedReason string           `json:"oracle_degraded_reason,omitempty"`
	MarketDegraded       bool             `json:"market_degraded"`
	MarketDegradedReason string           `json:"market_degraded_reason,omitempty"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// Price returns the reconciled price for symbol.
func (v *DashboardView) Price(symbol string) (ViewPrice, bool) {
	if v == nil {
		return ViewPrice{}, false
	}
	for _, p := range v.Prices {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return ViewPrice{}, false
}
