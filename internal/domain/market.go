package domain

import (
	"encoding/json"
	"time"
)

// MarketEntry is one row of the market table. Positive is derived from Change
// and has no field of its own.
type MarketEntry struct {
	Symbol         string  `json:"symbol"`
	ContractSymbol string  `json:"contract_symbol"`
	Name           string  `json:"name"`
	Pair           string  `json:"pair"`
	LastPrice      string  `json:"last_price"`
	ContractPrice  string  `json:"contract_price"`
	Change         float64 `json:"change"`
	Volume         string  `json:"volume"`
	High24h        string  `json:"high_24h"`
	Low24h         string  `json:"low_24h"`
	Bid            string  `json:"bid"`
	Ask            string  `json:"ask"`
	Listed         bool    `json:"listed"`
}

// Positive reports whether the 24h change is above zero.
func (e MarketEntry) Positive() bool {
	return e.Change > 0
}

func (e MarketEntry) MarshalJSON() ([]byte, error) {
	type entry MarketEntry
	return json.Marshal(struct {
		entry
		Positive bool `json:"positive"`
	}{entry: entry(e), Positive: e.Positive()})
}

// Rankings are derived from the full entry list and recomputed wholesale.
type Rankings struct {
	TopVolume       []MarketEntry `json:"top_volume"`
	BiggestIncrease *MarketEntry  `json:"biggest_increase"`
	BiggestDecrease *MarketEntry  `json:"biggest_decrease"`
}

// MarketSnapshot is the result of one market read or merge. Never mutated
// after construction.
type MarketSnapshot struct {
	Currency       string        `json:"currency"`
	Entries        []MarketEntry `json:"entries"`
	Rankings       Rankings      `json:"rankings"`
	FetchedAt      time.Time     `json:"fetched_at"`
	Degraded       bool          `json:"degraded"`
	DegradedReason string        `json:"degraded_reason,omitempty"`
}

// Entry finds the entry mapped to a contract symbol.
func (s *MarketSnapshot) Entry(symbol string) (MarketEntry, bool) {
	if s == nil {
		return MarketEntry{}, false
	}
	for _, e := range s.Entries {
		if e.ContractSymbol == symbol || (e.ContractSymbol == "" && e.Symbol == symbol) {
			return e, true
		}
	}
	return MarketEntry{}, false
}
