package domain

import "strings"

// Source identifies where a reconciled price came from.
type Source string

const (
	SourceOracle      Source = "oracle"
	SourceMarketAPI   Source = "market_api"
	SourceUnavailable Source = "unavailable"
)

// Priority orders sources for reconciliation. Higher wins.
func (s Source) Priority() int {
	switch s {
	case SourceOracle:
		return 2
	case SourceMarketAPI:
		return 1
	default:
		return 0
	}
}

// Pair is an oracle pair identifier such as "ETH/USD".
type Pair string

// Base returns the upper-cased base asset ticker of the pair.
func (p Pair) Base() string {
	base, _, _ := strings.Cut(string(p), "/")
	return strings.ToUpper(strings.TrimSpace(base))
}

// Quote returns the upper-cased quote asset ticker, or "" when the pair has none.
func (p Pair) Quote() string {
	_, quote, ok := strings.Cut(string(p), "/")
	if !ok {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(quote))
}

func (p Pair) Valid() bool {
	return p.Base() != "" && p.Quote() != ""
}

// ParsePairs splits a comma separated list, dropping blanks and duplicates.
func ParsePairs(raw string) []Pair {
	seen := make(map[Pair]struct{})
	var pairs []Pair
	for _, part := range strings.Split(raw, ",") {
		p := Pair(strings.ToUpper(strings.TrimSpace(part)))
		if !p.Valid() {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}

const (
	// ZeroPrice is reported for a pair whose oracle read failed.
	ZeroPrice = "0.00"
	// Placeholder marks market-only attributes of an entry synthesized from oracle data.
	Placeholder = "-"
	// DefaultMintThreshold is used when the contract threshold cannot be read.
	DefaultMintThreshold = "1500.00"
	// MintSymbol is the asset the mint threshold applies to.
	MintSymbol = "ETH"
)

// DefaultPairs is the pair list the deployed oracle contract serves.
var DefaultPairs = []Pair{"ETH/USD", "BTC/USD", "DIA/USD", "LINK/USD", "USDC/USD", "USDT/USD"}

// DefaultSymbolMapping maps market tickers to contract tickers.
var DefaultSymbolMapping = map[string]string{
	"ETH":  "ETH",
	"BTC":  "BTC",
	"LINK": "LINK",
	"DIA":  "DIA",
	"USDC": "USDC",
	"USDT": "USDT",
}

// DefaultPriceFeeds lists the Base Sepolia aggregator addresses per pair.
var DefaultPriceFeeds = map[Pair]string{
	"ETH/USD":  "0x4aDC67696bA383F43DD60A9e78F2C97Fbbfc7cb1",
	"BTC/USD":  "0x0FB99723Aee6f420beAD13e6bBB79b7E6F034298",
	"DIA/USD":  "0xD1092a65338d049DB68D7Be6bD89d17a0929945e",
	"LINK/USD": "0xb113F5A928BCfF189C998ab20d753a47F9dE5A61",
	"USDC/USD": "0xd30e2101a97dcbAeBCBC04F14C3f624E67A35165",
	"USDT/USD": "0x3ec8593F930EA45ea58c968260e6e9FF53FC934f",
}
