package market

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/provider"
	"price-oracle-dashboard/internal/units"
)

const (
	bidFactor     = "0.999"
	askFactor     = "1.001"
	topVolumeSize = 2
)

// ToEntries maps raw coins to entries without any oracle data.
func ToEntries(coins []provider.MarketCoin, currency string, mapping map[string]string) []domain.MarketEntry {
	quote := strings.ToUpper(currency)
	entries := make([]domain.MarketEntry, 0, len(coins))
	for _, c := range coins {
		sym := strings.ToUpper(c.Symbol)
		e := domain.MarketEntry{
			Symbol:         sym,
			ContractSymbol: contractSymbol(sym, mapping),
			Name:           c.Name,
			Pair:           sym + "/" + quote,
			LastPrice:      units.FormatFloat(c.CurrentPrice),
			ContractPrice:  domain.Placeholder,
			Volume:         units.FormatFloat(c.TotalVolume),
			High24h:        optional(c.High24h),
			Low24h:         optional(c.Low24h),
			Bid:            units.Scale(c.CurrentPrice, bidFactor),
			Ask:            units.Scale(c.CurrentPrice, askFactor),
			Listed:         true,
		}
		if c.PriceChangePercentage24h != nil {
			e.Change = units.Round(*c.PriceChangePercentage24h, 2)
		}
		entries = append(entries, e)
	}
	return entries
}

// Merge attaches oracle prices to the matching entries and appends an entry
// for every oracle symbol the market does not list. Rankings are recomputed
// from the merged list.
func Merge(entries []domain.MarketEntry, oracle []domain.PriceSnapshot, currency string, fetchedAt time.Time) *domain.MarketSnapshot {
	merged := make([]domain.MarketEntry, len(entries))
	copy(merged, entries)

	index := make(map[string]int, len(merged))
	for i, e := range merged {
		if _, seen := index[e.ContractSymbol]; !seen {
			index[e.ContractSymbol] = i
		}
		merged[i].ContractPrice = domain.Placeholder
	}

	for _, ps := range oracle {
		if ps.Source != domain.SourceOracle {
			continue
		}
		if i, ok := index[ps.Symbol]; ok {
			merged[i].ContractPrice = ps.Price
			continue
		}
		merged = append(merged, contractOnly(ps))
		index[ps.Symbol] = len(merged) - 1
	}

	return &domain.MarketSnapshot{
		Currency:  strings.ToLower(currency),
		Entries:   merged,
		Rankings:  Rank(merged),
		FetchedAt: fetchedAt,
	}
}

// OracleOnly builds a degraded snapshot listing only contract prices. Its
// rankings are empty.
func OracleOnly(oracle []domain.PriceSnapshot, currency string, fetchedAt time.Time, reason string) *domain.MarketSnapshot {
	entries := make([]domain.MarketEntry, 0, len(oracle))
	for _, ps := range oracle {
		if ps.Source == domain.SourceOracle {
			entries = append(entries, contractOnly(ps))
		}
	}
	return &domain.MarketSnapshot{
		Currency:       strings.ToLower(currency),
		Entries:        entries,
		FetchedAt:      fetchedAt,
		Degraded:       true,
		DegradedReason: reason,
	}
}

// Rank derives the top volume list and the biggest movers. Entries
// synthesized from oracle data carry no market data and are not ranked.
// Ties keep list order.
func Rank(entries []domain.MarketEntry) domain.Rankings {
	var listed []domain.MarketEntry
	for _, e := range entries {
		if e.Listed {
			listed = append(listed, e)
		}
	}
	if len(listed) == 0 {
		return domain.Rankings{}
	}

	byVolume := make([]domain.MarketEntry, 0, len(listed))
	for _, e := range listed {
		if _, err := decimal.NewFromString(e.Volume); err == nil {
			byVolume = append(byVolume, e)
		}
	}
	sort.SliceStable(byVolume, func(i, j int) bool {
		return volume(byVolume[i]).GreaterThan(volume(byVolume[j]))
	})
	if len(byVolume) > topVolumeSize {
		byVolume = byVolume[:topVolumeSize]
	}

	inc, dec := listed[0], listed[0]
	for _, e := range listed[1:] {
		if e.Change > inc.Change {
			inc = e
		}
		if e.Change < dec.Change {
			dec = e
		}
	}
	return domain.Rankings{
		TopVolume:       byVolume,
		BiggestIncrease: &inc,
		BiggestDecrease: &dec,
	}
}

func contractOnly(ps domain.PriceSnapshot) domain.MarketEntry {
	return domain.MarketEntry{
		Symbol:         ps.Symbol,
		ContractSymbol: ps.Symbol,
		Name:           ps.Symbol,
		Pair:           string(ps.Pair),
		LastPrice:      domain.Placeholder,
		ContractPrice:  ps.Price,
		Volume:         domain.Placeholder,
		High24h:        domain.Placeholder,
		Low24h:         domain.Placeholder,
		Bid:            domain.Placeholder,
		Ask:            domain.Placeholder,
	}
}

func contractSymbol(marketSymbol string, mapping map[string]string) string {
	if mapped, ok := mapping[marketSymbol]; ok && mapped != "" {
		return mapped
	}
	return marketSymbol
}

func optional(v *float64) string {
	if v == nil {
		return domain.Placeholder
	}
	return units.FormatFloat(*v)
}

func volume(e domain.MarketEntry) decimal.Decimal {
	d, _ := decimal.NewFromString(e.Volume)
	return d
}
