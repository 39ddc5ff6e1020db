package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"price-oracle-dashboard/internal/domain"
)

// GetDashboard godoc
// @Summary      Get the reconciled dashboard view
// @Description  Returns prices, mint threshold state, market table, rankings and recent threshold events
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  domain.DashboardView
// @Router       /api/dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-dashboard")
	defer span.End()

	c.JSON(http.StatusOK, h.dashboard.View())
}

// GetAllPrices godoc
// @Summary      Get reconciled prices
// @Description  Returns one price per symbol with its source (oracle, market_api or unavailable)
// @Tags         prices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/prices [get]
func (h *Handler) GetAllPrices(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-all-prices")
	defer span.End()

	view := h.dashboard.View()
	c.JSON(http.StatusOK, gin.H{"prices": view.Prices, "generated_at": view.GeneratedAt})
}

// GetPrice godoc
// @Summary      Get the reconciled price for one symbol
// @Description  Accepts a ticker (ETH) or a pair written with a dash (ETH-USD)
// @Tags         prices
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.ViewPrice
// @Failure      404  {object}  map[string]string
// @Router       /api/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol := normalizeSymbol(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	price, ok := h.dashboard.Price(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol: " + symbol})
		return
	}
	c.JSON(http.StatusOK, price)
}

// GetMarket godoc
// @Summary      Get the market table
// @Description  Returns listings with merged contract prices and the derived rankings
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/market [get]
func (h *Handler) GetMarket(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-market")
	defer span.End()

	view := h.dashboard.View()
	c.JSON(http.StatusOK, gin.H{
		"currency":        view.MarketCurrency,
		"entries":         view.Market,
		"rankings":        view.Rankings,
		"degraded":        view.MarketDegraded,
		"degraded_reason": view.MarketDegradedReason,
	})
}

type pairThresholdResponse struct {
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	High        string `json:"high"`
	Low         string `json:"low"`
	HighSet     bool   `json:"high_threshold_set"`
	LowSet      bool   `json:"low_threshold_set"`
	IsAboveHigh bool   `json:"is_above_high"`
	IsBelowLow  bool   `json:"is_below_low"`
}

// GetThresholds godoc
// @Summary      Get threshold state
// @Description  Returns the mint threshold, whether minting is allowed and per-pair thresholds
// @Tags         thresholds
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/thresholds [get]
func (h *Handler) GetThresholds(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-thresholds")
	defer span.End()

	view := h.dashboard.View()
	pairs := []pairThresholdResponse{}
	for _, p := range view.Prices {
		if p.HighThreshold == "" && p.LowThreshold == "" {
			continue
		}
		pairs = append(pairs, pairThresholdResponse{
			Symbol:      p.Symbol,
			Price:       p.Price,
			High:        p.HighThreshold,
			Low:         p.LowThreshold,
			HighSet:     p.HighSet,
			LowSet:      p.LowSet,
			IsAboveHigh: p.IsAboveHigh,
			IsBelowLow:  p.IsBelowLow,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"mint_symbol":          view.MintSymbol,
		"threshold":            view.Threshold,
		"above_mint_threshold": view.AboveMintThreshold,
		"mint_allowed":         view.MintAllowed,
		"pairs":                pairs,
	})
}

// GetEvents godoc
// @Summary      Get recent threshold events
// @Description  Returns the most recent ThresholdCrossed events, newest first
// @Tags         thresholds
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/events [get]
func (h *Handler) GetEvents(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-events")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"events": h.dashboard.View().Events})
}

func normalizeSymbol(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if strings.Contains(raw, "-") {
		return domain.Pair(strings.Replace(raw, "-", "/", 1)).Base()
	}
	return raw
}
