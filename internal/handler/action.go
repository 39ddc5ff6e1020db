package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"price-oracle-dashboard/internal/action"
	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/domain"
)

type mintRequest struct {
	To string `json:"to" binding:"required"`
}

type thresholdsRequest struct {
	Pair string `json:"pair" binding:"required"`
	High string `json:"high" binding:"required"`
	Low  string `json:"low" binding:"required"`
}

// feedsRequest registers either one feed (pair, feed) or a batch (pairs, feeds).
type feedsRequest struct {
	Pair  string   `json:"pair"`
	Feed  string   `json:"feed"`
	Pairs []string `json:"pairs"`
	Feeds []string `json:"feeds"`
}

type updatePriceRequest struct {
	Pair string `json:"pair" binding:"required"`
}

// kindThresholdNotMet is reported when the dashboard view does not allow minting.
const kindThresholdNotMet = "threshold_not_met"

var txErrorStatus = map[chain.TxErrorKind]int{
	chain.KindUserRejected: http.StatusConflict,
	chain.KindReverted:     http.StatusUnprocessableEntity,
	chain.KindRPC:          http.StatusBadGateway,
	chain.KindInvalidInput: http.StatusBadRequest,
	chain.KindNoSigner:     http.StatusServiceUnavailable,
	chain.KindUnsupported:  http.StatusNotImplemented,
}

// ListActions godoc
// @Summary      List transaction intents
// @Description  Returns recorded contract write requests, newest first
// @Tags         actions
// @Produce      json
// @Param        limit  query  int  false  "Maximum intents (default 50, max 100)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/actions [get]
func (h *Handler) ListActions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-actions")
	defer span.End()

	if h.actions == nil {
		c.JSON(http.StatusOK, gin.H{"intents": []domain.TransactionIntent{}})
		return
	}
	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	intents, err := h.actions.Intents(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if intents == nil {
		intents = []domain.TransactionIntent{}
	}
	c.JSON(http.StatusOK, gin.H{"intents": intents})
}

// Mint godoc
// @Summary      Mint when the ETH price is above the threshold
// @Description  Submits mintNow(to) when the mint threshold is active and the oracle price is at or above it. 202 means the transaction is still pending.
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        request  body  mintRequest  true  "Recipient"
// @Success      200  {object}  domain.TransactionIntent
// @Success      202  {object}  domain.TransactionIntent
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Failure      422  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/actions/mint [post]
func (h *Handler) Mint(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.mint")
	defer span.End()

	var req mintRequest
	if !h.bind(c, &req) {
		return
	}
	view := h.dashboard.View()
	span.SetAttributes(attribute.Bool("mint.allowed", view.MintAllowed))
	if !view.MintAllowed {
		c.JSON(http.StatusConflict, gin.H{"error": mintBlockedReason(view), "kind": kindThresholdNotMet})
		return
	}
	intent, err := h.actions.Mint(ctx, req.To)
	h.respondAction(c, intent, err)
}

// SetThresholds godoc
// @Summary      Set high and low thresholds for a pair
// @Description  Values are decimal strings, scaled by the pair's feed decimals
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        request  body  thresholdsRequest  true  "Pair thresholds"
// @Success      200  {object}  domain.TransactionIntent
// @Success      202  {object}  domain.TransactionIntent
// @Failure      400  {object}  map[string]interface{}
// @Failure      422  {object}  map[string]interface{}
// @Router       /api/actions/thresholds [post]
func (h *Handler) SetThresholds(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.set-thresholds")
	defer span.End()

	var req thresholdsRequest
	if !h.bind(c, &req) {
		return
	}
	span.SetAttributes(attribute.String("pair", req.Pair))
	intent, err := h.actions.SetThresholds(ctx, req.Pair, req.High, req.Low)
	h.respondAction(c, intent, err)
}

// RegisterFeeds godoc
// @Summary      Register price feeds
// @Description  Registers one feed (pair, feed) or several in one transaction (pairs, feeds)
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        request  body  feedsRequest  true  "Feeds"
// @Success      200  {object}  domain.TransactionIntent
// @Success      202  {object}  domain.TransactionIntent
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/actions/feeds [post]
func (h *Handler) RegisterFeeds(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.register-feeds")
	defer span.End()

	var req feedsRequest
	if !h.bind(c, &req) {
		return
	}
	var (
		intent *domain.TransactionIntent
		err    error
	)
	switch {
	case len(req.Pairs) > 0:
		intent, err = h.actions.BatchRegisterFeeds(ctx, req.Pairs, req.Feeds)
	case req.Pair != "":
		intent, err = h.actions.RegisterFeed(ctx, req.Pair, req.Feed)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either pair and feed or pairs and feeds is required"})
		return
	}
	h.respondAction(c, intent, err)
}

// UpdatePrice godoc
// @Summary      Refresh the contract's stored price for a pair
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        request  body  updatePriceRequest  true  "Pair"
// @Success      200  {object}  domain.TransactionIntent
// @Success      202  {object}  domain.TransactionIntent
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/actions/update-price [post]
func (h *Handler) UpdatePrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-price")
	defer span.End()

	var req updatePriceRequest
	if !h.bind(c, &req) {
		return
	}
	intent, err := h.actions.UpdatePriceData(ctx, req.Pair)
	h.respondAction(c, intent, err)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if h.actions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "contract writes are not configured", "kind": chain.KindNoSigner})
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": chain.KindInvalidInput})
		return false
	}
	return true
}

func (h *Handler) respondAction(c *gin.Context, intent *domain.TransactionIntent, err error) {
	if err == nil {
		c.JSON(http.StatusOK, intent)
		return
	}
	if errors.Is(err, action.ErrPending) {
		c.JSON(http.StatusAccepted, intent)
		return
	}

	txErr := chain.ClassifyTxError(err)
	status, ok := txErrorStatus[txErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": txErr.Reason, "kind": txErr.Kind, "intent": intent})
}

func mintBlockedReason(view *domain.DashboardView) string {
	if !view.Threshold.Active {
		return "mint threshold is not active"
	}
	p, ok := view.Price(view.MintSymbol)
	if !ok || p.Source != domain.SourceOracle {
		return "no oracle price for " + view.MintSymbol
	}
	return view.MintSymbol + " price " + p.Price + " is below threshold " + view.Threshold.Value
}
