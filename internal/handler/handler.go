package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
)

// Dashboard is the read side served by the API.
type Dashboard interface {
	View() *domain.DashboardView
	Price(symbol string) (domain.ViewPrice, bool)
	Subscribe() (<-chan *domain.DashboardView, func())
}

// Actions submits contract writes.
type Actions interface {
	CanSign() bool
	Intents(ctx context.Context, limit int) ([]domain.TransactionIntent, error)
	Mint(ctx context.Context, to string) (*domain.TransactionIntent, error)
	SetThresholds(ctx context.Context, pair, high, low string) (*domain.TransactionIntent, error)
	RegisterFeed(ctx context.Context, pair, feed string) (*domain.TransactionIntent, error)
	BatchRegisterFeeds(ctx context.Context, pairs, feeds []string) (*domain.TransactionIntent, error)
	UpdatePriceData(ctx context.Context, pair string) (*domain.TransactionIntent, error)
}

type Handler struct {
	tracer    trace.Tracer
	dashboard Dashboard
	actions   Actions
	metrics   *metrics.Metrics
	apiKey    string
	log       *logger.Entry
}

func New(tracer trace.Tracer, dashboard Dashboard, actions Actions, m *metrics.Metrics, apiKey string) *Handler {
	return &Handler{
		tracer:    tracer,
		dashboard: dashboard,
		actions:   actions,
		metrics:   m,
		apiKey:    apiKey,
		log:       logger.L().WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/prices", h.GetAllPrices)
	api.GET("/prices/:symbol", h.GetPrice)
	api.GET("/market", h.GetMarket)
	api.GET("/thresholds", h.GetThresholds)
	api.GET("/events", h.GetEvents)
	api.GET("/stream", h.Stream)

	actions := api.Group("/actions", APIKeyAuth(h.apiKey))
	actions.GET("", h.ListActions)
	actions.POST("/mint", h.Mint)
	actions.POST("/thresholds", h.SetThresholds)
	actions.POST("/feeds", h.RegisterFeeds)
	actions.POST("/update-price", h.UpdatePrice)
}
