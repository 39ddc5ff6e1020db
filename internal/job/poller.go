package job

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/logger"
)

// Poller runs the oracle and market refresh loops.
type Poller struct {
	tracer         trace.Tracer
	dashboard      DashboardRefresher
	oracleInterval time.Duration
	marketInterval time.Duration
	log            *logger.Entry
}

type DashboardRefresher interface {
	RefreshOracle(ctx context.Context) error
	RefreshMarket(ctx context.Context) error
	OracleReady() <-chan struct{}
}

func NewPoller(tracer trace.Tracer, dashboard DashboardRefresher, oraclePollSecs, marketPollSecs int) *Poller {
	return &Poller{
		tracer:         tracer,
		dashboard:      dashboard,
		oracleInterval: time.Duration(oraclePollSecs) * time.Second,
		marketInterval: time.Duration(marketPollSecs) * time.Second,
		log:            logger.L().WithComponent("poller"),
	}
}

// Start launches both loops and blocks until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.log.Info("poller starting")

	go p.pollLoop(ctx, "oracle", p.oracleInterval, p.dashboard.RefreshOracle)

	// The first market merge needs oracle prices, so wait for one oracle cycle.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-p.dashboard.OracleReady():
		}
		p.pollLoop(ctx, "market", p.marketInterval, p.dashboard.RefreshMarket)
	}()

	<-ctx.Done()
	p.log.Info("poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	entry := p.log.WithField("loop", name)
	if err := fn(ctx); err != nil {
		entry.WithError(err).Warn("initial refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				entry.WithError(err).Warn("refresh failed")
			}
		}
	}
}
