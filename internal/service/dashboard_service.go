package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/reconcile"
)

type OracleReader interface {
	Read(ctx context.Context) *domain.OracleSnapshot
}

type MarketReader interface {
	Refresh(ctx context.Context, oracle *domain.OracleSnapshot, prev *domain.MarketSnapshot) *domain.MarketSnapshot
	Remerge(oracle *domain.OracleSnapshot, prev *domain.MarketSnapshot) *domain.MarketSnapshot
}

type EventSource interface {
	Recent() []domain.ThresholdEvent
}

// ViewPublisher receives every new view, for processes that cannot reach
// this one directly.
type ViewPublisher interface {
	SetView(ctx context.Context, view *domain.DashboardView) error
}

type Options struct {
	MintSymbol   string
	OraclePeriod time.Duration
	MarketPeriod time.Duration
}

// DashboardService owns the latest snapshots and the view derived from
// them. Snapshots are immutable and replaced wholesale.
type DashboardService struct {
	tracer    trace.Tracer
	oracle    OracleReader
	market    MarketReader
	events    EventSource
	publisher ViewPublisher
	metrics   *metrics.Metrics
	log       *logger.Entry
	opts      Options
	now       func() time.Time

	oracleSnap atomic.Pointer[domain.OracleSnapshot]
	marketSnap atomic.Pointer[domain.MarketSnapshot]
	view       atomic.Pointer[domain.DashboardView]

	// mu serializes snapshot swaps with the rebuild that follows them.
	mu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]chan *domain.DashboardView
	nextSub int

	oracleReady chan struct{}
	readyOnce   sync.Once
}

func NewDashboardService(
	tracer trace.Tracer,
	oracle OracleReader,
	market MarketReader,
	events EventSource,
	publisher ViewPublisher,
	opts Options,
	m *metrics.Metrics,
) *DashboardService {
	if opts.MintSymbol == "" {
		opts.MintSymbol = domain.MintSymbol
	}
	return &DashboardService{
		tracer:      tracer,
		oracle:      oracle,
		market:      market,
		events:      events,
		publisher:   publisher,
		metrics:     m,
		log:         logger.L().WithComponent("service"),
		opts:        opts,
		now:         time.Now,
		subs:        make(map[int]chan *domain.DashboardView),
		oracleReady: make(chan struct{}),
	}
}

// RefreshOracle reads the contract and rebuilds the view. When prices moved,
// the last market listings are merged again without a new HTTP fetch.
func (s *DashboardService) RefreshOracle(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "dashboard-service.refresh-oracle")
	defer span.End()

	snap := s.oracle.Read(ctx)

	s.mu.Lock()
	prev := s.oracleSnap.Swap(snap)
	changed := !snap.SamePrices(prev)
	if changed && s.market != nil {
		s.marketSnap.Store(s.market.Remerge(snap, s.marketSnap.Load()))
	}
	view := s.rebuild()
	s.mu.Unlock()

	span.SetAttributes(attribute.Bool("oracle.changed", changed), attribute.Bool("oracle.degraded", snap.Degraded))
	s.readyOnce.Do(func() { close(s.oracleReady) })
	s.publish(ctx, view)

	if snap.Degraded {
		return fmt.Errorf("oracle degraded: %s", snap.DegradedReason)
	}
	return nil
}

// RefreshMarket fetches listings, merges the current oracle prices and
// rebuilds the view.
func (s *DashboardService) RefreshMarket(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "dashboard-service.refresh-market")
	defer span.End()

	if s.market == nil {
		return nil
	}
	used := s.oracleSnap.Load()
	next := s.market.Refresh(ctx, used, s.marketSnap.Load())

	s.mu.Lock()
	if next != nil {
		// An oracle cycle may have finished during the fetch.
		if cur := s.oracleSnap.Load(); cur != used {
			next = s.market.Remerge(cur, next)
		}
		s.marketSnap.Store(next)
	}
	view := s.rebuild()
	s.mu.Unlock()

	s.publish(ctx, view)

	if next == nil {
		return fmt.Errorf("market data unavailable")
	}
	if next.Degraded {
		return fmt.Errorf("market degraded: %s", next.DegradedReason)
	}
	return nil
}

// Republish rebuilds the view from the current snapshots, for example after
// a new threshold event arrived.
func (s *DashboardService) Republish(ctx context.Context) {
	s.mu.Lock()
	view := s.rebuild()
	s.mu.Unlock()
	s.publish(ctx, view)
}

// rebuild must be called with mu held.
func (s *DashboardService) rebuild() *domain.DashboardView {
	view := reconcile.Reconcile(s.oracleSnap.Load(), s.marketSnap.Load(), reconcile.Options{
		MintSymbol:       s.opts.MintSymbol,
		OracleStaleAfter: 2 * s.opts.OraclePeriod,
		MarketStaleAfter: 2 * s.opts.MarketPeriod,
		Now:              s.now(),
	})
	view.Events = []domain.ThresholdEvent{}
	if s.events != nil {
		view.Events = append(view.Events, s.events.Recent()...)
	}
	s.view.Store(view)

	s.subsMu.Lock()
	for _, ch := range s.subs {
		// Keep only the newest view for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- view
	}
	s.subsMu.Unlock()
	return view
}

func (s *DashboardService) publish(ctx context.Context, view *domain.DashboardView) {
	s.metrics.ViewPublished()
	if s.publisher != nil {
		if err := s.publisher.SetView(ctx, view); err != nil {
			s.log.WithError(err).Warn("publish view to cache failed")
		}
	}
}

// View returns the latest view. Before the first refresh it is built from
// empty snapshots.
func (s *DashboardService) View() *domain.DashboardView {
	if v := s.view.Load(); v != nil {
		return v
	}
	view := reconcile.Reconcile(nil, nil, reconcile.Options{MintSymbol: s.opts.MintSymbol, Now: s.now()})
	view.Events = []domain.ThresholdEvent{}
	return view
}

func (s *DashboardService) Price(symbol string) (domain.ViewPrice, bool) {
	return s.View().Price(symbol)
}

func (s *DashboardService) OracleSnapshot() *domain.OracleSnapshot {
	return s.oracleSnap.Load()
}

func (s *DashboardService) MarketSnapshot() *domain.MarketSnapshot {
	return s.marketSnap.Load()
}

// OracleReady is closed after the first oracle cycle completes.
func (s *DashboardService) OracleReady() <-chan struct{} {
	return s.oracleReady
}

// Subscribe delivers each new view. The channel holds at most one pending
// view; call cancel to stop.
func (s *DashboardService) Subscribe() (<-chan *domain.DashboardView, func()) {
	ch := make(chan *domain.DashboardView, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}
