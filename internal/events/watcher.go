package events

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/units"
)

const (
	// lookback is how many blocks before head the first poll scans.
	lookback   = 500
	maxRange   = 2000
	maxBackoff = 5 * time.Minute
)

var ErrNoEvent = errors.New("contract does not emit ThresholdCrossed")

// Source reads ThresholdCrossed logs from the chain.
type Source interface {
	Capabilities() chain.Capabilities
	PriceDecimals() uint8
	HeadBlock(ctx context.Context) (uint64, error)
	ThresholdCrossedLogs(ctx context.Context, from, to uint64) ([]chain.ThresholdCrossed, error)
}

// Store persists events. It may be nil.
type Store interface {
	SaveEvent(ctx context.Context, ev domain.ThresholdEvent) error
	RecentEvents(ctx context.Context, limit int) ([]domain.ThresholdEvent, error)
}

// Watcher polls the chain for new logs and pushes them into a Feed.
type Watcher struct {
	tracer   trace.Tracer
	src      Source
	feed     *Feed
	store    Store
	interval time.Duration
	log      *logger.Entry
	metrics  *metrics.Metrics
	now      func() time.Time

	// resume is the newest block already persisted before start. Its block
	// is rescanned and known logs are dropped by the feed.
	resume uint64
	next   uint64
}

func NewWatcher(tracer trace.Tracer, src Source, feed *Feed, store Store, pollSecs int, m *metrics.Metrics) *Watcher {
	if pollSecs <= 0 {
		pollSecs = 15
	}
	return &Watcher{
		tracer:   tracer,
		src:      src,
		feed:     feed,
		store:    store,
		interval: time.Duration(pollSecs) * time.Second,
		log:      logger.L().WithComponent("events"),
		metrics:  m,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. Failed polls back off exponentially.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.src.Capabilities().ThresholdCrossedEvent {
		return ErrNoEvent
	}
	w.warm(ctx)

	delay := w.interval
	for {
		if err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
			w.log.WithError(err).WithField("retry_in", delay.String()).Warn("threshold event poll failed")
		} else {
			delay = w.interval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (w *Watcher) warm(ctx context.Context) {
	if w.store == nil {
		return
	}
	recent, err := w.store.RecentEvents(ctx, w.feed.max)
	if err != nil {
		w.log.WithError(err).Warn("load stored threshold events failed")
		return
	}
	w.feed.Seed(recent)
	for _, ev := range recent {
		if ev.BlockNumber > w.resume {
			w.resume = ev.BlockNumber
		}
	}
}

// Poll scans blocks since the last poll and records new events.
func (w *Watcher) Poll(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "events.poll")
	defer span.End()

	head, err := w.src.HeadBlock(ctx)
	if err != nil {
		return err
	}
	if w.next == 0 {
		if head > lookback {
			w.next = head - lookback
		} else {
			w.next = 1
		}
		if w.resume > w.next {
			w.next = w.resume
		}
	}
	if head < w.next {
		return nil
	}
	to := head
	if to-w.next+1 > maxRange {
		to = w.next + maxRange - 1
	}
	span.SetAttributes(attribute.Int64("from", int64(w.next)), attribute.Int64("to", int64(to)))

	logs, err := w.src.ThresholdCrossedLogs(ctx, w.next, to)
	if err != nil {
		return err
	}
	decimals := w.src.PriceDecimals()
	for _, l := range logs {
		ev := domain.ThresholdEvent{
			Symbol:      l.Symbol,
			Price:       units.FormatDisplay(l.Price, decimals),
			CrossedHigh: l.CrossedHigh,
			CrossedLow:  l.CrossedLow,
			TxHash:      l.Raw.TxHash.Hex(),
			LogIndex:    l.Raw.Index,
			BlockNumber: l.Raw.BlockNumber,
			ObservedAt:  w.now(),
		}
		if !w.feed.Add(ev) {
			continue
		}
		w.metrics.ThresholdEvent(ev.Symbol)
		w.log.WithFields(logger.Fields{"symbol": ev.Symbol, "price": ev.Price, "high": ev.CrossedHigh, "low": ev.CrossedLow}).Info("threshold crossed")
		if w.store != nil {
			if err := w.store.SaveEvent(ctx, ev); err != nil {
				w.log.WithError(err).Warn("persist threshold event failed")
			}
		}
	}
	w.next = to + 1
	return nil
}
