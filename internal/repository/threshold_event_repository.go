package repository

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/domain"
)

const createThresholdEventsTable = `
CREATE TABLE IF NOT EXISTS threshold_events (
    tx_hash      TEXT        NOT NULL,
    log_index    INTEGER     NOT NULL,
    symbol       TEXT        NOT NULL,
    price        TEXT        NOT NULL,
    crossed_high BOOLEAN     NOT NULL,
    crossed_low  BOOLEAN     NOT NULL,
    block_number BIGINT      NOT NULL,
    observed_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (tx_hash, log_index)
);

CREATE INDEX IF NOT EXISTS idx_threshold_events_block
    ON threshold_events (block_number DESC, log_index DESC);
`

type ThresholdEventRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewThresholdEventRepository(pool PgxPool, tracer trace.Tracer) *ThresholdEventRepository {
	return &ThresholdEventRepository{pool: pool, tracer: tracer}
}

func (r *ThresholdEventRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "threshold-event-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createThresholdEventsTable)
	return err
}

// SaveEvent stores ev once; replays of the same log are ignored.
func (r *ThresholdEventRepository) SaveEvent(ctx context.Context, ev domain.ThresholdEvent) error {
	_, span := r.tracer.Start(ctx, "threshold-event-repo.save-event")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO threshold_events (tx_hash, log_index, symbol, price, crossed_high, crossed_low, block_number, observed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		ev.TxHash, int64(ev.LogIndex), ev.Symbol, ev.Price, ev.CrossedHigh, ev.CrossedLow, int64(ev.BlockNumber), ev.ObservedAt,
	)
	return err
}

// RecentEvents returns the latest events by chain position, newest first.
func (r *ThresholdEventRepository) RecentEvents(ctx context.Context, limit int) ([]domain.ThresholdEvent, error) {
	_, span := r.tracer.Start(ctx, "threshold-event-repo.recent-events")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT tx_hash, log_index, symbol, price, crossed_high, crossed_low, block_number, observed_at
		 FROM threshold_events
		 ORDER BY block_number DESC, log_index DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ThresholdEvent
	for rows.Next() {
		var ev domain.ThresholdEvent
		var logIndex, block int64
		if err := rows.Scan(&ev.TxHash, &logIndex, &ev.Symbol, &ev.Price, &ev.CrossedHigh, &ev.CrossedLow, &block, &ev.ObservedAt); err != nil {
			return nil, err
		}
		ev.LogIndex = uint(logIndex)
		ev.BlockNumber = uint64(block)
		events = append(events, ev)
	}
	return events, rows.Err()
}
