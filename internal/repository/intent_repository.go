package repository

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/domain"
)

const createIntentsTable = `
CREATE TABLE IF NOT EXISTS tx_intents (
    id           TEXT        PRIMARY KEY,
    kind         TEXT        NOT NULL,
    symbols      TEXT[]      NOT NULL DEFAULT '{}',
    params       JSONB       NOT NULL DEFAULT '{}',
    status       TEXT        NOT NULL,
    failure_kind TEXT        NOT NULL DEFAULT '',
    reason       TEXT        NOT NULL DEFAULT '',
    tx_hash      TEXT        NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tx_intents_created
    ON tx_intents (created_at DESC);
`

// IntentRepository stores transaction intents in Postgres.
type IntentRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewIntentRepository(pool PgxPool, tracer trace.Tracer) *IntentRepository {
	return &IntentRepository{pool: pool, tracer: tracer}
}

func (r *IntentRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "intent-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createIntentsTable)
	return err
}

// SaveIntent inserts the intent or updates its outcome fields.
func (r *IntentRepository) SaveIntent(ctx context.Context, in domain.TransactionIntent) error {
	_, span := r.tracer.Start(ctx, "intent-repo.save-intent")
	defer span.End()

	symbols := in.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	params := in.Params
	if params == nil {
		params = map[string]string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tx_intents (id, kind, symbols, params, status, failure_kind, reason, tx_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     params = EXCLUDED.params,
		     status = EXCLUDED.status,
		     failure_kind = EXCLUDED.failure_kind,
		     reason = EXCLUDED.reason,
		     tx_hash = EXCLUDED.tx_hash,
		     updated_at = EXCLUDED.updated_at`,
		in.ID, string(in.Kind), symbols, params, string(in.Status), in.FailureKind, in.Reason, in.TxHash, in.CreatedAt, in.UpdatedAt,
	)
	return err
}

// ListIntents returns the newest intents first.
func (r *IntentRepository) ListIntents(ctx context.Context, limit int) ([]domain.TransactionIntent, error) {
	_, span := r.tracer.Start(ctx, "intent-repo.list-intents")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, symbols, params, status, failure_kind, reason, tx_hash, created_at, updated_at
		 FROM tx_intents
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.TransactionIntent
	for rows.Next() {
		var in domain.TransactionIntent
		var kind, status string
		if err := rows.Scan(&in.ID, &kind, &in.Symbols, &in.Params, &status, &in.FailureKind, &in.Reason, &in.TxHash, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		in.Kind = domain.IntentKind(kind)
		in.Status = domain.IntentStatus(status)
		intents = append(intents, in)
	}
	return intents, rows.Err()
}
