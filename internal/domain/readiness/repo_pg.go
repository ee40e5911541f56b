package readiness

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orflow/orflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type cachePG struct{ pool *pgxpool.Pool }

func NewCachePG(pool *pgxpool.Pool) CacheRepository { return &cachePG{pool: pool} }

func (r *cachePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *cachePG) Upsert(ctx context.Context, snap *CachedSnapshot) error {
	blockers, err := json.Marshal(snap.Blockers)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO readiness_cache (case_id, signal, blockers, computed_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (case_id) DO UPDATE
		SET signal=EXCLUDED.signal, blockers=EXCLUDED.blockers, computed_at=EXCLUDED.computed_at`,
		snap.CaseID, snap.Signal, blockers, snap.ComputedAt)
	return err
}

func (r *cachePG) Get(ctx context.Context, caseID uuid.UUID) (*CachedSnapshot, error) {
	var snap CachedSnapshot
	var blockers []byte
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT case_id, signal, blockers, computed_at FROM readiness_cache WHERE case_id = $1`, caseID).
		Scan(&snap.CaseID, &snap.Signal, &blockers, &snap.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blockers, &snap.Blockers); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *cachePG) Delete(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM readiness_cache WHERE case_id = $1`, caseID)
	return err
}
