package checklists

import (
	"context"
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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const instanceCols = `id, case_id, kind, status, completed_by, completed_at, note, created_at, updated_at`

func (r *repoPG) scanInstance(row pgx.Row) (*Instance, error) {
	var i Instance
	err := row.Scan(&i.ID, &i.CaseID, &i.Kind, &i.Status, &i.CompletedBy, &i.CompletedAt, &i.Note, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *repoPG) CreateInstance(ctx context.Context, i *Instance) error {
	i.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO checklist_instance (id, case_id, kind, status, note)
		VALUES ($1,$2,$3,$4,$5)`,
		i.ID, i.CaseID, i.Kind, i.Status, i.Note)
	return err
}

func (r *repoPG) GetInstanceByID(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return r.scanInstance(r.conn(ctx).QueryRow(ctx, `SELECT `+instanceCols+` FROM checklist_instance WHERE id = $1`, id))
}

func (r *repoPG) GetInstance(ctx context.Context, caseID uuid.UUID, kind string) (*Instance, error) {
	return r.scanInstance(r.conn(ctx).QueryRow(ctx,
		`SELECT `+instanceCols+` FROM checklist_instance WHERE case_id = $1 AND kind = $2`, caseID, kind))
}

func (r *repoPG) UpdateInstance(ctx context.Context, i *Instance) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE checklist_instance SET status=$2, completed_by=$3, completed_at=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.Status, i.CompletedBy, i.CompletedAt, i.Note)
	return err
}

func (r *repoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Instance, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+instanceCols+` FROM checklist_instance WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Instance
	for rows.Next() {
		i, err := r.scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, nil
}

func (r *repoPG) HasCompleted(ctx context.Context, caseID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM checklist_instance WHERE case_id = $1 AND status = $2)`,
		caseID, StatusCompleted).Scan(&exists)
	return exists, err
}

func (r *repoPG) CreateAttestation(ctx context.Context, a *Attestation) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO attestation (id, case_id, state, attested_by, attested_at, note)
		VALUES ($1,$2,$3,$4,NOW(),$5)`,
		a.ID, a.CaseID, a.State, a.AttestedBy, a.Note)
	return err
}

func (r *repoPG) GetAttestationByID(ctx context.Context, id uuid.UUID) (*Attestation, error) {
	var a Attestation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, case_id, state, attested_by, attested_at, voided_by, voided_at, note
		FROM attestation WHERE id = $1`, id).
		Scan(&a.ID, &a.CaseID, &a.State, &a.AttestedBy, &a.AttestedAt, &a.VoidedBy, &a.VoidedAt, &a.Note)
	return &a, err
}

func (r *repoPG) UpdateAttestation(ctx context.Context, a *Attestation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE attestation SET state=$2, voided_by=$3, voided_at=$4, note=$5
		WHERE id = $1`,
		a.ID, a.State, a.VoidedBy, a.VoidedAt, a.Note)
	return err
}

// LatestAttestation returns the newest attestation row for the case, or
// nil when none exists.
func (r *repoPG) LatestAttestation(ctx context.Context, caseID uuid.UUID) (*Attestation, error) {
	var a Attestation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, case_id, state, attested_by, attested_at, voided_by, voided_at, note
		FROM attestation WHERE case_id = $1 ORDER BY attested_at DESC LIMIT 1`, caseID).
		Scan(&a.ID, &a.CaseID, &a.State, &a.AttestedBy, &a.AttestedAt, &a.VoidedBy, &a.VoidedAt, &a.Note)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
