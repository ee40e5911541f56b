package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orflow/orflow/internal/platform/db"
	"github.com/orflow/orflow/pkg/pagination"
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

const caseCols = `id, case_number, clinician_id, room_id, template_version_id, status,
	requested_date, scheduled_start, scheduled_end, duration_minutes,
	is_active, activated_at, activated_by,
	is_cancelled, cancelled_at, cancelled_by, cancel_reason,
	rejected_at, rejected_by, reject_reason,
	approved_at, approved_by, note, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.ClinicianID, &c.RoomID, &c.TemplateVersionID, &c.Status,
		&c.RequestedDate, &c.ScheduledStart, &c.ScheduledEnd, &c.DurationMinutes,
		&c.IsActive, &c.ActivatedAt, &c.ActivatedBy,
		&c.IsCancelled, &c.CancelledAt, &c.CancelledBy, &c.CancelReason,
		&c.RejectedAt, &c.RejectedBy, &c.RejectReason,
		&c.ApprovedAt, &c.ApprovedBy, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO surgical_case (id, case_number, clinician_id, room_id, template_version_id, status,
			requested_date, scheduled_start, scheduled_end, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.CaseNumber, c.ClinicianID, c.RoomID, c.TemplateVersionID, c.Status,
		c.RequestedDate, c.ScheduledStart, c.ScheduledEnd, c.Note)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM surgical_case WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f ListFilter, p pagination.Params) ([]*Case, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ClinicianID != nil {
		args = append(args, *f.ClinicianID)
		where = append(where, fmt.Sprintf("clinician_id = $%d", len(args)))
	}
	if f.RoomID != nil {
		args = append(args, *f.RoomID)
		where = append(where, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM surgical_case WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM surgical_case WHERE `+cond+` ORDER BY requested_date DESC, created_at DESC `+p.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, nil
}

func (r *repoPG) Update(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case SET clinician_id=$2, room_id=$3, template_version_id=$4, status=$5,
			requested_date=$6, scheduled_start=$7, scheduled_end=$8, duration_minutes=$9,
			note=$10, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.ClinicianID, c.RoomID, c.TemplateVersionID, c.Status,
		c.RequestedDate, c.ScheduledStart, c.ScheduledEnd, c.DurationMinutes, c.Note)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM surgical_case WHERE id = $1`, id)
	return err
}

// Approve flips REQUESTED to SCHEDULED. The status predicate makes a
// concurrent second approval, or an approval after cancellation, a no-op.
func (r *repoPG) Approve(ctx context.Context, id uuid.UUID, actor string, cmd ApproveCommand) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case
		SET status=$3, approved_at=NOW(), approved_by=$2,
			scheduled_start=COALESCE($4, scheduled_start),
			scheduled_end=COALESCE($5, scheduled_end),
			room_id=COALESCE($6, room_id),
			duration_minutes=COALESCE($7, duration_minutes),
			updated_at=NOW()
		WHERE id = $1 AND status = $8 AND NOT is_cancelled`,
		id, actor, StatusScheduled, cmd.ScheduledStart, cmd.ScheduledEnd, cmd.RoomID, cmd.DurationMinutes, StatusRequested)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Reject(ctx context.Context, id uuid.UUID, actor string, reason *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case
		SET status=$3, rejected_at=NOW(), rejected_by=$2, reject_reason=$4, updated_at=NOW()
		WHERE id = $1 AND status = $5 AND NOT is_cancelled`,
		id, actor, StatusRejected, reason, StatusRequested)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Activate sets is_active and bumps a still-requested case to scheduled in
// the same write. Cancelled or already-active rows fail the guard.
func (r *repoPG) Activate(ctx context.Context, id uuid.UUID, actor string, sched ScheduleUpdate) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case
		SET is_active=TRUE, activated_at=NOW(), activated_by=$2,
			status=CASE WHEN status=$3 THEN $4 ELSE status END,
			scheduled_start=COALESCE($5, scheduled_start),
			scheduled_end=COALESCE($6, scheduled_end),
			updated_at=NOW()
		WHERE id = $1 AND NOT is_active AND NOT is_cancelled AND status NOT IN ($7, $8)`,
		id, actor, StatusRequested, StatusScheduled, sched.ScheduledStart, sched.ScheduledEnd,
		StatusRejected, StatusCancelled)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Deactivate refuses once the case has started: an in-progress or
// completed case stays on the live schedule.
func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case
		SET is_active=FALSE, activated_at=NULL, activated_by=NULL, updated_at=NOW()
		WHERE id = $1 AND is_active AND status NOT IN ($2, $3)`,
		id, StatusInProgress, StatusCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves any non-terminal case to CANCELLED and forces the active
// flag off in the same statement. The self-join exposes the pre-update row,
// so the returned status is the one this write actually replaced.
func (r *repoPG) Cancel(ctx context.Context, id uuid.UUID, actor string, reason *string) (string, bool, error) {
	var prev string
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE surgical_case AS sc
		SET status=$3, is_cancelled=TRUE, cancelled_at=NOW(), cancelled_by=$2, cancel_reason=$4,
			is_active=FALSE, updated_at=NOW()
		FROM surgical_case old
		WHERE sc.id = $1 AND old.id = sc.id
			AND NOT sc.is_cancelled AND sc.status NOT IN ($5, $6, $7)
		RETURNING old.status`,
		id, actor, StatusCancelled, reason, StatusCompleted, StatusRejected, StatusCancelled).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return prev, true, nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case SET status=$3, updated_at=NOW()
		WHERE id = $1 AND status = $2 AND NOT is_cancelled`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) RecordTransition(ctx context.Context, t *StatusTransition) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_status_transition (id, case_id, from_status, to_status, actor, reason, context, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.CaseID, t.FromStatus, t.ToStatus, t.Actor, t.Reason, t.Context, t.OccurredAt)
	return err
}

func (r *repoPG) ListTransitions(ctx context.Context, caseID uuid.UUID) ([]*StatusTransition, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, case_id, from_status, to_status, actor, reason, context, occurred_at
		FROM case_status_transition WHERE case_id = $1 ORDER BY occurred_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*StatusTransition
	for rows.Next() {
		var t StatusTransition
		if err := rows.Scan(&t.ID, &t.CaseID, &t.FromStatus, &t.ToStatus, &t.Actor, &t.Reason, &t.Context, &t.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, nil
}

func (r *repoPG) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	var cl Clinician
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, role, is_active, created_at, updated_at FROM clinician WHERE id = $1`, id).
		Scan(&cl.ID, &cl.Name, &cl.Role, &cl.IsActive, &cl.CreatedAt, &cl.UpdatedAt)
	return &cl, err
}

func (r *repoPG) CreateClinician(ctx context.Context, cl *Clinician) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinician (id, name, role, is_active) VALUES ($1,$2,$3,$4)`,
		cl.ID, cl.Name, cl.Role, cl.IsActive)
	return err
}

func (r *repoPG) ListClinicians(ctx context.Context, p pagination.Params) ([]*Clinician, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinician`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, role, is_active, created_at, updated_at FROM clinician ORDER BY name `+p.SQL())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Clinician
	for rows.Next() {
		var cl Clinician
		if err := rows.Scan(&cl.ID, &cl.Name, &cl.Role, &cl.IsActive, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &cl)
	}
	return out, total, nil
}

func (r *repoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	var rm Room
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, status, is_active, note, created_at, updated_at FROM room WHERE id = $1`, id).
		Scan(&rm.ID, &rm.Name, &rm.Status, &rm.IsActive, &rm.Note, &rm.CreatedAt, &rm.UpdatedAt)
	return &rm, err
}

func (r *repoPG) CreateRoom(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, name, status, is_active, note) VALUES ($1,$2,$3,$4,$5)`,
		rm.ID, rm.Name, rm.Status, rm.IsActive, rm.Note)
	return err
}

func (r *repoPG) ListRooms(ctx context.Context) ([]*Room, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, status, is_active, note, created_at, updated_at FROM room ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Status, &rm.IsActive, &rm.Note, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rm)
	}
	return out, nil
}

func (r *repoPG) UpsertAnesthesiaPlan(ctx context.Context, p *AnesthesiaPlan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO anesthesia_plan (id, case_id, anesthesia_type, asa_class, airway, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (case_id) DO UPDATE
		SET anesthesia_type=EXCLUDED.anesthesia_type, asa_class=EXCLUDED.asa_class,
			airway=EXCLUDED.airway, note=EXCLUDED.note, updated_at=NOW()`,
		p.ID, p.CaseID, p.AnesthesiaType, p.ASAClass, p.Airway, p.Note)
	return err
}

func (r *repoPG) GetAnesthesiaPlan(ctx context.Context, caseID uuid.UUID) (*AnesthesiaPlan, error) {
	var p AnesthesiaPlan
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, case_id, anesthesia_type, asa_class, airway, note, created_at, updated_at
		FROM anesthesia_plan WHERE case_id = $1`, caseID).
		Scan(&p.ID, &p.CaseID, &p.AnesthesiaType, &p.ASAClass, &p.Airway, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) DeleteAnesthesiaPlan(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM anesthesia_plan WHERE case_id = $1`, caseID)
	return err
}
