package inventory

import (
	"context"

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

const itemCols = `id, catalog_item_id, serial_number, lot_number, barcode, location,
	sterility_status, sterility_expires_at, status, reserved_for_case_id, reserved_at,
	last_verified_at, last_verified_by, note, created_at, updated_at`

func (r *repoPG) scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.CatalogItemID, &i.SerialNumber, &i.LotNumber, &i.Barcode, &i.Location,
		&i.SterilityStatus, &i.SterilityExpiresAt, &i.Status, &i.ReservedForCaseID, &i.ReservedAt,
		&i.LastVerifiedAt, &i.LastVerifiedBy, &i.Note, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *repoPG) CreateItem(ctx context.Context, i *Item) error {
	i.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_item (id, catalog_item_id, serial_number, lot_number, barcode, location,
			sterility_status, sterility_expires_at, status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		i.ID, i.CatalogItemID, i.SerialNumber, i.LotNumber, i.Barcode, i.Location,
		i.SterilityStatus, i.SterilityExpiresAt, i.Status, i.Note)
	return err
}

func (r *repoPG) GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_item WHERE id = $1`, id))
}

func (r *repoPG) UpdateItem(ctx context.Context, i *Item) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item SET location=$2, sterility_status=$3, sterility_expires_at=$4,
			status=$5, reserved_for_case_id=$6, reserved_at=$7,
			last_verified_at=$8, last_verified_by=$9, note=$10, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.Location, i.SterilityStatus, i.SterilityExpiresAt,
		i.Status, i.ReservedForCaseID, i.ReservedAt,
		i.LastVerifiedAt, i.LastVerifiedBy, i.Note)
	return err
}

func (r *repoPG) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_item`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM inventory_item ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, nil
}

// Reserve is a conditional write: the claim only succeeds when no other
// case holds the item and the item is available. Losing the race is
// reported, not treated as a storage error.
func (r *repoPG) Reserve(ctx context.Context, itemID, caseID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item
		SET status=$3, reserved_for_case_id=$2, reserved_at=NOW(), updated_at=NOW()
		WHERE id = $1 AND reserved_for_case_id IS NULL AND status = $4`,
		itemID, caseID, StatusReserved, StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Release(ctx context.Context, itemID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item
		SET status=$2, reserved_for_case_id=NULL, reserved_at=NULL, updated_at=NOW()
		WHERE id = $1 AND reserved_for_case_id IS NOT NULL`,
		itemID, StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) ListReservedForCase(ctx context.Context, caseID uuid.UUID) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM inventory_item WHERE reserved_for_case_id = $1`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, nil
}

func (r *repoPG) VerifiedCounts(ctx context.Context, caseID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT catalog_item_id, COUNT(*)
		FROM inventory_item
		WHERE reserved_for_case_id = $1
		  AND last_verified_at IS NOT NULL
		  AND last_verified_at >= reserved_at
		GROUP BY catalog_item_id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *repoPG) AppendEvent(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_event (id, item_id, event_type, prev_location, new_location,
			prev_sterility, new_sterility, performed_by, case_id, scan_ref, note, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.ItemID, e.EventType, e.PrevLocation, e.NewLocation,
		e.PrevSterility, e.NewSterility, e.PerformedBy, e.CaseID, e.ScanRef, e.Note, e.OccurredAt)
	return err
}

func (r *repoPG) ListEvents(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_event WHERE item_id = $1`, itemID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, item_id, event_type, prev_location, new_location,
			prev_sterility, new_sterility, performed_by, case_id, scan_ref, note, occurred_at
		FROM inventory_event WHERE item_id = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
		itemID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ItemID, &e.EventType, &e.PrevLocation, &e.NewLocation,
			&e.PrevSterility, &e.NewSterility, &e.PerformedBy, &e.CaseID, &e.ScanRef, &e.Note, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, nil
}
