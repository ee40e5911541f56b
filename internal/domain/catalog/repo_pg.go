package catalog

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

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository { return &itemRepoPG{pool: pool} }

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const itemCols = `id, name, code, category, is_composite, unit_of_measure, is_active, note, created_at, updated_at`

func (r *itemRepoPG) scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.Code, &i.Category, &i.IsComposite, &i.UnitOfMeasure,
		&i.IsActive, &i.Note, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *itemRepoPG) Create(ctx context.Context, i *Item) error {
	i.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO catalog_item (id, name, code, category, is_composite, unit_of_measure, is_active, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		i.ID, i.Name, i.Code, i.Category, i.IsComposite, i.UnitOfMeasure, i.IsActive, i.Note)
	return err
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM catalog_item WHERE id = $1`, id))
}

func (r *itemRepoPG) Update(ctx context.Context, i *Item) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE catalog_item SET name=$2, code=$3, category=$4, unit_of_measure=$5, is_active=$6, note=$7, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.Name, i.Code, i.Category, i.UnitOfMeasure, i.IsActive, i.Note)
	return err
}

func (r *itemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM catalog_item WHERE id = $1`, id)
	return err
}

func (r *itemRepoPG) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM catalog_item`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM catalog_item ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
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

func (r *itemRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM catalog_item WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *itemRepoPG) AddComponent(ctx context.Context, c *Component) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO catalog_component (id, parent_id, child_id, quantity)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.ParentID, c.ChildID, c.Quantity)
	return err
}

func (r *itemRepoPG) RemoveComponent(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM catalog_component WHERE id = $1`, id)
	return err
}

func (r *itemRepoPG) GetComponents(ctx context.Context, parentID uuid.UUID) ([]*Component, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, parent_id, child_id, quantity
		FROM catalog_component WHERE parent_id = $1`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(&c.ID, &c.ParentID, &c.ChildID, &c.Quantity); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, nil
}
