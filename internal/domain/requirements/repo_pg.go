package requirements

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

const templateCols = `id, name, procedure_code, current_version_id, is_active, note, created_at, updated_at`

func (r *repoPG) scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.ProcedureCode, &t.CurrentVersionID, &t.IsActive, &t.Note, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) CreateTemplate(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO requirement_template (id, name, procedure_code, is_active, note)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.ProcedureCode, t.IsActive, t.Note)
	return err
}

func (r *repoPG) GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx, `SELECT `+templateCols+` FROM requirement_template WHERE id = $1`, id))
}

func (r *repoPG) UpdateTemplate(ctx context.Context, t *Template) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE requirement_template SET name=$2, procedure_code=$3, current_version_id=$4, is_active=$5, note=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.ProcedureCode, t.CurrentVersionID, t.IsActive, t.Note)
	return err
}

func (r *repoPG) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM requirement_template`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM requirement_template ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *repoPG) CreateVersion(ctx context.Context, v *TemplateVersion) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO requirement_template_version (id, template_id, version, published_by, published_at)
		VALUES ($1,$2,$3,$4,NOW())`,
		v.ID, v.TemplateID, v.Version, v.PublishedBy)
	return err
}

func (r *repoPG) GetVersionByID(ctx context.Context, id uuid.UUID) (*TemplateVersion, error) {
	var v TemplateVersion
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, template_id, version, published_by, published_at
		FROM requirement_template_version WHERE id = $1`, id).
		Scan(&v.ID, &v.TemplateID, &v.Version, &v.PublishedBy, &v.PublishedAt)
	return &v, err
}

func (r *repoPG) NextVersionNumber(ctx context.Context, templateID uuid.UUID) (int, error) {
	var next int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM requirement_template_version WHERE template_id = $1`, templateID).Scan(&next)
	return next, err
}

func (r *repoPG) AddVersionItem(ctx context.Context, i *TemplateItem) error {
	i.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO requirement_template_item (id, version_id, catalog_item_id, quantity, required, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		i.ID, i.VersionID, i.CatalogItemID, i.Quantity, i.Required, i.Note)
	return err
}

func (r *repoPG) ListVersionItems(ctx context.Context, versionID uuid.UUID) ([]*TemplateItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, version_id, catalog_item_id, quantity, required, note
		FROM requirement_template_item WHERE version_id = $1`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TemplateItem
	for rows.Next() {
		var i TemplateItem
		if err := rows.Scan(&i.ID, &i.VersionID, &i.CatalogItemID, &i.Quantity, &i.Required, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, &i)
	}
	return items, nil
}

func (r *repoPG) InsertRequirement(ctx context.Context, req *CaseRequirement) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_requirement (id, case_id, catalog_item_id, quantity, required, is_override, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (case_id, catalog_item_id) DO NOTHING`,
		req.ID, req.CaseID, req.CatalogItemID, req.Quantity, req.Required, req.IsOverride, req.Note)
	return err
}

func (r *repoPG) DeleteNonOverrides(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM case_requirement WHERE case_id = $1 AND is_override = FALSE`, caseID)
	return err
}

func (r *repoPG) DeleteOverrides(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM case_requirement WHERE case_id = $1 AND is_override = TRUE`, caseID)
	return err
}

func (r *repoPG) DeleteByCatalogIDs(ctx context.Context, caseID uuid.UUID, catalogIDs []uuid.UUID) error {
	if len(catalogIDs) == 0 {
		return nil
	}
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM case_requirement WHERE case_id = $1 AND catalog_item_id = ANY($2)`, caseID, catalogIDs)
	return err
}

func (r *repoPG) DeleteAllForCase(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM case_requirement WHERE case_id = $1`, caseID)
	return err
}

func (r *repoPG) ListForCase(ctx context.Context, caseID uuid.UUID) ([]*CaseRequirement, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, case_id, catalog_item_id, quantity, required, is_override, note, created_at
		FROM case_requirement WHERE case_id = $1 ORDER BY created_at, catalog_item_id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CaseRequirement
	for rows.Next() {
		var cr CaseRequirement
		if err := rows.Scan(&cr.ID, &cr.CaseID, &cr.CatalogItemID, &cr.Quantity, &cr.Required, &cr.IsOverride, &cr.Note, &cr.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &cr)
	}
	return items, nil
}
