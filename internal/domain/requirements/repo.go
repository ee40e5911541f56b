package requirements

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error)
	UpdateTemplate(ctx context.Context, t *Template) error
	ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error)

	CreateVersion(ctx context.Context, v *TemplateVersion) error
	GetVersionByID(ctx context.Context, id uuid.UUID) (*TemplateVersion, error)
	NextVersionNumber(ctx context.Context, templateID uuid.UUID) (int, error)
	AddVersionItem(ctx context.Context, i *TemplateItem) error
	ListVersionItems(ctx context.Context, versionID uuid.UUID) ([]*TemplateItem, error)

	// InsertRequirement inserts one case requirement, skipping silently when
	// the (case, catalog item) slot is already taken.
	InsertRequirement(ctx context.Context, r *CaseRequirement) error
	DeleteNonOverrides(ctx context.Context, caseID uuid.UUID) error
	DeleteOverrides(ctx context.Context, caseID uuid.UUID) error
	DeleteByCatalogIDs(ctx context.Context, caseID uuid.UUID, catalogIDs []uuid.UUID) error
	DeleteAllForCase(ctx context.Context, caseID uuid.UUID) error
	ListForCase(ctx context.Context, caseID uuid.UUID) ([]*CaseRequirement, error)
}

// CatalogChecker validates catalog references without pulling in the full
// catalog service.
type CatalogChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
