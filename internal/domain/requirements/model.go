package requirements

import (
	"time"

	"github.com/google/uuid"
)

// Template maps to the requirement_template table: a reusable expected-item
// list for a procedure type (a preference card). The line items live on
// immutable versions.
type Template struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	ProcedureCode    *string    `db:"procedure_code" json:"procedure_code,omitempty"`
	CurrentVersionID *uuid.UUID `db:"current_version_id" json:"current_version_id,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	Note             *string    `db:"note" json:"note,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// TemplateVersion maps to the requirement_template_version table. Versions
// are immutable once published.
type TemplateVersion struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TemplateID  uuid.UUID `db:"template_id" json:"template_id"`
	Version     int       `db:"version" json:"version"`
	PublishedBy string    `db:"published_by" json:"published_by"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

// TemplateItem maps to the requirement_template_item table: one line of a
// published version.
type TemplateItem struct {
	ID            uuid.UUID `db:"id" json:"id"`
	VersionID     uuid.UUID `db:"version_id" json:"version_id"`
	CatalogItemID uuid.UUID `db:"catalog_item_id" json:"catalog_item_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Required      bool      `db:"required" json:"required"`
	Note          *string   `db:"note" json:"note,omitempty"`
}

// CaseRequirement maps to the case_requirement table: an expected catalog
// item and quantity attached to a case. Unique per (case, catalog item).
// Override rows are surgeon-authored and survive template re-sync.
type CaseRequirement struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CaseID        uuid.UUID `db:"case_id" json:"case_id"`
	CatalogItemID uuid.UUID `db:"catalog_item_id" json:"catalog_item_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Required      bool      `db:"required" json:"required"`
	IsOverride    bool      `db:"is_override" json:"is_override"`
	Note          *string   `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RequirementInput is one line of a setOverrides or publishVersion call.
type RequirementInput struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	Quantity      int       `json:"quantity"`
	Required      bool      `json:"required"`
	Note          *string   `json:"note,omitempty"`
}
