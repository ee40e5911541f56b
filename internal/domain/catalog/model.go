package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Item maps to the catalog_item table. A catalog item describes a kind of
// trackable thing (instrument, implant, consumable); physical units live in
// the inventory package.
type Item struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Code          string    `db:"code" json:"code"`
	Category      string    `db:"category" json:"category"`
	IsComposite   bool      `db:"is_composite" json:"is_composite"`
	UnitOfMeasure *string   `db:"unit_of_measure" json:"unit_of_measure,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	Note          *string   `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Component maps to the catalog_component table: one edge of a composite
// set, parent contains quantity x child.
type Component struct {
	ID       uuid.UUID `db:"id" json:"id"`
	ParentID uuid.UUID `db:"parent_id" json:"parent_id"`
	ChildID  uuid.UUID `db:"child_id" json:"child_id"`
	Quantity int       `db:"quantity" json:"quantity"`
}
