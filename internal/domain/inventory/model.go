package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Item availability statuses.
const (
	StatusAvailable   = "available"
	StatusReserved    = "reserved"
	StatusInUse       = "in_use"
	StatusMissing     = "missing"
	StatusUnavailable = "unavailable"
	StatusRetired     = "retired"
)

// Sterility statuses.
const (
	SterilitySterile    = "sterile"
	SterilityNonSterile = "non_sterile"
	SterilityExpired    = "expired"
	SterilityUnknown    = "unknown"
)

// Event types recorded in the ledger.
const (
	EventReceived      = "received"
	EventMoved         = "moved"
	EventSterilized    = "sterilized"
	EventVerified      = "verified"
	EventReserved      = "reserved"
	EventReleased      = "released"
	EventUsed          = "used"
	EventMarkedMissing = "marked_missing"
	EventRetired       = "retired"
)

// Item maps to the inventory_item table: one physical trackable unit.
// State is mutated only through the ledger's event-recording path.
type Item struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	CatalogItemID      uuid.UUID  `db:"catalog_item_id" json:"catalog_item_id"`
	SerialNumber       *string    `db:"serial_number" json:"serial_number,omitempty"`
	LotNumber          *string    `db:"lot_number" json:"lot_number,omitempty"`
	Barcode            *string    `db:"barcode" json:"barcode,omitempty"`
	Location           *string    `db:"location" json:"location,omitempty"`
	SterilityStatus    string     `db:"sterility_status" json:"sterility_status"`
	SterilityExpiresAt *time.Time `db:"sterility_expires_at" json:"sterility_expires_at,omitempty"`
	Status             string     `db:"status" json:"status"`
	ReservedForCaseID  *uuid.UUID `db:"reserved_for_case_id" json:"reserved_for_case_id,omitempty"`
	ReservedAt         *time.Time `db:"reserved_at" json:"reserved_at,omitempty"`
	LastVerifiedAt     *time.Time `db:"last_verified_at" json:"last_verified_at,omitempty"`
	LastVerifiedBy     *string    `db:"last_verified_by" json:"last_verified_by,omitempty"`
	Note               *string    `db:"note" json:"note,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Event maps to the inventory_event table. Rows are append-only; the case
// reference is nulled, not deleted, when the owning case is purged.
type Event struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ItemID        uuid.UUID  `db:"item_id" json:"item_id"`
	EventType     string     `db:"event_type" json:"event_type"`
	PrevLocation  *string    `db:"prev_location" json:"prev_location,omitempty"`
	NewLocation   *string    `db:"new_location" json:"new_location,omitempty"`
	PrevSterility *string    `db:"prev_sterility" json:"prev_sterility,omitempty"`
	NewSterility  *string    `db:"new_sterility" json:"new_sterility,omitempty"`
	PerformedBy   string     `db:"performed_by" json:"performed_by"`
	CaseID        *uuid.UUID `db:"case_id" json:"case_id,omitempty"`
	ScanRef       *string    `db:"scan_ref" json:"scan_ref,omitempty"`
	Note          *string    `db:"note" json:"note,omitempty"`
	OccurredAt    time.Time  `db:"occurred_at" json:"occurred_at"`
}

// EventCommand is the input for recording a ledger event. The prior
// location/sterility snapshot is computed from the item's current state.
type EventCommand struct {
	Type               string     `json:"type"`
	NewLocation        *string    `json:"new_location,omitempty"`
	NewSterility       *string    `json:"new_sterility,omitempty"`
	SterilityExpiresAt *time.Time `json:"sterility_expires_at,omitempty"`
	CaseID             *uuid.UUID `json:"case_id,omitempty"`
	ScanRef            *string    `json:"scan_ref,omitempty"`
	Note               *string    `json:"note,omitempty"`
	Actor              string     `json:"actor"`
}
