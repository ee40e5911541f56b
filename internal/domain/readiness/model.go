package readiness

import (
	"time"

	"github.com/google/uuid"
)

// Signal is the aggregate go/no-go state of a case.
const (
	SignalGreen  = "GREEN"
	SignalOrange = "ORANGE"
	SignalRed    = "RED"
)

// Blocker codes. Red codes force the RED signal; the rest degrade GREEN to
// ORANGE.
const (
	BlockerRequiredMissing    = "required_item_missing"
	BlockerRequiredShort      = "required_item_short"
	BlockerOptionalUnverified = "optional_item_unverified"
	BlockerAttestationVoided  = "attestation_voided"
	BlockerAttestationMissing = "attestation_missing"
	BlockerSafetyIncomplete   = "safety_checklist_incomplete"
)

// Blocker is one reason a case is not GREEN. Catalog-level blockers carry
// the item and the expected versus verified quantities.
type Blocker struct {
	Code          string     `json:"code"`
	Red           bool       `json:"red"`
	CatalogItemID *uuid.UUID `json:"catalog_item_id,omitempty"`
	Expected      int        `json:"expected,omitempty"`
	Verified      int        `json:"verified,omitempty"`
	Message       string     `json:"message"`
}

// Snapshot is one readiness evaluation. Identical inputs always produce an
// identical snapshot; the computed-at stamp is added only when cached.
type Snapshot struct {
	CaseID   uuid.UUID `json:"case_id"`
	Signal   string    `json:"signal"`
	Blockers []Blocker `json:"blockers"`
}

// CachedSnapshot is a persisted snapshot with its evaluation time.
type CachedSnapshot struct {
	Snapshot
	ComputedAt time.Time `json:"computed_at"`
}

// Line is one expected catalog item for the evaluation.
type Line struct {
	CatalogItemID uuid.UUID
	Quantity      int
	Required      bool
}

// Inputs is everything the evaluation reads, gathered up front so the
// computation itself stays a pure function.
type Inputs struct {
	Requirements []Line
	// Verified maps catalog item ids to the count of units reserved for
	// the case and verified after reservation.
	Verified map[uuid.UUID]int
	// SafetyStatus is the case's safety checklist status.
	SafetyStatus string
	// Attestation is the case's authoritative attestation state.
	Attestation string
}
