package checklists

import (
	"time"

	"github.com/google/uuid"
)

// Checklist kinds. The timeout checklist gates the start of surgery, the
// debrief checklist gates completion.
const (
	KindSafety  = "safety"
	KindTimeout = "timeout"
	KindDebrief = "debrief"
)

// Checklist statuses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Attestation states.
const (
	AttestationNone     = "none"
	AttestationAttested = "attested"
	AttestationVoided   = "voided"
)

// Instance maps to the checklist_instance table: one checklist of a given
// kind per case. Completed instances are part of the permanent audit record.
type Instance struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CaseID      uuid.UUID  `db:"case_id" json:"case_id"`
	Kind        string     `db:"kind" json:"kind"`
	Status      string     `db:"status" json:"status"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Note        *string    `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Attestation maps to the attestation table: a clinician's formal sign-off
// that readiness conditions are met. The newest row is authoritative.
type Attestation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CaseID     uuid.UUID  `db:"case_id" json:"case_id"`
	State      string     `db:"state" json:"state"`
	AttestedBy string     `db:"attested_by" json:"attested_by"`
	AttestedAt time.Time  `db:"attested_at" json:"attested_at"`
	VoidedBy   *string    `db:"voided_by" json:"voided_by,omitempty"`
	VoidedAt   *time.Time `db:"voided_at" json:"voided_at,omitempty"`
	Note       *string    `db:"note" json:"note,omitempty"`
}
