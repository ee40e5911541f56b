package cases

import (
	"time"

	"github.com/google/uuid"
)

// Case statuses. REJECTED is reachable only from REQUESTED; CANCELLED from
// any non-terminal status.
const (
	StatusRequested  = "requested"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
)

// Case maps to the surgical_case table. Status and flags are mutated only
// through the lifecycle operations; is_active is orthogonal to status but
// forced false by cancellation.
type Case struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	CaseNumber        string     `db:"case_number" json:"case_number"`
	ClinicianID       uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	RoomID            *uuid.UUID `db:"room_id" json:"room_id,omitempty"`
	TemplateVersionID *uuid.UUID `db:"template_version_id" json:"template_version_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	RequestedDate     time.Time  `db:"requested_date" json:"requested_date"`
	ScheduledStart    *time.Time `db:"scheduled_start" json:"scheduled_start,omitempty"`
	ScheduledEnd      *time.Time `db:"scheduled_end" json:"scheduled_end,omitempty"`
	DurationMinutes   *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	ActivatedAt       *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	ActivatedBy       *string    `db:"activated_by" json:"activated_by,omitempty"`
	IsCancelled       bool       `db:"is_cancelled" json:"is_cancelled"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy       *string    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelReason      *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	RejectedAt        *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectedBy        *string    `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectReason      *string    `db:"reject_reason" json:"reject_reason,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy        *string    `db:"approved_by" json:"approved_by,omitempty"`
	Note              *string    `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StatusTransition maps to the case_status_transition table: the canonical
// append-only timeline. The case reference is nulled, not deleted, when the
// case is purged.
type StatusTransition struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CaseID     *uuid.UUID `db:"case_id" json:"case_id,omitempty"`
	FromStatus string     `db:"from_status" json:"from_status"`
	ToStatus   string     `db:"to_status" json:"to_status"`
	Actor      string     `db:"actor" json:"actor"`
	Reason     *string    `db:"reason" json:"reason,omitempty"`
	Context    *string    `db:"context" json:"context,omitempty"`
	OccurredAt time.Time  `db:"occurred_at" json:"occurred_at"`
}

// Room maps to the room table.
type Room struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Clinician maps to the clinician table. Presence in the facility schema is
// what makes a clinician part of the tenant.
type Clinician struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AnesthesiaPlan maps to the anesthesia_plan table; at most one per case,
// removed with the case.
type AnesthesiaPlan struct {
	ID             uuid.UUID `db:"id" json:"id"`
	CaseID         uuid.UUID `db:"case_id" json:"case_id"`
	AnesthesiaType string    `db:"anesthesia_type" json:"anesthesia_type"`
	ASAClass       *string   `db:"asa_class" json:"asa_class,omitempty"`
	Airway         *string   `db:"airway" json:"airway,omitempty"`
	Note           *string   `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CreateCommand is the input for creating a case.
type CreateCommand struct {
	ClinicianID    uuid.UUID  `json:"clinician_id"`
	RequestedDate  time.Time  `json:"requested_date"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	TemplateID     *uuid.UUID `json:"template_id,omitempty"`
	Status         string     `json:"status,omitempty"`
	Note           *string    `json:"note,omitempty"`
}

// ApproveCommand carries the schedule stamped during approval.
type ApproveCommand struct {
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	RoomID          *uuid.UUID `json:"room_id,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

// ScheduleUpdate carries optional schedule fields for activation.
type ScheduleUpdate struct {
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
}

// Update is the closed set of fields a generic case update may touch.
// Every field is optional; nil means untouched.
type Update struct {
	ClinicianID     *uuid.UUID `json:"clinician_id,omitempty"`
	RoomID          *uuid.UUID `json:"room_id,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Note            *string    `json:"note,omitempty"`
}

// touchesSchedule reports whether the update modifies day-of-surgery
// schedule fields, which need elevated scheduling rights on active cases.
func (u Update) touchesSchedule() bool {
	return u.ScheduledStart != nil || u.ScheduledEnd != nil || u.DurationMinutes != nil || u.RoomID != nil
}
