package cases

import (
	"context"

	"github.com/google/uuid"

	"github.com/orflow/orflow/pkg/pagination"
)

// ListFilter narrows case listings.
type ListFilter struct {
	Status      string
	ClinicianID *uuid.UUID
	RoomID      *uuid.UUID
	ActiveOnly  bool
}

// Repository is the persistence port for cases. The guard methods
// (Approve, Reject, Activate, Deactivate, Cancel, SetStatus) are
// conditional updates: they return false without error when the row no
// longer satisfies the guard, so concurrent lifecycle calls serialize at
// the database instead of racing on a read-then-write. Cancel also returns
// the status the write replaced.
type Repository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	List(ctx context.Context, f ListFilter, p pagination.Params) ([]*Case, int, error)
	Update(ctx context.Context, c *Case) error
	Delete(ctx context.Context, id uuid.UUID) error

	Approve(ctx context.Context, id uuid.UUID, actor string, cmd ApproveCommand) (bool, error)
	Reject(ctx context.Context, id uuid.UUID, actor string, reason *string) (bool, error)
	Activate(ctx context.Context, id uuid.UUID, actor string, sched ScheduleUpdate) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string, reason *string) (string, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	RecordTransition(ctx context.Context, t *StatusTransition) error
	ListTransitions(ctx context.Context, caseID uuid.UUID) ([]*StatusTransition, error)

	GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error)
	CreateClinician(ctx context.Context, cl *Clinician) error
	ListClinicians(ctx context.Context, p pagination.Params) ([]*Clinician, int, error)

	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	CreateRoom(ctx context.Context, rm *Room) error
	ListRooms(ctx context.Context) ([]*Room, error)

	UpsertAnesthesiaPlan(ctx context.Context, p *AnesthesiaPlan) error
	GetAnesthesiaPlan(ctx context.Context, caseID uuid.UUID) (*AnesthesiaPlan, error)
	DeleteAnesthesiaPlan(ctx context.Context, caseID uuid.UUID) error
}
