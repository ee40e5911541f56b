package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/domain/checklists"
	"github.com/orflow/orflow/internal/platform/apperr"
	"github.com/orflow/orflow/internal/platform/auth"
	"github.com/orflow/orflow/internal/platform/events"
	"github.com/orflow/orflow/pkg/pagination"
)

// TxRunner executes fn inside a single atomic unit. Production wiring uses
// db.WithTx over the pool; tests pass the function through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// RequirementSyncer binds template versions to cases and clears
// requirements on deletion. Satisfied by the requirements service.
type RequirementSyncer interface {
	CurrentVersionID(ctx context.Context, templateID uuid.UUID) (*uuid.UUID, error)
	Bind(ctx context.Context, caseID uuid.UUID, versionID *uuid.UUID) error
	DeleteAllForCase(ctx context.Context, caseID uuid.UUID) error
}

// ReservationReleaser frees inventory held by a case. Satisfied by the
// inventory service.
type ReservationReleaser interface {
	ReleaseForCase(ctx context.Context, caseID uuid.UUID, actor string) error
}

// ChecklistGuard reports checklist state for the lifecycle gates.
// Satisfied by the checklists service.
type ChecklistGuard interface {
	Status(ctx context.Context, caseID uuid.UUID, kind string) (string, error)
	HasCompleted(ctx context.Context, caseID uuid.UUID) (bool, error)
}

type Service struct {
	repo       Repository
	reqs       RequirementSyncer
	releaser   ReservationReleaser
	checklists ChecklistGuard
	runTx      TxRunner
	bus        *events.Bus
}

func NewService(repo Repository, reqs RequirementSyncer, releaser ReservationReleaser, guard ChecklistGuard, runTx TxRunner, bus *events.Bus) *Service {
	return &Service{repo: repo, reqs: reqs, releaser: releaser, checklists: guard, runTx: runTx, bus: bus}
}

// newCaseNumber derives a human-readable identifier from the requested date
// and a fresh uuid prefix.
func newCaseNumber(requested time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("OR-%s-%s", requested.Format("20060102"), id)
}

// Create registers a case. The initial status is REQUESTED unless the
// caller holds elevated scheduling rights and asks for SCHEDULED directly.
// When a template is given, its current published version is bound
// atomically with the insert.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Case, error) {
	if cmd.ClinicianID == uuid.Nil {
		return nil, apperr.Validation("clinician_id is required")
	}
	if cmd.RequestedDate.IsZero() {
		return nil, apperr.Validation("requested_date is required")
	}
	cl, err := s.repo.GetClinician(ctx, cmd.ClinicianID)
	if err != nil {
		return nil, apperr.Validation("unknown clinician: %s", cmd.ClinicianID)
	}
	if !cl.IsActive {
		return nil, apperr.Validation("clinician %s is inactive", cmd.ClinicianID)
	}

	status := StatusRequested
	switch cmd.Status {
	case "", StatusRequested:
	case StatusScheduled:
		if !auth.CapabilitiesFromContext(ctx).Has(auth.CapScheduleElevated) {
			return nil, apperr.Forbidden("creating a pre-scheduled case requires elevated scheduling rights")
		}
		status = StatusScheduled
	default:
		return nil, apperr.Validation("cases cannot be created in status %s", cmd.Status)
	}

	var versionID *uuid.UUID
	if cmd.TemplateID != nil {
		versionID, err = s.reqs.CurrentVersionID(ctx, *cmd.TemplateID)
		if err != nil {
			return nil, err
		}
		if versionID == nil {
			return nil, apperr.Validation("template %s has no published version", *cmd.TemplateID)
		}
	}

	c := &Case{
		CaseNumber:        newCaseNumber(cmd.RequestedDate),
		ClinicianID:       cmd.ClinicianID,
		TemplateVersionID: versionID,
		Status:            status,
		RequestedDate:     cmd.RequestedDate,
		ScheduledStart:    cmd.ScheduledStart,
		ScheduledEnd:      cmd.ScheduledEnd,
		Note:              cmd.Note,
	}

	actor := auth.UserIDFromContext(ctx)
	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "create case")
		}
		if versionID != nil {
			if err := s.reqs.Bind(ctx, c.ID, versionID); err != nil {
				return err
			}
		}
		return s.recordTransition(ctx, c.ID, "", status, actor, nil, strptr("created"))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, c.ID, "", status, actor, "")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("case")
	}
	return c, nil
}

// Exists reports whether the case is visible in the caller's facility.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.Get(ctx, id)
	return err
}

func (s *Service) List(ctx context.Context, f ListFilter, p pagination.Params) ([]*Case, int, error) {
	return s.repo.List(ctx, f, p)
}

// Approve moves a REQUESTED case to SCHEDULED. The guard is a conditional
// write, so concurrent approvals or an approval racing a cancellation
// resolve to exactly one winner.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, cmd ApproveCommand) (*Case, error) {
	actor := auth.UserIDFromContext(ctx)
	err := s.runTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Approve(ctx, id, actor, cmd)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "approve case")
		}
		if !ok {
			return s.guardFailure(ctx, id, "only a requested case can be approved")
		}
		return s.recordTransition(ctx, id, StatusRequested, StatusScheduled, actor, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, id, StatusRequested, StatusScheduled, actor, "")
	return s.Get(ctx, id)
}

// Reject moves a REQUESTED case to REJECTED, a terminal status.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason *string) (*Case, error) {
	actor := auth.UserIDFromContext(ctx)
	err := s.runTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Reject(ctx, id, actor, reason)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "reject case")
		}
		if !ok {
			return s.guardFailure(ctx, id, "only a requested case can be rejected")
		}
		return s.recordTransition(ctx, id, StatusRequested, StatusRejected, actor, reason, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, id, StatusRequested, StatusRejected, actor, deref(reason))
	return s.Get(ctx, id)
}

// Activate puts the case on the live schedule. A still-requested case is
// promoted to SCHEDULED in the same write; the promotion shows up in the
// transition log.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, sched ScheduleUpdate) (*Case, error) {
	actor := auth.UserIDFromContext(ctx)
	var promoted bool
	err := s.runTx(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return apperr.NotFound("case")
		}

		ok, err := s.repo.Activate(ctx, id, actor, sched)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "activate case")
		}
		if !ok {
			switch {
			case before.IsCancelled:
				return apperr.InvalidState("a cancelled case cannot be activated")
			case before.IsActive:
				return apperr.InvalidState("case is already active")
			default:
				return apperr.InvalidState("case in status %s cannot be activated", before.Status)
			}
		}

		if before.Status == StatusRequested {
			promoted = true
			return s.recordTransition(ctx, id, StatusRequested, StatusScheduled, actor, nil, strptr("activated"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.publish(ctx, id, StatusRequested, StatusScheduled, actor, "")
	}
	return s.Get(ctx, id)
}

// Deactivate takes the case off the live schedule without touching status.
// A case that has started or finished stays active.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Case, error) {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "deactivate case")
	}
	if !ok {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, apperr.NotFound("case")
		}
		if c.Status == StatusInProgress || c.Status == StatusCompleted {
			return nil, apperr.InvalidState("a case in status %s cannot be deactivated", c.Status)
		}
		return nil, apperr.InvalidState("case is not active")
	}
	return s.Get(ctx, id)
}

// Cancel ends a non-terminal case, forces it off the live schedule and
// frees every inventory reservation it holds, all in one transaction. The
// transition log records the status the conditional write replaced, not a
// separately-read snapshot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*Case, error) {
	actor := auth.UserIDFromContext(ctx)
	var from string
	err := s.runTx(ctx, func(ctx context.Context) error {
		prev, ok, err := s.repo.Cancel(ctx, id, actor, reason)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "cancel case")
		}
		if !ok {
			c, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return apperr.NotFound("case")
			}
			return apperr.InvalidState("case in status %s cannot be cancelled", c.Status)
		}
		from = prev

		if err := s.releaser.ReleaseForCase(ctx, id, actor); err != nil {
			return err
		}
		return s.recordTransition(ctx, id, from, StatusCancelled, actor, reason, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, id, from, StatusCancelled, actor, deref(reason))
	return s.Get(ctx, id)
}

// Update applies a partial update. Status changes ride the same guarded
// state machine as the dedicated operations; schedule fields on an active
// case need elevated scheduling rights.
func (s *Service) Update(ctx context.Context, id uuid.UUID, upd Update) (*Case, error) {
	actor := auth.UserIDFromContext(ctx)
	var from, to string
	err := s.runTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return apperr.NotFound("case")
		}
		if c.IsCancelled {
			return apperr.InvalidState("a cancelled case cannot be updated")
		}
		if c.IsActive && upd.touchesSchedule() && !auth.CapabilitiesFromContext(ctx).Has(auth.CapScheduleElevated) {
			return apperr.Forbidden("rescheduling an active case requires elevated scheduling rights")
		}

		if upd.Status != nil && *upd.Status != c.Status {
			from, to = c.Status, *upd.Status
			if err := s.checkStatusChange(ctx, c, to); err != nil {
				return err
			}
		}

		if upd.ClinicianID != nil {
			cl, err := s.repo.GetClinician(ctx, *upd.ClinicianID)
			if err != nil || !cl.IsActive {
				return apperr.Validation("unknown or inactive clinician: %s", *upd.ClinicianID)
			}
			c.ClinicianID = *upd.ClinicianID
		}
		if upd.RoomID != nil {
			if _, err := s.repo.GetRoom(ctx, *upd.RoomID); err != nil {
				return apperr.Validation("unknown room: %s", *upd.RoomID)
			}
			c.RoomID = upd.RoomID
		}
		if upd.ScheduledStart != nil {
			c.ScheduledStart = upd.ScheduledStart
		}
		if upd.ScheduledEnd != nil {
			c.ScheduledEnd = upd.ScheduledEnd
		}
		if upd.DurationMinutes != nil {
			c.DurationMinutes = upd.DurationMinutes
		}
		if upd.Note != nil {
			c.Note = upd.Note
		}

		if to != "" {
			ok, err := s.repo.SetStatus(ctx, id, from, to)
			if err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "transition case")
			}
			if !ok {
				return apperr.InvalidState("case left status %s before the update applied", from)
			}
			c.Status = to
			if err := s.recordTransition(ctx, id, from, to, actor, nil, nil); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, c); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "update case")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to != "" {
		s.publish(ctx, id, from, to, actor, "")
	}
	return s.Get(ctx, id)
}

// checkStatusChange validates a status change requested through Update.
// Approval, rejection and cancellation have their own operations and are
// not reachable here.
func (s *Service) checkStatusChange(ctx context.Context, c *Case, to string) error {
	switch {
	case c.Status == StatusScheduled && to == StatusInProgress:
		if !c.IsActive {
			return apperr.InvalidState("only an active case can start")
		}
		status, err := s.checklists.Status(ctx, c.ID, checklists.KindTimeout)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "load timeout checklist")
		}
		if status != checklists.StatusCompleted {
			return apperr.E(apperr.KindTimeoutRequired, "the timeout checklist must be completed before the case starts")
		}
	case c.Status == StatusInProgress && to == StatusCompleted:
		status, err := s.checklists.Status(ctx, c.ID, checklists.KindDebrief)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "load debrief checklist")
		}
		if status != checklists.StatusCompleted {
			return apperr.E(apperr.KindDebriefRequired, "the debrief checklist must be completed before the case completes")
		}
	default:
		return apperr.InvalidState("cannot move a case from %s to %s", c.Status, to)
	}
	return nil
}

// Delete permanently removes a case and its derived data. Only inactive
// cases that never started and carry no completed checklist qualify; the
// transition log survives with its case reference nulled.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	actor := auth.UserIDFromContext(ctx)
	return s.runTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return apperr.NotFound("case")
		}
		if c.IsActive {
			return apperr.InvalidState("an active case cannot be deleted")
		}
		if c.Status == StatusInProgress || c.Status == StatusCompleted {
			return apperr.InvalidState("a case in status %s cannot be deleted", c.Status)
		}
		done, err := s.checklists.HasCompleted(ctx, id)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "check checklists")
		}
		if done {
			return apperr.InvalidState("a case with a completed checklist cannot be deleted")
		}

		if err := s.releaser.ReleaseForCase(ctx, id, actor); err != nil {
			return err
		}
		if err := s.reqs.DeleteAllForCase(ctx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteAnesthesiaPlan(ctx, id); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "delete anesthesia plan")
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "delete case")
		}
		return nil
	})
}

// Transitions returns the case's status timeline, oldest first.
func (s *Service) Transitions(ctx context.Context, caseID uuid.UUID) ([]*StatusTransition, error) {
	if _, err := s.repo.GetByID(ctx, caseID); err != nil {
		return nil, apperr.NotFound("case")
	}
	return s.repo.ListTransitions(ctx, caseID)
}

func (s *Service) CreateClinician(ctx context.Context, cl *Clinician) error {
	if cl.Name == "" {
		return apperr.Validation("name is required")
	}
	return s.repo.CreateClinician(ctx, cl)
}

func (s *Service) ListClinicians(ctx context.Context, p pagination.Params) ([]*Clinician, int, error) {
	return s.repo.ListClinicians(ctx, p)
}

func (s *Service) CreateRoom(ctx context.Context, rm *Room) error {
	if rm.Name == "" {
		return apperr.Validation("name is required")
	}
	return s.repo.CreateRoom(ctx, rm)
}

func (s *Service) ListRooms(ctx context.Context) ([]*Room, error) {
	return s.repo.ListRooms(ctx)
}

func (s *Service) SetAnesthesiaPlan(ctx context.Context, p *AnesthesiaPlan) error {
	if p.AnesthesiaType == "" {
		return apperr.Validation("anesthesia_type is required")
	}
	if _, err := s.repo.GetByID(ctx, p.CaseID); err != nil {
		return apperr.NotFound("case")
	}
	return s.repo.UpsertAnesthesiaPlan(ctx, p)
}

func (s *Service) AnesthesiaPlanForCase(ctx context.Context, caseID uuid.UUID) (*AnesthesiaPlan, error) {
	p, err := s.repo.GetAnesthesiaPlan(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("anesthesia plan")
	}
	return p, nil
}

// guardFailure turns a lost conditional write into the right error: absent
// rows read as not found, everything else as an invalid state.
func (s *Service) guardFailure(ctx context.Context, id uuid.UUID, msg string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return apperr.NotFound("case")
	}
	return apperr.InvalidState(msg)
}

func (s *Service) recordTransition(ctx context.Context, caseID uuid.UUID, from, to, actor string, reason, detail *string) error {
	t := &StatusTransition{
		CaseID:     &caseID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Reason:     reason,
		Context:    detail,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.repo.RecordTransition(ctx, t); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "record transition")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, caseID uuid.UUID, from, to, actor, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.PublishCaseTransitioned(ctx, events.CaseTransitioned{
		CaseID:     caseID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func strptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
