package checklists

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

var validKinds = map[string]bool{
	KindSafety: true, KindTimeout: true, KindDebrief: true,
}

// statusOrder enforces forward-only progression.
var statusOrder = map[string]int{
	StatusNotStarted: 0, StatusInProgress: 1, StatusCompleted: 2,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateInstance(ctx context.Context, i *Instance) error {
	if i.CaseID == uuid.Nil {
		return apperr.Validation("case_id is required")
	}
	if !validKinds[i.Kind] {
		return apperr.Validation("invalid checklist kind: %s", i.Kind)
	}
	if existing, err := s.repo.GetInstance(ctx, i.CaseID, i.Kind); err == nil && existing != nil {
		return apperr.InvalidState("a %s checklist already exists for this case", i.Kind)
	}
	i.Status = StatusNotStarted
	return s.repo.CreateInstance(ctx, i)
}

// UpdateStatus moves a checklist forward. Completed checklists are part of
// the audit record and never change again.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, actor string) (*Instance, error) {
	next, ok := statusOrder[status]
	if !ok {
		return nil, apperr.Validation("invalid checklist status: %s", status)
	}

	inst, err := s.repo.GetInstanceByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("checklist")
	}
	if inst.Status == StatusCompleted {
		return nil, apperr.InvalidState("a completed checklist is immutable")
	}
	if next <= statusOrder[inst.Status] {
		return nil, apperr.InvalidState("checklist status can only move forward")
	}

	inst.Status = status
	if status == StatusCompleted {
		now := time.Now().UTC()
		inst.CompletedAt = &now
		if actor != "" {
			inst.CompletedBy = &actor
		}
	}
	if err := s.repo.UpdateInstance(ctx, inst); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update checklist")
	}
	return inst, nil
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Instance, error) {
	return s.repo.ListByCase(ctx, caseID)
}

// Status reports a case's checklist state for a kind; absent instances
// read as not started.
func (s *Service) Status(ctx context.Context, caseID uuid.UUID, kind string) (string, error) {
	inst, err := s.repo.GetInstance(ctx, caseID, kind)
	if err != nil || inst == nil {
		return StatusNotStarted, nil
	}
	return inst.Status, nil
}

// HasCompleted reports whether any checklist for the case reached the
// completed state; such cases can no longer be deleted.
func (s *Service) HasCompleted(ctx context.Context, caseID uuid.UUID) (bool, error) {
	return s.repo.HasCompleted(ctx, caseID)
}

// Attest records a clinician sign-off for the case.
func (s *Service) Attest(ctx context.Context, caseID uuid.UUID, actor string, note *string) (*Attestation, error) {
	if actor == "" {
		return nil, apperr.Validation("actor is required")
	}
	a := &Attestation{CaseID: caseID, State: AttestationAttested, AttestedBy: actor, Note: note}
	if err := s.repo.CreateAttestation(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create attestation")
	}
	return a, nil
}

// Void marks an attestation invalid. A voided attestation blocks readiness
// until a fresh one is recorded.
func (s *Service) Void(ctx context.Context, id uuid.UUID, actor string) (*Attestation, error) {
	if actor == "" {
		return nil, apperr.Validation("actor is required")
	}
	a, err := s.repo.GetAttestationByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("attestation")
	}
	if a.State == AttestationVoided {
		return nil, apperr.InvalidState("attestation is already voided")
	}
	now := time.Now().UTC()
	a.State = AttestationVoided
	a.VoidedBy = &actor
	a.VoidedAt = &now
	if err := s.repo.UpdateAttestation(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "void attestation")
	}
	return a, nil
}

// AttestationState reports the case's authoritative attestation state from
// the newest row, or "none" when no attestation exists.
func (s *Service) AttestationState(ctx context.Context, caseID uuid.UUID) (string, error) {
	a, err := s.repo.LatestAttestation(ctx, caseID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "load attestation")
	}
	if a == nil {
		return AttestationNone, nil
	}
	return a.State, nil
}
