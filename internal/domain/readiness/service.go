package readiness

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/domain/checklists"
	"github.com/orflow/orflow/internal/domain/requirements"
	"github.com/orflow/orflow/internal/platform/apperr"
)

// RequirementSource lists a case's expected items. Satisfied by the
// requirements service.
type RequirementSource interface {
	ListForCase(ctx context.Context, caseID uuid.UUID) ([]*requirements.CaseRequirement, error)
}

// InventorySource reports verified reserved quantities per catalog item.
// Satisfied by the inventory service.
type InventorySource interface {
	VerifiedCounts(ctx context.Context, caseID uuid.UUID) (map[uuid.UUID]int, error)
}

// ChecklistSource reports checklist and attestation state. Satisfied by the
// checklists service.
type ChecklistSource interface {
	Status(ctx context.Context, caseID uuid.UUID, kind string) (string, error)
	AttestationState(ctx context.Context, caseID uuid.UUID) (string, error)
}

// CaseChecker verifies the case exists in the caller's facility. Satisfied
// by the cases service.
type CaseChecker interface {
	Exists(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	reqs      RequirementSource
	inventory InventorySource
	lists     ChecklistSource
	cases     CaseChecker
	cache     CacheRepository
}

func NewService(reqs RequirementSource, inventory InventorySource, lists ChecklistSource, cases CaseChecker, cache CacheRepository) *Service {
	return &Service{reqs: reqs, inventory: inventory, lists: lists, cases: cases, cache: cache}
}

// Evaluate computes readiness from live state. Nothing is written; callers
// wanting a cached copy use EvaluateAndCache.
func (s *Service) Evaluate(ctx context.Context, caseID uuid.UUID) (*Snapshot, error) {
	if err := s.cases.Exists(ctx, caseID); err != nil {
		return nil, err
	}
	in, err := s.gather(ctx, caseID)
	if err != nil {
		return nil, err
	}
	snap := Compute(caseID, in)
	return &snap, nil
}

// EvaluateAndCache computes readiness and writes the snapshot through to
// the cache for staleness-tolerant readers.
func (s *Service) EvaluateAndCache(ctx context.Context, caseID uuid.UUID) (*CachedSnapshot, error) {
	snap, err := s.Evaluate(ctx, caseID)
	if err != nil {
		return nil, err
	}
	cached := &CachedSnapshot{Snapshot: *snap, ComputedAt: time.Now().UTC()}
	if err := s.cache.Upsert(ctx, cached); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "cache readiness snapshot")
	}
	return cached, nil
}

// Cached returns the last cached snapshot without recomputing, or not
// found when the case was never evaluated.
func (s *Service) Cached(ctx context.Context, caseID uuid.UUID) (*CachedSnapshot, error) {
	if err := s.cases.Exists(ctx, caseID); err != nil {
		return nil, err
	}
	snap, err := s.cache.Get(ctx, caseID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "read readiness cache")
	}
	if snap == nil {
		return nil, apperr.NotFound("readiness snapshot")
	}
	return snap, nil
}

// CanStart reports whether the timeout checklist gate is satisfied.
func (s *Service) CanStart(ctx context.Context, caseID uuid.UUID) (bool, error) {
	status, err := s.lists.Status(ctx, caseID, checklists.KindTimeout)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, err, "load timeout checklist")
	}
	return status == checklists.StatusCompleted, nil
}

// CanComplete reports whether the debrief checklist gate is satisfied.
func (s *Service) CanComplete(ctx context.Context, caseID uuid.UUID) (bool, error) {
	status, err := s.lists.Status(ctx, caseID, checklists.KindDebrief)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, err, "load debrief checklist")
	}
	return status == checklists.StatusCompleted, nil
}

func (s *Service) gather(ctx context.Context, caseID uuid.UUID) (Inputs, error) {
	reqs, err := s.reqs.ListForCase(ctx, caseID)
	if err != nil {
		return Inputs{}, apperr.Wrap(apperr.KindInternal, err, "list case requirements")
	}
	verified, err := s.inventory.VerifiedCounts(ctx, caseID)
	if err != nil {
		return Inputs{}, apperr.Wrap(apperr.KindInternal, err, "load verified counts")
	}
	safety, err := s.lists.Status(ctx, caseID, checklists.KindSafety)
	if err != nil {
		return Inputs{}, apperr.Wrap(apperr.KindInternal, err, "load safety checklist")
	}
	attestation, err := s.lists.AttestationState(ctx, caseID)
	if err != nil {
		return Inputs{}, err
	}

	lines := make([]Line, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, Line{CatalogItemID: r.CatalogItemID, Quantity: r.Quantity, Required: r.Required})
	}
	return Inputs{
		Requirements: lines,
		Verified:     verified,
		SafetyStatus: safety,
		Attestation:  attestation,
	}, nil
}
