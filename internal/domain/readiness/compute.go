package readiness

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/domain/checklists"
)

// Compute evaluates readiness from gathered inputs. It is deterministic:
// the same inputs always yield the same snapshot, blockers included, in
// the same order.
func Compute(caseID uuid.UUID, in Inputs) Snapshot {
	var blockers []Blocker

	lines := make([]Line, len(in.Requirements))
	copy(lines, in.Requirements)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].CatalogItemID.String() < lines[j].CatalogItemID.String()
	})

	for _, l := range lines {
		verified := in.Verified[l.CatalogItemID]
		if verified >= l.Quantity {
			continue
		}
		id := l.CatalogItemID
		switch {
		case l.Required && verified == 0:
			blockers = append(blockers, Blocker{
				Code: BlockerRequiredMissing, Red: true, CatalogItemID: &id,
				Expected: l.Quantity, Verified: verified,
				Message: fmt.Sprintf("no verified units of required item %s (need %d)", id, l.Quantity),
			})
		case l.Required:
			blockers = append(blockers, Blocker{
				Code: BlockerRequiredShort, Red: true, CatalogItemID: &id,
				Expected: l.Quantity, Verified: verified,
				Message: fmt.Sprintf("only %d of %d required units of item %s verified", verified, l.Quantity, id),
			})
		default:
			blockers = append(blockers, Blocker{
				Code: BlockerOptionalUnverified, CatalogItemID: &id,
				Expected: l.Quantity, Verified: verified,
				Message: fmt.Sprintf("optional item %s has %d of %d units verified", id, verified, l.Quantity),
			})
		}
	}

	switch in.Attestation {
	case checklists.AttestationVoided:
		blockers = append(blockers, Blocker{
			Code: BlockerAttestationVoided, Red: true,
			Message: "the attestation was voided and must be re-recorded",
		})
	case checklists.AttestationAttested:
	default:
		blockers = append(blockers, Blocker{
			Code:    BlockerAttestationMissing,
			Message: "no attestation recorded for this case",
		})
	}

	if in.SafetyStatus != checklists.StatusCompleted {
		blockers = append(blockers, Blocker{
			Code:    BlockerSafetyIncomplete,
			Message: "the safety checklist is not completed",
		})
	}

	// Red blockers first, then stable by code and item.
	sort.SliceStable(blockers, func(i, j int) bool {
		if blockers[i].Red != blockers[j].Red {
			return blockers[i].Red
		}
		if blockers[i].Code != blockers[j].Code {
			return blockers[i].Code < blockers[j].Code
		}
		return idKey(blockers[i].CatalogItemID) < idKey(blockers[j].CatalogItemID)
	})

	signal := SignalGreen
	if len(blockers) > 0 {
		signal = SignalOrange
		if blockers[0].Red {
			signal = SignalRed
		}
	}

	return Snapshot{CaseID: caseID, Signal: signal, Blockers: blockers}
}

func idKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
