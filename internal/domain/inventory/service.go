package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
	"github.com/orflow/orflow/internal/platform/events"
)

// TxRunner executes fn inside a single atomic unit. Production wiring uses
// db.WithTx over the pool; tests pass the function through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

var validEventTypes = map[string]bool{
	EventReceived: true, EventMoved: true, EventSterilized: true,
	EventVerified: true, EventUsed: true, EventMarkedMissing: true, EventRetired: true,
}

type Service struct {
	repo  Repository
	runTx TxRunner
	bus   *events.Bus
}

func NewService(repo Repository, runTx TxRunner, bus *events.Bus) *Service {
	return &Service{repo: repo, runTx: runTx, bus: bus}
}

func (s *Service) CreateItem(ctx context.Context, i *Item) error {
	if i.CatalogItemID == uuid.Nil {
		return apperr.Validation("catalog_item_id is required")
	}
	if i.Status == "" {
		i.Status = StatusAvailable
	}
	if i.SterilityStatus == "" {
		i.SterilityStatus = SterilityUnknown
	}
	return s.repo.CreateItem(ctx, i)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	i, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("inventory item")
	}
	return i, nil
}

func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.repo.ListItems(ctx, limit, offset)
}

// RecordEvent appends a ledger row and applies the matching item-state
// mutation in one atomic unit. The event and the mutation commit or fail
// together.
func (s *Service) RecordEvent(ctx context.Context, itemID uuid.UUID, cmd EventCommand) (*Event, error) {
	if cmd.Actor == "" {
		return nil, apperr.Validation("actor is required")
	}
	if cmd.Type == EventReserved || cmd.Type == EventReleased {
		return nil, apperr.Validation("reservation events go through the reserve/release operations")
	}
	if !validEventTypes[cmd.Type] {
		return nil, apperr.Validation("invalid event type: %s", cmd.Type)
	}

	var evt *Event
	err := s.runTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItemByID(ctx, itemID)
		if err != nil {
			return apperr.NotFound("inventory item")
		}

		evt = s.buildEvent(item, cmd)
		if err := s.applyMutation(item, cmd); err != nil {
			return err
		}

		if err := s.repo.AppendEvent(ctx, evt); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "append inventory event")
		}
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "apply inventory mutation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, evt)
	return evt, nil
}

// buildEvent snapshots the item's prior location/sterility, falling back to
// current state when the command does not supply them.
func (s *Service) buildEvent(item *Item, cmd EventCommand) *Event {
	prevSterility := item.SterilityStatus
	return &Event{
		ItemID:        item.ID,
		EventType:     cmd.Type,
		PrevLocation:  item.Location,
		NewLocation:   cmd.NewLocation,
		PrevSterility: &prevSterility,
		NewSterility:  cmd.NewSterility,
		PerformedBy:   cmd.Actor,
		CaseID:        cmd.CaseID,
		ScanRef:       cmd.ScanRef,
		Note:          cmd.Note,
		OccurredAt:    time.Now().UTC(),
	}
}

func (s *Service) applyMutation(item *Item, cmd EventCommand) error {
	if cmd.NewLocation != nil {
		item.Location = cmd.NewLocation
	}

	switch cmd.Type {
	case EventReceived:
		item.Status = StatusAvailable
	case EventMoved:
		if cmd.NewLocation == nil {
			return apperr.Validation("moved event requires new_location")
		}
	case EventSterilized:
		item.SterilityStatus = SterilitySterile
		if cmd.NewSterility != nil {
			item.SterilityStatus = *cmd.NewSterility
		}
		item.SterilityExpiresAt = cmd.SterilityExpiresAt
	case EventVerified:
		now := time.Now().UTC()
		item.LastVerifiedAt = &now
		actor := cmd.Actor
		item.LastVerifiedBy = &actor
	case EventUsed:
		item.Status = StatusInUse
	case EventMarkedMissing:
		item.Status = StatusMissing
		item.ReservedForCaseID = nil
		item.ReservedAt = nil
	case EventRetired:
		item.Status = StatusRetired
		item.ReservedForCaseID = nil
		item.ReservedAt = nil
	}
	return nil
}

// Reserve claims an item for a case via a conditional write; a second case
// racing for the same item loses deterministically.
func (s *Service) Reserve(ctx context.Context, itemID, caseID uuid.UUID, actor string) error {
	if actor == "" {
		return apperr.Validation("actor is required")
	}
	if caseID == uuid.Nil {
		return apperr.Validation("case_id is required")
	}

	var evt *Event
	err := s.runTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItemByID(ctx, itemID)
		if err != nil {
			return apperr.NotFound("inventory item")
		}

		won, err := s.repo.Reserve(ctx, itemID, caseID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "reserve inventory item")
		}
		if !won {
			return apperr.InvalidState("item is not available for reservation")
		}

		evt = s.buildEvent(item, EventCommand{Type: EventReserved, CaseID: &caseID, Actor: actor})
		return s.repo.AppendEvent(ctx, evt)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, evt)
	return nil
}

func (s *Service) Release(ctx context.Context, itemID uuid.UUID, actor string) error {
	if actor == "" {
		return apperr.Validation("actor is required")
	}

	var evt *Event
	err := s.runTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItemByID(ctx, itemID)
		if err != nil {
			return apperr.NotFound("inventory item")
		}

		released, err := s.repo.Release(ctx, itemID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "release inventory item")
		}
		if !released {
			return apperr.InvalidState("item is not reserved")
		}

		evt = s.buildEvent(item, EventCommand{Type: EventReleased, CaseID: item.ReservedForCaseID, Actor: actor})
		return s.repo.AppendEvent(ctx, evt)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, evt)
	return nil
}

// ReleaseForCase clears every reservation held by a case. It runs in the
// caller's transaction when one is active, so cancellation and deletion
// cascades stay atomic.
func (s *Service) ReleaseForCase(ctx context.Context, caseID uuid.UUID, actor string) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		items, err := s.repo.ListReservedForCase(ctx, caseID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "list reservations for case")
		}
		for _, item := range items {
			if _, err := s.repo.Release(ctx, item.ID); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "release item %s", item.ID)
			}
			evt := s.buildEvent(item, EventCommand{Type: EventReleased, CaseID: &caseID, Actor: actor})
			if err := s.repo.AppendEvent(ctx, evt); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "append release event for item %s", item.ID)
			}
		}
		return nil
	})
}

// History returns the item's ledger newest-first. Pure read path.
func (s *Service) History(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, 0, apperr.NotFound("inventory item")
	}
	return s.repo.ListEvents(ctx, itemID, limit, offset)
}

// VerifiedCounts reports reserved-and-verified unit counts per catalog item
// for the readiness computation.
func (s *Service) VerifiedCounts(ctx context.Context, caseID uuid.UUID) (map[uuid.UUID]int, error) {
	return s.repo.VerifiedCounts(ctx, caseID)
}

func (s *Service) publish(ctx context.Context, evt *Event) {
	if s.bus == nil || evt == nil {
		return
	}
	s.bus.PublishInventoryRecorded(ctx, events.InventoryRecorded{
		ItemID:     evt.ItemID,
		EventType:  evt.EventType,
		CaseID:     evt.CaseID,
		Actor:      evt.PerformedBy,
		OccurredAt: evt.OccurredAt,
	})
}
