package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateItem(ctx context.Context, i *Item) error
	GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateItem(ctx context.Context, i *Item) error
	ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error)

	// Reserve conditionally claims an unreserved, available item for a case
	// in a single statement and reports whether the claim won.
	Reserve(ctx context.Context, itemID, caseID uuid.UUID) (bool, error)
	// Release conditionally clears an item's reservation and reports whether
	// a reservation was present.
	Release(ctx context.Context, itemID uuid.UUID) (bool, error)
	ListReservedForCase(ctx context.Context, caseID uuid.UUID) ([]*Item, error)

	// VerifiedCounts returns, per catalog item, how many units are reserved
	// for the case and verified since being reserved.
	VerifiedCounts(ctx context.Context, caseID uuid.UUID) (map[uuid.UUID]int, error)

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Event, int, error)
}
