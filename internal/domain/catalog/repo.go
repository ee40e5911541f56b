package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ItemRepository interface {
	Create(ctx context.Context, i *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Update(ctx context.Context, i *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Item, int, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	AddComponent(ctx context.Context, c *Component) error
	RemoveComponent(ctx context.Context, id uuid.UUID) error
	GetComponents(ctx context.Context, parentID uuid.UUID) ([]*Component, error)
}
