package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

// maxNestingDepth bounds the composite-set traversal when checking for
// cycles at write time.
const maxNestingDepth = 10

var validCategories = map[string]bool{
	"instrument": true, "implant": true, "consumable": true, "equipment": true,
}

type Service struct {
	items ItemRepository
}

func NewService(items ItemRepository) *Service {
	return &Service{items: items}
}

func (s *Service) CreateItem(ctx context.Context, i *Item) error {
	if i.Name == "" {
		return apperr.Validation("name is required")
	}
	if i.Code == "" {
		return apperr.Validation("code is required")
	}
	if i.Category == "" {
		i.Category = "instrument"
	}
	if !validCategories[i.Category] {
		return apperr.Validation("invalid category: %s", i.Category)
	}
	i.IsActive = true
	return s.items.Create(ctx, i)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	i, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("catalog item")
	}
	return i, nil
}

// Exists reports whether a catalog item id refers to a real item. Other
// domains use it to validate catalog references.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.items.Exists(ctx, id)
}

func (s *Service) UpdateItem(ctx context.Context, i *Item) error {
	if i.Category != "" && !validCategories[i.Category] {
		return apperr.Validation("invalid category: %s", i.Category)
	}
	return s.items.Update(ctx, i)
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.items.Delete(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.items.List(ctx, limit, offset)
}

// AddComponent adds a child to a composite set after verifying the edge
// keeps the containment graph acyclic and within the nesting bound.
func (s *Service) AddComponent(ctx context.Context, c *Component) error {
	if c.ParentID == uuid.Nil || c.ChildID == uuid.Nil {
		return apperr.Validation("parent_id and child_id are required")
	}
	if c.ParentID == c.ChildID {
		return apperr.Validation("an item cannot contain itself")
	}
	if c.Quantity <= 0 {
		c.Quantity = 1
	}

	parent, err := s.items.GetByID(ctx, c.ParentID)
	if err != nil {
		return apperr.NotFound("catalog item")
	}
	if !parent.IsComposite {
		return apperr.Validation("parent item is not a composite set")
	}
	if exists, err := s.items.Exists(ctx, c.ChildID); err != nil {
		return err
	} else if !exists {
		return apperr.NotFound("catalog item")
	}

	if err := s.checkAcyclic(ctx, c.ParentID, c.ChildID, 0); err != nil {
		return err
	}

	return s.items.AddComponent(ctx, c)
}

// checkAcyclic walks the containment graph downward from candidate child,
// rejecting the edge if it reaches the parent again or exceeds the depth
// bound.
func (s *Service) checkAcyclic(ctx context.Context, parentID, childID uuid.UUID, depth int) error {
	if depth > maxNestingDepth {
		return apperr.Validation("set nesting exceeds depth limit of %d", maxNestingDepth)
	}
	if childID == parentID {
		return apperr.Validation("component would create a containment cycle")
	}

	components, err := s.items.GetComponents(ctx, childID)
	if err != nil {
		return err
	}
	for _, comp := range components {
		if err := s.checkAcyclic(ctx, parentID, comp.ChildID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RemoveComponent(ctx context.Context, id uuid.UUID) error {
	return s.items.RemoveComponent(ctx, id)
}

func (s *Service) GetComponents(ctx context.Context, parentID uuid.UUID) ([]*Component, error) {
	return s.items.GetComponents(ctx, parentID)
}
