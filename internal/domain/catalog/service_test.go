package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

type mockItemRepo struct {
	items      map[uuid.UUID]*Item
	components map[uuid.UUID]*Component
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{
		items:      make(map[uuid.UUID]*Item),
		components: make(map[uuid.UUID]*Component),
	}
}

func (m *mockItemRepo) Create(_ context.Context, i *Item) error {
	i.ID = uuid.New()
	m.items[i.ID] = i
	return nil
}

func (m *mockItemRepo) GetByID(_ context.Context, id uuid.UUID) (*Item, error) {
	i, ok := m.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return i, nil
}

func (m *mockItemRepo) Update(_ context.Context, i *Item) error {
	m.items[i.ID] = i
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockItemRepo) List(_ context.Context, limit, offset int) ([]*Item, int, error) {
	var out []*Item
	for _, i := range m.items {
		out = append(out, i)
	}
	return out, len(out), nil
}

func (m *mockItemRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.items[id]
	return ok, nil
}

func (m *mockItemRepo) AddComponent(_ context.Context, c *Component) error {
	c.ID = uuid.New()
	m.components[c.ID] = c
	return nil
}

func (m *mockItemRepo) RemoveComponent(_ context.Context, id uuid.UUID) error {
	delete(m.components, id)
	return nil
}

func (m *mockItemRepo) GetComponents(_ context.Context, parentID uuid.UUID) ([]*Component, error) {
	var out []*Component
	for _, c := range m.components {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockItemRepo) addItem(t *testing.T, name string, composite bool) *Item {
	t.Helper()
	i := &Item{Name: name, Code: name, Category: "instrument", IsComposite: composite, IsActive: true}
	if err := m.Create(context.Background(), i); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return i
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMockItemRepo())

	err := svc.CreateItem(context.Background(), &Item{Code: "X"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for missing name, got %v", err)
	}

	err = svc.CreateItem(context.Background(), &Item{Name: "Clamp", Code: "CL", Category: "potion"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for bad category, got %v", err)
	}

	i := &Item{Name: "Clamp", Code: "CL"}
	if err := svc.CreateItem(context.Background(), i); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i.Category != "instrument" {
		t.Errorf("expected default category instrument, got %q", i.Category)
	}
	if !i.IsActive {
		t.Error("expected new item to be active")
	}
}

func TestAddComponentRejectsSelfContainment(t *testing.T) {
	repo := newMockItemRepo()
	svc := NewService(repo)
	set := repo.addItem(t, "tray", true)

	err := svc.AddComponent(context.Background(), &Component{ParentID: set.ID, ChildID: set.ID, Quantity: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAddComponentRejectsCycle(t *testing.T) {
	repo := newMockItemRepo()
	svc := NewService(repo)

	a := repo.addItem(t, "set-a", true)
	b := repo.addItem(t, "set-b", true)

	if err := svc.AddComponent(context.Background(), &Component{ParentID: a.ID, ChildID: b.ID, Quantity: 1}); err != nil {
		t.Fatalf("a -> b should be accepted: %v", err)
	}

	err := svc.AddComponent(context.Background(), &Component{ParentID: b.ID, ChildID: a.ID, Quantity: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("b -> a should be rejected as a cycle, got %v", err)
	}
}

func TestAddComponentRejectsExcessiveDepth(t *testing.T) {
	repo := newMockItemRepo()
	svc := NewService(repo)

	// Chain of 12 nested sets, deeper than the traversal bound.
	sets := make([]*Item, 13)
	for i := range sets {
		sets[i] = repo.addItem(t, "set", true)
	}
	for i := 0; i < len(sets)-1; i++ {
		repo.components[uuid.New()] = &Component{
			ID: uuid.New(), ParentID: sets[i].ID, ChildID: sets[i+1].ID, Quantity: 1,
		}
	}

	root := repo.addItem(t, "root", true)
	err := svc.AddComponent(context.Background(), &Component{ParentID: root.ID, ChildID: sets[0].ID, Quantity: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected depth-limit validation error, got %v", err)
	}
}

func TestAddComponentRequiresCompositeParent(t *testing.T) {
	repo := newMockItemRepo()
	svc := NewService(repo)

	leaf := repo.addItem(t, "scalpel", false)
	child := repo.addItem(t, "blade", false)

	err := svc.AddComponent(context.Background(), &Component{ParentID: leaf.ID, ChildID: child.ID, Quantity: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for non-composite parent, got %v", err)
	}
}

func TestAddComponentUnknownChild(t *testing.T) {
	repo := newMockItemRepo()
	svc := NewService(repo)
	set := repo.addItem(t, "tray", true)

	err := svc.AddComponent(context.Background(), &Component{ParentID: set.ID, ChildID: uuid.New(), Quantity: 1})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
