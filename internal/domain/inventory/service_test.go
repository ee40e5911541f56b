package inventory

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

type mockRepo struct {
	items  map[uuid.UUID]*Item
	events []*Event
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Item)}
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockRepo) CreateItem(_ context.Context, i *Item) error {
	i.ID = uuid.New()
	i.CreatedAt = time.Now()
	m.items[i.ID] = i
	return nil
}

func (m *mockRepo) GetItemByID(_ context.Context, id uuid.UUID) (*Item, error) {
	i, ok := m.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *i
	return &cp, nil
}

func (m *mockRepo) UpdateItem(_ context.Context, i *Item) error {
	if _, ok := m.items[i.ID]; !ok {
		return errors.New("not found")
	}
	cp := *i
	m.items[i.ID] = &cp
	return nil
}

func (m *mockRepo) ListItems(_ context.Context, limit, offset int) ([]*Item, int, error) {
	var out []*Item
	for _, i := range m.items {
		out = append(out, i)
	}
	return out, len(out), nil
}

func (m *mockRepo) Reserve(_ context.Context, itemID, caseID uuid.UUID) (bool, error) {
	i, ok := m.items[itemID]
	if !ok {
		return false, errors.New("not found")
	}
	if i.ReservedForCaseID != nil || i.Status != StatusAvailable {
		return false, nil
	}
	now := time.Now()
	i.ReservedForCaseID = &caseID
	i.ReservedAt = &now
	i.Status = StatusReserved
	return true, nil
}

func (m *mockRepo) Release(_ context.Context, itemID uuid.UUID) (bool, error) {
	i, ok := m.items[itemID]
	if !ok {
		return false, errors.New("not found")
	}
	if i.ReservedForCaseID == nil {
		return false, nil
	}
	i.ReservedForCaseID = nil
	i.ReservedAt = nil
	i.Status = StatusAvailable
	return true, nil
}

func (m *mockRepo) ListReservedForCase(_ context.Context, caseID uuid.UUID) ([]*Item, error) {
	var out []*Item
	for _, i := range m.items {
		if i.ReservedForCaseID != nil && *i.ReservedForCaseID == caseID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) VerifiedCounts(_ context.Context, caseID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, i := range m.items {
		if i.ReservedForCaseID != nil && *i.ReservedForCaseID == caseID &&
			i.LastVerifiedAt != nil && i.ReservedAt != nil && !i.LastVerifiedAt.Before(*i.ReservedAt) {
			counts[i.CatalogItemID]++
		}
	}
	return counts, nil
}

func (m *mockRepo) AppendEvent(_ context.Context, e *Event) error {
	e.ID = uuid.New()
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *mockRepo) ListEvents(_ context.Context, itemID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var out []*Event
	for _, e := range m.events {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, len(out), nil
}

func (m *mockRepo) addItem(t *testing.T) *Item {
	t.Helper()
	i := &Item{CatalogItemID: uuid.New(), Status: StatusAvailable, SterilityStatus: SterilityUnknown}
	if err := m.CreateItem(context.Background(), i); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return i
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, passthroughTx, nil)
}

func TestRecordEventAppendsAndMutatesTogether(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	loc := "sterile-storage-2"
	evt, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
		Type: EventMoved, NewLocation: &loc, Actor: "tech-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evt.PrevLocation != nil {
		t.Errorf("expected nil prior location, got %v", *evt.PrevLocation)
	}
	if evt.NewLocation == nil || *evt.NewLocation != loc {
		t.Error("expected event to carry the new location")
	}

	got, _ := repo.GetItemByID(context.Background(), item.ID)
	if got.Location == nil || *got.Location != loc {
		t.Error("expected item location to be mutated with the event")
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(repo.events))
	}
}

// The timestamp on the stored ledger row and on the event handed back to
// the caller must be the same instant.
func TestLedgerRowCarriesTheEventTimestamp(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	loc := "dock"
	evt, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
		Type: EventMoved, NewLocation: &loc, Actor: "tech-1",
	})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}

	if evt.OccurredAt.IsZero() {
		t.Fatal("expected a timestamp on the returned event")
	}
	stored := repo.events[0]
	if !stored.OccurredAt.Equal(evt.OccurredAt) {
		t.Errorf("ledger row stamped %v, caller got %v", stored.OccurredAt, evt.OccurredAt)
	}
}

func TestRecordEventSnapshotsPriorState(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	first := "or-3"
	if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
		Type: EventMoved, NewLocation: &first, Actor: "tech-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := "decontam"
	evt, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
		Type: EventMoved, NewLocation: &second, Actor: "tech-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.PrevLocation == nil || *evt.PrevLocation != first {
		t.Errorf("expected prior location %q on second event", first)
	}
}

func TestRecordEventValidation(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{Type: EventMoved}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for missing actor, got %v", err)
	}
	if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{Type: "teleported", Actor: "x"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for unknown type, got %v", err)
	}
	if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{Type: EventReserved, Actor: "x"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for direct reservation event, got %v", err)
	}
	if _, err := svc.RecordEvent(context.Background(), uuid.New(), EventCommand{Type: EventMoved, Actor: "x"}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found for unknown item, got %v", err)
	}
}

func TestReserveContention(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	caseA := uuid.New()
	caseB := uuid.New()

	if err := svc.Reserve(context.Background(), item.ID, caseA, "nurse-1"); err != nil {
		t.Fatalf("first reservation should win: %v", err)
	}

	err := svc.Reserve(context.Background(), item.ID, caseB, "nurse-2")
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("second reservation should fail with invalid state, got %v", err)
	}

	got, _ := repo.GetItemByID(context.Background(), item.ID)
	if got.ReservedForCaseID == nil || *got.ReservedForCaseID != caseA {
		t.Error("item must remain reserved for the first case only")
	}
}

func TestReleaseRequiresReservation(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	err := svc.Release(context.Background(), item.ID, "nurse-1")
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("expected invalid state on unreserved item, got %v", err)
	}

	if err := svc.Reserve(context.Background(), item.ID, uuid.New(), "nurse-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(context.Background(), item.ID, "nurse-1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, _ := repo.GetItemByID(context.Background(), item.ID)
	if got.Status != StatusAvailable || got.ReservedForCaseID != nil {
		t.Error("expected released item to be available and unreserved")
	}
}

func TestReleaseForCaseClearsAllReservations(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	caseID := uuid.New()
	a := repo.addItem(t)
	b := repo.addItem(t)
	other := repo.addItem(t)
	otherCase := uuid.New()

	for _, pair := range []struct {
		item   *Item
		caseID uuid.UUID
	}{{a, caseID}, {b, caseID}, {other, otherCase}} {
		if err := svc.Reserve(context.Background(), pair.item.ID, pair.caseID, "nurse-1"); err != nil {
			t.Fatalf("reserve: %v", err)
		}
	}

	if err := svc.ReleaseForCase(context.Background(), caseID, "system"); err != nil {
		t.Fatalf("release for case: %v", err)
	}

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		got, _ := repo.GetItemByID(context.Background(), id)
		if got.ReservedForCaseID != nil {
			t.Errorf("item %s should be released", id)
		}
	}
	got, _ := repo.GetItemByID(context.Background(), other.ID)
	if got.ReservedForCaseID == nil || *got.ReservedForCaseID != otherCase {
		t.Error("other case's reservation must be untouched")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)

	locs := []string{"dock", "decontam", "sterile-storage"}
	for _, l := range locs {
		loc := l
		if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
			Type: EventMoved, NewLocation: &loc, Actor: "tech-1",
		}); err != nil {
			t.Fatalf("record event: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	evts, total, err := svc.History(context.Background(), item.ID, 20, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 || len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", total)
	}
	if *evts[0].NewLocation != "sterile-storage" || *evts[2].NewLocation != "dock" {
		t.Error("expected events ordered newest first")
	}
}

func TestVerifiedEventStampsVerification(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	item := repo.addItem(t)
	caseID := uuid.New()

	if err := svc.Reserve(context.Background(), item.ID, caseID, "nurse-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.RecordEvent(context.Background(), item.ID, EventCommand{
		Type: EventVerified, CaseID: &caseID, Actor: "nurse-1",
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	counts, err := svc.VerifiedCounts(context.Background(), caseID)
	if err != nil {
		t.Fatalf("verified counts: %v", err)
	}
	if counts[item.CatalogItemID] != 1 {
		t.Errorf("expected 1 verified unit for catalog item, got %d", counts[item.CatalogItemID])
	}
}
