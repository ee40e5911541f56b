package requirements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

type mockRepo struct {
	templates    map[uuid.UUID]*Template
	versions     map[uuid.UUID]*TemplateVersion
	versionItems map[uuid.UUID][]*TemplateItem
	requirements map[uuid.UUID]*CaseRequirement
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		templates:    make(map[uuid.UUID]*Template),
		versions:     make(map[uuid.UUID]*TemplateVersion),
		versionItems: make(map[uuid.UUID][]*TemplateItem),
		requirements: make(map[uuid.UUID]*CaseRequirement),
	}
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockRepo) CreateTemplate(_ context.Context, t *Template) error {
	t.ID = uuid.New()
	m.templates[t.ID] = t
	return nil
}

func (m *mockRepo) GetTemplateByID(_ context.Context, id uuid.UUID) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (m *mockRepo) UpdateTemplate(_ context.Context, t *Template) error {
	m.templates[t.ID] = t
	return nil
}

func (m *mockRepo) ListTemplates(_ context.Context, limit, offset int) ([]*Template, int, error) {
	var out []*Template
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateVersion(_ context.Context, v *TemplateVersion) error {
	v.ID = uuid.New()
	v.PublishedAt = time.Now()
	m.versions[v.ID] = v
	return nil
}

func (m *mockRepo) GetVersionByID(_ context.Context, id uuid.UUID) (*TemplateVersion, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (m *mockRepo) NextVersionNumber(_ context.Context, templateID uuid.UUID) (int, error) {
	max := 0
	for _, v := range m.versions {
		if v.TemplateID == templateID && v.Version > max {
			max = v.Version
		}
	}
	return max + 1, nil
}

func (m *mockRepo) AddVersionItem(_ context.Context, i *TemplateItem) error {
	i.ID = uuid.New()
	m.versionItems[i.VersionID] = append(m.versionItems[i.VersionID], i)
	return nil
}

func (m *mockRepo) ListVersionItems(_ context.Context, versionID uuid.UUID) ([]*TemplateItem, error) {
	return m.versionItems[versionID], nil
}

func (m *mockRepo) InsertRequirement(_ context.Context, r *CaseRequirement) error {
	for _, existing := range m.requirements {
		if existing.CaseID == r.CaseID && existing.CatalogItemID == r.CatalogItemID {
			return nil // conflict-skip
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.requirements[r.ID] = r
	return nil
}

func (m *mockRepo) DeleteNonOverrides(_ context.Context, caseID uuid.UUID) error {
	for id, r := range m.requirements {
		if r.CaseID == caseID && !r.IsOverride {
			delete(m.requirements, id)
		}
	}
	return nil
}

func (m *mockRepo) DeleteOverrides(_ context.Context, caseID uuid.UUID) error {
	for id, r := range m.requirements {
		if r.CaseID == caseID && r.IsOverride {
			delete(m.requirements, id)
		}
	}
	return nil
}

func (m *mockRepo) DeleteByCatalogIDs(_ context.Context, caseID uuid.UUID, catalogIDs []uuid.UUID) error {
	ids := make(map[uuid.UUID]bool)
	for _, id := range catalogIDs {
		ids[id] = true
	}
	for id, r := range m.requirements {
		if r.CaseID == caseID && ids[r.CatalogItemID] {
			delete(m.requirements, id)
		}
	}
	return nil
}

func (m *mockRepo) DeleteAllForCase(_ context.Context, caseID uuid.UUID) error {
	for id, r := range m.requirements {
		if r.CaseID == caseID {
			delete(m.requirements, id)
		}
	}
	return nil
}

func (m *mockRepo) ListForCase(_ context.Context, caseID uuid.UUID) ([]*CaseRequirement, error) {
	var out []*CaseRequirement
	for _, r := range m.requirements {
		if r.CaseID == caseID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockCatalog struct {
	known map[uuid.UUID]bool
}

func (m *mockCatalog) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

func newTestService(repo *mockRepo, catalogIDs ...uuid.UUID) *Service {
	known := make(map[uuid.UUID]bool)
	for _, id := range catalogIDs {
		known[id] = true
	}
	return NewService(repo, &mockCatalog{known: known}, passthroughTx)
}

func publish(t *testing.T, svc *Service, repo *mockRepo, items []RequirementInput) *TemplateVersion {
	t.Helper()
	tpl := &Template{Name: "lap chole"}
	if err := svc.CreateTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	v, err := svc.PublishVersion(context.Background(), tpl.ID, items, "surgeon-1")
	if err != nil {
		t.Fatalf("publish version: %v", err)
	}
	return v
}

func TestPublishVersionBumpsCurrent(t *testing.T) {
	repo := newMockRepo()
	cat := uuid.New()
	svc := newTestService(repo, cat)

	tpl := &Template{Name: "lap chole"}
	if err := svc.CreateTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	v1, err := svc.PublishVersion(context.Background(), tpl.ID, []RequirementInput{{CatalogItemID: cat, Quantity: 1, Required: true}}, "surgeon-1")
	if err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	v2, err := svc.PublishVersion(context.Background(), tpl.ID, []RequirementInput{{CatalogItemID: cat, Quantity: 2, Required: true}}, "surgeon-1")
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}

	if v1.Version != 1 || v2.Version != 2 {
		t.Errorf("expected versions 1 and 2, got %d and %d", v1.Version, v2.Version)
	}
	if tpl.CurrentVersionID == nil || *tpl.CurrentVersionID != v2.ID {
		t.Error("expected current version to point at the latest publish")
	}
}

func TestBindReplacesDerivedKeepsOverrides(t *testing.T) {
	repo := newMockRepo()
	catA, catB, catC, catOverride := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	svc := newTestService(repo, catA, catB, catC, catOverride)
	caseID := uuid.New()

	v1 := publish(t, svc, repo, []RequirementInput{
		{CatalogItemID: catA, Quantity: 1, Required: true},
		{CatalogItemID: catB, Quantity: 1, Required: true},
	})
	if err := svc.Bind(context.Background(), caseID, &v1.ID); err != nil {
		t.Fatalf("bind v1: %v", err)
	}
	if err := svc.SetOverrides(context.Background(), caseID, []RequirementInput{
		{CatalogItemID: catOverride, Quantity: 2, Required: true},
	}); err != nil {
		t.Fatalf("set overrides: %v", err)
	}

	v2 := publish(t, svc, repo, []RequirementInput{
		{CatalogItemID: catB, Quantity: 3, Required: true},
		{CatalogItemID: catC, Quantity: 1, Required: false},
	})
	if err := svc.Bind(context.Background(), caseID, &v2.ID); err != nil {
		t.Fatalf("bind v2: %v", err)
	}

	rows, _ := svc.ListForCase(context.Background(), caseID)
	byCatalog := make(map[uuid.UUID]*CaseRequirement)
	for _, r := range rows {
		if byCatalog[r.CatalogItemID] != nil {
			t.Fatalf("duplicate (case, catalog item) pair for %s", r.CatalogItemID)
		}
		byCatalog[r.CatalogItemID] = r
	}

	if len(rows) != 3 {
		t.Fatalf("expected override + 2 latest template rows, got %d", len(rows))
	}
	if byCatalog[catA] != nil {
		t.Error("v1-only row should be gone after rebind")
	}
	if r := byCatalog[catOverride]; r == nil || !r.IsOverride {
		t.Error("override row must survive rebinding")
	}
	if r := byCatalog[catB]; r == nil || r.Quantity != 3 {
		t.Error("expected latest template quantity for shared item")
	}
}

func TestBindSkipsSlotsClaimedByOverrides(t *testing.T) {
	repo := newMockRepo()
	cat := uuid.New()
	svc := newTestService(repo, cat)
	caseID := uuid.New()

	if err := svc.SetOverrides(context.Background(), caseID, []RequirementInput{
		{CatalogItemID: cat, Quantity: 5, Required: true},
	}); err != nil {
		t.Fatalf("set overrides: %v", err)
	}

	v := publish(t, svc, repo, []RequirementInput{{CatalogItemID: cat, Quantity: 1, Required: true}})
	if err := svc.Bind(context.Background(), caseID, &v.ID); err != nil {
		t.Fatalf("bind over an override slot must not error: %v", err)
	}

	rows, _ := svc.ListForCase(context.Background(), caseID)
	if len(rows) != 1 {
		t.Fatalf("expected the single override row, got %d", len(rows))
	}
	if !rows[0].IsOverride || rows[0].Quantity != 5 {
		t.Error("override must win the contested slot")
	}
}

func TestBindNilVersionClearsDerived(t *testing.T) {
	repo := newMockRepo()
	catA, catOverride := uuid.New(), uuid.New()
	svc := newTestService(repo, catA, catOverride)
	caseID := uuid.New()

	v := publish(t, svc, repo, []RequirementInput{{CatalogItemID: catA, Quantity: 1, Required: true}})
	if err := svc.Bind(context.Background(), caseID, &v.ID); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := svc.SetOverrides(context.Background(), caseID, []RequirementInput{
		{CatalogItemID: catOverride, Quantity: 1, Required: false},
	}); err != nil {
		t.Fatalf("set overrides: %v", err)
	}

	if err := svc.Bind(context.Background(), caseID, nil); err != nil {
		t.Fatalf("nil rebind must be valid: %v", err)
	}

	rows, _ := svc.ListForCase(context.Background(), caseID)
	if len(rows) != 1 || !rows[0].IsOverride {
		t.Errorf("expected only the override to remain, got %d rows", len(rows))
	}
}

func TestSetOverridesRejectsDuplicates(t *testing.T) {
	repo := newMockRepo()
	cat := uuid.New()
	svc := newTestService(repo, cat)

	err := svc.SetOverrides(context.Background(), uuid.New(), []RequirementInput{
		{CatalogItemID: cat, Quantity: 1},
		{CatalogItemID: cat, Quantity: 2},
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for duplicate catalog ids, got %v", err)
	}
}

func TestSetOverridesRejectsUnknownCatalogItem(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	err := svc.SetOverrides(context.Background(), uuid.New(), []RequirementInput{
		{CatalogItemID: uuid.New(), Quantity: 1},
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for unknown catalog item, got %v", err)
	}
}

func TestSetOverridesReplacesPriorOverrides(t *testing.T) {
	repo := newMockRepo()
	catA, catB := uuid.New(), uuid.New()
	svc := newTestService(repo, catA, catB)
	caseID := uuid.New()

	if err := svc.SetOverrides(context.Background(), caseID, []RequirementInput{
		{CatalogItemID: catA, Quantity: 1, Required: true},
	}); err != nil {
		t.Fatalf("first overrides: %v", err)
	}
	if err := svc.SetOverrides(context.Background(), caseID, []RequirementInput{
		{CatalogItemID: catB, Quantity: 2, Required: true},
	}); err != nil {
		t.Fatalf("second overrides: %v", err)
	}

	rows, _ := svc.ListForCase(context.Background(), caseID)
	if len(rows) != 1 || rows[0].CatalogItemID != catB {
		t.Error("expected the second override set to fully replace the first")
	}
}

func TestBindUnknownVersion(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	unknown := uuid.New()

	err := svc.Bind(context.Background(), uuid.New(), &unknown)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found for unknown version, got %v", err)
	}
}
