package requirements

import (
	"context"

	"github.com/google/uuid"

	"github.com/orflow/orflow/internal/platform/apperr"
)

// TxRunner executes fn inside a single atomic unit.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo    Repository
	catalog CatalogChecker
	runTx   TxRunner
}

func NewService(repo Repository, catalog CatalogChecker, runTx TxRunner) *Service {
	return &Service{repo: repo, catalog: catalog, runTx: runTx}
}

// -- Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	t.IsActive = true
	return s.repo.CreateTemplate(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("requirement template")
	}
	return t, nil
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	return s.repo.ListTemplates(ctx, limit, offset)
}

// PublishVersion creates an immutable new version with the given line items
// and makes it the template's current version.
func (s *Service) PublishVersion(ctx context.Context, templateID uuid.UUID, items []RequirementInput, publishedBy string) (*TemplateVersion, error) {
	if publishedBy == "" {
		return nil, apperr.Validation("published_by is required")
	}
	if len(items) == 0 {
		return nil, apperr.Validation("a version needs at least one line item")
	}
	if err := s.checkLineItems(ctx, items); err != nil {
		return nil, err
	}

	tpl, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		return nil, apperr.NotFound("requirement template")
	}

	var version *TemplateVersion
	err = s.runTx(ctx, func(ctx context.Context) error {
		next, err := s.repo.NextVersionNumber(ctx, tpl.ID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "next version number")
		}
		version = &TemplateVersion{TemplateID: tpl.ID, Version: next, PublishedBy: publishedBy}
		if err := s.repo.CreateVersion(ctx, version); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "create template version")
		}
		for _, in := range items {
			item := &TemplateItem{
				VersionID:     version.ID,
				CatalogItemID: in.CatalogItemID,
				Quantity:      in.Quantity,
				Required:      in.Required,
				Note:          in.Note,
			}
			if item.Quantity <= 0 {
				item.Quantity = 1
			}
			if err := s.repo.AddVersionItem(ctx, item); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "add version item")
			}
		}
		tpl.CurrentVersionID = &version.ID
		return s.repo.UpdateTemplate(ctx, tpl)
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// CurrentVersionID resolves the template's current version for case
// creation. A template with no published version yet resolves to nil.
func (s *Service) CurrentVersionID(ctx context.Context, templateID uuid.UUID) (*uuid.UUID, error) {
	tpl, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		return nil, apperr.NotFound("requirement template")
	}
	return tpl.CurrentVersionID, nil
}

func (s *Service) GetVersionItems(ctx context.Context, versionID uuid.UUID) ([]*TemplateItem, error) {
	if _, err := s.repo.GetVersionByID(ctx, versionID); err != nil {
		return nil, apperr.NotFound("template version")
	}
	return s.repo.ListVersionItems(ctx, versionID)
}

// -- Synchronization --

// Bind replaces a case's system-derived requirement rows with the given
// template version's line items. Override rows are preserved; a template
// line colliding with an override is silently skipped. A nil version clears
// the system-derived rows and is valid.
func (s *Service) Bind(ctx context.Context, caseID uuid.UUID, versionID *uuid.UUID) error {
	var items []*TemplateItem
	if versionID != nil {
		if _, err := s.repo.GetVersionByID(ctx, *versionID); err != nil {
			return apperr.NotFound("template version")
		}
		var err error
		items, err = s.repo.ListVersionItems(ctx, *versionID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "load template items")
		}
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteNonOverrides(ctx, caseID); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "clear derived requirements")
		}
		for _, item := range items {
			req := &CaseRequirement{
				CaseID:        caseID,
				CatalogItemID: item.CatalogItemID,
				Quantity:      item.Quantity,
				Required:      item.Required,
				IsOverride:    false,
				Note:          item.Note,
			}
			if err := s.repo.InsertRequirement(ctx, req); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "insert derived requirement")
			}
		}
		return nil
	})
}

// SetOverrides replaces the case's surgeon-authored rows with the given
// set. Duplicate catalog ids within one call are rejected before any write.
func (s *Service) SetOverrides(ctx context.Context, caseID uuid.UUID, items []RequirementInput) error {
	seen := make(map[uuid.UUID]bool, len(items))
	for _, in := range items {
		if in.CatalogItemID == uuid.Nil {
			return apperr.Validation("catalog_item_id is required on every line")
		}
		if seen[in.CatalogItemID] {
			return apperr.Validation("duplicate catalog item %s in override set", in.CatalogItemID)
		}
		seen[in.CatalogItemID] = true
	}
	if err := s.checkLineItems(ctx, items); err != nil {
		return err
	}

	catalogIDs := make([]uuid.UUID, 0, len(items))
	for _, in := range items {
		catalogIDs = append(catalogIDs, in.CatalogItemID)
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteOverrides(ctx, caseID); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "clear prior overrides")
		}
		// A derived row occupying an override's slot yields to the override.
		if err := s.repo.DeleteByCatalogIDs(ctx, caseID, catalogIDs); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "clear colliding derived rows")
		}
		for _, in := range items {
			req := &CaseRequirement{
				CaseID:        caseID,
				CatalogItemID: in.CatalogItemID,
				Quantity:      in.Quantity,
				Required:      in.Required,
				IsOverride:    true,
				Note:          in.Note,
			}
			if req.Quantity <= 0 {
				req.Quantity = 1
			}
			if err := s.repo.InsertRequirement(ctx, req); err != nil {
				return apperr.Wrap(apperr.KindInternal, err, "insert override")
			}
		}
		return nil
	})
}

func (s *Service) ListForCase(ctx context.Context, caseID uuid.UUID) ([]*CaseRequirement, error) {
	return s.repo.ListForCase(ctx, caseID)
}

// DeleteAllForCase removes every requirement row for a case as part of the
// case-deletion cascade.
func (s *Service) DeleteAllForCase(ctx context.Context, caseID uuid.UUID) error {
	return s.repo.DeleteAllForCase(ctx, caseID)
}

func (s *Service) checkLineItems(ctx context.Context, items []RequirementInput) error {
	for _, in := range items {
		exists, err := s.catalog.Exists(ctx, in.CatalogItemID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "check catalog item")
		}
		if !exists {
			return apperr.Validation("unknown catalog item %s", in.CatalogItemID)
		}
	}
	return nil
}
