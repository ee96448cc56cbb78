package app

import (
	"context"

	"travel_admin/internal/domain"
)

// Resource is one entity kind served by the generic handlers.
type Resource struct {
	Name  string
	Store domain.ResourceStore
	// Pivot and Localized are set for entities with per-language text.
	Pivot     *Pivot
	Localized []string
}

func (r Resource) split(in domain.Fields) (base, local domain.Fields) {
	base, local = domain.Fields{}, domain.Fields{}
	for k, v := range in {
		if r.isLocalized(k) {
			local[k] = v
			continue
		}
		base[k] = v
	}
	return base, local
}

func (r Resource) isLocalized(k string) bool {
	for _, c := range r.Localized {
		if c == k {
			return true
		}
	}
	return false
}

// translated keeps only the localized columns of a pivot row plus its language.
func (r Resource) translated(tr domain.Row) domain.Row {
	out := domain.Row{colLanguage: tr[colLanguage]}
	for _, c := range r.Localized {
		out[c] = tr[c]
	}
	return out
}

// ResourceService writes an entity and keeps its translation in step.
type ResourceService struct {
	tr *TranslationService
}

func NewResourceService(tr *TranslationService) *ResourceService {
	return &ResourceService{tr: tr}
}

// Create inserts the entity, then a translation for the request language when
// any localized field is present. The two writes are not atomic.
func (s *ResourceService) Create(ctx context.Context, r Resource, in domain.Fields) (domain.Row, error) {
	base, local := r.split(in)
	delete(base, "id")
	row, err := r.Store.Create(ctx, base)
	if err != nil {
		return nil, err
	}
	if r.Pivot == nil || len(local) == 0 {
		return row, nil
	}
	tr, err := s.tr.Create(ctx, *r.Pivot, row.ID(), "", local)
	if err != nil {
		return nil, err
	}
	return row.Merge(r.translated(tr)), nil
}

// Update merges base fields into the entity and upserts the translation.
func (s *ResourceService) Update(ctx context.Context, r Resource, id int64, in domain.Fields) (domain.Row, error) {
	base, local := r.split(in)
	delete(base, "id")

	var (
		row domain.Row
		err error
	)
	if len(base) > 0 {
		row, err = r.Store.Update(ctx, id, base)
	} else {
		row, err = r.Store.First(ctx, domain.Filter{"id": id})
	}
	if err != nil {
		return nil, err
	}
	if r.Pivot == nil || len(local) == 0 {
		return s.localize(ctx, r, row)
	}
	tr, err := s.tr.Update(ctx, *r.Pivot, id, "", local)
	if err != nil {
		return nil, err
	}
	return row.Merge(r.translated(tr)), nil
}

// Delete soft-deletes the entity. Translations stay and reappear if the
// entity is restored.
func (s *ResourceService) Delete(ctx context.Context, r Resource, id int64) error {
	return r.Store.Delete(ctx, id)
}

func (s *ResourceService) Translations() *TranslationService { return s.tr }
