package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"travel_admin/internal/ctxutil"
	"travel_admin/internal/domain"
)

const colLanguage = "language_code"

// Pivot binds an entity table to its per-language translation table.
type Pivot struct {
	Parent     domain.ResourceStore
	Rows       domain.ResourceStore
	ForeignKey string
}

// TranslationService keeps pivot rows in step with caller-supplied localized
// fields. The language is the explicit argument, else the request language,
// else the configured default.
type TranslationService struct {
	defaultLang string
}

func NewTranslationService(defaultLang string) *TranslationService {
	return &TranslationService{defaultLang: normLang(defaultLang)}
}

// Language resolves the language an operation will act on.
func (s *TranslationService) Language(ctx context.Context, lang string) string {
	if l := normLang(lang); l != "" {
		return l
	}
	if l := normLang(ctxutil.LanguageFromContext(ctx)); l != "" {
		return l
	}
	return s.defaultLang
}

// Create always inserts. Two calls for the same entity and language leave two
// rows; callers that may repeat should use Update.
func (s *TranslationService) Create(ctx context.Context, p Pivot, entityID int64, lang string, fields domain.Fields) (domain.Row, error) {
	lang = s.Language(ctx, lang)
	if err := requireParent(ctx, p, entityID); err != nil {
		return nil, err
	}
	row := pivotFields(p, fields)
	row[p.ForeignKey] = entityID
	row[colLanguage] = lang
	return p.Rows.Create(ctx, row)
}

// Update merges fields into the live row for (entity, language). When only a
// soft-deleted row exists it is restored and updated in place; otherwise a new
// row is inserted. Repeating the call with the same fields is a no-op on the
// row count.
func (s *TranslationService) Update(ctx context.Context, p Pivot, entityID int64, lang string, fields domain.Fields) (domain.Row, error) {
	lang = s.Language(ctx, lang)
	if err := requireParent(ctx, p, entityID); err != nil {
		return nil, err
	}
	key := domain.Filter{p.ForeignKey: entityID, colLanguage: lang}
	return upsert(ctx, p.Rows, key, pivotFields(p, fields))
}

// Delete soft-deletes the live row for (entity, language).
func (s *TranslationService) Delete(ctx context.Context, p Pivot, entityID int64, lang string) error {
	lang = s.Language(ctx, lang)
	live, err := p.Rows.First(ctx, domain.Filter{p.ForeignKey: entityID, colLanguage: lang})
	if err != nil {
		return err
	}
	return p.Rows.Delete(ctx, live.ID())
}

func (s *TranslationService) Get(ctx context.Context, p Pivot, entityID int64, lang string) (domain.Row, error) {
	return p.Rows.First(ctx, domain.Filter{p.ForeignKey: entityID, colLanguage: s.Language(ctx, lang)})
}

// ForEntities returns the live translation in the request language of each
// entity in ids, keyed by entity id, using a single query. Entities without
// one are absent from the map.
func (s *TranslationService) ForEntities(ctx context.Context, p Pivot, ids []int64, lang string) (map[int64]domain.Row, error) {
	out := make(map[int64]domain.Row, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	set := make(domain.In, len(ids))
	for i, id := range ids {
		set[i] = id
	}
	page, err := p.Rows.List(ctx, domain.ListQuery{
		Filter:  domain.Filter{p.ForeignKey: set, colLanguage: s.Language(ctx, lang)},
		OrderBy: "id",
	})
	if err != nil {
		return nil, err
	}
	for _, row := range page.Rows {
		id, ok := domain.ToInt64(row[p.ForeignKey])
		if !ok {
			continue
		}
		if _, seen := out[id]; !seen {
			out[id] = row
		}
	}
	return out, nil
}

// All returns every live translation of one entity.
func (s *TranslationService) All(ctx context.Context, p Pivot, entityID int64) ([]domain.Row, error) {
	page, err := p.Rows.List(ctx, domain.ListQuery{
		Filter:  domain.Filter{p.ForeignKey: entityID},
		OrderBy: colLanguage,
	})
	if err != nil {
		return nil, err
	}
	return page.Rows, nil
}

func requireParent(ctx context.Context, p Pivot, entityID int64) error {
	if _, err := p.Parent.First(ctx, domain.Filter{"id": entityID}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s %d: entity %w", p.Parent.Table(), entityID, domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// pivotFields copies fields without the keys that address the pivot row.
func pivotFields(p Pivot, fields domain.Fields) domain.Fields {
	out := make(domain.Fields, len(fields)+2)
	for k, v := range fields {
		if k == p.ForeignKey || k == colLanguage || k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

func normLang(l string) string { return strings.ToLower(strings.TrimSpace(l)) }
