package app

import (
	"context"
	"errors"
	"time"

	"travel_admin/internal/domain"
)

// readThrough serves key from c when present, otherwise loads and stores it.
// Cache failures never fail the read.
func readThrough[T any](ctx context.Context, c domain.Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if c == nil {
		return load(ctx)
	}
	if ok, _ := c.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	_ = c.Set(ctx, key, out, int(ttl.Seconds()))
	return out, nil
}

// Get returns one live row merged with its translation for the request
// language. A missing translation leaves the base row as is.
func (s *ResourceService) Get(ctx context.Context, r Resource, id int64) (domain.Row, error) {
	row, err := r.Store.First(ctx, domain.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	return s.localize(ctx, r, row)
}

// List returns one page of live rows; translations for the whole page are
// read in one query and merged by foreign key.
func (s *ResourceService) List(ctx context.Context, r Resource, q domain.ListQuery) (domain.Page, error) {
	page, err := r.Store.List(ctx, q)
	if err != nil || r.Pivot == nil || len(page.Rows) == 0 {
		return page, err
	}
	ids := make([]int64, len(page.Rows))
	for i, row := range page.Rows {
		ids[i] = row.ID()
	}
	trs, err := s.tr.ForEntities(ctx, *r.Pivot, ids, "")
	if err != nil {
		return domain.Page{}, err
	}
	for i, row := range page.Rows {
		if tr, ok := trs[row.ID()]; ok {
			page.Rows[i] = row.Merge(r.translated(tr))
		}
	}
	return page, nil
}

func (s *ResourceService) localize(ctx context.Context, r Resource, row domain.Row) (domain.Row, error) {
	if r.Pivot == nil {
		return row, nil
	}
	tr, err := s.tr.Get(ctx, *r.Pivot, row.ID(), "")
	if errors.Is(err, domain.ErrNotFound) {
		return row, nil
	}
	if err != nil {
		return nil, err
	}
	return row.Merge(r.translated(tr)), nil
}
