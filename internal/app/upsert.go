package app

import (
	"context"
	"errors"

	"travel_admin/internal/domain"
)

// upsert merges patch into the live row matching key. A soft-deleted match is
// restored first; with no match at all a new row of key+patch is inserted.
func upsert(ctx context.Context, s domain.ResourceStore, key domain.Filter, patch domain.Fields) (domain.Row, error) {
	live, err := s.First(ctx, key)
	if err == nil {
		return s.Update(ctx, live.ID(), patch)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	old, err := s.FirstWithDeleted(ctx, key)
	switch {
	case err == nil:
		if err := s.Restore(ctx, old.ID()); err != nil {
			return nil, err
		}
		return s.Update(ctx, old.ID(), patch)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	row := make(domain.Fields, len(key)+len(patch))
	for k, v := range patch {
		row[k] = v
	}
	for k, v := range key {
		row[k] = v
	}
	return s.Create(ctx, row)
}
