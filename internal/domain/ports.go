package domain

import "context"

// ResourceStore is soft-delete CRUD over one table.
type ResourceStore interface {
	Table() string
	First(ctx context.Context, f Filter) (Row, error)
	FirstWithDeleted(ctx context.Context, f Filter) (Row, error)
	List(ctx context.Context, q ListQuery) (Page, error)
	Create(ctx context.Context, fields Fields) (Row, error)
	Update(ctx context.Context, id int64, fields Fields) (Row, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}

type AuditRepository interface {
	Insert(ctx context.Context, e AuditEntry) error
	List(ctx context.Context, q AuditQuery) (AuditPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
