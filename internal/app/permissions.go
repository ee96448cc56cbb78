package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"travel_admin/internal/domain"
)

// ErrUnsupportedTarget is returned for target kinds outside the closed set.
var ErrUnsupportedTarget = fmt.Errorf("unsupported permission target: %w", domain.ErrValidation)

// PermissionTarget is one of UserTarget, DealerUserTarget, AdminTarget,
// SolutionPartnerTarget or SalesPartnerTarget.
type PermissionTarget interface {
	Kind() domain.TargetKind
	TargetID() int64
	permissionTarget()
}

type UserTarget struct{ ID int64 }
type DealerUserTarget struct{ ID int64 }
type AdminTarget struct{ ID int64 }
type SolutionPartnerTarget struct{ ID int64 }
type SalesPartnerTarget struct{ ID int64 }

func (UserTarget) Kind() domain.TargetKind            { return domain.TargetUser }
func (DealerUserTarget) Kind() domain.TargetKind      { return domain.TargetDealerUser }
func (AdminTarget) Kind() domain.TargetKind           { return domain.TargetAdmin }
func (SolutionPartnerTarget) Kind() domain.TargetKind { return domain.TargetSolutionPartner }
func (SalesPartnerTarget) Kind() domain.TargetKind    { return domain.TargetSalesPartner }

func (t UserTarget) TargetID() int64            { return t.ID }
func (t DealerUserTarget) TargetID() int64      { return t.ID }
func (t AdminTarget) TargetID() int64           { return t.ID }
func (t SolutionPartnerTarget) TargetID() int64 { return t.ID }
func (t SalesPartnerTarget) TargetID() int64    { return t.ID }

func (UserTarget) permissionTarget()            {}
func (DealerUserTarget) permissionTarget()      {}
func (AdminTarget) permissionTarget()           {}
func (SolutionPartnerTarget) permissionTarget() {}
func (SalesPartnerTarget) permissionTarget()    {}

// ParseTarget maps a wire kind and id onto its target variant.
func ParseTarget(kind string, id int64) (PermissionTarget, error) {
	switch domain.TargetKind(strings.TrimSpace(kind)) {
	case domain.TargetUser:
		return UserTarget{ID: id}, nil
	case domain.TargetDealerUser:
		return DealerUserTarget{ID: id}, nil
	case domain.TargetAdmin:
		return AdminTarget{ID: id}, nil
	case domain.TargetSolutionPartner:
		return SolutionPartnerTarget{ID: id}, nil
	case domain.TargetSalesPartner:
		return SalesPartnerTarget{ID: id}, nil
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrUnsupportedTarget)
}

// PermissionStores are the tables the evaluator reads and writes.
type PermissionStores struct {
	Permissions      domain.ResourceStore
	RolePermissions  domain.ResourceStore
	Users            domain.ResourceStore
	DealerUsers      domain.ResourceStore
	Admins           domain.ResourceStore
	SolutionPartners domain.ResourceStore
	SalesPartners    domain.ResourceStore
}

// PermissionService evaluates flat boolean permissions. Stored targets own
// their rows in permissions; admins inherit the rows of their role.
type PermissionService struct {
	st       PermissionStores
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewPermissionService builds the evaluator; c may be nil to disable caching.
func NewPermissionService(st PermissionStores, c domain.Cache, ttl time.Duration) *PermissionService {
	return &PermissionService{st: st, cache: c, cacheTTL: ttl}
}

func (s *PermissionService) owner(t PermissionTarget) domain.ResourceStore {
	switch t.(type) {
	case UserTarget:
		return s.st.Users
	case DealerUserTarget:
		return s.st.DealerUsers
	case AdminTarget:
		return s.st.Admins
	case SolutionPartnerTarget:
		return s.st.SolutionPartners
	case SalesPartnerTarget:
		return s.st.SalesPartners
	}
	panic(fmt.Sprintf("permission target %T not handled", t))
}

// scope is where a target's permissions live once the owner has been checked.
type scope struct {
	store domain.ResourceStore
	key   domain.Filter
	cache string
}

func (s *PermissionService) resolve(ctx context.Context, t PermissionTarget) (scope, error) {
	if t == nil {
		return scope{}, fmt.Errorf("nil target: %w", ErrUnsupportedTarget)
	}
	row, err := s.owner(t).First(ctx, domain.Filter{"id": t.TargetID()})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return scope{}, fmt.Errorf("%s %d: %w", t.Kind(), t.TargetID(), domain.ErrNotFound)
		}
		return scope{}, err
	}
	if _, ok := t.(AdminTarget); ok {
		roleID, ok := row.Int64("role_id")
		if !ok {
			return scope{}, fmt.Errorf("admin %d has no role: %w", t.TargetID(), domain.ErrValidation)
		}
		return scope{
			store: s.st.RolePermissions,
			key:   domain.Filter{"role_id": roleID},
			cache: "perm:role:" + strconv.FormatInt(roleID, 10),
		}, nil
	}
	return scope{
		store: s.st.Permissions,
		key:   domain.Filter{"target_type": string(t.Kind()), "target_id": t.TargetID()},
		cache: fmt.Sprintf("perm:%s:%d", t.Kind(), t.TargetID()),
	}, nil
}

// CreateOrUpdate sets one named permission for the target, restoring a
// previously deleted row when there is one.
func (s *PermissionService) CreateOrUpdate(ctx context.Context, t PermissionTarget, name string, granted bool) (domain.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Permission{}, fmt.Errorf("permission name required: %w", domain.ErrValidation)
	}
	sc, err := s.resolve(ctx, t)
	if err != nil {
		return domain.Permission{}, err
	}
	key := make(domain.Filter, len(sc.key)+1)
	for k, v := range sc.key {
		key[k] = v
	}
	key["name"] = name

	row, err := upsert(ctx, sc.store, key, domain.Fields{"granted": granted})
	if err != nil {
		return domain.Permission{}, err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, sc.cache); err != nil {
			log.Warn().Err(err).Str("key", sc.cache).Msg("permission cache invalidation failed")
		}
	}
	return toPermission(row), nil
}

// ListFor returns the target's permissions ordered by name.
func (s *PermissionService) ListFor(ctx context.Context, t PermissionTarget) ([]domain.Permission, error) {
	sc, err := s.resolve(ctx, t)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s.cache, sc.cache, s.cacheTTL, func(ctx context.Context) ([]domain.Permission, error) {
		page, err := sc.store.List(ctx, domain.ListQuery{Filter: sc.key, OrderBy: "name"})
		if err != nil {
			return nil, err
		}
		out := make([]domain.Permission, 0, len(page.Rows))
		for _, r := range page.Rows {
			out = append(out, toPermission(r))
		}
		return out, nil
	})
}

// Allowed reports whether name is granted to the target. Unknown names are
// not granted.
func (s *PermissionService) Allowed(ctx context.Context, t PermissionTarget, name string) (bool, error) {
	ps, err := s.ListFor(ctx, t)
	if err != nil {
		return false, err
	}
	for _, p := range ps {
		if p.Name == name {
			return p.Granted, nil
		}
	}
	return false, nil
}

func toPermission(r domain.Row) domain.Permission {
	return domain.Permission{Name: r.String("name"), Granted: truthy(r["granted"])}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err == nil {
			return b
		}
	}
	n, ok := domain.ToInt64(v)
	return ok && n != 0
}
