package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel_admin/internal/domain"
)

// Table describes one soft-deletable resource table.
// Columns are the writable business columns; Search lists the columns
// matched by ListQuery.Search.
type Table struct {
	Name    string
	Columns []string
	Search  []string
}

// Store is the generic soft-delete repository for one Table.
// It is safe for concurrent use; it holds no per-request state.
type Store struct {
	db       *sql.DB
	t        Table
	writable map[string]struct{}
	readable map[string]struct{}
	selCols  []string
	now      func() time.Time
}

func NewStore(db *sql.DB, t Table) *Store {
	s := &Store{
		db:       db,
		t:        t,
		writable: make(map[string]struct{}, len(t.Columns)),
		readable: make(map[string]struct{}, len(t.Columns)+4),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.selCols = append(s.selCols, colID)
	s.readable[colID] = struct{}{}
	for _, c := range t.Columns {
		s.writable[c] = struct{}{}
		s.readable[c] = struct{}{}
		s.selCols = append(s.selCols, c)
	}
	for _, c := range []string{colCreatedAt, colUpdatedAt, colDeletedAt} {
		s.readable[c] = struct{}{}
		s.selCols = append(s.selCols, c)
	}
	return s
}

func (s *Store) Table() string { return s.t.Name }

func (s *Store) First(ctx context.Context, f domain.Filter) (domain.Row, error) {
	return s.first(ctx, f, false)
}

// FirstWithDeleted is First without the soft-delete predicate.
func (s *Store) FirstWithDeleted(ctx context.Context, f domain.Filter) (domain.Row, error) {
	return s.first(ctx, f, true)
}

func (s *Store) first(ctx context.Context, f domain.Filter, withDeleted bool) (domain.Row, error) {
	where, args, err := s.where(f, "", withDeleted)
	if err != nil {
		return nil, err
	}
	q := s.selectSQL() + where + " ORDER BY " + quote(colID) + " LIMIT 1"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, classify(err)
		}
		return nil, fmt.Errorf("%s: %w", s.t.Name, domain.ErrNotFound)
	}
	return s.scanRow(rows)
}

// List returns one page plus the total computed from the same predicate.
func (s *Store) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	where, args, err := s.where(q.Filter, q.Search, false)
	if err != nil {
		return domain.Page{}, err
	}
	order := colID
	if q.OrderBy != "" {
		if _, ok := s.readable[q.OrderBy]; !ok {
			return domain.Page{}, fmt.Errorf("%w: unknown order column %q", domain.ErrValidation, q.OrderBy)
		}
		order = q.OrderBy
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(s.t.Name)+where, args...).Scan(&total); err != nil {
		return domain.Page{}, classify(err)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	pageSQL := s.selectSQL() + where + " ORDER BY " + quote(order) + " " + dir
	pageArgs := append([]any(nil), args...)
	if q.Limit > 0 {
		pageSQL += " LIMIT ? OFFSET ?"
		off := q.Offset
		if off < 0 {
			off = 0
		}
		pageArgs = append(pageArgs, q.Limit, off)
	}

	rows, err := s.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return domain.Page{}, classify(err)
	}
	defer rows.Close()

	out := domain.Page{Rows: []domain.Row{}, Total: total}
	for rows.Next() {
		r, err := s.scanRow(rows)
		if err != nil {
			return domain.Page{}, err
		}
		out.Rows = append(out.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, classify(err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, fields domain.Fields) (domain.Row, error) {
	cols, vals, err := s.assignments(fields)
	if err != nil {
		return nil, err
	}
	now := s.now()
	cols = append(cols, colCreatedAt, colUpdatedAt)
	vals = append(vals, now, now)

	res, err := s.db.ExecContext(ctx, insertSQL(s.t.Name, cols), vals...)
	if err != nil {
		return nil, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err)
	}
	return s.First(ctx, domain.Filter{colID: id})
}

// Update writes only the keys present in fields; everything else keeps its
// stored value.
func (s *Store) Update(ctx context.Context, id int64, fields domain.Fields) (domain.Row, error) {
	cols, vals, err := s.assignments(fields)
	if err != nil {
		return nil, err
	}
	if _, err := s.First(ctx, domain.Filter{colID: id}); err != nil {
		return nil, err
	}

	cols = append(cols, colUpdatedAt)
	vals = append(vals, s.now(), id)
	if _, err := s.db.ExecContext(ctx, updateSQL(s.t.Name, cols), vals...); err != nil {
		return nil, classify(err)
	}
	return s.First(ctx, domain.Filter{colID: id})
}

// Delete marks the row deleted. Deleting a row twice is a no-op; an id that
// never existed is ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, softDeleteSQL(s.t.Name), s.now(), id)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.FirstWithDeleted(ctx, domain.Filter{colID: id})
	return err
}

// Restore clears deleted_at on a previously deleted row.
func (s *Store) Restore(ctx context.Context, id int64) error {
	if _, err := s.FirstWithDeleted(ctx, domain.Filter{colID: id}); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, restoreSQL(s.t.Name), s.now(), id); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) assignments(fields domain.Fields) ([]string, []any, error) {
	keys := sortedKeys(fields)
	cols := make([]string, 0, len(keys)+2)
	vals := make([]any, 0, len(keys)+3)
	for _, k := range keys {
		if _, ok := s.writable[k]; !ok {
			return nil, nil, fmt.Errorf("%w: %s has no writable column %q", domain.ErrValidation, s.t.Name, k)
		}
		v, err := dbValue(fields[k])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s.%s: %v", domain.ErrValidation, s.t.Name, k, err)
		}
		cols = append(cols, k)
		vals = append(vals, v)
	}
	return cols, vals, nil
}

func (s *Store) scanRow(rows *sql.Rows) (domain.Row, error) {
	raw := make([]any, len(s.selCols))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, classify(err)
	}
	r := make(domain.Row, len(raw))
	for i, c := range s.selCols {
		r[c] = normalize(raw[i])
	}
	return r, nil
}
