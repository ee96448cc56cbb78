package mysql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"travel_admin/internal/domain"
)

const (
	colID        = "id"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
	colDeletedAt = "deleted_at"
)

// Identifiers only ever come from Table definitions or whitelisted keys.
func quote(ident string) string { return "`" + ident + "`" }

func (s *Store) selectSQL() string {
	q := make([]string, len(s.selCols))
	for i, c := range s.selCols {
		q[i] = quote(c)
	}
	return "SELECT " + strings.Join(q, ", ") + " FROM " + quote(s.t.Name)
}

// where builds the WHERE clause shared by First, List and the List count.
func (s *Store) where(f domain.Filter, search string, withDeleted bool) (string, []any, error) {
	var conds []string
	var args []any
	for _, k := range sortedKeys(f) {
		if _, ok := s.readable[k]; !ok {
			return "", nil, fmt.Errorf("%w: %s has no column %q", domain.ErrValidation, s.t.Name, k)
		}
		switch want := f[k].(type) {
		case nil:
			conds = append(conds, quote(k)+" IS NULL")
		case domain.In:
			if len(want) == 0 {
				conds = append(conds, "1 = 0")
				continue
			}
			marks := make([]string, len(want))
			for i, v := range want {
				marks[i] = "?"
				arg, err := dbValue(v)
				if err != nil {
					return "", nil, fmt.Errorf("%w: %s.%s: %v", domain.ErrValidation, s.t.Name, k, err)
				}
				args = append(args, arg)
			}
			conds = append(conds, quote(k)+" IN ("+strings.Join(marks, ", ")+")")
		default:
			arg, err := dbValue(want)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s.%s: %v", domain.ErrValidation, s.t.Name, k, err)
			}
			conds = append(conds, quote(k)+" = ?")
			args = append(args, arg)
		}
	}
	if term := strings.TrimSpace(search); term != "" && len(s.t.Search) > 0 {
		likes := make([]string, len(s.t.Search))
		for i, c := range s.t.Search {
			likes[i] = quote(c) + " LIKE ?"
			args = append(args, "%"+term+"%")
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}
	if !withDeleted {
		conds = append(conds, quote(colDeletedAt)+" IS NULL")
	}
	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func insertSQL(table string, cols []string) string {
	q := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quote(c)
		marks[i] = "?"
	}
	return "INSERT INTO " + quote(table) + " (" + strings.Join(q, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

func updateSQL(table string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	return "UPDATE " + quote(table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + quote(colID) + " = ? AND " + quote(colDeletedAt) + " IS NULL"
}

func softDeleteSQL(table string) string {
	return "UPDATE " + quote(table) + " SET " + quote(colDeletedAt) + " = ?" +
		" WHERE " + quote(colID) + " = ? AND " + quote(colDeletedAt) + " IS NULL"
}

func restoreSQL(table string) string {
	return "UPDATE " + quote(table) + " SET " + quote(colDeletedAt) + " = NULL, " + quote(colUpdatedAt) + " = ?" +
		" WHERE " + quote(colID) + " = ?"
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dbValue flattens values the driver cannot bind directly (maps, slices from JSON bodies).
func dbValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case json.RawMessage:
		return string(t), nil
	}
	return v, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC()
	}
	return v
}
