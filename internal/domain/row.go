package domain

import (
	"strconv"
	"strings"
)

// Row is one record read back from a resource table, keyed by column name.
// Values are the driver's native types with []byte normalized to string.
type Row map[string]any

// Fields is a partial set of column values for create/update.
type Fields map[string]any

// Filter is an equality filter over named columns; a nil value matches NULL
// and an In value matches any of its members.
type Filter map[string]any

// In matches a column against a set of values. An empty In matches nothing.
type In []any

type ListQuery struct {
	Filter  Filter
	Search  string
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

type Page struct {
	Rows  []Row
	Total int64
}

func (r Row) ID() int64 {
	id, _ := ToInt64(r["id"])
	return id
}

// Int64 returns the column as int64 when it holds any integer-ish value.
func (r Row) Int64(col string) (int64, bool) { return ToInt64(r[col]) }

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Merge returns a copy of r with every key of other applied on top.
func (r Row) Merge(other Row) Row {
	out := make(Row, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ToInt64 converts ids coming from drivers (int64), JSON (float64) or URLs (string).
func ToInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case []byte:
		return ToInt64(string(t))
	}
	return 0, false
}
