package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"travel_admin/internal/domain"
)

const insertAuditSQL = `
INSERT INTO audit_logs
  (actor_id, actor_type, process, table_name, target_id, content, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const selectAuditCols = `SELECT id, actor_id, actor_type, process, table_name, target_id, content, created_at FROM audit_logs`

// AuditRepo is append-only: it exposes no update or delete.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Insert(ctx context.Context, e domain.AuditEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var content any
	if len(e.Content) > 0 {
		content = string(e.Content)
	}
	_, err := r.db.ExecContext(ctx, insertAuditSQL,
		e.ActorID,
		string(e.ActorKind),
		string(e.Process),
		e.TableName,
		e.TargetID,
		content,
		created,
	)
	return classify(err)
}

func (r *AuditRepo) List(ctx context.Context, q domain.AuditQuery) (domain.AuditPage, error) {
	var conds []string
	var args []any
	if q.TableName != "" {
		conds = append(conds, "table_name = ?")
		args = append(args, q.TableName)
	}
	if q.TargetID != nil {
		conds = append(conds, "target_id = ?")
		args = append(args, *q.TargetID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return domain.AuditPage{}, classify(err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, selectAuditCols+where+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return domain.AuditPage{}, classify(err)
	}
	defer rows.Close()

	out := domain.AuditPage{Items: []domain.AuditEntry{}, Total: total}
	for rows.Next() {
		var (
			e         domain.AuditEntry
			actorKind string
			process   string
			content   sql.NullString
			createdAt any
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &actorKind, &process, &e.TableName, &e.TargetID, &content, &createdAt); err != nil {
			return domain.AuditPage{}, classify(err)
		}
		e.ActorKind = domain.ActorKind(actorKind)
		e.Process = domain.Process(process)
		if content.Valid {
			e.Content = json.RawMessage(content.String)
		}
		e.CreatedAt = asTime(createdAt)
		out.Items = append(out.Items, e)
	}
	if err := rows.Err(); err != nil {
		return domain.AuditPage{}, classify(err)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// asTime accepts DATETIME values as returned by either MySQL (parseTime=true)
// or drivers that hand back text.
func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case []byte:
		return asTime(string(t))
	case string:
		for _, l := range timeLayouts {
			if ts, err := time.Parse(l, t); err == nil {
				return ts.UTC()
			}
		}
	}
	return time.Time{}
}
