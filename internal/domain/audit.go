package domain

import (
	"encoding/json"
	"time"
)

// Process is the kind of mutation an audit entry records.
type Process string

const (
	ProcessCreate Process = "create"
	ProcessUpdate Process = "update"
	ProcessDelete Process = "delete"
)

// ActorKind is the category of identity performing a request.
type ActorKind string

const (
	ActorUser            ActorKind = "user"
	ActorAdmin           ActorKind = "admin"
	ActorSolutionPartner ActorKind = "solution_partner"
	ActorSalesPartner    ActorKind = "sale_partner"
)

// NormalizeActorKind maps unknown or empty kinds to ActorUser.
func NormalizeActorKind(k ActorKind) ActorKind {
	switch k {
	case ActorUser, ActorAdmin, ActorSolutionPartner, ActorSalesPartner:
		return k
	}
	return ActorUser
}

type Actor struct {
	ID   int64
	Kind ActorKind
}

// AuditEntry is an append-only record of one successful mutation.
// Content is the JSON pre-image for update/delete and nil for create.
type AuditEntry struct {
	ID        int64           `json:"id"`
	ActorID   int64           `json:"actor_id"`
	ActorKind ActorKind       `json:"actor_type"`
	Process   Process         `json:"process"`
	TableName string          `json:"table_name"`
	TargetID  int64           `json:"target_id"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

type AuditQuery struct {
	TableName string
	TargetID  *int64
	Limit     int
	Offset    int
}

type AuditPage struct {
	Items []AuditEntry
	Total int64
}
