package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"travel_admin/internal/app"
	"travel_admin/internal/domain"
)

type Handlers struct {
	Resources      *app.ResourceService
	Audit          *app.AuditRecorder
	Permissions    *app.PermissionService
	PermissionRows domain.ResourceStore
	Registry       []app.Resource
}

var validate = validator.New()

const (
	defaultLimit = 25
	maxLimit     = 100
)

type listParams struct {
	Page   int    `json:"page" validate:"min=1"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Search string `json:"search" validate:"max=100"`
	Sort   string `json:"sort" validate:"omitempty,max=64"`
}

type auditParams struct {
	Table    string `json:"table" validate:"omitempty,max=64"`
	TargetID int64  `json:"target_id" validate:"omitempty,min=1"`
	Page     int    `json:"page" validate:"min=1"`
	Limit    int    `json:"limit" validate:"min=1,max=100"`
}

type permissionBody struct {
	Name    string `json:"name" validate:"required,max=191"`
	Granted *bool  `json:"granted" validate:"required"`
}

// checkStruct answers 422 with per-field messages when v is invalid.
func checkStruct(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeFail(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "min":
			fields[name] = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		case "max":
			fields[name] = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s failed %s", name, fe.Tag())
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, envelope{Success: false, Message: "validation failed", Errors: fields})
	return false
}

// queryInt returns def for an absent parameter and 0 for a malformed one so
// validation rejects it.
func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func decodeFields(w http.ResponseWriter, r *http.Request) (domain.Fields, bool) {
	var in domain.Fields
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&in)
	switch {
	case errors.Is(err, io.EOF):
		writeFail(w, http.StatusBadRequest, "request body required")
		return nil, false
	case err != nil:
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	case len(in) == 0:
		writeFail(w, http.StatusBadRequest, "no fields to write")
		return nil, false
	}
	return in, true
}

func routeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeFail(w, http.StatusBadRequest, "id must be a positive integer")
	}
	return id, ok
}

// ---- resources ----

func (h *Handlers) list(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := listParams{
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", defaultLimit),
			Search: r.URL.Query().Get("search"),
			Sort:   r.URL.Query().Get("sort"),
		}
		if !checkStruct(w, p) {
			return
		}
		q := domain.ListQuery{Search: p.Search, Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
		if p.Sort != "" {
			q.OrderBy, q.Desc = strings.TrimPrefix(p.Sort, "-"), strings.HasPrefix(p.Sort, "-")
		}
		page, err := h.Resources.List(r.Context(), res, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rows := page.Rows
		if rows == nil {
			rows = []domain.Row{}
		}
		writePage(w, rows, page.Total, p.Page, p.Limit)
	}
}

func (h *Handlers) get(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeID(w, r)
		if !ok {
			return
		}
		row, err := h.Resources.Get(r.Context(), res, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, "", row)
	}
}

func (h *Handlers) create(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeFields(w, r)
		if !ok {
			return
		}
		row, err := h.Resources.Create(r.Context(), res, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		app.SetAuditTarget(r.Context(), row.ID())
		writeOK(w, http.StatusCreated, "created", row)
	}
}

func (h *Handlers) update(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeID(w, r)
		if !ok {
			return
		}
		in, ok := decodeFields(w, r)
		if !ok {
			return
		}
		row, err := h.Resources.Update(r.Context(), res, id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, "updated", row)
	}
}

func (h *Handlers) remove(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeID(w, r)
		if !ok {
			return
		}
		if err := h.Resources.Delete(r.Context(), res, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, "deleted", nil)
	}
}

// ---- translations ----

func (h *Handlers) translations(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeID(w, r)
		if !ok {
			return
		}
		if _, err := res.Store.First(r.Context(), domain.Filter{"id": id}); err != nil {
			writeError(w, r, err)
			return
		}
		rows, err := h.Resources.Translations().All(r.Context(), *res.Pivot, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rows == nil {
			rows = []domain.Row{}
		}
		writeOK(w, http.StatusOK, "", rows)
	}
}

func (h *Handlers) removeTranslation(res app.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeID(w, r)
		if !ok {
			return
		}
		tr := h.Resources.Translations()
		lang := chi.URLParam(r, "lang")
		row, err := tr.Get(r.Context(), *res.Pivot, id, lang)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if c := app.AuditCaptureFromContext(r.Context()); c != nil {
			c.SetPreImage(row)
			c.SetTarget(row.ID())
		}
		if err := tr.Delete(r.Context(), *res.Pivot, id, lang); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, "deleted", nil)
	}
}

// ---- audit log ----

func (h *Handlers) listAudit(w http.ResponseWriter, r *http.Request) {
	p := auditParams{
		Table: r.URL.Query().Get("table"),
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", defaultLimit),
	}
	if s := r.URL.Query().Get("target_id"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			n = -1
		}
		p.TargetID = n
	}
	if !checkStruct(w, p) {
		return
	}
	q := domain.AuditQuery{TableName: p.Table, Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
	if p.TargetID > 0 {
		q.TargetID = &p.TargetID
	}
	page, err := h.Audit.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []domain.AuditEntry{}
	}
	writePage(w, items, page.Total, p.Page, p.Limit)
}

// ---- permissions ----

func permissionTarget(w http.ResponseWriter, r *http.Request) (app.PermissionTarget, bool) {
	id, ok := routeID(w, r)
	if !ok {
		return nil, false
	}
	t, err := app.ParseTarget(chi.URLParam(r, "target"), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return t, true
}

func (h *Handlers) listPermissions(w http.ResponseWriter, r *http.Request) {
	t, ok := permissionTarget(w, r)
	if !ok {
		return
	}
	ps, err := h.Permissions.ListFor(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", ps)
}

func (h *Handlers) putPermission(w http.ResponseWriter, r *http.Request) {
	t, ok := permissionTarget(w, r)
	if !ok {
		return
	}
	var body permissionBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !checkStruct(w, body) {
		return
	}

	if c := app.AuditCaptureFromContext(r.Context()); c != nil {
		before, err := h.Permissions.ListFor(r.Context(), t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		c.SetPreImage(domain.Row{
			"target_type": string(t.Kind()),
			"target_id":   t.TargetID(),
			"permissions": before,
		})
		c.SetTarget(t.TargetID())
	}

	p, err := h.Permissions.CreateOrUpdate(r.Context(), t, body.Name, *body.Granted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "updated", p)
}
