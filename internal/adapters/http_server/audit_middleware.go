package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"travel_admin/internal/app"
	"travel_admin/internal/domain"
)

const maxBody = 1 << 20

// Audit records create/update/delete requests on store. idParam names the
// route parameter holding the row id; pass "" when the route id does not
// address a row of store, the handler then sets the target itself.
// Must be attached with chi's With so route parameters are resolved.
func Audit(rec *app.AuditRecorder, store domain.ResourceStore, idParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			process, ok := app.ProcessForMethod(r.Method)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var routeID *int64
			if idParam != "" {
				if id, ok := parseID(chi.URLParam(r, idParam)); ok {
					routeID = &id
				}
			}
			c := rec.Begin(r.Context(), store, process, routeID, peekBodyID(r))

			// Under AuditOutcome the entry is decided on the status the client
			// actually received, outside the timeout buffer.
			if slot, ok := r.Context().Value(slotKey{}).(*auditSlot); ok {
				slot.hold(rec, c)
				next.ServeHTTP(w, r.WithContext(app.WithAuditCapture(r.Context(), c)))
				return
			}

			status := http.StatusInternalServerError
			defer func() { rec.Finish(c, status) }()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(app.WithAuditCapture(r.Context(), c)))
			sw.Flush()
			status = sw.Status()
			if r.Context().Err() != nil {
				status = http.StatusServiceUnavailable
			}
		})
	}
}

type slotKey struct{}

// auditSlot carries a capture from the route-level Audit middleware out to
// AuditOutcome. A capture handed over after the outcome is settled is dropped.
type auditSlot struct {
	mu      sync.Mutex
	rec     *app.AuditRecorder
	c       *app.AuditCapture
	settled bool
}

func (s *auditSlot) hold(rec *app.AuditRecorder, c *app.AuditCapture) {
	s.mu.Lock()
	if !s.settled {
		s.rec, s.c = rec, c
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	rec.Finish(c, http.StatusServiceUnavailable)
}

func (s *auditSlot) settle(status int) {
	s.mu.Lock()
	rec, c := s.rec, s.c
	s.settled = true
	s.mu.Unlock()
	if c != nil {
		rec.Finish(c, status)
	}
}

// AuditOutcome finishes captures started by Audit once the response has left
// the wrapped chain. Registered outside Timeout, a deadline that turns the
// response into a 503 also suppresses the entry.
func AuditOutcome(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := &auditSlot{}
		status := http.StatusInternalServerError
		defer func() { slot.settle(status) }()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), slotKey{}, slot)))
		sw.Flush()
		status = sw.Status()
	})
}

// peekBodyID reads a top-level "id" from a JSON body and rewinds the body.
func peekBodyID(r *http.Request) *int64 {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil || len(b) == 0 {
		return nil
	}
	var body struct {
		ID any `json:"id"`
	}
	if json.Unmarshal(b, &body) != nil {
		return nil
	}
	id, ok := domain.ToInt64(body.ID)
	if !ok || id <= 0 {
		return nil
	}
	return &id
}
