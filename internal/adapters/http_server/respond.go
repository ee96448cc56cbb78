package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"travel_admin/internal/domain"
)

// envelope is the body of every /v1 response. success and message are always
// present; paging fields are set on list responses only.
type envelope struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Data        any               `json:"data,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Total       *int64            `json:"total,omitempty"`
	TotalPages  *int64            `json:"totalPages,omitempty"`
	CurrentPage *int              `json:"currentPage,omitempty"`
	Limit       *int              `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeOK(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

func writePage(w http.ResponseWriter, data any, total int64, page, limit int) {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        data,
		Total:       &total,
		TotalPages:  &pages,
		CurrentPage: &page,
		Limit:       &limit,
	})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// writeError maps domain errors to statuses. Internal failures are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Str("method", r.Method).Msg("request failed")
		writeFail(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
