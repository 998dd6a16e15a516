package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/store"
	"github.com/tbxark/hrdesk/ticket"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func statusOf(err error) int {
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrLocked), errors.Is(err, form.ErrSubmitting):
		return http.StatusConflict
	case errors.Is(err, agent.ErrSessionNotFound),
		errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, ticket.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, patch.ErrInvalidOperation),
		errors.Is(err, form.ErrUnknownField),
		errors.Is(err, ticket.ErrInvalidInput),
		errors.Is(err, agent.ErrEmptyInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes it as JSON. Unexpected
// errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Errors
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		body.Error = "Internal error - please try again later"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		http.Error(w, "Internal error - please try again later", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
