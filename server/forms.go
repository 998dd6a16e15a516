package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/render"
	"github.com/tbxark/hrdesk/store"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

type formResponse struct {
	FormID  string            `json:"formId"`
	Locked  bool              `json:"locked"`
	Values  types.Values      `json:"values,omitempty"`
	Errors  types.FieldErrors `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
	HTML    string            `json:"html,omitempty"`
	Output  *ticket.Result    `json:"output,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) renderOptions(r *http.Request, id string) render.Options {
	q := r.URL.Query()
	variant := q.Get("variant")
	if variant == "" {
		variant = s.variant
	}
	return render.Options{
		Theme:   q.Get("theme"),
		Variant: variant,
		Action:  "/forms/" + id,
	}
}

func (s *Server) renderSession(r *http.Request, sess *agent.Session, validate bool) (string, error) {
	engine := sess.Form()
	if validate {
		engine.Validate()
	}
	var buf bytes.Buffer
	if err := s.renderer.RenderForm(&buf, engine, s.renderOptions(r, sess.ID)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeHTML(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

// session loads a form session. Once the session has expired, a submitted form
// is rebuilt locked from the message that showed it.
func (s *Server) session(ctx context.Context, id string) (*agent.Session, error) {
	sess, err := s.flow.Session(ctx, id)
	if !errors.Is(err, agent.ErrSessionNotFound) {
		return sess, err
	}
	msg, mErr := s.messages.Get(ctx, id)
	switch {
	case errors.Is(mErr, store.ErrMessageNotFound):
		return nil, err
	case mErr != nil:
		return nil, mErr
	}
	if answered, ok := answeredForm(msg); ok {
		return answered, nil
	}
	return nil, err
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	html, err := s.renderSession(r, sess, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, formResponse{FormID: sess.ID, Locked: sess.Locked(), Values: sess.Values, HTML: html, Output: sess.Output})
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// submittedValues reads one value per field from a url-encoded body. An absent
// checkbox is false.
func submittedValues(r *http.Request, spec types.FormSpec) types.Values {
	values := make(types.Values, len(spec.Fields))
	for _, f := range spec.Fields {
		if f.Type == types.FieldCheckbox {
			v := r.PostForm.Get(f.Name)
			values[f.Name] = r.PostForm.Has(f.Name) && v != "false" && v != "off"
			continue
		}
		values[f.Name] = r.PostForm.Get(f.Name)
	}
	return values
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess.Locked() {
		writeError(w, form.ErrLocked)
		return
	}
	ops := patch.Replace(submittedValues(r, sess.Spec))

	res, err := s.flow.SubmitForm(ctx, id, ops)
	if err != nil {
		s.metrics.formSubmissions.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusUnprocessableEntity
		s.metrics.formSubmissions.WithLabelValues("invalid").Inc()
	} else {
		s.metrics.formSubmissions.WithLabelValues("ok").Inc()
		s.metrics.ticketsCreated.Inc()
		s.recordSubmission(ctx, res)
	}

	html, err := s.renderSession(r, res.Session, len(res.Errors) > 0)
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, status, formResponse{
			FormID:  id,
			Locked:  res.Session.Locked(),
			Values:  res.Session.Values,
			Errors:  res.Errors,
			Message: res.Message,
			HTML:    html,
			Output:  res.Output,
		})
		return
	}
	writeHTML(w, status, html)
}

// recordSubmission marks the form tool part as answered with the submitted
// values and stores the confirmation reply.
func (s *Server) recordSubmission(ctx context.Context, res *agent.SubmitResult) {
	sess := res.Session
	msg, err := s.messages.Get(ctx, sess.ID)
	switch {
	case err == nil:
		parts := decodeParts(msg.Parts)
		for i := range parts {
			if parts[i].Type == partFormTool && parts[i].ToolCallID == sess.ID {
				parts[i].State = stateOutputAvailable
				parts[i].Output = sess.Values
			}
		}
		if msg.Parts, err = encodeParts(parts...); err == nil {
			err = s.messages.Upsert(ctx, msg)
		}
		if err != nil {
			slog.Warn("update form message", "form", sess.ID, "error", err)
		}
	default:
		slog.Warn("form message unavailable", "form", sess.ID, "error", err)
	}

	if res.Message == "" {
		return
	}
	raw, err := encodeParts(part{Type: partText, Text: res.Message})
	if err == nil {
		err = s.messages.Upsert(ctx, &store.Message{
			ID:             store.NewMessageID(),
			Role:           string(schema.Assistant),
			Parts:          raw,
			ConversationID: sess.ConversationID,
		})
	}
	if err != nil {
		slog.Warn("persist confirmation message", "form", sess.ID, "error", err)
	}
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	var ops []patch.Operation
	if err := decodeBody(r, &ops); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	sess, err := s.flow.EditForm(r.Context(), id, ops)
	if errors.Is(err, agent.ErrSessionNotFound) {
		if archived, aErr := s.session(r.Context(), id); aErr == nil && archived.Locked() {
			err = form.ErrLocked
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formResponse{FormID: sess.ID, Locked: sess.Locked(), Values: sess.Values})
}
