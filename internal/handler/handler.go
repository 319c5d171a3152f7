// Package handler contains the chi HTTP handlers of the live widget server:
// opening sessions, streaming patches, receiving DOM events and closing.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/widget"
)

// BackendFunc returns the website client for one browser, identified by its
// website session cookie ("" for anonymous visitors).
type BackendFunc func(sessionCookie string) widget.Backend

// LiveHandler serves the live session API.
type LiveHandler struct {
	registry   *live.Registry
	tokens     *live.Tokens
	backendFor BackendFunc
	deps       widget.Deps
	cookieName string
	keepAlive  time.Duration
}

// NewLiveHandler constructs a LiveHandler. deps.Backend is ignored; each
// session gets its own client from backendFor.
func NewLiveHandler(reg *live.Registry, tokens *live.Tokens, backendFor BackendFunc, deps widget.Deps, cookieName string) *LiveHandler {
	if deps.Publisher == nil {
		deps.Publisher = telemetry.Nop{}
	}
	return &LiveHandler{
		registry:   reg,
		tokens:     tokens,
		backendFor: backendFor,
		deps:       deps,
		cookieName: cookieName,
		keepAlive:  15 * time.Second,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// sessionToken reads the token from the Authorization header, or from the
// token query parameter for EventSource streams that cannot set headers.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// session resolves the {id} session of the request and checks its token.
// It writes the error response itself and returns nil on failure.
func (h *LiveHandler) session(w http.ResponseWriter, r *http.Request) *live.Session {
	id := chi.URLParam(r, "id")
	if err := h.tokens.Verify(sessionToken(r), id); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing session token")
		return nil
	}
	s, err := h.registry.Get(id)
	if err != nil {
		if errors.Is(err, live.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil
	}
	return s
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// OpenSession handles POST /live/sessions
// Mounts the widget matching the page descriptor and returns the session id
// with the token required by every other session call.
func (h *LiveHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var desc model.PageDescriptor
	if err := decodeJSON(r, &desc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var cookie string
	if c, err := r.Cookie(h.cookieName); err == nil {
		cookie = c.Value
	}
	deps := h.deps
	deps.Backend = h.backendFor(cookie)

	s, err := h.registry.Open(func(id string, loop *live.Loop, page live.Page) (live.Widget, error) {
		return widget.Mount(id, desc, deps, loop, page)
	})
	if err != nil {
		if errors.Is(err, widget.ErrUnknownPage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to open session")
		return
	}

	token, exp, err := h.tokens.Issue(s.ID)
	if err != nil {
		_ = h.registry.Close(s.ID)
		writeError(w, http.StatusInternalServerError, "failed to issue session token")
		return
	}

	h.deps.Publisher.Publish(telemetry.Event{
		Kind:    telemetry.KindSessionOpened,
		Session: s.ID,
		Page:    desc.Page,
		Attrs:   map[string]any{"authenticated": desc.Authenticated},
	})
	writeJSON(w, http.StatusCreated, model.OpenSessionResponse{ID: s.ID, Token: token, Expires: exp})
}

// PostEvent handles POST /live/sessions/{id}/events
// Queues one DOM event for the session's widget.
func (h *LiveHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var ev model.Event
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if ev.Type == "" {
		writeError(w, http.StatusBadRequest, "event type is required")
		return
	}
	if !s.Dispatch(ev) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CloseSession handles DELETE /live/sessions/{id}
func (h *LiveHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if err := h.registry.Close(s.ID); err != nil && !errors.Is(err, live.ErrSessionNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to close session")
		return
	}
	h.deps.Publisher.Publish(telemetry.Event{Kind: telemetry.KindSessionClosed, Session: s.ID})
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the session API on r.
func (h *LiveHandler) Routes(r chi.Router) {
	r.Post("/", h.OpenSession)
	r.Get("/{id}/patches", h.StreamPatches)
	r.Post("/{id}/events", h.PostEvent)
	r.Delete("/{id}", h.CloseSession)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
