// Package handlers implements the HTTP handlers of the console API. Every
// logged-in session gets its own set of page controllers over the shared
// resource store, so selections and edit buffers never leak between
// browsers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/agentoven/agentoven/console/internal/api/middleware"
	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/sessions"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Deps  console.Deps
	Gate  *sessions.Gate
	Board *console.Dashboard
	// Polling is set when Board is refreshed in the background; dashboard
	// reads then serve the polled data instead of loading.
	Polling bool

	mu       sync.Mutex
	consoles map[string]*console.Console // key: session token
}

// New creates the handlers. The dashboard is shared by all sessions.
func New(d console.Deps, gate *sessions.Gate) *Handlers {
	return &Handlers{
		Deps:     d,
		Gate:     gate,
		Board:    console.NewDashboard(d),
		consoles: make(map[string]*console.Console),
	}
}

// pages returns the page controllers of the caller's session, creating
// them on first use.
func (h *Handlers) pages(r *http.Request) *console.Console {
	s, _ := middleware.SessionFrom(r.Context())

	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.consoles[s.Token]
	if !ok {
		c = console.New(h.Deps)
		h.consoles[s.Token] = c
	}
	return c
}

// Drop closes and forgets the session's page controllers.
func (h *Handlers) Drop(token string) {
	h.mu.Lock()
	c, ok := h.consoles[token]
	delete(h.consoles, token)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Close closes every session's pages and the shared dashboard.
func (h *Handlers) Close() {
	h.mu.Lock()
	all := h.consoles
	h.consoles = make(map[string]*console.Console)
	h.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
	h.Board.Close()
}

// ══════════════════════════════════════════════════════════════
// ── Session Handlers ─────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := h.Gate.Login(req.Email)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Str("email", s.Email).Msg("Console session opened")
	respondJSON(w, http.StatusCreated, s)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r)
	if err := h.Gate.Logout(token); err != nil {
		respondError(w, http.StatusUnauthorized, "login required")
		return
	}
	h.Drop(token)
	http.SetCookie(w, &http.Cookie{Name: middleware.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	respondJSON(w, http.StatusOK, s)
}

// ══════════════════════════════════════════════════════════════
// ── Dashboard Handlers ───────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.Polling || r.URL.Query().Get("refresh") == "true" {
		if err := h.Board.Load(r.Context()); err != nil {
			respondErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, h.Board.View())
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps a page or mutation error to its status and message.
func respondErr(w http.ResponseWriter, err error) {
	status := mutation.StatusCode(err)
	switch {
	case errors.Is(err, console.ErrClosed), errors.Is(err, console.ErrNoEdit):
		status = http.StatusConflict
	case errors.Is(err, console.ErrNoSelection):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		status = 499
	}
	respondError(w, status, mutation.Message(err))
}

func decodeForm(r *http.Request) (mutation.Form, error) {
	form := mutation.Form{}
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		return nil, err
	}
	return form, nil
}

// confirmed approves destructive mutations when the caller passed
// ?confirm=true.
func confirmed(r *http.Request) context.Context {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); ok {
		return mutation.Approve(r.Context())
	}
	return r.Context()
}
