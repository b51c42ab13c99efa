package handlers

import (
	"net/http"

	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/go-chi/chi/v5"
)

// ══════════════════════════════════════════════════════════════
// ── Agent Handlers ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// ListAgents loads the agents and returns those matching ?q=.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Agents
	if err := p.Load(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	p.Search(r.URL.Query().Get("q"))
	respondJSON(w, http.StatusOK, p.List())
}

// NewAgentForm returns the create form with its defaults filled in.
func (h *Handlers) NewAgentForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, mutation.NewAgentForm())
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.pages(r).Agents.Create(r.Context(), form); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Agents
	if err := h.agentsLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	a, err := p.Select(chi.URLParam(r, "agentCode"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// ReviewAgent opens a review of the posted configuration.
func (h *Handlers) ReviewAgent(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Agents
	if err := h.agentsLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.Select(chi.URLParam(r, "agentCode")); err != nil {
		respondErr(w, err)
		return
	}
	form, err := decodeForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	g, err := p.BeginEdit(form)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newReviewJSON(g))
}

func (h *Handlers) ConfirmAgent(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Agents
	if err := p.CommitEdit(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	a, err := p.Selected()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) CancelAgentReview(w http.ResponseWriter, r *http.Request) {
	h.pages(r).Agents.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAgent needs ?confirm=true.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Agents
	if err := h.agentsLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if err := p.Delete(confirmed(r), chi.URLParam(r, "agentCode")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) agentsLoaded(r *http.Request, p *console.Agents) error {
	if h.Deps.Store.Agents.Loaded() {
		return nil
	}
	return p.Load(r.Context())
}
