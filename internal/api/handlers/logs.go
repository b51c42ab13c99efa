package handlers

import (
	"encoding/json"
	"net/http"
)

// ══════════════════════════════════════════════════════════════
// ── Log Handlers ─────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// GetLogSelectors loads the agent and user selector options.
func (h *Handlers) GetLogSelectors(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Logs
	if err := p.Load(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	agent, user := p.Selection()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agent_codes":    p.AgentCodes(),
		"users":          p.Users(),
		"selected_agent": agent,
		"selected_user":  user,
	})
}

// SelectLogs changes the agent and/or user filter. Fields left out of the
// body keep their current value.
func (h *Handlers) SelectLogs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent *string `json:"agent"`
		User  *string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p := h.pages(r).Logs
	if !h.Deps.Store.AgentCodes.Loaded() {
		if err := p.Load(r.Context()); err != nil {
			respondErr(w, err)
			return
		}
	}
	if req.Agent != nil {
		if err := p.SelectAgent(r.Context(), *req.Agent); err != nil {
			respondErr(w, err)
			return
		}
	}
	if req.User != nil {
		if err := p.SelectUser(r.Context(), *req.User); err != nil {
			respondErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, p.Page())
}

func (h *Handlers) GetLogPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.pages(r).Logs.Page())
}

func (h *Handlers) MoreLogs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.pages(r).Logs.More())
}

func (h *Handlers) LessLogs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.pages(r).Logs.Less())
}
