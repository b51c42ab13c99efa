package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/go-chi/chi/v5"
)

// ══════════════════════════════════════════════════════════════
// ── Tool Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// ListTools loads agents and the tool registry.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Tools
	if err := p.Load(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents":      p.Agents(),
		"definitions": p.Registry(),
	})
}

func (h *Handlers) RegisterTool(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p := h.pages(r).Tools
	if err := p.Register(r.Context(), form); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p.Registry())
}

// GetAgentTools selects the agent and returns every registry tool marked
// active or not for it.
func (h *Handlers) GetAgentTools(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Tools
	if err := h.selectToolAgent(r, p); err != nil {
		respondErr(w, err)
		return
	}
	h.respondToolStates(w, p)
}

// ToggleTool flips one tool for the agent.
func (h *Handlers) ToggleTool(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Tools
	if err := h.selectToolAgent(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.Toggle(r.Context(), chi.URLParam(r, "toolId")); err != nil {
		respondErr(w, err)
		return
	}
	h.respondToolStates(w, p)
}

func (h *Handlers) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p := h.pages(r).Tools
	if err := h.selectToolAgent(r, p); err != nil {
		respondErr(w, err)
		return
	}
	out, err := p.Execute(r.Context(), payload)
	h.respondRaw(w, out, err)
}

func (h *Handlers) DiscoverTools(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Tools
	if err := h.selectToolAgent(r, p); err != nil {
		respondErr(w, err)
		return
	}
	out, err := p.Discover(r.Context())
	h.respondRaw(w, out, err)
}

func (h *Handlers) InvokeAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input interface{} `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p := h.pages(r).Tools
	if err := h.selectToolAgent(r, p); err != nil {
		respondErr(w, err)
		return
	}
	out, err := p.Invoke(r.Context(), req.Input)
	h.respondRaw(w, out, err)
}

// selectToolAgent makes the path's agent the selected one, fetching its
// enabled tools when the selection changes.
func (h *Handlers) selectToolAgent(r *http.Request, p *console.Tools) error {
	code := chi.URLParam(r, "agentCode")
	if s := h.Deps.Store; !s.Agents.Loaded() || !s.Tools.Loaded() {
		if err := p.Load(r.Context()); err != nil {
			return err
		}
	}
	if current, err := p.SelectedAgent(); err == nil && current == code {
		if _, ok := h.Deps.Store.AgentTools.Members(code); ok {
			return nil
		}
	}
	return p.SelectAgent(r.Context(), code)
}

func (h *Handlers) respondToolStates(w http.ResponseWriter, p *console.Tools) {
	states, err := p.List()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tools": states,
		"busy":  p.Busy(),
	})
}

func (h *Handlers) respondRaw(w http.ResponseWriter, out json.RawMessage, err error) {
	if err != nil {
		respondErr(w, err)
		return
	}
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	respondJSON(w, http.StatusOK, out)
}
