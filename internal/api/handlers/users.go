package handlers

import (
	"net/http"

	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/go-chi/chi/v5"
)

// reviewJSON is the body returned for an open review.
type reviewJSON struct {
	Changes   []review.Change `json:"changes"`
	Status    string          `json:"status"`
	CanCommit bool            `json:"can_commit"`
}

func newReviewJSON[T any](g *review.Gate[T]) reviewJSON {
	return reviewJSON{Changes: g.Changes(), Status: g.Status(), CanCommit: g.CanCommit()}
}

// ══════════════════════════════════════════════════════════════
// ── User Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// ListUsers loads users and roles and returns the filtered, sorted list.
// Query: q (search text), sort (alpha | by-group).
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Users
	if err := p.Load(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	q := r.URL.Query()
	p.Search(q.Get("q"), view.ParseSortMode(q.Get("sort")))
	respondJSON(w, http.StatusOK, p.List())
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.pages(r).Users.Create(r.Context(), form); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GetUser selects the user and returns it with its role partition.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Users
	if err := h.usersLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	u, err := p.Select(chi.URLParam(r, "username"))
	if err != nil {
		respondErr(w, err)
		return
	}
	roles, err := p.Roles()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		User  models.User                   `json:"user"`
		Roles view.Partitioned[models.Role] `json:"roles"`
		Busy  bool                          `json:"busy"`
	}{u, roles, p.Busy()})
}

// ReviewUser opens a review of the posted edit against the user.
func (h *Handlers) ReviewUser(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Users
	if err := h.usersLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.Select(chi.URLParam(r, "username")); err != nil {
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

// ConfirmUser commits the open review.
func (h *Handlers) ConfirmUser(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Users
	if err := p.CommitEdit(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	u, err := p.Selected()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *Handlers) CancelUserReview(w http.ResponseWriter, r *http.Request) {
	h.pages(r).Users.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser needs ?confirm=true.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Users
	if err := h.usersLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if err := p.Delete(confirmed(r), chi.URLParam(r, "username")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AssignUserRole(w http.ResponseWriter, r *http.Request) {
	h.setUserRole(w, r, true)
}

func (h *Handlers) RemoveUserRole(w http.ResponseWriter, r *http.Request) {
	h.setUserRole(w, r, false)
}

func (h *Handlers) setUserRole(w http.ResponseWriter, r *http.Request, assign bool) {
	p := h.pages(r).Users
	if err := h.usersLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.Select(chi.URLParam(r, "username")); err != nil {
		respondErr(w, err)
		return
	}
	role := chi.URLParam(r, "role")
	var err error
	if assign {
		err = p.AssignRole(r.Context(), role)
	} else {
		err = p.RemoveRole(r.Context(), role)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	roles, err := p.Roles()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

// usersLoaded loads the users page unless its collections are cached.
func (h *Handlers) usersLoaded(r *http.Request, p *console.Users) error {
	s := h.Deps.Store
	if s.Users.Loaded() && s.Roles.Loaded() {
		return nil
	}
	return p.Load(r.Context())
}
