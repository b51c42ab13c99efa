package handlers

import (
	"net/http"

	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/go-chi/chi/v5"
)

// ══════════════════════════════════════════════════════════════
// ── Access Handlers (roles, permissions, user roles) ─────────
// ══════════════════════════════════════════════════════════════

// GetAccess loads roles, permissions and users under the configured join
// policy and returns the role and permission registries.
func (h *Handlers) GetAccess(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Access
	if err := p.Load(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roles":       p.Roles(),
		"permissions": p.Permissions(),
	})
}

type roleAccessJSON struct {
	Role        models.Role                         `json:"role"`
	Permissions view.Partitioned[models.Permission] `json:"permissions"`
	Busy        bool                                `json:"busy"`
}

func roleAccess(p *console.Access) (roleAccessJSON, error) {
	role, err := p.SelectedRole()
	if err != nil {
		return roleAccessJSON{}, err
	}
	perms, err := p.RolePermissions()
	if err != nil {
		return roleAccessJSON{}, err
	}
	return roleAccessJSON{Role: role, Permissions: perms, Busy: p.RoleBusy()}, nil
}

// GetRole fetches the role fresh and returns its permission partition.
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Access
	if err := h.accessLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.SelectRole(r.Context(), chi.URLParam(r, "role")); err != nil {
		respondErr(w, err)
		return
	}
	out, err := roleAccess(p)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) AssignPermission(w http.ResponseWriter, r *http.Request) {
	h.setRolePermission(w, r, true)
}

func (h *Handlers) RemovePermission(w http.ResponseWriter, r *http.Request) {
	h.setRolePermission(w, r, false)
}

func (h *Handlers) setRolePermission(w http.ResponseWriter, r *http.Request, assign bool) {
	p := h.pages(r).Access
	if err := h.accessLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	name := chi.URLParam(r, "role")
	if role, err := p.SelectedRole(); err != nil || role.Name != name {
		if _, err := p.SelectRole(r.Context(), name); err != nil {
			respondErr(w, err)
			return
		}
	}

	perm := chi.URLParam(r, "perm")
	var err error
	if assign {
		err = p.AssignPermission(r.Context(), perm)
	} else {
		err = p.RemovePermission(r.Context(), perm)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	out, err := roleAccess(p)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GetUserRoles returns the role partition of a user.
func (h *Handlers) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	p := h.pages(r).Access
	if err := h.accessLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.SelectUser(chi.URLParam(r, "username")); err != nil {
		respondErr(w, err)
		return
	}
	roles, err := p.UserRoles()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

func (h *Handlers) AssignAccessRole(w http.ResponseWriter, r *http.Request) {
	h.setAccessRole(w, r, true)
}

func (h *Handlers) RemoveAccessRole(w http.ResponseWriter, r *http.Request) {
	h.setAccessRole(w, r, false)
}

func (h *Handlers) setAccessRole(w http.ResponseWriter, r *http.Request, assign bool) {
	p := h.pages(r).Access
	if err := h.accessLoaded(r, p); err != nil {
		respondErr(w, err)
		return
	}
	if _, err := p.SelectUser(chi.URLParam(r, "username")); err != nil {
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
	roles, err := p.UserRoles()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

func (h *Handlers) CreatePermission(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p := h.pages(r).Access
	if err := p.CreatePermission(r.Context(), models.String(form["name"]), models.String(form["description"])); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p.Permissions())
}

// DeletePermission needs ?confirm=true.
func (h *Handlers) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.pages(r).Access.DeletePermission(confirmed(r), chi.URLParam(r, "name")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) accessLoaded(r *http.Request, p *console.Access) error {
	s := h.Deps.Store
	if s.Roles.Loaded() && s.Permissions.Loaded() && s.Users.Loaded() {
		return nil
	}
	return p.Load(r.Context())
}
