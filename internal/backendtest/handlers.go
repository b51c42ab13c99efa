package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// ── Seeding & reading state ──────────────────────────────────

func (b *Backend) SeedUser(u models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == "" {
		u.ID = b.newID()
	}
	b.users = append(b.users, u)
}

func (b *Backend) SeedRole(r models.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roles = append(b.roles, r)
}

func (b *Backend) SeedPermission(p models.Permission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.permissions = append(b.permissions, p)
}

func (b *Backend) SeedAgent(a models.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents = append(b.agents, a)
	if len(a.EnabledTools) > 0 {
		b.bindings[a.AgentCode] = append([]string(nil), a.EnabledTools...)
	}
}

func (b *Backend) SeedTool(d models.ToolDefinition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools = append(b.tools, d)
}

func (b *Backend) SeedLogs(agentCode string, entries ...models.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[agentCode] = append(b.logs[agentCode], entries...)
}

func (b *Backend) SetUsage(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage = n
}

// User returns the backend's copy of the user.
func (b *Backend) User(username string) (models.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

// Agent returns the backend's copy of the agent by code.
func (b *Backend) Agent(code string) (models.Agent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.agents {
		if a.AgentCode == code {
			return a, true
		}
	}
	return models.Agent{}, false
}

// EnabledTools returns the tools bound to the agent.
func (b *Backend) EnabledTools(code string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bindings[code]...)
}

// ── Users ────────────────────────────────────────────────────

func (b *Backend) userJSON(u models.User) interface{} {
	if !b.BareRefs {
		return u
	}
	m, _ := models.Snapshot(u)
	m["roles"] = u.RoleNames()
	return m
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]interface{}, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, b.userJSON(u))
	}
	b.mu.Unlock()
	b.respondList(w, "users", out)
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := decode(r, &u); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.users {
		if existing.Username == u.Username {
			respondDetail(w, http.StatusBadRequest, "username already exists")
			return
		}
	}
	u.ID = b.newID()
	if u.Roles == nil {
		u.Roles = []models.RoleRef{}
	}
	b.users = append(b.users, u)
	respondJSON(w, http.StatusCreated, u)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	var u models.User
	if err := decode(r, &u); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.users {
		if existing.ID.String() == id {
			u.ID = existing.ID
			b.users[i] = u
			respondJSON(w, http.StatusOK, u)
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "user not found")
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.users {
		if existing.ID.String() == id {
			b.users = append(b.users[:i], b.users[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "user not found")
}

func (b *Backend) assignRoles(w http.ResponseWriter, r *http.Request) {
	b.patchRoles(w, r, true)
}

func (b *Backend) removeRoles(w http.ResponseWriter, r *http.Request) {
	b.patchRoles(w, r, false)
}

func (b *Backend) patchRoles(w http.ResponseWriter, r *http.Request, assign bool) {
	username := r.URL.Query().Get("username")
	var names []string
	if err := decode(r, &names); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := -1
	for i, u := range b.users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		respondDetail(w, http.StatusNotFound, "user not found")
		return
	}

	u := b.users[idx]
	for _, name := range names {
		if assign {
			if !b.roleExists(name) {
				respondDetail(w, http.StatusNotFound, "role "+name+" not found")
				return
			}
			if !u.HasRole(name) {
				u.Roles = append(u.Roles, models.RoleRef{Name: name})
			}
			continue
		}
		kept := u.Roles[:0:0]
		for _, ref := range u.Roles {
			if ref.Name != name {
				kept = append(kept, ref)
			}
		}
		u.Roles = kept
	}
	b.users[idx] = u
	respondJSON(w, http.StatusOK, b.userJSON(u))
}

func (b *Backend) roleExists(name string) bool {
	for _, role := range b.roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// ── Permissions & Roles ──────────────────────────────────────

func (b *Backend) listPermissions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]models.Permission{}, b.permissions...)
	b.mu.Unlock()
	b.respondList(w, "permissions", out)
}

func (b *Backend) createPermission(w http.ResponseWriter, r *http.Request) {
	var p models.Permission
	if err := decode(r, &p); err != nil || p.Name == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "permission name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.permissions {
		if existing.Name == p.Name {
			respondDetail(w, http.StatusConflict, "permission already exists")
			return
		}
	}
	b.permissions = append(b.permissions, p)
	respondJSON(w, http.StatusCreated, p)
}

func (b *Backend) deletePermission(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.permissions {
		if p.Name == name {
			b.permissions = append(b.permissions[:i], b.permissions[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "permission not found")
}

func (b *Backend) roleJSON(role models.Role) interface{} {
	if !b.BareRefs {
		return role
	}
	m, _ := models.Snapshot(role)
	m["permissions"] = role.PermissionNames()
	return m
}

func (b *Backend) listRoles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]interface{}, 0, len(b.roles))
	for _, role := range b.roles {
		out = append(out, b.roleJSON(role))
	}
	b.mu.Unlock()
	b.respondList(w, "roles", out)
}

func (b *Backend) getRole(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, role := range b.roles {
		if role.Name == name {
			respondJSON(w, http.StatusOK, b.roleJSON(role))
			return
		}
	}
	respondDetail(w, http.StatusNotFound, "role not found")
}

func (b *Backend) assignPermission(w http.ResponseWriter, r *http.Request) {
	b.patchPermission(w, r, true)
}

func (b *Backend) removePermission(w http.ResponseWriter, r *http.Request) {
	b.patchPermission(w, r, false)
}

func (b *Backend) patchPermission(w http.ResponseWriter, r *http.Request, assign bool) {
	roleName, permName := param(r, "role"), param(r, "perm")
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, role := range b.roles {
		if role.Name != roleName {
			continue
		}
		has := false
		kept := role.Permissions[:0:0]
		for _, p := range role.Permissions {
			if p.Name == permName {
				has = true
				if !assign {
					continue
				}
			}
			kept = append(kept, p)
		}
		if assign && !has {
			kept = append(kept, models.PermissionRef{Name: permName})
		}
		role.Permissions = kept
		b.roles[i] = role
		respondJSON(w, http.StatusOK, b.roleJSON(role))
		return
	}
	respondDetail(w, http.StatusNotFound, "role not found")
}

// ── Tool registry ────────────────────────────────────────────

func (b *Backend) listTools(w http.ResponseWriter, r *http.Request) {
	enabledOnly, _ := strconv.ParseBool(r.URL.Query().Get("enabled_only"))
	b.mu.Lock()
	out := make([]models.ToolDefinition, 0, len(b.tools))
	for _, d := range b.tools {
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	b.mu.Unlock()
	b.respondList(w, "definitions", out)
}

func (b *Backend) createTool(w http.ResponseWriter, r *http.Request) {
	var d models.ToolDefinition
	if err := decode(r, &d); err != nil || d.ToolID == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "tool_id is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.tools {
		if existing.ToolID == d.ToolID {
			respondDetail(w, http.StatusConflict, "tool already registered")
			return
		}
	}
	b.tools = append(b.tools, d)
	respondJSON(w, http.StatusCreated, d)
}

// ── Agents ───────────────────────────────────────────────────

func (b *Backend) findAgent(id string) int {
	for i, a := range b.agents {
		if a.ID.String() == id && id != "" {
			return i
		}
		if a.AgentID.String() == id && id != "" {
			return i
		}
		if a.AgentCode == id {
			return i
		}
	}
	return -1
}

func (b *Backend) listAgents(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]models.Agent, 0, len(b.agents))
	for _, a := range b.agents {
		a.EnabledTools = append([]string{}, b.bindings[a.AgentCode]...)
		out = append(out, a)
	}
	b.mu.Unlock()
	b.respondList(w, "agents", out)
}

func (b *Backend) listAgentCodes(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	codes := make([]string, 0, len(b.agents))
	for _, a := range b.agents {
		codes = append(codes, a.AgentCode)
	}
	b.mu.Unlock()
	b.respondList(w, "agent_codes", codes)
}

func (b *Backend) getUsage(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	n := b.usage
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]int{"usage": n})
}

func (b *Backend) createAgent(w http.ResponseWriter, r *http.Request) {
	var a models.Agent
	if err := decode(r, &a); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.AgentCode == "" {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{
				{"loc": []string{"body", "agent_code"}, "msg": "field required"},
			},
		})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAgent(a.AgentCode) >= 0 {
		respondDetail(w, http.StatusConflict, "agent already exists")
		return
	}
	a.ID = b.newID()
	b.agents = append(b.agents, a)
	b.bindings[a.AgentCode] = append([]string(nil), a.EnabledTools...)
	respondJSON(w, http.StatusCreated, a)
}

func (b *Backend) updateAgent(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	var a models.Agent
	if err := decode(r, &a); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.findAgent(id)
	if i < 0 {
		respondDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	a.ID, a.AgentID = b.agents[i].ID, b.agents[i].AgentID
	b.agents[i] = a
	respondJSON(w, http.StatusOK, a)
}

func (b *Backend) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.findAgent(id)
	if i < 0 {
		respondDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	delete(b.bindings, b.agents[i].AgentCode)
	b.agents = append(b.agents[:i], b.agents[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) invoke(w http.ResponseWriter, r *http.Request) {
	code := param(r, "id")
	var req models.InvokeRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAgent(code) < 0 {
		respondDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	b.usage++
	b.logs[code] = append(b.logs[code], models.LogEntry{"agent_code": code, "input": req.Input})
	respondJSON(w, http.StatusOK, map[string]interface{}{"output": req.Input})
}

// ── Agent tool bindings ──────────────────────────────────────

func (b *Backend) getAgentTools(w http.ResponseWriter, r *http.Request) {
	code := param(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAgent(code) < 0 {
		respondDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agent_code":    code,
		"enabled_tools": append([]string{}, b.bindings[code]...),
	})
}

func (b *Backend) enableTool(w http.ResponseWriter, r *http.Request) {
	code := param(r, "id")
	var req models.EnableToolRequest
	if err := decode(r, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAgent(code) < 0 {
		respondDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	for _, t := range b.bindings[code] {
		if t == req.ToolID {
			respondJSON(w, http.StatusOK, map[string]string{"status": "already enabled"})
			return
		}
	}
	b.bindings[code] = append(b.bindings[code], req.ToolID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (b *Backend) disableTool(w http.ResponseWriter, r *http.Request) {
	code, tool := param(r, "id"), param(r, "tool")
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.bindings[code][:0:0]
	for _, t := range b.bindings[code] {
		if t != tool {
			kept = append(kept, t)
		}
	}
	b.bindings[code] = kept
	respondJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (b *Backend) executeTool(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := decode(r, &payload); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "echo": payload})
}

func (b *Backend) discoverTools(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	ids := make([]string, 0, len(b.tools))
	for _, d := range b.tools {
		ids = append(ids, d.ToolID)
	}
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]interface{}{"discovered": ids})
}

func (b *Backend) getLogs(w http.ResponseWriter, r *http.Request) {
	code := param(r, "id")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	b.mu.Lock()
	entries := b.logs[code]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := append([]models.LogEntry{}, entries...)
	b.mu.Unlock()
	// Logs always come wrapped.
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": out})
}

// Decode unmarshals a recorded request body.
func Decode[T any](c Call) (T, error) {
	var v T
	err := json.Unmarshal(c.Body, &v)
	return v, err
}
