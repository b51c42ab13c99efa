package console

import (
	"context"
	"sync"

	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// Access is the roles and permissions page.
type Access struct {
	lifecycle
	d Deps

	mu           sync.Mutex
	role         *models.Role // fetched fresh on selection
	roleSeq      uint64
	selectedUser string
}

func NewAccess(d Deps) *Access {
	return &Access{lifecycle: newLifecycle(), d: d.withDefaults()}
}

// Load fetches roles, permissions and users together under the join
// policy.
func (p *Access) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	s := p.d.Store
	return store.LoadAll(ctx, p.d.Policy, s.Roles, s.Permissions, s.Users)
}

// Roles returns the cached role list.
func (p *Access) Roles() []models.Role { return p.d.Store.Roles.List() }

// Permissions returns the permission registry.
func (p *Access) Permissions() []models.Permission { return p.d.Store.Permissions.List() }

// SelectRole fetches the role from the backend and selects it. An empty
// name clears the selection. A response that arrives after a newer
// selection, or after Close, is dropped.
func (p *Access) SelectRole(ctx context.Context, name string) (models.Role, error) {
	if err := p.live(); err != nil {
		return models.Role{}, err
	}
	p.mu.Lock()
	p.roleSeq++
	seq := p.roleSeq
	if name == "" {
		p.role = nil
		p.mu.Unlock()
		return models.Role{}, nil
	}
	p.mu.Unlock()

	role, err := p.d.Store.Client().GetRole(ctx, name)
	if err != nil {
		return models.Role{}, err
	}
	if err := p.live(); err != nil {
		return models.Role{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq == p.roleSeq {
		p.role = &role
	}
	return role, nil
}

// SelectedRole returns the selected role.
func (p *Access) SelectedRole() (models.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.role == nil {
		return models.Role{}, ErrNoSelection
	}
	return *p.role, nil
}

// RolePermissions splits the permission registry for the selected role.
func (p *Access) RolePermissions() (view.Partitioned[models.Permission], error) {
	role, err := p.SelectedRole()
	if err != nil {
		return view.Partitioned[models.Permission]{}, err
	}
	return view.RoleAccess(role, p.d.Store.Permissions.List()), nil
}

// AssignPermission grants perm to the selected role.
func (p *Access) AssignPermission(ctx context.Context, perm string) error {
	return p.togglePermission(ctx, perm, true)
}

// RemovePermission revokes perm from the selected role.
func (p *Access) RemovePermission(ctx context.Context, perm string) error {
	return p.togglePermission(ctx, perm, false)
}

func (p *Access) togglePermission(ctx context.Context, perm string, assign bool) error {
	if err := p.live(); err != nil {
		return err
	}
	role, err := p.SelectedRole()
	if err != nil {
		return err
	}

	client := p.d.Store.Client()
	name, call := "assign permission", client.AssignPermission
	if !assign {
		name, call = "remove permission", client.RemovePermission
	}
	_, err = p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name:      name,
		Key:       role.Name,
		Call:      func(ctx context.Context) error { return call(ctx, role.Name, perm) },
		Target:    p.d.Store.Roles,
		OnSuccess: func() { p.syncRole(role.Name) },
	})
	return err
}

// syncRole replaces the selected role with the refreshed cache entry.
func (p *Access) syncRole(name string) {
	fresh, err := p.d.Store.Roles.Get(name)
	if err != nil || p.Closed() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.role != nil && p.role.Name == name {
		p.role = &fresh
	}
}

// RoleBusy reports whether a change to the selected role is pending.
func (p *Access) RoleBusy() bool {
	role, err := p.SelectedRole()
	return err == nil && p.d.Store.Roles.InFlight(role.Name)
}

// SelectUser selects a user by username; empty clears.
func (p *Access) SelectUser(username string) (models.User, error) {
	if err := p.live(); err != nil {
		return models.User{}, err
	}
	var u models.User
	if username != "" {
		var err error
		if u, err = p.d.Store.Users.Get(username); err != nil {
			return models.User{}, err
		}
	}
	p.mu.Lock()
	p.selectedUser = username
	p.mu.Unlock()
	return u, nil
}

// SelectedUser returns the selected user as currently cached.
func (p *Access) SelectedUser() (models.User, error) {
	p.mu.Lock()
	username := p.selectedUser
	p.mu.Unlock()
	if username == "" {
		return models.User{}, ErrNoSelection
	}
	return p.d.Store.Users.Get(username)
}

// UserRoles splits the role registry for the selected user.
func (p *Access) UserRoles() (view.Partitioned[models.Role], error) {
	u, err := p.SelectedUser()
	if err != nil {
		return view.Partitioned[models.Role]{}, err
	}
	return view.UserRoles(u, p.d.Store.Roles.List()), nil
}

// AssignRole grants role to the selected user.
func (p *Access) AssignRole(ctx context.Context, role string) error {
	return p.toggleUserRole(ctx, role, true)
}

// RemoveRole revokes role from the selected user.
func (p *Access) RemoveRole(ctx context.Context, role string) error {
	return p.toggleUserRole(ctx, role, false)
}

func (p *Access) toggleUserRole(ctx context.Context, role string, assign bool) error {
	if err := p.live(); err != nil {
		return err
	}
	u, err := p.SelectedUser()
	if err != nil {
		return err
	}
	return setUserRole(ctx, p.d, u.Username, role, assign)
}

// CreatePermission adds a permission to the global registry.
func (p *Access) CreatePermission(ctx context.Context, name, description string) error {
	if err := p.live(); err != nil {
		return err
	}
	var perm models.Permission
	client := p.d.Store.Client()
	_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name: "create permission",
		Key:  name,
		Validate: func() (err error) {
			perm, err = mutation.PermissionPayload(name, description)
			return err
		},
		Call:   func(ctx context.Context) error { return client.CreatePermission(ctx, perm) },
		Target: p.d.Store.Permissions,
	})
	return err
}

// DeletePermission removes a permission from the registry after
// confirmation. Roles are refreshed too since they may have held it.
func (p *Access) DeletePermission(ctx context.Context, name string) error {
	if err := p.live(); err != nil {
		return err
	}
	client := p.d.Store.Client()
	_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name:   "delete permission",
		Key:    name,
		Prompt: "Delete permission " + name + " from the global registry?",
		Call:   func(ctx context.Context) error { return client.DeletePermission(ctx, name) },
		Target: p.d.Store.Permissions,
	})
	if err != nil {
		return err
	}
	if err := p.d.Store.Roles.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("permission", name).Msg("Role refresh after permission delete failed, keeping stale roles")
		return nil
	}
	if role, err := p.SelectedRole(); err == nil {
		p.syncRole(role.Name)
	}
	return nil
}
