package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// ── Users ────────────────────────────────────────────────────

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, c, "/users/", nil, "users")
}

func (c *Client) CreateUser(ctx context.Context, u models.User) error {
	return c.do(ctx, http.MethodPost, "/users/", nil, u, nil)
}

// UpdateUser replaces the user addressed by id with the full payload.
func (c *Client) UpdateUser(ctx context.Context, id string, u models.User) error {
	return c.do(ctx, http.MethodPut, "/users/"+seg(id), nil, u, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+seg(id), nil, nil, nil)
}

// AssignRoles grants roles to the user. The backend is trusted to ignore
// roles the user already holds.
func (c *Client) AssignRoles(ctx context.Context, username string, roles []string) error {
	q := url.Values{"username": {username}}
	return c.do(ctx, http.MethodPatch, "/users/assign-roles", q, nonNil(roles), nil)
}

// RemoveRoles revokes roles from the user.
func (c *Client) RemoveRoles(ctx context.Context, username string, roles []string) error {
	q := url.Values{"username": {username}}
	return c.do(ctx, http.MethodPatch, "/users/remove-roles", q, nonNil(roles), nil)
}

// ── Permissions ──────────────────────────────────────────────

func (c *Client) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return list[models.Permission](ctx, c, "/permissions/", nil, "permissions")
}

func (c *Client) CreatePermission(ctx context.Context, p models.Permission) error {
	return c.do(ctx, http.MethodPost, "/permissions/", nil, p, nil)
}

func (c *Client) DeletePermission(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/permissions/"+seg(name), nil, nil, nil)
}

// ── Roles ────────────────────────────────────────────────────

func (c *Client) ListRoles(ctx context.Context) ([]models.Role, error) {
	return list[models.Role](ctx, c, "/roles/", nil, "roles")
}

// GetRole fetches one role fresh from the backend.
func (c *Client) GetRole(ctx context.Context, name string) (models.Role, error) {
	var r models.Role
	err := c.do(ctx, http.MethodGet, "/roles/"+seg(name), nil, nil, &r)
	return r, err
}

func (c *Client) AssignPermission(ctx context.Context, role, permission string) error {
	return c.do(ctx, http.MethodPost, "/roles/"+seg(role)+"/assign-permission/"+seg(permission), nil, nil, nil)
}

func (c *Client) RemovePermission(ctx context.Context, role, permission string) error {
	return c.do(ctx, http.MethodDelete, "/roles/"+seg(role)+"/remove-permission/"+seg(permission), nil, nil, nil)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
