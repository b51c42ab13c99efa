package console

import (
	"context"
	"sync"

	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
)

// Users is the user management page.
type Users struct {
	lifecycle
	d Deps

	mu       sync.Mutex
	query    string
	mode     view.SortMode
	selected string // username

	edit editor[mutation.Form]
}

func NewUsers(d Deps) *Users {
	return &Users{lifecycle: newLifecycle(), d: d.withDefaults(), mode: view.SortAlpha}
}

// Load fetches users and roles.
func (p *Users) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	s := p.d.Store
	return store.LoadAll(ctx, p.d.Policy, s.Users, s.Roles)
}

// Search sets the filter text and sort mode of the list.
func (p *Users) Search(query string, mode view.SortMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.query, p.mode = query, mode
}

// List is the filtered and sorted user list.
func (p *Users) List() []models.User {
	p.mu.Lock()
	query, mode := p.query, p.mode
	p.mu.Unlock()
	return view.Users(p.d.Store.Users.List(), query, mode)
}

// Select makes username the selected user. An empty username clears the
// selection and any open edit.
func (p *Users) Select(username string) (models.User, error) {
	if err := p.live(); err != nil {
		return models.User{}, err
	}
	if username == "" {
		p.mu.Lock()
		p.selected = ""
		p.mu.Unlock()
		p.edit.cancel()
		return models.User{}, nil
	}
	u, err := p.d.Store.Users.Get(username)
	if err != nil {
		return models.User{}, err
	}
	p.mu.Lock()
	if p.selected != username {
		p.edit.cancel()
	}
	p.selected = username
	p.mu.Unlock()
	return u, nil
}

// Selected returns the selected user as currently cached.
func (p *Users) Selected() (models.User, error) {
	p.mu.Lock()
	username := p.selected
	p.mu.Unlock()
	if username == "" {
		return models.User{}, ErrNoSelection
	}
	return p.d.Store.Users.Get(username)
}

// Roles splits the role registry for the selected user.
func (p *Users) Roles() (view.Partitioned[models.Role], error) {
	u, err := p.Selected()
	if err != nil {
		return view.Partitioned[models.Role]{}, err
	}
	return view.UserRoles(u, p.d.Store.Roles.List()), nil
}

// Busy reports whether a change to the selected user is pending.
func (p *Users) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected != "" && p.d.Store.Users.InFlight(p.selected)
}

// EditForm returns the selected user as an editable field map.
func (p *Users) EditForm() (mutation.Form, error) {
	u, err := p.Selected()
	if err != nil {
		return nil, err
	}
	return models.Snapshot(u)
}

// BeginEdit opens a review of the selected user against form. Identity
// and roles are not edited through the form.
func (p *Users) BeginEdit(form mutation.Form) (*review.Gate[mutation.Form], error) {
	if err := p.live(); err != nil {
		return nil, err
	}
	original, err := p.Selected()
	if err != nil {
		return nil, err
	}
	before, err := models.Snapshot(original)
	if err != nil {
		return nil, err
	}
	edited := overlay(before, form, "id", "username", "roles")
	if _, err := mutation.UserPayload(edited); err != nil {
		return nil, err
	}
	return p.edit.open(before, edited)
}

// Review returns the open review, or nil.
func (p *Users) Review() *review.Gate[mutation.Form] { return p.edit.current() }

// CancelEdit discards the open review.
func (p *Users) CancelEdit() { p.edit.cancel() }

// CommitEdit sends the full edited user when the review has changes.
func (p *Users) CommitEdit(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	client := p.d.Store.Client()
	return p.edit.commit(ctx, func(ctx context.Context, edited mutation.Form) error {
		var u models.User
		_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
			Name: "update user",
			Key:  models.String(edited["username"]),
			Validate: func() (err error) {
				u, err = mutation.UserPayload(edited)
				return err
			},
			Call:   func(ctx context.Context) error { return client.UpdateUser(ctx, u.ID.String(), u) },
			Target: p.d.Store.Users,
		})
		return err
	})
}

// Create registers a new user.
func (p *Users) Create(ctx context.Context, form mutation.Form) error {
	if err := p.live(); err != nil {
		return err
	}
	var u models.User
	client := p.d.Store.Client()
	_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name: "create user",
		Key:  models.String(form["username"]),
		Validate: func() (err error) {
			u, err = mutation.UserPayload(form)
			return err
		},
		Call:   func(ctx context.Context) error { return client.CreateUser(ctx, u) },
		Target: p.d.Store.Users,
	})
	return err
}

// Delete removes a user after confirmation.
func (p *Users) Delete(ctx context.Context, username string) error {
	if err := p.live(); err != nil {
		return err
	}
	u, err := p.d.Store.Users.Get(username)
	if err != nil {
		return err
	}
	client := p.d.Store.Client()
	_, err = p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name:   "delete user",
		Key:    username,
		Prompt: "Delete user " + username + "?",
		Call:   func(ctx context.Context) error { return client.DeleteUser(ctx, u.ID.String()) },
		Target: p.d.Store.Users,
		OnSuccess: func() {
			p.mu.Lock()
			if p.selected == username {
				p.selected = ""
				p.edit.cancel()
			}
			p.mu.Unlock()
		},
	})
	return err
}

// AssignRole grants role to the selected user.
func (p *Users) AssignRole(ctx context.Context, role string) error {
	return p.toggleRole(ctx, role, true)
}

// RemoveRole revokes role from the selected user.
func (p *Users) RemoveRole(ctx context.Context, role string) error {
	return p.toggleRole(ctx, role, false)
}

func (p *Users) toggleRole(ctx context.Context, role string, assign bool) error {
	if err := p.live(); err != nil {
		return err
	}
	u, err := p.Selected()
	if err != nil {
		return err
	}
	return setUserRole(ctx, p.d, u.Username, role, assign)
}

// setUserRole is shared by the users and access pages. No membership
// pre-check is made.
func setUserRole(ctx context.Context, d Deps, username, role string, assign bool) error {
	client := d.Store.Client()
	name, call := "assign role", client.AssignRoles
	if !assign {
		name, call = "remove role", client.RemoveRoles
	}
	_, err := d.Orchestrator.Run(ctx, mutation.Mutation{
		Name:   name,
		Key:    username,
		Call:   func(ctx context.Context) error { return call(ctx, username, []string{role}) },
		Target: d.Store.Users,
	})
	return err
}
