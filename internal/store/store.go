// Package store caches the backend's collections for the console.
// Each collection is authoritative only after a successful refresh from the
// server; mutations go to the backend first and the cache is refetched on
// success, never patched locally.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentoven/agentoven/console/internal/transport"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Store is the set of collections the console pages share.
type Store struct {
	client *transport.Client

	Users       *Collection[models.User]
	Roles       *Collection[models.Role]
	Permissions *Collection[models.Permission]
	Agents      *Collection[models.Agent]
	AgentCodes  *Collection[string]
	Tools       *Collection[models.ToolDefinition]

	// AgentTools maps agent_code → enabled tool ids, fetched per agent.
	AgentTools *Memberships
}

type options struct {
	toolsEnabledOnly bool
}

// Option configures a Store.
type Option func(*options)

// WithToolsEnabledOnly restricts the tool registry to enabled definitions.
func WithToolsEnabledOnly(v bool) Option {
	return func(o *options) { o.toolsEnabledOnly = v }
}

// New wires every collection to its backend operations.
func New(client *transport.Client, opts ...Option) *Store {
	o := options{toolsEnabledOnly: true}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{client: client}

	s.Users = NewCollection("user", client.ListUsers,
		func(u models.User) string { return u.Username },
		Ops[models.User]{
			Create: client.CreateUser,
			Update: func(ctx context.Context, u models.User) error {
				return client.UpdateUser(ctx, u.ID.String(), u)
			},
			Remove: func(ctx context.Context, u models.User) error {
				return client.DeleteUser(ctx, u.ID.String())
			},
			Assign: func(ctx context.Context, username, role string) error {
				return client.AssignRoles(ctx, username, []string{role})
			},
			Unassign: func(ctx context.Context, username, role string) error {
				return client.RemoveRoles(ctx, username, []string{role})
			},
		})

	s.Roles = NewCollection("role", client.ListRoles,
		func(r models.Role) string { return r.Name },
		Ops[models.Role]{
			Assign:   client.AssignPermission,
			Unassign: client.RemovePermission,
		})

	s.Permissions = NewCollection("permission", client.ListPermissions,
		func(p models.Permission) string { return p.Name },
		Ops[models.Permission]{
			Create: client.CreatePermission,
			Remove: func(ctx context.Context, p models.Permission) error {
				return client.DeletePermission(ctx, p.Name)
			},
		})

	s.Agents = NewCollection("agent", client.ListAgents,
		func(a models.Agent) string { return a.AgentCode },
		Ops[models.Agent]{
			Create: client.CreateAgent,
			Update: func(ctx context.Context, a models.Agent) error {
				return client.UpdateAgent(ctx, a.MutationID(), a)
			},
			Remove: func(ctx context.Context, a models.Agent) error {
				return client.DeleteAgent(ctx, a.MutationID())
			},
		})

	s.AgentCodes = NewCollection("agent code", client.ListAgentCodes,
		func(code string) string { return code },
		Ops[string]{})

	enabledOnly := o.toolsEnabledOnly
	s.Tools = NewCollection("tool",
		func(ctx context.Context) ([]models.ToolDefinition, error) {
			return client.ListToolDefinitions(ctx, enabledOnly)
		},
		func(d models.ToolDefinition) string { return d.ToolID },
		Ops[models.ToolDefinition]{
			Create: client.CreateToolDefinition,
		})

	s.AgentTools = NewMemberships("agent tools",
		func(ctx context.Context, code string) ([]string, error) {
			b, err := client.GetAgentTools(ctx, code)
			return b.EnabledTools, err
		},
		func(ctx context.Context, code, tool string) error {
			return client.EnableTool(ctx, code, tool, nil)
		},
		client.DisableTool,
	)

	return s
}

// Client returns the backend client the store was built on.
func (s *Store) Client() *transport.Client { return s.client }

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned for keys absent from the cache.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// ErrBusy is returned when a mutation on the same key is still pending.
type ErrBusy struct {
	Entity string
	Key    string
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("%s %q has a change in progress", e.Entity, e.Key)
}

// IsBusy reports whether err is an ErrBusy.
func IsBusy(err error) bool {
	var be *ErrBusy
	return errors.As(err, &be)
}

// ErrUnsupported is returned by pass-throughs the collection has no
// backend operation for.
type ErrUnsupported struct {
	Entity string
	Op     string
}

func (e *ErrUnsupported) Error() string {
	return e.Op + " is not supported for " + e.Entity
}

// ── Joined loads ────────────────────────────────────────────

// Refresher is anything LoadAll can load and reset.
type Refresher interface {
	Refresh(ctx context.Context) error
	Reset()
}

// JoinPolicy decides what a multi-collection load keeps when some fetches
// fail.
type JoinPolicy int

const (
	// JoinAllOrNothing empties every participating collection if any fetch
	// fails.
	JoinAllOrNothing JoinPolicy = iota
	// JoinPartial keeps whatever loaded and reports the failures.
	JoinPartial
)

func (p JoinPolicy) String() string {
	if p == JoinPartial {
		return "partial"
	}
	return "all-or-nothing"
}

// LoadAll refreshes the collections concurrently and joins the results
// under policy.
func LoadAll(ctx context.Context, policy JoinPolicy, rs ...Refresher) error {
	errs := make([]error, len(rs))
	var g errgroup.Group
	for i, r := range rs {
		g.Go(func() error {
			errs[i] = r.Refresh(ctx)
			return errs[i]
		})
	}
	first := g.Wait()
	if first == nil {
		return nil
	}

	if policy == JoinPartial {
		err := errors.Join(errs...)
		log.Warn().Err(err).Msg("Partial load, keeping collections that loaded")
		return err
	}

	for _, r := range rs {
		r.Reset()
	}
	log.Warn().Err(first).Int("collections", len(rs)).Msg("Load failed, cleared all collections")
	return first
}
