// Package console holds the page controllers of the admin console. Each
// page composes the shared store, the derived views, the review gate and
// the mutation orchestrator, and keeps its own selection and edit buffers.
// A page drops late results and refuses new work once it is closed.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/agentoven/agentoven/console/internal/config"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
)

var (
	// ErrClosed is returned by every page operation after Close.
	ErrClosed = errors.New("page closed")
	// ErrNoSelection is returned by operations that act on the selected
	// entity when there is none.
	ErrNoSelection = errors.New("nothing selected")
	// ErrNoEdit is returned when committing without an open review.
	ErrNoEdit = errors.New("no edit in progress")
)

// Deps are the collaborators every page shares.
type Deps struct {
	Store        *store.Store
	Orchestrator *mutation.Orchestrator
	// Policy is the join policy of multi-collection loads.
	Policy store.JoinPolicy
	// LogLimit is how many log entries are fetched per agent.
	LogLimit int
	// LogPageSize is the "load more" increment of the logs page.
	LogPageSize int
}

// DepsFromConfig fills Deps from the console configuration.
func DepsFromConfig(cfg config.PageConfig, s *store.Store, o *mutation.Orchestrator) Deps {
	policy := store.JoinAllOrNothing
	if cfg.PartialLoad {
		policy = store.JoinPartial
	}
	return Deps{
		Store:        s,
		Orchestrator: o,
		Policy:       policy,
		LogLimit:     cfg.LogLimit,
		LogPageSize:  cfg.LogPageSize,
	}
}

func (d Deps) withDefaults() Deps {
	if d.Orchestrator == nil {
		d.Orchestrator = mutation.New()
	}
	if d.LogLimit <= 0 {
		d.LogLimit = 100
	}
	if d.LogPageSize <= 0 {
		d.LogPageSize = view.DefaultPageSize
	}
	return d
}

// Console is the full set of pages over one store.
type Console struct {
	Users     *Users
	Access    *Access
	Agents    *Agents
	Tools     *Tools
	Logs      *Logs
	Dashboard *Dashboard
}

// New builds every page.
func New(d Deps) *Console {
	d = d.withDefaults()
	return &Console{
		Users:     NewUsers(d),
		Access:    NewAccess(d),
		Agents:    NewAgents(d),
		Tools:     NewTools(d),
		Logs:      NewLogs(d),
		Dashboard: NewDashboard(d),
	}
}

// Load runs every page's initial load. The first error is returned after
// all pages tried.
func (c *Console) Load(ctx context.Context) error {
	var errs []error
	for _, load := range []func(context.Context) error{
		c.Users.Load, c.Access.Load, c.Agents.Load, c.Tools.Load, c.Logs.Load, c.Dashboard.Load,
	} {
		if err := load(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every page.
func (c *Console) Close() {
	c.Users.Close()
	c.Access.Close()
	c.Agents.Close()
	c.Tools.Close()
	c.Logs.Close()
	c.Dashboard.Close()
}

// ── Shared page plumbing ────────────────────────────────────

// lifecycle is the unmount guard shared by every page.
type lifecycle struct {
	once sync.Once
	done chan struct{}
}

func newLifecycle() lifecycle {
	return lifecycle{done: make(chan struct{})}
}

// Close stops the page. Pending results are discarded when they arrive.
func (l *lifecycle) Close() {
	l.once.Do(func() { close(l.done) })
}

// Closed reports whether Close was called.
func (l *lifecycle) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *lifecycle) live() error {
	if l.Closed() {
		return ErrClosed
	}
	return nil
}

// overlay returns base with form written over it. Fields named in keep
// always come from base.
func overlay(base map[string]interface{}, form mutation.Form, keep ...string) mutation.Form {
	out := make(mutation.Form, len(base)+len(form))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range form {
		out[k] = v
	}
	for _, k := range keep {
		if v, ok := base[k]; ok {
			out[k] = v
		} else {
			delete(out, k)
		}
	}
	return out
}

// editor holds at most one open review for a page.
type editor[T any] struct {
	mu   sync.Mutex
	gate *review.Gate[T]
}

func (e *editor[T]) open(original, edited T) (*review.Gate[T], error) {
	g, err := review.Open(original, edited)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.gate = g
	e.mu.Unlock()
	return g, nil
}

func (e *editor[T]) current() *review.Gate[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate
}

func (e *editor[T]) cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gate != nil {
		e.gate.Cancel()
		e.gate = nil
	}
}

func (e *editor[T]) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = nil
}

// commit confirms the open review through fn and clears it on success.
func (e *editor[T]) commit(ctx context.Context, fn func(ctx context.Context, edited T) error) error {
	g := e.current()
	if g == nil {
		return ErrNoEdit
	}
	if err := g.Confirm(ctx, fn); err != nil {
		return err
	}
	e.clear()
	return nil
}
