package console

import (
	"context"
	"sync"

	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
)

// Agents is the agent configuration page.
type Agents struct {
	lifecycle
	d Deps

	mu       sync.Mutex
	query    string
	selected string // agent_code

	edit editor[mutation.Form]
}

func NewAgents(d Deps) *Agents {
	return &Agents{lifecycle: newLifecycle(), d: d.withDefaults()}
}

func (p *Agents) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	return p.d.Store.Agents.Refresh(ctx)
}

// Search sets the filter text.
func (p *Agents) Search(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.query = query
}

// List is the filtered agent list.
func (p *Agents) List() []models.Agent {
	p.mu.Lock()
	query := p.query
	p.mu.Unlock()
	return view.Agents(p.d.Store.Agents.List(), query)
}

// Select makes code the selected agent; empty clears.
func (p *Agents) Select(code string) (models.Agent, error) {
	if err := p.live(); err != nil {
		return models.Agent{}, err
	}
	var a models.Agent
	if code != "" {
		var err error
		if a, err = p.d.Store.Agents.Get(code); err != nil {
			return models.Agent{}, err
		}
	}
	p.mu.Lock()
	if p.selected != code {
		p.edit.cancel()
	}
	p.selected = code
	p.mu.Unlock()
	return a, nil
}

// Selected returns the selected agent as currently cached.
func (p *Agents) Selected() (models.Agent, error) {
	p.mu.Lock()
	code := p.selected
	p.mu.Unlock()
	if code == "" {
		return models.Agent{}, ErrNoSelection
	}
	return p.d.Store.Agents.Get(code)
}

// EditForm returns the selected agent as an editable field map.
func (p *Agents) EditForm() (mutation.Form, error) {
	a, err := p.Selected()
	if err != nil {
		return nil, err
	}
	return models.Snapshot(a)
}

// BeginEdit opens a review of form against the selected agent. The review
// compares the raw fields; defaults are applied only to the configuration
// sent on commit, so an untouched form shows no changes.
func (p *Agents) BeginEdit(form mutation.Form) (*review.Gate[mutation.Form], error) {
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
	edited := overlay(before, form, "id", "agent_id", "agent_code", "usage_count")
	if _, err := mutation.AgentPayload(edited); err != nil {
		return nil, err
	}
	return p.edit.open(before, edited)
}

// Review returns the open review, or nil.
func (p *Agents) Review() *review.Gate[mutation.Form] { return p.edit.current() }

// CancelEdit discards the open review.
func (p *Agents) CancelEdit() { p.edit.cancel() }

// CommitEdit sends the full edited configuration, addressed by the
// agent's mutation id.
func (p *Agents) CommitEdit(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	client := p.d.Store.Client()
	return p.edit.commit(ctx, func(ctx context.Context, edited mutation.Form) error {
		var a models.Agent
		_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
			Name: "update agent",
			Key:  models.String(edited["agent_code"]),
			Validate: func() (err error) {
				a, err = mutation.AgentPayload(edited)
				return err
			},
			Call:   func(ctx context.Context) error { return client.UpdateAgent(ctx, a.MutationID(), a) },
			Target: p.d.Store.Agents,
		})
		return err
	})
}

// Busy reports whether a change to the selected agent is pending.
func (p *Agents) Busy() bool {
	a, err := p.Selected()
	return err == nil && p.d.Store.Agents.InFlight(a.AgentCode)
}

// Create registers a new agent from form.
func (p *Agents) Create(ctx context.Context, form mutation.Form) error {
	if err := p.live(); err != nil {
		return err
	}
	var a models.Agent
	client := p.d.Store.Client()
	_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name: "create agent",
		Key:  models.String(form["agent_code"]),
		Validate: func() (err error) {
			a, err = mutation.AgentPayload(form)
			return err
		},
		Call:   func(ctx context.Context) error { return client.CreateAgent(ctx, a) },
		Target: p.d.Store.Agents,
	})
	return err
}

// Delete removes an agent after confirmation.
func (p *Agents) Delete(ctx context.Context, code string) error {
	if err := p.live(); err != nil {
		return err
	}
	a, err := p.d.Store.Agents.Get(code)
	if err != nil {
		return err
	}
	client := p.d.Store.Client()
	_, err = p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name:   "delete agent",
		Key:    code,
		Prompt: "Delete agent " + code + "?",
		Call:   func(ctx context.Context) error { return client.DeleteAgent(ctx, a.MutationID()) },
		Target: p.d.Store.Agents,
		OnSuccess: func() {
			p.mu.Lock()
			if p.selected == code {
				p.selected = ""
				p.edit.cancel()
			}
			p.mu.Unlock()
		},
	})
	return err
}
