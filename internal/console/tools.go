package console

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
)

// Tools is the agent tool binding page.
type Tools struct {
	lifecycle
	d Deps

	mu    sync.Mutex
	agent string // selected agent_code
	seq   uint64
}

func NewTools(d Deps) *Tools {
	return &Tools{lifecycle: newLifecycle(), d: d.withDefaults()}
}

// Load fetches the agents and the tool registry.
func (p *Tools) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	s := p.d.Store
	return store.LoadAll(ctx, p.d.Policy, s.Agents, s.Tools)
}

// Agents returns the cached agents.
func (p *Tools) Agents() []models.Agent { return p.d.Store.Agents.List() }

// Registry returns the cached tool definitions.
func (p *Tools) Registry() []models.ToolDefinition { return p.d.Store.Tools.List() }

// SelectAgent selects code and fetches its enabled tools. Empty clears.
func (p *Tools) SelectAgent(ctx context.Context, code string) error {
	if err := p.live(); err != nil {
		return err
	}
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.agent = code
	p.mu.Unlock()
	if code == "" {
		return nil
	}

	if err := p.d.Store.AgentTools.Refresh(ctx, code); err != nil {
		p.mu.Lock()
		if seq == p.seq {
			p.agent = ""
		}
		p.mu.Unlock()
		return err
	}
	return p.live()
}

// SelectedAgent returns the selected agent code.
func (p *Tools) SelectedAgent() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.agent == "" {
		return "", ErrNoSelection
	}
	return p.agent, nil
}

// List marks each registry tool active or not for the selected agent.
func (p *Tools) List() ([]view.ToolState, error) {
	code, err := p.SelectedAgent()
	if err != nil {
		return nil, err
	}
	enabled, _ := p.d.Store.AgentTools.Members(code)
	return view.AgentTools(p.d.Store.Tools.List(), enabled), nil
}

// Busy reports whether a toggle for the selected agent is pending.
func (p *Tools) Busy() bool {
	code, err := p.SelectedAgent()
	return err == nil && p.d.Store.AgentTools.InFlight(code)
}

// Toggle enables or disables toolID for the selected agent depending on
// its current state, and returns whether it is now enabled.
func (p *Tools) Toggle(ctx context.Context, toolID string) (bool, error) {
	if err := p.live(); err != nil {
		return false, err
	}
	code, err := p.SelectedAgent()
	if err != nil {
		return false, err
	}
	var enabling bool
	_, err = p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name: "toggle tool",
		Key:  code + "/" + toolID,
		Call: func(ctx context.Context) (err error) {
			enabling, err = p.d.Store.AgentTools.Toggle(ctx, code, toolID)
			return err
		},
	})
	if err != nil {
		return false, err
	}
	return enabling, nil
}

// Register adds a tool definition to the global registry.
func (p *Tools) Register(ctx context.Context, form mutation.Form) error {
	if err := p.live(); err != nil {
		return err
	}
	var def models.ToolDefinition
	client := p.d.Store.Client()
	_, err := p.d.Orchestrator.Run(ctx, mutation.Mutation{
		Name: "register tool",
		Key:  models.String(form["tool_id"]),
		Validate: func() (err error) {
			def, err = mutation.ToolPayload(form)
			return err
		},
		Call:   func(ctx context.Context) error { return client.CreateToolDefinition(ctx, def) },
		Target: p.d.Store.Tools,
	})
	return err
}

// Execute runs a tool through the selected agent.
func (p *Tools) Execute(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	code, err := p.usable()
	if err != nil {
		return nil, err
	}
	return p.d.Store.Client().ExecuteTool(ctx, code, payload)
}

// Discover asks the backend which tools the selected agent could use.
func (p *Tools) Discover(ctx context.Context) (json.RawMessage, error) {
	code, err := p.usable()
	if err != nil {
		return nil, err
	}
	return p.d.Store.Client().DiscoverTools(ctx, code)
}

// Invoke sends input to the selected agent.
func (p *Tools) Invoke(ctx context.Context, input interface{}) (json.RawMessage, error) {
	code, err := p.usable()
	if err != nil {
		return nil, err
	}
	return p.d.Store.Client().InvokeAgent(ctx, code, input)
}

func (p *Tools) usable() (string, error) {
	if err := p.live(); err != nil {
		return "", err
	}
	return p.SelectedAgent()
}
