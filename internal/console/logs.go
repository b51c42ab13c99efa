package console

import (
	"context"
	"sync"

	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// Logs is the agent log viewer.
type Logs struct {
	lifecycle
	d Deps

	mu      sync.Mutex
	agent   string
	user    string
	entries []models.LogEntry
	paging  view.Paging
	seq     uint64
}

func NewLogs(d Deps) *Logs {
	d = d.withDefaults()
	return &Logs{lifecycle: newLifecycle(), d: d, paging: view.FirstPage(d.LogPageSize)}
}

// Load fetches the agent codes and users for the selectors.
func (p *Logs) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	s := p.d.Store
	return store.LoadAll(ctx, p.d.Policy, s.AgentCodes, s.Users)
}

// AgentCodes returns the agent selector options.
func (p *Logs) AgentCodes() []string { return p.d.Store.AgentCodes.List() }

// Users returns the user selector options.
func (p *Logs) Users() []models.User { return p.d.Store.Users.List() }

// SelectAgent fetches the agent's logs and resets paging. A response for
// an agent that is no longer selected is dropped.
func (p *Logs) SelectAgent(ctx context.Context, code string) error {
	if err := p.live(); err != nil {
		return err
	}
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.agent = code
	p.entries = nil
	p.paging = p.paging.Reset()
	p.mu.Unlock()
	if code == "" {
		return nil
	}

	entries, err := p.d.Store.Client().GetLogs(ctx, code, p.d.LogLimit)
	if err != nil {
		return err
	}
	if err := p.live(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		log.Debug().Str("agent", code).Msg("Dropping logs for deselected agent")
		return nil
	}
	p.entries = entries
	return nil
}

// SelectUser filters the logs by user. With no agent selected yet, the
// first agent is selected automatically.
func (p *Logs) SelectUser(ctx context.Context, user string) error {
	if err := p.live(); err != nil {
		return err
	}
	p.mu.Lock()
	p.user = user
	p.paging = p.paging.Reset()
	agent := p.agent
	p.mu.Unlock()

	if agent == "" && user != "" {
		if codes := p.d.Store.AgentCodes.List(); len(codes) > 0 {
			return p.SelectAgent(ctx, codes[0])
		}
	}
	return nil
}

// Selection returns the selected agent and user.
func (p *Logs) Selection() (agent, user string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agent, p.user
}

// Page returns the visible window of the filtered logs.
func (p *Logs) Page() view.LogPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return view.Logs(p.entries, p.user, p.paging)
}

// More shows one more page.
func (p *Logs) More() view.LogPage {
	p.mu.Lock()
	p.paging = p.paging.Next()
	p.mu.Unlock()
	return p.Page()
}

// Less collapses back to the first page.
func (p *Logs) Less() view.LogPage {
	p.mu.Lock()
	p.paging = p.paging.Reset()
	p.mu.Unlock()
	return p.Page()
}
