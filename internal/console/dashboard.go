package console

import (
	"context"
	"sync"
	"time"

	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/view"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// Dashboard is the landing page summary.
type Dashboard struct {
	lifecycle
	d Deps

	usage *usageCounter
}

func NewDashboard(d Deps) *Dashboard {
	d = d.withDefaults()
	return &Dashboard{
		lifecycle: newLifecycle(),
		d:         d,
		usage:     &usageCounter{fetch: d.Store.Client().GetUsage},
	}
}

// Load fetches users, agents and the usage counter in parallel.
func (p *Dashboard) Load(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	s := p.d.Store
	return store.LoadAll(ctx, p.d.Policy, s.Users, s.Agents, p.usage)
}

// View computes the dashboard from the current caches.
func (p *Dashboard) View() view.DashboardView {
	return view.Dashboard(p.d.Store.Users.List(), p.d.Store.Agents.List(), p.usage.get())
}

// Poll refreshes the dashboard every interval until ctx is done or the
// page is closed. Failures are logged and the stale data kept.
func (p *Dashboard) Poll(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	s := p.d.Store
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-t.C:
			if err := store.LoadAll(ctx, store.JoinPartial, s.Users, s.Agents, p.usage); err != nil {
				log.Warn().Err(err).Msg("Dashboard refresh failed, keeping stale data")
			}
		}
	}
}

// usageCounter caches the backend's usage counter as a store.Refresher.
type usageCounter struct {
	fetch func(ctx context.Context) (models.Usage, error)

	mu    sync.RWMutex
	usage models.Usage
}

func (u *usageCounter) Refresh(ctx context.Context) error {
	usage, err := u.fetch(ctx)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.usage = usage
	u.mu.Unlock()
	return nil
}

func (u *usageCounter) Reset() {
	u.mu.Lock()
	u.usage = models.Usage{}
	u.mu.Unlock()
}

func (u *usageCounter) get() models.Usage {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.usage
}
