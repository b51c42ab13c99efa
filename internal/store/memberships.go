package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Memberships caches owner → member sets fetched one owner at a time, such
// as the tools enabled for each agent.
type Memberships struct {
	entity  string
	fetch   func(ctx context.Context, owner string) ([]string, error)
	enable  func(ctx context.Context, owner, member string) error
	disable func(ctx context.Context, owner, member string) error

	mu       sync.RWMutex
	sets     map[string][]string
	inflight map[string]struct{}
}

// NewMemberships creates an empty membership cache.
func NewMemberships(
	entity string,
	fetch func(ctx context.Context, owner string) ([]string, error),
	enable, disable func(ctx context.Context, owner, member string) error,
) *Memberships {
	return &Memberships{
		entity:   entity,
		fetch:    fetch,
		enable:   enable,
		disable:  disable,
		sets:     make(map[string][]string),
		inflight: make(map[string]struct{}),
	}
}

// Members returns a copy of owner's cached set. ok is false when the owner
// was never fetched.
func (m *Memberships) Members(owner string) (members []string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[owner]
	return append([]string{}, set...), ok
}

// Has reports whether member is in owner's cached set.
func (m *Memberships) Has(owner, member string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.sets[owner] {
		if v == member {
			return true
		}
	}
	return false
}

// Refresh refetches owner's set. On error the cached set is kept.
func (m *Memberships) Refresh(ctx context.Context, owner string) error {
	set, err := m.fetch(ctx, owner)
	if err != nil {
		return fmt.Errorf("refresh %s of %q: %w", m.entity, owner, err)
	}
	if set == nil {
		set = []string{}
	}
	m.mu.Lock()
	m.sets[owner] = set
	m.mu.Unlock()
	return nil
}

// Forget drops owner's cached set.
func (m *Memberships) Forget(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, owner)
}

// Reset drops every cached set.
func (m *Memberships) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = make(map[string][]string)
}

// InFlight reports whether a toggle for owner is pending.
func (m *Memberships) InFlight(owner string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.inflight[owner]
	return ok
}

// Toggle disables member if owner's cached set contains it and enables it
// otherwise, then refetches owner's set. It returns whether the member was
// being enabled. Only one toggle per owner may be pending; toggles for
// different owners are independent.
func (m *Memberships) Toggle(ctx context.Context, owner, member string) (enabling bool, err error) {
	m.mu.Lock()
	if _, busy := m.inflight[owner]; busy {
		m.mu.Unlock()
		return false, &ErrBusy{Entity: m.entity, Key: owner}
	}
	m.inflight[owner] = struct{}{}
	enabling = true
	for _, v := range m.sets[owner] {
		if v == member {
			enabling = false
			break
		}
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, owner)
		m.mu.Unlock()
	}()

	if enabling {
		err = m.enable(ctx, owner, member)
	} else {
		err = m.disable(ctx, owner, member)
	}
	if err != nil {
		return enabling, err
	}
	if err := m.Refresh(ctx, owner); err != nil {
		// The toggle itself went through; record it locally.
		log.Warn().Err(err).Str("owner", owner).Str("member", member).Msg("Refresh after toggle failed, applying locally")
		m.apply(owner, member, enabling)
	}
	return enabling, nil
}

func (m *Memberships) apply(owner, member string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make([]string, 0, len(m.sets[owner])+1)
	for _, v := range m.sets[owner] {
		if v != member {
			set = append(set, v)
		}
	}
	if on {
		set = append(set, member)
	}
	m.sets[owner] = set
}
