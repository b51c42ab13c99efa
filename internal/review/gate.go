package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agentoven/agentoven/console/pkg/models"
)

var (
	// ErrNoChanges is returned by Confirm when the edit changes nothing.
	ErrNoChanges = errors.New("no changes detected")
	// ErrClosed is returned by Confirm after the gate was committed or
	// cancelled.
	ErrClosed = errors.New("review already closed")
)

// Gate holds one pending edit between "save" and "confirm". The original
// is never modified; Cancel drops the edit.
type Gate[T any] struct {
	mu       sync.Mutex
	original T
	edited   T
	changes  []Change
	closed   bool
}

// Open snapshots both values and computes their diff.
func Open[T any](original, edited T) (*Gate[T], error) {
	before, err := models.Snapshot(original)
	if err != nil {
		return nil, fmt.Errorf("review original: %w", err)
	}
	after, err := models.Snapshot(edited)
	if err != nil {
		return nil, fmt.Errorf("review edit: %w", err)
	}
	return &Gate[T]{
		original: original,
		edited:   edited,
		changes:  Diff(before, after),
	}, nil
}

// Changes returns the differing fields, sorted by key.
func (g *Gate[T]) Changes() []Change {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Change{}, g.changes...)
}

// CanCommit reports whether confirming would send anything.
func (g *Gate[T]) CanCommit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed && len(g.changes) > 0
}

// Status is the line shown above the change list.
func (g *Gate[T]) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch n := len(g.changes); n {
	case 0:
		return ErrNoChanges.Error()
	case 1:
		return "1 field changed"
	default:
		return fmt.Sprintf("%d fields changed", n)
	}
}

func (g *Gate[T]) Original() T { return g.original }

func (g *Gate[T]) Edited() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edited
}

// Confirm sends the full edited value through commit. Without changes it
// returns ErrNoChanges and commit is not called. A failed commit leaves the
// gate open so the user can retry or cancel.
func (g *Gate[T]) Confirm(ctx context.Context, commit func(ctx context.Context, edited T) error) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if len(g.changes) == 0 {
		g.mu.Unlock()
		return ErrNoChanges
	}
	edited := g.edited
	g.mu.Unlock()

	if err := commit(ctx, edited); err != nil {
		return err
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

// Cancel discards the edit.
func (g *Gate[T]) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	var zero T
	g.edited = zero
	g.changes = nil
	g.closed = true
}

// Closed reports whether the gate was committed or cancelled.
func (g *Gate[T]) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
