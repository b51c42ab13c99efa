package review

import (
	"context"
	"errors"
	"testing"

	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"nil and empty string", nil, "", true},
		{"same string", "x", "x", true},
		{"different string", "x", "y", false},
		{"zero is not empty", float64(0), nil, false},
		{"false is not empty", false, "", false},
		{"number and numeric string", float64(1000), "1000", true},
		{"number and float string", 0.7, "0.70", true},
		{"number and word", float64(1), "one", false},
		{"numbers", float64(2), 2, true},
		{"bool and string", true, "true", true},
		{"bool and other string", false, "true", false},
		{"bool and number", true, float64(1), false},
		{"maps by canonical json", map[string]interface{}{"a": 1.0, "b": []interface{}{"x"}}, map[string]interface{}{"b": []interface{}{"x"}, "a": 1.0}, true},
		{"different maps", map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 2.0}, false},
		{"list and string", []interface{}{"x"}, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "symmetric")
		})
	}
}

func TestDiff_UnionOfKeysSorted(t *testing.T) {
	original := map[string]interface{}{"title": "Dev", "email": "a@x", "gone": "v", "blank": ""}
	edited := map[string]interface{}{"title": "Lead", "email": "a@x", "added": "n", "blank": nil}

	changes := Diff(original, edited)
	require.Len(t, changes, 3)
	assert.Equal(t, Change{Key: "added", Old: nil, New: "n"}, changes[0])
	assert.Equal(t, Change{Key: "gone", Old: "v", New: nil}, changes[1])
	assert.Equal(t, Change{Key: "title", Old: "Dev", New: "Lead"}, changes[2])
}

func TestGate_NoChangesNeverCommits(t *testing.T) {
	u := models.User{ID: "1", Username: "alice", Title: "Dev"}
	g, err := Open(u, u)
	require.NoError(t, err)

	assert.False(t, g.CanCommit())
	assert.Equal(t, "no changes detected", g.Status())
	assert.Empty(t, g.Changes())

	called := false
	err = g.Confirm(context.Background(), func(context.Context, models.User) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.False(t, called)
}

func TestGate_CommitsFullEditedValue(t *testing.T) {
	original := models.User{ID: "1", Username: "alice", Title: "Dev", Roles: []models.RoleRef{{Name: "EDITOR"}}}
	edited := original
	edited.Title = "Lead"

	g, err := Open(original, edited)
	require.NoError(t, err)
	require.True(t, g.CanCommit())
	assert.Equal(t, "1 field changed", g.Status())
	assert.Equal(t, []Change{{Key: "title", Old: "Dev", New: "Lead"}}, g.Changes())

	var sent models.User
	err = g.Confirm(context.Background(), func(_ context.Context, u models.User) error {
		sent = u
		return nil
	})
	require.NoError(t, err)
	// The whole entity goes out, not just the changed field.
	assert.Equal(t, edited, sent)
	assert.True(t, g.Closed())
	assert.ErrorIs(t, g.Confirm(context.Background(), func(context.Context, models.User) error { return nil }), ErrClosed)
}

func TestGate_FailedCommitStaysOpen(t *testing.T) {
	a := models.Agent{AgentCode: "BOT1", Model: "m1"}
	b := a
	b.Model = "m2"
	g, err := Open(a, b)
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, g.Confirm(context.Background(), func(context.Context, models.Agent) error { return boom }), boom)
	assert.False(t, g.Closed())
	assert.True(t, g.CanCommit())
}

func TestGate_Cancel(t *testing.T) {
	original := models.User{Username: "alice", Title: "Dev"}
	edited := original
	edited.Title = "Lead"
	g, err := Open(original, edited)
	require.NoError(t, err)

	g.Cancel()
	assert.False(t, g.CanCommit())
	assert.Equal(t, "Dev", g.Original().Title)
	assert.Equal(t, models.User{}, g.Edited())
}
