package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentoven/agentoven/console/internal/backendtest"
	"github.com/agentoven/agentoven/console/internal/transport"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*transport.Client, *backendtest.Backend) {
	t.Helper()
	b := backendtest.New(t)
	return transport.New(b.URL + "/"), b
}

func TestListUsers_BareAndEnvelope(t *testing.T) {
	for _, envelope := range []bool{false, true} {
		c, b := newClient(t)
		b.Envelope = envelope
		b.BareRefs = true
		b.SeedRole(models.Role{Name: "EDITOR"})
		b.SeedUser(models.User{Username: "alice", Name: "Alice", Roles: []models.RoleRef{{Name: "EDITOR"}}})

		users, err := c.ListUsers(context.Background())
		require.NoError(t, err, "envelope=%v", envelope)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, []string{"EDITOR"}, users[0].RoleNames())
	}
}

func TestList_UnexpectedShapeIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok", "users": "not-a-list"}`))
	}))
	defer srv.Close()

	users, err := transport.New(srv.URL).ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	c, b := newClient(t)
	b.SeedAgent(models.Agent{AgentCode: "ops/bot 1"})
	ctx := context.Background()

	require.NoError(t, c.EnableTool(ctx, "ops/bot 1", "web search", nil))
	require.NoError(t, c.DisableTool(ctx, "ops/bot 1", "web search"))

	assert.Equal(t, 1, b.CallCount(http.MethodPost, "/agent/ops%2Fbot%201/tools/enable"))
	assert.Equal(t, 1, b.CallCount(http.MethodDelete, "/agent/ops%2Fbot%201/tools/web%20search"))
}

func TestAssignRoles_QueryAndBody(t *testing.T) {
	c, b := newClient(t)
	b.SeedRole(models.Role{Name: "EDITOR"})
	b.SeedUser(models.User{Username: "a&b"})

	require.NoError(t, c.AssignRoles(context.Background(), "a&b", []string{"EDITOR"}))

	calls := b.Calls()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "a&b", last.Query.Get("username"))
	body, err := backendtest.Decode[[]string](last)
	require.NoError(t, err)
	assert.Equal(t, []string{"EDITOR"}, body)

	u, _ := b.User("a&b")
	assert.True(t, u.HasRole("EDITOR"))
}

func TestRemoteError_Detail(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"detail string", `{"detail": "agent not found"}`, "agent not found"},
		{"detail list", `{"detail": [{"loc": ["body", "agent_code"], "msg": "field required"}]}`, "agent_code: field required"},
		{"message", `{"message": "nope"}`, "nope"},
		{"error", `{"error": "bad"}`, "bad"},
		{"no body", ``, "request failed with status 500"},
		{"html", `<html>oops</html>`, "request failed with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newClient(t)
			b.FailNextRaw(http.MethodGet, "/users/", http.StatusInternalServerError, tt.body)

			_, err := c.ListUsers(context.Background())
			var re *transport.RemoteError
			require.True(t, errors.As(err, &re), "err = %v", err)
			assert.Equal(t, http.StatusInternalServerError, re.Status)
			assert.Equal(t, tt.detail, re.Detail)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := transport.New(url).ListRoles(context.Background())
	var ne *transport.NetworkError
	require.True(t, errors.As(err, &ne), "err = %v", err)
	assert.Equal(t, "GET /roles/", ne.Op)
}

func TestGetAgentTools(t *testing.T) {
	c, b := newClient(t)
	b.SeedAgent(models.Agent{AgentCode: "BOT1", EnabledTools: []string{"search"}})

	binding, err := c.GetAgentTools(context.Background(), "BOT1")
	require.NoError(t, err)
	assert.Equal(t, "BOT1", binding.AgentCode)
	assert.Equal(t, []string{"search"}, binding.EnabledTools)
}

func TestGetAgentTools_ObjectsAndMissingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/agent/A/tools":
			w.Write([]byte(`{"enabled_tools": [{"tool_id": "t1"}, "t2"]}`))
		default:
			w.Write([]byte(`{"status": "none"}`))
		}
	}))
	defer srv.Close()
	c := transport.New(srv.URL)

	binding, err := c.GetAgentTools(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, binding.EnabledTools)

	binding, err = c.GetAgentTools(context.Background(), "B")
	require.NoError(t, err)
	assert.Empty(t, binding.EnabledTools)
}

func TestListAgentCodes(t *testing.T) {
	c, b := newClient(t)
	b.Envelope = true
	b.SeedAgent(models.Agent{AgentCode: "BOT1"})
	b.SeedAgent(models.Agent{AgentCode: "BOT2"})

	codes, err := c.ListAgentCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BOT1", "BOT2"}, codes)
}

func TestListToolDefinitions_EnabledOnly(t *testing.T) {
	c, b := newClient(t)
	on := models.NewToolDefinition()
	on.ToolID = "search"
	off := models.NewToolDefinition()
	off.ToolID = "legacy"
	off.Enabled = false
	b.SeedTool(on)
	b.SeedTool(off)

	defs, err := c.ListToolDefinitions(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "search", defs[0].ToolID)

	defs, err = c.ListToolDefinitions(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	calls := b.Calls()
	assert.Equal(t, "true", calls[0].Query.Get("enabled_only"))
	assert.Equal(t, "false", calls[1].Query.Get("enabled_only"))
}

func TestLogsAndUsage(t *testing.T) {
	c, b := newClient(t)
	b.SeedAgent(models.Agent{AgentCode: "BOT1"})
	b.SeedLogs("BOT1",
		models.LogEntry{"username": "alice", "message": "one"},
		models.LogEntry{"username": "bob", "message": "two"},
		models.LogEntry{"username": "alice", "message": "three"},
	)
	b.SetUsage(12)
	ctx := context.Background()

	logs, err := c.GetLogs(ctx, "BOT1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "two", logs[0].Text())

	u, err := c.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, u.Total)

	out, err := c.InvokeAgent(ctx, "BOT1", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"output": "hello"}`, string(out))
}

func TestUpdateAgent_UsesGivenID(t *testing.T) {
	c, b := newClient(t)
	b.SeedAgent(models.Agent{AgentCode: "BOT1", Model: "m1"})

	a, _ := b.Agent("BOT1")
	a.Model = "m2"
	require.NoError(t, c.UpdateAgent(context.Background(), a.MutationID(), a))

	got, _ := b.Agent("BOT1")
	assert.Equal(t, "m2", got.Model)
	assert.Equal(t, 1, b.CallCount(http.MethodPut, "/agent/BOT1/config"))
}

func TestIsNotFound(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.GetRole(context.Background(), "missing")
	assert.True(t, transport.IsNotFound(err))
}
