package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentoven/agentoven/console/internal/api"
	"github.com/agentoven/agentoven/console/internal/api/handlers"
	"github.com/agentoven/agentoven/console/internal/backendtest"
	"github.com/agentoven/agentoven/console/internal/config"
	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/sessions"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/transport"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	srv     *httptest.Server
	backend *backendtest.Backend
	token   string
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	b := backendtest.New(t)
	o := mutation.New(mutation.WithNotifier(mutation.NotifierFunc(func(context.Context, mutation.Notice) {})))
	h := handlers.New(console.Deps{Store: store.New(transport.New(b.URL)), Orchestrator: o}, sessions.NewGate())
	t.Cleanup(h.Close)

	cfg := &config.Config{Version: "test", AllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(api.NewRouter(cfg, h))
	t.Cleanup(srv.Close)

	a := &testAPI{srv: srv, backend: b}
	resp, body := a.do(t, http.MethodPost, "/session/login", map[string]string{"email": "admin@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var s sessions.Session
	require.NoError(t, json.Unmarshal(body, &s))
	a.token = s.Token
	return a
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func errorOf(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Error
}

func seed(b *backendtest.Backend) {
	b.SeedRole(models.Role{Name: "EDITOR"})
	b.SeedRole(models.Role{Name: "VIEWER"})
	b.SeedUser(models.User{ID: "1", Username: "alice", Name: "Alice", Email: "alice@example.com",
		IsActive: true, Roles: []models.RoleRef{{Name: "EDITOR"}}})
}

// ─── Session gate ────────────────────────────────────────────

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t)
	a.token = ""
	resp, body := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","service":"agentoven-console"}`, string(body))
}

func TestPagesRequireSession(t *testing.T) {
	a := newAPI(t)
	token := a.token
	a.token = ""
	resp, body := a.do(t, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "login required", errorOf(t, body))

	a.token = token
	resp, _ = a.do(t, http.MethodGet, "/session/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRequiresEmail(t *testing.T) {
	a := newAPI(t)
	resp, body := a.do(t, http.MethodPost, "/session/login", map[string]string{"email": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, sessions.ErrEmailRequired.Error(), errorOf(t, body))
}

func TestLogoutEndsSession(t *testing.T) {
	a := newAPI(t)
	resp, _ := a.do(t, http.MethodPost, "/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─── Users ───────────────────────────────────────────────────

func TestUsers_ListAndRoles(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)

	resp, body := a.do(t, http.MethodGet, "/api/v1/users?q=ali", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var users []models.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	resp, body = a.do(t, http.MethodPut, "/api/v1/users/alice/roles/VIEWER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var roles struct {
		Assigned  []models.Role `json:"assigned"`
		Available []models.Role `json:"available"`
	}
	require.NoError(t, json.Unmarshal(body, &roles))
	assert.Len(t, roles.Assigned, 2)
	assert.Empty(t, roles.Available)
}

func TestUsers_ReviewThenConfirm(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)

	form := map[string]interface{}{
		"username": "alice", "name": "Alice", "email": "alice@example.com",
		"is_active": true, "roles": []string{"EDITOR"},
	}
	resp, body := a.do(t, http.MethodPost, "/api/v1/users/alice/review", form)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"changes":[],"status":"no changes detected","can_commit":false}`, string(body))

	resp, body = a.do(t, http.MethodPost, "/api/v1/users/alice/review/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no changes detected", errorOf(t, body))
	assert.Zero(t, a.backend.CallCount(http.MethodPut, "/users/1"))

	form["name"] = "Alice Liddell"
	resp, body = a.do(t, http.MethodPost, "/api/v1/users/alice/review", form)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"1 field changed"`)

	resp, body = a.do(t, http.MethodPost, "/api/v1/users/alice/review/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	u, _ := a.backend.User("alice")
	assert.Equal(t, "Alice Liddell", u.Name)
}

func TestUsers_DeleteNeedsConfirm(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)

	resp, body := a.do(t, http.MethodDelete, "/api/v1/users/alice", nil)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
	assert.Equal(t, mutation.ErrDeclined.Error(), errorOf(t, body))

	resp, _ = a.do(t, http.MethodDelete, "/api/v1/users/alice?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, found := a.backend.User("alice")
	assert.False(t, found)
}

func TestUsers_BackendDetailIsSurfaced(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)

	resp, body := a.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"username": "alice", "name": "Again", "email": "a@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "username already exists", errorOf(t, body))

	resp, body = a.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "name is required", errorOf(t, body))
}

func TestUsers_UnknownUser(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)
	resp, _ := a.do(t, http.MethodGet, "/api/v1/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ─── Access ──────────────────────────────────────────────────

func TestAccess_AssignPermission(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)
	a.backend.SeedPermission(models.Permission{Name: "read"})

	resp, body := a.do(t, http.MethodPut, "/api/v1/access/roles/VIEWER/permissions/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Role models.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []string{"read"}, out.Role.PermissionNames())
}

// ─── Agents & tools ──────────────────────────────────────────

func TestAgents_CreateAndToggleTool(t *testing.T) {
	a := newAPI(t)
	search := models.NewToolDefinition()
	search.ToolID = "search"
	a.backend.SeedTool(search)

	resp, body := a.do(t, http.MethodGet, "/api/v1/agents/new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var form map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &form))
	form["agent_code"] = "BOT1"

	resp, body = a.do(t, http.MethodPost, "/api/v1/agents", form)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = a.do(t, http.MethodPost, "/api/v1/tools/agents/BOT1/search/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Tools []struct {
			ToolID string `json:"tool_id"`
			Active bool   `json:"active"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Tools, 1)
	assert.True(t, out.Tools[0].Active)
	assert.Equal(t, []string{"search"}, a.backend.EnabledTools("BOT1"))
}

func TestAgents_CreateNeedsCode(t *testing.T) {
	a := newAPI(t)
	resp, body := a.do(t, http.MethodPost, "/api/v1/agents", map[string]interface{}{"model": "m"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "agent_code is required", errorOf(t, body))
	assert.Empty(t, a.backend.Calls())
}

// ─── Dashboard & logs ────────────────────────────────────────

func TestDashboard(t *testing.T) {
	a := newAPI(t)
	seed(a.backend)
	a.backend.SetUsage(10)

	resp, body := a.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var d struct {
		Users int `json:"users"`
		Usage int `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 1, d.Users)
	assert.Equal(t, 10, d.Usage)
}

func TestLogs_SelectAndPage(t *testing.T) {
	a := newAPI(t)
	a.backend.SeedAgent(models.Agent{AgentCode: "BOT1"})
	for i := 0; i < 12; i++ {
		a.backend.SeedLogs("BOT1", models.LogEntry{"username": "alice"})
	}

	resp, body := a.do(t, http.MethodPut, "/api/v1/logs/selection", map[string]string{"agent": "BOT1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page struct {
		Visible     int  `json:"visible"`
		Total       int  `json:"total"`
		CanLoadMore bool `json:"can_load_more"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 10, page.Visible)
	assert.Equal(t, 12, page.Total)
	assert.True(t, page.CanLoadMore)

	_, body = a.do(t, http.MethodPost, "/api/v1/logs/more", nil)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 12, page.Visible)
	assert.False(t, page.CanLoadMore)
}
