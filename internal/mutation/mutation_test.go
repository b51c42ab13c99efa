package mutation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/agentoven/agentoven/console/internal/backendtest"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/transport"
	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	notices []mutation.Notice
}

func (r *recorder) Notify(_ context.Context, n mutation.Notice) { r.notices = append(r.notices, n) }

func newOrchestrator(t *testing.T) (*mutation.Orchestrator, *recorder, *store.Store, *backendtest.Backend) {
	t.Helper()
	b := backendtest.New(t)
	rec := &recorder{}
	return mutation.New(mutation.WithNotifier(rec)), rec, store.New(transport.New(b.URL)), b
}

// ─── Orchestrator ────────────────────────────────────────────

func TestRun_Success(t *testing.T) {
	o, rec, s, b := newOrchestrator(t)
	ctx := context.Background()

	closed := false
	p := models.Permission{Name: "write"}
	a, err := o.Run(ctx, mutation.Mutation{
		Name:      "create permission",
		Key:       p.Name,
		Call:      func(ctx context.Context) error { return s.Client().CreatePermission(ctx, p) },
		Target:    s.Permissions,
		OnSuccess: func() { closed = true },
	})
	require.NoError(t, err)
	assert.Equal(t, []mutation.State{mutation.Idle, mutation.Validating, mutation.InFlight, mutation.Succeeded}, a.States())
	assert.False(t, a.Busy())
	assert.True(t, closed)
	assert.Len(t, s.Permissions.List(), 1, "target refreshed")
	assert.Equal(t, 1, b.CallCount(http.MethodPost, "/permissions/"))
	require.Len(t, rec.notices, 1)
	assert.True(t, rec.notices[0].OK)
}

func TestRun_CommittedEvenWhenRefreshFails(t *testing.T) {
	o, rec, s, b := newOrchestrator(t)
	ctx := context.Background()

	b.FailNext(http.MethodGet, "/users/", http.StatusServiceUnavailable, "list down")
	u := models.User{Username: "carol", Name: "Carol", Email: "carol@example.com"}
	a, err := o.Run(ctx, mutation.Mutation{
		Name:   "create user",
		Key:    u.Username,
		Call:   func(ctx context.Context) error { return s.Client().CreateUser(ctx, u) },
		Target: s.Users,
	})
	require.NoError(t, err)
	assert.Equal(t, mutation.Succeeded, a.State())
	require.Len(t, rec.notices, 1)
	assert.True(t, rec.notices[0].OK)
	assert.NotContains(t, rec.notices[0].Message, "list down")
	assert.False(t, s.Users.Loaded(), "cache is marked stale")
	assert.Equal(t, 1, b.CallCount(http.MethodPost, "/users/"))
}

func TestRun_ValidationNeverReachesNetwork(t *testing.T) {
	o, rec, s, b := newOrchestrator(t)

	a, err := o.Run(context.Background(), mutation.Mutation{
		Name: "create agent",
		Validate: func() error {
			_, err := mutation.AgentPayload(mutation.Form{"agent_code": "  "})
			return err
		},
		Call:   func(context.Context) error { t.Error("call issued"); return nil },
		Target: s.Agents,
	})
	var ve *mutation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "agent_code", ve.Field)
	assert.Equal(t, mutation.Failed, a.State())
	assert.Empty(t, b.Calls())
	require.Len(t, rec.notices, 1)
	assert.Equal(t, "agent_code is required", rec.notices[0].Message)
}

func TestRun_FailureNotifiesServerDetail(t *testing.T) {
	o, rec, s, b := newOrchestrator(t)
	ctx := context.Background()
	b.SeedUser(models.User{Username: "alice"})
	require.NoError(t, s.Users.Refresh(ctx))
	before := s.Users.List()

	calls := 0
	_, err := o.Run(ctx, mutation.Mutation{
		Name: "create user",
		Key:  "alice",
		Call: func(ctx context.Context) error {
			calls++
			return s.Client().CreateUser(ctx, models.User{Username: "alice", Name: "A", Email: "a@x"})
		},
		Target: s.Users,
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "no automatic retry")
	assert.Equal(t, before, s.Users.List())
	require.Len(t, rec.notices, 1)
	assert.False(t, rec.notices[0].OK)
	assert.Equal(t, "username already exists", rec.notices[0].Message)
}

func TestRun_DestructiveNeedsConfirmation(t *testing.T) {
	o, rec, s, b := newOrchestrator(t)
	ctx := context.Background()
	b.SeedPermission(models.Permission{Name: "write"})
	require.NoError(t, s.Permissions.Refresh(ctx))

	del := mutation.Mutation{
		Name:   "delete permission",
		Key:    "write",
		Prompt: "Delete permission write?",
		Call:   func(ctx context.Context) error { return s.Client().DeletePermission(ctx, "write") },
		Target: s.Permissions,
	}

	_, err := o.Run(ctx, del)
	assert.ErrorIs(t, err, mutation.ErrDeclined)
	assert.Zero(t, b.CallCount(http.MethodDelete, "/permissions/write"))
	assert.Empty(t, rec.notices)

	_, err = o.Run(mutation.Approve(ctx), del)
	require.NoError(t, err)
	assert.Equal(t, 1, b.CallCount(http.MethodDelete, "/permissions/write"))
	assert.Empty(t, s.Permissions.List())
}

func TestRun_CustomConfirmer(t *testing.T) {
	var prompts []string
	o := mutation.New(
		mutation.WithNotifier(mutation.NotifierFunc(func(context.Context, mutation.Notice) {})),
		mutation.WithConfirmer(mutation.ConfirmerFunc(func(_ context.Context, prompt string) bool {
			prompts = append(prompts, prompt)
			return true
		})),
	)
	ran := false
	_, err := o.Run(context.Background(), mutation.Mutation{
		Name:   "remove",
		Prompt: "Remove it?",
		Call:   func(context.Context) error { ran = true; return nil },
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"Remove it?"}, prompts)
}

// ─── Errors ──────────────────────────────────────────────────

func TestMessageAndStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		status  int
	}{
		{"validation", &mutation.ValidationError{Field: "name", Reason: "is required"}, "name is required", http.StatusBadRequest},
		{"busy", &store.ErrBusy{Entity: "user", Key: "alice"}, `user "alice" has a change in progress`, http.StatusConflict},
		{"remote", &transport.RemoteError{Status: 422, Detail: "agent_code: field required"}, "agent_code: field required", 422},
		{"network", &transport.NetworkError{Op: "GET /users/", Err: errors.New("connection refused")}, "backend unreachable: connection refused", http.StatusBadGateway},
		{"no changes", review.ErrNoChanges, "no changes detected", http.StatusBadRequest},
		{"declined", mutation.ErrDeclined, "action cancelled", http.StatusPreconditionRequired},
		{"not found", &store.ErrNotFound{Entity: "agent", Key: "x"}, "agent not found: x", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, mutation.Message(tt.err))
			assert.Equal(t, tt.status, mutation.StatusCode(tt.err))
		})
	}
	assert.Empty(t, mutation.Message(nil))
}

// ─── Payloads ────────────────────────────────────────────────

func TestAgentPayload_Defaults(t *testing.T) {
	a, err := mutation.AgentPayload(mutation.Form{
		"agent_code":           "BOT1",
		"chunk_size":           "",
		"temperature":          "warm",
		"chunk_overlap":        "0",
		"similarity_threshold": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, a.ChunkSize)
	assert.Equal(t, 200, a.ChunkOverlap)
	assert.Equal(t, 5, a.MaxChunksRetrieved)
	assert.Equal(t, 0.7, a.SimilarityThreshold)
	assert.Nil(t, a.Temperature)
	assert.Equal(t, "amazon.titan-embed-text-v1", a.EmbeddingModel)
	assert.Equal(t, "string", a.RAGType)
	assert.Equal(t, map[string]interface{}{"additionalProp1": map[string]interface{}{}}, a.RAGConfig)
	assert.NotNil(t, a.EnabledTools)
	assert.NotNil(t, a.ToolCredentials)
}

func TestAgentPayload_Coercion(t *testing.T) {
	a, err := mutation.AgentPayload(mutation.Form{
		"id":                   float64(42),
		"agent_code":           "BOT1",
		"temperature":          "0.2",
		"rag_enabled":          "true",
		"chunk_size":           "512",
		"similarity_threshold": 0.85,
		"enabled_tools":        []interface{}{"search", "calc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", a.MutationID())
	require.NotNil(t, a.Temperature)
	assert.Equal(t, 0.2, *a.Temperature)
	assert.True(t, a.RAGEnabled)
	assert.Equal(t, 512, a.ChunkSize)
	assert.Equal(t, 0.85, a.SimilarityThreshold)
	assert.Equal(t, []string{"search", "calc"}, a.EnabledTools)
}

func TestAgentPayload_NonFiniteFallsBack(t *testing.T) {
	a, err := mutation.AgentPayload(mutation.Form{
		"agent_code":           "X",
		"similarity_threshold": "NaN",
		"temperature":          "Inf",
		"chunk_size":           "NaN",
		"chunk_overlap":        "1e400",
		"max_chunks_retrieved": "-Inf",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.7, a.SimilarityThreshold)
	assert.Nil(t, a.Temperature)
	assert.Equal(t, 1000, a.ChunkSize)
	assert.Equal(t, 200, a.ChunkOverlap)
	assert.Equal(t, 5, a.MaxChunksRetrieved)

	_, err = json.Marshal(a)
	assert.NoError(t, err, "payload must stay encodable")
}

func TestAgentPayload_HugeIntFallsBack(t *testing.T) {
	a, err := mutation.AgentPayload(mutation.Form{"agent_code": "X", "chunk_size": "1e18"})
	require.NoError(t, err)
	assert.Equal(t, 1000, a.ChunkSize)
}

func TestAgentPayload_TypeIsNotDefaulted(t *testing.T) {
	a, err := mutation.AgentPayload(mutation.Form{"agent_code": "X"})
	require.NoError(t, err)
	assert.Equal(t, "", a.Type)
}

func TestNewAgentForm_RoundTrip(t *testing.T) {
	form := mutation.NewAgentForm()
	form["agent_code"] = "NEW"
	a, err := mutation.AgentPayload(form)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultModel, a.Model)
	assert.Equal(t, models.DefaultSystemPrompt, a.SystemPrompt)
	require.NotNil(t, a.Temperature)
	assert.Equal(t, 0.7, *a.Temperature)
	assert.Equal(t, "general", a.Type)
}

func TestUserPayload(t *testing.T) {
	_, err := mutation.UserPayload(mutation.Form{"username": "bob", "name": "Bob"})
	var ve *mutation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)

	u, err := mutation.UserPayload(mutation.Form{
		"username": " bob ", "name": "Bob", "email": "bob@x",
		"roles": []interface{}{"EDITOR"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.IsActive)
	assert.Equal(t, []string{"EDITOR"}, u.RoleNames())
}

func TestPermissionPayload(t *testing.T) {
	_, err := mutation.PermissionPayload("  ", "")
	assert.Error(t, err)
	p, err := mutation.PermissionPayload("ACCESS_ADMIN_PANEL", "admin")
	require.NoError(t, err)
	assert.Equal(t, "ACCESS_ADMIN_PANEL", p.Name)
}

func TestToolPayload(t *testing.T) {
	_, err := mutation.ToolPayload(mutation.Form{"tool_id": "search", "name": "Search"})
	var ve *mutation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "base_url", ve.Field)

	d, err := mutation.ToolPayload(mutation.Form{
		"tool_id": "search", "name": "Search",
		"base_url": "https://api.example.com", "endpoint_path": "/v1/search",
		"http_method": "post", "timeout": "60",
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", d.HTTPMethod)
	assert.Equal(t, 60, d.Timeout)
	assert.Equal(t, 3, d.RetryCount)
	assert.Equal(t, "1.0.0", d.Version)
	assert.True(t, d.Enabled)
}
