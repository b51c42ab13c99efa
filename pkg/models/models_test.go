package models_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRef_DecodesBothShapes(t *testing.T) {
	var u models.User
	body := `{"username":"alice","roles":["EDITOR",{"name":"ADMIN","description":"all"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &u))

	assert.Equal(t, []string{"EDITOR", "ADMIN"}, u.RoleNames())
	assert.Equal(t, "all", u.Roles[1].Description)
	assert.True(t, u.HasRole("EDITOR"))
	assert.False(t, u.HasRole("VIEWER"))
}

func TestPermissionRef_DecodesBothShapes(t *testing.T) {
	var r models.Role
	body := `{"name":"EDITOR","permissions":[{"name":"read"},"write"]}`
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	assert.Equal(t, []string{"read", "write"}, r.PermissionNames())
}

func TestRoleRef_RejectsNumbers(t *testing.T) {
	var ref models.RoleRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestID_StringOrNumber(t *testing.T) {
	var a models.Agent
	require.NoError(t, json.Unmarshal([]byte(`{"id":17,"agent_code":"BOT1"}`), &a))
	assert.Equal(t, models.ID("17"), a.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","agent_code":"BOT1"}`), &a))
	assert.Equal(t, models.ID("abc"), a.ID)
}

func TestAgent_MutationID(t *testing.T) {
	tests := []struct {
		name  string
		agent models.Agent
		want  string
	}{
		{"id wins", models.Agent{ID: "1", AgentID: "2", AgentCode: "BOT"}, "1"},
		{"agent_id when no id", models.Agent{AgentID: "2", AgentCode: "BOT"}, "2"},
		{"agent_code last", models.Agent{AgentCode: "BOT"}, "BOT"},
		{"nothing", models.Agent{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.agent.MutationID())
		})
	}
}

func TestUsage_Shapes(t *testing.T) {
	var u models.Usage
	require.NoError(t, json.Unmarshal([]byte(`{"usage": 42}`), &u))
	assert.Equal(t, 42, u.Total)

	require.NoError(t, json.Unmarshal([]byte(`17`), &u))
	assert.Equal(t, 17, u.Total)
}

func TestLogEntry_Accessors(t *testing.T) {
	var e models.LogEntry
	body := `{"user_id": 7, "username": "alice", "timestamp": "t0", "input": "hi", "tool": "search", "agent_code": "BOT"}`
	require.NoError(t, json.Unmarshal([]byte(body), &e))

	assert.Equal(t, "7", e.UserID())
	assert.Equal(t, "hi", e.Text())
	assert.True(t, e.MatchesUser("7"))
	assert.True(t, e.MatchesUser("alice"))
	assert.True(t, e.MatchesUser(""))
	assert.False(t, e.MatchesUser("bob"))
	assert.False(t, e.Failed())

	meta := e.Metadata()
	require.Len(t, meta, 2)
	assert.Equal(t, "input", meta[0].Key)
	assert.Equal(t, "tool", meta[1].Key)
}

func TestString_Scalars(t *testing.T) {
	assert.Equal(t, "", models.String(nil))
	assert.Equal(t, "0.7", models.String(0.7))
	assert.Equal(t, "1000", models.String(float64(1000)))
	assert.Equal(t, "false", models.String(false))
	assert.Equal(t, `["a"]`, models.String([]interface{}{"a"}))
}

func TestNumber_RejectsNonFinite(t *testing.T) {
	for _, v := range []interface{}{"NaN", "Inf", "-Inf", "1e400", math.NaN(), math.Inf(1)} {
		_, ok := models.Number(v)
		assert.False(t, ok, "%v", v)
	}
	n, ok := models.Number(" 0.25 ")
	require.True(t, ok)
	assert.Equal(t, 0.25, n)
}
