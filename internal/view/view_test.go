package view

import (
	"encoding/json"
	"testing"

	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestFilter(t *testing.T) {
	users := []models.User{
		{Username: "alice", Name: "Alice Liddell"},
		{Username: "bob", Name: "Robert"},
		{Username: "carol"},
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, names(Users(users, "", SortAlpha)))
	assert.Equal(t, []string{"alice"}, names(Filter(users, "LIDD", userName)))
	assert.Equal(t, []string{"bob"}, names(Users(users, "rob", SortAlpha)))
	assert.Equal(t, []string{"carol"}, names(Users(users, "CAR", SortAlpha)), "matches username too")
	assert.Empty(t, Users(users, "zzz", SortAlpha))
}

func TestSort_Alpha(t *testing.T) {
	users := []models.User{
		{Username: "z", Name: "Zed"},
		{Username: "nameless"},
		{Username: "a", Name: "Amy"},
	}
	got := Users(users, "", SortAlpha)
	// Missing name sorts as "".
	assert.Equal(t, []string{"nameless", "a", "z"}, names(got))
	assert.Equal(t, "z", users[0].Username, "input untouched")
}

func TestSort_AlphaCollatesCase(t *testing.T) {
	users := []models.User{
		{Username: "z", Name: "Zed"},
		{Username: "a", Name: "amy"},
		{Username: "b", Name: "Bob"},
	}
	assert.Equal(t, []string{"a", "b", "z"}, names(Users(users, "", SortAlpha)))
}

func TestSort_ByGroupCollatesCase(t *testing.T) {
	users := []models.User{
		{Username: "ops", Roles: []models.RoleRef{{Name: "Ops"}}},
		{Username: "none"},
		{Username: "admin", Roles: []models.RoleRef{{Name: "admin"}}},
	}
	assert.Equal(t, []string{"admin", "ops", "none"}, names(Users(users, "", SortByGroup)))
}

func TestSort_ByGroupPutsRolelessLast(t *testing.T) {
	users := []models.User{
		{Username: "loner", Name: "A"},
		{Username: "viewer", Name: "B", Roles: []models.RoleRef{{Name: "VIEWER"}}},
		{Username: "admin", Name: "C", Roles: []models.RoleRef{{Name: "ADMIN"}, {Name: "VIEWER"}}},
		{Username: "other-loner", Name: "D"},
		{Username: "zulu", Name: "E", Roles: []models.RoleRef{{Name: "ZZZZ"}}},
	}
	got := Users(users, "", SortByGroup)
	assert.Equal(t, []string{"admin", "viewer", "zulu", "loner", "other-loner"}, names(got))
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, SortByGroup, ParseSortMode("by-group"))
	assert.Equal(t, SortAlpha, ParseSortMode("alpha"))
	assert.Equal(t, SortAlpha, ParseSortMode("nonsense"))
}

func TestPartition_Law(t *testing.T) {
	registry := []models.Permission{{Name: "read"}, {Name: "write"}, {Name: "delete"}, {Name: "admin"}}

	// The same role, once with bare refs and once with objects.
	var bare, objects models.Role
	require.NoError(t, json.Unmarshal([]byte(`{"name":"EDITOR","permissions":["write","read","legacy"]}`), &bare))
	require.NoError(t, json.Unmarshal([]byte(`{"name":"EDITOR","permissions":[{"name":"write"},{"name":"read"},{"name":"legacy"}]}`), &objects))

	for _, role := range []models.Role{bare, objects} {
		p := RoleAccess(role, registry)

		key := func(ps []models.Permission) []string {
			out := []string{}
			for _, x := range ps {
				out = append(out, x.Name)
			}
			return out
		}
		// Registry order, disjoint, union is the registry.
		assert.Equal(t, []string{"read", "write"}, key(p.Assigned))
		assert.Equal(t, []string{"delete", "admin"}, key(p.Available))
		assert.Len(t, append(p.Assigned, p.Available...), len(registry))
		assert.Equal(t, []string{"legacy"}, p.Orphans)
	}
}

func TestPartition_Empty(t *testing.T) {
	p := UserRoles(models.User{Username: "x"}, nil)
	assert.NotNil(t, p.Assigned)
	assert.NotNil(t, p.Available)
	assert.Empty(t, p.Orphans)
}

func TestUserRoles(t *testing.T) {
	roles := []models.Role{{Name: "ADMIN"}, {Name: "EDITOR"}, {Name: "VIEWER"}}
	alice := models.User{Username: "alice", Roles: []models.RoleRef{{Name: "EDITOR"}}}

	p := UserRoles(alice, roles)
	require.Len(t, p.Assigned, 1)
	assert.Equal(t, "EDITOR", p.Assigned[0].Name)
	assert.Len(t, p.Available, 2)
}

func TestAgentTools(t *testing.T) {
	defs := []models.ToolDefinition{{ToolID: "search"}, {ToolID: "calc"}, {ToolID: "mail"}}
	got := AgentTools(defs, []string{"mail", "search"})
	require.Len(t, got, 3)
	assert.True(t, got[0].Active)
	assert.False(t, got[1].Active)
	assert.True(t, got[2].Active)
}

func TestLogs_Paging(t *testing.T) {
	var entries []models.LogEntry
	for i := 0; i < 25; i++ {
		user := "alice"
		if i%5 == 0 {
			user = "bob"
		}
		entries = append(entries, models.LogEntry{"username": user, "user_id": float64(i % 5)})
	}

	p := FirstPage(0)
	assert.Equal(t, DefaultPageSize, p.Size)

	page := Logs(entries, "", p)
	assert.Equal(t, 10, page.Visible)
	assert.Equal(t, 25, page.Total)
	assert.True(t, page.CanLoadMore)
	assert.False(t, page.CanLoadLess)

	p = p.Next().Next()
	page = Logs(entries, "", p)
	assert.Equal(t, 25, page.Visible)
	assert.False(t, page.CanLoadMore)
	assert.True(t, page.CanLoadLess)

	page = Logs(entries, "", p.Reset())
	assert.Equal(t, 10, page.Visible)
}

func TestLogs_UserFilter(t *testing.T) {
	entries := []models.LogEntry{
		{"username": "alice", "message": "a"},
		{"user_id": float64(7), "message": "b"},
		{"username": "bob", "message": "c"},
	}
	page := Logs(entries, "alice", FirstPage(10))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "a", page.Entries[0].Text())

	// user_id compared as string.
	page = Logs(entries, "7", FirstPage(10))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "b", page.Entries[0].Text())
}

func TestDashboard(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	users := []models.User{{Username: "a"}, {Username: "b"}}
	agents := []models.Agent{
		{AgentCode: "low", UsageCount: f(3)},
		{AgentCode: "none"},
		{AgentCode: "high", UsageCount: f(40)},
		{AgentCode: "mid", UsageCount: f(3)},
	}

	d := Dashboard(users, agents, models.Usage{Total: 10})
	assert.Equal(t, 2, d.Users)
	assert.Equal(t, 4, d.Agents)
	assert.Equal(t, 10, d.Usage)
	assert.Equal(t, []AgentUsage{
		{Name: "HIGH", Value: 40},
		{Name: "LOW", Value: 3},
		{Name: "MID", Value: 3},
		{Name: "NONE", Value: 0},
	}, d.Distribution)
	assert.Equal(t, []TrendPoint{
		{Time: "08:00", Requests: 4},
		{Time: "12:00", Requests: 10},
		{Time: "16:00", Requests: 9},
		{Time: "20:00", Requests: 11},
	}, d.Trend)
}

func TestDashboard_NameFallback(t *testing.T) {
	d := Dashboard(nil, []models.Agent{{Name: "helper"}, {}}, models.Usage{})
	assert.Equal(t, []AgentUsage{{Name: "HELPER"}, {Name: "NODE"}}, d.Distribution)
}

func TestDashboard_Empty(t *testing.T) {
	d := Dashboard(nil, nil, models.Usage{})
	assert.Empty(t, d.Distribution)
	assert.Len(t, d.Trend, 4)
	for _, p := range d.Trend {
		assert.Zero(t, p.Requests)
	}
}
