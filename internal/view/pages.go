package view

import (
	"math"
	"sort"
	"strings"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// ── Users & access ──────────────────────────────────────────

func userName(u models.User) string { return u.Name }

func userGroup(u models.User) string {
	if len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0].Name
}

// Users filters users on name and username and orders them by mode.
func Users(users []models.User, query string, mode SortMode) []models.User {
	filtered := Filter(users, query, userName, func(u models.User) string { return u.Username })
	return Sort(filtered, mode, userName, userGroup)
}

// RoleAccess splits the permission registry into the permissions the role
// holds and the ones it could be granted.
func RoleAccess(role models.Role, registry []models.Permission) Partitioned[models.Permission] {
	return Partition(registry, role.PermissionNames(), func(p models.Permission) string { return p.Name })
}

// UserRoles splits the role registry into the user's roles and the rest.
func UserRoles(user models.User, roles []models.Role) Partitioned[models.Role] {
	return Partition(roles, user.RoleNames(), func(r models.Role) string { return r.Name })
}

// ── Agent tools ─────────────────────────────────────────────

// ToolState is one registry entry as seen from a selected agent.
type ToolState struct {
	models.ToolDefinition
	Active bool `json:"active"`
}

// AgentTools marks each registry definition active when enabled for the
// agent, in registry order.
func AgentTools(defs []models.ToolDefinition, enabled []string) []ToolState {
	on := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		on[id] = true
	}
	out := make([]ToolState, 0, len(defs))
	for _, d := range defs {
		out = append(out, ToolState{ToolDefinition: d, Active: on[d.ToolID]})
	}
	return out
}

// Agents filters agents on code and model, ordered by agent code.
func Agents(agents []models.Agent, query string) []models.Agent {
	code := func(a models.Agent) string { return a.AgentCode }
	filtered := Filter(agents, query, code, func(a models.Agent) string { return a.Model })
	return Sort(filtered, SortAlpha, code, code)
}

// ── Logs ────────────────────────────────────────────────────

// DefaultPageSize is the log page increment.
const DefaultPageSize = 10

// Paging is the "load more" window over a log list.
type Paging struct {
	Visible int `json:"visible"`
	Size    int `json:"size"`
}

// FirstPage returns the initial window. A non-positive size uses
// DefaultPageSize.
func FirstPage(size int) Paging {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Paging{Visible: size, Size: size}
}

// Next grows the window by one page.
func (p Paging) Next() Paging {
	p.Visible += p.Size
	return p
}

// Reset shrinks the window back to one page.
func (p Paging) Reset() Paging {
	return FirstPage(p.Size)
}

// LogPage is the visible slice of an agent's logs.
type LogPage struct {
	Entries     []models.LogEntry `json:"entries"`
	Visible     int               `json:"visible"`
	Total       int               `json:"total"`
	CanLoadMore bool              `json:"can_load_more"`
	CanLoadLess bool              `json:"can_load_less"`
}

// Logs keeps the entries belonging to user (all when empty) and cuts them
// to the paging window.
func Logs(entries []models.LogEntry, user string, p Paging) LogPage {
	if p.Size <= 0 {
		p = FirstPage(p.Size)
	}
	filtered := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.MatchesUser(user) {
			filtered = append(filtered, e)
		}
	}
	n := p.Visible
	if n > len(filtered) {
		n = len(filtered)
	}
	if n < 0 {
		n = 0
	}
	return LogPage{
		Entries:     filtered[:n],
		Visible:     n,
		Total:       len(filtered),
		CanLoadMore: p.Visible < len(filtered),
		CanLoadLess: p.Visible > p.Size,
	}
}

// ── Dashboard ───────────────────────────────────────────────

// AgentUsage is one bar of the usage distribution.
type AgentUsage struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TrendPoint is one bucket of the request trend.
type TrendPoint struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// DashboardView is the summary shown on the landing page.
type DashboardView struct {
	Users        int          `json:"users"`
	Agents       int          `json:"agents"`
	Usage        int          `json:"usage"`
	Distribution []AgentUsage `json:"distribution"`
	Trend        []TrendPoint `json:"trend"`
}

var trendBuckets = []struct {
	time   string
	factor float64
}{
	{"08:00", 0.4},
	{"12:00", 1},
	{"16:00", 0.9},
	{"20:00", 1.1},
}

// Dashboard summarizes users, agents and the backend usage counter.
func Dashboard(users []models.User, agents []models.Agent, usage models.Usage) DashboardView {
	v := DashboardView{
		Users:        len(users),
		Agents:       len(agents),
		Usage:        usage.Total,
		Distribution: make([]AgentUsage, 0, len(agents)),
		Trend:        make([]TrendPoint, 0, len(trendBuckets)),
	}

	for _, a := range agents {
		name := a.AgentCode
		if name == "" {
			name = a.Name
		}
		if name == "" {
			name = "node"
		}
		count := 0
		if a.UsageCount != nil {
			count = int(*a.UsageCount)
		}
		v.Distribution = append(v.Distribution, AgentUsage{Name: strings.ToUpper(name), Value: count})
	}
	sort.SliceStable(v.Distribution, func(i, j int) bool {
		return v.Distribution[i].Value > v.Distribution[j].Value
	})

	for _, b := range trendBuckets {
		v.Trend = append(v.Trend, TrendPoint{
			Time:     b.time,
			Requests: int(math.Floor(float64(usage.Total) * b.factor)),
		})
	}
	return v
}
