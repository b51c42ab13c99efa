// Package models holds the entities of the admin backend as the console sees
// them. The backend owns every one of them; the console only keeps transient,
// re-fetchable copies.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ── Identifiers ──────────────────────────────────────────────

// ID is a backend identifier. The backend sends it either as a JSON string
// or as a number; both decode into the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: expected string or number, got %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// ── Permissions & Roles ──────────────────────────────────────

// Permission is an entry of the global permission registry.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PermissionRef is a permission as embedded in a role. The backend sends
// either the bare name or the full object; both decode into this shape.
type PermissionRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (p *PermissionRef) UnmarshalJSON(data []byte) error {
	name, desc, err := decodeRef(data)
	if err != nil {
		return fmt.Errorf("permission: %w", err)
	}
	p.Name, p.Description = name, desc
	return nil
}

// Role groups permissions. Name is the primary key.
type Role struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Permissions []PermissionRef `json:"permissions"`
}

// PermissionNames returns the names of the role's permissions in order.
func (r Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// RoleRef is a role as embedded in a user, normalized like PermissionRef.
type RoleRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r *RoleRef) UnmarshalJSON(data []byte) error {
	name, desc, err := decodeRef(data)
	if err != nil {
		return fmt.Errorf("role: %w", err)
	}
	r.Name, r.Description = name, desc
	return nil
}

// decodeRef accepts `"name"` or `{"name": ..., "description": ...}`.
func decodeRef(data []byte) (name, description string, err error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, "", nil
	}
	var obj struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", "", fmt.Errorf("expected name or object, got %s", string(data))
	}
	return obj.Name, obj.Description, nil
}

// ── Users ────────────────────────────────────────────────────

// User is a console user. Username is the natural key used by role
// assignment; ID addresses update and delete.
type User struct {
	ID             ID        `json:"id,omitempty"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Department     string    `json:"department,omitempty"`
	Title          string    `json:"title,omitempty"`
	EmployeeNumber string    `json:"employeenumber,omitempty"`
	Company        string    `json:"company,omitempty"`
	Division       string    `json:"division,omitempty"`
	IsActive       bool      `json:"is_active"`
	Roles          []RoleRef `json:"roles"`
}

// RoleNames returns the names of the user's roles in order.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// DisplayName is the name shown in lists, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// ── Agents ───────────────────────────────────────────────────

// Agent is the full configuration of one AI agent.
type Agent struct {
	ID                  ID                     `json:"id,omitempty"`
	AgentID             ID                     `json:"agent_id,omitempty"`
	AgentCode           string                 `json:"agent_code"`
	Name                string                 `json:"name,omitempty"`
	SystemPrompt        string                 `json:"system_prompt"`
	Model               string                 `json:"model"`
	Temperature         *float64               `json:"temperature,omitempty"`
	RAGEnabled          bool                   `json:"rag_enabled"`
	EmbeddingModel      string                 `json:"embedding_model"`
	ChunkSize           int                    `json:"chunk_size"`
	ChunkOverlap        int                    `json:"chunk_overlap"`
	MaxChunksRetrieved  int                    `json:"max_chunks_retrieved"`
	SimilarityThreshold float64                `json:"similarity_threshold"`
	EnabledTools        []string               `json:"enabled_tools"`
	ToolCredentials     map[string]interface{} `json:"tool_credentials"`
	Type                string                 `json:"type"`
	RAGType             string                 `json:"rag_type"`
	RAGConfig           map[string]interface{} `json:"rag_config"`
	UsageCount          *float64               `json:"usage_count,omitempty"`
}

// MutationID returns the identifier used in agent update and delete URLs.
// The backend does not return one identifier consistently, so the first
// non-empty of id, agent_id and agent_code wins.
func (a Agent) MutationID() string {
	switch {
	case a.ID != "":
		return a.ID.String()
	case a.AgentID != "":
		return a.AgentID.String()
	default:
		return a.AgentCode
	}
}

// HasTool reports whether toolID is in the agent's embedded tool list.
func (a Agent) HasTool(toolID string) bool {
	for _, t := range a.EnabledTools {
		if t == toolID {
			return true
		}
	}
	return false
}

// Agent defaults used when a form leaves a field empty or malformed.
const (
	DefaultModel               = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultSystemPrompt        = "You are a helpful assistant."
	DefaultEmbeddingModel      = "amazon.titan-embed-text-v1"
	DefaultChunkSize           = 1000
	DefaultChunkOverlap        = 200
	DefaultMaxChunksRetrieved  = 5
	DefaultSimilarityThreshold = 0.7
	DefaultRAGType             = "string"
	DefaultAgentType           = "general" // create form only; payloads send type as given
)

// DefaultRAGConfig is the placeholder rag_config the backend schema expects.
func DefaultRAGConfig() map[string]interface{} {
	return map[string]interface{}{"additionalProp1": map[string]interface{}{}}
}

// ── Tools ────────────────────────────────────────────────────

// ToolDefinition is an entry of the global tool registry, independent of
// any agent.
type ToolDefinition struct {
	ToolID               string                   `json:"tool_id"`
	Name                 string                   `json:"name"`
	Description          string                   `json:"description"`
	Version              string                   `json:"version"`
	BaseURL              string                   `json:"base_url"`
	EndpointPath         string                   `json:"endpoint_path"`
	HTTPMethod           string                   `json:"http_method"`
	AuthenticationType   string                   `json:"authentication_type"`
	AuthenticationConfig map[string]interface{}   `json:"authentication_config"`
	Headers              map[string]interface{}   `json:"headers"`
	Parameters           []map[string]interface{} `json:"parameters"`
	RequestBodySchema    map[string]interface{}   `json:"request_body_schema"`
	ResponseSchema       map[string]interface{}   `json:"response_schema"`
	Timeout              int                      `json:"timeout"`
	RetryCount           int                      `json:"retry_count"`
	Enabled              bool                     `json:"enabled"`
}

// NewToolDefinition returns a definition pre-filled with the registration
// defaults.
func NewToolDefinition() ToolDefinition {
	return ToolDefinition{
		Version:              "1.0.0",
		HTTPMethod:           "GET",
		AuthenticationType:   "none",
		AuthenticationConfig: map[string]interface{}{},
		Headers:              map[string]interface{}{},
		Parameters:           []map[string]interface{}{},
		RequestBodySchema:    map[string]interface{}{},
		ResponseSchema:       map[string]interface{}{},
		Timeout:              30,
		RetryCount:           3,
		Enabled:              true,
	}
}

// AgentToolBinding is the set of tools enabled for one agent. It is fetched
// on demand and never embedded in Agent.
type AgentToolBinding struct {
	AgentCode    string   `json:"agent_code"`
	EnabledTools []string `json:"enabled_tools"`
}

// EnableToolRequest is the body of the enable-tool call.
type EnableToolRequest struct {
	ToolID      string                 `json:"tool_id"`
	Credentials map[string]interface{} `json:"credentials"`
}

// InvokeRequest is the body of the invoke-agent call.
type InvokeRequest struct {
	Input interface{} `json:"input"`
}

// ── Usage ────────────────────────────────────────────────────

// Usage is the aggregate request counter of the backend.
type Usage struct {
	Total int `json:"usage"`
}

func (u *Usage) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		u.Total = int(n)
		return nil
	}
	var obj struct {
		Usage interface{} `json:"usage"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("usage: %w", err)
	}
	if f, ok := Number(obj.Usage); ok {
		u.Total = int(f)
	}
	return nil
}

// ── Values ───────────────────────────────────────────────────

// String renders a decoded JSON scalar the way it is shown in a form field.
// nil renders as the empty string.
func String(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Number interprets v as a finite number, accepting numeric strings. NaN,
// the infinities and out-of-range strings such as "1e400" are rejected.
func Number(v interface{}) (float64, bool) {
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Snapshot flattens an entity into its JSON field map.
func Snapshot(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return m, nil
}
