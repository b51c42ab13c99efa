package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// ── Tool registry ────────────────────────────────────────────

// ListToolDefinitions returns the global tool registry.
func (c *Client) ListToolDefinitions(ctx context.Context, enabledOnly bool) ([]models.ToolDefinition, error) {
	q := url.Values{"enabled_only": {strconv.FormatBool(enabledOnly)}}
	return list[models.ToolDefinition](ctx, c, "/tools/definitions", q, "definitions", "tools")
}

func (c *Client) CreateToolDefinition(ctx context.Context, def models.ToolDefinition) error {
	return c.do(ctx, http.MethodPost, "/tools/definitions", nil, def, nil)
}

// ── Agent tool bindings ──────────────────────────────────────

// GetAgentTools returns the ids of the tools enabled for the agent. A
// response without an enabled_tools list counts as none enabled.
func (c *Client) GetAgentTools(ctx context.Context, agentCode string) (models.AgentToolBinding, error) {
	var raw json.RawMessage
	path := "/agent/" + seg(agentCode) + "/tools"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return models.AgentToolBinding{}, err
	}
	tools, err := decodeList[json.RawMessage](raw, "enabled_tools")
	if err != nil {
		return models.AgentToolBinding{}, fmt.Errorf("decode GET %s: %w", path, err)
	}

	ids := make([]string, 0, len(tools))
	for _, item := range tools {
		var v interface{}
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		if obj, ok := v.(map[string]interface{}); ok {
			v = obj["tool_id"]
		}
		if id := models.String(v); id != "" {
			ids = append(ids, id)
		}
	}
	return models.AgentToolBinding{AgentCode: agentCode, EnabledTools: ids}, nil
}

// EnableTool links a registry tool to the agent.
func (c *Client) EnableTool(ctx context.Context, agentCode, toolID string, credentials map[string]interface{}) error {
	if credentials == nil {
		credentials = map[string]interface{}{}
	}
	body := models.EnableToolRequest{ToolID: toolID, Credentials: credentials}
	return c.do(ctx, http.MethodPost, "/agent/"+seg(agentCode)+"/tools/enable", nil, body, nil)
}

// DisableTool unlinks a tool from the agent.
func (c *Client) DisableTool(ctx context.Context, agentCode, toolID string) error {
	return c.do(ctx, http.MethodDelete, "/agent/"+seg(agentCode)+"/tools/"+seg(toolID), nil, nil, nil)
}

// ExecuteTool runs a tool through the agent for manual testing.
func (c *Client) ExecuteTool(ctx context.Context, agentCode string, payload interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/agent/"+seg(agentCode)+"/tools/execute", nil, payload, &out)
	return out, err
}

// DiscoverTools asks the backend to scan for tool paths the agent can use.
func (c *Client) DiscoverTools(ctx context.Context, agentCode string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/agent/"+seg(agentCode)+"/tools/discover", nil, map[string]interface{}{}, &out)
	return out, err
}
