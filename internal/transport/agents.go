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

// ── Agents ───────────────────────────────────────────────────

// ListAgents returns every agent with its full configuration.
func (c *Client) ListAgents(ctx context.Context) ([]models.Agent, error) {
	return list[models.Agent](ctx, c, "/agent/list", nil, "agents")
}

// ListAgentCodes returns just the agent codes.
func (c *Client) ListAgentCodes(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/agent/agents", nil, nil, &raw); err != nil {
		return nil, err
	}
	codes, err := decodeList[json.RawMessage](raw, "agent_codes", "agents")
	if err != nil {
		return nil, fmt.Errorf("decode GET /agent/agents: %w", err)
	}
	out := make([]string, 0, len(codes))
	for _, item := range codes {
		var v interface{}
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		switch t := v.(type) {
		case map[string]interface{}:
			out = append(out, models.String(t["agent_code"]))
		default:
			out = append(out, models.String(t))
		}
	}
	return out, nil
}

func (c *Client) CreateAgent(ctx context.Context, a models.Agent) error {
	return c.do(ctx, http.MethodPost, "/agent/config", nil, a, nil)
}

// UpdateAgent replaces the configuration of the agent addressed by id. Use
// Agent.MutationID to obtain id.
func (c *Client) UpdateAgent(ctx context.Context, id string, a models.Agent) error {
	return c.do(ctx, http.MethodPut, "/agent/"+seg(id)+"/config", nil, a, nil)
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agent/"+seg(id), nil, nil, nil)
}

// InvokeAgent sends one input to the agent and returns the raw answer.
func (c *Client) InvokeAgent(ctx context.Context, agentCode string, input interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/agent/"+seg(agentCode)+"/invoke", nil, models.InvokeRequest{Input: input}, &out)
	return out, err
}

// GetLogs returns up to limit log entries of the agent.
func (c *Client) GetLogs(ctx context.Context, agentCode string, limit int) ([]models.LogEntry, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	return list[models.LogEntry](ctx, c, "/agent/"+seg(agentCode)+"/tools/logs", q, "logs")
}

func (c *Client) GetUsage(ctx context.Context) (models.Usage, error) {
	var u models.Usage
	err := c.do(ctx, http.MethodGet, "/agent/usage", nil, nil, &u)
	return u, err
}
