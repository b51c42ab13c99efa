package mutation

import (
	"math"
	"strings"

	"github.com/agentoven/agentoven/console/pkg/models"
)

// Form is the loosely typed field map an edit buffer or a request body
// produces.
type Form map[string]interface{}

func (f Form) str(key string) string {
	return strings.TrimSpace(models.String(f[key]))
}

func (f Form) strOr(key, def string) string {
	if s := f.str(key); s != "" {
		return s
	}
	return def
}

func (f Form) boolean(key string, def bool) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	case float64:
		return v != 0
	}
	return def
}

// intOr returns the field as an int, or def when it is absent, unparsable,
// zero or outside the int32 range.
func (f Form) intOr(key string, def int) int {
	if n, ok := models.Number(f[key]); ok && n != 0 && n >= math.MinInt32 && n <= math.MaxInt32 {
		return int(n)
	}
	return def
}

func (f Form) floatOr(key string, def float64) float64 {
	if n, ok := models.Number(f[key]); ok && n != 0 {
		return n
	}
	return def
}

func (f Form) strings(key string) []string {
	out := []string{}
	switch v := f[key].(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for _, item := range v {
			if ref, ok := item.(map[string]interface{}); ok {
				item = ref["name"]
			}
			if s := models.String(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (f Form) object(key string) (map[string]interface{}, bool) {
	m, ok := f[key].(map[string]interface{})
	return m, ok
}

// AgentPayload builds the agent configuration sent on create and update.
// Numeric RAG settings fall back to their defaults when absent, unparsable
// or zero; temperature stays unset unless it parses.
func AgentPayload(form Form) (models.Agent, error) {
	a := models.Agent{
		ID:                  models.ID(form.str("id")),
		AgentID:             models.ID(form.str("agent_id")),
		AgentCode:           form.str("agent_code"),
		Name:                form.str("name"),
		SystemPrompt:        models.String(form["system_prompt"]),
		Model:               form.str("model"),
		RAGEnabled:          form.boolean("rag_enabled", false),
		EmbeddingModel:      form.strOr("embedding_model", models.DefaultEmbeddingModel),
		ChunkSize:           form.intOr("chunk_size", models.DefaultChunkSize),
		ChunkOverlap:        form.intOr("chunk_overlap", models.DefaultChunkOverlap),
		MaxChunksRetrieved:  form.intOr("max_chunks_retrieved", models.DefaultMaxChunksRetrieved),
		SimilarityThreshold: form.floatOr("similarity_threshold", models.DefaultSimilarityThreshold),
		EnabledTools:        form.strings("enabled_tools"),
		ToolCredentials:     map[string]interface{}{},
		Type:                form.str("type"),
		RAGType:             form.strOr("rag_type", models.DefaultRAGType),
		RAGConfig:           models.DefaultRAGConfig(),
	}
	if a.AgentCode == "" {
		return models.Agent{}, required("agent_code")
	}
	if t, ok := models.Number(form["temperature"]); ok {
		a.Temperature = &t
	}
	if creds, ok := form.object("tool_credentials"); ok {
		a.ToolCredentials = creds
	}
	if cfg, ok := form.object("rag_config"); ok {
		a.RAGConfig = cfg
	}
	return a, nil
}

// NewAgentForm is the create form pre-filled with the console defaults.
func NewAgentForm() Form {
	return Form{
		"agent_code":           "",
		"system_prompt":        models.DefaultSystemPrompt,
		"model":                models.DefaultModel,
		"temperature":          0.7,
		"rag_enabled":          false,
		"embedding_model":      models.DefaultEmbeddingModel,
		"chunk_size":           models.DefaultChunkSize,
		"chunk_overlap":        models.DefaultChunkOverlap,
		"max_chunks_retrieved": models.DefaultMaxChunksRetrieved,
		"similarity_threshold": models.DefaultSimilarityThreshold,
		"enabled_tools":        []string{},
		"tool_credentials":     map[string]interface{}{},
		"type":                 models.DefaultAgentType,
		"rag_type":             models.DefaultRAGType,
		"rag_config":           models.DefaultRAGConfig(),
	}
}

// UserPayload builds a user for create or full update. Username, name and
// email are required.
func UserPayload(form Form) (models.User, error) {
	u := models.User{
		ID:             models.ID(form.str("id")),
		Username:       form.str("username"),
		Name:           form.str("name"),
		Email:          form.str("email"),
		Department:     form.str("department"),
		Title:          form.str("title"),
		EmployeeNumber: form.str("employeenumber"),
		Company:        form.str("company"),
		Division:       form.str("division"),
		IsActive:       form.boolean("is_active", true),
		Roles:          []models.RoleRef{},
	}
	for _, name := range form.strings("roles") {
		u.Roles = append(u.Roles, models.RoleRef{Name: name})
	}
	for _, f := range []struct{ field, value string }{
		{"username", u.Username},
		{"name", u.Name},
		{"email", u.Email},
	} {
		if f.value == "" {
			return models.User{}, required(f.field)
		}
	}
	return u, nil
}

// PermissionPayload validates a new registry permission.
func PermissionPayload(name, description string) (models.Permission, error) {
	p := models.Permission{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if p.Name == "" {
		return models.Permission{}, required("name")
	}
	return p, nil
}

// ToolPayload builds a registry definition over the registration defaults.
func ToolPayload(form Form) (models.ToolDefinition, error) {
	d := models.NewToolDefinition()
	d.ToolID = form.str("tool_id")
	d.Name = form.str("name")
	d.Description = form.str("description")
	d.Version = form.strOr("version", d.Version)
	d.BaseURL = form.str("base_url")
	d.EndpointPath = form.str("endpoint_path")
	d.HTTPMethod = strings.ToUpper(form.strOr("http_method", d.HTTPMethod))
	d.AuthenticationType = form.strOr("authentication_type", d.AuthenticationType)
	d.Timeout = form.intOr("timeout", d.Timeout)
	d.RetryCount = form.intOr("retry_count", d.RetryCount)
	d.Enabled = form.boolean("enabled", d.Enabled)
	if m, ok := form.object("authentication_config"); ok {
		d.AuthenticationConfig = m
	}
	if m, ok := form.object("headers"); ok {
		d.Headers = m
	}
	if m, ok := form.object("request_body_schema"); ok {
		d.RequestBodySchema = m
	}
	if m, ok := form.object("response_schema"); ok {
		d.ResponseSchema = m
	}
	if params, ok := form["parameters"].([]interface{}); ok {
		for _, p := range params {
			if m, ok := p.(map[string]interface{}); ok {
				d.Parameters = append(d.Parameters, m)
			}
		}
	}

	for _, f := range []struct{ field, value string }{
		{"tool_id", d.ToolID},
		{"name", d.Name},
		{"base_url", d.BaseURL},
		{"endpoint_path", d.EndpointPath},
	} {
		if f.value == "" {
			return models.ToolDefinition{}, required(f.field)
		}
	}
	return d, nil
}
