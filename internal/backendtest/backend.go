// Package backendtest provides an in-memory fake of the remote admin
// backend for tests. It speaks the same REST contract, records every call,
// and can be told to fail or hold specific requests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/agentoven/agentoven/console/pkg/models"
	"github.com/go-chi/chi/v5"
)

// Call is one request the backend received.
type Call struct {
	Method string
	Path   string // escaped form, as sent on the wire
	Query  url.Values
	Body   []byte
}

type failure struct {
	status int
	body   string
}

// Backend is the fake admin backend.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	users       []models.User
	roles       []models.Role
	permissions []models.Permission
	agents      []models.Agent
	tools       []models.ToolDefinition
	bindings    map[string][]string          // key: agent_code
	logs        map[string][]models.LogEntry // key: agent_code
	usage       int
	nextID      int

	calls    []Call
	failures map[string][]failure       // key: "METHOD path"
	holds    map[string]chan struct{}   // key: "METHOD path"
	arrived  map[string]chan struct{}   // closed when a held request arrives

	// Envelope wraps list responses in {"<collection>": [...]}.
	Envelope bool
	// BareRefs sends roles and permissions embedded in users/roles as bare
	// name strings instead of objects.
	BareRefs bool
}

// New starts a fake backend. It is closed when the test ends.
func New(t interface {
	Cleanup(func())
}) *Backend {
	b := &Backend{
		bindings: make(map[string][]string),
		logs:     make(map[string][]models.LogEntry),
		failures: make(map[string][]failure),
		holds:    make(map[string]chan struct{}),
		arrived:  make(map[string]chan struct{}),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", b.listUsers)
		r.Post("/", b.createUser)
		r.Patch("/assign-roles", b.assignRoles)
		r.Patch("/remove-roles", b.removeRoles)
		r.Put("/{id}", b.updateUser)
		r.Delete("/{id}", b.deleteUser)
	})
	r.Route("/permissions", func(r chi.Router) {
		r.Get("/", b.listPermissions)
		r.Post("/", b.createPermission)
		r.Delete("/{name}", b.deletePermission)
	})
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", b.listRoles)
		r.Get("/{name}", b.getRole)
		r.Post("/{role}/assign-permission/{perm}", b.assignPermission)
		r.Delete("/{role}/remove-permission/{perm}", b.removePermission)
	})
	r.Route("/tools/definitions", func(r chi.Router) {
		r.Get("/", b.listTools)
		r.Post("/", b.createTool)
	})
	r.Route("/agent", func(r chi.Router) {
		r.Get("/list", b.listAgents)
		r.Get("/agents", b.listAgentCodes)
		r.Get("/usage", b.getUsage)
		r.Post("/config", b.createAgent)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/config", b.updateAgent)
			r.Delete("/", b.deleteAgent)
			r.Post("/invoke", b.invoke)
			r.Route("/tools", func(r chi.Router) {
				r.Get("/", b.getAgentTools)
				r.Post("/enable", b.enableTool)
				r.Post("/execute", b.executeTool)
				r.Post("/discover", b.discoverTools)
				r.Get("/logs", b.getLogs)
				r.Delete("/{tool}", b.disableTool)
			})
		})
	})
	return r
}

// ── Failure injection & inspection ───────────────────────────

// FailNext makes the next request to method+path answer with status and
// {"detail": detail}. path is the unescaped path.
func (b *Backend) FailNext(method, path string, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	b.FailNextRaw(method, path, status, string(body))
}

// FailNextRaw is FailNext with a verbatim response body.
func (b *Backend) FailNextRaw(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], failure{status: status, body: body})
}

// Hold makes requests to method+path block until release is called. The
// returned arrived channel is closed once the first such request is being
// held.
func (b *Backend) Hold(method, path string) (arrived <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	gate := make(chan struct{})
	seen := make(chan struct{})
	b.holds[key] = gate
	b.arrived[key] = seen
	var once sync.Once
	return seen, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, key)
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns a copy of every recorded request.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallCount counts recorded requests matching method and escaped path.
func (b *Backend) CallCount(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Body:   body,
		})
		var fail *failure
		if queue := b.failures[key]; len(queue) > 0 {
			f := queue[0]
			fail = &f
			b.failures[key] = queue[1:]
		}
		gate := b.holds[key]
		seen := b.arrived[key]
		if seen != nil {
			delete(b.arrived, key)
		}
		b.mu.Unlock()

		if gate != nil {
			if seen != nil {
				close(seen)
			}
			<-gate
		}
		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			io.WriteString(w, fail.body)
			return
		}

		r.Body = io.NopCloser(&bodyReader{data: body})
		next.ServeHTTP(w, r)
	})
}

type bodyReader struct {
	data []byte
	off  int
}

func (br *bodyReader) Read(p []byte) (int, error) {
	if br.off >= len(br.data) {
		return 0, io.EOF
	}
	n := copy(p, br.data[br.off:])
	br.off += n
	return n, nil
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func (b *Backend) respondList(w http.ResponseWriter, key string, items interface{}) {
	if b.Envelope {
		respondJSON(w, http.StatusOK, map[string]interface{}{key: items})
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// param returns the unescaped URL parameter.
func param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (b *Backend) newID() models.ID {
	b.nextID++
	return models.ID(strconv.Itoa(b.nextID))
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}
