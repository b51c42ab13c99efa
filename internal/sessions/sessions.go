// Package sessions provides the console's in-memory login gate. It only
// decides whether the pages are shown; it does not authenticate against the
// backend and is not a security boundary.
package sessions

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmailRequired is returned by Login for a blank email.
var ErrEmailRequired = errors.New("email is required")

// Session is one logged-in browser.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Gate is a thread-safe in-memory set of sessions.
type Gate struct {
	mu       sync.RWMutex
	sessions map[string]*Session // key: token
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{
		sessions: make(map[string]*Session),
	}
}

// Login opens a session for email.
func (g *Gate) Login(email string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, ErrEmailRequired
	}
	now := time.Now().UTC()
	s := &Session{
		Token:     uuid.New().String(),
		Email:     email,
		CreatedAt: now,
		LastSeen:  now,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.Token] = s
	return *s, nil
}

// Logout closes the session.
func (g *Gate) Logout(token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.sessions[token]; !exists {
		return fmt.Errorf("session %s not found", token)
	}
	delete(g.sessions, token)
	return nil
}

// Authenticated reports whether token belongs to an open session.
func (g *Gate) Authenticated(token string) bool {
	_, err := g.Get(token)
	return err == nil
}

// Get returns the session for token and marks it as seen.
func (g *Gate) Get(token string) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[token]
	if !ok || token == "" {
		return Session{}, fmt.Errorf("session %s not found", token)
	}
	s.LastSeen = time.Now().UTC()
	return *s, nil
}

// Expire closes every session not seen since before and returns their
// tokens.
func (g *Gate) Expire(before time.Time) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tokens []string
	for token, s := range g.sessions {
		if s.LastSeen.Before(before) {
			delete(g.sessions, token)
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Count returns the number of open sessions.
func (g *Gate) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}
