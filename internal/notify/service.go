// Package notify forwards mutation notices to an outgoing webhook, so an
// audit channel sees every change made through the console.
//
// Deliveries are JSON POSTs with optional HMAC-SHA256 signing and up to
// three attempts with growing backoff. They run in the background; a slow
// webhook never delays the mutation that produced the notice.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/rs/zerolog/log"
)

// ── Event types ─────────────────────────────────────────────

// EventType describes what happened.
type EventType string

const (
	EventMutationSucceeded EventType = "mutation_succeeded"
	EventMutationFailed    EventType = "mutation_failed"
)

// Event is the webhook payload.
type Event struct {
	Type      EventType `json:"type"`
	Mutation  string    `json:"mutation"`
	Key       string    `json:"key,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent converts a mutation notice.
func NewEvent(n mutation.Notice) Event {
	t := EventMutationSucceeded
	if !n.OK {
		t = EventMutationFailed
	}
	return Event{
		Type:      t,
		Mutation:  n.Mutation,
		Key:       n.Key,
		Message:   n.Message,
		Timestamp: time.Now().UTC(),
	}
}

// ── Webhook ──────────────────────────────────────────────────

const attempts = 3

// Webhook posts events to URL. It implements mutation.Notifier.
type Webhook struct {
	URL    string
	Secret string

	client  *http.Client
	backoff time.Duration
	wg      sync.WaitGroup
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithBackoff sets the base delay between attempts (default 2s).
func WithBackoff(d time.Duration) Option {
	return func(w *Webhook) { w.backoff = d }
}

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) { w.client = c }
}

// NewWebhook creates a webhook notifier. An empty secret disables signing.
func NewWebhook(url, secret string, opts ...Option) *Webhook {
	w := &Webhook{
		URL:     url,
		Secret:  secret,
		client:  &http.Client{Timeout: 15 * time.Second},
		backoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Notify delivers n in the background. The delivery outlives ctx's
// cancellation but keeps its values.
func (w *Webhook) Notify(ctx context.Context, n mutation.Notice) {
	ev := NewEvent(n)
	ctx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Send(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", string(ev.Type)).Str("mutation", ev.Mutation).Msg("Webhook notification failed")
			return
		}
		log.Debug().Str("event", string(ev.Type)).Str("mutation", ev.Mutation).Msg("Webhook notification dispatched")
	}()
}

// Wait blocks until every pending delivery finished.
func (w *Webhook) Wait() { w.wg.Wait() }

// Send posts ev synchronously with retries.
func (w *Webhook) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}
		if lastErr = w.post(ctx, ev, body); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", attempts, lastErr)
}

func (w *Webhook) post(ctx context.Context, ev Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AgentOven-Console/1.0")
	req.Header.Set("X-AgentOven-Event", string(ev.Type))
	if w.Secret != "" {
		req.Header.Set("X-AgentOven-Signature", "sha256="+Sign(w.Secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, w.URL)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ── Fan-out ──────────────────────────────────────────────────

// Fanout sends every notice to each notifier in order.
type Fanout []mutation.Notifier

func (f Fanout) Notify(ctx context.Context, n mutation.Notice) {
	for _, nt := range f {
		nt.Notify(ctx, n)
	}
}
