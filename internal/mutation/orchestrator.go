// Package mutation runs every user-initiated change the same way: validate,
// optionally confirm, issue exactly one backend call under the target
// store's in-flight guard, refresh on success, and report the outcome as a
// single notification.
package mutation

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Target is the store that owns a mutation's in-flight guard and refreshes
// after it. *store.Collection satisfies it.
type Target interface {
	Mutate(ctx context.Context, key string, call func(ctx context.Context) error) error
}

// Mutation describes one change.
type Mutation struct {
	Name string
	Key  string
	// Prompt, when set, must be approved by the Confirmer before the call.
	Prompt   string
	Validate func() error
	Call     func(ctx context.Context) error
	// Target may be nil when Call guards and refreshes by itself.
	Target Target
	// OnSuccess runs after the refresh, e.g. to close a panel or clear an
	// edit buffer.
	OnSuccess func()
}

// Destructive reports whether the mutation needs confirmation.
func (m Mutation) Destructive() bool { return m.Prompt != "" }

// Notice is the outcome of one mutation.
type Notice struct {
	Mutation string `json:"mutation"`
	Key      string `json:"key,omitempty"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
}

// Notifier receives the single notification of each attempt.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) {
	if n.OK {
		log.Info().Str("mutation", n.Mutation).Str("key", n.Key).Msg(n.Message)
		return
	}
	log.Warn().Str("mutation", n.Mutation).Str("key", n.Key).Str("error", n.Message).Msg("Mutation failed")
}

// Confirmer approves destructive mutations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

type approvedKey struct{}

// Approve marks ctx as carrying the user's confirmation.
func Approve(ctx context.Context) context.Context {
	return context.WithValue(ctx, approvedKey{}, true)
}

// Approved reports whether ctx carries a confirmation.
func Approved(ctx context.Context) bool {
	v, _ := ctx.Value(approvedKey{}).(bool)
	return v
}

// ContextConfirmer approves when the request context was marked with
// Approve.
type ContextConfirmer struct{}

func (ContextConfirmer) Confirm(ctx context.Context, _ string) bool { return Approved(ctx) }

// Orchestrator runs mutations.
type Orchestrator struct {
	notifier  Notifier
	confirmer Confirmer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithConfirmer(c Confirmer) Option {
	return func(o *Orchestrator) { o.confirmer = c }
}

// New returns an orchestrator that logs notices and confirms through the
// request context.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{notifier: LogNotifier{}, confirmer: ContextConfirmer{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes m. The returned attempt holds the observed states.
func (o *Orchestrator) Run(ctx context.Context, m Mutation) (*Attempt, error) {
	a := newAttempt(m.Name, m.Key)

	a.set(Validating)
	if m.Validate != nil {
		if err := m.Validate(); err != nil {
			return a, o.fail(ctx, a, err)
		}
	}

	if m.Destructive() && !o.confirmer.Confirm(ctx, m.Prompt) {
		a.set(Idle)
		log.Debug().Str("mutation", m.Name).Str("key", m.Key).Msg("Mutation declined")
		return a, ErrDeclined
	}

	a.set(InFlight)
	var err error
	if m.Target != nil {
		err = m.Target.Mutate(ctx, m.Key, m.Call)
	} else {
		err = m.Call(ctx)
	}
	if err != nil {
		return a, o.fail(ctx, a, err)
	}

	a.set(Succeeded)
	if m.OnSuccess != nil {
		m.OnSuccess()
	}
	o.notifier.Notify(ctx, Notice{Mutation: m.Name, Key: m.Key, OK: true, Message: m.Name + " succeeded"})
	return a, nil
}

func (o *Orchestrator) fail(ctx context.Context, a *Attempt, err error) error {
	a.set(Failed)
	o.notifier.Notify(ctx, Notice{Mutation: a.Name, Key: a.Key, Message: Message(err)})
	return err
}
