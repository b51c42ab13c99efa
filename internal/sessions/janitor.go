package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor periodically closes sessions that have been idle longer than a
// fixed window. OnExpire runs for every closed token so the caller can
// release whatever it kept per session.
type Janitor struct {
	gate     *Gate
	idle     time.Duration
	interval time.Duration
	OnExpire func(token string)
}

// NewJanitor sweeps gate every idle/4, with a floor of one second.
func NewJanitor(gate *Gate, idle time.Duration, onExpire func(token string)) *Janitor {
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Janitor{gate: gate, idle: idle, interval: interval, OnExpire: onExpire}
}

// Start runs sweeps until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("idle", j.idle).
		Dur("interval", j.interval).
		Msg("Session janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session janitor stopped")
			return
		case now := <-ticker.C:
			j.Sweep(now)
		}
	}
}

// Sweep closes the sessions idle at now and returns how many it closed.
func (j *Janitor) Sweep(now time.Time) int {
	tokens := j.gate.Expire(now.Add(-j.idle))
	for _, token := range tokens {
		if j.OnExpire != nil {
			j.OnExpire(token)
		}
	}
	if len(tokens) > 0 {
		log.Info().Int("expired", len(tokens)).Int("open", j.gate.Count()).Msg("Idle sessions closed")
	}
	return len(tokens)
}
