// Package presence shows each bot identity's workload in its status line.
package presence

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Status is what a bot shows: "listening to Text" or "playing Text".
type Status struct {
	Listening bool
	Text      string
}

// Counter reports queued plus playing utterances of a bot identity.
type Counter interface {
	PendingCount(bot int) int
}

// Pusher sends a status to the gateway connection of a bot identity.
type Pusher interface {
	PushStatus(bot int, s Status) error
}

type Reporter struct {
	bots    int
	version string
	counter Counter
	pusher  Pusher
	log     zerolog.Logger
}

func NewReporter(bots int, version string, counter Counter, pusher Pusher, log zerolog.Logger) *Reporter {
	return &Reporter{bots: bots, version: version, counter: counter, pusher: pusher, log: log}
}

// Format builds the status for n pending utterances.
func Format(version string, n int) Status {
	if n > 0 {
		return Status{Listening: true, Text: fmt.Sprintf("v%s - %d utterances", version, n)}
	}
	return Status{Text: fmt.Sprintf("v%s - idle", version)}
}

// Tick pushes the current status of every identity. Push failures are logged
// and do not stop the others.
func (r *Reporter) Tick(ctx context.Context) error {
	for bot := 0; bot < r.bots; bot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := Format(r.version, r.counter.PendingCount(bot))
		if err := r.pusher.PushStatus(bot, s); err != nil {
			r.log.Warn().Err(err).Int("bot", bot).Msg("presence update failed")
		}
	}
	return nil
}
