// Package reconnect restores voice sessions after a restart from the
// persisted last-join bindings.
package reconnect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/util"
)

var ErrChannelNotFound = errors.New("channel not found")

// Binding is one persisted (bot, guild) binding to replay.
type Binding struct {
	Key            voice.Key
	TextChannelID  string
	VoiceChannelID string
}

// Source lists the persisted bindings of every bot identity.
type Source interface {
	Bindings() ([]Binding, error)
}

// Gateway checks channels and opens audio connections for a bot identity.
type Gateway interface {
	// ResolveChannel returns ErrChannelNotFound (possibly wrapped) when the
	// channel no longer exists in the guild.
	ResolveChannel(ctx context.Context, key voice.Key, channelID string) error
	OpenVoice(ctx context.Context, key voice.Key, voiceChannelID string) error
}

// Sessions is the registry side of a reconnect.
type Sessions interface {
	Connect(key voice.Key, textChannelID, voiceChannelID string) voice.Binding
}

// Supervisor replays every binding once.
type Supervisor struct {
	source   Source
	gateway  Gateway
	sessions Sessions
	workers  int
	log      zerolog.Logger

	once sync.Once
}

func NewSupervisor(source Source, gateway Gateway, sessions Sessions, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		source:   source,
		gateway:  gateway,
		sessions: sessions,
		workers:  4,
		log:      log,
	}
}

// Run performs the reconnect pass the first time it is called and does
// nothing afterwards. Failures of single bindings are logged and skipped;
// only a failure to list the bindings is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.run(ctx)
	})
	return err
}

func (s *Supervisor) run(ctx context.Context) error {
	bindings, err := s.source.Bindings()
	if err != nil {
		return fmt.Errorf("list bindings: %w", err)
	}
	s.log.Info().Int("bindings", len(bindings)).Msg("reconnecting saved sessions")

	var mu sync.Mutex
	restored := 0
	_ = util.Parallel(ctx, bindings, s.workers, func(ctx context.Context, b Binding) error {
		if err := s.restore(ctx, b); err != nil {
			if errors.Is(err, ErrChannelNotFound) {
				s.log.Info().Err(err).Str("session", b.Key.String()).Msg("saved channel is gone, skipping")
			} else {
				s.log.Warn().Err(err).Str("session", b.Key.String()).Msg("could not restore saved session")
			}
			return nil
		}
		mu.Lock()
		restored++
		mu.Unlock()
		return nil
	})

	s.log.Info().Int("restored", restored).Int("bindings", len(bindings)).Msg("reconnect finished")
	return nil
}

func (s *Supervisor) restore(ctx context.Context, b Binding) error {
	if err := s.gateway.ResolveChannel(ctx, b.Key, b.VoiceChannelID); err != nil {
		return fmt.Errorf("voice channel %s: %w", b.VoiceChannelID, err)
	}
	if err := s.gateway.ResolveChannel(ctx, b.Key, b.TextChannelID); err != nil {
		return fmt.Errorf("text channel %s: %w", b.TextChannelID, err)
	}
	if err := s.gateway.OpenVoice(ctx, b.Key, b.VoiceChannelID); err != nil {
		return fmt.Errorf("open voice: %w", err)
	}
	s.sessions.Connect(b.Key, b.TextChannelID, b.VoiceChannelID)
	return nil
}
