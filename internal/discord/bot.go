// Package discord connects the bot identities to the gateway and adapts
// gateway events, voice connections and REST calls to the rest of the bot.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/announce"
	"github.com/keshon/ttsvoice/internal/auditlog"
	"github.com/keshon/ttsvoice/internal/config"
	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
	"github.com/keshon/ttsvoice/pkg/jobmgr"
)

var (
	ErrUnknownBot   = errors.New("unknown bot identity")
	ErrNotConnected = errors.New("bot is not connected to the gateway")
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers

// Deps are the collaborators the gateway side needs.
type Deps struct {
	Config   *config.Config
	Storage  *storage.Storage
	Servers  *storage.ServerConfigs
	Catalog  *tts.Catalog
	Jobs     *jobmgr.Manager
	Commands *cmd.Registry
	Log      zerolog.Logger
}

// Bot is one gateway identity. Index is its position in DISCORD_TOKENS.
type Bot struct {
	index  int
	dg     *discordgo.Session
	fleet  *Fleet
	differ *auditlog.Differ
	ann    *announce.Announcer
	log    zerolog.Logger

	mu     sync.RWMutex
	userID string
}

// Fleet owns every bot identity and implements the gateway-facing
// interfaces of the other packages: voice.Sink, core.VoiceControl,
// reconnect.Gateway and reconnect.Source, presence.Pusher, and the name and
// preference lookups of announce.
type Fleet struct {
	deps     Deps
	bots     []*Bot
	registry *voice.Registry
	env      *core.Env
	log      zerolog.Logger

	// closing is set once shutdown starts. The voice disconnects of a
	// shutdown must not erase the last-join records.
	closing atomic.Bool
}

// NewFleet creates one session per token. Nothing connects until Run.
func NewFleet(deps Deps) (*Fleet, error) {
	f := &Fleet{deps: deps, log: deps.Log}
	for i, token := range deps.Config.DiscordTokens {
		dg, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, fmt.Errorf("failed to create session %d: %w", i, err)
		}
		dg.Identify.Intents = intents
		dg.ShouldReconnectOnError = true

		b := &Bot{
			index: i,
			dg:    dg,
			fleet: f,
			log:   deps.Log.With().Int("bot", i).Logger(),
		}
		b.differ = auditlog.NewDiffer(b, b.log)
		f.bots = append(f.bots, b)
	}
	return f, nil
}

// Bind attaches the session registry and builds what depends on it. It must
// be called before Run.
func (f *Fleet) Bind(registry *voice.Registry) {
	f.registry = registry
	f.env = &core.Env{
		Config:  f.deps.Config,
		Storage: f.deps.Storage,
		Servers: f.deps.Servers,
		Catalog: f.deps.Catalog,
		Voice:   f,
		Jobs:    f.deps.Jobs,
		Audit:   f,
		Names:   f,
		Log:     f.log,
	}
	for _, b := range f.bots {
		b.ann = &announce.Announcer{
			Bot:        b.index,
			Sessions:   registry,
			Differ:     b.differ,
			Configs:    f.deps.Servers,
			Prefs:      f,
			Identities: f,
			Log:        b.log,
		}
	}
}

// Run opens every session and blocks until ctx is done. A session that fails
// to open aborts the start and closes the ones already open.
func (f *Fleet) Run(ctx context.Context) error {
	if f.registry == nil {
		return errors.New("fleet is not bound to a session registry")
	}
	opened := make([]*Bot, 0, len(f.bots))
	defer func() {
		for _, b := range opened {
			b.close()
		}
	}()

	for _, b := range f.bots {
		b.addHandlers()
		if err := b.dg.Open(); err != nil {
			return fmt.Errorf("failed to open session %d: %w", b.index, err)
		}
		opened = append(opened, b)
	}
	f.log.Info().Int("bots", len(f.bots)).Msg("gateway sessions open")

	<-ctx.Done()
	f.closing.Store(true)
	f.log.Info().Msg("shutdown signal received, closing sessions")
	return nil
}

// Bots is the number of identities.
func (f *Fleet) Bots() int {
	return len(f.bots)
}

func (f *Fleet) bot(i int) (*Bot, error) {
	if i < 0 || i >= len(f.bots) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBot, i)
	}
	return f.bots[i], nil
}

// BotIndex reports which identity userID is, if any.
func (f *Fleet) BotIndex(userID string) (int, bool) {
	for _, b := range f.bots {
		if id := b.UserID(); id != "" && id == userID {
			return b.index, true
		}
	}
	return 0, false
}

// UserID is the bot's own user id, known once the gateway sent Ready.
func (b *Bot) UserID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userID
}

func (b *Bot) setUserID(id string) {
	b.mu.Lock()
	b.userID = id
	b.mu.Unlock()
}

func (b *Bot) inGuild(guildID string) bool {
	_, err := b.dg.State.Guild(guildID)
	return err == nil
}

func (b *Bot) close() {
	b.dg.RLock()
	conns := make([]*discordgo.VoiceConnection, 0, len(b.dg.VoiceConnections))
	for _, vc := range b.dg.VoiceConnections {
		conns = append(conns, vc)
	}
	b.dg.RUnlock()

	for _, vc := range conns {
		if err := vc.Disconnect(); err != nil {
			b.log.Warn().Err(err).Str("guild", vc.GuildID).Msg("voice disconnect failed")
		}
	}
	if err := b.dg.Close(); err != nil {
		b.log.Warn().Err(err).Msg("session close failed")
	}
}
