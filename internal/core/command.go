// Package core is the Discord side of the command kit: the slash context
// handed to commands, the provider interfaces the dispatcher looks for, and
// the middlewares every command is wrapped in.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/config"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
	"github.com/keshon/ttsvoice/pkg/jobmgr"
)

var ErrUnsupportedContext = errors.New("unsupported command context")

// SlashProvider is implemented by commands that register a slash command.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// Autocompleter answers autocomplete interactions of a slash command.
type Autocompleter interface {
	Autocomplete(ctx context.Context, sc *SlashContext) ([]*discordgo.ApplicationCommandOptionChoice, error)
}

// Meta is read by the middlewares.
type Meta interface {
	Group() string
	// RequireAdmin gates the command behind the admin check in guilds
	// listed in NEED_ADMIN_GUILDS.
	RequireAdmin() bool
}

// VoiceControl opens and closes the audio side of a session.
type VoiceControl interface {
	Join(ctx context.Context, key voice.Key, textChannelID, voiceChannelID string) error
	Leave(ctx context.Context, key voice.Key) error
	Binding(key voice.Key) (voice.Binding, bool)
	// MemberVoiceChannel is the voice channel the user sits in, as seen by
	// the bot identity of key, "" when none.
	MemberVoiceChannel(key voice.Key, userID string) string
	// Speak queues utterances on the session of key regardless of its text
	// channel. It reports false when there is no session.
	Speak(key voice.Key, utterances ...voice.Utterance) bool
}

// Scheduler runs delayed one-shot jobs.
type Scheduler interface {
	After(name string, delay time.Duration, handler jobmgr.Handler) error
}

// AuditRefresher re-snapshots a guild's audit log.
type AuditRefresher interface {
	Refresh(ctx context.Context, guildID string) error
}

// Names resolves display names for replies.
type Names interface {
	DisplayName(guildID, userID string) string
}

// Env is shared by every command invocation.
type Env struct {
	Config  *config.Config
	Storage *storage.Storage
	Servers *storage.ServerConfigs
	Catalog *tts.Catalog
	Voice   VoiceControl
	Jobs    Scheduler
	Audit   AuditRefresher
	Names   Names
	Log     zerolog.Logger
}

// Gates returns the voice category switches of a guild.
func (e *Env) Gates(guildID string) tts.Gates {
	cfg := e.Servers.Get(guildID)
	return tts.Gates{Inm: cfg.InmMode, Cookie: cfg.CookieMode}
}

// FromInvocation extracts the slash context the Discord adapter put in inv.
func FromInvocation(inv *cmd.Invocation) (*SlashContext, error) {
	if inv == nil {
		return nil, ErrUnsupportedContext
	}
	sc, ok := inv.Data.(*SlashContext)
	if !ok || sc == nil {
		return nil, ErrUnsupportedContext
	}
	return sc, nil
}

// Definitions collects the slash definitions of every registered command.
func Definitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.GetAll() {
		if sp, ok := cmd.Root(c).(SlashProvider); ok {
			if def := sp.SlashDefinition(); def != nil {
				defs = append(defs, def)
			}
		}
	}
	return defs
}
