package announce

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/auditlog"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/voice"
)

// EventType is what happened to a member relative to the bound voice
// channel.
type EventType int

const (
	Join EventType = iota + 1
	Leave
	ForceLeave
	MoveTo        // left the bound channel for another one
	ForceMoveTo   // moved out of the bound channel by a moderator
	MoveFrom      // came into the bound channel from another one
	ForceMoveFrom // moved into the bound channel by a moderator
)

func (e EventType) String() string {
	switch e {
	case Join:
		return "JOIN"
	case Leave:
		return "LEAVE"
	case ForceLeave:
		return "FORCE_LEAVE"
	case MoveTo:
		return "MOVE_TO"
	case ForceMoveTo:
		return "FORCE_MOVE_TO"
	case MoveFrom:
		return "MOVE_FROM"
	case ForceMoveFrom:
		return "FORCE_MOVE_FROM"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

// Phrase is the sentence read aloud for the event. other is the name of the
// channel on the far side of a move.
func (e EventType) Phrase(name, other string) string {
	switch e {
	case Join:
		return name + " joined"
	case Leave:
		return name + " left"
	case ForceLeave:
		return name + " was disconnected"
	case MoveTo:
		return name + " moved to " + other
	case ForceMoveTo:
		return name + " was moved to " + other
	case MoveFrom:
		return name + " came from " + other
	case ForceMoveFrom:
		return name + " was moved here from " + other
	}
	return ""
}

// VoiceChange is one member's voice-state transition. Before and After are
// channel ids, "" meaning not connected.
type VoiceChange struct {
	GuildID string
	UserID  string
	Before  string
	After   string
}

// Identities maps a user id to one of our bot identities.
type Identities interface {
	BotIndex(userID string) (int, bool)
}

// Sessions is the part of the registry the announcer drives.
type Sessions interface {
	Get(key voice.Key) (voice.Binding, bool)
	Speak(key voice.Key, textChannelID string, utterances ...voice.Utterance) bool
	Reconnect(key voice.Key, voiceChannelID string) bool
}

// Configs returns per-guild reading options.
type Configs interface {
	Get(guildID string) storage.ServerConfig
}

// Announcer turns voice-state changes seen by one bot identity into spoken
// announcements on that identity's session.
type Announcer struct {
	Bot        int
	Sessions   Sessions
	Differ     *auditlog.Differ
	Configs    Configs
	Prefs      Prefs
	Identities Identities
	Log        zerolog.Logger
}

// Handle classifies the change and enqueues the announcement, if any. It
// returns the event that was announced, or 0.
func (a *Announcer) Handle(ctx context.Context, c VoiceChange) EventType {
	if c.Before == c.After {
		return 0
	}
	key := voice.Key{Bot: a.Bot, GuildID: c.GuildID}

	if idx, ok := a.Identities.BotIndex(c.UserID); ok {
		if idx == a.Bot && c.After != "" {
			a.Sessions.Reconnect(key, c.After)
		}
		return 0
	}

	if !a.Configs.Get(c.GuildID).AnnounceJoins {
		return 0
	}
	b, ok := a.Sessions.Get(key)
	if !ok {
		return 0
	}

	var event EventType
	var other string
	switch {
	case c.Before == "":
		if c.After == b.VoiceChannelID {
			event = Join
		}
	case c.After == "":
		if c.Before == b.VoiceChannelID {
			event = pick(a.forced(ctx, c.GuildID, auditlog.ActionMemberDisconnect), ForceLeave, Leave)
		}
		a.refresh(ctx, c.GuildID)
	default:
		if c.Before == b.VoiceChannelID || c.After == b.VoiceChannelID {
			forced := a.forced(ctx, c.GuildID, auditlog.ActionMemberMove)
			if c.Before == b.VoiceChannelID {
				event, other = pick(forced, ForceMoveTo, MoveTo), c.After
			} else {
				event, other = pick(forced, ForceMoveFrom, MoveFrom), c.Before
			}
		}
		a.refresh(ctx, c.GuildID)
	}
	if event == 0 {
		return 0
	}

	otherName := ""
	if other != "" {
		otherName = a.Prefs.ChannelName(other)
	}
	text := event.Phrase(a.Prefs.DisplayName(c.GuildID, c.UserID), otherName)
	u := voice.NewUtterance(a.Prefs.VoiceFor(c.GuildID, c.UserID), text)
	if !a.Sessions.Speak(key, "", u) {
		return 0
	}
	a.Log.Debug().Str("guild", c.GuildID).Str("user", c.UserID).Stringer("event", event).Msg("voice event announced")
	return event
}

func (a *Announcer) forced(ctx context.Context, guildID string, action auditlog.ActionType) bool {
	if a.Differ == nil {
		return false
	}
	forced, err := a.Differ.Classify(ctx, guildID, action)
	if err != nil {
		return false
	}
	return forced
}

func (a *Announcer) refresh(ctx context.Context, guildID string) {
	if a.Differ != nil {
		_ = a.Differ.Refresh(ctx, guildID)
	}
}

func pick(forced bool, yes, no EventType) EventType {
	if forced {
		return yes
	}
	return no
}
