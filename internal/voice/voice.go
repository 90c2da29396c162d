// Package voice owns the per-(bot, guild) voice sessions: which text channel
// is read aloud into which voice channel, and the speech queue that plays
// utterances there one at a time.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no voice session")

// Returned by gateways when the bot lacks a permission on the target voice
// channel.
var (
	ErrNoConnectPermission = errors.New("missing voice connect permission")
	ErrNoSpeakPermission   = errors.New("missing voice speak permission")
)

// Key identifies one bot identity inside one guild.
type Key struct {
	Bot     int
	GuildID string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Bot, k.GuildID)
}

// Utterance is one unit of speech: Text synthesized with Voice.
type Utterance struct {
	ID    uuid.UUID
	Voice string
	Text  string
}

// NewUtterance returns a text utterance with a fresh id.
func NewUtterance(voice, text string) Utterance {
	return Utterance{ID: uuid.New(), Voice: voice, Text: text}
}

// Synthesizer turns text into an encoded audio stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) (io.ReadCloser, error)
}

// Sink plays one audio stream to completion on the voice connection of key.
type Sink interface {
	Play(ctx context.Context, key Key, audio io.Reader) error
}

// State of a session. Sessions are created connected and are replaced, never
// revived, so there is no disconnected state to observe.
type State int

const (
	StateConnected State = iota + 1
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "unknown"
}

// Binding is a read-only snapshot of a session.
type Binding struct {
	Key            Key
	State          State
	TextChannelID  string
	VoiceChannelID string
	Pending        int
}
