// Package announce decides what gets read aloud: chat messages posted in a
// bound text channel, and members joining, leaving or moving around the
// bound voice channel.
package announce

import (
	"path"
	"strings"

	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/voice"
)

// Attachment is the part of a message attachment the reading rules need.
type Attachment struct {
	Filename    string
	ContentType string
}

// Message is a guild chat message, flattened from the gateway event.
type Message struct {
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorIsBot bool
	// AuthorVoiceChannelID is where the author sits, "" when not in voice.
	AuthorVoiceChannelID string
	Content              string
	Attachments          []Attachment
}

// Prefs are the per-user reading preferences.
type Prefs interface {
	Names
	IsDenied(guildID, userID string) bool
	VoiceFor(guildID, userID string) string
}

// FromMessage applies the chat reading rules against the session binding and
// returns what to enqueue, possibly nothing.
func FromMessage(msg Message, b voice.Binding, cfg storage.ServerConfig, prefs Prefs) []voice.Utterance {
	if msg.AuthorIsBot || msg.ChannelID != b.TextChannelID {
		return nil
	}
	if prefs.IsDenied(msg.GuildID, msg.AuthorID) {
		return nil
	}
	if cfg.NonReadingPrefix != "" && strings.HasPrefix(msg.Content, cfg.NonReadingPrefix) {
		return nil
	}
	if cfg.NeedJoin && msg.AuthorVoiceChannelID != b.VoiceChannelID {
		return nil
	}

	voiceID := prefs.VoiceFor(msg.GuildID, msg.AuthorID)
	var out []voice.Utterance
	if text := Clean(msg.Content, msg.GuildID, prefs, cfg.MaxReadAroundLimit); text != "" {
		out = append(out, voice.NewUtterance(voiceID, text))
	}
	for _, a := range msg.Attachments {
		if isImageOrVideo(a) {
			continue
		}
		out = append(out, voice.NewUtterance(voiceID, a.Filename))
	}
	return out
}

var mediaExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true,
}

func isImageOrVideo(a Attachment) bool {
	if a.ContentType != "" {
		return strings.HasPrefix(a.ContentType, "image/") || strings.HasPrefix(a.ContentType, "video/")
	}
	return mediaExtensions[strings.ToLower(path.Ext(a.Filename))]
}
