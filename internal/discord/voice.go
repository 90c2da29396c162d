package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/reconnect"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/stream"
	"github.com/keshon/ttsvoice/internal/voice"
)

// voiceReadyTimeout bounds the wait for a fresh voice connection to become
// ready before audio is sent.
const voiceReadyTimeout = 10 * time.Second

func (b *Bot) voiceConnection(guildID string) *discordgo.VoiceConnection {
	b.dg.RLock()
	defer b.dg.RUnlock()
	return b.dg.VoiceConnections[guildID]
}

// checkVoicePermissions fails early when the bot may not connect to or speak
// in channelID. Missing state is not an error; the join itself will tell.
func (b *Bot) checkVoicePermissions(channelID string) error {
	uid := b.UserID()
	if uid == "" {
		return nil
	}
	perms, err := b.dg.State.UserChannelPermissions(uid, channelID)
	if err != nil {
		return nil
	}
	return permissionError(perms)
}

func permissionError(perms int64) error {
	if perms&discordgo.PermissionVoiceConnect == 0 {
		return voice.ErrNoConnectPermission
	}
	if perms&discordgo.PermissionVoiceSpeak == 0 {
		return voice.ErrNoSpeakPermission
	}
	return nil
}

func (b *Bot) openVoice(guildID, channelID string) error {
	if b.UserID() == "" {
		return ErrNotConnected
	}
	if err := b.checkVoicePermissions(channelID); err != nil {
		return err
	}
	if _, err := b.dg.ChannelVoiceJoin(guildID, channelID, false, true); err != nil {
		return fmt.Errorf("voice join %s: %w", channelID, err)
	}
	return nil
}

// Join implements core.VoiceControl: open the audio connection, bind the
// session and remember the binding for the next start.
func (f *Fleet) Join(_ context.Context, key voice.Key, textChannelID, voiceChannelID string) error {
	b, err := f.bot(key.Bot)
	if err != nil {
		return err
	}
	if err := b.openVoice(key.GuildID, voiceChannelID); err != nil {
		return err
	}
	f.registry.Connect(key, textChannelID, voiceChannelID)

	err = f.deps.Storage.SetLastJoin(b.UserID(), storage.LastJoin{
		GuildID:        key.GuildID,
		TextChannelID:  textChannelID,
		VoiceChannelID: voiceChannelID,
		JoinedAt:       time.Now(),
	})
	if err != nil {
		b.log.Warn().Err(err).Str("guild", key.GuildID).Msg("failed to persist last join")
	}
	b.log.Info().Str("guild", key.GuildID).Str("text", textChannelID).Str("voice", voiceChannelID).Msg("session joined")
	return nil
}

// Leave implements core.VoiceControl.
func (f *Fleet) Leave(_ context.Context, key voice.Key) error {
	b, err := f.bot(key.Bot)
	if err != nil {
		return err
	}
	f.registry.Disconnect(key)
	if err := f.deps.Storage.ClearLastJoin(b.UserID(), key.GuildID); err != nil {
		b.log.Warn().Err(err).Str("guild", key.GuildID).Msg("failed to clear last join")
	}
	if vc := b.voiceConnection(key.GuildID); vc != nil {
		if err := vc.Disconnect(); err != nil {
			return fmt.Errorf("voice disconnect: %w", err)
		}
	}
	b.log.Info().Str("guild", key.GuildID).Msg("session left")
	return nil
}

func (f *Fleet) Binding(key voice.Key) (voice.Binding, bool) {
	return f.registry.Get(key)
}

func (f *Fleet) Speak(key voice.Key, utterances ...voice.Utterance) bool {
	return f.registry.Speak(key, "", utterances...)
}

// MemberVoiceChannel implements core.VoiceControl from the gateway state.
func (f *Fleet) MemberVoiceChannel(key voice.Key, userID string) string {
	b, err := f.bot(key.Bot)
	if err != nil {
		return ""
	}
	vs, err := b.dg.State.VoiceState(key.GuildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// Play implements voice.Sink: decoded PCM is encoded to opus and sent over
// the voice connection of key until audio ends.
func (f *Fleet) Play(ctx context.Context, key voice.Key, audio io.Reader) error {
	b, err := f.bot(key.Bot)
	if err != nil {
		return err
	}
	vc := b.voiceConnection(key.GuildID)
	if vc == nil {
		return voice.ErrNoSession
	}
	if err := waitReady(ctx, vc); err != nil {
		return err
	}

	enc, err := stream.NewOpusEncoder()
	if err != nil {
		return err
	}
	if err := vc.Speaking(true); err != nil {
		b.log.Debug().Err(err).Str("guild", key.GuildID).Msg("speaking on failed")
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			b.log.Debug().Err(err).Str("guild", key.GuildID).Msg("speaking off failed")
		}
	}()

	_, err = stream.Send(ctx, audio, enc, vc.OpusSend)
	return err
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	deadline := time.Now().Add(voiceReadyTimeout)
	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("voice connection not ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// ResolveChannel implements reconnect.Gateway.
func (f *Fleet) ResolveChannel(ctx context.Context, key voice.Key, channelID string) error {
	b, err := f.bot(key.Bot)
	if err != nil {
		return err
	}
	ch, err := b.dg.State.Channel(channelID)
	if err != nil {
		ch, err = b.dg.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", reconnect.ErrChannelNotFound, channelID)
		}
		return err
	}
	if ch.GuildID != key.GuildID {
		return fmt.Errorf("%w: %s is not in guild %s", reconnect.ErrChannelNotFound, channelID, key.GuildID)
	}
	return nil
}

// OpenVoice implements reconnect.Gateway.
func (f *Fleet) OpenVoice(_ context.Context, key voice.Key, voiceChannelID string) error {
	b, err := f.bot(key.Bot)
	if err != nil {
		return err
	}
	return b.openVoice(key.GuildID, voiceChannelID)
}

// Bindings implements reconnect.Source from the persisted last joins of
// every identity that has completed its handshake.
func (f *Fleet) Bindings() ([]reconnect.Binding, error) {
	var out []reconnect.Binding
	for _, b := range f.bots {
		uid := b.UserID()
		if uid == "" {
			b.log.Warn().Msg("identity not ready, its sessions are not restored")
			continue
		}
		joins, err := f.deps.Storage.LastJoins(uid)
		if err != nil {
			return nil, fmt.Errorf("last joins of bot %d: %w", b.index, err)
		}
		for _, j := range joins {
			out = append(out, reconnect.Binding{
				Key:            voice.Key{Bot: b.index, GuildID: j.GuildID},
				TextChannelID:  j.TextChannelID,
				VoiceChannelID: j.VoiceChannelID,
			})
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
