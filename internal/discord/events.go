package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/announce"
	"github.com/keshon/ttsvoice/internal/voice"
)

func (b *Bot) addHandlers() {
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onGuildDelete)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)
	b.dg.AddHandler(b.onInteractionCreate)
}

func (b *Bot) key(guildID string) voice.Key {
	return voice.Key{Bot: b.index, GuildID: guildID}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.setUserID(r.User.ID)
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("gateway ready")

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	if err := b.syncCommands(appID); err != nil {
		b.log.Error().Err(err).Msg("failed to sync slash commands")
	}
}

// onGuildCreate takes the first audit log snapshot of guilds that announce
// voice activity, so the first event after start can be classified.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !b.fleet.deps.Servers.Get(g.ID).AnnounceJoins {
		return
	}
	if err := b.differ.Refresh(context.Background(), g.ID); err != nil {
		b.log.Warn().Err(err).Str("guild", g.ID).Msg("initial audit log snapshot failed")
	}
}

func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}
	b.differ.Forget(g.ID)
	if b.fleet.registry.Disconnect(b.key(g.ID)) {
		b.log.Info().Str("guild", g.ID).Msg("removed from guild, session dropped")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}
	key := b.key(m.GuildID)
	binding, ok := b.fleet.registry.Get(key)
	if !ok || binding.TextChannelID != m.ChannelID {
		return
	}

	msg := toMessage(m.Message)
	if vs, err := s.State.VoiceState(m.GuildID, m.Author.ID); err == nil && vs != nil {
		msg.AuthorVoiceChannelID = vs.ChannelID
	}

	cfg := b.fleet.deps.Servers.Get(m.GuildID)
	utterances := announce.FromMessage(msg, binding, cfg, b.fleet)
	if len(utterances) == 0 {
		return
	}
	if cfg.OverwriteAloud {
		b.fleet.registry.Overwrite(key, m.ChannelID, utterances...)
		return
	}
	b.fleet.registry.Speak(key, m.ChannelID, utterances...)
}

func toMessage(m *discordgo.Message) announce.Message {
	msg := announce.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, announce.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return msg
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	change := toVoiceChange(v)
	if change.Before == change.After {
		return
	}

	// The bot itself dropped out of voice without a leave command, e.g.
	// kicked by a moderator. A move keeps the session and is handled by the
	// announcer.
	if change.UserID == b.UserID() && change.After == "" {
		b.dropSession(change.GuildID)
		return
	}

	b.ann.Handle(context.Background(), change)
}

func (b *Bot) dropSession(guildID string) {
	if b.fleet.closing.Load() {
		return
	}
	if !b.fleet.registry.Disconnect(b.key(guildID)) {
		return
	}
	if vc := b.voiceConnection(guildID); vc != nil {
		if err := vc.Disconnect(); err != nil {
			b.log.Debug().Err(err).Str("guild", guildID).Msg("stale voice connection close failed")
		}
	}
	if err := b.fleet.deps.Storage.ClearLastJoin(b.UserID(), guildID); err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("failed to clear last join")
	}
	b.log.Info().Str("guild", guildID).Msg("voice connection lost, session dropped")
}

func toVoiceChange(v *discordgo.VoiceStateUpdate) announce.VoiceChange {
	c := announce.VoiceChange{
		GuildID: v.GuildID,
		UserID:  v.UserID,
		After:   v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		c.Before = v.BeforeUpdate.ChannelID
	}
	return c
}
