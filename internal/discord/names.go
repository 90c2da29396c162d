package discord

import (
	"github.com/bwmarrin/discordgo"
)

// DisplayName is the name read aloud and shown in replies: the stored
// reading nickname first, then the guild nick, the global name and the
// username, as seen by the first identity that knows the member.
func (f *Fleet) DisplayName(guildID, userID string) string {
	if nick, ok := f.deps.Storage.Nickname(userID); ok {
		return nick
	}
	for _, b := range f.bots {
		if m := b.member(guildID, userID); m != nil {
			if name := memberName(m); name != "" {
				return name
			}
		}
	}
	return userID
}

func (b *Bot) member(guildID, userID string) *discordgo.Member {
	if m, err := b.dg.State.Member(guildID, userID); err == nil {
		return m
	}
	if !b.inGuild(guildID) {
		return nil
	}
	m, err := b.dg.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	_ = b.dg.State.MemberAdd(m)
	return m
}

func memberName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func (f *Fleet) RoleName(guildID, roleID string) string {
	for _, b := range f.bots {
		if r, err := b.dg.State.Role(guildID, roleID); err == nil {
			return r.Name
		}
	}
	return roleID
}

func (f *Fleet) ChannelName(channelID string) string {
	for _, b := range f.bots {
		if ch, err := b.dg.State.Channel(channelID); err == nil {
			return ch.Name
		}
	}
	return channelID
}

func (f *Fleet) IsDenied(guildID, userID string) bool {
	return f.deps.Storage.IsDenied(guildID, userID)
}

// VoiceFor is the voice a user's messages are read with in guildID. A stored
// voice the guild does not allow falls back to the default.
func (f *Fleet) VoiceFor(guildID, userID string) string {
	stored, _ := f.deps.Storage.UserVoice(userID)
	return f.deps.Catalog.Resolve(stored, f.env.Gates(guildID))
}
