package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

type JoinCommand struct{}

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "Read this text channel aloud in a voice channel" }
func (c *JoinCommand) Group() string       { return "session" }
func (c *JoinCommand) RequireAdmin() bool  { return true }

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Voice channel to join, defaults to yours",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
			},
		},
	}
}

func (c *JoinCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	key := sc.Key()

	channelID, ok := sc.Options().String("channel")
	if !ok || channelID == "" {
		channelID = sc.Env.Voice.MemberVoiceChannel(key, sc.UserID())
		if channelID == "" {
			return sc.RespondEphemeral("Join a voice channel first, or pick one.")
		}
	}

	if b, ok := sc.Env.Voice.Binding(key); ok && b.VoiceChannelID == channelID && b.TextChannelID == sc.ChannelID() {
		return sc.RespondEphemeral("Already reading this channel there.")
	}

	// Opening the voice connection can take longer than Discord waits for
	// an answer.
	if err := sc.Reply.Defer(false); err != nil {
		return fmt.Errorf("defer join reply: %w", err)
	}
	err = sc.Env.Voice.Join(ctx, key, sc.ChannelID(), channelID)
	switch {
	case errors.Is(err, voice.ErrNoConnectPermission):
		return sc.RespondEphemeral(fmt.Sprintf("I am not allowed to connect to <#%s>.", channelID))
	case errors.Is(err, voice.ErrNoSpeakPermission):
		return sc.RespondEphemeral(fmt.Sprintf("I am not allowed to speak in <#%s>.", channelID))
	case err != nil:
		_ = sc.RespondEphemeral("Could not join the voice channel.")
		return fmt.Errorf("join %s: %w", channelID, err)
	}

	return sc.Respond(fmt.Sprintf("Reading <#%s> aloud in <#%s>.", sc.ChannelID(), channelID))
}
