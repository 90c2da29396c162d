package session

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

// RejoinDelay separates the disconnect from the new join.
const RejoinDelay = time.Second

type ReconnectCommand struct{}

func (c *ReconnectCommand) Name() string        { return "reconnect" }
func (c *ReconnectCommand) Description() string { return "Leave and rejoin the current voice channel" }
func (c *ReconnectCommand) Group() string       { return "session" }
func (c *ReconnectCommand) RequireAdmin() bool  { return true }

func (c *ReconnectCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ReconnectCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	key := sc.Key()

	b, ok := sc.Env.Voice.Binding(key)
	if !ok {
		return sc.Respond(notConnected)
	}
	if err := sc.Reply.Defer(false); err != nil {
		return fmt.Errorf("defer reconnect reply: %w", err)
	}
	if err := sc.Env.Voice.Leave(ctx, key); err != nil {
		_ = sc.RespondEphemeral("Could not leave the voice channel.")
		return fmt.Errorf("reconnect %s: %w", key, err)
	}

	voiceCtl := sc.Env.Voice
	err = sc.Env.Jobs.After("rejoin:"+key.String(), RejoinDelay, func(ctx context.Context) error {
		return voiceCtl.Join(ctx, key, b.TextChannelID, b.VoiceChannelID)
	})
	if err != nil {
		_ = sc.RespondEphemeral("A reconnect is already in progress.")
		return fmt.Errorf("schedule rejoin %s: %w", key, err)
	}
	return sc.Respond(fmt.Sprintf("Reconnecting to <#%s>.", b.VoiceChannelID))
}
