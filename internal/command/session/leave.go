package session

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

const notConnected = "I am not in a voice channel."

type LeaveCommand struct{}

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Stop reading and leave the voice channel" }
func (c *LeaveCommand) Group() string       { return "session" }
func (c *LeaveCommand) RequireAdmin() bool  { return true }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	key := sc.Key()

	b, ok := sc.Env.Voice.Binding(key)
	if !ok {
		return sc.Respond(notConnected)
	}
	if err := sc.Env.Voice.Leave(ctx, key); err != nil {
		_ = sc.RespondEphemeral("Could not leave the voice channel.")
		return fmt.Errorf("leave %s: %w", key, err)
	}
	return sc.Respond(fmt.Sprintf("Left <#%s>.", b.VoiceChannelID))
}
