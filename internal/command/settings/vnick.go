package settings

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

// resetNick clears the override.
const resetNick = "reset"

type VnickCommand struct{}

func (c *VnickCommand) Name() string        { return "vnick" }
func (c *VnickCommand) Description() string { return "Set the name announcements use for you" }
func (c *VnickCommand) Group() string       { return "settings" }
func (c *VnickCommand) RequireAdmin() bool  { return false }

func (c *VnickCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: `Name to read, "reset" to go back to the display name`,
			},
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Member to rename, admins only",
			},
		},
	}
}

func (c *VnickCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	opts := sc.Options()
	target, ok := targetUser(sc, opts)
	if !ok {
		return nil
	}

	who := sc.Name(target)
	name, _ := opts.String("name")
	switch name {
	case "":
		if nick, ok := sc.Env.Storage.Nickname(target); ok {
			return sc.RespondEphemeral(fmt.Sprintf("%s is read as %q.", who, nick))
		}
		return sc.RespondEphemeral(who + " has no reading name.")
	case resetNick:
		if err := sc.Env.Storage.SetNickname(target, ""); err != nil {
			return fmt.Errorf("reset nickname of %s: %w", target, err)
		}
		return sc.Respond(who + "'s reading name was reset.")
	}

	if err := sc.Env.Storage.SetNickname(target, name); err != nil {
		return fmt.Errorf("set nickname of %s: %w", target, err)
	}
	return sc.Respond(fmt.Sprintf("%s will be read as %q.", who, name))
}
