package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

type DenyCommand struct{}

func (c *DenyCommand) Name() string        { return "deny" }
func (c *DenyCommand) Description() string { return "Manage members whose messages are never read" }
func (c *DenyCommand) Group() string       { return "settings" }
func (c *DenyCommand) RequireAdmin() bool  { return true }

func (c *DenyCommand) SlashDefinition() *discordgo.ApplicationCommand {
	userOpt := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Show denied members"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add", Description: "Stop reading a member", Options: userOpt("Member to deny")},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "remove", Description: "Read a member again", Options: userOpt("Member to allow")},
		},
	}
}

func (c *DenyCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	if !sc.IsAdmin() {
		return sc.RespondEphemeral("Only administrators can manage the deny list.")
	}

	sub, opts := sc.Subcommand()
	if sub == "list" {
		return c.list(sc)
	}

	target, _ := opts.String("user")
	if target == "" {
		return sc.RespondEphemeral("Pick a member.")
	}
	if sc.User(target).Bot {
		return sc.RespondEphemeral(sc.Name(target) + " is a bot.")
	}

	guildID := sc.GuildID()
	switch sub {
	case "add":
		added, err := sc.Env.Storage.AddDenied(guildID, target)
		if err != nil {
			return fmt.Errorf("deny %s: %w", target, err)
		}
		if !added {
			return sc.RespondEphemeral(sc.Name(target) + " is already denied.")
		}
		return sc.RespondEphemeral(sc.Name(target) + " will no longer be read aloud.")
	case "remove":
		removed, err := sc.Env.Storage.RemoveDenied(guildID, target)
		if err != nil {
			return fmt.Errorf("allow %s: %w", target, err)
		}
		if !removed {
			return sc.RespondEphemeral(sc.Name(target) + " is not denied.")
		}
		return sc.RespondEphemeral(sc.Name(target) + " will be read aloud again.")
	}
	return sc.RespondEphemeral("Unknown subcommand.")
}

func (c *DenyCommand) list(sc *core.SlashContext) error {
	denied, err := sc.Env.Storage.DeniedUsers(sc.GuildID())
	if err != nil {
		return fmt.Errorf("list denied: %w", err)
	}
	if len(denied) == 0 {
		return sc.RespondEphemeral("Nobody is denied.")
	}
	var sb strings.Builder
	for _, id := range denied {
		sb.WriteString(sc.Name(id))
		sb.WriteByte('\n')
	}
	return sc.RespondEphemeral("Denied members:\n```\n" + sb.String() + "```")
}
