package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

const maxChoices = 25

type VoiceCommand struct{}

func (c *VoiceCommand) Name() string        { return "voice" }
func (c *VoiceCommand) Description() string { return "Pick the voice your messages are read with" }
func (c *VoiceCommand) Group() string       { return "settings" }
func (c *VoiceCommand) RequireAdmin() bool  { return false }

func (c *VoiceCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the voices available here",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "change",
				Description: "Change the reading voice",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "voice_type",
						Description:  "Voice to use",
						Required:     true,
						Autocomplete: true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Member to change, admins only",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "check",
				Description: "Show the current reading voice",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Member to check, admins only",
					},
				},
			},
		},
	}
}

func (c *VoiceCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}

	sub, opts := sc.Subcommand()
	switch sub {
	case "list":
		return c.list(sc)
	case "change":
		return c.change(sc, opts)
	case "check":
		return c.check(sc, opts)
	}
	return sc.RespondEphemeral("Unknown subcommand.")
}

func (c *VoiceCommand) list(sc *core.SlashContext) error {
	var sb strings.Builder
	for _, v := range sc.Env.Catalog.Available(sc.Env.Gates(sc.GuildID())) {
		fmt.Fprintf(&sb, "%s %s\n", v.ID, v.Title)
	}
	return sc.RespondEphemeral("Available voices:\n```\n" + sb.String() + "```")
}

func (c *VoiceCommand) change(sc *core.SlashContext, opts core.Options) error {
	target, ok := targetUser(sc, opts)
	if !ok {
		return nil
	}

	id, _ := opts.String("voice_type")
	gates := sc.Env.Gates(sc.GuildID())
	if !sc.Env.Catalog.Allowed(id, gates) {
		return sc.Respond("That voice does not exist or is disabled here.")
	}
	v, _ := sc.Env.Catalog.Lookup(id)

	current, _ := sc.Env.Storage.UserVoice(target)
	if sc.Env.Catalog.Resolve(current, gates) == id {
		return sc.Respond(fmt.Sprintf("%s already uses [%s].", sc.Name(target), v.Title))
	}
	if err := sc.Env.Storage.SetUserVoice(target, id); err != nil {
		_ = sc.RespondEphemeral("Could not save the voice.")
		return fmt.Errorf("set voice of %s: %w", target, err)
	}
	return sc.Respond(fmt.Sprintf("%s now reads with [%s].", sc.Name(target), v.Title))
}

func (c *VoiceCommand) check(sc *core.SlashContext, opts core.Options) error {
	target, ok := targetUser(sc, opts)
	if !ok {
		return nil
	}
	current, _ := sc.Env.Storage.UserVoice(target)
	id := sc.Env.Catalog.Resolve(current, sc.Env.Gates(sc.GuildID()))
	title := id
	if v, ok := sc.Env.Catalog.Lookup(id); ok {
		title = v.Title
	}
	return sc.RespondEphemeral(fmt.Sprintf("%s reads with [%s].", sc.Name(target), title))
}

func (c *VoiceCommand) Autocomplete(_ context.Context, sc *core.SlashContext) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	_, opts := sc.Subcommand()
	focused, ok := opts.Focused()
	if !ok {
		return nil, nil
	}
	query, _ := focused.Value.(string)

	found := sc.Env.Catalog.Search(query, sc.Env.Gates(sc.GuildID()), maxChoices)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(found))
	for _, v := range found {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%s)", v.Title, v.ID),
			Value: v.ID,
		})
	}
	return choices, nil
}

// targetUser returns the "user" option, or the invoker when absent. Acting
// on someone else needs admin rights, and bots have no settings. When it
// reports false the refusal was already sent.
func targetUser(sc *core.SlashContext, opts core.Options) (string, bool) {
	id, ok := opts.String("user")
	if !ok || id == "" || id == sc.UserID() {
		return sc.UserID(), true
	}
	if !sc.IsAdmin() {
		_ = sc.RespondEphemeral("Only administrators can change settings of other members.")
		return "", false
	}
	if sc.User(id).Bot {
		_ = sc.RespondEphemeral(sc.Name(id) + " is a bot.")
		return "", false
	}
	return id, true
}
