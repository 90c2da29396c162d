package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

// toggle is a boolean server option.
type toggle struct {
	name  string
	label string
	get   func(*storage.ServerConfig) *bool
	// category must be available for the toggle to be switched on.
	category string
}

var toggles = []toggle{
	{name: "need-join", label: "Only read members in the voice channel", get: func(c *storage.ServerConfig) *bool { return &c.NeedJoin }},
	{name: "overwrite-aloud", label: "New messages cut off the current one", get: func(c *storage.ServerConfig) *bool { return &c.OverwriteAloud }},
	{name: "inm-mode", label: "INM clip voice", get: func(c *storage.ServerConfig) *bool { return &c.InmMode }, category: tts.CategoryInm},
	{name: "cookie-mode", label: "Cookie clip voice", get: func(c *storage.ServerConfig) *bool { return &c.CookieMode }, category: tts.CategoryCookie},
	{name: "join-say-name", label: "Announce joins, leaves and moves", get: func(c *storage.ServerConfig) *bool { return &c.AnnounceJoins }},
}

type ConfigCommand struct{}

func (c *ConfigCommand) Name() string        { return "config" }
func (c *ConfigCommand) Description() string { return "Show or change how this server is read" }
func (c *ConfigCommand) Group() string       { return "settings" }
func (c *ConfigCommand) RequireAdmin() bool  { return true }

func (c *ConfigCommand) SlashDefinition() *discordgo.ApplicationCommand {
	opts := []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show the current settings"},
	}
	for _, t := range toggles {
		opts = append(opts, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        t.name,
			Description: t.label,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "enable",
				Description: "On or off",
				Required:    true,
			}},
		})
	}
	minCount := float64(0)
	opts = append(opts,
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "read-around-limit",
			Description: "Longest message read in full",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "max-count",
				Description: "Characters",
				Required:    true,
				MinValue:    &minCount,
			}},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "non-reading-prefix",
			Description: "Messages starting with this are not read",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prefix",
				Description: "Prefix",
				Required:    true,
			}},
		},
	)
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description(), Options: opts}
}

func (c *ConfigCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}
	sub, opts := sc.Subcommand()
	guildID := sc.GuildID()
	servers := sc.Env.Servers

	if sub == "show" {
		return sc.RespondEphemeral(c.show(sc))
	}

	for _, t := range toggles {
		if t.name != sub {
			continue
		}
		enable, ok := opts.Bool("enable")
		if !ok {
			return sc.RespondEphemeral("Missing value.")
		}
		if enable && t.category != "" && !c.categoryAvailable(sc, t.category) {
			return sc.RespondEphemeral("That voice category is not available on this bot.")
		}
		cfg := servers.Get(guildID)
		if *t.get(&cfg) == enable {
			return sc.RespondEphemeral(fmt.Sprintf("%s is already %s.", t.label, onOff(enable)))
		}
		servers.Update(guildID, func(cfg *storage.ServerConfig) { *t.get(cfg) = enable })

		if t.name == "join-say-name" && enable && sc.Env.Audit != nil {
			if err := sc.Env.Audit.Refresh(ctx, guildID); err != nil {
				sc.Env.Log.Warn().Err(err).Str("guild", guildID).Msg("audit log snapshot failed")
			}
		}
		return sc.Respond(fmt.Sprintf("%s: %s.", t.label, onOff(enable)))
	}

	switch sub {
	case "read-around-limit":
		n, ok := opts.Int("max-count")
		if !ok || n < 0 {
			return sc.RespondEphemeral("Give a character count of 0 or more.")
		}
		if servers.Get(guildID).MaxReadAroundLimit == n {
			return sc.RespondEphemeral(fmt.Sprintf("The limit is already %d.", n))
		}
		servers.Update(guildID, func(cfg *storage.ServerConfig) { cfg.MaxReadAroundLimit = n })
		return sc.Respond(fmt.Sprintf("Messages are now read up to %d characters.", n))
	case "non-reading-prefix":
		prefix, _ := opts.String("prefix")
		if servers.Get(guildID).NonReadingPrefix == prefix {
			return sc.RespondEphemeral(fmt.Sprintf("The prefix is already `%s`.", prefix))
		}
		servers.Update(guildID, func(cfg *storage.ServerConfig) { cfg.NonReadingPrefix = prefix })
		return sc.Respond(fmt.Sprintf("Messages starting with `%s` are no longer read.", prefix))
	}
	return sc.RespondEphemeral("Unknown subcommand.")
}

func (c *ConfigCommand) show(sc *core.SlashContext) string {
	cfg := sc.Env.Servers.Get(sc.GuildID())
	var sb strings.Builder
	for _, t := range toggles {
		if t.category != "" && !c.categoryAvailable(sc, t.category) {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", t.label, onOff(*t.get(&cfg)))
	}
	fmt.Fprintf(&sb, "Read around limit: %d\n", cfg.MaxReadAroundLimit)
	fmt.Fprintf(&sb, "Non-reading prefix: %s\n", cfg.NonReadingPrefix)
	return "Server settings:\n```\n" + sb.String() + "```"
}

func (c *ConfigCommand) categoryAvailable(sc *core.SlashContext, category string) bool {
	_, ok := sc.Env.Catalog.Lookup(category + ":" + tts.ClipName)
	return ok
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
