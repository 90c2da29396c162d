package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

// ClipCommand plays one named clip of a clip category in the session of the
// invoking bot, whatever text channel it reads.
type ClipCommand struct {
	Category string
}

func (c *ClipCommand) Name() string { return c.Category }
func (c *ClipCommand) Description() string {
	return fmt.Sprintf("Play a %s clip in the voice channel", c.Category)
}
func (c *ClipCommand) Group() string      { return "settings" }
func (c *ClipCommand) RequireAdmin() bool { return false }

func (c *ClipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "search",
				Description: "Clip name",
				Required:    true,
			},
		},
	}
}

func (c *ClipCommand) voiceID() string {
	return c.Category + ":" + tts.ClipName
}

func (c *ClipCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	sc, err := core.FromInvocation(inv)
	if err != nil {
		return err
	}

	name, _ := sc.Options().String("search")
	name = strings.TrimSpace(name)
	if name == "" {
		return sc.RespondEphemeral("Missing clip name.")
	}
	if !sc.Env.Catalog.Allowed(c.voiceID(), sc.Env.Gates(sc.GuildID())) {
		return sc.RespondEphemeral(fmt.Sprintf("%s clips are disabled here.", c.Category))
	}
	if !sc.Env.Voice.Speak(sc.Key(), voice.NewUtterance(c.voiceID(), name)) {
		return sc.RespondEphemeral("I am not in a voice channel.")
	}
	return sc.RespondEphemeral(fmt.Sprintf("Playing %s.", name))
}
