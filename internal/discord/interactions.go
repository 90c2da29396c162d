package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

const commandFailed = "Something went wrong, try again later."

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.runCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.autocomplete(s, i)
	}
}

func (b *Bot) slashContext(s *discordgo.Session, i *discordgo.InteractionCreate) *core.SlashContext {
	return &core.SlashContext{
		Session: s,
		Event:   i,
		Bot:     b.index,
		Env:     b.fleet.env,
		Reply:   &core.InteractionResponder{Session: s, Interaction: i.Interaction},
	}
}

func (b *Bot) runCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	c, ok := b.fleet.deps.Commands.Get(name)
	if !ok {
		b.log.Warn().Str("command", name).Msg("unknown command")
		return
	}

	sc := b.slashContext(s, i)
	err := c.Run(context.Background(), &cmd.Invocation{Data: sc})
	if err == nil || errors.Is(err, core.ErrUnsupportedContext) {
		return
	}
	// The logging middleware already recorded the failure.
	if rerr := sc.RespondEphemeral(commandFailed); rerr != nil {
		b.log.Debug().Err(rerr).Str("command", name).Msg("failed to report command error")
	}
}

func (b *Bot) autocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	c, ok := b.fleet.deps.Commands.Get(name)
	if !ok {
		return
	}
	ac, ok := cmd.Root(c).(core.Autocompleter)
	if !ok {
		return
	}

	sc := b.slashContext(s, i)
	choices, err := ac.Autocomplete(context.Background(), sc)
	if err != nil {
		b.log.Warn().Err(err).Str("command", name).Msg("autocomplete failed")
		choices = nil
	}
	if err := sc.Reply.Choices(choices); err != nil {
		b.log.Debug().Err(err).Str("command", name).Msg("failed to send autocomplete choices")
	}
}
