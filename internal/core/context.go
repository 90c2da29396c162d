package core

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/voice"
)

// Responder answers an interaction. Defer acknowledges it first, for commands
// that may outlast the acknowledgement deadline; Respond then follows up.
type Responder interface {
	Defer(ephemeral bool) error
	Respond(content string, ephemeral bool) error
	Choices(choices []*discordgo.ApplicationCommandOptionChoice) error
}

// SlashContext is what a command receives for one interaction, seen through
// one bot identity.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Bot     int
	Env     *Env
	Reply   Responder
}

func (c *SlashContext) GuildID() string   { return c.Event.GuildID }
func (c *SlashContext) ChannelID() string { return c.Event.ChannelID }

// Key is the session key of this bot identity in the interaction's guild.
func (c *SlashContext) Key() voice.Key {
	return voice.Key{Bot: c.Bot, GuildID: c.Event.GuildID}
}

func (c *SlashContext) UserID() string {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User.ID
	}
	if c.Event.User != nil {
		return c.Event.User.ID
	}
	return ""
}

func (c *SlashContext) Data() discordgo.ApplicationCommandInteractionData {
	return c.Event.ApplicationCommandData()
}

// Options returns the top level options by name.
func (c *SlashContext) Options() Options {
	return newOptions(c.Data().Options)
}

// Subcommand returns the invoked subcommand and its options. The name is ""
// when the command has no subcommands.
func (c *SlashContext) Subcommand() (string, Options) {
	opts := c.Data().Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return opts[0].Name, newOptions(opts[0].Options)
	}
	return "", newOptions(opts)
}

// User returns the resolved user behind a user option value.
func (c *SlashContext) User(id string) *discordgo.User {
	if r := c.Data().Resolved; r != nil {
		if u, ok := r.Users[id]; ok && u != nil {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

func (c *SlashContext) Respond(content string) error {
	return c.Reply.Respond(content, false)
}

func (c *SlashContext) RespondEphemeral(content string) error {
	return c.Reply.Respond(content, true)
}

// Name is the display name of a guild member, for replies.
func (c *SlashContext) Name(userID string) string {
	if c.Env.Names == nil {
		return userID
	}
	return c.Env.Names.DisplayName(c.GuildID(), userID)
}

// Options indexes interaction options by name.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptions(in []*discordgo.ApplicationCommandInteractionDataOption) Options {
	out := make(Options, len(in))
	for _, o := range in {
		out[o.Name] = o
	}
	return out
}

func (o Options) String(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	s, ok := opt.Value.(string)
	return s, ok
}

func (o Options) Bool(name string) (bool, bool) {
	opt, ok := o[name]
	if !ok {
		return false, false
	}
	b, ok := opt.Value.(bool)
	return b, ok
}

// Int reads an integer option. JSON numbers arrive as float64.
func (o Options) Int(name string) (int, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Focused returns the option the user is typing into during autocomplete.
func (o Options) Focused() (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range o {
		if opt.Focused {
			return opt, true
		}
	}
	return nil, false
}

// InteractionResponder answers through the interaction endpoint. Anything
// after the first acknowledgement goes out as a followup message.
type InteractionResponder struct {
	Session     *discordgo.Session
	Interaction *discordgo.Interaction

	mu    sync.Mutex
	acked bool
}

func (r *InteractionResponder) Defer(ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		return nil
	}
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := r.Session.InteractionRespond(r.Interaction, resp); err != nil {
		return err
	}
	r.acked = true
	return nil
}

func (r *InteractionResponder) Respond(content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	if r.acked {
		_, err := r.Session.FollowupMessageCreate(r.Interaction, false, &discordgo.WebhookParams{
			Content:         content,
			Flags:           flags,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		})
		return err
	}

	err := r.Session.InteractionRespond(r.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           flags,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		return err
	}
	r.acked = true
	return nil
}

func (r *InteractionResponder) Choices(choices []*discordgo.ApplicationCommandOptionChoice) error {
	return r.Session.InteractionRespond(r.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}
