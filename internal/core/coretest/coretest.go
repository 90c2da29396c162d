// Package coretest has fakes for exercising slash commands without a gateway.
package coretest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/config"
	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
	"github.com/keshon/ttsvoice/pkg/jobmgr"
)

type Reply struct {
	Content   string
	Ephemeral bool
}

// Responder records replies. Deferred counts acknowledgements sent ahead of
// the first reply.
type Responder struct {
	mu         sync.Mutex
	Deferred   int
	Replies    []Reply
	ChoiceSets [][]*discordgo.ApplicationCommandOptionChoice
}

func (r *Responder) Defer(bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		r.Deferred++
	}
	return nil
}

func (r *Responder) Respond(content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Replies = append(r.Replies, Reply{Content: content, Ephemeral: ephemeral})
	return nil
}

func (r *Responder) Choices(choices []*discordgo.ApplicationCommandOptionChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChoiceSets = append(r.ChoiceSets, choices)
	return nil
}

// Last returns the latest reply, or the zero Reply.
func (r *Responder) Last() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		return Reply{}
	}
	return r.Replies[len(r.Replies)-1]
}

type Join struct {
	Key            voice.Key
	TextChannelID  string
	VoiceChannelID string
}

// Voice is an in-memory VoiceControl.
type Voice struct {
	mu       sync.Mutex
	bindings map[voice.Key]voice.Binding
	// Members maps user id to the voice channel they sit in.
	Members map[string]string
	JoinErr error
	Joins   []Join
	Leaves  []voice.Key
	Spoken  []voice.Utterance
}

func NewVoice() *Voice {
	return &Voice{bindings: make(map[voice.Key]voice.Binding), Members: make(map[string]string)}
}

func (v *Voice) Join(_ context.Context, key voice.Key, textChannelID, voiceChannelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.JoinErr != nil {
		return v.JoinErr
	}
	v.Joins = append(v.Joins, Join{Key: key, TextChannelID: textChannelID, VoiceChannelID: voiceChannelID})
	v.bindings[key] = voice.Binding{Key: key, State: voice.StateConnected, TextChannelID: textChannelID, VoiceChannelID: voiceChannelID}
	return nil
}

func (v *Voice) Leave(_ context.Context, key voice.Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Leaves = append(v.Leaves, key)
	delete(v.bindings, key)
	return nil
}

func (v *Voice) Binding(key voice.Key) (voice.Binding, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.bindings[key]
	return b, ok
}

func (v *Voice) MemberVoiceChannel(_ voice.Key, userID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Members[userID]
}

func (v *Voice) Speak(key voice.Key, utterances ...voice.Utterance) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.bindings[key]; !ok {
		return false
	}
	v.Spoken = append(v.Spoken, utterances...)
	return true
}

type scheduled struct {
	name    string
	handler jobmgr.Handler
}

// Scheduler records delayed jobs; RunAll fires them.
type Scheduler struct {
	mu   sync.Mutex
	jobs []scheduled
}

func (s *Scheduler) After(name string, _ time.Duration, handler jobmgr.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduled{name: name, handler: handler})
	return nil
}

func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.name
	}
	return out
}

func (s *Scheduler) RunAll(ctx context.Context) error {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, j := range jobs {
		if err := j.handler(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Audit counts refreshes per guild.
type Audit struct {
	mu        sync.Mutex
	Refreshed []string
}

func (a *Audit) Refresh(_ context.Context, guildID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Refreshed = append(a.Refreshed, guildID)
	return nil
}

// Names maps user ids to display names, falling back to the id.
type Names map[string]string

func (n Names) DisplayName(_ string, userID string) string {
	if name, ok := n[userID]; ok {
		return name
	}
	return userID
}

// Fixture bundles an Env and its fakes.
type Fixture struct {
	Env   *core.Env
	Voice *Voice
	Jobs  *Scheduler
	Audit *Audit
}

// NewFixture builds an Env over temporary storage with the voicetext and
// clip categories available.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := storage.New(filepath.Join(dir, "save.json"))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	servers, err := storage.LoadServerConfigs(filepath.Join(dir, "server_config"), zerolog.Nop())
	if err != nil {
		t.Fatalf("server configs: %v", err)
	}

	f := &Fixture{Voice: NewVoice(), Jobs: &Scheduler{}, Audit: &Audit{}}
	f.Env = &core.Env{
		Config:  &config.Config{},
		Storage: st,
		Servers: servers,
		Catalog: tts.NewCatalog([]string{tts.CategoryVoiceText, tts.CategoryInm}, "voicetext:hikari"),
		Voice:   f.Voice,
		Jobs:    f.Jobs,
		Audit:   f.Audit,
		Names:   Names{},
		Log:     zerolog.Nop(),
	}
	return f
}

// Interaction builds a guild slash command interaction from userID. perms
// are the member's computed permissions.
func Interaction(name, guildID, channelID, userID string, perms int64, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: channelID,
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: userID},
			Permissions: perms,
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:     name,
			Options:  opts,
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{Users: map[string]*discordgo.User{}},
		},
	}}
}

// WithBotUser marks userID as a bot in the resolved users of ev.
func WithBotUser(ev *discordgo.InteractionCreate, userID string) *discordgo.InteractionCreate {
	data := ev.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved.Users[userID] = &discordgo.User{ID: userID, Bot: true}
	ev.Data = data
	return ev
}

func Sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func String(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func Bool(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func Int(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func User(name, userID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: userID}
}

func Channel(name, channelID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: channelID}
}

// Run invokes c the way the dispatcher does, middlewares included, and
// returns the recorded replies.
func (f *Fixture) Run(t *testing.T, c cmd.Command, bot int, ev *discordgo.InteractionCreate) (*Responder, error) {
	t.Helper()
	r := &Responder{}
	sc := &core.SlashContext{Event: ev, Bot: bot, Env: f.Env, Reply: r}
	wrapped := core.Apply(c, zerolog.Nop())
	return r, wrapped.Run(context.Background(), &cmd.Invocation{Data: sc})
}
