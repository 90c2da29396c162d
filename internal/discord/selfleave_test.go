package discord

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/config"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/voice"
)

func newBoundFleet(t *testing.T) (*Fleet, *storage.Storage) {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "save.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	f, err := NewFleet(Deps{
		Config:  &config.Config{DiscordTokens: []string{"token"}},
		Storage: st,
		Log:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	registry := voice.NewRegistry(nil, f, zerolog.Nop())
	t.Cleanup(registry.Close)
	f.Bind(registry)
	f.bots[0].setUserID("self")

	key := voice.Key{Bot: 0, GuildID: "g"}
	registry.Connect(key, "text", "vc")
	err = st.SetLastJoin("self", storage.LastJoin{
		GuildID:        "g",
		TextChannelID:  "text",
		VoiceChannelID: "vc",
		JoinedAt:       time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return f, st
}

func selfLeft() *discordgo.VoiceStateUpdate {
	return &discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "g", UserID: "self"},
		BeforeUpdate: &discordgo.VoiceState{GuildID: "g", UserID: "self", ChannelID: "vc"},
	}
}

func TestShutdownKeepsLastJoin(t *testing.T) {
	f, st := newBoundFleet(t)
	f.closing.Store(true)

	f.bots[0].onVoiceStateUpdate(nil, selfLeft())

	joins, err := st.LastJoins("self")
	if err != nil {
		t.Fatal(err)
	}
	if len(joins) != 1 || joins[0].VoiceChannelID != "vc" {
		t.Fatalf("shutdown erased the last join: %+v", joins)
	}
}

func TestKickClearsLastJoin(t *testing.T) {
	f, st := newBoundFleet(t)

	f.bots[0].onVoiceStateUpdate(nil, selfLeft())

	joins, err := st.LastJoins("self")
	if err != nil {
		t.Fatal(err)
	}
	if len(joins) != 0 {
		t.Fatalf("kick should clear the last join, got %+v", joins)
	}
	if _, ok := f.registry.Get(voice.Key{Bot: 0, GuildID: "g"}); ok {
		t.Fatal("kick should drop the session")
	}
}
