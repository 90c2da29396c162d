package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/auditlog"
	"github.com/keshon/ttsvoice/internal/voice"
)

func TestHashCommandsIgnoresOrder(t *testing.T) {
	a := &discordgo.ApplicationCommand{
		Name:        "join",
		Description: "Join",
		Options: []*discordgo.ApplicationCommandOption{
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel},
			{Name: "silent", Type: discordgo.ApplicationCommandOptionBoolean},
		},
	}
	b := &discordgo.ApplicationCommand{Name: "leave", Description: "Leave"}
	reordered := &discordgo.ApplicationCommand{
		ID:          "123",
		Version:     "9",
		Name:        "join",
		Description: "Join",
		Options: []*discordgo.ApplicationCommandOption{
			{Name: "silent", Type: discordgo.ApplicationCommandOptionBoolean},
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel},
		},
	}

	h1 := hashCommands([]*discordgo.ApplicationCommand{a, b})
	h2 := hashCommands([]*discordgo.ApplicationCommand{b, reordered})
	if h1 != h2 {
		t.Fatalf("hash depends on order or runtime fields: %s != %s", h1, h2)
	}

	changed := &discordgo.ApplicationCommand{Name: "leave", Description: "Leave the channel"}
	if hashCommands([]*discordgo.ApplicationCommand{a, changed}) == h1 {
		t.Fatal("description change must change the hash")
	}
}

func TestToEntries(t *testing.T) {
	move := discordgo.AuditLogAction(auditlog.ActionMemberMove)
	in := []*discordgo.AuditLogEntry{
		{
			ID:         "e1",
			UserID:     "mod",
			ActionType: &move,
			Options:    &discordgo.AuditLogOptions{ChannelID: "c1", Count: "2"},
		},
		nil,
		{ID: "e2", TargetID: "u"},
	}

	got := toEntries(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ActionType != auditlog.ActionMemberMove || got[0].UserID != "mod" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[0].Options["channel_id"] != "c1" || got[0].Options["count"] != "2" {
		t.Fatalf("options not mapped: %v", got[0].Options)
	}
	if got[1].Options != nil || got[1].TargetID != "u" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestPermissionError(t *testing.T) {
	tests := []struct {
		perms int64
		want  error
	}{
		{discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak, nil},
		{discordgo.PermissionVoiceSpeak, voice.ErrNoConnectPermission},
		{discordgo.PermissionVoiceConnect, voice.ErrNoSpeakPermission},
		{0, voice.ErrNoConnectPermission},
	}
	for _, tt := range tests {
		if got := permissionError(tt.perms); !errors.Is(got, tt.want) {
			t.Errorf("permissionError(%d) = %v, want %v", tt.perms, got, tt.want)
		}
	}
}

func TestToMessage(t *testing.T) {
	m := &discordgo.Message{
		GuildID:   "g",
		ChannelID: "c",
		Content:   "hello",
		Author:    &discordgo.User{ID: "u", Bot: true},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "a.txt", ContentType: "text/plain"},
			nil,
		},
	}
	got := toMessage(m)
	if got.AuthorID != "u" || !got.AuthorIsBot || got.Content != "hello" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Filename != "a.txt" {
		t.Fatalf("unexpected attachments: %+v", got.Attachments)
	}
}

func TestToVoiceChange(t *testing.T) {
	v := &discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v2"},
		BeforeUpdate: &discordgo.VoiceState{ChannelID: "v1"},
	}
	c := toVoiceChange(v)
	if c.Before != "v1" || c.After != "v2" || c.UserID != "u" || c.GuildID != "g" {
		t.Fatalf("unexpected change: %+v", c)
	}

	fresh := toVoiceChange(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v1"},
	})
	if fresh.Before != "" || fresh.After != "v1" {
		t.Fatalf("unexpected join change: %+v", fresh)
	}
}

func TestMemberName(t *testing.T) {
	tests := []struct {
		m    *discordgo.Member
		want string
	}{
		{&discordgo.Member{Nick: "nick", User: &discordgo.User{GlobalName: "global", Username: "user"}}, "nick"},
		{&discordgo.Member{User: &discordgo.User{GlobalName: "global", Username: "user"}}, "global"},
		{&discordgo.Member{User: &discordgo.User{Username: "user"}}, "user"},
		{&discordgo.Member{}, ""},
	}
	for _, tt := range tests {
		if got := memberName(tt.m); got != tt.want {
			t.Errorf("memberName = %q, want %q", got, tt.want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !isNotFound(notFound) {
		t.Fatal("404 must be not found")
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if isNotFound(forbidden) || isNotFound(errors.New("boom")) {
		t.Fatal("only 404 is not found")
	}
}
