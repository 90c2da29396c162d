// Package command lists the slash commands of the bot.
package command

import (
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/command/session"
	"github.com/keshon/ttsvoice/internal/command/settings"
	"github.com/keshon/ttsvoice/internal/core"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/pkg/cmd"
)

// All returns every command, unwrapped.
func All() []cmd.Command {
	return []cmd.Command{
		&session.JoinCommand{},
		&session.LeaveCommand{},
		&session.ReconnectCommand{},
		&settings.VoiceCommand{},
		&settings.DenyCommand{},
		&settings.ConfigCommand{},
		&settings.VnickCommand{},
		&settings.ClipCommand{Category: tts.CategoryInm},
		&settings.ClipCommand{Category: tts.CategoryCookie},
	}
}

// Register adds every command to reg behind the standard middlewares.
func Register(reg *cmd.Registry, log zerolog.Logger) {
	for _, c := range All() {
		reg.Register(core.Apply(c, log))
	}
}
