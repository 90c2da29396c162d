package discord

import (
	"fmt"

	"github.com/keshon/ttsvoice/internal/core"
)

// syncCommands registers the slash commands globally when their definitions
// changed since the last sync of this application.
func (b *Bot) syncCommands(appID string) error {
	defs := core.Definitions(b.fleet.deps.Commands)
	hash := hashCommands(defs)
	if hash == b.fleet.deps.Storage.CommandHash(appID) {
		b.log.Debug().Int("commands", len(defs)).Msg("slash commands up to date")
		return nil
	}

	if _, err := b.dg.ApplicationCommandBulkOverwrite(appID, "", defs); err != nil {
		return fmt.Errorf("bulk overwrite: %w", err)
	}
	if err := b.fleet.deps.Storage.SetCommandHash(appID, hash); err != nil {
		return fmt.Errorf("save command hash: %w", err)
	}
	b.log.Info().Int("commands", len(defs)).Msg("slash commands registered")
	return nil
}
