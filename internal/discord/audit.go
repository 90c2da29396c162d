package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/internal/auditlog"
)

// auditLogLimit is how many entries one snapshot holds.
const auditLogLimit = 50

// FetchEntries implements auditlog.Fetcher for this identity.
func (b *Bot) FetchEntries(ctx context.Context, guildID string, action auditlog.ActionType) ([]auditlog.Entry, error) {
	st, err := b.dg.GuildAuditLog(guildID, "", "", int(action), auditLogLimit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("audit log of %s: %w", guildID, err)
	}
	return toEntries(st.AuditLogEntries), nil
}

func toEntries(in []*discordgo.AuditLogEntry) []auditlog.Entry {
	out := make([]auditlog.Entry, 0, len(in))
	for _, e := range in {
		if e == nil {
			continue
		}
		entry := auditlog.Entry{
			ID:       e.ID,
			UserID:   e.UserID,
			TargetID: e.TargetID,
		}
		if e.ActionType != nil {
			entry.ActionType = auditlog.ActionType(*e.ActionType)
		}
		if o := e.Options; o != nil {
			entry.Options = make(map[string]string, 2)
			if o.ChannelID != "" {
				entry.Options["channel_id"] = o.ChannelID
			}
			if o.Count != "" {
				entry.Options["count"] = o.Count
			}
		}
		out = append(out, entry)
	}
	return out
}

// Refresh implements core.AuditRefresher: every identity present in the
// guild re-snapshots its audit log.
func (f *Fleet) Refresh(ctx context.Context, guildID string) error {
	var firstErr error
	for _, b := range f.bots {
		if !b.inGuild(guildID) {
			continue
		}
		if err := b.differ.Refresh(ctx, guildID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
