package core

import (
	"context"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/ttsvoice/pkg/cmd"
)

// IsAdmin reports whether member holds one of adminRoles, or has Manage
// Server. Interaction members carry their computed permissions, which include
// everything for the owner and for administrators.
func IsAdmin(member *discordgo.Member, adminRoles []string) bool {
	if member == nil {
		return false
	}
	for _, r := range member.Roles {
		if slices.Contains(adminRoles, r) {
			return true
		}
	}
	const mask = discordgo.PermissionAdministrator | discordgo.PermissionManageServer
	return member.Permissions&mask != 0
}

// IsAdmin reports whether the invoking member is an admin.
func (c *SlashContext) IsAdmin() bool {
	return IsAdmin(c.Event.Member, c.Env.Config.AdminRoles)
}

// WithAccessControl enforces the admin check for commands that require it,
// in guilds configured to need it.
func WithAccessControl() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			meta, ok := cmd.Root(c).(Meta)
			if !ok || !meta.RequireAdmin() {
				return c.Run(ctx, inv)
			}
			sc, err := FromInvocation(inv)
			if err != nil {
				return c.Run(ctx, inv)
			}
			if sc.Env.Config.IsNeedAdminGuild(sc.GuildID()) && !sc.IsAdmin() {
				return sc.RespondEphemeral("Only server administrators can use this command here.")
			}
			return c.Run(ctx, inv)
		})
	}
}
