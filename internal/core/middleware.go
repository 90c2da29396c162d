package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/pkg/cmd"
)

// Apply wraps c in the middlewares every slash command gets. The logger is
// the outermost so it also sees rejected invocations.
func Apply(c cmd.Command, log zerolog.Logger) cmd.Command {
	return cmd.Apply(c, WithAccessControl(), WithGuildOnly(), WithCommandLogger(log))
}

// WithGuildOnly rejects invocations from direct messages.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, err := FromInvocation(inv)
			if err != nil {
				return c.Run(ctx, inv)
			}
			if sc.GuildID() == "" {
				return sc.RespondEphemeral("This command only works inside a server.")
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs every invocation after it ran.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			level := zerolog.InfoLevel
			if err != nil {
				level = zerolog.WarnLevel
			}
			ev := log.WithLevel(level).Err(err)
			if sc, scErr := FromInvocation(inv); scErr == nil {
				ev = ev.Int("bot", sc.Bot).
					Str("guild", sc.GuildID()).
					Str("channel", sc.ChannelID()).
					Str("user", sc.UserID())
			}
			ev.Str("command", c.Name()).Dur("took", time.Since(start)).Msg("command executed")
			return err
		})
	}
}
