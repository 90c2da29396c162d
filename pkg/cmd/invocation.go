// Package cmd is a transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). Registration and dispatch (Discord
// slash commands here) live in adapters that wrap it.
package cmd

import "context"

// Invocation carries the arguments and the adapter payload. The Discord
// adapter puts its *SlashContext in Data.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
