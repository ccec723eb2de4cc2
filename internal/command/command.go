// Package command holds the slash command registry and the dispatcher that
// routes Discord interactions to command handlers.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc executes a command. Returned errors are reported to the user
// by the dispatcher, handlers must not send their own error replies.
type HandlerFunc func(ctx context.Context, c *Context) error

// Command is one slash command: its schema plus how to run it.
type Command struct {
	Definition *discordgo.ApplicationCommand
	Handler    HandlerFunc

	// Permission is the member permission bitset required to run the command.
	Permission int64
	// Cooldown is the per user wait between two runs. Zero disables it.
	Cooldown time.Duration
	// Ephemeral replies are only visible to the invoking user.
	Ephemeral bool
	// Defer acknowledges the interaction before the handler runs. Any
	// command that touches the database should set it.
	Defer bool
}

// Name returns the slash command name.
func (c *Command) Name() string {
	return c.Definition.Name
}

// Registrar publishes command schemas. *discordgo.Session implements it.
type Registrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Registry collects the commands of one bot instance.
type Registry struct {
	commands map[string]*Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds commands. Names must be unique and every command needs a handler.
func (r *Registry) Register(cmds ...*Command) error {
	for _, cmd := range cmds {
		if cmd == nil || cmd.Definition == nil || cmd.Definition.Name == "" {
			return fmt.Errorf("command without a name")
		}
		if cmd.Handler == nil {
			return fmt.Errorf("command %q has no handler", cmd.Name())
		}
		if _, exists := r.commands[cmd.Name()]; exists {
			return fmt.Errorf("command %q registered twice", cmd.Name())
		}
		r.commands[cmd.Name()] = cmd
		r.order = append(r.order, cmd.Name())
	}
	return nil
}

// Lookup resolves a command by name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns command names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns one schema per command in registration order.
// Commands with a Permission get it as their default member permission so
// Discord hides them from members who lack it.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.order))
	for _, name := range r.order {
		cmd := r.commands[name]
		def := *cmd.Definition
		if cmd.Permission != 0 && def.DefaultMemberPermissions == nil {
			perm := cmd.Permission
			def.DefaultMemberPermissions = &perm
		}
		defs = append(defs, &def)
	}
	return defs
}

// Sync overwrites the published commands of appID in every guild, or
// globally when guildIDs is empty. It returns the number of commands Discord
// reports for the last scope written.
func (r *Registry) Sync(ctx context.Context, registrar Registrar, appID string, guildIDs []string) (int, error) {
	scopes := guildIDs
	if len(scopes) == 0 {
		scopes = []string{""}
	}

	defs := r.Definitions()
	registered := 0
	for _, guildID := range scopes {
		created, err := registrar.ApplicationCommandBulkOverwrite(appID, guildID, defs, discordgo.WithContext(ctx))
		if err != nil {
			if guildID == "" {
				return 0, fmt.Errorf("registering global commands: %w", err)
			}
			return 0, fmt.Errorf("registering commands in guild %s: %w", guildID, err)
		}
		registered = len(created)
	}
	return registered, nil
}
