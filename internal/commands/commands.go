// Package commands defines the slash commands of each bot instance on top of
// the service layer.
package commands

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/errs"
)

var noDM = new(bool)

var minimumOne = 1.0

func guildID(c *command.Context) (string, error) {
	if id := c.GuildID(); id != "" {
		return id, nil
	}
	return "", errs.New(errs.CodeInvalidInput, "Este comando solo puede usarse en un servidor")
}

func requiredInt(c *command.Context, name string) (int64, error) {
	v, ok := c.Int(name)
	if !ok {
		return 0, errs.New(errs.CodeInvalidInput, "Falta la opción "+name)
	}
	return v, nil
}

func slash(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:         name,
		Description:  description,
		Options:      options,
		DMPermission: noDM,
	}
}

func userOpt(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func roleOpt(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func stringOpt(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// amountOpt is a required positive integer.
func amountOpt(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    true,
		MinValue:    &minimumOne,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}
