// Package render formats money and builds the embeds the bots reply with.
package render

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ColorSuccess = 0x2ECC71
	ColorError   = 0xFF0000
	ColorInfo    = 0x3498DB
	ColorWarning = 0xF1C40F
)

const errorFooter = "Si el problema persiste, contacta a un administrador"

var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats whole pesos as "$1,234".
func Money(amount int64) string {
	if amount < 0 {
		return printer.Sprintf("-$%d", -amount)
	}
	return printer.Sprintf("$%d", amount)
}

// Number formats an integer with thousands separators.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Embed builds a titled embed with a timestamp.
func Embed(color int, title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func Success(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return Embed(ColorSuccess, "✅ "+title, description, fields...)
}

func Info(title, description string, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return Embed(ColorInfo, title, description, fields...)
}

// Error is the embed every failed command replies with.
func Error(description string) *discordgo.MessageEmbed {
	embed := Embed(ColorError, "❌ Error", description)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: errorFooter}
	return embed
}

// Field is an inline embed field.
func Field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

// Block is a full width embed field.
func Block(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}

// Mention renders a user mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// Timestamp renders a Discord timestamp that each client shows in its own timezone.
// style is one of the Discord styles, e.g. "R" for relative or "f" for full.
func Timestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
