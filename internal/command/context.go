package command

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Responder is the slice of the Discord REST API the dispatcher needs.
// *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Context is what a handler sees of one interaction.
type Context struct {
	Interaction *discordgo.Interaction
	Command     *Command
	Logger      zerolog.Logger

	responder  Responder
	subcommand string
	options    map[string]*discordgo.ApplicationCommandInteractionDataOption
	deferred   bool
	replied    bool
}

func newContext(i *discordgo.Interaction, cmd *Command, r Responder, logger zerolog.Logger) *Context {
	c := &Context{
		Interaction: i,
		Command:     cmd,
		Logger:      logger,
		responder:   r,
		options:     make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}

	opts := i.ApplicationCommandData().Options
	if len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		c.subcommand = opts[0].Name
		opts = opts[0].Options
	}
	for _, opt := range opts {
		c.options[opt.Name] = opt
	}
	return c
}

// UserID is the invoking user, in a guild or in DMs.
func (c *Context) UserID() string {
	return interactionUserID(c.Interaction)
}

func (c *Context) GuildID() string {
	return c.Interaction.GuildID
}

// Roles returns the invoking member's role ids, empty outside guilds.
func (c *Context) Roles() []string {
	if c.Interaction.Member == nil {
		return nil
	}
	return c.Interaction.Member.Roles
}

// HasPermission reports whether the invoking member holds perm.
// Administrators hold every permission.
func (c *Context) HasPermission(perm int64) bool {
	return hasPermission(c.Interaction.Member, perm)
}

// Subcommand returns the selected subcommand name, if the command has any.
func (c *Context) Subcommand() string {
	return c.subcommand
}

// String returns a string option, or "" when absent.
func (c *Context) String(name string) string {
	if opt, ok := c.options[name]; ok {
		if s, ok := opt.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns an integer option and whether it was provided.
// Option values arrive as JSON numbers, so float64 is the usual case.
func (c *Context) Int(name string) (int64, bool) {
	opt, ok := c.options[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// User returns the id of a user option, or "" when absent.
func (c *Context) User(name string) string {
	return c.String(name)
}

// Role returns the id of a role option, or "" when absent.
func (c *Context) Role(name string) string {
	return c.String(name)
}

// Reply answers the interaction. After an acknowledgement it edits the
// deferred response, otherwise it sends the initial response.
func (c *Context) Reply(embeds ...*discordgo.MessageEmbed) error {
	return c.respond("", embeds)
}

// ReplyText answers with plain content.
func (c *Context) ReplyText(content string) error {
	return c.respond(content, nil)
}

func (c *Context) respond(content string, embeds []*discordgo.MessageEmbed) error {
	if c.deferred || c.replied {
		if embeds == nil {
			embeds = []*discordgo.MessageEmbed{}
		}
		_, err := c.responder.InteractionResponseEdit(c.Interaction, &discordgo.WebhookEdit{
			Content: &content,
			Embeds:  &embeds,
		})
		if err == nil {
			c.replied = true
		}
		return err
	}

	data := &discordgo.InteractionResponseData{Content: content, Embeds: embeds}
	if c.Command.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := c.responder.InteractionRespond(c.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		c.replied = true
	}
	return err
}

// reject sends an ephemeral initial response, used before acknowledgement.
func (c *Context) reject(embed *discordgo.MessageEmbed) error {
	err := c.responder.InteractionRespond(c.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err == nil {
		c.replied = true
	}
	return err
}

func (c *Context) deferReply() error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if c.Command.Ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := c.responder.InteractionRespond(c.Interaction, resp); err != nil {
		return err
	}
	c.deferred = true
	return nil
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
