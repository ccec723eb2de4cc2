package testutil

import (
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Ids used by fixtures. They are valid snowflakes.
const (
	GuildID     = "900000000000000001"
	UserID      = "100000000000000001"
	OtherUserID = "100000000000000002"
	RoleID      = "700000000000000001"
	AppID       = "800000000000000001"
)

const discordEpochMs = 1420070400000

// Snowflake returns an id whose embedded creation time is t.
func Snowflake(t time.Time) string {
	return strconv.FormatInt((t.UnixMilli()-discordEpochMs)<<22, 10)
}

// Responder records every Discord REST call a command makes.
type Responder struct {
	mu sync.Mutex

	Responses    []*discordgo.InteractionResponse
	Edits        []*discordgo.WebhookEdit
	ChannelSends []ChannelSend

	// RespondErr, EditErr and SendErr fail the matching call when set.
	RespondErr error
	EditErr    error
	SendErr    error
}

// ChannelSend is one ChannelMessageSendEmbed call.
type ChannelSend struct {
	ChannelID string
	Embed     *discordgo.MessageEmbed
}

func (r *Responder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, resp)
	return r.RespondErr
}

func (r *Responder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edits = append(r.Edits, edit)
	if r.EditErr != nil {
		return nil, r.EditErr
	}
	return &discordgo.Message{}, nil
}

func (r *Responder) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChannelSends = append(r.ChannelSends, ChannelSend{ChannelID: channelID, Embed: embed})
	if r.SendErr != nil {
		return nil, r.SendErr
	}
	return &discordgo.Message{}, nil
}

// Calls is the total number of REST calls recorded.
func (r *Responder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Responses) + len(r.Edits) + len(r.ChannelSends)
}

// Replies returns every embed sent to the user, in order, from initial
// responses and edits alike. Deferred acknowledgements carry none.
func (r *Responder) Replies() []*discordgo.MessageEmbed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*discordgo.MessageEmbed
	for _, resp := range r.Responses {
		if resp.Data != nil {
			out = append(out, resp.Data.Embeds...)
		}
	}
	for _, edit := range r.Edits {
		if edit.Embeds != nil {
			out = append(out, *edit.Embeds...)
		}
	}
	return out
}

// LastReply returns the most recent embed sent to the user, or nil.
func (r *Responder) LastReply() *discordgo.MessageEmbed {
	replies := r.Replies()
	if len(replies) == 0 {
		return nil
	}
	return replies[len(replies)-1]
}

// InteractionBuilder assembles slash command interactions for tests.
type InteractionBuilder struct {
	i       *discordgo.Interaction
	data    *discordgo.ApplicationCommandInteractionData
	sub     *discordgo.ApplicationCommandInteractionDataOption
	created time.Time
}

// Command starts an interaction for /name sent now by UserID in GuildID.
func Command(name string) *InteractionBuilder {
	data := &discordgo.ApplicationCommandInteractionData{Name: name}
	return &InteractionBuilder{
		i: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: GuildID,
			AppID:   AppID,
			Token:   "token",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: UserID, Username: "tester"},
			},
		},
		data:    data,
		created: time.Now(),
	}
}

// At sets the interaction creation time.
func (b *InteractionBuilder) At(t time.Time) *InteractionBuilder {
	b.created = t
	return b
}

func (b *InteractionBuilder) User(id string) *InteractionBuilder {
	b.i.Member.User.ID = id
	return b
}

func (b *InteractionBuilder) Permissions(perms int64) *InteractionBuilder {
	b.i.Member.Permissions = perms
	return b
}

func (b *InteractionBuilder) Roles(ids ...string) *InteractionBuilder {
	b.i.Member.Roles = ids
	return b
}

// DM drops the guild member so the interaction looks like a direct message.
func (b *InteractionBuilder) DM() *InteractionBuilder {
	b.i.User = b.i.Member.User
	b.i.Member = nil
	b.i.GuildID = ""
	return b
}

// Sub selects a subcommand; later options are nested under it.
func (b *InteractionBuilder) Sub(name string) *InteractionBuilder {
	b.sub = &discordgo.ApplicationCommandInteractionDataOption{
		Name: name,
		Type: discordgo.ApplicationCommandOptionSubCommand,
	}
	b.data.Options = append(b.data.Options, b.sub)
	return b
}

func (b *InteractionBuilder) String(name, value string) *InteractionBuilder {
	return b.option(name, discordgo.ApplicationCommandOptionString, value)
}

// Int adds an integer option encoded the way the gateway delivers it.
func (b *InteractionBuilder) Int(name string, value int64) *InteractionBuilder {
	return b.option(name, discordgo.ApplicationCommandOptionInteger, float64(value))
}

func (b *InteractionBuilder) UserOption(name, userID string) *InteractionBuilder {
	return b.option(name, discordgo.ApplicationCommandOptionUser, userID)
}

func (b *InteractionBuilder) RoleOption(name, roleID string) *InteractionBuilder {
	return b.option(name, discordgo.ApplicationCommandOptionRole, roleID)
}

func (b *InteractionBuilder) option(name string, typ discordgo.ApplicationCommandOptionType, value any) *InteractionBuilder {
	opt := &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: value}
	if b.sub != nil {
		b.sub.Options = append(b.sub.Options, opt)
	} else {
		b.data.Options = append(b.data.Options, opt)
	}
	return b
}

func (b *InteractionBuilder) Build() *discordgo.Interaction {
	b.i.ID = Snowflake(b.created)
	// discordgo type-asserts the value, not a pointer.
	b.i.Data = *b.data
	return b.i
}
