package testutil

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReadsLikeGatewayInteraction(t *testing.T) {
	i := Command("ticket").Sub("cerrar").Int("id", 7).Build()

	require.IsType(t, discordgo.ApplicationCommandInteractionData{}, i.Data)
	data := i.ApplicationCommandData()
	assert.Equal(t, "ticket", data.Name)
	require.Len(t, data.Options, 1)
	assert.Equal(t, "cerrar", data.Options[0].Name)
	require.Len(t, data.Options[0].Options, 1)
	assert.Equal(t, int64(7), data.Options[0].Options[0].IntValue())

	created, err := discordgo.SnowflakeTimestamp(i.ID)
	require.NoError(t, err)
	assert.False(t, created.IsZero())
}
