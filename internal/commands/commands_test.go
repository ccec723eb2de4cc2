package commands

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/service"
	"github.com/nacionmx/unified-bot/internal/testutil"
)

type nopNotices struct{}

func (nopNotices) EnqueuePaymentReceipt(context.Context, job.PaymentReceiptPayload) error {
	return nil
}

func (nopNotices) EnqueueSanctionNotice(context.Context, job.SanctionNoticePayload) error {
	return nil
}

type harness struct {
	mem        *testutil.Memory
	dispatcher *command.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := testutil.NewMemory()
	log := zerolog.Nop()

	economy, err := service.NewEconomyService(mem.Economy(), nopNotices{}, config.EconomyConfig{
		TransferTaxRate: 0.05,
		MaxTransfer:     1_000_000,
		SalaryCooldown:  24 * time.Hour,
		Timezone:        "America/Mexico_City",
	}, &log)
	require.NoError(t, err)

	registry := command.NewRegistry()
	require.NoError(t, registry.Register(Economy(economy)...))
	require.NoError(t, registry.Register(Moderation(service.NewModerationService(mem.Moderation(), nopNotices{}, &log))...))
	require.NoError(t, registry.Register(Government(service.NewGovernmentService(mem.Government(), &log))...))
	require.NoError(t, registry.Register(Dealership(service.NewDealershipService(mem.Dealership(), &log))...))

	return &harness{mem: mem, dispatcher: command.NewDispatcher(registry, log, command.Options{})}
}

// run dispatches i and returns the single reply the user saw.
func (h *harness) run(t *testing.T, i *discordgo.Interaction) *discordgo.MessageEmbed {
	t.Helper()
	r := &testutil.Responder{}
	h.dispatcher.Dispatch(context.Background(), r, i)
	replies := r.Replies()
	require.Len(t, replies, 1, "exactly one reply")
	return replies[0]
}

func fieldValue(embed *discordgo.MessageEmbed, name string) string {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestCommandSets(t *testing.T) {
	log := zerolog.Nop()
	mem := testutil.NewMemory()
	economy, err := service.NewEconomyService(mem.Economy(), nopNotices{}, config.DefaultConfig().Economy, &log)
	require.NoError(t, err)

	sets := map[string][]*command.Command{
		"economy":    Economy(economy),
		"moderation": Moderation(service.NewModerationService(mem.Moderation(), nopNotices{}, &log)),
		"government": Government(service.NewGovernmentService(mem.Government(), &log)),
		"dealership": Dealership(service.NewDealershipService(mem.Dealership(), &log)),
	}
	sizes := map[string]int{"economy": 7, "moderation": 4, "government": 5, "dealership": 4}

	for name, cmds := range sets {
		t.Run(name, func(t *testing.T) {
			registry := command.NewRegistry()
			require.NoError(t, registry.Register(cmds...))
			defs := registry.Definitions()
			assert.Len(t, defs, sizes[name])
			for _, cmd := range cmds {
				assert.True(t, cmd.Defer, cmd.Name())
				require.NotNil(t, cmd.Definition.DMPermission, cmd.Name())
				assert.False(t, *cmd.Definition.DMPermission, cmd.Name())
			}
		})
	}
}

func TestPagar(t *testing.T) {
	h := newHarness(t)
	h.mem.SetAccount(testutil.GuildID, testutil.UserID, 10_000, 0)

	reply := h.run(t, testutil.Command("pagar").
		UserOption("usuario", testutil.OtherUserID).
		Int("monto", 1_000).
		String("concepto", "renta").
		Build())

	assert.Equal(t, render.ColorSuccess, reply.Color)
	assert.Contains(t, reply.Description, "$950")
	assert.Equal(t, "$50", fieldValue(reply, "Impuesto"))
	assert.Equal(t, int64(9_000), h.mem.Account(testutil.GuildID, testutil.UserID).Cash)
	assert.Equal(t, int64(950), h.mem.Account(testutil.GuildID, testutil.OtherUserID).Cash)
}

func TestPagarRejections(t *testing.T) {
	h := newHarness(t)
	h.mem.SetAccount(testutil.GuildID, testutil.UserID, 100, 0)

	reply := h.run(t, testutil.Command("pagar").
		UserOption("usuario", testutil.OtherUserID).
		Int("monto", 1_000).
		String("concepto", "renta").
		Build())
	assert.Equal(t, render.ColorError, reply.Color)
	assert.Equal(t, int64(100), h.mem.Account(testutil.GuildID, testutil.UserID).Cash)

	reply = h.run(t, testutil.Command("pagar").
		UserOption("usuario", testutil.UserID).
		Int("monto", 10).
		String("concepto", "yo").
		Build())
	assert.Equal(t, errs.DefaultMessage(errs.CodeSelfTarget), reply.Description)
}

func TestBalanza(t *testing.T) {
	h := newHarness(t)
	h.mem.SetAccount(testutil.GuildID, testutil.OtherUserID, 1_500, 2_500)

	reply := h.run(t, testutil.Command("balanza").UserOption("usuario", testutil.OtherUserID).Build())

	assert.Equal(t, "$1,500", fieldValue(reply, "Efectivo"))
	assert.Equal(t, "$2,500", fieldValue(reply, "Banco"))
	assert.Equal(t, "$4,000", fieldValue(reply, "Total"))
}

func TestGuildOnlyOutsideGuild(t *testing.T) {
	h := newHarness(t)

	reply := h.run(t, testutil.Command("balanza").DM().Build())

	assert.Equal(t, render.ColorError, reply.Color)
	assert.Contains(t, reply.Description, "servidor")
}

func TestSancionFlow(t *testing.T) {
	h := newHarness(t)

	denied := h.run(t, testutil.Command("sancion").
		UserOption("usuario", testutil.OtherUserID).
		String("tipo", string(model.SanctionSA)).
		String("razon", "RDM").
		Build())
	assert.Equal(t, errs.DefaultMessage(errs.CodeInvalidPermission), denied.Description)

	applied := h.run(t, testutil.Command("sancion").
		Permissions(discordgo.PermissionKickMembers).
		UserOption("usuario", testutil.OtherUserID).
		String("tipo", string(model.SanctionSA)).
		String("razon", "RDM").
		String("evidencia", "https://example.com/clip").
		Build())
	assert.Equal(t, "SA", fieldValue(applied, "Tipo"))
	assert.Equal(t, "1", fieldValue(applied, "Sanciones activas"))

	history := h.run(t, testutil.Command("ver-sanciones").Permissions(discordgo.PermissionModerateMembers).UserOption("usuario", testutil.OtherUserID).Build())
	assert.Equal(t, "1", fieldValue(history, "SA"))

	id, err := strconv.ParseInt(fieldValue(applied, "ID"), 10, 64)
	require.NoError(t, err)
	revoked := h.run(t, testutil.Command("eliminar-sancion").
		Permissions(discordgo.PermissionKickMembers).
		Int("id", id).
		Build())
	assert.Equal(t, render.ColorSuccess, revoked.Color)

	history = h.run(t, testutil.Command("ver-sanciones").Permissions(discordgo.PermissionModerateMembers).UserOption("usuario", testutil.OtherUserID).Build())
	assert.Contains(t, history.Description, "no tiene sanciones activas")
}

func TestTicketSubcommands(t *testing.T) {
	h := newHarness(t)

	opened := h.run(t, testutil.Command("ticket").Sub("abrir").String("asunto", "Perdí mi coche").Build())
	assert.Equal(t, render.ColorSuccess, opened.Color)
	assert.Equal(t, "Perdí mi coche", fieldValue(opened, "Asunto"))
}

func TestTicketCloseByStranger(t *testing.T) {
	h := newHarness(t)
	h.run(t, testutil.Command("ticket").Sub("abrir").String("asunto", "Perdí mi coche").Build())

	closeAs := func(user string, perms int64) *discordgo.MessageEmbed {
		return h.run(t, testutil.Command("ticket").User(user).Permissions(perms).
			Sub("cerrar").Int("id", 1).Build())
	}

	denied := closeAs(testutil.OtherUserID, 0)
	assert.Equal(t, render.ColorError, denied.Color)
	assert.Contains(t, denied.Description, "Solo el creador del ticket")

	closed := closeAs(testutil.OtherUserID, discordgo.PermissionManageMessages)
	assert.Equal(t, render.ColorSuccess, closed.Color)
	assert.Contains(t, closed.Description, "El ticket #1 fue cerrado")
}

func TestVerSancionesRequiresModerator(t *testing.T) {
	h := newHarness(t)

	reply := h.run(t, testutil.Command("ver-sanciones").UserOption("usuario", testutil.OtherUserID).Build())
	assert.Equal(t, render.ColorError, reply.Color)
	assert.Equal(t, errs.DefaultMessage(errs.CodeInvalidPermission), reply.Description)
}

func TestMultarInsufficientCash(t *testing.T) {
	h := newHarness(t)
	h.mem.SetAccount(testutil.GuildID, testutil.OtherUserID, 100, 50_000)

	reply := h.run(t, testutil.Command("multar").
		Permissions(discordgo.PermissionManageServer).
		UserOption("usuario", testutil.OtherUserID).
		Int("monto", 1_000).
		String("razon", "exceso de velocidad").
		Build())

	assert.Equal(t, render.ColorError, reply.Color)
	assert.Equal(t, int64(100), h.mem.Account(testutil.GuildID, testutil.OtherUserID).Cash)
}

func TestVotar(t *testing.T) {
	h := newHarness(t)
	e := h.mem.AddElection(model.Election{Title: "Gobernador", IsActive: true},
		model.Candidate{Name: "Ana"}, model.Candidate{Name: "Luis"})
	ana := h.mem.CandidatesOf(e.ID)[0]

	vote := func() *discordgo.MessageEmbed {
		return h.run(t, testutil.Command("votar").Int("eleccion", e.ID).Int("candidato", ana.ID).Build())
	}

	assert.Contains(t, vote().Description, "Ana")
	assert.Equal(t, errs.DefaultMessage(errs.CodeAlreadyVoted), vote().Description)

	results := h.run(t, testutil.Command("elecciones").Build())
	require.Len(t, results.Fields, 1)
	assert.Contains(t, results.Fields[0].Value, "Ana: 1 votos, 100.0%")
}

func TestSalarioSubcommands(t *testing.T) {
	h := newHarness(t)

	set := h.run(t, testutil.Command("salario").
		Permissions(discordgo.PermissionManageServer).
		Sub("fijar").
		RoleOption("rol", testutil.RoleID).
		Int("monto", 2_000).
		Build())
	assert.Equal(t, render.ColorSuccess, set.Color)

	list := h.run(t, testutil.Command("salario").
		Permissions(discordgo.PermissionManageServer).
		Sub("ver").
		Build())
	assert.Contains(t, list.Description, "$2,000")

	paid := h.run(t, testutil.Command("cobrar").Roles(testutil.RoleID).Build())
	assert.Contains(t, paid.Description, "$2,000")
	assert.Equal(t, int64(2_000), h.mem.Account(testutil.GuildID, testutil.UserID).Bank)
}

func TestDealershipFlow(t *testing.T) {
	h := newHarness(t)
	tsuru := h.mem.AddVehicle(model.Vehicle{Make: "Nissan", Model: "Tsuru", Category: "sedan", Price: 120_000, Stock: 1, IsActive: true})
	h.mem.SetAccount(testutil.GuildID, testutil.UserID, 150_000, 0)
	h.mem.SetTreasury(testutil.GuildID, 0)

	catalog := h.run(t, testutil.Command("catalogo").Build())
	assert.Contains(t, catalog.Description, "Nissan Tsuru")
	assert.Contains(t, catalog.Footer.Text, "Página 1 de 1")

	requested := h.run(t, testutil.Command("comprar").String("vehiculo", "tsuru").Build())
	require.Equal(t, render.ColorSuccess, requested.Color)
	saleID, err := strconv.ParseInt(fieldValue(requested, "Venta"), 10, 64)
	require.NoError(t, err)

	sold := h.run(t, testutil.Command("vender").
		User(testutil.OtherUserID).
		Permissions(discordgo.PermissionManageServer).
		Int("venta", saleID).
		Build())
	require.Equal(t, render.ColorSuccess, sold.Color)
	assert.Regexp(t, `^MX-[0-9A-F]{6}$`, fieldValue(sold, "Placa"))

	assert.Equal(t, int64(30_000), h.mem.Account(testutil.GuildID, testutil.UserID).Cash)
	assert.Equal(t, 0, h.mem.Vehicle(tsuru.ID).Stock)

	garage := h.run(t, testutil.Command("mis-coches").Build())
	assert.Contains(t, garage.Description, "Nissan Tsuru")

	again := h.run(t, testutil.Command("comprar").String("vehiculo", "tsuru").Build())
	assert.Contains(t, again.Description, "No hay unidades")
}
