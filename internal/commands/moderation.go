package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/service"
)

var sanctionTypeLabels = map[model.SanctionType]string{
	model.SanctionNotice:  "Notificación",
	model.SanctionSA:      "SA",
	model.SanctionGeneral: "General",
}

// Moderation returns the commands of the moderation bot.
func Moderation(svc *service.ModerationService) []*command.Command {
	m := moderation{svc: svc}

	sanctionType := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tipo",
		Description: "Tipo de sanción",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Notificación", Value: string(model.SanctionNotice)},
			{Name: "SA", Value: string(model.SanctionSA)},
			{Name: "General", Value: string(model.SanctionGeneral)},
		},
	}

	return []*command.Command{
		{
			Definition: slash("sancion", "Aplica una sanción a un usuario",
				userOpt("usuario", "Usuario sancionado", true),
				sanctionType,
				stringOpt("razon", "Motivo de la sanción", true),
				stringOpt("evidencia", "Enlace a la evidencia", false)),
			Handler:    m.sanction,
			Permission: discordgo.PermissionKickMembers,
			Defer:      true,
		},
		{
			Definition: slash("ver-sanciones", "Muestra las sanciones activas de un usuario",
				userOpt("usuario", "Usuario a consultar", true)),
			Handler:    m.history,
			Permission: discordgo.PermissionModerateMembers,
			Ephemeral:  true,
			Defer:      true,
		},
		{
			Definition: slash("eliminar-sancion", "Revoca una sanción activa",
				amountOpt("id", "ID de la sanción")),
			Handler:    m.revoke,
			Permission: discordgo.PermissionKickMembers,
			Defer:      true,
		},
		{
			Definition: slash("ticket", "Tickets de soporte",
				subcommand("abrir", "Abre un ticket de soporte", stringOpt("asunto", "Asunto del ticket", true)),
				subcommand("cerrar", "Cierra un ticket",
					amountOpt("id", "ID del ticket"),
					stringOpt("razon", "Motivo del cierre", false))),
			Handler:   m.ticket,
			Ephemeral: true,
			Defer:     true,
		},
	}
}

type moderation struct {
	svc *service.ModerationService
}

func (m moderation) sanction(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	target := c.User("usuario")

	sanction, summary, err := m.svc.Sanction(ctx, service.SanctionInput{
		GuildID:     guild,
		ModeratorID: c.UserID(),
		UserID:      target,
		Type:        c.String("tipo"),
		Reason:      c.String("razon"),
		EvidenceURL: c.String("evidencia"),
	})
	if err != nil {
		return err
	}

	fields := []*discordgo.MessageEmbedField{
		render.Field("Usuario", render.Mention(target)),
		render.Field("Tipo", sanctionTypeLabels[sanction.Type]),
		render.Field("ID", id(sanction.ID)),
		render.Field("Sanciones activas", fmt.Sprint(summary.Total())),
		render.Block("Razón", sanction.Reason),
	}
	if sanction.EvidenceURL != nil {
		fields = append(fields, render.Block("Evidencia", *sanction.EvidenceURL))
	}

	return c.Reply(render.Embed(render.ColorWarning, "⚖️ Sanción aplicada", "", fields...))
}

func (m moderation) history(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	target := c.User("usuario")

	summary, err := m.svc.History(ctx, guild, target)
	if err != nil {
		return err
	}
	if summary.Total() == 0 {
		return c.Reply(render.Info("📋 Sanciones", fmt.Sprintf("%s no tiene sanciones activas", render.Mention(target))))
	}

	var b strings.Builder
	for _, s := range summary.Active {
		fmt.Fprintf(&b, "**#%d** %s, %s: %s\n", s.ID, sanctionTypeLabels[s.Type], render.Timestamp(s.CreatedAt, "d"), s.Reason)
	}

	return c.Reply(render.Info("📋 Sanciones",
		fmt.Sprintf("%s tiene %d sanciones activas", render.Mention(target), summary.Total()),
		render.Field("Notificaciones", fmt.Sprint(summary.Counts[model.SanctionNotice])),
		render.Field("SA", fmt.Sprint(summary.Counts[model.SanctionSA])),
		render.Field("Generales", fmt.Sprint(summary.Counts[model.SanctionGeneral])),
		render.Block("Detalle", b.String()),
	))
}

func (m moderation) revoke(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	sanctionID, err := requiredInt(c, "id")
	if err != nil {
		return err
	}

	revoked, err := m.svc.Revoke(ctx, guild, sanctionID, c.UserID())
	if err != nil {
		return err
	}
	return c.Reply(render.Success("Sanción revocada",
		fmt.Sprintf("La sanción #%d de %s fue revocada", revoked.ID, render.Mention(revoked.UserID))))
}

func (m moderation) ticket(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	switch c.Subcommand() {
	case "abrir":
		ticket, err := m.svc.OpenTicket(ctx, guild, c.UserID(), c.String("asunto"))
		if err != nil {
			return err
		}
		return c.Reply(render.Success("Ticket abierto",
			fmt.Sprintf("Tu ticket #%d fue creado. Un miembro del staff te atenderá pronto.", ticket.ID),
			render.Block("Asunto", ticket.Subject)))

	case "cerrar":
		ticketID, err := requiredInt(c, "id")
		if err != nil {
			return err
		}
		staff := c.HasPermission(discordgo.PermissionManageMessages)
		ticket, err := m.svc.CloseTicket(ctx, guild, ticketID, c.UserID(), staff, c.String("razon"))
		if err != nil {
			return err
		}
		return c.Reply(render.Success("Ticket cerrado", fmt.Sprintf("El ticket #%d fue cerrado", ticket.ID)))
	}

	return errs.New(errs.CodeInvalidInput, "Subcomando desconocido")
}
