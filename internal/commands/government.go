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

// Government returns the commands of the government bot.
func Government(svc *service.GovernmentService) []*command.Command {
	g := government{svc: svc}
	return []*command.Command{
		{
			Definition: slash("tesoreria", "Consulta la tesorería del servidor"),
			Handler:    g.treasury,
			Defer:      true,
		},
		{
			Definition: slash("multar", "Multa a un usuario",
				userOpt("usuario", "Usuario multado", true),
				amountOpt("monto", "Monto de la multa"),
				stringOpt("razon", "Motivo de la multa", true)),
			Handler:    g.fine,
			Permission: discordgo.PermissionManageServer,
			Defer:      true,
		},
		{
			Definition: slash("elecciones", "Elecciones activas y sus resultados"),
			Handler:    g.elections,
			Defer:      true,
		},
		{
			Definition: slash("votar", "Vota en una elección",
				amountOpt("eleccion", "ID de la elección"),
				amountOpt("candidato", "ID del candidato")),
			Handler:   g.vote,
			Ephemeral: true,
			Defer:     true,
		},
		{
			Definition: slash("salario", "Salarios por rol",
				subcommand("fijar", "Asigna el salario de un rol",
					roleOpt("rol", "Rol"),
					amountOpt("monto", "Salario")),
				subcommand("ver", "Muestra los salarios configurados")),
			Handler:    g.salary,
			Permission: discordgo.PermissionManageServer,
			Ephemeral:  true,
			Defer:      true,
		},
	}
}

type government struct {
	svc *service.GovernmentService
}

func (g government) treasury(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	report, err := g.svc.Treasury(ctx, guild)
	if err != nil {
		return err
	}

	fields := []*discordgo.MessageEmbedField{render.Field("Saldo", render.Money(report.Balance))}
	if len(report.Logs) > 0 {
		var b strings.Builder
		for _, l := range report.Logs {
			sign := "+"
			if l.Type == model.TreasuryWithdraw {
				sign = "-"
			}
			fmt.Fprintf(&b, "%s%s %s (%s)\n", sign, render.Money(l.Amount), l.Source, render.Timestamp(l.CreatedAt, "R"))
		}
		fields = append(fields, render.Block("Últimos movimientos", b.String()))
	}

	return c.Reply(render.Info("🏛️ Tesorería", "", fields...))
}

func (g government) fine(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	amount, err := requiredInt(c, "monto")
	if err != nil {
		return err
	}
	target := c.User("usuario")

	result, err := g.svc.Fine(ctx, service.FineInput{
		GuildID:   guild,
		OfficerID: c.UserID(),
		UserID:    target,
		Amount:    amount,
		Reason:    c.String("razon"),
	})
	if err != nil {
		return err
	}

	return c.Reply(render.Success("Multa aplicada",
		fmt.Sprintf("%s pagó una multa de %s", render.Mention(target), render.Money(amount)),
		render.Field("Efectivo restante", render.Money(result.Account.Cash)),
		render.Field("Tesorería", render.Money(result.Treasury.BalanceAfter)),
		render.Block("Razón", c.String("razon")),
	))
}

func (g government) elections(ctx context.Context, c *command.Context) error {
	results, err := g.svc.Elections(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return c.Reply(render.Info("🗳️ Elecciones", "No hay elecciones activas"))
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(results))
	for _, e := range results {
		var b strings.Builder
		for _, cand := range e.Candidates {
			pct := 0.0
			if e.TotalVotes > 0 {
				pct = float64(cand.Votes) * 100 / float64(e.TotalVotes)
			}
			fmt.Fprintf(&b, "`%d` %s", cand.ID, cand.Name)
			if cand.Party != "" {
				fmt.Fprintf(&b, " (%s)", cand.Party)
			}
			fmt.Fprintf(&b, ": %d votos, %.1f%%\n", cand.Votes, pct)
		}
		if len(e.Candidates) == 0 {
			b.WriteString("Sin candidatos registrados")
		}
		fields = append(fields, render.Block(fmt.Sprintf("#%d %s (%d votos)", e.ID, e.Title, e.TotalVotes), b.String()))
	}

	return c.Reply(render.Info("🗳️ Elecciones", "Usa `/votar` con el ID de la elección y del candidato", fields...))
}

func (g government) vote(ctx context.Context, c *command.Context) error {
	electionID, err := requiredInt(c, "eleccion")
	if err != nil {
		return err
	}
	candidateID, err := requiredInt(c, "candidato")
	if err != nil {
		return err
	}

	result, err := g.svc.Vote(ctx, service.VoteInput{ElectionID: electionID, CandidateID: candidateID, UserID: c.UserID()})
	if err != nil {
		return err
	}
	return c.Reply(render.Success("Voto registrado",
		fmt.Sprintf("Votaste por **%s** en %s", result.Candidate.Name, result.Election.Title)))
}

func (g government) salary(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	switch c.Subcommand() {
	case "fijar":
		amount, err := requiredInt(c, "monto")
		if err != nil {
			return err
		}
		role := c.Role("rol")
		if err := g.svc.SetSalary(ctx, guild, role, amount); err != nil {
			return err
		}
		return c.Reply(render.Success("Salario asignado", fmt.Sprintf("<@&%s> cobrará %s", role, render.Money(amount))))

	case "ver":
		salaries, err := g.svc.Salaries(ctx, guild)
		if err != nil {
			return err
		}
		if len(salaries) == 0 {
			return c.Reply(render.Info("💼 Salarios", "No hay salarios configurados"))
		}
		var b strings.Builder
		for _, s := range salaries {
			fmt.Fprintf(&b, "<@&%s>: %s\n", s.RoleID, render.Money(s.Amount))
		}
		return c.Reply(render.Info("💼 Salarios", b.String()))
	}

	return errs.New(errs.CodeInvalidInput, "Subcomando desconocido")
}
