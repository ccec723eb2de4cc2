package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/service"
)

// Economy returns the commands of the economy bot.
func Economy(svc *service.EconomyService) []*command.Command {
	e := economy{svc: svc}
	return []*command.Command{
		{
			Definition: slash("balanza", "Consulta tu dinero o el de otro usuario",
				userOpt("usuario", "Usuario a consultar", false)),
			Handler: e.balance,
			Defer:   true,
		},
		{
			Definition: slash("pagar", "Transfiere efectivo a otro usuario",
				userOpt("usuario", "Quién recibe el pago", true),
				amountOpt("monto", "Monto a transferir"),
				stringOpt("concepto", "Motivo del pago", true)),
			Handler:  e.pay,
			Cooldown: 5 * time.Second,
			Defer:    true,
		},
		{
			Definition: slash("depositar", "Deposita efectivo en el banco", amountOpt("monto", "Monto a depositar")),
			Handler:    e.deposit,
			Ephemeral:  true,
			Defer:      true,
		},
		{
			Definition: slash("retirar", "Retira dinero del banco", amountOpt("monto", "Monto a retirar")),
			Handler:    e.withdraw,
			Ephemeral:  true,
			Defer:      true,
		},
		{
			Definition: slash("diario", "Reclama tu recompensa diaria"),
			Handler:    e.daily,
			Defer:      true,
		},
		{
			Definition: slash("cobrar", "Cobra el salario de tus roles"),
			Handler:    e.salary,
			Defer:      true,
		},
		{
			Definition: slash("ranking", "Los 10 usuarios más ricos del servidor"),
			Handler:    e.ranking,
			Cooldown:   10 * time.Second,
			Defer:      true,
		},
	}
}

type economy struct {
	svc *service.EconomyService
}

func (e economy) balance(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	target := c.User("usuario")
	if target == "" {
		target = c.UserID()
	}

	account, err := e.svc.Balance(ctx, guild, target)
	if err != nil {
		return err
	}

	return c.Reply(render.Info("💰 Balance", render.Mention(target),
		render.Field("Efectivo", render.Money(account.Cash)),
		render.Field("Banco", render.Money(account.Bank)),
		render.Field("Total", render.Money(account.NetWorth())),
	))
}

func (e economy) pay(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	amount, err := requiredInt(c, "monto")
	if err != nil {
		return err
	}

	result, err := e.svc.Transfer(ctx, service.TransferInput{
		GuildID:    guild,
		SenderID:   c.UserID(),
		ReceiverID: c.User("usuario"),
		Amount:     amount,
		Concept:    c.String("concepto"),
	})
	if err != nil {
		return err
	}

	return c.Reply(render.Success("Pago realizado",
		fmt.Sprintf("Enviaste %s a %s", render.Money(result.Net), render.Mention(c.User("usuario"))),
		render.Field("Monto", render.Money(result.Amount)),
		render.Field("Impuesto", render.Money(result.Tax)),
		render.Field("Tu efectivo", render.Money(result.Sender.Cash)),
		render.Block("Concepto", c.String("concepto")),
	))
}

func (e economy) deposit(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	amount, err := requiredInt(c, "monto")
	if err != nil {
		return err
	}

	account, err := e.svc.Deposit(ctx, guild, c.UserID(), amount)
	if err != nil {
		return err
	}
	return c.Reply(render.Success("Depósito realizado", fmt.Sprintf("Depositaste %s", render.Money(amount)),
		render.Field("Efectivo", render.Money(account.Cash)),
		render.Field("Banco", render.Money(account.Bank)),
	))
}

func (e economy) withdraw(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	amount, err := requiredInt(c, "monto")
	if err != nil {
		return err
	}

	account, err := e.svc.Withdraw(ctx, guild, c.UserID(), amount)
	if err != nil {
		return err
	}
	return c.Reply(render.Success("Retiro realizado", fmt.Sprintf("Retiraste %s", render.Money(amount)),
		render.Field("Efectivo", render.Money(account.Cash)),
		render.Field("Banco", render.Money(account.Bank)),
	))
}

func (e economy) daily(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	result, err := e.svc.ClaimDaily(ctx, guild, c.UserID())
	if err != nil {
		return err
	}

	title := "Recompensa diaria"
	if result.Milestone {
		title = fmt.Sprintf("¡Racha de %d días!", result.Day)
	}
	fields := []*discordgo.MessageEmbedField{
		render.Field("Recompensa", render.Money(result.Base)),
		render.Field("Racha", fmt.Sprintf("%d días", result.Day)),
		render.Field("Mejor racha", fmt.Sprintf("%d días", result.BestStreak)),
	}
	if result.Bonus > 0 {
		fields = append(fields, render.Field("🍀 Bono de suerte", render.Money(result.Bonus)))
	}
	if result.Next != nil {
		fields = append(fields, render.Block("Próximo hito",
			fmt.Sprintf("Día %d (%s), faltan %d días", result.Next.Day, render.Money(result.Next.Reward), result.Next.DaysLeft)))
	}

	return c.Reply(render.Success(title, fmt.Sprintf("Recibiste %s", render.Money(result.Total)), fields...))
}

func (e economy) salary(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	result, err := e.svc.ClaimSalary(ctx, guild, c.UserID(), c.Roles())
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(result.Paid))
	for _, s := range result.Paid {
		lines = append(lines, fmt.Sprintf("<@&%s>: %s", s.RoleID, render.Money(s.Amount)))
	}

	return c.Reply(render.Success("Salario cobrado",
		fmt.Sprintf("Se depositaron %s en tu banco", render.Money(result.Total)),
		render.Block("Roles", strings.Join(lines, "\n")),
		render.Field("Próximo cobro", render.Timestamp(result.NextAt, "R")),
	))
}

func (e economy) ranking(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	accounts, err := e.svc.Ranking(ctx, guild, 0)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return c.Reply(render.Info("🏆 Ranking", "Todavía no hay cuentas en este servidor"))
	}

	var b strings.Builder
	for i, a := range accounts {
		fmt.Fprintf(&b, "**%d.** %s: %s\n", i+1, render.Mention(a.UserID), render.Money(a.NetWorth()))
	}
	return c.Reply(render.Info("🏆 Ranking", b.String()))
}
