package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/service"
)

// Dealership returns the commands of the dealership bot.
func Dealership(svc *service.DealershipService) []*command.Command {
	d := dealership{svc: svc}
	return []*command.Command{
		{
			Definition: slash("catalogo", "Vehículos disponibles en la agencia",
				stringOpt("categoria", "Filtra por categoría", false),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "pagina",
					Description: "Página del catálogo",
					MinValue:    &minimumOne,
				}),
			Handler: d.catalog,
			Defer:   true,
		},
		{
			Definition: slash("comprar", "Solicita la compra de un vehículo",
				stringOpt("vehiculo", "ID o modelo del vehículo", true)),
			Handler:   d.buy,
			Ephemeral: true,
			Defer:     true,
		},
		{
			Definition: slash("vender", "Completa una venta pendiente",
				amountOpt("venta", "ID de la venta")),
			Handler:    d.sell,
			Permission: discordgo.PermissionManageServer,
			Defer:      true,
		},
		{
			Definition: slash("mis-coches", "Tus vehículos registrados"),
			Handler:    d.garage,
			Ephemeral:  true,
			Defer:      true,
		},
	}
}

type dealership struct {
	svc *service.DealershipService
}

func (d dealership) catalog(ctx context.Context, c *command.Context) error {
	page, _ := c.Int("pagina")

	result, err := d.svc.Catalog(ctx, c.String("categoria"), int(page))
	if err != nil {
		return err
	}
	if result.TotalItems == 0 {
		return c.Reply(render.Info("🚗 Catálogo", "No hay vehículos disponibles"))
	}
	if len(result.Items) == 0 {
		return c.Reply(render.Info("🚗 Catálogo", fmt.Sprintf("La página %d no existe, el catálogo tiene %d", result.Page, result.TotalPages)))
	}

	var b strings.Builder
	for _, v := range result.Items {
		fmt.Fprintf(&b, "`%d` **%s**, %s, %s (%d en stock)\n", v.ID, v.Name(), v.Category, render.Money(v.Price), v.Stock)
	}

	embed := render.Info("🚗 Catálogo", b.String())
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Página %d de %d, %d vehículos", result.Page, result.TotalPages, result.TotalItems),
	}
	return c.Reply(embed)
}

func (d dealership) buy(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	sale, vehicle, err := d.svc.Buy(ctx, guild, c.UserID(), c.String("vehiculo"))
	if err != nil {
		return err
	}

	return c.Reply(render.Success("Solicitud de compra creada",
		fmt.Sprintf("Tu solicitud #%d por **%s** está pendiente. Un vendedor la completará pronto.", sale.ID, vehicle.Name()),
		render.Field("Precio", render.Money(sale.PriceTotal)),
		render.Field("Venta", id(sale.ID)),
	))
}

func (d dealership) sell(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}
	saleID, err := requiredInt(c, "venta")
	if err != nil {
		return err
	}

	done, err := d.svc.CompleteSale(ctx, guild, saleID, c.UserID())
	if err != nil {
		return err
	}

	return c.Reply(render.Success("Venta completada",
		fmt.Sprintf("%s recibió un **%s**", render.Mention(done.Sale.UserID), done.Vehicle.Name()),
		render.Field("Placa", done.Plate),
		render.Field("Precio", render.Money(done.Sale.PriceTotal)),
	))
}

func (d dealership) garage(ctx context.Context, c *command.Context) error {
	guild, err := guildID(c)
	if err != nil {
		return err
	}

	vehicles, err := d.svc.Garage(ctx, guild, c.UserID())
	if err != nil {
		return err
	}
	if len(vehicles) == 0 {
		return c.Reply(render.Info("🚙 Mis coches", "No tienes vehículos registrados"))
	}

	var b strings.Builder
	for _, v := range vehicles {
		fmt.Fprintf(&b, "**%s %s**, placa `%s`, desde %s\n", v.Make, v.Model, v.Plate, render.Timestamp(v.AcquiredAt, "d"))
	}
	return c.Reply(render.Info("🚙 Mis coches", b.String()))
}
