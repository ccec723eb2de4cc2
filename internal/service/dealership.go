package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/sqlerr"
	"github.com/rs/zerolog"
)

// CatalogPageSize is the number of vehicles per /catalogo page.
const CatalogPageSize = 10

const paymentCash = "cash"

type CompletedSale struct {
	Sale    model.Sale
	Vehicle model.Vehicle
	Plate   string
}

type DealershipService struct {
	store  repository.DealershipStore
	logger *zerolog.Logger
	plate  func() string
}

func NewDealershipService(store repository.DealershipStore, logger *zerolog.Logger) *DealershipService {
	return &DealershipService{store: store, logger: logger, plate: newPlate}
}

// newPlate returns a plate such as "MX-3F9A1C".
func newPlate() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "MX-" + strings.ToUpper(id[:6])
}

// Catalog returns one page of active vehicles ordered by price. Pages start at 1.
func (s *DealershipService) Catalog(ctx context.Context, category string, page int) (model.Page[model.Vehicle], error) {
	if page < 1 {
		page = 1
	}

	vehicles, total, err := s.store.Catalog(ctx, category, (page-1)*CatalogPageSize, CatalogPageSize)
	if err != nil {
		return model.Page[model.Vehicle]{}, sqlerr.ToBotError(err)
	}

	return model.Page[model.Vehicle]{
		Items:      vehicles,
		Page:       page,
		PageSize:   CatalogPageSize,
		TotalItems: total,
		TotalPages: (total + CatalogPageSize - 1) / CatalogPageSize,
	}, nil
}

// Buy reserves a vehicle for the member as a pending sale. Money and stock
// move when staff complete the sale.
func (s *DealershipService) Buy(ctx context.Context, guildID, userID, query string) (model.Sale, model.Vehicle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.Sale{}, model.Vehicle{}, errs.New(errs.CodeInvalidInput, "Indica el vehículo que quieres comprar")
	}

	vehicle, err := s.store.FindVehicle(ctx, query)
	if err != nil {
		return model.Sale{}, model.Vehicle{}, notFound(err, fmt.Sprintf("No se encontró ningún vehículo que coincida con %q", query))
	}
	if vehicle.Stock <= 0 {
		return model.Sale{}, model.Vehicle{}, errs.New(errs.CodeOutOfStock,
			fmt.Sprintf("No hay unidades disponibles de %s", vehicle.Name()))
	}

	account, err := s.store.GetAccount(ctx, guildID, userID)
	if err != nil {
		return model.Sale{}, model.Vehicle{}, sqlerr.ToBotError(err)
	}
	if account.Cash < vehicle.Price {
		return model.Sale{}, model.Vehicle{}, errs.New(errs.CodeInsufficientFunds,
			fmt.Sprintf("Necesitas %s en efectivo, tienes %s", render.Money(vehicle.Price), render.Money(account.Cash)))
	}

	sale, err := s.store.CreateSale(ctx, model.Sale{
		GuildID:       guildID,
		UserID:        userID,
		VehicleID:     vehicle.ID,
		PriceTotal:    vehicle.Price,
		PaymentMethod: paymentCash,
	})
	if err != nil {
		return model.Sale{}, model.Vehicle{}, sqlerr.ToBotError(err)
	}
	return sale, vehicle, nil
}

// CompleteSale charges the buyer, takes one unit of stock, registers the
// vehicle with a new plate and deposits the price into the treasury, all in
// one transaction.
func (s *DealershipService) CompleteSale(ctx context.Context, guildID string, saleID int64, approverID string) (CompletedSale, error) {
	var result CompletedSale

	err := s.store.InTx(ctx, func(tx repository.DealershipStore) error {
		missing := fmt.Sprintf("La venta #%d no existe", saleID)
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return notFound(err, missing)
		}
		if sale.GuildID != guildID {
			return errs.New(errs.CodeRecordNotFound, missing)
		}
		if sale.Status != model.SalePending {
			return errs.New(errs.CodeInvalidInput, fmt.Sprintf("La venta #%d ya está %s", saleID, saleStatusLabel(sale.Status)))
		}

		vehicle, err := tx.GetVehicle(ctx, sale.VehicleID)
		if err != nil {
			return err
		}

		if _, err := tx.AdjustAccount(ctx, guildID, sale.UserID, -sale.PriceTotal, 0); err != nil {
			return err
		}
		if err := tx.DecrementStock(ctx, vehicle.ID); err != nil {
			return err
		}

		plate := s.plate()
		if err := tx.AddOwnedVehicle(ctx, sale, plate); err != nil {
			return err
		}
		if err := tx.CompleteSale(ctx, sale.ID, approverID); err != nil {
			return err
		}
		if _, err := tx.AdjustTreasury(ctx, guildID, sale.PriceTotal, TreasurySourceDealership,
			fmt.Sprintf("Venta #%d: %s", sale.ID, vehicle.Name())); err != nil {
			return err
		}
		if err := tx.RecordTransaction(ctx, model.Transaction{
			GuildID:  guildID,
			SenderID: &sale.UserID,
			Amount:   sale.PriceTotal,
			Kind:     model.TransactionPurchase,
			Concept:  vehicle.Name(),
		}); err != nil {
			return err
		}

		sale.Status = model.SaleCompleted
		sale.ApproverID = &approverID
		result = CompletedSale{Sale: sale, Vehicle: vehicle, Plate: plate}
		return nil
	})
	if err != nil {
		return CompletedSale{}, sqlerr.ToBotError(err)
	}

	s.logger.Info().
		Int64("sale_id", saleID).
		Str("guild_id", guildID).
		Str("approver_id", approverID).
		Str("plate", result.Plate).
		Msg("sale completed")

	return result, nil
}

// Garage lists the member's vehicles, newest first.
func (s *DealershipService) Garage(ctx context.Context, guildID, userID string) ([]model.OwnedVehicle, error) {
	vehicles, err := s.store.OwnedVehicles(ctx, guildID, userID)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}
	return vehicles, nil
}

func saleStatusLabel(status string) string {
	switch status {
	case model.SaleCompleted:
		return "completada"
	case model.SaleCancelled:
		return "cancelada"
	default:
		return status
	}
}
