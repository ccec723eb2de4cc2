package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

const vehicleColumns = `id, make, model, category, price, stock, is_active`

const saleColumns = `id, guild_id, user_id, vehicle_id, price_total, payment_method, status, approver_id, created_at`

func (q *queries) Catalog(ctx context.Context, category string, offset, limit int) ([]model.Vehicle, int, error) {
	var total int
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM dealership_catalog
		WHERE is_active AND ($1 = '' OR category ILIKE $1)`, category).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count catalog: %w", err)
	}

	rows, err := q.db.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM dealership_catalog
		WHERE is_active AND ($1 = '' OR category ILIKE $1)
		ORDER BY price ASC, id ASC
		OFFSET $2 LIMIT $3`, category, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query catalog: %w", err)
	}

	vehicles, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Vehicle])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect catalog: %w", err)
	}
	return vehicles, total, nil
}

func (q *queries) GetVehicle(ctx context.Context, id int64) (model.Vehicle, error) {
	rows, err := q.db.Query(ctx, `SELECT `+vehicleColumns+` FROM dealership_catalog WHERE id = $1`, id)
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("failed to query vehicle: %w", err)
	}

	vehicle, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Vehicle])
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("table:dealership_catalog:%w", err)
	}
	return vehicle, nil
}

func (q *queries) FindVehicle(ctx context.Context, query string) (model.Vehicle, error) {
	query = strings.TrimSpace(query)
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		return q.GetVehicle(ctx, id)
	}

	rows, err := q.db.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM dealership_catalog
		WHERE is_active AND (model ILIKE $1 OR make || ' ' || model ILIKE $1)
		ORDER BY price ASC, id ASC
		LIMIT 1`, "%"+query+"%")
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("failed to search vehicle: %w", err)
	}

	vehicle, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Vehicle])
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("table:dealership_catalog:%w", err)
	}
	return vehicle, nil
}

// DecrementStock fails on dealership_catalog_stock_check when no units are left.
func (q *queries) DecrementStock(ctx context.Context, vehicleID int64) error {
	tag, err := q.db.Exec(ctx, `UPDATE dealership_catalog SET stock = stock - 1 WHERE id = $1`, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table:dealership_catalog:%w", pgx.ErrNoRows)
	}
	return nil
}

func (q *queries) CreateSale(ctx context.Context, sale model.Sale) (model.Sale, error) {
	rows, err := q.db.Query(ctx, `
		INSERT INTO dealership_sales (guild_id, user_id, vehicle_id, price_total, payment_method)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+saleColumns,
		sale.GuildID, sale.UserID, sale.VehicleID, sale.PriceTotal, sale.PaymentMethod)
	if err != nil {
		return model.Sale{}, fmt.Errorf("failed to create sale: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Sale])
	if err != nil {
		return model.Sale{}, fmt.Errorf("failed to collect row from table:dealership_sales: %w", err)
	}
	return created, nil
}

func (q *queries) GetSaleForUpdate(ctx context.Context, id int64) (model.Sale, error) {
	rows, err := q.db.Query(ctx, `SELECT `+saleColumns+` FROM dealership_sales WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return model.Sale{}, fmt.Errorf("failed to query sale: %w", err)
	}

	sale, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Sale])
	if err != nil {
		return model.Sale{}, fmt.Errorf("table:dealership_sales:%w", err)
	}
	return sale, nil
}

func (q *queries) CompleteSale(ctx context.Context, id int64, approverID string) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE dealership_sales
		SET status = 'completed', approver_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'`, id, approverID)
	if err != nil {
		return fmt.Errorf("failed to complete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table:dealership_sales:%w", pgx.ErrNoRows)
	}
	return nil
}

func (q *queries) AddOwnedVehicle(ctx context.Context, sale model.Sale, plate string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO user_vehicles (guild_id, user_id, vehicle_id, sale_id, plate)
		VALUES ($1, $2, $3, $4, $5)`,
		sale.GuildID, sale.UserID, sale.VehicleID, sale.ID, plate)
	if err != nil {
		return fmt.Errorf("failed to register vehicle: %w", err)
	}
	return nil
}

func (q *queries) OwnedVehicles(ctx context.Context, guildID, userID string) ([]model.OwnedVehicle, error) {
	rows, err := q.db.Query(ctx, `
		SELECT uv.id, uv.vehicle_id, c.make, c.model, uv.plate, uv.acquired_at
		FROM user_vehicles uv
		JOIN dealership_catalog c ON c.id = uv.vehicle_id
		WHERE uv.guild_id = $1 AND uv.user_id = $2
		ORDER BY uv.acquired_at DESC`, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned vehicles: %w", err)
	}

	vehicles, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.OwnedVehicle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect owned vehicles: %w", err)
	}
	return vehicles, nil
}
