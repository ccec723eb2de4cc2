package model

import "time"

type Vehicle struct {
	ID       int64  `db:"id" json:"id"`
	Make     string `db:"make" json:"make"`
	Model    string `db:"model" json:"model"`
	Category string `db:"category" json:"category"`
	Price    int64  `db:"price" json:"price"`
	Stock    int    `db:"stock" json:"stock"`
	IsActive bool   `db:"is_active" json:"isActive"`
}

// Name is "<make> <model>".
func (v Vehicle) Name() string {
	return v.Make + " " + v.Model
}

const (
	SalePending   = "pending"
	SaleCompleted = "completed"
	SaleCancelled = "cancelled"
)

type Sale struct {
	ID            int64     `db:"id"`
	GuildID       string    `db:"guild_id"`
	UserID        string    `db:"user_id"`
	VehicleID     int64     `db:"vehicle_id"`
	PriceTotal    int64     `db:"price_total"`
	PaymentMethod string    `db:"payment_method"`
	Status        string    `db:"status"`
	ApproverID    *string   `db:"approver_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// OwnedVehicle is a user_vehicles row joined with its catalog entry.
type OwnedVehicle struct {
	ID         int64     `db:"id"`
	VehicleID  int64     `db:"vehicle_id"`
	Make       string    `db:"make"`
	Model      string    `db:"model"`
	Plate      string    `db:"plate"`
	AcquiredAt time.Time `db:"acquired_at"`
}

// Page carries pagination metadata for list replies.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}
