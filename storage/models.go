// Package storage provides Postgres repositories for the logistics domain:
// customers, vehicles, orders and administrators.
package storage

import (
	"database/sql"
	"time"
)

// Customer is a registered bot user able to place delivery orders.
type Customer struct {
	ID           int    `db:"customer_id"`
	FullName     string `db:"full_name"`
	Phone        string `db:"phone"`
	Address      string `db:"address"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

// Vehicle is a delivery truck with a capacity in tons.
type Vehicle struct {
	ID           int     `db:"vehicle_id"`
	Model        string  `db:"model"`
	LicensePlate string  `db:"license_plate"`
	CapacityTon  float64 `db:"capacity_ton"`
	Status       string  `db:"status"`
}

// Order is one delivery request. VehicleID stays NULL until a vehicle
// is assigned.
type Order struct {
	ID              int           `db:"order_id"`
	CreatedAt       time.Time     `db:"creation_date"`
	TotalWeight     int           `db:"total_weight"`
	Status          string        `db:"status"`
	DeliveryAddress string        `db:"delivery_address"`
	CustomerID      int           `db:"customer_id"`
	VehicleID       sql.NullInt64 `db:"vehicle_id"`
}

// Admin is a back-office operator identified by a numeric id.
type Admin struct {
	ID           int    `db:"admin_id"`
	PasswordHash string `db:"hash_password"`
}

// Statuses are stored as the Russian words the operators see.
const (
	OrderStatusCreated = "создан"
	VehicleStatusFree  = "свободен"
	VehicleStatusBusy  = "занят"
)
