package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/logibot/core/logger"
)

// VehicleRepo reads and updates the vehicle fleet.
type VehicleRepo struct {
	db *sqlx.DB
}

// NewVehicleRepo builds a repository on the shared connection pool.
func NewVehicleRepo(db *sqlx.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

const vehicleColumns = "vehicle_id, model, license_plate, capacity_ton, status"

// FindAvailableWithCapacity lists free vehicles able to carry the given
// load in tons, highest capacity first.
func (r *VehicleRepo) FindAvailableWithCapacity(ctx context.Context, tons float64) ([]Vehicle, error) {
	var list []Vehicle
	query := "SELECT " + vehicleColumns + ` FROM vehicle
		WHERE status = $1 AND capacity_ton >= $2
		ORDER BY capacity_ton DESC`
	if err := r.db.SelectContext(ctx, &list, query, VehicleStatusFree, tons); err != nil {
		return nil, fmt.Errorf("available vehicles: %w", err)
	}
	return list, nil
}

// GetByID returns the vehicle with the given id.
func (r *VehicleRepo) GetByID(ctx context.Context, id int) (Vehicle, error) {
	var v Vehicle
	query := "SELECT " + vehicleColumns + " FROM vehicle WHERE vehicle_id = $1"
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vehicle{}, ErrNotFound
		}
		return Vehicle{}, fmt.Errorf("vehicle by id: %w", err)
	}
	return v, nil
}

// ListAll returns the whole fleet, highest capacity first.
func (r *VehicleRepo) ListAll(ctx context.Context) ([]Vehicle, error) {
	var list []Vehicle
	query := "SELECT " + vehicleColumns + " FROM vehicle ORDER BY capacity_ton DESC"
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return list, nil
}

// UpdateStatus sets a vehicle's status.
func (r *VehicleRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE vehicle SET status = $1 WHERE vehicle_id = $2", status, id)
	if err != nil {
		logger.Error(ctx, "service.vehicles", "vehicle.status.failed",
			slog.Int("vehicle_id", id),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("vehicle status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vehicle status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	logger.Info(ctx, "service.vehicles", "vehicle.status.updated",
		slog.Int("vehicle_id", id),
		slog.String("vehicle_status", status),
	)
	return nil
}
