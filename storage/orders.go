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

// OrderRepo reads and writes delivery orders.
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo builds a repository on the shared connection pool.
func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = "order_id, creation_date, total_weight, status, delivery_address, customer_id, vehicle_id"

// Create inserts the order and fills o.ID with the sequence-assigned id.
func (r *OrderRepo) Create(ctx context.Context, o *Order) error {
	query := `INSERT INTO orders (creation_date, total_weight, status, delivery_address, customer_id, vehicle_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING order_id`
	if err := r.db.QueryRowxContext(ctx, query,
		o.CreatedAt, o.TotalWeight, o.Status, o.DeliveryAddress, o.CustomerID, o.VehicleID,
	).Scan(&o.ID); err != nil {
		logger.Error(ctx, "service.orders", "order.create.failed",
			slog.Int("customer_id", o.CustomerID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("order create: %w", err)
	}

	logger.Info(ctx, "service.orders", "order.created",
		slog.Int("order_id", o.ID),
		slog.Int("customer_id", o.CustomerID),
		slog.Int("weight_kg", o.TotalWeight),
	)
	return nil
}

// GetByID returns the order with the given id.
func (r *OrderRepo) GetByID(ctx context.Context, id int) (Order, error) {
	var o Order
	query := "SELECT " + orderColumns + " FROM orders WHERE order_id = $1"
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order by id: %w", err)
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID int) ([]Order, error) {
	var list []Order
	query := "SELECT " + orderColumns + " FROM orders WHERE customer_id = $1 ORDER BY creation_date DESC"
	if err := r.db.SelectContext(ctx, &list, query, customerID); err != nil {
		return nil, fmt.Errorf("orders by customer: %w", err)
	}
	return list, nil
}

// ListAll returns every order, newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]Order, error) {
	var list []Order
	query := "SELECT " + orderColumns + " FROM orders ORDER BY creation_date DESC"
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return list, nil
}

// ListByStatus returns orders in the given status, newest first.
func (r *OrderRepo) ListByStatus(ctx context.Context, status string) ([]Order, error) {
	var list []Order
	query := "SELECT " + orderColumns + " FROM orders WHERE status = $1 ORDER BY creation_date DESC"
	if err := r.db.SelectContext(ctx, &list, query, status); err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	return list, nil
}

// UpdateStatus sets an order's status.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE order_id = $2", status, id)
	if err != nil {
		logger.Error(ctx, "service.orders", "order.status.failed",
			slog.Int("order_id", id),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	logger.Info(ctx, "service.orders", "order.status.updated",
		slog.Int("order_id", id),
		slog.String("order_status", status),
	)
	return nil
}
