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

// CustomerRepo reads and writes customer rows.
type CustomerRepo struct {
	db *sqlx.DB
}

// NewCustomerRepo builds a repository on the shared connection pool.
func NewCustomerRepo(db *sqlx.DB) *CustomerRepo {
	return &CustomerRepo{db: db}
}

const customerColumns = "customer_id, full_name, phone, address, email, password_hash"

// GetByEmail returns the customer registered with the given email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (Customer, error) {
	var c Customer
	query := "SELECT " + customerColumns + " FROM customer WHERE email = $1"
	if err := r.db.GetContext(ctx, &c, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("customer by email: %w", err)
	}
	return c, nil
}

// GetByID returns the customer with the given id.
func (r *CustomerRepo) GetByID(ctx context.Context, id int) (Customer, error) {
	var c Customer
	query := "SELECT " + customerColumns + " FROM customer WHERE customer_id = $1"
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("customer by id: %w", err)
	}
	return c, nil
}

// ExistsByEmail reports whether any customer uses the given email.
func (r *CustomerRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM customer WHERE email = $1)"
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("customer exists: %w", err)
	}
	return exists, nil
}

// Create inserts the customer and fills c.ID with the sequence-assigned id.
func (r *CustomerRepo) Create(ctx context.Context, c *Customer) error {
	query := `INSERT INTO customer (full_name, phone, address, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING customer_id`
	if err := r.db.QueryRowxContext(ctx, query,
		c.FullName, c.Phone, c.Address, c.Email, c.PasswordHash,
	).Scan(&c.ID); err != nil {
		logger.Error(ctx, "service.customers", "customer.create.failed",
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("customer create: %w", err)
	}

	logger.Info(ctx, "service.customers", "customer.created",
		slog.Int("customer_id", c.ID),
	)
	return nil
}
