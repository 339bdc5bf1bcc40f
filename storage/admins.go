package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AdminRepo reads back-office operator credentials.
type AdminRepo struct {
	db *sqlx.DB
}

// NewAdminRepo builds a repository on the shared connection pool.
func NewAdminRepo(db *sqlx.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// GetByID returns the admin with the given id.
func (r *AdminRepo) GetByID(ctx context.Context, id int) (Admin, error) {
	var a Admin
	query := "SELECT admin_id, hash_password FROM admin WHERE admin_id = $1"
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, ErrNotFound
		}
		return Admin{}, fmt.Errorf("admin by id: %w", err)
	}
	return a, nil
}

// Exists reports whether an admin with the given id is registered.
func (r *AdminRepo) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM admin WHERE admin_id = $1)"
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("admin exists: %w", err)
	}
	return exists, nil
}
