package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-service/internal/models"

	"github.com/lib/pq"
)

// ErrNoRows is returned when a lookup matches nothing. Callers translate
// it into a domain NotFound; the store never leaks sql.ErrNoRows.
var ErrNoRows = errors.New("store: no rows")

// ErrDuplicate is returned when a unique constraint is violated
var ErrDuplicate = errors.New("store: duplicate row")

const uniqueViolation = "23505"

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// CreateUser inserts a new user and fills in generated fields
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, user, query,
		user.Name, user.Email, user.Password, user.Role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
