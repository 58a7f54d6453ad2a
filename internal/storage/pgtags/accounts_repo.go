package pgtags

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/models"
)

// CreateAccount inserts a new account. Returns ErrDuplicate when the email
// is already registered.
func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	q := `INSERT INTO accounts (email, password_hash, name, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	now := time.Now().UTC()
	err := s.db.QueryRow(ctx, q, a.Email, a.PasswordHash, a.Name, a.Phone, a.Role, now).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "insert account")
	}
	a.CreatedAt = now
	return nil
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	q := `SELECT id, email, password_hash, name, phone, role, created_at
		FROM accounts WHERE email = $1`

	var a models.Account
	err := s.db.QueryRow(ctx, q, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Phone, &a.Role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query account")
	}
	return &a, nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	q := `SELECT id, email, password_hash, name, phone, role, created_at
		FROM accounts WHERE id = $1`

	var a models.Account
	err := s.db.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Phone, &a.Role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query account")
	}
	return &a, nil
}

func (s *Storage) HasAdminAccount(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE role = $1)`,
		models.RoleAdmin).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "query admin exists")
	}
	return exists, nil
}
