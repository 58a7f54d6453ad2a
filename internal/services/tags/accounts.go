package tags

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	a := &models.Account{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         models.RoleUser,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, pgtags.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return a, nil
}

// Authenticate verifies an email/password pair. Missing accounts and wrong
// passwords are indistinguishable to the caller. With requireAdmin set, a
// valid non-admin login is also rejected.
func (s *Service) Authenticate(ctx context.Context, email, password string, requireAdmin bool) (*models.Account, error) {
	a, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgtags.ErrNotFound) {
			return nil, ErrCredentialMismatch
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, ErrCredentialMismatch
	}
	if requireAdmin && a.Role != models.RoleAdmin {
		return nil, ErrCredentialMismatch
	}
	return a, nil
}

// EnsureAdmin bootstraps the first admin account on an empty install.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	exists, err := s.accounts.HasAdminAccount(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	a := &models.Account{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         models.RoleAdmin,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, pgtags.ErrDuplicate) {
			return nil
		}
		return err
	}
	slog.Info("bootstrapped default admin account", "email", email)
	return nil
}
