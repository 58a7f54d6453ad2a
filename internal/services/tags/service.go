package tags

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/papertags/smart-papertags-app/internal/idgen"
	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

// generateRetries bounds regeneration on identifier collisions.
const generateRetries = 5

type Repository interface {
	CreateTag(ctx context.Context, t *models.Tag) error
	GetTagByPublicID(ctx context.Context, publicID string) (*models.Tag, error)
	GetTagBySecretID(ctx context.Context, secretID string) (*models.Tag, error)
	AssignTag(ctx context.Context, publicID string) (bool, error)
	ClaimTag(ctx context.Context, publicID string, p pgtags.ClaimParams) (bool, error)
	UpdateTagContact(ctx context.Context, publicID string, ownerID uint64, ch pgtags.ContactChanges) (bool, error)
	DeleteTag(ctx context.Context, publicID string) (bool, error)
	ListTagsByOwner(ctx context.Context, ownerID uint64) ([]models.Tag, error)
	ListAllTags(ctx context.Context) ([]models.Tag, error)
	ListScanEvents(ctx context.Context, secretID string, limit, offset uint64) ([]models.ScanEvent, error)
}

type Accounts interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	HasAdminAccount(ctx context.Context) (bool, error)
}

type Service struct {
	repo     Repository
	accounts Accounts
}

func NewService(repo Repository, accounts Accounts) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Generate mints a new unassigned tag with fresh identifiers. Collisions on
// either identifier trigger regeneration.
func (s *Service) Generate(ctx context.Context, adminID *uint64) (*models.Tag, error) {
	for i := 0; i < generateRetries; i++ {
		publicID, err := idgen.PublicID()
		if err != nil {
			return nil, err
		}
		secretID, err := idgen.SecretID()
		if err != nil {
			return nil, err
		}

		t := &models.Tag{
			PublicID: publicID,
			SecretID: secretID,
			State:    models.TagStateUnassigned,
			AdminID:  adminID,
		}
		err = s.repo.CreateTag(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, pgtags.ErrDuplicate) {
			return nil, err
		}
		slog.Warn("tag identifier collision, regenerating", "public_id", publicID)
	}
	return nil, errors.New("exhausted tag identifier retries")
}

// Assign moves a tag from unassigned to assigned. Re-invoking on a tag
// that already left the unassigned state is a no-op write and still
// succeeds; callers read the returned state when they need to tell the
// two apart.
func (s *Service) Assign(ctx context.Context, publicID string) (*models.Tag, error) {
	if _, err := s.repo.AssignTag(ctx, publicID); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTagByPublicID(ctx, publicID)
	if errors.Is(err, pgtags.ErrNotFound) {
		return nil, ErrTagNotFound
	}
	return t, err
}

// Unassign is intentionally not implemented: a tag that has been in
// circulation cannot be safely reset without leaking its scan history.
func (s *Service) Unassign(ctx context.Context, publicID string) error {
	return ErrUnsupported
}

type ClaimRequest struct {
	PublicID     string
	TagName      string
	ContactName  string
	ContactEmail string
	ContactPhone *string
	Password     string
}

// Claim binds an owner to an assigned tag. Precondition failures are
// reported in a fixed order: missing tag, then unassigned, then claimed,
// then credential problems. The account is resolved (or created) before the
// claim itself, which is a single conditional update.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (*models.Tag, error) {
	t, err := s.repo.GetTagByPublicID(ctx, req.PublicID)
	if err != nil {
		if errors.Is(err, pgtags.ErrNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	switch t.State {
	case models.TagStateUnassigned:
		return nil, ErrTagNotAssigned
	case models.TagStateClaimed:
		return nil, ErrAlreadyClaimed
	}

	owner, err := s.resolveOwner(ctx, req)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.ClaimTag(ctx, req.PublicID, pgtags.ClaimParams{
		OwnerID:      owner.ID,
		Name:         req.TagName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyClaimed
	}
	return s.repo.GetTagByPublicID(ctx, req.PublicID)
}

// resolveOwner finds the account for the claim email, verifying the
// password, or registers a new account when the email is unknown. A wrong
// password never creates an account.
func (s *Service) resolveOwner(ctx context.Context, req ClaimRequest) (*models.Account, error) {
	existing, err := s.accounts.GetAccountByEmail(ctx, req.ContactEmail)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrCredentialMismatch
		}
		return existing, nil
	}
	if !errors.Is(err, pgtags.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	a := &models.Account{
		Email:        req.ContactEmail,
		PasswordHash: string(hash),
		Name:         req.ContactName,
		Phone:        req.ContactPhone,
		Role:         models.RoleUser,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, pgtags.ErrDuplicate) {
			// Lost a registration race; the password still has to match.
			return s.resolveOwner(ctx, req)
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*models.Tag, error) {
	t, err := s.repo.GetTagByPublicID(ctx, publicID)
	if errors.Is(err, pgtags.ErrNotFound) {
		return nil, ErrTagNotFound
	}
	return t, err
}

func (s *Service) GetBySecretID(ctx context.Context, secretID string) (*models.Tag, error) {
	t, err := s.repo.GetTagBySecretID(ctx, secretID)
	if errors.Is(err, pgtags.ErrNotFound) {
		return nil, ErrTagNotFound
	}
	return t, err
}

func (s *Service) UpdateContact(ctx context.Context, publicID string, ownerID uint64, ch pgtags.ContactChanges) (*models.Tag, error) {
	ok, err := s.repo.UpdateTagContact(ctx, publicID, ownerID, ch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTagNotFound
	}
	return s.repo.GetTagByPublicID(ctx, publicID)
}

// Delete removes a tag together with its scan history.
func (s *Service) Delete(ctx context.Context, publicID string) error {
	ok, err := s.repo.DeleteTag(ctx, publicID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTagNotFound
	}
	return nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uint64) ([]models.Tag, error) {
	return s.repo.ListTagsByOwner(ctx, ownerID)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Tag, error) {
	return s.repo.ListAllTags(ctx)
}

// ScanHistory returns the scan log for an owned tag, newest first.
func (s *Service) ScanHistory(ctx context.Context, publicID string, ownerID uint64, limit, offset uint64) ([]models.ScanEvent, error) {
	t, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID == nil || *t.OwnerID != ownerID {
		return nil, ErrTagNotFound
	}
	return s.repo.ListScanEvents(ctx, t.SecretID, limit, offset)
}
