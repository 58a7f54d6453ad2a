package pgtags

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/models"
)

const tagColumns = `id, public_id, secret_id, state, name, admin_id, owner_id,
	contact_name, contact_email, contact_phone, assigned_at, claimed_at, created_at, updated_at`

func scanTag(row pgx.Row) (*models.Tag, error) {
	var t models.Tag
	err := row.Scan(
		&t.ID, &t.PublicID, &t.SecretID, &t.State, &t.Name, &t.AdminID, &t.OwnerID,
		&t.ContactName, &t.ContactEmail, &t.ContactPhone,
		&t.AssignedAt, &t.ClaimedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan tag row")
	}
	return &t, nil
}

// CreateTag inserts a freshly generated tag. Returns ErrDuplicate if either
// identifier collides so the caller can regenerate.
func (s *Storage) CreateTag(ctx context.Context, t *models.Tag) error {
	q := `INSERT INTO tags (public_id, secret_id, state, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`

	now := time.Now().UTC()
	err := s.db.QueryRow(ctx, q, t.PublicID, t.SecretID, t.State, t.AdminID, now).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "insert tag")
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (s *Storage) GetTagByPublicID(ctx context.Context, publicID string) (*models.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags WHERE public_id = $1`
	return scanTag(s.db.QueryRow(ctx, q, publicID))
}

func (s *Storage) GetTagBySecretID(ctx context.Context, secretID string) (*models.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags WHERE secret_id = $1`
	return scanTag(s.db.QueryRow(ctx, q, secretID))
}

// AssignTag moves a tag into circulation. The predicate in the UPDATE makes
// the transition race-free: only an unassigned tag changes.
func (s *Storage) AssignTag(ctx context.Context, publicID string) (bool, error) {
	q := `UPDATE tags SET state = $2, assigned_at = $3, updated_at = $3
		WHERE public_id = $1 AND state = $4`

	now := time.Now().UTC()
	ct, err := s.db.Exec(ctx, q, publicID, models.TagStateAssigned, now, models.TagStateUnassigned)
	if err != nil {
		return false, errors.Wrap(err, "assign tag")
	}
	return ct.RowsAffected() > 0, nil
}

type ClaimParams struct {
	OwnerID      uint64
	Name         string
	ContactName  string
	ContactEmail string
	ContactPhone *string
}

// ClaimTag binds an owner to an assigned tag. Concurrent claims are
// linearized by the conditional update: exactly one caller sees true.
func (s *Storage) ClaimTag(ctx context.Context, publicID string, p ClaimParams) (bool, error) {
	q := `UPDATE tags SET state = $2, owner_id = $3, name = $4,
			contact_name = $5, contact_email = $6, contact_phone = $7,
			claimed_at = $8, updated_at = $8
		WHERE public_id = $1 AND state = $9 AND owner_id IS NULL`

	now := time.Now().UTC()
	ct, err := s.db.Exec(ctx, q, publicID,
		models.TagStateClaimed, p.OwnerID, p.Name,
		p.ContactName, p.ContactEmail, p.ContactPhone,
		now, models.TagStateAssigned)
	if err != nil {
		return false, errors.Wrap(err, "claim tag")
	}
	return ct.RowsAffected() > 0, nil
}

type ContactChanges struct {
	Name         *string
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
}

// UpdateTagContact patches contact fields on a tag owned by ownerID.
// Nil fields keep their current value.
func (s *Storage) UpdateTagContact(ctx context.Context, publicID string, ownerID uint64, ch ContactChanges) (bool, error) {
	q := `UPDATE tags SET
			name = COALESCE($3, name),
			contact_name = COALESCE($4, contact_name),
			contact_email = COALESCE($5, contact_email),
			contact_phone = COALESCE($6, contact_phone),
			updated_at = $7
		WHERE public_id = $1 AND owner_id = $2`

	ct, err := s.db.Exec(ctx, q, publicID, ownerID,
		ch.Name, ch.ContactName, ch.ContactEmail, ch.ContactPhone, time.Now().UTC())
	if err != nil {
		return false, errors.Wrap(err, "update tag contact")
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteTag removes a tag and its scan history in one transaction.
func (s *Storage) DeleteTag(ctx context.Context, publicID string) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM scan_events WHERE tag_secret_id IN (SELECT secret_id FROM tags WHERE public_id = $1)`,
		publicID); err != nil {
		return false, errors.Wrap(err, "delete scan events")
	}

	ct, err := tx.Exec(ctx, `DELETE FROM tags WHERE public_id = $1`, publicID)
	if err != nil {
		return false, errors.Wrap(err, "delete tag")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit tx")
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Storage) listTags(ctx context.Context, q string, args ...any) ([]models.Tag, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query tags")
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, errors.Wrap(rows.Err(), "iterate tags")
}

func (s *Storage) ListTagsByOwner(ctx context.Context, ownerID uint64) ([]models.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags WHERE owner_id = $1 ORDER BY claimed_at DESC`
	return s.listTags(ctx, q, ownerID)
}

func (s *Storage) ListAllTags(ctx context.Context) ([]models.Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags ORDER BY created_at DESC`
	return s.listTags(ctx, q)
}
