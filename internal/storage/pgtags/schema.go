package pgtags

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS tags (
  id BIGSERIAL PRIMARY KEY,
  public_id TEXT NOT NULL UNIQUE,
  secret_id TEXT NOT NULL UNIQUE,
  state TEXT NOT NULL DEFAULT 'unassigned',
  name TEXT NULL,
  admin_id BIGINT NULL REFERENCES accounts(id),
  owner_id BIGINT NULL REFERENCES accounts(id),
  contact_name TEXT NULL,
  contact_email TEXT NULL,
  contact_phone TEXT NULL,
  assigned_at TIMESTAMPTZ NULL,
  claimed_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_owner_id ON tags(owner_id)`,
		// Scan history is keyed by secret id only; the FK cascade keeps
		// history from outliving its tag.
		`
CREATE TABLE IF NOT EXISTS scan_events (
  id BIGSERIAL PRIMARY KEY,
  tag_secret_id TEXT NOT NULL REFERENCES tags(secret_id) ON DELETE CASCADE,
  finder_ip TEXT NOT NULL,
  location TEXT NULL,
  message TEXT NULL,
  pin_latitude DOUBLE PRECISION NULL,
  pin_longitude DOUBLE PRECISION NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_secret_created ON scan_events(tag_secret_id, created_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
