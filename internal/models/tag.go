package models

import "time"

// Tag lifecycle states. Transitions only move forward:
// unassigned -> assigned -> claimed.
const (
	TagStateUnassigned = "unassigned"
	TagStateAssigned   = "assigned"
	TagStateClaimed    = "claimed"
)

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Tag struct {
	ID uint64

	// PublicID is the short operator-facing code printed on the label.
	// SecretID is the long code embedded in the scan URL; it is the
	// tag's capability token and is never derived from PublicID.
	PublicID string
	SecretID string

	State string
	Name  *string

	AdminID *uint64
	OwnerID *uint64

	ContactName  *string
	ContactEmail *string
	ContactPhone *string

	AssignedAt *time.Time
	ClaimedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Tag) IsClaimed() bool {
	return t.State == TagStateClaimed
}

// ScanEvent is an append-only record of one anonymous visit or found
// submission. Events reference the tag by secret id and are removed only
// when the tag itself is deleted.
type ScanEvent struct {
	ID           uint64
	TagSecretID  string
	FinderIP     string
	Location     *string
	Message      *string
	PinLatitude  *float64
	PinLongitude *float64
	CreatedAt    time.Time
}

type Account struct {
	ID           uint64
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	Role         string
	CreatedAt    time.Time
}
