package messages

import "time"

// OwnerNotification is published by the scan pipeline when a found
// submission lands on a claimed tag, and consumed by tag-notifier.
// Delivery toward the mailer is at-most-once; a lost message is an
// accepted outcome (best-effort notification).
type OwnerNotification struct {
	TagPublicID string `json:"tag_public_id"`
	TagName     string `json:"tag_name,omitempty"`

	ContactEmail string `json:"contact_email"`
	ContactName  string `json:"contact_name,omitempty"`

	FoundAt  time.Time `json:"found_at"`
	Location string    `json:"location,omitempty"`

	PinLatitude  *float64 `json:"pin_latitude,omitempty"`
	PinLongitude *float64 `json:"pin_longitude,omitempty"`

	FinderMessage string `json:"finder_message,omitempty"`
}
