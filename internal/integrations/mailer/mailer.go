package mailer

import "context"

type Mail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single mail and returns a provider message id.
type Sender interface {
	Send(ctx context.Context, m Mail) (string, error)
}
