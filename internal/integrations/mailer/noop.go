package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs the mail instead of delivering it. Default transport for
// local development.
type NoopSender struct{}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (s *NoopSender) Send(ctx context.Context, m Mail) (string, error) {
	id := fmt.Sprintf("noop-%d", time.Now().UnixNano())
	slog.Info("mail not sent (noop transport)",
		"id", id,
		"to", m.To,
		"subject", m.Subject,
	)
	return id, nil
}
