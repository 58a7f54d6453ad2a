package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/papertags/smart-papertags-app/internal/broker/messages"
	"github.com/papertags/smart-papertags-app/internal/integrations/mailer"
)

type fakeSender struct {
	sent []mailer.Mail
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m mailer.Mail) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

func f64Ptr(f float64) *float64 { return &f }

func encode(t *testing.T, msg messages.OwnerNotification) []byte {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestHandle_SendsOwnerEmail(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender)

	raw := encode(t, messages.OwnerNotification{
		TagPublicID:   "PT12AB34",
		TagName:       "Backpack",
		ContactEmail:  "owner@example.com",
		ContactName:   "Owner",
		FoundAt:       time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC),
		Location:      "Berlin, Berlin, Germany",
		PinLatitude:   f64Ptr(52.52),
		PinLongitude:  f64Ptr(13.405),
		FinderMessage: "Left it at the front desk",
	})
	require.NoError(t, n.Handle([]byte("PT12AB34"), raw))

	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	require.Equal(t, "owner@example.com", m.To)
	require.Equal(t, "Found your tag!", m.Subject)
	require.Contains(t, m.HTML, "Backpack")
	require.Contains(t, m.HTML, "PT12AB34")
	require.Contains(t, m.HTML, "Berlin, Berlin, Germany")
	require.Contains(t, m.HTML, "https://www.google.com/maps?q=52.52")
	require.Contains(t, m.HTML, "Left it at the front desk")
	require.Contains(t, m.Text, "Berlin, Berlin, Germany")

	snap := n.Stats()
	require.Equal(t, uint64(1), snap.Processed)
	require.Equal(t, uint64(1), snap.Sent)
}

func TestHandle_NoPinOmitsMapsLink(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender)

	raw := encode(t, messages.OwnerNotification{
		TagPublicID:  "PT12AB34",
		ContactEmail: "owner@example.com",
		FoundAt:      time.Now().UTC(),
		Location:     "Unknown City, Unknown Region, Unknown Country",
	})
	require.NoError(t, n.Handle(nil, raw))

	require.Len(t, sender.sent, 1)
	require.NotContains(t, sender.sent[0].HTML, "google.com/maps")
	require.Contains(t, sender.sent[0].HTML, "your item")
}

func TestHandle_MalformedMessageIsDropped(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender)

	require.NoError(t, n.Handle(nil, []byte("not json")))
	require.NoError(t, n.Handle(nil, encode(t, messages.OwnerNotification{TagPublicID: "PT12AB34"})))

	require.Empty(t, sender.sent)
	require.Equal(t, uint64(2), n.Stats().Malformed)
}

func TestHandle_SendFailureIsAbsorbed(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp refused")}
	n := New(sender)

	raw := encode(t, messages.OwnerNotification{
		TagPublicID:  "PT12AB34",
		ContactEmail: "owner@example.com",
		FoundAt:      time.Now().UTC(),
	})
	require.NoError(t, n.Handle(nil, raw))
	require.Equal(t, uint64(1), n.Stats().SendFailures)
	require.Zero(t, n.Stats().Sent)
}
