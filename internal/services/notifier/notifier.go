package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/broker/messages"
	"github.com/papertags/smart-papertags-app/internal/integrations/mailer"
)

const foundSubject = "Found your tag!"

var mailTmpl = template.Must(template.New("found").Parse(`<html>
<body>
  <h2>Good news, {{.ContactName}}!</h2>
  <p>Someone scanned your tag <strong>{{.TagName}}</strong> ({{.TagPublicID}}).</p>
  <p>Approximate location: {{.Location}}</p>
  {{- if .MapsURL}}
  <p><a href="{{.MapsURL}}">View the pinned spot on the map</a></p>
  {{- end}}
  {{- if .FinderMessage}}
  <p>Message from the finder:</p>
  <blockquote>{{.FinderMessage}}</blockquote>
  {{- end}}
  <p>Scanned at {{.FoundAt}}</p>
</body>
</html>`))

type mailData struct {
	ContactName   string
	TagName       string
	TagPublicID   string
	Location      string
	MapsURL       string
	FinderMessage string
	FoundAt       string
}

type Stats struct {
	Processed    atomic.Uint64
	Sent         atomic.Uint64
	SendFailures atomic.Uint64
	Malformed    atomic.Uint64
}

type StatsSnapshot struct {
	Processed    uint64 `json:"processed"`
	Sent         uint64 `json:"sent"`
	SendFailures uint64 `json:"send_failures"`
	Malformed    uint64 `json:"malformed"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Processed:    s.Processed.Load(),
		Sent:         s.Sent.Load(),
		SendFailures: s.SendFailures.Load(),
		Malformed:    s.Malformed.Load(),
	}
}

// Notifier turns found notifications into owner emails. Delivery is best
// effort: malformed messages and transport failures are logged and counted,
// never retried through the broker.
type Notifier struct {
	sender mailer.Sender
	stats  Stats
}

func New(sender mailer.Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Stats() StatsSnapshot {
	return n.stats.Snapshot()
}

func (n *Notifier) Handle(key, value []byte) error {
	n.stats.Processed.Add(1)

	var msg messages.OwnerNotification
	if err := json.Unmarshal(value, &msg); err != nil || msg.ContactEmail == "" {
		n.stats.Malformed.Add(1)
		slog.Error("dropping malformed notification", "key", string(key), "error", err)
		return nil
	}

	mail, err := renderMail(msg)
	if err != nil {
		n.stats.Malformed.Add(1)
		slog.Error("dropping unrenderable notification", "public_id", msg.TagPublicID, "error", err)
		return nil
	}

	id, err := n.sender.Send(context.Background(), mail)
	if err != nil {
		n.stats.SendFailures.Add(1)
		slog.Error("owner email failed", "public_id", msg.TagPublicID, "to", msg.ContactEmail, "error", err)
		return nil
	}

	n.stats.Sent.Add(1)
	slog.Info("owner notified", "public_id", msg.TagPublicID, "mail_id", id)
	return nil
}

func renderMail(msg messages.OwnerNotification) (mailer.Mail, error) {
	data := mailData{
		ContactName:   msg.ContactName,
		TagName:       msg.TagName,
		TagPublicID:   msg.TagPublicID,
		Location:      msg.Location,
		FinderMessage: msg.FinderMessage,
		FoundAt:       msg.FoundAt.Format("2006-01-02 15:04 UTC"),
	}
	if data.ContactName == "" {
		data.ContactName = "there"
	}
	if data.TagName == "" {
		data.TagName = "your item"
	}
	if msg.PinLatitude != nil && msg.PinLongitude != nil {
		data.MapsURL = fmt.Sprintf("https://www.google.com/maps?q=%f,%f", *msg.PinLatitude, *msg.PinLongitude)
	}

	var html strings.Builder
	if err := mailTmpl.Execute(&html, data); err != nil {
		return mailer.Mail{}, errors.Wrap(err, "render mail")
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Someone scanned your tag %s (%s).\n", data.TagName, data.TagPublicID)
	fmt.Fprintf(&text, "Approximate location: %s\n", data.Location)
	if data.MapsURL != "" {
		fmt.Fprintf(&text, "Pinned spot: %s\n", data.MapsURL)
	}
	if data.FinderMessage != "" {
		fmt.Fprintf(&text, "Message from the finder: %s\n", data.FinderMessage)
	}
	fmt.Fprintf(&text, "Scanned at %s\n", data.FoundAt)

	return mailer.Mail{
		To:      msg.ContactEmail,
		Subject: foundSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
