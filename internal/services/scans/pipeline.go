package scans

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/broker/messages"
	"github.com/papertags/smart-papertags-app/internal/integrations/geoip"
	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

const (
	scanViaLinkMessage = "Tag scanned via claimable link"

	jobTimeout      = 15 * time.Second
	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

type TagSource interface {
	GetTagBySecretID(ctx context.Context, secretID string) (*models.Tag, error)
	GetTagByPublicID(ctx context.Context, publicID string) (*models.Tag, error)
}

type ScanLog interface {
	InsertScanEvent(ctx context.Context, ev *models.ScanEvent) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type LocationResolver interface {
	Resolve(ctx context.Context, ip string) geoip.Location
}

// Stats counts pipeline activity. Failures are absorbed, never surfaced to
// the finder, so the counters are the only way to see them besides logs.
type Stats struct {
	Enqueued        atomic.Uint64
	Processed       atomic.Uint64
	LogFailures     atomic.Uint64
	PublishFailures atomic.Uint64
}

type StatsSnapshot struct {
	Enqueued        uint64 `json:"enqueued"`
	Processed       uint64 `json:"processed"`
	LogFailures     uint64 `json:"log_failures"`
	PublishFailures uint64 `json:"publish_failures"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Enqueued:        s.Enqueued.Load(),
		Processed:       s.Processed.Load(),
		LogFailures:     s.LogFailures.Load(),
		PublishFailures: s.PublishFailures.Load(),
	}
}

// Pipeline handles scans and found reports. The caller-facing part only
// resolves the tag; location lookup, history append and owner notification
// run detached on a bounded worker pool.
type Pipeline struct {
	tags     TagSource
	log      ScanLog
	resolver LocationResolver
	producer Publisher
	topic    string

	sem   chan struct{}
	wg    sync.WaitGroup
	stats Stats
}

func NewPipeline(tagSource TagSource, log ScanLog, resolver LocationResolver, producer Publisher, topic string, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Pipeline{
		tags:     tagSource,
		log:      log,
		resolver: resolver,
		producer: producer,
		topic:    topic,
		sem:      make(chan struct{}, concurrency),
	}
}

func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Wait blocks until all enqueued background jobs have finished. Used on
// shutdown and in tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Outcome tells the scan page what to render: a claim form while the tag
// is unclaimed, otherwise the finder contact form.
type Outcome string

const (
	OutcomeClaim  Outcome = "claim"
	OutcomeFinder Outcome = "finder"
)

type Resolution struct {
	Tag     *models.Tag
	Outcome Outcome
}

// ResolveScan looks up a tag by its secret link and records the scan in the
// background. The finder never waits for geo lookup or the history write.
// Tags that were never put into circulation resolve like missing ones.
func (p *Pipeline) ResolveScan(ctx context.Context, secretID, finderIP string) (*Resolution, error) {
	t, err := p.tags.GetTagBySecretID(ctx, secretID)
	if err != nil {
		if errors.Is(err, pgtags.ErrNotFound) || errors.Is(err, tags.ErrTagNotFound) {
			return nil, tags.ErrTagNotFound
		}
		return nil, err
	}
	if t.State == models.TagStateUnassigned {
		return nil, tags.ErrTagNotFound
	}

	msg := scanViaLinkMessage
	p.enqueue(job{
		secretID: t.SecretID,
		finderIP: finderIP,
		message:  &msg,
	})

	outcome := OutcomeClaim
	if t.IsClaimed() {
		outcome = OutcomeFinder
	}
	return &Resolution{Tag: t, Outcome: outcome}, nil
}

// FoundReport is a finder's submission from the contact form.
type FoundReport struct {
	SecretID     string
	PublicID     string
	FinderIP     string
	Message      *string
	PinLatitude  *float64
	PinLongitude *float64
}

// SubmitFound acknowledges a found report immediately and processes it in
// the background. Owners are notified only for claimed tags; for anything
// else the report is history-only.
func (p *Pipeline) SubmitFound(ctx context.Context, report FoundReport) error {
	var (
		t   *models.Tag
		err error
	)
	switch {
	case report.SecretID != "":
		t, err = p.tags.GetTagBySecretID(ctx, report.SecretID)
	case report.PublicID != "":
		t, err = p.tags.GetTagByPublicID(ctx, report.PublicID)
	default:
		return tags.ErrTagNotFound
	}
	if err != nil {
		if errors.Is(err, pgtags.ErrNotFound) || errors.Is(err, tags.ErrTagNotFound) {
			return tags.ErrTagNotFound
		}
		return err
	}
	if t.State == models.TagStateUnassigned {
		return tags.ErrTagNotFound
	}

	p.enqueue(job{
		secretID:     t.SecretID,
		finderIP:     report.FinderIP,
		message:      report.Message,
		pinLatitude:  report.PinLatitude,
		pinLongitude: report.PinLongitude,
		notify:       t.IsClaimed(),
		tag:          t,
	})
	return nil
}

type job struct {
	secretID     string
	finderIP     string
	message      *string
	pinLatitude  *float64
	pinLongitude *float64
	notify       bool
	tag          *models.Tag
}

// enqueue hands a job to the worker pool without blocking the caller. The
// semaphore bounds how many jobs run at once; excess jobs queue in their own
// goroutines.
func (p *Pipeline) enqueue(j job) {
	p.stats.Enqueued.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		// Detached from the request; the finder response has long gone out.
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		p.process(ctx, j)
	}()
}

func (p *Pipeline) process(ctx context.Context, j job) {
	defer p.stats.Processed.Add(1)

	loc := p.resolver.Resolve(ctx, j.finderIP)
	locStr := loc.String()

	ev := &models.ScanEvent{
		TagSecretID:  j.secretID,
		FinderIP:     j.finderIP,
		Location:     &locStr,
		Message:      j.message,
		PinLatitude:  j.pinLatitude,
		PinLongitude: j.pinLongitude,
	}
	if err := p.log.InsertScanEvent(ctx, ev); err != nil {
		p.stats.LogFailures.Add(1)
		slog.Error("scan history append failed", "secret_id", j.secretID, "error", err)
	}

	if !j.notify || j.tag == nil || j.tag.ContactEmail == nil {
		return
	}
	p.publishNotification(ctx, j, locStr)
}

func (p *Pipeline) publishNotification(ctx context.Context, j job, location string) {
	n := messages.OwnerNotification{
		TagPublicID:  j.tag.PublicID,
		ContactEmail: *j.tag.ContactEmail,
		FoundAt:      time.Now().UTC(),
		Location:     location,
		PinLatitude:  j.pinLatitude,
		PinLongitude: j.pinLongitude,
	}
	if j.tag.Name != nil {
		n.TagName = *j.tag.Name
	}
	if j.tag.ContactName != nil {
		n.ContactName = *j.tag.ContactName
	}
	if j.message != nil {
		n.FinderMessage = *j.message
	}

	value, err := json.Marshal(n)
	if err != nil {
		p.stats.PublishFailures.Add(1)
		slog.Error("notification marshal failed", "public_id", j.tag.PublicID, "error", err)
		return
	}

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.producer.Publish(ctx, p.topic, []byte(j.tag.PublicID), value)
		if err == nil {
			return
		}
		if attempt < publishAttempts {
			select {
			case <-time.After(publishBackoff):
			case <-ctx.Done():
				err = ctx.Err()
				attempt = publishAttempts
			}
		}
	}
	p.stats.PublishFailures.Add(1)
	slog.Error("owner notification publish failed", "public_id", j.tag.PublicID, "error", err)
}
