package pgtags

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/models"
)

func (s *Storage) InsertScanEvent(ctx context.Context, ev *models.ScanEvent) error {
	q := `INSERT INTO scan_events (tag_secret_id, finder_ip, location, message, pin_latitude, pin_longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	now := time.Now().UTC()
	err := s.db.QueryRow(ctx, q,
		ev.TagSecretID, ev.FinderIP, ev.Location, ev.Message,
		ev.PinLatitude, ev.PinLongitude, now).Scan(&ev.ID)
	if err != nil {
		return errors.Wrap(err, "insert scan event")
	}
	ev.CreatedAt = now
	return nil
}

// ListScanEvents returns scan history for a tag, newest first.
func (s *Storage) ListScanEvents(ctx context.Context, secretID string, limit, offset uint64) ([]models.ScanEvent, error) {
	q := `SELECT id, tag_secret_id, finder_ip, location, message, pin_latitude, pin_longitude, created_at
		FROM scan_events
		WHERE tag_secret_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, q, secretID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query scan events")
	}
	defer rows.Close()

	var out []models.ScanEvent
	for rows.Next() {
		var ev models.ScanEvent
		if err := rows.Scan(
			&ev.ID, &ev.TagSecretID, &ev.FinderIP, &ev.Location, &ev.Message,
			&ev.PinLatitude, &ev.PinLongitude, &ev.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}
		out = append(out, ev)
	}
	return out, errors.Wrap(rows.Err(), "iterate scan events")
}
