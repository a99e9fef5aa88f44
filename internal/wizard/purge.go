// purge.go houses the retention loop for intake sessions.  Uncompleted
// sessions idle longer than the retention window are deleted every
// interval; completed sessions are kept as the record of handoff.
package wizard

import (
	"context"
	"time"

	"github.com/webforja/forja/internal/metrics"
)

// Retention defaults, overridable via the wizard config section.
const (
	DefaultRetention     = 14 * 24 * time.Hour
	DefaultPurgeInterval = 6 * time.Hour
)

// StartPurgeLoop runs PurgeStale every interval until ctx is cancelled.
func (m *Manager) StartPurgeLoop(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.PurgeStale(ctx, retention)
				if err != nil {
					m.log.Errorw("session purge failed", "err", err)
					continue
				}
				if n > 0 {
					m.log.Infow("stale sessions purged", "count", n, "retention", retention)
				}
			}
		}
	}()
}

// PurgeStale deletes uncompleted sessions idle longer than retention and
// returns how many were removed.
func (m *Manager) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	const q = `
        DELETE FROM wizard_session
        WHERE  completed = FALSE
          AND  updated_at < ?`
	cutoff := time.Now().UTC().Add(-retention)
	res, err := m.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	metrics.SessionsPurgedTotal.Add(float64(n))
	return n, nil
}
