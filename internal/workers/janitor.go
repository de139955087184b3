// Package workers holds the background jobs run by cmd/worker.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpiredInvitationStore deletes unaccepted invitations that expired
// before cutoff and reports how many went.
type ExpiredInvitationStore interface {
	DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error)
}

// InvitationJanitor purges invitations that expired more than Retention
// ago. Accepted invitations are kept for the audit trail.
type InvitationJanitor struct {
	store     ExpiredInvitationStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewInvitationJanitor(store ExpiredInvitationStore, interval, retention time.Duration) *InvitationJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &InvitationJanitor{store: store, interval: interval, retention: retention, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *InvitationJanitor) Run(ctx context.Context) {
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("invitation janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.Sweep(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("invitation janitor stopped")
			return
		case <-ticker.C:
		}
	}
}

func (j *InvitationJanitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention).Unix()

	n, err := j.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("invitation janitor: sweep failed")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("invitation janitor: purged expired invitations")
	}
	return n, nil
}
