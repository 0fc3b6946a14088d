package payments

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/app/repository"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
)

const defaultOrphanMaxAge = 72 * time.Hour

// OrphanSweeper re-submits payout events that arrived before their credit existed.
type OrphanSweeper struct {
	orphans repository.PayoutOrphanRepository
	queue   Enqueuer
	maxAge  func() time.Duration
	now     func() time.Time
}

// NewOrphanSweeper creates a sweeper. Entries older than the
// payout_orphan_max_age_hours setting are dropped.
func NewOrphanSweeper(orphans repository.PayoutOrphanRepository, queue Enqueuer) *OrphanSweeper {
	return &OrphanSweeper{
		orphans: orphans,
		queue:   queue,
		maxAge: func() time.Duration {
			if s := models.GetAppSettings(); s != nil && s.GetPayoutOrphanMaxAge() > 0 {
				return s.GetPayoutOrphanMaxAge()
			}
			return defaultOrphanMaxAge
		},
		now: time.Now,
	}
}

// Sweep enqueues a reconcile_payout job for each live orphan and drops expired ones.
func (s *OrphanSweeper) Sweep(ctx context.Context) error {
	orphans, err := s.orphans.List()
	if err != nil {
		return err
	}

	maxAge := s.maxAge()
	now := s.now()
	resubmitted := 0
	for _, orphan := range orphans {
		if orphan.Age(now) > maxAge {
			log.Warnf("[PayoutOrphans] Giving up on %s after %s (%d attempts)", orphan.Key, orphan.Age(now).Round(time.Minute), orphan.Attempts)
			if err := s.orphans.Remove(orphan.Key); err != nil {
				log.Errorf("[PayoutOrphans] Failed to drop %s: %v", orphan.Key, err)
			}
			continue
		}
		if _, err := s.queue.EnqueueJobContext(ctx, jobqueue.JobTypeReconcilePayout, orphan.Payload); err != nil {
			return err
		}
		resubmitted++
	}
	if resubmitted > 0 {
		log.Infof("[PayoutOrphans] Re-submitted %d orphaned payouts", resubmitted)
	}
	return nil
}
