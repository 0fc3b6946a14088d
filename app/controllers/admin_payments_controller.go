package controllers

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LinerHub/internal/pkg/metrics/counter"
)

// ProviderHealthLister lists recorded provider health
type ProviderHealthLister interface {
	List(ctx context.Context) ([]models.PaymentProviderHealth, error)
}

// QueueStatsReader exposes job queue depth
type QueueStatsReader interface {
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
	GetDelayedSize(ctx context.Context) (int64, error)
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
}

// OrphanCounter counts parked payout events
type OrphanCounter interface {
	Count() (int64, error)
}

// PeriodicRunner triggers a registered background task out of schedule
type PeriodicRunner interface {
	RunPeriodicOnce(ctx context.Context, name string) (bool, error)
}

// AdminPaymentsController serves payment diagnostics for operators
type AdminPaymentsController struct {
	health  ProviderHealthLister
	queue   QueueStatsReader
	orphans OrphanCounter
	tasks   PeriodicRunner
}

// NewAdminPaymentsController creates the controller. queue and orphans may be nil.
func NewAdminPaymentsController(health ProviderHealthLister, queue QueueStatsReader, orphans OrphanCounter) *AdminPaymentsController {
	return &AdminPaymentsController{
		health:  health,
		queue:   queue,
		orphans: orphans,
	}
}

// WithTaskRunner enables HandleRunTask
func (apc *AdminPaymentsController) WithTaskRunner(tasks PeriodicRunner) *AdminPaymentsController {
	apc.tasks = tasks
	return apc
}

// HandleHealth handles GET /admin/payments/health
func (apc *AdminPaymentsController) HandleHealth(c *fiber.Ctx) error {
	ctx := c.UserContext()

	records, err := apc.health.List(ctx)
	if err != nil {
		log.Errorf("[AdminPayments] Failed to list provider health: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "health_unavailable"})
	}

	// counters not yet flushed to the table
	pending, err := counter.PendingWebhookCounts()
	if err != nil {
		log.Warnf("[AdminPayments] Pending webhook counters unavailable: %v", err)
		pending = map[string]counter.WebhookCounts{}
	}

	seen := make(map[string]bool, len(records))
	providers := make([]fiber.Map, 0, len(records)+len(pending))
	for _, h := range records {
		seen[h.Provider] = true
		p := pending[h.Provider]
		providers = append(providers, fiber.Map{
			"provider":            h.Provider,
			"status":              h.Status,
			"last_webhook_at":     formatTimePtr(h.LastWebhookAt),
			"last_failure_at":     formatTimePtr(h.LastFailureAt),
			"last_status_message": h.LastStatusMessage,
			"accepted_count":      h.AcceptedCount + p.Accepted,
			"rejected_count":      h.RejectedCount + p.Rejected,
		})
	}
	for provider, p := range pending {
		if seen[provider] {
			continue
		}
		providers = append(providers, fiber.Map{
			"provider":            provider,
			"status":              models.ProviderHealthUnknown,
			"last_webhook_at":     nil,
			"last_failure_at":     nil,
			"last_status_message": "",
			"accepted_count":      p.Accepted,
			"rejected_count":      p.Rejected,
		})
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i]["provider"].(string) < providers[j]["provider"].(string)
	})

	response := fiber.Map{"providers": providers}
	if apc.queue != nil {
		response["queue"] = apc.queueStats(ctx)
	}
	if apc.orphans != nil {
		if n, err := apc.orphans.Count(); err == nil {
			response["payout_orphans"] = n
		} else {
			log.Warnf("[AdminPayments] Payout orphan count unavailable: %v", err)
		}
	}
	return c.JSON(response)
}

func (apc *AdminPaymentsController) queueStats(ctx context.Context) fiber.Map {
	stats := fiber.Map{}
	if n, err := apc.queue.GetQueueSize(ctx); err == nil {
		stats["pending"] = n
	}
	if n, err := apc.queue.GetProcessingSize(ctx); err == nil {
		stats["processing"] = n
	}
	if n, err := apc.queue.GetDelayedSize(ctx); err == nil {
		stats["delayed"] = n
	}
	if totals, err := apc.queue.GetJobStats(ctx); err == nil {
		stats["completed"] = totals[jobqueue.JobStatusCompleted]
		stats["failed"] = totals[jobqueue.JobStatusFailed]
	}
	return stats
}

// HandleRunTask handles POST /admin/payments/tasks/:name
func (apc *AdminPaymentsController) HandleRunTask(c *fiber.Ctx) error {
	name := c.Params("name")
	if apc.tasks == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_task"})
	}

	found, err := apc.tasks.RunPeriodicOnce(c.UserContext(), name)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_task"})
	}
	if err != nil {
		log.Errorf("[AdminPayments] Task %s failed: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "task_failed"})
	}

	log.Infof("[AdminPayments] Task %s triggered from %s", name, clientIP(c))
	return c.JSON(fiber.Map{"ok": true, "task": name})
}
