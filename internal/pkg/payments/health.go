package payments

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/app/repository"
)

// HealthTracker records the outcome of webhook verifications per provider.
// Failures to record are logged and never returned.
type HealthTracker struct {
	repo repository.ProviderHealthRepository
	now  func() time.Time
}

// NewHealthTracker creates a tracker on the given repository.
func NewHealthTracker(repo repository.ProviderHealthRepository) *HealthTracker {
	return &HealthTracker{repo: repo, now: time.Now}
}

// RecordSuccess marks the provider healthy and stamps the last webhook time.
func (h *HealthTracker) RecordSuccess(ctx context.Context, provider, message string) {
	now := h.now()
	h.upsert(provider, &models.PaymentProviderHealth{
		Provider:          provider,
		Status:            models.ProviderHealthHealthy,
		LastWebhookAt:     &now,
		LastStatusMessage: message,
	}, []string{"status", "last_webhook_at", "last_status_message", "updated_at"})
}

// RecordFailure marks the provider in error and stamps the last failure time.
func (h *HealthTracker) RecordFailure(ctx context.Context, provider, message string) {
	now := h.now()
	h.upsert(provider, &models.PaymentProviderHealth{
		Provider:          provider,
		Status:            models.ProviderHealthError,
		LastFailureAt:     &now,
		LastStatusMessage: message,
	}, []string{"status", "last_failure_at", "last_status_message", "updated_at"})
}

func (h *HealthTracker) upsert(provider string, record *models.PaymentProviderHealth, columns []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[ProviderHealth] Recording %s health panicked: %v", provider, r)
		}
	}()
	if h.repo == nil {
		return
	}
	if err := h.repo.Upsert(record, columns); err != nil {
		log.Errorf("[ProviderHealth] Failed to record %s health: %v", provider, err)
	}
}

// List returns every recorded provider.
func (h *HealthTracker) List(ctx context.Context) ([]models.PaymentProviderHealth, error) {
	return h.repo.List()
}
