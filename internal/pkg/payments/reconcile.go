package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/app/repository"
)

const defaultCurrency = "EUR"

// Reconciler applies payment and payout events to wallet and mission state.
// Every pass runs in one transaction and is safe to repeat.
type Reconciler struct {
	db       *gorm.DB
	notifier Notifier
	orphans  repository.PayoutOrphanRepository
}

// NewReconciler creates a reconciler. orphans may be nil to disable orphan tracking.
func NewReconciler(db *gorm.DB, notifier Notifier, orphans repository.PayoutOrphanRepository) *Reconciler {
	return &Reconciler{db: db, notifier: notifier, orphans: orphans}
}

// ReconcilePayment charges the client, escrows the liner's credit and marks the
// mission paid. Events without a known mission are ignored.
func (r *Reconciler) ReconcilePayment(ctx context.Context, req ReconciliationRequest) error {
	if req.MissionID == "" {
		log.Warnf("[Reconcile] %s event %s has no mission id, skipping", req.Provider, req.EventID)
		return nil
	}
	if req.CorrelatingID == "" {
		log.Warnf("[Reconcile] %s event %s has no payment id, skipping", req.Provider, req.EventID)
		return nil
	}

	var outbox []pendingNotification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		mission, err := repos.Mission.GetByIDForUpdate(req.MissionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Reconcile] Mission %s from %s event %s not found, skipping", req.MissionID, req.Provider, req.EventID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load mission %s: %w", req.MissionID, err)
		}

		currency := resolveCurrency(req.Currency, mission.Currency)

		debit := &models.WalletTransaction{
			UserID:         mission.ClientID,
			Provider:       req.Provider,
			Type:           models.WalletTxTypeDebit,
			IdempotencyKey: req.CorrelatingID,
			Status:         models.WalletTxStatusCompleted,
			AmountCents:    req.AmountCents,
			Currency:       currency,
			Description:    "Payment for mission " + mission.DisplayName(),
			Counterparty:   req.Provider,
			Method:         req.Provider,
			Meta: datatypes.JSONMap{
				models.MetaProvider:   req.Provider,
				models.MetaExternalID: req.CorrelatingID,
				models.MetaMissionID:  mission.ID,
				models.MetaEventID:    req.EventID,
			},
		}
		_, created, err := repos.WalletTransaction.Upsert(debit, []string{"status", "amount_cents", "currency", "updated_at"})
		if err != nil {
			return fmt.Errorf("upsert client debit for mission %s: %w", mission.ID, err)
		}

		if mission.HasLiner() {
			correlationKey := req.CorrelationKey
			if correlationKey == "" {
				correlationKey = models.MetaExternalID
			}
			credit := &models.WalletTransaction{
				UserID:         *mission.LinerID,
				Provider:       req.Provider,
				Type:           models.WalletTxTypeCredit,
				IdempotencyKey: req.CorrelatingID,
				Status:         models.WalletTxStatusPending,
				AmountCents:    req.AmountCents,
				Currency:       currency,
				Description:    "Earnings for mission " + mission.DisplayName(),
				Counterparty:   "mission:" + mission.ID,
				Method:         models.WalletMethodEscrow,
				Meta: datatypes.JSONMap{
					models.MetaProvider:  req.Provider,
					correlationKey:       req.CorrelatingID,
					models.MetaMissionID: mission.ID,
					models.MetaEventID:   req.EventID,
				},
			}
			// Insert once: a payout may already have completed this credit.
			if _, _, err := repos.WalletTransaction.Upsert(credit, nil); err != nil {
				return fmt.Errorf("upsert liner credit for mission %s: %w", mission.ID, err)
			}
		}

		if mission.ApplyPaymentCaptured() {
			if err := repos.Mission.UpdatePaymentFields(mission); err != nil {
				return fmt.Errorf("update mission %s: %w", mission.ID, err)
			}
		}

		if created {
			outbox = append(outbox, pendingNotification{
				userID:   mission.ClientID,
				title:    "Payment received",
				message:  fmt.Sprintf("Your payment of %s for mission %s was received.", formatAmount(req.AmountCents, currency), mission.DisplayName()),
				category: models.NotificationCategoryPayment,
			})
		}
		log.Infof("[Reconcile] %s payment %s reconciled for mission %s (new=%t)", req.Provider, req.CorrelatingID, mission.ID, created)
		return nil
	})
	if err != nil {
		return err
	}

	dispatchNotifications(ctx, r.notifier, outbox)
	return nil
}

// ReconcilePayout completes the pending credit a payout settles. Payouts whose
// credit does not exist yet are remembered for the orphan sweep.
func (r *Reconciler) ReconcilePayout(ctx context.Context, req PayoutRequest) error {
	if !req.HasCorrelation() {
		log.Infof("[Reconcile] %s payout event %s has no correlating id, skipping", req.Provider, req.EventID)
		return nil
	}

	var (
		outbox []pendingNotification
		found  bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		var credit *models.WalletTransaction
		for _, match := range req.Matches {
			if match.Value == "" {
				continue
			}
			c, err := repos.WalletTransaction.FindByMetaForUpdate(req.Provider, models.WalletTxTypeCredit, match.MetaKey, match.Value)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("find credit by %s=%s: %w", match.MetaKey, match.Value, err)
			}
			credit = c
			break
		}
		if credit == nil {
			return nil
		}
		found = true

		statusChanged := credit.Status != models.WalletTxStatusCompleted
		credit.Status = models.WalletTxStatusCompleted
		credit.Method = req.Method
		credit.MergeMeta(req.Meta)
		if err := repos.WalletTransaction.Update(credit); err != nil {
			return fmt.Errorf("complete credit %s: %w", credit.ID, err)
		}

		if statusChanged {
			outbox = append(outbox, pendingNotification{
				userID:   credit.UserID,
				title:    "Payout completed",
				message:  fmt.Sprintf("Your payout of %s has been sent.", formatAmount(credit.AmountCents, credit.Currency)),
				category: models.NotificationCategoryPayout,
			})
		}
		log.Infof("[Reconcile] %s payout event %s completed credit %s (changed=%t)", req.Provider, req.EventID, credit.ID, statusChanged)
		return nil
	})
	if err != nil {
		return err
	}

	if !found {
		log.Infof("[Reconcile] No pending credit for %s payout event %s yet, keeping it for the orphan sweep", req.Provider, req.EventID)
		r.rememberOrphan(req)
		return nil
	}

	r.forgetOrphan(req)
	dispatchNotifications(ctx, r.notifier, outbox)
	return nil
}

func (r *Reconciler) rememberOrphan(req PayoutRequest) {
	if r.orphans == nil {
		return
	}
	if err := r.orphans.Add(models.PayoutOrphan{
		Key:      req.OrphanKey(),
		Provider: req.Provider,
		Payload:  req.ToMap(),
	}); err != nil {
		log.Errorf("[Reconcile] Failed to store orphan payout %s: %v", req.OrphanKey(), err)
	}
}

func (r *Reconciler) forgetOrphan(req PayoutRequest) {
	if r.orphans == nil {
		return
	}
	if err := r.orphans.Remove(req.OrphanKey()); err != nil {
		log.Errorf("[Reconcile] Failed to clear orphan payout %s: %v", req.OrphanKey(), err)
	}
}

// resolveCurrency applies event currency, then mission currency, then EUR.
func resolveCurrency(eventCurrency, missionCurrency string) string {
	if c := strings.ToUpper(strings.TrimSpace(eventCurrency)); c != "" {
		return c
	}
	if c := strings.ToUpper(strings.TrimSpace(missionCurrency)); c != "" {
		return c
	}
	return defaultCurrency
}

func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
