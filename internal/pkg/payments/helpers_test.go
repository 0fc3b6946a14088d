package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/app/repository"
	"github.com/ManuelReschke/LinerHub/internal/pkg/cache"
	"github.com/ManuelReschke/LinerHub/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
)

type enqueuedJob struct {
	jobType jobqueue.JobType
	payload map[string]interface{}
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

func (f *fakeEnqueuer) EnqueueJobContext(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, payload: payload})
	return &jobqueue.Job{ID: uuid.New().String(), Type: jobType, Payload: payload}, nil
}

func (f *fakeEnqueuer) all() []enqueuedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]enqueuedJob(nil), f.jobs...)
}

type sentNotification struct {
	userID   uint
	title    string
	category string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID uint, title, message, category string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, title: title, category: category})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var errNotifierDown = errors.New("notification sink down")

// useMiniredis points the shared cache client at a fresh in-memory Redis.
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})
	return mr
}

type reconcileFixture struct {
	db         *gorm.DB
	notifier   *recordingNotifier
	reconciler *Reconciler
	orphans    repository.PayoutOrphanRepository
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	useMiniredis(t)
	db := dbtest.New(t)
	notifier := &recordingNotifier{}
	orphans := repository.NewPayoutOrphanRepository()
	return &reconcileFixture{
		db:         db,
		notifier:   notifier,
		reconciler: NewReconciler(db, notifier, orphans),
		orphans:    orphans,
	}
}

func (f *reconcileFixture) createMission(t *testing.T, m models.Mission) *models.Mission {
	t.Helper()
	require.NoError(t, f.db.Create(&m).Error)
	return &m
}

func (f *reconcileFixture) mission(t *testing.T, id string) *models.Mission {
	t.Helper()
	var m models.Mission
	require.NoError(t, f.db.Where("id = ?", id).First(&m).Error)
	return &m
}

func (f *reconcileFixture) transactions(t *testing.T) []models.WalletTransaction {
	t.Helper()
	var txs []models.WalletTransaction
	require.NoError(t, f.db.Order("type ASC").Find(&txs).Error)
	return txs
}

func (f *reconcileFixture) transaction(t *testing.T, userID uint, txType string) *models.WalletTransaction {
	t.Helper()
	var tx models.WalletTransaction
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", userID, txType).First(&tx).Error)
	return &tx
}

func uintPtr(v uint) *uint { return &v }

// signStripePayload builds a Stripe-Signature header value for payload.
func signStripePayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", at.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const stripePaymentSucceededJSON = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {
    "object": {
      "id": "pi_1",
      "object": "payment_intent",
      "amount": 2000,
      "amount_received": 1800,
      "currency": "eur",
      "metadata": {"mission_id": "m1"}
    }
  }
}`

const stripePayoutPaidJSON = `{
  "id": "evt_payout_1",
  "object": "event",
  "type": "payout.paid",
  "data": {
    "object": {
      "id": "po_1",
      "object": "payout",
      "amount": 1800,
      "currency": "eur",
      "metadata": {"source_payment_intent": "pi_1"}
    }
  }
}`

const payPalCaptureJSON = `{
  "id": "WH-EVT-1",
  "event_type": "PAYMENT.CAPTURE.COMPLETED",
  "resource_type": "capture",
  "resource": {
    "id": "CAP-1",
    "custom_id": "m2",
    "amount": {"value": "18.50", "currency_code": "usd"}
  }
}`

const payPalPayoutsBatchJSON = `{
  "id": "WH-EVT-2",
  "event_type": "PAYMENT.PAYOUTSBATCH.SUCCESS",
  "resource_type": "payouts",
  "resource": {
    "batch_header": {
      "payout_batch_id": "PB-1",
      "batch_status": "SUCCESS",
      "sender_batch_header": {"sender_batch_id": "SB-1"}
    }
  }
}`
