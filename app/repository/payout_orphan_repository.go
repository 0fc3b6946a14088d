package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/internal/pkg/cache"
)

// PayoutOrphansKey is the Redis hash holding orphaned payout events by key
const PayoutOrphansKey = "payments:payout_orphans"

// payoutOrphanRepository implements the PayoutOrphanRepository interface
type payoutOrphanRepository struct {
	// Note: This repository doesn't use GORM DB since it operates on Redis/Cache
}

// NewPayoutOrphanRepository creates a new payout orphan repository instance
func NewPayoutOrphanRepository() PayoutOrphanRepository {
	return &payoutOrphanRepository{}
}

// Add stores the orphan. A repeated key keeps its first-seen time and counts the attempt.
func (r *payoutOrphanRepository) Add(orphan models.PayoutOrphan) error {
	redisClient := cache.GetClient()
	ctx := context.Background()

	now := time.Now()
	if orphan.FirstSeen.IsZero() {
		orphan.FirstSeen = now
	}
	orphan.LastSeen = now
	orphan.Attempts = 1

	existing, err := redisClient.HGet(ctx, PayoutOrphansKey, orphan.Key).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil {
		var prev models.PayoutOrphan
		if json.Unmarshal([]byte(existing), &prev) == nil {
			orphan.FirstSeen = prev.FirstSeen
			orphan.Attempts = prev.Attempts + 1
		}
	}

	data, err := json.Marshal(orphan)
	if err != nil {
		return err
	}
	return redisClient.HSet(ctx, PayoutOrphansKey, orphan.Key, data).Err()
}

func (r *payoutOrphanRepository) Remove(key string) error {
	return cache.GetClient().HDel(context.Background(), PayoutOrphansKey, key).Err()
}

// List skips entries that no longer decode
func (r *payoutOrphanRepository) List() ([]models.PayoutOrphan, error) {
	entries, err := cache.GetClient().HGetAll(context.Background(), PayoutOrphansKey).Result()
	if err != nil {
		return nil, err
	}
	orphans := make([]models.PayoutOrphan, 0, len(entries))
	for _, raw := range entries {
		var orphan models.PayoutOrphan
		if err := json.Unmarshal([]byte(raw), &orphan); err != nil {
			continue
		}
		orphans = append(orphans, orphan)
	}
	return orphans, nil
}

func (r *payoutOrphanRepository) Count() (int64, error) {
	return cache.GetClient().HLen(context.Background(), PayoutOrphansKey).Result()
}
