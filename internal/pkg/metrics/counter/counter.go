package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/internal/pkg/cache"
)

const (
	webhookAcceptedKey = "payments:counters:webhooks_accepted"
	webhookRejectedKey = "payments:counters:webhooks_rejected"
)

// WebhookCounts are the pending, not yet flushed, counters of one provider
type WebhookCounts struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// AddWebhookAccepted increments the pending accepted counter for a provider in Redis
func AddWebhookAccepted(provider string) error {
	return cache.GetClient().HIncrBy(context.Background(), webhookAcceptedKey, provider, 1).Err()
}

// AddWebhookRejected increments the pending rejected counter for a provider in Redis
func AddWebhookRejected(provider string) error {
	return cache.GetClient().HIncrBy(context.Background(), webhookRejectedKey, provider, 1).Err()
}

// PendingWebhookCounts returns the counters not yet flushed to the database
func PendingWebhookCounts() (map[string]WebhookCounts, error) {
	ctx := context.Background()
	rdb := cache.GetClient()
	out := make(map[string]WebhookCounts)

	accepted, err := rdb.HGetAll(ctx, webhookAcceptedKey).Result()
	if err != nil {
		return nil, err
	}
	rejected, err := rdb.HGetAll(ctx, webhookRejectedKey).Result()
	if err != nil {
		return nil, err
	}
	for provider, v := range accepted {
		n, _ := strconv.ParseInt(v, 10, 64)
		c := out[provider]
		c.Accepted = n
		out[provider] = c
	}
	for provider, v := range rejected {
		n, _ := strconv.ParseInt(v, 10, 64)
		c := out[provider]
		c.Rejected = n
		out[provider] = c
	}
	return out, nil
}

// FlushAll flushes accepted and rejected counters into payment_provider_health
func FlushAll(db *gorm.DB) error {
	if err := flushHashToTable(db, webhookAcceptedKey, "payment_provider_health", "accepted_count"); err != nil {
		return err
	}
	return flushHashToTable(db, webhookRejectedKey, "payment_provider_health", "rejected_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments keyed by provider.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(db *gorm.DB, redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		// Nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	type pair struct {
		provider string
		inc      int64
	}
	pairs := make([]pair, 0, len(data))
	for provider, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{provider: provider, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].provider < pairs[j].provider })

	// UPDATE <table> SET <column> = <column> + CASE provider WHEN ? THEN ? ... END WHERE provider IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE provider")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.provider, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE provider IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.provider)
	}
	builder.WriteString(")")

	return db.Exec(builder.String(), args...).Error
}
