package models

import "time"

// PayoutOrphan is a payout event that found no pending credit to complete. It is
// kept in Redis and retried by the orphan sweep until it matches or expires.
type PayoutOrphan struct {
	Key       string                 `json:"key"`
	Provider  string                 `json:"provider"`
	Payload   map[string]interface{} `json:"payload"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
	Attempts  int                    `json:"attempts"`
}

// Age returns how long the orphan has been waiting.
func (o PayoutOrphan) Age(now time.Time) time.Duration {
	return now.Sub(o.FirstSeen)
}
