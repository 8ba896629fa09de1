// Package scanlock serializes scan processing per device across instances
// with a short redis lease. The lease is best effort: the enrollments table's
// unique active index is the hard guarantee, the lease just turns most
// same-device races into ordinary sequential scans.
package scanlock

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "camlock:scanlock:"
	leaseTTL   = 10 * time.Second
	maxRetries = 3
	retryWait  = 150 * time.Millisecond
)

// Locker hands out per-device scan leases. A nil client disables locking.
type Locker struct {
	rdb *redis.Client
}

// New creates a Locker. rdb may be nil when redis is not configured.
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire takes the lease for a device key and returns a release func. It
// retries briefly when another scan holds the lease, then proceeds anyway:
// losing the lease race must never fail a scan.
func (l *Locker) Acquire(ctx context.Context, deviceID string) func() {
	if l == nil || l.rdb == nil {
		return func() {}
	}

	key := keyPrefix + deviceID
	for attempt := 0; attempt <= maxRetries; attempt++ {
		ok, err := l.rdb.SetNX(ctx, key, "1", leaseTTL).Result()
		if err != nil {
			log.Printf("⚠️ scanlock: redis error for %s: %v", deviceID, err)
			return func() {}
		}
		if ok {
			return func() {
				if err := l.rdb.Del(context.Background(), key).Err(); err != nil {
					log.Printf("⚠️ scanlock: release failed for %s: %v", deviceID, err)
				}
			}
		}
		select {
		case <-time.After(retryWait):
		case <-ctx.Done():
			return func() {}
		}
	}

	log.Printf("⚠️ scanlock: lease busy for %s, proceeding on storage constraint", deviceID)
	return func() {}
}
