package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyCounter enforces per-inbox daily send counts in Redis. The check and
// increment run in one Lua script so concurrent workers cannot race past the
// limit with a GET-then-INCR pattern. Keys expire shortly after the UTC day
// rolls over; the Postgres sent_today column remains the durable record.
type DailyCounter struct {
	redis  *redis.Client
	script *redis.Script
}

const dailyCounterLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
	return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
	redis.call("EXPIRE", key, ttl)
end
return {1, newVal}
`

// NewDailyCounter creates a counter backed by the given Redis client.
func NewDailyCounter(client *redis.Client) *DailyCounter {
	return &DailyCounter{
		redis:  client,
		script: redis.NewScript(dailyCounterLuaScript),
	}
}

// Allow atomically reserves one send against the inbox's daily limit.
// Returns whether the send may proceed and the count after the call.
func (c *DailyCounter) Allow(ctx context.Context, inboxID string, limit int) (bool, int, error) {
	key := fmt.Sprintf("outreach:daily:%s:%s", time.Now().UTC().Format("2006-01-02"), inboxID)
	ttl := dailyKeyTTLSeconds()

	res, err := c.script.Run(ctx, c.redis, []string{key}, limit, ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("daily counter %s: %w", inboxID, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("daily counter %s: unexpected script result %v", inboxID, res)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	return allowed == 1, int(count), nil
}

// dailyKeyTTLSeconds keeps the key alive until an hour past the next UTC
// midnight so a late reader never sees a vanished counter mid-day.
func dailyKeyTTLSeconds() int {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return int(midnight.Sub(now).Seconds()) + 3600
}
