package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on a Redis sorted set scored by
// visible-at time. Lease acquisition and acknowledgement are small Lua
// scripts so concurrent workers on separate hosts cannot double-lease
// or ack someone else's lease.
type RedisQueue struct {
	client    *redis.Client
	namespace string
}

// RedisOptions holds connection settings for the redis backend.
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	Namespace string
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(opts RedisOptions) (*RedisQueue, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ns := opts.Namespace
	if ns == "" {
		ns = "tripweaver"
	}
	return &RedisQueue{client: client, namespace: ns}, nil
}

// Close releases the underlying connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) pendingKey() string { return q.namespace + ":queue:pending" }
func (q *RedisQueue) jobsKey() string    { return q.namespace + ":queue:jobs" }
func (q *RedisQueue) leasesKey() string  { return q.namespace + ":queue:leases" }

// receiveScript pops the oldest visible entry and re-scores it to the
// end of its new lease, recording the lease receipt.
// KEYS: pending, jobs, leases. ARGV: nowMillis, leaseUntilMillis, receipt.
var receiveScript = redis.NewScript(`
local entries = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #entries == 0 then
  return false
end
local entry = entries[1]
redis.call('ZADD', KEYS[1], ARGV[2], entry)
redis.call('HSET', KEYS[3], entry, ARGV[3])
local job = redis.call('HGET', KEYS[2], entry)
return {entry, job}
`)

// deleteScript removes an entry only while the caller still holds the
// lease receipt.
// KEYS: pending, jobs, leases. ARGV: entry, receipt.
var deleteScript = redis.NewScript(`
local held = redis.call('HGET', KEYS[3], ARGV[1])
if held ~= ARGV[2] then
  return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
return 1
`)

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	entry := uuid.NewString()
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobsKey(), entry, jobID)
	pipe.ZAdd(ctx, q.pendingKey(), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: entry,
	})
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Receive(ctx context.Context, visibility time.Duration) (*Message, error) {
	now := time.Now()
	receipt := uuid.NewString()

	res, err := receiveScript.Run(ctx, q.client,
		[]string{q.pendingKey(), q.jobsKey(), q.leasesKey()},
		now.UnixMilli(), now.Add(visibility).UnixMilli(), receipt,
	).Result()
	if err == redis.Nil {
		return nil, ErrNoMessage
	}
	if err != nil {
		return nil, fmt.Errorf("receive script failed: %w", err)
	}

	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("unexpected receive script result: %v", res)
	}
	entry, _ := pair[0].(string)
	jobID, _ := pair[1].(string)
	if jobID == "" {
		// Payload lost (flushed hash); drop the orphaned entry.
		q.client.ZRem(ctx, q.pendingKey(), entry)
		return nil, ErrNoMessage
	}

	// Receipt carries the entry id so Delete can address the row.
	return &Message{JobID: jobID, Receipt: entry + ":" + receipt}, nil
}

func (q *RedisQueue) Delete(ctx context.Context, msg *Message) error {
	entry, receipt, ok := splitReceipt(msg.Receipt)
	if !ok {
		return fmt.Errorf("malformed receipt %q", msg.Receipt)
	}
	return deleteScript.Run(ctx, q.client,
		[]string{q.pendingKey(), q.jobsKey(), q.leasesKey()},
		entry, receipt,
	).Err()
}

func splitReceipt(s string) (entry, receipt string, ok bool) {
	// entry and receipt are both uuids: fixed 36-char prefix.
	if len(s) < 74 || s[36] != ':' {
		return "", "", false
	}
	return s[:36], s[37:], true
}
