package repo

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mediahub/internal/errs"
)

// defaultLockTTL bounds how long a pipeline run may hold its advisory
// lock before Redis expires it, so a crashed worker never wedges a
// recording forever.
const defaultLockTTL = 2 * time.Hour

// RedisLocker implements pipeline.Locker with a Redis SET NX, matching
// the teacher's topology-agnostic pkg/redis client so the lock works
// unchanged against single, sentinel, or cluster deployments.
type RedisLocker struct {
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisLocker(client goredis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, ttl: defaultLockTTL, prefix: "pipeline:lock:"}
}

func (l *RedisLocker) TryLock(ctx context.Context, recordingID string) (func(), bool, error) {
	key := l.prefix + recordingID
	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, false, errs.Wrap(errs.Internal, "acquire pipeline lock", err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		_ = l.client.Del(context.Background(), key).Err()
	}
	return unlock, true, nil
}
