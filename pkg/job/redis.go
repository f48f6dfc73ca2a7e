package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/posterforge/posterforge/pkg/errors"
)

// redisKeyPrefix namespaces job records in a shared Redis.
const redisKeyPrefix = "posterforge:job:"

// redisRecordTTL bounds how long a job record lives in Redis. The
// reaper usually removes terminal jobs first; the TTL is the backstop
// for abandoned records.
const redisRecordTTL = 24 * time.Hour

// RedisStore persists jobs in Redis so multiple service instances can
// share one job table.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore verifies connectivity and returns the store.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "connecting to Redis")
	}
	return &RedisStore{client: client}, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Create(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "encoding job")
	}
	ok, err := s.client.SetNX(ctx, redisKey(j.ID), data, redisRecordTTL).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "storing job")
	}
	if !ok {
		return errors.New(errors.ErrCodeInternal, "job %q already exists", j.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err == redis.Nil {
		return nil, NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "loading job")
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "decoding job")
	}
	return &j, nil
}

// Update applies fn inside an optimistic WATCH transaction, retrying
// on contention so concurrent stage updates serialize cleanly.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Job)) (*Job, error) {
	key := redisKey(id)
	var updated *Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return NotFound(id)
		}
		if err != nil {
			return err
		}
		var j Job
		if err := json.Unmarshal(data, &j); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "decoding job")
		}
		if err := apply(&j, fn); err != nil {
			return err
		}
		next, err := json.Marshal(&j)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "encoding job")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, redisRecordTTL)
			return nil
		})
		if err == nil {
			updated = &j
		}
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, errors.New(errors.ErrCodeInternal, "job %q update contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "deleting job")
	}
	if n == 0 {
		return NotFound(id)
	}
	return nil
}

// List scans the job namespace. Scan keeps the operation incremental;
// the job table is small enough that pagination is not exposed.
func (s *RedisStore) List(ctx context.Context) ([]*Job, error) {
	var jobs []*Job
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		j, err := s.Get(ctx, iter.Val()[len(redisKeyPrefix):])
		if err != nil {
			// Key expired between scan and get.
			continue
		}
		jobs = append(jobs, j)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "scanning jobs")
	}
	return jobs, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
