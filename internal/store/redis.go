package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/pkg/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis-compatible service using go-redis/v9.
// One JSON record per job keyed by job id, one capped list per session as the
// secondary index.
type RedisStore struct {
	client   *redis.Client
	indexCap int
}

// NewRedisStore creates a RedisStore from a Redis URL. indexCap bounds the
// per-session index length.
func NewRedisStore(redisURL string, indexCap int) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts), indexCap: indexCap}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CreateJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ttl := recordTTL(job, time.Now())

	// Record and index writes are pipelined but not transactional; a dangling
	// index entry is harmless because ListBySession skips missing records.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, JobKey(job.ID), data, ttl)
	idx := SessionJobsKey(job.SessionID)
	pipe.LPush(ctx, idx, job.ID.String())
	pipe.LTrim(ctx, idx, 0, int64(s.indexCap-1))
	pipe.Expire(ctx, idx, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) UpdateJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ttl := recordTTL(job, time.Now())
	if err := s.client.Set(ctx, JobKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	data, err := s.client.Get(ctx, JobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Job, error) {
	ids, err := s.client.LRange(ctx, SessionJobsKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return []*models.Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "job:" + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	jobs := make([]*models.Job, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // expired since it was indexed
		}
		var job models.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// IncrWithExpiry increments key and stamps the window expiry in one
// pipeline, backing the fixed-window rate limiter.
func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val(), nil
}
