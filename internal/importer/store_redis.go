package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/talent-bridge/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix  = "import:job:"
	recentJobsKey = "import:jobs:recent"
	maxRecentJobs = 100

	// Completed jobs stay queryable for a day, then Redis evicts them.
	jobTTL = 24 * time.Hour
)

// RedisJobStore keeps job snapshots as JSON under TTL keys, mirroring
// how upload sessions and progress are tracked elsewhere in the stack.
// Each job still has a single writer (its own pipeline), so the
// read-modify-write in Update is race-free per entry.
type RedisJobStore struct {
	client *redis.Client
}

// NewRedisJobStore creates a JobStore backed by the given Redis client.
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

func (s *RedisJobStore) Create(ctx context.Context, job *Job) error {
	if err := s.put(ctx, job); err != nil {
		return err
	}
	// The job itself is stored; a broken recent-jobs list only degrades
	// the listing endpoint, so log instead of failing the create.
	if err := s.client.LPush(ctx, recentJobsKey, job.ID).Err(); err != nil {
		logger.Error("redis push recent job", "job", job.ID, "err", err.Error())
	}
	if err := s.client.LTrim(ctx, recentJobsKey, 0, maxRecentJobs-1).Err(); err != nil {
		logger.Error("redis trim recent jobs", "err", err.Error())
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse stored job: %w", err)
	}
	return &job, nil
}

func (s *RedisJobStore) Update(ctx context.Context, id string, mutate func(*Job)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	return s.put(ctx, job)
}

func (s *RedisJobStore) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 || limit > maxRecentJobs {
		limit = maxRecentJobs
	}
	ids, err := s.client.LRange(ctx, recentJobsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err == ErrJobNotFound {
			continue // evicted by TTL
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisJobStore) put(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		return fmt.Errorf("redis set job: %w", err)
	}
	return nil
}
