package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ignite/talent-bridge/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// storeContract exercises the behavior every JobStore must share.
func storeContract(t *testing.T, store JobStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get missing = %v, want ErrJobNotFound", err)
	}
	if err := store.Update(ctx, "missing", func(j *Job) {}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Update missing = %v, want ErrJobNotFound", err)
	}

	job := NewJob("pool-1", "owner", "tag", []int{3})
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusRunning || got.SourceID != "pool-1" || got.DestinationTag != "tag" {
		t.Errorf("Get = %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Totals.Seen = 999
	reread, _ := store.Get(ctx, job.ID)
	if reread.Totals.Seen != 0 {
		t.Error("Get returned store-owned state, want a copy")
	}

	before := reread.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	err = store.Update(ctx, job.ID, func(j *Job) {
		j.Totals.Seen = 10
		j.Totals.Valid = 8
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, _ := store.Get(ctx, job.ID)
	if updated.Totals.Seen != 10 || updated.Totals.Valid != 8 {
		t.Errorf("totals after update = %+v", updated.Totals)
	}
	if !updated.UpdatedAt.After(before) {
		t.Error("Update should refresh UpdatedAt")
	}

	// Second job lists first (newest first).
	second := NewJob("pool-2", "owner", "tag", nil)
	second.StartedAt = second.StartedAt.Add(time.Second)
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	jobs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("List = %d jobs, want 2", len(jobs))
	}
	if jobs[0].SourceID != "pool-2" {
		t.Errorf("List[0].SourceID = %q, want pool-2 (newest first)", jobs[0].SourceID)
	}

	limited, _ := store.List(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("List(1) = %d jobs, want 1", len(limited))
	}
}

func TestMemoryJobStore(t *testing.T) {
	storeContract(t, NewMemoryJobStore())
}

func TestRedisJobStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storeContract(t, NewRedisJobStore(client))
}

func TestRedisJobStoreCreateSurvivesBrokenRecentList(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisJobStore(client)
	ctx := context.Background()

	// A wrong-typed key makes LPush fail while the job write succeeds.
	mr.Set("import:jobs:recent", "corrupted")

	var logBuf bytes.Buffer
	logger.SetOutput(&logBuf)
	defer logger.SetOutput(os.Stderr)

	job := NewJob("pool-1", "owner", "tag", nil)
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create = %v, want nil despite recent-list failure", err)
	}
	if _, err := store.Get(ctx, job.ID); err != nil {
		t.Errorf("Get after Create = %v, want the job stored", err)
	}
	if !strings.Contains(logBuf.String(), "redis push recent job") {
		t.Errorf("recent-list failure not logged:\n%s", logBuf.String())
	}
}

func TestRedisJobStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisJobStore(client)
	ctx := context.Background()

	job := NewJob("pool-1", "owner", "tag", nil)
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if ttl := mr.TTL("import:job:" + job.ID); ttl <= 0 {
		t.Errorf("job key TTL = %v, want a positive expiry", ttl)
	}

	// Evicted jobs silently disappear from listings.
	mr.FastForward(25 * time.Hour)
	jobs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("List after TTL = %d jobs, want 0", len(jobs))
	}
}
