// Package gate serializes surgeries per project. At most one revision may
// be in flight for a project at any time; a second request gets rejected
// instead of queued so its prompt never runs against a stale source.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	rdb "github.com/previewlab/surgeon/common/redis"
)

// ErrBusy is returned when a project already has a surgery in flight.
var ErrBusy = fmt.Errorf("another surgery is already in progress for this project")

// Gate grants exclusive access to a project for the duration of a run.
type Gate interface {
	// Acquire returns a release func on success, ErrBusy when the project
	// is already held.
	Acquire(ctx context.Context, projectID string) (func(), error)
}

// MemoryGate backs single-process deployments and tests.
type MemoryGate struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{held: make(map[string]struct{})}
}

func (g *MemoryGate) Acquire(_ context.Context, projectID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[projectID]; busy {
		return nil, ErrBusy
	}
	g.held[projectID] = struct{}{}
	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, projectID)
			g.mu.Unlock()
		})
	}
	return release, nil
}

// RedisGate holds the lock in Redis so multiple service replicas agree on
// who owns a project. The TTL bounds how long a crashed run can wedge a
// project.
type RedisGate struct {
	client *rdb.Client
	ttl    time.Duration
}

func NewRedisGate(client *rdb.Client, ttl time.Duration) *RedisGate {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGate{client: client, ttl: ttl}
}

func (g *RedisGate) Acquire(ctx context.Context, projectID string) (func(), error) {
	key := "surgery_gate:" + projectID
	token := uuid.NewString()
	ok, err := g.client.AcquireLock(ctx, key, token, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire surgery gate for %s: %w", projectID, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			// best effort: the TTL reclaims the lock if this release fails
			_ = g.client.ReleaseLock(context.Background(), key, token)
		})
	}
	return release, nil
}
