package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/realign/pkg/adapters/memory"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/ports"
	"github.com/aretw0/realign/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, state)
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func bump(_ context.Context, s *domain.State) (*domain.State, error) {
	next := s.Snapshot()
	next.Generation++
	return next, nil
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	store := &SlowStore{Store: memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Create(ctx, domain.NewState(id, "t")))

	var wg sync.WaitGroup
	concurrentWrites := 20
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Update(ctx, id, bump)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// A lost update would leave the counter short.
	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(concurrentWrites), state.Generation)
}

func TestManager_UpdateReturnsBeforeAndAfter(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, manager.Create(ctx, domain.NewState("s1", "t")))

	before, after, err := manager.Update(ctx, "s1", bump)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), before.Generation)
	assert.Equal(t, uint64(1), after.Generation)
}

func TestManager_UpdateErrorsSaveNothing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, manager.Create(ctx, domain.NewState("s1", "t")))

	boom := errors.New("boom")
	_, _, err := manager.Update(ctx, "s1", func(_ context.Context, s *domain.State) (*domain.State, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.Generation)

	_, _, err = manager.Update(ctx, "unknown", bump)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_CreateRejectsDuplicate(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, manager.Create(ctx, domain.NewState("dup", "t")))
	err := manager.Create(ctx, domain.NewState("dup", "t"))
	assert.ErrorIs(t, err, session.ErrSessionExists)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Create(ctx, domain.NewState("s1", "t")))
	_, _, err := manager.Update(ctx, "s1", bump)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s1"}, locker.locked)
	assert.Equal(t, 2, locker.released)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_UpdateCommitCallbackRunsUnderLock(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, manager.Create(ctx, domain.NewState("s1", "t")))

	var mu sync.Mutex
	var seen []uint64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Update(ctx, "s1", bump, func(_, after *domain.State) {
				mu.Lock()
				seen = append(seen, after.Generation)
				mu.Unlock()
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, seen, 10)
	for i, gen := range seen {
		assert.Equal(t, uint64(i+1), gen, "commits observed out of order")
	}
}
