package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"restaurant-booking-be/pkg/store"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesPerSession(t *testing.T) {
	locker := NewLocalLocker(time.Second)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := locker.Acquire(context.Background(), "s-1")
			if !assert.NoError(t, err) {
				return
			}
			defer lease.Release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestLocalLocker_SessionsAreIndependent(t *testing.T) {
	locker := NewLocalLocker(time.Second)

	a, err := locker.Acquire(context.Background(), "s-1")
	require.NoError(t, err)
	defer a.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	b, err := locker.Acquire(ctx, "s-2")
	require.NoError(t, err)
	b.Release()
}

func TestLocalLocker_WaitTimesOut(t *testing.T) {
	locker := NewLocalLocker(time.Minute)

	held, err := locker.Acquire(context.Background(), "s-1")
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "s-1")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLocalLocker_ReaperInvalidatesStuckLease(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)

	stuck, err := locker.Acquire(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, stuck.Valid())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next, err := locker.Acquire(ctx, "s-1")
	require.NoError(t, err)

	assert.False(t, stuck.Valid())
	assert.True(t, next.Valid())

	// A late release from the reaped turn must not free the new holder.
	stuck.Release()
	assert.True(t, next.Valid())
	next.Release()
	assert.False(t, next.Valid())
}

func TestClone_IsDeep(t *testing.T) {
	st := store.NewConversationState("s-1", "u-1")
	st.FormData["party_size"] = "4"
	st.PendingQuestion = &store.Question{Kind: store.QuestionMissingField, Field: "visit_date"}

	cp, err := Clone(st)
	require.NoError(t, err)

	cp.FormData["party_size"] = "6"
	cp.PendingQuestion.Field = "visit_time"
	assert.Equal(t, "4", st.FormData["party_size"])
	assert.Equal(t, "visit_date", st.PendingQuestion.Field)
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	locker := NewRedisLocker(rdb, time.Second)
	id := "test-" + time.Now().Format("150405.000000")

	lease, err := locker.Acquire(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, lease.Valid())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, id)
	assert.ErrorIs(t, err, ErrLockTimeout)

	lease.Release()
	assert.False(t, lease.Valid())

	again, err := locker.Acquire(context.Background(), id)
	require.NoError(t, err)
	again.Release()
}
