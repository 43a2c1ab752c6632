package devices_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jerichox/jerichox-security/internal/devices"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := devices.NewKeyedMutex()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "hik_1")
			require.NoError(t, err)
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, km.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := devices.NewKeyedMutex()

	unlockA, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	assert.Equal(t, 1, km.Len())
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := devices.NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Zero(t, km.Len())
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, rdb := newRedis(t)
	l := devices.NewRedisLocker(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "hik_1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:hikconnect:sync:hik_1"))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "hik_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("lock:hikconnect:sync:hik_1"))

	unlock2, err := l.Lock(context.Background(), "hik_1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	mr, rdb := newRedis(t)
	l := devices.NewRedisLocker(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "hik_1")
	require.NoError(t, err)

	// Lock expired and was taken by another holder.
	require.NoError(t, mr.Set("lock:hikconnect:sync:hik_1", "someone-else"))
	unlock()

	v, err := mr.Get("lock:hikconnect:sync:hik_1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLocker_HeldLockOutlivesTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	l := devices.NewRedisLocker(rdb, time.Minute).WithRenewEvery(10 * time.Millisecond)
	key := "lock:hikconnect:sync:acct"

	unlock, err := l.Lock(context.Background(), "acct")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		mr.FastForward(50 * time.Second)
		require.True(t, mr.Exists(key))
		assert.Eventually(t, func() bool { return mr.TTL(key) > 55*time.Second }, time.Second, 5*time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "acct")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second holder must wait while the first still runs")

	unlock()
	unlock()
	assert.False(t, mr.Exists(key))
}

func TestRedisLocker_StopsRenewingLostLock(t *testing.T) {
	mr, rdb := newRedis(t)
	l := devices.NewRedisLocker(rdb, time.Minute).WithRenewEvery(10 * time.Millisecond)
	key := "lock:hikconnect:sync:acct"

	unlock, err := l.Lock(context.Background(), "acct")
	require.NoError(t, err)
	defer unlock()

	require.NoError(t, mr.Set(key, "someone-else"))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, mr.TTL(key))
}
