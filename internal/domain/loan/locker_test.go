package loan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	id := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size(), "entries should be released")
}

func TestKeyedLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewKeyedLocker()
	unlockA, err := l.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, uuid.New())
	require.NoError(t, err)
	unlockB()
}

func TestKeyedLocker_ContextCancelled(t *testing.T) {
	l := NewKeyedLocker()
	id := uuid.New()
	unlock, err := l.Lock(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, id)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	unlock()
	unlock()
	assert.Equal(t, 0, l.size())
}
