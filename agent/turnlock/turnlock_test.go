package turnlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func TestLocalRejectsConcurrentTurn(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "s1")
	require.ErrorIs(t, err, contractx.ErrTurnInFlight)

	other, err := l.Acquire(ctx, "s2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "s1")
	require.NoError(t, err)
	again()
}

func TestLocalSingleWinner(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.Acquire(context.Background(), "s1"); err == nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), winners.Load())
}

func TestLockTTLOutlastsTurn(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3*time.Minute, LockTTL(2*time.Minute, 2*time.Minute))
	require.Equal(t, 3*time.Minute, LockTTL(30*time.Second, 2*time.Minute))
	require.Equal(t, 10*time.Minute, LockTTL(10*time.Minute, 2*time.Minute))
	require.Equal(t, 45*time.Second, LockTTL(45*time.Second, 0))

	l := NewRedisLockerFromClient(nil, 0, "")
	require.Greater(t, l.ttl, 2*time.Minute)
}
