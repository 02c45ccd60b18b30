package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(Policy{MaxRequests: max, Window: window}, 0, nil)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAdmit_UnderLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		d := l.Admit("caller-a")
		require.True(t, d.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}
}

func TestAdmit_RejectsAtLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, l.Admit("caller-a").Allowed)
	}

	d := l.Admit("caller-a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, d.ResetAt.IsZero())

	// A rejected request must not consume quota for the next window.
	d = l.Admit("caller-a")
	assert.False(t, d.Allowed)
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Admit("caller-a").Allowed)
	assert.False(t, l.Admit("caller-a").Allowed)
	assert.True(t, l.Admit("caller-b").Allowed)
}

func TestAdmit_WindowReset(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)

	require.True(t, l.Admit("caller-a").Allowed)
	require.True(t, l.Admit("caller-a").Allowed)
	require.False(t, l.Admit("caller-a").Allowed)

	*now = now.Add(time.Minute + time.Second)

	d := l.Admit("caller-a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestAdmit_Concurrent(t *testing.T) {
	const workers = 8
	const perWorker = 50
	const max = workers * perWorker / 2

	l, _ := newTestLimiter(max, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan bool, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				admitted <- l.Admit("shared").Allowed
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	assert.Equal(t, max, count, "exactly the window quota must be admitted")
}

func TestSweep_RemovesExpiredWindows(t *testing.T) {
	l, now := newTestLimiter(10, time.Minute)

	for i := 0; i < 20; i++ {
		l.Admit(fmt.Sprintf("caller-%d", i))
	}
	require.Equal(t, 20, l.Len())

	*now = now.Add(2 * time.Minute)
	l.Admit("caller-fresh")
	l.sweep()

	assert.Equal(t, 1, l.Len())
}

func TestClose_Idempotent(t *testing.T) {
	l := NewLimiter(Policy{MaxRequests: 1, Window: time.Minute}, 10*time.Millisecond, nil)
	l.Close()
	l.Close()
}
