package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsTaskAndCompletesFuture(t *testing.T) {
	tp := NewThreadPool(1)
	defer tp.Shutdown()

	future := Submit(tp, Normal, func() (int, error) { return 42, nil })
	v, err := future.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPropagatesError(t *testing.T) {
	tp := NewThreadPool(1)
	defer tp.Shutdown()

	sentinel := assert.AnError
	future := Submit(tp, Normal, func() (int, error) { return 0, sentinel })
	_, err := future.Wait()
	assert.Equal(t, sentinel, err)
}

func TestFutureReadyReflectsCompletion(t *testing.T) {
	tp := NewThreadPool(1)
	defer tp.Shutdown()

	release := make(chan struct{})
	future := Submit(tp, Normal, func() (int, error) {
		<-release
		return 1, nil
	})
	assert.False(t, future.Ready())
	close(release)
	_, _ = future.Wait()
	assert.True(t, future.Ready())
}

// TestDequeueDrainsImmediateBeforeLowerPriorities pins a single worker
// with a blocking task, queues one task at each priority while the
// worker is busy, then confirms Immediate runs before High before
// Normal once the worker frees up.
func TestDequeueDrainsImmediateBeforeLowerPriorities(t *testing.T) {
	tp := NewThreadPool(1)
	defer tp.Shutdown()

	block := make(chan struct{})
	blocker := Submit(tp, Normal, func() (int, error) {
		<-block
		return 0, nil
	})

	var mu sync.Mutex
	var order []Priority
	record := func(p Priority) func() (int, error) {
		return func() (int, error) {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return 0, nil
		}
	}

	normal := Submit(tp, Normal, record(Normal))
	high := Submit(tp, High, record(High))
	immediate := Submit(tp, Immediate, record(Immediate))

	close(block)
	_, _ = blocker.Wait()
	_, _ = normal.Wait()
	_, _ = high.Wait()
	_, _ = immediate.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, []Priority{Immediate, High, Normal}, order)
}

func TestShutdownStopsAcceptingNewWork(t *testing.T) {
	tp := NewThreadPool(2)
	tp.Shutdown()

	done := make(chan struct{})
	go func() {
		tp.Enqueue(Normal, func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue after Shutdown blocked instead of observing stop")
	}
}

func TestPriorityStringer(t *testing.T) {
	assert.Equal(t, "immediate", Immediate.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "normal", Normal.String())
}
