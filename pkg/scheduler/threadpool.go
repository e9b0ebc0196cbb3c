// Package scheduler runs terrain generation, lighting, and meshing on
// a small pool of worker goroutines, dispatched by priority, with a
// WorkSet layer to dedupe resubmissions of the same chunk while a
// prior task for it is still queued or running, and an origin tracker
// that notices when the viewer has moved to a new chunk.
//
// Grounded on
// original_source/Engine/src/Engine/Threading/ThreadPool.h and
// Engine/src/Engine/Threads/ThreadPool.cpp (priority queues + condvar
// dispatch loop), generalised to the teacher's own channel-based
// worker idiom (pkg/game/chunk_manager.go's chunkQueue/stopWorker
// channel pair) for the queueing side, and to golang.org/x/sync/semaphore
// for the concurrency gate in place of the original's fixed worker
// threads.
package scheduler

import (
	"context"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
)

var logger = log.New(os.Stderr, "[scheduler] ", log.LstdFlags)

// Priority is one of the three task priorities from spec.md §4.8.
// Lower values are drained first.
type Priority int

const (
	Immediate Priority = iota
	High
	Normal
	priorityCount
)

func (p Priority) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case High:
		return "high"
	case Normal:
		return "normal"
	default:
		return "unknown"
	}
}

// queueCapacity bounds each priority's backlog; a full queue blocks
// the submitter rather than growing unboundedly, since a stalled
// dispatcher indicates a real problem upstream.
const queueCapacity = 256

// Task is a unit of work handed to the pool.
type Task func()

// ThreadPool dispatches queued tasks onto goroutines gated by a
// weighted semaphore, always draining Immediate before High before
// Normal. The semaphore — not a fixed count of persistent worker
// goroutines — is what actually bounds how many tasks run at once, so
// a single slow Immediate task never starves the dispatcher the way a
// fixed worker pool with all workers blocked would.
type ThreadPool struct {
	queues [priorityCount]chan Task
	stop   chan struct{}
	sem    *semaphore.Weighted
	wg     sync.WaitGroup

	dispatchDone chan struct{}
}

// NewThreadPool starts a dispatcher that runs up to maxConcurrent
// tasks at once.
func NewThreadPool(maxConcurrent int) *ThreadPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	tp := &ThreadPool{
		stop:         make(chan struct{}),
		sem:          semaphore.NewWeighted(int64(maxConcurrent)),
		dispatchDone: make(chan struct{}),
	}
	for i := range tp.queues {
		tp.queues[i] = make(chan Task, queueCapacity)
	}
	go tp.dispatchLoop()
	logger.Printf("started dispatcher, max concurrency %d", maxConcurrent)
	return tp
}

// Enqueue queues fn at the given priority, run as soon as a semaphore
// permit is free. It blocks if that priority's queue is momentarily
// full.
func (tp *ThreadPool) Enqueue(priority Priority, fn Task) {
	select {
	case tp.queues[priority] <- fn:
	case <-tp.stop:
		logger.Printf("dropped %s task submitted after shutdown", priority)
	}
}

// QueuedTasks reports the combined backlog across all three
// priorities, for diagnostics (original_source's queuedTasks()).
func (tp *ThreadPool) QueuedTasks() int {
	n := 0
	for _, q := range tp.queues {
		n += len(q)
	}
	return n
}

// Shutdown stops accepting new work, lets running tasks finish, and
// waits for the dispatcher and every in-flight task to return.
func (tp *ThreadPool) Shutdown() {
	close(tp.stop)
	<-tp.dispatchDone
	tp.wg.Wait()
}

func (tp *ThreadPool) dispatchLoop() {
	defer close(tp.dispatchDone)
	ctx := context.Background()
	for {
		// Take a permit before picking a task, so the task chosen is the
		// highest-priority one queued at the moment a slot frees up.
		if err := tp.sem.Acquire(ctx, 1); err != nil {
			logger.Printf("semaphore acquire failed: %v", err)
			return
		}
		task, ok := tp.dequeue()
		if !ok {
			tp.sem.Release(1)
			return
		}
		tp.wg.Add(1)
		go func() {
			defer tp.wg.Done()
			defer tp.sem.Release(1)
			task()
		}()
	}
}

// dequeue picks the highest-priority ready task without blocking; if
// none is ready it blocks on all three queues (and the stop signal) at
// once, so the dispatcher idles exactly as spec.md §5 describes ("the
// thread-pool condition variable when idle").
func (tp *ThreadPool) dequeue() (Task, bool) {
	for p := Priority(0); p < priorityCount; p++ {
		select {
		case t := <-tp.queues[p]:
			return t, true
		default:
		}
	}

	select {
	case t := <-tp.queues[Immediate]:
		return t, true
	case t := <-tp.queues[High]:
		return t, true
	case t := <-tp.queues[Normal]:
		return t, true
	case <-tp.stop:
		return nil, false
	}
}

// result pairs a task's return value with its error, for Future.
type result[T any] struct {
	value T
	err   error
}

// Future is a single-assignment handle to a task's eventual result.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.mu.Lock()
	f.value = result[T]{value: v, err: err}
	f.mu.Unlock()
	close(f.done)
}

// Ready reports whether the task has finished, without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value.value, f.value.err
}

// Submit runs fn on the pool at the given priority and returns a
// Future for its result. A free function rather than a method because
// Go methods cannot carry their own type parameters.
func Submit[T any](tp *ThreadPool, priority Priority, fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	tp.Enqueue(priority, func() {
		v, err := fn()
		future.complete(v, err)
	})
	return future
}
