package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

const queueSize = 1000 // pending tasks per worker

// WorkerPool runs tasks on a fixed set of workers. Tasks submitted with the
// same key always land on the same worker, so they run one at a time and in
// submission order; different keys run concurrently.
type WorkerPool struct {
	queues    []chan Task
	wg        sync.WaitGroup
	isClosing atomic.Bool // thread-safe value
	next      atomic.Uint64
	log       zerolog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

func NewWorkerPool(size int, log zerolog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{
		queues: make([]chan Task, size),
		log:    log.With().Str("component", "worker").Logger(),
	}
	wp.idle = sync.NewCond(&wp.mu)

	// Start the workers
	for i := range wp.queues {
		wp.queues[i] = make(chan Task, queueSize)
		wp.wg.Add(1) // add to WaitGroup
		go wp.startWorker(wp.queues[i])
	}

	return wp
}

func (wp *WorkerPool) startWorker(queue chan Task) {
	defer wp.wg.Done() // signal when worker finished
	for task := range queue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task Task) {
	defer wp.done()
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(context.Background()); err != nil {
		wp.log.Error().Err(err).Msg("worker task failed")
	}
}

// Submit queues t on the next worker in turn. The task is dropped when the
// worker queue is full or the pool is shutting down.
func (wp *WorkerPool) Submit(t Task) bool {
	if wp.isClosing.Load() {
		wp.log.Warn().Msg("task submitted during shutdown, dropping")
		return false
	}
	q := wp.queues[wp.next.Add(1)%uint64(len(wp.queues))]
	wp.add()
	select {
	case q <- t: // send task to worker pool
		return true
	default:
		wp.done()
		wp.log.Warn().Msg("task queue full, dropping task")
		return false
	}
}

// SubmitKeyed queues t on the worker owning key, blocking while that queue
// is full.
func (wp *WorkerPool) SubmitKeyed(key string, t Task) bool {
	if wp.isClosing.Load() {
		wp.log.Warn().Str("key", key).Msg("task submitted during shutdown, dropping")
		return false
	}
	wp.add()
	wp.queues[wp.shard(key)] <- t
	return true
}

func (wp *WorkerPool) shard(key string) uint64 {
	return xxhash.Sum64String(key) % uint64(len(wp.queues))
}

// Wait blocks until every submitted task has finished.
func (wp *WorkerPool) Wait() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	for wp.pending > 0 {
		wp.idle.Wait()
	}
}

// Pending returns the number of tasks queued or running.
func (wp *WorkerPool) Pending() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.pending
}

func (wp *WorkerPool) add() {
	wp.mu.Lock()
	wp.pending++
	wp.mu.Unlock()
}

func (wp *WorkerPool) done() {
	wp.mu.Lock()
	wp.pending--
	if wp.pending == 0 {
		wp.idle.Broadcast()
	}
	wp.mu.Unlock()
}

// Shutdown closes the queues and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	if wp.isClosing.Swap(true) {
		return
	}
	for _, q := range wp.queues {
		close(q) // Stop accepting new tasks
	}
	wp.wg.Wait() // Wait for all active workers to finish tasks
}
