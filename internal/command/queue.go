package command

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// QueueConfig sizes the command queue.
type QueueConfig struct {
	BufferSize int // buffered commands before Enqueue starts dropping
	Workers    int // worker goroutines draining the queue
}

// DefaultQueueConfig buffers roughly ten seconds of peak command traffic.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{BufferSize: 256, Workers: 4}
}

// CommandQueue sits between the transports (HTTP, WebSocket) and the engine.
// Enqueue never blocks: a full queue sheds the command instead of stalling a
// request handler, and a worker pool applies the surviving commands.
type CommandQueue struct {
	commands chan Command
	handler  *Handler
	workers  int
	wg       sync.WaitGroup
	running  atomic.Bool
	stopChan chan struct{}

	enqueued  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	avgWaitNs atomic.Int64 // exponential moving average
}

// QueueStats is the queue section of /api/stats.
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}

// NewCommandQueue creates a queue feeding the given handler. Zero config
// fields fall back to defaults.
func NewCommandQueue(handler *Handler, config QueueConfig) *CommandQueue {
	def := DefaultQueueConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}

	return &CommandQueue{
		commands: make(chan Command, config.BufferSize),
		handler:  handler,
		workers:  config.Workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker pool. Repeat calls are no-ops.
func (q *CommandQueue) Start() {
	if q.running.Swap(true) {
		return
	}

	log.Printf("🚀 CommandQueue starting with %d workers, buffer size %d", q.workers, cap(q.commands))
	q.wg.Add(q.workers)
	for i := 0; i < q.workers; i++ {
		go q.runWorker()
	}
}

// Stop shuts the workers down. Repeat calls are no-ops.
func (q *CommandQueue) Stop() {
	if !q.running.Swap(false) {
		return
	}

	close(q.stopChan)
	q.wg.Wait()
	log.Printf("📊 CommandQueue stopped - enqueued: %d, processed: %d, dropped: %d",
		q.enqueued.Load(), q.processed.Load(), q.dropped.Load())
}

// Enqueue offers a command to the queue without blocking. False means the
// queue was full and the command was shed.
func (q *CommandQueue) Enqueue(cmd Command) bool {
	cmd.ReceivedAt = time.Now()

	select {
	case q.commands <- cmd:
		q.enqueued.Add(1)
		return true
	default:
	}

	// Log the first drop of every hundred, not every drop
	if n := q.dropped.Add(1); n%100 == 1 {
		log.Printf("⚠️ CommandQueue full, dropped command from %s (total dropped: %d)", cmd.Owner, n)
	}
	return false
}

func (q *CommandQueue) runWorker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case cmd := <-q.commands:
			q.observeWait(time.Since(cmd.ReceivedAt))
			q.handler.ProcessCommand(cmd)
			q.processed.Add(1)
		}
	}
}

// observeWait folds a queue wait into the moving average and flags stalls.
func (q *CommandQueue) observeWait(wait time.Duration) {
	// EMA with alpha 0.1, smooth over ~10 samples
	prev := q.avgWaitNs.Load()
	q.avgWaitNs.Store((prev*9 + wait.Nanoseconds()) / 10)

	if wait > 100*time.Millisecond {
		log.Printf("⚠️ Command waited %.1fms in queue", float64(wait.Microseconds())/1000)
	}
}

// Stats returns a point-in-time view of the queue counters.
func (q *CommandQueue) Stats() QueueStats {
	pending := len(q.commands)
	size := cap(q.commands)

	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Processed:      q.processed.Load(),
		Dropped:        q.dropped.Load(),
		Pending:        uint64(pending),
		BufferSize:     uint64(size),
		AvgWaitTimeMs:  float64(q.avgWaitNs.Load()) / 1e6,
		BufferUsagePct: float64(pending) / float64(size) * 100,
	}
}
