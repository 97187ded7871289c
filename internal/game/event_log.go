package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024 // ring capacity; oldest entries roll off when full
	MaxEventsPerSec    = 10000
	MaxEventsPerActor  = 100 // per commander, so one spammer cannot drown the log
	BatchFlushSize     = 64
	BatchFlushInterval = 100 * time.Millisecond
	actorSweepEvery    = 5 * time.Minute
)

// EventLog records game events to an append-only JSONL file through a
// bounded ring. The tick loop is the only producer and one goroutine is the
// only consumer, so ring access is atomics-only; a full ring rolls the
// oldest events off rather than stalling the tick.
type EventLog struct {
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic, producer
	readHead  uint64 // atomic, consumer

	globalLimiter *rate.Limiter
	actorMu       sync.Mutex
	actorLimiters map[string]*actorLimiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates an event log. Nothing is recorded until Start.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		actorLimiters: make(map[string]*actorLimiter),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file and launches the writer goroutine. An empty
// filePath keeps the log counting but writes nothing.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file. Safe to call more than
// once.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit records an event. Returns false when the log is stopped or the event
// was shed by a rate limit or ring overflow.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}
	if event.ActorID != "" && !el.allowActor(event.ActorID) {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	head := atomic.AddUint64(&el.writeHead, 1)
	if head-atomic.LoadUint64(&el.readHead) >= EventBufferSize {
		// Roll the oldest event off the ring
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	el.buffer[head%EventBufferSize] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and records an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, actorID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, actorID, payload))
}

// allowActor charges the event against the per-commander budget.
func (el *EventLog) allowActor(actorID string) bool {
	el.actorMu.Lock()
	a, ok := el.actorLimiters[actorID]
	if !ok {
		a = &actorLimiter{limiter: rate.NewLimiter(MaxEventsPerActor, MaxEventsPerActor/10)}
		el.actorLimiters[actorID] = a
	}
	a.lastUsed = time.Now()
	el.actorMu.Unlock()

	return a.limiter.Allow()
}

// writerLoop drains the ring in batches on a flush cadence and sweeps idle
// actor limiters as it goes.
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	flush := time.NewTicker(BatchFlushInterval)
	defer flush.Stop()
	sweep := time.NewTicker(actorSweepEvery)
	defer sweep.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			el.flush(el.collect(batch[:0]))
			return
		case <-flush.C:
			batch = el.collect(batch[:0])
			el.flush(batch)
		case <-sweep.C:
			el.sweepActors()
		}
	}
}

func (el *EventLog) sweepActors() {
	cutoff := time.Now().Add(-actorSweepEvery)

	el.actorMu.Lock()
	defer el.actorMu.Unlock()
	for id, a := range el.actorLimiters {
		if a.lastUsed.Before(cutoff) {
			delete(el.actorLimiters, id)
		}
	}
}

// collect copies up to one batch worth of pending events out of the ring.
func (el *EventLog) collect(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[i%EventBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}
	return batch
}

// flush appends a batch as newline-delimited JSON.
func (el *EventLog) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}

	el.fileMu.Lock()
	defer el.fileMu.Unlock()
	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// GetStats reports counters for /api/events/stats.
func (el *EventLog) GetStats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns how many events were shed.
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns how many events were recorded.
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
