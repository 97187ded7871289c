package render

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// BufferSize is the number of frame slots in the ring buffer.
// At 20fps: 16 frames = 800ms of slack, enough to ride out a slow
// PNG encode or a disk hiccup without stalling the render loop.
const BufferSize = 16

const (
	// BackpressureWarningThreshold - warn if encode time exceeds this multiple of frame interval
	BackpressureWarningThreshold = 2.0
	// BackpressureLogInterval - minimum time between backpressure warnings
	BackpressureLogInterval = 5 * time.Second
)

// FrameSink consumes rendered RGBA frames. TryWrite must never block:
// a full sink drops the frame and the render loop keeps its pace.
type FrameSink interface {
	TryWrite(frame []byte) bool
	Start(fps int)
	Stop()
	GetStats() map[string]interface{}
}

// FrameRingBuffer provides lock-free frame buffering between the render
// loop (producer) and the sink goroutine (consumer). If the buffer is
// full, new frames are dropped rather than blocking the render loop.
type FrameRingBuffer struct {
	frames    [BufferSize][]byte
	readIdx   uint32 // atomic - consumer index
	writeIdx  uint32 // atomic - producer index
	frameSize int

	// Stats
	framesWritten uint64
	framesDropped uint64
	framesRead    uint64
}

// NewFrameRingBuffer creates a ring buffer with pre-allocated frames.
func NewFrameRingBuffer(frameSize int) *FrameRingBuffer {
	rb := &FrameRingBuffer{
		frameSize: frameSize,
	}

	for i := 0; i < BufferSize; i++ {
		rb.frames[i] = make([]byte, frameSize)
	}

	return rb
}

// TryWrite attempts to write a frame to the buffer.
// Returns true if successful, false if buffer is full (frame dropped).
// Lock-free and safe to call from the render goroutine.
func (rb *FrameRingBuffer) TryWrite(frame []byte) bool {
	if len(frame) != rb.frameSize {
		return false
	}

	currentWrite := atomic.LoadUint32(&rb.writeIdx)
	nextWrite := (currentWrite + 1) % BufferSize

	// Check if buffer is full (would catch up to reader)
	if nextWrite == atomic.LoadUint32(&rb.readIdx) {
		atomic.AddUint64(&rb.framesDropped, 1)
		return false
	}

	copy(rb.frames[currentWrite], frame)

	atomic.StoreUint32(&rb.writeIdx, nextWrite)
	atomic.AddUint64(&rb.framesWritten, 1)

	return true
}

// TryRead attempts to read a frame from the buffer.
// Returns the frame data if available, nil if buffer is empty.
// Lock-free and safe to call from the sink goroutine.
func (rb *FrameRingBuffer) TryRead() []byte {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if readIdx == writeIdx {
		return nil
	}

	frame := rb.frames[readIdx]

	nextRead := (readIdx + 1) % BufferSize
	atomic.StoreUint32(&rb.readIdx, nextRead)
	atomic.AddUint64(&rb.framesRead, 1)

	return frame
}

// Available returns the number of frames available to read.
func (rb *FrameRingBuffer) Available() int {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if writeIdx >= readIdx {
		return int(writeIdx - readIdx)
	}
	return int(BufferSize - readIdx + writeIdx)
}

// GetStats returns buffer statistics.
func (rb *FrameRingBuffer) GetStats() (written, dropped, read uint64) {
	return atomic.LoadUint64(&rb.framesWritten),
		atomic.LoadUint64(&rb.framesDropped),
		atomic.LoadUint64(&rb.framesRead)
}

// PNGSequenceWriter drains the ring buffer and writes each frame as a
// numbered PNG into OutputDir. Encoding runs on its own goroutine so the
// render loop never waits on disk.
type PNGSequenceWriter struct {
	ringBuffer *FrameRingBuffer
	outputDir  string
	width      int
	height     int

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  int32 // atomic

	// Stats
	framesEncoded  uint64
	encodeErrors   uint64
	frameIndex     uint64
	avgEncodeNs    int64
	maxEncodeNs    int64
	backpressure   int64
	lastWarnLogged time.Time
	mu             sync.Mutex // protects lastWarnLogged
}

// NewPNGSequenceWriter creates a writer targeting outputDir. The directory
// is created on Start.
func NewPNGSequenceWriter(outputDir string, width, height int) *PNGSequenceWriter {
	return &PNGSequenceWriter{
		ringBuffer: NewFrameRingBuffer(width * height * 4),
		outputDir:  outputDir,
		width:      width,
		height:     height,
		stopChan:   make(chan struct{}),
	}
}

// TryWrite hands a frame to the encode goroutine. Non-blocking.
func (w *PNGSequenceWriter) TryWrite(frame []byte) bool {
	return w.ringBuffer.TryWrite(frame)
}

// Start begins the encode goroutine. It pulls frames from the ring buffer
// and encodes them at a steady rate.
func (w *PNGSequenceWriter) Start(fps int) {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return // Already running
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		log.Printf("❌ Failed to create output dir %s: %v", w.outputDir, err)
	}

	w.stopChan = make(chan struct{})
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer atomic.StoreInt32(&w.running, 0)

		frameInterval := time.Second / time.Duration(fps)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		log.Printf("📡 PNGSequenceWriter started at %d FPS → %s", fps, w.outputDir)

		consecutiveEmpty := 0

		for {
			select {
			case <-w.stopChan:
				// Drain whatever is still buffered before exiting
				for frame := w.ringBuffer.TryRead(); frame != nil; frame = w.ringBuffer.TryRead() {
					w.encodeFrame(frame, frameInterval)
				}
				log.Println("📡 PNGSequenceWriter stopped")
				return
			case <-ticker.C:
				frame := w.ringBuffer.TryRead()
				if frame == nil {
					consecutiveEmpty++
					if consecutiveEmpty == fps { // ~1 second of starvation
						log.Println("⚠️ PNGSequenceWriter: buffer starving - render loop may be too slow")
					}
					continue
				}
				consecutiveEmpty = 0

				w.encodeFrame(frame, frameInterval)
			}
		}
	}()
}

func (w *PNGSequenceWriter) encodeFrame(frame []byte, frameInterval time.Duration) {
	idx := atomic.AddUint64(&w.frameIndex, 1)
	name := filepath.Join(w.outputDir, fmt.Sprintf("frame_%06d.png", idx))

	img := &image.RGBA{
		Pix:    frame,
		Stride: w.width * 4,
		Rect:   image.Rect(0, 0, w.width, w.height),
	}

	startTime := time.Now()
	err := writePNG(name, img)
	encodeTime := time.Since(startTime)

	if err != nil {
		atomic.AddUint64(&w.encodeErrors, 1)
		log.Printf("❌ PNGSequenceWriter encode error: %v", err)
		return
	}

	atomic.AddUint64(&w.framesEncoded, 1)

	// Exponential moving average of encode time
	avgNs := atomic.LoadInt64(&w.avgEncodeNs)
	newAvg := (avgNs*9 + encodeTime.Nanoseconds()) / 10
	atomic.StoreInt64(&w.avgEncodeNs, newAvg)

	if encodeTime.Nanoseconds() > atomic.LoadInt64(&w.maxEncodeNs) {
		atomic.StoreInt64(&w.maxEncodeNs, encodeTime.Nanoseconds())
	}

	// Encoding slower than the frame interval means the buffer will fill
	if float64(encodeTime) >= float64(frameInterval)*BackpressureWarningThreshold {
		atomic.AddInt64(&w.backpressure, 1)

		w.mu.Lock()
		shouldLog := time.Since(w.lastWarnLogged) > BackpressureLogInterval
		if shouldLog {
			w.lastWarnLogged = time.Now()
		}
		w.mu.Unlock()

		if shouldLog {
			log.Printf("⚠️ Backpressure detected: PNG encode took %.0fms (target: %.1fms)",
				encodeTime.Seconds()*1000, frameInterval.Seconds()*1000)
		}
	}
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Stop stops the writer, draining buffered frames first.
func (w *PNGSequenceWriter) Stop() {
	if !atomic.CompareAndSwapInt32(&w.running, 1, 0) {
		return // Not running
	}

	close(w.stopChan)
	w.wg.Wait()
}

// GetStats returns writer statistics.
func (w *PNGSequenceWriter) GetStats() map[string]interface{} {
	bufWritten, bufDropped, bufRead := w.ringBuffer.GetStats()

	return map[string]interface{}{
		"framesEncoded":      atomic.LoadUint64(&w.framesEncoded),
		"encodeErrors":       atomic.LoadUint64(&w.encodeErrors),
		"avgEncodeTimeMs":    float64(atomic.LoadInt64(&w.avgEncodeNs)) / 1e6,
		"maxEncodeTimeMs":    float64(atomic.LoadInt64(&w.maxEncodeNs)) / 1e6,
		"backpressureEvents": atomic.LoadInt64(&w.backpressure),
		"bufferAvailable":    w.ringBuffer.Available(),
		"bufferWritten":      bufWritten,
		"bufferDropped":      bufDropped,
		"bufferRead":         bufRead,
	}
}

// NoOpSink discards frames. Used when the server runs headless and only
// the websocket/API consumers need game state.
type NoOpSink struct {
	frames uint64
}

// NewNoOpSink creates a sink that counts and discards frames.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

func (s *NoOpSink) TryWrite(frame []byte) bool {
	atomic.AddUint64(&s.frames, 1)
	return true
}

func (s *NoOpSink) Start(fps int) {
	log.Printf("🔇 NoOpSink active - frames are discarded (fps=%d)", fps)
}

func (s *NoOpSink) Stop() {}

func (s *NoOpSink) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"framesDiscarded": atomic.LoadUint64(&s.frames),
	}
}
