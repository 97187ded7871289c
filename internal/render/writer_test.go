package render

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// makeFrame builds a frame of the given size with a marker byte so reads can
// be matched to writes.
func makeFrame(size int, marker byte) []byte {
	frame := make([]byte, size)
	frame[0] = marker
	return frame
}

// TestRingBufferFIFO verifies frames come back in write order.
func TestRingBufferFIFO(t *testing.T) {
	rb := NewFrameRingBuffer(64)

	for i := byte(1); i <= 5; i++ {
		if !rb.TryWrite(makeFrame(64, i)) {
			t.Fatalf("write %d rejected with free space", i)
		}
	}

	if rb.Available() != 5 {
		t.Errorf("expected 5 available, got %d", rb.Available())
	}

	for i := byte(1); i <= 5; i++ {
		frame := rb.TryRead()
		if frame == nil {
			t.Fatalf("read %d returned nil", i)
		}
		if frame[0] != i {
			t.Errorf("read %d: expected marker %d, got %d", i, i, frame[0])
		}
	}

	if rb.TryRead() != nil {
		t.Error("empty buffer should read nil")
	}
}

// TestRingBufferRejectsWrongSize verifies only exact frame sizes are
// accepted.
func TestRingBufferRejectsWrongSize(t *testing.T) {
	rb := NewFrameRingBuffer(64)

	if rb.TryWrite(make([]byte, 32)) {
		t.Error("short frame should be rejected")
	}
	if rb.TryWrite(make([]byte, 128)) {
		t.Error("long frame should be rejected")
	}
}

// TestRingBufferDropsWhenFull verifies writes past capacity fail and count
// as drops. One slot stays open so the writer never catches the reader.
func TestRingBufferDropsWhenFull(t *testing.T) {
	rb := NewFrameRingBuffer(16)

	written := 0
	for i := 0; i < BufferSize+4; i++ {
		if rb.TryWrite(makeFrame(16, byte(i))) {
			written++
		}
	}

	if written != BufferSize-1 {
		t.Errorf("expected %d accepted frames, got %d", BufferSize-1, written)
	}

	_, dropped, _ := rb.GetStats()
	if dropped != 5 {
		t.Errorf("expected 5 drops, got %d", dropped)
	}
}

// TestRingBufferWrapAround interleaves writes and reads well past the buffer
// size to exercise index wrapping.
func TestRingBufferWrapAround(t *testing.T) {
	rb := NewFrameRingBuffer(16)

	for i := 0; i < BufferSize*3; i++ {
		marker := byte(i % 251)
		if !rb.TryWrite(makeFrame(16, marker)) {
			t.Fatalf("write %d rejected on a drained buffer", i)
		}
		frame := rb.TryRead()
		if frame == nil || frame[0] != marker {
			t.Fatalf("read %d: expected marker %d, got %v", i, marker, frame)
		}
	}

	written, dropped, read := rb.GetStats()
	if written != uint64(BufferSize*3) || read != written || dropped != 0 {
		t.Errorf("unexpected stats: written=%d dropped=%d read=%d", written, dropped, read)
	}
}

// TestPNGSequenceWriterWritesFrames verifies frames end up as numbered PNG
// files, including frames still buffered at Stop.
func TestPNGSequenceWriterWritesFrames(t *testing.T) {
	dir := t.TempDir()
	w := NewPNGSequenceWriter(dir, 4, 4)
	w.Start(100)

	frameSize := 4 * 4 * 4
	for i := byte(0); i < 3; i++ {
		if !w.TryWrite(makeFrame(frameSize, i)) {
			t.Fatalf("frame %d rejected", i)
		}
	}

	// Stop drains the ring buffer before returning
	w.Stop()

	for i := 1; i <= 3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}

	stats := w.GetStats()
	if stats["framesEncoded"].(uint64) != 3 {
		t.Errorf("expected 3 encoded frames, got %v", stats["framesEncoded"])
	}
	if stats["encodeErrors"].(uint64) != 0 {
		t.Errorf("expected no encode errors, got %v", stats["encodeErrors"])
	}
}

// TestPNGSequenceWriterStartStopIdempotent verifies repeated Start and Stop
// calls are safe.
func TestPNGSequenceWriterStartStopIdempotent(t *testing.T) {
	w := NewPNGSequenceWriter(t.TempDir(), 4, 4)

	w.Start(50)
	w.Start(50) // no-op
	time.Sleep(20 * time.Millisecond)
	w.Stop()
	w.Stop() // no-op
}

// TestNoOpSink verifies the headless sink accepts and counts everything.
func TestNoOpSink(t *testing.T) {
	sink := NewNoOpSink()
	sink.Start(20)

	for i := 0; i < 10; i++ {
		if !sink.TryWrite(make([]byte, 8)) {
			t.Fatal("NoOpSink should accept every frame")
		}
	}
	sink.Stop()

	if got := sink.GetStats()["framesDiscarded"].(uint64); got != 10 {
		t.Errorf("expected 10 discarded frames, got %d", got)
	}
}
