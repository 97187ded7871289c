package render

import (
	"testing"
	"time"

	"chroma-chain/internal/game"
	"chroma-chain/internal/game/path"
)

// stubSource serves a fixed snapshot, or nil when empty.
type stubSource struct {
	snap *game.GameSnapshot
}

func (s *stubSource) GetSnapshot() *game.GameSnapshot { return s.snap }

func testOutline() []path.Point {
	return []path.Point{
		{X: 40, Y: 60},
		{X: 120, Y: 60},
		{X: 200, Y: 90},
		{X: 280, Y: 60},
	}
}

func testSnapshot() *game.GameSnapshot {
	return &game.GameSnapshot{
		Sequence:   1,
		TickNumber: 42,
		Marbles: []game.MarbleSnapshot{
			{ID: "m1", X: 50, Y: 60, Color: "#e74c3c", Rim: "#c0392b", State: "settled", Slot: 0, Alpha: 1},
			{ID: "m2", X: 84, Y: 60, Color: "#3498db", Rim: "#2980b9", State: "settled", Slot: 1, Alpha: 1, Ghost: true},
		},
		Shots: []game.ShotSnapshot{
			{ID: "s1", X: 150, Y: 150, Color: "#2ecc71", OwnerID: "ana", Count: 2,
				Trail: [4]game.TrailPointSnapshot{{X: 148, Y: 154, Alpha: 0.6}, {X: 146, Y: 158, Alpha: 0.3}}},
		},
		Bursts:   []game.BurstSnapshot{{X: 90, Y: 70, Radius: 12, Color: "#f1c40f", Alpha: 0.8}},
		Pops:     []game.PopSnapshot{{X: 100, Y: 50, Points: 30, Combo: 2, Alpha: 0.9}},
		Launcher: game.LauncherSnapshot{X: 160, Y: 200, Angle: -1.2, Current: "#e74c3c", Next: "#3498db"},

		ChainLength: 2,
		ActiveCount: 2,
		Score:       700,
		Combo:       2,
		Round:       1,
		Lives:       3,
		Dealt:       10,
		TotalDeal:   60,
	}
}

// TestRendererFrameSize verifies the RGBA frame size matches the configured
// dimensions.
func TestRendererFrameSize(t *testing.T) {
	r := NewRenderer(Config{Width: 320, Height: 240, FPS: 20}, &stubSource{}, testOutline(), nil)

	if got := r.FrameSize(); got != 320*240*4 {
		t.Errorf("expected frame size %d, got %d", 320*240*4, got)
	}
}

// TestRendererDrawsFullScene renders a populated snapshot and checks the
// frame is the right size and not blank.
func TestRendererDrawsFullScene(t *testing.T) {
	source := &stubSource{snap: testSnapshot()}
	leaders := func(n int) []game.LeaderboardEntry {
		return []game.LeaderboardEntry{{CommanderID: "ana", Score: 700, Rank: 1}}
	}
	r := NewRenderer(Config{Width: 320, Height: 240, FPS: 20}, source, testOutline(), leaders)

	frame := r.RenderNext()
	if frame == nil {
		t.Fatal("expected a rendered frame")
	}
	if len(frame) != r.FrameSize() {
		t.Fatalf("expected %d bytes, got %d", r.FrameSize(), len(frame))
	}

	// The background fill alone means no pixel row should be all zero
	blank := true
	for _, b := range frame {
		if b != 0 {
			blank = false
			break
		}
	}
	if blank {
		t.Error("rendered frame is entirely black")
	}
}

// TestRendererNilSnapshot verifies a source with nothing to serve yields no
// frame instead of a panic.
func TestRendererNilSnapshot(t *testing.T) {
	r := NewRenderer(Config{Width: 64, Height: 64, FPS: 20}, &stubSource{}, testOutline(), nil)

	if frame := r.RenderNext(); frame != nil {
		t.Errorf("expected nil frame from an empty source, got %d bytes", len(frame))
	}
}

// TestRendererDoubleBufferAlternates verifies consecutive frames come from
// alternating buffers so a consumer can hold one frame while the next is
// drawn.
func TestRendererDoubleBufferAlternates(t *testing.T) {
	source := &stubSource{snap: testSnapshot()}
	r := NewRenderer(Config{Width: 64, Height: 64, FPS: 20}, source, testOutline(), nil)

	first := r.RenderNext()
	second := r.RenderNext()
	if first == nil || second == nil {
		t.Fatal("expected two frames")
	}
	if &first[0] == &second[0] {
		t.Error("consecutive frames share a buffer")
	}

	third := r.RenderNext()
	if &third[0] != &first[0] {
		t.Error("expected third frame to reuse the first buffer")
	}
}

// TestRendererFrameObserver verifies the timing hook fires once per rendered
// frame and never for a nil snapshot.
func TestRendererFrameObserver(t *testing.T) {
	calls := 0
	cfg := Config{Width: 64, Height: 64, FPS: 20,
		FrameObserver: func(time.Duration) { calls++ }}

	r := NewRenderer(cfg, &stubSource{snap: testSnapshot()}, testOutline(), nil)
	if r.RenderNext() == nil {
		t.Fatal("expected a frame")
	}
	if calls != 1 {
		t.Errorf("expected 1 observation, got %d", calls)
	}

	empty := NewRenderer(cfg, &stubSource{}, testOutline(), nil)
	if empty.RenderNext() != nil {
		t.Fatal("expected nil frame from an empty source")
	}
	if calls != 1 {
		t.Errorf("nil snapshot must not be observed, got %d calls", calls)
	}
}

// TestParseHexColor covers the 6-digit parser and its fallback.
func TestParseHexColor(t *testing.T) {
	c := parseHexColor("#e74c3c")
	if c.R != 0xe7 || c.G != 0x4c || c.B != 0x3c || c.A != 255 {
		t.Errorf("unexpected color %+v", c)
	}

	fallback := parseHexColor("nonsense")
	if fallback.A != 255 {
		t.Errorf("fallback color should be opaque, got %+v", fallback)
	}
}
