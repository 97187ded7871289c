// Package render draws game snapshots into RGBA frames for the offline
// preview tool. It never touches live game state: everything it needs
// arrives through immutable snapshots.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chroma-chain/internal/game"
	"chroma-chain/internal/game/path"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Config holds renderer settings
type Config struct {
	Width  int
	Height int
	FPS    int

	// FrameObserver, when set, receives the wall time spent rendering each
	// frame. Used to feed the frame-duration metric.
	FrameObserver func(time.Duration)
}

// DoubleBuffer provides non-blocking frame buffering
type DoubleBuffer struct {
	buffers     [2][]byte
	contexts    [2]*gg.Context
	activeIndex int
	mu          sync.Mutex
}

// LeaderboardProvider supplies the HUD leaderboard rows. Optional; a nil
// provider leaves the panel off.
type LeaderboardProvider func(n int) []game.LeaderboardEntry

// Renderer draws snapshots into pre-allocated RGBA buffers
type Renderer struct {
	config Config
	source SnapshotSource

	// Track ribbon waypoints, fetched once (stable until round teardown)
	trackOutline []path.Point

	leaders LeaderboardProvider

	// Double buffering: render into the back buffer while the writer
	// consumes the front one
	doubleBuffer *DoubleBuffer

	// Cached fonts (loaded once, not per-frame)
	fontSmall   font.Face
	fontMedium  font.Face
	fontLarge   font.Face
	fontsLoaded bool
}

// NewRenderer creates a renderer with pre-allocated buffers and cached fonts
func NewRenderer(config Config, source SnapshotSource, trackOutline []path.Point, leaders LeaderboardProvider) *Renderer {
	if config.Width == 0 {
		config.Width = 1280
	}
	if config.Height == 0 {
		config.Height = 720
	}
	if config.FPS == 0 {
		config.FPS = 20
	}

	frameSize := config.Width * config.Height * 4

	r := &Renderer{
		config:       config,
		source:       source,
		trackOutline: trackOutline,
		leaders:      leaders,
		doubleBuffer: &DoubleBuffer{
			buffers: [2][]byte{
				make([]byte, frameSize),
				make([]byte, frameSize),
			},
			contexts: [2]*gg.Context{
				gg.NewContext(config.Width, config.Height),
				gg.NewContext(config.Width, config.Height),
			},
		},
	}

	// Load fonts once at startup (not per-frame)
	r.loadFonts()

	return r
}

// FrameSize returns the RGBA byte size of one frame
func (r *Renderer) FrameSize() int {
	return r.config.Width * r.config.Height * 4
}

// loadFonts loads fonts once at startup to avoid per-frame file I/O
func (r *Renderer) loadFonts() {
	fontPath := getFontPath()
	if fontPath == "" {
		log.Println("⚠️ No font found, text rendering may be affected")
		return
	}

	fontData, err := os.ReadFile(fontPath)
	if err != nil {
		log.Printf("⚠️ Failed to read font file: %v", err)
		return
	}

	parsedFont, err := opentype.Parse(fontData)
	if err != nil {
		log.Printf("⚠️ Failed to parse font: %v", err)
		return
	}

	// Create font faces at different sizes
	r.fontSmall, err = opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    16,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create small font face: %v", err)
		return
	}

	r.fontMedium, err = opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    24,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create medium font face: %v", err)
		return
	}

	r.fontLarge, err = opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    48,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create large font face: %v", err)
		return
	}

	r.fontsLoaded = true
	log.Printf("✅ Fonts loaded and cached from: %s", fontPath)
}

// RenderNext pulls the next snapshot from the source and renders it into
// the back buffer, then swaps. Returns the freshly rendered frame; the
// slice stays valid until the buffer is reused two frames later.
func (r *Renderer) RenderNext() []byte {
	snap := r.source.GetSnapshot()
	if snap == nil {
		return nil
	}

	start := time.Now()

	r.doubleBuffer.mu.Lock()
	backIndex := 1 - r.doubleBuffer.activeIndex
	backBuffer := r.doubleBuffer.buffers[backIndex]
	backContext := r.doubleBuffer.contexts[backIndex]
	r.doubleBuffer.mu.Unlock()

	r.renderFrameFromSnapshot(snap, backBuffer, backContext)

	if r.config.FrameObserver != nil {
		r.config.FrameObserver(time.Since(start))
	}

	r.doubleBuffer.mu.Lock()
	r.doubleBuffer.activeIndex = backIndex
	r.doubleBuffer.mu.Unlock()

	return backBuffer
}

// renderFrameFromSnapshot renders a frame using the lock-free game snapshot
func (r *Renderer) renderFrameFromSnapshot(snap *game.GameSnapshot, buffer []byte, dc *gg.Context) {
	// Background
	dc.SetColor(color.RGBA{250, 250, 255, 255}) // Soft white
	dc.DrawRectangle(0, 0, float64(r.config.Width), float64(r.config.Height))
	dc.Fill()

	// World layer shakes as a whole; HUD stays steady
	dc.Push()
	dc.Translate(snap.Shake.OffsetX, snap.Shake.OffsetY)

	r.drawTrack(dc)
	r.drawMarbles(dc, snap.Marbles)
	r.drawShots(dc, snap.Shots)
	r.drawBursts(dc, snap.Bursts)
	r.drawLauncher(dc, snap.Launcher)
	r.drawPops(dc, snap.Pops)

	dc.Pop()

	r.drawHUD(dc, snap)

	// Copy gg context to output buffer (fast direct copy)
	imageToBufferFast(dc.Image(), buffer)
}

// drawTrack draws the course ribbon through the waypoints, with the entry
// arrow at the head and the drain ring at the tail
func (r *Renderer) drawTrack(dc *gg.Context) {
	wps := r.trackOutline
	if len(wps) < 2 {
		return
	}

	dc.MoveTo(wps[0].X, wps[0].Y)
	for _, p := range wps[1:] {
		dc.LineTo(p.X, p.Y)
	}

	// Outer groove
	dc.SetColor(color.RGBA{30, 30, 40, 50})
	dc.SetLineWidth(game.MarbleRadius*2 + 10)
	dc.StrokePreserve()

	// Inner bed
	dc.SetColor(color.RGBA{225, 228, 238, 255})
	dc.SetLineWidth(game.MarbleRadius * 2)
	dc.Stroke()

	// Drain ring at the track end
	end := wps[len(wps)-1]
	dc.SetColor(color.RGBA{40, 20, 60, 180})
	dc.SetLineWidth(4)
	dc.DrawCircle(end.X, end.Y, game.MarbleRadius+6)
	dc.Stroke()
	dc.SetColor(color.RGBA{40, 20, 60, 60})
	dc.DrawCircle(end.X, end.Y, game.MarbleRadius)
	dc.Fill()
}

// drawMarbles draws the chain in slot order. Ghosts render as hollow
// outlines so a placeholder round reads visibly different.
func (r *Renderer) drawMarbles(dc *gg.Context, marbles []game.MarbleSnapshot) {
	for _, m := range marbles {
		if m.Ghost {
			c := color.RGBA{120, 125, 140, uint8(90 * m.Alpha)}
			dc.SetColor(c)
			dc.SetLineWidth(2)
			dc.DrawCircle(m.X, m.Y, game.MarbleRadius-2)
			dc.Stroke()
			continue
		}

		// Shadow
		dc.SetColor(color.RGBA{0, 0, 0, uint8(60 * m.Alpha)})
		dc.DrawCircle(m.X, m.Y+3, game.MarbleRadius)
		dc.Fill()

		// Body
		body := parseHexColor(m.Color)
		body.A = uint8(255 * m.Alpha)
		dc.SetColor(body)
		dc.DrawCircle(m.X, m.Y, game.MarbleRadius)
		dc.Fill()

		// Rim
		rim := parseHexColor(m.Rim)
		rim.A = uint8(255 * m.Alpha)
		dc.SetColor(rim)
		dc.SetLineWidth(2.5)
		dc.DrawCircle(m.X, m.Y, game.MarbleRadius)
		dc.Stroke()

		// Specular highlight
		dc.SetColor(color.RGBA{255, 255, 255, uint8(110 * m.Alpha)})
		dc.DrawCircle(m.X-game.MarbleRadius*0.3, m.Y-game.MarbleRadius*0.35, game.MarbleRadius*0.3)
		dc.Fill()
	}
}

// drawShots draws in-flight shots with their motion trails
func (r *Renderer) drawShots(dc *gg.Context, shots []game.ShotSnapshot) {
	for _, s := range shots {
		c := parseHexColor(s.Color)

		// Trail behind the shot (motion blur effect)
		for i := 0; i < s.Count; i++ {
			pt := s.Trail[i]
			c.A = uint8(pt.Alpha * 120)
			dc.SetColor(c)
			dc.DrawCircle(pt.X, pt.Y, game.MarbleRadius*(0.4+0.12*float64(i)))
			dc.Fill()
		}

		// The shot marble itself
		c.A = 255
		dc.SetColor(c)
		dc.DrawCircle(s.X, s.Y, game.MarbleRadius)
		dc.Fill()

		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.DrawCircle(s.X, s.Y, game.MarbleRadius)
		dc.Stroke()
	}
}

// drawBursts draws vanish bursts and combo flares as expanding rings
func (r *Renderer) drawBursts(dc *gg.Context, bursts []game.BurstSnapshot) {
	for _, b := range bursts {
		c := parseHexColor(b.Color)
		c.A = uint8(b.Alpha * 200)
		dc.SetColor(c)
		dc.SetLineWidth(3)
		dc.DrawCircle(b.X, b.Y, b.Radius)
		dc.Stroke()

		// Inner flash
		c.A = uint8(b.Alpha * 70)
		dc.SetColor(c)
		dc.DrawCircle(b.X, b.Y, b.Radius*0.6)
		dc.Fill()
	}
}

// drawPops draws floating score markers
func (r *Renderer) drawPops(dc *gg.Context, pops []game.PopSnapshot) {
	if r.fontsLoaded && r.fontMedium != nil {
		dc.SetFontFace(r.fontMedium)
	}
	for _, p := range pops {
		text := fmt.Sprintf("+%d", p.Points)
		if p.Combo > 1 {
			text = fmt.Sprintf("+%d x%d", p.Points, p.Combo)
		}

		c := color.RGBA{255, 120, 0, uint8(p.Alpha * 255)} // Vibrant orange
		dc.SetColor(c)
		dc.DrawStringAnchored(text, p.X, p.Y, 0.5, 0.5)
	}
}

// drawLauncher draws the shooter base, barrel and the loaded colors
func (r *Renderer) drawLauncher(dc *gg.Context, l game.LauncherSnapshot) {
	// Barrel along the aim angle
	bx := l.X + math.Cos(l.Angle)*game.MarbleRadius*2.2
	by := l.Y + math.Sin(l.Angle)*game.MarbleRadius*2.2
	dc.SetColor(color.RGBA{18, 18, 24, 255})
	dc.SetLineWidth(8)
	dc.DrawLine(l.X, l.Y, bx, by)
	dc.Stroke()

	// Base
	dc.SetColor(color.RGBA{18, 18, 24, 255})
	dc.DrawCircle(l.X, l.Y, game.MarbleRadius*1.5)
	dc.Fill()

	// Loaded marble
	cur := parseHexColor(l.Current)
	dc.SetColor(cur)
	dc.DrawCircle(l.X, l.Y, game.MarbleRadius*0.9)
	dc.Fill()

	// Next color peeking below the base
	next := parseHexColor(l.Next)
	dc.SetColor(next)
	dc.DrawCircle(l.X, l.Y+game.MarbleRadius*2.1, game.MarbleRadius*0.55)
	dc.Fill()
	dc.SetColor(color.RGBA{18, 18, 24, 255})
	dc.SetLineWidth(2)
	dc.DrawCircle(l.X, l.Y+game.MarbleRadius*2.1, game.MarbleRadius*0.55)
	dc.Stroke()
}

// drawHUD draws the score card, round status and leaderboard panel
func (r *Renderer) drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	marginLeft := 32.0
	marginTop := 24.0

	// === SCORE CARD - dark floating card ===
	cardX := marginLeft
	cardY := marginTop
	cardWidth := 320.0
	cardHeight := 88.0
	cardRadius := 6.0

	// Shadow layer (soft depth effect)
	dc.SetColor(color.RGBA{0, 0, 0, 25})
	dc.DrawRoundedRectangle(cardX+4, cardY+4, cardWidth, cardHeight, cardRadius)
	dc.Fill()

	// Main dark card background
	dc.SetColor(color.RGBA{18, 18, 24, 245})
	dc.DrawRoundedRectangle(cardX, cardY, cardWidth, cardHeight, cardRadius)
	dc.Fill()

	// Cyan accent line on left edge
	dc.SetColor(color.RGBA{0, 212, 255, 255})
	dc.DrawRoundedRectangle(cardX, cardY, 4, cardHeight, 2)
	dc.Fill()

	// Score
	titleX := cardX + 20.0
	titleY := cardY + 46.0
	if r.fontsLoaded && r.fontLarge != nil {
		dc.SetFontFace(r.fontLarge)
	}
	dc.SetColor(color.RGBA{0, 212, 255, 60})
	dc.DrawString(fmt.Sprintf("%d", snap.Score), titleX+1, titleY+1)
	dc.SetColor(color.RGBA{255, 255, 255, 255})
	dc.DrawString(fmt.Sprintf("%d", snap.Score), titleX, titleY)

	// Round line
	subtitleY := titleY + 28.0
	if r.fontsLoaded && r.fontSmall != nil {
		dc.SetFontFace(r.fontSmall)
	}
	dc.SetColor(color.RGBA{160, 165, 180, 255})
	dc.DrawString(fmt.Sprintf("Round %d  ·  %d/%d dealt", snap.Round, snap.Dealt, snap.TotalDeal), titleX, subtitleY)

	// === CHAIN BADGE - top right ===
	badgeHeight := 36.0
	badgeWidth := 170.0
	badgeX := float64(r.config.Width) - badgeWidth - marginLeft
	badgeY := marginTop

	dc.SetColor(color.RGBA{0, 0, 0, 20})
	dc.DrawRoundedRectangle(badgeX+2, badgeY+2, badgeWidth, badgeHeight, 4)
	dc.Fill()
	dc.SetColor(color.RGBA{18, 18, 24, 240})
	dc.DrawRoundedRectangle(badgeX, badgeY, badgeWidth, badgeHeight, 4)
	dc.Fill()

	// Lives dots
	dotX := badgeX + 14.0
	dotY := badgeY + badgeHeight/2
	for i := 0; i < snap.Lives; i++ {
		dc.SetColor(color.RGBA{255, 60, 60, 255})
		dc.DrawCircle(dotX+float64(i)*12, dotY, 4)
		dc.Fill()
	}

	chainText := fmt.Sprintf("%d IN CHAIN", snap.ActiveCount)
	dc.SetColor(color.RGBA{255, 255, 255, 255})
	dc.DrawString(chainText, dotX+42, badgeY+badgeHeight/2+5)

	// Combo callout under the badge
	if snap.Combo > 1 {
		if r.fontsLoaded && r.fontMedium != nil {
			dc.SetFontFace(r.fontMedium)
		}
		dc.SetColor(color.RGBA{255, 120, 0, 255})
		dc.DrawStringAnchored(fmt.Sprintf("COMBO x%d", snap.Combo),
			badgeX+badgeWidth/2, badgeY+badgeHeight+24, 0.5, 0.5)
	}

	// === LEADERBOARD ===
	if r.leaders != nil {
		r.drawLeaderboard(dc, marginLeft, cardY+cardHeight+28.0)
	}
}

// drawLeaderboard draws a clean, minimal top-commanders panel
func (r *Renderer) drawLeaderboard(dc *gg.Context, startX, startY float64) {
	entries := r.leaders(5)
	if len(entries) == 0 {
		return
	}

	x := startX
	y := startY
	entrySpacing := 26.0

	if r.fontsLoaded && r.fontSmall != nil {
		dc.SetFontFace(r.fontSmall)
	}

	// Header with accent color
	dc.SetColor(color.RGBA{0, 180, 220, 255})
	dc.DrawString("TOP COMMANDERS", x, y)
	y += 24.0

	for i, e := range entries {
		// Rank colors - gold/silver/bronze for top 3, gray for rest
		var rankColor color.RGBA
		switch i {
		case 0:
			rankColor = color.RGBA{255, 200, 60, 255} // Gold
		case 1:
			rankColor = color.RGBA{180, 185, 195, 255} // Silver
		case 2:
			rankColor = color.RGBA{205, 150, 90, 255} // Bronze
		default:
			rankColor = color.RGBA{120, 125, 140, 255} // Gray
		}

		dc.SetColor(rankColor)
		text := fmt.Sprintf("%d. %s · %d", e.Rank, e.CommanderID, int(e.Score))
		dc.DrawString(text, x, y)
		y += entrySpacing
	}
}

// imageToBufferFast copies a gg context image to our buffer
func imageToBufferFast(img image.Image, buffer []byte) {
	if rgba, ok := img.(*image.RGBA); ok {
		copy(buffer, rgba.Pix)
		return
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		copy(buffer, nrgba.Pix)
		return
	}

	// Fallback for other image types
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			buffer[idx] = uint8(r >> 8)
			buffer[idx+1] = uint8(g >> 8)
			buffer[idx+2] = uint8(b >> 8)
			buffer[idx+3] = uint8(a >> 8)
			idx += 4
		}
	}
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}

func getFontPath() string {
	// Try common font locations
	paths := []string{
		"C:\\Windows\\Fonts\\arial.ttf",
		"C:\\Windows\\Fonts\\segoeui.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Try to find any ttf in current directory
	matches, _ := filepath.Glob("*.ttf")
	if len(matches) > 0 {
		return matches[0]
	}

	return ""
}
