package autoplay

import (
	"sync"
	"testing"
	"time"

	"chroma-chain/internal/game"
)

// scriptEngine records every call the bot makes against a fixed state.
type scriptEngine struct {
	mu    sync.Mutex
	state game.GameState
	fired []ShotOrder
	swaps int
}

func (e *scriptEngine) GetState() game.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *scriptEngine) FireAt(owner string, x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fired = append(e.fired, ShotOrder{TargetX: x, TargetY: y})
	return true
}

func (e *scriptEngine) SwapMagazine(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.swaps++
}

func (e *scriptEngine) shots() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fired)
}

func boardState(current, next game.MarbleColor, marbles ...game.MarbleView) game.GameState {
	return game.GameState{
		Marbles: marbles,
		Current: current,
		Next:    next,
	}
}

// TestPlanAimsAtLoadedColor verifies the bot targets a marble matching the
// loaded color, inside the jitter radius.
func TestPlanAimsAtLoadedColor(t *testing.T) {
	engine := &scriptEngine{state: boardState(game.ColorRed, game.ColorBlue,
		game.MarbleView{ID: "m1", X: 100, Y: 200, Color: game.ColorRed},
		game.MarbleView{ID: "m2", X: 500, Y: 200, Color: game.ColorGreen},
	)}
	bot := NewBot(engine, "bot", 1)

	order, ok := bot.plan()
	if !ok {
		t.Fatal("expected a planned shot")
	}
	if order.Swap {
		t.Error("loaded color has a target, no swap needed")
	}

	jitter := game.MarbleRadius * 0.5
	if order.TargetX < 100-jitter || order.TargetX > 100+jitter {
		t.Errorf("aim x %.1f not near target 100", order.TargetX)
	}
	if order.TargetY < 200-jitter || order.TargetY > 200+jitter {
		t.Errorf("aim y %.1f not near target 200", order.TargetY)
	}
}

// TestPlanSwapsWhenNextColorMatches verifies the order requests a swap when
// only the magazine's next color is on the board.
func TestPlanSwapsWhenNextColorMatches(t *testing.T) {
	engine := &scriptEngine{state: boardState(game.ColorViolet, game.ColorBlue,
		game.MarbleView{ID: "m1", X: 100, Y: 200, Color: game.ColorBlue},
	)}
	bot := NewBot(engine, "bot", 1)

	order, ok := bot.plan()
	if !ok {
		t.Fatal("expected a planned shot")
	}
	if !order.Swap {
		t.Error("expected a swap-first order")
	}
}

// TestPlanFallsBackToAnyLiveMarble verifies the bot still fires when no
// chain marble matches either magazine color.
func TestPlanFallsBackToAnyLiveMarble(t *testing.T) {
	engine := &scriptEngine{state: boardState(game.ColorViolet, game.ColorAmber,
		game.MarbleView{ID: "m1", X: 100, Y: 200, Color: game.ColorBlue},
		game.MarbleView{ID: "m2", X: 134, Y: 200, Color: game.ColorGreen, Ghost: true},
	)}
	bot := NewBot(engine, "bot", 1)

	order, ok := bot.plan()
	if !ok {
		t.Fatal("expected a fallback shot")
	}
	if order.TargetX > 120 {
		t.Errorf("aim x %.1f should be near the only live marble at 100", order.TargetX)
	}
}

// TestPlanHoldsFireOnEmptyBoard verifies no order is produced without
// targets.
func TestPlanHoldsFireOnEmptyBoard(t *testing.T) {
	bot := NewBot(&scriptEngine{state: boardState(game.ColorRed, game.ColorBlue)}, "bot", 1)

	if _, ok := bot.plan(); ok {
		t.Error("expected the bot to hold fire on an empty board")
	}

	// Ghost-only boards hold fire too
	ghostOnly := &scriptEngine{state: boardState(game.ColorViolet, game.ColorAmber,
		game.MarbleView{ID: "m1", X: 100, Y: 200, Color: game.ColorBlue, Ghost: true},
	)}
	if _, ok := NewBot(ghostOnly, "bot", 1).plan(); ok {
		t.Error("expected the bot to hold fire with only ghosts on the board")
	}
}

// TestQueueShotDropsNewest verifies a saturated queue discards fresh orders
// instead of blocking the planner.
func TestQueueShotDropsNewest(t *testing.T) {
	bot := NewBot(&scriptEngine{}, "bot", 1)

	for i := 0; i < 150; i++ {
		bot.QueueShot(ShotOrder{TargetX: float64(i)})
	}

	if len(bot.queue) != cap(bot.queue) {
		t.Errorf("expected a full queue of %d, got %d", cap(bot.queue), len(bot.queue))
	}
	first := <-bot.queue
	if first.TargetX != 0 {
		t.Errorf("queue should keep the oldest order, got %.0f", first.TargetX)
	}
}

// TestBotFiresThroughDispatcher runs the full loop briefly against a live
// target and checks shots actually reach the engine.
func TestBotFiresThroughDispatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timed bot test in short mode")
	}

	engine := &scriptEngine{state: boardState(game.ColorRed, game.ColorBlue,
		game.MarbleView{ID: "m1", X: 100, Y: 200, Color: game.ColorRed},
	)}
	bot := NewBot(engine, "bot", 7)
	bot.planEvery = 10 * time.Millisecond
	bot.fireEvery = 10 * time.Millisecond

	bot.Start()
	time.Sleep(200 * time.Millisecond)
	bot.Stop()

	if engine.shots() == 0 {
		t.Error("expected at least one dispatched shot")
	}
}

// TestBotDefaultOwner verifies the fallback identity.
func TestBotDefaultOwner(t *testing.T) {
	bot := NewBot(&scriptEngine{}, "", 0)
	if bot.owner != "autoplay" {
		t.Errorf("expected default owner %q, got %q", "autoplay", bot.owner)
	}
}
