package render

import (
	"chroma-chain/internal/game"
)

// SnapshotSource is an interface for getting game snapshots.
// This allows the Renderer to work with a live engine or an offline stepped one.
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// LiveEngineSource wraps a running game.Engine as a SnapshotSource.
// The engine's own tick loop produces snapshots; reads are lock-free.
type LiveEngineSource struct {
	engine *game.Engine
}

// NewLiveEngineSource creates a SnapshotSource from a running engine
func NewLiveEngineSource(engine *game.Engine) *LiveEngineSource {
	return &LiveEngineSource{engine: engine}
}

// GetSnapshot returns the latest snapshot from the live engine
func (s *LiveEngineSource) GetSnapshot() *game.GameSnapshot {
	return s.engine.GetSnapshot()
}

// SteppedEngineSource drives a non-running engine one tick per frame.
// Used for offline preview rendering: every GetSnapshot call advances the
// simulation exactly once, so frame N is always tick N regardless of how
// slow the PNG encoding is.
type SteppedEngineSource struct {
	engine *game.Engine
}

// NewSteppedEngineSource creates an offline SnapshotSource. The engine must
// NOT have its tick loop started.
func NewSteppedEngineSource(engine *game.Engine) *SteppedEngineSource {
	return &SteppedEngineSource{engine: engine}
}

// GetSnapshot advances the engine one tick and returns the resulting snapshot
func (s *SteppedEngineSource) GetSnapshot() *game.GameSnapshot {
	s.engine.StepOnce()
	return s.engine.GetSnapshot()
}
