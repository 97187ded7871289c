package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with RNG seed
	EventTypeDeal              // Feeder pushed a marble onto the track
	EventTypeShot              // Launcher fired
	EventTypeLanding           // Shot spliced into the chain
	EventTypeMatch             // Run cleared
	EventTypeOverrun           // Marble fell off the track end
	EventTypeSwap              // Magazine colors swapped
	EventTypeRoundStart
	EventTypeRoundEnd
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Game tick this occurred in
	ActorID   string    `json:"actorId"`   // Commander behind the event (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeDeal:
		return "deal"
	case EventTypeShot:
		return "shot"
	case EventTypeLanding:
		return "landing"
	case EventTypeMatch:
		return "match"
	case EventTypeOverrun:
		return "overrun"
	case EventTypeSwap:
		return "swap"
	case EventTypeRoundStart:
		return "round_start"
	case EventTypeRoundEnd:
		return "round_end"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	RNGSeed     int64 `json:"rngSeed"`
	ChainLength int   `json:"chainLength"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

// DealPayload records a feeder deal
type DealPayload struct {
	MarbleID    string `json:"marbleId"`
	Color       string `json:"color"`
	ChainLength int    `json:"chainLength"`
}

// ShotPayload records a launcher shot
type ShotPayload struct {
	OwnerID string  `json:"ownerId"`
	Color   string  `json:"color"`
	Angle   float64 `json:"angle"`
}

// LandingPayload records a shot splicing into the chain
type LandingPayload struct {
	OwnerID     string `json:"ownerId"`
	MarbleID    string `json:"marbleId"`
	Slot        int    `json:"slot"`
	StruckSlot  int    `json:"struckSlot"`
	ChainLength int    `json:"chainLength"`
}

// MatchPayload records a cleared run
type MatchPayload struct {
	OwnerID string  `json:"ownerId"`
	Color   string  `json:"color"`
	RunSize int     `json:"runSize"`
	Combo   int     `json:"combo"`
	Points  int     `json:"points"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// OverrunPayload records a marble reaching the track end
type OverrunPayload struct {
	MarbleID  string `json:"marbleId"`
	Color     string `json:"color"`
	LivesLeft int    `json:"livesLeft"`
}

// RoundPayload records round boundaries
type RoundPayload struct {
	Round   int `json:"round"`
	Score   int `json:"score"`
	Dealt   int `json:"dealt"`
	Cleared int `json:"cleared"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, actorID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		ActorID:   actorID,
		Payload:   EncodePayload(payload),
	}
}
