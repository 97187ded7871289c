package command

import "time"

// Command represents a parsed commander action
type Command struct {
	Name       string   // "shoot", "swap", etc.
	Args       []string // Arguments after the command word
	Owner      string   // Commander identity (chat username or client IP)
	ReceivedAt time.Time
}

// CommandType for routing
type CommandType int

const (
	CmdShoot CommandType = iota
	CmdSwap
	CmdStats
	CmdTop
	CmdHelp
	CmdUnknown
)

// SupportedCommands maps command strings to types
var SupportedCommands = map[string]CommandType{
	// Shoot variants
	"shoot":    CmdShoot,
	"fire":     CmdShoot,
	"disparar": CmdShoot,
	"tirar":    CmdShoot,

	// Swap variants
	"swap":    CmdSwap,
	"next":    CmdSwap,
	"cambiar": CmdSwap,

	// Stats variants
	"stats":  CmdStats,
	"score":  CmdStats,
	"puntos": CmdStats,

	// Top variants
	"top":   CmdTop,
	"rank":  CmdTop,
	"tabla": CmdTop,

	// Help variants
	"help":     CmdHelp,
	"ayuda":    CmdHelp,
	"commands": CmdHelp,
	"comandos": CmdHelp,
}

// GetCommandType returns the command type for a string (case-insensitive
// callers should lowercase first)
func GetCommandType(cmd string) CommandType {
	if t, ok := SupportedCommands[cmd]; ok {
		return t
	}
	return CmdUnknown
}
