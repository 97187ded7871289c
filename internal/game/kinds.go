package game

// MarbleColor is the category a marble matches on.
type MarbleColor uint8

const (
	// ColorNone never matches anything, not even itself.
	ColorNone MarbleColor = iota
	ColorRed
	ColorAmber
	ColorGreen
	ColorBlue
	ColorViolet
	// ColorGhost marks the transparent placeholder that holds a vacated slot
	// under the placeholder policy. Ghosts never match and never score.
	ColorGhost
)

// String returns a human-readable color name for logs and events.
func (c MarbleColor) String() string {
	switch c {
	case ColorNone:
		return "none"
	case ColorRed:
		return "red"
	case ColorAmber:
		return "amber"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorViolet:
		return "violet"
	case ColorGhost:
		return "ghost"
	default:
		return "unknown"
	}
}

// Matchable reports whether the color can form or extend a run.
func (c MarbleColor) Matchable() bool {
	return c != ColorNone && c != ColorGhost
}

// IsPlaceholder reports whether the color marks a placeholder slot.
func (c MarbleColor) IsPlaceholder() bool {
	return c == ColorGhost
}

// MarbleKind bundles the render and effect resources for a color.
type MarbleKind struct {
	Color  MarbleColor `json:"color"`
	Name   string      `json:"name"`
	Hex    string      `json:"hex"`    // body fill, also sent to web clients
	Rim    string      `json:"rim"`    // outline accent
	Burst  EffectKind  `json:"-"`      // effect spawned when a marble vanishes
	Weight int         `json:"weight"` // relative spawn weight in the feeder bag
}

// MarbleKinds is the catalog of marble kinds.
// NOTE: hex values tuned for readability on the light playfield at 720p.
var MarbleKinds = map[MarbleColor]MarbleKind{
	ColorRed: {
		Color:  ColorRed,
		Name:   "Red",
		Hex:    "#e53935",
		Rim:    "#b71c1c",
		Burst:  EffectBurst,
		Weight: 10,
	},
	ColorAmber: {
		Color:  ColorAmber,
		Name:   "Amber",
		Hex:    "#ffb300",
		Rim:    "#ff6f00",
		Burst:  EffectBurst,
		Weight: 10,
	},
	ColorGreen: {
		Color:  ColorGreen,
		Name:   "Green",
		Hex:    "#43a047",
		Rim:    "#1b5e20",
		Burst:  EffectBurst,
		Weight: 10,
	},
	ColorBlue: {
		Color:  ColorBlue,
		Name:   "Blue",
		Hex:    "#1e88e5",
		Rim:    "#0d47a1",
		Burst:  EffectBurst,
		Weight: 10,
	},
	ColorViolet: {
		Color:  ColorViolet,
		Name:   "Violet",
		Hex:    "#8e24aa",
		Rim:    "#4a148c",
		Burst:  EffectBurst,
		Weight: 8,
	},
	ColorGhost: {
		Color:  ColorGhost,
		Name:   "Ghost",
		Hex:    "#cfd8dc",
		Rim:    "#90a4ae",
		Burst:  EffectNone,
		Weight: 0,
	},
}

var defaultKind = MarbleKinds[ColorRed]

// GetKind returns the catalog entry for a color, defaulting to red so a
// stray value still renders as something visible.
func GetKind(c MarbleColor) MarbleKind {
	if k, ok := MarbleKinds[c]; ok {
		return k
	}
	return defaultKind
}

// SpawnableColors returns the first paletteSize matchable colors in play
// order. The feeder narrows this further to colors still present in the
// chain.
func SpawnableColors(paletteSize int) []MarbleColor {
	all := []MarbleColor{ColorRed, ColorAmber, ColorGreen, ColorBlue, ColorViolet}
	if paletteSize <= 0 || paletteSize > len(all) {
		paletteSize = len(all)
	}
	return all[:paletteSize]
}
