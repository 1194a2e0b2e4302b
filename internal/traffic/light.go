package traffic

import "fmt"

// Direction is a car's heading of travel.
type Direction uint8

const (
	North Direction = iota // +y
	East                   // +x
	South                  // -y
	West                   // -x
)

// Directions lists every heading in spawn order.
var Directions = [...]Direction{North, East, South, West}

var directionNames = [...]string{"north", "east", "south", "west"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	for i, name := range directionNames {
		if name == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", string(b))
}

// Vector returns the unit heading.
func (d Direction) Vector() (float64, float64) {
	switch d {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	default:
		return -1, 0
	}
}

// Color is what the signal head shows.
type Color uint8

const (
	Red Color = iota
	Yellow
	Green
)

var colorNames = [...]string{"red", "yellow", "green"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// MarshalText encodes the color by name.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a color name.
func (c *Color) UnmarshalText(b []byte) error {
	for i, name := range colorNames {
		if name == string(b) {
			*c = Color(i)
			return nil
		}
	}
	return fmt.Errorf("unknown color %q", string(b))
}

// Phase is one step of the light cycle. Directions not in Green must stop.
type Phase struct {
	Name     string      `json:"name"`
	Color    Color       `json:"color"`
	Green    []Direction `json:"green"`
	Duration float64     `json:"duration"` // Seconds
}

// Allows reports whether d may proceed during the phase.
func (p Phase) Allows(d Direction) bool {
	for _, g := range p.Green {
		if g == d {
			return true
		}
	}
	return false
}

// LightCycle is the repeating phase sequence. Durations never change during
// a session so the rhythm stays learnable.
type LightCycle struct {
	phases  []Phase
	index   int
	inPhase float64 // Seconds spent in the current phase
	cycles  int     // Completed full cycles
}

// NewLightCycle starts at phase 0.
func NewLightCycle(phases []Phase) *LightCycle {
	return &LightCycle{phases: append([]Phase(nil), phases...)}
}

// Advance moves the cycle forward by dt, returning how many phase changes
// happened. The overshoot past a phase boundary carries into the next phase
// so the cycle never drifts.
func (lc *LightCycle) Advance(dt float64) int {
	if dt <= 0 || len(lc.phases) == 0 {
		return 0
	}
	lc.inPhase += dt
	changes := 0
	for lc.inPhase >= lc.phases[lc.index].Duration {
		lc.inPhase -= lc.phases[lc.index].Duration
		lc.index++
		if lc.index == len(lc.phases) {
			lc.index = 0
			lc.cycles++
		}
		changes++
	}
	return changes
}

// Index returns the current phase index.
func (lc *LightCycle) Index() int { return lc.index }

// Current returns the current phase.
func (lc *LightCycle) Current() Phase { return lc.phases[lc.index] }

// Remaining returns the seconds left in the current phase.
func (lc *LightCycle) Remaining() float64 {
	return lc.phases[lc.index].Duration - lc.inPhase
}

// Elapsed returns total cycle time since the session started.
func (lc *LightCycle) Elapsed() float64 {
	t := float64(lc.cycles) * lc.Period()
	for i := 0; i < lc.index; i++ {
		t += lc.phases[i].Duration
	}
	return t + lc.inPhase
}

// Period returns the length of one full cycle.
func (lc *LightCycle) Period() float64 {
	total := 0.0
	for _, p := range lc.phases {
		total += p.Duration
	}
	return total
}

// Allows reports whether d may proceed right now.
func (lc *LightCycle) Allows(d Direction) bool {
	return lc.Current().Allows(d)
}
