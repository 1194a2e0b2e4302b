package difficulty

import (
	"fmt"

	"github.com/talgya/holdup/internal/numeric"
)

// Material is what the sign is made of. Heavier signs tire the arm faster
// but survive rain longer.
type Material struct {
	Name       string  `json:"name"`
	Fatigue    float64 `json:"fatigue"`    // Multiplier on arm drain
	Durability float64 `json:"durability"` // Divisor on rain degradation
}

// Validate returns every problem found in the material.
func (m Material) Validate() []string {
	var problems []string
	if m.Name == "" {
		problems = append(problems, "material name is required")
	}
	if !numeric.Finite(m.Fatigue) || m.Fatigue <= 0 {
		problems = append(problems, fmt.Sprintf("material %q: fatigue must be positive", m.Name))
	}
	if !numeric.Finite(m.Durability) || m.Durability <= 0 {
		problems = append(problems, fmt.Sprintf("material %q: durability must be positive", m.Name))
	}
	return problems
}

// Built-in material names.
const (
	Cardboard   = "cardboard"
	FoamBoard   = "foam_board"
	PosterPaper = "poster_paper"
	Plywood     = "plywood"
)

// Materials returns the built-in materials keyed by name.
func Materials() map[string]Material {
	return map[string]Material{
		Cardboard:   {Name: Cardboard, Fatigue: 1.0, Durability: 1.0},
		FoamBoard:   {Name: FoamBoard, Fatigue: 0.8, Durability: 0.7},
		PosterPaper: {Name: PosterPaper, Fatigue: 0.6, Durability: 0.45},
		Plywood:     {Name: Plywood, Fatigue: 1.45, Durability: 2.2},
	}
}

// Sign is what the sign-creation step hands the core at session start.
// TextureRef is carried for the renderer only.
type Sign struct {
	Material   string  `json:"material"`
	Quality    float64 `json:"quality"` // 0–1
	TextureRef string  `json:"texture_ref,omitempty"`
}
