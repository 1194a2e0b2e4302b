// Package config aggregates every component's tuning into one document that
// can be loaded from JSON and validated as a whole.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/events"
	"github.com/talgya/holdup/internal/fov"
	"github.com/talgya/holdup/internal/meters"
	"github.com/talgya/holdup/internal/reaction"
	"github.com/talgya/holdup/internal/traffic"
	"github.com/talgya/holdup/internal/weather"
)

// Session holds the per-session constants.
type Session struct {
	Duration         float64 `json:"duration"` // Seconds
	InitialGroupSize int     `json:"initial_group_size"`
	TickRate         int     `json:"tick_rate"` // Fixed frames per second for the runner
}

// Config is the full tuning document.
type Config struct {
	Session      Session                        `json:"session"`
	Difficulties map[string]difficulty.Profile  `json:"difficulties"`
	Materials    map[string]difficulty.Material `json:"materials"`

	Traffic    traffic.Config          `json:"traffic"`
	FOV        fov.Config              `json:"fov"`
	Reactions  reaction.Config         `json:"reactions"`
	Confidence meters.ConfidenceConfig `json:"confidence"`
	Fatigue    meters.FatigueConfig    `json:"fatigue"`
	Events     events.Config           `json:"events"`
	Weather    weather.Config          `json:"weather"`
}

// Error lists every problem found while validating a Config.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Problems, "; "))
}

// Default returns the built-in tuning.
func Default() *Config {
	return &Config{
		Session: Session{
			Duration:         180,
			InitialGroupSize: 4,
			TickRate:         60,
		},
		Difficulties: difficulty.Profiles(),
		Materials:    difficulty.Materials(),
		Traffic:      traffic.DefaultConfig(),
		FOV:          fov.DefaultConfig(),
		Reactions:    reaction.DefaultConfig(),
		Confidence:   meters.DefaultConfidenceConfig(),
		Fatigue:      meters.DefaultFatigueConfig(),
		Events:       events.DefaultConfig(),
		Weather:      weather.DefaultConfig(),
	}
}

// Load reads a JSON document over the defaults and validates the result.
// Keys absent from the file keep their default values; a difficulty or
// material entry present in the file replaces the built-in one whole.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	cfg.fillNames()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillNames copies map keys into entries that left their name out.
func (c *Config) fillNames() {
	for name, p := range c.Difficulties {
		if p.Name == "" {
			p.Name = name
			c.Difficulties[name] = p
		}
	}
	for name, m := range c.Materials {
		if m.Name == "" {
			m.Name = name
			c.Materials[name] = m
		}
	}
}

// Validate checks every block and the cross-block constraints. It returns
// nil or an *Error.
func (c *Config) Validate() error {
	var problems []string

	if c.Session.Duration <= 0 {
		problems = append(problems, "session: duration must be positive")
	}
	if c.Session.InitialGroupSize < 0 {
		problems = append(problems, "session: initial_group_size must not be negative")
	}
	if c.Session.TickRate <= 0 {
		problems = append(problems, "session: tick_rate must be positive")
	}

	if len(c.Difficulties) == 0 {
		problems = append(problems, "at least one difficulty is required")
	}
	for _, name := range difficulty.Names(c.Difficulties) {
		problems = append(problems, c.Difficulties[name].Validate()...)
	}
	if len(c.Materials) == 0 {
		problems = append(problems, "at least one material is required")
	}
	for _, name := range materialNames(c.Materials) {
		problems = append(problems, c.Materials[name].Validate()...)
	}

	problems = append(problems, c.Traffic.Validate()...)
	problems = append(problems, c.FOV.Validate()...)
	problems = append(problems, c.Reactions.Validate()...)
	problems = append(problems, c.Confidence.Validate()...)
	problems = append(problems, c.Fatigue.Validate()...)
	problems = append(problems, c.Events.Validate()...)
	problems = append(problems, c.Weather.Validate()...)

	ev := c.Events
	if ev.Enabled && ev.GuaranteedCopCheckRemaining > 0 {
		if ev.GuaranteedCopCheckRemaining >= c.Session.Duration {
			problems = append(problems, "events: guaranteed_cop_check_remaining must be below the session duration")
		} else if ev.FirstEventMaxTime+ev.MinEventSpacing > c.Session.Duration-ev.GuaranteedCopCheckRemaining {
			problems = append(problems, "events: first_event_max_time plus min_event_spacing overlaps the guaranteed cop-check")
		}
	}
	if c.Session.InitialGroupSize < c.Weather.MinNPCCount {
		problems = append(problems, "session: initial_group_size is below weather.min_npc_count")
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// Profile looks up a difficulty by name.
func (c *Config) Profile(name string) (difficulty.Profile, error) {
	p, ok := c.Difficulties[name]
	if !ok {
		return difficulty.Profile{}, fmt.Errorf("unknown difficulty %q (have %s)",
			name, strings.Join(difficulty.Names(c.Difficulties), ", "))
	}
	return p, nil
}

// Material looks up a sign material by name.
func (c *Config) Material(name string) (difficulty.Material, error) {
	m, ok := c.Materials[name]
	if !ok {
		return difficulty.Material{}, fmt.Errorf("unknown material %q (have %s)",
			name, strings.Join(materialNames(c.Materials), ", "))
	}
	return m, nil
}

// Digest fingerprints the whole tuning. JSON encoding sorts map keys, so
// equal configs always give the same digest.
func (c *Config) Digest() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("digest config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func materialNames(m map[string]difficulty.Material) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
