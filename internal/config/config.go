// Package config loads and validates the session configuration. Timing knobs
// are expressed in seconds in the JSON file and converted to durations here;
// every cross-field constraint (phase split summing to the cycle length,
// complete advantage matrix, sane combat constants) is checked at load time
// so the rest of the code can assume a coherent table.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/engine"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
)

// Config is the validated runtime configuration of a server process.
type Config struct {
	ServerAddress string
	DBPath        string

	TotalCycles int
	Phases      map[game.Phase]game.PhaseConfig

	Combat engine.Config

	DrainInterval      time.Duration
	DriftCheckInterval time.Duration
	DriftThreshold     time.Duration
	ActionRetention    time.Duration
}

// rawConfig mirrors the JSON file layout. Durations are seconds so operators
// do not juggle nanosecond integers.
type rawConfig struct {
	ServerAddress string              `json:"server_address"`
	DBPath        string              `json:"db_path"`
	TotalCycles   int                 `json:"total_cycles"`
	Phases        map[string]rawPhase `json:"phases"`
	Combat        rawCombat           `json:"combat"`
	DrainMs       int                 `json:"drain_interval_ms"`
	DriftCheckSec float64             `json:"drift_check_interval_seconds"`
	DriftMs       int                 `json:"drift_threshold_ms"`
	RetentionHrs  float64             `json:"action_retention_hours"`
}

type rawPhase struct {
	DurationSeconds        float64  `json:"duration_seconds"`
	MaxActionsPerPlayer    int      `json:"max_actions_per_player"`
	ResourceMultiplier     float64  `json:"resource_multiplier"`
	AIAggressionMultiplier float64  `json:"ai_aggression_multiplier"`
	LegalActions           []string `json:"legal_actions"`
}

type rawCombat struct {
	BaseHitChance        float64             `json:"base_hit_chance"`
	ExperienceMultiplier float64             `json:"experience_multiplier"`
	RetreatThreshold     float64             `json:"retreat_threshold"`
	Rounds               int                 `json:"rounds"`
	BaselineLoss         game.ResourceVector `json:"baseline_loss"`
}

// defaultCycleLength is a 7-day game divided into 8192 cycles.
const defaultCycleLength = (7 * 24 * time.Hour) / 8192

// Default returns the configuration used when no file is supplied: the
// standard 8192-cycle game with a 40/40/15/5 phase split.
func Default() *Config {
	cycle := defaultCycleLength
	return &Config{
		ServerAddress: constants.DefaultAddress,
		DBPath:        constants.DefaultDBPath,
		TotalCycles:   8192,
		Phases: map[game.Phase]game.PhaseConfig{
			game.PhasePreparation: {
				Duration:               cycle * 40 / 100,
				MaxActionsPerPlayer:    10,
				ResourceMultiplier:     1.5,
				AIAggressionMultiplier: 1.0,
				LegalActions:           []game.ActionType{game.ActionBuild, game.ActionResearch, game.ActionEconomic},
			},
			game.PhaseAction: {
				Duration:               cycle * 40 / 100,
				MaxActionsPerPlayer:    10,
				ResourceMultiplier:     1.0,
				AIAggressionMultiplier: 1.5,
				LegalActions:           []game.ActionType{game.ActionMove, game.ActionAttack, game.ActionDiplomatic, game.ActionEconomic},
			},
			game.PhaseResolution: {
				Duration:               cycle * 15 / 100,
				MaxActionsPerPlayer:    5,
				ResourceMultiplier:     1.0,
				AIAggressionMultiplier: 0.5,
				LegalActions:           []game.ActionType{game.ActionDiplomatic, game.ActionEconomic},
			},
			game.PhaseIntermission: {
				Duration:               cycle * 5 / 100,
				MaxActionsPerPlayer:    0,
				ResourceMultiplier:     0.5,
				AIAggressionMultiplier: 0.0,
				LegalActions:           []game.ActionType{},
			},
		},
		Combat:             engine.DefaultConfig(),
		DrainInterval:      100 * time.Millisecond,
		DriftCheckInterval: 10 * time.Second,
		DriftThreshold:     100 * time.Millisecond,
		ActionRetention:    24 * time.Hour,
	}
}

// Load reads the configuration file named by WARCYCLE_CONFIG (after loading a
// .env file if present) and falls back to Default when the variable is unset.
// Address and DB path env overrides win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("could not load .env file", logging.Fields{"error": err.Error()})
	}

	cfg := Default()
	if path := os.Getenv(constants.EnvConfigPath); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if addr := os.Getenv(constants.EnvAddress); addr != "" {
		cfg.ServerAddress = addr
	}
	if db := os.Getenv(constants.EnvDBPath); db != "" {
		cfg.DBPath = db
	}
	return cfg, nil
}

// LoadFile parses and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fromRaw(&raw)
}

func fromRaw(raw *rawConfig) (*Config, error) {
	cfg := Default()
	if raw.ServerAddress != "" {
		cfg.ServerAddress = raw.ServerAddress
	}
	if raw.DBPath != "" {
		cfg.DBPath = raw.DBPath
	}
	if raw.TotalCycles != 0 {
		if raw.TotalCycles < 1 {
			return nil, fmt.Errorf("total_cycles must be positive, got %d", raw.TotalCycles)
		}
		cfg.TotalCycles = raw.TotalCycles
	}
	if raw.Phases != nil {
		phases, err := phasesFromRaw(raw.Phases)
		if err != nil {
			return nil, err
		}
		cfg.Phases = phases
	}
	if raw.Combat.Rounds != 0 || raw.Combat.BaseHitChance != 0 {
		if err := applyCombat(&cfg.Combat, &raw.Combat); err != nil {
			return nil, err
		}
	}
	if raw.DrainMs != 0 {
		cfg.DrainInterval = time.Duration(raw.DrainMs) * time.Millisecond
	}
	if raw.DriftCheckSec != 0 {
		cfg.DriftCheckInterval = time.Duration(raw.DriftCheckSec * float64(time.Second))
	}
	if raw.DriftMs != 0 {
		cfg.DriftThreshold = time.Duration(raw.DriftMs) * time.Millisecond
	}
	if raw.RetentionHrs != 0 {
		cfg.ActionRetention = time.Duration(raw.RetentionHrs * float64(time.Hour))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func phasesFromRaw(raw map[string]rawPhase) (map[game.Phase]game.PhaseConfig, error) {
	phases := make(map[game.Phase]game.PhaseConfig, len(raw))
	for name, rp := range raw {
		phase := game.Phase(name)
		legal := make([]game.ActionType, 0, len(rp.LegalActions))
		for _, a := range rp.LegalActions {
			t := game.ActionType(a)
			if !validActionType(t) {
				return nil, fmt.Errorf("phase %s lists unknown action type %q", name, a)
			}
			legal = append(legal, t)
		}
		phases[phase] = game.PhaseConfig{
			Duration:               time.Duration(rp.DurationSeconds * float64(time.Second)),
			MaxActionsPerPlayer:    rp.MaxActionsPerPlayer,
			ResourceMultiplier:     rp.ResourceMultiplier,
			AIAggressionMultiplier: rp.AIAggressionMultiplier,
			LegalActions:           legal,
		}
	}
	return phases, nil
}

func applyCombat(dst *engine.Config, raw *rawCombat) error {
	if raw.BaseHitChance != 0 {
		dst.BaseHitChance = raw.BaseHitChance
	}
	if raw.ExperienceMultiplier != 0 {
		dst.ExperienceMultiplier = raw.ExperienceMultiplier
	}
	if raw.RetreatThreshold != 0 {
		dst.RetreatThreshold = raw.RetreatThreshold
	}
	if raw.Rounds != 0 {
		dst.Rounds = raw.Rounds
	}
	if !raw.BaselineLoss.IsZero() {
		dst.BaselineLoss = raw.BaselineLoss
	}
	return nil
}

func validActionType(t game.ActionType) bool {
	for _, v := range game.ActionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Validate checks every cross-field constraint of the configuration.
func (c *Config) Validate() error {
	if c.TotalCycles < 1 {
		return fmt.Errorf("total_cycles must be positive, got %d", c.TotalCycles)
	}
	for _, p := range game.PhaseOrder {
		cfg, ok := c.Phases[p]
		if !ok {
			return fmt.Errorf("phase table is missing %s", p)
		}
		if cfg.Duration <= 0 {
			return fmt.Errorf("phase %s has non-positive duration %v", p, cfg.Duration)
		}
		if cfg.MaxActionsPerPlayer < 0 {
			return fmt.Errorf("phase %s has negative action budget %d", p, cfg.MaxActionsPerPlayer)
		}
	}
	if len(c.Phases) != len(game.PhaseOrder) {
		return fmt.Errorf("phase table has %d entries, want %d", len(c.Phases), len(game.PhaseOrder))
	}
	if c.Combat.BaseHitChance <= 0 || c.Combat.BaseHitChance > 1 {
		return fmt.Errorf("base_hit_chance must be in (0,1], got %v", c.Combat.BaseHitChance)
	}
	if c.Combat.RetreatThreshold < 0 || c.Combat.RetreatThreshold > 1 {
		return fmt.Errorf("retreat_threshold must be in [0,1], got %v", c.Combat.RetreatThreshold)
	}
	if c.Combat.Rounds < 1 {
		return fmt.Errorf("combat rounds must be positive, got %d", c.Combat.Rounds)
	}
	if c.Combat.Matrix == nil {
		c.Combat.Matrix = engine.DefaultAdvantageMatrix()
	}
	if !c.Combat.Matrix.Complete() {
		return fmt.Errorf("advantage matrix does not cover the full unit type cross product")
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("drain_interval_ms must be positive, got %v", c.DrainInterval)
	}
	if c.ActionRetention <= 0 {
		return fmt.Errorf("action_retention_hours must be positive, got %v", c.ActionRetention)
	}
	return nil
}

// CycleLength is the sum of the four configured phase durations.
func (c *Config) CycleLength() time.Duration {
	var total time.Duration
	for _, p := range game.PhaseOrder {
		total += c.Phases[p].Duration
	}
	return total
}
