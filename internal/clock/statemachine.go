package clock

import (
	"fmt"
	"time"

	"github.com/rmoreas/warcycle/internal/game"
)

// StateMachine is a pure lookup over the per-phase configuration table: it
// answers which action types are legal in a phase, how many actions a player
// may take, and where each phase sits inside the cycle.
type StateMachine struct {
	phases      map[game.Phase]game.PhaseConfig
	cycleLength time.Duration
}

// NewStateMachine validates the phase table: all four phases must be
// configured with positive durations.
func NewStateMachine(phases map[game.Phase]game.PhaseConfig) (*StateMachine, error) {
	var total time.Duration
	for _, p := range game.PhaseOrder {
		cfg, ok := phases[p]
		if !ok {
			return nil, fmt.Errorf("phase table is missing %s", p)
		}
		if cfg.Duration <= 0 {
			return nil, fmt.Errorf("phase %s has non-positive duration %v", p, cfg.Duration)
		}
		total += cfg.Duration
	}
	return &StateMachine{phases: phases, cycleLength: total}, nil
}

// Config returns the configuration of the given phase.
func (m *StateMachine) Config(p game.Phase) game.PhaseConfig {
	return m.phases[p]
}

// CycleLength is the sum of the four phase durations.
func (m *StateMachine) CycleLength() time.Duration {
	return m.cycleLength
}

// PhaseOffset is the elapsed time from cycle start to the start of phase p.
func (m *StateMachine) PhaseOffset(p game.Phase) time.Duration {
	var off time.Duration
	for _, q := range game.PhaseOrder {
		if q == p {
			return off
		}
		off += m.phases[q].Duration
	}
	return off
}

// IsLegal reports whether actions of type t may run during phase p.
func (m *StateMachine) IsLegal(p game.Phase, t game.ActionType) bool {
	for _, legal := range m.phases[p].LegalActions {
		if legal == t {
			return true
		}
	}
	return false
}

// MaxActions is the per-player action budget for phase p.
func (m *StateMachine) MaxActions(p game.Phase) int {
	return m.phases[p].MaxActionsPerPlayer
}

// NextPhase returns the phase following p in the strict cyclic order and
// whether the transition wraps into a new cycle.
func NextPhase(p game.Phase) (game.Phase, bool) {
	for i, q := range game.PhaseOrder {
		if q == p {
			if i == len(game.PhaseOrder)-1 {
				return game.PhaseOrder[0], true
			}
			return game.PhaseOrder[i+1], false
		}
	}
	return game.PhasePreparation, false
}
