// Package events defines the closed, typed set of session events and the
// in-process bus they travel on. Consumers subscribe to the exported topic
// constants only — there is no free-form event name to typo.
package events

import (
	"time"

	"github.com/rmoreas/warcycle/internal/game"
)

// Topic names. The set is closed: every publishable event appears here.
const (
	TopicCycleStarted         = "session.cycle.started"
	TopicPhaseStarted         = "session.phase.started"
	TopicPhaseEnded           = "session.phase.ended"
	TopicActionAccepted       = "session.action.accepted"
	TopicActionRejected       = "session.action.rejected"
	TopicActionProcessed      = "session.action.processed"
	TopicCombatResolved       = "session.combat.resolved"
	TopicRegionControlChanged = "session.region.control_changed"
	TopicGameCompleted        = "session.game.completed"
)

// Topics lists every topic, for subscribers that journal the full stream.
var Topics = []string{
	TopicCycleStarted,
	TopicPhaseStarted,
	TopicPhaseEnded,
	TopicActionAccepted,
	TopicActionRejected,
	TopicActionProcessed,
	TopicCombatResolved,
	TopicRegionControlChanged,
	TopicGameCompleted,
}

// CycleStarted is published on every INTERMISSION→PREPARATION wrap and once
// on clock start.
type CycleStarted struct {
	SessionID string    `json:"session_id"`
	CycleID   int       `json:"cycle_id"`
	StartTime time.Time `json:"start_time"`
}

// PhaseStarted is published when a phase becomes active.
type PhaseStarted struct {
	SessionID string     `json:"session_id"`
	CycleID   int        `json:"cycle_id"`
	Phase     game.Phase `json:"phase"`
	EndsAt    time.Time  `json:"ends_at"`
}

// PhaseEnded is published when a phase's timer expires.
type PhaseEnded struct {
	SessionID string     `json:"session_id"`
	CycleID   int        `json:"cycle_id"`
	Phase     game.Phase `json:"phase"`
}

// ActionAccepted is published when a submission passes validation.
type ActionAccepted struct {
	SessionID string          `json:"session_id"`
	ActionID  string          `json:"action_id"`
	PlayerID  string          `json:"player_id"`
	Type      game.ActionType `json:"type"`
	Priority  float64         `json:"priority"`
}

// ActionRejected is published when a submission fails validation. Reason is
// always human-readable.
type ActionRejected struct {
	SessionID string          `json:"session_id"`
	PlayerID  string          `json:"player_id"`
	Type      game.ActionType `json:"type"`
	Reason    string          `json:"reason"`
}

// ActionProcessed is published when an action reaches a terminal status.
type ActionProcessed struct {
	SessionID  string            `json:"session_id"`
	Action     game.QueuedAction `json:"action"`
	Status     game.ActionStatus `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// CombatResolved carries the full result of a resolved encounter.
type CombatResolved struct {
	SessionID string            `json:"session_id"`
	Result    game.CombatResult `json:"result"`
}

// RegionControlChanged is published when territory control flips.
type RegionControlChanged struct {
	SessionID     string `json:"session_id"`
	RegionID      string `json:"region_id"`
	OldController string `json:"old_controller"`
	NewController string `json:"new_controller"`
	Contested     bool   `json:"contested"`
}

// GameCompleted is published once, when the configured cycle count is
// exhausted and the clock enters COMPLETED.
type GameCompleted struct {
	SessionID   string    `json:"session_id"`
	CycleID     int       `json:"cycle_id"`
	CompletedAt time.Time `json:"completed_at"`
}
