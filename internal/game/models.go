package game

import (
	"time"
)

// Phase is one of the four sub-divisions of a cycle, plus the terminal
// COMPLETED state the clock enters once the configured cycle count is
// exhausted.
type Phase string

const (
	PhasePreparation  Phase = "PREPARATION"
	PhaseAction       Phase = "ACTION"
	PhaseResolution   Phase = "RESOLUTION"
	PhaseIntermission Phase = "INTERMISSION"
	PhaseCompleted    Phase = "COMPLETED"
)

// PhaseOrder is the strict cyclic transition order.
var PhaseOrder = []Phase{PhasePreparation, PhaseAction, PhaseResolution, PhaseIntermission}

// ActionType classifies a queued action. Using a dedicated type instead of
// plain strings keeps the legality tables and handler registry typo-proof.
type ActionType string

const (
	ActionMove       ActionType = "MOVE"
	ActionAttack     ActionType = "ATTACK"
	ActionBuild      ActionType = "BUILD"
	ActionResearch   ActionType = "RESEARCH"
	ActionDiplomatic ActionType = "DIPLOMATIC"
	ActionEconomic   ActionType = "ECONOMIC"
)

// ActionTypes lists every valid action type, in declaration order.
var ActionTypes = []ActionType{ActionMove, ActionAttack, ActionBuild, ActionResearch, ActionDiplomatic, ActionEconomic}

// ActionStatus is the lifecycle state of a queued action.
type ActionStatus string

const (
	StatusQueued     ActionStatus = "QUEUED"
	StatusProcessing ActionStatus = "PROCESSING"
	StatusCompleted  ActionStatus = "COMPLETED"
	StatusFailed     ActionStatus = "FAILED"
	StatusCancelled  ActionStatus = "CANCELLED"
)

// Terminal reports whether the status ends an action's lifecycle.
func (s ActionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// UnitType is one of the five combat unit classes.
type UnitType string

const (
	UnitInfantry   UnitType = "INFANTRY"
	UnitMechanized UnitType = "MECHANIZED"
	UnitAerial     UnitType = "AERIAL"
	UnitNaval      UnitType = "NAVAL"
	UnitSpecial    UnitType = "SPECIAL"
)

// UnitTypes lists every unit type; the advantage matrix must cover the full
// cross product of this set.
var UnitTypes = []UnitType{UnitInfantry, UnitMechanized, UnitAerial, UnitNaval, UnitSpecial}

// UnitStatus tracks what a unit is currently doing. RETREATING is sticky for
// the remainder of a combat once set.
type UnitStatus string

const (
	UnitIdle       UnitStatus = "IDLE"
	UnitMoving     UnitStatus = "MOVING"
	UnitEngaging   UnitStatus = "ENGAGING"
	UnitDefending  UnitStatus = "DEFENDING"
	UnitRetreating UnitStatus = "RETREATING"
)

// Cycle is a point-in-time snapshot of the clock's canonical counters.
type Cycle struct {
	CycleID           int       `json:"cycle_id"`
	StartTime         time.Time `json:"start_time"`
	Phase             Phase     `json:"phase"`
	PhaseEndTime      time.Time `json:"phase_end_time"`
	TotalPlayers      int       `json:"total_players"`
	ActivePlayerCount int       `json:"active_player_count"`
}

// PhaseConfig holds the per-phase timing and gating knobs. The four
// configured durations must sum to the cycle length.
type PhaseConfig struct {
	Duration               time.Duration `json:"duration"`
	MaxActionsPerPlayer    int           `json:"max_actions_per_player"`
	ResourceMultiplier     float64       `json:"resource_multiplier"`
	AIAggressionMultiplier float64       `json:"ai_aggression_multiplier"`
	LegalActions           []ActionType  `json:"legal_actions"`
}

// ResourceVector is the opaque currency the economy collaborator trades in.
type ResourceVector struct {
	Manpower   float64 `json:"manpower"`
	Materials  float64 `json:"materials"`
	Energy     float64 `json:"energy"`
	Technology float64 `json:"technology"`
}

// Add returns the component-wise sum.
func (v ResourceVector) Add(o ResourceVector) ResourceVector {
	return ResourceVector{
		Manpower:   v.Manpower + o.Manpower,
		Materials:  v.Materials + o.Materials,
		Energy:     v.Energy + o.Energy,
		Technology: v.Technology + o.Technology,
	}
}

// Scale returns the vector multiplied by f.
func (v ResourceVector) Scale(f float64) ResourceVector {
	return ResourceVector{
		Manpower:   v.Manpower * f,
		Materials:  v.Materials * f,
		Energy:     v.Energy * f,
		Technology: v.Technology * f,
	}
}

// Covers reports whether every component of v is at least the matching
// component of cost.
func (v ResourceVector) Covers(cost ResourceVector) bool {
	return v.Manpower >= cost.Manpower &&
		v.Materials >= cost.Materials &&
		v.Energy >= cost.Energy &&
		v.Technology >= cost.Technology
}

// Sum returns the total across all components.
func (v ResourceVector) Sum() float64 {
	return v.Manpower + v.Materials + v.Energy + v.Technology
}

// IsZero reports whether every component is zero.
func (v ResourceVector) IsZero() bool {
	return v == ResourceVector{}
}

// ActionPayload carries the action-type-specific parameters of a submission.
type ActionPayload struct {
	SourceID  string          `json:"source_id"`
	TargetID  string          `json:"target_id"`
	Resources *ResourceVector `json:"resources,omitempty"`
	Units     []string        `json:"units,omitempty"`
}

// QueuedAction is a player- or AI-submitted intent awaiting validation and
// execution. Validation tags cover the schema checks producers are held to.
type QueuedAction struct {
	ID          string        `json:"id"`
	PlayerID    string        `json:"player_id" validate:"required"`
	Type        ActionType    `json:"type" validate:"required,oneof=MOVE ATTACK BUILD RESEARCH DIPLOMATIC ECONOMIC"`
	Priority    float64       `json:"priority" validate:"gte=0,lte=1"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Payload     ActionPayload `json:"payload"`
	Status      ActionStatus  `json:"status"`
	// Reason carries the human-readable failure or rejection explanation
	// once the action reaches FAILED or CANCELLED.
	Reason string `json:"reason,omitempty"`
}

// Unit is a single combat unit. Health only decreases (during combat) and
// experience only increases.
type Unit struct {
	ID         string     `json:"id"`
	Type       UnitType   `json:"type"`
	Owner      string     `json:"owner"`
	RegionID   string     `json:"region_id"`
	Health     int        `json:"health"`
	Experience int        `json:"experience"`
	Status     UnitStatus `json:"status"`
}

// Effective reports whether the unit still participates in combat rounds.
func (u *Unit) Effective() bool {
	return u.Health > 0 && u.Status != UnitRetreating
}

// ForceModifiers are the situational multipliers one side brings to a
// combat, all in [0,1].
type ForceModifiers struct {
	Terrain    float64 `json:"terrain"`
	Weather    float64 `json:"weather"`
	Morale     float64 `json:"morale"`
	Technology float64 `json:"technology"`
	Leadership float64 `json:"leadership"`
}

// CombatantForce is the transient input to a combat resolution: the units
// and modifiers of one side. It is not persisted by the core.
type CombatantForce struct {
	PlayerID  string         `json:"player_id"`
	RegionID  string         `json:"region_id"`
	Units     []*Unit        `json:"units"`
	Modifiers ForceModifiers `json:"modifiers"`
}

// UnitReport is the per-unit audit entry of a resolved combat.
type UnitReport struct {
	UnitID           string `json:"unit_id"`
	StartingHealth   int    `json:"starting_health"`
	EndingHealth     int    `json:"ending_health"`
	ExperienceGained int    `json:"experience_gained"`
	Destroyed        bool   `json:"destroyed"`
}

// CombatResult is emitted once per resolved encounter and owned by the
// caller after emission.
type CombatResult struct {
	AttackerID       string         `json:"attacker_id"`
	DefenderID       string         `json:"defender_id"`
	RegionID         string         `json:"region_id"`
	TerritoryChanged bool           `json:"territory_changed"`
	Units            []UnitReport   `json:"units"`
	ResourcesLost    ResourceVector `json:"resources_lost"`
	DurationMs       int64          `json:"duration_ms"`
	StrategicValue   float64        `json:"strategic_value"`
}

// Region is a controllable territory. Contestation tracks defeated defenders
// that still hold surviving units inside the region.
type Region struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ControllerID    string   `json:"controller_id"`
	ContestedBy     []string `json:"contested_by"`
	StrategicWeight float64  `json:"strategic_weight"`
}

// Player is a participant in a session. Technology feeds the combat
// modifiers and is raised by RESEARCH actions, capped at 1.0.
type Player struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Technology float64 `json:"technology"`
	Active     bool    `json:"active"`
}
