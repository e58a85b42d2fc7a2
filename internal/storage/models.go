// Package storage persists the audit trail of a session: processed actions,
// resolved combats and the raw event stream. The core never reads this data
// back on the hot path; it exists for operators and post-game analysis.
package storage

import (
	"time"

	"gorm.io/gorm"
)

// ActionRecord is the persisted terminal state of a queued action.
type ActionRecord struct {
	gorm.Model
	SessionID   string  `gorm:"index"`
	ActionID    string  `gorm:"uniqueIndex"`
	PlayerID    string  `gorm:"index"`
	Type        string
	Priority    float64
	Status      string
	Reason      string
	Payload     string // JSON-encoded ActionPayload
	SubmittedAt time.Time
	ProcessedAt time.Time `gorm:"index"`
	DurationMs  int64
}

// CombatRecord is the persisted summary of a resolved encounter.
type CombatRecord struct {
	gorm.Model
	SessionID        string `gorm:"index"`
	AttackerID       string
	DefenderID       string
	RegionID         string `gorm:"index"`
	TerritoryChanged bool
	StrategicValue   float64
	ResourcesLost    string // JSON-encoded ResourceVector
	Units            string // JSON-encoded []UnitReport
	DurationMs       int64
	ResolvedAt       time.Time
}

// EventRecord journals every message that crossed the bus, payload verbatim.
type EventRecord struct {
	gorm.Model
	SessionID string `gorm:"index"`
	Topic     string `gorm:"index"`
	Payload   string
	EmittedAt time.Time
}
