package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rmoreas/warcycle/internal/events"
)

// Journal persists the session's event stream. It runs entirely off the hot
// path: delivery happens on the bus's subscriber goroutines, and a write
// failure nacks the message without touching game state.
type Journal struct {
	repo Repository
}

// NewJournal builds a journal over the given repository.
func NewJournal(repo Repository) *Journal {
	return &Journal{repo: repo}
}

// Attach subscribes the journal to the full topic set plus the typed action
// and combat streams. Subscriptions last until ctx is cancelled.
func (j *Journal) Attach(ctx context.Context, sub events.Subscriber) error {
	for _, topic := range events.Topics {
		if err := sub.Subscribe(ctx, topic, j.recordEvent); err != nil {
			return err
		}
	}
	if err := events.Subscribe(ctx, sub, events.TopicActionProcessed, j.recordAction); err != nil {
		return err
	}
	return events.Subscribe(ctx, sub, events.TopicCombatResolved, j.recordCombat)
}

func (j *Journal) recordEvent(_ context.Context, msg events.Message) error {
	var env struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(msg.Payload, &env)
	return j.repo.SaveEvent(&EventRecord{
		SessionID: env.SessionID,
		Topic:     msg.Topic,
		Payload:   string(msg.Payload),
		EmittedAt: time.Now(),
	})
}

func (j *Journal) recordAction(_ context.Context, ev events.ActionProcessed) error {
	payload, err := json.Marshal(ev.Action.Payload)
	if err != nil {
		return err
	}
	return j.repo.SaveAction(&ActionRecord{
		SessionID:   ev.SessionID,
		ActionID:    ev.Action.ID,
		PlayerID:    ev.Action.PlayerID,
		Type:        string(ev.Action.Type),
		Priority:    ev.Action.Priority,
		Status:      string(ev.Status),
		Reason:      ev.Reason,
		Payload:     string(payload),
		SubmittedAt: ev.Action.SubmittedAt,
		ProcessedAt: time.Now(),
		DurationMs:  ev.DurationMs,
	})
}

func (j *Journal) recordCombat(_ context.Context, ev events.CombatResolved) error {
	lost, err := json.Marshal(ev.Result.ResourcesLost)
	if err != nil {
		return err
	}
	units, err := json.Marshal(ev.Result.Units)
	if err != nil {
		return err
	}
	return j.repo.SaveCombat(&CombatRecord{
		SessionID:        ev.SessionID,
		AttackerID:       ev.Result.AttackerID,
		DefenderID:       ev.Result.DefenderID,
		RegionID:         ev.Result.RegionID,
		TerritoryChanged: ev.Result.TerritoryChanged,
		StrategicValue:   ev.Result.StrategicValue,
		ResourcesLost:    string(lost),
		Units:            string(units),
		DurationMs:       ev.Result.DurationMs,
		ResolvedAt:       time.Now(),
	})
}
