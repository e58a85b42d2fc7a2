package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	return NewRepository(db)
}

func TestSaveAndQueryActions(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	for i, status := range []string{"COMPLETED", "FAILED", "CANCELLED"} {
		require.NoError(t, repo.SaveAction(&ActionRecord{
			SessionID:   "s1",
			ActionID:    string(rune('a' + i)),
			PlayerID:    "red",
			Type:        "BUILD",
			Status:      status,
			ProcessedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.SaveAction(&ActionRecord{
		SessionID: "s1", ActionID: "other", PlayerID: "blue", Type: "MOVE", Status: "COMPLETED", ProcessedAt: now,
	}))

	recs, err := repo.ActionsByPlayer("s1", "red", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Newest first.
	assert.Equal(t, "CANCELLED", recs[0].Status)
}

func TestPurgeExpiredActions(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	require.NoError(t, repo.SaveAction(&ActionRecord{SessionID: "s1", ActionID: "old", PlayerID: "red", ProcessedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.SaveAction(&ActionRecord{SessionID: "s1", ActionID: "fresh", PlayerID: "red", ProcessedAt: now}))

	removed, err := repo.PurgeExpiredActions(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recs, err := repo.ActionsByPlayer("s1", "red", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "fresh", recs[0].ActionID)
}

func TestRecentCombats(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveCombat(&CombatRecord{
			SessionID:  "s1",
			AttackerID: "red",
			DefenderID: "blue",
			RegionID:   "frontier",
			ResolvedAt: time.Now(),
		}))
	}
	require.NoError(t, repo.SaveCombat(&CombatRecord{SessionID: "s2", AttackerID: "x", DefenderID: "y"}))

	recs, err := repo.RecentCombats("s1", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

// The journal turns bus traffic into rows: every topic lands in the event
// table, processed actions and resolved combats additionally get structured
// records.
func TestJournalPersistsEventStream(t *testing.T) {
	repo := newTestRepo(t)
	bus := events.NewBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journal := NewJournal(repo)
	require.NoError(t, journal.Attach(ctx, bus))

	action := game.QueuedAction{
		ID:       "a1",
		PlayerID: "red",
		Type:     game.ActionAttack,
		Priority: 0.9,
		Status:   game.StatusCompleted,
	}
	require.NoError(t, events.Publish(ctx, bus, events.TopicActionProcessed, events.ActionProcessed{
		SessionID:  "s1",
		Action:     action,
		Status:     game.StatusCompleted,
		DurationMs: 12,
	}))
	require.NoError(t, events.Publish(ctx, bus, events.TopicCombatResolved, events.CombatResolved{
		SessionID: "s1",
		Result: game.CombatResult{
			AttackerID:       "red",
			DefenderID:       "blue",
			RegionID:         "frontier",
			TerritoryChanged: true,
			StrategicValue:   1012,
		},
	}))

	// Delivery is asynchronous; poll for the rows.
	deadline := time.Now().Add(2 * time.Second)
	for {
		actions, err := repo.ActionsByPlayer("s1", "red", 10)
		require.NoError(t, err)
		combats, err := repo.RecentCombats("s1", 10)
		require.NoError(t, err)
		if len(actions) == 1 && len(combats) == 1 {
			assert.Equal(t, "a1", actions[0].ActionID)
			assert.Equal(t, string(game.StatusCompleted), actions[0].Status)
			assert.True(t, combats[0].TerritoryChanged)
			assert.Equal(t, float64(1012), combats[0].StrategicValue)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal rows never appeared (actions=%d combats=%d)", len(actions), len(combats))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
