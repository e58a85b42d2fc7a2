package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rmoreas/warcycle/internal/clock"
	"github.com/rmoreas/warcycle/internal/economy"
	"github.com/rmoreas/warcycle/internal/game"
)

// hourLongPhases keeps the clock parked in PREPARATION so tests control the
// active phase instead of racing it.
func hourLongPhases() map[game.Phase]game.PhaseConfig {
	return map[game.Phase]game.PhaseConfig{
		game.PhasePreparation: {
			Duration:            time.Hour,
			MaxActionsPerPlayer: 10,
			LegalActions:        []game.ActionType{game.ActionBuild, game.ActionResearch, game.ActionEconomic},
		},
		game.PhaseAction: {
			Duration:            time.Hour,
			MaxActionsPerPlayer: 10,
			LegalActions:        []game.ActionType{game.ActionMove, game.ActionAttack},
		},
		game.PhaseResolution:   {Duration: time.Hour, MaxActionsPerPlayer: 5, LegalActions: []game.ActionType{game.ActionEconomic}},
		game.PhaseIntermission: {Duration: time.Hour},
	}
}

type fixture struct {
	session *game.GameSession
	clk     *clock.CycleClock
	ledger  *economy.MemoryLedger
	queue   *ActionQueue
}

func newFixture(t *testing.T, phases map[game.Phase]game.PhaseConfig) *fixture {
	t.Helper()
	sm, err := clock.NewStateMachine(phases)
	if err != nil {
		t.Fatalf("state machine: %v", err)
	}
	session := game.NewSession("test")
	session.AddPlayer(&game.Player{ID: "red", Name: "Red"})
	clk := clock.New(session, sm, nil, clock.Options{TotalCycles: 8192})
	if err := clk.Start(); err != nil {
		t.Fatalf("clock start: %v", err)
	}
	t.Cleanup(clk.Stop)

	ledger := economy.NewMemoryLedger()
	q := New(session, sm, clk, ledger, nil, 5*time.Millisecond)
	return &fixture{session: session, clk: clk, ledger: ledger, queue: q}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.queue.Run(ctx)
}

func buildAction(player string, priority float64) *game.QueuedAction {
	return &game.QueuedAction{
		PlayerID: player,
		Type:     game.ActionBuild,
		Priority: priority,
	}
}

func waitStatus(t *testing.T, q *ActionQueue, id string, want game.ActionStatus) game.QueuedAction {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a, ok := q.Action(id); ok && a.Status == want {
			return a
		}
		time.Sleep(2 * time.Millisecond)
	}
	a, _ := q.Action(id)
	t.Fatalf("action %s never reached %s (last seen %s, reason %q)", id, want, a.Status, a.Reason)
	return game.QueuedAction{}
}

func TestSubmitRejectsPhaseMismatch(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	_, err := f.queue.Submit(context.Background(), &game.QueuedAction{PlayerID: "red", Type: game.ActionAttack})
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "phase mismatch") {
		t.Fatalf("reason %q does not name the phase mismatch", verr.Reason)
	}
	if !strings.Contains(verr.Reason, string(game.ActionAttack)) || !strings.Contains(verr.Reason, string(game.PhasePreparation)) {
		t.Fatalf("reason %q must name the action type and the active phase", verr.Reason)
	}
	// Rejections never consume the budget.
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 0 {
		t.Fatalf("rejected submission consumed %d action points", used)
	}
}

func TestSubmitRejectsWhenBudgetExhausted(t *testing.T) {
	phases := hourLongPhases()
	prep := phases[game.PhasePreparation]
	prep.MaxActionsPerPlayer = 2
	phases[game.PhasePreparation] = prep
	f := newFixture(t, phases)

	for i := 0; i < 2; i++ {
		if _, err := f.queue.Submit(context.Background(), buildAction("red", 0.5)); err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
	}
	depth := f.queue.Len()
	_, err := f.queue.Submit(context.Background(), buildAction("red", 0.5))
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "no actions remaining") {
		t.Fatalf("reason %q does not say the budget is gone", verr.Reason)
	}
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 2 {
		t.Fatalf("budget = %d, want 2", used)
	}
	if got := f.queue.Len(); got != depth {
		t.Fatalf("rejection changed queue length: %d -> %d", depth, got)
	}
}

func TestSubmitRejectsMalformedAndUnknown(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	ctx := context.Background()

	if _, err := f.queue.Submit(ctx, &game.QueuedAction{Type: game.ActionBuild}); err == nil {
		t.Fatalf("missing player must be rejected")
	}
	if _, err := f.queue.Submit(ctx, &game.QueuedAction{PlayerID: "red", Type: "SABOTAGE"}); err == nil {
		t.Fatalf("unknown action type must be rejected")
	}
	if _, err := f.queue.Submit(ctx, &game.QueuedAction{PlayerID: "red", Type: game.ActionBuild, Priority: 1.5}); err == nil {
		t.Fatalf("out-of-range priority must be rejected")
	}
	if _, err := f.queue.Submit(ctx, buildAction("ghost", 0.5)); err == nil {
		t.Fatalf("unknown player must be rejected")
	}
}

func TestSubmitRejectsUncoveredCost(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	cost := game.ResourceVector{Materials: 100}
	a := buildAction("red", 0.5)
	a.Payload.Resources = &cost

	_, err := f.queue.Submit(context.Background(), a)
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "insufficient resources") {
		t.Fatalf("reason %q does not name the resource shortfall", verr.Reason)
	}
	// The point consumed before the balance check must come back.
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 0 {
		t.Fatalf("failed submission leaked %d action points", used)
	}
}

// Drain order is priority descending, FIFO within equal priorities.
func TestDrainOrderPriorityThenFIFO(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	var mu sync.Mutex
	var order []string
	f.queue.Register(game.ActionBuild, func(_ context.Context, a *game.QueuedAction) error {
		mu.Lock()
		order = append(order, a.ID)
		mu.Unlock()
		return nil
	})

	f.queue.Pause()
	f.run(t)

	ctx := context.Background()
	low, err := f.queue.Submit(ctx, buildAction("red", 0.2))
	if err != nil {
		t.Fatalf("submit low: %v", err)
	}
	highFirst, err := f.queue.Submit(ctx, buildAction("red", 0.9))
	if err != nil {
		t.Fatalf("submit high first: %v", err)
	}
	highSecond, err := f.queue.Submit(ctx, buildAction("red", 0.9))
	if err != nil {
		t.Fatalf("submit high second: %v", err)
	}

	f.queue.Resume()
	waitStatus(t, f.queue, low.ID, game.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	want := []string{highFirst.ID, highSecond.ID, low.ID}
	if len(order) != 3 {
		t.Fatalf("processed %d actions, want 3", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drain order %v, want %v", order, want)
		}
	}
}

// A panicking executor fails its own action, refunds the point, and leaves
// the drain loop alive for the next one.
func TestHandlerPanicFailsActionOnly(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	calls := 0
	f.queue.Register(game.ActionBuild, func(_ context.Context, a *game.QueuedAction) error {
		calls++
		if calls == 1 {
			panic("executor bug")
		}
		return nil
	})
	f.run(t)

	ctx := context.Background()
	first, err := f.queue.Submit(ctx, buildAction("red", 0.9))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	failed := waitStatus(t, f.queue, first.ID, game.StatusFailed)
	if !strings.Contains(failed.Reason, "panicked") {
		t.Fatalf("reason %q does not mention the panic", failed.Reason)
	}

	second, err := f.queue.Submit(ctx, buildAction("red", 0.9))
	if err != nil {
		t.Fatalf("submit after panic: %v", err)
	}
	waitStatus(t, f.queue, second.ID, game.StatusCompleted)

	// One completed action outstanding, the panicked one refunded.
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 1 {
		t.Fatalf("budget = %d after refund, want 1", used)
	}
}

func TestCancelQueuedAction(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	f.queue.Pause()
	f.run(t)

	ctx := context.Background()
	a, err := f.queue.Submit(ctx, buildAction("red", 0.5))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.queue.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := f.queue.Action(a.ID)
	if got.Status != game.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 0 {
		t.Fatalf("cancelled action kept %d points", used)
	}
	if err := f.queue.Cancel(ctx, a.ID); err == nil {
		t.Fatalf("double cancel must fail")
	}
	if err := f.queue.Cancel(ctx, "missing"); err == nil {
		t.Fatalf("cancelling an unknown action must fail")
	}
}

// An action accepted late in one phase and drained in the next must fail the
// processing-time legality re-check rather than execute out of window.
func TestProcessingRechecksPhase(t *testing.T) {
	phases := hourLongPhases()
	prep := phases[game.PhasePreparation]
	prep.Duration = 30 * time.Millisecond
	phases[game.PhasePreparation] = prep
	f := newFixture(t, phases)

	f.queue.Register(game.ActionBuild, func(_ context.Context, a *game.QueuedAction) error { return nil })
	f.queue.Pause()
	f.run(t)

	a, err := f.queue.Submit(context.Background(), buildAction("red", 0.5))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Wait for the clock to move into ACTION, then let the drain loop go.
	deadline := time.Now().Add(2 * time.Second)
	for f.clk.CurrentCycle().Phase != game.PhaseAction {
		if time.Now().After(deadline) {
			t.Fatalf("clock never reached ACTION")
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.queue.Resume()

	failed := waitStatus(t, f.queue, a.ID, game.StatusFailed)
	if !strings.Contains(failed.Reason, "phase mismatch") {
		t.Fatalf("reason %q does not name the phase mismatch", failed.Reason)
	}
	// The refund goes back to the window the action was accepted in.
	if used := f.session.ActionsUsed(0, game.PhasePreparation, "red"); used != 0 {
		t.Fatalf("budget = %d after refund, want 0", used)
	}
}

// PurgeTerminal drops only finished records past the cutoff.
func TestPurgeTerminal(t *testing.T) {
	f := newFixture(t, hourLongPhases())
	f.queue.Register(game.ActionBuild, func(_ context.Context, a *game.QueuedAction) error { return nil })
	f.run(t)

	done, err := f.queue.Submit(context.Background(), buildAction("red", 0.9))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitStatus(t, f.queue, done.ID, game.StatusCompleted)

	f.queue.Pause()
	queued, err := f.queue.Submit(context.Background(), buildAction("red", 0.1))
	if err != nil {
		t.Fatalf("submit queued: %v", err)
	}

	if removed := f.queue.PurgeTerminal(time.Now().Add(time.Second)); removed != 1 {
		t.Fatalf("purged %d records, want 1", removed)
	}
	if _, ok := f.queue.Action(done.ID); ok {
		t.Fatalf("terminal record survived the purge")
	}
	if _, ok := f.queue.Action(queued.ID); !ok {
		t.Fatalf("queued record was purged")
	}
}
