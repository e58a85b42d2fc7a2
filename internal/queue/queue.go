// Package queue implements the prioritized action queue and its
// single-consumer drain loop. Submissions from any goroutine are validated
// against the current phase window; execution happens only on the drain
// goroutine, which is the sole mutator of session state.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rmoreas/warcycle/internal/clock"
	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/economy"
	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
)

// Handler executes one accepted action of a given type. Handlers run on the
// drain goroutine and may freely mutate the session. A returned error fails
// the action with its message as the reason.
type Handler func(ctx context.Context, action *game.QueuedAction) error

// entry is a queued action plus the window it was accepted in, so a later
// failure refunds the point against the right budget.
type entry struct {
	action      *game.QueuedAction
	seq         uint64
	acceptCycle int
	acceptPhase game.Phase
	costPaid    bool
	finishedAt  time.Time
	index       int // heap index, -1 once removed
}

// priorityHeap orders entries by descending priority; equal priorities stay
// in submission order.
type priorityHeap []*entry

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].action.Priority != h[j].action.Priority {
		return h[i].action.Priority > h[j].action.Priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *priorityHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// ActionQueue validates, orders and drains player and AI submissions.
type ActionQueue struct {
	session  *game.GameSession
	sm       *clock.StateMachine
	clk      *clock.CycleClock
	ledger   economy.Ledger
	bus      events.Publisher
	validate *validator.Validate

	drainInterval time.Duration

	mu       sync.Mutex
	pending  priorityHeap
	records  map[string]*entry
	handlers map[game.ActionType]Handler
	seq      uint64
	paused   bool
}

// New builds a queue over the shared session aggregate.
func New(session *game.GameSession, sm *clock.StateMachine, clk *clock.CycleClock, ledger economy.Ledger, bus events.Publisher, drainInterval time.Duration) *ActionQueue {
	if drainInterval <= 0 {
		drainInterval = 100 * time.Millisecond
	}
	return &ActionQueue{
		session:       session,
		sm:            sm,
		clk:           clk,
		ledger:        ledger,
		bus:           bus,
		validate:      validator.New(),
		drainInterval: drainInterval,
		records:       make(map[string]*entry),
		handlers:      make(map[game.ActionType]Handler),
	}
}

// Register installs the executor for an action type. Must be called before
// Run; there is no locking against in-flight drains.
func (q *ActionQueue) Register(t game.ActionType, h Handler) {
	q.handlers[t] = h
}

// Submit validates a submission against the current phase window and, on
// success, enqueues it and returns the stored action with its assigned ID.
// Rejections return a *game.ValidationError carrying the human-readable
// reason; the same reason is published as an ActionRejected event.
func (q *ActionQueue) Submit(ctx context.Context, a *game.QueuedAction) (*game.QueuedAction, error) {
	if err := q.validate.Struct(a); err != nil {
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonMalformedSubmissionFmt, err))
	}
	if q.clk.Completed() {
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonGameCompleted))
	}
	if _, ok := q.session.Player(a.PlayerID); !ok {
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonUnknownPlayerFmt, a.PlayerID))
	}

	current := q.clk.CurrentCycle()
	if !q.sm.IsLegal(current.Phase, a.Type) {
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonPhaseMismatchFmt, a.Type, current.Phase))
	}
	if !q.session.ConsumeActionPoint(current.CycleID, current.Phase, a.PlayerID, q.sm.MaxActions(current.Phase)) {
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonNoActionsRemaining))
	}
	if a.Payload.Resources != nil && !q.ledger.Balance(a.PlayerID).Covers(*a.Payload.Resources) {
		q.session.RefundActionPoint(current.CycleID, current.Phase, a.PlayerID)
		return nil, q.reject(ctx, a, game.NewValidationError(constants.ReasonInsufficientResources))
	}

	a.ID = uuid.NewString()
	a.SubmittedAt = time.Now()
	a.Status = game.StatusQueued

	q.mu.Lock()
	q.seq++
	e := &entry{action: a, seq: q.seq, acceptCycle: current.CycleID, acceptPhase: current.Phase}
	heap.Push(&q.pending, e)
	q.records[a.ID] = e
	q.mu.Unlock()

	q.emit(ctx, events.TopicActionAccepted, events.ActionAccepted{
		SessionID: q.session.ID,
		ActionID:  a.ID,
		PlayerID:  a.PlayerID,
		Type:      a.Type,
		Priority:  a.Priority,
	})
	return a, nil
}

// Cancel removes a still-queued action before the drain loop reaches it and
// refunds its action point. Actions already processing or terminal cannot be
// cancelled.
func (q *ActionQueue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	e, ok := q.records[id]
	if !ok || e.action.Status != game.StatusQueued || e.index < 0 {
		q.mu.Unlock()
		return game.NewValidationError(constants.ReasonActionNotQueuedFmt, id)
	}
	heap.Remove(&q.pending, e.index)
	e.action.Status = game.StatusCancelled
	e.action.Reason = constants.ReasonCancelledByProducer
	e.finishedAt = time.Now()
	q.mu.Unlock()

	q.session.RefundActionPoint(e.acceptCycle, e.acceptPhase, e.action.PlayerID)
	q.emit(ctx, events.TopicActionProcessed, events.ActionProcessed{
		SessionID: q.session.ID,
		Action:    *e.action,
		Status:    game.StatusCancelled,
		Reason:    constants.ReasonCancelledByProducer,
	})
	return nil
}

// Action returns a snapshot of a known action by ID.
func (q *ActionQueue) Action(id string) (game.QueuedAction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.records[id]
	if !ok {
		return game.QueuedAction{}, false
	}
	return *e.action, true
}

// Len reports how many actions are awaiting execution.
func (q *ActionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Pause suspends draining; submissions continue to queue.
func (q *ActionQueue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume restarts draining.
func (q *ActionQueue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
}

// Run drains the queue, one action per tick, until ctx is cancelled. It is
// the single consumer: handlers never run concurrently with each other.
func (q *ActionQueue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.processNext(ctx)
		}
	}
}

// processNext pops the highest-priority action and executes it. Legality is
// re-checked at processing time: an action accepted late in a phase can land
// in the next one, where it must fail rather than run out of window.
func (q *ActionQueue) processNext(ctx context.Context) {
	q.mu.Lock()
	if q.paused || q.pending.Len() == 0 {
		q.mu.Unlock()
		return
	}
	e := heap.Pop(&q.pending).(*entry)
	e.action.Status = game.StatusProcessing
	q.mu.Unlock()

	started := time.Now()
	a := e.action

	if q.clk.Completed() {
		q.fail(ctx, e, started, game.NewValidationError(constants.ReasonGameCompleted).Error())
		return
	}
	current := q.clk.CurrentCycle()
	if !q.sm.IsLegal(current.Phase, a.Type) {
		q.fail(ctx, e, started, game.NewValidationError(constants.ReasonPhaseMismatchFmt, a.Type, current.Phase).Error())
		return
	}
	if a.Payload.Resources != nil {
		cost := *a.Payload.Resources
		if !q.ledger.Balance(a.PlayerID).Covers(cost) {
			q.fail(ctx, e, started, game.NewValidationError(constants.ReasonInsufficientResources).Error())
			return
		}
		if err := q.ledger.Subtract(a.PlayerID, cost); err != nil {
			q.fail(ctx, e, started, err.Error())
			return
		}
		e.costPaid = true
	}

	handler, ok := q.handlers[a.Type]
	if !ok {
		q.refundCost(e)
		q.fail(ctx, e, started, game.NewValidationError(constants.ReasonNoHandlerFmt, a.Type).Error())
		return
	}

	if err := q.execute(ctx, handler, a); err != nil {
		q.refundCost(e)
		q.fail(ctx, e, started, err.Error())
		return
	}

	q.mu.Lock()
	a.Status = game.StatusCompleted
	e.finishedAt = time.Now()
	q.mu.Unlock()
	q.emit(ctx, events.TopicActionProcessed, events.ActionProcessed{
		SessionID:  q.session.ID,
		Action:     *a,
		Status:     game.StatusCompleted,
		DurationMs: time.Since(started).Milliseconds(),
	})
}

// execute runs the handler with panic recovery, so one bad executor cannot
// kill the drain loop.
func (q *ActionQueue) execute(ctx context.Context, handler Handler, a *game.QueuedAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("action executor panicked", nil, logging.Fields{
				constants.LogFieldActionID: a.ID,
				constants.LogFieldPlayerID: a.PlayerID,
				"panic":                    r,
			})
			err = game.NewValidationError(constants.ReasonExecutorPanicFmt, r)
		}
	}()
	return handler(ctx, a)
}

func (q *ActionQueue) refundCost(e *entry) {
	if e.costPaid && e.action.Payload.Resources != nil {
		if err := q.ledger.Add(e.action.PlayerID, *e.action.Payload.Resources); err != nil {
			logging.Error("failed to refund action cost", err, logging.Fields{constants.LogFieldActionID: e.action.ID})
		}
		e.costPaid = false
	}
}

// fail marks the action FAILED, refunds its action point, and publishes the
// terminal event with the human-readable reason.
func (q *ActionQueue) fail(ctx context.Context, e *entry, started time.Time, reason string) {
	q.mu.Lock()
	e.action.Status = game.StatusFailed
	e.action.Reason = reason
	e.finishedAt = time.Now()
	q.mu.Unlock()

	q.session.RefundActionPoint(e.acceptCycle, e.acceptPhase, e.action.PlayerID)
	q.emit(ctx, events.TopicActionProcessed, events.ActionProcessed{
		SessionID:  q.session.ID,
		Action:     *e.action,
		Status:     game.StatusFailed,
		Reason:     reason,
		DurationMs: time.Since(started).Milliseconds(),
	})
}

// PurgeTerminal drops terminal action records finished before the cutoff and
// returns how many were removed. Queued and processing actions are never
// touched.
func (q *ActionQueue) PurgeTerminal(before time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, e := range q.records {
		if e.action.Status.Terminal() && !e.finishedAt.IsZero() && e.finishedAt.Before(before) {
			delete(q.records, id)
			removed++
		}
	}
	return removed
}

// reject publishes the rejection event and passes the error through.
func (q *ActionQueue) reject(ctx context.Context, a *game.QueuedAction, verr *game.ValidationError) error {
	q.emit(ctx, events.TopicActionRejected, events.ActionRejected{
		SessionID: q.session.ID,
		PlayerID:  a.PlayerID,
		Type:      a.Type,
		Reason:    verr.Reason,
	})
	return verr
}

func (q *ActionQueue) emit(ctx context.Context, topic string, payload any) {
	if q.bus == nil {
		return
	}
	if err := events.Publish(ctx, q.bus, topic, payload); err != nil {
		logging.Error("failed to publish queue event", err, logging.Fields{"topic": topic})
	}
}
