// Package clock owns the canonical cycle/phase counters of a session. A
// one-shot timer is armed per phase; a lower-frequency ticker compares the
// armed baseline against the canonical schedule derived from the game epoch
// and re-arms when drift exceeds the configured threshold, so timer latency
// never compounds across a long session.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
)

// Options tune the drift correction and total game length.
type Options struct {
	TotalCycles    int
	DriftInterval  time.Duration
	DriftThreshold time.Duration
	// OnFault receives repeated resync failures (a reportable, non-silent
	// condition). Optional.
	OnFault func(error)
}

// consecutive resync failures tolerated before reporting a fault upward
const faultReportAfter = 3

// CycleClock tracks elapsed real time, drives the strictly cyclic phase
// transitions and exposes cycle/phase snapshots. Pause and resume are
// idempotent; pausing never loses the remaining-time computation.
type CycleClock struct {
	session *game.GameSession
	sm      *StateMachine
	bus     events.Publisher
	opts    Options

	mu             sync.Mutex
	running        bool
	paused         bool
	completed      bool
	phase          game.Phase
	cycleID        int
	epoch          time.Time // game epoch, shifted forward by pause durations
	phaseStartedAt time.Time
	phaseEndsAt    time.Time
	pausedAt       time.Time
	pauseRemaining time.Duration
	timer          *time.Timer
	faultStreak    int
	faults         uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a clock over the given session, phase table and event bus.
func New(session *game.GameSession, sm *StateMachine, bus events.Publisher, opts Options) *CycleClock {
	if opts.DriftInterval <= 0 {
		opts.DriftInterval = 10 * time.Second
	}
	if opts.DriftThreshold <= 0 {
		opts.DriftThreshold = 100 * time.Millisecond
	}
	if opts.TotalCycles <= 0 {
		opts.TotalCycles = 8192
	}
	return &CycleClock{
		session: session,
		sm:      sm,
		bus:     bus,
		opts:    opts,
		phase:   game.PhasePreparation,
		stopCh:  make(chan struct{}),
	}
}

// Start arms the first phase timer and begins the scheduling loop. The
// initial phase is always PREPARATION of cycle 0.
func (c *CycleClock) Start() error {
	c.mu.Lock()
	if c.running || c.completed {
		c.mu.Unlock()
		return &game.SchedulingFault{Op: "start", Err: errAlreadyRunning}
	}
	now := time.Now()
	c.running = true
	c.paused = false
	c.cycleID = 0
	c.phase = game.PhasePreparation
	c.epoch = now
	c.phaseStartedAt = now
	c.phaseEndsAt = now.Add(c.sm.Config(c.phase).Duration)
	c.timer = time.NewTimer(c.sm.Config(c.phase).Duration)
	c.mu.Unlock()

	go c.run()

	ctx := context.Background()
	c.emit(ctx, events.TopicCycleStarted, events.CycleStarted{SessionID: c.session.ID, CycleID: 0, StartTime: now})
	c.emit(ctx, events.TopicPhaseStarted, events.PhaseStarted{SessionID: c.session.ID, CycleID: 0, Phase: game.PhasePreparation, EndsAt: c.phaseEndsAt})
	return nil
}

// Stop halts the scheduling loop permanently.
func (c *CycleClock) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.mu.Lock()
	c.running = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
}

// Pause cancels the armed phase timer without losing the remaining-time
// computation. Pausing an already paused (or never started) clock is a no-op.
func (c *CycleClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused || c.completed {
		return
	}
	now := time.Now()
	c.paused = true
	c.pausedAt = now
	c.pauseRemaining = c.phaseEndsAt.Sub(now)
	if c.pauseRemaining < 0 {
		c.pauseRemaining = 0
	}
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
}

// Resume re-arms the phase timer from the captured remaining time — never a
// fresh full duration — and shifts the game epoch by the pause duration so
// drift correction stays consistent. Resume without a prior Pause is a no-op.
func (c *CycleClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.paused || c.completed {
		return
	}
	now := time.Now()
	pauseDur := now.Sub(c.pausedAt)
	c.epoch = c.epoch.Add(pauseDur)
	c.phaseEndsAt = now.Add(c.pauseRemaining)
	c.phaseStartedAt = c.phaseEndsAt.Add(-c.sm.Config(c.phase).Duration)
	c.paused = false
	c.pausedAt = time.Time{}
	c.timer.Reset(c.pauseRemaining)
}

// CurrentCycle returns a snapshot of the canonical counters.
func (c *CycleClock) CurrentCycle() game.Cycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	total, active := c.session.PlayerCounts()
	return game.Cycle{
		CycleID:           c.cycleID,
		StartTime:         c.epoch.Add(time.Duration(c.cycleID) * c.sm.CycleLength()),
		Phase:             c.phase,
		PhaseEndTime:      c.phaseEndsAt,
		TotalPlayers:      total,
		ActivePlayerCount: active,
	}
}

// PhaseTimeRemaining reports how much of the active phase is left. While
// paused it returns the frozen remainder.
func (c *CycleClock) PhaseTimeRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return 0
	}
	if c.paused {
		return c.pauseRemaining
	}
	d := time.Until(c.phaseEndsAt)
	if d < 0 {
		d = 0
	}
	return d
}

// Completed reports whether the configured cycle count has been exhausted.
func (c *CycleClock) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Faults returns the number of recorded scheduling faults.
func (c *CycleClock) Faults() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faults
}

func (c *CycleClock) run() {
	drift := time.NewTicker(c.opts.DriftInterval)
	defer drift.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.timer.C:
			if done := c.advance(); done {
				return
			}
		case <-drift.C:
			c.resync()
		}
	}
}

// advance moves to the next phase, wrapping cycles and entering COMPLETED
// when the configured total is reached. The new phase baseline is the
// previous phase's scheduled end, not time.Now(), so callback latency does
// not accumulate.
func (c *CycleClock) advance() bool {
	ctx := context.Background()
	c.mu.Lock()
	if c.paused || !c.running || c.completed {
		c.mu.Unlock()
		return false
	}
	ended := events.PhaseEnded{SessionID: c.session.ID, CycleID: c.cycleID, Phase: c.phase}
	next, wrap := NextPhase(c.phase)

	if wrap && c.cycleID+1 >= c.opts.TotalCycles {
		c.completed = true
		c.phase = game.PhaseCompleted
		c.running = false
		completedAt := c.phaseEndsAt
		cycleID := c.cycleID
		c.mu.Unlock()
		c.emit(ctx, events.TopicPhaseEnded, ended)
		c.emit(ctx, events.TopicGameCompleted, events.GameCompleted{SessionID: c.session.ID, CycleID: cycleID, CompletedAt: completedAt})
		c.stopOnce.Do(func() { close(c.stopCh) })
		return true
	}

	var started events.CycleStarted
	if wrap {
		c.cycleID++
		started = events.CycleStarted{SessionID: c.session.ID, CycleID: c.cycleID, StartTime: c.phaseEndsAt}
	}
	c.phase = next
	dur := c.sm.Config(next).Duration
	c.phaseStartedAt = c.phaseEndsAt
	c.phaseEndsAt = c.phaseStartedAt.Add(dur)
	wait := time.Until(c.phaseEndsAt)
	if wait < 0 {
		wait = 0
	}
	c.timer.Reset(wait)
	phaseEv := events.PhaseStarted{SessionID: c.session.ID, CycleID: c.cycleID, Phase: next, EndsAt: c.phaseEndsAt}
	c.mu.Unlock()

	c.emit(ctx, events.TopicPhaseEnded, ended)
	if wrap {
		c.emit(ctx, events.TopicCycleStarted, started)
	}
	c.emit(ctx, events.TopicPhaseStarted, phaseEv)
	return false
}

// resync compares the armed phase baseline against the canonical schedule
// and re-arms the timer from the corrected baseline when drift exceeds the
// threshold. Order is never affected, only timing.
func (c *CycleClock) resync() {
	c.mu.Lock()
	if c.paused || !c.running || c.completed {
		c.mu.Unlock()
		return
	}
	canonical := c.epoch.Add(time.Duration(c.cycleID)*c.sm.CycleLength() + c.sm.PhaseOffset(c.phase))
	drift := c.phaseStartedAt.Sub(canonical)
	if drift < 0 {
		drift = -drift
	}
	if drift <= c.opts.DriftThreshold {
		c.faultStreak = 0
		c.mu.Unlock()
		return
	}

	// A slip beyond a full cycle cannot be corrected by re-arming; accept
	// the new baseline and count it as a resync failure.
	var fault error
	if drift > c.sm.CycleLength() {
		c.epoch = time.Now().Add(-(time.Duration(c.cycleID)*c.sm.CycleLength() + c.sm.PhaseOffset(c.phase)))
		canonical = c.epoch.Add(time.Duration(c.cycleID)*c.sm.CycleLength() + c.sm.PhaseOffset(c.phase))
		c.faultStreak++
		c.faults++
		if c.faultStreak >= faultReportAfter {
			fault = &game.SchedulingFault{Op: "resync", Err: errUncorrectableDrift}
		}
	} else {
		c.faultStreak = 0
	}

	dur := c.sm.Config(c.phase).Duration
	c.phaseStartedAt = canonical
	c.phaseEndsAt = canonical.Add(dur)
	wait := time.Until(c.phaseEndsAt)
	if wait < 0 {
		wait = 0
	}
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timer.Reset(wait)
	driftMs := drift.Milliseconds()
	phase := c.phase
	onFault := c.opts.OnFault
	c.mu.Unlock()

	logging.Debug("phase timer re-armed after drift", logging.Fields{
		constants.LogFieldSessionID: c.session.ID,
		constants.LogFieldDrift:     driftMs,
		constants.LogFieldPhase:     string(phase),
	})
	if fault != nil {
		logging.Error("repeated resync failure", fault, logging.Fields{constants.LogFieldSessionID: c.session.ID})
		if onFault != nil {
			onFault(fault)
		}
	}
}

func (c *CycleClock) emit(ctx context.Context, topic string, payload any) {
	if c.bus == nil {
		return
	}
	if err := events.Publish(ctx, c.bus, topic, payload); err != nil {
		logging.Error("failed to publish clock event", err, logging.Fields{"topic": topic})
	}
}
