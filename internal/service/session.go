// Package service wires a session's collaborators together and exposes the
// operations the HTTP adapter and CLI call: lifecycle control, submissions
// and snapshots.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmoreas/warcycle/internal/clock"
	"github.com/rmoreas/warcycle/internal/config"
	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/economy"
	"github.com/rmoreas/warcycle/internal/engine"
	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
	"github.com/rmoreas/warcycle/internal/queue"
	"github.com/rmoreas/warcycle/internal/storage"
	"github.com/rmoreas/warcycle/internal/territory"
)

// Session owns one running game: the shared aggregate plus the clock, queue,
// resolver, updater, ledger and bus built around it.
type Session struct {
	ID  string
	cfg *config.Config

	game     *game.GameSession
	sm       *clock.StateMachine
	clk      *clock.CycleClock
	bus      *events.Bus
	queue    *queue.ActionQueue
	resolver *engine.Resolver
	updater  *territory.Updater
	ledger   economy.Ledger
	rng      engine.RandomSource
	repo     storage.Repository

	faultMu   sync.Mutex
	lastFault error

	cancel context.CancelFunc
}

// NewSession assembles a session from the validated configuration. repo may
// be nil, in which case nothing is journaled. seed pins the combat RNG for
// reproducible runs; pass 0 for a time-derived seed.
func NewSession(id string, cfg *config.Config, repo storage.Repository, seed int64) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sm, err := clock.NewStateMachine(cfg.Phases)
	if err != nil {
		return nil, err
	}

	gs := game.NewSession(id)
	bus := events.NewBus()
	ledger := economy.NewMemoryLedger()

	s := &Session{
		ID:       id,
		cfg:      cfg,
		game:     gs,
		sm:       sm,
		bus:      bus,
		resolver: engine.New(cfg.Combat),
		updater:  territory.New(bus),
		ledger:   ledger,
		rng:      engine.NewSeeded(seed),
		repo:     repo,
	}
	s.clk = clock.New(gs, sm, bus, clock.Options{
		TotalCycles:    cfg.TotalCycles,
		DriftInterval:  cfg.DriftCheckInterval,
		DriftThreshold: cfg.DriftThreshold,
		OnFault:        s.recordFault,
	})
	s.queue = queue.New(gs, sm, s.clk, ledger, bus, cfg.DrainInterval)
	s.registerHandlers()
	return s, nil
}

// recordFault keeps the latest scheduling fault on the session surface so
// operators see it in status reads, not only in the logs. The clock calls it
// after repeated resync failures.
func (s *Session) recordFault(err error) {
	s.faultMu.Lock()
	s.lastFault = err
	s.faultMu.Unlock()
	logging.Error("session scheduling fault", err, logging.Fields{constants.LogFieldSessionID: s.ID})
}

// LastFault returns the most recent scheduling fault, or nil.
func (s *Session) LastFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.lastFault
}

// Start begins the clock, the drain loop, the journal and the retention
// scanner. The session runs until Stop.
func (s *Session) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.repo != nil {
		journal := storage.NewJournal(s.repo)
		if err := journal.Attach(ctx, s.bus); err != nil {
			cancel()
			return err
		}
	}
	if err := s.clk.Start(); err != nil {
		cancel()
		return err
	}
	go s.queue.Run(ctx)
	go s.runRetention(ctx)

	logging.Info("session started", logging.Fields{
		constants.LogFieldSessionID: s.ID,
		"total_cycles":              s.cfg.TotalCycles,
		"cycle_length":              s.sm.CycleLength().String(),
	})
	return nil
}

// Pause freezes the clock and suspends draining. Submissions still queue.
func (s *Session) Pause() {
	s.clk.Pause()
	s.queue.Pause()
	logging.Info("session paused", logging.Fields{constants.LogFieldSessionID: s.ID})
}

// Resume continues from the frozen remainder.
func (s *Session) Resume() {
	s.clk.Resume()
	s.queue.Resume()
	logging.Info("session resumed", logging.Fields{constants.LogFieldSessionID: s.ID})
}

// Stop halts everything; the session cannot be restarted.
func (s *Session) Stop() {
	s.clk.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.bus.Close(); err != nil {
		logging.Warn("bus close failed", logging.Fields{"error": err.Error()})
	}
}

// Submit validates and enqueues one action.
func (s *Session) Submit(ctx context.Context, a *game.QueuedAction) (*game.QueuedAction, error) {
	return s.queue.Submit(ctx, a)
}

// CancelAction removes a queued action before execution.
func (s *Session) CancelAction(ctx context.Context, id string) error {
	return s.queue.Cancel(ctx, id)
}

// Action returns the tracked state of a submitted action.
func (s *Session) Action(id string) (game.QueuedAction, bool) {
	return s.queue.Action(id)
}

// Snapshot returns the canonical cycle counters.
func (s *Session) Snapshot() game.Cycle {
	return s.clk.CurrentCycle()
}

// PhaseTimeRemaining reports the time left in the active phase.
func (s *Session) PhaseTimeRemaining() time.Duration {
	return s.clk.PhaseTimeRemaining()
}

// Completed reports whether the configured cycle count is exhausted.
func (s *Session) Completed() bool {
	return s.clk.Completed()
}

// Bus exposes the event stream for external subscribers.
func (s *Session) Bus() events.Subscriber {
	return s.bus
}

// AddPlayer registers a participant and grants the starting balance.
func (s *Session) AddPlayer(p *game.Player, starting game.ResourceVector) error {
	s.game.AddPlayer(p)
	if !starting.IsZero() {
		return s.ledger.Add(p.ID, starting)
	}
	return nil
}

// AddRegion registers a territory.
func (s *Session) AddRegion(r *game.Region) {
	s.game.AddRegion(r)
}

// AddUnit places a unit.
func (s *Session) AddUnit(u *game.Unit) {
	s.game.AddUnit(u)
}

// Game exposes the underlying aggregate for snapshot reads.
func (s *Session) Game() *game.GameSession {
	return s.game
}

// Balance reads a player's resource holdings.
func (s *Session) Balance(playerID string) game.ResourceVector {
	return s.ledger.Balance(playerID)
}

// runRetention periodically drops terminal action records older than the
// configured retention, both in memory and in the database.
func (s *Session) runRetention(ctx context.Context) {
	interval := s.cfg.ActionRetention / 10
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.ActionRetention)
			removed := s.queue.PurgeTerminal(cutoff)
			if s.repo != nil {
				rows, err := s.repo.PurgeExpiredActions(cutoff)
				if err != nil {
					logging.Error("failed to purge expired actions", err, logging.Fields{constants.LogFieldSessionID: s.ID})
					continue
				}
				removed += int(rows)
			}
			if removed > 0 {
				logging.Debug("purged expired actions", logging.Fields{
					constants.LogFieldSessionID: s.ID,
					"removed":                   removed,
				})
			}
		}
	}
}
