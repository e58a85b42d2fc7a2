package game

import (
	"fmt"
	"sync"
)

type usageKey struct {
	CycleID  int
	Phase    Phase
	PlayerID string
}

type stanceKey struct {
	From string
	To   string
}

// GameSession is the explicit aggregate shared by the clock, queue, combat
// resolver and territory updater — passed by handle to each constructor, no
// hidden singletons. All writes outside combat funnel through the queue's
// drain loop; the mutex exists for concurrent snapshot reads (API, events).
type GameSession struct {
	ID string

	mu      sync.RWMutex
	players map[string]*Player
	regions map[string]*Region
	units   map[string]*Unit
	usage   map[usageKey]int
	stances map[stanceKey]string
}

// NewSession creates an empty session aggregate.
func NewSession(id string) *GameSession {
	return &GameSession{
		ID:      id,
		players: make(map[string]*Player),
		regions: make(map[string]*Region),
		units:   make(map[string]*Unit),
		usage:   make(map[usageKey]int),
		stances: make(map[stanceKey]string),
	}
}

// AddPlayer registers a participant. Technology defaults to 1.0 when unset
// so combat modifiers start neutral.
func (s *GameSession) AddPlayer(p *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Technology == 0 {
		p.Technology = 1.0
	}
	p.Active = true
	s.players[p.ID] = p
}

// AddRegion registers a territory.
func (s *GameSession) AddRegion(r *Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ContestedBy == nil {
		r.ContestedBy = []string{}
	}
	s.regions[r.ID] = r
}

// AddUnit places a unit into the session. Units default to IDLE.
func (s *GameSession) AddUnit(u *Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == "" {
		u.Status = UnitIdle
	}
	s.units[u.ID] = u
}

// Player returns the participant with the given ID.
func (s *GameSession) Player(id string) (*Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	return p, ok
}

// Region returns the territory with the given ID.
func (s *GameSession) Region(id string) (*Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	return r, ok
}

// Unit returns the unit with the given ID.
func (s *GameSession) Unit(id string) (*Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	return u, ok
}

// RemoveUnit deletes a destroyed unit from the session.
func (s *GameSession) RemoveUnit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, id)
}

// UnitsInRegion returns the units of owner currently located in region.
// An empty owner matches every unit in the region.
func (s *GameSession) UnitsInRegion(regionID, owner string) []*Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Unit
	for _, u := range s.units {
		if u.RegionID != regionID {
			continue
		}
		if owner != "" && u.Owner != owner {
			continue
		}
		out = append(out, u)
	}
	return out
}

// PlayerCounts returns total and active participant counts for clock
// snapshots.
func (s *GameSession) PlayerCounts() (total, active int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		total++
		if p.Active {
			active++
		}
	}
	return total, active
}

// ConsumeActionPoint decrements the player's remaining actions for the given
// cycle/phase window, bounded by max. It returns false without consuming
// when the budget is exhausted. Usage resets implicitly when the window key
// changes.
func (s *GameSession) ConsumeActionPoint(cycleID int, phase Phase, playerID string, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{CycleID: cycleID, Phase: phase, PlayerID: playerID}
	if s.usage[k] >= max {
		return false
	}
	s.usage[k]++
	return true
}

// RefundActionPoint returns a previously consumed point, used when an
// accepted action later fails or is cancelled.
func (s *GameSession) RefundActionPoint(cycleID int, phase Phase, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{CycleID: cycleID, Phase: phase, PlayerID: playerID}
	if s.usage[k] > 0 {
		s.usage[k]--
	}
}

// ActionsUsed reports how many points the player has consumed in the window.
func (s *GameSession) ActionsUsed(cycleID int, phase Phase, playerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[usageKey{CycleID: cycleID, Phase: phase, PlayerID: playerID}]
}

// SetStance records a diplomatic stance from one player toward another.
func (s *GameSession) SetStance(from, to, stance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[from]; !ok {
		return &StateConsistencyError{Reason: fmt.Sprintf("unknown player %q", from)}
	}
	if _, ok := s.players[to]; !ok {
		return &StateConsistencyError{Reason: fmt.Sprintf("unknown player %q", to)}
	}
	s.stances[stanceKey{From: from, To: to}] = stance
	return nil
}

// Stance returns the recorded stance from one player toward another.
func (s *GameSession) Stance(from, to string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stances[stanceKey{From: from, To: to}]
	return st, ok
}

// RaiseTechnology bumps the player's technology modifier, capped at 1.0.
func (s *GameSession) RaiseTechnology(playerID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return &StateConsistencyError{Reason: fmt.Sprintf("unknown player %q", playerID)}
	}
	p.Technology += delta
	if p.Technology > 1.0 {
		p.Technology = 1.0
	}
	return nil
}
