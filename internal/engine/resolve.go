// Package engine implements multi-round stochastic combat resolution between
// two combatant forces.
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/rmoreas/warcycle/internal/game"
)

// Config carries the reproducibility-pinned combat constants.
type Config struct {
	BaseHitChance        float64
	ExperienceMultiplier float64
	RetreatThreshold     float64
	Rounds               int
	Matrix               AdvantageMatrix
	BaselineLoss         game.ResourceVector
}

// DefaultConfig returns the canonical constants.
func DefaultConfig() Config {
	return Config{
		BaseHitChance:        0.7,
		ExperienceMultiplier: 0.1,
		RetreatThreshold:     0.3,
		Rounds:               3,
		Matrix:               DefaultAdvantageMatrix(),
		BaselineLoss:         game.ResourceVector{Manpower: 50, Materials: 30, Energy: 20, Technology: 10},
	}
}

const (
	hitChanceMin = 0.1
	hitChanceMax = 0.95

	retreatChanceMin = 0.1
	retreatChanceMax = 0.9

	// attackers only consider retreating below this fraction of their
	// combat-start strength
	attackerRetreatBelow = 0.4

	// a side collapses once below this fraction of its own initial strength
	collapseBelow = 0.2

	// defender loses the region outright above this strength ratio
	dominanceRatio = 2.0

	// attack rolls granted to each acting unit per round
	maxAttacksPerUnit = 3
)

// Resolver runs combat encounters. It is stateless between calls; all
// randomness comes from the injected source.
type Resolver struct {
	cfg Config
}

// New builds a resolver, filling zero-valued config fields with defaults.
func New(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.BaseHitChance == 0 {
		cfg.BaseHitChance = def.BaseHitChance
	}
	if cfg.ExperienceMultiplier == 0 {
		cfg.ExperienceMultiplier = def.ExperienceMultiplier
	}
	if cfg.RetreatThreshold == 0 {
		cfg.RetreatThreshold = def.RetreatThreshold
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = def.Rounds
	}
	if cfg.Matrix == nil {
		cfg.Matrix = def.Matrix
	}
	if cfg.BaselineLoss.IsZero() {
		cfg.BaselineLoss = def.BaselineLoss
	}
	return &Resolver{cfg: cfg}
}

// unitLedger accumulates the per-unit audit trail across rounds.
type unitLedger struct {
	unit           *game.Unit
	startingHealth int
	experience     int
}

// Resolve simulates up to rounds rounds of combat and returns the aggregated
// result. Units are mutated in place (health, experience, retreat status);
// the returned reports carry the audit trail. An empty force on either side
// resolves instantly in favor of the non-empty side.
func (r *Resolver) Resolve(attacker, defender *game.CombatantForce, rounds int, rng RandomSource) (*game.CombatResult, error) {
	if attacker == nil || defender == nil {
		return nil, &game.CombatInputError{Reason: "combat requires two forces"}
	}
	if len(attacker.Units) == 0 && len(defender.Units) == 0 {
		return nil, &game.CombatInputError{Reason: "both forces are empty"}
	}
	if rounds <= 0 {
		rounds = r.cfg.Rounds
	}
	start := time.Now()

	if len(attacker.Units) == 0 || len(defender.Units) == 0 {
		return r.instantResult(attacker, defender, start), nil
	}

	ledgers := make(map[string]*unitLedger, len(attacker.Units)+len(defender.Units))
	for _, u := range attacker.Units {
		ledgers[u.ID] = &unitLedger{unit: u, startingHealth: u.Health}
		if u.Effective() {
			u.Status = game.UnitEngaging
		}
	}
	for _, u := range defender.Units {
		ledgers[u.ID] = &unitLedger{unit: u, startingHealth: u.Health}
		if u.Effective() {
			u.Status = game.UnitDefending
		}
	}

	// Initial strengths are captured once, at combat start; collapse checks
	// compare against these, never against the current value.
	attackerInitial := forceStrength(attacker.Units)
	defenderInitial := forceStrength(defender.Units)

	for round := 0; round < rounds; round++ {
		r.strike(attacker, defender, ledgers, rng)
		r.strike(defender, attacker, ledgers, rng)
		r.retreatChecks(attacker, defender, attackerInitial, rng)

		attStr := forceStrength(attacker.Units)
		defStr := forceStrength(defender.Units)
		if attStr == 0 || defStr == 0 ||
			attStr < collapseBelow*attackerInitial ||
			defStr < collapseBelow*defenderInitial {
			break
		}
	}

	return r.aggregate(attacker, defender, ledgers, start), nil
}

// strike executes one side's attacks for the round: every effective unit
// gets three attack rolls, walking its advantage-ranked target list and
// wrapping back to the best live target when fewer than three distinct
// enemies remain.
func (r *Resolver) strike(acting, opposing *game.CombatantForce, ledgers map[string]*unitLedger, rng RandomSource) {
	for _, u := range acting.Units {
		if !u.Effective() {
			continue
		}
		ranked := r.rankTargets(u, opposing.Units)
		next := 0
		for roll := 0; roll < maxAttacksPerUnit; roll++ {
			t := nextLiveTarget(ranked, &next)
			if t == nil {
				break
			}
			if !r.rollHit(u, t, acting.Modifiers, opposing.Modifiers, rng) {
				continue
			}
			dmg := r.damage(u, t, acting.Modifiers, opposing.Modifiers)
			t.Health -= dmg
			if t.Health < 0 {
				t.Health = 0
			}
			gained := int(float64(dmg) * r.cfg.ExperienceMultiplier)
			u.Experience += gained
			if led, ok := ledgers[u.ID]; ok {
				led.experience += gained
			}
		}
	}
}

// rankTargets orders the live opposing units by descending type advantage,
// ties kept in stable submission order.
func (r *Resolver) rankTargets(u *game.Unit, opposing []*game.Unit) []*game.Unit {
	candidates := make([]*game.Unit, 0, len(opposing))
	for _, t := range opposing {
		if t.Effective() {
			candidates = append(candidates, t)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return r.cfg.Matrix.Lookup(u.Type, candidates[i].Type) > r.cfg.Matrix.Lookup(u.Type, candidates[j].Type)
	})
	return candidates
}

// nextLiveTarget returns the next target with health remaining, scanning at
// most one full lap of the ranked list from *pos, or nil once everything is
// down.
func nextLiveTarget(ranked []*game.Unit, pos *int) *game.Unit {
	for i := 0; i < len(ranked); i++ {
		t := ranked[(*pos+i)%len(ranked)]
		if t.Health > 0 {
			*pos = (*pos + i + 1) % len(ranked)
			return t
		}
	}
	return nil
}

func (r *Resolver) rollHit(att, def *game.Unit, attMod, defMod game.ForceModifiers, rng RandomSource) bool {
	chance := r.cfg.BaseHitChance *
		r.cfg.Matrix.Lookup(att.Type, def.Type) *
		attMod.Technology * attMod.Leadership *
		(1 + float64(att.Experience)*r.cfg.ExperienceMultiplier) *
		(1 - defMod.Terrain) * (1 - defMod.Weather)
	chance = clamp(chance, hitChanceMin, hitChanceMax)
	return rng.Float64() <= chance
}

func (r *Resolver) damage(att, def *game.Unit, attMod, defMod game.ForceModifiers) int {
	raw := float64(baseDamage[att.Type]) *
		attMod.Technology * attMod.Morale *
		(1 + float64(att.Experience)*r.cfg.ExperienceMultiplier) *
		(1 - defMod.Terrain) *
		(1 - float64(def.Experience)*0.05)
	dmg := int(math.Floor(raw))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// retreatChecks rolls morale for every effective defending unit, and for
// attacking units only once the attacker has fallen below 40% of its
// combat-start strength. RETREATING is sticky for the rest of the combat.
func (r *Resolver) retreatChecks(attacker, defender *game.CombatantForce, attackerInitial float64, rng RandomSource) {
	attStr := forceStrength(attacker.Units)
	defStr := forceStrength(defender.Units)
	ratio := math.Inf(1)
	if defStr > 0 {
		ratio = attStr / defStr
	}

	for _, u := range defender.Units {
		if u.Effective() && r.rollRetreat(u, defender.Modifiers.Morale, ratio, rng) {
			u.Status = game.UnitRetreating
		}
	}
	if attStr < attackerRetreatBelow*attackerInitial {
		for _, u := range attacker.Units {
			if u.Effective() && r.rollRetreat(u, attacker.Modifiers.Morale, ratio, rng) {
				u.Status = game.UnitRetreating
			}
		}
	}
}

func (r *Resolver) rollRetreat(u *game.Unit, morale, ratio float64, rng RandomSource) bool {
	chance := r.cfg.RetreatThreshold *
		(1 - float64(u.Experience)*r.cfg.ExperienceMultiplier) *
		(1 - morale) *
		(1 + math.Max(0, 1-ratio)) *
		(1 + (1 - float64(u.Health)/100))
	chance = clamp(chance, retreatChanceMin, retreatChanceMax)
	return rng.Float64() <= chance
}

// aggregate builds the final CombatResult from the ledgers and current unit
// state.
func (r *Resolver) aggregate(attacker, defender *game.CombatantForce, ledgers map[string]*unitLedger, start time.Time) *game.CombatResult {
	reports := make([]game.UnitReport, 0, len(ledgers))
	destroyed, damaged := 0, 0
	appendReports := func(units []*game.Unit) {
		for _, u := range units {
			led := ledgers[u.ID]
			rep := game.UnitReport{
				UnitID:           u.ID,
				StartingHealth:   led.startingHealth,
				EndingHealth:     u.Health,
				ExperienceGained: led.experience,
				Destroyed:        u.Health == 0,
			}
			if rep.Destroyed {
				destroyed++
			} else if rep.EndingHealth < rep.StartingHealth {
				damaged++
			}
			if u.Health > 0 && u.Status != game.UnitRetreating {
				u.Status = game.UnitIdle
			}
			reports = append(reports, rep)
		}
	}
	appendReports(attacker.Units)
	appendReports(defender.Units)

	loss := r.cfg.BaselineLoss.Scale(1 + 0.5*float64(destroyed) + 0.2*float64(damaged))
	techAvg := (attacker.Modifiers.Technology + defender.Modifiers.Technology) / 2
	loss.Energy *= techAvg
	loss.Technology *= techAvg

	attFinal := forceStrength(attacker.Units)
	defFinal := forceStrength(defender.Units)
	territoryChanged := defFinal == 0 || attFinal/defFinal > dominanceRatio

	return &game.CombatResult{
		AttackerID:       attacker.PlayerID,
		DefenderID:       defender.PlayerID,
		RegionID:         defender.RegionID,
		TerritoryChanged: territoryChanged,
		Units:            reports,
		ResourcesLost:    loss,
		DurationMs:       time.Since(start).Milliseconds(),
		StrategicValue:   strategicValue(territoryChanged, loss),
	}
}

// instantResult resolves a degenerate encounter where one side brought no
// units: the non-empty side wins without a round loop.
func (r *Resolver) instantResult(attacker, defender *game.CombatantForce, start time.Time) *game.CombatResult {
	territoryChanged := len(defender.Units) == 0
	reports := make([]game.UnitReport, 0, len(attacker.Units)+len(defender.Units))
	for _, u := range append(append([]*game.Unit{}, attacker.Units...), defender.Units...) {
		reports = append(reports, game.UnitReport{
			UnitID:         u.ID,
			StartingHealth: u.Health,
			EndingHealth:   u.Health,
			Destroyed:      u.Health == 0,
		})
	}
	return &game.CombatResult{
		AttackerID:       attacker.PlayerID,
		DefenderID:       defender.PlayerID,
		RegionID:         defender.RegionID,
		TerritoryChanged: territoryChanged,
		Units:            reports,
		DurationMs:       time.Since(start).Milliseconds(),
		StrategicValue:   strategicValue(territoryChanged, game.ResourceVector{}),
	}
}

// forceStrength sums health-weighted base damage over effective units.
func forceStrength(units []*game.Unit) float64 {
	var s float64
	for _, u := range units {
		if u.Effective() {
			s += float64(u.Health) / 100 * float64(baseDamage[u.Type])
		}
	}
	return s
}

func strategicValue(territoryChanged bool, loss game.ResourceVector) float64 {
	v := 100.0
	if territoryChanged {
		v += 1000
	}
	v -= 0.5 * loss.Sum()
	return math.Max(0, v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
