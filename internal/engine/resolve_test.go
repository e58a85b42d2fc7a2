package engine

import (
	"errors"
	"testing"

	"github.com/rmoreas/warcycle/internal/game"
)

// constRand always returns the same value, making every roll arithmetic
// checkable by hand.
type constRand struct{ v float64 }

func (c constRand) Float64() float64 { return c.v }

func neutralModifiers() game.ForceModifiers {
	return game.ForceModifiers{Terrain: 0, Weather: 0, Morale: 1.0, Technology: 1.0, Leadership: 1.0}
}

func infantry(id, owner string) *game.Unit {
	return &game.Unit{ID: id, Type: game.UnitInfantry, Owner: owner, Health: 100}
}

func force(playerID, regionID string, units ...*game.Unit) *game.CombatantForce {
	return &game.CombatantForce{PlayerID: playerID, RegionID: regionID, Units: units, Modifiers: neutralModifiers()}
}

// Two infantry against one, all modifiers neutral and every roll pinned at
// 0.5: each of the three attack rolls per unit hits (chance 0.7 and up) and
// nobody retreats (chance floor 0.1). The resulting health and experience
// values are computable by hand.
func TestResolveScriptedSkirmish(t *testing.T) {
	a1, a2 := infantry("a1", "red"), infantry("a2", "red")
	d1 := infantry("d1", "blue")
	attacker := force("red", "frontier", a1, a2)
	defender := force("blue", "frontier", d1)

	r := New(DefaultConfig())
	res, err := r.Resolve(attacker, defender, 3, constRand{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Round one: each attacker lands 10+11+12 (100 -> 34); round two the
	// first attacker finishes with 13+14+15 and the combat ends there.
	if d1.Health != 0 {
		t.Fatalf("defender health = %d, want 0", d1.Health)
	}
	// The lone defender answered with 8+8 into a1 and 8 into a2 before
	// falling.
	if a1.Health != 84 || a2.Health != 92 {
		t.Fatalf("attacker healths = %d/%d, want 84/92", a1.Health, a2.Health)
	}
	if a1.Experience != 6 || a2.Experience != 3 {
		t.Fatalf("attacker experience = %d/%d, want 6/3", a1.Experience, a2.Experience)
	}
	if d1.Experience != 0 {
		t.Fatalf("defender experience = %d, want 0", d1.Experience)
	}

	if !res.TerritoryChanged {
		t.Fatalf("expected territory change after the garrison was wiped out")
	}

	// One destroyed and two damaged units: loss = baseline * 1.9.
	wantLoss := game.ResourceVector{Manpower: 95, Materials: 57, Energy: 38, Technology: 19}
	if res.ResourcesLost != wantLoss {
		t.Fatalf("resources lost = %+v, want %+v", res.ResourcesLost, wantLoss)
	}
	if res.StrategicValue != 995.5 {
		t.Fatalf("strategic value = %v, want 995.5", res.StrategicValue)
	}

	if len(res.Units) != 3 {
		t.Fatalf("expected 3 unit reports, got %d", len(res.Units))
	}
	for _, rep := range res.Units {
		if rep.Destroyed != (rep.EndingHealth == 0) {
			t.Fatalf("unit %s: destroyed=%v but ending health=%d", rep.UnitID, rep.Destroyed, rep.EndingHealth)
		}
		if rep.StartingHealth != 100 {
			t.Fatalf("unit %s starting health = %d, want 100", rep.UnitID, rep.StartingHealth)
		}
	}
	// Survivors return to IDLE after the encounter.
	for _, u := range []*game.Unit{a1, a2} {
		if u.Status != game.UnitIdle {
			t.Fatalf("unit %s status = %s, want IDLE", u.ID, u.Status)
		}
	}
}

// Two full-strength infantry squads concentrating fire on a lone defender
// destroy it inside the three-round limit under a live seeded source.
func TestResolveConcentratedFireDestroysLoneDefender(t *testing.T) {
	a1, a2 := infantry("a1", "red"), infantry("a2", "red")
	d1 := infantry("d1", "blue")
	res, err := New(DefaultConfig()).Resolve(force("red", "frontier", a1, a2), force("blue", "frontier", d1), 3, NewSeeded(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d1.Health != 0 {
		t.Fatalf("defender health = %d, want 0", d1.Health)
	}
	if !res.TerritoryChanged {
		t.Fatalf("destroying the garrison must change control")
	}
	for _, rep := range res.Units {
		if rep.UnitID == "d1" && !rep.Destroyed {
			t.Fatalf("defender report not marked destroyed: %+v", rep)
		}
	}
}

// The same seed must produce the same outcome on a fresh board.
func TestResolveDeterministicWithSeed(t *testing.T) {
	run := func() *game.CombatResult {
		attacker := force("red", "frontier",
			infantry("a1", "red"),
			&game.Unit{ID: "a2", Type: game.UnitMechanized, Owner: "red", Health: 100},
		)
		defender := force("blue", "frontier",
			infantry("d1", "blue"),
			&game.Unit{ID: "d2", Type: game.UnitAerial, Owner: "blue", Health: 100},
		)
		res, err := New(DefaultConfig()).Resolve(attacker, defender, 3, NewSeeded(42))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return res
	}

	first, second := run(), run()
	if first.TerritoryChanged != second.TerritoryChanged {
		t.Fatalf("territory outcome diverged between identical runs")
	}
	if len(first.Units) != len(second.Units) {
		t.Fatalf("report counts diverged: %d vs %d", len(first.Units), len(second.Units))
	}
	for i := range first.Units {
		if first.Units[i] != second.Units[i] {
			t.Fatalf("unit report %d diverged: %+v vs %+v", i, first.Units[i], second.Units[i])
		}
	}
	if first.ResourcesLost != second.ResourcesLost {
		t.Fatalf("losses diverged: %+v vs %+v", first.ResourcesLost, second.ResourcesLost)
	}
}

func TestResolveEmptyDefenderResolvesInstantly(t *testing.T) {
	a1 := infantry("a1", "red")
	res, err := New(DefaultConfig()).Resolve(force("red", "frontier", a1), force("blue", "frontier"), 3, constRand{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TerritoryChanged {
		t.Fatalf("undefended region must change hands")
	}
	if a1.Health != 100 {
		t.Fatalf("attacker took damage in an uncontested combat")
	}
}

func TestResolveEmptyAttackerResolvesInstantly(t *testing.T) {
	d1 := infantry("d1", "blue")
	res, err := New(DefaultConfig()).Resolve(force("red", "frontier"), force("blue", "frontier", d1), 3, constRand{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TerritoryChanged {
		t.Fatalf("an empty attack must not take the region")
	}
}

func TestResolveBothEmptyIsAnError(t *testing.T) {
	_, err := New(DefaultConfig()).Resolve(force("red", "frontier"), force("blue", "frontier"), 3, constRand{0.5})
	var cie *game.CombatInputError
	if !errors.As(err, &cie) {
		t.Fatalf("expected CombatInputError, got %v", err)
	}
}

// Destroyed in the report must mean exactly health zero.
func TestResolveDestroyedMatchesZeroHealth(t *testing.T) {
	attacker := force("red", "frontier",
		&game.Unit{ID: "s1", Type: game.UnitSpecial, Owner: "red", Health: 100},
		&game.Unit{ID: "s2", Type: game.UnitSpecial, Owner: "red", Health: 100},
		&game.Unit{ID: "s3", Type: game.UnitSpecial, Owner: "red", Health: 100},
		&game.Unit{ID: "s4", Type: game.UnitSpecial, Owner: "red", Health: 100},
	)
	d1 := infantry("d1", "blue")
	res, err := New(DefaultConfig()).Resolve(attacker, force("blue", "frontier", d1), 3, constRand{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, rep := range res.Units {
		if rep.Destroyed != (rep.EndingHealth == 0) {
			t.Fatalf("unit %s: destroyed=%v but ending health=%d", rep.UnitID, rep.Destroyed, rep.EndingHealth)
		}
	}
	if d1.Health != 0 {
		t.Fatalf("defender survived four special-forces strikes: health %d", d1.Health)
	}
	if !res.TerritoryChanged {
		t.Fatalf("wiping the garrison must change control")
	}
}

// A side that falls below 20% of its combat-start strength ends the combat
// early, even with rounds remaining.
func TestResolveTerminatesEarlyOnCollapse(t *testing.T) {
	a1 := infantry("a1", "red")
	d1, d2 := infantry("d1", "blue"), infantry("d2", "blue")
	res, err := New(DefaultConfig()).Resolve(force("red", "frontier", a1), force("blue", "frontier", d1, d2), 100, constRand{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two rounds of return fire (8x6, then 7x6) leave the lone attacker at
	// 10 health, strength 1.0 against its combat-start 10: the collapse cuts
	// the fight there instead of letting the remaining 98 rounds kill it.
	if a1.Health != 10 {
		t.Fatalf("attacker health = %d, want 10 after the collapse cutoff", a1.Health)
	}
	if d1.Health != 50 || d2.Health != 75 {
		t.Fatalf("defender healths = %d/%d, want 50/75", d1.Health, d2.Health)
	}
	if res.TerritoryChanged {
		t.Fatalf("a collapsed attack must not take the region")
	}
}

// Once a unit retreats it stays retreated: low morale plus low rolls retreat
// the whole defending force in round one, so the defender deals and takes no
// further damage.
func TestResolveRetreatIsSticky(t *testing.T) {
	d1, d2 := infantry("d1", "blue"), infantry("d2", "blue")
	defender := force("blue", "frontier", d1, d2)
	defender.Modifiers.Morale = 0

	attacker := force("red", "frontier", infantry("a1", "red"))

	res, err := New(DefaultConfig()).Resolve(attacker, defender, 3, constRand{0.05})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d1.Status != game.UnitRetreating || d2.Status != game.UnitRetreating {
		t.Fatalf("defenders did not retreat: %s/%s", d1.Status, d2.Status)
	}
	// All effective defenders gone means the region falls.
	if !res.TerritoryChanged {
		t.Fatalf("expected territory change after full retreat")
	}
}
