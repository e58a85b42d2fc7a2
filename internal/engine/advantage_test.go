package engine

import (
	"testing"

	"github.com/rmoreas/warcycle/internal/game"
)

func TestDefaultAdvantageMatrixIsComplete(t *testing.T) {
	m := DefaultAdvantageMatrix()
	if !m.Complete() {
		t.Fatalf("default matrix must cover the full 5x5 cross product")
	}
	for _, u := range game.UnitTypes {
		if got := m.Lookup(u, u); got != 1.0 {
			t.Fatalf("identity %s vs %s = %v, want 1.0", u, u, got)
		}
	}
}

func TestAdvantageAsymmetry(t *testing.T) {
	m := DefaultAdvantageMatrix()
	if got := m.Lookup(game.UnitAerial, game.UnitInfantry); got != 1.8 {
		t.Fatalf("aerial vs infantry = %v, want 1.8", got)
	}
	if got := m.Lookup(game.UnitInfantry, game.UnitNaval); got != 0.3 {
		t.Fatalf("infantry vs naval = %v, want 0.3", got)
	}
	if m.Lookup(game.UnitAerial, game.UnitInfantry) == m.Lookup(game.UnitInfantry, game.UnitAerial) {
		t.Fatalf("matrix must be asymmetric for aerial/infantry")
	}
}

func TestLookupFallsBackToNeutral(t *testing.T) {
	m := AdvantageMatrix{}
	if got := m.Lookup(game.UnitInfantry, game.UnitNaval); got != 1.0 {
		t.Fatalf("missing pair = %v, want neutral 1.0", got)
	}
	if m.Complete() {
		t.Fatalf("empty matrix must not report complete")
	}
}
