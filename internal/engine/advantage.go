package engine

import "github.com/rmoreas/warcycle/internal/game"

// AdvantageMatrix is the fixed, asymmetric table of attack-effectiveness
// multipliers keyed [attackerType][defenderType]. Identity pairs are 1.0.
type AdvantageMatrix map[game.UnitType]map[game.UnitType]float64

// Lookup returns the multiplier for attacker type vs defender type, falling
// back to 1.0 for any pair the table does not cover.
func (m AdvantageMatrix) Lookup(attacker, defender game.UnitType) float64 {
	if row, ok := m[attacker]; ok {
		if v, ok := row[defender]; ok {
			return v
		}
	}
	return 1.0
}

// Complete reports whether the matrix covers the full 5×5 type cross
// product.
func (m AdvantageMatrix) Complete() bool {
	for _, a := range game.UnitTypes {
		row, ok := m[a]
		if !ok {
			return false
		}
		for _, d := range game.UnitTypes {
			if _, ok := row[d]; !ok {
				return false
			}
		}
	}
	return true
}

// DefaultAdvantageMatrix pins the reproducible default multipliers.
func DefaultAdvantageMatrix() AdvantageMatrix {
	return AdvantageMatrix{
		game.UnitInfantry: {
			game.UnitInfantry:   1.0,
			game.UnitMechanized: 0.6,
			game.UnitAerial:     0.4,
			game.UnitNaval:      0.3,
			game.UnitSpecial:    0.8,
		},
		game.UnitMechanized: {
			game.UnitInfantry:   1.5,
			game.UnitMechanized: 1.0,
			game.UnitAerial:     0.5,
			game.UnitNaval:      0.6,
			game.UnitSpecial:    1.1,
		},
		game.UnitAerial: {
			game.UnitInfantry:   1.8,
			game.UnitMechanized: 1.4,
			game.UnitAerial:     1.0,
			game.UnitNaval:      1.2,
			game.UnitSpecial:    1.3,
		},
		game.UnitNaval: {
			game.UnitInfantry:   0.9,
			game.UnitMechanized: 0.8,
			game.UnitAerial:     0.7,
			game.UnitNaval:      1.0,
			game.UnitSpecial:    0.9,
		},
		game.UnitSpecial: {
			game.UnitInfantry:   1.3,
			game.UnitMechanized: 1.2,
			game.UnitAerial:     1.1,
			game.UnitNaval:      1.0,
			game.UnitSpecial:    1.0,
		},
	}
}

// baseDamage is the raw damage dealt by each unit class before modifiers.
var baseDamage = map[game.UnitType]int{
	game.UnitInfantry:   10,
	game.UnitMechanized: 20,
	game.UnitAerial:     15,
	game.UnitNaval:      25,
	game.UnitSpecial:    30,
}

// BaseDamage exposes the per-type raw damage (used by strength math and
// tests).
func BaseDamage(t game.UnitType) int {
	return baseDamage[t]
}
