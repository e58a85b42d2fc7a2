package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
)

// researchStep is how much one RESEARCH action raises a player's technology
// modifier (capped at 1.0).
const researchStep = 0.05

func (s *Session) registerHandlers() {
	s.queue.Register(game.ActionMove, s.handleMove)
	s.queue.Register(game.ActionAttack, s.handleAttack)
	s.queue.Register(game.ActionBuild, s.handleBuild)
	s.queue.Register(game.ActionResearch, s.handleResearch)
	s.queue.Register(game.ActionDiplomatic, s.handleDiplomatic)
	s.queue.Register(game.ActionEconomic, s.handleEconomic)
}

// handleMove relocates the named units to the target region.
func (s *Session) handleMove(_ context.Context, a *game.QueuedAction) error {
	if _, ok := s.game.Region(a.Payload.TargetID); !ok {
		return game.NewValidationError(constants.ReasonUnknownRegionFmt, a.Payload.TargetID)
	}
	units, err := s.ownedUnits(a.PlayerID, a.Payload.Units)
	if err != nil {
		return err
	}
	for _, u := range units {
		u.RegionID = a.Payload.TargetID
		u.Status = game.UnitIdle
	}
	return nil
}

// handleAttack resolves a combat between the named units and the garrison of
// the target region, applies losses and territory changes, and publishes the
// result.
func (s *Session) handleAttack(ctx context.Context, a *game.QueuedAction) error {
	region, ok := s.game.Region(a.Payload.TargetID)
	if !ok {
		return game.NewValidationError(constants.ReasonUnknownRegionFmt, a.Payload.TargetID)
	}
	if region.ControllerID == a.PlayerID {
		return game.NewValidationError("region %s is already controlled by %s", region.ID, a.PlayerID)
	}
	units, err := s.ownedUnits(a.PlayerID, a.Payload.Units)
	if err != nil {
		return err
	}

	attacker := &game.CombatantForce{
		PlayerID:  a.PlayerID,
		RegionID:  region.ID,
		Units:     units,
		Modifiers: s.forceModifiers(a.PlayerID, 0),
	}
	defender := &game.CombatantForce{
		PlayerID:  region.ControllerID,
		RegionID:  region.ID,
		Units:     s.game.UnitsInRegion(region.ID, region.ControllerID),
		Modifiers: s.forceModifiers(region.ControllerID, terrainFromWeight(region.StrategicWeight)),
	}

	result, err := s.resolver.Resolve(attacker, defender, s.cfg.Combat.Rounds, s.rng)
	if err != nil {
		return err
	}

	// Losses hit both sides; the ledger clamps at zero.
	if err := s.ledger.Subtract(attacker.PlayerID, result.ResourcesLost); err != nil {
		return err
	}
	if defender.PlayerID != "" {
		if err := s.ledger.Subtract(defender.PlayerID, result.ResourcesLost); err != nil {
			return err
		}
	}
	for _, rep := range result.Units {
		if rep.Destroyed {
			s.game.RemoveUnit(rep.UnitID)
		}
	}
	if err := s.updater.Apply(ctx, s.game, result); err != nil {
		return err
	}

	if err := events.Publish(ctx, s.bus, events.TopicCombatResolved, events.CombatResolved{
		SessionID: s.ID,
		Result:    *result,
	}); err != nil {
		logging.Error("failed to publish combat result", err, logging.Fields{
			constants.LogFieldSessionID: s.ID,
			constants.LogFieldRegionID:  region.ID,
		})
	}
	return nil
}

// handleBuild creates one unit of the type named in SourceID inside a region
// the player controls. The declared resource cost was already deducted at
// drain time.
func (s *Session) handleBuild(_ context.Context, a *game.QueuedAction) error {
	region, ok := s.game.Region(a.Payload.TargetID)
	if !ok {
		return game.NewValidationError(constants.ReasonUnknownRegionFmt, a.Payload.TargetID)
	}
	if region.ControllerID != a.PlayerID {
		return game.NewValidationError("region %s is not controlled by %s", region.ID, a.PlayerID)
	}
	unitType := game.UnitType(a.Payload.SourceID)
	if !validUnitType(unitType) {
		return game.NewValidationError("unknown unit type %q", a.Payload.SourceID)
	}
	s.game.AddUnit(&game.Unit{
		ID:       uuid.NewString(),
		Type:     unitType,
		Owner:    a.PlayerID,
		RegionID: region.ID,
		Health:   100,
	})
	return nil
}

// handleResearch raises the player's technology modifier by one step.
func (s *Session) handleResearch(_ context.Context, a *game.QueuedAction) error {
	return s.game.RaiseTechnology(a.PlayerID, researchStep)
}

// handleDiplomatic records a stance toward another player. SourceID carries
// the proposed stance value.
func (s *Session) handleDiplomatic(_ context.Context, a *game.QueuedAction) error {
	if a.Payload.SourceID == "" {
		return game.NewValidationError("diplomatic action requires a stance")
	}
	return s.game.SetStance(a.PlayerID, a.Payload.TargetID, a.Payload.SourceID)
}

// handleEconomic transfers the declared resources to the target player. The
// sender's side was deducted at drain time; the received amount is scaled by
// the active phase's resource multiplier, so transfers are most efficient
// during PREPARATION.
func (s *Session) handleEconomic(_ context.Context, a *game.QueuedAction) error {
	if a.Payload.Resources == nil || a.Payload.Resources.IsZero() {
		return game.NewValidationError("economic action requires a resource amount")
	}
	if _, ok := s.game.Player(a.Payload.TargetID); !ok {
		return game.NewValidationError(constants.ReasonUnknownPlayerFmt, a.Payload.TargetID)
	}
	mult := s.sm.Config(s.clk.CurrentCycle().Phase).ResourceMultiplier
	if mult <= 0 {
		mult = 1.0
	}
	return s.ledger.Add(a.Payload.TargetID, a.Payload.Resources.Scale(mult))
}

// ownedUnits resolves unit IDs against the session, requiring every unit to
// exist, belong to the player and be alive.
func (s *Session) ownedUnits(playerID string, ids []string) ([]*game.Unit, error) {
	if len(ids) == 0 {
		return nil, game.NewValidationError("no units named in submission")
	}
	units := make([]*game.Unit, 0, len(ids))
	for _, id := range ids {
		u, ok := s.game.Unit(id)
		if !ok {
			return nil, game.NewValidationError("unknown unit %q", id)
		}
		if u.Owner != playerID {
			return nil, game.NewValidationError("unit %s is not owned by %s", id, playerID)
		}
		if u.Health <= 0 {
			return nil, game.NewValidationError("unit %s is destroyed", id)
		}
		units = append(units, u)
	}
	return units, nil
}

// forceModifiers derives one side's combat modifiers from its player state.
// Terrain benefits the side holding the region.
func (s *Session) forceModifiers(playerID string, terrain float64) game.ForceModifiers {
	tech := 1.0
	if p, ok := s.game.Player(playerID); ok {
		tech = p.Technology
	}
	return game.ForceModifiers{
		Terrain:    terrain,
		Weather:    0,
		Morale:     1.0,
		Technology: tech,
		Leadership: 1.0,
	}
}

// terrainFromWeight maps a region's strategic weight onto a defensive terrain
// modifier, capped so attacks never become impossible.
func terrainFromWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 0.5 {
		return 0.5
	}
	return w
}

func validUnitType(t game.UnitType) bool {
	for _, v := range game.UnitTypes {
		if v == t {
			return true
		}
	}
	return false
}
