package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmoreas/warcycle/internal/config"
	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/service"
)

var (
	simSeed   int64
	simCycles int
)

// simulateCmd runs a compressed two-player skirmish in-process: short phases,
// a fixed board, one attack per action phase. Useful for eyeballing combat
// and clock behavior without a server.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a compressed in-process skirmish",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		cfg.TotalCycles = simCycles
		for phase, pc := range cfg.Phases {
			pc.Duration = 200 * time.Millisecond
			cfg.Phases[phase] = pc
		}
		cfg.DrainInterval = 10 * time.Millisecond

		s, err := service.NewSession("skirmish", cfg, nil, simSeed)
		if err != nil {
			return err
		}

		start := game.ResourceVector{Manpower: 1000, Materials: 1000, Energy: 1000, Technology: 100}
		if err := s.AddPlayer(&game.Player{ID: "red", Name: "Red"}, start); err != nil {
			return err
		}
		if err := s.AddPlayer(&game.Player{ID: "blue", Name: "Blue"}, start); err != nil {
			return err
		}
		s.AddRegion(&game.Region{ID: "frontier", Name: "Frontier", ControllerID: "blue", StrategicWeight: 0.2})
		s.AddUnit(&game.Unit{ID: "red-1", Type: game.UnitInfantry, Owner: "red", RegionID: "staging", Health: 100})
		s.AddUnit(&game.Unit{ID: "red-2", Type: game.UnitMechanized, Owner: "red", RegionID: "staging", Health: 100})
		s.AddUnit(&game.Unit{ID: "blue-1", Type: game.UnitInfantry, Owner: "blue", RegionID: "frontier", Health: 100})

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		done := make(chan struct{})

		err = events.Subscribe(ctx, s.Bus(), events.TopicCombatResolved, func(_ context.Context, ev events.CombatResolved) error {
			fmt.Printf("combat in %s: territory_changed=%v strategic_value=%.1f\n",
				ev.Result.RegionID, ev.Result.TerritoryChanged, ev.Result.StrategicValue)
			return nil
		})
		if err != nil {
			return err
		}
		err = events.Subscribe(ctx, s.Bus(), events.TopicPhaseStarted, func(_ context.Context, ev events.PhaseStarted) error {
			if ev.Phase != game.PhaseAction {
				return nil
			}
			_, serr := s.Submit(ctx, &game.QueuedAction{
				PlayerID: "red",
				Type:     game.ActionAttack,
				Priority: 0.8,
				Payload:  game.ActionPayload{TargetID: "frontier", Units: []string{"red-1", "red-2"}},
			})
			if serr != nil {
				fmt.Printf("attack rejected: %v\n", serr)
			}
			return nil
		})
		if err != nil {
			return err
		}
		err = events.Subscribe(ctx, s.Bus(), events.TopicGameCompleted, func(_ context.Context, ev events.GameCompleted) error {
			close(done)
			return nil
		})
		if err != nil {
			return err
		}

		if err := s.Start(); err != nil {
			return err
		}
		defer s.Stop()

		select {
		case <-done:
		case <-time.After(time.Duration(simCycles+2) * 4 * 250 * time.Millisecond):
		}

		snap := s.Snapshot()
		fmt.Printf("finished after cycle %d (phase %s)\n", snap.CycleID, snap.Phase)
		region, _ := s.Game().Region("frontier")
		fmt.Printf("frontier controlled by %s (contested by %v)\n", region.ControllerID, region.ContestedBy)
		return nil
	},
}

func init() {
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "combat RNG seed")
	simulateCmd.Flags().IntVar(&simCycles, "cycles", 3, "number of cycles to run")
}
