// Package territory applies combat verdicts to region ownership and
// contestation state.
package territory

import (
	"context"
	"fmt"

	"github.com/rmoreas/warcycle/internal/events"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/logging"
)

// Updater mutates region control from CombatResults. It runs synchronously
// inside the queue's drain step, so no locking beyond the session's is
// needed.
type Updater struct {
	bus events.Publisher
}

// New builds an updater publishing control changes on the given bus.
func New(bus events.Publisher) *Updater {
	return &Updater{bus: bus}
}

// Apply transfers control of the contested region to the attacker when the
// result says territory changed; otherwise it does nothing. The defender
// stays on the region's contested-by list while it retains surviving units
// there.
func (t *Updater) Apply(ctx context.Context, session *game.GameSession, res *game.CombatResult) error {
	if res == nil || !res.TerritoryChanged {
		return nil
	}
	region, ok := session.Region(res.RegionID)
	if !ok {
		return &game.StateConsistencyError{Reason: fmt.Sprintf("combat resolved for unknown region %q", res.RegionID)}
	}

	old := region.ControllerID
	region.ControllerID = res.AttackerID

	survivors := 0
	for _, u := range session.UnitsInRegion(res.RegionID, res.DefenderID) {
		if u.Health > 0 {
			survivors++
		}
	}
	contested := survivors > 0
	if contested {
		region.ContestedBy = appendUnique(region.ContestedBy, res.DefenderID)
	} else {
		region.ContestedBy = remove(region.ContestedBy, res.DefenderID)
	}

	if t.bus != nil {
		ev := events.RegionControlChanged{
			SessionID:     session.ID,
			RegionID:      region.ID,
			OldController: old,
			NewController: res.AttackerID,
			Contested:     contested,
		}
		if err := events.Publish(ctx, t.bus, events.TopicRegionControlChanged, ev); err != nil {
			logging.Error("failed to publish control change", err, logging.Fields{"region_id": region.ID})
		}
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
