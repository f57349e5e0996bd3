package quest

import (
	"sort"
	"time"
)

// PlayerView supplies the player facts the engine reads. The surrounding
// game owns level, reputation and inventory storage; the engine only
// queries them and never writes through this interface.
type PlayerView interface {
	// Level returns the player's current level.
	Level(player string) int

	// Reputation returns the player's standing with a faction.
	// Unknown factions report zero.
	Reputation(player, faction string) int

	// HasItem reports whether the player currently holds the item.
	HasItem(player, item string) bool
}

// CanStart reports whether the player may start the quest now. Checks
// run in a fixed order and the first failing check wins: level, then
// reputation prerequisites, then active/completed/cooldown state. A nil
// return means eligible.
func CanStart(def *Definition, player string, view PlayerView, log *Log, now time.Time) error {
	if view.Level(player) < def.MinLevel {
		return &EligibilityError{Reason: ReasonLevelTooLow, Required: def.MinLevel}
	}

	// Factions checked in sorted order so the reported reason is stable.
	factions := make([]string, 0, len(def.Reputation))
	for faction := range def.Reputation {
		factions = append(factions, faction)
	}
	sort.Strings(factions)
	for _, faction := range factions {
		required := def.Reputation[faction]
		if view.Reputation(player, faction) < required {
			return &EligibilityError{Reason: ReasonReputationTooLow, Required: required, Faction: faction}
		}
	}

	if _, active := log.Active[def.ID]; active {
		return &EligibilityError{Reason: ReasonAlreadyActive}
	}

	if last := log.lastCompleted(def.ID); last != nil {
		if !def.Repeatable {
			return &EligibilityError{Reason: ReasonAlreadyCompleted}
		}
		if last.OnCooldown(now) {
			return &EligibilityError{Reason: ReasonOnCooldown, Remaining: last.NextEligibleAt.Sub(now)}
		}
	}

	return nil
}
