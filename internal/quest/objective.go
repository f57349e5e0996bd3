package quest

// Event is a resolved game-world occurrence pushed into the engine by
// external collaborators (dialogue, combat, movement). Target resolution
// happens before the event reaches this package.
type Event struct {
	Kind   ObjectiveKind `json:"kind"`
	Target string        `json:"target"`
	Player string        `json:"player"`
}

// MatchOutcome classifies how an event relates to a stage objective.
type MatchOutcome int

const (
	// Unmatched means the event does not concern this stage.
	Unmatched MatchOutcome = iota

	// Partial means a counted objective advanced but is not yet met.
	Partial

	// Satisfied means the stage's objective is fully met.
	Satisfied
)

// EvaluateObjective applies an event to the instance's current stage and
// returns the outcome. Counted kinds (kill, gather) accumulate progress
// on the instance keyed by stage id, so repeated events for the same
// target add up instead of re-triggering. Stages with required items
// match only while the player holds every item; this is a read-only
// possession check.
func EvaluateObjective(stage *Stage, in *Instance, ev Event, view PlayerView) MatchOutcome {
	obj := stage.Objective
	if ev.Kind != obj.Kind || ev.Target != obj.Target {
		return Unmatched
	}

	for _, item := range stage.RequiredItems {
		if !view.HasItem(ev.Player, item) {
			return Unmatched
		}
	}

	if obj.Kind.Counted() {
		in.Progress[stage.ID]++
		if in.Progress[stage.ID] < obj.Count {
			return Partial
		}
		return Satisfied
	}

	return Satisfied
}
