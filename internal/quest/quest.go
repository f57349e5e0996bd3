package quest

import "time"

// ObjectiveKind identifies what kind of game event satisfies a stage.
type ObjectiveKind string

const (
	ObjectiveTalkTo      ObjectiveKind = "talk_to"     // Speak with an NPC
	ObjectiveGoTo        ObjectiveKind = "go_to"       // Reach a location
	ObjectiveInvestigate ObjectiveKind = "investigate" // Examine a point of interest
	ObjectiveKill        ObjectiveKind = "kill"        // Defeat enemies
	ObjectiveCollect     ObjectiveKind = "collect"     // Obtain a specific item
	ObjectiveGather      ObjectiveKind = "gather"      // Harvest resources
	ObjectiveExplore     ObjectiveKind = "explore"     // Discover an area
)

// Counted reports whether the kind accumulates progress toward a required
// count. All other kinds are satisfied by a single matching event.
func (k ObjectiveKind) Counted() bool {
	return k == ObjectiveKill || k == ObjectiveGather
}

// Objective is the condition gating a single stage.
type Objective struct {
	Kind   ObjectiveKind
	Target string
	Count  int // required occurrences; always 1 for non-counted kinds
}

// OptionalBranch is a side objective attached to a stage. It may be
// triggered at any point while its stage is current; once the quest
// advances past the stage it is permanently unavailable.
type OptionalBranch struct {
	// CombatTarget is the enemy whose defeat triggers the branch.
	CombatTarget string

	// BonusGold is merged into the completion grant if the branch fired.
	// The content schema calls this reward_bonus; it augments gold.
	BonusGold int
}

// Choice is one mutually exclusive outcome of a choice stage. Selecting
// a choice completes the quest with the choice's rewards in place of the
// definition's base rewards.
type Choice struct {
	Text    string
	Rewards RewardSet
}

// Stage is one ordered step of a quest.
type Stage struct {
	ID          int // 1-based position, contiguous within the quest
	Description string
	Objective   Objective

	// RequiredItems must be in the player's possession for an event to
	// match this stage. Possession is checked, never consumed.
	RequiredItems []string

	Optional *OptionalBranch
	Choices  []Choice
}

// HasChoices reports whether the stage ends with a player decision.
func (s *Stage) HasChoices() bool {
	return len(s.Choices) > 0
}

// ChoiceByText looks up a choice by its text, which serves as its id.
func (s *Stage) ChoiceByText(text string) (*Choice, bool) {
	for i := range s.Choices {
		if s.Choices[i].Text == text {
			return &s.Choices[i], true
		}
	}
	return nil, false
}

// RewardSet is a sparse aggregate of everything a quest can pay out.
type RewardSet struct {
	Gold        int
	Exp         int
	Items       []string       // duplicates mean multiple grants
	Reputation  map[string]int // faction -> signed delta
	UnlockQuest string         // quest id to attempt starting on completion
}

// IsZero reports whether the set grants nothing and unlocks nothing.
func (r RewardSet) IsZero() bool {
	return r.Gold == 0 && r.Exp == 0 && len(r.Items) == 0 &&
		len(r.Reputation) == 0 && r.UnlockQuest == ""
}

// FailurePenaltySet holds the penalties applied when a quest fails.
// Currently reputation-only; aggregation matches RewardSet.
type FailurePenaltySet struct {
	Reputation map[string]int
}

// TypeInfo is display metadata for a declared quest type tag.
type TypeInfo struct {
	Name        string
	Description string
}

// Definition is an immutable quest definition. Definitions are built once
// by the loader and shared read-only across all players.
type Definition struct {
	ID          string
	Name        string
	Giver       string
	Description string
	Type        string
	Difficulty  string
	MinLevel    int

	// Reputation holds minimum faction standings required to start.
	Reputation map[string]int

	// TimeLimit bounds how long an instance may stay active. Zero means
	// no limit.
	TimeLimit time.Duration

	Repeatable bool
	Cooldown   time.Duration

	Stages           []Stage
	Rewards          RewardSet
	FailurePenalties *FailurePenaltySet
}

// StageAt returns the stage at the given 1-based position.
func (d *Definition) StageAt(pos int) (*Stage, bool) {
	if pos < 1 || pos > len(d.Stages) {
		return nil, false
	}
	return &d.Stages[pos-1], true
}

// FinalStage returns the position of the last stage.
func (d *Definition) FinalStage() int {
	return len(d.Stages)
}

// HasTimeLimit reports whether active instances can expire.
func (d *Definition) HasTimeLimit() bool {
	return d.TimeLimit > 0
}
