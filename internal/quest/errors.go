package quest

import (
	"errors"
	"fmt"
	"time"
)

// ContentError reports a malformed quest definition found at load time.
// A quest with content errors is excluded from the catalog; other quests
// still load.
type ContentError struct {
	QuestID string
	Field   string
	Reason  string
}

func (e *ContentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("quest %q: %s", e.QuestID, e.Reason)
	}
	return fmt.Sprintf("quest %q: %s: %s", e.QuestID, e.Field, e.Reason)
}

// EligibilityReason identifies why a start request was refused.
type EligibilityReason string

const (
	ReasonLevelTooLow      EligibilityReason = "level_too_low"
	ReasonReputationTooLow EligibilityReason = "reputation_too_low"
	ReasonAlreadyActive    EligibilityReason = "already_active"
	ReasonAlreadyCompleted EligibilityReason = "already_completed"
	ReasonOnCooldown       EligibilityReason = "on_cooldown"
)

// EligibilityError explains why a player may not start a quest right now.
// It is a normal return value of StartQuest, never a fault.
type EligibilityError struct {
	Reason    EligibilityReason
	Required  int               // minimum level or reputation value
	Faction   string            // set for ReasonReputationTooLow
	Remaining time.Duration     // set for ReasonOnCooldown
}

func (e *EligibilityError) Error() string {
	switch e.Reason {
	case ReasonLevelTooLow:
		return fmt.Sprintf("quest requires level %d", e.Required)
	case ReasonReputationTooLow:
		return fmt.Sprintf("quest requires reputation %d with %s", e.Required, e.Faction)
	case ReasonOnCooldown:
		return fmt.Sprintf("quest on cooldown for %s", e.Remaining)
	case ReasonAlreadyActive:
		return "quest already active"
	case ReasonAlreadyCompleted:
		return "quest already completed"
	}
	return string(e.Reason)
}

// Progression errors returned by event and choice operations. Out-of-order
// or duplicate submissions are no-ops, not faults; these cover genuinely
// invalid requests.
var (
	ErrUnknownQuest  = errors.New("unknown quest id")
	ErrNotActive     = errors.New("quest is not active")
	ErrInvalidChoice = errors.New("invalid choice")
)

// CollaboratorError wraps a failure reported by an external collaborator,
// such as a grant application the inventory system refused. The quest's
// own transition is never rolled back; retry belongs to the collaborator.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// PartialGrantError lets a Granter report that only part of a grant was
// applied. The engine records the remainder as pending on the instance.
type PartialGrantError struct {
	Applied Grant
	Err     error
}

func (e *PartialGrantError) Error() string {
	return fmt.Sprintf("grant partially applied: %v", e.Err)
}

func (e *PartialGrantError) Unwrap() error {
	return e.Err
}
