package quest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a quest instance. NotStarted is
// virtual (no instance exists) and OnCooldown is derived from a
// completed repeatable instance whose cooldown has not yet elapsed.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Instance is one player's progression through a single quest. At most
// one instance per (player, quest) is non-terminal at a time; terminal
// instances are kept as history.
type Instance struct {
	ID           string `json:"id"`
	QuestID      string `json:"quest_id"`
	Status       Status `json:"status"`
	CurrentStage int    `json:"current_stage"`

	// Progress accumulates counted-objective events per stage id.
	Progress map[int]int `json:"progress,omitempty"`

	// OptionalHits records stage ids whose optional branch fired.
	OptionalHits map[int]bool `json:"optional_hits,omitempty"`

	// AwaitingChoice is set once a choice stage's objective is satisfied
	// and cleared never; the instance completes when the choice resolves.
	AwaitingChoice bool   `json:"awaiting_choice,omitempty"`
	Choice         string `json:"choice,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	Deadline       time.Time `json:"deadline,omitzero"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	NextEligibleAt time.Time `json:"next_eligible_at,omitzero"`

	// PendingGrant holds reward portions a collaborator failed to apply.
	// Completion is never rolled back; delivery is retried externally.
	PendingGrant *Grant `json:"pending_grant,omitempty"`
}

// newInstance creates an Active instance at stage 1.
func newInstance(def *Definition, now time.Time) *Instance {
	in := &Instance{
		ID:           uuid.NewString(),
		QuestID:      def.ID,
		Status:       StatusActive,
		CurrentStage: 1,
		Progress:     make(map[int]int),
		OptionalHits: make(map[int]bool),
		StartedAt:    now,
	}
	if def.HasTimeLimit() {
		in.Deadline = now.Add(def.TimeLimit)
	}
	return in
}

// Terminal reports whether the instance reached a final status.
func (in *Instance) Terminal() bool {
	return in.Status == StatusCompleted || in.Status == StatusFailed
}

// Expired reports whether an active instance ran past its time limit.
func (in *Instance) Expired(now time.Time) bool {
	return in.Status == StatusActive && !in.Deadline.IsZero() && !now.Before(in.Deadline)
}

// OnCooldown reports whether a completed repeatable instance still
// blocks a restart at the given time.
func (in *Instance) OnCooldown(now time.Time) bool {
	return in.Status == StatusCompleted && !in.NextEligibleAt.IsZero() && now.Before(in.NextEligibleAt)
}

// Snapshot returns a deep copy safe to hand to callers.
func (in *Instance) Snapshot() Instance {
	out := *in
	if in.Progress != nil {
		out.Progress = make(map[int]int, len(in.Progress))
		for k, v := range in.Progress {
			out.Progress[k] = v
		}
	}
	if in.OptionalHits != nil {
		out.OptionalHits = make(map[int]bool, len(in.OptionalHits))
		for k, v := range in.OptionalHits {
			out.OptionalHits[k] = v
		}
	}
	if in.PendingGrant != nil {
		g := in.PendingGrant.clone()
		out.PendingGrant = &g
	}
	return out
}

// Log tracks every quest instance belonging to one player: the active
// set plus terminal history. The engine serializes all access to a log
// under its per-player lock, so the log itself carries no locking.
type Log struct {
	Active  map[string]*Instance `json:"active"`
	History []*Instance          `json:"history"`
}

// NewLog creates an empty quest log.
func NewLog() *Log {
	return &Log{
		Active: make(map[string]*Instance),
	}
}

// lastCompleted returns the most recent Completed instance for a quest,
// or nil. History is appended in transition order, so the last match wins.
func (l *Log) lastCompleted(questID string) *Instance {
	for i := len(l.History) - 1; i >= 0; i-- {
		if l.History[i].QuestID == questID && l.History[i].Status == StatusCompleted {
			return l.History[i]
		}
	}
	return nil
}

// Find returns the active instance for a quest, falling back to the most
// recent terminal instance.
func (l *Log) Find(questID string) (*Instance, bool) {
	if in, ok := l.Active[questID]; ok {
		return in, true
	}
	for i := len(l.History) - 1; i >= 0; i-- {
		if l.History[i].QuestID == questID {
			return l.History[i], true
		}
	}
	return nil, false
}

// retire moves an instance from the active set into history.
func (l *Log) retire(in *Instance) {
	delete(l.Active, in.QuestID)
	l.History = append(l.History, in)
}

// ToJSON serializes the log for durable storage.
func (l *Log) ToJSON() string {
	data, err := json.Marshal(l)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogFromJSON deserializes a stored log. Empty input yields a fresh log.
func LogFromJSON(data string) (*Log, error) {
	if data == "" || data == "{}" {
		return NewLog(), nil
	}

	l := &Log{}
	if err := json.Unmarshal([]byte(data), l); err != nil {
		return NewLog(), err
	}
	if l.Active == nil {
		l.Active = make(map[string]*Instance)
	}
	for _, in := range l.Active {
		if in.Progress == nil {
			in.Progress = make(map[int]int)
		}
		if in.OptionalHits == nil {
			in.OptionalHits = make(map[int]bool)
		}
	}
	return l, nil
}
