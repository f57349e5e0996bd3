package quest

import (
	"errors"
	"testing"
	"time"
)

func TestCanStart_Order(t *testing.T) {
	def := &Definition{
		ID:       "gated",
		MinLevel: 5,
		Reputation: map[string]int{
			"gildia_kupcow": 10,
		},
		Stages: []Stage{{ID: 1, Objective: Objective{Kind: ObjectiveTalkTo, Target: "npc", Count: 1}}},
	}
	now := time.Now()

	t.Run("level checked first", func(t *testing.T) {
		view := &fakeView{levels: map[string]int{"bo": 1}}
		err := CanStart(def, "bo", view, NewLog(), now)
		assertReason(t, err, ReasonLevelTooLow)
	})

	t.Run("reputation checked second", func(t *testing.T) {
		view := &fakeView{levels: map[string]int{"bo": 5}}
		err := CanStart(def, "bo", view, NewLog(), now)
		assertReason(t, err, ReasonReputationTooLow)

		var elig *EligibilityError
		errors.As(err, &elig)
		if elig.Faction != "gildia_kupcow" {
			t.Errorf("Expected faction gildia_kupcow, got %s", elig.Faction)
		}
	})

	t.Run("eligible", func(t *testing.T) {
		view := &fakeView{
			levels:      map[string]int{"bo": 5},
			reputations: map[string]map[string]int{"bo": {"gildia_kupcow": 10}},
		}
		if err := CanStart(def, "bo", view, NewLog(), now); err != nil {
			t.Errorf("Expected eligible, got %v", err)
		}
	})
}

func TestCanStart_ReputationBoundary(t *testing.T) {
	// A zero-valued prerequisite admits standing 0 and rejects below.
	def := &Definition{
		ID:         "polowanie",
		Reputation: map[string]int{"mysliwi": 0},
		Stages:     []Stage{{ID: 1, Objective: Objective{Kind: ObjectiveKill, Target: "wilk", Count: 1}}},
	}
	now := time.Now()

	view := &fakeView{
		levels:      map[string]int{"bo": 1},
		reputations: map[string]map[string]int{"bo": {"mysliwi": -1}},
	}
	assertReason(t, CanStart(def, "bo", view, NewLog(), now), ReasonReputationTooLow)

	view.reputations["bo"]["mysliwi"] = 0
	if err := CanStart(def, "bo", view, NewLog(), now); err != nil {
		t.Errorf("Expected eligible at reputation 0, got %v", err)
	}
}

func TestCanStart_ActiveAndCompleted(t *testing.T) {
	def := &Definition{
		ID:     "once",
		Stages: []Stage{{ID: 1, Objective: Objective{Kind: ObjectiveTalkTo, Target: "npc", Count: 1}}},
	}
	view := &fakeView{levels: map[string]int{"bo": 1}}
	now := time.Now()

	log := NewLog()
	log.Active["once"] = newInstance(def, now)
	assertReason(t, CanStart(def, "bo", view, log, now), ReasonAlreadyActive)

	log = NewLog()
	done := newInstance(def, now.Add(-time.Hour))
	done.Status = StatusCompleted
	done.FinishedAt = now.Add(-time.Minute)
	log.retire(done)
	assertReason(t, CanStart(def, "bo", view, log, now), ReasonAlreadyCompleted)
}

func TestCanStart_Cooldown(t *testing.T) {
	def := &Definition{
		ID:         "daily",
		Repeatable: true,
		Cooldown:   24 * time.Hour,
		Stages:     []Stage{{ID: 1, Objective: Objective{Kind: ObjectiveGather, Target: "herb", Count: 5}}},
	}
	view := &fakeView{levels: map[string]int{"bo": 1}}
	now := time.Now()

	log := NewLog()
	done := newInstance(def, now.Add(-time.Hour))
	done.Status = StatusCompleted
	done.FinishedAt = now
	done.NextEligibleAt = now.Add(24 * time.Hour)
	log.retire(done)

	err := CanStart(def, "bo", view, log, now.Add(time.Hour))
	assertReason(t, err, ReasonOnCooldown)

	var elig *EligibilityError
	errors.As(err, &elig)
	if elig.Remaining != 23*time.Hour {
		t.Errorf("Expected 23h remaining, got %s", elig.Remaining)
	}

	if err := CanStart(def, "bo", view, log, now.Add(24*time.Hour)); err != nil {
		t.Errorf("Expected eligible after cooldown, got %v", err)
	}
}

func assertReason(t *testing.T, err error, want EligibilityReason) {
	t.Helper()
	var elig *EligibilityError
	if !errors.As(err, &elig) {
		t.Fatalf("Expected *EligibilityError, got %v", err)
	}
	if elig.Reason != want {
		t.Errorf("Expected reason %s, got %s", want, elig.Reason)
	}
}
