package player

import (
	"testing"

	"github.com/lawnchairsociety/questforge/internal/quest"
)

func TestUnknownPlayerDefaults(t *testing.T) {
	s := NewService()

	if got := s.Level("bo"); got != 1 {
		t.Errorf("Expected default level 1, got %d", got)
	}
	if got := s.Reputation("bo", "mysliwi"); got != 0 {
		t.Errorf("Expected default reputation 0, got %d", got)
	}
	if s.HasItem("bo", "mikstura_zdrowia") {
		t.Error("Unknown player should hold no items")
	}
}

func TestUpsertSetsLevel(t *testing.T) {
	s := NewService()

	s.Upsert("bo", 5)
	if got := s.Level("bo"); got != 5 {
		t.Errorf("Expected level 5, got %d", got)
	}

	s.AddReputation("bo", "mysliwi", 10)
	s.Upsert("bo", 6)
	if got := s.Level("bo"); got != 6 {
		t.Errorf("Expected level 6 after re-upsert, got %d", got)
	}
	if got := s.Reputation("bo", "mysliwi"); got != 10 {
		t.Errorf("Re-upsert must keep reputation, got %d", got)
	}
}

func TestItemPossession(t *testing.T) {
	s := NewService()

	s.GiveItem("bo", "skrzynia_towarow")
	if !s.HasItem("bo", "skrzynia_towarow") {
		t.Fatal("Expected item after GiveItem")
	}

	if !s.TakeItem("bo", "skrzynia_towarow") {
		t.Fatal("TakeItem should succeed for held item")
	}
	if s.HasItem("bo", "skrzynia_towarow") {
		t.Error("Item still held after TakeItem")
	}
	if s.TakeItem("bo", "skrzynia_towarow") {
		t.Error("TakeItem should fail when nothing is held")
	}
}

func TestGrantApplies(t *testing.T) {
	s := NewService()
	s.Upsert("bo", 3)

	err := s.Grant("bo", quest.Grant{
		Gold:       150,
		Exp:        120,
		Items:      []string{"wilcze_futro", "wilcze_futro"},
		Reputation: map[string]int{"mysliwi": 15},
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}

	st, err := s.Snapshot("bo")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if st.Gold != 150 || st.Exp != 120 {
		t.Errorf("Expected gold 150 exp 120, got gold %d exp %d", st.Gold, st.Exp)
	}
	if st.Items["wilcze_futro"] != 2 {
		t.Errorf("Expected 2 wilcze_futro, got %d", st.Items["wilcze_futro"])
	}
	if st.Reputation["mysliwi"] != 15 {
		t.Errorf("Expected mysliwi 15, got %d", st.Reputation["mysliwi"])
	}
}

func TestGrantPenaltyFloorsGold(t *testing.T) {
	s := NewService()
	s.Upsert("bo", 1)

	s.Grant("bo", quest.Grant{Gold: 30})
	s.Grant("bo", quest.Grant{Gold: -100, Reputation: map[string]int{"mysliwi": -5}})

	st, _ := s.Snapshot("bo")
	if st.Gold != 0 {
		t.Errorf("Gold must floor at 0, got %d", st.Gold)
	}
	// Reputation goes negative unclamped.
	if st.Reputation["mysliwi"] != -5 {
		t.Errorf("Expected mysliwi -5, got %d", st.Reputation["mysliwi"])
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewService()
	s.Upsert("bo", 2)
	s.GiveItem("bo", "mikstura_zdrowia")

	st, err := s.Snapshot("bo")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	st.Items["mikstura_zdrowia"] = 99
	st.Reputation["mysliwi"] = 99

	if got := s.Reputation("bo", "mysliwi"); got != 0 {
		t.Errorf("Snapshot mutation leaked into service: %d", got)
	}

	if _, err := s.Snapshot("nieznany"); err == nil {
		t.Error("Expected error for unknown player snapshot")
	}
}
