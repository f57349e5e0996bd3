package quest

import (
	"reflect"
	"testing"
)

func TestResolveRewards_Aggregation(t *testing.T) {
	base := RewardSet{
		Gold:       100,
		Exp:        50,
		Items:      []string{"mikstura_zdrowia"},
		Reputation: map[string]int{"gildia_kupcow": 10},
	}
	bonus := RewardSet{Gold: 50}

	grant, unlocks := ResolveRewards(base, bonus)

	if grant.Gold != 150 {
		t.Errorf("Expected gold 150, got %d", grant.Gold)
	}
	if grant.Exp != 50 {
		t.Errorf("Expected exp 50, got %d", grant.Exp)
	}
	if !reflect.DeepEqual(grant.Items, []string{"mikstura_zdrowia"}) {
		t.Errorf("Unexpected items: %v", grant.Items)
	}
	if grant.Reputation["gildia_kupcow"] != 10 {
		t.Errorf("Expected reputation +10, got %d", grant.Reputation["gildia_kupcow"])
	}
	if len(unlocks) != 0 {
		t.Errorf("Expected no unlocks, got %v", unlocks)
	}
}

func TestResolveRewards_ItemsConcatenateWithDuplicates(t *testing.T) {
	a := RewardSet{Items: []string{"mikstura", "mikstura"}}
	b := RewardSet{Items: []string{"zwoj", "mikstura"}}

	grant, _ := ResolveRewards(a, b)
	want := []string{"mikstura", "mikstura", "zwoj", "mikstura"}
	if !reflect.DeepEqual(grant.Items, want) {
		t.Errorf("Expected %v, got %v", want, grant.Items)
	}
}

func TestResolveRewards_ReputationSumsUnclamped(t *testing.T) {
	a := RewardSet{Reputation: map[string]int{"krag_druidow": 30, "mysliwi": -5}}
	b := RewardSet{Reputation: map[string]int{"krag_druidow": -100}}

	grant, _ := ResolveRewards(a, b)
	if grant.Reputation["krag_druidow"] != -70 {
		t.Errorf("Expected -70, got %d", grant.Reputation["krag_druidow"])
	}
	if grant.Reputation["mysliwi"] != -5 {
		t.Errorf("Expected -5, got %d", grant.Reputation["mysliwi"])
	}
}

func TestResolveRewards_CollectsUnlocks(t *testing.T) {
	a := RewardSet{UnlockQuest: "tajemnice_pradawnych"}
	b := RewardSet{UnlockQuest: "inny_quest"}

	_, unlocks := ResolveRewards(a, b)
	if !reflect.DeepEqual(unlocks, []string{"tajemnice_pradawnych", "inny_quest"}) {
		t.Errorf("Unexpected unlocks: %v", unlocks)
	}
}

func TestPenaltyGrant(t *testing.T) {
	if !PenaltyGrant(nil).IsZero() {
		t.Error("Nil penalty set should grant nothing")
	}

	g := PenaltyGrant(&FailurePenaltySet{Reputation: map[string]int{"mysliwi": -5}})
	if g.Reputation["mysliwi"] != -5 {
		t.Errorf("Expected -5, got %d", g.Reputation["mysliwi"])
	}
	if g.Gold != 0 || g.Exp != 0 || len(g.Items) != 0 {
		t.Error("Penalty grants are reputation-only for this schema")
	}
}

func TestGrantSubtract(t *testing.T) {
	total := Grant{
		Gold:       150,
		Exp:        50,
		Items:      []string{"a", "b", "c"},
		Reputation: map[string]int{"gildia_kupcow": 10},
	}
	applied := Grant{Gold: 150, Items: []string{"a"}}

	rest := total.subtract(applied)
	if rest.Gold != 0 {
		t.Errorf("Expected gold 0, got %d", rest.Gold)
	}
	if rest.Exp != 50 {
		t.Errorf("Expected exp 50, got %d", rest.Exp)
	}
	if !reflect.DeepEqual(rest.Items, []string{"b", "c"}) {
		t.Errorf("Expected remaining items [b c], got %v", rest.Items)
	}
	if rest.Reputation["gildia_kupcow"] != 10 {
		t.Errorf("Expected remaining reputation 10, got %d", rest.Reputation["gildia_kupcow"])
	}
}
