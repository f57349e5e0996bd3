package gateway

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/questforge/internal/config"
	"github.com/lawnchairsociety/questforge/internal/player"
	"github.com/lawnchairsociety/questforge/internal/quest"
)

const testContent = `
quest_types:
  delivery:
    name: "Dostawa"
    description: "Przewiez towary do celu."

quests:
  dostawa_towarow:
    name: "Dostawa towarow"
    giver: kupiec_jan
    description: "Dostarcz skrzynie na trakt kupiecki."
    type: delivery
    difficulty: easy
    min_level: 1
    stages:
      - id: 1
        description: "Porozmawiaj z kupcem Janem."
        objective: talk_to
        target: kupiec_jan
      - id: 2
        description: "Dostarcz skrzynie na trakt."
        objective: go_to
        target: trakt_kupiecki
    rewards:
      gold: 100
      exp: 50
`

func testGateway(t *testing.T, cfg config.GatewayConfig) (*Gateway, *player.Service) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quests.yaml")
	if err := os.WriteFile(path, []byte(testContent), 0644); err != nil {
		t.Fatalf("Failed to write content file: %v", err)
	}
	content, err := quest.LoadContent(path)
	if err != nil {
		t.Fatalf("Failed to load content: %v", err)
	}
	catalog, errs := quest.BuildCatalog(content)
	if len(errs) > 0 {
		t.Fatalf("Unexpected content errors: %v", errs)
	}

	players := player.NewService()
	engine := quest.New(catalog, players, players)
	return New(engine, cfg), players
}

func dialTestServer(t *testing.T, g *Gateway) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial gateway: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, cmd Command) Response {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp
}

func TestGatewayQuestFlow(t *testing.T) {
	g, players := testGateway(t, config.GatewayConfig{})
	conn := dialTestServer(t, g)

	resp := roundTrip(t, conn, Command{Op: "available", Player: "bo", Giver: "kupiec_jan"})
	if !resp.OK || len(resp.Quests) != 1 || resp.Quests[0] != "dostawa_towarow" {
		t.Fatalf("Expected dostawa_towarow available, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "start", Player: "bo", QuestID: "dostawa_towarow"})
	if !resp.OK || resp.Instance == nil || resp.Instance.CurrentStage != 1 {
		t.Fatalf("Expected started instance at stage 1, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "event", Player: "bo", Kind: "talk_to", Target: "kupiec_jan"})
	if !resp.OK || len(resp.Transitions) != 1 || resp.Transitions[0].Kind != quest.TransitionStage {
		t.Fatalf("Expected stage advance, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "event", Player: "bo", Kind: "go_to", Target: "trakt_kupiecki"})
	if !resp.OK || len(resp.Transitions) != 1 || resp.Transitions[0].Kind != quest.TransitionCompleted {
		t.Fatalf("Expected completion, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "query", Player: "bo", QuestID: "dostawa_towarow"})
	if !resp.OK || resp.Instance == nil || resp.Instance.Status != quest.StatusCompleted {
		t.Fatalf("Expected completed instance, got %+v", resp)
	}

	// Rewards landed on the player service.
	st, err := players.Snapshot("bo")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if st.Gold != 100 || st.Exp != 50 {
		t.Errorf("Expected gold 100 exp 50, got gold %d exp %d", st.Gold, st.Exp)
	}
}

func TestGatewayErrors(t *testing.T) {
	g, _ := testGateway(t, config.GatewayConfig{})
	conn := dialTestServer(t, g)

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"missing player", Command{Op: "start", QuestID: "dostawa_towarow"}, "player is required"},
		{"unknown op", Command{Op: "teleport", Player: "bo"}, "unknown op: teleport"},
		{"unknown event kind", Command{Op: "event", Player: "bo", Kind: "dance", Target: "x"}, "unknown event kind: dance"},
		{"unknown quest", Command{Op: "start", Player: "bo", QuestID: "nie_istnieje"}, "unknown quest id"},
		{"query without instance", Command{Op: "query", Player: "bo", QuestID: "dostawa_towarow"}, "no instance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, conn, tt.cmd)
			if resp.OK {
				t.Fatalf("Expected error response, got %+v", resp)
			}
			if resp.Error != tt.want {
				t.Errorf("Expected error %q, got %q", tt.want, resp.Error)
			}
		})
	}
}

func TestGatewayEligibilityReasonOnWire(t *testing.T) {
	g, _ := testGateway(t, config.GatewayConfig{})
	conn := dialTestServer(t, g)

	resp := roundTrip(t, conn, Command{Op: "start", Player: "bo", QuestID: "dostawa_towarow"})
	if !resp.OK {
		t.Fatalf("First start failed: %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "start", Player: "bo", QuestID: "dostawa_towarow"})
	if resp.OK || resp.Error != string(quest.ReasonAlreadyActive) {
		t.Errorf("Expected %q on the wire, got %+v", quest.ReasonAlreadyActive, resp)
	}
}

func TestGatewayAbandon(t *testing.T) {
	g, _ := testGateway(t, config.GatewayConfig{})
	conn := dialTestServer(t, g)

	roundTrip(t, conn, Command{Op: "start", Player: "bo", QuestID: "dostawa_towarow"})

	resp := roundTrip(t, conn, Command{Op: "abandon", Player: "bo", QuestID: "dostawa_towarow"})
	if !resp.OK || len(resp.Transitions) != 1 || resp.Transitions[0].Kind != quest.TransitionFailed {
		t.Fatalf("Expected failure transition, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "active", Player: "bo"})
	if !resp.OK || len(resp.Instances) != 0 {
		t.Errorf("Expected no active quests after abandon, got %+v", resp)
	}

	resp = roundTrip(t, conn, Command{Op: "history", Player: "bo"})
	if !resp.OK || len(resp.Instances) != 1 || resp.Instances[0].Status != quest.StatusFailed {
		t.Errorf("Expected failed record in history, got %+v", resp)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "game.local:4600", true},
		{"same origin default", nil, "http://game.local:4600", "game.local:4600", true},
		{"cross origin default", nil, "http://evil.example", "game.local:4600", false},
		{"allowed list match", []string{"http://hub.example"}, "http://hub.example", "game.local:4600", true},
		{"allowed list miss", []string{"http://hub.example"}, "http://other.example", "game.local:4600", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := testGateway(t, config.GatewayConfig{AllowedOrigins: tt.allowed})
			r := httptest.NewRequest(http.MethodGet, "/quests", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := g.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
