// Package gateway exposes the quest engine over WebSocket. Game-world
// collaborators (dialogue, combat, movement systems) push resolved game
// events as JSON and receive the resulting transitions; the same
// connection accepts start, choice, and query commands. The engine
// itself stays transport-free.
package gateway

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/questforge/internal/config"
	"github.com/lawnchairsociety/questforge/internal/logger"
	"github.com/lawnchairsociety/questforge/internal/quest"
)

// Gateway bridges WebSocket connections to the quest engine.
type Gateway struct {
	engine   *quest.Engine
	cfg      config.GatewayConfig
	upgrader websocket.Upgrader
}

// New creates a gateway over an engine.
func New(engine *quest.Engine, cfg config.GatewayConfig) *Gateway {
	g := &Gateway{engine: engine, cfg: cfg}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// checkOrigin enforces the configured origin policy. Requests without an
// Origin header (non-browser collaborators) are allowed.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(g.cfg.AllowedOrigins) == 0 {
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
	return g.cfg.IsOriginAllowed(origin)
}

// Command is one request frame from a collaborator.
type Command struct {
	Op      string `json:"op"` // event, start, choice, abandon, query, active, history, available
	Player  string `json:"player"`
	QuestID string `json:"quest_id,omitempty"`
	Choice  string `json:"choice,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Target  string `json:"target,omitempty"`
	Giver   string `json:"giver,omitempty"`
}

// Response is the reply frame for one command.
type Response struct {
	OK          bool               `json:"ok"`
	Error       string             `json:"error,omitempty"`
	Transitions []quest.Transition `json:"transitions,omitempty"`
	Instance    *quest.Instance    `json:"instance,omitempty"`
	Instances   []quest.Instance   `json:"instances,omitempty"`
	Quests      []string           `json:"quests,omitempty"`
}

// Handler returns the HTTP handler for the gateway endpoint.
func (g *Gateway) Handler() http.Handler {
	return http.HandlerFunc(g.serveWS)
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warning("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	if g.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(g.cfg.MaxMessageSize)
	}
	logger.Info("Collaborator connected", "remote", r.RemoteAddr)

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warning("WebSocket read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		resp := g.dispatch(cmd)
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warning("WebSocket write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

// dispatch executes a single command against the engine.
func (g *Gateway) dispatch(cmd Command) Response {
	if cmd.Player == "" {
		return Response{Error: "player is required"}
	}

	switch cmd.Op {
	case "event":
		kind, ok := parseEventKind(cmd.Kind)
		if !ok {
			return Response{Error: "unknown event kind: " + cmd.Kind}
		}
		trs := g.engine.SubmitEvent(quest.Event{Kind: kind, Target: cmd.Target, Player: cmd.Player})
		return Response{OK: true, Transitions: trs}

	case "start":
		in, err := g.engine.StartQuest(cmd.Player, cmd.QuestID)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Instance: &in}

	case "choice":
		trs, err := g.engine.ResolveChoice(cmd.Player, cmd.QuestID, cmd.Choice)
		if err != nil {
			r := errorResponse(err)
			r.Transitions = trs
			return r
		}
		return Response{OK: true, Transitions: trs}

	case "abandon":
		trs, err := g.engine.Abandon(cmd.Player, cmd.QuestID)
		if err != nil {
			r := errorResponse(err)
			r.Transitions = trs
			return r
		}
		return Response{OK: true, Transitions: trs}

	case "query":
		in, ok := g.engine.Instance(cmd.Player, cmd.QuestID)
		if !ok {
			return Response{Error: "no instance"}
		}
		return Response{OK: true, Instance: &in}

	case "active":
		return Response{OK: true, Instances: g.engine.ActiveQuests(cmd.Player)}

	case "history":
		return Response{OK: true, Instances: g.engine.History(cmd.Player)}

	case "available":
		defs := g.engine.AvailableQuests(cmd.Player, cmd.Giver)
		ids := make([]string, len(defs))
		for i, def := range defs {
			ids[i] = def.ID
		}
		return Response{OK: true, Quests: ids}
	}

	return Response{Error: "unknown op: " + cmd.Op}
}

// errorResponse maps engine errors onto the wire. Eligibility and
// progression errors are expected outcomes, not server faults.
func errorResponse(err error) Response {
	var elig *quest.EligibilityError
	if errors.As(err, &elig) {
		return Response{Error: string(elig.Reason)}
	}
	return Response{Error: err.Error()}
}

func parseEventKind(s string) (quest.ObjectiveKind, bool) {
	switch kind := quest.ObjectiveKind(s); kind {
	case quest.ObjectiveTalkTo, quest.ObjectiveGoTo, quest.ObjectiveInvestigate,
		quest.ObjectiveKill, quest.ObjectiveCollect, quest.ObjectiveGather, quest.ObjectiveExplore:
		return kind, true
	}
	return "", false
}
