// Package player provides an in-memory player state service: the
// collaborator that owns levels, reputation, currency and item
// possession on behalf of the quest engine. Embedding games replace it
// with adapters onto their own character storage.
package player

import (
	"fmt"
	"sync"

	"github.com/lawnchairsociety/questforge/internal/logger"
	"github.com/lawnchairsociety/questforge/internal/quest"
)

// State is one player's stats as the quest engine sees them.
type State struct {
	Level      int
	Gold       int
	Exp        int
	Reputation map[string]int
	Items      map[string]int // item id -> held count
}

// Service implements the engine's PlayerView and Granter interfaces over
// in-memory player state.
type Service struct {
	mu      sync.RWMutex
	players map[string]*State
}

// NewService creates an empty player service.
func NewService() *Service {
	return &Service{players: make(map[string]*State)}
}

// Upsert registers a player, creating them at the given level.
func (s *Service) Upsert(player string, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.players[player]; ok {
		st.Level = level
		return
	}
	s.players[player] = &State{
		Level:      level,
		Reputation: make(map[string]int),
		Items:      make(map[string]int),
	}
}

// state returns the player's state, creating a level-1 record on first
// sight. Must hold s.mu.
func (s *Service) state(player string) *State {
	st, ok := s.players[player]
	if !ok {
		st = &State{
			Level:      1,
			Reputation: make(map[string]int),
			Items:      make(map[string]int),
		}
		s.players[player] = st
	}
	return st
}

// Level returns the player's current level.
func (s *Service) Level(player string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.players[player]; ok {
		return st.Level
	}
	return 1
}

// Reputation returns the player's standing with a faction.
func (s *Service) Reputation(player, faction string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.players[player]; ok {
		return st.Reputation[faction]
	}
	return 0
}

// HasItem reports whether the player holds at least one of the item.
func (s *Service) HasItem(player, item string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.players[player]; ok {
		return st.Items[item] > 0
	}
	return false
}

// GiveItem adds an item to the player's possession.
func (s *Service) GiveItem(player, item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(player).Items[item]++
}

// TakeItem removes one of the item; it reports whether one was held.
func (s *Service) TakeItem(player, item string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(player)
	if st.Items[item] == 0 {
		return false
	}
	st.Items[item]--
	return true
}

// AddReputation adjusts the player's standing with a faction.
func (s *Service) AddReputation(player, faction string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(player).Reputation[faction] += delta
}

// Grant applies a reward batch atomically: gold and experience add,
// items enter possession, reputation deltas accumulate unclamped.
func (s *Service) Grant(player string, g quest.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(player)
	st.Gold += g.Gold
	if st.Gold < 0 {
		st.Gold = 0
	}
	st.Exp += g.Exp
	for _, item := range g.Items {
		st.Items[item]++
	}
	for faction, delta := range g.Reputation {
		st.Reputation[faction] += delta
	}

	logger.Debug("Grant applied", "player", player, "gold", g.Gold, "exp", g.Exp, "items", len(g.Items))
	return nil
}

// Snapshot returns a copy of the player's state.
func (s *Service) Snapshot(player string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.players[player]
	if !ok {
		return State{}, fmt.Errorf("unknown player %q", player)
	}
	out := State{Level: st.Level, Gold: st.Gold, Exp: st.Exp}
	out.Reputation = make(map[string]int, len(st.Reputation))
	for k, v := range st.Reputation {
		out.Reputation[k] = v
	}
	out.Items = make(map[string]int, len(st.Items))
	for k, v := range st.Items {
		out.Items[k] = v
	}
	return out, nil
}
