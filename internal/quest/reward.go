package quest

// Grant is the single batch of rewards reported to external
// collaborators when a quest resolves. Reputation deltas are signed and
// unclamped; failure penalties reuse the same shape with negative values.
type Grant struct {
	Gold       int            `json:"gold,omitempty"`
	Exp        int            `json:"exp,omitempty"`
	Items      []string       `json:"items,omitempty"`
	Reputation map[string]int `json:"reputation,omitempty"`
}

// IsZero reports whether the grant carries nothing.
func (g Grant) IsZero() bool {
	return g.Gold == 0 && g.Exp == 0 && len(g.Items) == 0 && len(g.Reputation) == 0
}

func (g Grant) clone() Grant {
	out := g
	if g.Items != nil {
		out.Items = make([]string, len(g.Items))
		copy(out.Items, g.Items)
	}
	if g.Reputation != nil {
		out.Reputation = make(map[string]int, len(g.Reputation))
		for k, v := range g.Reputation {
			out.Reputation[k] = v
		}
	}
	return out
}

// subtract returns the portion of g not covered by applied. Item lists
// subtract by prefix length since grants apply in order.
func (g Grant) subtract(applied Grant) Grant {
	out := Grant{
		Gold: g.Gold - applied.Gold,
		Exp:  g.Exp - applied.Exp,
	}
	if len(applied.Items) < len(g.Items) {
		out.Items = append([]string(nil), g.Items[len(applied.Items):]...)
	}
	for faction, delta := range g.Reputation {
		rest := delta - applied.Reputation[faction]
		if rest != 0 {
			if out.Reputation == nil {
				out.Reputation = make(map[string]int)
			}
			out.Reputation[faction] = rest
		}
	}
	return out
}

// Granter receives reward batches. Implementations own currency,
// inventory and reputation storage; the engine only emits requests and
// treats each call as atomic up to its result. A Granter may return a
// *PartialGrantError to report the portion it did apply.
type Granter interface {
	Grant(player string, g Grant) error
}

// ResolveRewards folds reward sets, in order, into one grant plus the
// quest ids to attempt unlocking afterward. Gold and experience sum,
// item lists concatenate with duplicates kept, and reputation deltas sum
// per faction without clamping.
func ResolveRewards(sets ...RewardSet) (Grant, []string) {
	var g Grant
	var unlocks []string
	for _, s := range sets {
		g.Gold += s.Gold
		g.Exp += s.Exp
		g.Items = append(g.Items, s.Items...)
		for faction, delta := range s.Reputation {
			if g.Reputation == nil {
				g.Reputation = make(map[string]int)
			}
			g.Reputation[faction] += delta
		}
		if s.UnlockQuest != "" {
			unlocks = append(unlocks, s.UnlockQuest)
		}
	}
	return g, unlocks
}

// PenaltyGrant converts a failure penalty set into the grant applied when
// a quest fails, using the same aggregation rule as rewards.
func PenaltyGrant(p *FailurePenaltySet) Grant {
	var g Grant
	if p == nil {
		return g
	}
	for faction, delta := range p.Reputation {
		if g.Reputation == nil {
			g.Reputation = make(map[string]int)
		}
		g.Reputation[faction] += delta
	}
	return g
}
