package quest

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lawnchairsociety/questforge/internal/logger"
)

// Persister durably stores player quest logs between sessions. The
// engine calls it synchronously at transition boundaries and logs
// failures without blocking progression; retry belongs to the store.
type Persister interface {
	SaveLog(player string, log *Log) error
	LoadLog(player string) (*Log, error)
}

// TransitionKind names an observable quest state change.
type TransitionKind string

const (
	TransitionStarted   TransitionKind = "started"
	TransitionProgress  TransitionKind = "progress"
	TransitionStage     TransitionKind = "stage_advanced"
	TransitionOptional  TransitionKind = "optional_triggered"
	TransitionChoices   TransitionKind = "choices_offered"
	TransitionCompleted TransitionKind = "completed"
	TransitionFailed    TransitionKind = "failed"
)

// Transition describes one state change produced by an engine operation.
type Transition struct {
	Player     string         `json:"player"`
	QuestID    string         `json:"quest_id"`
	InstanceID string         `json:"instance_id"`
	Kind       TransitionKind `json:"kind"`

	// Stage is the relevant stage position: the newly current stage for
	// stage_advanced, otherwise the stage the event applied to.
	Stage    int `json:"stage,omitempty"`
	Progress int `json:"progress,omitempty"`
	Required int `json:"required,omitempty"`

	// Choices lists the options surfaced by a choices_offered transition.
	Choices []string `json:"choices,omitempty"`

	// Grant is the applied reward or penalty batch; Pending is any
	// portion a collaborator failed to deliver.
	Grant   *Grant `json:"grant,omitempty"`
	Pending *Grant `json:"pending,omitempty"`
}

// Engine drives per-player quest state in response to game events and
// clock ticks. The catalog is shared read-only; each player's log is
// guarded by its own lock so one player's transitions serialize while
// different players never contend. Unlock chaining runs as a deferred
// queue drained inside the same critical section, never as a reentrant
// call.
type Engine struct {
	catalog *Catalog
	view    PlayerView
	granter Granter
	persist Persister
	now     func() time.Time

	mu      sync.Mutex
	players map[string]*playerState
}

type playerState struct {
	mu     sync.Mutex
	loaded bool
	log    *Log
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPersister attaches a durable store for player quest logs.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persist = p }
}

// New creates an engine over an immutable catalog and the external
// collaborators that own player state and reward storage.
func New(catalog *Catalog, view PlayerView, granter Granter, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		view:    view,
		granter: granter,
		now:     time.Now,
		players: make(map[string]*playerState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's quest catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// player returns the state for a player, creating it on first access.
// The caller must not hold ps.mu; log loading happens under ps.mu so the
// engine lock is never held across store I/O.
func (e *Engine) player(id string) *playerState {
	e.mu.Lock()
	ps, ok := e.players[id]
	if !ok {
		ps = &playerState{}
		e.players[id] = ps
	}
	e.mu.Unlock()
	return ps
}

// ensureLog loads the player's log on first use. Must hold ps.mu.
func (e *Engine) ensureLog(player string, ps *playerState) {
	if ps.loaded {
		return
	}
	ps.loaded = true
	if e.persist == nil {
		ps.log = NewLog()
		return
	}
	log, err := e.persist.LoadLog(player)
	if err != nil {
		logger.Error("Failed to load quest log, starting fresh", "player", player, "error", err)
		ps.log = NewLog()
		return
	}
	ps.log = log
}

// save persists the player's log, logging failures without blocking.
func (e *Engine) save(player string, ps *playerState) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveLog(player, ps.log); err != nil {
		logger.Error("Failed to persist quest log", "player", player, "error", err)
	}
}

// StartQuest creates a new Active instance if the player is eligible.
// Ineligibility is reported as an *EligibilityError, never a fault.
func (e *Engine) StartQuest(player, questID string) (Instance, error) {
	def, ok := e.catalog.Quest(questID)
	if !ok {
		return Instance{}, ErrUnknownQuest
	}

	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	now := e.now()
	e.expireOverdue(player, ps, now)

	if err := CanStart(def, player, e.view, ps.log, now); err != nil {
		return Instance{}, err
	}

	in := newInstance(def, now)
	ps.log.Active[questID] = in
	logger.Info("Quest started", "player", player, "quest", questID, "instance", in.ID)
	e.save(player, ps)
	return in.Snapshot(), nil
}

// SubmitEvent applies a game event to every active instance of the
// event's player and returns the resulting transitions. Events that
// match nothing, reference terminal instances, or duplicate already
// processed progress are no-ops.
func (e *Engine) SubmitEvent(ev Event) []Transition {
	if ev.Player == "" {
		return nil
	}

	ps := e.player(ev.Player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(ev.Player, ps)

	now := e.now()
	trs := e.expireOverdue(ev.Player, ps, now)
	var unlocks []string

	for _, questID := range sortedActiveIDs(ps.log) {
		in, ok := ps.log.Active[questID]
		if !ok {
			continue
		}
		def, ok := e.catalog.Quest(questID)
		if !ok {
			// Instance restored for a quest no longer in the catalog.
			continue
		}
		stage, ok := def.StageAt(in.CurrentStage)
		if !ok {
			continue
		}

		// The optional branch is independent of the primary objective and
		// available only while its stage is current.
		if stage.Optional != nil && !in.OptionalHits[stage.ID] &&
			ev.Kind == ObjectiveKill && ev.Target == stage.Optional.CombatTarget {
			in.OptionalHits[stage.ID] = true
			trs = append(trs, Transition{
				Player: ev.Player, QuestID: questID, InstanceID: in.ID,
				Kind: TransitionOptional, Stage: stage.ID,
			})
		}

		if in.AwaitingChoice {
			// Objective already satisfied; waiting on ResolveChoice.
			continue
		}

		switch EvaluateObjective(stage, in, ev, e.view) {
		case Unmatched:
		case Partial:
			trs = append(trs, Transition{
				Player: ev.Player, QuestID: questID, InstanceID: in.ID,
				Kind: TransitionProgress, Stage: stage.ID,
				Progress: in.Progress[stage.ID], Required: stage.Objective.Count,
			})
		case Satisfied:
			switch {
			case stage.HasChoices():
				in.AwaitingChoice = true
				trs = append(trs, Transition{
					Player: ev.Player, QuestID: questID, InstanceID: in.ID,
					Kind: TransitionChoices, Stage: stage.ID,
					Choices: choiceTexts(stage),
				})
			case stage.ID == def.FinalStage():
				tr, u := e.completeInstance(ev.Player, in, def, now, nil)
				ps.log.retire(in)
				trs = append(trs, tr)
				unlocks = append(unlocks, u...)
			default:
				in.CurrentStage++
				trs = append(trs, Transition{
					Player: ev.Player, QuestID: questID, InstanceID: in.ID,
					Kind: TransitionStage, Stage: in.CurrentStage,
				})
			}
		}
	}

	trs = append(trs, e.processUnlocks(ev.Player, ps, now, unlocks)...)
	if len(trs) > 0 {
		e.save(ev.Player, ps)
	}
	return trs
}

// ResolveChoice resolves a pending choice stage, completing the quest
// with the choice's reward set in place of the base rewards. The
// definition-level unlock still applies exactly once. On success the
// last transition is the completion.
func (e *Engine) ResolveChoice(player, questID, choiceText string) ([]Transition, error) {
	if _, ok := e.catalog.Quest(questID); !ok {
		return nil, ErrUnknownQuest
	}

	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	now := e.now()
	trs := e.expireOverdue(player, ps, now)
	if len(trs) > 0 {
		// Expiry mutated the log and granted penalties; persist even if
		// the choice itself turns out to be invalid.
		e.save(player, ps)
	}

	in, ok := ps.log.Active[questID]
	if !ok {
		return trs, ErrNotActive
	}
	def, _ := e.catalog.Quest(questID)
	stage, ok := def.StageAt(in.CurrentStage)
	if !ok || !stage.HasChoices() || !in.AwaitingChoice {
		return trs, ErrInvalidChoice
	}
	choice, ok := stage.ChoiceByText(choiceText)
	if !ok {
		return trs, ErrInvalidChoice
	}

	in.Choice = choice.Text
	tr, unlocks := e.completeInstance(player, in, def, now, choice)
	ps.log.retire(in)
	trs = append(trs, tr)
	trs = append(trs, e.processUnlocks(player, ps, now, unlocks)...)
	e.save(player, ps)
	return trs, nil
}

// Abandon explicitly fails an active quest, applying failure penalties.
func (e *Engine) Abandon(player, questID string) ([]Transition, error) {
	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	now := e.now()
	trs := e.expireOverdue(player, ps, now)
	if len(trs) > 0 {
		e.save(player, ps)
	}

	in, ok := ps.log.Active[questID]
	if !ok {
		return trs, ErrNotActive
	}
	def, ok := e.catalog.Quest(questID)
	if !ok {
		return trs, ErrUnknownQuest
	}

	trs = append(trs, e.failInstance(player, ps, in, def, now))
	e.save(player, ps)
	return trs, nil
}

// Tick sweeps every player's active instances for time-limit expiry.
// Timer checks are lazy: an instance also expires on its next access, so
// expiry latency is bounded by the sweep interval.
func (e *Engine) Tick(now time.Time) []Transition {
	e.mu.Lock()
	ids := make([]string, 0, len(e.players))
	for id := range e.players {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)

	var trs []Transition
	for _, player := range ids {
		ps := e.player(player)
		ps.mu.Lock()
		e.ensureLog(player, ps)
		expired := e.expireOverdue(player, ps, now)
		if len(expired) > 0 {
			e.save(player, ps)
		}
		ps.mu.Unlock()
		trs = append(trs, expired...)
	}
	return trs
}

// Instance returns a snapshot of the player's instance for a quest: the
// active one if present, otherwise the most recent terminal record.
func (e *Engine) Instance(player, questID string) (Instance, bool) {
	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	if expired := e.expireOverdue(player, ps, e.now()); len(expired) > 0 {
		e.save(player, ps)
	}

	in, ok := ps.log.Find(questID)
	if !ok {
		return Instance{}, false
	}
	return in.Snapshot(), true
}

// ActiveQuests returns snapshots of the player's active instances.
func (e *Engine) ActiveQuests(player string) []Instance {
	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	if expired := e.expireOverdue(player, ps, e.now()); len(expired) > 0 {
		e.save(player, ps)
	}

	out := make([]Instance, 0, len(ps.log.Active))
	for _, questID := range sortedActiveIDs(ps.log) {
		out = append(out, ps.log.Active[questID].Snapshot())
	}
	return out
}

// History returns snapshots of the player's terminal instances in
// transition order, oldest first.
func (e *Engine) History(player string) []Instance {
	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	out := make([]Instance, 0, len(ps.log.History))
	for _, in := range ps.log.History {
		out = append(out, in.Snapshot())
	}
	return out
}

// AvailableQuests returns quests the player could start right now from
// the given giver.
func (e *Engine) AvailableQuests(player, giver string) []*Definition {
	ps := e.player(player)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.ensureLog(player, ps)

	now := e.now()
	if expired := e.expireOverdue(player, ps, now); len(expired) > 0 {
		e.save(player, ps)
	}

	var out []*Definition
	for _, def := range e.catalog.QuestsByGiver(giver) {
		if CanStart(def, player, e.view, ps.log, now) == nil {
			out = append(out, def)
		}
	}
	return out
}

// expireOverdue fails every active instance past its deadline.
// Must hold ps.mu.
func (e *Engine) expireOverdue(player string, ps *playerState, now time.Time) []Transition {
	var trs []Transition
	for _, questID := range sortedActiveIDs(ps.log) {
		in := ps.log.Active[questID]
		if !in.Expired(now) {
			continue
		}
		def, ok := e.catalog.Quest(questID)
		if !ok {
			continue
		}
		trs = append(trs, e.failInstance(player, ps, in, def, now))
	}
	return trs
}

// failInstance transitions Active to Failed and applies the failure
// penalty set. Must hold ps.mu.
func (e *Engine) failInstance(player string, ps *playerState, in *Instance, def *Definition, now time.Time) Transition {
	in.Status = StatusFailed
	in.FinishedAt = now
	ps.log.retire(in)

	tr := Transition{
		Player: player, QuestID: def.ID, InstanceID: in.ID,
		Kind: TransitionFailed, Stage: in.CurrentStage,
	}
	penalty := PenaltyGrant(def.FailurePenalties)
	applied, pending := e.applyGrant(player, in, penalty)
	if !applied.IsZero() {
		tr.Grant = &applied
	}
	tr.Pending = pending

	logger.Info("Quest failed", "player", player, "quest", def.ID, "instance", in.ID)
	return tr
}

// completeInstance transitions Active to Completed and resolves the
// reward grant atomically with the transition: the status change and the
// grant emission happen inside the same critical section, so no caller
// observes one without the other. Must hold ps.mu; the caller retires
// the instance.
func (e *Engine) completeInstance(player string, in *Instance, def *Definition, now time.Time, choice *Choice) (Transition, []string) {
	in.Status = StatusCompleted
	in.FinishedAt = now
	if def.Repeatable && def.Cooldown > 0 {
		in.NextEligibleAt = now.Add(def.Cooldown)
	}

	// The selected choice's rewards replace the base set; optional-branch
	// bonuses stack on top of either.
	primary := def.Rewards
	if choice != nil {
		primary = choice.Rewards
	}
	sets := []RewardSet{primary}
	for _, stageID := range sortedKeys(in.OptionalHits) {
		stage, ok := def.StageAt(stageID)
		if !ok || stage.Optional == nil {
			continue
		}
		sets = append(sets, RewardSet{Gold: stage.Optional.BonusGold})
	}

	grant, unlocks := ResolveRewards(sets...)

	// The definition-level unlock lives outside the choice blocks and
	// fires exactly once no matter which choice was selected.
	if choice != nil && def.Rewards.UnlockQuest != "" && !contains(unlocks, def.Rewards.UnlockQuest) {
		unlocks = append(unlocks, def.Rewards.UnlockQuest)
	}

	tr := Transition{
		Player: player, QuestID: def.ID, InstanceID: in.ID,
		Kind: TransitionCompleted, Stage: in.CurrentStage,
	}
	applied, pending := e.applyGrant(player, in, grant)
	if !applied.IsZero() {
		tr.Grant = &applied
	}
	tr.Pending = pending

	logger.Info("Quest completed", "player", player, "quest", def.ID, "instance", in.ID, "repeatable", def.Repeatable)
	return tr, unlocks
}

// applyGrant emits a grant batch and records any undelivered portion on
// the instance. Completion is never rolled back on delivery failure.
func (e *Engine) applyGrant(player string, in *Instance, g Grant) (Grant, *Grant) {
	if g.IsZero() {
		return g, nil
	}

	err := e.granter.Grant(player, g)
	if err == nil {
		return g, nil
	}

	cerr := &CollaboratorError{Op: "grant", Err: err}
	var partial *PartialGrantError
	if errors.As(err, &partial) {
		rest := g.subtract(partial.Applied)
		in.PendingGrant = &rest
		logger.Error("Grant partially applied", "player", player, "quest", in.QuestID, "error", cerr)
		return partial.Applied, &rest
	}

	pending := g.clone()
	in.PendingGrant = &pending
	logger.Error("Grant application failed", "player", player, "quest", in.QuestID, "error", cerr)
	return Grant{}, &pending
}

// processUnlocks drains the deferred unlock queue produced by completed
// quests. Unlock attempts reuse the already-held player lock instead of
// re-entering the public API, so chaining cannot deadlock. Ineligible
// unlocks are not errors; the quest simply stays unstarted. Must hold
// ps.mu.
func (e *Engine) processUnlocks(player string, ps *playerState, now time.Time, queue []string) []Transition {
	var trs []Transition
	for len(queue) > 0 {
		questID := queue[0]
		queue = queue[1:]

		def, ok := e.catalog.Quest(questID)
		if !ok {
			logger.Warning("Unlock target missing", "player", player, "quest", questID)
			continue
		}
		if err := CanStart(def, player, e.view, ps.log, now); err != nil {
			logger.Debug("Unlocked quest not yet eligible", "player", player, "quest", questID, "reason", err)
			continue
		}

		in := newInstance(def, now)
		ps.log.Active[questID] = in
		logger.Info("Quest unlocked and started", "player", player, "quest", questID, "instance", in.ID)
		trs = append(trs, Transition{
			Player: player, QuestID: questID, InstanceID: in.ID,
			Kind: TransitionStarted, Stage: 1,
		})
	}
	return trs
}

func sortedActiveIDs(l *Log) []string {
	ids := make([]string, 0, len(l.Active))
	for id := range l.Active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func choiceTexts(stage *Stage) []string {
	texts := make([]string, len(stage.Choices))
	for i := range stage.Choices {
		texts[i] = stage.Choices[i].Text
	}
	return texts
}
