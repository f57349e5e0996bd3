package quest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/questforge/internal/logger"
)

// StageYAML for YAML parsing
type StageYAML struct {
	ID            int           `yaml:"id"`
	Description   string        `yaml:"description"`
	Objective     string        `yaml:"objective"`
	Target        string        `yaml:"target"`
	Count         int           `yaml:"count"`
	RequiredItems []string      `yaml:"required_items"`
	Optional      *OptionalYAML `yaml:"optional"`
	Choices       []ChoiceYAML  `yaml:"choices"`
}

// OptionalYAML for YAML parsing
type OptionalYAML struct {
	Combat      string `yaml:"combat"`
	RewardBonus int    `yaml:"reward_bonus"`
}

// ChoiceYAML for YAML parsing
type ChoiceYAML struct {
	Text    string     `yaml:"text"`
	Rewards RewardYAML `yaml:"rewards"`
}

// RewardYAML for YAML parsing
type RewardYAML struct {
	Gold        int            `yaml:"gold"`
	Exp         int            `yaml:"exp"`
	Items       []string       `yaml:"items"`
	Reputation  map[string]int `yaml:"reputation"`
	UnlockQuest string         `yaml:"unlock_quest"`
}

// PrerequisitesYAML for YAML parsing
type PrerequisitesYAML struct {
	Reputation map[string]int `yaml:"reputation"`
}

// PenaltiesYAML for YAML parsing
type PenaltiesYAML struct {
	Reputation map[string]int `yaml:"reputation"`
}

// QuestYAML for YAML parsing
type QuestYAML struct {
	Name             string             `yaml:"name"`
	Giver            string             `yaml:"giver"`
	Description      string             `yaml:"description"`
	Type             string             `yaml:"type"`
	Difficulty       string             `yaml:"difficulty"`
	MinLevel         int                `yaml:"min_level"`
	Prerequisites    *PrerequisitesYAML `yaml:"prerequisites"`
	TimeLimit        string             `yaml:"time_limit"`
	Repeatable       bool               `yaml:"repeatable"`
	Cooldown         string             `yaml:"cooldown"`
	Stages           []StageYAML        `yaml:"stages"`
	Rewards          RewardYAML         `yaml:"rewards"`
	FailurePenalties *PenaltiesYAML     `yaml:"failure_penalties"`
}

// TypeYAML for YAML parsing
type TypeYAML struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Content represents the quests.yaml structure.
type Content struct {
	Quests     map[string]QuestYAML `yaml:"quests"`
	QuestTypes map[string]TypeYAML  `yaml:"quest_types"`
}

// LoadContent loads quest content from a YAML file.
func LoadContent(filename string) (*Content, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read quests file: %w", err)
	}

	var content Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse quests YAML: %w", err)
	}

	return &content, nil
}

// Merge combines another Content into this one. Quest ids already present
// are reported as errors rather than silently overwritten; quest type
// declarations merge freely.
func (c *Content) Merge(other *Content) []error {
	if other == nil {
		return nil
	}

	var errs []error
	for id, def := range other.Quests {
		if _, exists := c.Quests[id]; exists {
			errs = append(errs, &ContentError{QuestID: id, Reason: "duplicate quest id across content files"})
			continue
		}
		c.Quests[id] = def
	}
	for tag, info := range other.QuestTypes {
		c.QuestTypes[tag] = info
	}
	return errs
}

// LoadContentDir loads and merges all YAML files from a directory.
func LoadContentDir(dir string) (*Content, []error, error) {
	merged := &Content{
		Quests:     make(map[string]QuestYAML),
		QuestTypes: make(map[string]TypeYAML),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var errs []error
	fileCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		filePath := filepath.Join(dir, name)
		content, err := LoadContent(filePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		errs = append(errs, merged.Merge(content)...)
		fileCount++
		logger.Info("Loaded quest file", "path", filePath, "quests", len(content.Quests))
	}

	logger.Info("Loaded quest content", "dir", dir, "files", fileCount, "total_quests", len(merged.Quests))
	return merged, errs, nil
}

// buildDefinition converts a YAML quest into a validated Definition.
// Returned errors are all *ContentError; a quest with any error is
// excluded from the catalog.
func buildDefinition(id string, def *QuestYAML, types map[string]TypeYAML) (*Definition, []error) {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &ContentError{QuestID: id, Field: field, Reason: reason})
	}

	if def.Name == "" {
		fail("name", "missing")
	}
	if _, declared := types[def.Type]; !declared {
		fail("type", fmt.Sprintf("undeclared quest type %q", def.Type))
	}

	timeLimit, err := parseOptionalDuration(def.TimeLimit)
	if err != nil {
		fail("time_limit", err.Error())
	}
	cooldown, err := parseOptionalDuration(def.Cooldown)
	if err != nil {
		fail("cooldown", err.Error())
	}
	if def.Repeatable && cooldown == 0 {
		fail("cooldown", "repeatable quest requires a cooldown")
	}

	if len(def.Stages) == 0 {
		fail("stages", "quest has no stages")
	}

	stages := make([]Stage, 0, len(def.Stages))
	for i, stageDef := range def.Stages {
		field := fmt.Sprintf("stages[%d]", i)

		// Stage ids must be contiguous from 1 in declaration order.
		if stageDef.ID != i+1 {
			fail(field, fmt.Sprintf("stage id %d out of sequence, want %d", stageDef.ID, i+1))
		}

		kind, ok := parseObjectiveKind(stageDef.Objective)
		if !ok {
			fail(field, fmt.Sprintf("unknown objective kind %q", stageDef.Objective))
		}
		if stageDef.Target == "" {
			fail(field, "objective target is empty")
		}

		count := stageDef.Count
		if count < 0 {
			fail(field, "count must not be negative")
		}
		if count == 0 {
			count = 1
		}
		if count > 1 && !kind.Counted() {
			fail(field, fmt.Sprintf("objective kind %q does not support a count", stageDef.Objective))
		}

		stage := Stage{
			ID:          stageDef.ID,
			Description: stageDef.Description,
			Objective: Objective{
				Kind:   kind,
				Target: stageDef.Target,
				Count:  count,
			},
			RequiredItems: stageDef.RequiredItems,
		}

		if stageDef.Optional != nil {
			if stageDef.Optional.Combat == "" {
				fail(field, "optional branch has no combat target")
			}
			stage.Optional = &OptionalBranch{
				CombatTarget: stageDef.Optional.Combat,
				BonusGold:    stageDef.Optional.RewardBonus,
			}
		}

		for j, choiceDef := range stageDef.Choices {
			if choiceDef.Text == "" {
				fail(field, fmt.Sprintf("choice %d has no text", j))
			}
			stage.Choices = append(stage.Choices, Choice{
				Text:    choiceDef.Text,
				Rewards: buildRewardSet(&choiceDef.Rewards),
			})
		}

		stages = append(stages, stage)
	}

	rewards := buildRewardSet(&def.Rewards)
	if rewards.Gold < 0 || rewards.Exp < 0 {
		fail("rewards", "gold and exp must not be negative")
	}

	out := &Definition{
		ID:          id,
		Name:        def.Name,
		Giver:       def.Giver,
		Description: def.Description,
		Type:        def.Type,
		Difficulty:  def.Difficulty,
		MinLevel:    def.MinLevel,
		TimeLimit:   timeLimit,
		Repeatable:  def.Repeatable,
		Cooldown:    cooldown,
		Stages:      stages,
		Rewards:     rewards,
	}

	if def.Prerequisites != nil && len(def.Prerequisites.Reputation) > 0 {
		out.Reputation = def.Prerequisites.Reputation
	}
	if def.FailurePenalties != nil && len(def.FailurePenalties.Reputation) > 0 {
		out.FailurePenalties = &FailurePenaltySet{Reputation: def.FailurePenalties.Reputation}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// buildRewardSet converts a YAML reward block.
func buildRewardSet(def *RewardYAML) RewardSet {
	return RewardSet{
		Gold:        def.Gold,
		Exp:         def.Exp,
		Items:       def.Items,
		Reputation:  def.Reputation,
		UnlockQuest: def.UnlockQuest,
	}
}

// parseObjectiveKind converts an open string tag into the closed kind set.
// Unknown kinds are content errors, never silently ignored.
func parseObjectiveKind(s string) (ObjectiveKind, bool) {
	switch ObjectiveKind(s) {
	case ObjectiveTalkTo, ObjectiveGoTo, ObjectiveInvestigate,
		ObjectiveKill, ObjectiveCollect, ObjectiveGather, ObjectiveExplore:
		return ObjectiveKind(s), true
	}
	return "", false
}

// parseOptionalDuration parses a duration string like "12h" or "30m".
// An empty string means the field is absent.
func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
