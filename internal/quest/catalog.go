package quest

import (
	"sort"

	"github.com/lawnchairsociety/questforge/internal/logger"
)

// Catalog is the immutable, process-wide registry of quest definitions
// and quest-type metadata. It is built once from validated content and
// never mutated afterward, so it is shared across players without
// locking. Rebuild and swap the whole catalog for hot reloads.
type Catalog struct {
	quests  map[string]*Definition
	byGiver map[string][]*Definition
	types   map[string]TypeInfo
	ids     []string
}

// BuildCatalog validates content and constructs a catalog. Malformed
// quests are excluded and reported in the returned error slice; valid
// quests still load, so one bad definition never takes down the rest.
func BuildCatalog(content *Content) (*Catalog, []error) {
	c := &Catalog{
		quests:  make(map[string]*Definition),
		byGiver: make(map[string][]*Definition),
		types:   make(map[string]TypeInfo),
	}

	for tag, info := range content.QuestTypes {
		c.types[tag] = TypeInfo{Name: info.Name, Description: info.Description}
	}

	var errs []error
	for id, def := range content.Quests {
		built, defErrs := buildDefinition(id, &def, content.QuestTypes)
		if len(defErrs) > 0 {
			errs = append(errs, defErrs...)
			logger.Warning("Quest excluded from catalog", "quest", id, "errors", len(defErrs))
			continue
		}
		c.quests[id] = built
		if built.Giver != "" {
			c.byGiver[built.Giver] = append(c.byGiver[built.Giver], built)
		}
	}

	// Dangling unlock references are content errors but do not exclude
	// the referencing quest: the unlock attempt is logged and skipped at
	// runtime, which never fails the completing quest.
	for _, def := range c.quests {
		for _, ref := range unlockRefs(def) {
			if _, ok := c.quests[ref]; !ok {
				errs = append(errs, &ContentError{
					QuestID: def.ID,
					Field:   "unlock_quest",
					Reason:  "references unknown quest " + ref,
				})
				logger.Warning("Unlock target missing", "quest", def.ID, "unlock_quest", ref)
			}
		}
	}

	c.ids = make([]string, 0, len(c.quests))
	for id := range c.quests {
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)

	for giver := range c.byGiver {
		list := c.byGiver[giver]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	logger.Info("Quest catalog built", "quests", len(c.quests), "types", len(c.types), "content_errors", len(errs))
	return c, errs
}

// unlockRefs collects every unlock_quest reference in a definition,
// including choice reward sets.
func unlockRefs(def *Definition) []string {
	var refs []string
	if def.Rewards.UnlockQuest != "" {
		refs = append(refs, def.Rewards.UnlockQuest)
	}
	for i := range def.Stages {
		for j := range def.Stages[i].Choices {
			if ref := def.Stages[i].Choices[j].Rewards.UnlockQuest; ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// Quest returns a definition by id.
func (c *Catalog) Quest(id string) (*Definition, bool) {
	def, exists := c.quests[id]
	return def, exists
}

// TypeInfo returns metadata for a quest type tag.
func (c *Catalog) TypeInfo(tag string) (TypeInfo, bool) {
	info, exists := c.types[tag]
	return info, exists
}

// IDs returns all quest ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// QuestsByGiver returns all quests offered by the given giver.
func (c *Catalog) QuestsByGiver(giver string) []*Definition {
	list := c.byGiver[giver]
	out := make([]*Definition, len(list))
	copy(out, list)
	return out
}

// Len returns the number of loaded quests.
func (c *Catalog) Len() int {
	return len(c.quests)
}
