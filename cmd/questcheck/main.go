// questcheck loads a quest content directory and reports every content
// error it finds, for use in content authoring pipelines.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/questforge/internal/logger"
	"github.com/lawnchairsociety/questforge/internal/quest"
)

func main() {
	dir := flag.String("dir", "data/quests", "Path to quest content directory")
	flag.Parse()

	logger.Initialize(logger.Config{Level: "ERROR", ConsoleEnabled: true})

	content, mergeErrs, err := quest.LoadContentDir(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	catalog, buildErrs := quest.BuildCatalog(content)

	errs := append(mergeErrs, buildErrs...)
	for _, e := range errs {
		fmt.Println("CONTENT ERROR:", e)
	}

	fmt.Printf("%d quests loaded, %d content errors\n", catalog.Len(), len(errs))
	for _, id := range catalog.IDs() {
		def, _ := catalog.Quest(id)
		fmt.Printf("  %-32s %-12s stages=%d", id, def.Type, len(def.Stages))
		if def.Repeatable {
			fmt.Printf(" repeatable cooldown=%s", def.Cooldown)
		}
		if def.HasTimeLimit() {
			fmt.Printf(" time_limit=%s", def.TimeLimit)
		}
		fmt.Println()
	}

	if len(errs) > 0 {
		os.Exit(1)
	}
}
