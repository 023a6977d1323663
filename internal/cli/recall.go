package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/model"
)

func init() {
	recall := &cobra.Command{
		Use:   "recall [entity-id] [memory-id]",
		Short: "Recall one memory, reinforcing it",
		Args:  cobra.ExactArgs(2),
		Run:   runRecall,
	}

	memories := &cobra.Command{
		Use:   "memories [entity-id]",
		Short: "List an entity's memories",
		Args:  cobra.ExactArgs(1),
		Run:   runMemories,
	}
	memories.Flags().StringP("type", "t", "", "Filter by memory type")
	memories.Flags().Float64P("min-importance", "m", 0, "Filter by decay-adjusted importance")
	memories.Flags().StringP("location", "l", "", "Filter by location id")
	memories.Flags().StringP("tags", "g", "", "Filter by tags (comma-separated, all must match)")
	memories.Flags().IntP("limit", "n", 10, "Max results")
	memories.Flags().Bool("raw", false, "Rank by raw importance, ignoring decay")
	memories.Flags().Int("recent", 0, "List the N most recent instead")
	memories.Flags().Bool("knowledge", false, "List knowledge instead")
	memories.Flags().Int("summary", 0, "Print a summary within this many characters instead")

	search := &cobra.Command{
		Use:   "search [entity-id] [query]",
		Short: "Search an entity's memories by keyword",
		Args:  cobra.MinimumNArgs(2),
		Run:   runSearch,
	}
	search.Flags().IntP("limit", "n", 3, "Max results")

	forget := &cobra.Command{
		Use:   "forget",
		Short: "Drop old, unimportant memories across all entities",
		Run:   runForget,
	}
	forget.Flags().Int("days", 0, "Only memories older than this (default: maintenance.forget.threshold_days)")
	forget.Flags().Int("below", 0, "Only memories below this importance (default: maintenance.forget.min_importance)")
	forget.Flags().Int("max", 0, "Max per entity (default: maintenance.forget.max_to_forget)")

	RootCmd.AddCommand(recall, memories, search, forget)
}

func runRecall(cmd *cobra.Command, args []string) {
	m := openWorld()

	var (
		rec model.Recollection
		ok  bool
	)
	if err := m.WithLocal(args[0], func(lm *local.Memory) { rec, ok = lm.Recall(args[1]) }); err != nil {
		exitErr("recall", fmt.Errorf("%s: %w", args[0], err))
	}
	if !ok {
		exitErr("recall", fmt.Errorf("memory %s not found", args[1]))
	}
	saveWorld(m)
	printJSON(rec)
}

func runMemories(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	minImportance, _ := cmd.Flags().GetFloat64("min-importance")
	location, _ := cmd.Flags().GetString("location")
	tags, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	raw, _ := cmd.Flags().GetBool("raw")
	recent, _ := cmd.Flags().GetInt("recent")
	knowledge, _ := cmd.Flags().GetBool("knowledge")
	summary, _ := cmd.Flags().GetInt("summary")

	m := openWorld()
	var out any
	err := m.WithLocal(args[0], func(lm *local.Memory) {
		switch {
		case summary > 0 && formatFlag == "text":
			out = lm.ResponseContext(summary / 4)
		case summary > 0:
			out = lm.Summarize(summary, true, true)
		case knowledge:
			out = lm.AllKnowledge(0)
		case recent > 0:
			out = lm.Recent(recent)
		default:
			out = lm.Get(local.Filter{
				MemoryType:    typ,
				MinImportance: minImportance,
				LocationID:    location,
				Tags:          splitList(tags),
				Limit:         limit,
				IgnoreDecay:   raw,
			})
		}
	})
	if err != nil {
		exitErr("memories", fmt.Errorf("%s: %w", args[0], err))
	}
	if s, ok := out.(string); ok {
		fmt.Println(s)
		return
	}
	printJSON(out)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := readContent(args[1:])

	m := openWorld()
	var results []local.Explanation
	if err := m.WithLocal(args[0], func(lm *local.Memory) { results = lm.Explain(query, limit) }); err != nil {
		exitErr("search", fmt.Errorf("%s: %w", args[0], err))
	}

	if formatFlag == "text" {
		for _, r := range results {
			fmt.Printf("- %s (%s, importance %d)\n", r.Description, r.When, r.Importance)
		}
		return
	}
	printJSON(results)
}

func runForget(cmd *cobra.Command, args []string) {
	p := cfg.Maintenance.Forget.Policy()
	if v, _ := cmd.Flags().GetInt("days"); v > 0 {
		p.ThresholdDays = v
	}
	if v, _ := cmd.Flags().GetInt("below"); v > 0 {
		p.MinImportance = v
	}
	if v, _ := cmd.Flags().GetInt("max"); v > 0 {
		p.MaxToForget = v
	}

	m := openWorld()
	removed := m.Forget(p)
	saveWorld(m)
	printJSON(removed)
}
