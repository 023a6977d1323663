package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/manager"
)

func init() {
	ctxCmd := &cobra.Command{
		Use:   "context [narrative|entity|summary] [entity-id]",
		Short: "Render prompt context text within a token budget",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runContext,
	}
	ctxCmd.Flags().IntP("tokens", "t", manager.DefaultPromptTokens, "Token budget (4 characters per token)")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Summarize the world",
		Run:   runSummary,
	}
	summary.Flags().Int("max-size", manager.DefaultWorldSummarySize, "Size budget in characters")
	summary.Flags().Bool("concise", false, "Ledger-only concise summary")
	summary.Flags().Int("last", 0, "Explain the last N events instead")
	summary.Flags().Bool("narrative", false, "Full narrative context instead")
	summary.Flags().String("entity", "", "One entity's context instead")

	arc := &cobra.Command{
		Use:   "arc",
		Short: "Show the recent narrative arc",
		Run:   runArc,
	}
	arc.Flags().IntP("events", "n", 5, "Max key events")
	arc.Flags().Int("max-size", 1500, "Size budget in characters")

	template := &cobra.Command{
		Use:   "template [narrative_continuation|quest_generation|world_building]",
		Short: "Print a ready-to-use prompt template",
		Args:  cobra.MaximumNArgs(1),
		Run:   runTemplate,
	}

	RootCmd.AddCommand(ctxCmd, summary, arc, template)
}

func runContext(cmd *cobra.Command, args []string) {
	tokens, _ := cmd.Flags().GetInt("tokens")
	var entityID string
	if len(args) > 1 {
		entityID = args[1]
	}

	m := openWorld()
	text, err := m.PromptContext(args[0], entityID, tokens)
	if err != nil {
		fmt.Println(text)
		exitErr("context", err)
	}
	fmt.Println(text)
}

func runSummary(cmd *cobra.Command, args []string) {
	maxSize, _ := cmd.Flags().GetInt("max-size")
	concise, _ := cmd.Flags().GetBool("concise")
	last, _ := cmd.Flags().GetInt("last")
	narrative, _ := cmd.Flags().GetBool("narrative")
	entity, _ := cmd.Flags().GetString("entity")

	m := openWorld()
	switch {
	case entity != "":
		c, err := m.EntityContext(manager.EntityContextParams{EntityID: entity, MaxSize: maxSize})
		if err != nil {
			exitErr("summary", err)
		}
		emit(c, func() string { return manager.FormatEntity(c) })
	case narrative:
		c := m.NarrativeContext(maxSize)
		emit(c, func() string { return manager.FormatNarrative(c) })
	case last > 0:
		printJSON(m.LastEvents(last, maxSize))
	case concise:
		var s global.ConciseSummary
		var text string
		m.WithGlobal(func(g *global.Memory) {
			s = g.ConciseSummary(maxSize)
			text = g.WorldContext(maxSize / 4)
		})
		emit(s, func() string { return text })
	default:
		s := m.WorldSummary(maxSize)
		emit(s, func() string { return manager.FormatWorldSummary(s) })
	}
}

func runArc(cmd *cobra.Command, args []string) {
	events, _ := cmd.Flags().GetInt("events")
	maxSize, _ := cmd.Flags().GetInt("max-size")

	m := openWorld()
	var arc global.NarrativeArc
	m.WithGlobal(func(g *global.Memory) { arc = g.NarrativeArc(events, maxSize) })
	printJSON(arc)
}

func runTemplate(cmd *cobra.Command, args []string) {
	kind := global.TemplateNarrative
	if len(args) > 0 {
		kind = args[0]
	}
	m := openWorld()
	fmt.Fprint(os.Stdout, m.PromptTemplate(kind))
}

// emit prints v as JSON, or the rendered text with --format text.
func emit(v any, text func() string) {
	if formatFlag == "text" {
		fmt.Println(text())
		return
	}
	printJSON(v)
}
