package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/narrator"
	"github.com/rcliao/lorekeeper/internal/store"
)

func init() {
	journal := &cobra.Command{
		Use:   "journal",
		Short: "Search and prune the narration journal",
	}

	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over logged prompts and responses",
		Args:  cobra.MinimumNArgs(1),
		Run:   runJournalSearch,
	}
	search.Flags().StringP("kind", "k", "", "Filter by kind: prompt, response, note")
	search.Flags().IntP("limit", "n", 20, "Max results")

	note := &cobra.Command{
		Use:   "note [text]",
		Short: "Append a free-form note to the journal",
		Run:   runJournalNote,
	}
	note.Flags().StringP("entity", "e", "", "Entity the note is about")

	prune := &cobra.Command{
		Use:   "prune [age]",
		Short: "Delete entries older than age (e.g. 30d, 12h)",
		Args:  cobra.ExactArgs(1),
		Run:   runJournalPrune,
	}

	journal.AddCommand(search, note, prune)

	narrate := &cobra.Command{
		Use:   "narrate [action]",
		Short: "Narrate the outcome of a player action with the configured model",
		Run:   runNarrate,
	}
	narrate.Flags().StringP("entity", "e", "", "Answer in the voice of this entity")
	narrate.Flags().IntP("tokens", "t", 0, "Context token budget (default 1000)")
	narrate.Flags().Bool("check", false, "Only report whether the model is reachable")

	RootCmd.AddCommand(journal, narrate)
}

func runJournalSearch(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	hits, err := s.SearchJournal(cmd.Context(), store.JournalSearchParams{
		World: worldFlag,
		Query: readContent(args),
		Kind:  kind,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	if len(hits) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(hits)
}

func runJournalNote(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	text := readContent(args)
	if text == "" {
		exitErr("note", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e, err := s.AppendJournal(cmd.Context(), store.JournalParams{World: worldID(), EntityID: entity, Kind: store.KindNote, Content: text})
	if err != nil {
		exitErr("note", err)
	}
	printJSON(e)
}

func runJournalPrune(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.PruneJournal(cmd.Context(), args[0])
	if err != nil {
		exitErr("prune", err)
	}
	fmt.Printf(`{"ok":true,"pruned":%d}`+"\n", n)
}

func runNarrate(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	tokens, _ := cmd.Flags().GetInt("tokens")
	check, _ := cmd.Flags().GetBool("check")

	c, err := narrator.NewFromConfig(cfg.LLM)
	if err != nil {
		exitErr("narrator", err)
	}
	if check {
		fmt.Printf(`{"model":%q,"available":%t}`+"\n", c.Model(), c.Available(cmd.Context()))
		return
	}

	action := readContent(args)
	if action == "" {
		exitErr("narrate", fmt.Errorf("action is required (positional arg or stdin)"))
	}

	opts := []narrator.Option{narrator.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens)}
	if tokens > 0 {
		opts = append(opts, narrator.WithContextTokens(tokens))
	}
	if cfg.Logging.NarrativeLog {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()
		opts = append(opts, narrator.WithJournal(s))
	}

	n := narrator.New(openWorld(), c, opts...)
	out, err := n.Narrate(cmd.Context(), action, entity)
	if err != nil {
		exitErr("narrate", err)
	}
	if formatFlag == "text" {
		fmt.Println(out.Text)
		return
	}
	printJSON(out)
}
