package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/manager"
	"github.com/rcliao/lorekeeper/internal/social"
)

func init() {
	event := &cobra.Command{
		Use:   "event [description]",
		Short: "Record a world event",
		Long:  "Record a world event and copy it into the memories of involved entities. Description can be a positional arg or piped via stdin.",
		Run:   runEvent,
	}
	event.Flags().IntP("importance", "i", 5, "Importance 1-10")
	event.Flags().StringP("type", "t", "world_event", "Event type")
	event.Flags().StringP("location", "l", "", "Location id")
	event.Flags().StringP("entities", "e", "", "Comma-separated involved entity ids")
	event.Flags().Int("local-modifier", 0, "Added to importance for the local copies")
	event.Flags().Bool("global-only", false, "Skip the local copies")

	fact := &cobra.Command{
		Use:   "fact [category] [fact]",
		Short: "Record a world fact and teach it to entities",
		Args:  cobra.MinimumNArgs(2),
		Run:   runFact,
	}
	fact.Flags().IntP("importance", "i", 5, "Importance 1-10")
	fact.Flags().StringP("entities", "e", "", "Comma-separated entity ids that learn the fact")
	fact.Flags().String("knowledge-category", "", "Knowledge category (default: the fact category)")

	decision := &cobra.Command{
		Use:   "decision [description]",
		Short: "Log a narrative decision",
		Run:   runDecision,
	}
	decision.Flags().StringP("type", "t", "plot", "Decision type")
	decision.Flags().StringP("rationale", "r", "", "Why it was made")
	decision.Flags().String("alternatives", "", "Comma-separated alternatives considered")
	decision.Flags().IntP("impact", "i", 5, "Impact level 1-10")

	interact := &cobra.Command{
		Use:   "interact [from-id] [to-id] [type] [description]",
		Short: "Record an interaction between two entities",
		Args:  cobra.MinimumNArgs(4),
		Run:   runInteract,
	}
	interact.Flags().IntP("impact", "i", 0, "Impact -10..10")
	interact.Flags().StringP("location", "l", "", "Location id")
	interact.Flags().String("witnesses", "", "Comma-separated witness ids")
	interact.Flags().String("context", "", "JSON object with extra context")
	interact.Flags().Int("global-importance", 0, "4+ mirrors the interaction as a world event (default 5)")

	RootCmd.AddCommand(event, fact, decision, interact)
}

func runEvent(cmd *cobra.Command, args []string) {
	importance, _ := cmd.Flags().GetInt("importance")
	typ, _ := cmd.Flags().GetString("type")
	location, _ := cmd.Flags().GetString("location")
	entities, _ := cmd.Flags().GetString("entities")
	modifier, _ := cmd.Flags().GetInt("local-modifier")
	globalOnly, _ := cmd.Flags().GetBool("global-only")

	desc := readContent(args)
	if desc == "" {
		exitErr("event", fmt.Errorf("description is required (positional arg or stdin)"))
	}

	m := openWorld()
	e := m.MemorizeGlobalEvent(manager.GlobalEventParams{
		Description:             desc,
		Importance:              importance,
		EventType:               typ,
		LocationID:              location,
		InvolvedEntities:        splitList(entities),
		LocalImportanceModifier: modifier,
		GlobalOnly:              globalOnly,
	})
	saveWorld(m)
	printJSON(e)
}

func runFact(cmd *cobra.Command, args []string) {
	importance, _ := cmd.Flags().GetInt("importance")
	entities, _ := cmd.Flags().GetString("entities")
	kc, _ := cmd.Flags().GetString("knowledge-category")

	category := args[0]
	fact := readContent(args[1:])

	m := openWorld()
	m.SyncWorldFact(category, fact, importance, splitList(entities), kc)
	saveWorld(m)
	fmt.Printf(`{"ok":true,"category":%q,"key":%q}`+"\n", category, manager.FactKey(fact))
}

func runDecision(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	rationale, _ := cmd.Flags().GetString("rationale")
	alts, _ := cmd.Flags().GetString("alternatives")
	impact, _ := cmd.Flags().GetInt("impact")

	desc := readContent(args)
	if desc == "" {
		exitErr("decision", fmt.Errorf("description is required (positional arg or stdin)"))
	}

	m := openWorld()
	d := m.AddDecision(global.DecisionParams{
		Description:  desc,
		Type:         typ,
		Rationale:    rationale,
		Alternatives: splitList(alts),
		ImpactLevel:  impact,
	})
	saveWorld(m)
	printJSON(d)
}

func runInteract(cmd *cobra.Command, args []string) {
	impact, _ := cmd.Flags().GetInt("impact")
	location, _ := cmd.Flags().GetString("location")
	witnesses, _ := cmd.Flags().GetString("witnesses")
	rawCtx, _ := cmd.Flags().GetString("context")
	gi, _ := cmd.Flags().GetInt("global-importance")

	var extra map[string]any
	if rawCtx != "" {
		if err := json.Unmarshal([]byte(rawCtx), &extra); err != nil {
			exitErr("parse context", err)
		}
	}

	m := openWorld()
	id := m.RecordInteraction(manager.InteractionParams{
		Entity1ID:        args[0],
		Entity2ID:        args[1],
		Type:             args[2],
		Description:      readContent(args[3:]),
		Impact:           impact,
		LocationID:       location,
		Witnesses:        splitList(witnesses),
		Context:          extra,
		GlobalImportance: gi,
	})
	saveWorld(m)

	var affinity int
	m.WithSocial(func(s *social.Memory) { affinity = s.Affinity(args[0], args[1]) })
	fmt.Printf(`{"ok":true,"id":%q,"affinity":%d}`+"\n", id, affinity)
}
