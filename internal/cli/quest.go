package cli

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/model"
)

func init() {
	quest := &cobra.Command{
		Use:   "quest",
		Short: "Manage quests",
	}

	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Create or replace a quest",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQuestAdd,
	}
	add.Flags().String("id", "", "Quest id (default: derived from the title)")
	add.Flags().String("description", "", "Quest description")
	add.Flags().StringP("status", "s", string(model.QuestInactive), "inactive, active, completed or failed")
	add.Flags().IntP("importance", "i", 5, "Importance 1-10")
	add.Flags().String("locations", "", "Comma-separated location ids")
	add.Flags().StringP("entities", "e", "", "Comma-separated involved entity ids")

	update := &cobra.Command{
		Use:   "update [quest-id] [description]",
		Short: "Append a progress note to a quest",
		Args:  cobra.MinimumNArgs(2),
		Run:   runQuestUpdate,
	}
	update.Flags().StringP("type", "t", "progress", "Update type")

	status := &cobra.Command{
		Use:   "status [quest-id] [status]",
		Short: "Change a quest's status",
		Args:  cobra.ExactArgs(2),
		Run:   runQuestStatus,
	}

	show := &cobra.Command{
		Use:   "show [quest-id]",
		Short: "Show one quest in context, or list quests",
		Args:  cobra.MaximumNArgs(1),
		Run:   runQuestShow,
	}
	show.Flags().StringP("status", "s", "", "Filter the list by status")
	show.Flags().IntP("min-importance", "m", 0, "Filter the list by importance")
	show.Flags().Int("max-size", 1000, "Context size budget in characters")

	quest.AddCommand(add, update, status, show)
	RootCmd.AddCommand(quest)
}

func runQuestAdd(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	desc, _ := cmd.Flags().GetString("description")
	status, _ := cmd.Flags().GetString("status")
	importance, _ := cmd.Flags().GetInt("importance")
	locations, _ := cmd.Flags().GetString("locations")
	entities, _ := cmd.Flags().GetString("entities")

	title := readContent(args)
	if id == "" {
		id = questID(title)
	}

	m := openWorld()
	q := m.AddQuest(global.QuestParams{
		ID:               id,
		Title:            title,
		Description:      desc,
		Status:           model.QuestStatus(status),
		Importance:       importance,
		LocationIDs:      splitList(locations),
		InvolvedEntities: splitList(entities),
	})
	saveWorld(m)
	printJSON(q)
}

func runQuestUpdate(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")

	m := openWorld()
	if !m.AddQuestUpdate(args[0], readContent(args[1:]), typ) {
		exitErr("quest update", fmt.Errorf("quest %s not found", args[0]))
	}
	saveWorld(m)
	fmt.Printf(`{"ok":true,"quest":%q}`+"\n", args[0])
}

func runQuestStatus(cmd *cobra.Command, args []string) {
	status := model.QuestStatus(args[1])
	if !model.ValidQuestStatuses[status] {
		exitErr("quest status", fmt.Errorf("invalid status %q", args[1]))
	}

	m := openWorld()
	if !m.UpdateQuestStatus(args[0], status) {
		exitErr("quest status", fmt.Errorf("quest %s not found", args[0]))
	}
	saveWorld(m)
	fmt.Printf(`{"ok":true,"quest":%q,"status":%q}`+"\n", args[0], status)
}

func runQuestShow(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	minImportance, _ := cmd.Flags().GetInt("min-importance")
	maxSize, _ := cmd.Flags().GetInt("max-size")

	m := openWorld()
	if len(args) == 0 {
		var quests []model.Quest
		m.WithGlobal(func(g *global.Memory) {
			quests = g.Quests(global.QuestFilter{Status: model.QuestStatus(status), MinImportance: minImportance})
		})
		printJSON(quests)
		return
	}

	var (
		qc global.QuestContext
		ok bool
	)
	m.WithGlobal(func(g *global.Memory) { qc, ok = g.QuestContext(args[0], maxSize) })
	if !ok {
		exitErr("quest show", fmt.Errorf("quest %s not found", args[0]))
	}
	printJSON(qc)
}

// questID derives "quest_<words>" from a title.
func questID(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return "quest_" + strings.Join(words, "_")
}
