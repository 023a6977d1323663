package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/manager"
	"github.com/rcliao/lorekeeper/internal/store"
)

func init() {
	snap := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive world versions in the database",
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Store the current world as a new version",
		Run:   runSnapshotSave,
	}
	save.Flags().StringP("label", "l", "", "Label for this version")

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Replace the saved world with its latest archived version",
		Run:   runSnapshotRestore,
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "List archived versions of the world ledger",
		Run:   runSnapshotHistory,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the latest archived document of every world",
		Run:   runSnapshotList,
	}
	list.Flags().IntP("limit", "n", 100, "Max results")

	rm := &cobra.Command{
		Use:   "rm [doc]",
		Short: "Delete an archived document (global, social or local/<entity-id>)",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotRm,
	}
	rm.Flags().Bool("all-versions", false, "Delete every version, not just the latest")
	rm.Flags().Bool("hard", false, "Remove rows instead of marking them deleted")

	snap.AddCommand(save, restore, history, list, rm)
	RootCmd.AddCommand(snap)
}

func runSnapshotSave(cmd *cobra.Command, args []string) {
	label, _ := cmd.Flags().GetString("label")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m := openWorld()
	snaps, err := m.Snapshot(cmd.Context(), s, label)
	if err != nil {
		exitErr("snapshot", err)
	}
	printJSON(snaps)
}

func runSnapshotRestore(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := manager.Restore(cmd.Context(), s, worldID(), nameFlag, managerOpts()...)
	if err != nil {
		exitErr("restore", err)
	}
	saveWorld(m)
	fmt.Printf(`{"ok":true,"world":%q,"entities":%d}`+"\n", m.WorldID(), len(m.Entities()))
}

func runSnapshotHistory(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := manager.GlobalHistory(cmd.Context(), s, worldID())
	if err != nil {
		exitErr("history", err)
	}
	// content is the whole ledger; the listing only needs the version data
	for i := range snaps {
		snaps[i].Content = ""
	}
	printJSON(snaps)
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.ListSnapshots(cmd.Context(), store.ListParams{World: worldFlag, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}
	if formatFlag == "text" {
		for _, sn := range snaps {
			fmt.Printf("%s/%s\tv%d\t%s\n", sn.World, sn.Doc, sn.Version, sn.Label)
		}
		return
	}
	for i := range snaps {
		snaps[i].Content = ""
	}
	printJSON(snaps)
}

func runSnapshotRm(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all-versions")
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RmSnapshot(cmd.Context(), store.RmParams{World: worldID(), Doc: args[0], AllVersions: all, Hard: hard}); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
