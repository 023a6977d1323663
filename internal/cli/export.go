package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived snapshots and the journal as JSON",
		Long:  "Export the live archive (latest snapshots and journal). Filter by world with -w; omit it to export every world.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ex, err := s.ExportAll(cmd.Context(), worldFlag)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(ex)
}
