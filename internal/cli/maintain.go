package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/manager"
)

func init() {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Forget stale memories and autosave on a schedule",
		Long:  "Runs maintenance.schedule (cron syntax or @every) until interrupted. With --once, runs a single pass and prints its report.",
		Run:   runMaintain,
	}
	cmd.Flags().Bool("once", false, "Run one pass and exit")
	cmd.Flags().String("schedule", "", "Override maintenance.schedule")
	cmd.Flags().Bool("archive", false, "Also snapshot into the database on each pass")

	RootCmd.AddCommand(cmd)
}

func runMaintain(cmd *cobra.Command, args []string) {
	once, _ := cmd.Flags().GetBool("once")
	schedule, _ := cmd.Flags().GetString("schedule")
	archive, _ := cmd.Flags().GetBool("archive")
	if schedule == "" {
		schedule = cfg.Maintenance.Schedule
	}

	mc := manager.MaintenanceConfig{
		Schedule: schedule,
		Forget:   cfg.Maintenance.Forget.Policy(),
		SaveDir:  getSaveDir(),
	}
	if archive || cfg.Maintenance.Archive {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()
		mc.Archive = s
	}

	m := openWorld()
	mt, err := manager.NewMaintainer(m, mc)
	if err != nil {
		exitErr("maintain", err)
	}

	if once {
		r, err := mt.RunOnce(cmd.Context())
		if err != nil {
			exitErr("maintain", err)
		}
		printJSON(r)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("maintainer started", "world", m.WorldID(), "schedule", schedule)
	mt.Run(ctx)
}
