// Package cli implements the lorekeeper CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/config"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/manager"
	"github.com/rcliao/lorekeeper/internal/store"
)

var (
	cfgPath    string
	worldFlag  string
	nameFlag   string
	saveDir    string
	dbPath     string
	formatFlag string

	cfg config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "lorekeeper",
	Short: "Multi-tier memory for text adventures",
	Long:  "Local, global and social memory for LLM-driven worlds. JSON files per world, SQLite for snapshots and the narration journal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			exitErr("load config", err)
		}
		logger.SetLevel(cfg.Logging.Level)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "lorekeeper.yaml", "Config file")
	RootCmd.PersistentFlags().StringVarP(&worldFlag, "world", "w", "", "World id (default: game.world)")
	RootCmd.PersistentFlags().StringVar(&nameFlag, "world-name", "", "World name for a new world")
	RootCmd.PersistentFlags().StringVar(&saveDir, "save-dir", "", "World save directory (default: game.save_dir)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Archive database path (default: $LOREKEEPER_DB or db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func worldID() string {
	if worldFlag != "" {
		return worldFlag
	}
	return cfg.Game.World
}

func getSaveDir() string {
	if saveDir != "" {
		return saveDir
	}
	return cfg.Game.SaveDir
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DB
}

func managerOpts() []manager.Option {
	return []manager.Option{
		manager.WithCacheTTL(cfg.Memory.CacheTTL),
		manager.WithDecayRate(cfg.Memory.DecayRate),
		manager.WithTaxonomy(cfg.Social),
	}
}

// openWorld loads the world from the save directory or starts a new one.
func openWorld() *manager.Manager {
	name := nameFlag
	id := worldID()
	if name == "" && !worldExists(id) {
		name = id
	}
	m, err := manager.Open(getSaveDir(), id, name, managerOpts()...)
	if err != nil {
		exitErr("load world", err)
	}
	return m
}

func worldExists(id string) bool {
	_, err := os.Stat(manager.WorldDir(getSaveDir(), id))
	return err == nil
}

func saveWorld(m *manager.Manager) {
	if err := m.SaveAll(getSaveDir()); err != nil {
		exitErr("save world", err)
	}
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// readContent joins the positional args, or reads piped stdin when there are none.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
