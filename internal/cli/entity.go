package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/manager"
)

var errAlreadyRegistered = errors.New("entity already registered (use --force to replace its memory)")

func init() {
	register := &cobra.Command{
		Use:   "register [entity-id]",
		Short: "Register an entity and give it a local memory",
		Args:  cobra.ExactArgs(1),
		Run:   runRegister,
	}
	register.Flags().StringP("type", "t", "npc", "Entity type")
	register.Flags().StringP("name", "n", "", "Display name (default: the id)")
	register.Flags().Int("max", 0, "Max recollections (default: memory.max_memory_items)")
	register.Flags().Bool("force", false, "Replace the memory of an already registered entity")

	entities := &cobra.Command{
		Use:   "entities",
		Short: "List registered entities",
		Run:   runEntities,
	}

	state := &cobra.Command{
		Use:   "state [entity-id] [property] [new-value]",
		Short: "Record a change to an entity property",
		Args:  cobra.ExactArgs(3),
		Run:   runState,
	}
	state.Flags().StringP("type", "t", "npc", "Entity type")
	state.Flags().String("old", "", "Previous value")
	state.Flags().StringP("reason", "r", "", "Why it changed")
	state.Flags().IntP("importance", "i", 0, "Global importance (4+ also records a world event)")

	track := &cobra.Command{
		Use:   "track [entity-id]",
		Short: "Track an entity in the world ledger",
		Args:  cobra.ExactArgs(1),
		Run:   runTrack,
	}
	track.Flags().StringP("type", "t", "npcs", "Bucket: npcs, locations, items")

	worlds := &cobra.Command{
		Use:   "worlds",
		Short: "List saved worlds",
		Run:   runWorlds,
	}

	RootCmd.AddCommand(register, entities, state, track, worlds)
}

func runRegister(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	name, _ := cmd.Flags().GetString("name")
	maxSize, _ := cmd.Flags().GetInt("max")
	force, _ := cmd.Flags().GetBool("force")
	if name == "" {
		name = args[0]
	}
	if maxSize == 0 {
		maxSize = cfg.Memory.MaxMemoryItems
	}

	m := openWorld()
	info, err := registerEntity(m, args[0], typ, name, maxSize, force)
	if err != nil {
		exitErr("register "+args[0], err)
	}
	saveWorld(m)
	printJSON(info)
}

// registerEntity registers an entity unless it already has a memory and
// force is unset.
func registerEntity(m *manager.Manager, id, typ, name string, maxSize int, force bool) (local.EntityInfo, error) {
	if !force && m.Registered(id) {
		return local.EntityInfo{}, errAlreadyRegistered
	}
	return m.Register(id, typ, name, maxSize), nil
}

func runEntities(cmd *cobra.Command, args []string) {
	m := openWorld()
	entities := m.Entities()
	if formatFlag == "text" {
		for _, e := range entities {
			fmt.Printf("%s\t%s\t%s\n", e.ID, e.Type, e.Name)
		}
		return
	}
	printJSON(entities)
}

func runState(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	old, _ := cmd.Flags().GetString("old")
	reason, _ := cmd.Flags().GetString("reason")
	importance, _ := cmd.Flags().GetInt("importance")

	var oldValue any
	if old != "" {
		oldValue = old
	}

	m := openWorld()
	change := m.UpdateEntityState(manager.StateParams{
		EntityID:         args[0],
		EntityType:       typ,
		Property:         args[1],
		OldValue:         oldValue,
		NewValue:         args[2],
		Reason:           reason,
		GlobalImportance: importance,
	})
	saveWorld(m)
	printJSON(change)
}

func runTrack(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")

	m := openWorld()
	m.Track(args[0], typ)
	saveWorld(m)
	fmt.Printf(`{"ok":true,"tracked":%q,"type":%q}`+"\n", args[0], typ)
}

func runWorlds(cmd *cobra.Command, args []string) {
	ids, err := manager.Worlds(getSaveDir())
	if err != nil {
		exitErr("list worlds", err)
	}
	if ids == nil {
		ids = []string{}
	}
	printJSON(ids)
}
