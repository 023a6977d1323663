package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/lorekeeper/internal/model"
	"github.com/rcliao/lorekeeper/internal/social"
)

func init() {
	soc := &cobra.Command{
		Use:   "social",
		Short: "Query relationships and interactions",
	}

	affinity := &cobra.Command{
		Use:   "affinity [from-id] [to-id]",
		Short: "Show one relationship, or all of an entity's",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runAffinity,
	}

	groups := &cobra.Command{
		Use:   "groups [threshold]",
		Short: "Group entities linked by affinity at or above threshold (default 50)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runGroups,
	}

	influence := &cobra.Command{
		Use:   "influence",
		Short: "Rank the most connected entities",
		Run:   runInfluence,
	}
	influence.Flags().IntP("top", "n", 5, "How many to list")

	network := &cobra.Command{
		Use:   "network",
		Short: "Show who is linked to whom",
		Run:   runNetwork,
	}
	network.Flags().IntP("min-interactions", "m", 1, "Minimum interactions per link")

	interactions := &cobra.Command{
		Use:   "interactions",
		Short: "List recent interactions, newest first",
		Run:   runInteractions,
	}
	interactions.Flags().StringP("entity", "e", "", "Involving this entity")
	interactions.Flags().String("witness", "", "Witnessed by this entity")
	interactions.Flags().StringP("location", "l", "", "At this location")
	interactions.Flags().IntP("limit", "n", 10, "Max results")
	interactions.Flags().Bool("clear", false, "Delete the interaction log, keeping relationships")

	soc.AddCommand(affinity, groups, influence, network, interactions)
	RootCmd.AddCommand(soc)
}

func runAffinity(cmd *cobra.Command, args []string) {
	m := openWorld()
	var out any
	m.WithSocial(func(s *social.Memory) {
		if len(args) == 1 {
			out = s.Relationships(args[0])
			return
		}
		if r, ok := s.Relationship(args[0], args[1]); ok {
			out = r
			return
		}
		out = map[string]any{"from": args[0], "to": args[1], "affinity": 0, "known": false}
	})
	printJSON(out)
}

func runGroups(cmd *cobra.Command, args []string) {
	threshold := 50
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			exitErr("groups", err)
		}
		threshold = n
	}

	m := openWorld()
	var groups [][]string
	m.WithSocial(func(s *social.Memory) { groups = s.Groups(threshold) })
	if groups == nil {
		groups = [][]string{}
	}
	printJSON(groups)
}

func runInfluence(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")

	m := openWorld()
	var ranked []social.Influence
	m.WithSocial(func(s *social.Memory) { ranked = s.Influential(top) })
	if ranked == nil {
		ranked = []social.Influence{}
	}
	printJSON(ranked)
}

func runNetwork(cmd *cobra.Command, args []string) {
	minInteractions, _ := cmd.Flags().GetInt("min-interactions")

	m := openWorld()
	var net map[string][]string
	m.WithSocial(func(s *social.Memory) { net = s.Network(minInteractions) })
	printJSON(net)
}

func runInteractions(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	witness, _ := cmd.Flags().GetString("witness")
	location, _ := cmd.Flags().GetString("location")
	limit, _ := cmd.Flags().GetInt("limit")
	clearLog, _ := cmd.Flags().GetBool("clear")

	m := openWorld()
	if clearLog {
		var n int
		m.WithSocial(func(s *social.Memory) { n = s.ClearInteractions() })
		saveWorld(m)
		printJSON(map[string]int{"cleared": n})
		return
	}

	if entity == "" && witness == "" && location == "" {
		exitErr("interactions", fmt.Errorf("one of --entity, --witness or --location is required"))
	}

	var out []model.Interaction
	m.WithSocial(func(s *social.Memory) {
		switch {
		case witness != "":
			out = s.WitnessInteractions(witness, limit)
		case location != "":
			out = s.LocationInteractions(location, limit)
		default:
			out = s.EntityInteractions(entity, limit)
		}
	})
	printJSON(out)
}
