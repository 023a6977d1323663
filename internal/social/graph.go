package social

import "sort"

// Network returns an undirected adjacency view: two entities are linked when
// either direction has at least minInteractions interactions. Every entity
// holding a relationship appears as a node, possibly with no edges.
// Neighbor lists are sorted.
func (m *Memory) Network(minInteractions int) map[string][]string {
	return m.adjacency(func(from, to string) bool {
		return m.relationships[from][to].InteractionCount >= minInteractions
	})
}

// Groups returns the connected components of the graph whose edges are
// relationships with affinity of at least threshold in either direction.
// Members are sorted and groups are ordered by their first member.
func (m *Memory) Groups(threshold int) [][]string {
	graph := m.adjacency(func(from, to string) bool {
		return m.relationships[from][to].Affinity >= threshold
	})

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	visited := map[string]bool{}
	groups := [][]string{}
	for _, start := range nodes {
		if visited[start] {
			continue
		}
		visited[start] = true
		group := []string{}
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			group = append(group, cur)
			for _, next := range graph[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(group)
		groups = append(groups, group)
	}
	return groups
}

func (m *Memory) adjacency(keep func(from, to string) bool) map[string][]string {
	sets := map[string]map[string]bool{}
	node := func(id string) map[string]bool {
		s, ok := sets[id]
		if !ok {
			s = map[string]bool{}
			sets[id] = s
		}
		return s
	}
	for from, rels := range m.relationships {
		node(from)
		for to := range rels {
			node(to)
			if keep(from, to) {
				sets[from][to] = true
				sets[to][from] = true
			}
		}
	}

	out := make(map[string][]string, len(sets))
	for id, s := range sets {
		ns := make([]string, 0, len(s))
		for n := range s {
			ns = append(ns, n)
		}
		sort.Strings(ns)
		out[id] = ns
	}
	return out
}

// Influence is an entity's activity score in the social graph.
type Influence struct {
	EntityID string `json:"entity_id"`
	Score    int    `json:"score"`
}

// Influential ranks entities by their number of relationships plus half
// the interaction count of each, rounded down. Ties are broken by id.
func (m *Memory) Influential(topN int) []Influence {
	out := make([]Influence, 0, len(m.relationships))
	for id, rels := range m.relationships {
		score := len(rels)
		for _, r := range rels {
			score += r.InteractionCount / 2
		}
		out = append(out, Influence{EntityID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EntityID < out[j].EntityID
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
