package engine

// Spreading activation: a retrieval seeds each query concept with
// activation 1.0 and pushes energy outward along co-occurrence edges for
// a fixed number of rounds. In a round, every node on the frontier
// contributes activation * factor * weight to each neighbor. The
// contributions are staged in a pending map and applied only after the
// round, so the result is independent of iteration order. Nodes join the
// frontier the round they first receive activation and spread exactly
// once; they can keep receiving contributions afterwards.
//
// With weight-1 edges and factor 0.5, a direct neighbor of a seed ends
// at 0.5 and a two-hop neighbor at 0.25.

// Spread propagates activation from the seed concepts through the graph
// and returns the activation level per concept. Seeds carry 1.0 even
// when the graph has never seen them, so a record sharing the literal
// query concept is always credited. steps bounds the propagation rounds;
// factor attenuates each hop.
func (g *ConceptGraph) Spread(seeds []string, steps int, factor float64) map[string]float64 {
	activation := make(map[string]float64, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := activation[s]; ok {
			continue
		}
		activation[s] = 1.0
		frontier = append(frontier, s)
	}

	for step := 0; step < steps && len(frontier) > 0; step++ {
		pending := make(map[string]float64)
		for _, n := range frontier {
			for m, w := range g.adj[n] {
				pending[m] += activation[n] * factor * w
			}
		}

		var next []string
		for m, p := range pending {
			if _, seen := activation[m]; !seen {
				next = append(next, m)
			}
			activation[m] += p
		}
		frontier = next
	}

	return activation
}
