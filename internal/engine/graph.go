package engine

// ConceptGraph is an undirected weighted graph over concept strings.
// Edge weights count how many interactions mentioned both endpoints
// together. Nodes are implicit: a concept exists once it has an edge.
// There are no self-loops and no parallel edges; repeated co-occurrence
// accumulates into the one edge.
//
// The graph is not safe for concurrent use. The owning Engine serializes
// all access through its mutex.
type ConceptGraph struct {
	adj   map[string]map[string]float64
	edges int
}

// NewConceptGraph returns an empty graph.
func NewConceptGraph() *ConceptGraph {
	return &ConceptGraph{adj: make(map[string]map[string]float64)}
}

// AddCooccurrence strengthens the edge between every distinct pair in
// concepts by 1. The list is expected to be deduplicated already (the
// engine normalizes concept sets before storing them).
func (g *ConceptGraph) AddCooccurrence(concepts []string) {
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			g.bump(concepts[i], concepts[j], 1)
		}
	}
}

func (g *ConceptGraph) bump(a, b string, w float64) {
	if a == b {
		return
	}
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]float64)
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]float64)
	}
	if _, ok := g.adj[a][b]; !ok {
		g.edges++
	}
	g.adj[a][b] += w
	g.adj[b][a] += w
}

// Weight returns the edge weight between a and b, or 0 when no edge
// exists.
func (g *ConceptGraph) Weight(a, b string) float64 {
	return g.adj[a][b]
}

// Neighbors returns a copy of c's adjacency row, or nil when c has no
// edges.
func (g *ConceptGraph) Neighbors(c string) map[string]float64 {
	row := g.adj[c]
	if len(row) == 0 {
		return nil
	}
	out := make(map[string]float64, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// ConceptCount returns the number of concepts with at least one edge.
func (g *ConceptGraph) ConceptCount() int { return len(g.adj) }

// EdgeCount returns the number of distinct undirected edges.
func (g *ConceptGraph) EdgeCount() int { return g.edges }
