package metadata

import (
	"fmt"
	"sort"
)

// DependencyOptions configures dependency graph queries
type DependencyOptions struct {
	Depth   int      // Maximum traversal depth (0 = unlimited)
	Reverse bool     // Reverse traversal (find what depends on this)
	Types   []string // Filter by edge relationship (e.g. ["property", "collection"])
}

// BuildDependencyGraph constructs the graph of references between the
// specifications of a snapshot. Nodes are keyed by full type name; references to
// types outside the snapshot still get a node so dangling edges stay visible.
func BuildDependencyGraph(meta *Metadata) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	if meta == nil {
		return graph
	}

	for _, s := range meta.Specs {
		graph.Nodes[s.Type] = &DependencyNode{ID: s.Type, Name: s.Name, Nature: s.Nature}
	}

	addEdge := func(from, to, rel, via string) {
		if to == "" {
			return
		}
		graph.Edges = append(graph.Edges, DependencyEdge{
			From:         from,
			To:           to,
			Relationship: rel,
			Via:          via,
			Weight:       1,
		})
		if _, exists := graph.Nodes[to]; !exists {
			graph.Nodes[to] = &DependencyNode{ID: to, Name: to}
		}
	}

	for _, s := range meta.Specs {
		addEdge(s.Type, s.Superclass, RelExtends, "")
		for _, p := range s.Properties {
			addEdge(s.Type, p.Reference, RelProperty, p.ID)
		}
		for _, c := range s.Collections {
			addEdge(s.Type, c.Reference, RelCollection, c.ID)
		}
		for _, a := range s.Actions {
			addEdge(s.Type, a.Reference, RelReturns, a.ID)
			for _, p := range a.Parameters {
				addEdge(s.Type, p.Reference, RelParameter, fmt.Sprintf("%s[%d]", a.ID, p.Index))
			}
		}
	}

	return graph
}

// Dependencies finds the references of a specification with configurable options
func (r *Registry) Dependencies(name string, opts DependencyOptions) (*DependencyGraph, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("specification not found: %s", name)
	}

	cacheKey := fmt.Sprintf("deps:%s:%d:%v:%v", s.Type, opts.Depth, opts.Reverse, opts.Types)
	if cached := r.getCached(cacheKey); cached != nil {
		return cached.(*DependencyGraph), nil
	}

	result := extractSubgraph(r.graph, s.Type, opts)
	r.setCached(cacheKey, result)
	return result, nil
}

// extractSubgraph extracts a subgraph using BFS traversal
func extractSubgraph(fullGraph *DependencyGraph, startNode string, opts DependencyOptions) *DependencyGraph {
	result := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	visited := make(map[string]bool)
	queue := []depthNode{{id: startNode, depth: 0}}

	if node, exists := fullGraph.Nodes[startNode]; exists {
		result.Nodes[startNode] = node
	}
	visited[startNode] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var edges []DependencyEdge
		if opts.Reverse {
			edges = findIncomingEdges(fullGraph, current.id)
		} else {
			edges = findOutgoingEdges(fullGraph, current.id)
		}

		if len(opts.Types) > 0 {
			edges = filterEdgesByType(edges, opts.Types)
		}

		for _, edge := range edges {
			result.Edges = append(result.Edges, edge)

			nextNode := edge.To
			if opts.Reverse {
				nextNode = edge.From
			}

			if !visited[nextNode] {
				visited[nextNode] = true
				if node, exists := fullGraph.Nodes[nextNode]; exists {
					result.Nodes[nextNode] = node
				}

				// Check depth limit for next level before queuing
				if opts.Depth == 0 || current.depth+1 < opts.Depth {
					queue = append(queue, depthNode{id: nextNode, depth: current.depth + 1})
				}
			}
		}
	}

	return result
}

// depthNode tracks a node and its depth during traversal
type depthNode struct {
	id    string
	depth int
}

func findOutgoingEdges(graph *DependencyGraph, nodeID string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.From == nodeID {
			result = append(result, edge)
		}
	}
	return result
}

func findIncomingEdges(graph *DependencyGraph, nodeID string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.To == nodeID {
			result = append(result, edge)
		}
	}
	return result
}

func filterEdgesByType(edges []DependencyEdge, types []string) []DependencyEdge {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	var result []DependencyEdge
	for _, edge := range edges {
		if typeSet[edge.Relationship] {
			result = append(result, edge)
		}
	}
	return result
}

// DetectCycles detects circular references in the graph. Self references
// (a tree of categories, say) are reported as one-node cycles.
func DetectCycles(graph *DependencyGraph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	// Sorted so results are stable between runs
	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, nodeID := range ids {
		if !visited[nodeID] {
			findCycles(graph, nodeID, visited, recStack, nil, &cycles)
		}
	}

	return cycles
}

// findCycles performs DFS to find cycles
func findCycles(graph *DependencyGraph, nodeID string, visited, recStack map[string]bool, path []string, cycles *[][]string) {
	visited[nodeID] = true
	recStack[nodeID] = true
	path = append(path, nodeID)

	for _, edge := range graph.Edges {
		if edge.From != nodeID {
			continue
		}

		nextNode := edge.To

		if recStack[nextNode] {
			cycleStart := -1
			for i, n := range path {
				if n == nextNode {
					cycleStart = i
					break
				}
			}
			if cycleStart >= 0 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				cycle = append(cycle, nextNode) // Close the cycle
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[nextNode] {
			findCycles(graph, nextNode, visited, recStack, path, cycles)
		}
	}

	recStack[nodeID] = false
}

// DependencyDepth returns how many references away the farthest reachable specification is
func (r *Registry) DependencyDepth(name string) (int, error) {
	graph, err := r.Dependencies(name, DependencyOptions{})
	if err != nil {
		return 0, err
	}
	s, _ := r.Spec(name)

	maxDepth := 0
	visited := make(map[string]int)
	queue := []depthNode{{id: s.Type, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, ok := visited[current.id]; ok {
			continue
		}
		visited[current.id] = current.depth

		if current.depth > maxDepth {
			maxDepth = current.depth
		}

		for _, edge := range findOutgoingEdges(graph, current.id) {
			queue = append(queue, depthNode{id: edge.To, depth: current.depth + 1})
		}
	}

	return maxDepth, nil
}
