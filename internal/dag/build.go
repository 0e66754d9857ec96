package dag

import (
	"context"
	"sort"
	"strings"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/ctxlog"
)

// Build constructs a complete, validated dependency graph from the model's
// workflow. Any violation aborts graph construction before any job
// executes.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create one node per workflow entry.
	if err := createNodes(ctx, model, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link requires edges.
	if err := linkNodes(ctx, model, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	if err := validateAggregatorSources(graph); err != nil {
		return nil, err
	}

	logger.Debug("Build: Graph construction successful.")
	return graph, nil
}

// createNodes performs the first pass of graph creation.
func createNodes(ctx context.Context, model *config.Model, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, wj := range model.Workflow.Jobs {
		if _, exists := graph.Nodes[wj.Name]; exists {
			return validationErrorf("workflow %q lists job %q more than once", model.Workflow.Name, wj.Name)
		}

		node := &Node{
			ID:         wj.Name,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		switch {
		case model.Jobs[wj.Name] != nil:
			node.Kind = JobNode
			node.Job = model.Jobs[wj.Name]
		case model.Aggregators[wj.Name] != nil:
			node.Kind = AggregatorNode
			node.Aggregator = model.Aggregators[wj.Name]
		default:
			return validationErrorf("workflow %q references undeclared job %q", model.Workflow.Name, wj.Name)
		}

		logger.Debug("Created node.", "id", node.ID)
		graph.Nodes[wj.Name] = node
	}
	return nil
}

// linkNodes performs the second pass, establishing dependency links from
// the requires lists.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, wj := range model.Workflow.Jobs {
		node := graph.Nodes[wj.Name]
		for _, req := range wj.Requires {
			if req == wj.Name {
				return validationErrorf("job %q requires itself", wj.Name)
			}
			depNode, ok := graph.Nodes[req]
			if !ok {
				return validationErrorf("job %q requires %q, which is not part of the workflow", wj.Name, req)
			}
			if _, exists := node.Deps[req]; !exists {
				logger.Debug("Linking dependency.", "from", node.ID, "to", depNode.ID)
				node.Deps[req] = depNode
				depNode.Dependents[node.ID] = node
			}
		}
	}
	return nil
}

// detectCycles checks for circular dependencies using DFS, reporting the
// full cycle path when one is found.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		stack = append(stack, node.ID)

		for _, dep := range sortedNodes(node.Deps) {
			if visiting[dep.ID] {
				return validationErrorf("cycle detected: %s", cyclePath(stack, dep.ID))
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range sortedNodes(g.Nodes) {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateAggregatorSources ensures every aggregator's consumption set is
// covered by its transitive dependencies, so each source is guaranteed a
// terminal state before the aggregator dispatches.
func validateAggregatorSources(g *Graph) error {
	for _, node := range g.Nodes {
		if node.Kind != AggregatorNode {
			continue
		}
		reachable := make(map[string]bool)
		var walk func(n *Node)
		walk = func(n *Node) {
			for id, dep := range n.Deps {
				if !reachable[id] {
					reachable[id] = true
					walk(dep)
				}
			}
		}
		walk(node)

		for _, src := range node.Aggregator.Sources {
			if !reachable[src] {
				return validationErrorf("aggregator %q consumes %q without requiring it", node.ID, src)
			}
		}
	}
	return nil
}

// TopologicalOrder returns the node ids in a deterministic dependency
// order, dependencies before dependents.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		indegree[id] = len(node.Deps)
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, dependent := range sortedNodes(g.Nodes[id].Dependents) {
			indegree[dependent.ID]--
			if indegree[dependent.ID] == 0 {
				unlocked = append(unlocked, dependent.ID)
			}
		}
		sort.Strings(unlocked)
		ready = append(unlocked, ready...)
	}

	if len(order) != len(g.Nodes) {
		return nil, validationErrorf("graph contains a cycle")
	}
	return order, nil
}

func sortedNodes(m map[string]*Node) []*Node {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = m[id]
	}
	return nodes
}

func cyclePath(stack []string, repeat string) string {
	start := 0
	for i, id := range stack {
		if id == repeat {
			start = i
			break
		}
	}
	parts := append(append([]string{}, stack[start:]...), repeat)
	return strings.Join(parts, " -> ")
}
