package dag

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/registry"
)

// Build constructs a complete, validated dependency graph from a config model.
func Build(ctx context.Context, model *config.Model, r *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	if err := createNodes(ctx, model.Grid, graph, r); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	if err := linkNodes(ctx, graph, r); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Graph construction successful.")
	return graph, nil
}

// NodeID returns the graph ID of a step.
func NodeID(runnerType, name string) string {
	return config.StepID(runnerType, name)
}

// createNodes performs the first pass of graph creation.
func createNodes(ctx context.Context, grid *config.Grid, graph *Graph, r *registry.Registry) error {
	if grid == nil {
		return nil
	}
	for _, s := range grid.Steps {
		if _, ok := r.DefinitionRegistry[s.RunnerType]; !ok {
			return fmt.Errorf("step '%s.%s' uses unknown runner type '%s'", s.RunnerType, s.Name, s.RunnerType)
		}
		id := s.ID()
		if prev, exists := graph.Nodes[id]; exists {
			return fmt.Errorf("duplicate step definition '%s'%s", id, declaredIn(prev.StepConfig, s))
		}
		graph.Nodes[id] = &Node{
			ID:         id,
			Name:       s.Name,
			StepConfig: s,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	ctxlog.FromContext(ctx).Debug("Created step nodes.", "count", len(graph.Nodes))
	return nil
}

// declaredIn names the files two clashing steps came from, if known.
func declaredIn(a, b *config.Step) string {
	if a.Source == "" && b.Source == "" {
		return ""
	}
	return fmt.Sprintf(" (declared in %s and %s)", a.Source, b.Source)
}

// linkNodes performs the second pass, establishing dependency links.
func linkNodes(ctx context.Context, graph *Graph, r *registry.Registry) error {
	for _, id := range graph.sortedIDs() {
		node := graph.Nodes[id]
		if err := linkExplicitDeps(ctx, node, node.StepConfig.DependsOn, graph); err != nil {
			return err
		}
		names := make([]string, 0, len(node.StepConfig.Arguments))
		for name := range node.StepConfig.Arguments {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := linkImplicitDeps(ctx, node, node.StepConfig.Arguments[name], graph, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func link(node, dep *Node) {
	node.Deps[dep.ID] = dep
	dep.Dependents[node.ID] = node
}

// linkExplicitDeps resolves dependencies from `depends_on`, written as
// "<runner_type>.<name>".
func linkExplicitDeps(ctx context.Context, node *Node, dependsOn []string, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, raw := range dependsOn {
		addr, err := parseDepAddress(raw)
		if err != nil {
			return fmt.Errorf("step '%s': %w", node.ID, err)
		}
		depNode, ok := graph.Nodes[NodeID(addr.RunnerType, addr.Name)]
		if !ok {
			return fmt.Errorf("step '%s' depends on non-existent step '%s'", node.ID, raw)
		}
		if depNode == node {
			return fmt.Errorf("step '%s' depends on itself", node.ID)
		}
		if _, exists := node.Deps[depNode.ID]; !exists {
			logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depNode.ID)
			link(node, depNode)
		}
	}
	return nil
}

// linkImplicitDeps links every step referenced by an argument expression
// as step.<runner_type>.<name>.output.<field>.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph, r *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "step" {
			return fmt.Errorf("step '%s': unknown variable '%s'", node.ID, formatTraversal(traversal))
		}
		if len(traversal) < 3 {
			return fmt.Errorf("step '%s': incomplete step reference '%s'", node.ID, formatTraversal(traversal))
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			return fmt.Errorf("step '%s': malformed step reference '%s'", node.ID, formatTraversal(traversal))
		}

		depID := NodeID(typeAttr.Name, nameAttr.Name)
		depNode, ok := graph.Nodes[depID]
		if !ok {
			return fmt.Errorf("step '%s' references non-existent step '%s'", node.ID, depID)
		}
		if depNode == node {
			return fmt.Errorf("step '%s' references its own output", node.ID)
		}
		if err := validateOutputReference(traversal, depNode, r); err != nil {
			return err
		}

		if _, exists := node.Deps[depID]; !exists {
			logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID, "traversal", formatTraversal(traversal))
			link(node, depNode)
		}
	}
	return nil
}

// validateOutputReference checks that step.<t>.<n>.output.<field> names an
// output the runner's manifest declares.
func validateOutputReference(traversal hcl.Traversal, depNode *Node, r *registry.Registry) error {
	if len(traversal) < 4 {
		return nil
	}
	attr, ok := traversal[3].(hcl.TraverseAttr)
	if !ok || attr.Name != "output" {
		return fmt.Errorf("reference '%s' must read step outputs via '.output'", formatTraversal(traversal))
	}
	if len(traversal) < 5 {
		return nil
	}
	outputNameAttr, ok := traversal[4].(hcl.TraverseAttr)
	if !ok {
		return nil
	}
	runnerDef := r.DefinitionRegistry[depNode.StepConfig.RunnerType]
	if _, ok := runnerDef.Outputs[outputNameAttr.Name]; ok {
		return nil
	}
	return fmt.Errorf("reference to undeclared output %q on step %q", outputNameAttr.Name, depNode.ID)
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return fmt.Errorf("cycle detected involving '%s'", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, id := range g.sortedIDs() {
		if node := g.Nodes[id]; !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
