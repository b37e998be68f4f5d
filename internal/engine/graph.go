package engine

import (
	"context"
	"fmt"
)

// End is the terminal routing target. It is not a node; traversal stops on
// any branch that reaches it.
const End = "__end__"

// NodeFunc executes one workflow step. It reads the accumulated state and
// returns a partial update containing only the fields it produced. A nil
// update is valid for nodes that only route.
type NodeFunc func(ctx context.Context, state State) (State, error)

// RouteFunc inspects the merged state after a node completes and names the
// next nodes to run. Returning End on its own terminates the branch.
type RouteFunc func(state State) []string

// DefinitionError reports a structural problem found while building or
// compiling a graph: unknown node references, a missing entry point, dead
// ends, or no path to End.
type DefinitionError struct {
	msg string
}

func (e *DefinitionError) Error() string { return "graph: " + e.msg }

func definitionErrorf(format string, args ...interface{}) error {
	return &DefinitionError{msg: fmt.Sprintf(format, args...)}
}

type conditionalEdge struct {
	route      RouteFunc
	candidates map[string]struct{}
}

// StateGraph declares a workflow: named nodes, unconditional and conditional
// edges, and an entry point. Compile validates the structure and produces an
// executable Runnable; definition mistakes surface at compile time rather
// than mid-run.
type StateGraph struct {
	schema       *Schema
	nodes        map[string]NodeFunc
	order        []string
	edges        map[string][]string
	conditionals map[string]*conditionalEdge
	entry        string
	buildErr     error
}

func NewStateGraph(schema *Schema) *StateGraph {
	if schema == nil {
		schema = NewSchema()
	}
	return &StateGraph{
		schema:       schema,
		nodes:        make(map[string]NodeFunc),
		edges:        make(map[string][]string),
		conditionals: make(map[string]*conditionalEdge),
	}
}

func (g *StateGraph) fail(err error) {
	if g.buildErr == nil {
		g.buildErr = err
	}
}

// AddNode registers a uniquely named step.
func (g *StateGraph) AddNode(name string, fn NodeFunc) *StateGraph {
	switch {
	case name == "" || name == End:
		g.fail(definitionErrorf("invalid node name %q", name))
	case fn == nil:
		g.fail(definitionErrorf("node %q has a nil function", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.fail(definitionErrorf("duplicate node %q", name))
			return g
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge declares an unconditional transition. Several edges from one node
// form a concurrent fan-out; the target may be End.
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdges attaches a routing function to a node. Every name the
// route can return must be listed in candidates; End is always allowed.
func (g *StateGraph) AddConditionalEdges(from string, route RouteFunc, candidates ...string) *StateGraph {
	if route == nil {
		g.fail(definitionErrorf("node %q has a nil route", from))
		return g
	}
	if _, exists := g.conditionals[from]; exists {
		g.fail(definitionErrorf("node %q already has conditional edges", from))
		return g
	}
	set := make(map[string]struct{}, len(candidates)+1)
	set[End] = struct{}{}
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	g.conditionals[from] = &conditionalEdge{route: route, candidates: set}
	return g
}

// SetEntryPoint names the node every invocation starts from.
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	g.entry = name
	return g
}

// Compile validates the graph and returns an executable form. It checks that
// the entry point and every edge endpoint name a declared node, that every
// reachable node can continue somewhere, and that at least one path from the
// entry reaches End.
func (g *StateGraph) Compile() (*Runnable, error) {
	if g.buildErr != nil {
		return nil, g.buildErr
	}
	if g.entry == "" {
		return nil, definitionErrorf("entry point not set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, definitionErrorf("entry point %q is not a node", g.entry)
	}
	for from, targets := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, definitionErrorf("edge from unknown node %q", from)
		}
		for _, to := range targets {
			if to == End {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				return nil, definitionErrorf("edge %s -> %s targets unknown node", from, to)
			}
		}
	}
	for from, cond := range g.conditionals {
		if _, ok := g.nodes[from]; !ok {
			return nil, definitionErrorf("conditional edges from unknown node %q", from)
		}
		for candidate := range cond.candidates {
			if candidate == End {
				continue
			}
			if _, ok := g.nodes[candidate]; !ok {
				return nil, definitionErrorf("conditional edge %s -> %s targets unknown node", from, candidate)
			}
		}
	}

	reachedEnd := false
	visited := map[string]bool{}
	frontier := []string{g.entry}
	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]
		if visited[name] {
			continue
		}
		visited[name] = true
		successors := g.staticSuccessors(name)
		if len(successors) == 0 {
			return nil, definitionErrorf("node %q is a dead end", name)
		}
		for _, next := range successors {
			if next == End {
				reachedEnd = true
				continue
			}
			frontier = append(frontier, next)
		}
	}
	if !reachedEnd {
		return nil, definitionErrorf("no path from %q to the end", g.entry)
	}

	return &Runnable{graph: g}, nil
}

// staticSuccessors lists every node a step can hand off to, treating all
// conditional candidates as possible.
func (g *StateGraph) staticSuccessors(name string) []string {
	out := append([]string(nil), g.edges[name]...)
	if cond, ok := g.conditionals[name]; ok {
		for candidate := range cond.candidates {
			if candidate != End {
				out = append(out, candidate)
			}
		}
		out = append(out, End)
	}
	return out
}
