package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
)

// DefaultMaxIterations bounds how many times any single feedback edge may
// fire within one invocation before the run is declared non-convergent.
const DefaultMaxIterations = 3

type runOptions struct {
	maxIterations int
	nodeTimeout   time.Duration
}

type Option func(*runOptions)

// WithMaxIterations overrides the per-edge feedback cap.
func WithMaxIterations(n int) Option {
	return func(o *runOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithNodeTimeout bounds each node execution. Zero disables the limit.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *runOptions) { o.nodeTimeout = d }
}

// Result describes a finished invocation. Converged is false only when a
// feedback edge exceeded the iteration cap; step failures are reported
// through the state's error field with Converged left true, so callers
// distinguish "a step failed" from "the cycle never settled".
type Result struct {
	State         State
	Iterations    int
	FeedbackTrail []string
	Converged     bool
}

// Runnable is a compiled graph ready to execute.
type Runnable struct {
	graph *StateGraph
}

type nodeOutcome struct {
	name   string
	update State
}

// Invoke runs the graph to completion. Execution proceeds in waves: every
// node in the current frontier runs concurrently against the same state
// snapshot, then a single coordinator merges the updates in frontier order
// and routes each node to its successors. An edge whose target already
// executed in this invocation is a feedback edge: firing one re-enqueues the
// target, increments the iteration counter and records the edge in the
// feedback trail. Invoke returns an error only for context cancellation;
// everything that goes wrong inside the workflow lands in the state.
func (r *Runnable) Invoke(ctx context.Context, initial State, opts ...Option) (*Result, error) {
	options := runOptions{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&options)
	}

	state := initial.Clone()
	visited := make(map[string]bool)
	edgeFirings := make(map[string]int)
	var trail []string
	iterations := 0
	frontier := []string{r.graph.entry}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcomes := r.runWave(ctx, frontier, state, options.nodeTimeout)
		for _, outcome := range outcomes {
			state = r.graph.schema.merge(state, outcome.update)
		}
		for _, name := range frontier {
			visited[name] = true
		}
		if msg := state.Error(); msg != "" {
			common.Logger().Warn("engine: run short-circuited", "error", msg)
			return r.result(state, iterations, trail, true), nil
		}

		var next []string
		queued := make(map[string]struct{})
		for _, name := range frontier {
			targets, err := r.dynamicSuccessors(name, state)
			if err != nil {
				state = r.graph.schema.merge(state, State{ErrorField: err.Error()})
				return r.result(state, iterations, trail, true), nil
			}
			for _, target := range targets {
				if target == End {
					continue
				}
				if visited[target] {
					edge := name + "->" + target
					edgeFirings[edge]++
					iterations++
					trail = append(trail, edge)
					common.Logger().Info("engine: feedback edge fired",
						"edge", edge, "firing", edgeFirings[edge], "iterations", iterations)
					if edgeFirings[edge] > options.maxIterations {
						common.Logger().Warn("engine: iteration cap exceeded",
							"edge", edge, "cap", options.maxIterations)
						return r.result(state, iterations, trail, false), nil
					}
				}
				if _, dup := queued[target]; !dup {
					queued[target] = struct{}{}
					next = append(next, target)
				}
			}
		}
		frontier = next
	}

	return r.result(state, iterations, trail, true), nil
}

func (r *Runnable) result(state State, iterations int, trail []string, converged bool) *Result {
	state = r.graph.schema.merge(state, State{IterationField: iterations})
	if len(trail) > 0 {
		state[TrailField] = append([]string(nil), trail...)
	}
	return &Result{
		State:         state,
		Iterations:    iterations,
		FeedbackTrail: append([]string(nil), trail...),
		Converged:     converged,
	}
}

// runWave executes the frontier. A single node runs inline; larger waves fan
// out to goroutines. Outcomes come back in frontier order so Append merges
// stay deterministic regardless of completion order.
func (r *Runnable) runWave(ctx context.Context, frontier []string, state State, timeout time.Duration) []nodeOutcome {
	outcomes := make([]nodeOutcome, len(frontier))
	if len(frontier) == 1 {
		outcomes[0] = nodeOutcome{name: frontier[0], update: r.runNode(ctx, frontier[0], state, timeout)}
		return outcomes
	}
	var wg sync.WaitGroup
	for i, name := range frontier {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outcomes[i] = nodeOutcome{name: name, update: r.runNode(ctx, name, state, timeout)}
		}(i, name)
	}
	wg.Wait()
	return outcomes
}

// runNode executes one step with panic recovery and the optional timeout.
// Failures become an error-field update instead of aborting the process.
func (r *Runnable) runNode(ctx context.Context, name string, state State, timeout time.Duration) (update State) {
	defer func() {
		if rec := recover(); rec != nil {
			common.Logger().Error("engine: node panicked", "node", name, "panic", rec)
			update = State{ErrorField: fmt.Sprintf("node %s panicked: %v", name, rec)}
		}
	}()

	nodeCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	out, err := r.graph.nodes[name](nodeCtx, state)
	if err != nil {
		common.Logger().Error("engine: node failed", "node", name, "error", err)
		return State{ErrorField: fmt.Sprintf("node %s: %v", name, err)}
	}
	common.Logger().Debug("engine: node completed", "node", name, "duration", time.Since(started))
	return out
}

// dynamicSuccessors resolves the next hops for a completed node: its
// unconditional edges plus whatever its routing function selects. Route
// results outside the declared candidate set are a workflow error.
func (r *Runnable) dynamicSuccessors(name string, state State) ([]string, error) {
	targets := append([]string(nil), r.graph.edges[name]...)
	cond, ok := r.graph.conditionals[name]
	if !ok {
		return targets, nil
	}
	routed := cond.route(state)
	if len(routed) == 0 {
		return nil, fmt.Errorf("routing from %s returned no targets", name)
	}
	for _, target := range routed {
		if _, allowed := cond.candidates[target]; !allowed {
			return nil, fmt.Errorf("routing from %s selected undeclared target %q", name, target)
		}
		targets = append(targets, target)
	}
	return targets, nil
}
