// Package engine implements the directed-graph workflow core: a state graph
// with per-field merge strategies, conditional routing, concurrent fan-out
// and bounded feedback cycles. Pipelines declare nodes that map the shared
// state to a partial update; the executor owns all merging.
package engine

import "reflect"

// MergeStrategy controls how a node's partial update is folded into the
// accumulated state for a given field. The strategy is fixed when the schema
// is defined and applies identically regardless of which node produced the
// update, so concurrent branches merge deterministically.
type MergeStrategy int

const (
	// Replace keeps the new value when it is non-nil.
	Replace MergeStrategy = iota
	// Append concatenates list values, preserving order.
	Append
	// KeepFirst keeps the first non-nil value ever written.
	KeepFirst
)

// Reserved state fields maintained by the executor.
const (
	// ErrorField captures the first step failure; a non-empty value
	// short-circuits the run. Always merged keep-first.
	ErrorField = "error"
	// IterationField holds the running count of feedback-edge firings.
	IterationField = "iteration_count"
	// TrailField accumulates identifiers of fired feedback edges.
	TrailField = "feedback_trail"
)

// Schema registers the merge strategy for each state field. Fields that are
// never declared default to Replace (last-write-wins).
type Schema struct {
	strategies map[string]MergeStrategy
}

func NewSchema() *Schema {
	return &Schema{strategies: map[string]MergeStrategy{
		ErrorField: KeepFirst,
		TrailField: Append,
	}}
}

// Field declares a merge strategy. The error field is pinned to KeepFirst so
// first-error capture cannot be weakened by a pipeline schema.
func (s *Schema) Field(name string, strategy MergeStrategy) *Schema {
	if name == ErrorField {
		return s
	}
	s.strategies[name] = strategy
	return s
}

func (s *Schema) strategyFor(name string) MergeStrategy {
	if strategy, ok := s.strategies[name]; ok {
		return strategy
	}
	return Replace
}

// merge folds a partial update into state and returns the same state map.
// Only the executor calls this; per-field application is atomic because a
// single coordinating goroutine performs all merges.
func (s *Schema) merge(state State, update State) State {
	if state == nil {
		state = State{}
	}
	for key, value := range update {
		switch s.strategyFor(key) {
		case Replace:
			if value != nil {
				state[key] = value
			}
		case KeepFirst:
			if existing, ok := state[key]; !ok || isEmptyValue(existing) {
				if value != nil {
					state[key] = value
				}
			}
		case Append:
			state[key] = appendValues(state[key], value)
		}
	}
	return state
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// appendValues concatenates slices without aliasing either input's backing
// array. Mixed slice types degrade to []interface{}; a scalar update is
// appended as a single element.
func appendValues(existing, incoming interface{}) interface{} {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		if reflect.ValueOf(incoming).Kind() == reflect.Slice {
			return cloneSlice(incoming)
		}
		return []interface{}{incoming}
	}
	ev := reflect.ValueOf(existing)
	iv := reflect.ValueOf(incoming)
	if ev.Kind() == reflect.Slice && iv.Kind() == reflect.Slice && ev.Type() == iv.Type() {
		out := reflect.MakeSlice(ev.Type(), 0, ev.Len()+iv.Len())
		out = reflect.AppendSlice(out, ev)
		out = reflect.AppendSlice(out, iv)
		return out.Interface()
	}
	out := make([]interface{}, 0, 4)
	out = appendLoose(out, ev)
	out = appendLoose(out, iv)
	return out
}

func cloneSlice(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	out := reflect.MakeSlice(rv.Type(), 0, rv.Len())
	return reflect.AppendSlice(out, rv).Interface()
}

func appendLoose(out []interface{}, rv reflect.Value) []interface{} {
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	}
	return append(out, rv.Interface())
}
