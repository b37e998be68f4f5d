package engine

// State is the shared workflow state: a field map merged under the graph
// schema's per-field strategies. Nodes receive the accumulated state and must
// treat it as read-only; they communicate by returning a partial update.
type State map[string]interface{}

// Clone returns a shallow copy. Field values are shared, which is safe under
// the read-only node contract.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Error returns the captured step failure, or "" when the run is clean.
func (s State) Error() string {
	return s.String(ErrorField)
}

func (s State) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

func (s State) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (s State) Bool(key string) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return false
}

// Strings returns a string-slice field, converting []interface{} elements
// when the value crossed an Append merge of mixed updates.
func (s State) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
