// Package layering provides the clone and merge primitives behind override
// application. Published nodes are shared across every instantiation, so any
// attribute change must happen on detached copies.
package layering

// MergeAttributes composes an instantiated node's effective attributes:
// override entries replace base entries wholesale, everything else passes
// through. Both inputs stay untouched; values are deep-cloned into the
// result.
func MergeAttributes(base, overrides map[string]any) map[string]any {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(overrides))
	for key, value := range base {
		merged[key] = CloneValue(value)
	}
	for key, value := range overrides {
		merged[key] = CloneValue(value)
	}
	return merged
}

// CloneAttributes deep-copies an attribute map. A nil map stays nil.
func CloneAttributes(attributes map[string]any) map[string]any {
	if attributes == nil {
		return nil
	}
	clone := make(map[string]any, len(attributes))
	for key, value := range attributes {
		clone[key] = CloneValue(value)
	}
	return clone
}

// CloneValue deep-copies the JSON-shaped values attribute maps hold: nested
// maps and slices are copied, scalars pass through.
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneAttributes(v)
	case []any:
		clone := make([]any, len(v))
		for i, item := range v {
			clone[i] = CloneValue(item)
		}
		return clone
	default:
		return value
	}
}
