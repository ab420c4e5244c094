package content

import "github.com/goliatone/go-content/layering"

// ApplyOverrides returns a detached copy of node whose attributes are the
// node's own with overrides spread on top. The shared node is never written
// to, so a later Lookup of the same key still sees the published attributes.
// With no overrides the node is returned as-is; callers treat the result as
// read-only either way.
func ApplyOverrides(node *StaticNode, overrides map[string]any) *StaticNode {
	if node == nil || len(overrides) == 0 {
		return node
	}
	merged := *node
	merged.Attributes = layering.MergeAttributes(node.Attributes, overrides)
	return &merged
}
