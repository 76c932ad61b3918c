package flow

import (
	"fmt"

	"github.com/google/uuid"
)

// Template is a canonical, read-only flow graph used to seed new
// chatbots, plus the descriptive metadata the gallery displays.
type Template struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	Graph FlowGraph `json:"graph"`
}

// Instantiate deep-clones the template's graph into a fresh, editable
// flow graph.
//
// Every node and edge receives a new unique id; edge endpoints are
// rewritten through the old-to-new id mapping, which is total and
// injective by construction. The clone carries only data, and shares
// no memory with the source, so the template is never mutated.
//
// Instantiation is idempotent in shape: two clones of the same template
// differ only in ids and validate identically.
func (t *Template) Instantiate() (*FlowGraph, error) {
	g, err := t.Graph.Clone()
	if err != nil {
		return nil, fmt.Errorf("template %s: clone failed: %w", t.ID, err)
	}

	idMap := make(map[string]string, len(g.Nodes))
	for i := range g.Nodes {
		fresh := uuid.NewString()
		idMap[g.Nodes[i].ID] = fresh
		g.Nodes[i].ID = fresh
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		e.ID = uuid.NewString()

		src, ok := idMap[e.Source]
		if !ok {
			return nil, fmt.Errorf("template %s: edge %s references unknown node %q", t.ID, e.ID, e.Source)
		}
		dst, ok := idMap[e.Target]
		if !ok {
			return nil, fmt.Errorf("template %s: edge %s references unknown node %q", t.ID, e.ID, e.Target)
		}
		e.Source = src
		e.Target = dst
	}

	return g, nil
}
