// Package flow provides the conversation flow graph model and its
// execution engine for chatbot delivery.
package flow

import "encoding/json"

// Node is a single conversational step in a flow graph.
//
// Config is a type-specific payload keyed by Type; use DecodeConfig to
// obtain the typed view. Position is authoring-surface data (canvas
// coordinates) and has no effect on execution.
type Node struct {
	// ID uniquely identifies the node within its graph.
	ID string `json:"id"`

	// Type is the node type identifier (see NodeType constants).
	Type NodeType `json:"type"`

	// Config holds the raw type-specific configuration payload.
	Config json.RawMessage `json:"config,omitempty"`

	// Position is the canvas location. Ignored by the engine.
	Position *Position `json:"position,omitempty"`
}

// Position is a canvas coordinate pair carried for the authoring surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed link between two nodes.
//
// An edge may carry a condition action tag. Tagged edges are only
// meaningful when their source is a conditional node: the tag binds the
// edge to the condition whose Action matches. An untagged edge from a
// conditional node is the default branch taken when no condition matches.
//
// SourceHandle distinguishes outcome slots on nodes with more than one
// untagged exit, such as the "success" and "error" handles of an
// api_webhook node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`

	// Condition is the action tag binding this edge to a condition on
	// the source node. Empty for unconditioned edges.
	Condition string `json:"condition,omitempty"`
}

// Condition is a branching rule owned by a conditional node.
//
// Conditions are declared as an ordered list; declaration order is the
// tie-break priority. The first condition whose operator evaluates true
// against the variable's current value selects its Action, and traversal
// follows the edge tagged with that action.
type Condition struct {
	// Variable names the conversation variable whose value is tested.
	Variable string `json:"variable"`

	// Operator selects the comparison (see Operator constants).
	Operator Operator `json:"operator"`

	// Value is the right-hand operand.
	Value string `json:"value"`

	// Action is the tag an outgoing edge must carry to be selected
	// when this condition matches.
	Action string `json:"action"`
}

// FlowGraph is the node/edge structure defining one chatbot's
// conversation logic.
//
// A FlowGraph is a pure value: it carries no behavior and is never
// partially patched once persisted. Authoring mutations happen on an
// independent working copy and become visible to execution only through
// an atomic whole-graph swap (Engine.ReplaceGraph).
type FlowGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given id, or nil if absent.
func (g *FlowGraph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// StartNode returns the graph's start node, or nil if absent.
func (g *FlowGraph) StartNode() *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeStart {
			return &g.Nodes[i]
		}
	}
	return nil
}

// OutgoingEdges returns the outgoing edges of a node in declared order.
//
// Declared order matters: condition tie-breaking and default-branch
// selection both walk edges in the order the graph stores them.
func (g *FlowGraph) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy of the graph via a JSON round-trip.
//
// The copy shares no memory with the original, so the engine can hand a
// graph to execution while the authoring surface keeps editing its own
// working copy.
func (g *FlowGraph) Clone() (*FlowGraph, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out FlowGraph
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
