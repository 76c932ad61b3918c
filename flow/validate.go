package flow

import "fmt"

// ErrorKind classifies a structural validation failure.
type ErrorKind string

// Validation failure kinds. These are stable identifiers surfaced to the
// authoring surface; error messages may change, kinds may not.
const (
	// DuplicateNodeID: two nodes share the same id.
	DuplicateNodeID ErrorKind = "duplicate_node_id"

	// MissingStartNode: the graph does not have exactly one start
	// node, or its start node has an incoming edge.
	MissingStartNode ErrorKind = "missing_start_node"

	// DanglingEdge: an edge's source or target references a node id
	// that does not exist.
	DanglingEdge ErrorKind = "dangling_edge"

	// AmbiguousBranch: a node has more than one unconditioned outgoing
	// edge on the same handle, or carries conditioned edges without
	// being a conditional node.
	AmbiguousBranch ErrorKind = "ambiguous_branch"

	// OrphanedCondition: a conditional node's condition action has no
	// matching outgoing edge, has several, or an edge carries a tag no
	// condition declares.
	OrphanedCondition ErrorKind = "orphaned_condition"
)

// ValidationError describes one structural problem in a flow graph.
//
// Validation errors are values, never panics: they are collected and
// reported together so the author can fix the whole batch in one pass.
type ValidationError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// NodeID is the offending node, when the failure is node-scoped.
	NodeID string

	// EdgeID is the offending edge, when the failure is edge-scoped.
	EdgeID string

	// Message is the human-readable description.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Validate checks a flow graph's structural invariants before
// persistence.
//
// All checks run independently and every failure is reported; Validate
// never short-circuits and never mutates the graph. A nil return means
// the graph is structurally sound.
//
// Checks:
//  1. node ids are unique
//  2. exactly one start node, with no incoming edges
//  3. every edge's source and target resolve to existing nodes
//  4. at most one unconditioned outgoing edge per source handle, and
//     condition-tagged edges only on conditional nodes
//  5. conditional actions and edge tags correspond one to one
func Validate(g *FlowGraph) []ValidationError {
	var errs []ValidationError

	errs = append(errs, checkUniqueIDs(g)...)
	errs = append(errs, checkStartNode(g)...)
	errs = append(errs, checkEdgeEndpoints(g)...)
	errs = append(errs, checkBranching(g)...)
	errs = append(errs, checkConditionBindings(g)...)

	return errs
}

func checkUniqueIDs(g *FlowGraph) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			errs = append(errs, ValidationError{
				Kind:    DuplicateNodeID,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node id %q is used more than once", n.ID),
			})
			continue
		}
		seen[n.ID] = true
	}
	return errs
}

func checkStartNode(g *FlowGraph) []ValidationError {
	var errs []ValidationError

	var starts []string
	for _, n := range g.Nodes {
		if n.Type == NodeStart {
			starts = append(starts, n.ID)
		}
	}

	switch len(starts) {
	case 1:
		for _, e := range g.Edges {
			if e.Target == starts[0] {
				errs = append(errs, ValidationError{
					Kind:    MissingStartNode,
					NodeID:  starts[0],
					EdgeID:  e.ID,
					Message: fmt.Sprintf("start node %q must not have incoming edges", starts[0]),
				})
			}
		}
	case 0:
		errs = append(errs, ValidationError{
			Kind:    MissingStartNode,
			Message: "graph has no start node",
		})
	default:
		errs = append(errs, ValidationError{
			Kind:    MissingStartNode,
			Message: fmt.Sprintf("graph has %d start nodes, want exactly 1", len(starts)),
		})
	}

	return errs
}

func checkEdgeEndpoints(g *FlowGraph) []ValidationError {
	var errs []ValidationError

	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}

	for _, e := range g.Edges {
		if !ids[e.Source] {
			errs = append(errs, ValidationError{
				Kind:    DanglingEdge,
				EdgeID:  e.ID,
				Message: fmt.Sprintf("edge %q source %q does not exist", e.ID, e.Source),
			})
		}
		if !ids[e.Target] {
			errs = append(errs, ValidationError{
				Kind:    DanglingEdge,
				EdgeID:  e.ID,
				Message: fmt.Sprintf("edge %q target %q does not exist", e.ID, e.Target),
			})
		}
	}

	return errs
}

func checkBranching(g *FlowGraph) []ValidationError {
	var errs []ValidationError

	for _, n := range g.Nodes {
		out := g.OutgoingEdges(n.ID)
		if len(out) == 0 {
			continue
		}

		// One unconditioned exit per handle. Nodes with distinct
		// outcome handles (api_webhook success/error) each get one.
		perHandle := make(map[string]int)
		conditioned := 0
		for _, e := range out {
			if e.Condition == "" {
				perHandle[e.SourceHandle]++
			} else {
				conditioned++
			}
		}

		for handle, count := range perHandle {
			if count > 1 {
				msg := fmt.Sprintf("node %q has %d unconditioned outgoing edges", n.ID, count)
				if handle != "" {
					msg = fmt.Sprintf("node %q has %d unconditioned outgoing edges on handle %q", n.ID, count, handle)
				}
				errs = append(errs, ValidationError{
					Kind:    AmbiguousBranch,
					NodeID:  n.ID,
					Message: msg,
				})
			}
		}

		if conditioned > 0 && n.Type != NodeConditional {
			errs = append(errs, ValidationError{
				Kind:    AmbiguousBranch,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node %q has condition-tagged edges but is of type %q, not conditional", n.ID, n.Type),
			})
		}
	}

	return errs
}

func checkConditionBindings(g *FlowGraph) []ValidationError {
	var errs []ValidationError

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type != NodeConditional {
			continue
		}

		cfg, err := DecodeConfig(n)
		if err != nil || cfg.Conditional == nil {
			errs = append(errs, ValidationError{
				Kind:    OrphanedCondition,
				NodeID:  n.ID,
				Message: fmt.Sprintf("conditional node %q has an unreadable config", n.ID),
			})
			continue
		}

		out := g.OutgoingEdges(n.ID)
		tagCount := make(map[string]int)
		for _, e := range out {
			if e.Condition != "" {
				tagCount[e.Condition]++
			}
		}

		declared := make(map[string]bool)
		for _, c := range cfg.Conditional.Conditions {
			declared[c.Action] = true
			switch tagCount[c.Action] {
			case 1:
				// Bound exactly once.
			case 0:
				errs = append(errs, ValidationError{
					Kind:    OrphanedCondition,
					NodeID:  n.ID,
					Message: fmt.Sprintf("condition action %q on node %q has no outgoing edge", c.Action, n.ID),
				})
			default:
				errs = append(errs, ValidationError{
					Kind:    OrphanedCondition,
					NodeID:  n.ID,
					Message: fmt.Sprintf("condition action %q on node %q is bound by %d edges, want 1", c.Action, n.ID, tagCount[c.Action]),
				})
			}
		}

		for _, e := range out {
			if e.Condition != "" && !declared[e.Condition] {
				errs = append(errs, ValidationError{
					Kind:    OrphanedCondition,
					NodeID:  n.ID,
					EdgeID:  e.ID,
					Message: fmt.Sprintf("edge %q references action %q which node %q does not declare", e.ID, e.Condition, n.ID),
				})
			}
		}
	}

	return errs
}
