package flow

import (
	"encoding/json"
	"testing"
)

func mustConfig(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return data
}

// minimalGraph is a structurally sound two-node graph.
func minimalGraph(t *testing.T) *FlowGraph {
	t.Helper()
	return &FlowGraph{
		Nodes: []Node{
			{ID: "n1", Type: NodeStart, Config: mustConfig(t, StartConfig{Content: "Hello"})},
			{ID: "n2", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "Bye"})},
		},
		Edges: []Edge{
			{ID: "e1", Source: "n1", Target: "n2"},
		},
	}
}

func kinds(errs []ValidationError) map[ErrorKind]int {
	out := make(map[ErrorKind]int)
	for _, e := range errs {
		out[e.Kind]++
	}
	return out
}

func TestValidate_SoundGraph(t *testing.T) {
	g := minimalGraph(t)
	if errs := Validate(g); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	g := minimalGraph(t)
	g.Nodes = append(g.Nodes, Node{ID: "n2", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "again"})})

	errs := Validate(g)
	if kinds(errs)[DuplicateNodeID] != 1 {
		t.Fatalf("expected one DuplicateNodeID error, got %v", errs)
	}
}

func TestValidate_StartNode(t *testing.T) {
	t.Run("no start node", func(t *testing.T) {
		g := minimalGraph(t)
		g.Nodes = g.Nodes[1:]
		g.Edges = nil

		errs := Validate(g)
		if kinds(errs)[MissingStartNode] != 1 {
			t.Fatalf("expected one MissingStartNode error, got %v", errs)
		}
	})

	t.Run("two start nodes", func(t *testing.T) {
		g := minimalGraph(t)
		g.Nodes = append(g.Nodes, Node{ID: "n3", Type: NodeStart})

		errs := Validate(g)
		if kinds(errs)[MissingStartNode] != 1 {
			t.Fatalf("expected one MissingStartNode error, got %v", errs)
		}
	})

	t.Run("incoming edge to start", func(t *testing.T) {
		g := minimalGraph(t)
		g.Edges = append(g.Edges, Edge{ID: "e2", Source: "n2", Target: "n1"})

		errs := Validate(g)
		if kinds(errs)[MissingStartNode] != 1 {
			t.Fatalf("expected one MissingStartNode error, got %v", errs)
		}
	})
}

func TestValidate_DanglingEdge(t *testing.T) {
	t.Run("missing target", func(t *testing.T) {
		g := minimalGraph(t)
		g.Edges = append(g.Edges, Edge{ID: "e2", Source: "n2", Target: "nope"})

		errs := Validate(g)
		if kinds(errs)[DanglingEdge] != 1 {
			t.Fatalf("expected one DanglingEdge error, got %v", errs)
		}
	})

	t.Run("missing source and target", func(t *testing.T) {
		g := minimalGraph(t)
		g.Edges = append(g.Edges, Edge{ID: "e2", Source: "ghost", Target: "nope"})

		errs := Validate(g)
		if kinds(errs)[DanglingEdge] != 2 {
			t.Fatalf("expected two DanglingEdge errors, got %v", errs)
		}
	})
}

func TestValidate_AmbiguousBranch(t *testing.T) {
	t.Run("two unconditioned edges on one handle", func(t *testing.T) {
		g := minimalGraph(t)
		g.Nodes = append(g.Nodes, Node{ID: "n3", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "x"})})
		g.Edges = append(g.Edges, Edge{ID: "e2", Source: "n1", Target: "n3"})

		errs := Validate(g)
		if kinds(errs)[AmbiguousBranch] != 1 {
			t.Fatalf("expected one AmbiguousBranch error, got %v", errs)
		}
	})

	t.Run("distinct handles are distinct slots", func(t *testing.T) {
		// An api_webhook node legitimately has a success exit and an
		// error exit: one unconditioned edge per handle.
		g := &FlowGraph{
			Nodes: []Node{
				{ID: "s", Type: NodeStart},
				{ID: "w", Type: NodeAPIWebhook, Config: mustConfig(t, APIWebhookConfig{APIConfig: APIConfig{URL: "https://example.com", Method: "GET"}})},
				{ID: "ok", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "ok"})},
				{ID: "err", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "err"})},
			},
			Edges: []Edge{
				{ID: "e1", Source: "s", Target: "w"},
				{ID: "e2", Source: "w", Target: "ok", SourceHandle: "success"},
				{ID: "e3", Source: "w", Target: "err", SourceHandle: "error"},
			},
		}

		if errs := Validate(g); len(errs) != 0 {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	t.Run("tagged edge on non-conditional node", func(t *testing.T) {
		g := minimalGraph(t)
		g.Nodes = append(g.Nodes, Node{ID: "n3", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "x"})})
		g.Edges = append(g.Edges, Edge{ID: "e2", Source: "n2", Target: "n3", Condition: "yes"})

		errs := Validate(g)
		if kinds(errs)[AmbiguousBranch] != 1 {
			t.Fatalf("expected one AmbiguousBranch error, got %v", errs)
		}
	})
}

func TestValidate_OrphanedCondition(t *testing.T) {
	conditional := func(t *testing.T, conditions []Condition) Node {
		t.Helper()
		return Node{ID: "c", Type: NodeConditional, Config: mustConfig(t, ConditionalConfig{Conditions: conditions})}
	}

	base := func(t *testing.T, cond Node, edges ...Edge) *FlowGraph {
		t.Helper()
		g := &FlowGraph{
			Nodes: []Node{
				{ID: "s", Type: NodeStart},
				cond,
				{ID: "a", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "a"})},
				{ID: "b", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "b"})},
			},
			Edges: append([]Edge{{ID: "e0", Source: "s", Target: "c"}}, edges...),
		}
		return g
	}

	t.Run("action with matching edge is sound", func(t *testing.T) {
		g := base(t,
			conditional(t, []Condition{{Variable: "v", Operator: OpEquals, Value: "x", Action: "go"}}),
			Edge{ID: "e1", Source: "c", Target: "a", Condition: "go"},
			Edge{ID: "e2", Source: "c", Target: "b"},
		)
		if errs := Validate(g); len(errs) != 0 {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	t.Run("action without edge", func(t *testing.T) {
		g := base(t,
			conditional(t, []Condition{{Variable: "v", Operator: OpEquals, Value: "x", Action: "go"}}),
			Edge{ID: "e1", Source: "c", Target: "a"},
		)
		errs := Validate(g)
		if kinds(errs)[OrphanedCondition] != 1 {
			t.Fatalf("expected one OrphanedCondition error, got %v", errs)
		}
	})

	t.Run("action bound twice", func(t *testing.T) {
		g := base(t,
			conditional(t, []Condition{{Variable: "v", Operator: OpEquals, Value: "x", Action: "go"}}),
			Edge{ID: "e1", Source: "c", Target: "a", Condition: "go"},
			Edge{ID: "e2", Source: "c", Target: "b", Condition: "go"},
		)
		errs := Validate(g)
		if kinds(errs)[OrphanedCondition] != 1 {
			t.Fatalf("expected one OrphanedCondition error, got %v", errs)
		}
	})

	t.Run("edge with undeclared tag", func(t *testing.T) {
		g := base(t,
			conditional(t, []Condition{{Variable: "v", Operator: OpEquals, Value: "x", Action: "go"}}),
			Edge{ID: "e1", Source: "c", Target: "a", Condition: "go"},
			Edge{ID: "e2", Source: "c", Target: "b", Condition: "mystery"},
		)
		errs := Validate(g)
		if kinds(errs)[OrphanedCondition] != 1 {
			t.Fatalf("expected one OrphanedCondition error, got %v", errs)
		}
	})

	t.Run("unreadable conditional config", func(t *testing.T) {
		g := base(t,
			Node{ID: "c", Type: NodeConditional, Config: json.RawMessage(`{"conditions": "not-a-list"}`)},
		)
		errs := Validate(g)
		if kinds(errs)[OrphanedCondition] != 1 {
			t.Fatalf("expected one OrphanedCondition error, got %v", errs)
		}
	})
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	// Validation never short-circuits: a graph with several independent
	// problems reports them all in one pass.
	g := &FlowGraph{
		Nodes: []Node{
			{ID: "dup", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "a"})},
			{ID: "dup", Type: NodeMessage, Config: mustConfig(t, MessageConfig{Content: "b"})},
		},
		Edges: []Edge{
			{ID: "e1", Source: "dup", Target: "ghost"},
		},
	}

	got := kinds(Validate(g))
	if got[DuplicateNodeID] == 0 || got[MissingStartNode] == 0 || got[DanglingEdge] == 0 {
		t.Fatalf("expected duplicate, missing-start and dangling errors together, got %v", got)
	}
}
