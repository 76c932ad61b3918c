package flow

import (
	"encoding/json"
	"testing"
)

func TestDecodeConfig(t *testing.T) {
	t.Run("question", func(t *testing.T) {
		n := &Node{ID: "q", Type: NodeQuestion, Config: mustConfig(t, QuestionConfig{
			Content:  "Pick one",
			Options:  []string{"A", "B"},
			Variable: "choice",
		})}

		cfg, err := DecodeConfig(n)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Question == nil {
			t.Fatal("Question config not populated")
		}
		if cfg.Question.Variable != "choice" || len(cfg.Question.Options) != 2 {
			t.Errorf("decoded %+v", cfg.Question)
		}
		if cfg.Message != nil || cfg.Conditional != nil {
			t.Error("unrelated config fields populated")
		}
	})

	t.Run("api_webhook nested config", func(t *testing.T) {
		n := &Node{ID: "w", Type: NodeAPIWebhook, Config: json.RawMessage(
			`{"apiConfig":{"url":"https://example.com/hook","method":"POST","timeout":15,"headers":{"X-K":"v"}},"variable":"result"}`,
		)}

		cfg, err := DecodeConfig(n)
		if err != nil {
			t.Fatal(err)
		}
		api := cfg.APIWebhook.APIConfig
		if api.URL != "https://example.com/hook" || api.Method != "POST" || api.Timeout != 15 {
			t.Errorf("decoded %+v", api)
		}
		if api.Headers["X-K"] != "v" {
			t.Errorf("headers = %v", api.Headers)
		}
		if cfg.APIWebhook.Variable != "result" {
			t.Errorf("variable = %q", cfg.APIWebhook.Variable)
		}
	})

	t.Run("empty payload decodes to zero config", func(t *testing.T) {
		n := &Node{ID: "s", Type: NodeStart}
		cfg, err := DecodeConfig(n)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Start == nil || cfg.Start.Content != "" {
			t.Errorf("decoded %+v", cfg.Start)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		n := &Node{ID: "x", Type: NodeType("wormhole")}
		if _, err := DecodeConfig(n); err == nil {
			t.Fatal("expected error for unknown node type")
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		n := &Node{ID: "m", Type: NodeMessage, Config: json.RawMessage(`{"content": 7}`)}
		if _, err := DecodeConfig(n); err == nil {
			t.Fatal("expected error for type-mismatched config")
		}
	})
}

func TestFlowGraph_Clone(t *testing.T) {
	g := minimalGraph(t)

	clone, err := g.Clone()
	if err != nil {
		t.Fatal(err)
	}

	clone.Nodes[0].ID = "mutated"
	clone.Edges[0].Target = "elsewhere"

	if g.Nodes[0].ID != "n1" || g.Edges[0].Target != "n2" {
		t.Error("mutating the clone changed the original")
	}
}

func TestFlowGraph_OutgoingEdges(t *testing.T) {
	g := &FlowGraph{
		Nodes: []Node{{ID: "a", Type: NodeStart}, {ID: "b", Type: NodeMessage}, {ID: "c", Type: NodeMessage}},
		Edges: []Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
			{ID: "e3", Source: "a", Target: "c"},
		},
	}

	out := g.OutgoingEdges("a")
	if len(out) != 2 {
		t.Fatalf("got %d edges", len(out))
	}
	// Declared order is the routing priority and must be preserved.
	if out[0].ID != "e1" || out[1].ID != "e3" {
		t.Errorf("order = %s, %s", out[0].ID, out[1].ID)
	}

	if got := g.OutgoingEdges("c"); len(got) != 0 {
		t.Errorf("leaf node has %d outgoing edges", len(got))
	}
}
