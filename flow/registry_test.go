package flow

import "testing"

func TestRegistry_Catalogue(t *testing.T) {
	want := []NodeType{
		NodeStart, NodeMessage, NodeQuestion, NodeAIResponse,
		NodeLeadCapture, NodeSurvey, NodeFileUpload, NodeAppointment,
		NodeAPIWebhook, NodeHumanHandoff, NodeAction, NodeConditional,
	}

	reg := Registry()
	if len(reg) != len(want) {
		t.Fatalf("catalogue has %d types, want %d", len(reg), len(want))
	}
	for _, nt := range want {
		if !KnownType(nt) {
			t.Errorf("catalogue is missing %q", nt)
		}
	}
}

func TestRegistry_ProGating(t *testing.T) {
	gated := map[NodeType]bool{
		NodeAIResponse:   true,
		NodeFileUpload:   true,
		NodeAppointment:  true,
		NodeAPIWebhook:   true,
		NodeHumanHandoff: true,
	}

	for nt, spec := range Registry() {
		if spec.RequiresPro != gated[nt] {
			t.Errorf("%q: RequiresPro = %v, want %v", nt, spec.RequiresPro, gated[nt])
		}
	}
}

func TestLookupType(t *testing.T) {
	t.Run("known type", func(t *testing.T) {
		spec, ok := LookupType(NodeQuestion)
		if !ok {
			t.Fatal("question not found")
		}
		if spec.Type != NodeQuestion {
			t.Errorf("spec.Type = %q", spec.Type)
		}
		if len(spec.RequiredKeys) == 0 {
			t.Error("question declares no required keys")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, ok := LookupType(NodeType("hologram")); ok {
			t.Fatal("unknown type reported as known")
		}
	})
}
