package flow

import (
	"errors"
	"testing"
)

func TestCanAuthor(t *testing.T) {
	tests := []struct {
		name     string
		nodeType NodeType
		tier     PlanTier
		want     bool
	}{
		{"free tier basic node", NodeMessage, TierFree, true},
		{"free tier question", NodeQuestion, TierFree, true},
		{"free tier ai_response blocked", NodeAIResponse, TierFree, false},
		{"free tier webhook blocked", NodeAPIWebhook, TierFree, false},
		{"free tier handoff blocked", NodeHumanHandoff, TierFree, false},
		{"free tier appointment blocked", NodeAppointment, TierFree, false},
		{"free tier file_upload blocked", NodeFileUpload, TierFree, false},
		{"starter tier unlocks gated nodes", NodeAIResponse, TierStarter, true},
		{"pro tier unlocks gated nodes", NodeAPIWebhook, TierPro, true},
		{"unknown type never authorable", NodeType("teleport"), TierPro, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAuthor(tt.nodeType, tt.tier); got != tt.want {
				t.Errorf("CanAuthor(%q, %q) = %v, want %v", tt.nodeType, tt.tier, got, tt.want)
			}
		})
	}
}

func TestCanExecute_MatchesCanAuthor(t *testing.T) {
	// One rule, two call sites: authoring and execution must always
	// agree, otherwise a downgrade would behave differently at save
	// time and at run time.
	for nodeType := range Registry() {
		for _, tier := range []PlanTier{TierFree, TierStarter, TierPro} {
			if CanAuthor(nodeType, tier) != CanExecute(nodeType, tier) {
				t.Errorf("CanAuthor and CanExecute disagree for (%q, %q)", nodeType, tier)
			}
		}
	}
}

func TestCheckAuthor(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		if err := CheckAuthor(NodeMessage, TierFree); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("blocked returns FeatureGateError", func(t *testing.T) {
		err := CheckAuthor(NodeAIResponse, TierFree)
		var gateErr *FeatureGateError
		if !errors.As(err, &gateErr) {
			t.Fatalf("expected *FeatureGateError, got %v", err)
		}
		if gateErr.NodeType != NodeAIResponse || gateErr.Tier != TierFree {
			t.Errorf("error carries (%q, %q), want (ai_response, free)", gateErr.NodeType, gateErr.Tier)
		}
	})
}
