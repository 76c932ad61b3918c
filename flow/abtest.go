package flow

import (
	"errors"
	"hash/fnv"
)

// Variant identifies one arm of an A/B test.
type Variant string

// The two test arms.
const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// TestStatus is the lifecycle state of an A/B test.
type TestStatus string

// A/B test lifecycle states. Only running tests assign variants to new
// conversations; conversations already assigned keep their variant when
// a test pauses or completes.
const (
	TestDraft     TestStatus = "draft"
	TestRunning   TestStatus = "running"
	TestPaused    TestStatus = "paused"
	TestCompleted TestStatus = "completed"
)

// ErrTestNotRunning is returned when live assignment is requested for a
// test that is not in the running state.
var ErrTestNotRunning = errors.New("ab test is not running")

// VariantFlow is one arm's flow graph plus provenance metadata.
//
// Provenance records which chatbot or template the arm was derived from;
// it is display-only and never consulted by execution.
type VariantFlow struct {
	Graph FlowGraph `json:"graph"`

	// SourceChatbotID is the chatbot this arm's graph was copied from.
	SourceChatbotID string `json:"source_chatbot_id,omitempty"`

	// SourceTemplateID is the template this arm's graph was
	// instantiated from.
	SourceTemplateID string `json:"source_template_id,omitempty"`

	Label string `json:"label,omitempty"`
}

// ABTest is a controlled experiment routing conversations between two
// competing flow variants.
//
// The experiment record is owned by the experimentation subsystem; the
// core only reads it. Outcome metrics flow outward through the metrics
// registry, never back into the record.
type ABTest struct {
	ID        string `json:"id"`
	ChatbotID string `json:"chatbot_id"`

	VariantAFlow VariantFlow `json:"variant_a_flow"`
	VariantBFlow VariantFlow `json:"variant_b_flow"`

	// TrafficSplit is the probability in (0,1) that a conversation is
	// assigned to variant A.
	TrafficSplit float64 `json:"traffic_split"`

	Status TestStatus `json:"status"`

	GoalMetric string  `json:"goal_metric,omitempty"`
	GoalTarget float64 `json:"goal_target,omitempty"`
}

// Assign deterministically maps a (userIdentifier, testID) pair to a
// variant.
//
// The pair is hashed into [0,1) and compared against trafficSplit:
// hash < split assigns A, otherwise B. The hash replaces unseeded
// randomness so assignment is sticky (repeated calls, page refreshes
// and process restarts all agree), and over a large population of
// distinct identifiers the fraction assigned to A converges to the
// split. Stickiness here is a correctness requirement: reassigning a
// user across refreshes would contaminate the experiment.
func Assign(userIdentifier, testID string, trafficSplit float64) Variant {
	h := fnv.New64a()
	h.Write([]byte(userIdentifier))
	h.Write([]byte{0})
	h.Write([]byte(testID))

	// Map the 64-bit hash into [0,1).
	fraction := float64(h.Sum64()>>11) / float64(1<<53)

	if fraction < trafficSplit {
		return VariantA
	}
	return VariantB
}

// AssignLive assigns a variant for a new conversation, honoring the
// test lifecycle: only a running test hands out assignments.
//
// Draft, paused and completed tests return ErrTestNotRunning; callers
// keep previously assigned conversations on their recorded variant and
// route new conversations to the chatbot's primary flow instead.
func (t *ABTest) AssignLive(userIdentifier string) (Variant, error) {
	if t.Status != TestRunning {
		return "", ErrTestNotRunning
	}
	return Assign(userIdentifier, t.ID, t.TrafficSplit), nil
}

// FlowFor returns the flow graph of the given variant.
func (t *ABTest) FlowFor(v Variant) *FlowGraph {
	if v == VariantA {
		return &t.VariantAFlow.Graph
	}
	return &t.VariantBFlow.Graph
}
