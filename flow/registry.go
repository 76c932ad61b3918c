package flow

// NodeType identifies a node kind in the catalogue.
type NodeType string

// The complete node type catalogue. Every persisted graph references
// these identifiers in Node.Type.
const (
	NodeStart        NodeType = "start"
	NodeMessage      NodeType = "message"
	NodeQuestion     NodeType = "question"
	NodeAIResponse   NodeType = "ai_response"
	NodeLeadCapture  NodeType = "lead_capture"
	NodeSurvey       NodeType = "survey"
	NodeFileUpload   NodeType = "file_upload"
	NodeAppointment  NodeType = "appointment"
	NodeAPIWebhook   NodeType = "api_webhook"
	NodeHumanHandoff NodeType = "human_handoff"
	NodeAction       NodeType = "action"
	NodeConditional  NodeType = "conditional"
)

// Category tags used by the authoring surface to group the node palette.
// Categories have no execution effect.
const (
	CategoryBasic       = "basic"
	CategoryEngagement  = "engagement"
	CategoryData        = "data"
	CategoryAI          = "ai"
	CategoryIntegration = "integration"
	CategoryRouting     = "routing"
)

// TypeSpec describes the contract of one node type: which config keys it
// requires and accepts, whether it is gated behind a paid plan, and how
// the authoring surface groups it.
type TypeSpec struct {
	// Type is the catalogue identifier this spec describes.
	Type NodeType

	// RequiredKeys are config keys that must be present for the node
	// to be well formed.
	RequiredKeys []string

	// OptionalKeys are config keys the type understands but does not
	// require.
	OptionalKeys []string

	// RequiresPro marks types available only on paid plan tiers.
	RequiresPro bool

	// Category groups the type in the authoring palette.
	Category string
}

// registry is the process-wide node type catalogue. Built once at init,
// read-only afterwards.
var registry map[NodeType]TypeSpec

func init() {
	specs := []TypeSpec{
		{Type: NodeStart, OptionalKeys: []string{"content"}, Category: CategoryBasic},
		{Type: NodeMessage, RequiredKeys: []string{"content"}, OptionalKeys: []string{"variable"}, Category: CategoryBasic},
		{Type: NodeQuestion, RequiredKeys: []string{"content", "options"}, OptionalKeys: []string{"variable"}, Category: CategoryBasic},
		{Type: NodeAIResponse, RequiredKeys: []string{"prompt"}, OptionalKeys: []string{"systemPrompt", "model", "variable"}, RequiresPro: true, Category: CategoryAI},
		{Type: NodeLeadCapture, RequiredKeys: []string{"content", "field"}, OptionalKeys: []string{"variable"}, Category: CategoryData},
		{Type: NodeSurvey, RequiredKeys: []string{"content", "scale"}, OptionalKeys: []string{"variable"}, Category: CategoryEngagement},
		{Type: NodeFileUpload, RequiredKeys: []string{"content"}, OptionalKeys: []string{"accept", "maxSizeMB", "variable"}, RequiresPro: true, Category: CategoryData},
		{Type: NodeAppointment, RequiredKeys: []string{"content", "calendarUrl"}, OptionalKeys: []string{"durationMinutes"}, RequiresPro: true, Category: CategoryEngagement},
		{Type: NodeAPIWebhook, RequiredKeys: []string{"apiConfig"}, OptionalKeys: []string{"variable"}, RequiresPro: true, Category: CategoryIntegration},
		{Type: NodeHumanHandoff, RequiredKeys: []string{"content"}, OptionalKeys: []string{"team"}, RequiresPro: true, Category: CategoryEngagement},
		{Type: NodeAction, RequiredKeys: []string{"action"}, OptionalKeys: []string{"variable", "value"}, Category: CategoryRouting},
		{Type: NodeConditional, RequiredKeys: []string{"conditions"}, OptionalKeys: []string{}, Category: CategoryRouting},
	}

	registry = make(map[NodeType]TypeSpec, len(specs))
	for _, s := range specs {
		registry[s.Type] = s
	}
}

// Registry returns the full node type catalogue.
//
// The returned map is shared read-only state; callers must not mutate it.
func Registry() map[NodeType]TypeSpec {
	return registry
}

// LookupType returns the spec for a node type and whether it exists.
func LookupType(t NodeType) (TypeSpec, bool) {
	s, ok := registry[t]
	return s, ok
}

// KnownType reports whether t is in the catalogue.
func KnownType(t NodeType) bool {
	_, ok := registry[t]
	return ok
}
