package flow

import "fmt"

// PlanTier is a subscriber's plan level.
type PlanTier string

// Plan tiers in ascending order of capability.
const (
	TierFree    PlanTier = "free"
	TierStarter PlanTier = "starter"
	TierPro     PlanTier = "pro"
)

// paid reports whether the tier unlocks pro-gated node types.
func (t PlanTier) paid() bool {
	return t == TierStarter || t == TierPro
}

// CanAuthor reports whether an author on the given tier may place or
// connect a node of the given type. Unknown types are never authorable.
func CanAuthor(nodeType NodeType, tier PlanTier) bool {
	spec, ok := LookupType(nodeType)
	if !ok {
		return false
	}
	return !spec.RequiresPro || tier.paid()
}

// CanExecute reports whether a node of the given type may execute for an
// account on the given tier.
//
// The rule is identical to CanAuthor, applied at a second call site:
// execution re-checks at traversal time so a graph saved on a paid tier
// does not silently run gated nodes after a downgrade. When CanExecute
// fails mid-conversation the engine surfaces an upgrade-required output
// instead of the node's configured content; it does not error.
func CanExecute(nodeType NodeType, tier PlanTier) bool {
	return CanAuthor(nodeType, tier)
}

// FeatureGateError reports an authoring attempt to place or connect a
// gated node type on an insufficient plan.
type FeatureGateError struct {
	NodeType NodeType
	Tier     PlanTier
}

// Error implements the error interface.
func (e *FeatureGateError) Error() string {
	return fmt.Sprintf("node type %q requires a paid plan (account tier is %q)", e.NodeType, e.Tier)
}

// CheckAuthor returns a FeatureGateError when the tier may not author
// the node type, and nil otherwise. The authoring surface calls this
// when a gated node is dragged onto the canvas.
func CheckAuthor(nodeType NodeType, tier PlanTier) error {
	if CanAuthor(nodeType, tier) {
		return nil
	}
	return &FeatureGateError{NodeType: nodeType, Tier: tier}
}
