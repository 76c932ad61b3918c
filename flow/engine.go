package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatforge/botflow-go/flow/emit"
	"github.com/chatforge/botflow-go/flow/model"
	"github.com/chatforge/botflow-go/flow/store"
	"github.com/chatforge/botflow-go/flow/tool"
)

// ConversationState is the per-conversation execution state the engine
// persists after every turn.
type ConversationState struct {
	// CurrentNode is the node the conversation is resting on.
	CurrentNode string `json:"current_node"`

	// Vars is the conversation's variable store.
	Vars Variables `json:"vars,omitempty"`

	// Turn is the sequential turn number, starting at 1.
	Turn int `json:"turn"`

	// Ended marks a conversation that reached a terminal node.
	Ended bool `json:"ended"`
}

// UserEvent is one inbound visitor action: a free-text reply, a selected
// question option, a survey rating, or an uploaded file reference. The
// resting node's type decides how Text is interpreted and captured.
type UserEvent struct {
	Text string
}

// BotMessage is one piece of content surfaced to the delivery channel,
// already interpolated against the variable store.
type BotMessage struct {
	NodeID   string
	NodeType NodeType
	Text     string

	// Options are the fixed choices of a question node.
	Options []string
}

// HandoffDirective tells the delivery channel to route the visitor to a
// human agent.
type HandoffDirective struct {
	Team string
}

// ActionDirective is an action node's instruction to the delivery
// channel. The engine executes "set_variable" itself; every other action
// name passes through here.
type ActionDirective struct {
	Name     string
	Variable string
	Value    string
}

// AppointmentDirective tells the delivery channel to open the external
// scheduling calendar.
type AppointmentDirective struct {
	CalendarURL     string
	DurationMinutes int
}

// StepOutput is the result of one conversation turn.
//
// A single turn may surface several messages: auto-advancing nodes
// (start, message without capture, ai_response, action, api_webhook)
// each contribute their content before traversal rests on a node that
// awaits input or the conversation ends.
type StepOutput struct {
	// Messages are the surfaced contents in traversal order.
	Messages []BotMessage

	// NodeID and NodeType identify the node the conversation rests on
	// after the turn. Empty when the conversation ended.
	NodeID   string
	NodeType NodeType

	// AwaitingInput reports whether the resting node expects a visitor
	// reply.
	AwaitingInput bool

	// Ended reports whether the conversation reached a terminal node.
	Ended bool

	// Fallback reports that no condition matched and no default branch
	// existed; the last message is the re-prompt and the conversation
	// stayed on its resting node.
	Fallback bool

	// UpgradeRequired reports that at least one gated node was skipped
	// because the account's tier no longer allows it.
	UpgradeRequired bool

	Handoff     *HandoffDirective
	Action      *ActionDirective
	Appointment *AppointmentDirective
}

func (o *StepOutput) add(n *Node, text string, options []string) {
	o.Messages = append(o.Messages, BotMessage{
		NodeID:   n.ID,
		NodeType: n.Type,
		Text:     text,
		Options:  options,
	})
}

// ErrConversationEnded is returned by Step for a conversation that
// already reached a terminal node.
var ErrConversationEnded = errors.New("conversation has ended")

// EngineError represents an error from Engine operations.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Options configures Engine behavior.
//
// Zero values are valid - the Engine uses sensible defaults, runs
// unmetered without Metrics, and builds its own webhook client when
// Webhook is nil. Chat has no default: a graph containing ai_response
// nodes needs one wired explicitly.
type Options struct {
	// Tier is the owning account's plan tier at execution time. Gated
	// nodes re-check it every traversal, so a downgrade takes effect on
	// the next turn of every conversation.
	Tier PlanTier

	// MaxAutoHops bounds consecutive auto-advancing nodes within one
	// turn, guarding against conditional cycles that never rest on an
	// input node. Zero applies DefaultMaxAutoHops.
	MaxAutoHops int

	// FallbackMessage is the re-prompt surfaced when no condition
	// matches and no default branch exists. A conditional node's own
	// fallback config overrides it per node.
	FallbackMessage string

	// UpgradeMessage replaces the content of nodes the account's tier
	// no longer allows.
	UpgradeMessage string

	// Variant labels events and metrics when this engine serves one arm
	// of an A/B test. Empty outside experiments.
	Variant Variant

	// Chat generates ai_response node content.
	Chat model.ChatModel

	// Webhook executes api_webhook node calls.
	Webhook *tool.WebhookClient

	// Metrics receives traversal counters. Nil runs unmetered.
	Metrics *Metrics
}

// Defaults applied for zero Options fields.
const (
	DefaultMaxAutoHops     = 50
	DefaultFallbackMessage = "Sorry, I didn't catch that. Could you try again?"
	DefaultUpgradeMessage  = "This step requires an upgraded plan. Please contact the site owner."
)

// Engine executes flow graphs turn by turn.
//
// The Engine is the conversation runtime that:
//   - Resolves the visitor's reply against the resting node
//   - Routes through conditional branches (first match wins)
//   - Runs node side effects (model calls, webhooks, set_variable)
//   - Interpolates {token} placeholders before surfacing content
//   - Persists state after every turn via the store
//   - Emits observability events via the emitter
//   - Serializes turns per conversation
//
// One Engine serves one graph; an A/B test runs one Engine per arm.
// ReplaceGraph swaps the whole graph atomically, so a turn observes
// either the old graph or the new one, never a mix.
//
// Example:
//
//	st := store.NewMemStore[flow.ConversationState]()
//	eng, err := flow.New(graph, st, emit.NewLogEmitter(), flow.Options{
//	    Tier: flow.TierPro,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, _ := eng.Start(ctx, "conv-001")
//	out, _ = eng.Step(ctx, "conv-001", flow.UserEvent{Text: "Pricing"})
type Engine struct {
	mu    sync.RWMutex
	graph *FlowGraph

	store   store.Store[ConversationState]
	emitter emit.Emitter
	opts    Options

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an Engine for the given graph.
//
// The graph is validated and deep-copied: later edits to the caller's
// copy never leak into execution. Returns an INVALID_GRAPH error when
// validation fails.
//
// Parameters:
//   - g: the flow graph to execute (required)
//   - st: persistence backend for conversation state (required)
//   - emitter: observability event receiver (optional, can be nil)
//   - opts: execution configuration
func New(g *FlowGraph, st store.Store[ConversationState], emitter emit.Emitter, opts Options) (*Engine, error) {
	if g == nil {
		return nil, &EngineError{Message: "graph is required", Code: "INVALID_GRAPH"}
	}
	if st == nil {
		return nil, &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if errs := Validate(g); len(errs) > 0 {
		return nil, &EngineError{
			Message: fmt.Sprintf("graph failed validation: %v (%d problems)", errs[0], len(errs)),
			Code:    "INVALID_GRAPH",
		}
	}

	clone, err := g.Clone()
	if err != nil {
		return nil, &EngineError{Message: "cannot copy graph: " + err.Error(), Code: "INVALID_GRAPH"}
	}

	if opts.Webhook == nil {
		opts.Webhook = tool.NewWebhookClient(nil)
	}

	return &Engine{
		graph:   clone,
		store:   st,
		emitter: emitter,
		opts:    opts,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// ReplaceGraph atomically swaps the executing graph.
//
// The new graph is validated and deep-copied before the swap; an invalid
// graph leaves the current one in place. In-flight conversations keep
// their persisted node ids - a conversation resting on a node the new
// graph no longer has gets a NODE_NOT_FOUND error on its next turn
// rather than undefined traversal.
func (e *Engine) ReplaceGraph(g *FlowGraph) error {
	if g == nil {
		return &EngineError{Message: "graph is required", Code: "INVALID_GRAPH"}
	}
	if errs := Validate(g); len(errs) > 0 {
		return &EngineError{
			Message: fmt.Sprintf("graph failed validation: %v (%d problems)", errs[0], len(errs)),
			Code:    "INVALID_GRAPH",
		}
	}
	clone, err := g.Clone()
	if err != nil {
		return &EngineError{Message: "cannot copy graph: " + err.Error(), Code: "INVALID_GRAPH"}
	}

	e.mu.Lock()
	e.graph = clone
	e.mu.Unlock()
	return nil
}

// Graph returns the currently executing graph. The returned value is
// the engine's own copy; callers must not mutate it.
func (e *Engine) Graph() *FlowGraph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// convLock returns the mutex serializing turns for one conversation.
// Two simultaneous events for the same conversation queue here; events
// for different conversations run concurrently.
func (e *Engine) convLock(conversationID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[conversationID] = l
	}
	return l
}

// dropLock removes a finished conversation's serialization entry so the
// table does not grow with every conversation the engine ever served.
// An ended conversation rejects further turns without writing, so an
// event still queued on the removed mutex observes Ended and returns.
func (e *Engine) dropLock(conversationID string) {
	e.locksMu.Lock()
	delete(e.locks, conversationID)
	e.locksMu.Unlock()
}

// Start begins a conversation at the graph's start node.
//
// The start greeting is surfaced, then traversal auto-advances until it
// rests on a node awaiting input or the conversation ends. The resulting
// state is persisted as turn 1 for a new conversation id; starting an id
// that already has turns restarts it with fresh variables, persisted
// after the existing turns so the reset is what the next Step observes.
func (e *Engine) Start(ctx context.Context, conversationID string) (StepOutput, error) {
	lock := e.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	g := e.Graph()
	start := g.StartNode()
	if start == nil {
		return StepOutput{}, &EngineError{Message: "graph has no start node", Code: "NO_START_NODE"}
	}

	state := ConversationState{
		CurrentNode: start.ID,
		Vars:        make(Variables),
	}

	// A restarted conversation must not leave its old position and
	// variables as the latest persisted turn.
	_, latest, err := e.store.LoadLatest(ctx, conversationID)
	switch {
	case err == nil:
		state.Turn = latest
	case errors.Is(err, store.ErrNotFound):
		// First start for this id.
	default:
		return StepOutput{}, &EngineError{Message: "cannot load conversation: " + err.Error(), Code: "STORE_ERROR"}
	}

	e.emit(emit.Event{
		ConversationID: conversationID,
		NodeID:         start.ID,
		Msg:            "conversation_start",
		Meta:           e.meta(nil),
	})
	e.opts.Metrics.ConversationStarted(e.opts.Variant)

	out, err := e.runTurn(ctx, g, conversationID, &state, start.ID)
	if err == nil && out.Ended {
		e.dropLock(conversationID)
	}
	return out, err
}

// Step processes one inbound visitor event for an existing conversation.
//
// The event is captured against the resting node (selected option,
// free-text reply, survey rating, file reference), traversal routes
// onward and auto-advances until it rests again or ends, and the new
// state is persisted as the next turn.
//
// Turns for the same conversation are serialized: a second event
// arriving while one is processing waits its turn and observes the
// first event's state.
func (e *Engine) Step(ctx context.Context, conversationID string, ev UserEvent) (StepOutput, error) {
	lock := e.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	state, turn, err := e.store.LoadLatest(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StepOutput{}, &EngineError{
				Message: "conversation not found: " + conversationID,
				Code:    "CONVERSATION_NOT_FOUND",
			}
		}
		return StepOutput{}, &EngineError{Message: "cannot load conversation: " + err.Error(), Code: "STORE_ERROR"}
	}
	state.Turn = turn

	if state.Ended {
		e.dropLock(conversationID)
		return StepOutput{Ended: true}, ErrConversationEnded
	}

	g := e.Graph()
	node := g.NodeByID(state.CurrentNode)
	if node == nil {
		return StepOutput{}, &EngineError{
			Message: "conversation rests on node " + state.CurrentNode + " which the current graph does not have",
			Code:    "NODE_NOT_FOUND",
		}
	}

	cfg, err := DecodeConfig(node)
	if err != nil {
		return StepOutput{}, &EngineError{Message: err.Error(), Code: "BAD_CONFIG"}
	}
	state.Vars = captureInput(node, cfg, ev, state.Vars)

	// Leave the resting node through its default exit before the
	// auto-advance loop, so the node's prompt is not surfaced again.
	next := successEdge(g, node.ID)
	if next == nil {
		out, err := e.finishEnded(ctx, g, conversationID, &state, node)
		if err == nil {
			e.dropLock(conversationID)
		}
		return out, err
	}
	state.CurrentNode = next.Target

	out, err := e.runTurn(ctx, g, conversationID, &state, node.ID)
	if err == nil && out.Ended {
		e.dropLock(conversationID)
	}
	return out, err
}

// runTurn auto-advances from the current node, persists the turn, and
// emits the turn event. restingID is the node to return to on fallback.
func (e *Engine) runTurn(ctx context.Context, g *FlowGraph, conversationID string, state *ConversationState, restingID string) (StepOutput, error) {
	started := time.Now()
	state.Turn++

	var out StepOutput
	if err := e.advance(ctx, g, conversationID, state, &out); err != nil {
		return StepOutput{}, err
	}

	status := "advanced"
	switch {
	case out.Fallback:
		// No branch matched: the conversation stays where it was and
		// the visitor is re-prompted.
		state.CurrentNode = restingID
		resting := g.NodeByID(restingID)
		if resting != nil {
			out.NodeID = resting.ID
			out.NodeType = resting.Type
			out.AwaitingInput = true
		}
		status = "fallback"
		e.opts.Metrics.RecordFallback()
		e.emit(emit.Event{
			ConversationID: conversationID,
			Turn:           state.Turn,
			NodeID:         restingID,
			Msg:            "fallback",
			Meta:           e.meta(nil),
		})
	case out.Ended:
		status = "ended"
	}

	if err := e.store.SaveTurn(ctx, conversationID, state.Turn, state.CurrentNode, *state); err != nil {
		return StepOutput{}, &EngineError{Message: "failed to save turn: " + err.Error(), Code: "STORE_ERROR"}
	}

	nodeType := out.NodeType
	if nodeType == "" && len(out.Messages) > 0 {
		nodeType = out.Messages[len(out.Messages)-1].NodeType
	}
	e.opts.Metrics.RecordTurn(nodeType, status, time.Since(started))
	e.emit(emit.Event{
		ConversationID: conversationID,
		Turn:           state.Turn,
		NodeID:         state.CurrentNode,
		Msg:            "turn",
		Meta: e.meta(map[string]interface{}{
			"node_type":   string(nodeType),
			"duration_ms": time.Since(started).Milliseconds(),
		}),
	})

	if out.Ended {
		e.emit(emit.Event{
			ConversationID: conversationID,
			Turn:           state.Turn,
			NodeID:         state.CurrentNode,
			Msg:            "conversation_end",
			Meta:           e.meta(nil),
		})
		e.opts.Metrics.ConversationEnded()
	}

	return out, nil
}

// finishEnded handles a resting node with no outgoing edges: the
// conversation ends on the turn that consumed the visitor's reply.
func (e *Engine) finishEnded(ctx context.Context, g *FlowGraph, conversationID string, state *ConversationState, node *Node) (StepOutput, error) {
	started := time.Now()
	state.Turn++
	state.Ended = true

	out := StepOutput{Ended: true}

	if err := e.store.SaveTurn(ctx, conversationID, state.Turn, state.CurrentNode, *state); err != nil {
		return StepOutput{}, &EngineError{Message: "failed to save turn: " + err.Error(), Code: "STORE_ERROR"}
	}

	e.opts.Metrics.RecordTurn(node.Type, "ended", time.Since(started))
	e.emit(emit.Event{
		ConversationID: conversationID,
		Turn:           state.Turn,
		NodeID:         node.ID,
		Msg:            "conversation_end",
		Meta:           e.meta(nil),
	})
	e.opts.Metrics.ConversationEnded()

	return out, nil
}

// advance walks auto-advancing nodes until traversal rests on a node
// awaiting input, the conversation ends, or no branch matches.
func (e *Engine) advance(ctx context.Context, g *FlowGraph, conversationID string, state *ConversationState, out *StepOutput) error {
	maxHops := e.opts.MaxAutoHops
	if maxHops <= 0 {
		maxHops = DefaultMaxAutoHops
	}

	for hops := 0; ; hops++ {
		if hops >= maxHops {
			return &EngineError{
				Message: fmt.Sprintf("traversal exceeded %d auto-advancing nodes without awaiting input", maxHops),
				Code:    "MAX_HOPS_EXCEEDED",
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		node := g.NodeByID(state.CurrentNode)
		if node == nil {
			return &EngineError{
				Message: "node not found during traversal: " + state.CurrentNode,
				Code:    "NODE_NOT_FOUND",
			}
		}

		// Re-check the gate on every traversal: a graph authored on a
		// paid plan must not run gated nodes after a downgrade. The
		// node's content and side effects are skipped, an upgrade
		// notice is surfaced, and traversal continues on the default
		// exit.
		if !CanExecute(node.Type, e.opts.Tier) {
			out.add(node, e.upgradeMessage(), nil)
			out.UpgradeRequired = true
			e.opts.Metrics.RecordGatedNode()
			e.emit(emit.Event{
				ConversationID: conversationID,
				Turn:           state.Turn,
				NodeID:         node.ID,
				Msg:            "gated_node",
				Meta:           e.meta(map[string]interface{}{"node_type": string(node.Type)}),
			})
			next := successEdge(g, node.ID)
			if next == nil {
				out.Ended = true
				state.Ended = true
				return nil
			}
			state.CurrentNode = next.Target
			continue
		}

		cfg, err := DecodeConfig(node)
		if err != nil {
			return &EngineError{Message: err.Error(), Code: "BAD_CONFIG"}
		}

		switch node.Type {
		case NodeStart:
			if cfg.Start.Content != "" {
				out.add(node, Interpolate(cfg.Start.Content, state.Vars), nil)
			}

		case NodeMessage:
			out.add(node, Interpolate(cfg.Message.Content, state.Vars), nil)
			if cfg.Message.Variable != "" {
				return e.rest(state, node, out)
			}

		case NodeQuestion:
			options := make([]string, len(cfg.Question.Options))
			for i, opt := range cfg.Question.Options {
				options[i] = Interpolate(opt, state.Vars)
			}
			out.add(node, Interpolate(cfg.Question.Content, state.Vars), options)
			return e.rest(state, node, out)

		case NodeAIResponse:
			if err := e.runAIResponse(ctx, node, cfg.AIResponse, state, out); err != nil {
				return err
			}

		case NodeLeadCapture:
			out.add(node, Interpolate(cfg.LeadCapture.Content, state.Vars), nil)
			return e.rest(state, node, out)

		case NodeSurvey:
			out.add(node, Interpolate(cfg.Survey.Content, state.Vars), nil)
			return e.rest(state, node, out)

		case NodeFileUpload:
			out.add(node, Interpolate(cfg.FileUpload.Content, state.Vars), nil)
			return e.rest(state, node, out)

		case NodeAppointment:
			out.add(node, Interpolate(cfg.Appointment.Content, state.Vars), nil)
			out.Appointment = &AppointmentDirective{
				CalendarURL:     cfg.Appointment.CalendarURL,
				DurationMinutes: cfg.Appointment.DurationMinutes,
			}
			return e.rest(state, node, out)

		case NodeAPIWebhook:
			next, err := e.runWebhook(ctx, g, conversationID, node, cfg.APIWebhook, state)
			if err != nil {
				return err
			}
			if next != nil {
				state.CurrentNode = next.Target
				continue
			}

		case NodeHumanHandoff:
			out.add(node, Interpolate(cfg.Handoff.Content, state.Vars), nil)
			out.Handoff = &HandoffDirective{Team: cfg.Handoff.Team}
			out.Ended = true
			state.Ended = true
			return nil

		case NodeAction:
			if cfg.Action.Action == "set_variable" {
				if cfg.Action.Variable != "" {
					state.Vars = state.Vars.Set(cfg.Action.Variable, Interpolate(cfg.Action.Value, state.Vars))
				}
			} else {
				out.Action = &ActionDirective{
					Name:     cfg.Action.Action,
					Variable: cfg.Action.Variable,
					Value:    cfg.Action.Value,
				}
			}

		case NodeConditional:
			var next *Edge
			if action, ok := FirstMatch(cfg.Conditional.Conditions, state.Vars); ok {
				next = taggedEdge(g, node.ID, action)
			} else {
				next = successEdge(g, node.ID)
			}
			if next == nil {
				msg := cfg.Conditional.Fallback
				if msg == "" {
					msg = e.fallbackMessage()
				}
				out.add(node, Interpolate(msg, state.Vars), nil)
				out.Fallback = true
				return nil
			}
			state.CurrentNode = next.Target
			continue

		default:
			return &EngineError{
				Message: fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type),
				Code:    "BAD_CONFIG",
			}
		}

		next := successEdge(g, node.ID)
		if next == nil {
			out.Ended = true
			state.Ended = true
			return nil
		}
		state.CurrentNode = next.Target
	}
}

// rest parks traversal on a node that awaits the visitor's next event.
func (e *Engine) rest(state *ConversationState, node *Node, out *StepOutput) error {
	state.CurrentNode = node.ID
	out.NodeID = node.ID
	out.NodeType = node.Type
	out.AwaitingInput = true
	return nil
}

// runAIResponse generates an ai_response node's content via the chat
// model. Prompt and system prompt are interpolated before the call; the
// reply is surfaced and optionally captured.
func (e *Engine) runAIResponse(ctx context.Context, node *Node, cfg *AIResponseConfig, state *ConversationState, out *StepOutput) error {
	if e.opts.Chat == nil {
		return &EngineError{
			Message: "graph contains ai_response nodes but no chat model is configured",
			Code:    "NO_CHAT_MODEL",
		}
	}

	var msgs []model.Message
	if cfg.SystemPrompt != "" {
		msgs = append(msgs, model.Message{
			Role:    model.RoleSystem,
			Content: Interpolate(cfg.SystemPrompt, state.Vars),
		})
	}
	msgs = append(msgs, model.Message{
		Role:    model.RoleUser,
		Content: Interpolate(cfg.Prompt, state.Vars),
	})

	reply, err := e.opts.Chat.Chat(ctx, msgs)
	if err != nil {
		return &EngineError{
			Message: "chat model failed on node " + node.ID + ": " + err.Error(),
			Code:    "MODEL_ERROR",
		}
	}

	out.add(node, reply.Text, nil)
	if cfg.Variable != "" {
		state.Vars = state.Vars.Set(cfg.Variable, reply.Text)
	}
	return nil
}

// runWebhook executes an api_webhook node's outbound call.
//
// On success the response body is captured and the caller advances on
// the node's success exit (returned edge nil means: use the shared
// default-exit path). On timeout or failure the node's "error" handle is
// taken; a failing webhook with no error exit aborts the turn.
func (e *Engine) runWebhook(ctx context.Context, g *FlowGraph, conversationID string, node *Node, cfg *APIWebhookConfig, state *ConversationState) (*Edge, error) {
	api := cfg.APIConfig
	req := tool.WebhookRequest{
		URL:     Interpolate(api.URL, state.Vars),
		Method:  api.Method,
		Headers: api.Headers,
		Auth:    api.Auth,
		Timeout: api.Timeout,
	}

	res, err := e.opts.Webhook.Call(ctx, req)
	if err != nil {
		reason := "transport"
		var werr *tool.WebhookError
		if errors.As(err, &werr) {
			switch {
			case werr.Timeout:
				reason = "timeout"
			case werr.StatusCode != 0:
				reason = "status"
			}
		}
		e.opts.Metrics.RecordWebhookFailure(reason)
		e.emit(emit.Event{
			ConversationID: conversationID,
			Turn:           state.Turn,
			NodeID:         node.ID,
			Msg:            "webhook_error",
			Meta: e.meta(map[string]interface{}{
				"node_type": string(node.Type),
				"error":     err.Error(),
			}),
		})

		next := errorEdge(g, node.ID)
		if next == nil {
			return nil, &EngineError{
				Message: "webhook failed on node " + node.ID + " and no error exit exists: " + err.Error(),
				Code:    "WEBHOOK_FAILED",
			}
		}
		return next, nil
	}

	if cfg.Variable != "" {
		state.Vars = state.Vars.Set(cfg.Variable, res.Body)
	}
	return nil, nil
}

// Park stores the conversation's latest state under a named snapshot so
// it can be resumed later, for example after a human-agent interlude.
func (e *Engine) Park(ctx context.Context, conversationID, label string) error {
	lock := e.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	state, turn, err := e.store.LoadLatest(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &EngineError{
				Message: "conversation not found: " + conversationID,
				Code:    "CONVERSATION_NOT_FOUND",
			}
		}
		return &EngineError{Message: "cannot load conversation: " + err.Error(), Code: "STORE_ERROR"}
	}

	if err := e.store.SaveSnapshot(ctx, label, state, turn); err != nil {
		return &EngineError{Message: "failed to save snapshot: " + err.Error(), Code: "STORE_ERROR"}
	}

	e.emit(emit.Event{
		ConversationID: conversationID,
		Turn:           turn,
		NodeID:         state.CurrentNode,
		Msg:            "conversation_parked",
		Meta:           e.meta(map[string]interface{}{"label": label}),
	})
	return nil
}

// Resume restores a parked snapshot under a conversation id and
// re-surfaces the resting node's prompt.
func (e *Engine) Resume(ctx context.Context, label, conversationID string) (StepOutput, error) {
	lock := e.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	state, turn, err := e.store.LoadSnapshot(ctx, label)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StepOutput{}, &EngineError{
				Message: "snapshot not found: " + label,
				Code:    "SNAPSHOT_NOT_FOUND",
			}
		}
		return StepOutput{}, &EngineError{Message: "cannot load snapshot: " + err.Error(), Code: "STORE_ERROR"}
	}
	state.Turn = turn

	if err := e.store.SaveTurn(ctx, conversationID, turn, state.CurrentNode, state); err != nil {
		return StepOutput{}, &EngineError{Message: "failed to save turn: " + err.Error(), Code: "STORE_ERROR"}
	}

	e.emit(emit.Event{
		ConversationID: conversationID,
		Turn:           turn,
		NodeID:         state.CurrentNode,
		Msg:            "conversation_resumed",
		Meta:           e.meta(map[string]interface{}{"label": label}),
	})

	g := e.Graph()
	node := g.NodeByID(state.CurrentNode)
	if node == nil {
		return StepOutput{}, &EngineError{
			Message: "snapshot rests on node " + state.CurrentNode + " which the current graph does not have",
			Code:    "NODE_NOT_FOUND",
		}
	}
	return e.renderNode(node, &state)
}

// renderNode re-surfaces a resting node's prompt without advancing.
func (e *Engine) renderNode(node *Node, state *ConversationState) (StepOutput, error) {
	cfg, err := DecodeConfig(node)
	if err != nil {
		return StepOutput{}, &EngineError{Message: err.Error(), Code: "BAD_CONFIG"}
	}

	var out StepOutput
	switch node.Type {
	case NodeMessage:
		out.add(node, Interpolate(cfg.Message.Content, state.Vars), nil)
	case NodeQuestion:
		options := make([]string, len(cfg.Question.Options))
		for i, opt := range cfg.Question.Options {
			options[i] = Interpolate(opt, state.Vars)
		}
		out.add(node, Interpolate(cfg.Question.Content, state.Vars), options)
	case NodeLeadCapture:
		out.add(node, Interpolate(cfg.LeadCapture.Content, state.Vars), nil)
	case NodeSurvey:
		out.add(node, Interpolate(cfg.Survey.Content, state.Vars), nil)
	case NodeFileUpload:
		out.add(node, Interpolate(cfg.FileUpload.Content, state.Vars), nil)
	case NodeAppointment:
		out.add(node, Interpolate(cfg.Appointment.Content, state.Vars), nil)
		out.Appointment = &AppointmentDirective{
			CalendarURL:     cfg.Appointment.CalendarURL,
			DurationMinutes: cfg.Appointment.DurationMinutes,
		}
	}

	out.NodeID = node.ID
	out.NodeType = node.Type
	out.AwaitingInput = !state.Ended
	out.Ended = state.Ended
	return out, nil
}

// captureInput records the visitor's event under the resting node's
// capture variable. Node types without a capture (start, appointment)
// consume the event without recording it.
func captureInput(node *Node, cfg NodeConfig, ev UserEvent, vars Variables) Variables {
	switch node.Type {
	case NodeMessage:
		if cfg.Message.Variable != "" {
			vars = vars.Set(cfg.Message.Variable, ev.Text)
		}
	case NodeQuestion:
		name := cfg.Question.Variable
		if name == "" {
			name = "selected_option"
		}
		vars = vars.Set(name, ev.Text)
	case NodeLeadCapture:
		name := cfg.LeadCapture.Variable
		if name == "" {
			name = cfg.LeadCapture.Field
		}
		if name != "" {
			vars = vars.Set(name, ev.Text)
		}
	case NodeSurvey:
		name := cfg.Survey.Variable
		if name == "" {
			name = "rating"
		}
		vars = vars.Set(name, ev.Text)
	case NodeFileUpload:
		name := cfg.FileUpload.Variable
		if name == "" {
			name = "uploaded_file"
		}
		vars = vars.Set(name, ev.Text)
	}
	return vars
}

// errorHandle is the source handle designating a node's failure exit.
const errorHandle = "error"

// successEdge returns a node's default exit: the first unconditioned
// outgoing edge that is not on the error handle.
func successEdge(g *FlowGraph, nodeID string) *Edge {
	for _, edge := range g.OutgoingEdges(nodeID) {
		if edge.Condition == "" && edge.SourceHandle != errorHandle {
			e := edge
			return &e
		}
	}
	return nil
}

// errorEdge returns a node's failure exit, or nil when it has none.
func errorEdge(g *FlowGraph, nodeID string) *Edge {
	for _, edge := range g.OutgoingEdges(nodeID) {
		if edge.Condition == "" && edge.SourceHandle == errorHandle {
			e := edge
			return &e
		}
	}
	return nil
}

// taggedEdge returns the edge bound to a condition action.
func taggedEdge(g *FlowGraph, nodeID, action string) *Edge {
	for _, edge := range g.OutgoingEdges(nodeID) {
		if edge.Condition == action {
			e := edge
			return &e
		}
	}
	return nil
}

func (e *Engine) fallbackMessage() string {
	if e.opts.FallbackMessage != "" {
		return e.opts.FallbackMessage
	}
	return DefaultFallbackMessage
}

func (e *Engine) upgradeMessage() string {
	if e.opts.UpgradeMessage != "" {
		return e.opts.UpgradeMessage
	}
	return DefaultUpgradeMessage
}

func (e *Engine) emit(event emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

// meta builds event metadata, stamping the experiment variant when the
// engine serves one arm of an A/B test.
func (e *Engine) meta(extra map[string]interface{}) map[string]interface{} {
	if e.opts.Variant == "" {
		return extra
	}
	if extra == nil {
		extra = make(map[string]interface{}, 1)
	}
	extra["variant"] = string(e.opts.Variant)
	return extra
}
