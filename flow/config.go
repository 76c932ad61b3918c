package flow

import (
	"encoding/json"
	"fmt"
)

// NodeConfig is the tagged-union view of Node.Config. Exactly one of the
// typed fields is non-nil, matching the node's Type.
//
// Decoding instead of ad hoc key probing gives exhaustiveness over node
// kinds: a switch on Node.Type plus the matching config struct covers
// every case the registry knows about.
type NodeConfig struct {
	Start       *StartConfig
	Message     *MessageConfig
	Question    *QuestionConfig
	AIResponse  *AIResponseConfig
	LeadCapture *LeadCaptureConfig
	Survey      *SurveyConfig
	FileUpload  *FileUploadConfig
	Appointment *AppointmentConfig
	APIWebhook  *APIWebhookConfig
	Handoff     *HumanHandoffConfig
	Action      *ActionConfig
	Conditional *ConditionalConfig
}

// StartConfig configures the start node. Content, when present, is the
// greeting surfaced when a conversation begins.
type StartConfig struct {
	Content string `json:"content,omitempty"`
}

// MessageConfig configures a message node. When Variable is set the node
// waits for a free-text reply and captures it under that name; otherwise
// the message is surfaced and traversal advances immediately.
type MessageConfig struct {
	Content  string `json:"content"`
	Variable string `json:"variable,omitempty"`
}

// QuestionConfig configures a question node presenting fixed options.
// The selected option is captured under Variable (default
// "selected_option").
type QuestionConfig struct {
	Content  string   `json:"content"`
	Options  []string `json:"options"`
	Variable string   `json:"variable,omitempty"`
}

// AIResponseConfig configures an ai_response node. Prompt and
// SystemPrompt are interpolated against the variable store before the
// model call. The generated text is surfaced as the node's content and,
// when Variable is set, also captured.
type AIResponseConfig struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Model        string `json:"model,omitempty"`
	Variable     string `json:"variable,omitempty"`
}

// LeadCaptureConfig configures a lead_capture node. Field names the kind
// of contact detail requested ("email", "phone", "name"); the reply is
// captured under Variable, defaulting to Field.
type LeadCaptureConfig struct {
	Content  string `json:"content"`
	Field    string `json:"field"`
	Variable string `json:"variable,omitempty"`
}

// SurveyConfig configures a survey node asking for a 1..Scale rating.
type SurveyConfig struct {
	Content  string `json:"content"`
	Scale    int    `json:"scale"`
	Variable string `json:"variable,omitempty"`
}

// FileUploadConfig configures a file_upload node. Accept lists permitted
// MIME types or extensions; the uploaded file reference is captured
// under Variable.
type FileUploadConfig struct {
	Content   string   `json:"content"`
	Accept    []string `json:"accept,omitempty"`
	MaxSizeMB int      `json:"maxSizeMB,omitempty"`
	Variable  string   `json:"variable,omitempty"`
}

// AppointmentConfig configures an appointment node pointing at an
// external scheduling calendar.
type AppointmentConfig struct {
	Content         string `json:"content"`
	CalendarURL     string `json:"calendarUrl"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// APIConfig is the outbound call description of an api_webhook node.
type APIConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Auth    string            `json:"auth,omitempty"`

	// Timeout is the call budget in seconds. The engine aborts the
	// call and takes the node's failure path when it elapses.
	Timeout int `json:"timeout"`
}

// APIWebhookConfig configures an api_webhook node. The response body is
// captured under Variable when set, making it available to later
// conditions and interpolation.
type APIWebhookConfig struct {
	APIConfig APIConfig `json:"apiConfig"`
	Variable  string    `json:"variable,omitempty"`
}

// HumanHandoffConfig configures a human_handoff node.
type HumanHandoffConfig struct {
	Content string `json:"content"`
	Team    string `json:"team,omitempty"`
}

// ActionConfig configures an action node. The only action the engine
// executes itself is "set_variable"; other action names are surfaced to
// the delivery channel as directives.
type ActionConfig struct {
	Action   string `json:"action"`
	Variable string `json:"variable,omitempty"`
	Value    string `json:"value,omitempty"`
}

// ConditionalConfig configures a conditional node. Conditions are
// evaluated in declared order; the first match wins. Fallback, when
// set, overrides the engine's configured fallback message for this node.
type ConditionalConfig struct {
	Conditions []Condition `json:"conditions"`
	Fallback   string      `json:"fallback,omitempty"`
}

// DecodeConfig parses a node's raw config payload into its typed form.
//
// An empty payload decodes to the zero value of the node's config
// struct. Returns an error for unknown node types or malformed JSON;
// validation of required keys is Validate's job, not DecodeConfig's.
func DecodeConfig(n *Node) (NodeConfig, error) {
	var out NodeConfig

	raw := n.Config
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	decode := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("node %s: malformed %s config: %w", n.ID, n.Type, err)
		}
		return nil
	}

	switch n.Type {
	case NodeStart:
		out.Start = &StartConfig{}
		return out, decode(out.Start)
	case NodeMessage:
		out.Message = &MessageConfig{}
		return out, decode(out.Message)
	case NodeQuestion:
		out.Question = &QuestionConfig{}
		return out, decode(out.Question)
	case NodeAIResponse:
		out.AIResponse = &AIResponseConfig{}
		return out, decode(out.AIResponse)
	case NodeLeadCapture:
		out.LeadCapture = &LeadCaptureConfig{}
		return out, decode(out.LeadCapture)
	case NodeSurvey:
		out.Survey = &SurveyConfig{}
		return out, decode(out.Survey)
	case NodeFileUpload:
		out.FileUpload = &FileUploadConfig{}
		return out, decode(out.FileUpload)
	case NodeAppointment:
		out.Appointment = &AppointmentConfig{}
		return out, decode(out.Appointment)
	case NodeAPIWebhook:
		out.APIWebhook = &APIWebhookConfig{}
		return out, decode(out.APIWebhook)
	case NodeHumanHandoff:
		out.Handoff = &HumanHandoffConfig{}
		return out, decode(out.Handoff)
	case NodeAction:
		out.Action = &ActionConfig{}
		return out, decode(out.Action)
	case NodeConditional:
		out.Conditional = &ConditionalConfig{}
		return out, decode(out.Conditional)
	default:
		return out, fmt.Errorf("node %s: unknown node type %q", n.ID, n.Type)
	}
}
