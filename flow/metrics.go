package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for conversation
// traversal and experiment assignment.
//
// Metrics exposed (all namespaced "botflow"):
//
//  1. conversations_started_total (counter): conversations begun.
//     Labels: variant ("A", "B", or "none").
//  2. turns_total (counter): conversation transitions processed.
//     Labels: node_type, status (advanced/fallback/ended/gated/error).
//  3. turn_latency_ms (histogram): transition duration in milliseconds.
//     Labels: node_type.
//  4. fallbacks_total (counter): turns that re-prompted because no
//     condition matched and no default edge existed.
//  5. webhook_failures_total (counter): api_webhook calls that timed
//     out or answered non-2xx. Labels: reason (timeout/status/transport).
//  6. gated_nodes_total (counter): gated nodes reached by accounts
//     whose tier no longer allows them.
//  7. variant_assignments_total (counter): sticky A/B assignments
//     handed out. Labels: test_id, variant.
//  8. active_conversations (gauge): conversations currently tracked by
//     the engine.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := flow.NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use and tolerate a nil receiver,
// so the engine can run unmetered.
type Metrics struct {
	conversationsStarted *prometheus.CounterVec
	turns                *prometheus.CounterVec
	turnLatency          *prometheus.HistogramVec
	fallbacks            prometheus.Counter
	webhookFailures      *prometheus.CounterVec
	gatedNodes           prometheus.Counter
	variantAssignments   *prometheus.CounterVec
	activeConversations  prometheus.Gauge
}

// NewMetrics creates and registers all traversal metrics with the
// provided registry. A nil registry uses the global default.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		conversationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "conversations_started_total",
			Help:      "Conversations begun, by experiment variant",
		}, []string{"variant"}),

		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "turns_total",
			Help:      "Conversation transitions processed",
		}, []string{"node_type", "status"}),

		turnLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "botflow",
			Name:      "turn_latency_ms",
			Help:      "Transition duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_type"}),

		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "fallbacks_total",
			Help:      "Turns that re-prompted because no branch matched",
		}),

		webhookFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "webhook_failures_total",
			Help:      "api_webhook calls that timed out or failed",
		}, []string{"reason"}),

		gatedNodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "gated_nodes_total",
			Help:      "Gated nodes reached by accounts without the required tier",
		}),

		variantAssignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botflow",
			Name:      "variant_assignments_total",
			Help:      "Sticky A/B assignments handed out",
		}, []string{"test_id", "variant"}),

		activeConversations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "botflow",
			Name:      "active_conversations",
			Help:      "Conversations currently tracked by the engine",
		}),
	}
}

// ConversationStarted records a new conversation on the given variant;
// pass an empty variant for conversations outside any experiment.
func (m *Metrics) ConversationStarted(variant Variant) {
	if m == nil {
		return
	}
	label := string(variant)
	if label == "" {
		label = "none"
	}
	m.conversationsStarted.WithLabelValues(label).Inc()
	m.activeConversations.Inc()
}

// ConversationEnded records a conversation reaching a terminal node.
func (m *Metrics) ConversationEnded() {
	if m == nil {
		return
	}
	m.activeConversations.Dec()
}

// RecordTurn records one transition with its outcome status.
func (m *Metrics) RecordTurn(nodeType NodeType, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(string(nodeType), status).Inc()
	m.turnLatency.WithLabelValues(string(nodeType)).Observe(float64(latency.Milliseconds()))
}

// RecordFallback records a no-branch-matched re-prompt.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// RecordWebhookFailure records a failed api_webhook call.
// Reason is one of "timeout", "status", "transport".
func (m *Metrics) RecordWebhookFailure(reason string) {
	if m == nil {
		return
	}
	m.webhookFailures.WithLabelValues(reason).Inc()
}

// RecordGatedNode records execution reaching a node the account's tier
// no longer allows.
func (m *Metrics) RecordGatedNode() {
	if m == nil {
		return
	}
	m.gatedNodes.Inc()
}

// RecordAssignment records a sticky variant assignment.
func (m *Metrics) RecordAssignment(testID string, v Variant) {
	if m == nil {
		return
	}
	m.variantAssignments.WithLabelValues(testID, string(v)).Inc()
}
