// Package metrics keeps in-process interview counters and mirrors them to
// OpenTelemetry instruments.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SessionsStarted     int64     `json:"sessionsStarted"`
	AnswersSubmitted    int64     `json:"answersSubmitted"`
	QuestionsGenerated  int64     `json:"questionsGenerated"`
	CompletionRequests  int64     `json:"completionRequests"`
	ReportsGenerated    int64     `json:"reportsGenerated"`
	FallbacksUsed       int64     `json:"fallbacksUsed"`
	APICallsTotal       int64     `json:"apiCallsTotal"`
	APICallsSuccessful  int64     `json:"apiCallsSuccessful"`
	LastUpdateTime      time.Time `json:"lastUpdateTime"`
}

type Metrics struct {
	mu   sync.RWMutex
	data Snapshot

	sessions   metric.Int64Counter
	answers    metric.Int64Counter
	questions  metric.Int64Counter
	completion metric.Int64Counter
	reports    metric.Int64Counter
	fallbacks  metric.Int64Counter
	apiCalls   metric.Int64Counter
	apiLatency metric.Float64Histogram
}

// NewMetrics registers instruments on meter. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = otel.Meter("audio-interviewer")
	}
	m := &Metrics{data: Snapshot{LastUpdateTime: time.Now()}}

	// Instrument names are constant and valid.
	m.sessions, _ = meter.Int64Counter("interview.sessions.started",
		metric.WithDescription("Interview sessions created"))
	m.answers, _ = meter.Int64Counter("interview.answers.submitted",
		metric.WithDescription("Answers recorded"))
	m.questions, _ = meter.Int64Counter("interview.questions.generated",
		metric.WithDescription("Follow-up questions appended to sessions"))
	m.completion, _ = meter.Int64Counter("interview.completion.requests",
		metric.WithDescription("Completion summary requests, one per call"))
	m.reports, _ = meter.Int64Counter("interview.reports.generated",
		metric.WithDescription("Evaluation reports persisted"))
	m.fallbacks, _ = meter.Int64Counter("interview.questions.fallback",
		metric.WithDescription("Fallback questions served because the generator failed"))
	m.apiCalls, _ = meter.Int64Counter("interview.upstream.calls",
		metric.WithDescription("Calls to the question and evaluation services"))
	m.apiLatency, _ = meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"))
	return m
}

func (m *Metrics) update(fn func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.data)
	m.data.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementSessionsStarted(ctx context.Context) {
	m.update(func(s *Snapshot) { s.SessionsStarted++ })
	m.sessions.Add(ctx, 1)
}

func (m *Metrics) IncrementAnswersSubmitted(ctx context.Context) {
	m.update(func(s *Snapshot) { s.AnswersSubmitted++ })
	m.answers.Add(ctx, 1)
}

func (m *Metrics) IncrementQuestionsGenerated(ctx context.Context) {
	m.update(func(s *Snapshot) { s.QuestionsGenerated++ })
	m.questions.Add(ctx, 1)
}

func (m *Metrics) IncrementCompletionRequests(ctx context.Context) {
	m.update(func(s *Snapshot) { s.CompletionRequests++ })
	m.completion.Add(ctx, 1)
}

func (m *Metrics) IncrementReportsGenerated(ctx context.Context) {
	m.update(func(s *Snapshot) { s.ReportsGenerated++ })
	m.reports.Add(ctx, 1)
}

func (m *Metrics) IncrementFallbacks(ctx context.Context, operation string) {
	m.update(func(s *Snapshot) { s.FallbacksUsed++ })
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordAPICall counts one upstream request and its latency.
func (m *Metrics) RecordAPICall(ctx context.Context, operation string, success bool, elapsed time.Duration) {
	m.update(func(s *Snapshot) {
		s.APICallsTotal++
		if success {
			s.APICallsSuccessful++
		}
	})
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	m.apiCalls.Add(ctx, 1, attrs)
	m.apiLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}
