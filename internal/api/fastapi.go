// Package api holds the clients for the AI services that generate questions
// and evaluate interviews.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"audio-interviewer/internal/config"
	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"
	"audio-interviewer/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures an AI client. Everything except BaseURL is optional.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Fallbacks config.FallbackConfig
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Fallbacks.FirstQuestion == "" {
		o.Fallbacks.FirstQuestion = config.DefaultFirstQuestion
	}
	if o.Fallbacks.NextQuestion == "" {
		o.Fallbacks.NextQuestion = config.DefaultNextQuestion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewMetrics(nil)
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("audio-interviewer/api")
	}
}

// FastAPIClient talks to the Python question/evaluation service.
type FastAPIClient struct {
	baseURL   string
	client    *http.Client
	fallbacks config.FallbackConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

var (
	_ interviewer.QuestionGenerator = (*FastAPIClient)(nil)
	_ interviewer.Evaluator         = (*FastAPIClient)(nil)
)

func NewFastAPIClient(opts Options) *FastAPIClient {
	opts.applyDefaults()
	return &FastAPIClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    &http.Client{Timeout: opts.Timeout},
		fallbacks: opts.Fallbacks,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}
}

type generateRequest struct {
	JD string `json:"jd"`
}

type generateResponse struct {
	Questions []string `json:"questions"`
}

type nextQuestionRequest struct {
	JD               string `json:"jd"`
	PreviousQuestion string `json:"previous_question"`
	Answer           string `json:"answer"`
}

type nextQuestionResponse struct {
	NextQuestion *string `json:"next_question"`
}

// statusError is a non-2xx reply.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// post sends payload as JSON and returns the raw reply body.
func (c *FastAPIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "fastapi_api_call", trace.WithAttributes(attribute.String("http.route", path)))
	defer span.End()

	start := time.Now()
	body, err := c.do(ctx, path, payload)
	c.metrics.RecordAPICall(ctx, strings.TrimPrefix(path, "/"), err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *FastAPIClient) do(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.StatusCode, body: truncate(string(body), 512)}
	}
	return body, nil
}

func (c *FastAPIClient) fallback(ctx context.Context, operation, question string, err error) string {
	c.logger.ErrorContext(ctx, "question service failed, using fallback",
		"operation", operation,
		"error", err,
	)
	c.metrics.IncrementFallbacks(ctx, operation)
	return question
}

// FirstQuestion returns the first generated question, or the fallback.
func (c *FastAPIClient) FirstQuestion(ctx context.Context, jobDescription string) string {
	body, err := c.post(ctx, "/generate", generateRequest{JD: jobDescription})
	if err != nil {
		return c.fallback(ctx, "generate", c.fallbacks.FirstQuestion, err)
	}
	c.logger.DebugContext(ctx, "generate response", "body", truncate(string(body), 512))

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return c.fallback(ctx, "generate", c.fallbacks.FirstQuestion, err)
	}
	if len(result.Questions) == 0 {
		return c.fallback(ctx, "generate", c.fallbacks.FirstQuestion, fmt.Errorf("no questions returned"))
	}
	return result.Questions[0]
}

// NextQuestion returns the generated follow-up. A present but empty
// next_question is passed through so the service can end the interview.
func (c *FastAPIClient) NextQuestion(ctx context.Context, jobDescription, previousQuestion, answer string) string {
	body, err := c.post(ctx, "/next-question", nextQuestionRequest{
		JD:               jobDescription,
		PreviousQuestion: previousQuestion,
		Answer:           answer,
	})
	if err != nil {
		return c.fallback(ctx, "next-question", c.fallbacks.NextQuestion, err)
	}
	c.logger.DebugContext(ctx, "next-question response", "body", truncate(string(body), 512))

	var result nextQuestionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return c.fallback(ctx, "next-question", c.fallbacks.NextQuestion, err)
	}
	if result.NextQuestion == nil {
		return c.fallback(ctx, "next-question", c.fallbacks.NextQuestion, fmt.Errorf("next_question missing"))
	}
	return *result.NextQuestion
}

// Evaluate scores the interview. Every failure is UpstreamFatal.
func (c *FastAPIClient) Evaluate(ctx context.Context, req interviewer.EvaluationRequest) (*interviewer.Evaluation, error) {
	body, err := c.post(ctx, "/evaluate", req)
	if err != nil {
		return nil, errors.UpstreamFatal("evaluation", err)
	}
	eval, err := DecodeEvaluation(body)
	if err != nil {
		return nil, errors.UpstreamFatal("evaluation", err)
	}
	return eval, nil
}
