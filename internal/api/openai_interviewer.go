package api

import (
	"context"
	"log/slog"
	"strings"

	"audio-interviewer/internal/config"
	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"
	"audio-interviewer/internal/metrics"
	"audio-interviewer/internal/prompts"
)

// OpenAIInterviewer generates questions and evaluations with a chat model.
type OpenAIInterviewer struct {
	client    *OpenAIClient
	fallbacks config.FallbackConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var (
	_ interviewer.QuestionGenerator = (*OpenAIInterviewer)(nil)
	_ interviewer.Evaluator         = (*OpenAIInterviewer)(nil)
)

func NewOpenAIInterviewer(cfg config.OpenAIConfig, opts Options) *OpenAIInterviewer {
	opts.applyDefaults()
	return &OpenAIInterviewer{
		client:    NewOpenAIClient(cfg, opts.Timeout, opts.Logger, opts.Metrics, opts.Tracer),
		fallbacks: opts.Fallbacks,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

func (o *OpenAIInterviewer) fallback(ctx context.Context, operation, question string, err error) string {
	o.logger.ErrorContext(ctx, "question model failed, using fallback",
		"operation", operation,
		"error", err,
	)
	o.metrics.IncrementFallbacks(ctx, operation)
	return question
}

// cleanQuestion strips quoting the model sometimes adds around a question.
func cleanQuestion(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "QUESTION:")
	return strings.Trim(strings.TrimSpace(reply), `"`)
}

func (o *OpenAIInterviewer) FirstQuestion(ctx context.Context, jobDescription string) string {
	reply, err := o.client.Complete(ctx, "generate", prompts.FirstQuestionPrompt(jobDescription))
	if err != nil {
		return o.fallback(ctx, "generate", o.fallbacks.FirstQuestion, err)
	}
	if q := cleanQuestion(reply); q != "" {
		return q
	}
	return o.fallback(ctx, "generate", o.fallbacks.FirstQuestion, errors.ValidationError("empty reply"))
}

// NextQuestion returns "" when the model signals the interview is over.
func (o *OpenAIInterviewer) NextQuestion(ctx context.Context, jobDescription, previousQuestion, answer string) string {
	reply, err := o.client.Complete(ctx, "next-question", prompts.NextQuestionPrompt(jobDescription, previousQuestion, answer))
	if err != nil {
		return o.fallback(ctx, "next-question", o.fallbacks.NextQuestion, err)
	}
	q := cleanQuestion(reply)
	if strings.Contains(q, prompts.NoMoreQuestions) {
		return ""
	}
	if q == "" {
		return o.fallback(ctx, "next-question", o.fallbacks.NextQuestion, errors.ValidationError("empty reply"))
	}
	return q
}

func (o *OpenAIInterviewer) Evaluate(ctx context.Context, req interviewer.EvaluationRequest) (*interviewer.Evaluation, error) {
	reply, err := o.client.Complete(ctx, "evaluate", prompts.EvaluationPrompt(req.JobDescription, req.Questions, req.Answers))
	if err != nil {
		return nil, errors.UpstreamFatal("evaluation", err)
	}
	eval, err := DecodeEvaluation([]byte(reply))
	if err != nil {
		return nil, errors.UpstreamFatal("evaluation", err)
	}
	return eval, nil
}
