// Package interviewer drives an interview session: question sequencing,
// answer intake and report synthesis. All state lives in the repositories;
// the Service itself is safe for concurrent use.
package interviewer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"audio-interviewer/internal/config"
	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/metrics"
	"audio-interviewer/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deps wires the Service. Config, Logger, Metrics, Tracer and Now are optional.
type Deps struct {
	Sessions  storage.SessionRepository
	Reports   storage.ReportRepository
	Blobs     storage.BlobStore
	Generator QuestionGenerator
	Evaluator Evaluator
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Now       func() time.Time
}

// Service orchestrates sessions, questions, answers and reports.
type Service struct {
	sessions  storage.SessionRepository
	reports   storage.ReportRepository
	blobs     storage.BlobStore
	generator QuestionGenerator
	evaluator Evaluator
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// New builds a Service, filling optional dependencies with defaults.
func New(d Deps) *Service {
	s := &Service{
		sessions:  d.Sessions,
		reports:   d.Reports,
		blobs:     d.Blobs,
		generator: d.Generator,
		evaluator: d.Evaluator,
		cfg:       d.Config,
		logger:    d.Logger,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		now:       d.Now,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics(nil)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("audio-interviewer/interviewer")
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "interviewer."+name, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// loadSession returns nil without error when the session does not exist.
func (s *Service) loadSession(ctx context.Context, sessionID string) (*storage.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	return session, nil
}

// InitializeSession creates a session and returns its id and first question
func (s *Service) InitializeSession(ctx context.Context, jobDescription, email string) (string, string, error) {
	ctx, span := s.startSpan(ctx, "InitializeSession")
	defer span.End()

	jd := strings.TrimSpace(jobDescription)
	email = storage.NormalizeEmail(email)
	if jd == "" {
		return "", "", fail(span, errors.ValidationError("job description is required"))
	}
	if email == "" {
		return "", "", fail(span, errors.ValidationError("email is required"))
	}

	first := strings.TrimSpace(s.generator.FirstQuestion(ctx, jobDescription))
	if first == "" {
		first = s.cfg.Fallbacks.FirstQuestion
	}

	session := &storage.Session{
		Email:          email,
		JobDescription: jd,
		Questions:      []storage.Question{{Text: first}},
		Answers:        []storage.Answer{},
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return "", "", fail(span, errors.Wrap(err, "failed to create session"))
	}

	span.SetAttributes(attribute.String("session.id", session.ID))
	s.metrics.IncrementSessionsStarted(ctx)
	s.logger.InfoContext(ctx, "interview session created", "session_id", session.ID)

	return session.ID, first, nil
}

// GetNextQuestion returns the question the candidate should answer next,
// generating it when the previous one has been answered. A nil result means
// the session does not exist.
func (s *Service) GetNextQuestion(ctx context.Context, sessionID string) (*NextQuestion, error) {
	ctx, span := s.startSpan(ctx, "GetNextQuestion", attribute.String("session.id", sessionID))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if session == nil {
		return nil, nil
	}

	switch {
	case session.CurrentIndex < len(session.Questions):
		// Unanswered question already generated; covers index 0 after init.
		return &NextQuestion{Index: session.CurrentIndex, Text: session.Questions[session.CurrentIndex].Text}, nil
	case len(session.Questions) >= s.cfg.GetMaxQuestions():
		return &NextQuestion{Index: session.CurrentIndex, Done: true}, nil
	}

	last, _ := session.LastAnswer()
	text := strings.TrimSpace(s.generator.NextQuestion(ctx, session.JobDescription, last.Question, last.Transcript))
	if text == "" {
		s.logger.InfoContext(ctx, "generator declined further questions", "session_id", sessionID)
		return &NextQuestion{Index: session.CurrentIndex, Done: true}, nil
	}

	session.Questions = append(session.Questions, storage.Question{Text: text})
	if err := s.sessions.Replace(ctx, session); err != nil {
		return nil, fail(span, errors.Wrap(err, "failed to save generated question"))
	}

	s.metrics.IncrementQuestionsGenerated(ctx)
	s.logger.InfoContext(ctx, "question generated",
		"session_id", sessionID,
		"index", session.CurrentIndex,
	)
	return &NextQuestion{Index: session.CurrentIndex, Text: text}, nil
}

// decodeAudio strips a browser data URL prefix and decodes standard base64.
func decodeAudio(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.Index(encoded, ",")
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return nil, errors.ValidationError("audio data URL must be base64 encoded")
		}
		encoded = encoded[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.ValidationError("audio is not valid base64")
	}
	return data, nil
}

// SubmitAnswer records the candidate's answer to the pending question
func (s *Service) SubmitAnswer(ctx context.Context, sessionID string, in AnswerInput) (SubmitResult, error) {
	ctx, span := s.startSpan(ctx, "SubmitAnswer", attribute.String("session.id", sessionID))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, fail(span, err)
	}
	if session == nil {
		return SubmitResult{Outcome: SubmitSessionNotFound}, nil
	}
	pending, ok := session.PendingQuestion()
	if !ok {
		return SubmitResult{Outcome: SubmitNoPendingQuestion, Index: session.CurrentIndex}, nil
	}

	audio, err := decodeAudio(in.AudioBase64)
	if err != nil {
		return SubmitResult{}, fail(span, err)
	}
	if len(audio) > s.cfg.GetMaxAudioBytes() {
		return SubmitResult{}, fail(span, errors.ResourceLimit(
			fmt.Sprintf("audio is %d bytes, limit is %d", len(audio), s.cfg.GetMaxAudioBytes())))
	}

	if q := strings.TrimSpace(in.Question); q != "" && q != pending.Text {
		s.logger.WarnContext(ctx, "submitted question differs from pending question",
			"session_id", sessionID,
			"index", session.CurrentIndex,
		)
	}

	name := fmt.Sprintf("answer_%d.%s", s.now().UnixNano(), s.cfg.Audio.Extension)
	blobID, err := s.blobs.Upload(ctx, name, audio)
	if err != nil {
		return SubmitResult{}, fail(span, errors.Wrap(err, "failed to store audio"))
	}

	session.Answers = append(session.Answers, storage.Answer{
		Question:   pending.Text,
		Transcript: strings.TrimSpace(in.Transcript),
		AudioURL:   storage.AudioURL(blobID),
	})
	session.CurrentIndex++

	if err := s.sessions.Replace(ctx, session); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), blobID); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned audio", "blob_id", blobID, "error", delErr)
		}
		return SubmitResult{}, fail(span, errors.Wrap(err, "failed to save answer"))
	}

	s.metrics.IncrementAnswersSubmitted(ctx)
	s.logger.InfoContext(ctx, "answer recorded",
		"session_id", sessionID,
		"index", session.CurrentIndex,
		"audio_bytes", len(audio),
	)
	return SubmitResult{Outcome: SubmitRecorded, Index: session.CurrentIndex}, nil
}

// GetCompletionSummary counts questions and answers; nil when the session is absent
func (s *Service) GetCompletionSummary(ctx context.Context, sessionID string) (*CompletionSummary, error) {
	ctx, span := s.startSpan(ctx, "GetCompletionSummary", attribute.String("session.id", sessionID))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if session == nil {
		return nil, nil
	}

	s.metrics.IncrementCompletionRequests(ctx)
	return &CompletionSummary{
		TotalQuestions: len(session.Questions),
		TotalAnswers:   len(session.Answers),
	}, nil
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// GenerateReport evaluates the session and stores one report per session.
// Calling it again refreshes the existing report.
func (s *Service) GenerateReport(ctx context.Context, sessionID string) (*ReportResult, error) {
	ctx, span := s.startSpan(ctx, "GenerateReport", attribute.String("session.id", sessionID))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if session == nil {
		return nil, fail(span, errors.NotFound("session"))
	}

	req := EvaluationRequest{
		JobDescription: session.JobDescription,
		Questions:      make([]string, 0, len(session.Questions)),
		Answers:        make([]string, 0, len(session.Answers)),
	}
	for _, q := range session.Questions {
		req.Questions = append(req.Questions, q.Text)
	}
	for _, a := range session.Answers {
		req.Answers = append(req.Answers, a.Transcript)
	}

	eval, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		if !errors.HasCode(err, errors.CodeUpstreamFatal) {
			err = errors.UpstreamFatal("evaluation", err)
		}
		return nil, fail(span, err)
	}
	if eval == nil {
		return nil, fail(span, errors.UpstreamFatal("evaluation", errors.ValidationError("empty evaluation")))
	}
	if err := eval.Validate(); err != nil {
		return nil, fail(span, errors.UpstreamFatal("evaluation", err))
	}

	report := &storage.Report{
		SessionID:         session.ID,
		Email:             session.Email,
		JobDescription:    session.JobDescription,
		CandidateFitScore: clampScore(eval.Score),
		Strengths:         eval.Strengths,
		ImprovementAreas:  eval.Improvements,
		SuggestedFollowUp: eval.FollowUps,
		Answers:           append([]storage.Answer{}, session.Answers...),
		CreatedAt:         s.now().UTC(),
	}
	if err := s.saveReport(ctx, report); err != nil {
		return nil, fail(span, errors.Wrap(err, "failed to save report"))
	}

	s.metrics.IncrementReportsGenerated(ctx)
	s.logger.InfoContext(ctx, "report generated",
		"session_id", sessionID,
		"report_id", report.ID,
		"score", report.CandidateFitScore,
	)

	answers := make([]ReportAnswer, 0, len(session.Answers))
	for _, a := range session.Answers {
		answers = append(answers, ReportAnswer{Question: a.Question, Transcript: a.Transcript, Audio: a.AudioURL})
	}
	return &ReportResult{
		ReportID:     report.ID,
		JD:           eval.JobDescription,
		Score:        report.CandidateFitScore,
		Questions:    eval.Questions,
		Answers:      answers,
		Strengths:    nonNil(report.Strengths),
		Improvements: nonNil(report.ImprovementAreas),
		FollowUps:    nonNil(report.SuggestedFollowUp),
	}, nil
}

// saveReport upserts by session id. A concurrent insert for the same
// session surfaces as ErrConflict and is retried as a replace.
func (s *Service) saveReport(ctx context.Context, report *storage.Report) error {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.reports.FindBySession(ctx, report.SessionID)
		switch {
		case err == nil:
			report.ID = existing.ID
			report.CreatedAt = existing.CreatedAt
			return s.reports.Replace(ctx, report)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		err = s.reports.Insert(ctx, report)
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
	}
	return storage.ErrConflict
}

// GetReportsByEmail lists a candidate's reports; an invalid email yields none
func (s *Service) GetReportsByEmail(ctx context.Context, email string) ([]storage.Report, error) {
	ctx, span := s.startSpan(ctx, "GetReportsByEmail")
	defer span.End()

	email = storage.NormalizeEmail(email)
	if !storage.ValidEmail(email) {
		return []storage.Report{}, nil
	}
	reports, err := s.reports.FindByEmail(ctx, email)
	if err != nil {
		return nil, fail(span, errors.Wrap(err, "failed to list reports"))
	}
	if reports == nil {
		reports = []storage.Report{}
	}
	return reports, nil
}

// GetReportByID returns nil when the id is unknown or malformed
func (s *Service) GetReportByID(ctx context.Context, id string) (*storage.Report, error) {
	ctx, span := s.startSpan(ctx, "GetReportByID", attribute.String("report.id", id))
	defer span.End()

	report, err := s.reports.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(span, errors.Wrap(err, "failed to load report"))
	}
	return report, nil
}

// GetAudio returns stored answer audio
func (s *Service) GetAudio(ctx context.Context, blobID string) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "GetAudio", attribute.String("blob.id", blobID))
	defer span.End()

	data, err := s.blobs.Download(ctx, blobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("audio")
	}
	if err != nil {
		return nil, fail(span, errors.Wrap(err, "failed to load audio"))
	}
	return data, nil
}

// AudioContentType is the MIME type served for stored answers.
func (s *Service) AudioContentType() string {
	return s.cfg.Audio.ContentType
}
