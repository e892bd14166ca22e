package interviewer

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/metrics"
	"audio-interviewer/internal/storage"
	"audio-interviewer/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const jobDescription = "Backend role building Go services"

type countingBlobs struct {
	storage.BlobStore
	uploads int
	deletes int
}

func (c *countingBlobs) Upload(ctx context.Context, name string, data []byte) (string, error) {
	c.uploads++
	return c.BlobStore.Upload(ctx, name, data)
}

func (c *countingBlobs) Delete(ctx context.Context, id string) error {
	c.deletes++
	return c.BlobStore.Delete(ctx, id)
}

// racingSessions lets another writer win the first Replace.
type racingSessions struct {
	storage.SessionRepository
	raced bool
}

func (r *racingSessions) Replace(ctx context.Context, session *storage.Session) error {
	if !r.raced {
		r.raced = true
		current, err := r.SessionRepository.FindByID(ctx, session.ID)
		if err != nil {
			return err
		}
		if err := r.SessionRepository.Replace(ctx, current); err != nil {
			return err
		}
	}
	return r.SessionRepository.Replace(ctx, session)
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	sessions storage.SessionRepository
	blobs    *countingBlobs
	gen      *MockQuestionGenerator
	eval     *MockEvaluator
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := memory.New()
	f := &fixture{
		store:    st,
		sessions: st.Sessions(),
		blobs:    &countingBlobs{BlobStore: st.Blobs()},
		gen:      NewMockQuestionGenerator(ctrl),
		eval:     NewMockEvaluator(ctrl),
		metrics:  metrics.NewMetrics(nil),
	}
	f.build()
	return f
}

func (f *fixture) build() {
	f.svc = New(Deps{
		Sessions:  f.sessions,
		Reports:   f.store.Reports(),
		Blobs:     f.blobs,
		Generator: f.gen,
		Evaluator: f.eval,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   f.metrics,
	})
}

func (f *fixture) start(t *testing.T, first string) string {
	t.Helper()
	f.gen.EXPECT().FirstQuestion(gomock.Any(), jobDescription).Return(first)
	id, got, err := f.svc.InitializeSession(context.Background(), jobDescription, "candidate@example.com")
	require.NoError(t, err)
	require.Equal(t, first, got)
	return id
}

func (f *fixture) session(t *testing.T, id string) *storage.Session {
	t.Helper()
	s, err := f.store.Sessions().FindByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func audio(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func answer(transcript string) AnswerInput {
	return AnswerInput{Transcript: transcript, AudioBase64: audio([]byte("webm:" + transcript))}
}

func TestInitializeSessionNormalizesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw := "  " + jobDescription + "\n"
	f.gen.EXPECT().FirstQuestion(gomock.Any(), raw).Return("What are your strengths?")
	id, first, err := f.svc.InitializeSession(ctx, raw, " User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "What are your strengths?", first)

	s := f.session(t, id)
	assert.Equal(t, "user@example.com", s.Email)
	assert.Equal(t, jobDescription, s.JobDescription)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Len(t, s.Questions, 1)
	assert.Empty(t, s.Answers)

	next, err := f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &NextQuestion{Index: 0, Text: "What are your strengths?"}, next)
	assert.Equal(t, int64(1), f.metrics.GetSnapshot().SessionsStarted)
}

func TestInitializeSessionBlankGeneratorResultUsesFallback(t *testing.T) {
	f := newFixture(t)

	f.gen.EXPECT().FirstQuestion(gomock.Any(), gomock.Any()).Return("   ")
	id, first, err := f.svc.InitializeSession(context.Background(), jobDescription, "a@b.io")
	require.NoError(t, err)
	assert.Equal(t, "Tell me about yourself.", first)
	assert.Equal(t, "Tell me about yourself.", f.session(t, id).Questions[0].Text)
}

func TestInitializeSessionRequiresFields(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.InitializeSession(context.Background(), "  ", "a@b.io")
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, _, err = f.svc.InitializeSession(context.Background(), jobDescription, " ")
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestGetNextQuestionUnknownSession(t *testing.T) {
	f := newFixture(t)

	next, err := f.svc.GetNextQuestion(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestGetNextQuestionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	res, err := f.svc.SubmitAnswer(ctx, id, answer("I write Go"))
	require.NoError(t, err)
	require.Equal(t, SubmitRecorded, res.Outcome)

	f.gen.EXPECT().NextQuestion(gomock.Any(), jobDescription, "Q1", "I write Go").Return("Q2").Times(1)

	first, err := f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)
	second, err := f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, &NextQuestion{Index: 1, Text: "Q2"}, first)
	assert.Equal(t, first, second)
	assert.Len(t, f.session(t, id).Questions, 2)
}

func TestFiveAnswerScenarioEndsInterview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	f.gen.EXPECT().
		NextQuestion(gomock.Any(), jobDescription, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, prev, ans string) string {
			return "follow-up on " + ans
		}).
		Times(4)

	for i := 0; i < 5; i++ {
		next, err := f.svc.GetNextQuestion(ctx, id)
		require.NoError(t, err)
		require.False(t, next.Done, "question %d", i)
		require.Equal(t, i, next.Index)

		res, err := f.svc.SubmitAnswer(ctx, id, answer("answer "+string(rune('A'+i))))
		require.NoError(t, err)
		require.Equal(t, SubmitRecorded, res.Outcome)
		require.Equal(t, i+1, res.Index)
	}

	next, err := f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)
	assert.True(t, next.Done)

	s := f.session(t, id)
	assert.Len(t, s.Questions, 5)
	assert.Len(t, s.Answers, 5)
	assert.Equal(t, 5, s.CurrentIndex)
	for i := range s.Answers {
		assert.Equal(t, s.Questions[i].Text, s.Answers[i].Question)
	}
	assert.Equal(t, "follow-up on answer A", s.Questions[1].Text)
}

func TestQuestionsNeverExceedMaximum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	f.gen.EXPECT().NextQuestion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("more").AnyTimes()

	for i := 0; i < 20; i++ {
		_, err := f.svc.GetNextQuestion(ctx, id)
		require.NoError(t, err)
		_, err = f.svc.SubmitAnswer(ctx, id, answer("a"))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(f.session(t, id).Questions), 5)
	}
	s := f.session(t, id)
	assert.Len(t, s.Questions, 5)
	assert.Equal(t, 5, s.CurrentIndex)
}

func TestGeneratorDecliningEndsInterview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	_, err := f.svc.SubmitAnswer(ctx, id, answer("done"))
	require.NoError(t, err)

	f.gen.EXPECT().NextQuestion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("")
	next, err := f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)
	assert.True(t, next.Done)
	assert.Len(t, f.session(t, id).Questions, 1)
}

func TestSubmitAnswerNoOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SubmitAnswer(ctx, "missing", answer("x"))
	require.NoError(t, err)
	assert.Equal(t, SubmitSessionNotFound, res.Outcome)

	id := f.start(t, "Q1")
	_, err = f.svc.SubmitAnswer(ctx, id, answer("first"))
	require.NoError(t, err)

	res, err = f.svc.SubmitAnswer(ctx, id, answer("double submit"))
	require.NoError(t, err)
	assert.Equal(t, SubmitNoPendingQuestion, res.Outcome)
	assert.Equal(t, 1, res.Index)
	assert.Len(t, f.session(t, id).Answers, 1)
	assert.Equal(t, 1, f.blobs.uploads)
}

func TestSubmitAnswerRejectsMalformedAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	for _, encoded := range []string{"not base64!!", "data:audio/webm,plain", "data:audio/webm"} {
		res, err := f.svc.SubmitAnswer(ctx, id, AnswerInput{Transcript: "t", AudioBase64: encoded})
		assert.True(t, errors.HasCode(err, errors.CodeValidationError), "input %q", encoded)
		assert.Equal(t, SubmitUnknown, res.Outcome)
	}

	s := f.session(t, id)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.Answers)
	assert.Equal(t, 0, f.blobs.uploads)
}

func TestSubmitAnswerRejectsOversizedAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")

	big := bytes.Repeat([]byte{0x42}, 6*1024*1024)
	res, err := f.svc.SubmitAnswer(ctx, id, AnswerInput{Transcript: "t", AudioBase64: audio(big)})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeResourceLimit))
	assert.Equal(t, SubmitUnknown, res.Outcome)
	assert.Equal(t, "unknown", res.Outcome.String())

	s := f.session(t, id)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.Answers)
	assert.Equal(t, int64(1), s.Version)
	assert.Equal(t, 0, f.blobs.uploads)
}

func TestAudioRoundTrip(t *testing.T) {
	limit := make([]byte, 5*1024*1024)
	for i := range limit {
		limit[i] = byte(i * 31)
	}

	tests := []struct {
		name    string
		payload []byte
		prefix  string
	}{
		{"at limit with data url", limit, "data:audio/webm;codecs=opus;base64,"},
		{"zero bytes", []byte{}, ""},
		{"zero bytes data url", []byte{}, "data:audio/webm;base64,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.start(t, "Q1")

			res, err := f.svc.SubmitAnswer(ctx, id, AnswerInput{
				Question:    "Q1",
				Transcript:  "  spoken words ",
				AudioBase64: tt.prefix + audio(tt.payload),
			})
			require.NoError(t, err)
			require.Equal(t, SubmitRecorded, res.Outcome)
			assert.Equal(t, 1, res.Index)

			s := f.session(t, id)
			require.Len(t, s.Answers, 1)
			assert.Equal(t, "spoken words", s.Answers[0].Transcript)

			blobID, ok := storage.BlobIDFromAudioURL(s.Answers[0].AudioURL)
			require.True(t, ok)
			got, err := f.svc.GetAudio(ctx, blobID)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.payload, got))
			assert.Len(t, got, len(tt.payload))
		})
	}
}

func TestSubmitAnswerRecordsPendingQuestionText(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "Q1")

	_, err := f.svc.SubmitAnswer(context.Background(), id, AnswerInput{
		Question:    "something the client made up",
		Transcript:  "t",
		AudioBase64: audio([]byte{1}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Q1", f.session(t, id).Answers[0].Question)
}

func TestSubmitAnswerConflictRemovesAudio(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "Q1")

	f.sessions = &racingSessions{SessionRepository: f.store.Sessions()}
	f.build()

	_, err := f.svc.SubmitAnswer(context.Background(), id, answer("lost"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
	assert.Equal(t, 1, f.blobs.uploads)
	assert.Equal(t, 1, f.blobs.deletes)

	s := f.session(t, id)
	assert.Empty(t, s.Answers)
	assert.Equal(t, int64(2), s.Version)
}

func TestGetNextQuestionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "Q1")
	_, err := f.svc.SubmitAnswer(ctx, id, answer("a"))
	require.NoError(t, err)

	f.sessions = &racingSessions{SessionRepository: f.store.Sessions()}
	f.build()

	f.gen.EXPECT().NextQuestion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("Q2")
	_, err = f.svc.GetNextQuestion(ctx, id)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
	assert.Len(t, f.session(t, id).Questions, 1)
}

func TestGetCompletionSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.svc.GetCompletionSummary(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, summary)

	id := f.start(t, "Q1")
	_, err = f.svc.SubmitAnswer(ctx, id, answer("a"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		summary, err = f.svc.GetCompletionSummary(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, &CompletionSummary{TotalQuestions: 1, TotalAnswers: 1}, summary)
	}
	assert.Equal(t, int64(2), f.session(t, id).Version)

	snap := f.metrics.GetSnapshot()
	assert.Equal(t, int64(3), snap.CompletionRequests)
	assert.Equal(t, int64(1), snap.SessionsStarted)
	assert.Equal(t, int64(1), snap.AnswersSubmitted)
}

func completeTwoAnswers(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	id := f.start(t, "Q1")
	f.gen.EXPECT().NextQuestion(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("Q2")

	_, err := f.svc.SubmitAnswer(ctx, id, answer("first answer"))
	require.NoError(t, err)
	_, err = f.svc.GetNextQuestion(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, id, answer("second answer"))
	require.NoError(t, err)
	return id
}

func evaluation(score float64) *Evaluation {
	return &Evaluation{
		JobDescription: jobDescription,
		Score:          score,
		Questions:      []string{"Q1", "Q2"},
		Strengths:      []string{"clarity"},
		Improvements:   []string{"depth"},
		FollowUps:      []string{"Ask about testing"},
	}
}

func TestGenerateReportSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := completeTwoAnswers(t, f)

	f.eval.EXPECT().Evaluate(gomock.Any(), EvaluationRequest{
		JobDescription: jobDescription,
		Questions:      []string{"Q1", "Q2"},
		Answers:        []string{"first answer", "second answer"},
	}).Return(evaluation(140), nil)

	result, err := f.svc.GenerateReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, jobDescription, result.JD)
	assert.Equal(t, []string{"Q1", "Q2"}, result.Questions)
	require.Len(t, result.Answers, 2)
	assert.Equal(t, "Q1", result.Answers[0].Question)
	assert.Equal(t, "first answer", result.Answers[0].Transcript)
	assert.True(t, strings.HasPrefix(result.Answers[1].Audio, "/api/audio/"))

	stored, err := f.svc.GetReportByID(ctx, result.ReportID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, id, stored.SessionID)
	assert.Equal(t, "candidate@example.com", stored.Email)
	assert.Equal(t, 100, stored.CandidateFitScore)
	assert.Equal(t, f.session(t, id).Answers, stored.Answers)

	byEmail, err := f.svc.GetReportsByEmail(ctx, " Candidate@Example.com ")
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)
}

func TestGenerateReportIsUpsertedPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := completeTwoAnswers(t, f)

	gomock.InOrder(
		f.eval.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(evaluation(-12), nil),
		f.eval.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(evaluation(77.6), nil),
	)

	first, err := f.svc.GenerateReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Score)

	second, err := f.svc.GenerateReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.ReportID, second.ReportID)
	assert.Equal(t, 78, second.Score)

	reports, err := f.svc.GetReportsByEmail(ctx, "candidate@example.com")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 78, reports[0].CandidateFitScore)
}

func TestGenerateReportUpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		eval *Evaluation
		err  error
	}{
		{"transport error", nil, errors.InternalError("connection refused")},
		{"empty response", nil, nil},
		{"missing strengths", &Evaluation{Questions: []string{}, Improvements: []string{}, FollowUps: []string{}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.start(t, "Q1")

			f.eval.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(tt.eval, tt.err)

			_, err := f.svc.GenerateReport(ctx, id)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeUpstreamFatal))

			reports, err := f.svc.GetReportsByEmail(ctx, "candidate@example.com")
			require.NoError(t, err)
			assert.Empty(t, reports)
		})
	}
}

func TestGenerateReportUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GenerateReport(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestReportLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "not-an-email", "Name <a@b.io>"} {
		reports, err := f.svc.GetReportsByEmail(ctx, email)
		require.NoError(t, err)
		assert.NotNil(t, reports)
		assert.Empty(t, reports)
	}

	report, err := f.svc.GetReportByID(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestGetAudioMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAudio(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	assert.Equal(t, "audio/webm", f.svc.AudioContentType())
}

func TestAudioFileNaming(t *testing.T) {
	f := newFixture(t)
	named := &namingBlobs{BlobStore: f.blobs}
	f.svc.blobs = named
	f.svc.now = func() time.Time { return time.Unix(0, 1700000000123456789) }

	id := f.start(t, "Q1")
	_, err := f.svc.SubmitAnswer(context.Background(), id, answer("a"))
	require.NoError(t, err)
	assert.Equal(t, "answer_1700000000123456789.webm", named.last)
}

type namingBlobs struct {
	storage.BlobStore
	last string
}

func (n *namingBlobs) Upload(ctx context.Context, name string, data []byte) (string, error) {
	n.last = name
	return n.BlobStore.Upload(ctx, name, data)
}

func TestDecodeAudio(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"plain", audio([]byte("abc")), []byte("abc"), false},
		{"data url", "data:audio/webm;base64," + audio([]byte("abc")), []byte("abc"), false},
		{"surrounding space", "  " + audio([]byte("abc")) + "\n", []byte("abc"), false},
		{"empty", "", []byte{}, false},
		{"empty data url", "data:audio/webm;base64,", []byte{}, false},
		{"not base64 data url", "data:text/plain,abc", nil, true},
		{"invalid", "@@@", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAudio(tt.in)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.CodeValidationError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 100, clampScore(101))
	assert.Equal(t, 42, clampScore(42.4))
	assert.Equal(t, 0, clampScore(0))
}
