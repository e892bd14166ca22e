package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"audio-interviewer/internal/config"
	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"
	"audio-interviewer/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*FastAPIClient, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := metrics.NewMetrics(nil)
	return NewFastAPIClient(Options{
		BaseURL: srv.URL + "/api/",
		Timeout: 5 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: m,
	}), m
}

func TestFirstQuestion(t *testing.T) {
	var got generateRequest
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Questions": ["What are your strengths?", "unused"]}`))
	})

	q := client.FirstQuestion(context.Background(), "Go developer")
	assert.Equal(t, "What are your strengths?", q)
	assert.Equal(t, "Go developer", got.JD)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(1), snap.APICallsSuccessful)
	assert.Equal(t, int64(0), snap.FallbacksUsed)
}

func TestFirstQuestionFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"questions": "nope"`))
		}},
		{"no questions", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"questions": []}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, m := newTestClient(t, tt.handler)
			assert.Equal(t, config.DefaultFirstQuestion, client.FirstQuestion(context.Background(), "jd"))
			assert.Equal(t, int64(1), m.GetSnapshot().FallbacksUsed)
		})
	}
}

func TestFirstQuestionUnreachable(t *testing.T) {
	client := NewFastAPIClient(Options{
		BaseURL:   "http://127.0.0.1:1",
		Timeout:   time.Second,
		Fallbacks: config.FallbackConfig{FirstQuestion: "custom first"},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Equal(t, "custom first", client.FirstQuestion(context.Background(), "jd"))
}

func TestNextQuestion(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/next-question", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"next_question": "Why Go?"}`))
	})

	q := client.NextQuestion(context.Background(), "jd", "Tell me about yourself.", "I like Go")
	assert.Equal(t, "Why Go?", q)
	assert.Equal(t, map[string]string{
		"jd":                "jd",
		"previous_question": "Tell me about yourself.",
		"answer":            "I like Go",
	}, got)
}

func TestNextQuestionEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"empty question ends interview", `{"next_question": ""}`, http.StatusOK, ""},
		{"missing field", `{}`, http.StatusOK, config.DefaultNextQuestion},
		{"bad gateway", `oops`, http.StatusBadGateway, config.DefaultNextQuestion},
		{"null", `{"next_question": null}`, http.StatusOK, config.DefaultNextQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			assert.Equal(t, tt.want, client.NextQuestion(context.Background(), "jd", "q", "a"))
		})
	}
}

const validEvaluation = `{
  "jd": "Go developer",
  "score": 82.5,
  "questions": ["Q1"],
  "strengths": ["clear"],
  "improvements": [],
  "followUps": ["Ask about concurrency"]
}`

func TestEvaluate(t *testing.T) {
	var got interviewer.EvaluationRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evaluate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(validEvaluation))
	})

	req := interviewer.EvaluationRequest{JobDescription: "Go developer", Questions: []string{"Q1"}, Answers: []string{"A1"}}
	eval, err := client.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, 82.5, eval.Score)
	assert.Equal(t, []string{"clear"}, eval.Strengths)
	assert.Equal(t, []string{}, eval.Improvements)
	assert.Equal(t, []string{"Ask about concurrency"}, eval.FollowUps)
}

func TestEvaluateFailuresAreUpstreamFatal(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"server error", http.StatusInternalServerError, `{"detail": "model offline"}`},
		{"not json", http.StatusOK, `<html>`},
		{"missing followUps", http.StatusOK, `{"jd":"x","score":1,"questions":[],"strengths":[],"improvements":[]}`},
		{"score is a string", http.StatusOK, `{"jd":"x","score":"high","questions":[],"strengths":[],"improvements":[],"followUps":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Evaluate(context.Background(), interviewer.EvaluationRequest{})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeUpstreamFatal))
		})
	}
}
