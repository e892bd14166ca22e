package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/interviewer"

	"github.com/go-chi/chi/v5"
)

// Non-audio requests are small; answers carry base64 audio (4/3 of raw size).
const bodySlack = 64 * 1024

type initRequest struct {
	Email          string `json:"email"`
	JobDescription string `json:"jobDescription"`
}

type initResponse struct {
	Message       string `json:"message"`
	SessionID     string `json:"sessionId"`
	JD            string `json:"jd"`
	FirstQuestion string `json:"firstQuestion"`
}

type answerRequest struct {
	SessionID   string `json:"sessionId"`
	Question    string `json:"question"`
	AudioBase64 string `json:"audioBase64"`
	Transcript  string `json:"transcript"`
}

type questionResponse struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
}

type messageResponse struct {
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"`
}

type completeResponse struct {
	Message string `json:"message"`
	interviewer.CompletionSummary
}

func (s *Server) bodyLimit() int64 {
	return int64(s.cfg.MaxAudioBytes)*4/3 + bodySlack
}

// decode reads a JSON body under the size cap.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.ResourceLimit("request body too large")
		}
		return errors.ValidationError("invalid JSON body")
	}
	return nil
}

func sessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if id == "" {
		return "", errors.ValidationError("sessionId is required")
	}
	return id, nil
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, first, err := s.service.InitializeSession(r.Context(), req.JobDescription, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		Message:       "Interview initialized",
		SessionID:     id,
		JD:            strings.TrimSpace(req.JobDescription),
		FirstQuestion: first,
	})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	next, err := s.service.GetNextQuestion(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if next == nil {
		s.writeError(w, r, errors.NotFound("session"))
		return
	}
	if next.Done {
		writeJSON(w, http.StatusOK, messageResponse{Message: "Interview complete"})
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Index: next.Index, Question: next.Text})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		s.writeError(w, r, errors.ValidationError("sessionId is required"))
		return
	}

	res, err := s.service.SubmitAnswer(r.Context(), strings.TrimSpace(req.SessionID), interviewer.AnswerInput{
		Question:    req.Question,
		Transcript:  req.Transcript,
		AudioBase64: req.AudioBase64,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch res.Outcome {
	case interviewer.SubmitSessionNotFound:
		s.writeError(w, r, errors.NotFound("session"))
	case interviewer.SubmitNoPendingQuestion:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No more questions."})
	case interviewer.SubmitRecorded:
		writeJSON(w, http.StatusOK, messageResponse{Message: "Answer recorded", Index: &res.Index})
	default:
		s.writeError(w, r, errors.InternalError("unexpected submit outcome "+res.Outcome.String()))
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.service.GetCompletionSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summary == nil {
		s.writeError(w, r, errors.NotFound("session"))
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{Message: "Interview completed", CompletionSummary: *summary})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.service.GenerateReport(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReportsByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		s.writeError(w, r, errors.ValidationError("Email is required."))
		return
	}

	reports, err := s.service.GetReportsByEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReportByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if report == nil {
		s.writeError(w, r, errors.New(errors.CodeNotFound, "Report not found."))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetAudio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", s.service.AudioContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetSnapshot())
}
