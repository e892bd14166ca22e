package interviewer

import (
	"context"

	"audio-interviewer/internal/errors"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=interviewer

// QuestionGenerator produces interview questions. Implementations never
// fail: on any upstream problem they return a fallback question.
type QuestionGenerator interface {
	FirstQuestion(ctx context.Context, jobDescription string) string
	NextQuestion(ctx context.Context, jobDescription, previousQuestion, answer string) string
}

// Evaluator scores a finished interview.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error)
}

// EvaluationRequest is the payload sent to the evaluation service.
type EvaluationRequest struct {
	JobDescription string   `json:"jd"`
	Questions      []string `json:"questions"`
	Answers        []string `json:"answers"`
}

// Evaluation is the evaluation service's verdict.
type Evaluation struct {
	JobDescription string   `json:"jd"`
	Score          float64  `json:"score"`
	Questions      []string `json:"questions"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	FollowUps      []string `json:"followUps"`
}

// Validate reports list fields the evaluator left out.
func (e *Evaluation) Validate() error {
	switch {
	case e.Questions == nil:
		return errors.ValidationError("evaluation is missing questions")
	case e.Strengths == nil:
		return errors.ValidationError("evaluation is missing strengths")
	case e.Improvements == nil:
		return errors.ValidationError("evaluation is missing improvements")
	case e.FollowUps == nil:
		return errors.ValidationError("evaluation is missing followUps")
	}
	return nil
}
