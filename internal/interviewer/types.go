package interviewer

// NextQuestion is the result of GetNextQuestion. Done means the interview
// has no further questions.
type NextQuestion struct {
	Index int
	Text  string
	Done  bool
}

// AnswerInput is a candidate's submission for the pending question.
type AnswerInput struct {
	Question    string
	Transcript  string
	AudioBase64 string
}

// SubmitOutcome distinguishes a recorded answer from business no-ops.
// The zero value is what error returns carry.
type SubmitOutcome int

const (
	SubmitUnknown SubmitOutcome = iota
	SubmitRecorded
	SubmitSessionNotFound
	SubmitNoPendingQuestion
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitRecorded:
		return "recorded"
	case SubmitSessionNotFound:
		return "session_not_found"
	case SubmitNoPendingQuestion:
		return "no_pending_question"
	default:
		return "unknown"
	}
}

type SubmitResult struct {
	Outcome SubmitOutcome
	// Index is the session's CurrentIndex after the answer was recorded.
	Index int
}

type CompletionSummary struct {
	TotalQuestions int `json:"totalQuestions"`
	TotalAnswers   int `json:"totalAnswers"`
}

// ReportAnswer pairs a question with the candidate's transcript and audio.
type ReportAnswer struct {
	Question   string `json:"question"`
	Transcript string `json:"transcript"`
	Audio      string `json:"audio"`
}

// ReportResult combines the evaluator's echo with the stored answer trail.
type ReportResult struct {
	ReportID     string         `json:"reportId"`
	JD           string         `json:"jd"`
	Score        int            `json:"score"`
	Questions    []string       `json:"questions"`
	Answers      []ReportAnswer `json:"answers"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	FollowUps    []string       `json:"followUps"`
}
