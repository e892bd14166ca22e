package storage

import (
	"net/mail"
	"strings"
	"time"
)

// Question is a single interview question.
type Question struct {
	Text string `json:"text"`
}

// Answer is a candidate's reply to one question. AudioURL points into the
// blob store, never at raw bytes.
type Answer struct {
	Question   string `json:"question"`
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audioUrl"`
}

// Session is one interview attempt.
type Session struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	JobDescription string     `json:"jobDescription"`
	Questions      []Question `json:"questions"`
	Answers        []Answer   `json:"answers"`
	CurrentIndex   int        `json:"currentIndex"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// PendingQuestion returns the question awaiting an answer, if any.
func (s *Session) PendingQuestion() (Question, bool) {
	if s.CurrentIndex < len(s.Questions) {
		return s.Questions[s.CurrentIndex], true
	}
	return Question{}, false
}

// LastAnswer returns the most recently recorded answer.
func (s *Session) LastAnswer() (Answer, bool) {
	if len(s.Answers) == 0 {
		return Answer{}, false
	}
	return s.Answers[len(s.Answers)-1], true
}

// Clone returns a deep copy so callers can mutate without aliasing the stored slices.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]Answer(nil), s.Answers...)
	return &c
}

// Report is a finalized evaluation derived from exactly one session.
type Report struct {
	ID                string    `json:"_id"`
	SessionID         string    `json:"sessionId"`
	Email             string    `json:"email"`
	JobDescription    string    `json:"jobDescription"`
	CandidateFitScore int       `json:"candidateFitScore"`
	Strengths         []string  `json:"strengths"`
	ImprovementAreas  []string  `json:"improvementAreas"`
	SuggestedFollowUp []string  `json:"suggestedFollowUp"`
	Answers           []Answer  `json:"answers"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	c := *r
	c.Strengths = append([]string(nil), r.Strengths...)
	c.ImprovementAreas = append([]string(nil), r.ImprovementAreas...)
	c.SuggestedFollowUp = append([]string(nil), r.SuggestedFollowUp...)
	c.Answers = append([]Answer(nil), r.Answers...)
	return &c
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address is a bare, well-formed email.
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

const audioPathPrefix = "/api/audio/"

// AudioURL builds the reference stored on an Answer for a blob id.
func AudioURL(blobID string) string {
	return audioPathPrefix + blobID
}

// BlobIDFromAudioURL extracts the blob id from an answer's audio reference.
func BlobIDFromAudioURL(url string) (string, bool) {
	if !strings.HasPrefix(url, audioPathPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, audioPathPrefix)
	return id, id != ""
}
