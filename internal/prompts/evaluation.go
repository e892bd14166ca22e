package prompts

import (
	"fmt"
	"strings"
)

// EvaluationPrompt asks the model to score an interview and reply with JSON
// in the evaluator wire format.
func EvaluationPrompt(jobDescription string, questions, answers []string) string {
	prompt := `You are a hiring panel reviewing a finished interview transcript.

Score how well the candidate fits the role and reply with ONLY valid JSON, no markdown:
{
  "jd": "the job description, unchanged",
  "score": 0-100,
  "questions": ["the questions, unchanged and in order"],
  "strengths": ["concrete strengths shown in the answers"],
  "improvements": ["concrete gaps or weak answers"],
  "followUps": ["questions a second-round interviewer should ask"]
}

Every list must be present; use [] when there is nothing to say.

JOB DESCRIPTION:
%s

TRANSCRIPT:
%s
JSON:`

	return fmt.Sprintf(prompt, jobDescription, transcript(questions, answers))
}

func transcript(questions, answers []string) string {
	var builder strings.Builder
	for i, q := range questions {
		builder.WriteString(fmt.Sprintf("Q%d: %s\n", i+1, q))
		if i < len(answers) {
			builder.WriteString(fmt.Sprintf("A%d: %s\n", i+1, answers[i]))
		} else {
			builder.WriteString(fmt.Sprintf("A%d: (not answered)\n", i+1))
		}
	}
	return builder.String()
}
