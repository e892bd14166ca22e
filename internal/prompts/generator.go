// Package prompts builds the chat prompts used by the OpenAI backend.
package prompts

import (
	"fmt"
	"strings"
)

// NoMoreQuestions is the reply the model gives when the interview should end.
const NoMoreQuestions = "NO_MORE_QUESTIONS"

// FirstQuestionPrompt asks for the opening question for a job description.
func FirstQuestionPrompt(jobDescription string) string {
	prompt := `You are an experienced technical interviewer running a spoken interview.

Write the FIRST question for a candidate applying to the role below.

RULES:
1. Ask exactly one question
2. The question must be answerable out loud in under two minutes
3. Start broad; the follow-ups will go deeper
4. Reply with the question text only, no numbering, quotes or commentary

JOB DESCRIPTION:
%s

QUESTION:`

	return fmt.Sprintf(prompt, jobDescription)
}

// NextQuestionPrompt asks for a follow-up to the candidate's last answer.
func NextQuestionPrompt(jobDescription, previousQuestion, answer string) string {
	var prompt strings.Builder

	prompt.WriteString("You are an experienced technical interviewer running a spoken interview.\n\n")
	prompt.WriteString("Write the NEXT question. Build on the candidate's last answer when it gives you something to probe, ")
	prompt.WriteString("otherwise move to another requirement of the role.\n\n")

	prompt.WriteString("RULES:\n")
	prompt.WriteString("- Ask exactly one question\n")
	prompt.WriteString("- Do not repeat the previous question\n")
	prompt.WriteString("- Reply with the question text only\n")
	prompt.WriteString(fmt.Sprintf("- If the role has been fully covered reply with %s\n\n", NoMoreQuestions))

	prompt.WriteString(fmt.Sprintf("JOB DESCRIPTION:\n%s\n\n", jobDescription))
	prompt.WriteString(fmt.Sprintf("PREVIOUS QUESTION:\n%s\n\n", previousQuestion))

	if strings.TrimSpace(answer) == "" {
		prompt.WriteString("CANDIDATE ANSWER:\n(no transcript)\n\n")
	} else {
		prompt.WriteString(fmt.Sprintf("CANDIDATE ANSWER:\n%s\n\n", answer))
	}

	prompt.WriteString("QUESTION:")
	return prompt.String()
}
