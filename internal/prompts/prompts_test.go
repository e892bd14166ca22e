package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstQuestionPrompt(t *testing.T) {
	p := FirstQuestionPrompt("Go backend engineer")
	assert.Contains(t, p, "Go backend engineer")
	assert.Contains(t, p, "FIRST question")
}

func TestNextQuestionPrompt(t *testing.T) {
	p := NextQuestionPrompt("Go backend engineer", "Tell me about yourself.", "I build APIs")
	assert.Contains(t, p, "PREVIOUS QUESTION:\nTell me about yourself.")
	assert.Contains(t, p, "CANDIDATE ANSWER:\nI build APIs")
	assert.Contains(t, p, NoMoreQuestions)

	p = NextQuestionPrompt("jd", "q", "  ")
	assert.Contains(t, p, "(no transcript)")
}

func TestEvaluationPromptTranscript(t *testing.T) {
	p := EvaluationPrompt("jd", []string{"Q one", "Q two"}, []string{"A one"})
	assert.Contains(t, p, "Q1: Q one\nA1: A one\n")
	assert.Contains(t, p, "Q2: Q two\nA2: (not answered)\n")
	assert.True(t, strings.HasSuffix(p, "JSON:"))
	assert.Contains(t, p, `"followUps"`)
}
