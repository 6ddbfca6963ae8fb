package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voicedesk/voicedesk/internal/model"
)

func TestClassifyLeadPhrases(t *testing.T) {
	tests := []struct {
		transcript string
		kind       model.PromptType
		param      string
	}{
		{"Question. What is the capital of France?", model.TypeQuestion, "What is the capital of France?"},
		{"question what is go", model.TypeQuestion, "what is go"},
		{"QUESTION, anything at all", model.TypeQuestion, "anything at all"},
		{"  Question? why is the sky blue  ", model.TypeQuestion, "why is the sky blue"},
		{"delete", model.TypeDeletePrompt, ""},
		{"Delete prompt", model.TypeDeletePrompt, ""},
		{"clear all", model.TypeClearAll, ""},
		{"Clear history.", model.TypeClearAll, ""},
		{"setup email", model.TypeSetupEmail, ""},
		{"Set up email", model.TypeSetupEmail, ""},
		{"create email about lunch plans", model.TypeEmailDraft, "about lunch plans"},
		{"send email to a b c at y a h o o dot com", model.TypeSendEmail, "abc@yahoo.com"},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			intent := Classify(tt.transcript)
			assert.Equal(t, tt.kind, intent.Kind)
			assert.Equal(t, tt.param, intent.Param)
		})
	}
}

// TestClassifyLongestAliasWins pins the longest-true-prefix rule: the
// longer alias wins no matter where it sits in the declaration order.
func TestClassifyLongestAliasWins(t *testing.T) {
	intent := Classify(`Create an email about "Welcome to CSE 12."`)
	assert.Equal(t, model.TypeEmailDraft, intent.Kind)
	assert.Equal(t, `about "Welcome to CSE 12."`, intent.Param)

	// "send email to" must beat "send email" so "to" never leaks into the
	// spelled address.
	intent = Classify("send email to b o b at x dot y z")
	assert.Equal(t, model.TypeSendEmail, intent.Kind)
	assert.Equal(t, "bob@x.yz", intent.Param)
}

// TestClassifyEmptyParameter tests that a matched command with nothing
// after it yields the fixed error, never an intent with an empty parameter.
func TestClassifyEmptyParameter(t *testing.T) {
	for _, transcript := range []string{
		"Question.",
		"Question",
		"Question. ",
		"question,",
		"create email",
		"Create an email",
		"send email to",
	} {
		t.Run(transcript, func(t *testing.T) {
			intent := Classify(transcript)
			assert.Equal(t, model.TypeError, intent.Kind)
			assert.Equal(t, msgNoPrompt, intent.Param)
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	for _, transcript := range []string{
		"play some music",
		"Questionable weather today", // lead word must end at a separator
		"",
	} {
		t.Run(transcript, func(t *testing.T) {
			intent := Classify(transcript)
			assert.Equal(t, model.TypeError, intent.Kind)
			assert.Equal(t, msgUnrecognized, intent.Param)
			assert.Equal(t, transcript, intent.Transcript)
		})
	}
}

func TestSpellEmail(t *testing.T) {
	tests := []struct {
		remainder string
		want      string
	}{
		{"a b c", "abc"},
		{"a b c at y a h o o dot com", "abc@yahoo.com"},
		{"h e l l o at w o r l d dot x y z", "hello@world.xyz"},
		{"abc at yahoo dot com", "abc@yahoo.com"}, // multi-char tokens append as-is
		{"abc@yahoo.com", "abc@yahoo.com"},        // idempotent on already-correct input
		{"AT dot", "@."},                          // token matching is case-insensitive
	}
	for _, tt := range tests {
		t.Run(tt.remainder, func(t *testing.T) {
			assert.Equal(t, tt.want, SpellEmail(tt.remainder))
		})
	}
}
