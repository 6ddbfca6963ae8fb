package assistant

import (
	"strings"
	"unicode"

	"github.com/voicedesk/voicedesk/internal/model"
)

// Fixed user-facing messages for the two classification failure modes.
const (
	msgNoPrompt     = "no prompt after command"
	msgUnrecognized = "unrecognized command"
)

// intentSpec pairs an intent with the lead phrases that express it.
type intentSpec struct {
	kind    model.PromptType
	phrases []string
}

// leadPhrases is the intent table. Matching is case-insensitive and the
// longest matching phrase across the whole table wins, so "send email to"
// beats "send email" regardless of declaration order. Ties fall to the
// phrase declared first.
var leadPhrases = []intentSpec{
	{model.TypeQuestion, []string{"question"}},
	{model.TypeDeletePrompt, []string{"delete prompt", "delete"}},
	{model.TypeClearAll, []string{"clear all", "clear history"}},
	{model.TypeSetupEmail, []string{"setup email", "set up email"}},
	{model.TypeEmailDraft, []string{"create email", "create an email"}},
	{model.TypeSendEmail, []string{"send email to", "send email"}},
}

// needsParam reports whether an intent is meaningless without a parameter.
// DELETE_PROMPT, CLEAR_ALL, and SETUP_EMAIL are recognized bare.
func needsParam(kind model.PromptType) bool {
	switch kind {
	case model.TypeQuestion, model.TypeEmailDraft, model.TypeSendEmail:
		return true
	default:
		return false
	}
}

// Classify maps a transcript onto an intent and extracts its parameter.
//
// A lead phrase matches when the trimmed transcript starts with it,
// case-insensitively, followed by end of string, punctuation, or
// whitespace. The parameter is everything after the phrase with one
// leading separator stripped, then trimmed. A matched command with
// nothing after it is distinct from no match at all: the former yields
// the "no prompt after command" error, the latter "unrecognized command".
func Classify(transcript string) model.Intent {
	trimmed := strings.TrimSpace(transcript)

	kind, phrase, ok := matchLeadPhrase(trimmed)
	if !ok {
		return model.Intent{Kind: model.TypeError, Param: msgUnrecognized, Transcript: transcript}
	}

	param := stripSeparator(trimmed[len(phrase):])
	if param == "" && needsParam(kind) {
		return model.Intent{Kind: model.TypeError, Param: msgNoPrompt, Transcript: transcript}
	}

	if kind == model.TypeSendEmail {
		param = SpellEmail(param)
	}

	return model.Intent{Kind: kind, Param: param, Transcript: transcript}
}

// matchLeadPhrase finds the longest lead phrase that is a true prefix of
// the transcript.
func matchLeadPhrase(transcript string) (model.PromptType, string, bool) {
	var (
		bestKind   model.PromptType
		bestPhrase string
		found      bool
	)
	for _, spec := range leadPhrases {
		for _, phrase := range spec.phrases {
			if !phrasePrefixes(transcript, phrase) {
				continue
			}
			if !found || len(phrase) > len(bestPhrase) {
				bestKind, bestPhrase, found = spec.kind, phrase, true
			}
		}
	}
	return bestKind, bestPhrase, found
}

// phrasePrefixes reports whether the transcript starts with the phrase
// (case-insensitively) followed by a valid terminator.
func phrasePrefixes(transcript, phrase string) bool {
	if len(transcript) < len(phrase) {
		return false
	}
	if !strings.EqualFold(transcript[:len(phrase)], phrase) {
		return false
	}
	if len(transcript) == len(phrase) {
		return true
	}
	return isSeparator(rune(transcript[len(phrase)]))
}

func isSeparator(r rune) bool {
	return r == '.' || r == ',' || r == '?' || unicode.IsSpace(r)
}

// stripSeparator removes exactly one leading punctuation character and one
// leading space, then trims. Internal casing of the remainder is preserved.
func stripSeparator(rest string) string {
	if len(rest) > 0 && (rest[0] == '.' || rest[0] == ',' || rest[0] == '?') {
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return strings.TrimSpace(rest)
}

// SpellEmail reconstructs an email address from individually spelled
// letters. Consecutive single-character tokens concatenate with no
// separator, the literal tokens "at" and "dot" become '@' and '.', and any
// other multi-character token is appended as-is:
//
//	[a b c at y a h o o dot com] -> abc@yahoo.com
func SpellEmail(remainder string) string {
	var sb strings.Builder
	for _, token := range strings.Fields(remainder) {
		switch {
		case strings.EqualFold(token, "at"):
			sb.WriteByte('@')
		case strings.EqualFold(token, "dot"):
			sb.WriteByte('.')
		default:
			sb.WriteString(token)
		}
	}
	return sb.String()
}
