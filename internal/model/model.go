// Package model defines the core data types flowing through the voicedesk pipeline.
package model

// PromptType tags a recorded interaction (and the intent that produced it).
type PromptType string

const (
	// TypeQuestion is a free-form question answered by the completion backend.
	TypeQuestion PromptType = "QUESTION"

	// TypeDeletePrompt is a request to delete one history entry.
	TypeDeletePrompt PromptType = "DELETE_PROMPT"

	// TypeClearAll is a request to clear the user's whole history.
	TypeClearAll PromptType = "CLEAR_ALL"

	// TypeSetupEmail is a request to view or change the user's email configuration.
	TypeSetupEmail PromptType = "SETUP_EMAIL"

	// TypeEmailDraft is a request to compose an email about a topic.
	TypeEmailDraft PromptType = "EMAIL_DRAFT"

	// TypeSendEmail is a request to send a drafted email to a spelled-out address.
	TypeSendEmail PromptType = "SEND_EMAIL"

	// TypeError marks a failed interaction; Output carries the message.
	TypeError PromptType = "ERROR"
)

// Prompt is one recorded user interaction.
//
// (Username, Timestamp) uniquely identifies a prompt within a user's history:
// timestamps are assigned from a strictly increasing clock at creation time.
// A prompt is immutable once created; the only mutation is whole-record removal.
type Prompt struct {
	// Username identifies the owning user. Not unique across prompts.
	Username string `json:"username"`

	// Timestamp is the creation time in Unix milliseconds and doubles as the
	// prompt's id within the owning user's history.
	Timestamp int64 `json:"timestamp"`

	// Type tags what kind of interaction this was.
	Type PromptType `json:"type"`

	// Input is the extracted user-supplied text (question, topic, recipient).
	Input string `json:"input"`

	// Output is the derived result text (answer, composed body, error message).
	Output string `json:"output"`
}

// Account is a registered user. The password is an opaque string compared
// for equality; no hashing happens at this layer.
type Account struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// EmailConfig holds a user's outgoing mail settings. At most one active
// row per username; replacement is delete-then-recreate.
type EmailConfig struct {
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	EmailPassword string `json:"-"`
	SMTPHost      string `json:"smtp"`
	TLSPort       string `json:"tls"`
}

// Intent is the transient, classified meaning of one transcript. It is
// produced per classification call and never persisted.
type Intent struct {
	// Kind is the intent tag, one of the PromptType constants.
	Kind PromptType

	// Param is the extracted parameter text: the question, the draft topic,
	// the reconstructed email address, or an error message for TypeError.
	Param string

	// Transcript is the raw input the intent was classified from.
	Transcript string
}

// IsError reports whether classification failed.
func (in Intent) IsError() bool { return in.Kind == TypeError }

// NeedsSelection reports whether the intent acts on a history entry chosen
// by the caller. Selection is a UI-level concept: the transcript only says
// "delete" or "send", never which entry.
func (in Intent) NeedsSelection() bool {
	return in.Kind == TypeDeletePrompt || in.Kind == TypeSendEmail
}
