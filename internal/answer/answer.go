// Package answer defines the interface for the external speech-to-text and
// answer-generation collaborators.
//
// A backend takes audio and produces a transcript, or takes a prompt and
// produces an answer. Voicedesk ships with two backends: OpenAI (cloud)
// and Local (self-hosted via Ollama/whisper.cpp). Both are narrow
// string-in/string-out contracts; failures surface as errors, never as
// partial results.
package answer

import "context"

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr") to guide transcription.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string

	// Model overrides the default transcription model.
	Model string
}

// Service is the interface for audio transcription and answer generation.
type Service interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (string, error)

	// Answer generates a plain-text answer for a user prompt.
	Answer(ctx context.Context, prompt string) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}
