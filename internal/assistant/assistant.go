// Package assistant implements the command interpretation core.
//
// The assistant receives a user identifier and a transcript, classifies the
// transcript into an intent, performs the intent's side effects against the
// per-user record stores, and returns a prompt-shaped result. Expected
// failures (no match, empty parameter, collaborator errors) come back as
// ERROR-tagged results: callers inspect the result type, not a Go error.
// Go errors are reserved for store I/O.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voicedesk/voicedesk/internal/answer"
	"github.com/voicedesk/voicedesk/internal/mail"
	"github.com/voicedesk/voicedesk/internal/model"
	"github.com/voicedesk/voicedesk/internal/store"
)

const msgNoEmailConfig = "no email configuration on file"

// ErrUsernameTaken is returned by Register when the username exists.
var ErrUsernameTaken = fmt.Errorf("username already taken")

// Deps wires the assistant's stores and collaborators. Stores are explicit
// handles, one per backing file; the assistant holds no global state.
type Deps struct {
	Prompts      *store.Store[model.Prompt]
	Accounts     *store.Store[model.Account]
	EmailConfigs *store.Store[model.EmailConfig]
	Answerer     answer.Service
	Mailer       mail.Mailer

	// AnswerTimeout bounds each collaborator call; expiry is treated as a
	// collaborator failure.
	AnswerTimeout time.Duration
}

// Assistant is stateless per call beyond its store handles and may be
// invoked concurrently; the stores serialize their own mutations.
type Assistant struct {
	prompts      *store.Store[model.Prompt]
	accounts     *store.Store[model.Account]
	emailConfigs *store.Store[model.EmailConfig]
	answerer     answer.Service
	mailer       mail.Mailer
	timeout      time.Duration

	idMu   sync.Mutex
	lastID int64
	now    func() time.Time
}

// New creates an assistant from its dependencies.
func New(deps Deps) *Assistant {
	timeout := deps.AnswerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Assistant{
		prompts:      deps.Prompts,
		accounts:     deps.Accounts,
		emailConfigs: deps.EmailConfigs,
		answerer:     deps.Answerer,
		mailer:       deps.Mailer,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Handle is the single entry point: classify the transcript and carry out
// everything the intent can do without a caller-side selection.
// DELETE_PROMPT and SEND_EMAIL results come back as signals; the caller
// completes them through DeletePrompt and SendPrompt with the selected id.
func (a *Assistant) Handle(ctx context.Context, username, transcript string) (model.Prompt, error) {
	logger := slog.With("username", username)

	intent := Classify(transcript)
	logger.Info("transcript classified", "intent", intent.Kind)

	switch intent.Kind {
	case model.TypeQuestion:
		return a.handleQuestion(ctx, username, intent, logger)
	case model.TypeEmailDraft:
		return a.handleEmailDraft(ctx, username, intent, logger)
	case model.TypeClearAll:
		return a.handleClearAll(username, logger)
	case model.TypeDeletePrompt, model.TypeSetupEmail, model.TypeSendEmail:
		// Signal-only intents: no store mutation happens here.
		return model.Prompt{
			Username:  username,
			Timestamp: a.nextID(),
			Type:      intent.Kind,
			Input:     intent.Param,
		}, nil
	default:
		logger.Info("classification failed", "message", intent.Param)
		return a.errorResult(username, transcript, intent.Param), nil
	}
}

func (a *Assistant) handleQuestion(ctx context.Context, username string, intent model.Intent, logger *slog.Logger) (model.Prompt, error) {
	output, err := a.ask(ctx, intent.Param)
	if err != nil {
		logger.Error("answer generation failed", "error", err)
		return a.errorResult(username, intent.Param, "answer generation failed: "+err.Error()), nil
	}

	prompt := model.Prompt{
		Username:  username,
		Timestamp: a.nextID(),
		Type:      model.TypeQuestion,
		Input:     intent.Param,
		Output:    output,
	}
	a.prompts.Create(prompt)
	if err := a.prompts.Save(); err != nil {
		return prompt, fmt.Errorf("persisting question: %w", err)
	}
	logger.Info("question answered", "id", prompt.Timestamp)
	return prompt, nil
}

func (a *Assistant) handleEmailDraft(ctx context.Context, username string, intent model.Intent, logger *slog.Logger) (model.Prompt, error) {
	cfg, ok := a.EmailConfig(username)
	if !ok {
		return a.errorResult(username, intent.Param, msgNoEmailConfig), nil
	}

	body, err := a.ask(ctx, intent.Param)
	if err != nil {
		logger.Error("draft generation failed", "error", err)
		return a.errorResult(username, intent.Param, "answer generation failed: "+err.Error()), nil
	}

	prompt := model.Prompt{
		Username:  username,
		Timestamp: a.nextID(),
		Type:      model.TypeEmailDraft,
		Input:     intent.Param,
		Output:    body + "\n" + cfg.DisplayName,
	}
	a.prompts.Create(prompt)
	if err := a.prompts.Save(); err != nil {
		return prompt, fmt.Errorf("persisting draft: %w", err)
	}
	logger.Info("email drafted", "id", prompt.Timestamp)
	return prompt, nil
}

func (a *Assistant) handleClearAll(username string, logger *slog.Logger) (model.Prompt, error) {
	removed, err := a.ClearHistory(username)
	result := model.Prompt{
		Username:  username,
		Timestamp: a.nextID(),
		Type:      model.TypeClearAll,
		Output:    fmt.Sprintf("cleared %d history entries", removed),
	}
	if err != nil {
		return result, err
	}
	logger.Info("history cleared", "removed", removed)
	return result, nil
}

// Transcribe converts raw audio to text through the configured backend.
func (a *Assistant) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.answerer.Transcribe(ctx, audio, contentType, answer.TranscribeOpts{})
}

// DeletePrompt removes one history entry by (username, id) and saves.
// Deleting a missing entry returns false and changes nothing.
func (a *Assistant) DeletePrompt(username string, id int64) (bool, error) {
	removed := a.prompts.DeleteBy(func(p model.Prompt) bool {
		return p.Username == username && p.Timestamp == id
	})
	if removed == 0 {
		return false, nil
	}
	if err := a.prompts.Save(); err != nil {
		return true, fmt.Errorf("persisting delete: %w", err)
	}
	return true, nil
}

// ClearHistory removes all of a user's prompts, saves, and reports how
// many were removed. Other users' prompts are untouched.
func (a *Assistant) ClearHistory(username string) (int, error) {
	removed := a.prompts.DeleteBy(func(p model.Prompt) bool {
		return p.Username == username
	})
	if err := a.prompts.Save(); err != nil {
		return removed, fmt.Errorf("persisting clear: %w", err)
	}
	return removed, nil
}

// History returns the user's prompts in insertion order.
func (a *Assistant) History(username string) []model.Prompt {
	return a.prompts.QueryBy(func(p model.Prompt) bool {
		return p.Username == username
	})
}

// SendPrompt mails the selected history entry's output to the recipient
// and records the send. Missing entries, missing email configuration, and
// mail transport failures come back as ERROR results.
func (a *Assistant) SendPrompt(ctx context.Context, username, recipient string, id int64) (model.Prompt, error) {
	logger := slog.With("username", username, "id", id)

	selected := a.prompts.QueryBy(func(p model.Prompt) bool {
		return p.Username == username && p.Timestamp == id
	})
	if len(selected) == 0 {
		return a.errorResult(username, recipient, "no such history entry"), nil
	}

	cfg, ok := a.EmailConfig(username)
	if !ok {
		return a.errorResult(username, recipient, msgNoEmailConfig), nil
	}

	body := selected[0].Output
	subject := fmt.Sprintf("A message from %s", cfg.DisplayName)
	if err := a.mailer.Send(cfg, recipient, subject, body); err != nil {
		logger.Error("send failed", "error", err)
		return a.errorResult(username, recipient, "sending email failed: "+err.Error()), nil
	}

	prompt := model.Prompt{
		Username:  username,
		Timestamp: a.nextID(),
		Type:      model.TypeSendEmail,
		Input:     recipient,
		Output:    body,
	}
	a.prompts.Create(prompt)
	if err := a.prompts.Save(); err != nil {
		return prompt, fmt.Errorf("persisting send: %w", err)
	}
	logger.Info("email sent", "recipient", recipient)
	return prompt, nil
}

// Register creates an account once; usernames are unique store-wide.
func (a *Assistant) Register(username, password string) error {
	existing := a.accounts.QueryBy(func(acc model.Account) bool {
		return acc.Username == username
	})
	if len(existing) > 0 {
		return ErrUsernameTaken
	}
	a.accounts.Create(model.Account{Username: username, Password: password})
	if err := a.accounts.Save(); err != nil {
		return fmt.Errorf("persisting account: %w", err)
	}
	return nil
}

// Authenticate compares the stored password for equality.
func (a *Assistant) Authenticate(username, password string) bool {
	matches := a.accounts.QueryBy(func(acc model.Account) bool {
		return acc.Username == username && acc.Password == password
	})
	return len(matches) > 0
}

// EmailConfig returns the user's email configuration, if any.
func (a *Assistant) EmailConfig(username string) (model.EmailConfig, bool) {
	found := a.emailConfigs.QueryBy(func(c model.EmailConfig) bool {
		return c.Username == username
	})
	if len(found) == 0 {
		return model.EmailConfig{}, false
	}
	return found[0], true
}

// PutEmailConfig replaces the user's email configuration wholesale:
// delete-then-recreate, then save.
func (a *Assistant) PutEmailConfig(cfg model.EmailConfig) error {
	a.emailConfigs.DeleteBy(func(c model.EmailConfig) bool {
		return c.Username == cfg.Username
	})
	a.emailConfigs.Create(cfg)
	if err := a.emailConfigs.Save(); err != nil {
		return fmt.Errorf("persisting email config: %w", err)
	}
	return nil
}

// DeleteEmailConfig removes the user's email configuration.
func (a *Assistant) DeleteEmailConfig(username string) (bool, error) {
	removed := a.emailConfigs.DeleteBy(func(c model.EmailConfig) bool {
		return c.Username == username
	})
	if removed == 0 {
		return false, nil
	}
	if err := a.emailConfigs.Save(); err != nil {
		return true, fmt.Errorf("persisting email config delete: %w", err)
	}
	return true, nil
}

// ask runs one answer-generation call under the configured timeout. The
// call happens outside any store lock so slow remote calls never stall
// unrelated queries.
func (a *Assistant) ask(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.answerer.Answer(ctx, prompt)
}

// nextID returns a strictly increasing prompt id. The millisecond clock is
// the base; the guard keeps ids unique when two prompts land on the same
// tick.
func (a *Assistant) nextID() int64 {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	id := a.now().UnixMilli()
	if id <= a.lastID {
		id = a.lastID + 1
	}
	a.lastID = id
	return id
}

func (a *Assistant) errorResult(username, input, message string) model.Prompt {
	return model.Prompt{
		Username:  username,
		Timestamp: a.nextID(),
		Type:      model.TypeError,
		Input:     input,
		Output:    message,
	}
}
