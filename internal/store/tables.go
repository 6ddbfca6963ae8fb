package store

import (
	"fmt"
	"strconv"

	"github.com/voicedesk/voicedesk/internal/model"
)

// Column layouts are fixed per entity type. Order matches the field order
// produced by the codecs below.
var (
	PromptColumns      = []string{"username", "timestamp", "type", "input", "output"}
	AccountColumns     = []string{"username", "password"}
	EmailConfigColumns = []string{"username", "first_name", "last_name", "display_name", "email", "email_password", "smtp", "tls"}
)

// OpenPrompts opens the prompt history table at path.
func OpenPrompts(path string) (*Store[model.Prompt], error) {
	return Open(path, PromptColumns, encodePrompt, decodePrompt)
}

// OpenAccounts opens the account table at path.
func OpenAccounts(path string) (*Store[model.Account], error) {
	return Open(path, AccountColumns, encodeAccount, decodeAccount)
}

// OpenEmailConfigs opens the email configuration table at path.
func OpenEmailConfigs(path string) (*Store[model.EmailConfig], error) {
	return Open(path, EmailConfigColumns, encodeEmailConfig, decodeEmailConfig)
}

func encodePrompt(p model.Prompt) []string {
	return []string{p.Username, strconv.FormatInt(p.Timestamp, 10), string(p.Type), p.Input, p.Output}
}

func decodePrompt(fields []string) (model.Prompt, error) {
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return model.Prompt{}, fmt.Errorf("parsing timestamp %q: %w", fields[1], err)
	}
	return model.Prompt{
		Username:  fields[0],
		Timestamp: ts,
		Type:      model.PromptType(fields[2]),
		Input:     fields[3],
		Output:    fields[4],
	}, nil
}

func encodeAccount(a model.Account) []string {
	return []string{a.Username, a.Password}
}

func decodeAccount(fields []string) (model.Account, error) {
	return model.Account{Username: fields[0], Password: fields[1]}, nil
}

func encodeEmailConfig(c model.EmailConfig) []string {
	return []string{c.Username, c.FirstName, c.LastName, c.DisplayName, c.Email, c.EmailPassword, c.SMTPHost, c.TLSPort}
}

func decodeEmailConfig(fields []string) (model.EmailConfig, error) {
	return model.EmailConfig{
		Username:      fields[0],
		FirstName:     fields[1],
		LastName:      fields[2],
		DisplayName:   fields[3],
		Email:         fields[4],
		EmailPassword: fields[5],
		SMTPHost:      fields[6],
		TLSPort:       fields[7],
	}, nil
}
