package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicedesk/voicedesk/internal/model"
)

func TestAccountTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.tbl")

	tbl, err := OpenAccounts(path)
	require.NoError(t, err)

	tbl.Create(model.Account{Username: "dummy", Password: "hunter2"})
	tbl.Create(model.Account{Username: "bob", Password: "pass,with\npunctuation"})
	require.NoError(t, tbl.Save())

	reopened, err := OpenAccounts(path)
	require.NoError(t, err)

	got := reopened.QueryBy(func(model.Account) bool { return true })
	require.Len(t, got, 2)
	require.Equal(t, model.Account{Username: "dummy", Password: "hunter2"}, got[0])
	require.Equal(t, "pass,with\npunctuation", got[1].Password)
}

func TestEmailConfigTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_configs.tbl")

	tbl, err := OpenEmailConfigs(path)
	require.NoError(t, err)

	cfg := model.EmailConfig{
		Username:      "dummy",
		FirstName:     "Dummy",
		LastName:      "User",
		DisplayName:   "Dummy User",
		Email:         "dummy@example.com",
		EmailPassword: "app-password",
		SMTPHost:      "smtp.example.com",
		TLSPort:       "465",
	}
	tbl.Create(cfg)
	require.NoError(t, tbl.Save())

	reopened, err := OpenEmailConfigs(path)
	require.NoError(t, err)

	got := reopened.QueryBy(func(c model.EmailConfig) bool { return c.Username == "dummy" })
	require.Len(t, got, 1)
	require.Equal(t, cfg, got[0])
}
