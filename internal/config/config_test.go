package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Server.HealthPort)
	assert.Equal(t, "openai", cfg.Answer.Backend)
	assert.Equal(t, 30, cfg.Answer.TimeoutSeconds)
	assert.Equal(t, "gpt-4o", cfg.Answer.OpenAI.CompletionModel)
	assert.Equal(t, "prompts.tbl", cfg.Storage.PromptsFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicedesk.yaml")
	content := `
server:
  port: 9090
storage:
  data_dir: /var/lib/voicedesk
answer:
  backend: local
  timeout_seconds: 5
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Answer.Backend)
	assert.Equal(t, 5, cfg.Answer.TimeoutSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Path helpers join the data dir with the per-table file names.
	assert.Equal(t, filepath.Join("/var/lib/voicedesk", "prompts.tbl"), cfg.Storage.PromptsPath())
	assert.Equal(t, filepath.Join("/var/lib/voicedesk", "accounts.tbl"), cfg.Storage.AccountsPath())
	assert.Equal(t, filepath.Join("/var/lib/voicedesk", "email_configs.tbl"), cfg.Storage.EmailConfigsPath())
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("VOICEDESK_TEST_SECRET", "s3cret")

	assert.Equal(t, "s3cret", resolveEnvRef("${VOICEDESK_TEST_SECRET}"))
	assert.Equal(t, "plain-value", resolveEnvRef("plain-value"))
	assert.Equal(t, "${UNSET_VAR_XYZ}", resolveEnvRef("${UNSET_VAR_XYZ}"))
}
