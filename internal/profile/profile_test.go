package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	clearEnvVars(t)

	p := &Profile{}
	p.FromEnv()

	require.Empty(t, p.AIWebhookURL)
	require.Equal(t, 30, p.AIWebhookTimeout)
	require.Empty(t, p.AIProvider)
	require.False(t, p.IsAIDirect())
}

func TestFromEnvProviderDefaults(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("TRADECHAT_AI_PROVIDER", "deepseek")
	t.Setenv("TRADECHAT_AI_API_KEY", "test-key")

	p := &Profile{}
	p.FromEnv()

	require.True(t, p.IsAIDirect())
	require.Equal(t, "https://api.deepseek.com", p.AIBaseURL)
	require.Equal(t, "deepseek-chat", p.AIModel)
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("TRADECHAT_AI_PROVIDER", "no-such-provider")
	t.Setenv("TRADECHAT_AI_API_KEY", "test-key")

	p := &Profile{}
	p.FromEnv()

	require.Empty(t, p.AIProvider)
	require.False(t, p.IsAIDirect())
}

func TestValidateSQLiteDefaultDSN(t *testing.T) {
	dataDir := t.TempDir()

	p := &Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   dataDir,
	}
	require.NoError(t, p.Validate())
	require.Equal(t, filepath.Join(dataDir, "tradechat_dev.db"), p.DSN)
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	p := &Profile{
		Mode:   "dev",
		Driver: "postgres",
		Data:   t.TempDir(),
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{
		Mode:   "dev",
		Driver: "mysql",
		Data:   t.TempDir(),
	}
	require.Error(t, p.Validate())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRADECHAT_AI_WEBHOOK_URL",
		"TRADECHAT_AI_WEBHOOK_TIMEOUT_SECONDS",
		"TRADECHAT_AI_PROVIDER",
		"TRADECHAT_AI_API_KEY",
		"TRADECHAT_AI_BASE_URL",
		"TRADECHAT_AI_MODEL",
		"TRADECHAT_SECRET",
	} {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}
