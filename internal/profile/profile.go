package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/usetradechat/tradechat/internal/util"
)

// Profile is configuration to start main server.
type Profile struct {
	// AI responder configuration.
	// The default responder forwards user messages to an external webhook and
	// treats the plain-text response body as the assistant reply.
	AIWebhookURL     string // Webhook endpoint for assistant replies
	AIWebhookTimeout int    // Webhook request timeout in seconds (default: 30)

	// Optional OpenAI-compatible responder (openai, deepseek, ollama, ...).
	// Used instead of the webhook when AIProvider is set and an API key is
	// configured.
	AIProvider string
	AIAPIKey   string
	AIBaseURL  string
	AIModel    string

	// Other configurations
	Mode        string
	Addr        string
	Port        int
	UNIXSock    string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string

	// Secret signs session tokens.
	Secret string
}

// Provider default configurations for the OpenAI-compatible responder.
// Used when TRADECHAT_AI_BASE_URL is not explicitly set.
var aiProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIDirect returns true if replies should come from an OpenAI-compatible
// API instead of the webhook.
func (p *Profile) IsAIDirect() bool {
	return p.AIProvider != "" && p.AIAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIWebhookURL = getEnvOrDefault("TRADECHAT_AI_WEBHOOK_URL", "")
	p.AIWebhookTimeout = getEnvOrDefaultInt("TRADECHAT_AI_WEBHOOK_TIMEOUT_SECONDS", 30)

	p.AIProvider = getEnvOrDefault("TRADECHAT_AI_PROVIDER", "")
	p.AIAPIKey = getEnvOrDefault("TRADECHAT_AI_API_KEY", "")
	p.AIBaseURL = getEnvOrDefault("TRADECHAT_AI_BASE_URL", "")
	p.AIModel = getEnvOrDefault("TRADECHAT_AI_MODEL", "")

	if p.Secret == "" {
		p.Secret = getEnvOrDefault("TRADECHAT_SECRET", "")
	}

	if p.AIProvider != "" {
		if _, ok := aiProviderDefaults[p.AIProvider]; !ok {
			slog.Warn("unknown AI provider, falling back to webhook responder", "provider", p.AIProvider)
			p.AIProvider = ""
		}
	}
	if defaults, ok := aiProviderDefaults[p.AIProvider]; ok {
		if p.AIBaseURL == "" {
			p.AIBaseURL = defaults.BaseURL
		}
		if p.AIModel == "" {
			p.AIModel = defaults.Model
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "tradechat")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/tradechat"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("tradechat_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.Secret == "" {
		// Ephemeral secret: sessions do not survive a restart.
		p.Secret = util.GenUUID()
		slog.Warn("no secret configured, generated an ephemeral one; set TRADECHAT_SECRET to keep sessions across restarts")
	}

	return nil
}
