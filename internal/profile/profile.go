package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Mode is the running mode: "prod", "dev" or "demo".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// Data is the directory that stores the server data.
	Data string
	// Driver is the database driver: "sqlite" or "postgres".
	Driver string
	// DSN is the database connection string.
	DSN string
	// Version is the current version of the server.
	Version string

	// DefaultAgentID is the agent seeded at startup when the agent table is empty.
	DefaultAgentID string

	// LLMTimeout is the model request timeout in seconds.
	LLMTimeout int
	// LLMMaxTokens caps the completion length for every model call.
	LLMMaxTokens int

	// Providers holds per-provider credentials, keyed by provider key
	// (openai, anthropic, gemini, deepseek). A provider without an API key
	// is still listed in /chat/models but calls against it will fail fast.
	Providers map[string]ProviderCredential
}

// ProviderCredential holds the credentials for one model provider.
type ProviderCredential struct {
	APIKey  string
	BaseURL string // optional, overrides the provider default
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
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
	p.DefaultAgentID = getEnvOrDefault("AIVEN_DEFAULT_AGENT", "assistant")
	p.LLMTimeout = getEnvOrDefaultInt("AIVEN_LLM_TIMEOUT_SECONDS", 120)
	p.LLMMaxTokens = getEnvOrDefaultInt("AIVEN_LLM_MAX_TOKENS", 2048)

	p.Providers = map[string]ProviderCredential{
		"openai": {
			APIKey:  getEnvOrDefault("AIVEN_OPENAI_API_KEY", ""),
			BaseURL: getEnvOrDefault("AIVEN_OPENAI_BASE_URL", ""),
		},
		"anthropic": {
			APIKey:  getEnvOrDefault("AIVEN_ANTHROPIC_API_KEY", ""),
			BaseURL: getEnvOrDefault("AIVEN_ANTHROPIC_BASE_URL", ""),
		},
		"gemini": {
			APIKey:  getEnvOrDefault("AIVEN_GEMINI_API_KEY", ""),
			BaseURL: getEnvOrDefault("AIVEN_GEMINI_BASE_URL", ""),
		},
		"deepseek": {
			APIKey:  getEnvOrDefault("AIVEN_DEEPSEEK_API_KEY", ""),
			BaseURL: getEnvOrDefault("AIVEN_DEEPSEEK_BASE_URL", ""),
		},
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

	// Trim trailing \ or / in case user supplies.
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

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "aiven")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					return errors.Wrapf(err, "failed to create data directory %s", p.Data)
				}
			}
		} else {
			p.Data = "/var/opt/aiven"
		}
	}

	if p.Driver == "sqlite" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("aiven_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
