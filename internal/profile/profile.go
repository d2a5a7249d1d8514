package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where mindgleam stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the instance, used for OAuth
	// redirects and checkout return urls.
	InstanceURL string
	// Secret signs access tokens and OAuth state.
	Secret string

	// LLM configuration
	AIEnabled   bool   // MINDGLEAM_AI_ENABLED
	AIBaseURL   string // MINDGLEAM_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey    string // MINDGLEAM_AI_API_KEY
	AIChatModel string // MINDGLEAM_AI_CHAT_MODEL (default: gpt-4o-mini)

	// Google OAuth configuration
	GoogleClientID     string // MINDGLEAM_GOOGLE_CLIENT_ID
	GoogleClientSecret string // MINDGLEAM_GOOGLE_CLIENT_SECRET

	// Stripe configuration
	StripeSecretKey     string // MINDGLEAM_STRIPE_SECRET_KEY
	StripeWebhookSecret string // MINDGLEAM_STRIPE_WEBHOOK_SECRET
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if chat completion is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// IsOAuthConfigured returns true if Google sign-in can be offered.
func (p *Profile) IsOAuthConfigured() bool {
	return p.GoogleClientID != "" && p.GoogleClientSecret != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from MINDGLEAM_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("MINDGLEAM_AI_ENABLED") == "true"
	p.AIBaseURL = getEnvOrDefault("MINDGLEAM_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("MINDGLEAM_AI_API_KEY")
	p.AIChatModel = getEnvOrDefault("MINDGLEAM_AI_CHAT_MODEL", "gpt-4o-mini")

	p.GoogleClientID = os.Getenv("MINDGLEAM_GOOGLE_CLIENT_ID")
	p.GoogleClientSecret = os.Getenv("MINDGLEAM_GOOGLE_CLIENT_SECRET")

	p.StripeSecretKey = os.Getenv("MINDGLEAM_STRIPE_SECRET_KEY")
	p.StripeWebhookSecret = os.Getenv("MINDGLEAM_STRIPE_WEBHOOK_SECRET")

	if v := os.Getenv("MINDGLEAM_SECRET"); v != "" {
		p.Secret = v
	}
	if v := os.Getenv("MINDGLEAM_INSTANCE_URL"); v != "" {
		p.InstanceURL = v
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
		p.Data = "/var/opt/mindgleam"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data directory")
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("mindgleam_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.InstanceURL == "" {
		p.InstanceURL = fmt.Sprintf("http://localhost:%d", p.Port)
	}
	p.InstanceURL = strings.TrimRight(p.InstanceURL, "/")

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("a signing secret is required in prod mode, set MINDGLEAM_SECRET")
		}
		p.Secret = "mindgleam-insecure-dev-secret"
	}

	return nil
}
