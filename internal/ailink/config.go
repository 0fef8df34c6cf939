package ailink

import "time"

// Config defines provider configuration for lesson generation.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider" json:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout" json:"default_timeout" default:"3m"`

	// PromptsDir overrides the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir" json:"prompts_dir,omitempty"`

	// Providers is a set of provider instances keyed by a user-defined id (slug).
	// Each instance declares its underlying driver via AIProvider.
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers" json:"providers,omitempty"`

	// Routing maps a role (e.g. "lesson") to a provider id.
	Routing map[string]string `mapstructure:"routing" json:"routing,omitempty"`
}

// ProviderInstanceConfig defines a configured provider instance (e.g. "rootlab-gemini").
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// AIProvider is the driver identifier: "gemini", "openai" or "xai".
	AIProvider string `mapstructure:"ai_provider" json:"ai_provider"`

	// SelectionPolicy controls which credential is chosen.
	// Supported values: "priority" (default), "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy" json:"selection_policy,omitempty"`

	// DefaultCredential, if set, forces selecting the matching credential label.
	DefaultCredential string `mapstructure:"default_credential" json:"default_credential,omitempty"`

	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// Models maps "default" and optional per-level tiers ("advanced",
	// "intermediate", "beginner") to model names.
	Models map[string]string `mapstructure:"models" json:"models,omitempty"`
	Roles  []string          `mapstructure:"roles" json:"roles,omitempty"`

	Credentials []CredentialConfig `mapstructure:"credentials" json:"credentials,omitempty"`
}

// CredentialConfig is a single credential for a provider instance.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Label    string `mapstructure:"label" json:"label,omitempty"`
	APIKey   string `mapstructure:"api_key" json:"-"`
	Priority int    `mapstructure:"priority" json:"priority,omitempty"`
}

// Built-in provider ids created from well-known API key variables when no
// explicit provider is configured for that driver.
const (
	EnvProviderGemini = "gemini"
	EnvProviderOpenAI = "openai"
	EnvProviderXAI    = "xai"
)

var defaultModels = map[string]string{
	"gemini": "gemini-1.5-flash",
	"openai": "gpt-4o-mini",
	"xai":    "grok-3-mini",
}

// ApplyEnvKeys adds a provider for every non-empty key in keys (driver ->
// API key) unless a provider with that driver already exists. The first
// added provider becomes the default when none is set.
func (c *Config) ApplyEnvKeys(keys map[string]string) {
	for _, drv := range []string{EnvProviderGemini, EnvProviderOpenAI, EnvProviderXAI} {
		key := keys[drv]
		if key == "" || c.hasDriver(drv) {
			continue
		}
		if c.Providers == nil {
			c.Providers = map[string]ProviderInstanceConfig{}
		}
		c.Providers[drv] = ProviderInstanceConfig{
			Enabled:     true,
			AIProvider:  drv,
			Models:      map[string]string{"default": defaultModels[drv]},
			Credentials: []CredentialConfig{{Enabled: true, Label: "env", APIKey: key}},
		}
		if c.DefaultProvider == "" {
			c.DefaultProvider = drv
		}
	}
}

func (c *Config) hasDriver(drv string) bool {
	for _, p := range c.Providers {
		if p.AIProvider == drv {
			return true
		}
	}
	return false
}
