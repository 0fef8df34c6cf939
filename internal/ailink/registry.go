package ailink

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/ailink/driver/gemini"
	"github.com/rootlab/rootlab/internal/ailink/driver/openai"
	"github.com/rootlab/rootlab/internal/ailink/driver/xai"
	"github.com/rootlab/rootlab/internal/ailink/prompt"
)

// Registry resolves provider instances to drivers, caching one driver per
// provider and credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	rr      map[string]int
}

// ResolvedProvider is the outcome of routing one request.
type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Resolve picks a provider for role, a credential, and the model. tier is
// an optional model tier (the lesson level) looked up in the provider's
// models map. Every failure is a *ConfigError.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride, tier string) (*ResolvedProvider, error) {
	providerID, providerCfg, err := r.resolveProvider(role)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	cred, credKey, err := selectCredential(providerCfg, func(groupKey string, n int) int {
		return r.rrIndex(providerID+":"+groupKey, n)
	})
	if err != nil {
		return nil, &ConfigError{Provider: providerID, Reason: err.Error()}
	}
	if strings.TrimSpace(cred.APIKey) == "" {
		return nil, &ConfigError{Provider: providerID, Reason: "api key not set"}
	}

	drv, err := r.driverFor(providerID, providerCfg, cred, credKey)
	if err != nil {
		return nil, &ConfigError{Provider: providerID, Reason: err.Error()}
	}

	model, err := resolveModel(providerCfg, promptDef, modelOverride, tier)
	if err != nil {
		return nil, &ConfigError{Provider: providerID, Reason: err.Error()}
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     drv,
		Model:      model,
		BaseURL:    baseURLOf(drv, providerCfg),
	}, nil
}

func (r *Registry) resolveProvider(role string) (string, ProviderInstanceConfig, error) {
	if r == nil {
		return "", ProviderInstanceConfig{}, fmt.Errorf("ailink registry not configured")
	}

	role = strings.TrimSpace(role)
	if role != "" {
		if providerID, ok := r.cfg.Routing[role]; ok {
			providerID = strings.TrimSpace(providerID)
			if providerID != "" {
				providerCfg, ok := r.cfg.Providers[providerID]
				if !ok {
					return "", ProviderInstanceConfig{}, fmt.Errorf("unknown provider %q for role %q", providerID, role)
				}
				if !providerCfg.Enabled {
					return "", ProviderInstanceConfig{}, fmt.Errorf("provider %q is disabled", providerID)
				}
				return providerID, providerCfg, nil
			}
		}

		for _, providerID := range sortedKeys(r.cfg.Providers) {
			providerCfg := r.cfg.Providers[providerID]
			if providerCfg.Enabled && contains(providerCfg.Roles, role) {
				return providerID, providerCfg, nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		providerCfg, ok := r.cfg.Providers[id]
		if !ok {
			return "", ProviderInstanceConfig{}, fmt.Errorf("default provider %q not configured", id)
		}
		if !providerCfg.Enabled {
			return "", ProviderInstanceConfig{}, fmt.Errorf("default provider %q is disabled", id)
		}
		return id, providerCfg, nil
	}

	var onlyID string
	for _, providerID := range sortedKeys(r.cfg.Providers) {
		if !r.cfg.Providers[providerID].Enabled {
			continue
		}
		if onlyID != "" {
			return "", ProviderInstanceConfig{}, fmt.Errorf("several providers enabled and no default_provider set")
		}
		onlyID = providerID
	}
	if onlyID == "" {
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled providers configured (set GEMINI_API_KEY or configure ailink.providers)")
	}
	return onlyID, r.cfg.Providers[onlyID], nil
}

func selectCredential(cfg ProviderInstanceConfig, rrNext func(groupKey string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("no credentials configured")
	}

	enabled := make([]CredentialConfig, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		if !cred.Enabled && strings.TrimSpace(cred.Label) != "" {
			continue
		}
		if strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		enabled = append(enabled, cred)
	}
	if len(enabled) == 0 {
		// Nothing usable; hand back the first so the caller reports the missing key.
		cred := cfg.Credentials[0]
		key := strings.TrimSpace(cred.Label)
		if key == "" {
			key = "0"
		}
		return cred, key, nil
	}

	if label := strings.TrimSpace(cfg.DefaultCredential); label != "" {
		for _, cred := range enabled {
			if strings.EqualFold(strings.TrimSpace(cred.Label), label) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	highest := enabled[0].Priority
	for _, cred := range enabled[1:] {
		if cred.Priority > highest {
			highest = cred.Priority
		}
	}
	group := make([]CredentialConfig, 0, len(enabled))
	for _, cred := range enabled {
		if cred.Priority == highest {
			group = append(group, cred)
		}
	}

	idx := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), "round_robin") && rrNext != nil {
		idx = rrNext(fmt.Sprintf("%d", highest), len(group))
	}
	cred := group[idx]
	key := strings.TrimSpace(cred.Label)
	if key == "" {
		key = fmt.Sprintf("p%d:%d", highest, idx)
	}
	return cred, key, nil
}

func (r *Registry) driverFor(providerID string, providerCfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drivers == nil {
		r.drivers = map[string]driver.Driver{}
	}
	driverKey := providerID
	if strings.TrimSpace(credKey) != "" {
		driverKey += ":" + credKey
	}
	if drv, ok := r.drivers[driverKey]; ok {
		return drv, nil
	}

	var drv driver.Driver
	switch providerType := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider)); providerType {
	case "gemini":
		client := gemini.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.DefaultTimeout
		drv = client
	case "openai":
		client := openai.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.DefaultTimeout
		drv = client
	case "xai":
		client := xai.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.DefaultTimeout
		drv = client
	default:
		if providerType == "" {
			providerType = "(unset)"
		}
		return nil, fmt.Errorf("unsupported ai_provider %q", providerType)
	}
	r.drivers[driverKey] = drv
	return drv, nil
}

func resolveModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override, tier string) (string, error) {
	if model := strings.TrimSpace(override); model != "" {
		return model, nil
	}

	if tier = strings.ToLower(strings.TrimSpace(tier)); tier != "" && providerCfg.Models != nil {
		if model := strings.TrimSpace(providerCfg.Models[tier]); model != "" {
			return model, nil
		}
	}

	if promptDef != nil {
		if models := promptDef.PreferredModels(); len(models) > 0 {
			return models[0], nil
		}
	}

	if providerCfg.Models != nil {
		if model := strings.TrimSpace(providerCfg.Models["default"]); model != "" {
			return model, nil
		}
	}

	if model := defaultModels[strings.ToLower(strings.TrimSpace(providerCfg.AIProvider))]; model != "" {
		return model, nil
	}
	return "", fmt.Errorf("model not configured")
}

func baseURLOf(drv driver.Driver, cfg ProviderInstanceConfig) string {
	switch client := drv.(type) {
	case *gemini.Client:
		return client.BaseURL
	case *openai.Client:
		return client.BaseURL
	default:
		return strings.TrimSpace(cfg.BaseURL)
	}
}

func (r *Registry) rrIndex(key string, n int) int {
	if n <= 1 || r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rr == nil {
		r.rr = map[string]int{}
	}
	idx := r.rr[key] % n
	r.rr[key]++
	return idx
}

func contains(values []string, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), needle) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
