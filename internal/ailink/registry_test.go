package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/ailink/driver/gemini"
	"github.com/rootlab/rootlab/internal/ailink/driver/openai"
	"github.com/rootlab/rootlab/internal/ailink/prompt"
)

func TestResolveModelPrefersLevelTier(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "advanced": "m-advanced"}}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []string{"prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", "Advanced")
	require.NoError(t, err)
	require.Equal(t, "m-advanced", model)
}

func TestResolveModelFallsBackToDefaultWhenTierMissing(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}

	model, err := resolveModel(providerCfg, nil, "", "beginner")
	require.NoError(t, err)
	require.Equal(t, "m-default", model)
}

func TestResolveModelUsesOverrideFirst(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "advanced": "m-advanced"}}

	model, err := resolveModel(providerCfg, nil, "override-model", "advanced")
	require.NoError(t, err)
	require.Equal(t, "override-model", model)
}

func TestResolveModelFallsBackToPromptPreferredModels(t *testing.T) {
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []any{"prompt-model"}}}}

	model, err := resolveModel(ProviderInstanceConfig{}, promptDef, "", "")
	require.NoError(t, err)
	require.Equal(t, "prompt-model", model)
}

func TestResolveModelUsesDriverDefault(t *testing.T) {
	model, err := resolveModel(ProviderInstanceConfig{AIProvider: "gemini"}, nil, "", "")
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash", model)

	_, err = resolveModel(ProviderInstanceConfig{AIProvider: "custom"}, nil, "", "")
	require.Error(t, err)
}

func TestResolveMissingKeyIsConfigError(t *testing.T) {
	reg := NewRegistry(Config{
		Providers: map[string]ProviderInstanceConfig{
			"main": {Enabled: true, AIProvider: "gemini", Credentials: []CredentialConfig{{Enabled: true, Label: "k"}}},
		},
	})

	_, err := reg.Resolve("lesson", nil, "", "")
	require.Error(t, err)
	require.True(t, IsConfigError(err))
	require.Contains(t, err.Error(), "api key not set")

	_, err = NewRegistry(Config{}).Resolve("lesson", nil, "", "")
	require.True(t, IsConfigError(err))
}

func TestResolveRoutingAndDrivers(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultProvider: "g",
		Routing:         map[string]string{"lesson": "o"},
		Providers: map[string]ProviderInstanceConfig{
			"g": {Enabled: true, AIProvider: "gemini", Credentials: []CredentialConfig{{Enabled: true, APIKey: "gk"}}},
			"o": {Enabled: true, AIProvider: "openai", BaseURL: "http://local/v1", Credentials: []CredentialConfig{{Enabled: true, APIKey: "ok"}}},
			"x": {Enabled: true, AIProvider: "xai", Roles: []string{"review"}, Credentials: []CredentialConfig{{Enabled: true, APIKey: "xk"}}},
		},
	})

	resolved, err := reg.Resolve("lesson", nil, "", "")
	require.NoError(t, err)
	require.Equal(t, "o", resolved.ProviderID)
	require.IsType(t, &openai.Client{}, resolved.Driver)
	require.Equal(t, "http://local/v1", resolved.BaseURL)
	require.Equal(t, "gpt-4o-mini", resolved.Model)

	resolved, err = reg.Resolve("review", nil, "", "")
	require.NoError(t, err)
	require.Equal(t, "xai", resolved.Driver.Name())
	require.Equal(t, "https://api.x.ai/v1", resolved.BaseURL)

	resolved, err = reg.Resolve("", nil, "", "")
	require.NoError(t, err)
	require.IsType(t, &gemini.Client{}, resolved.Driver)

	again, err := reg.Resolve("", nil, "", "")
	require.NoError(t, err)
	require.Same(t, resolved.Driver, again.Driver)
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	reg := NewRegistry(Config{})
	cfg := ProviderInstanceConfig{
		SelectionPolicy: "round_robin",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "a", APIKey: "ka", Priority: 1},
			{Enabled: true, Label: "b", APIKey: "kb", Priority: 1},
			{Enabled: true, Label: "low", APIKey: "kl", Priority: 0},
		},
	}
	next := func(group string, n int) int { return reg.rrIndex("p:"+group, n) }

	var labels []string
	for i := 0; i < 4; i++ {
		cred, _, err := selectCredential(cfg, next)
		require.NoError(t, err)
		labels = append(labels, cred.Label)
	}
	require.Equal(t, []string{"a", "b", "a", "b"}, labels)

	cfg.DefaultCredential = "LOW"
	cred, key, err := selectCredential(cfg, next)
	require.NoError(t, err)
	require.Equal(t, "low", cred.Label)
	require.Equal(t, "low", key)
}

func TestApplyEnvKeys(t *testing.T) {
	cfg := Config{}
	cfg.ApplyEnvKeys(map[string]string{"gemini": "g-key", "openai": "", "xai": "x-key"})

	require.Equal(t, "gemini", cfg.DefaultProvider)
	require.Contains(t, cfg.Providers, "gemini")
	require.Contains(t, cfg.Providers, "xai")
	require.NotContains(t, cfg.Providers, "openai")
	require.Equal(t, "g-key", cfg.Providers["gemini"].Credentials[0].APIKey)

	cfg = Config{Providers: map[string]ProviderInstanceConfig{"mine": {Enabled: true, AIProvider: "gemini"}}}
	cfg.ApplyEnvKeys(map[string]string{"gemini": "g-key"})
	require.Len(t, cfg.Providers, 1)
	require.Empty(t, cfg.DefaultProvider)
}

func TestClassifyError(t *testing.T) {
	require.Nil(t, ClassifyError(nil))
	require.Equal(t, "AILINK_PROVIDER_TIMEOUT", ClassifyError(fmt.Errorf("wrap: %w", context.DeadlineExceeded)).Code)

	cases := map[int]string{
		401: "AILINK_PROVIDER_AUTH",
		429: "AILINK_PROVIDER_RATE_LIMIT",
		503: "AILINK_PROVIDER_UNAVAILABLE",
		400: "AILINK_PROVIDER_BAD_REQUEST",
	}
	for status, code := range cases {
		f := ClassifyError(&driver.ProviderError{Provider: "gemini", StatusCode: status, Message: " body "})
		require.Equal(t, code, f.Code)
		require.Equal(t, "body", f.Details)
		require.Equal(t, status, f.StatusCode)
	}

	require.Equal(t, "AILINK_PROVIDER_ERROR", ClassifyError(errors.New("boom")).Code)
}
