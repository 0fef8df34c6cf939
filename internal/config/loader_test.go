package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points XDG lookups at a temp dir and clears API key variables
// so the developer's environment cannot leak into assertions.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "XAI_API_KEY",
		"ROOTLAB_GEMINI_API_KEY", "ROOTLAB_OPENAI_API_KEY", "ROOTLAB_XAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.True(t, cfg.Store.Enabled)
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("rootlab"), "rootlab.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)

		assert.Equal(t, 3*time.Minute, cfg.AILink.DefaultTimeout)
		assert.Empty(t, cfg.AILink.Providers)

		assert.Equal(t, "lesson", cfg.Lesson.Role)
		assert.Equal(t, "intermediate", cfg.Lesson.DefaultLevel)
		assert.True(t, cfg.Lesson.Persist)
		assert.Equal(t, 50, cfg.Lesson.HistoryLimit)

		assert.Equal(t, 2, cfg.Structurer.DiagramGlyphMin)
		assert.Equal(t, 60, cfg.Structurer.DiagramMaxWidth)
		assert.Equal(t, 20, cfg.Structurer.DiagramMaxLines)
		assert.Equal(t, 5, cfg.Structurer.MaxQuestions)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolateEnv(t)

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ROOTLAB_PORT", "3000")
		t.Setenv("ROOTLAB_LOG_LEVEL", "warn")
		t.Setenv("ROOTLAB_METRICS_ENABLED", "false")
		t.Setenv("ROOTLAB_LESSON_PERSIST", "false")
		t.Setenv("ROOTLAB_STRUCTURER_MAX_QUESTIONS", "3")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.False(t, cfg.Lesson.Persist)
		assert.Equal(t, 3, cfg.Structurer.MaxQuestions)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ROOTLAB_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{
			"server": map[string]any{"port": 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitFile", func(t *testing.T) {
		isolateEnv(t)
		path := filepath.Join(t.TempDir(), "rootlab.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
lesson:
  default_level: beginner
structurer:
  diagram_max_lines: 8
ailink:
  default_provider: tutor
  providers:
    tutor:
      enabled: true
      ai_provider: openai
      base_url: http://localhost:11434/v1
      models:
        default: llama3
      credentials:
        - label: local
          api_key: unused
          enabled: true
`), 0o600))

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "beginner", cfg.Lesson.DefaultLevel)
		assert.Equal(t, 8, cfg.Structurer.DiagramMaxLines)
		assert.Equal(t, 5, cfg.Structurer.MaxQuestions)
		assert.Equal(t, "tutor", cfg.AILink.DefaultProvider)

		tutor, ok := cfg.AILink.Providers["tutor"]
		require.True(t, ok)
		assert.Equal(t, "openai", tutor.AIProvider)
		assert.Equal(t, "llama3", tutor.Models["default"])
		require.Len(t, tutor.Credentials, 1)
		assert.Equal(t, "unused", tutor.Credentials[0].APIKey)
	})

	t.Run("DiscoveredFile", func(t *testing.T) {
		isolateEnv(t)
		work := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(work, "config"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(work, "config", "config.yaml"), []byte("server:\n  port: 6060\n"), 0o600))
		t.Chdir(work)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6060, cfg.Server.Port)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolateEnv(t)
		_, err := LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestAPIKeyFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("GeminiKeyCreatesDefaultProvider", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "gemini", cfg.AILink.DefaultProvider)
		gemini, ok := cfg.AILink.Providers["gemini"]
		require.True(t, ok)
		assert.True(t, gemini.Enabled)
		require.Len(t, gemini.Credentials, 1)
		assert.Equal(t, "g-key", gemini.Credentials[0].APIKey)
	})

	t.Run("PrefixedKeyWins", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("GEMINI_API_KEY", "plain")
		t.Setenv("ROOTLAB_GEMINI_API_KEY", "prefixed")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "prefixed", cfg.AILink.Providers["gemini"].Credentials[0].APIKey)
	})
}

func TestAILinkDynamicEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ROOTLAB_AILINK_PROVIDERS_MY_GROK_ENABLED", "true")
	t.Setenv("ROOTLAB_AILINK_PROVIDERS_MY_GROK_AI_PROVIDER", "XAI")
	t.Setenv("ROOTLAB_AILINK_PROVIDERS_MY_GROK_MODELS_ADVANCED", "grok-4")
	t.Setenv("ROOTLAB_AILINK_PROVIDERS_MY_GROK_CREDENTIALS_0_API_KEY", "x-key")
	t.Setenv("ROOTLAB_AILINK_PROVIDERS_MY_GROK_CREDENTIALS_0_PRIORITY", "2")
	t.Setenv("ROOTLAB_AILINK_ROUTING_LESSON", "my-grok")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	grok, ok := cfg.AILink.Providers["my-grok"]
	require.True(t, ok)
	assert.True(t, grok.Enabled)
	assert.Equal(t, "xai", grok.AIProvider)
	assert.Equal(t, "grok-4", grok.Models["advanced"])
	require.Len(t, grok.Credentials, 1)
	assert.Equal(t, "x-key", grok.Credentials[0].APIKey)
	assert.Equal(t, 2, grok.Credentials[0].Priority)
	assert.Equal(t, "my-grok", cfg.AILink.Routing["lesson"])
}

func TestGetConfig(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
}

func TestEnvSpecs(t *testing.T) {
	names := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		names[spec.Name] = true
	}

	for _, name := range []string{
		"ROOTLAB_LOG_LEVEL", "ROOTLAB_PORT", "ROOTLAB_HOST",
		"ROOTLAB_METRICS_PORT", "ROOTLAB_DB_PATH", "ROOTLAB_LESSON_PERSIST",
	} {
		assert.True(t, names[name], "%s must be mapped", name)
	}
}

func TestDurationParsing(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ROOTLAB_READ_TIMEOUT", "45s")
	t.Setenv("ROOTLAB_AILINK_DEFAULT_TIMEOUT", "90s")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.AILink.DefaultTimeout)
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "lesson", toSlug("LESSON"))
	assert.Equal(t, "deep-dive", toSlug("DEEP__DIVE"))
	assert.Equal(t, "", toSlug(" "))
}
