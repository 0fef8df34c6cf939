package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/ailink/prompt"
	"github.com/rootlab/rootlab/internal/config"
	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/server/handlers"
)

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
)

func (s checkStatus) icon() string {
	switch s {
	case checkOK:
		return "✅"
	case checkWarn:
		return "⚠️ "
	default:
		return "❌"
	}
}

// doctorCheck is one diagnostic line.
type doctorCheck struct {
	Name   string
	Status checkStatus
	Detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, configuration, lesson store, prompts and providers, and suggest fixes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig(cmd.Context())
		if err != nil {
			return err
		}

		logger := observability.CLILogger
		logger.Info("=== " + appIdentity.BinaryName + " doctor ===")
		logger.Info("")

		checks := runDoctorChecks(cmd.Context(), cfg)
		healthy := true
		for i, c := range checks {
			line := fmt.Sprintf("[%d/%d] %s... %s %s", i+1, len(checks), c.Name, c.Status.icon(), c.Detail)
			switch c.Status {
			case checkOK:
				logger.Info(line)
			case checkWarn:
				logger.Warn(line)
			default:
				healthy = false
				logger.Error(line)
			}
		}

		logger.Info("")
		if healthy {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is ready.", appIdentity.BinaryName))
			return nil
		}
		logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		return fmt.Errorf("doctor found problems")
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file to $XDG_CONFIG_HOME/rootlab/config.yaml.
API keys are read from GEMINI_API_KEY, OPENAI_API_KEY or XAI_API_KEY, so
the file does not need to hold secrets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(starterConfig), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
}

const starterConfig = `# RootLab configuration
server:
  host: localhost
  port: 8080
  write_timeout: 5m

lesson:
  default_level: intermediate
  persist: true

ailink:
  default_provider: gemini
  routing:
    lesson: gemini
  providers:
    gemini:
      enabled: true
      ai_provider: gemini
      models:
        default: gemini-1.5-flash
        advanced: gemini-1.5-pro
      credentials:
        - label: default
          enabled: true
          # api_key: set GEMINI_API_KEY instead

structurer:
  diagram_glyph_min: 2
  diagram_max_width: 60
  diagram_max_lines: 20
  max_questions: 5

logging:
  level: info
  profile: STRUCTURED
`

func runDoctorChecks(ctx context.Context, cfg *config.Config) []doctorCheck {
	checks := []doctorCheck{{Name: "Checking Go version", Status: checkOK, Detail: runtime.Version()}}

	version := crucible.GetVersion()
	if version.Gofulmen != "" {
		checks = append(checks, doctorCheck{Name: "Checking Gofulmen", Status: checkOK, Detail: "v" + version.Gofulmen})
	} else {
		checks = append(checks, doctorCheck{Name: "Checking Gofulmen", Status: checkWarn, Detail: "version unknown"})
	}

	if path := config.DefaultConfigPath(); path == "" {
		checks = append(checks, doctorCheck{Name: "Checking config file", Status: checkWarn, Detail: "config directory not resolved"})
	} else if _, err := os.Stat(path); err == nil {
		checks = append(checks, doctorCheck{Name: "Checking config file", Status: checkOK, Detail: path})
	} else {
		checks = append(checks, doctorCheck{Name: "Checking config file", Status: checkWarn, Detail: path + " (not created; run 'rootlab doctor init')"})
	}

	checks = append(checks, checkStore(ctx, cfg))
	checks = append(checks, checkPrompts(cfg))
	checks = append(checks, checkProviders(ctx, cfg))
	return checks
}

func checkStore(ctx context.Context, cfg *config.Config) doctorCheck {
	c := doctorCheck{Name: "Checking lesson store"}
	if !cfg.Store.Enabled {
		c.Status, c.Detail = checkWarn, "disabled (history is not kept)"
		return c
	}

	location := cfg.Store.URL
	if location == "" {
		location, _ = filepath.Abs(cfg.Store.Path)
		if info, err := os.Stat(location); err == nil {
			location = fmt.Sprintf("%s (%s)", location, formatFileSize(info.Size()))
		}
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		c.Status, c.Detail = checkFail, fmt.Sprintf("%s: %v", location, err)
		return c
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.CheckHealth(ctx); err != nil {
		c.Status, c.Detail = checkFail, fmt.Sprintf("%s: %v", location, err)
		return c
	}
	c.Status, c.Detail = checkOK, location
	return c
}

func checkPrompts(cfg *config.Config) doctorCheck {
	c := doctorCheck{Name: "Checking lesson prompt"}
	reg, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		c.Status, c.Detail = checkFail, err.Error()
		return c
	}
	if _, err := reg.Get(prompt.LessonSlug); err != nil {
		c.Status, c.Detail = checkFail, err.Error()
		return c
	}
	c.Status, c.Detail = checkOK, prompt.LessonSlug
	if cfg.AILink.PromptsDir != "" {
		c.Detail += " (overrides from " + cfg.AILink.PromptsDir + ")"
	}
	return c
}

func checkProviders(ctx context.Context, cfg *config.Config) doctorCheck {
	c := doctorCheck{Name: "Checking providers"}
	if err := handlers.ProvidersChecker(cfg.AILink).CheckHealth(ctx); err != nil {
		c.Status = checkFail
		c.Detail = "none usable (set GEMINI_API_KEY, OPENAI_API_KEY or XAI_API_KEY)"
		return c
	}

	var ids []string
	for id, p := range cfg.AILink.Providers {
		if p.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	c.Status, c.Detail = checkOK, strings.Join(ids, ", ")
	return c
}

func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
