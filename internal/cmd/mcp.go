package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/mcpserver"
	"github.com/rootlab/rootlab/internal/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve lesson tools over the Model Context Protocol (stdio)",
	Long: `Run an MCP server on stdin/stdout exposing two tools:

  generate_lesson  topic + level -> rendered lesson and its sections
  parse_lesson     lesson text -> sections, without calling a model

Logs go to stderr; stdout carries protocol frames only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadedConfig(ctx)
		if err != nil {
			return err
		}

		observability.InitServerLogger(appIdentity.BinaryName, observability.ServerLoggerOptions{
			Level:     cfg.Logging.Level,
			Profile:   cfg.Logging.Profile,
			Namespace: appIdentity.BinaryName,
		})
		logger := observability.ServerLogger

		gen, cleanup, err := openGenerator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcpserver.New(gen, mcpserver.Options{
			Version:      versionInfo.Version,
			Parser:       gen.Parser,
			DefaultLevel: cfg.Lesson.DefaultLevel,
			Logger:       logger,
		})

		logger.Info("Serving MCP over stdio", zap.String("version", versionInfo.Version))
		if err := srv.Run(ctx); err != nil {
			logger.Error("MCP server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
