package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored lessons",
	Long:  "List recently generated lessons, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadedConfig(ctx)
		if err != nil {
			return err
		}
		format, err := resolveOutputFormat(cmd, output.FormatTable)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Lesson.HistoryLimit
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListLessons(ctx, limit)
		if err != nil {
			return err
		}
		rendered, err := output.FormatHistory(format, records)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), rendered+"\n")
		return err
	},
}

var historyRmCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"delete"},
	Short:   "Delete stored lessons",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadedConfig(ctx)
		if err != nil {
			return err
		}
		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		for _, id := range args {
			if err := db.DeleteLesson(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			observability.CLILogger.Info("Deleted lesson", zap.String("lesson_id", id))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRmCmd)

	historyCmd.Flags().StringP("format", "f", string(output.FormatTable), "output format: table, markdown, json")
	historyCmd.Flags().IntP("limit", "n", 0, "maximum lessons to list (default from lesson.history_limit)")
}
