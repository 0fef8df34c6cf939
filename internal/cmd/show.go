package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored lesson",
	Long:  "Render a lesson from history. The stored text is parsed again, so structurer settings apply.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadedConfig(ctx)
		if err != nil {
			return err
		}
		format, err := resolveOutputFormat(cmd, output.FormatTerminal)
		if err != nil {
			return err
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		rec, err := db.GetLesson(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lesson %s not found", args[0])
		}
		if err != nil {
			return err
		}
		result := lesson.FromRecord(rec, newParser(cfg))

		path, err := resolveOutputPath(cmd, result.Topic, format)
		if err != nil {
			return err
		}
		sink, err := openSink(path, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()
		if !sink.stdout() && format == output.FormatTerminal {
			format = output.FormatMarkdown
		}

		width, _ := cmd.Flags().GetInt("width")
		style, _ := cmd.Flags().GetString("style")
		return renderLesson(sink.writer, result, format, width, style)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	addOutputFlags(showCmd, output.FormatTerminal)
}

func renderLesson(w io.Writer, result *lesson.Result, format output.Format, width int, style string) error {
	var formatter output.Formatter
	if format == output.FormatTerminal {
		formatter = &output.TerminalFormatter{Width: width, Style: style}
	} else {
		formatter = output.NewFormatter(format)
	}
	rendered, err := formatter.FormatLesson(result)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, rendered); err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
