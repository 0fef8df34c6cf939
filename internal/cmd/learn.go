package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/output"
)

var learnCmd = &cobra.Command{
	Use:   "learn <topic>",
	Short: "Generate a lesson on a topic",
	Long: `Generate a five-section lesson on a topic and stream it to the terminal.

Levels: Advanced (ADV), Intermediate (MID), Beginner (BEG). The terminal
and text formats show the lesson while it streams; markdown and json are
written once the lesson is complete.

Examples:
  rootlab learn "Photosynthesis" --level beginner
  rootlab learn "Raft consensus" -l ADV -f markdown -o raft.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLearnCmd,
}

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().StringP("level", "l", "", "difficulty: advanced, intermediate, beginner (default from lesson.default_level)")
	learnCmd.Flags().String("model", "", "model override")
	learnCmd.Flags().Bool("no-save", false, "do not store the lesson in history")
	addOutputFlags(learnCmd, output.FormatTerminal)
}

type learnOptions struct {
	Request lesson.Request
	Format  output.Format
	Width   int
	Style   string
}

func runLearnCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}

	format, err := resolveOutputFormat(cmd, output.FormatTerminal)
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("level")
	if strings.TrimSpace(level) == "" {
		level = cfg.Lesson.DefaultLevel
	}
	model, _ := cmd.Flags().GetString("model")
	noSave, _ := cmd.Flags().GetBool("no-save")
	width, _ := cmd.Flags().GetInt("width")
	style, _ := cmd.Flags().GetString("style")

	opts := learnOptions{
		Request: lesson.Request{
			Topic:  strings.Join(args, " "),
			Level:  level,
			Model:  model,
			NoSave: noSave,
		},
		Format: format,
		Width:  width,
		Style:  style,
	}

	path, err := resolveOutputPath(cmd, opts.Request.Topic, format)
	if err != nil {
		return err
	}
	sink, err := openSink(path, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	// Styled streaming only makes sense on a terminal.
	if !sink.stdout() && opts.Format == output.FormatTerminal {
		opts.Format = output.FormatMarkdown
	}

	gen, cleanup, err := openGenerator(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runLearn(ctx, gen, opts, sink.writer)
	if err != nil {
		ExitWithCode(observability.CLILogger, exitCodeFor(err), "Lesson generation failed", err)
		return err
	}

	observability.CLILogger.Info(fmt.Sprintf("Lesson %s · ~%d tokens", result.ID, result.Tokens),
		zap.String("lesson_id", result.ID),
		zap.String("provider", result.Provider),
		zap.String("model", result.Model),
		zap.Int("sections", len(result.Document.Sections)),
		zap.String("out", sink.path))
	return nil
}

// runLearn generates one lesson and writes it to w. Text and terminal
// formats stream; the others are rendered from the finished result.
func runLearn(ctx context.Context, gen *lesson.Generator, opts learnOptions, w io.Writer) (*lesson.Result, error) {
	switch opts.Format {
	case output.FormatText, output.FormatTerminal:
		stream, err := output.NewStreamRenderer(w, opts.Format == output.FormatText, opts.Width, opts.Style)
		if err != nil {
			return nil, err
		}
		result, err := gen.Generate(ctx, opts.Request, stream.Write)
		if err != nil {
			return nil, err
		}
		if err := stream.Flush(); err != nil {
			return nil, err
		}
		return result, nil
	}

	result, err := gen.Generate(ctx, opts.Request, nil)
	if err != nil {
		return nil, err
	}
	if err := renderLesson(w, result, opts.Format, opts.Width, opts.Style); err != nil {
		return nil, err
	}
	return result, nil
}
