package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/output"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Structure saved lesson text",
	Long: `Split lesson text into its sections and content blocks without calling
a model. Reads the file argument, or stdin when it is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig(cmd.Context())
		if err != nil {
			return err
		}
		format, err := resolveOutputFormat(cmd, output.FormatJSON)
		if err != nil {
			return err
		}

		var in io.Reader = cmd.InOrStdin()
		source := "stdin"
		if len(args) == 1 && args[0] != "-" {
			file, err := os.Open(args[0])
			if errors.Is(err, fs.ErrNotExist) {
				ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Lesson text not found", err)
			}
			if err != nil {
				return fmt.Errorf("open lesson text: %w", err)
			}
			defer file.Close() // nolint:errcheck // read-only
			in = file
			source = args[0]
		}

		path, _ := cmd.Flags().GetString("out")
		sink, err := openSink(path, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		width, _ := cmd.Flags().GetInt("width")
		style, _ := cmd.Flags().GetString("style")
		return runParse(in, sink.writer, newParser(cfg), parseOptions{Source: source, Format: format, Width: width, Style: style})
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	addOutputFlags(parseCmd, output.FormatJSON)
	_ = parseCmd.Flags().MarkHidden("out-dir")
}

type parseOptions struct {
	Source string
	Format output.Format
	Width  int
	Style  string
}

// runParse reads lesson text from in and writes the structured form to w.
func runParse(in io.Reader, w io.Writer, parser *document.Parser, opts parseOptions) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read lesson text: %w", err)
	}
	text := string(raw)

	result := &lesson.Result{
		Topic:    opts.Source,
		Text:     text,
		Document: parser.Parse(text),
		Tokens:   document.EstimateTokens(text),
	}

	if opts.Format == output.FormatJSON {
		// The document alone, as served by POST /api/parse.
		rendered, err := (&output.JSONFormatter{Indent: true}).FormatValue(result.Document)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, rendered+"\n")
		return err
	}
	return renderLesson(w, result, opts.Format, opts.Width, opts.Style)
}
