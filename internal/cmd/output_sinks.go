package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rootlab/rootlab/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

// stdout reports whether the sink is the process's standard output.
func (s *outputSink) stdout() bool {
	return s.path == "-"
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a lesson topic into a file name stem.
func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "lesson"
	}
	return clean
}

func resolveOutputFormat(cmd *cobra.Command, fallback output.Format) (output.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value, fallback)
}

// resolveOutputPath combines --out and --out-dir. With --out-dir the file
// is named after the topic.
func resolveOutputPath(cmd *cobra.Command, topic string, format output.Format) (string, error) {
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outPath = strings.TrimSpace(outPath)
	outDir = strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	case outDir != "":
		return filepath.Join(outDir, sanitizeFilename(topic)+"."+outputExtension(format)), nil
	default:
		return outPath, nil
	}
}

// openSink opens path for writing; empty or "-" means w.
func openSink(path string, w io.Writer) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: w, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

func addOutputFlags(cmd *cobra.Command, defaultFormat output.Format) {
	cmd.Flags().StringP("format", "f", string(defaultFormat), "output format: terminal, markdown, json, text")
	cmd.Flags().StringP("out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().String("out-dir", "", "write output to <dir>/<topic>.<ext>")
	cmd.Flags().Int("width", 0, "wrap width for terminal output (default 100)")
	cmd.Flags().String("style", "", "glamour style for terminal output (default: auto)")
}
