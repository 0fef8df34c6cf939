package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/config"
	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/output"
)

const sampleLesson = "🌱 ROOT\nPlants turn light into sugar.\n\n🌰 SEEDS\n1. Why green?\n"

func fakeGemini(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]any{
				"candidates": []any{map[string]any{
					"content": map[string]any{"parts": []any{map[string]any{"text": d}}},
				}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Enabled: false},
		AILink: ailink.Config{
			DefaultProvider: "gemini",
			Providers: map[string]ailink.ProviderInstanceConfig{
				"gemini": {
					Enabled:     true,
					AIProvider:  "gemini",
					BaseURL:     baseURL,
					Models:      map[string]string{"default": "gemini-1.5-flash"},
					Credentials: []ailink.CredentialConfig{{Enabled: true, Label: "test", APIKey: "k"}},
				},
			},
		},
		Structurer: document.DefaultOptions(),
		Lesson:     config.LessonConfig{DefaultLevel: "intermediate", HistoryLimit: 50},
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "raft-consensus", sanitizeFilename("  Raft Consensus! "))
	assert.Equal(t, "lesson", sanitizeFilename("🌱"))
	assert.Equal(t, "c.go", sanitizeFilename("C.go"))
}

func TestResolveOutputPath(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x"}
		addOutputFlags(c, output.FormatTerminal)
		return c
	}

	c := newCmd()
	require.NoError(t, c.Flags().Set("out-dir", "lessons"))
	path, err := resolveOutputPath(c, "Raft Consensus", output.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("lessons", "raft-consensus.md"), path)

	c = newCmd()
	require.NoError(t, c.Flags().Set("out", "a.json"))
	require.NoError(t, c.Flags().Set("out-dir", "b"))
	_, err = resolveOutputPath(c, "x", output.FormatJSON)
	assert.Error(t, err)

	c = newCmd()
	path, err = resolveOutputPath(c, "x", output.FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestOpenSink(t *testing.T) {
	var buf bytes.Buffer
	sink, err := openSink("-", &buf)
	require.NoError(t, err)
	assert.True(t, sink.stdout())

	path := filepath.Join(t.TempDir(), "nested", "out.md")
	sink, err = openSink(path, &buf)
	require.NoError(t, err)
	assert.False(t, sink.stdout())
	_, err = io.WriteString(sink.writer, "hello")
	require.NoError(t, err)
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRunParseJSON(t *testing.T) {
	var out bytes.Buffer
	err := runParse(strings.NewReader(sampleLesson), &out, document.NewParser(document.DefaultOptions()), parseOptions{Format: output.FormatJSON})
	require.NoError(t, err)

	var doc struct {
		Sections []struct {
			Key       string `json:"key"`
			Questions []any  `json:"questions"`
			Blocks    []any  `json:"blocks"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "ROOT", doc.Sections[0].Key)
	assert.Len(t, doc.Sections[0].Blocks, 1)
	assert.Len(t, doc.Sections[1].Questions, 1)
}

func TestRunParseMarkdownAndText(t *testing.T) {
	parser := document.NewParser(document.DefaultOptions())

	var md bytes.Buffer
	require.NoError(t, runParse(strings.NewReader(sampleLesson), &md, parser, parseOptions{Source: "notes.txt", Format: output.FormatMarkdown}))
	assert.Contains(t, md.String(), "# notes.txt")
	assert.Contains(t, md.String(), "## 🌱 ROOT")

	var text bytes.Buffer
	require.NoError(t, runParse(strings.NewReader(sampleLesson), &text, parser, parseOptions{Format: output.FormatText}))
	assert.Equal(t, sampleLesson, text.String())
}

func TestRunLearnStreamsText(t *testing.T) {
	srv := fakeGemini(t, "🌱 ROOT\nPlants turn ", "light into sugar.\n\n", "🌰 SEEDS\n1. Why green?\n")
	gen, err := newGenerator(testConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := runLearn(context.Background(), gen, learnOptions{
		Request: lesson.Request{Topic: "Photosynthesis", Level: "BEG"},
		Format:  output.FormatText,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, sampleLesson, result.Text)
	assert.Equal(t, sampleLesson+"\n", out.String())
	assert.Equal(t, lesson.Beginner, result.Level)
}

func TestRunLearnMarkdown(t *testing.T) {
	srv := fakeGemini(t, sampleLesson)
	gen, err := newGenerator(testConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = runLearn(context.Background(), gen, learnOptions{
		Request: lesson.Request{Topic: "Photosynthesis", Level: "Advanced"},
		Format:  output.FormatMarkdown,
	}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "# Photosynthesis\n"))
	assert.Contains(t, out.String(), "**Q01** Why green?")
}

func TestRunLearnValidation(t *testing.T) {
	gen, err := newGenerator(testConfig("http://127.0.0.1:1"), nil, nil)
	require.NoError(t, err)

	_, err = runLearn(context.Background(), gen, learnOptions{
		Request: lesson.Request{Topic: "x", Level: "expert"},
		Format:  output.FormatJSON,
	}, io.Discard)
	assert.ErrorIs(t, err, lesson.ErrInvalidLevel)
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, foundry.ExitConfigInvalid, exitCodeFor(fmt.Errorf("open: %w", &ailink.ConfigError{Reason: "no key"})))
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, exitCodeFor(&driver.ProviderError{Provider: "gemini", StatusCode: 429}))
	assert.Equal(t, foundry.ExitFailure, exitCodeFor(lesson.ErrMissingTopic))
}

func TestDoctorChecks(t *testing.T) {
	cfg := testConfig("")

	providers := checkProviders(context.Background(), cfg)
	assert.Equal(t, checkOK, providers.Status)
	assert.Equal(t, "gemini", providers.Detail)

	cfg.AILink.Providers = nil
	assert.Equal(t, checkFail, checkProviders(context.Background(), cfg).Status)

	prompts := checkPrompts(cfg)
	assert.Equal(t, checkOK, prompts.Status)

	st := checkStore(context.Background(), cfg)
	assert.Equal(t, checkWarn, st.Status)
}

func TestOpenStoreDisabled(t *testing.T) {
	_, err := openStore(context.Background(), testConfig(""))
	assert.ErrorIs(t, err, errHistoryDisabled)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Equal(t, "rootlab 1.2.3\n", out.String())
}
