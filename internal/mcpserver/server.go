// Package mcpserver exposes lesson generation as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/output"
	"github.com/rootlab/rootlab/internal/relay"
)

// Tool names.
const (
	ToolGenerateLesson = "generate_lesson"
	ToolParseLesson    = "parse_lesson"
)

// Generator runs a whole lesson. *lesson.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req lesson.Request, emit relay.EmitFunc) (*lesson.Result, error)
}

// GenerateLessonInput is the generate_lesson argument object.
type GenerateLessonInput struct {
	Topic string `json:"topic" jsonschema:"the subject to teach"`
	Level string `json:"level,omitempty" jsonschema:"Advanced, Intermediate or Beginner (ADV, MID, BEG also accepted)"`
}

// ParseLessonInput is the parse_lesson argument object.
type ParseLessonInput struct {
	Text string `json:"text" jsonschema:"lesson text containing section markers such as 🌱 ROOT"`
}

// SectionSummary is the schema-friendly form of one parsed section.
type SectionSummary struct {
	Key       string   `json:"key"`
	Heading   string   `json:"heading"`
	Body      string   `json:"body"`
	Blocks    int      `json:"blocks"`
	Questions []string `json:"questions,omitempty"`
}

// LessonOutput is the structured result of both tools.
type LessonOutput struct {
	ID       string           `json:"id,omitempty"`
	Topic    string           `json:"topic,omitempty"`
	Level    string           `json:"level,omitempty"`
	Provider string           `json:"provider,omitempty"`
	Model    string           `json:"model,omitempty"`
	Tokens   int              `json:"tokens"`
	Complete bool             `json:"complete"`
	Sections []SectionSummary `json:"sections"`
}

// Server wraps an MCP server with the lesson tools registered.
type Server struct {
	server       *mcp.Server
	generator    Generator
	parser       *document.Parser
	defaultLevel string
	logger       *logging.Logger
}

// Options configures New.
type Options struct {
	Version      string
	Parser       *document.Parser
	DefaultLevel string
	Logger       *logging.Logger
}

// New builds the MCP server.
func New(gen Generator, opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	parser := opts.Parser
	if parser == nil {
		parser = document.NewParser(document.DefaultOptions())
	}

	s := &Server{
		server:       mcp.NewServer(&mcp.Implementation{Name: "rootlab", Version: version}, nil),
		generator:    gen,
		parser:       parser,
		defaultLevel: opts.DefaultLevel,
		logger:       opts.Logger,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGenerateLesson,
		Description: "Generate a five-section lesson (ROOT, CORE, BRANCHES, FRUIT, SEEDS) on a topic at a difficulty level.",
	}, s.generateLesson)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolParseLesson,
		Description: "Split lesson text into its sections and content blocks without calling a model.",
	}, s.parseLesson)

	return s
}

// MCP returns the underlying server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) generateLesson(ctx context.Context, _ *mcp.CallToolRequest, in GenerateLessonInput) (*mcp.CallToolResult, LessonOutput, error) {
	if s.generator == nil {
		return nil, LessonOutput{}, fmt.Errorf("lesson generation is not configured")
	}

	level := in.Level
	if strings.TrimSpace(level) == "" {
		level = s.defaultLevel
	}

	result, err := s.generator.Generate(ctx, lesson.Request{Topic: in.Topic, Level: level}, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("MCP lesson generation failed", zap.String("tool", ToolGenerateLesson), zap.Error(err))
		}
		return nil, LessonOutput{}, err
	}

	md, err := (&output.MarkdownFormatter{}).FormatLesson(result)
	if err != nil {
		return nil, LessonOutput{}, err
	}

	out := summarize(result.Document)
	out.ID = result.ID
	out.Topic = result.Topic
	out.Level = string(result.Level)
	out.Provider = result.Provider
	out.Model = result.Model
	out.Tokens = result.Tokens

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: md}},
	}, out, nil
}

func (s *Server) parseLesson(_ context.Context, _ *mcp.CallToolRequest, in ParseLessonInput) (*mcp.CallToolResult, LessonOutput, error) {
	doc := s.parser.Parse(in.Text)
	out := summarize(doc)
	out.Tokens = document.EstimateTokens(in.Text)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output.RenderDocument(doc, in.Text)}},
	}, out, nil
}

func summarize(doc document.Document) LessonOutput {
	out := LessonOutput{
		Complete: doc.Complete(),
		Sections: make([]SectionSummary, 0, len(doc.Sections)),
	}
	for _, sec := range doc.Sections {
		summary := SectionSummary{
			Key:     string(sec.Key),
			Heading: sec.Key.Heading(),
			Body:    sec.TrimmedBody(),
			Blocks:  len(sec.Blocks),
		}
		for _, q := range sec.Questions {
			summary.Questions = append(summary.Questions, q.Raw)
		}
		out.Sections = append(out.Sections, summary)
	}
	return out
}
