// Package lesson generates structured lessons: it renders the lesson prompt,
// opens a provider stream, relays the text deltas to a sink and parses the
// finished text into a document.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/ailink/prompt"
	"github.com/rootlab/rootlab/internal/core/ratelimit"
	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/metrics"
	"github.com/rootlab/rootlab/internal/observability"
	"github.com/rootlab/rootlab/internal/relay"
)

// DefaultRole is the ailink routing role used for lessons.
const DefaultRole = "lesson"

// PromptSource looks up prompt definitions by slug.
type PromptSource interface {
	Get(slug string) (*prompt.Prompt, error)
}

// Store persists finished lessons.
type Store interface {
	SaveLesson(ctx context.Context, rec store.LessonRecord) error
}

// Result is a finished lesson.
type Result struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Level     Level             `json:"level"`
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	Text      string            `json:"text"`
	Document  document.Document `json:"document"`
	Tokens    int               `json:"tokens"`
	Stats     relay.Stats       `json:"stats"`
	CreatedAt time.Time         `json:"created_at"`
}

// Record converts the result into its history row.
func (r *Result) Record() store.LessonRecord {
	return store.LessonRecord{
		ID:        r.ID,
		Topic:     r.Topic,
		Level:     string(r.Level),
		Provider:  r.Provider,
		Model:     r.Model,
		Body:      r.Text,
		Tokens:    r.Tokens,
		Sections:  sectionNames(r.Document),
		CreatedAt: r.CreatedAt,
	}
}

// FromRecord rebuilds a result from a history row.
func FromRecord(rec *store.LessonRecord, parser *document.Parser) *Result {
	if parser == nil {
		parser = document.NewParser(document.DefaultOptions())
	}
	level, _ := ParseLevel(rec.Level)
	return &Result{
		ID:        rec.ID,
		Topic:     rec.Topic,
		Level:     level,
		Provider:  rec.Provider,
		Model:     rec.Model,
		Text:      rec.Body,
		Document:  parser.Parse(rec.Body),
		Tokens:    rec.Tokens,
		CreatedAt: rec.CreatedAt,
	}
}

// Generator produces lessons. All fields except Store and Logger are required.
type Generator struct {
	Prompts   PromptSource
	Providers *ailink.Registry
	Parser    *document.Parser
	Store     Store
	Logger    *logging.Logger
	// Limiter applies per-provider budgets and 429 backoff; nil disables it.
	Limiter *ratelimit.Limiter

	// Role selects the ailink routing entry; empty means DefaultRole.
	Role string
	// PromptSlug selects the lesson prompt; empty means prompt.LessonSlug.
	PromptSlug string
	// ReadSize overrides the relay read size.
	ReadSize int
}

var activeStreams atomic.Int64

// Generate runs a whole lesson, passing each delta to emit (which may be nil).
func (g *Generator) Generate(ctx context.Context, req Request, emit relay.EmitFunc) (*Result, error) {
	session, err := g.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx, emit)
}

// Open validates req, resolves a provider and connects to it. Errors
// returned here happen before any lesson text exists, so callers can still
// report them as a normal error response.
func (g *Generator) Open(ctx context.Context, req Request) (*Session, error) {
	level, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if g.Prompts == nil || g.Providers == nil {
		return nil, &ailink.ConfigError{Reason: "lesson generator is not configured"}
	}

	slug := g.PromptSlug
	if slug == "" {
		slug = prompt.LessonSlug
	}
	promptDef, err := g.Prompts.Get(slug)
	if err != nil {
		return nil, &ailink.ConfigError{Reason: err.Error()}
	}

	rule, _ := promptDef.DepthRule(level.Tier())
	messages, err := promptDef.Render(map[string]string{
		"topic":           strings.TrimSpace(req.Topic),
		"level":           string(level),
		"difficulty_rule": rule,
	})
	if err != nil {
		return nil, &ailink.ConfigError{Reason: err.Error()}
	}

	role := g.Role
	if role == "" {
		role = DefaultRole
	}
	resolved, err := g.Providers.Resolve(role, promptDef, req.Model, level.Tier())
	if err != nil {
		return nil, err
	}

	if err := g.Limiter.Take(ctx, resolved.ProviderID); err != nil {
		var limited *ratelimit.LimitedError
		if errors.As(err, &limited) {
			metrics.RecordLesson(resolved.ProviderID, level.Tier(), "rate_limited", 0)
			return nil, err
		}
		if g.Logger != nil {
			g.Logger.Warn("Rate limit state unavailable", append(observability.RequestFields(ctx),
				zap.String("provider", resolved.ProviderID), zap.Error(err))...)
		}
	}

	started := time.Now()
	stream, err := resolved.Driver.Stream(ctx, &driver.Request{
		Model:       resolved.Model,
		Messages:    messages,
		Temperature: promptDef.Temperature(),
		MaxTokens:   promptDef.MaxOutputTokens(),
		PromptSlug:  slug,
	})
	if err != nil {
		metrics.RecordLesson(resolved.ProviderID, level.Tier(), "upstream_error", time.Since(started))
		if perr, ok := driver.AsProviderError(err); ok && perr.StatusCode == http.StatusTooManyRequests {
			_ = g.Limiter.Record429(ctx, resolved.ProviderID, 0)
		}
		if g.Logger != nil {
			failure := ailink.ClassifyError(err)
			g.Logger.Warn("Upstream request failed", append(observability.RequestFields(ctx),
				zap.String("provider", resolved.ProviderID),
				zap.String("model", resolved.Model),
				zap.String("code", failure.Code),
				zap.Int("status", failure.StatusCode))...)
		}
		return nil, err
	}

	return &Session{
		gen:        g,
		req:        req,
		level:      level,
		providerID: resolved.ProviderID,
		model:      resolved.Model,
		stream:     stream,
		id:         uuid.NewString(),
		requestID:  observability.RequestIDFromContext(ctx),
		started:    started,
	}, nil
}

// Session is an open upstream stream waiting to be relayed. Run or Close
// must be called exactly once.
type Session struct {
	gen        *Generator
	req        Request
	level      Level
	providerID string
	model      string
	stream     *driver.Stream
	id         string
	requestID  string
	started    time.Time
}

// ID is the identifier the finished lesson will carry.
func (s *Session) ID() string { return s.id }

// Provider is the resolved provider instance id.
func (s *Session) Provider() string { return s.providerID }

// RequestID is the HTTP request ID the session was opened under, if any.
func (s *Session) RequestID() string { return s.requestID }

// logFields identifies the lesson, and the request when there is one.
func (s *Session) logFields(fields ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	out = append(out, zap.String("lesson_id", s.id))
	if s.requestID != "" {
		out = append(out, zap.String("request_id", s.requestID))
	}
	return append(out, fields...)
}

// Model is the resolved model.
func (s *Session) Model() string { return s.model }

// Level is the validated request level.
func (s *Session) Level() Level { return s.level }

// Close abandons the session without reading the stream.
func (s *Session) Close() error {
	return s.stream.Close()
}

// Run relays the stream to emit, then parses and optionally persists the
// lesson. A transport failure or a refused delta ends the run with an error
// and no result.
func (s *Session) Run(ctx context.Context, emit relay.EmitFunc) (*Result, error) {
	defer func() { _ = s.stream.Close() }()
	metrics.SetActiveStreams(activeStreams.Add(1))
	defer func() { metrics.SetActiveStreams(activeStreams.Add(-1)) }()

	g := s.gen
	var opts []relay.Option
	if g.ReadSize > 0 {
		opts = append(opts, relay.WithReadSize(g.ReadSize))
	}

	var text strings.Builder
	stats, err := relay.New(s.stream.Dialect, opts...).Run(ctx, s.stream.Body, func(delta string) error {
		text.WriteString(delta)
		if emit != nil {
			return emit(delta)
		}
		return nil
	})
	if err != nil {
		status := "transport_error"
		if errors.Is(err, relay.ErrEmit) || errors.Is(err, context.Canceled) {
			status = "cancelled"
		}
		metrics.RecordLesson(s.providerID, s.level.Tier(), status, time.Since(s.started))
		if g.Logger != nil {
			g.Logger.Warn("Lesson stream aborted", s.logFields(
				zap.String("provider", s.providerID),
				zap.String("status", status),
				zap.Int("deltas", stats.Deltas),
				zap.Error(err))...)
		}
		return nil, fmt.Errorf("lesson %s: %w", s.id, err)
	}

	parser := g.Parser
	if parser == nil {
		parser = document.NewParser(document.DefaultOptions())
	}
	body := text.String()
	doc := parser.Parse(body)

	result := &Result{
		ID:        s.id,
		Topic:     strings.TrimSpace(s.req.Topic),
		Level:     s.level,
		Provider:  s.providerID,
		Model:     s.model,
		Text:      body,
		Document:  doc,
		Tokens:    document.EstimateTokens(body),
		Stats:     stats,
		CreatedAt: time.Now().UTC(),
	}

	metrics.RecordStream(s.providerID, stats.Deltas, stats.Malformed, len(doc.Sections))
	metrics.RecordLesson(s.providerID, s.level.Tier(), "success", time.Since(s.started))

	if g.Logger != nil {
		g.Logger.Info("Lesson generated", s.logFields(
			zap.String("provider", s.providerID),
			zap.String("model", s.model),
			zap.String("level", string(s.level)),
			zap.Int("deltas", stats.Deltas),
			zap.Int("malformed", stats.Malformed),
			zap.Int("sections", len(doc.Sections)),
			zap.Int("tokens", result.Tokens),
			zap.Duration("duration", time.Since(s.started)))...)
		if doc.Empty() {
			g.Logger.Warn("Lesson has no section markers", s.logFields()...)
		}
	}

	if g.Store != nil && !s.req.NoSave {
		if err := g.Store.SaveLesson(ctx, result.Record()); err != nil && g.Logger != nil {
			g.Logger.Warn("Failed to persist lesson", s.logFields(zap.Error(err))...)
		}
	}

	return result, nil
}

func sectionNames(doc document.Document) []string {
	names := make([]string, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		names = append(names, string(sec.Key))
	}
	return names
}
