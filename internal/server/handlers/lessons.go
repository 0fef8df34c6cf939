package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/document"
	apperrors "github.com/rootlab/rootlab/internal/errors"
	"github.com/rootlab/rootlab/internal/lesson"
	"github.com/rootlab/rootlab/internal/observability"
)

// maxRequestBytes bounds JSON and plain-text request bodies.
const maxRequestBytes = 1 << 20

// LessonOpener starts a lesson stream. *lesson.Generator satisfies it.
type LessonOpener interface {
	Open(ctx context.Context, req lesson.Request) (*lesson.Session, error)
}

// HistoryStore reads and deletes persisted lessons. *store.Store satisfies it.
type HistoryStore interface {
	GetLesson(ctx context.Context, id string) (*store.LessonRecord, error)
	ListLessons(ctx context.Context, limit int) ([]store.LessonRecord, error)
	DeleteLesson(ctx context.Context, id string) error
}

// LessonHandlers serves the lesson API.
type LessonHandlers struct {
	Generator    LessonOpener
	History      HistoryStore
	Parser       *document.Parser
	HistoryLimit int
	// DefaultLevel fills requests that omit a level. Empty means the level
	// is required.
	DefaultLevel string
}

// Chat streams lesson text as it arrives. Errors raised before the first
// byte are answered with a JSON envelope; once the 200 is sent, a failure
// aborts the connection so the client sees a truncated body rather than
// a successful one.
func (h *LessonHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	session, err := h.Generator.Open(r.Context(), req)
	if err != nil {
		respondLessonError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Lesson-ID", session.ID())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_, err = session.Run(r.Context(), func(delta string) error {
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Aborting lesson stream", append(observability.RequestFields(r.Context()),
				zap.String("lesson_id", session.ID()),
				zap.String("provider", session.Provider()),
				zap.Error(err))...)
		}
		panic(http.ErrAbortHandler)
	}
}

// Create generates a whole lesson and returns it as JSON.
func (h *LessonHandlers) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	session, err := h.Generator.Open(r.Context(), req)
	if err != nil {
		respondLessonError(w, r, err)
		return
	}
	result, err := session.Run(r.Context(), nil)
	if err != nil {
		respondLessonError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List returns recent lessons without bodies. ?limit= overrides the
// configured history limit.
func (h *LessonHandlers) List(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondWithError(w, r, apperrors.NewUnavailableError("lesson history is disabled"))
		return
	}

	limit := h.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	lessons, err := h.History.ListLessons(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list lessons"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

// Get returns one lesson with its document rebuilt from the stored text.
func (h *LessonHandlers) Get(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondWithError(w, r, apperrors.NewUnavailableError("lesson history is disabled"))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.History.GetLesson(r.Context(), id)
	if err != nil {
		respondWithError(w, r, historyErrorEnvelope(r.Context(), id, err))
		return
	}

	writeJSON(w, http.StatusOK, lesson.FromRecord(rec, h.Parser))
}

// Delete removes one lesson.
func (h *LessonHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondWithError(w, r, apperrors.NewUnavailableError("lesson history is disabled"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.History.DeleteLesson(r.Context(), id); err != nil {
		respondWithError(w, r, historyErrorEnvelope(r.Context(), id, err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Parse structures a plain-text lesson body without calling a provider.
func (h *LessonHandlers) Parse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "failed to read request body"))
		return
	}

	parser := h.Parser
	if parser == nil {
		parser = document.NewParser(document.DefaultOptions())
	}
	writeJSON(w, http.StatusOK, parser.Parse(string(body)))
}

func (h *LessonHandlers) decodeRequest(w http.ResponseWriter, r *http.Request) (lesson.Request, bool) {
	var req lesson.Request
	if h.Generator == nil {
		respondWithError(w, r, apperrors.NewUnavailableError("lesson generation is not configured"))
		return req, false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON object with topic and level"))
		return req, false
	}
	if strings.TrimSpace(req.Level) == "" {
		req.Level = h.DefaultLevel
	}
	if _, err := req.Validate(); err != nil {
		respondLessonError(w, r, err)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
