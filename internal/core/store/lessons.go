package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lesson id has no row.
var ErrNotFound = errors.New("lesson not found")

// LessonRecord is one persisted lesson. Body is the full generated text;
// the structured document is rebuilt from it on read.
type LessonRecord struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Body      string    `json:"body,omitempty"`
	Tokens    int       `json:"tokens"`
	Sections  []string  `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveLesson inserts or replaces a lesson.
func (s *Store) SaveLesson(ctx context.Context, rec LessonRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("lesson id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Sections == nil {
		rec.Sections = []string{}
	}

	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO lessons (id, topic, level, provider, model, body, tokens, sections, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id)
		 DO UPDATE SET topic = excluded.topic,
		               level = excluded.level,
		               provider = excluded.provider,
		               model = excluded.model,
		               body = excluded.body,
		               tokens = excluded.tokens,
		               sections = excluded.sections,
		               created_at = excluded.created_at`,
		rec.ID, rec.Topic, rec.Level, rec.Provider, rec.Model, rec.Body, rec.Tokens, string(sections), rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save lesson: %w", err)
	}
	return nil
}

// GetLesson returns the lesson with id or ErrNotFound.
func (s *Store) GetLesson(ctx context.Context, id string) (*LessonRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT id, topic, level, provider, model, body, tokens, sections, created_at
		 FROM lessons WHERE id = ?`, id)

	rec, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return rec, nil
}

// ListLessons returns up to limit lessons, newest first, without bodies.
func (s *Store) ListLessons(ctx context.Context, limit int) ([]LessonRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, topic, level, provider, model, '', tokens, sections, created_at
		 FROM lessons ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	lessons := []LessonRecord{}
	for rows.Next() {
		rec, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("list lessons: %w", err)
		}
		lessons = append(lessons, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// DeleteLesson removes a lesson. Deleting a missing id returns ErrNotFound.
func (s *Store) DeleteLesson(ctx context.Context, id string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*LessonRecord, error) {
	var (
		rec      LessonRecord
		sections string
		created  int64
	)
	if err := row.Scan(&rec.ID, &rec.Topic, &rec.Level, &rec.Provider, &rec.Model, &rec.Body, &rec.Tokens, &sections, &created); err != nil {
		return nil, err
	}
	if sections != "" {
		if err := json.Unmarshal([]byte(sections), &rec.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	if rec.Sections == nil {
		rec.Sections = []string{}
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}
