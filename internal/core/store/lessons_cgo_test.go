//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/rootlab/rootlab/internal/config"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/rootlab.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestLessonRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := LessonRecord{
		ID:        "lesson-1",
		Topic:     "Photosynthesis",
		Level:     "beginner",
		Provider:  "gemini",
		Model:     "gemini-1.5-flash",
		Body:      "🌱 ROOT\nPlants eat light.",
		Tokens:    7,
		Sections:  []string{"ROOT"},
		CreatedAt: created,
	}
	require.NoError(t, s.SaveLesson(ctx, rec))

	got, err := s.GetLesson(ctx, "lesson-1")
	require.NoError(t, err)
	require.Equal(t, rec, *got)

	rec.Tokens = 9
	require.NoError(t, s.SaveLesson(ctx, rec))
	got, err = s.GetLesson(ctx, "lesson-1")
	require.NoError(t, err)
	require.Equal(t, 9, got.Tokens)

	_, err = s.GetLesson(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListLessonsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveLesson(ctx, LessonRecord{
			ID:        id,
			Topic:     "topic " + id,
			Level:     "advanced",
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Body:      "body",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	lessons, err := s.ListLessons(ctx, 2)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	require.Equal(t, "c", lessons[0].ID)
	require.Equal(t, "b", lessons[1].ID)
	require.Empty(t, lessons[0].Body)
	require.Equal(t, []string{}, lessons[0].Sections)
}

func TestDeleteLesson(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveLesson(ctx, LessonRecord{ID: "gone", Topic: "t", Level: "beginner", Provider: "p", Model: "m", Body: "b"}))
	require.NoError(t, s.DeleteLesson(ctx, "gone"))
	require.ErrorIs(t, s.DeleteLesson(ctx, "gone"), ErrNotFound)
}

func TestSaveLessonRequiresID(t *testing.T) {
	s := openTestStore(t)
	require.Error(t, s.SaveLesson(context.Background(), LessonRecord{Topic: "t"}))
}
