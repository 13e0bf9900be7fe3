package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/xuri/excelize/v2"
)

func newExportFixture(t *testing.T) (*memoryRepository, ResultExportService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemoryRepository()
	repo.addCourse(testCourseID, testInstructor, testStudent)
	return repo, NewResultExportService(repo, nil, logger)
}

func TestResultExportService_ExportQuizResults(t *testing.T) {
	t.Run("writes one row per submitted attempt", func(t *testing.T) {
		repo, service := newExportFixture(t)
		quiz := seedQuiz(t, repo, nil)

		submittedAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		submitted := &models.QuizAttempt{
			QuizID:      quiz.ID,
			StudentID:   testStudent,
			Status:      models.AttemptSubmitted,
			SubmittedAt: &submittedAt,
			Score:       60,
			TotalMarks:  100,
			Percentage:  60,
			Passed:      true,
		}
		if err := repo.Attempt().Create(context.Background(), nil, submitted); err != nil {
			t.Fatalf("seed submitted attempt: %v", err)
		}
		inProgress := &models.QuizAttempt{
			QuizID:    quiz.ID,
			StudentID: "student-2",
			Status:    models.AttemptInProgress,
		}
		if err := repo.Attempt().Create(context.Background(), nil, inProgress); err != nil {
			t.Fatalf("seed in-progress attempt: %v", err)
		}

		data, filename, err := service.ExportQuizResults(context.Background(), quiz.ID, testInstructor)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if want := "quiz_1_results.xlsx"; filename != want {
			t.Errorf("filename = %q, want %q", filename, want)
		}

		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()

		rows, err := f.GetRows("Results")
		if err != nil {
			t.Fatalf("read rows: %v", err)
		}
		// Header plus the single submitted attempt
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		for i, header := range exportHeaders {
			if rows[0][i] != header {
				t.Errorf("header[%d] = %q, want %q", i, rows[0][i], header)
			}
		}
		if rows[1][1] != testStudent {
			t.Errorf("student = %q, want %q", rows[1][1], testStudent)
		}
		if rows[1][2] != "60" {
			t.Errorf("score = %q, want 60", rows[1][2])
		}
		if rows[1][6] != "2026-03-14T10:30:00Z" {
			t.Errorf("submitted at = %q", rows[1][6])
		}
	})

	t.Run("exports headers only when nothing was submitted", func(t *testing.T) {
		repo, service := newExportFixture(t)
		quiz := seedQuiz(t, repo, nil)

		data, _, err := service.ExportQuizResults(context.Background(), quiz.ID, testInstructor)
		if err != nil {
			t.Fatalf("export: %v", err)
		}

		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()

		rows, err := f.GetRows("Results")
		if err != nil {
			t.Fatalf("read rows: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("rows = %d, want header only", len(rows))
		}
	})

	t.Run("denies export to non-owners", func(t *testing.T) {
		repo, service := newExportFixture(t)
		quiz := seedQuiz(t, repo, nil)

		_, _, err := service.ExportQuizResults(context.Background(), quiz.ID, "instructor-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("err = %v, want PermissionError", err)
		}
	})

	t.Run("reports missing quizzes", func(t *testing.T) {
		_, service := newExportFixture(t)

		_, _, err := service.ExportQuizResults(context.Background(), 999, testInstructor)
		if !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("err = %v, want ErrQuizNotFound", err)
		}
	})
}
