package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type resultExportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewResultExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ResultExportService {
	return &resultExportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

var exportHeaders = []string{"Attempt ID", "Student ID", "Score", "Total Marks", "Percentage", "Passed", "Submitted At"}

// ExportQuizResults builds an xlsx sheet of submitted attempts for a quiz
// the caller owns.
func (s *resultExportService) ExportQuizResults(ctx context.Context, quizID uint, userID string) ([]byte, string, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrQuizNotFound
		}
		return nil, "", fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.InstructorID != userID {
		return nil, "", NewPermissionError(userID, quizID, "quiz", "export_results", "not the quiz owner")
	}

	submitted := models.AttemptSubmitted
	attempts, _, err := s.repo.Attempt().ListByQuiz(ctx, s.db, quizID, repositories.AttemptFilters{
		Status: &submitted,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, "", fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, attempt := range attempts {
		submittedAt := ""
		if attempt.SubmittedAt != nil {
			submittedAt = attempt.SubmittedAt.UTC().Format(time.RFC3339)
		}
		values := []interface{}{
			attempt.ID,
			attempt.StudentID,
			attempt.Score,
			attempt.TotalMarks,
			attempt.Percentage,
			attempt.Passed,
			submittedAt,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, "", fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("quiz_%d_results.xlsx", quizID)
	s.logger.Info("Quiz results exported", "quiz_id", quizID, "attempt_count", len(attempts), "filename", filename)

	return buf.Bytes(), filename, nil
}
