package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"github.com/eduflow-platform/quiz-service/internal/validator"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	events    NotificationEventService
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, events NotificationEventService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		events:    events,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt", "quiz_id", req.QuizID, "student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if !quiz.IsPublished {
		return nil, ErrQuizNotPublished
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, quiz.CourseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("enrollment check failed: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}
	if !quiz.VisibleToStudent(studentID, quiz.CourseID) {
		return nil, ErrQuizNotFound
	}

	attempt := &models.QuizAttempt{
		QuizID:     quiz.ID,
		StudentID:  studentID,
		Status:     models.AttemptInProgress,
		StartedAt:  time.Now().UTC(),
		TotalMarks: quiz.TotalMarks,
	}

	// The duplicate check and the insert share a transaction so a
	// concurrent submit cannot slip a submitted attempt in between the
	// check and the insert.
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if !quiz.AllowMultipleAttempts {
			taken, err := txRepo.Attempt().HasAttempt(ctx, nil, quiz.ID, studentID)
			if err != nil {
				return fmt.Errorf("failed to check existing attempts: %w", err)
			}
			if taken {
				return ErrQuizAlreadyAttempted
			}
		}
		if err := txRepo.Attempt().Create(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishAttemptStarted(ctx, attempt); err != nil {
		s.logger.Warn("Failed to publish attempt.started event", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "quiz_id", quiz.ID, "student_id", studentID)

	return &AttemptResponse{QuizAttempt: attempt}, nil
}

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting attempt", "attempt_id", req.AttemptID, "student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getOwnedAttempt(ctx, req.AttemptID, studentID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsActive() {
		return nil, ErrAttemptAlreadySubmitted
	}

	// Grade against the current question set, not whatever the student
	// saw when starting.
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	result := gradeAttempt(quiz, req.Answers)
	answers := buildAttemptAnswers(attempt.ID, req.Answers)
	submittedAt := time.Now().UTC()

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Attempt().ReplaceAnswers(ctx, nil, attempt.ID, answers); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}
		completion := repositories.AttemptCompletion{
			Status:      models.AttemptSubmitted,
			Score:       result.Score,
			TotalMarks:  result.TotalMarks,
			Percentage:  result.Percentage,
			Passed:      result.Passed,
			SubmittedAt: submittedAt,
		}
		if err := txRepo.Attempt().CompleteAttempt(ctx, nil, attempt.ID, completion); err != nil {
			return fmt.Errorf("failed to complete attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attempt.Status = models.AttemptSubmitted
	attempt.SubmittedAt = &submittedAt
	attempt.Score = result.Score
	attempt.TotalMarks = result.TotalMarks
	attempt.Percentage = result.Percentage
	attempt.Passed = result.Passed

	if err := s.events.PublishAttemptSubmitted(ctx, attempt); err != nil {
		s.logger.Warn("Failed to publish attempt.submitted event", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID,
		"student_id", studentID,
		"score", result.Score,
		"total_marks", result.TotalMarks,
		"passed", result.Passed)

	return &AttemptResponse{QuizAttempt: attempt}, nil
}

// ===== REVIEW OPERATIONS =====

func (s *attemptService) GetMyResult(ctx context.Context, attemptID uint, studentID string) (*AttemptResultResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	// Results exist only after submission
	if attempt.IsActive() {
		return nil, ErrAttemptNotFound
	}

	// After submission the student may review the full quiz, answer
	// keys included.
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return &AttemptResultResponse{Attempt: attempt, Quiz: quiz}, nil
}

func (s *attemptService) ListForQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	if err := s.requireQuizOwner(ctx, quizID, userID); err != nil {
		return nil, 0, err
	}

	// In-progress attempts are not reviewable; list submitted ones
	// unless the caller picked a status explicitly.
	if filters.Status == nil {
		submitted := models.AttemptSubmitted
		filters.Status = &submitted
	}

	attempts, total, err := s.repo.Attempt().ListByQuiz(ctx, s.db, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{QuizAttempt: attempt}
	}
	return responses, total, nil
}

func (s *attemptService) GetDetail(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.requireQuizOwner(ctx, attempt.QuizID, userID); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return &AttemptDetailResponse{
		Attempt: attempt,
		Answers: buildAnswerBreakdown(quiz, attempt),
	}, nil
}
