package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"github.com/eduflow-platform/quiz-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	events    NotificationEventService
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, events NotificationEventService) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		events:    events,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, instructorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz", "instructor_id", instructorID, "course_id", req.CourseID, "title", req.Title)

	// Validate request with business rules
	if errs := s.validator.ValidateQuizCreate(req); errs.HasErrors() {
		return nil, errs
	}

	// The course must exist and the caller must teach it
	exists, err := s.repo.Enrollment().CourseExists(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	isInstructor, err := s.repo.Enrollment().IsInstructor(ctx, req.CourseID, instructorID)
	if err != nil {
		return nil, fmt.Errorf("instructor check failed: %w", err)
	}
	if !isInstructor {
		return nil, NewPermissionError(instructorID, req.CourseID, "quiz", "create", "not an instructor of this course")
	}

	quiz, err := s.buildQuizFromRequest(req, instructorID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Quiz().Create(ctx, nil, quiz); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID, "question_count", len(quiz.Questions))

	created, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quiz: %w", err)
	}

	return s.buildQuizResponse(created, instructorID, true), nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// Owners see the full quiz including answer keys
	if quiz.InstructorID == userID {
		return s.buildQuizResponse(quiz, userID, true), nil
	}

	// Everyone else goes through the student view: published only,
	// audience restrictions honored, answer keys stripped. Drafts are
	// indistinguishable from missing quizzes.
	if !quiz.IsPublished {
		return nil, ErrQuizNotFound
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, quiz.CourseID, userID)
	if err != nil {
		return nil, fmt.Errorf("enrollment check failed: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}
	if !quiz.VisibleToStudent(userID, quiz.CourseID) {
		return nil, ErrQuizNotFound
	}

	return s.buildQuizResponse(s.sanitizeForStudent(quiz), userID, false), nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.getOwnedQuiz(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	// Validate request with business rules
	if errs := s.validator.ValidateQuizUpdate(req, quiz); errs.HasErrors() {
		return nil, errs
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		s.applyQuizUpdates(quiz, req)

		if err := txRepo.Quiz().Update(ctx, nil, quiz); err != nil {
			return fmt.Errorf("failed to update quiz: %w", err)
		}

		// Nil means keep the existing question set
		if req.Questions != nil {
			questions, err := buildQuestions(id, req.Questions)
			if err != nil {
				return err
			}
			if err := txRepo.Quiz().ReplaceQuestions(ctx, nil, id, questions); err != nil {
				return fmt.Errorf("failed to replace questions: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz updated successfully", "quiz_id", id)

	updated, err := s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quiz: %w", err)
	}

	return s.buildQuizResponse(updated, userID, true), nil
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	if _, err := s.getOwnedQuiz(ctx, id, userID); err != nil {
		return err
	}

	// Dependent attempts go with the quiz
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Attempt().DeleteByQuiz(ctx, nil, id); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := txRepo.Quiz().Delete(ctx, nil, id); err != nil {
			return fmt.Errorf("failed to delete quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Quiz deleted successfully", "quiz_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *quizService) ListForCourse(ctx context.Context, courseID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	exists, err := s.repo.Enrollment().CourseExists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	isInstructor, err := s.repo.Enrollment().IsInstructor(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("instructor check failed: %w", err)
	}
	if isInstructor {
		return s.listForInstructor(ctx, courseID, filters, userID)
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("enrollment check failed: %w", err)
	}
	if !enrolled {
		return nil, NewPermissionError(userID, courseID, "course", "list_quizzes", "not enrolled in this course")
	}

	return s.listForStudent(ctx, courseID, filters, userID)
}

// ===== PUBLICATION MANAGEMENT =====

func (s *quizService) Publish(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Publishing quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.getOwnedQuiz(ctx, id, userID)
	if err != nil {
		return err
	}

	count, err := s.repo.Quiz().CountQuestions(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count == 0 {
		return ErrQuizHasNoQuestions
	}

	if err := s.repo.Quiz().SetPublished(ctx, s.db, id, true); err != nil {
		return fmt.Errorf("failed to publish quiz: %w", err)
	}

	if err := s.events.PublishQuizPublished(ctx, quiz); err != nil {
		s.logger.Warn("Failed to publish quiz.published event", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz published", "quiz_id", id)
	return nil
}

func (s *quizService) Unpublish(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Unpublishing quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.getOwnedQuiz(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Quiz().SetPublished(ctx, s.db, id, false); err != nil {
		return fmt.Errorf("failed to unpublish quiz: %w", err)
	}

	if err := s.events.PublishQuizUnpublished(ctx, quiz); err != nil {
		s.logger.Warn("Failed to publish quiz.unpublished event", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz unpublished", "quiz_id", id)
	return nil
}

// ===== STATISTICS =====

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizAttemptStats, error) {
	if _, err := s.getOwnedQuiz(ctx, id, userID); err != nil {
		return nil, err
	}

	stats, err := s.repo.Attempt().GetQuizAttemptStats(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}

	return stats, nil
}

// buildQuizFromRequest assembles a new quiz with its question set from a
// validated create request.
func (s *quizService) buildQuizFromRequest(req *CreateQuizRequest, instructorID string) (*models.Quiz, error) {
	quiz := &models.Quiz{
		Title:                 req.Title,
		Description:           req.Description,
		CourseID:              req.CourseID,
		InstructorID:          instructorID,
		Duration:              req.Duration,
		TotalMarks:            req.TotalMarks,
		PassingMarks:          req.PassingMarks,
		AllowMultipleAttempts: req.AllowMultipleAttempts,
	}

	if len(req.SelectedUsers) > 0 {
		raw, err := json.Marshal(req.SelectedUsers)
		if err != nil {
			return nil, fmt.Errorf("failed to encode selected users: %w", err)
		}
		quiz.SelectedUsers = datatypes.JSON(raw)
	}
	if len(req.SelectedCourses) > 0 {
		raw, err := json.Marshal(req.SelectedCourses)
		if err != nil {
			return nil, fmt.Errorf("failed to encode selected courses: %w", err)
		}
		quiz.SelectedCourses = datatypes.JSON(raw)
	}

	questions, err := buildQuestions(0, req.Questions)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions

	return quiz, nil
}
