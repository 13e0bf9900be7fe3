package services

import (
	"context"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"github.com/eduflow-platform/quiz-service/internal/validator"
	"gorm.io/datatypes"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type QuestionRequest = validator.QuestionRequest

// StartAttemptRequest begins a new attempt on a published quiz.
type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

// AnswerSubmission is a single answer keyed by question id.
type AnswerSubmission struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"max=500"`
}

// SubmitAttemptRequest finalizes an attempt with the student's answers.
type SubmitAttemptRequest struct {
	AttemptID uint               `json:"attempt_id" validate:"required"`
	Answers   []AnswerSubmission `json:"answers" validate:"dive"`
}

// QuizResponse wraps a quiz with permission flags for the requesting user.
type QuizResponse struct {
	*models.Quiz
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// QuizListItem is a quiz in a course listing, annotated with the requesting
// student's attempt history when applicable.
type QuizListItem struct {
	*models.Quiz
	AttemptCount int                   `json:"attempt_count"`
	BestScore    *int                  `json:"best_score,omitempty"`
	Attempts     []*models.QuizAttempt `json:"attempts,omitempty"`
}

// QuizListResponse is a paginated quiz listing for a course.
type QuizListResponse struct {
	Quizzes []*QuizListItem `json:"quizzes"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// AttemptResponse wraps an attempt for API responses.
type AttemptResponse struct {
	*models.QuizAttempt
}

// AttemptResultResponse is a student's view of their own submitted attempt,
// including the quiz with correct answers revealed.
type AttemptResultResponse struct {
	Attempt *models.QuizAttempt `json:"attempt"`
	Quiz    *models.Quiz        `json:"quiz"`
}

// AnswerBreakdown pairs a question with the answer a student gave.
type AnswerBreakdown struct {
	QuestionID    uint           `json:"question_id"`
	Text          string         `json:"text"`
	Kind          string         `json:"kind"`
	Options       datatypes.JSON `json:"options,omitempty"`
	StudentAnswer string         `json:"student_answer"`
	CorrectAnswer string         `json:"correct_answer"`
	Correct       bool           `json:"correct"`
	Marks         int            `json:"marks"`
	EarnedMarks   int            `json:"earned_marks"`
}

// AttemptDetailResponse is the instructor's per-answer view of an attempt.
type AttemptDetailResponse struct {
	Attempt *models.QuizAttempt `json:"attempt"`
	Answers []*AnswerBreakdown  `json:"answers"`
}

// ===== SERVICE INTERFACES =====

// QuizService manages quiz lifecycle for instructors and read access for
// students.
type QuizService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuizRequest, instructorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	ListForCourse(ctx context.Context, courseID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)

	// Publication management
	Publish(ctx context.Context, id uint, userID string) error
	Unpublish(ctx context.Context, id uint, userID string) error

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizAttemptStats, error)
}

// AttemptService manages the student attempt lifecycle and instructor review.
type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error)

	// Review operations
	GetMyResult(ctx context.Context, attemptID uint, studentID string) (*AttemptResultResponse, error)
	ListForQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)
	GetDetail(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error)
}

// ResultExportService produces downloadable result sheets.
type ResultExportService interface {
	ExportQuizResults(ctx context.Context, quizID uint, userID string) ([]byte, string, error)
}

// NotificationEventService publishes domain events to the message broker.
type NotificationEventService interface {
	PublishQuizPublished(ctx context.Context, quiz *models.Quiz) error
	PublishQuizUnpublished(ctx context.Context, quiz *models.Quiz) error
	PublishAttemptStarted(ctx context.Context, attempt *models.QuizAttempt) error
	PublishAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error
}

// ServiceManager provides access to all services and their lifecycle.
type ServiceManager interface {
	// Core service getters
	Quiz() QuizService
	Attempt() AttemptService
	Export() ResultExportService
	Events() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
