package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eduflow-platform/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	CourseID      *uint   `json:"course_id"`
	InstructorID  *string `json:"instructor_id"`
	PublishedOnly bool    `json:"published_only"`
	Limit         int     `json:"limit"`
	Offset        int     `json:"offset"`
	SortBy        string  `json:"sort_by"`    // "created_at", "title"
	SortOrder     string  `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizAttemptStats struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	BestScore     int     `json:"best_score"`
	PassRate      float64 `json:"pass_rate"`
}

// ===== REPOSITORY INTERFACES =====

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint, publishedOnly bool) ([]*models.Quiz, error)
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, quizID uint, questions []models.Question) error
	SetPublished(ctx context.Context, tx *gorm.DB, id uint, published bool) error
	CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	CompleteAttempt(ctx context.Context, tx *gorm.DB, id uint, result AttemptCompletion) error
	ReplaceAnswers(ctx context.Context, tx *gorm.DB, attemptID uint, answers []models.AttemptAnswer) error
	// HasAttempt reports whether a submitted attempt exists for the
	// quiz/student pair; abandoned in-progress attempts do not count.
	HasAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.QuizAttempt, error)
	DeleteByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) error
	GetQuizAttemptStats(ctx context.Context, tx *gorm.DB, quizID uint) (*QuizAttemptStats, error)
}

// AttemptCompletion carries the grading result written at submit time
type AttemptCompletion struct {
	Status      models.AttemptStatus
	Score       int
	TotalMarks  int
	Percentage  float64
	Passed      bool
	SubmittedAt time.Time
}

// EnrollmentRepository resolves course membership from the course service
type EnrollmentRepository interface {
	CourseExists(ctx context.Context, courseID uint) (bool, error)
	IsInstructor(ctx context.Context, courseID uint, userID string) (bool, error)
	IsEnrolled(ctx context.Context, courseID uint, userID string) (bool, error)
}
