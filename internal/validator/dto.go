package validator

import (
	"github.com/eduflow-platform/quiz-service/internal/models"
)

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	Title                 string            `json:"title" validate:"required,quiz_title"`
	Description           *string           `json:"description" validate:"omitempty,max=1000"`
	CourseID              uint              `json:"course_id" validate:"required"`
	Duration              int               `json:"duration" validate:"required,quiz_duration"`
	TotalMarks            int               `json:"total_marks" validate:"required,min=1"`
	PassingMarks          int               `json:"passing_marks" validate:"min=0"`
	AllowMultipleAttempts bool              `json:"allow_multiple_attempts"`
	SelectedUsers         []string          `json:"selected_users" validate:"omitempty,dive,max=255"`
	SelectedCourses       []uint            `json:"selected_courses"`
	Questions             []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// QuizUpdateRequest represents the request structure for updating quizzes
type QuizUpdateRequest struct {
	Title                 *string           `json:"title" validate:"omitempty,quiz_title"`
	Description           *string           `json:"description" validate:"omitempty,max=1000"`
	Duration              *int              `json:"duration" validate:"omitempty,quiz_duration"`
	TotalMarks            *int              `json:"total_marks" validate:"omitempty,min=1"`
	PassingMarks          *int              `json:"passing_marks" validate:"omitempty,min=0"`
	AllowMultipleAttempts *bool             `json:"allow_multiple_attempts"`
	IsPublished           *bool             `json:"is_published"`
	SelectedUsers         []string          `json:"selected_users" validate:"omitempty,dive,max=255"`
	SelectedCourses       []uint            `json:"selected_courses"`
	Questions             []QuestionRequest `json:"questions" validate:"omitempty,min=1,dive"`
}

// QuestionRequest represents a question inside a quiz create/update payload
type QuestionRequest struct {
	Text          string              `json:"text" validate:"required,min=1,max=2000"`
	Kind          models.QuestionKind `json:"kind" validate:"required,question_kind"`
	Options       []string            `json:"options" validate:"omitempty,max=10,dive,max=500"`
	CorrectAnswer string              `json:"correct_answer" validate:"required,max=500"`
	Marks         int                 `json:"marks" validate:"required,min=1"`
}
