package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	Title        string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=3,max=200"`
	Description  *string `json:"description" gorm:"type:text"`
	CourseID     uint    `json:"course_id" gorm:"not null;index" validate:"required"`
	InstructorID string  `json:"instructor_id" gorm:"not null;index;size:255"`

	// Duration in minutes, advisory only
	Duration     int `json:"duration" gorm:"not null" validate:"required,quiz_duration"`
	TotalMarks   int `json:"total_marks" gorm:"not null" validate:"required,min=1"`
	PassingMarks int `json:"passing_marks" gorm:"not null" validate:"min=0"`

	IsPublished           bool `json:"is_published" gorm:"default:false;index"`
	AllowMultipleAttempts bool `json:"allow_multiple_attempts" gorm:"default:false"`

	// Audience restriction lists. Both empty means visible to the whole course.
	SelectedUsers   datatypes.JSON `json:"selected_users" gorm:"type:jsonb"`
	SelectedCourses datatypes.JSON `json:"selected_courses" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question    `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Attempts  []QuizAttempt `json:"-" gorm:"foreignKey:QuizID"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count,omitempty" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// SelectedUserIDs decodes the selected_users JSONB column.
func (q *Quiz) SelectedUserIDs() []string {
	if len(q.SelectedUsers) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(q.SelectedUsers, &ids); err != nil {
		return nil
	}
	return ids
}

// SelectedCourseIDs decodes the selected_courses JSONB column.
func (q *Quiz) SelectedCourseIDs() []uint {
	if len(q.SelectedCourses) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(q.SelectedCourses, &ids); err != nil {
		return nil
	}
	return ids
}

// HasAudienceRestriction reports whether either restriction list is non-empty.
func (q *Quiz) HasAudienceRestriction() bool {
	return len(q.SelectedUserIDs()) > 0 || len(q.SelectedCourseIDs()) > 0
}

// VisibleToStudent checks the audience restriction lists for a student
// viewing the quiz under the given course.
func (q *Quiz) VisibleToStudent(studentID string, courseID uint) bool {
	if !q.HasAudienceRestriction() {
		return true
	}
	for _, id := range q.SelectedUserIDs() {
		if id == studentID {
			return true
		}
	}
	for _, id := range q.SelectedCourseIDs() {
		if id == courseID {
			return true
		}
	}
	return false
}
