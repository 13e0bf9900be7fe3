package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	QuestionMultipleChoice QuestionKind = "multiple-choice"
	QuestionTrueFalse      QuestionKind = "true-false"
	QuestionShortAnswer    QuestionKind = "short-answer"
)

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	QuizID uint         `json:"quiz_id" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"not null;type:text" validate:"required,max=2000"`
	Kind   QuestionKind `json:"kind" gorm:"not null;size:20" validate:"required,question_kind"`

	// Options for multiple-choice and true-false questions
	Options datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`

	// Never exposed to students; stripped at the service layer
	CorrectAnswer string `json:"correct_answer,omitempty" gorm:"not null;size:500"`

	Marks    int `json:"marks" gorm:"not null" validate:"required,min=1"`
	Position int `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// OptionList decodes the options JSONB column.
func (q *Question) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}

// IsValidKind reports whether the given string is a known question kind.
func IsValidKind(kind string) bool {
	switch QuestionKind(kind) {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer:
		return true
	}
	return false
}
