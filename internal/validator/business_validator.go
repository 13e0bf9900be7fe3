package validator

import (
	"fmt"
	"strings"

	"github.com/eduflow-platform/quiz-service/internal/models"
)

// ValidateQuizCreate validates quiz creation business rules
func (v *Validator) ValidateQuizCreate(req *QuizCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, ToValidationErrors(v.validate.Struct(req))...)
	errors = append(errors, v.validateMarksConsistency(req.TotalMarks, req.PassingMarks)...)
	errors = append(errors, v.ValidateQuestions(req.Questions)...)

	return errors
}

// ValidateQuizUpdate validates quiz update business rules against the stored quiz
func (v *Validator) ValidateQuizUpdate(req *QuizUpdateRequest, existing *models.Quiz) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, ToValidationErrors(v.validate.Struct(req))...)

	totalMarks := existing.TotalMarks
	if req.TotalMarks != nil {
		totalMarks = *req.TotalMarks
	}
	passingMarks := existing.PassingMarks
	if req.PassingMarks != nil {
		passingMarks = *req.PassingMarks
	}
	errors = append(errors, v.validateMarksConsistency(totalMarks, passingMarks)...)

	if req.Questions != nil {
		errors = append(errors, v.ValidateQuestions(req.Questions)...)
	}

	return errors
}

// ValidateQuestions validates per-kind structural rules of a question set
func (v *Validator) ValidateQuestions(questions []QuestionRequest) ValidationErrors {
	var errors ValidationErrors

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		switch q.Kind {
		case models.QuestionMultipleChoice:
			if len(q.Options) < 2 {
				errors = append(errors, ValidationError{
					Field:   field + ".options",
					Message: "multiple-choice questions require at least 2 options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		case models.QuestionTrueFalse:
			answer := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
			if answer != "true" && answer != "false" {
				errors = append(errors, ValidationError{
					Field:   field + ".correct_answer",
					Message: "true-false questions require a true or false answer",
					Value:   q.CorrectAnswer,
					Rule:    "business_logic",
				})
			}
		case models.QuestionShortAnswer:
			if len(q.Options) > 0 {
				errors = append(errors, ValidationError{
					Field:   field + ".options",
					Message: "short-answer questions cannot have options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		}
	}

	return errors
}

// validateMarksConsistency checks that the passing threshold fits the total
func (v *Validator) validateMarksConsistency(totalMarks, passingMarks int) ValidationErrors {
	var errors ValidationErrors

	if passingMarks > totalMarks {
		errors = append(errors, ValidationError{
			Field:   "passing_marks",
			Message: "passing marks cannot exceed total marks",
			Value:   passingMarks,
			Rule:    "business_logic",
		})
	}

	return errors
}
