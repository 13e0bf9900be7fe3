package services

import (
	"errors"
	"fmt"

	"github.com/eduflow-platform/quiz-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Quiz errors
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizNotPublished   = errors.New("quiz is not published")
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	ErrCourseNotFound     = errors.New("course not found")

	// Attempt errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrQuizAlreadyAttempted    = errors.New("quiz already attempted")

	// Access errors
	ErrForbidden   = errors.New("access forbidden")
	ErrNotEnrolled = errors.New("user is not enrolled in the course")
)

// ValidationErrors is re-exported so handlers can match it with errors.As
type ValidationErrors = validator.ValidationErrors

// ===== TYPED ERRORS =====

// PermissionError describes a denied action on a resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// NewPermissionError creates a permission error
func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError describes a violated domain rule
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// NewBusinessRuleError creates a business rule error
func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
	}
}

// NewValidationError creates a single-field ValidationErrors value
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}}
}
