package events

import (
	"time"

	"github.com/google/uuid"
)

const eventSource = "quiz-service"

// Event types published by the service
const (
	EventQuizPublished    = "quiz.published"
	EventQuizUnpublished  = "quiz.unpublished"
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
)

// Event is the versioned envelope for all published events
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent creates an event envelope with a fresh ID and timestamp
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// QuizPublishedEvent is emitted when an instructor publishes a quiz
type QuizPublishedEvent struct {
	QuizID       uint   `json:"quiz_id"`
	CourseID     uint   `json:"course_id"`
	InstructorID string `json:"instructor_id"`
	Title        string `json:"title"`
}

// QuizUnpublishedEvent is emitted when a quiz is withdrawn from students
type QuizUnpublishedEvent struct {
	QuizID       uint   `json:"quiz_id"`
	CourseID     uint   `json:"course_id"`
	InstructorID string `json:"instructor_id"`
}

// AttemptStartedEvent is emitted when a student starts an attempt
type AttemptStartedEvent struct {
	AttemptID uint   `json:"attempt_id"`
	QuizID    uint   `json:"quiz_id"`
	StudentID string `json:"student_id"`
}

// AttemptSubmittedEvent is emitted after an attempt has been graded
type AttemptSubmittedEvent struct {
	AttemptID  uint    `json:"attempt_id"`
	QuizID     uint    `json:"quiz_id"`
	StudentID  string  `json:"student_id"`
	Score      int     `json:"score"`
	TotalMarks int     `json:"total_marks"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}
