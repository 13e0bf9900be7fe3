package services

import (
	"context"
	"log/slog"

	"github.com/eduflow-platform/quiz-service/internal/events"
	"github.com/eduflow-platform/quiz-service/internal/models"
)

type notificationEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewNotificationEventService(eventPublisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *notificationEventService) PublishQuizPublished(ctx context.Context, quiz *models.Quiz) error {
	event := events.NewEvent(events.EventQuizPublished, events.QuizPublishedEvent{
		QuizID:       quiz.ID,
		CourseID:     quiz.CourseID,
		InstructorID: quiz.InstructorID,
		Title:        quiz.Title,
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) PublishQuizUnpublished(ctx context.Context, quiz *models.Quiz) error {
	event := events.NewEvent(events.EventQuizUnpublished, events.QuizUnpublishedEvent{
		QuizID:       quiz.ID,
		CourseID:     quiz.CourseID,
		InstructorID: quiz.InstructorID,
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) PublishAttemptStarted(ctx context.Context, attempt *models.QuizAttempt) error {
	event := events.NewEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		StudentID: attempt.StudentID,
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) PublishAttemptSubmitted(ctx context.Context, attempt *models.QuizAttempt) error {
	event := events.NewEvent(events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:  attempt.ID,
		QuizID:     attempt.QuizID,
		StudentID:  attempt.StudentID,
		Score:      attempt.Score,
		TotalMarks: attempt.TotalMarks,
		Percentage: attempt.Percentage,
		Passed:     attempt.Passed,
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) publish(ctx context.Context, event *events.Event) error {
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Event publish failed", "event_type", event.Type, "event_id", event.ID, "error", err)
		return err
	}
	s.logger.Debug("Event published", "event_type", event.Type, "event_id", event.ID)
	return nil
}
