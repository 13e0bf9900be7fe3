package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/eduflow-platform/quiz-service/internal/events"
	"github.com/eduflow-platform/quiz-service/internal/models"
)

func newEventFixture() (NotificationEventService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)
	return NewNotificationEventService(publisher, logger), publisher
}

func assertEnvelope(t *testing.T, event *events.Event, wantType string) {
	t.Helper()
	if event.Type != wantType {
		t.Errorf("type = %q, want %q", event.Type, wantType)
	}
	if event.ID == "" {
		t.Error("event id not set")
	}
	if event.Source != "quiz-service" {
		t.Errorf("source = %q, want quiz-service", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestNotificationEventService(t *testing.T) {
	quiz := &models.Quiz{
		Title:        "Midterm Review",
		CourseID:     7,
		InstructorID: "instructor-1",
	}
	quiz.ID = 42

	submittedAt := time.Now().UTC()
	attempt := &models.QuizAttempt{
		QuizID:      42,
		StudentID:   "student-1",
		Status:      models.AttemptSubmitted,
		SubmittedAt: &submittedAt,
		Score:       80,
		TotalMarks:  100,
		Percentage:  80,
		Passed:      true,
	}
	attempt.ID = 5

	t.Run("quiz published", func(t *testing.T) {
		service, publisher := newEventFixture()

		if err := service.PublishQuizPublished(context.Background(), quiz); err != nil {
			t.Fatalf("publish: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("events = %d, want 1", len(published))
		}
		assertEnvelope(t, published[0], events.EventQuizPublished)
		data, ok := published[0].Data.(events.QuizPublishedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", published[0].Data)
		}
		if data.QuizID != 42 || data.CourseID != 7 || data.Title != "Midterm Review" {
			t.Errorf("unexpected payload %+v", data)
		}
	})

	t.Run("quiz unpublished", func(t *testing.T) {
		service, publisher := newEventFixture()

		if err := service.PublishQuizUnpublished(context.Background(), quiz); err != nil {
			t.Fatalf("publish: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("events = %d, want 1", len(published))
		}
		assertEnvelope(t, published[0], events.EventQuizUnpublished)
		data, ok := published[0].Data.(events.QuizUnpublishedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", published[0].Data)
		}
		if data.QuizID != 42 || data.InstructorID != "instructor-1" {
			t.Errorf("unexpected payload %+v", data)
		}
	})

	t.Run("attempt started", func(t *testing.T) {
		service, publisher := newEventFixture()

		if err := service.PublishAttemptStarted(context.Background(), attempt); err != nil {
			t.Fatalf("publish: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("events = %d, want 1", len(published))
		}
		assertEnvelope(t, published[0], events.EventAttemptStarted)
		data, ok := published[0].Data.(events.AttemptStartedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", published[0].Data)
		}
		if data.AttemptID != 5 || data.QuizID != 42 || data.StudentID != "student-1" {
			t.Errorf("unexpected payload %+v", data)
		}
	})

	t.Run("attempt submitted carries the grade", func(t *testing.T) {
		service, publisher := newEventFixture()

		if err := service.PublishAttemptSubmitted(context.Background(), attempt); err != nil {
			t.Fatalf("publish: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("events = %d, want 1", len(published))
		}
		assertEnvelope(t, published[0], events.EventAttemptSubmitted)
		data, ok := published[0].Data.(events.AttemptSubmittedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", published[0].Data)
		}
		if data.Score != 80 || data.TotalMarks != 100 || data.Percentage != 80 || !data.Passed {
			t.Errorf("unexpected payload %+v", data)
		}
	})
}
