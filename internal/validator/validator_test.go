package validator

import (
	"strings"
	"testing"

	"github.com/eduflow-platform/quiz-service/internal/models"
)

func validRequest() *QuizCreateRequest {
	return &QuizCreateRequest{
		Title:        "Weekly Checkpoint",
		CourseID:     1,
		Duration:     30,
		TotalMarks:   50,
		PassingMarks: 25,
		Questions: []QuestionRequest{
			{
				Text:          "Select the compiled language",
				Kind:          models.QuestionMultipleChoice,
				Options:       []string{"Go", "Python", "Ruby"},
				CorrectAnswer: "Go",
				Marks:         50,
			},
		},
	}
}

func fieldsOf(errs ValidationErrors) map[string]bool {
	fields := make(map[string]bool, len(errs))
	for _, e := range errs {
		fields[e.Field] = true
	}
	return fields
}

func TestValidateQuizCreate(t *testing.T) {
	v := New()

	t.Run("accepts a valid request", func(t *testing.T) {
		if errs := v.ValidateQuizCreate(validRequest()); errs.HasErrors() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("rejects out-of-range duration", func(t *testing.T) {
		for _, duration := range []int{-5, 481} {
			req := validRequest()
			req.Duration = duration
			errs := v.ValidateQuizCreate(req)
			if !fieldsOf(errs)["duration"] {
				t.Errorf("duration %d accepted", duration)
			}
		}
	})

	t.Run("rejects whitespace-only title", func(t *testing.T) {
		req := validRequest()
		req.Title = "   a   "
		errs := v.ValidateQuizCreate(req)
		if !fieldsOf(errs)["title"] {
			t.Error("short title accepted")
		}
	})

	t.Run("rejects overly long title", func(t *testing.T) {
		req := validRequest()
		req.Title = strings.Repeat("x", 201)
		errs := v.ValidateQuizCreate(req)
		if !fieldsOf(errs)["title"] {
			t.Error("201-character title accepted")
		}
	})

	t.Run("rejects passing marks above total", func(t *testing.T) {
		req := validRequest()
		req.PassingMarks = 60
		errs := v.ValidateQuizCreate(req)
		if !fieldsOf(errs)["passing_marks"] {
			t.Error("passing marks above total accepted")
		}
	})

	t.Run("requires at least one question", func(t *testing.T) {
		req := validRequest()
		req.Questions = nil
		if errs := v.ValidateQuizCreate(req); !errs.HasErrors() {
			t.Error("empty question set accepted")
		}
	})

	t.Run("rejects unknown question kind", func(t *testing.T) {
		req := validRequest()
		req.Questions[0].Kind = "essay"
		if errs := v.ValidateQuizCreate(req); !errs.HasErrors() {
			t.Error("unknown question kind accepted")
		}
	})
}

func TestValidateQuestions(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		question QuestionRequest
		wantErr  bool
	}{
		{
			name: "multiple choice with two options",
			question: QuestionRequest{
				Text:          "Pick one",
				Kind:          models.QuestionMultipleChoice,
				Options:       []string{"a", "b"},
				CorrectAnswer: "a",
				Marks:         5,
			},
		},
		{
			name: "multiple choice with one option",
			question: QuestionRequest{
				Text:          "Pick one",
				Kind:          models.QuestionMultipleChoice,
				Options:       []string{"a"},
				CorrectAnswer: "a",
				Marks:         5,
			},
			wantErr: true,
		},
		{
			name: "true-false with boolean answer",
			question: QuestionRequest{
				Text:          "Go has generics",
				Kind:          models.QuestionTrueFalse,
				CorrectAnswer: " True ",
				Marks:         5,
			},
		},
		{
			name: "true-false with arbitrary answer",
			question: QuestionRequest{
				Text:          "Go has generics",
				Kind:          models.QuestionTrueFalse,
				CorrectAnswer: "yes",
				Marks:         5,
			},
			wantErr: true,
		},
		{
			name: "short answer without options",
			question: QuestionRequest{
				Text:          "Name the scheduler",
				Kind:          models.QuestionShortAnswer,
				CorrectAnswer: "GMP",
				Marks:         5,
			},
		},
		{
			name: "short answer with options",
			question: QuestionRequest{
				Text:          "Name the scheduler",
				Kind:          models.QuestionShortAnswer,
				Options:       []string{"GMP"},
				CorrectAnswer: "GMP",
				Marks:         5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateQuestions([]QuestionRequest{tt.question})
			if got := errs.HasErrors(); got != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", got, tt.wantErr, errs)
			}
		})
	}
}

func TestValidateQuizUpdate(t *testing.T) {
	v := New()
	existing := &models.Quiz{TotalMarks: 100, PassingMarks: 40}

	t.Run("checks merged marks against the stored quiz", func(t *testing.T) {
		passing := 150
		errs := v.ValidateQuizUpdate(&QuizUpdateRequest{PassingMarks: &passing}, existing)
		if !fieldsOf(errs)["passing_marks"] {
			t.Error("merged passing marks above stored total accepted")
		}
	})

	t.Run("accepts raising both marks together", func(t *testing.T) {
		total, passing := 200, 150
		errs := v.ValidateQuizUpdate(&QuizUpdateRequest{TotalMarks: &total, PassingMarks: &passing}, existing)
		if errs.HasErrors() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("skips question checks when questions are omitted", func(t *testing.T) {
		title := "Renamed"
		if errs := v.ValidateQuizUpdate(&QuizUpdateRequest{Title: &title}, existing); errs.HasErrors() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})
}
