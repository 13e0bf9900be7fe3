package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
)

// ===== OWNERSHIP =====

// getOwnedAttempt loads an attempt and verifies it belongs to the student.
// Attempts owned by someone else report not found.
func (s *attemptService) getOwnedAttempt(ctx context.Context, id uint, studentID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *attemptService) requireQuizOwner(ctx context.Context, quizID uint, userID string) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.InstructorID != userID {
		return NewPermissionError(userID, quizID, "quiz", "review_attempts", "not the quiz owner")
	}
	return nil
}

// ===== GRADING =====

type gradeResult struct {
	Score      int
	TotalMarks int
	Percentage float64
	Passed     bool
}

// gradeAttempt scores submitted answers against the quiz question set.
// Answers for unknown question ids are ignored. The score is clamped to
// the quiz total in case question marks drifted out of sync with it.
func gradeAttempt(quiz *models.Quiz, answers []AnswerSubmission) gradeResult {
	byQuestion := make(map[uint]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Answer
	}

	score := 0
	for _, q := range quiz.Questions {
		given, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		if answersMatch(given, q.CorrectAnswer) {
			score += q.Marks
		}
	}

	if score > quiz.TotalMarks {
		score = quiz.TotalMarks
	}

	result := gradeResult{
		Score:      score,
		TotalMarks: quiz.TotalMarks,
		Passed:     score >= quiz.PassingMarks,
	}
	if quiz.TotalMarks > 0 {
		result.Percentage = float64(score) / float64(quiz.TotalMarks) * 100
	}
	return result
}

// answersMatch compares answers case-insensitively, ignoring surrounding
// whitespace.
func answersMatch(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}

func buildAttemptAnswers(attemptID uint, answers []AnswerSubmission) []models.AttemptAnswer {
	out := make([]models.AttemptAnswer, 0, len(answers))
	for _, a := range answers {
		out = append(out, models.AttemptAnswer{
			AttemptID:  attemptID,
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
		})
	}
	return out
}

// ===== REVIEW =====

// buildAnswerBreakdown joins the student's stored answers with the quiz
// question definitions. Only submitted answers appear; answers whose
// question no longer exists are skipped.
func buildAnswerBreakdown(quiz *models.Quiz, attempt *models.QuizAttempt) []*AnswerBreakdown {
	questions := make(map[uint]models.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}

	breakdown := make([]*AnswerBreakdown, 0, len(attempt.Answers))
	for _, a := range attempt.Answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}
		correct := answersMatch(a.Answer, q.CorrectAnswer)

		entry := &AnswerBreakdown{
			QuestionID:    q.ID,
			Text:          q.Text,
			Kind:          string(q.Kind),
			Options:       q.Options,
			StudentAnswer: a.Answer,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
			Marks:         q.Marks,
		}
		if correct {
			entry.EarnedMarks = q.Marks
		}
		breakdown = append(breakdown, entry)
	}
	return breakdown
}
