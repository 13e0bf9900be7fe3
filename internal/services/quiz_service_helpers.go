package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"gorm.io/datatypes"
)

// ===== OWNERSHIP =====

// getOwnedQuiz loads a quiz and verifies the caller owns it. Quizzes owned
// by someone else report not found, so existence does not leak.
func (s *quizService) getOwnedQuiz(ctx context.Context, id uint, userID string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.InstructorID != userID {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// ===== UPDATE MERGING =====

func (s *quizService) applyQuizUpdates(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Duration != nil {
		quiz.Duration = *req.Duration
	}
	if req.TotalMarks != nil {
		quiz.TotalMarks = *req.TotalMarks
	}
	if req.PassingMarks != nil {
		quiz.PassingMarks = *req.PassingMarks
	}
	if req.AllowMultipleAttempts != nil {
		quiz.AllowMultipleAttempts = *req.AllowMultipleAttempts
	}
	if req.IsPublished != nil {
		quiz.IsPublished = *req.IsPublished
	}
	if req.SelectedUsers != nil {
		raw, err := json.Marshal(req.SelectedUsers)
		if err == nil {
			quiz.SelectedUsers = datatypes.JSON(raw)
		}
	}
	if req.SelectedCourses != nil {
		raw, err := json.Marshal(req.SelectedCourses)
		if err == nil {
			quiz.SelectedCourses = datatypes.JSON(raw)
		}
	}
}

// buildQuestions converts question requests into models, preserving the
// request order as position.
func buildQuestions(quizID uint, reqs []QuestionRequest) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(reqs))
	for i, qr := range reqs {
		q := models.Question{
			QuizID:        quizID,
			Text:          qr.Text,
			Kind:          qr.Kind,
			CorrectAnswer: qr.CorrectAnswer,
			Marks:         qr.Marks,
			Position:      i,
		}
		if len(qr.Options) > 0 {
			raw, err := json.Marshal(qr.Options)
			if err != nil {
				return nil, fmt.Errorf("failed to encode options for question %d: %w", i+1, err)
			}
			q.Options = datatypes.JSON(raw)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// ===== RESPONSE BUILDING =====

// sanitizeForStudent returns a copy of the quiz safe to show a student.
// Answer keys never leave the service layer for non-owners.
func (s *quizService) sanitizeForStudent(quiz *models.Quiz) *models.Quiz {
	sanitized := *quiz
	sanitized.Questions = make([]models.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectAnswer = ""
		sanitized.Questions[i] = q
	}
	return &sanitized
}

func (s *quizService) buildQuizResponse(quiz *models.Quiz, userID string, isOwner bool) *QuizResponse {
	return &QuizResponse{
		Quiz:      quiz,
		CanEdit:   isOwner,
		CanDelete: isOwner,
	}
}

// ===== LIST VIEWS =====

func (s *quizService) listForInstructor(ctx context.Context, courseID uint, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	quizzes, err := s.repo.Quiz().ListByCourse(ctx, s.db, courseID, filters.PublishedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	items := make([]*QuizListItem, 0, len(quizzes))
	for _, quiz := range quizzes {
		quiz.QuestionCount = len(quiz.Questions)
		items = append(items, &QuizListItem{Quiz: quiz})
	}

	page, total := paginateQuizItems(items, filters.Limit, filters.Offset)
	return &QuizListResponse{
		Quizzes: page,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

func (s *quizService) listForStudent(ctx context.Context, courseID uint, filters repositories.QuizFilters, studentID string) (*QuizListResponse, error) {
	quizzes, err := s.repo.Quiz().ListByCourse(ctx, s.db, courseID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	items := make([]*QuizListItem, 0, len(quizzes))
	for _, quiz := range quizzes {
		if !quiz.VisibleToStudent(studentID, courseID) {
			continue
		}

		item := &QuizListItem{Quiz: s.sanitizeForStudent(quiz)}
		item.QuestionCount = len(quiz.Questions)

		attempts, err := s.repo.Attempt().ListByQuizAndStudent(ctx, s.db, quiz.ID, studentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempts: %w", err)
		}
		// Only submitted attempts count toward the annotation
		for _, attempt := range attempts {
			if attempt.Status == models.AttemptInProgress {
				continue
			}
			if item.BestScore == nil || attempt.Score > *item.BestScore {
				score := attempt.Score
				item.BestScore = &score
			}
			item.Attempts = append(item.Attempts, attempt)
		}
		item.AttemptCount = len(item.Attempts)

		items = append(items, item)
	}

	page, total := paginateQuizItems(items, filters.Limit, filters.Offset)
	return &QuizListResponse{
		Quizzes: page,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// paginateQuizItems slices a listing window out of the full item set and
// returns the pre-slice total.
func paginateQuizItems(items []*QuizListItem, limit, offset int) ([]*QuizListItem, int64) {
	total := int64(len(items))
	if offset > 0 {
		if offset >= len(items) {
			items = items[:0]
		} else {
			items = items[offset:]
		}
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total
}
