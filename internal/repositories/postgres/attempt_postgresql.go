package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eduflow-platform/quiz-service/internal/cache"
	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var attempt models.QuizAttempt

	err := a.cacheManager.Attempt.CacheOrExecute(ctx, cacheKey, &attempt, cache.AttemptCacheConfig.TTL, func() (interface{}, error) {
		var dbAttempt models.QuizAttempt
		if err := db.WithContext(ctx).First(&dbAttempt, id).Error; err != nil {
			return nil, err
		}
		return &dbAttempt, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempt models.QuizAttempt
	if err := db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt with answers: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	cache.InvalidateAttemptCache(ctx, a.cacheManager, attempt.ID, attempt.QuizID)
	return nil
}

// CompleteAttempt writes the grading result and transitions the status
func (a *AttemptPostgreSQL) CompleteAttempt(ctx context.Context, tx *gorm.DB, id uint, result repositories.AttemptCompletion) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       result.Status,
			"score":        result.Score,
			"total_marks":  result.TotalMarks,
			"percentage":   result.Percentage,
			"passed":       result.Passed,
			"submitted_at": result.SubmittedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to complete attempt: %w", err)
	}

	cache.SafeDelete(ctx, a.cacheManager.Attempt, fmt.Sprintf("id:%d", id))
	return nil
}

// ReplaceAnswers swaps the stored answer set of an attempt
func (a *AttemptPostgreSQL) ReplaceAnswers(ctx context.Context, tx *gorm.DB, attemptID uint, answers []models.AttemptAnswer) error {
	db := a.getDB(tx)

	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.AttemptAnswer{}).Error; err != nil {
		return fmt.Errorf("failed to delete existing answers: %w", err)
	}

	if len(answers) > 0 {
		for i := range answers {
			answers[i].ID = 0
			answers[i].AttemptID = attemptID
		}
		if err := db.WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
			return fmt.Errorf("failed to create answers: %w", err)
		}
	}

	return nil
}

// HasAttempt reports whether the student already has a submitted attempt
// for the quiz. Abandoned in-progress attempts do not count. Always reads
// from the database: the result gates the duplicate-attempt check inside
// the start transaction, so a cached answer must never stand in for it.
func (a *AttemptPostgreSQL) HasAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	db := a.getDB(tx)

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptSubmitted).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check attempt existence: %w", err)
	}

	return count > 0, nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.QuizAttempt
	var total int64

	query := db.WithContext(ctx).Model(&models.QuizAttempt{}).Where("quiz_id = ?", quizID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// ListByQuizAndStudent retrieves all attempts by a student for a quiz, newest first
func (a *AttemptPostgreSQL) ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.QuizAttempt, error) {
	db := a.getDB(tx)
	var attempts []*models.QuizAttempt
	if err := db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempts by quiz and student: %w", err)
	}
	return attempts, nil
}

// DeleteByQuiz removes all attempts and their answers for a quiz
func (a *AttemptPostgreSQL) DeleteByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) error {
	db := a.getDB(tx)

	if err := db.WithContext(ctx).
		Where("attempt_id IN (?)", db.Model(&models.QuizAttempt{}).Select("id").Where("quiz_id = ?", quizID)).
		Delete(&models.AttemptAnswer{}).Error; err != nil {
		return fmt.Errorf("failed to delete attempt answers: %w", err)
	}

	if err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Delete(&models.QuizAttempt{}).Error; err != nil {
		return fmt.Errorf("failed to delete attempts: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Attempt, fmt.Sprintf("quiz:%d:*", quizID))
	return nil
}

func (a *AttemptPostgreSQL) GetQuizAttemptStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizAttemptStats, error) {
	db := a.getDB(tx)
	var stats repositories.QuizAttemptStats

	var totalAttempts, passedCount int64
	var avgScore, bestScore float64

	row := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND status = ?", quizID, models.AttemptSubmitted).
		Select("COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0), COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0)").
		Row()
	if err := row.Scan(&totalAttempts, &avgScore, &bestScore, &passedCount); err != nil {
		return nil, fmt.Errorf("failed to get attempt stats: %w", err)
	}

	// Percentage scale, matching QuizAttempt.Percentage
	passRate := float64(0)
	if totalAttempts > 0 {
		passRate = float64(passedCount) / float64(totalAttempts) * 100
	}

	stats = repositories.QuizAttemptStats{
		TotalAttempts: int(totalAttempts),
		AverageScore:  avgScore,
		BestScore:     int(bestScore),
		PassRate:      passRate,
	}

	return &stats, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
