package services

import (
	"context"
	"sort"
	"sync"

	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

// memoryRepository is an in-memory repositories.Repository used by the
// service tests. Transaction callbacks run against the same store.
type memoryRepository struct {
	mu sync.Mutex

	quizzes    map[uint]*models.Quiz
	nextQuizID uint

	attempts      map[uint]*models.QuizAttempt
	answers       map[uint][]models.AttemptAnswer
	nextAttemptID uint

	courses     map[uint]bool
	instructors map[uint]map[string]bool
	enrollments map[uint]map[string]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		quizzes:     make(map[uint]*models.Quiz),
		attempts:    make(map[uint]*models.QuizAttempt),
		answers:     make(map[uint][]models.AttemptAnswer),
		courses:     make(map[uint]bool),
		instructors: make(map[uint]map[string]bool),
		enrollments: make(map[uint]map[string]bool),
	}
}

func (m *memoryRepository) addCourse(courseID uint, instructorID string, studentIDs ...string) {
	m.courses[courseID] = true
	m.instructors[courseID] = map[string]bool{instructorID: true}
	m.enrollments[courseID] = make(map[string]bool)
	for _, id := range studentIDs {
		m.enrollments[courseID][id] = true
	}
}

func (m *memoryRepository) Quiz() repositories.QuizRepository             { return (*memQuizRepo)(m) }
func (m *memoryRepository) Attempt() repositories.AttemptRepository       { return (*memAttemptRepo)(m) }
func (m *memoryRepository) Enrollment() repositories.EnrollmentRepository { return (*memEnrollRepo)(m) }

func (m *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *memoryRepository) Ping(ctx context.Context) error { return nil }
func (m *memoryRepository) Close() error                   { return nil }

func copyQuiz(q *models.Quiz) *models.Quiz {
	cp := *q
	cp.Questions = append([]models.Question(nil), q.Questions...)
	return &cp
}

func copyAttempt(a *models.QuizAttempt) *models.QuizAttempt {
	cp := *a
	cp.Answers = append([]models.AttemptAnswer(nil), a.Answers...)
	return &cp
}

// ===== QUIZ =====

type memQuizRepo memoryRepository

func (r *memQuizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextQuizID++
	quiz.ID = r.nextQuizID
	for i := range quiz.Questions {
		quiz.Questions[i].ID = uint(i + 1)
		quiz.Questions[i].QuizID = quiz.ID
	}
	r.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (r *memQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyQuiz(quiz)
	cp.Questions = nil
	return cp, nil
}

func (r *memQuizRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyQuiz(quiz), nil
}

func (r *memQuizRepo) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.quizzes[quiz.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	questions := existing.Questions
	r.quizzes[quiz.ID] = copyQuiz(quiz)
	if quiz.Questions == nil {
		r.quizzes[quiz.ID].Questions = questions
	}
	return nil
}

func (r *memQuizRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.quizzes, id)
	return nil
}

func (r *memQuizRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Quiz
	for _, quiz := range r.quizzes {
		if filters.PublishedOnly && !quiz.IsPublished {
			continue
		}
		out = append(out, copyQuiz(quiz))
	}
	return out, int64(len(out)), nil
}

func (r *memQuizRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint, publishedOnly bool) ([]*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Quiz
	for _, quiz := range r.quizzes {
		if quiz.CourseID != courseID {
			continue
		}
		if publishedOnly && !quiz.IsPublished {
			continue
		}
		out = append(out, copyQuiz(quiz))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memQuizRepo) ReplaceQuestions(ctx context.Context, tx *gorm.DB, quizID uint, questions []models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quiz.Questions = nil
	for i := range questions {
		q := questions[i]
		q.ID = uint(i + 1)
		q.QuizID = quizID
		quiz.Questions = append(quiz.Questions, q)
	}
	return nil
}

func (r *memQuizRepo) SetPublished(ctx context.Context, tx *gorm.DB, id uint, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quiz.IsPublished = published
	return nil
}

func (r *memQuizRepo) CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return 0, nil
	}
	return int64(len(quiz.Questions)), nil
}

// ===== ATTEMPT =====

type memAttemptRepo memoryRepository

func (r *memAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextAttemptID++
	attempt.ID = r.nextAttemptID
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (r *memAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyAttempt(attempt)
	cp.Answers = nil
	return cp, nil
}

func (r *memAttemptRepo) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyAttempt(attempt)
	cp.Answers = append([]models.AttemptAnswer(nil), r.answers[id]...)
	return cp, nil
}

func (r *memAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (r *memAttemptRepo) CompleteAttempt(ctx context.Context, tx *gorm.DB, id uint, result repositories.AttemptCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Status = result.Status
	attempt.Score = result.Score
	attempt.TotalMarks = result.TotalMarks
	attempt.Percentage = result.Percentage
	attempt.Passed = result.Passed
	submittedAt := result.SubmittedAt
	attempt.SubmittedAt = &submittedAt
	return nil
}

func (r *memAttemptRepo) ReplaceAnswers(ctx context.Context, tx *gorm.DB, attemptID uint, answers []models.AttemptAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[attemptID] = append([]models.AttemptAnswer(nil), answers...)
	return nil
}

func (r *memAttemptRepo) HasAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, attempt := range r.attempts {
		if attempt.QuizID == quizID && attempt.StudentID == studentID && attempt.Status == models.AttemptSubmitted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAttemptRepo) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QuizAttempt
	for _, attempt := range r.attempts {
		if attempt.QuizID != quizID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		out = append(out, copyAttempt(attempt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memAttemptRepo) ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QuizAttempt
	for _, attempt := range r.attempts {
		if attempt.QuizID == quizID && attempt.StudentID == studentID {
			out = append(out, copyAttempt(attempt))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAttemptRepo) DeleteByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, attempt := range r.attempts {
		if attempt.QuizID == quizID {
			delete(r.attempts, id)
			delete(r.answers, id)
		}
	}
	return nil
}

func (r *memAttemptRepo) GetQuizAttemptStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizAttemptStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repositories.QuizAttemptStats{}
	sum := 0
	passed := 0
	for _, attempt := range r.attempts {
		if attempt.QuizID != quizID || attempt.Status != models.AttemptSubmitted {
			continue
		}
		stats.TotalAttempts++
		sum += attempt.Score
		if attempt.Score > stats.BestScore {
			stats.BestScore = attempt.Score
		}
		if attempt.Passed {
			passed++
		}
	}
	if stats.TotalAttempts > 0 {
		stats.AverageScore = float64(sum) / float64(stats.TotalAttempts)
		stats.PassRate = float64(passed) / float64(stats.TotalAttempts) * 100
	}
	return stats, nil
}

// ===== ENROLLMENT =====

type memEnrollRepo memoryRepository

func (r *memEnrollRepo) CourseExists(ctx context.Context, courseID uint) (bool, error) {
	return r.courses[courseID], nil
}

func (r *memEnrollRepo) IsInstructor(ctx context.Context, courseID uint, userID string) (bool, error) {
	return r.instructors[courseID][userID], nil
}

func (r *memEnrollRepo) IsEnrolled(ctx context.Context, courseID uint, userID string) (bool, error) {
	return r.enrollments[courseID][userID], nil
}
