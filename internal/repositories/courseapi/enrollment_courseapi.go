package courseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduflow-platform/quiz-service/internal/repositories"
)

// CourseAPIConfig holds the configuration for the course service connection
type CourseAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// membership mirrors the course service membership payload
type membership struct {
	CourseID     uint   `json:"course_id"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	IsInstructor bool   `json:"is_instructor"`
	IsEnrolled   bool   `json:"is_enrolled"`
}

// EnrollmentCourseAPI resolves course membership over the course service REST API
type EnrollmentCourseAPI struct {
	httpClient *http.Client
	redis      *redis.Client
	config     CourseAPIConfig

	// Cache settings
	cachePrefix string
	cacheTTL    time.Duration
}

func NewEnrollmentCourseAPI(config CourseAPIConfig, redisClient *redis.Client) repositories.EnrollmentRepository {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &EnrollmentCourseAPI{
		httpClient:  &http.Client{Timeout: timeout},
		redis:       redisClient,
		config:      config,
		cachePrefix: "enrollment:",
		cacheTTL:    15 * time.Minute,
	}
}

// ===== CACHE METHODS =====

func (e *EnrollmentCourseAPI) getCacheKey(key string) string {
	return fmt.Sprintf("%s%s", e.cachePrefix, key)
}

func (e *EnrollmentCourseAPI) getMembershipFromCache(ctx context.Context, key string) (*membership, error) {
	if e.redis == nil {
		return nil, nil // Cache not available
	}

	data, err := e.redis.Get(ctx, e.getCacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not found in cache
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var m membership
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached membership: %w", err)
	}

	return &m, nil
}

func (e *EnrollmentCourseAPI) setMembershipCache(ctx context.Context, key string, m *membership) error {
	if e.redis == nil {
		return nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal membership for cache: %w", err)
	}

	return e.redis.Set(ctx, e.getCacheKey(key), data, e.cacheTTL).Err()
}

// ===== HTTP METHODS =====

func (e *EnrollmentCourseAPI) doGet(ctx context.Context, path string, dest interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build course service request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("X-API-Key", e.config.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("course service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode course service response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// getMembership fetches the membership record, caching both hits and misses
func (e *EnrollmentCourseAPI) getMembership(ctx context.Context, courseID uint, userID string) (*membership, error) {
	cacheKey := fmt.Sprintf("course:%d:user:%s", courseID, userID)
	if cached, err := e.getMembershipFromCache(ctx, cacheKey); err == nil && cached != nil {
		return cached, nil
	}

	var m membership
	status, err := e.doGet(ctx, fmt.Sprintf("/api/v1/internal/courses/%d/members/%s", courseID, userID), &m)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		m.CourseID = courseID
		m.UserID = userID
	case http.StatusNotFound:
		// Negative result, cached as a non-member record
		m = membership{CourseID: courseID, UserID: userID}
	default:
		return nil, fmt.Errorf("course service returned status %d", status)
	}

	e.setMembershipCache(ctx, cacheKey, &m)
	return &m, nil
}

// ===== ENROLLMENT REPOSITORY =====

// CourseExists checks whether the course is known to the course service
func (e *EnrollmentCourseAPI) CourseExists(ctx context.Context, courseID uint) (bool, error) {
	cacheKey := fmt.Sprintf("course:%d:exists", courseID)
	if e.redis != nil {
		cached, err := e.redis.Get(ctx, e.getCacheKey(cacheKey)).Result()
		if err == nil {
			return cached == "true", nil
		}
	}

	status, err := e.doGet(ctx, fmt.Sprintf("/api/v1/internal/courses/%d", courseID), nil)
	if err != nil {
		return false, err
	}

	var exists bool
	switch status {
	case http.StatusOK:
		exists = true
	case http.StatusNotFound:
		exists = false
	default:
		return false, fmt.Errorf("course service returned status %d", status)
	}

	if e.redis != nil {
		e.redis.Set(ctx, e.getCacheKey(cacheKey), fmt.Sprintf("%t", exists), e.cacheTTL)
	}

	return exists, nil
}

// IsInstructor checks whether the user teaches the course
func (e *EnrollmentCourseAPI) IsInstructor(ctx context.Context, courseID uint, userID string) (bool, error) {
	m, err := e.getMembership(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	return m.IsInstructor || m.Role == "instructor", nil
}

// IsEnrolled checks whether the user is an enrolled student of the course
func (e *EnrollmentCourseAPI) IsEnrolled(ctx context.Context, courseID uint, userID string) (bool, error) {
	m, err := e.getMembership(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	return m.IsEnrolled || m.Role == "student", nil
}
