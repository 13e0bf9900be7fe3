package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eduflow-platform/quiz-service/internal/config"
	"github.com/eduflow-platform/quiz-service/internal/models"
	"github.com/eduflow-platform/quiz-service/internal/services"
	"github.com/eduflow-platform/quiz-service/internal/utils"
	"github.com/eduflow-platform/quiz-service/internal/validator"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig)

	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), serviceManager.Export(), validator, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware()) // Apply authentication to all API routes
	{
		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			// Create/modify quizzes - Instructors and Admins only
			quizzes.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/publish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/unpublish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.UnpublishQuiz)

			// View quizzes - All authenticated users
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)

			// Review and reporting - Instructors and Admins only
			quizzes.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.GetQuizStats)
			quizzes.GET("/:id/attempts", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.ListQuizAttempts)
			quizzes.GET("/:id/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.quizHandler.ExportQuizResults)
		}

		// Course-scoped quiz listing
		courses := v1.Group("/courses")
		{
			courses.GET("/:course_id/quizzes", hm.quizHandler.ListCourseQuizzes)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.POST("/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetMyResult)

			// Instructor review of a single attempt
			attempts.GET("/:id/details", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.GetAttemptDetail)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})
}
