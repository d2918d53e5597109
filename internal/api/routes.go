package api

import (
	"alcyxob/coach-bot/internal/config"
	"alcyxob/coach-bot/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	cfg config.JWTConfig,
	paidDuration time.Duration,
	userService service.UserService,
	workoutService service.WorkoutService,
	subscriptionService service.SubscriptionService,
	exerciseService service.ExerciseService,
) {
	authHandler := NewAuthHandler(cfg)
	userHandler := NewUserHandler(userService)
	planHandler := NewPlanHandler(workoutService)
	paymentHandler := NewPaymentHandler(userService, subscriptionService, workoutService, paidDuration)
	exerciseHandler := NewExerciseHandler(exerciseService)
	opsHandler := NewOpsHandler(workoutService, subscriptionService)

	authMiddleware := AuthMiddleware(cfg.Secret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/token", authHandler.IssueToken)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- User Routes ---
		userGroup := protected.Group("/users")
		{
			userGroup.POST("", userHandler.Register)
			userGroup.GET("/:id", userHandler.GetUser)
			// POST /api/v1/users/{id}/plan - manual "give me a plan now"
			userGroup.POST("/:id/plan", planHandler.RequestPlan)
		}

		// --- Session Routes ---
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("/:id/complete", planHandler.CompleteSession)
			sessionGroup.POST("/:id/skip", planHandler.SkipSession)
		}

		// --- Payment Routes ---
		protected.POST("/payments/webhook", paymentHandler.Webhook)

		// --- Exercise Library Routes ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListByEquipment)
			exerciseGroup.POST("/seed", exerciseHandler.Seed)
			exerciseGroup.POST("/upload-url", exerciseHandler.UploadURL)
		}

		// --- Ops Routes ---
		opsGroup := protected.Group("/ops")
		{
			opsGroup.POST("/sweep/weekly", opsHandler.TriggerWeeklySweep)
			opsGroup.POST("/sweep/expiry", opsHandler.TriggerExpirySweep)
		}
	}
}
