package main

import (
	"alcyxob/coach-bot/internal/api"
	"alcyxob/coach-bot/internal/config"
	"alcyxob/coach-bot/internal/generation"
	"alcyxob/coach-bot/internal/repository/mongo"
	"alcyxob/coach-bot/internal/scheduler"
	"alcyxob/coach-bot/internal/service"
	"alcyxob/coach-bot/internal/storage"
	"alcyxob/coach-bot/internal/transport"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Coach Bot API
// @version 1.0
// @description Operations API for the workout coaching bot: user onboarding,
// plan generation, payments and library management.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coach Bot...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("sessions"))
		mongo.EnsureSubscriptionIndexes(ctx, appDB.Collection("subscriptions"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	subscriptionRepo := mongo.NewMongoSubscriptionRepository(appDB)

	// --- Initialize Scheduler and Transport ---
	sched := scheduler.New(cfg.Scheduler.MaxConcurrentJobs)
	defer sched.Stop()
	sender := transport.NewTelegramSender(cfg.Telegram)
	planGenerator := generation.NewLLMClient(cfg.LLM)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, userRepo)
	deliveryService := service.NewDeliveryService(sessionRepo, userRepo, subscriptionService, sender, sched, fileStorage)
	// The delivery layer sends the expiry notifications on the
	// subscription service's behalf.
	subscriptionService.SetNotifier(deliveryService)

	workoutService := service.NewWorkoutService(
		userRepo,
		sessionRepo,
		exerciseRepo,
		subscriptionService,
		planGenerator,
		deliveryService,
		cfg.Workout.Cooldown,
		cfg.Workout.GenerationRetryDelay,
	)
	userService := service.NewUserService(userRepo, subscriptionService)
	exerciseService := service.NewExerciseService(exerciseRepo, fileStorage)

	// --- Restore Delivery Jobs ---
	// Registrations are not durable; rebuild them from the planned rows.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		if err := deliveryService.RestoreJobs(ctx); err != nil {
			log.Printf("ERROR: Failed to restore delivery jobs: %v", err)
		}
		cancel()
	}

	// --- Background Sweeps ---
	sched.ScheduleEvery("subscription_expiry_sweep", cfg.Subscription.ExpirySweepInterval, func(ctx context.Context) {
		if err := subscriptionService.ExpireSweep(ctx); err != nil {
			log.Printf("ERROR: Expiry sweep failed: %v", err)
		}
	})
	sched.ScheduleWeekly("weekly_plan_sweep",
		cfg.Scheduler.WeeklySweepDay, cfg.Scheduler.WeeklySweepHour, cfg.Scheduler.WeeklySweepMinute,
		workoutService.WeeklySweep,
	)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT, cfg.Subscription.PaidDuration,
		userService, workoutService, subscriptionService, exerciseService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
